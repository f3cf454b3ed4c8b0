/*
codec.go - Document encoding and the single decode boundary

PURPOSE:
  Documents come back from the store weakly typed: numbers may be
  json.Number, float64, int or numeric text; optional strings may be null;
  timestamps may be time.Time or RFC 3339 text. All of that coercion and
  defaulting happens here and nowhere else. Business code only ever sees a
  validated Summary or Transaction, or a MalformedRecordError.

DEFAULTS (applied on decode only):
  currency -> USD
  status   -> pending

PERSISTED FIELDS:
  summaries/{id}:
    groupId, groupName, description, totalAmount, currency, paidBy,
    payerName, status, participantCount, participantIds, date, createdAt
  summaries/{id}/transactions/v{n}:
    expenseId, version, subtotal, tax, tip, splitMethod, splits[],
    itemizedItems[], createdBy, createdAt
*/
package expense

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/expense-ledger/docstore"
	"github.com/warp/expense-ledger/split"
)

// DefaultCurrency is assumed for records persisted without one.
const DefaultCurrency = "USD"

// Collection paths.
const (
	SummariesCollection = "summaries"
)

// TransactionsCollection is the version set of one expense.
func TransactionsCollection(expenseID string) string {
	return docstore.Path(SummariesCollection, expenseID, "transactions")
}

// =============================================================================
// ENCODING
// =============================================================================

func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func encodeSummary(s Summary) docstore.Document {
	ids := s.ParticipantIDs
	if ids == nil {
		ids = []string{}
	}
	return docstore.Document{
		"groupId":          optional(s.GroupID),
		"groupName":        optional(s.GroupName),
		"description":      s.Description,
		"totalAmount":      money(s.TotalAmount),
		"currency":         s.Currency,
		"paidBy":           s.PaidBy,
		"payerName":        optional(s.PayerName),
		"status":           string(s.Status),
		"participantCount": s.ParticipantCount,
		"participantIds":   ids,
		"date":             s.Date,
		"createdAt":        s.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func encodeTransaction(t Transaction) docstore.Document {
	splits := make([]any, len(t.Splits))
	for i, s := range t.Splits {
		splits[i] = map[string]any{
			"participantId":   s.ParticipantID,
			"participantName": s.ParticipantName,
			"amountOwed":      money(s.AmountOwed),
			"splitMethod":     string(s.Method),
		}
	}
	doc := docstore.Document{
		"expenseId":   t.ExpenseID,
		"version":     t.Version,
		"subtotal":    money(t.Subtotal),
		"tax":         money(t.Tax),
		"tip":         money(t.Tip),
		"splitMethod": string(t.SplitMethod),
		"splits":      splits,
		"createdBy":   t.CreatedBy,
		"createdAt":   t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(t.ItemizedItems) > 0 {
		items := make([]any, len(t.ItemizedItems))
		for i, it := range t.ItemizedItems {
			across := it.SplitAcross
			if across == nil {
				across = []string{}
			}
			items[i] = map[string]any{
				"name":        it.Name,
				"amount":      money(it.Amount),
				"splitAcross": across,
			}
		}
		doc["itemizedItems"] = items
	}
	return doc
}

// =============================================================================
// DECODING
// =============================================================================

// fields reads typed values out of a document and remembers the first
// failure, so decoders read straight through and check once.
type fields struct {
	collection string
	id         string
	doc        map[string]any
	err        error
}

func (f *fields) fail(field, format string, args ...any) {
	if f.err == nil {
		f.err = &MalformedRecordError{
			Collection: f.collection,
			ID:         f.id,
			Field:      field,
			Reason:     fmt.Sprintf(format, args...),
		}
	}
}

func (f *fields) scope(field string, v any) *fields {
	m, ok := v.(map[string]any)
	if !ok {
		if d, isDoc := v.(docstore.Document); isDoc {
			m = d
		} else {
			f.fail(field, "want object, got %T", v)
			m = map[string]any{}
		}
	}
	return &fields{collection: f.collection, id: f.id, doc: m}
}

func (f *fields) adopt(child *fields, prefix string) {
	if child.err != nil && f.err == nil {
		if me, ok := child.err.(*MalformedRecordError); ok {
			me.Field = prefix + "." + me.Field
		}
		f.err = child.err
	}
}

func (f *fields) string(field string, required bool) string {
	v, ok := f.doc[field]
	if !ok || v == nil {
		if required {
			f.fail(field, "missing")
		}
		return ""
	}
	s, ok := v.(string)
	if !ok {
		f.fail(field, "want string, got %T", v)
	}
	return s
}

func (f *fields) nullableString(field string) *string {
	v, ok := f.doc[field]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		f.fail(field, "want string or null, got %T", v)
		return nil
	}
	return &s
}

func (f *fields) decimal(field string, required bool) decimal.Decimal {
	v, ok := f.doc[field]
	if !ok || v == nil {
		if required {
			f.fail(field, "missing")
		}
		return decimal.Zero
	}
	d, err := toDecimal(v)
	if err != nil {
		f.fail(field, "%v", err)
	}
	return d
}

func (f *fields) int(field string, required bool) int {
	d := f.decimal(field, required)
	if !d.IsInteger() {
		f.fail(field, "want integer, got %s", d)
	}
	return int(d.IntPart())
}

func (f *fields) time(field string) time.Time {
	v, ok := f.doc[field]
	if !ok || v == nil {
		f.fail(field, "missing")
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			f.fail(field, "not an RFC 3339 timestamp: %q", t)
		}
		return parsed.UTC()
	}
	f.fail(field, "want timestamp, got %T", v)
	return time.Time{}
}

func (f *fields) list(field string) []any {
	v, ok := f.doc[field]
	if !ok || v == nil {
		return nil
	}
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	}
	f.fail(field, "want array, got %T", v)
	return nil
}

func (f *fields) strings(field string) []string {
	raw := f.list(field)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			f.fail(field, "want array of strings, found %T", v)
			continue
		}
		out = append(out, s)
	}
	return out
}

// toDecimal accepts every numeric shape a document store hands back.
func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case decimal.Decimal:
		return n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, fmt.Errorf("not a number: %s", strconv.Quote(n))
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("want number, got %T", v)
}

// DecodeSummary turns a stored summary into a validated Summary.
func DecodeSummary(snap docstore.Snapshot) (Summary, error) {
	f := &fields{collection: SummariesCollection, id: snap.ID, doc: snap.Data}

	s := Summary{
		ID:               snap.ID,
		GroupID:          f.nullableString("groupId"),
		GroupName:        f.nullableString("groupName"),
		Description:      f.string("description", false),
		TotalAmount:      f.decimal("totalAmount", true),
		Currency:         f.string("currency", false),
		PaidBy:           f.string("paidBy", true),
		PayerName:        f.nullableString("payerName"),
		Status:           Status(f.string("status", false)),
		ParticipantCount: f.int("participantCount", false),
		ParticipantIDs:   f.strings("participantIds"),
		Date:             f.string("date", true),
		CreatedAt:        f.time("createdAt"),
	}
	if f.err != nil {
		return Summary{}, f.err
	}

	if s.Currency == "" {
		s.Currency = DefaultCurrency
	}
	if s.Status == "" {
		s.Status = StatusPending
	}
	if err := s.Validate(); err != nil {
		f.fail(fieldOf(err), "%v", err)
		return Summary{}, f.err
	}
	return s, nil
}

// DecodeTransaction turns a stored version into a validated Transaction.
func DecodeTransaction(expenseID, currency string, snap docstore.Snapshot) (Transaction, error) {
	f := &fields{collection: TransactionsCollection(expenseID), id: snap.ID, doc: snap.Data}

	t := Transaction{
		ID:          snap.ID,
		ExpenseID:   f.string("expenseId", true),
		Version:     f.int("version", true),
		Subtotal:    f.decimal("subtotal", true),
		Tax:         f.decimal("tax", false),
		Tip:         f.decimal("tip", false),
		SplitMethod: split.Method(f.string("splitMethod", true)),
		CreatedBy:   f.string("createdBy", false),
		CreatedAt:   f.time("createdAt"),
	}

	for i, raw := range f.list("splits") {
		prefix := fmt.Sprintf("splits[%d]", i)
		sf := f.scope(prefix, raw)
		s := split.Split{
			ParticipantID:   sf.string("participantId", true),
			ParticipantName: sf.string("participantName", false),
			AmountOwed:      sf.decimal("amountOwed", true),
			Method:          split.Method(sf.string("splitMethod", false)),
		}
		if s.Method == "" {
			s.Method = t.SplitMethod
		}
		f.adopt(sf, prefix)
		t.Splits = append(t.Splits, s)
	}

	for i, raw := range f.list("itemizedItems") {
		prefix := fmt.Sprintf("itemizedItems[%d]", i)
		itf := f.scope(prefix, raw)
		item := Item{
			Name:        itf.string("name", false),
			Amount:      itf.decimal("amount", true),
			SplitAcross: itf.strings("splitAcross"),
		}
		f.adopt(itf, prefix)
		t.ItemizedItems = append(t.ItemizedItems, item)
	}

	if f.err != nil {
		return Transaction{}, f.err
	}
	if t.ExpenseID != expenseID {
		f.fail("expenseId", "belongs to %q, stored under %q", t.ExpenseID, expenseID)
		return Transaction{}, f.err
	}
	if err := t.Validate(currency); err != nil {
		f.fail(fieldOf(err), "%v", err)
		return Transaction{}, f.err
	}
	return t, nil
}

func fieldOf(err error) string {
	if ve, ok := err.(*ValidationError); ok {
		return ve.Field
	}
	return "splits"
}
