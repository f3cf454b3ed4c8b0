package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENCODING - Every backend stores documents as JSON
// =============================================================================

// Encode serializes a document. Map keys come out sorted, so two equal
// documents always encode to the same bytes.
func Encode(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

// Decode parses a stored document. Numbers are kept as json.Number.
func Decode(b []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Normalize converts a Go value into the shape it has after a store
// round-trip, so predicate values compare against stored values.
func Normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: value not encodable: %v", ErrInvalidQuery, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge returns a copy of doc with fields applied on top (shallow).
func Merge(doc, fields Document) Document {
	out := make(Document, len(doc)+len(fields))
	for k, v := range doc {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// =============================================================================
// PREDICATE EVALUATION
// =============================================================================

// Lookup returns the value at a field path. Dots address nested maps.
func Lookup(doc Document, field string) (any, bool) {
	var cur any = map[string]any(doc)
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			if d, isDoc := cur.(Document); isDoc {
				m = d
			} else {
				return nil, false
			}
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Matcher evaluates one predicate against decoded documents.
type Matcher struct {
	pred  *Predicate
	value any
}

// NewMatcher normalizes the predicate value once. A nil predicate matches everything.
func NewMatcher(p *Predicate) (*Matcher, error) {
	if p == nil {
		return &Matcher{}, nil
	}
	v, err := Normalize(p.Value)
	if err != nil {
		return nil, err
	}
	return &Matcher{pred: p, value: v}, nil
}

// Match reports whether doc satisfies the predicate.
func (m *Matcher) Match(doc Document) bool {
	if m.pred == nil {
		return true
	}
	got, ok := Lookup(doc, m.pred.Field)
	if !ok {
		return false
	}
	switch m.pred.Op {
	case OpEqual:
		return ValuesEqual(got, m.value)
	case OpArrayContains:
		arr, ok := got.([]any)
		if !ok {
			return false
		}
		for _, el := range arr {
			if ValuesEqual(el, m.value) {
				return true
			}
		}
	}
	return false
}

// ValuesEqual compares two decoded values. Numbers compare numerically,
// maps and slices compare element by element.
func ValuesEqual(a, b any) bool {
	switch av := a.(type) {
	case json.Number:
		bv, ok := b.(json.Number)
		if !ok {
			return false
		}
		da, errA := decimal.NewFromString(av.String())
		db, errB := decimal.NewFromString(bv.String())
		if errA != nil || errB != nil {
			return av == bv
		}
		return da.Equal(db)
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !ValuesEqual(v, w) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		switch b.(type) {
		case map[string]any, []any, json.Number:
			return false
		}
		return a == b
	}
}

// =============================================================================
// ORDERING
// =============================================================================

// Compare orders decoded values: missing/nil < bool < number < string.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case json.Number:
		da, _ := decimal.NewFromString(av.String())
		db, _ := decimal.NewFromString(b.(json.Number).String())
		return da.Cmp(db)
	case string:
		return strings.Compare(av, b.(string))
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case json.Number:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// Arrange sorts and limits snapshots according to the query. Ties on the
// ordering field fall back to document identity.
func Arrange(snaps []Snapshot, q Query) []Snapshot {
	if q.OrderBy != "" {
		sort.SliceStable(snaps, func(i, j int) bool {
			vi, _ := Lookup(snaps[i].Data, q.OrderBy)
			vj, _ := Lookup(snaps[j].Data, q.OrderBy)
			c := Compare(vi, vj)
			if c == 0 {
				return snaps[i].ID < snaps[j].ID
			}
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(snaps) > q.Limit {
		snaps = snaps[:q.Limit]
	}
	return snaps
}
