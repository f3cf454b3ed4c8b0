/*
dto.go - Data Transfer Objects for the HTTP API

PURPOSE:
  Request and response shapes for the JSON API. The ledger's own types
  (expense.Summary, expense.Transaction) are never written to the wire
  directly; handlers convert them here so the storage layout can change
  without breaking clients.

MONEY:
  Every amount is a decimal. Responses encode amounts as strings ("26.00")
  so clients never round through float64. Requests accept either a JSON
  number or a numeric string.

NAMING CONVENTION:
  - *DTO:      Response objects (data going out)
  - *Request:  Request objects (data coming in)

SEE ALSO:
  - handlers.go: Uses these types
  - expense/types.go: Domain types converted here
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/expense-ledger/audit"
	"github.com/warp/expense-ledger/expense"
	"github.com/warp/expense-ledger/split"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ParticipantRequest names one person in a split. Percentage is read for the
// percentage method, Amount for the custom method.
type ParticipantRequest struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// ItemRequest is one line of an itemized receipt.
type ItemRequest struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	SplitAcross []string        `json:"split_across"`
}

// SplitRequest is a precomputed share, used when the client already did the math.
type SplitRequest struct {
	ParticipantID   string          `json:"participant_id"`
	ParticipantName string          `json:"participant_name"`
	AmountOwed      decimal.Decimal `json:"amount_owed"`
}

// CreateExpenseRequest is the request to record a new expense.
type CreateExpenseRequest struct {
	GroupID      *string              `json:"group_id"`
	GroupName    *string              `json:"group_name"`
	Description  string               `json:"description"`
	Currency     string               `json:"currency"`
	PaidBy       string               `json:"paid_by"`
	PayerName    *string              `json:"payer_name"`
	Status       string               `json:"status"`
	Date         string               `json:"date"`
	Subtotal     decimal.Decimal      `json:"subtotal"`
	Tax          decimal.Decimal      `json:"tax"`
	Tip          decimal.Decimal      `json:"tip"`
	SplitMethod  string               `json:"split_method"`
	Participants []ParticipantRequest `json:"participants"`
	Items        []ItemRequest        `json:"items"`
	Splits       []SplitRequest       `json:"splits"`
}

// ReviseExpenseRequest is the request to append a new version.
type ReviseExpenseRequest struct {
	Subtotal     decimal.Decimal      `json:"subtotal"`
	Tax          decimal.Decimal      `json:"tax"`
	Tip          decimal.Decimal      `json:"tip"`
	SplitMethod  string               `json:"split_method"`
	Participants []ParticipantRequest `json:"participants"`
	Items        []ItemRequest        `json:"items"`
	Splits       []SplitRequest       `json:"splits"`
	Status       string               `json:"status"`
}

// SplitPreviewRequest runs the split calculator without writing anything.
type SplitPreviewRequest struct {
	Currency     string               `json:"currency"`
	Subtotal     decimal.Decimal      `json:"subtotal"`
	Tax          decimal.Decimal      `json:"tax"`
	Tip          decimal.Decimal      `json:"tip"`
	SplitMethod  string               `json:"split_method"`
	Participants []ParticipantRequest `json:"participants"`
	Items        []ItemRequest        `json:"items"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SplitDTO is one participant's share.
type SplitDTO struct {
	ParticipantID   string          `json:"participant_id"`
	ParticipantName string          `json:"participant_name"`
	AmountOwed      decimal.Decimal `json:"amount_owed"`
	SplitMethod     string          `json:"split_method"`
}

// ItemDTO is one line of an itemized receipt.
type ItemDTO struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	SplitAcross []string        `json:"split_across"`
}

// TransactionDTO is one version of an expense's financial detail.
type TransactionDTO struct {
	ID          string          `json:"id"`
	ExpenseID   string          `json:"expense_id"`
	Version     int             `json:"version"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Tip         decimal.Decimal `json:"tip"`
	Total       decimal.Decimal `json:"total"`
	SplitMethod string          `json:"split_method"`
	Splits      []SplitDTO      `json:"splits"`
	Items       []ItemDTO       `json:"items,omitempty"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   string          `json:"created_at"`
}

// ExpenseDTO is an expense summary, with its latest version when one is attached.
type ExpenseDTO struct {
	ID               string          `json:"id"`
	GroupID          *string         `json:"group_id"`
	GroupName        *string         `json:"group_name"`
	Description      string          `json:"description"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	PaidBy           string          `json:"paid_by"`
	PayerName        *string         `json:"payer_name"`
	Status           string          `json:"status"`
	ParticipantCount int             `json:"participant_count"`
	ParticipantIDs   []string        `json:"participant_ids"`
	Date             string          `json:"date"`
	CreatedAt        string          `json:"created_at"`
	PerPerson        *string         `json:"per_person,omitempty"`
	Complete         *bool           `json:"complete,omitempty"`
	Latest           *TransactionDTO `json:"latest_transaction,omitempty"`
}

// CounterpartyDTO is the net position between the user and one other person.
// Positive amounts are owed to the user.
type CounterpartyDTO struct {
	ParticipantID string          `json:"participant_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// BalanceDTO is a user's position in one currency.
type BalanceDTO struct {
	Currency       string            `json:"currency"`
	OwedToUser     decimal.Decimal   `json:"owed_to_user"`
	UserOwes       decimal.Decimal   `json:"user_owes"`
	Net            decimal.Decimal   `json:"net"`
	Counterparties []CounterpartyDTO `json:"counterparties"`
}

// BalancesResponse groups a user's balances by currency.
type BalancesResponse struct {
	UserID         string       `json:"user_id"`
	IncludeSettled bool         `json:"include_settled"`
	Expenses       int          `json:"expenses"`
	Balances       []BalanceDTO `json:"balances"`
}

// SplitPreviewDTO is the calculator's answer for a preview request.
type SplitPreviewDTO struct {
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Splits   []SplitDTO      `json:"splits"`
}

// AuditEntryDTO is one recorded ledger operation.
type AuditEntryDTO struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	ExpenseID string         `json:"expense_id"`
	Version   int            `json:"version,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toParticipants(reqs []ParticipantRequest) []split.Participant {
	out := make([]split.Participant, len(reqs))
	for i, p := range reqs {
		out[i] = split.Participant{ID: p.ID, Name: p.Name, Percentage: p.Percentage, Amount: p.Amount}
	}
	return out
}

func toItems(reqs []ItemRequest) []expense.Item {
	if len(reqs) == 0 {
		return nil
	}
	out := make([]expense.Item, len(reqs))
	for i, it := range reqs {
		out[i] = expense.Item{Name: it.Name, Amount: it.Amount, SplitAcross: it.SplitAcross}
	}
	return out
}

func toSplitItems(reqs []ItemRequest) []split.Item {
	if len(reqs) == 0 {
		return nil
	}
	out := make([]split.Item, len(reqs))
	for i, it := range reqs {
		out[i] = split.Item{Name: it.Name, Amount: it.Amount, SplitAcross: it.SplitAcross}
	}
	return out
}

func toSplits(reqs []SplitRequest, method split.Method) []split.Split {
	if len(reqs) == 0 {
		return nil
	}
	out := make([]split.Split, len(reqs))
	for i, s := range reqs {
		out[i] = split.Split{
			ParticipantID:   s.ParticipantID,
			ParticipantName: s.ParticipantName,
			AmountOwed:      s.AmountOwed,
			Method:          method,
		}
	}
	return out
}

// CreateInput converts the request for the writer. An empty split method
// means equal.
func (req CreateExpenseRequest) CreateInput(actor string) (expense.CreateInput, error) {
	method, err := parseMethod(req.SplitMethod)
	if err != nil {
		return expense.CreateInput{}, err
	}
	return expense.CreateInput{
		GroupID:      req.GroupID,
		GroupName:    req.GroupName,
		Description:  req.Description,
		Currency:     req.Currency,
		PaidBy:       req.PaidBy,
		PayerName:    req.PayerName,
		Status:       expense.Status(req.Status),
		Date:         req.Date,
		Subtotal:     req.Subtotal,
		Tax:          req.Tax,
		Tip:          req.Tip,
		SplitMethod:  method,
		Participants: toParticipants(req.Participants),
		Items:        toItems(req.Items),
		Splits:       toSplits(req.Splits, method),
		CreatedBy:    actor,
	}, nil
}

// ReviseInput converts the request for the writer.
func (req ReviseExpenseRequest) ReviseInput(actor string) (expense.ReviseInput, error) {
	method, err := parseMethod(req.SplitMethod)
	if err != nil {
		return expense.ReviseInput{}, err
	}
	return expense.ReviseInput{
		Subtotal:     req.Subtotal,
		Tax:          req.Tax,
		Tip:          req.Tip,
		SplitMethod:  method,
		Participants: toParticipants(req.Participants),
		Items:        toItems(req.Items),
		Splits:       toSplits(req.Splits, method),
		Status:       expense.Status(req.Status),
		CreatedBy:    actor,
	}, nil
}

// SplitInput converts the request for the calculator.
func (req SplitPreviewRequest) SplitInput() (split.Input, error) {
	method, err := parseMethod(req.SplitMethod)
	if err != nil {
		return split.Input{}, err
	}
	return split.Input{
		Subtotal:     req.Subtotal,
		Tax:          req.Tax,
		Tip:          req.Tip,
		Currency:     req.Currency,
		Method:       method,
		Participants: toParticipants(req.Participants),
		Items:        toSplitItems(req.Items),
	}, nil
}

func parseMethod(s string) (split.Method, error) {
	if s == "" {
		return split.Equal, nil
	}
	return split.ParseMethod(s)
}

func toSplitDTOs(splits []split.Split) []SplitDTO {
	out := make([]SplitDTO, len(splits))
	for i, s := range splits {
		out[i] = SplitDTO{
			ParticipantID:   s.ParticipantID,
			ParticipantName: s.ParticipantName,
			AmountOwed:      s.AmountOwed,
			SplitMethod:     string(s.Method),
		}
	}
	return out
}

func toTransactionDTO(tx expense.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          tx.ID,
		ExpenseID:   tx.ExpenseID,
		Version:     tx.Version,
		Subtotal:    tx.Subtotal,
		Tax:         tx.Tax,
		Tip:         tx.Tip,
		Total:       tx.Total(),
		SplitMethod: string(tx.SplitMethod),
		Splits:      toSplitDTOs(tx.Splits),
		CreatedBy:   tx.CreatedBy,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
	for _, it := range tx.ItemizedItems {
		dto.Items = append(dto.Items, ItemDTO{Name: it.Name, Amount: it.Amount, SplitAcross: it.SplitAcross})
	}
	return dto
}

func toTransactionDTOs(txs []expense.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionDTO(tx)
	}
	return out
}

func toExpenseDTO(s expense.Summary) ExpenseDTO {
	ids := s.ParticipantIDs
	if ids == nil {
		ids = []string{}
	}
	return ExpenseDTO{
		ID:               s.ID,
		GroupID:          s.GroupID,
		GroupName:        s.GroupName,
		Description:      s.Description,
		TotalAmount:      s.TotalAmount,
		Currency:         s.Currency,
		PaidBy:           s.PaidBy,
		PayerName:        s.PayerName,
		Status:           string(s.Status),
		ParticipantCount: s.ParticipantCount,
		ParticipantIDs:   ids,
		Date:             s.Date,
		CreatedAt:        s.CreatedAt.Format(time.RFC3339),
	}
}

func toExpenseDTOs(summaries []expense.Summary) []ExpenseDTO {
	out := make([]ExpenseDTO, len(summaries))
	for i, s := range summaries {
		out[i] = toExpenseDTO(s)
	}
	return out
}

func toViewDTO(v expense.View) ExpenseDTO {
	dto := toExpenseDTO(v.Summary)
	complete := v.Complete()
	dto.Complete = &complete
	perPerson := split.LookupCurrency(v.Summary.Currency).Format(v.PerPerson())
	dto.PerPerson = &perPerson
	if v.Latest != nil {
		latest := toTransactionDTO(*v.Latest)
		dto.Latest = &latest
	}
	return dto
}

func toBalanceDTO(currency string, b expense.Balances) BalanceDTO {
	owed, owes := b.Totals()
	dto := BalanceDTO{
		Currency:       currency,
		OwedToUser:     owed,
		UserOwes:       owes,
		Net:            b.Net(),
		Counterparties: []CounterpartyDTO{},
	}
	for _, id := range b.Counterparties() {
		if b[id].IsZero() {
			continue
		}
		dto.Counterparties = append(dto.Counterparties, CounterpartyDTO{ParticipantID: id, Amount: b[id]})
	}
	return dto
}

func toAuditEntryDTO(e audit.Entry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
		ActorID:   e.ActorID,
		Action:    string(e.Action),
		ExpenseID: e.ExpenseID,
		Version:   e.Version,
		Payload:   e.Payload,
	}
}
