// Package renderer turns ledger data into markdown reports. The same
// markdown is printed by ledgerctl (styled for the terminal with glamour)
// and served by the API (converted to HTML with goldmark).
package renderer

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/warp/expense-ledger/audit"
	"github.com/warp/expense-ledger/expense"
	"github.com/warp/expense-ledger/split"
)

// UntitledExpense is shown for expenses recorded without a description.
const UntitledExpense = "Untitled expense"

var funcs = template.FuncMap{
	"money": func(currency string, d decimal.Decimal) string {
		return split.LookupCurrency(currency).Format(d)
	},
	"signed": func(currency string, d decimal.Decimal) string {
		s := split.LookupCurrency(currency).Format(d.Abs())
		if d.IsNegative() {
			return "-" + s
		}
		return "+" + s
	},
	"title": Title,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"cell": func(s string) string {
		return strings.ReplaceAll(s, "|", `\|`)
	},
	"join": strings.Join,
	"time": func(e audit.Entry) string {
		return e.Timestamp.UTC().Format("2006-01-02 15:04:05")
	},
	"payer": func(s expense.Summary) string {
		if s.PayerName != nil && *s.PayerName != "" {
			return *s.PayerName
		}
		return s.PaidBy
	},
	"participant": func(s split.Split) string {
		if s.ParticipantName != "" {
			return s.ParticipantName
		}
		return s.ParticipantID
	},
	"versionHeading": func(tx expense.Transaction) string {
		return fmt.Sprintf("Version %d by %s, %s", tx.Version, tx.CreatedBy, tx.CreatedAt.UTC().Format("2006-01-02 15:04"))
	},
	"txOf": func(heading, currency string, tx expense.Transaction) any {
		return struct {
			Heading  string
			Currency string
			Tx       expense.Transaction
		}{heading, currency, tx}
	},
	"listOf": func(heading string, summaries []expense.Summary) any {
		return struct {
			Heading   string
			Summaries []expense.Summary
		}{heading, summaries}
	},
}

var templates = template.Must(template.New("renderer").Funcs(funcs).Parse(
	expenseTemplate + splitsTemplate + listTemplate + historyTemplate +
		balancesTemplate + auditTemplate + statementTemplate,
))

// Title is the display name of an expense.
func Title(s expense.Summary) string {
	if strings.TrimSpace(s.Description) == "" {
		return UntitledExpense
	}
	return s.Description
}

func render(name string, data any) string {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		// The templates are fixed; a failure here is a programming error.
		panic(fmt.Sprintf("render %s: %v", name, err))
	}
	return strings.TrimLeft(buf.String(), "\n")
}

// =============================================================================
// REPORTS
// =============================================================================

// Expense renders one expense with its latest version.
func Expense(v expense.View) string {
	return render("expense", v)
}

// Splits renders calculator output.
func Splits(currency string, splits []split.Split) string {
	return render("splits_preview", struct {
		Currency string
		Splits   []split.Split
		Total    decimal.Decimal
	}{split.LookupCurrency(currency).Code, splits, split.Sum(splits)})
}

// Expenses renders a list of summaries under a heading.
func Expenses(heading string, summaries []expense.Summary) string {
	return render("list", struct {
		Heading   string
		Summaries []expense.Summary
	}{heading, summaries})
}

// History renders every version of an expense, oldest first.
func History(s expense.Summary, versions []expense.Transaction) string {
	return render("history", struct {
		Summary  expense.Summary
		Versions []expense.Transaction
	}{s, versions})
}

// CurrencyBalance is a user's position in one currency.
type CurrencyBalance struct {
	Currency       string
	OwedToUser     decimal.Decimal
	UserOwes       decimal.Decimal
	Net            decimal.Decimal
	Counterparties []Counterparty
}

type Counterparty struct {
	ID     string
	Amount decimal.Decimal
}

// CurrencyBalances flattens per-currency balances into sorted rows, leaving
// out counterparties the user is square with.
func CurrencyBalances(byCurrency map[string]expense.Balances) []CurrencyBalance {
	currencies := make([]string, 0, len(byCurrency))
	for c := range byCurrency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	out := make([]CurrencyBalance, 0, len(currencies))
	for _, c := range currencies {
		b := byCurrency[c]
		owed, owes := b.Totals()
		cb := CurrencyBalance{Currency: c, OwedToUser: owed, UserOwes: owes, Net: b.Net()}
		for _, id := range b.Counterparties() {
			if !b[id].IsZero() {
				cb.Counterparties = append(cb.Counterparties, Counterparty{ID: id, Amount: b[id]})
			}
		}
		out = append(out, cb)
	}
	return out
}

// Balances renders a user's balances, one section per currency.
func Balances(userID string, byCurrency map[string]expense.Balances, includeSettled bool) string {
	return render("balances", balancesData(userID, byCurrency, includeSettled))
}

func balancesData(userID string, byCurrency map[string]expense.Balances, includeSettled bool) any {
	return struct {
		UserID         string
		IncludeSettled bool
		Currencies     []CurrencyBalance
	}{userID, includeSettled, CurrencyBalances(byCurrency)}
}

// Audit renders an expense's audit trail.
func Audit(expenseID string, entries []audit.Entry) string {
	return render("audit", struct {
		ExpenseID string
		Entries   []audit.Entry
	}{expenseID, entries})
}

// Statement renders a user's balances followed by the expenses behind them.
func Statement(userID string, views []expense.View, includeSettled bool) string {
	summaries := make([]expense.Summary, len(views))
	for i, v := range views {
		summaries[i] = v.Summary
	}
	return render("statement", struct {
		Balances  any
		Summaries []expense.Summary
	}{
		balancesData(userID, expense.ProjectByCurrency(userID, views), includeSettled),
		summaries,
	})
}

// =============================================================================
// OUTPUT FORMATS
// =============================================================================

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML converts a markdown report to an HTML fragment.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// Terminal styles a markdown report for a terminal of the given width.
func Terminal(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
