package renderer

const expenseTemplate = `
{{define "expense"}}
# {{ title .Summary | cell }}

| | |
|:---|---:|
| Expense | {{ .Summary.ID }} |
| Date | {{ .Summary.Date }} |
| Paid by | {{ payer .Summary | cell }} |
{{- with .Summary.GroupName }}
| Group | {{ deref . | cell }} |
{{- end }}
| Total | {{ money .Summary.Currency .Summary.TotalAmount }} |
| Per person | {{ money .Summary.Currency .PerPerson }} |
| Status | {{ .Summary.Status }} |
{{- with .Latest }}
| Version | {{ .Version }} |
{{- end }}
{{ if .Latest }}
{{ template "transaction" (txOf "Splits" .Summary.Currency .Latest) }}
{{- else }}
*Incomplete: no transaction has been recorded yet.*
{{ end }}
{{- end}}
`

const splitsTemplate = `
{{define "transaction"}}
## {{ .Heading }} ({{ .Tx.SplitMethod }})

| Participant | Owes |
|:---|---:|
{{- range .Tx.Splits }}
| {{ participant . | cell }} | {{ money $.Currency .AmountOwed }} |
{{- end }}
| **Total** | **{{ money .Currency .Tx.Total }}** |
{{- if .Tx.ItemizedItems }}

| Item | Amount | Shared by |
|:---|---:|:---|
{{- range .Tx.ItemizedItems }}
| {{ cell .Name }} | {{ money $.Currency .Amount }} | {{ join .SplitAcross ", " | cell }} |
{{- end }}
{{- end }}
{{end}}

{{define "splits_preview"}}
# Split preview

| Participant | Owes |
|:---|---:|
{{- range .Splits }}
| {{ participant . | cell }} | {{ money $.Currency .AmountOwed }} |
{{- end }}
| **Total** | **{{ money .Currency .Total }}** |
{{end}}
`

const listTemplate = `
{{define "list"}}
# {{ .Heading }}
{{ if .Summaries }}
| Date | Expense | Paid by | Total | Status | Id |
|:---|:---|:---|---:|:---|:---|
{{- range .Summaries }}
| {{ .Date }} | {{ title . | cell }} | {{ payer . | cell }} | {{ money .Currency .TotalAmount }} | {{ .Status }} | {{ .ID }} |
{{- end }}
{{ else }}
*No expenses.*
{{ end }}
{{- end}}
`

const historyTemplate = `
{{define "history"}}
# {{ title .Summary | cell }}: history
{{ range .Versions }}
{{ template "transaction" (txOf (versionHeading .) $.Summary.Currency .) }}
{{- else }}
*Incomplete: no transaction has been recorded yet.*
{{ end }}
{{- end}}
`

const balancesTemplate = `
{{define "balances"}}
# Balances for {{ cell .UserID }}

*{{ if .IncludeSettled }}All expenses{{ else }}Outstanding expenses only{{ end }}*
{{ range .Currencies }}
{{- $cur := .Currency }}
## {{ $cur }}

| | |
|:---|---:|
| Owed to you | {{ money $cur .OwedToUser }} |
| You owe | {{ money $cur .UserOwes }} |
| **Net** | **{{ signed $cur .Net }}** |
{{ if .Counterparties }}
| Counterparty | Balance |
|:---|---:|
{{- range .Counterparties }}
| {{ cell .ID }} | {{ signed $cur .Amount }} |
{{- end }}
{{ end }}
{{- else }}
*Nothing owed either way.*
{{ end }}
{{- end}}
`

const auditTemplate = `
{{define "audit"}}
# Audit trail for {{ .ExpenseID }}
{{ if .Entries }}
| When | Action | Actor | Version |
|:---|:---|:---|---:|
{{- range .Entries }}
| {{ time . }} | {{ .Action }} | {{ cell .ActorID }} | {{ if .Version }}{{ .Version }}{{ end }} |
{{- end }}
{{ else }}
*No entries.*
{{ end }}
{{- end}}
`

const statementTemplate = `
{{define "statement"}}
{{- template "balances" .Balances }}
{{ template "list" (listOf "Expenses" .Summaries) }}
{{- end}}
`
