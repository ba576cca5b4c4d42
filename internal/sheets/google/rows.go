package google

import (
	"strings"

	"github.com/shopspring/decimal"

	"receivables/internal/core"
)

// Tab is the full content of one spreadsheet tab, header row first.
type Tab struct {
	Name string
	Rows [][]any
}

var (
	receivableHeader = []any{"ID", "Date", "Customer", "City", "Amount", "Paid", "Remaining", "Status", "Description"}
	paymentHeader    = []any{"ID", "Payment Date", "Receivable ID", "Customer", "Amount", "Payment Type", "Notes"}
	customerHeader   = []any{"Customer", "Cities", "Receivables", "Payments", "Total Receivables", "Total Paid", "Outstanding"}
)

// BuildTabs renders the ledger into the Receivables, Payments and Customers
// tabs. Input order is kept; callers pass store order (newest first).
func BuildTabs(receivables []core.Receivable, payments []core.Payment) []Tab {
	return []Tab{
		{Name: ReceivablesTab, Rows: receivableRows(receivables, payments)},
		{Name: PaymentsTab, Rows: paymentRows(payments, receivables)},
		{Name: CustomersTab, Rows: customerRows(receivables, payments)},
	}
}

func receivableRows(receivables []core.Receivable, payments []core.Payment) [][]any {
	rows := make([][]any, 0, len(receivables)+1)
	rows = append(rows, receivableHeader)
	for _, rb := range core.Balances(receivables, payments) {
		rows = append(rows, []any{
			rb.ID,
			rb.Date.String(),
			rb.CustomerName,
			rb.City,
			number(rb.Amount),
			number(rb.Paid),
			number(rb.Remaining),
			string(rb.Status),
			rb.Description,
		})
	}
	return rows
}

func paymentRows(payments []core.Payment, receivables []core.Receivable) [][]any {
	customerOf := make(map[string]string, len(receivables))
	for _, r := range receivables {
		customerOf[r.ID] = r.CustomerName
	}
	rows := make([][]any, 0, len(payments)+1)
	rows = append(rows, paymentHeader)
	for _, p := range payments {
		rows = append(rows, []any{
			p.ID,
			p.PaymentDate.String(),
			p.ReceivableID,
			customerOf[p.ReceivableID],
			number(p.PaymentAmount),
			p.PaymentType,
			p.Notes,
		})
	}
	return rows
}

func customerRows(receivables []core.Receivable, payments []core.Payment) [][]any {
	summaries := core.SummarizeAllCustomers(receivables, payments)
	rows := make([][]any, 0, len(summaries)+1)
	rows = append(rows, customerHeader)
	for _, s := range summaries {
		rows = append(rows, []any{
			s.CustomerName,
			strings.Join(s.Cities, ", "),
			s.ReceivableCount,
			s.PaymentCount,
			number(s.TotalReceivables),
			number(s.TotalPaid),
			number(s.OutstandingBalance),
		})
	}
	return rows
}

// number sends amounts as sheet numbers rather than text.
func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
