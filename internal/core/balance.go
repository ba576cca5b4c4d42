package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PaidAmountForReceivable sums the payments recorded against receivableID.
func PaidAmountForReceivable(receivableID string, payments []Payment) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		if p.ReceivableID == receivableID {
			paid = paid.Add(p.PaymentAmount)
		}
	}
	return paid
}

// StatusForReceivable classifies a receivable given what has been paid on it.
// Exact payment and overpayment are both Paid.
func StatusForReceivable(r Receivable, paidAmount decimal.Decimal) Status {
	remaining := r.Amount.Sub(paidAmount)
	switch {
	case !remaining.IsPositive():
		return StatusPaid
	case paidAmount.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// BalanceForReceivable combines the paid amount, the unclamped remaining
// amount and the status of r.
func BalanceForReceivable(r Receivable, payments []Payment) Balance {
	paid := PaidAmountForReceivable(r.ID, payments)
	return Balance{
		Paid:      paid,
		Remaining: r.Amount.Sub(paid),
		Status:    StatusForReceivable(r, paid),
	}
}

// Balances computes the balance of every receivable in a single pass over
// payments. Output order follows receivables.
func Balances(receivables []Receivable, payments []Payment) []ReceivableBalance {
	paid := paidByReceivable(payments)
	out := make([]ReceivableBalance, 0, len(receivables))
	for _, r := range receivables {
		p, ok := paid[r.ID]
		if !ok {
			p = decimal.Zero
		}
		out = append(out, ReceivableBalance{
			Receivable: r,
			Balance: Balance{
				Paid:      p,
				Remaining: r.Amount.Sub(p),
				Status:    StatusForReceivable(r, p),
			},
		})
	}
	return out
}

// SummarizeCustomer aggregates the receivables whose customer name equals
// name exactly, and the payments made against them. OutstandingBalance is not
// clamped: overpayment yields a negative value.
func SummarizeCustomer(name string, receivables []Receivable, payments []Payment) CustomerSummary {
	acc := newAccumulator()
	for _, r := range receivables {
		if r.CustomerName == name {
			acc.addReceivable(r, r.City)
		}
	}
	acc.addPayments(payments)
	return acc.customerSummary(name)
}

// SummarizeAllCustomers returns one summary per distinct customer name, in
// first-seen order of receivables.
func SummarizeAllCustomers(receivables []Receivable, payments []Payment) []CustomerSummary {
	groups := groupBy(receivables, func(r Receivable) (string, bool) {
		return r.CustomerName, true
	}, func(r Receivable) string { return r.City })
	out := make([]CustomerSummary, 0, len(groups.order))
	groups.addPayments(payments)
	for _, key := range groups.order {
		out = append(out, groups.byKey[key].customerSummary(key))
	}
	return out
}

// SummarizeCity aggregates the receivables whose city equals city exactly.
// Receivables without a city never contribute.
func SummarizeCity(city string, receivables []Receivable, payments []Payment) CitySummary {
	acc := newAccumulator()
	if !isBlank(city) {
		for _, r := range receivables {
			if r.City == city {
				acc.addReceivable(r, r.CustomerName)
			}
		}
		acc.addPayments(payments)
	}
	return acc.citySummary(city)
}

// SummarizeAllCities returns one summary per distinct non-empty city, in
// first-seen order of receivables.
func SummarizeAllCities(receivables []Receivable, payments []Payment) []CitySummary {
	groups := groupBy(receivables, func(r Receivable) (string, bool) {
		return r.City, !isBlank(r.City)
	}, func(r Receivable) string { return r.CustomerName })
	out := make([]CitySummary, 0, len(groups.order))
	groups.addPayments(payments)
	for _, key := range groups.order {
		out = append(out, groups.byKey[key].citySummary(key))
	}
	return out
}

// CollectionRate is totalPaid as a percentage of totalReceivables, or 0 when
// nothing is receivable. It is not capped at 100.
func CollectionRate(totalPaid, totalReceivables decimal.Decimal) float64 {
	if !totalReceivables.IsPositive() {
		return 0
	}
	return totalPaid.Div(totalReceivables).Mul(hundred).InexactFloat64()
}

func paidByReceivable(payments []Payment) map[string]decimal.Decimal {
	paid := make(map[string]decimal.Decimal)
	for _, p := range payments {
		paid[p.ReceivableID] = paid[p.ReceivableID].Add(p.PaymentAmount)
	}
	return paid
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// accumulator holds the running totals of one group.
type accumulator struct {
	ids         map[string]struct{}
	labels      map[string]struct{}
	total       decimal.Decimal
	paid        decimal.Decimal
	receivables int
	payments    int
}

func newAccumulator() *accumulator {
	return &accumulator{
		ids:    make(map[string]struct{}),
		labels: make(map[string]struct{}),
		total:  decimal.Zero,
		paid:   decimal.Zero,
	}
}

// addReceivable adds r to the group; label is the secondary attribute
// collected as a distinct set (cities of a customer, customers of a city).
func (a *accumulator) addReceivable(r Receivable, label string) {
	a.ids[r.ID] = struct{}{}
	a.total = a.total.Add(r.Amount)
	a.receivables++
	if !isBlank(label) {
		a.labels[label] = struct{}{}
	}
}

func (a *accumulator) addPayments(payments []Payment) {
	for _, p := range payments {
		if _, ok := a.ids[p.ReceivableID]; ok {
			a.addPayment(p)
		}
	}
}

func (a *accumulator) addPayment(p Payment) {
	a.paid = a.paid.Add(p.PaymentAmount)
	a.payments++
}

func (a *accumulator) sortedLabels() []string {
	out := make([]string, 0, len(a.labels))
	for l := range a.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (a *accumulator) customerSummary(name string) CustomerSummary {
	return CustomerSummary{
		CustomerName:       name,
		TotalReceivables:   a.total,
		TotalPaid:          a.paid,
		OutstandingBalance: a.total.Sub(a.paid),
		Cities:             a.sortedLabels(),
		ReceivableCount:    a.receivables,
		PaymentCount:       a.payments,
	}
}

func (a *accumulator) citySummary(city string) CitySummary {
	return CitySummary{
		City:               city,
		TotalReceivables:   a.total,
		TotalPaid:          a.paid,
		OutstandingBalance: a.total.Sub(a.paid),
		Customers:          a.sortedLabels(),
		ReceivableCount:    a.receivables,
		PaymentCount:       a.payments,
	}
}

// grouping is an insertion-ordered map of accumulators plus an index from
// receivable id to the groups holding it.
type grouping struct {
	order []string
	byKey map[string]*accumulator
	byID  map[string][]*accumulator
}

func groupBy(receivables []Receivable, key func(Receivable) (string, bool), label func(Receivable) string) *grouping {
	g := &grouping{
		byKey: make(map[string]*accumulator),
		byID:  make(map[string][]*accumulator),
	}
	for _, r := range receivables {
		k, ok := key(r)
		if !ok {
			continue
		}
		acc, seen := g.byKey[k]
		if !seen {
			acc = newAccumulator()
			g.byKey[k] = acc
			g.order = append(g.order, k)
		}
		if _, dup := acc.ids[r.ID]; !dup {
			g.byID[r.ID] = append(g.byID[r.ID], acc)
		}
		acc.addReceivable(r, label(r))
	}
	return g
}

func (g *grouping) addPayments(payments []Payment) {
	for _, p := range payments {
		for _, acc := range g.byID[p.ReceivableID] {
			acc.addPayment(p)
		}
	}
}
