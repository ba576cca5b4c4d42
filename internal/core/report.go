package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Limits used by the dashboard and reports views.
const (
	TrendMonths        = 6
	TopPaymentTypes    = 5
	RecentPaymentDays  = 7
	RecentActivityRows = 8
)

// UnknownPaymentType labels payments recorded without a type.
const UnknownPaymentType = "Unknown"

// Totals are the headline figures of a set of receivables and payments.
type Totals struct {
	TotalReceivables   decimal.Decimal `json:"totalReceivables"`
	TotalPaid          decimal.Decimal `json:"totalPaid"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	CollectionRate     float64         `json:"collectionRate"`
	CustomerCount      int             `json:"customerCount"`
	ReceivableCount    int             `json:"receivableCount"`
	PaymentCount       int             `json:"paymentCount"`
}

type MonthPoint struct {
	Month       string          `json:"month"`
	Receivables decimal.Decimal `json:"receivables"`
	Payments    decimal.Decimal `json:"payments"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type PaymentTypeShare struct {
	PaymentType string          `json:"payment_type"`
	Amount      decimal.Decimal `json:"amount"`
	Count       int             `json:"count"`
	Percentage  float64         `json:"percentage"`
}

type DailyTotal struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

type ActivityKind string

const (
	ActivityReceivable ActivityKind = "receivable"
	ActivityPayment    ActivityKind = "payment"
)

// ActivityItem is one row of the recent activity feed.
type ActivityItem struct {
	Kind         ActivityKind    `json:"type"`
	ID           string          `json:"id"`
	Date         Date            `json:"date"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	Detail       string          `json:"detail,omitempty"`
}

type CustomerPerformance struct {
	CustomerSummary
	CollectionRate float64 `json:"collectionRate"`
}

type CityPerformance struct {
	CitySummary
	CollectionRate float64 `json:"collectionRate"`
}

// Report is the reports page payload.
type Report struct {
	Range         DateRange             `json:"range"`
	Totals        Totals                `json:"totals"`
	MonthlyTrend  []MonthPoint          `json:"monthlyTrend"`
	PaymentTypes  []PaymentTypeShare    `json:"paymentTypes"`
	DailyPayments []DailyTotal          `json:"dailyPayments"`
	Customers     []CustomerPerformance `json:"customers"`
	Cities        []CityPerformance     `json:"cities"`
}

// Dashboard is the landing page payload.
type Dashboard struct {
	Totals         Totals         `json:"totals"`
	Cities         []CitySummary  `json:"cities"`
	RecentActivity []ActivityItem `json:"recentActivity"`
}

func ComputeTotals(receivables []Receivable, payments []Payment) Totals {
	t := Totals{
		TotalReceivables: decimal.Zero,
		TotalPaid:        decimal.Zero,
		ReceivableCount:  len(receivables),
		PaymentCount:     len(payments),
	}
	names := make(map[string]struct{})
	for _, r := range receivables {
		t.TotalReceivables = t.TotalReceivables.Add(r.Amount)
		names[r.CustomerName] = struct{}{}
	}
	for _, p := range payments {
		t.TotalPaid = t.TotalPaid.Add(p.PaymentAmount)
	}
	t.OutstandingBalance = t.TotalReceivables.Sub(t.TotalPaid)
	t.CollectionRate = CollectionRate(t.TotalPaid, t.TotalReceivables)
	t.CustomerCount = len(names)
	return t
}

// MonthlyTrend buckets receivables by date and payments by payment date into
// calendar months and returns the latest limit months in ascending order.
// limit <= 0 returns every month.
func MonthlyTrend(receivables []Receivable, payments []Payment, limit int) []MonthPoint {
	buckets := make(map[string]*MonthPoint)
	bucket := func(key string) *MonthPoint {
		mp, ok := buckets[key]
		if !ok {
			mp = &MonthPoint{Month: key, Receivables: decimal.Zero, Payments: decimal.Zero}
			buckets[key] = mp
		}
		return mp
	}
	for _, r := range receivables {
		if r.Date.IsZero() {
			continue
		}
		mp := bucket(r.Date.MonthKey())
		mp.Receivables = mp.Receivables.Add(r.Amount)
	}
	for _, p := range payments {
		if p.PaymentDate.IsZero() {
			continue
		}
		mp := bucket(p.PaymentDate.MonthKey())
		mp.Payments = mp.Payments.Add(p.PaymentAmount)
	}

	out := make([]MonthPoint, 0, len(buckets))
	for _, mp := range buckets {
		mp.Outstanding = mp.Receivables.Sub(mp.Payments)
		out = append(out, *mp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// PaymentTypeBreakdown sums payments per type, largest first. Percentage is
// the share of all payments, not just the returned rows.
func PaymentTypeBreakdown(payments []Payment, limit int) []PaymentTypeShare {
	total := decimal.Zero
	index := make(map[string]int)
	var out []PaymentTypeShare
	for _, p := range payments {
		label := p.PaymentType
		if isBlank(label) {
			label = UnknownPaymentType
		}
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, PaymentTypeShare{PaymentType: label, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(p.PaymentAmount)
		out[i].Count++
		total = total.Add(p.PaymentAmount)
	}
	for i := range out {
		out[i].Percentage = CollectionRate(out[i].Amount, total)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.GreaterThan(out[j].Amount) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []PaymentTypeShare{}
	}
	return out
}

// DailyPayments sums payments per payment date, most recent first.
func DailyPayments(payments []Payment, limit int) []DailyTotal {
	index := make(map[Date]int)
	out := []DailyTotal{}
	for _, p := range payments {
		if p.PaymentDate.IsZero() {
			continue
		}
		i, ok := index[p.PaymentDate]
		if !ok {
			i = len(out)
			index[p.PaymentDate] = i
			out = append(out, DailyTotal{Date: p.PaymentDate, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(p.PaymentAmount)
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RecentActivity merges receivables and payments into one feed, newest first.
// Payments are attributed to the customer of their receivable.
func RecentActivity(receivables []Receivable, payments []Payment, limit int) []ActivityItem {
	customerOf := make(map[string]string, len(receivables))
	out := make([]ActivityItem, 0, len(receivables)+len(payments))
	for _, r := range receivables {
		customerOf[r.ID] = r.CustomerName
		out = append(out, ActivityItem{
			Kind:         ActivityReceivable,
			ID:           r.ID,
			Date:         r.Date,
			CustomerName: r.CustomerName,
			Amount:       r.Amount,
			Detail:       r.City,
		})
	}
	for _, p := range payments {
		out = append(out, ActivityItem{
			Kind:         ActivityPayment,
			ID:           p.ID,
			Date:         p.PaymentDate,
			CustomerName: customerOf[p.ReceivableID],
			Amount:       p.PaymentAmount,
			Detail:       p.PaymentType,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CustomerNames returns the sorted distinct non-empty customer names.
func CustomerNames(receivables []Receivable) []string {
	return distinct(receivables, func(r Receivable) string { return r.CustomerName })
}

// CityNames returns the sorted distinct non-empty cities.
func CityNames(receivables []Receivable) []string {
	return distinct(receivables, func(r Receivable) string { return r.City })
}

// PaymentTypes returns the suggested payment types followed by any other
// type seen in payments, sorted.
func PaymentTypes(payments []Payment) []string {
	seen := make(map[string]struct{}, len(PaymentTypeSuggestions))
	out := make([]string, 0, len(PaymentTypeSuggestions))
	for _, s := range PaymentTypeSuggestions {
		seen[s] = struct{}{}
		out = append(out, s)
	}
	var extra []string
	for _, p := range payments {
		if isBlank(p.PaymentType) {
			continue
		}
		if _, ok := seen[p.PaymentType]; ok {
			continue
		}
		seen[p.PaymentType] = struct{}{}
		extra = append(extra, p.PaymentType)
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func distinct(receivables []Receivable, field func(Receivable) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range receivables {
		v := field(r)
		if isBlank(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// CustomerPerformanceRows ranks customers by total receivables.
func CustomerPerformanceRows(receivables []Receivable, payments []Payment) []CustomerPerformance {
	summaries := SummarizeAllCustomers(receivables, payments)
	out := make([]CustomerPerformance, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, CustomerPerformance{
			CustomerSummary: s,
			CollectionRate:  CollectionRate(s.TotalPaid, s.TotalReceivables),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalReceivables.GreaterThan(out[j].TotalReceivables)
	})
	return out
}

// CityPerformanceRows ranks cities by total receivables.
func CityPerformanceRows(receivables []Receivable, payments []Payment) []CityPerformance {
	summaries := SummarizeAllCities(receivables, payments)
	out := make([]CityPerformance, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, CityPerformance{
			CitySummary:    s,
			CollectionRate: CollectionRate(s.TotalPaid, s.TotalReceivables),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalReceivables.GreaterThan(out[j].TotalReceivables)
	})
	return out
}

// BuildReport scopes the inputs with f and computes every reports section.
func BuildReport(f ReportFilter, receivables []Receivable, payments []Payment) Report {
	rs, ps := f.Apply(receivables, payments)
	return Report{
		Range:         f.Range,
		Totals:        ComputeTotals(rs, ps),
		MonthlyTrend:  MonthlyTrend(rs, ps, TrendMonths),
		PaymentTypes:  PaymentTypeBreakdown(ps, TopPaymentTypes),
		DailyPayments: DailyPayments(ps, RecentPaymentDays),
		Customers:     CustomerPerformanceRows(rs, ps),
		Cities:        CityPerformanceRows(rs, ps),
	}
}

func BuildDashboard(receivables []Receivable, payments []Payment) Dashboard {
	return Dashboard{
		Totals:         ComputeTotals(receivables, payments),
		Cities:         SummarizeAllCities(receivables, payments),
		RecentActivity: RecentActivity(receivables, payments, RecentActivityRows),
	}
}
