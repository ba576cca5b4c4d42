package core

import (
	"errors"
	"strings"
	"time"
)

// ReceivableFilter narrows the receivables list. Zero fields match everything.
type ReceivableFilter struct {
	Customer string // case-insensitive substring of the customer name
	City     string // exact
	DateFrom Date
	DateTo   Date
	Status   Status // computed against the payments passed to Apply
}

func (f ReceivableFilter) IsZero() bool {
	return f == ReceivableFilter{}
}

// Apply returns the receivables matching f, with their balances, preserving
// input order.
func (f ReceivableFilter) Apply(receivables []Receivable, payments []Payment) []ReceivableBalance {
	needle := strings.ToLower(strings.TrimSpace(f.Customer))
	out := make([]ReceivableBalance, 0, len(receivables))
	for _, rb := range Balances(receivables, payments) {
		if needle != "" && !strings.Contains(strings.ToLower(rb.CustomerName), needle) {
			continue
		}
		if f.City != "" && rb.City != f.City {
			continue
		}
		if !rb.Date.InRange(f.DateFrom, f.DateTo) {
			continue
		}
		if f.Status != "" && rb.Status != f.Status {
			continue
		}
		out = append(out, rb)
	}
	return out
}

// PaymentFilter narrows the payments list.
type PaymentFilter struct {
	ReceivableID string
	Customer     string // case-insensitive substring of the owning receivable's customer
	PaymentType  string // exact
	DateFrom     Date
	DateTo       Date
}

func (f PaymentFilter) IsZero() bool {
	return f == PaymentFilter{}
}

// Apply returns the payments matching f. receivables resolves the customer
// of each payment; a payment whose receivable is unknown never matches a
// customer filter.
func (f PaymentFilter) Apply(payments []Payment, receivables []Receivable) []Payment {
	needle := strings.ToLower(strings.TrimSpace(f.Customer))
	var customerOf map[string]string
	if needle != "" {
		customerOf = make(map[string]string, len(receivables))
		for _, r := range receivables {
			customerOf[r.ID] = r.CustomerName
		}
	}
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if f.ReceivableID != "" && p.ReceivableID != f.ReceivableID {
			continue
		}
		if needle != "" {
			name, ok := customerOf[p.ReceivableID]
			if !ok || !strings.Contains(strings.ToLower(name), needle) {
				continue
			}
		}
		if f.PaymentType != "" && p.PaymentType != f.PaymentType {
			continue
		}
		if !p.PaymentDate.InRange(f.DateFrom, f.DateTo) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DateRange is an inclusive calendar range.
type DateRange struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// Active reports whether both ends are set; a half-open range is ignored.
func (r DateRange) Active() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

func (r DateRange) contains(d Date) bool {
	if d.IsZero() {
		return false
	}
	return d.InRange(r.Start, r.End)
}

// ReportFilter scopes the reports view.
type ReportFilter struct {
	Range    DateRange
	Customer string // exact
	City     string // exact
}

// Apply scopes receivables by date, customer and city. Payments are scoped
// to every receivable matching customer and city regardless of its date, and
// then by their own payment date.
func (f ReportFilter) Apply(receivables []Receivable, payments []Payment) ([]Receivable, []Payment) {
	matchesParty := func(r Receivable) bool {
		if f.Customer != "" && r.CustomerName != f.Customer {
			return false
		}
		if f.City != "" && r.City != f.City {
			return false
		}
		return true
	}

	rs := make([]Receivable, 0, len(receivables))
	for _, r := range receivables {
		if f.Range.Active() && !f.Range.contains(r.Date) {
			continue
		}
		if matchesParty(r) {
			rs = append(rs, r)
		}
	}

	var ids map[string]struct{}
	if f.Customer != "" || f.City != "" {
		ids = make(map[string]struct{})
		for _, r := range receivables {
			if matchesParty(r) {
				ids[r.ID] = struct{}{}
			}
		}
	}

	ps := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if ids != nil {
			if _, ok := ids[p.ReceivableID]; !ok {
				continue
			}
		}
		if f.Range.Active() && !f.Range.contains(p.PaymentDate) {
			continue
		}
		ps = append(ps, p)
	}
	return rs, ps
}

// Quick range periods offered by the reports filter.
const (
	PeriodToday   = "today"
	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
)

var ErrUnknownPeriod = errors.New("unknown period")

// QuickRange returns the range ending today for a named period.
func QuickRange(period string, today time.Time) (DateRange, error) {
	end := DateOf(today)
	var start Date
	switch strings.ToLower(strings.TrimSpace(period)) {
	case PeriodToday:
		start = end
	case PeriodWeek:
		start = DateOf(end.AddDate(0, 0, -7))
	case PeriodMonth:
		start = NewDate(end.Year(), int(end.Month()), 1)
	case PeriodQuarter:
		q := (int(end.Month()) - 1) / 3
		start = NewDate(end.Year(), q*3+1, 1)
	case PeriodYear:
		start = NewDate(end.Year(), 1, 1)
	default:
		return DateRange{}, ErrUnknownPeriod
	}
	return DateRange{Start: start, End: end}, nil
}
