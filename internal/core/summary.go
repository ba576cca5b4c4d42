package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the payment state of a single receivable. It is always derived,
// never stored.
type Status string

const (
	StatusUnpaid  Status = "Unpaid"
	StatusPartial Status = "Partial"
	StatusPaid    Status = "Paid"
)

// ParseStatus matches a status label case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch {
	case strings.EqualFold(s, string(StatusUnpaid)):
		return StatusUnpaid, true
	case strings.EqualFold(s, string(StatusPartial)):
		return StatusPartial, true
	case strings.EqualFold(s, string(StatusPaid)):
		return StatusPaid, true
	}
	return "", false
}

// Balance is the per-receivable view: what was paid, what remains (unclamped)
// and the resulting status.
type Balance struct {
	Paid      decimal.Decimal `json:"paid_amount"`
	Remaining decimal.Decimal `json:"remaining_amount"`
	Status    Status          `json:"status"`
}

// ReceivableBalance pairs a receivable with its computed balance.
type ReceivableBalance struct {
	Receivable
	Balance
}

// CustomerSummary aggregates every receivable sharing a customer name.
type CustomerSummary struct {
	CustomerName       string          `json:"customer_name"`
	TotalReceivables   decimal.Decimal `json:"totalReceivables"`
	TotalPaid          decimal.Decimal `json:"totalPaid"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	Cities             []string        `json:"cities"`
	ReceivableCount    int             `json:"receivableCount"`
	PaymentCount       int             `json:"paymentCount"`
}

// CitySummary aggregates every receivable sharing a city.
type CitySummary struct {
	City               string          `json:"city"`
	TotalReceivables   decimal.Decimal `json:"totalReceivables"`
	TotalPaid          decimal.Decimal `json:"totalPaid"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	Customers          []string        `json:"customers"`
	ReceivableCount    int             `json:"receivableCount"`
	PaymentCount       int             `json:"paymentCount"`
}
