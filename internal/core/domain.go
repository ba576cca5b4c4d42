package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

const (
	maxNameLength = 255
	maxTextLength = 1000

	// AmountScale is the most fractional digits an amount may carry.
	AmountScale = 8
)

// MaxAmount is the exclusive upper bound for a single amount.
var MaxAmount = decimal.New(1, 15)

type (
	// Date is a calendar date without a time component.
	Date struct {
		time.Time
	}

	Receivable struct {
		ID           string          `json:"id"`
		CustomerName string          `json:"customer_name"`
		Amount       decimal.Decimal `json:"amount"`
		Date         Date            `json:"date"`
		City         string          `json:"city"`
		Description  string          `json:"description,omitempty"`
		CreatedAt    time.Time       `json:"created_at"`
		UpdatedAt    time.Time       `json:"updated_at"`
	}

	Payment struct {
		ID            string          `json:"id"`
		ReceivableID  string          `json:"receivable_id"`
		PaymentAmount decimal.Decimal `json:"payment_amount"`
		PaymentDate   Date            `json:"payment_date"`
		PaymentType   string          `json:"payment_type"`
		Notes         string          `json:"notes,omitempty"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}
)

// PaymentTypeSuggestions are offered to clients; any other label is accepted.
var PaymentTypeSuggestions = []string{"Cash", "Bank Transfer", "KBZPay", "WavePay", "Cheque"}

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrEmptyCustomer     = errors.New("empty customer name")
	ErrEmptyCity         = errors.New("empty city")
	ErrEmptyReceivableID = errors.New("empty receivable id")
	ErrEmptyPaymentType  = errors.New("empty payment type")
	ErrTextTooLong       = errors.New("text too long")
)

func init() {
	// Amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts an ISO date, or an RFC 3339 timestamp whose date part is kept.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket of the date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// InRange reports whether d lies in [from, to]. A zero bound is open.
func (d Date) InRange(from, to Date) bool {
	if !from.IsZero() && d.Before(from.Time) {
		return false
	}
	if !to.IsZero() && d.After(to.Time) {
		return false
	}
	return true
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidateAmount accepts positive amounts below MaxAmount with at most
// AmountScale fractional digits.
func ValidateAmount(a decimal.Decimal) error {
	if !a.IsPositive() || !a.LessThan(MaxAmount) || !a.Equal(a.Truncate(AmountScale)) {
		return ErrInvalidAmount
	}
	return nil
}

func validateText(field, s string, max int) error {
	if len(s) > max {
		return fmt.Errorf("%w: %s (max %d characters)", ErrTextTooLong, field, max)
	}
	return nil
}

func (r Receivable) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		return ErrEmptyCustomer
	}
	if err := validateText("customer_name", r.CustomerName, maxNameLength); err != nil {
		return err
	}
	if strings.TrimSpace(r.City) == "" {
		return ErrEmptyCity
	}
	if err := validateText("city", r.City, maxNameLength); err != nil {
		return err
	}
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	return validateText("description", r.Description, maxTextLength)
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.ReceivableID) == "" {
		return ErrEmptyReceivableID
	}
	if err := p.PaymentDate.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(p.PaymentAmount); err != nil {
		return err
	}
	if strings.TrimSpace(p.PaymentType) == "" {
		return ErrEmptyPaymentType
	}
	if err := validateText("payment_type", p.PaymentType, maxNameLength); err != nil {
		return err
	}
	return validateText("notes", p.Notes, maxTextLength)
}

// Normalize trims free-text fields the way they are stored.
func (r Receivable) Normalize() Receivable {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.City = strings.TrimSpace(r.City)
	r.Description = strings.TrimSpace(r.Description)
	return r
}

func (p Payment) Normalize() Payment {
	p.ReceivableID = strings.TrimSpace(p.ReceivableID)
	p.PaymentType = strings.TrimSpace(p.PaymentType)
	p.Notes = strings.TrimSpace(p.Notes)
	return p
}
