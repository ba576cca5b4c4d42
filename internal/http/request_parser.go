// Package http provides the JSON API server and its handlers.
//
// This file implements request body decoding and validation and the query
// string filters shared by the list and report endpoints.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"receivables/internal/core"
	"receivables/internal/services"
)

const maxBodyBytes = 1 << 20

// requestError is a client mistake with the message to send back.
type requestError struct {
	message string
	details string
}

func (e *requestError) Error() string {
	if e.details == "" {
		return e.message
	}
	return e.message + ": " + e.details
}

func badRequest(message string) error {
	return &requestError{message: message}
}

var validate = newValidator()

// newValidator reports fields by their JSON name so messages match the
// request body the client sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ReceivableRequest is the body of POST and PUT /api/receivables. Amount is
// decoded untyped so a string amount can be told apart from a missing one.
type ReceivableRequest struct {
	Date         string `json:"date" validate:"required"`
	CustomerName string `json:"customer_name" validate:"required"`
	Amount       any    `json:"amount" validate:"required"`
	City         string `json:"city" validate:"required"`
	Description  string `json:"description"`
}

type PaymentRequest struct {
	ReceivableID  string `json:"receivable_id" validate:"required"`
	PaymentDate   string `json:"payment_date" validate:"required"`
	PaymentAmount any    `json:"payment_amount" validate:"required"`
	PaymentType   string `json:"payment_type" validate:"required"`
	Notes         string `json:"notes"`
}

func (req *ReceivableRequest) trim() {
	req.Date = strings.TrimSpace(req.Date)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.City = strings.TrimSpace(req.City)
	req.Description = strings.TrimSpace(req.Description)
}

func (req *PaymentRequest) trim() {
	req.ReceivableID = strings.TrimSpace(req.ReceivableID)
	req.PaymentDate = strings.TrimSpace(req.PaymentDate)
	req.PaymentType = strings.TrimSpace(req.PaymentType)
	req.Notes = strings.TrimSpace(req.Notes)
}

// Receivable converts a validated request into the domain record.
func (req ReceivableRequest) Receivable() (core.Receivable, error) {
	amount, ok := positiveAmount(req.Amount)
	if !ok {
		return core.Receivable{}, badRequest("Amount must be a positive number")
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Receivable{}, &requestError{message: "Invalid date", details: req.Date}
	}
	return core.Receivable{
		CustomerName: req.CustomerName,
		Amount:       amount,
		Date:         date,
		City:         req.City,
		Description:  req.Description,
	}, nil
}

func (req PaymentRequest) Payment() (core.Payment, error) {
	amount, ok := positiveAmount(req.PaymentAmount)
	if !ok {
		return core.Payment{}, badRequest("Payment amount must be a positive number")
	}
	date, err := core.ParseDate(req.PaymentDate)
	if err != nil {
		return core.Payment{}, &requestError{message: "Invalid payment_date", details: req.PaymentDate}
	}
	return core.Payment{
		ReceivableID:  req.ReceivableID,
		PaymentAmount: amount,
		PaymentDate:   date,
		PaymentType:   req.PaymentType,
		Notes:         req.Notes,
	}, nil
}

// positiveAmount accepts only JSON numbers within core.ValidateAmount's
// bounds. Numbers are decoded as json.Number so no precision is lost on the
// way to decimal.
func positiveAmount(v any) (decimal.Decimal, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || core.ValidateAmount(d) != nil {
		return decimal.Zero, false
	}
	return d, true
}

// DecodeReceivable reads and validates a receivable body.
func DecodeReceivable(r *http.Request) (core.Receivable, error) {
	var req ReceivableRequest
	if err := decodeJSON(r, &req); err != nil {
		return core.Receivable{}, err
	}
	req.trim()
	if err := checkRequired(&req); err != nil {
		return core.Receivable{}, err
	}
	return req.Receivable()
}

func DecodePayment(r *http.Request) (core.Payment, error) {
	var req PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		return core.Payment{}, err
	}
	req.trim()
	if err := checkRequired(&req); err != nil {
		return core.Payment{}, err
	}
	return req.Payment()
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &requestError{message: fmt.Sprintf("Invalid value for %s", typeErr.Field), details: err.Error()}
		}
		return &requestError{message: "Invalid JSON body", details: err.Error()}
	}
	return nil
}

// checkRequired turns validator failures into the missing fields message,
// listing JSON names in body order.
func checkRequired(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return badRequest("Missing required fields: " + strings.Join(missing, ", "))
}

// ParseReceivableFilter reads customer, city, date_from, date_to and status.
func ParseReceivableFilter(q url.Values) (core.ReceivableFilter, error) {
	f := core.ReceivableFilter{
		Customer: strings.TrimSpace(q.Get("customer")),
		City:     strings.TrimSpace(q.Get("city")),
	}
	var err error
	if f.DateFrom, err = queryDate(q, "date_from"); err != nil {
		return core.ReceivableFilter{}, err
	}
	if f.DateTo, err = queryDate(q, "date_to"); err != nil {
		return core.ReceivableFilter{}, err
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		status, ok := core.ParseStatus(v)
		if !ok {
			return core.ReceivableFilter{}, &requestError{message: "Invalid status", details: v}
		}
		f.Status = status
	}
	return f, nil
}

func ParsePaymentFilter(q url.Values) (core.PaymentFilter, error) {
	f := core.PaymentFilter{
		ReceivableID: strings.TrimSpace(q.Get("receivable_id")),
		Customer:     strings.TrimSpace(q.Get("customer")),
		PaymentType:  strings.TrimSpace(q.Get("payment_type")),
	}
	var err error
	if f.DateFrom, err = queryDate(q, "date_from"); err != nil {
		return core.PaymentFilter{}, err
	}
	if f.DateTo, err = queryDate(q, "date_to"); err != nil {
		return core.PaymentFilter{}, err
	}
	return f, nil
}

// ParseReportQuery reads start_date, end_date, period, customer and city.
// The period name is checked by the report service.
func ParseReportQuery(q url.Values) (services.ReportQuery, error) {
	rq := services.ReportQuery{
		Period:   strings.TrimSpace(q.Get("period")),
		Customer: strings.TrimSpace(q.Get("customer")),
		City:     strings.TrimSpace(q.Get("city")),
	}
	var err error
	if rq.Start, err = queryDate(q, "start_date"); err != nil {
		return services.ReportQuery{}, err
	}
	if rq.End, err = queryDate(q, "end_date"); err != nil {
		return services.ReportQuery{}, err
	}
	return rq, nil
}

func queryDate(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, &requestError{message: "Invalid " + key, details: v}
	}
	return d, nil
}
