package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"receivables/internal/core"
	"receivables/internal/ledger"
)

var ErrCustomerNotFound = errors.New("customer not found")

// Snapshot is one consistent read of the whole ledger.
type Snapshot struct {
	Receivables []core.Receivable
	Payments    []core.Payment
}

type CustomerDetail struct {
	core.CustomerSummary
	Receivables []core.ReceivableBalance `json:"receivables"`
}

type FilterOptions struct {
	Customers    []string `json:"customers"`
	Cities       []string `json:"cities"`
	PaymentTypes []string `json:"paymentTypes"`
}

// ReportService feeds store snapshots to the aggregator. Nothing is cached;
// every call reads the store.
type ReportService struct {
	receivables ledger.ReceivableStore
	payments    ledger.PaymentStore
	now         func() time.Time
}

func NewReportService(receivables ledger.ReceivableStore, payments ledger.PaymentStore) *ReportService {
	return &ReportService{receivables: receivables, payments: payments, now: time.Now}
}

// Snapshot loads receivables and payments concurrently.
func (s *ReportService) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.load(ctx, ledger.ReceivableQuery{})
}

// load reads the receivables matching q and every payment.
func (s *ReportService) load(ctx context.Context, q ledger.ReceivableQuery) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rs, err := s.receivables.ListReceivables(gctx, q)
		if err != nil {
			return fmt.Errorf("list receivables: %w", err)
		}
		snap.Receivables = rs
		return nil
	})
	g.Go(func() error {
		ps, err := s.payments.ListPayments(gctx)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		snap.Payments = ps
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *ReportService) Customers(ctx context.Context) ([]core.CustomerSummary, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return core.SummarizeAllCustomers(snap.Receivables, snap.Payments), nil
}

// Customer returns the summary of one customer name, matched exactly, with
// its receivables. A name with no receivables is ErrCustomerNotFound.
func (s *ReportService) Customer(ctx context.Context, name string) (CustomerDetail, error) {
	snap, err := s.load(ctx, ledger.ReceivableQuery{Customer: name})
	if err != nil {
		return CustomerDetail{}, err
	}
	summary := core.SummarizeCustomer(name, snap.Receivables, snap.Payments)
	if summary.ReceivableCount == 0 {
		return CustomerDetail{}, ErrCustomerNotFound
	}
	return CustomerDetail{
		CustomerSummary: summary,
		Receivables:     core.Balances(snap.Receivables, snap.Payments),
	}, nil
}

func (s *ReportService) Cities(ctx context.Context) ([]core.CitySummary, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return core.SummarizeAllCities(snap.Receivables, snap.Payments), nil
}

func (s *ReportService) Dashboard(ctx context.Context) (core.Dashboard, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.Dashboard{}, err
	}
	return core.BuildDashboard(snap.Receivables, snap.Payments), nil
}

// ReportQuery is the reports request. A non-empty Period takes precedence
// over Start and End.
type ReportQuery struct {
	Start    core.Date
	End      core.Date
	Period   string
	Customer string
	City     string
}

func (q ReportQuery) filter(today time.Time) (core.ReportFilter, error) {
	f := core.ReportFilter{
		Range:    core.DateRange{Start: q.Start, End: q.End},
		Customer: q.Customer,
		City:     q.City,
	}
	if q.Period != "" {
		r, err := core.QuickRange(q.Period, today)
		if err != nil {
			return core.ReportFilter{}, &ValidationError{Err: fmt.Errorf("%w: %q", err, q.Period)}
		}
		f.Range = r
	}
	return f, nil
}

func (s *ReportService) Report(ctx context.Context, q ReportQuery) (core.Report, error) {
	f, err := q.filter(s.now())
	if err != nil {
		return core.Report{}, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.Report{}, err
	}
	return core.BuildReport(f, snap.Receivables, snap.Payments), nil
}

func (s *ReportService) FilterOptions(ctx context.Context) (FilterOptions, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return FilterOptions{}, err
	}
	return FilterOptions{
		Customers:    core.CustomerNames(snap.Receivables),
		Cities:       core.CityNames(snap.Receivables),
		PaymentTypes: core.PaymentTypes(snap.Payments),
	}, nil
}
