package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"receivables/internal/amqp"
	"receivables/internal/core"
	"receivables/internal/ledger"
	"receivables/internal/log"
	"receivables/internal/metrics"
)

var (
	ErrReceivableNotFound = fmt.Errorf("receivable %w", ledger.ErrNotFound)
	ErrPaymentNotFound    = fmt.Errorf("payment %w", ledger.ErrNotFound)
)

// ValidationError wraps a domain validation failure so callers can tell bad
// input apart from store failures.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// EventPublisher announces ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev amqp.LedgerEvent) error
}

// LedgerService validates and stores receivables and payments, then announces
// each change to the event publisher when one is configured.
type LedgerService struct {
	store     ledger.Store
	publisher EventPublisher
	metrics   *metrics.Metrics
	newID     func() string
}

type LedgerOption func(*LedgerService)

func WithPublisher(p EventPublisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) LedgerOption {
	return func(s *LedgerService) { s.metrics = m }
}

// WithIDGenerator overrides UUID generation.
func WithIDGenerator(fn func() string) LedgerOption {
	return func(s *LedgerService) { s.newID = fn }
}

func NewLedgerService(store ledger.Store, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{store: store, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListReceivables returns the receivables matching f with their balances,
// newest first.
func (s *LedgerService) ListReceivables(ctx context.Context, f core.ReceivableFilter) ([]core.ReceivableBalance, error) {
	var (
		receivables []core.Receivable
		payments    []core.Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		receivables, err = s.store.ListReceivables(gctx, ledger.ReceivableQuery{})
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.store.ListPayments(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return f.Apply(receivables, payments), nil
}

func (s *LedgerService) GetReceivable(ctx context.Context, id string) (core.ReceivableBalance, error) {
	r, err := s.store.GetReceivable(ctx, id)
	if err != nil {
		return core.ReceivableBalance{}, s.notFound(err, ErrReceivableNotFound)
	}
	payments, err := s.store.ListPaymentsForReceivable(ctx, id)
	if err != nil {
		return core.ReceivableBalance{}, fmt.Errorf("list payments for %s: %w", id, err)
	}
	return core.ReceivableBalance{Receivable: r, Balance: core.BalanceForReceivable(r, payments)}, nil
}

func (s *LedgerService) CreateReceivable(ctx context.Context, r core.Receivable) (core.Receivable, error) {
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return core.Receivable{}, &ValidationError{Err: err}
	}
	r.ID = s.newID()
	created, err := s.store.CreateReceivable(ctx, r)
	if err != nil {
		return core.Receivable{}, fmt.Errorf("create receivable: %w", err)
	}
	s.announce(ctx, amqp.EntityReceivable, created.ID, amqp.OpUpsert)
	slog.InfoContext(ctx, "Receivable created",
		log.FieldReceivableID, created.ID,
		log.FieldCustomer, created.CustomerName,
		log.FieldAmount, created.Amount.String())
	return created, nil
}

// UpdateReceivable replaces the receivable with id by r.
func (s *LedgerService) UpdateReceivable(ctx context.Context, id string, r core.Receivable) (core.Receivable, error) {
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return core.Receivable{}, &ValidationError{Err: err}
	}
	r.ID = id
	updated, err := s.store.UpdateReceivable(ctx, r)
	if err != nil {
		return core.Receivable{}, s.notFound(err, ErrReceivableNotFound)
	}
	s.announce(ctx, amqp.EntityReceivable, id, amqp.OpUpsert)
	return updated, nil
}

// DeleteReceivable removes the receivable together with its payments.
func (s *LedgerService) DeleteReceivable(ctx context.Context, id string) error {
	if err := s.store.DeleteReceivable(ctx, id); err != nil {
		return s.notFound(err, ErrReceivableNotFound)
	}
	s.announce(ctx, amqp.EntityReceivable, id, amqp.OpDelete)
	slog.InfoContext(ctx, "Receivable deleted", log.FieldReceivableID, id)
	return nil
}

// ListPayments returns the payments matching f, newest first.
func (s *LedgerService) ListPayments(ctx context.Context, f core.PaymentFilter) ([]core.Payment, error) {
	var (
		receivables []core.Receivable
		payments    []core.Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		payments, err = s.store.ListPayments(gctx)
		return err
	})
	if f.Customer != "" {
		g.Go(func() error {
			var err error
			receivables, err = s.store.ListReceivables(gctx, ledger.ReceivableQuery{})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return f.Apply(payments, receivables), nil
}

func (s *LedgerService) ListPaymentsForReceivable(ctx context.Context, receivableID string) ([]core.Payment, error) {
	if _, err := s.store.GetReceivable(ctx, receivableID); err != nil {
		return nil, s.notFound(err, ErrReceivableNotFound)
	}
	payments, err := s.store.ListPaymentsForReceivable(ctx, receivableID)
	if err != nil {
		return nil, fmt.Errorf("list payments for %s: %w", receivableID, err)
	}
	return payments, nil
}

func (s *LedgerService) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return core.Payment{}, s.notFound(err, ErrPaymentNotFound)
	}
	return p, nil
}

// CreatePayment records p after checking that its receivable exists.
func (s *LedgerService) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Payment{}, &ValidationError{Err: err}
	}
	if _, err := s.store.GetReceivable(ctx, p.ReceivableID); err != nil {
		return core.Payment{}, s.notFound(err, ErrReceivableNotFound)
	}
	p.ID = s.newID()
	created, err := s.store.CreatePayment(ctx, p)
	if err != nil {
		return core.Payment{}, s.notFound(err, ErrReceivableNotFound)
	}
	s.announce(ctx, amqp.EntityPayment, created.ID, amqp.OpUpsert)
	slog.InfoContext(ctx, "Payment recorded",
		log.FieldPaymentID, created.ID,
		log.FieldReceivableID, created.ReceivableID,
		log.FieldAmount, created.PaymentAmount.String(),
		log.FieldPaymentType, created.PaymentType)
	return created, nil
}

func (s *LedgerService) UpdatePayment(ctx context.Context, id string, p core.Payment) (core.Payment, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Payment{}, &ValidationError{Err: err}
	}
	if _, err := s.store.GetPayment(ctx, id); err != nil {
		return core.Payment{}, s.notFound(err, ErrPaymentNotFound)
	}
	if _, err := s.store.GetReceivable(ctx, p.ReceivableID); err != nil {
		return core.Payment{}, s.notFound(err, ErrReceivableNotFound)
	}
	p.ID = id
	updated, err := s.store.UpdatePayment(ctx, p)
	if err != nil {
		return core.Payment{}, s.notFound(err, ErrPaymentNotFound)
	}
	s.announce(ctx, amqp.EntityPayment, id, amqp.OpUpsert)
	return updated, nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, id string) error {
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return s.notFound(err, ErrPaymentNotFound)
	}
	s.announce(ctx, amqp.EntityPayment, id, amqp.OpDelete)
	return nil
}

// notFound replaces a bare store ErrNotFound with the entity-specific error.
func (s *LedgerService) notFound(err, target error) error {
	if errors.Is(err, ledger.ErrNotFound) {
		return target
	}
	return err
}

// announce records the mutation and publishes it. A publish failure is
// logged; the write has already succeeded.
func (s *LedgerService) announce(ctx context.Context, entity, id, op string) {
	s.metrics.RecordMutation(entity, op)
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(entity, id, op))
	s.metrics.RecordEventPublish(err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEntity, entity,
			"id", id,
			log.FieldOperation, op,
			log.FieldError, err)
	}
}

func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
