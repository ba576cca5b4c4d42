// Package ledger defines the storage ports for receivables and payments.
package ledger

import (
	"context"
	"errors"

	"receivables/internal/core"
)

var (
	// ErrNotFound is returned when a record with the requested id does not exist.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// ReceivableQuery narrows ReceivableStore.List. Customer matches exactly.
type ReceivableQuery struct {
	Customer string
}

// Ports for storage adapters. List results are ordered newest first.
type (
	ReceivableStore interface {
		ListReceivables(ctx context.Context, q ReceivableQuery) ([]core.Receivable, error)
		GetReceivable(ctx context.Context, id string) (core.Receivable, error)
		CreateReceivable(ctx context.Context, r core.Receivable) (core.Receivable, error)
		UpdateReceivable(ctx context.Context, r core.Receivable) (core.Receivable, error)
		// DeleteReceivable removes the receivable and every payment recorded against it.
		DeleteReceivable(ctx context.Context, id string) error
	}

	PaymentStore interface {
		ListPayments(ctx context.Context) ([]core.Payment, error)
		ListPaymentsForReceivable(ctx context.Context, receivableID string) ([]core.Payment, error)
		GetPayment(ctx context.Context, id string) (core.Payment, error)
		CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
		UpdatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
		DeletePayment(ctx context.Context, id string) error
	}

	// Store is what a backend provides.
	Store interface {
		ReceivableStore
		PaymentStore
		Ping(ctx context.Context) error
		Close() error
	}
)
