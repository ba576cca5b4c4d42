// Package memory is an in-process ledger store, optionally seeded from a JSON
// file. Data does not survive a restart.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"receivables/internal/core"
	"receivables/internal/ledger"
)

type Store struct {
	mu          sync.RWMutex
	receivables map[string]core.Receivable
	payments    map[string]core.Payment
	now         func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		receivables: make(map[string]core.Receivable),
		payments:    make(map[string]core.Payment),
		now:         time.Now,
	}
}

// Seed is the on-disk seed format. Amounts may be numbers or strings; values
// that cannot be read as a number load as zero.
type Seed struct {
	Receivables []seedReceivable `json:"receivables"`
	Payments    []seedPayment    `json:"payments"`
}

type seedReceivable struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customer_name"`
	Amount       any       `json:"amount"`
	Date         core.Date `json:"date"`
	City         string    `json:"city"`
	Description  string    `json:"description"`
}

type seedPayment struct {
	ID            string    `json:"id"`
	ReceivableID  string    `json:"receivable_id"`
	PaymentAmount any       `json:"payment_amount"`
	PaymentDate   core.Date `json:"payment_date"`
	PaymentType   string    `json:"payment_type"`
	Notes         string    `json:"notes"`
}

// NewFromFile returns a store loaded from the JSON seed at path. An empty
// path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var seed Seed
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	s.Load(seed)
	return s, nil
}

// Load replaces the store contents with seed. Payments whose receivable is
// absent are dropped.
func (s *Store) Load(seed Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	s.receivables = make(map[string]core.Receivable, len(seed.Receivables))
	s.payments = make(map[string]core.Payment, len(seed.Payments))
	for _, r := range seed.Receivables {
		if r.ID == "" {
			continue
		}
		s.receivables[r.ID] = core.Receivable{
			ID:           r.ID,
			CustomerName: r.CustomerName,
			Amount:       core.CoerceAmount(r.Amount),
			Date:         r.Date,
			City:         r.City,
			Description:  r.Description,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	for _, p := range seed.Payments {
		if _, ok := s.receivables[p.ReceivableID]; !ok || p.ID == "" {
			continue
		}
		s.payments[p.ID] = core.Payment{
			ID:            p.ID,
			ReceivableID:  p.ReceivableID,
			PaymentAmount: core.CoerceAmount(p.PaymentAmount),
			PaymentDate:   p.PaymentDate,
			PaymentType:   p.PaymentType,
			Notes:         p.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) ListReceivables(_ context.Context, q ledger.ReceivableQuery) ([]core.Receivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Receivable, 0, len(s.receivables))
	for _, r := range s.receivables {
		if q.Customer != "" && r.CustomerName != q.Customer {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].Date, out[i].CreatedAt, out[i].ID, out[j].Date, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

func (s *Store) GetReceivable(_ context.Context, id string) (core.Receivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receivables[id]
	if !ok {
		return core.Receivable{}, ledger.ErrNotFound
	}
	return r, nil
}

func (s *Store) CreateReceivable(_ context.Context, r core.Receivable) (core.Receivable, error) {
	if r.ID == "" {
		return core.Receivable{}, fmt.Errorf("create receivable: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receivables[r.ID]; ok {
		return core.Receivable{}, fmt.Errorf("receivable %s: %w", r.ID, ledger.ErrConflict)
	}
	now := s.now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	s.receivables[r.ID] = r
	return r, nil
}

func (s *Store) UpdateReceivable(_ context.Context, r core.Receivable) (core.Receivable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.receivables[r.ID]
	if !ok {
		return core.Receivable{}, ledger.ErrNotFound
	}
	r.CreatedAt = prev.CreatedAt
	r.UpdatedAt = s.now().UTC()
	s.receivables[r.ID] = r
	return r, nil
}

func (s *Store) DeleteReceivable(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receivables[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(s.receivables, id)
	for pid, p := range s.payments {
		if p.ReceivableID == id {
			delete(s.payments, pid)
		}
	}
	return nil
}

func (s *Store) ListPayments(context.Context) ([]core.Payment, error) {
	return s.listPayments(""), nil
}

func (s *Store) ListPaymentsForReceivable(_ context.Context, receivableID string) ([]core.Payment, error) {
	return s.listPayments(receivableID), nil
}

func (s *Store) listPayments(receivableID string) []core.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if receivableID != "" && p.ReceivableID != receivableID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].PaymentDate, out[i].CreatedAt, out[i].ID, out[j].PaymentDate, out[j].CreatedAt, out[j].ID)
	})
	return out
}

func (s *Store) GetPayment(_ context.Context, id string) (core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return core.Payment{}, ledger.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if p.ID == "" {
		return core.Payment{}, fmt.Errorf("create payment: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receivables[p.ReceivableID]; !ok {
		return core.Payment{}, fmt.Errorf("receivable %s: %w", p.ReceivableID, ledger.ErrNotFound)
	}
	if _, ok := s.payments[p.ID]; ok {
		return core.Payment{}, fmt.Errorf("payment %s: %w", p.ID, ledger.ErrConflict)
	}
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePayment(_ context.Context, p core.Payment) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.payments[p.ID]
	if !ok {
		return core.Payment{}, ledger.ErrNotFound
	}
	if _, ok := s.receivables[p.ReceivableID]; !ok {
		return core.Payment{}, fmt.Errorf("receivable %s: %w", p.ReceivableID, ledger.ErrNotFound)
	}
	p.CreatedAt = prev.CreatedAt
	p.UpdatedAt = s.now().UTC()
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(s.payments, id)
	return nil
}

// newer orders by date, then creation time, then id, all descending.
func newer(da core.Date, ca time.Time, ida string, db core.Date, cb time.Time, idb string) bool {
	if !da.Equal(db.Time) {
		return da.After(db.Time)
	}
	if !ca.Equal(cb) {
		return ca.After(cb)
	}
	return ida > idb
}
