// Package storage is the SQLite ledger backend. The schema is managed by the
// embedded migrations in migrations/.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"receivables/internal/core"
	"receivables/internal/ledger"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool opens so every connection sees the schema.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// dsn enables foreign keys on every pooled connection so payment rows
// cascade with their receivable.
func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const receivableColumns = `id, customer_name, amount, date, city, description, created_at, updated_at`

func (r *SQLiteRepository) ListReceivables(ctx context.Context, q ledger.ReceivableQuery) ([]core.Receivable, error) {
	query := `SELECT ` + receivableColumns + ` FROM receivables`
	var args []any
	if q.Customer != "" {
		query += ` WHERE customer_name = ?`
		args = append(args, q.Customer)
	}
	query += ` ORDER BY date DESC, created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list receivables: %w", err)
	}
	defer rows.Close()

	out := []core.Receivable{}
	for rows.Next() {
		rec, err := scanReceivable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receivable: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receivables: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetReceivable(ctx context.Context, id string) (core.Receivable, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+receivableColumns+` FROM receivables WHERE id = ?`, id)
	rec, err := scanReceivable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Receivable{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Receivable{}, fmt.Errorf("get receivable %s: %w", id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) CreateReceivable(ctx context.Context, rec core.Receivable) (core.Receivable, error) {
	now := r.now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO receivables (`+receivableColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CustomerName, rec.Amount.String(), rec.Date.String(), rec.City, rec.Description,
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return core.Receivable{}, mapWriteError("create receivable", rec.ID, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) UpdateReceivable(ctx context.Context, rec core.Receivable) (core.Receivable, error) {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE receivables SET customer_name = ?, amount = ?, date = ?, city = ?, description = ?, updated_at = ? WHERE id = ?`,
		rec.CustomerName, rec.Amount.String(), rec.Date.String(), rec.City, rec.Description, now.Format(timeLayout), rec.ID)
	if err != nil {
		return core.Receivable{}, mapWriteError("update receivable", rec.ID, err)
	}
	if err := requireAffected(res); err != nil {
		return core.Receivable{}, err
	}
	return r.GetReceivable(ctx, rec.ID)
}

func (r *SQLiteRepository) DeleteReceivable(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM receivables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete receivable %s: %w", id, err)
	}
	return requireAffected(res)
}

const paymentColumns = `id, receivable_id, payment_amount, payment_date, payment_type, notes, created_at, updated_at`

func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	return r.listPayments(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY payment_date DESC, created_at DESC, id DESC`)
}

func (r *SQLiteRepository) ListPaymentsForReceivable(ctx context.Context, receivableID string) ([]core.Payment, error) {
	return r.listPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE receivable_id = ? ORDER BY payment_date DESC, created_at DESC, id DESC`,
		receivableID)
}

func (r *SQLiteRepository) listPayments(ctx context.Context, query string, args ...any) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	out := []core.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment %s: %w", id, err)
	}
	return p, nil
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := r.requireReceivable(ctx, p.ReceivableID); err != nil {
		return core.Payment{}, err
	}
	now := r.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ReceivableID, p.PaymentAmount.String(), p.PaymentDate.String(), p.PaymentType, p.Notes,
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return core.Payment{}, mapWriteError("create payment", p.ID, err)
	}
	return p, nil
}

func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := r.requireReceivable(ctx, p.ReceivableID); err != nil {
		return core.Payment{}, err
	}
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET receivable_id = ?, payment_amount = ?, payment_date = ?, payment_type = ?, notes = ?, updated_at = ? WHERE id = ?`,
		p.ReceivableID, p.PaymentAmount.String(), p.PaymentDate.String(), p.PaymentType, p.Notes, now.Format(timeLayout), p.ID)
	if err != nil {
		return core.Payment{}, mapWriteError("update payment", p.ID, err)
	}
	if err := requireAffected(res); err != nil {
		return core.Payment{}, err
	}
	return r.GetPayment(ctx, p.ID)
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) requireReceivable(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM receivables WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("receivable %s: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup receivable %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// Amounts are scanned untyped: rows written by other tools may hold REAL,
// INTEGER or malformed TEXT, all of which go through the lenient coercion.
func scanReceivable(s scanner) (core.Receivable, error) {
	var (
		rec              core.Receivable
		amount           any
		date             string
		created, updated string
	)
	if err := s.Scan(&rec.ID, &rec.CustomerName, &amount, &date, &rec.City, &rec.Description, &created, &updated); err != nil {
		return core.Receivable{}, err
	}
	rec.Amount = core.CoerceAmount(amount)
	rec.Date = parseStoredDate(date)
	rec.CreatedAt = parseStoredTime(created)
	rec.UpdatedAt = parseStoredTime(updated)
	return rec, nil
}

func scanPayment(s scanner) (core.Payment, error) {
	var (
		p                core.Payment
		amount           any
		date             string
		created, updated string
	)
	if err := s.Scan(&p.ID, &p.ReceivableID, &amount, &date, &p.PaymentType, &p.Notes, &created, &updated); err != nil {
		return core.Payment{}, err
	}
	p.PaymentAmount = core.CoerceAmount(amount)
	p.PaymentDate = parseStoredDate(date)
	p.CreatedAt = parseStoredTime(created)
	p.UpdatedAt = parseStoredTime(updated)
	return p, nil
}

func parseStoredDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}

func parseStoredTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func mapWriteError(op, id string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s %s: %w", op, id, ledger.ErrConflict)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s %s: %w", op, id, ledger.ErrNotFound)
	default:
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
}
