package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receivables/internal/core"
	"receivables/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// A second open must be a no-op migration.
	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestReceivableRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := core.Receivable{
		ID:           "r1",
		CustomerName: "Aung",
		Amount:       decimal.RequireFromString("100000.50"),
		Date:         core.NewDate(2025, 1, 10),
		City:         "Yangon",
		Description:  "rice",
	}
	_, err := repo.CreateReceivable(ctx, in)
	require.NoError(t, err)

	_, err = repo.CreateReceivable(ctx, in)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	got, err := repo.GetReceivable(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Aung", got.CustomerName)
	assert.True(t, got.Amount.Equal(in.Amount), "amount %s", got.Amount)
	assert.Equal(t, "2025-01-10", got.Date.String())
	assert.False(t, got.CreatedAt.IsZero())

	got.City = "Bago"
	updated, err := repo.UpdateReceivable(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Bago", updated.City)

	_, err = repo.UpdateReceivable(ctx, core.Receivable{ID: "missing"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = repo.GetReceivable(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestListOrderingAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, r := range []core.Receivable{
		{ID: "r1", CustomerName: "Aung", Amount: decimal.NewFromInt(1), Date: core.NewDate(2025, 1, 1), City: "Yangon"},
		{ID: "r2", CustomerName: "Mya", Amount: decimal.NewFromInt(1), Date: core.NewDate(2025, 3, 1), City: "Yangon"},
		{ID: "r3", CustomerName: "Aung", Amount: decimal.NewFromInt(1), Date: core.NewDate(2025, 2, 1), City: "Yangon"},
	} {
		_, err := repo.CreateReceivable(ctx, r)
		require.NoError(t, err)
	}

	all, err := repo.ListReceivables(ctx, ledger.ReceivableQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"r2", "r3", "r1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	aung, err := repo.ListReceivables(ctx, ledger.ReceivableQuery{Customer: "Aung"})
	require.NoError(t, err)
	assert.Len(t, aung, 2)

	none, err := repo.ListReceivables(ctx, ledger.ReceivableQuery{Customer: "aung"})
	require.NoError(t, err)
	assert.Empty(t, none, "customer match is exact")
}

func TestPaymentsCascadeOnDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateReceivable(ctx, core.Receivable{ID: "r1", CustomerName: "Aung", Amount: decimal.NewFromInt(100), Date: core.NewDate(2025, 1, 1), City: "Yangon"})
	require.NoError(t, err)

	_, err = repo.CreatePayment(ctx, core.Payment{ID: "orphan", ReceivableID: "nope", PaymentAmount: decimal.NewFromInt(1), PaymentDate: core.NewDate(2025, 1, 2), PaymentType: "Cash"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	for i, d := range []int{2, 5} {
		_, err := repo.CreatePayment(ctx, core.Payment{
			ID:            []string{"p1", "p2"}[i],
			ReceivableID:  "r1",
			PaymentAmount: decimal.NewFromInt(10),
			PaymentDate:   core.NewDate(2025, 1, d),
			PaymentType:   "Cash",
		})
		require.NoError(t, err)
	}

	list, err := repo.ListPaymentsForReceivable(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].ID)

	p, err := repo.GetPayment(ctx, "p1")
	require.NoError(t, err)
	p.Notes = "first instalment"
	p, err = repo.UpdatePayment(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "first instalment", p.Notes)

	require.NoError(t, repo.DeleteReceivable(ctx, "r1"))
	all, err := repo.ListPayments(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.ErrorIs(t, repo.DeleteReceivable(ctx, "r1"), ledger.ErrNotFound)
	assert.ErrorIs(t, repo.DeletePayment(ctx, "p1"), ledger.ErrNotFound)
}

func TestMalformedStoredAmountReadsAsZero(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO receivables (id, customer_name, amount, date, city, description, created_at, updated_at)
		 VALUES ('bad', 'Aung', 'n/a', '2025-01-01', 'Yangon', '', '', ''),
		        ('real', 'Aung', 12.5, '2025-01-02', 'Yangon', '', '', '')`)
	require.NoError(t, err)

	bad, err := repo.GetReceivable(ctx, "bad")
	require.NoError(t, err)
	assert.True(t, bad.Amount.IsZero())

	numeric, err := repo.GetReceivable(ctx, "real")
	require.NoError(t, err)
	assert.Equal(t, "12.5", numeric.Amount.String())
}
