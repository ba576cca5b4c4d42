package google

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receivables/internal/core"
)

func sampleLedger() ([]core.Receivable, []core.Payment) {
	receivables := []core.Receivable{
		{ID: "r2", CustomerName: "Ko Aung", Amount: decimal.NewFromInt(50000), Date: core.NewDate(2024, 3, 2), City: "Mandalay"},
		{ID: "r1", CustomerName: "Ma Hla", Amount: decimal.NewFromInt(100000), Date: core.NewDate(2024, 3, 1), City: "Yangon", Description: "rice"},
	}
	payments := []core.Payment{
		{ID: "p2", ReceivableID: "r1", PaymentAmount: decimal.NewFromInt(40000), PaymentDate: core.NewDate(2024, 3, 5), PaymentType: "Cash"},
		{ID: "p1", ReceivableID: "r1", PaymentAmount: decimal.RequireFromString("10000.50"), PaymentDate: core.NewDate(2024, 3, 3), PaymentType: "KBZPay", Notes: "first"},
	}
	return receivables, payments
}

func TestBuildTabs(t *testing.T) {
	receivables, payments := sampleLedger()
	tabs := BuildTabs(receivables, payments)

	require.Len(t, tabs, 3)
	assert.Equal(t, ReceivablesTab, tabs[0].Name)
	assert.Equal(t, PaymentsTab, tabs[1].Name)
	assert.Equal(t, CustomersTab, tabs[2].Name)

	t.Run("receivables", func(t *testing.T) {
		rows := tabs[0].Rows
		require.Len(t, rows, 3)
		assert.Equal(t, receivableHeader, rows[0])
		assert.Equal(t, []any{"r2", "2024-03-02", "Ko Aung", "Mandalay", 50000.0, 0.0, 50000.0, "Unpaid", ""}, rows[1])
		assert.Equal(t, []any{"r1", "2024-03-01", "Ma Hla", "Yangon", 100000.0, 50000.5, 49999.5, "Partial", "rice"}, rows[2])
	})

	t.Run("payments carry the customer of their receivable", func(t *testing.T) {
		rows := tabs[1].Rows
		require.Len(t, rows, 3)
		assert.Equal(t, paymentHeader, rows[0])
		assert.Equal(t, []any{"p2", "2024-03-05", "r1", "Ma Hla", 40000.0, "Cash", ""}, rows[1])
		assert.Equal(t, []any{"p1", "2024-03-03", "r1", "Ma Hla", 10000.5, "KBZPay", "first"}, rows[2])
	})

	t.Run("customers", func(t *testing.T) {
		rows := tabs[2].Rows
		require.Len(t, rows, 3)
		assert.Equal(t, customerHeader, rows[0])
		assert.Equal(t, []any{"Ko Aung", "Mandalay", 1, 0, 50000.0, 0.0, 50000.0}, rows[1])
		assert.Equal(t, []any{"Ma Hla", "Yangon", 1, 2, 100000.0, 50000.5, 49999.5}, rows[2])
	})
}

func TestBuildTabs_EmptyLedgerKeepsHeaders(t *testing.T) {
	for _, tab := range BuildTabs(nil, nil) {
		require.Len(t, tab.Rows, 1, tab.Name)
	}
}

func TestPaymentRows_OrphanHasNoCustomer(t *testing.T) {
	payments := []core.Payment{{ID: "p9", ReceivableID: "gone", PaymentAmount: decimal.NewFromInt(1), PaymentDate: core.NewDate(2024, 1, 1), PaymentType: "Cash"}}
	rows := paymentRows(payments, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[1][3])
}
