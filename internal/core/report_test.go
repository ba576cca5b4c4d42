package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportFixture() ([]Receivable, []Payment) {
	receivables := []Receivable{
		rec("r1", "Aung", "Yangon", 1000, NewDate(2025, 1, 10)),
		rec("r2", "Mya", "Mandalay", 500, NewDate(2025, 2, 5)),
		rec("r3", "Aung", "Yangon", 300, NewDate(2025, 2, 20)),
		rec("r4", "Zaw", "", 200, NewDate(2025, 3, 1)),
	}
	payments := []Payment{
		pay("p1", "r1", 400, NewDate(2025, 1, 20), "Cash"),
		pay("p2", "r2", 100, NewDate(2025, 2, 10), "KBZPay"),
		pay("p3", "r1", 600, NewDate(2025, 2, 10), "Cash"),
		pay("p4", "r3", 50, NewDate(2025, 3, 2), ""),
	}
	return receivables, payments
}

func TestComputeTotals(t *testing.T) {
	receivables, payments := reportFixture()
	got := ComputeTotals(receivables, payments)
	assertDecimal(t, 2000, got.TotalReceivables, "receivables")
	assertDecimal(t, 1150, got.TotalPaid, "paid")
	assertDecimal(t, 850, got.OutstandingBalance, "outstanding")
	assert.InDelta(t, 57.5, got.CollectionRate, 1e-9)
	assert.Equal(t, 3, got.CustomerCount)
	assert.Equal(t, 4, got.ReceivableCount)
	assert.Equal(t, 4, got.PaymentCount)

	empty := ComputeTotals(nil, nil)
	assertDecimal(t, 0, empty.OutstandingBalance, "empty")
	assert.Equal(t, 0.0, empty.CollectionRate)
}

func TestMonthlyTrend(t *testing.T) {
	receivables, payments := reportFixture()
	got := MonthlyTrend(receivables, payments, 6)
	require.Len(t, got, 3)
	assert.Equal(t, "2025-01", got[0].Month)
	assertDecimal(t, 1000, got[0].Receivables, "jan receivables")
	assertDecimal(t, 400, got[0].Payments, "jan payments")
	assertDecimal(t, 600, got[0].Outstanding, "jan outstanding")
	assert.Equal(t, "2025-02", got[1].Month)
	assertDecimal(t, 800, got[1].Receivables, "feb receivables")
	assertDecimal(t, 700, got[1].Payments, "feb payments")

	last := MonthlyTrend(receivables, payments, 2)
	require.Len(t, last, 2)
	assert.Equal(t, "2025-02", last[0].Month)
	assert.Equal(t, "2025-03", last[1].Month)
}

func TestPaymentTypeBreakdown(t *testing.T) {
	_, payments := reportFixture()
	got := PaymentTypeBreakdown(payments, 5)
	require.Len(t, got, 3)
	assert.Equal(t, "Cash", got[0].PaymentType)
	assertDecimal(t, 1000, got[0].Amount, "cash")
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "KBZPay", got[1].PaymentType)
	assert.Equal(t, UnknownPaymentType, got[2].PaymentType)

	sum := 0.0
	for _, s := range got {
		sum += s.Percentage
	}
	assert.InDelta(t, 100.0, sum, 1e-6)

	top := PaymentTypeBreakdown(payments, 1)
	require.Len(t, top, 1)
	assert.InDelta(t, 1000.0/1150.0*100, top[0].Percentage, 1e-6, "share of all payments")

	assert.Empty(t, PaymentTypeBreakdown(nil, 5))
}

func TestDailyPayments(t *testing.T) {
	_, payments := reportFixture()
	got := DailyPayments(payments, 7)
	require.Len(t, got, 3)
	assert.Equal(t, "2025-03-02", got[0].Date.String())
	assert.Equal(t, "2025-02-10", got[1].Date.String())
	assertDecimal(t, 700, got[1].Amount, "same day summed")
	assert.Equal(t, 2, got[1].Count)

	assert.Len(t, DailyPayments(payments, 1), 1)
}

func TestRecentActivity(t *testing.T) {
	receivables, payments := reportFixture()
	got := RecentActivity(receivables, payments, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "p4", got[0].ID)
	assert.Equal(t, ActivityPayment, got[0].Kind)
	assert.Equal(t, "Aung", got[0].CustomerName, "payment attributed via receivable")
	assert.Equal(t, "r4", got[1].ID)
	assert.Equal(t, ActivityReceivable, got[1].Kind)
	assert.Equal(t, "r3", got[2].ID)

	assert.Len(t, RecentActivity(receivables, payments, 0), 8)
}

func TestDistinctNames(t *testing.T) {
	receivables, payments := reportFixture()
	assert.Equal(t, []string{"Aung", "Mya", "Zaw"}, CustomerNames(receivables))
	assert.Equal(t, []string{"Mandalay", "Yangon"}, CityNames(receivables))
	assert.Equal(t, []string{}, CityNames(nil))

	payments = append(payments, pay("p5", "r1", 1, NewDate(2025, 3, 3), "Gold"), pay("p6", "r1", 1, NewDate(2025, 3, 3), "Barter"))
	types := PaymentTypes(payments)
	assert.Equal(t, append(append([]string(nil), PaymentTypeSuggestions...), "Barter", "Gold"), types)
}

func TestPerformanceRows(t *testing.T) {
	receivables, payments := reportFixture()
	customers := CustomerPerformanceRows(receivables, payments)
	require.Len(t, customers, 3)
	assert.Equal(t, "Aung", customers[0].CustomerName)
	assert.InDelta(t, 1050.0/1300.0*100, customers[0].CollectionRate, 1e-6)
	assert.Equal(t, "Mya", customers[1].CustomerName)
	assert.Equal(t, "Zaw", customers[2].CustomerName)
	assert.Equal(t, 0.0, customers[2].CollectionRate)

	cities := CityPerformanceRows(receivables, payments)
	require.Len(t, cities, 2)
	assert.Equal(t, "Yangon", cities[0].City)
}

func TestBuildReportScopes(t *testing.T) {
	receivables, payments := reportFixture()
	rep := BuildReport(ReportFilter{City: "Mandalay"}, receivables, payments)
	assertDecimal(t, 500, rep.Totals.TotalReceivables, "scoped receivables")
	assertDecimal(t, 100, rep.Totals.TotalPaid, "scoped payments")
	require.Len(t, rep.Customers, 1)
	assert.Equal(t, "Mya", rep.Customers[0].CustomerName)
	require.Len(t, rep.PaymentTypes, 1)

	dash := BuildDashboard(receivables, payments)
	assert.Equal(t, 4, dash.Totals.ReceivableCount)
	assert.Len(t, dash.Cities, 2)
	assert.Len(t, dash.RecentActivity, RecentActivityRows)
}
