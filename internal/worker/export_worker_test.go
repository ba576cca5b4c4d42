package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receivables/internal/amqp"
	"receivables/internal/core"
	"receivables/internal/metrics"
	"receivables/internal/services"
)

type fakeSource struct {
	snap services.Snapshot
	err  error
}

func (f *fakeSource) Snapshot(context.Context) (services.Snapshot, error) {
	return f.snap, f.err
}

type fakeWriter struct {
	mu     sync.Mutex
	writes int
	last   []core.Receivable
	err    error
}

func (f *fakeWriter) WriteLedger(_ context.Context, rs []core.Receivable, _ []core.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.last = rs
	return f.err
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func event() amqp.LedgerEvent {
	return amqp.NewLedgerEvent(amqp.EntityPayment, "p1", amqp.OpUpsert)
}

func TestExport_WritesSnapshot(t *testing.T) {
	rs := []core.Receivable{{ID: "r1", CustomerName: "Ma Hla", Amount: decimal.NewFromInt(10), Date: core.NewDate(2024, 1, 1), City: "Yangon"}}
	writer := &fakeWriter{}
	w := NewExportWorker(&fakeSource{snap: services.Snapshot{Receivables: rs}}, writer, metrics.New(), DefaultConfig())

	require.NoError(t, w.Export(context.Background()))
	assert.Equal(t, 1, writer.count())
	assert.Equal(t, rs, writer.last)
}

func TestExport_Errors(t *testing.T) {
	t.Run("snapshot failure skips the write", func(t *testing.T) {
		writer := &fakeWriter{}
		w := NewExportWorker(&fakeSource{err: errors.New("db locked")}, writer, nil, DefaultConfig())

		err := w.Export(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read ledger snapshot")
		assert.Equal(t, 0, writer.count())
	})

	t.Run("write failure is returned", func(t *testing.T) {
		writer := &fakeWriter{err: errors.New("quota exceeded")}
		w := NewExportWorker(&fakeSource{}, writer, nil, DefaultConfig())

		err := w.Export(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "write ledger: quota exceeded")
	})
}

func TestHandleLedgerEvent_NeverBlocks(t *testing.T) {
	w := NewExportWorker(&fakeSource{}, &fakeWriter{}, nil, DefaultConfig())
	for i := 0; i < 10; i++ {
		require.NoError(t, w.HandleLedgerEvent(context.Background(), event()))
	}
	assert.Len(t, w.trigger, 1)
}

func TestStartStop(t *testing.T) {
	writer := &fakeWriter{}
	w := NewExportWorker(&fakeSource{}, writer, nil, Config{Debounce: time.Millisecond, SyncInterval: time.Hour})
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(ctx), "second start must fail")

	require.Eventually(t, func() bool { return writer.count() == 1 }, time.Second, 5*time.Millisecond,
		"startup export")

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop(stopCtx), "stop is idempotent")
}

func TestEventBurstIsDebounced(t *testing.T) {
	writer := &fakeWriter{}
	w := NewExportWorker(&fakeSource{}, writer, nil, Config{Debounce: 50 * time.Millisecond, SyncInterval: time.Hour})
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop(context.Background()) })
	require.Eventually(t, func() bool { return writer.count() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, w.HandleLedgerEvent(ctx, event()))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return writer.count() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 2, writer.count(), "burst should collapse into one export")
}

func TestZeroDebounceExportsPerEvent(t *testing.T) {
	writer := &fakeWriter{}
	w := NewExportWorker(&fakeSource{}, writer, nil, Config{SyncInterval: time.Hour})
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop(context.Background()) })
	require.Eventually(t, func() bool { return writer.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.HandleLedgerEvent(ctx, event()))
	require.Eventually(t, func() bool { return writer.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestIntervalRefresh(t *testing.T) {
	writer := &fakeWriter{}
	w := NewExportWorker(&fakeSource{}, writer, nil, Config{SyncInterval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	require.Eventually(t, func() bool { return writer.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, w.Stop(context.Background()))
}
