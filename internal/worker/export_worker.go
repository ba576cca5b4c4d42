// Package worker mirrors the ledger into an external spreadsheet whenever
// ledger events arrive, and on a fixed interval as a backstop for lost events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"receivables/internal/amqp"
	"receivables/internal/core"
	"receivables/internal/log"
	"receivables/internal/metrics"
	"receivables/internal/services"
)

// SnapshotSource reads the whole ledger. *services.ReportService implements it.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (services.Snapshot, error)
}

// LedgerWriter replaces the exported copy of the ledger. *google.Client
// implements it.
type LedgerWriter interface {
	WriteLedger(ctx context.Context, receivables []core.Receivable, payments []core.Payment) error
}

// Config holds the export worker timings.
type Config struct {
	// Debounce collapses an event burst into one export after the burst
	// has been quiet this long. Zero exports on every event.
	Debounce time.Duration

	// SyncInterval is the period of the full refresh that runs regardless
	// of events.
	SyncInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Debounce:     5 * time.Second,
		SyncInterval: 10 * time.Minute,
	}
}

// ExportWorker writes full ledger snapshots to a LedgerWriter. Every export
// is a full refresh, so events only say "something changed".
type ExportWorker struct {
	source  SnapshotSource
	writer  LedgerWriter
	metrics *metrics.Metrics
	config  Config

	trigger chan struct{}

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportWorker(source SnapshotSource, writer LedgerWriter, m *metrics.Metrics, config Config) *ExportWorker {
	if config.SyncInterval <= 0 {
		config.SyncInterval = DefaultConfig().SyncInterval
	}
	return &ExportWorker{
		source:  source,
		writer:  writer,
		metrics: m,
		config:  config,
		trigger: make(chan struct{}, 1),
	}
}

// HandleLedgerEvent schedules an export. It never blocks on the export
// itself, so the message is acked as soon as the export is scheduled.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, ev amqp.LedgerEvent) error {
	slog.DebugContext(ctx, "Ledger event received",
		log.FieldEntity, ev.Entity,
		"id", ev.ID,
		log.FieldOperation, ev.Op)
	select {
	case w.trigger <- struct{}{}:
	default:
		// an export is already pending
	}
	return nil
}

// Start runs an export immediately and then keeps exporting on events and
// on every SyncInterval tick. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Export worker started",
		"debounce", w.config.Debounce,
		"sync_interval", w.config.SyncInterval)
	return nil
}

// Stop signals the loop and waits for the export in flight to finish.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExportWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.SyncInterval)
	defer ticker.Stop()

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	w.exportLogged(ctx, "startup")

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.exportLogged(ctx, "interval")
		case <-w.trigger:
			if w.config.Debounce <= 0 {
				w.exportLogged(ctx, "event")
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.config.Debounce)
			} else {
				debounce.Reset(w.config.Debounce)
			}
			fire = debounce.C
		case <-fire:
			fire = nil
			w.exportLogged(ctx, "event")
		}
	}
}

func (w *ExportWorker) exportLogged(ctx context.Context, reason string) {
	if err := w.Export(ctx); err != nil {
		slog.ErrorContext(ctx, "Ledger export failed",
			log.FieldComponent, log.ComponentWorker,
			log.FieldOperation, log.OpExport,
			"reason", reason,
			log.FieldError, err)
	}
}

// Export writes one full snapshot synchronously.
func (w *ExportWorker) Export(ctx context.Context) error {
	start := time.Now()
	err := w.export(ctx)
	w.metrics.RecordExport(err, time.Since(start))
	return err
}

func (w *ExportWorker) export(ctx context.Context) error {
	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read ledger snapshot: %w", err)
	}
	if err := w.writer.WriteLedger(ctx, snap.Receivables, snap.Payments); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	slog.InfoContext(ctx, "Ledger exported",
		"receivables", len(snap.Receivables),
		"payments", len(snap.Payments))
	return nil
}
