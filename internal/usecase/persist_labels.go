package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/log-labeler/internal/adapter/metrics"
	"github.com/V4T54L/log-labeler/internal/adapter/pii"
	"github.com/V4T54L/log-labeler/internal/domain"
)

const (
	defaultBatchSize    = 1000
	defaultRetryCount   = 3
	defaultRetryBackoff = 1 * time.Second
)

// PersistOptions tunes batching and retries. Zero values select defaults.
type PersistOptions struct {
	BatchSize    int
	RetryCount   int
	RetryBackoff time.Duration
}

// PersistLabelsUseCase writes labeled records of a run to every configured sink.
type PersistLabelsUseCase struct {
	sinks    []domain.LabeledRecordSink
	redactor *pii.Redactor
	logger   *slog.Logger
	metrics  *metrics.LabelerMetrics
	opts     PersistOptions
}

// NewPersistLabelsUseCase creates a new use case for persisting labeled records.
// redactor and m may be nil.
func NewPersistLabelsUseCase(sinks []domain.LabeledRecordSink, redactor *pii.Redactor, logger *slog.Logger, m *metrics.LabelerMetrics, opts PersistOptions) *PersistLabelsUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.RetryCount <= 0 {
		opts.RetryCount = defaultRetryCount
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &PersistLabelsUseCase{
		sinks:    sinks,
		redactor: redactor,
		logger:   logger,
		metrics:  m,
		opts:     opts,
	}
}

// Persist writes records to each sink in batches. A sink that fails after all
// retries is skipped for the rest of the run; the failures of all sinks are
// returned joined.
func (uc *PersistLabelsUseCase) Persist(ctx context.Context, runID string, records []domain.LabeledRecord) error {
	if len(uc.sinks) == 0 || len(records) == 0 {
		return nil
	}

	out := uc.redact(records)

	var errs []error
	for _, sink := range uc.sinks {
		if err := uc.persistTo(ctx, sink, runID, out); err != nil {
			uc.logger.Error("failed to persist labeled records", "sink", sink.Name(), "run_id", runID, "error", err)
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		uc.logger.Info("persisted labeled records", "sink", sink.Name(), "run_id", runID, "count", len(out))
	}
	return errors.Join(errs...)
}

func (uc *PersistLabelsUseCase) persistTo(ctx context.Context, sink domain.LabeledRecordSink, runID string, records []domain.LabeledRecord) error {
	for start := 0; start < len(records); start += uc.opts.BatchSize {
		end := min(start+uc.opts.BatchSize, len(records))
		err := uc.writeWithRetry(ctx, sink, runID, start, records[start:end])
		uc.observe(sink.Name(), err)
		if err != nil {
			return err
		}
	}
	return nil
}

func (uc *PersistLabelsUseCase) writeWithRetry(ctx context.Context, sink domain.LabeledRecordSink, runID string, offset int, batch []domain.LabeledRecord) error {
	var lastErr error
	for i := 0; i < uc.opts.RetryCount; i++ {
		err := sink.WriteBatch(ctx, runID, offset, batch)
		if err == nil {
			return nil // Success
		}
		lastErr = err
		uc.logger.Warn("failed to write batch to sink, retrying...", "sink", sink.Name(), "attempt", i+1, "error", err)
		if i == uc.opts.RetryCount-1 {
			break
		}
		select {
		case <-time.After(uc.opts.RetryBackoff):
			// continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// redact returns copies with sensitive query parameters masked. Records are
// returned unchanged when no redactor is configured.
func (uc *PersistLabelsUseCase) redact(records []domain.LabeledRecord) []domain.LabeledRecord {
	if uc.redactor == nil {
		return records
	}
	out := make([]domain.LabeledRecord, len(records))
	copy(out, records)
	for i := range out {
		uc.redactor.Redact(&out[i])
	}
	return out
}

func (uc *PersistLabelsUseCase) observe(sink string, err error) {
	if uc.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	uc.metrics.SinkWritesTotal.WithLabelValues(sink, status).Inc()
}
