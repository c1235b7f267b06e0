package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/V4T54L/log-labeler/internal/adapter/metrics"
	"github.com/V4T54L/log-labeler/internal/domain"
)

const labelCountsSuffix = ":label_counts"

// LabelRepository implements domain.LabeledRecordSink using Redis Streams.
// Records are spooled to a Write-Ahead Log while Redis is unreachable.
type LabelRepository struct {
	client      *redis.Client
	logger      *slog.Logger
	wal         domain.WALRepository
	stream      string
	maxLen      int64
	limiter     *rate.Limiter
	metrics     *metrics.LabelerMetrics
	isAvailable atomic.Bool
}

// Options configures a LabelRepository.
type Options struct {
	Stream     string
	MaxLen     int64   // approximate stream cap; 0 keeps every entry
	PublishRPS float64 // records per second; 0 disables throttling
}

// NewLabelRepository creates a Redis-backed sink. The WAL is optional; pass nil
// to fail writes instead of spooling. m may be nil.
func NewLabelRepository(ctx context.Context, client *redis.Client, logger *slog.Logger, opts Options, wal domain.WALRepository, m *metrics.LabelerMetrics) *LabelRepository {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.PublishRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.PublishRPS), max(1, int(opts.PublishRPS)))
	}

	repo := &LabelRepository{
		client:  client,
		logger:  logger.With("component", "redis_repository"),
		wal:     wal,
		stream:  opts.Stream,
		maxLen:  opts.MaxLen,
		limiter: limiter,
		metrics: m,
	}

	if err := client.Ping(ctx).Err(); err != nil {
		repo.logger.Error("Redis unavailable on startup", "error", err)
		repo.setAvailable(false)
	} else {
		repo.setAvailable(true)
	}
	return repo
}

// Name implements domain.LabeledRecordSink.
func (r *LabelRepository) Name() string { return "redis" }

// Available reports whether the last interaction with Redis succeeded.
func (r *LabelRepository) Available() bool { return r.isAvailable.Load() }

// WriteBatch appends every record to the stream and bumps per-label counters,
// falling back to the WAL if Redis is unavailable.
func (r *LabelRepository) WriteBatch(ctx context.Context, runID string, offset int, records []domain.LabeledRecord) error {
	if len(records) == 0 {
		return nil
	}
	if !r.isAvailable.Load() {
		return r.spool(ctx, runID, offset, records)
	}

	spooled := make([]domain.SpooledRecord, len(records))
	for i, rec := range records {
		spooled[i] = domain.SpooledRecord{RunID: runID, Seq: offset + i, Record: rec}
	}

	err := r.publish(ctx, spooled)
	if err != nil && isNetworkError(err) {
		if r.isAvailable.CompareAndSwap(true, false) {
			r.logger.Error("Redis connection lost during write", "error", err)
		}
		return r.spool(ctx, runID, offset, records)
	}
	return err
}

// Recover pings Redis and, if it answers, replays and truncates the WAL.
func (r *LabelRepository) Recover(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.setAvailable(false)
		return fmt.Errorf("redis still unavailable: %w", err)
	}
	r.setAvailable(true)
	if r.wal == nil {
		return nil
	}
	return r.ReplayWAL(ctx)
}

// ReplayWAL publishes spooled records to Redis and truncates the WAL on success.
func (r *LabelRepository) ReplayWAL(ctx context.Context) error {
	replayed := 0
	err := r.wal.Replay(ctx, func(rec domain.SpooledRecord) error {
		replayed++
		return r.publish(ctx, []domain.SpooledRecord{rec})
	})
	if err != nil {
		return fmt.Errorf("WAL replay failed: %w", err)
	}

	if err := r.wal.Truncate(ctx); err != nil {
		return fmt.Errorf("failed to truncate WAL after successful replay: %w", err)
	}
	if r.metrics != nil {
		r.metrics.WALActive.Set(0)
	}

	if replayed > 0 {
		r.logger.Info("WAL replay to Redis completed", "count", replayed)
	}
	return nil
}

func (r *LabelRepository) spool(ctx context.Context, runID string, offset int, records []domain.LabeledRecord) error {
	if r.wal == nil {
		return errors.New("redis is unavailable and WAL is not configured")
	}
	if r.metrics != nil {
		r.metrics.WALActive.Set(1)
	}
	r.logger.Warn("Redis is unavailable, writing to WAL", "run_id", runID, "count", len(records))
	for i, rec := range records {
		if err := r.wal.Write(ctx, domain.SpooledRecord{RunID: runID, Seq: offset + i, Record: rec}); err != nil {
			return fmt.Errorf("failed to spool record %d: %w", offset+i, err)
		}
	}
	return nil
}

func (r *LabelRepository) publish(ctx context.Context, records []domain.SpooledRecord) error {
	pipe := r.client.Pipeline()
	counts := make(map[domain.Label]int64)
	for _, rec := range records {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		values, err := streamValues(rec)
		if err != nil {
			r.logger.Error("Failed to marshal record for stream", "run_id", rec.RunID, "seq", rec.Seq, "error", err)
			continue
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.stream,
			MaxLen: r.maxLen,
			Approx: r.maxLen > 0,
			Values: values,
		})
		counts[rec.Record.Label]++
	}
	for label, n := range counts {
		pipe.HIncrBy(ctx, r.stream+labelCountsSuffix, string(label), n)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute stream pipeline: %w", err)
	}
	return nil
}

func (r *LabelRepository) setAvailable(ok bool) {
	r.isAvailable.Store(ok)
}

// streamValues builds the XADD field map for a record. The label and run id are
// duplicated outside the payload so consumers can filter without decoding JSON.
func streamValues(rec domain.SpooledRecord) (map[string]interface{}, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"payload": payload,
		"label":   string(rec.Record.Label),
		"run_id":  rec.RunID,
		"seq":     rec.Seq,
	}, nil
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded)
}
