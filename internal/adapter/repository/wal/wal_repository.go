package wal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/log-labeler/internal/domain"
)

const (
	segmentPrefix = "segment-"
	segmentSuffix = ".jsonl"
	filePerm      = 0644
)

// ErrWALFull is returned when a write would exceed the configured disk budget.
var ErrWALFull = errors.New("WAL max total size exceeded")

// WALRepository spools labeled records to segmented JSON-lines files while a
// sink is unreachable.
type WALRepository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu             sync.Mutex
	currentSegment *os.File
	currentSize    int64
	totalSize      int64 // bytes across all segments, including the current one
}

// NewWALRepository opens (or creates) the WAL in dir.
func NewWALRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*WALRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory %s: %w", dir, err)
	}

	w := &WALRepository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "wal_repository"),
	}

	total, err := w.diskUsage()
	if err != nil {
		return nil, err
	}
	w.totalSize = total

	if err := w.openLatestSegment(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends a spooled record to the current segment.
func (w *WALRepository) Write(ctx context.Context, rec domain.SpooledRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record for WAL: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.totalSize+int64(len(data)) > w.maxTotalSize {
		return fmt.Errorf("%w (%d > %d)", ErrWALFull, w.totalSize+int64(len(data)), w.maxTotalSize)
	}

	if w.currentSegment == nil {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	n, err := w.currentSegment.Write(data)
	w.currentSize += int64(n)
	w.totalSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write to WAL segment: %w", err)
	}

	if w.currentSize >= w.maxSegmentSize {
		if err := w.rotate(); err != nil {
			w.logger.Error("Failed to rotate WAL segment", "error", err)
		}
	}
	return nil
}

// Replay feeds every spooled record, oldest segment first, to handler. It stops
// at the first handler error. Lines that cannot be decoded are skipped.
func (w *WALRepository) Replay(ctx context.Context, handler func(rec domain.SpooledRecord) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closeCurrent()

	segments, err := w.sortedSegments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		w.logger.Info("WAL is empty, nothing to replay")
		return nil
	}
	w.logger.Info("Starting WAL replay", "segment_count", len(segments))

	for _, path := range segments {
		if err := replaySegment(ctx, path, handler, w.logger); err != nil {
			return err
		}
	}

	w.logger.Info("WAL replay completed")
	return nil
}

func replaySegment(ctx context.Context, path string, handler func(rec domain.SpooledRecord) error, logger *slog.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rec domain.SpooledRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			logger.Warn("Failed to unmarshal record from WAL, skipping", "error", err, "segment", path)
			continue
		}
		if err := handler(rec); err != nil {
			return fmt.Errorf("replay handler failed: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error scanning segment %s: %w", path, err)
	}
	return nil
}

// Truncate removes all segments and starts a fresh one.
func (w *WALRepository) Truncate(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closeCurrent()

	segments, err := w.sortedSegments()
	if err != nil {
		return err
	}
	for _, path := range segments {
		if err := os.Remove(path); err != nil {
			w.logger.Error("Failed to remove WAL segment", "path", path, "error", err)
		}
	}

	total, err := w.diskUsage()
	if err != nil {
		return err
	}
	w.totalSize = total

	w.logger.Info("WAL truncated")
	return w.openLatestSegment()
}

// Close syncs and closes the current segment.
func (w *WALRepository) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.currentSegment == nil {
		return nil
	}
	err := w.currentSegment.Close()
	w.currentSegment = nil
	return err
}

func (w *WALRepository) closeCurrent() {
	if w.currentSegment == nil {
		return
	}
	if err := w.currentSegment.Sync(); err != nil {
		w.logger.Error("Failed to sync WAL segment", "error", err)
	}
	if err := w.currentSegment.Close(); err != nil {
		w.logger.Error("Failed to close WAL segment", "error", err)
	}
	w.currentSegment = nil
}

func (w *WALRepository) rotate() error {
	w.closeCurrent()

	name := fmt.Sprintf("%s%020d%s", segmentPrefix, time.Now().UnixNano(), segmentSuffix)
	path := filepath.Join(w.dir, name)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create new WAL segment %s: %w", path, err)
	}

	w.currentSegment = f
	w.currentSize = 0
	w.logger.Debug("Rotated to new WAL segment", "path", path)
	return nil
}

func (w *WALRepository) openLatestSegment() error {
	segments, err := w.sortedSegments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return w.rotate()
	}

	latest := segments[len(segments)-1]
	stat, err := os.Stat(latest)
	if err != nil {
		return fmt.Errorf("failed to stat latest segment %s: %w", latest, err)
	}
	if stat.Size() >= w.maxSegmentSize {
		return w.rotate()
	}

	f, err := os.OpenFile(latest, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open latest segment %s: %w", latest, err)
	}
	w.currentSegment = f
	w.currentSize = stat.Size()
	return nil
}

func (w *WALRepository) sortedSegments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAL directory: %w", err)
	}

	var segments []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), segmentPrefix) && strings.HasSuffix(e.Name(), segmentSuffix) {
			segments = append(segments, filepath.Join(w.dir, e.Name()))
		}
	}
	sort.Strings(segments)
	return segments, nil
}

func (w *WALRepository) diskUsage() (int64, error) {
	segments, err := w.sortedSegments()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, path := range segments {
		info, err := os.Stat(path)
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
