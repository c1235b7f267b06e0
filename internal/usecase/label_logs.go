package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/V4T54L/log-labeler/internal/adapter/metrics"
	"github.com/V4T54L/log-labeler/internal/classifier"
	"github.com/V4T54L/log-labeler/internal/domain"
	"github.com/V4T54L/log-labeler/internal/parser"
)

// homepageURL requests carry no attack surface and are removed before labeling.
const homepageURL = "/"

// minLinesPerWorker keeps small inputs on a single goroutine.
const minLinesPerWorker = 512

// RunStats summarizes one labeling run.
type RunStats struct {
	Lines    int
	Parsed   int
	Dropped  int // lines that did not match the combined log format
	Filtered int // parsed records removed by the homepage filter
	Labels   map[domain.Label]int
}

// LabelLogsUseCase parses access log lines and labels each request.
type LabelLogsUseCase struct {
	classifier *classifier.Classifier
	logger     *slog.Logger
	metrics    *metrics.LabelerMetrics
	workers    int
}

// NewLabelLogsUseCase creates a new LabelLogsUseCase. workers below 2 runs
// sequentially; m may be nil.
func NewLabelLogsUseCase(c *classifier.Classifier, logger *slog.Logger, m *metrics.LabelerMetrics, workers int) *LabelLogsUseCase {
	return &LabelLogsUseCase{
		classifier: c,
		logger:     logger,
		metrics:    m,
		workers:    workers,
	}
}

// Run parses, filters, normalizes and labels lines. Output order follows input order.
func (uc *LabelLogsUseCase) Run(lines []string) ([]domain.LabeledRecord, RunStats) {
	chunks := uc.split(lines)
	results := make([]chunkResult, len(chunks))

	if len(chunks) == 1 {
		results[0] = uc.labelChunk(chunks[0])
	} else {
		var wg sync.WaitGroup
		for i, chunk := range chunks {
			wg.Add(1)
			go func(i int, chunk []string) {
				defer wg.Done()
				results[i] = uc.labelChunk(chunk)
			}(i, chunk)
		}
		wg.Wait()
	}

	stats := RunStats{Lines: len(lines), Labels: make(map[domain.Label]int)}
	total := 0
	for _, r := range results {
		total += len(r.records)
	}
	records := make([]domain.LabeledRecord, 0, total)
	for _, r := range results {
		records = append(records, r.records...)
		stats.Parsed += r.parsed
		stats.Filtered += r.filtered
	}
	stats.Dropped = stats.Lines - stats.Parsed
	for _, rec := range records {
		stats.Labels[rec.Label]++
	}

	uc.observe(stats)
	return records, stats
}

// RunSource reads every line of path from src before labeling. A source that
// cannot be fully read yields no records and an error wrapping
// domain.ErrSourceUnavailable.
func (uc *LabelLogsUseCase) RunSource(ctx context.Context, src domain.LineSource, path string) ([]domain.LabeledRecord, RunStats, error) {
	lines, err := src.ReadLines(ctx, path)
	if err != nil {
		uc.logger.Error("failed to read source", "path", path, "error", err)
		if uc.metrics != nil {
			uc.metrics.SourceErrors.Inc()
		}
		return nil, RunStats{}, err
	}

	records, stats := uc.Run(lines)
	uc.logger.Info("labeled source",
		"path", path,
		"lines", stats.Lines,
		"dropped", stats.Dropped,
		"filtered", stats.Filtered,
		"records", len(records),
	)
	return records, stats, nil
}

// Label normalizes one parsed record and attaches its label. The input is not modified.
func (uc *LabelLogsUseCase) Label(rec domain.LogRecord) domain.LabeledRecord {
	rec = normalize(rec)
	return domain.LabeledRecord{
		LogRecord: rec,
		Label:     uc.classifier.Classify(rec.URL, rec.Referrer),
	}
}

type chunkResult struct {
	records  []domain.LabeledRecord
	parsed   int
	filtered int
}

func (uc *LabelLogsUseCase) labelChunk(lines []string) chunkResult {
	var res chunkResult
	res.records = make([]domain.LabeledRecord, 0, len(lines))
	for _, line := range lines {
		rec, ok := parser.ParseLine(line)
		if !ok {
			continue
		}
		res.parsed++
		if rec.URL == homepageURL {
			res.filtered++
			continue
		}
		res.records = append(res.records, uc.Label(rec))
	}
	return res
}

// split cuts lines into contiguous chunks, one per worker.
func (uc *LabelLogsUseCase) split(lines []string) [][]string {
	n := uc.workers
	if maxByLen := len(lines) / minLinesPerWorker; n > maxByLen {
		n = maxByLen
	}
	if n < 2 {
		return [][]string{lines}
	}

	size := (len(lines) + n - 1) / n
	chunks := make([][]string, 0, n)
	for start := 0; start < len(lines); start += size {
		end := min(start+size, len(lines))
		chunks = append(chunks, lines[start:end])
	}
	return chunks
}

func (uc *LabelLogsUseCase) observe(stats RunStats) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.LinesTotal.Add(float64(stats.Lines))
	uc.metrics.DroppedTotal.Add(float64(stats.Dropped))
	uc.metrics.FilteredTotal.Add(float64(stats.Filtered))
	for label, n := range stats.Labels {
		uc.metrics.RecordsTotal.WithLabelValues(string(label)).Add(float64(n))
	}
}

// normalize replaces the "-" referrer placeholder with an empty string.
// Absent url and referrer are already empty strings.
func normalize(rec domain.LogRecord) domain.LogRecord {
	if rec.Referrer == "-" {
		rec.Referrer = ""
	}
	return rec
}
