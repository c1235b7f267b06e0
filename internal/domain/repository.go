package domain

import "context"

// LineSource reads every line of an input source.
// Implementations must return an error wrapping ErrSourceUnavailable when the
// source cannot be opened or read to the end, and no lines in that case.
type LineSource interface {
	ReadLines(ctx context.Context, path string) ([]string, error)
}

// LabeledRecordSink persists labeled records produced by a labeling run.
// This abstracts away the specific implementations (e.g., PostgreSQL, Redis Streams).
type LabeledRecordSink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// WriteBatch writes records of a run. offset is the position of records[0]
	// within the run, so sinks can key rows idempotently.
	WriteBatch(ctx context.Context, runID string, offset int, records []LabeledRecord) error
}

// WALRepository defines the interface for the Write-Ahead Log failover mechanism.
type WALRepository interface {
	// Write appends a spooled record to the local WAL file.
	Write(ctx context.Context, rec SpooledRecord) error

	// Replay reads records from the WAL and sends them to a handler function.
	Replay(ctx context.Context, handler func(rec SpooledRecord) error) error

	// Truncate removes WAL segments that have been successfully replayed.
	Truncate(ctx context.Context) error
}
