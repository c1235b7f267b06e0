package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/V4T54L/log-labeler/internal/domain"
)

const (
	labelsTableName = "labeled_requests"
	tempTableName   = "labeled_requests_import"
)

// copyColumns is the column order used by COPY and the upsert.
var copyColumns = []string{
	"run_id", "seq", "ip", "timestamp", "method", "url", "protocol",
	"status", "size", "referrer", "user_agent", "label",
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS ` + labelsTableName + ` (
	run_id     UUID    NOT NULL,
	seq        INTEGER NOT NULL,
	ip         TEXT    NOT NULL,
	timestamp  TEXT    NOT NULL,
	method     TEXT    NOT NULL,
	url        TEXT    NOT NULL,
	protocol   TEXT    NOT NULL,
	status     INTEGER NOT NULL,
	size       BIGINT  NOT NULL,
	referrer   TEXT    NOT NULL,
	user_agent TEXT    NOT NULL,
	label      TEXT    NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS labeled_requests_label_idx ON ` + labelsTableName + ` (label);
`

// LabelRepository implements domain.LabeledRecordSink for PostgreSQL.
type LabelRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLabelRepository creates a new PostgreSQL label repository.
func NewLabelRepository(db *sql.DB, logger *slog.Logger) *LabelRepository {
	return &LabelRepository{db: db, logger: logger.With("component", "postgres_repository")}
}

// Name implements domain.LabeledRecordSink.
func (r *LabelRepository) Name() string { return "postgres" }

// EnsureSchema creates the labeled_requests table if it does not exist.
func (r *LabelRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create %s schema: %w", labelsTableName, err)
	}
	return nil
}

// WriteBatch writes records using the COPY protocol into a temporary table and
// merges them into labeled_requests. Rows are keyed by (run_id, seq) so a
// retried batch overwrites instead of duplicating.
func (r *LabelRepository) WriteBatch(ctx context.Context, runID string, offset int, records []domain.LabeledRecord) error {
	if len(records) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	_, err = txn.ExecContext(ctx, `CREATE TEMP TABLE `+tempTableName+` (LIKE `+labelsTableName+` INCLUDING DEFAULTS) ON COMMIT DROP;`)
	if err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(tempTableName, copyColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare COPY: %w", err)
	}

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, rowValues(runID, offset+i, rec)...); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to COPY row %d: %w", offset+i, err)
		}
	}

	// Flush buffered COPY data.
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("failed to flush COPY: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	if _, err := txn.ExecContext(ctx, upsertQuery()); err != nil {
		return fmt.Errorf("failed to merge into %s: %w", labelsTableName, err)
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	r.logger.Debug("wrote batch", "run_id", runID, "offset", offset, "count", len(records))
	return nil
}

func rowValues(runID string, seq int, rec domain.LabeledRecord) []any {
	return []any{
		runID, seq, rec.IP, rec.Timestamp, rec.Method, rec.URL, rec.Protocol,
		rec.Status, rec.Size, rec.Referrer, rec.UserAgent, string(rec.Label),
	}
}

func upsertQuery() string {
	quoted := make([]string, len(copyColumns))
	var updates []string
	for i, c := range copyColumns {
		quoted[i] = pq.QuoteIdentifier(c)
		if c != "run_id" && c != "seq" {
			updates = append(updates, quoted[i]+" = EXCLUDED."+quoted[i])
		}
	}
	cols := strings.Join(quoted, ", ")
	return `INSERT INTO ` + labelsTableName + ` (` + cols + `)
		SELECT ` + cols + ` FROM ` + tempTableName + `
		ON CONFLICT (run_id, seq) DO UPDATE SET ` + strings.Join(updates, ", ") + `;`
}
