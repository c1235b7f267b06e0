package postgres

import (
	"strings"
	"testing"

	"github.com/V4T54L/log-labeler/internal/domain"
)

func TestRowValues_MatchCopyColumns(t *testing.T) {
	rec := domain.LabeledRecord{
		LogRecord: domain.LogRecord{
			IP: "10.0.0.1", Timestamp: "t", Method: "GET", URL: "/x", Protocol: "HTTP/1.1",
			Status: 200, Size: 5, Referrer: "", UserAgent: "ua",
		},
		Label: domain.LabelPathTraversal,
	}

	values := rowValues("run", 7, rec)

	if len(values) != len(copyColumns) {
		t.Fatalf("expected %d values, got %d", len(copyColumns), len(values))
	}
	if values[1] != 7 {
		t.Errorf("seq = %v, want 7", values[1])
	}
	if values[len(values)-1] != "path_traversal" {
		t.Errorf("label = %v, want path_traversal", values[len(values)-1])
	}
}

func TestUpsertQuery(t *testing.T) {
	q := upsertQuery()

	if !strings.Contains(q, `ON CONFLICT (run_id, seq) DO UPDATE SET`) {
		t.Errorf("missing conflict clause: %s", q)
	}
	if strings.Contains(q, `"seq" = EXCLUDED`) || strings.Contains(q, `"run_id" = EXCLUDED`) {
		t.Errorf("key columns must not be updated: %s", q)
	}
	if !strings.Contains(q, `"label" = EXCLUDED."label"`) {
		t.Errorf("label not updated on conflict: %s", q)
	}
}
