package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLabelerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLabelerMetrics(reg)

	m.LinesTotal.Add(3)
	m.RecordsTotal.WithLabelValues("xss").Inc()
	m.RecordsTotal.WithLabelValues("xss").Inc()

	if got := testutil.ToFloat64(m.LinesTotal); got != 3 {
		t.Errorf("lines_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.RecordsTotal.WithLabelValues("xss")); got != 2 {
		t.Errorf("records_total{label=xss} = %v, want 2", got)
	}

	path := filepath.Join(t.TempDir(), "labeler.prom")
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		t.Fatalf("WriteToTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `log_labeler_pipeline_records_total{label="xss"} 2`) {
		t.Errorf("textfile missing records_total sample:\n%s", data)
	}
}
