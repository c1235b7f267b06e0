package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LabelerMetrics holds all Prometheus metrics for the labeler.
type LabelerMetrics struct {
	LinesTotal      prometheus.Counter
	DroppedTotal    prometheus.Counter
	FilteredTotal   prometheus.Counter
	RecordsTotal    *prometheus.CounterVec
	SourceErrors    prometheus.Counter
	SinkWritesTotal *prometheus.CounterVec
	WALActive       prometheus.Gauge
}

// NewLabelerMetrics creates the metrics and registers them with reg.
func NewLabelerMetrics(reg prometheus.Registerer) *LabelerMetrics {
	factory := promauto.With(reg)
	return &LabelerMetrics{
		LinesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "log_labeler",
			Subsystem: "pipeline",
			Name:      "lines_total",
			Help:      "Total number of input lines read.",
		}),
		DroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "log_labeler",
			Subsystem: "pipeline",
			Name:      "dropped_lines_total",
			Help:      "Total number of lines that did not match the combined log format.",
		}),
		FilteredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "log_labeler",
			Subsystem: "pipeline",
			Name:      "filtered_records_total",
			Help:      "Total number of parsed records removed by the homepage filter.",
		}),
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "log_labeler",
			Subsystem: "pipeline",
			Name:      "records_total",
			Help:      "Total number of labeled records by label.",
		}, []string{"label"}),
		SourceErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "log_labeler",
			Subsystem: "pipeline",
			Name:      "source_errors_total",
			Help:      "Total number of input sources that could not be read.",
		}),
		SinkWritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "log_labeler",
			Subsystem: "sink",
			Name:      "writes_total",
			Help:      "Total number of batch writes by sink and status.",
		}, []string{"sink", "status"}), // status: ok, error
		WALActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "log_labeler",
			Subsystem: "sink",
			Name:      "wal_active_gauge",
			Help:      "Indicates if records are being spooled to the Write-Ahead Log (1 for active, 0 for inactive).",
		}),
	}
}
