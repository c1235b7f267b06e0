package domain

import (
	"errors"
	"fmt"
)

// ErrSourceUnavailable is returned when an input source cannot be opened or fully read.
var ErrSourceUnavailable = errors.New("source unavailable")

// Label is the classification assigned to a request.
type Label string

const (
	LabelNormal           Label = "normal"
	LabelXSS              Label = "xss"
	LabelSQLInjection     Label = "sql_injection"
	LabelCommandInjection Label = "command_injection"
	LabelPathTraversal    Label = "path_traversal"
)

// Labels returns every label, attack categories in priority order followed by normal.
func Labels() []Label {
	return []Label{LabelXSS, LabelSQLInjection, LabelCommandInjection, LabelPathTraversal, LabelNormal}
}

// ParseLabel converts a raw string into a known Label.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown label %q", s)
}

// LogRecord is one access-log line that matched the combined log format.
type LogRecord struct {
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"` // raw bracket content, not parsed
	Method    string `json:"method"`
	URL       string `json:"url"`
	Protocol  string `json:"protocol"`
	Status    int    `json:"status"`
	Size      int64  `json:"size"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
}

// LabeledRecord is a LogRecord with the label assigned by the classifier.
type LabeledRecord struct {
	LogRecord
	Label Label `json:"label"`
}

// SpooledRecord is a labeled record held in the WAL until a sink accepts it.
type SpooledRecord struct {
	RunID  string        `json:"run_id"`
	Seq    int           `json:"seq"`
	Record LabeledRecord `json:"record"`
}
