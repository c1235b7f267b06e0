package pii

import (
	"log/slog"
	"strings"

	"github.com/V4T54L/log-labeler/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor masks sensitive query parameter values in request URLs and referrers
// before records leave the process.
type Redactor struct {
	paramsToRedact map[string]struct{} // Use a map for O(1) lookups
	logger         *slog.Logger
}

// NewRedactor creates a new Redactor for the given query parameter names.
// Names are matched case-insensitively.
func NewRedactor(params []string, logger *slog.Logger) *Redactor {
	paramSet := make(map[string]struct{}, len(params))
	for _, p := range params {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			paramSet[p] = struct{}{}
		}
	}
	return &Redactor{
		paramsToRedact: paramSet,
		logger:         logger,
	}
}

// Redact modifies the record in place and reports whether anything was masked.
// Callers pass a copy; labels are assigned before redaction.
func (r *Redactor) Redact(rec *domain.LabeledRecord) bool {
	if len(r.paramsToRedact) == 0 {
		return false
	}

	url, urlChanged := r.redactQuery(rec.URL)
	ref, refChanged := r.redactQuery(rec.Referrer)
	if !urlChanged && !refChanged {
		return false
	}

	rec.URL = url
	rec.Referrer = ref
	r.logger.Debug("redacted query parameters", "ip", rec.IP)
	return true
}

// redactQuery rewrites "k=v" pairs after the first '?'. Encoding is preserved
// so the rest of the string stays byte-identical.
func (r *Redactor) redactQuery(s string) (string, bool) {
	q := strings.IndexByte(s, '?')
	if q < 0 {
		return s, false
	}

	pairs := strings.Split(s[q+1:], "&")
	changed := false
	for i, pair := range pairs {
		k, v, found := strings.Cut(pair, "=")
		if !found || v == RedactedPlaceholder {
			continue
		}
		if _, ok := r.paramsToRedact[strings.ToLower(k)]; ok {
			pairs[i] = k + "=" + RedactedPlaceholder
			changed = true
		}
	}
	if !changed {
		return s, false
	}
	return s[:q+1] + strings.Join(pairs, "&"), true
}
