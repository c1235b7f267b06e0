// Package parser turns combined-log-format access log lines into domain.LogRecord values.
package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/V4T54L/log-labeler/internal/domain"
)

// Combined Log Format (Apache and Nginx):
//
//	1.2.3.4 - - [Date] "METHOD /path PROTO" 200 512 "referrer" "user agent"
//
// The expression is searched, not anchored, so a line carrying a prefix
// (syslog header, container runtime tag) still yields a record.
const combinedLogRegex = `(\S+) - - \[([^\]]+)\] "(\S+)\s(\S+)\s([^"]+)" (\d{3}) (\d+) "([^"]*)" "([^"]*)"`

var reCombined = regexp.MustCompile(combinedLogRegex)

// Parse converts lines into records, skipping every line that does not match
// the grammar. Output order follows input order.
func Parse(lines []string) []domain.LogRecord {
	records := make([]domain.LogRecord, 0, len(lines))
	for _, line := range lines {
		if rec, ok := ParseLine(line); ok {
			records = append(records, rec)
		}
	}
	return records
}

// ParseLine parses a single line. ok is false when the line does not match.
func ParseLine(line string) (domain.LogRecord, bool) {
	m := reCombined.FindStringSubmatch(line)
	if len(m) != 10 {
		return domain.LogRecord{}, false
	}

	status, err := strconv.Atoi(m[6])
	if err != nil {
		return domain.LogRecord{}, false
	}
	// \d+ can exceed int64; such a line is treated as not matching.
	size, err := strconv.ParseInt(m[7], 10, 64)
	if err != nil {
		return domain.LogRecord{}, false
	}

	return domain.LogRecord{
		IP:        m[1],
		Timestamp: m[2],
		Method:    m[3],
		URL:       m[4],
		Protocol:  m[5],
		Status:    status,
		Size:      size,
		Referrer:  m[8],
		UserAgent: m[9],
	}, true
}

// Format renders a record back into the combined log format.
func Format(rec domain.LogRecord) string {
	return fmt.Sprintf(`%s - - [%s] "%s %s %s" %03d %d "%s" "%s"`,
		rec.IP, rec.Timestamp, rec.Method, rec.URL, rec.Protocol,
		rec.Status, rec.Size, rec.Referrer, rec.UserAgent)
}
