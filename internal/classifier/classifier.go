// Package classifier assigns attack labels to requests using an ordered rule table.
package classifier

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/V4T54L/log-labeler/internal/domain"
)

type compiledRule struct {
	label   domain.Label
	pattern *regexp.Regexp
}

// Classifier labels requests. It is immutable after construction and safe for
// concurrent use.
type Classifier struct {
	rules     []compiledRule
	staticExt []string
}

// New compiles rules in the given order. staticExt is matched case-insensitively
// against the end of the normalized text.
func New(rules []Rule, staticExt []string) (*Classifier, error) {
	c := &Classifier{
		rules:     make([]compiledRule, 0, len(rules)),
		staticExt: make([]string, 0, len(staticExt)),
	}
	for i, r := range rules {
		if r.Label == domain.LabelNormal {
			return nil, fmt.Errorf("rule %d: label %q cannot be used by a rule", i, r.Label)
		}
		if _, err := domain.ParseLabel(string(r.Label)); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): invalid pattern: %w", i, r.Label, err)
		}
		c.rules = append(c.rules, compiledRule{label: r.Label, pattern: re})
	}
	for _, ext := range staticExt {
		if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" {
			c.staticExt = append(c.staticExt, ext)
		}
	}
	return c, nil
}

// NewDefault returns a Classifier built from DefaultRules and DefaultStaticExtensions.
func NewDefault() *Classifier {
	c, err := New(DefaultRules(), DefaultStaticExtensions())
	if err != nil {
		panic(err)
	}
	return c
}

// Classify labels a request from its url and referrer. referrer is expected to
// be already normalized ("-" replaced by "").
func (c *Classifier) Classify(url, referrer string) domain.Label {
	return c.ClassifyNormalized(Normalize(url, referrer))
}

// ClassifyNormalized labels text that has already been through Normalize.
func (c *Classifier) ClassifyNormalized(text string) domain.Label {
	if c.isStaticAsset(text) {
		return domain.LabelNormal
	}
	for _, r := range c.rules {
		if r.pattern.MatchString(text) {
			return r.label
		}
	}
	return domain.LabelNormal
}

func (c *Classifier) isStaticAsset(text string) bool {
	for _, ext := range c.staticExt {
		if strings.HasSuffix(text, ext) {
			return true
		}
	}
	return false
}

// Normalize joins url and referrer with a space, percent-decodes the result,
// lower-cases it and trims surrounding whitespace.
func Normalize(url, referrer string) string {
	return strings.TrimSpace(strings.ToLower(PercentDecode(url + " " + referrer)))
}

// PercentDecode reverses percent-encoding. Malformed escapes are kept as they
// are and bytes that do not form valid UTF-8 become U+FFFD. '+' is left alone.
func PercentDecode(s string) string {
	if strings.IndexByte(s, '%') < 0 {
		return s
	}
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			buf = append(buf, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		buf = append(buf, s[i])
	}
	if utf8.Valid(buf) {
		return string(buf)
	}
	return strings.ToValidUTF8(string(buf), string(utf8.RuneError))
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
