package classifier

import "github.com/V4T54L/log-labeler/internal/domain"

// Rule binds an attack label to a regular expression searched in the
// normalized request text.
type Rule struct {
	Label   domain.Label `yaml:"label"`
	Pattern string       `yaml:"pattern"`
}

// DefaultRules returns the built-in rule table. Order is priority: the first
// matching rule decides the label.
func DefaultRules() []Rule {
	return []Rule{
		{
			Label:   domain.LabelXSS,
			Pattern: `(?i)(<script|on\w+=|alert\(|prompt\(|confirm\(|%3Cscript|javascript:)`,
		},
		{
			Label:   domain.LabelSQLInjection,
			Pattern: `(?i)(\b(select|union|insert|delete|update|drop|sleep|benchmark|waitfor|or\s+1=1|pg_sleep)\b|--|%27|'|\bconcat\b|\binformation_schema\b)`,
		},
		{
			Label:   domain.LabelCommandInjection,
			Pattern: `(?i)(\b(exec\s*\(|system\s*\(|shell_exec\s*\(|popen|cmd|powershell|curl\s|wget\s|\$\(|%24%28|;|&&|\|\|)\b)`,
		},
		{
			Label:   domain.LabelPathTraversal,
			Pattern: `(?i)(\.\./|\.\.\\|%2e%2e%2f|%2e%2e\\|etc/passwd|boot.ini|win.ini)`,
		},
	}
}

// DefaultStaticExtensions returns the suffixes that mark a request as a static
// asset. Such requests are labeled normal without running any rule.
func DefaultStaticExtensions() []string {
	return []string{".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".woff", ".ttf", ".eot"}
}
