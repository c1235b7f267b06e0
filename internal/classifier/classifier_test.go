package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/V4T54L/log-labeler/internal/domain"
)

func TestClassify(t *testing.T) {
	c := NewDefault()

	tests := []struct {
		name     string
		url      string
		referrer string
		want     domain.Label
	}{
		{name: "Plain page", url: "/page", want: domain.LabelNormal},
		{name: "Query string", url: "/index.php?page=2&sort=asc", want: domain.LabelNormal},
		{name: "Script tag", url: "/search?q=<script>alert(1)</script>", want: domain.LabelXSS},
		{name: "Encoded script tag", url: "/search?q=%3Cscript%3E", want: domain.LabelXSS},
		{name: "Double encoded script tag", url: "/search?q=%253Cscript%253E", want: domain.LabelXSS},
		{name: "Event handler", url: "/img?x=1 onerror=foo", want: domain.LabelXSS},
		{name: "Javascript uri", url: "/r?to=JavaScript:void(0)", want: domain.LabelXSS},
		{name: "Union select", url: "/item?id=1 UNION SELECT password FROM users", want: domain.LabelSQLInjection},
		{name: "Encoded quote", url: "/item?id=1%27", want: domain.LabelSQLInjection},
		{name: "Sql comment", url: "/item?id=1--", want: domain.LabelSQLInjection},
		{name: "Information schema", url: "/item?t=information_schema", want: domain.LabelSQLInjection},
		{name: "Keyword inside word", url: "/selection", want: domain.LabelNormal},
		{name: "Cmd", url: "/run?c=cmd", want: domain.LabelCommandInjection},
		{name: "Chained command", url: "/ping?host=a;id", want: domain.LabelCommandInjection},
		{name: "Shell and", url: "/ping?host=a&&id", want: domain.LabelCommandInjection},
		{name: "Exec call", url: "/x?f=exec(ls)", want: domain.LabelCommandInjection},
		{name: "Dot dot slash", url: "/download?file=../../secret", want: domain.LabelPathTraversal},
		{name: "Encoded traversal", url: "/download?file=%2e%2e%2fsecret", want: domain.LabelPathTraversal},
		{name: "Backslash traversal", url: `/download?file=..\secret`, want: domain.LabelPathTraversal},
		{name: "Etc passwd", url: "/view?p=/etc/passwd", want: domain.LabelPathTraversal},
		{name: "Win ini", url: "/view?p=c:/windows/win.ini", want: domain.LabelPathTraversal},
		{name: "Attack in referrer", url: "/page", referrer: "http://evil/?q=<script>", want: domain.LabelXSS},
		{name: "Static asset", url: "/static/app.js", want: domain.LabelNormal},
		{name: "Static asset uppercase", url: "/IMG/LOGO.PNG", want: domain.LabelNormal},
		{name: "Static extension before query", url: "/x.js?q=<script>", want: domain.LabelXSS},
		{name: "Static suffix hides payload", url: "/x.php?q=<script>/app.js", want: domain.LabelNormal},
		{name: "Referrer decides suffix", url: "/app.js", referrer: "http://evil/?q=<script>", want: domain.LabelXSS},
		{name: "Static asset with referrer", url: "/?q=' or 1=1", referrer: "http://a/b.css", want: domain.LabelNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.url, tt.referrer); got != tt.want {
				t.Errorf("Classify(%q, %q) = %s, want %s", tt.url, tt.referrer, got, tt.want)
			}
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	c := NewDefault()

	tests := []struct {
		name string
		url  string
		want domain.Label
	}{
		{name: "Xss over sql", url: "/q?x=<script>' union select 1", want: domain.LabelXSS},
		{name: "Sql over command", url: "/q?x=select;id", want: domain.LabelSQLInjection},
		{name: "Command over traversal", url: "/q?f=../../etc/passwd;cat", want: domain.LabelCommandInjection},
		{name: "Traversal alone", url: "/q?f=../../etc/passwd", want: domain.LabelPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.url, ""); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassify_CaseAndEncodingInvariance(t *testing.T) {
	c := NewDefault()
	for _, url := range []string{"SELECT * FROM users", "select%20*%20from%20users", "SeLeCt * from USERS"} {
		if got := c.Classify(url, ""); got != domain.LabelSQLInjection {
			t.Errorf("Classify(%q) = %s, want %s", url, got, domain.LabelSQLInjection)
		}
	}
}

func TestClassify_RuleOrderIsData(t *testing.T) {
	rules := DefaultRules()
	// Move sql_injection ahead of xss.
	rules[0], rules[1] = rules[1], rules[0]
	c, err := New(rules, DefaultStaticExtensions())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.Classify("/q?x=<script>'", ""); got != domain.LabelSQLInjection {
		t.Errorf("expected reordered table to yield sql_injection, got %s", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		url, referrer, want string
	}{
		{"/page", "", "/page"},
		{"  /A%20B  ", "", "/a b"},
		{"/q?x=%27", "http://R/", "/q?x=' http://r/"},
		{"/bad%zz%4", "", "/bad%zz%4"},
		{"/%41%2", "", "/a%2"},
		{"/plus+sign", "", "/plus+sign"},
		{"/bin%ff", "", "/bin\uFFFD"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.url, tt.referrer); got != tt.want {
			t.Errorf("Normalize(%q, %q) = %q, want %q", tt.url, tt.referrer, got, tt.want)
		}
	}
}

func TestNew_RejectsBadRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{name: "Unknown label", rules: []Rule{{Label: "csrf", Pattern: "x"}}},
		{name: "Normal label", rules: []Rule{{Label: domain.LabelNormal, Pattern: "x"}}},
		{name: "Bad pattern", rules: []Rule{{Label: domain.LabelXSS, Pattern: "(unclosed"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.rules, nil); err == nil {
				t.Fatal("expected an error, got nil")
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()

	t.Run("Valid file", func(t *testing.T) {
		path := filepath.Join(dir, "rules.yaml")
		content := "rules:\n  - label: path_traversal\n    pattern: 'secret'\n  - label: xss\n    pattern: '(?i)<svg'\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		c, err := FromFile(path)
		if err != nil {
			t.Fatalf("FromFile() error = %v", err)
		}
		if got := c.Classify("/secret?<SVG>", ""); got != domain.LabelPathTraversal {
			t.Errorf("got %s, want %s", got, domain.LabelPathTraversal)
		}
		if got := c.Classify("/secret.css", ""); got != domain.LabelNormal {
			t.Errorf("default static extensions not applied, got %s", got)
		}
	})

	t.Run("No rules", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		if err := os.WriteFile(path, []byte("static_extensions: ['.js']\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, _, err := LoadRules(path); err == nil {
			t.Fatal("expected an error, got nil")
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		if _, _, err := LoadRules(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Fatal("expected an error, got nil")
		}
	})

	t.Run("Empty path uses defaults", func(t *testing.T) {
		c, err := FromFile("")
		if err != nil {
			t.Fatalf("FromFile() error = %v", err)
		}
		if got := c.Classify("/x?<script>", ""); got != domain.LabelXSS {
			t.Errorf("got %s, want %s", got, domain.LabelXSS)
		}
	})
}
