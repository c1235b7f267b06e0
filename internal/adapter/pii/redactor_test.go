package pii

import (
	"io"
	"log/slog"
	"testing"

	"github.com/V4T54L/log-labeler/internal/domain"
)

func TestRedactor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redactor := NewRedactor([]string{"password", " Token "}, logger)

	tests := []struct {
		name             string
		url              string
		referrer         string
		expectedURL      string
		expectedReferrer string
		expectRedacted   bool
	}{
		{
			name:           "Redact single param",
			url:            "/login?user=bob&password=hunter2",
			expectedURL:    "/login?user=bob&password=[REDACTED]",
			expectRedacted: true,
		},
		{
			name:             "Redact url and referrer",
			url:              "/cb?TOKEN=abc",
			referrer:         "http://a/?token=xyz&x=1",
			expectedURL:      "/cb?TOKEN=[REDACTED]",
			expectedReferrer: "http://a/?token=[REDACTED]&x=1",
			expectRedacted:   true,
		},
		{
			name:           "No params to redact",
			url:            "/search?q=%27+or+1=1",
			expectedURL:    "/search?q=%27+or+1=1",
			expectRedacted: false,
		},
		{
			name:           "No query string",
			url:            "/password",
			expectedURL:    "/password",
			expectRedacted: false,
		},
		{
			name:           "Param without value",
			url:            "/x?password",
			expectedURL:    "/x?password",
			expectRedacted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &domain.LabeledRecord{
				LogRecord: domain.LogRecord{URL: tt.url, Referrer: tt.referrer},
				Label:     domain.LabelNormal,
			}

			got := redactor.Redact(rec)

			if got != tt.expectRedacted {
				t.Errorf("Redact() = %v, want %v", got, tt.expectRedacted)
			}
			if rec.URL != tt.expectedURL {
				t.Errorf("url = %q, want %q", rec.URL, tt.expectedURL)
			}
			if rec.Referrer != tt.expectedReferrer {
				t.Errorf("referrer = %q, want %q", rec.Referrer, tt.expectedReferrer)
			}
			if rec.Label != domain.LabelNormal {
				t.Errorf("label changed to %s", rec.Label)
			}
		})
	}
}

func TestRedactor_NoParams(t *testing.T) {
	redactor := NewRedactor(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := &domain.LabeledRecord{LogRecord: domain.LogRecord{URL: "/x?password=1"}}
	if redactor.Redact(rec) {
		t.Error("expected no redaction with an empty parameter set")
	}
}
