package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/V4T54L/log-labeler/internal/domain"
)

func testRecords() []domain.LabeledRecord {
	return []domain.LabeledRecord{
		{
			LogRecord: domain.LogRecord{
				IP: "10.0.0.1", Timestamp: "01/Jan/2024:00:00:00 +0000", Method: "GET",
				URL: "/login.php?id=1'", Protocol: "OR 1=1-- HTTP/1.1", Status: 200, Size: 512,
				UserAgent: "curl/7.68.0",
			},
			Label: domain.LabelSQLInjection,
		},
		{
			LogRecord: domain.LogRecord{
				IP: "10.0.0.2", Timestamp: "t", Method: "GET", URL: "/a,b", Protocol: "HTTP/1.1",
				Status: 404, Referrer: `http://x/"quoted"`, UserAgent: "Mozilla/5.0 (X11; Linux)",
			},
			Label: domain.LabelNormal,
		},
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	records := testRecords()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "ip,timestamp,method,url,protocol,status,size,referrer,user_agent,label\n") {
		t.Errorf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(got))
	}
	for i := range records {
		if got[i] != records[i] {
			t.Errorf("record %d mismatch: got %+v, want %+v", i, got[i], records[i])
		}
	}
}

func TestToTable_Projection(t *testing.T) {
	rows, err := ToTable(testRecords(), ProjectionColumns)
	if err != nil {
		t.Fatalf("ToTable() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	want := []string{"/login.php?id=1'", "", "sql_injection"}
	for i := range want {
		if rows[1][i] != want[i] {
			t.Errorf("cell %d = %q, want %q", i, rows[1][i], want[i])
		}
	}

	back, err := FromTable(rows)
	if err != nil {
		t.Fatalf("FromTable() error = %v", err)
	}
	if back[0].URL != "/login.php?id=1'" || back[0].Label != domain.LabelSQLInjection || back[0].IP != "" {
		t.Errorf("unexpected projected record: %+v", back[0])
	}
}

func TestFromTable_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{name: "Unknown column", rows: [][]string{{"url", "color"}, {"/", "red"}}},
		{name: "Short row", rows: [][]string{{"url", "label"}, {"/"}}},
		{name: "Bad status", rows: [][]string{{"status"}, {"ok"}}},
		{name: "Bad label", rows: [][]string{{"label"}, {"csrf"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromTable(tt.rows); err == nil {
				t.Fatal("expected an error, got nil")
			}
		})
	}
}

func TestToTable_UnknownColumn(t *testing.T) {
	if _, err := ToTable(testRecords(), []string{"url", "nope"}); err == nil {
		t.Fatal("expected an error, got nil")
	}
}

func TestFromTable_EmptyCells(t *testing.T) {
	records, err := FromTable([][]string{{"url", "referrer", "status", "label"}, {"", "", "", ""}})
	if err != nil {
		t.Fatalf("FromTable() error = %v", err)
	}
	if records[0].URL != "" || records[0].Referrer != "" || records[0].Status != 0 || records[0].Label != "" {
		t.Errorf("expected zero values, got %+v", records[0])
	}
}
