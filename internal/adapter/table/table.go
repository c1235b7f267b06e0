// Package table converts labeled records to and from a header-plus-rows
// tabular form, and reads and writes that form as CSV.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/V4T54L/log-labeler/internal/domain"
)

// Columns is the full column set, in output order.
var Columns = []string{"ip", "timestamp", "method", "url", "protocol", "status", "size", "referrer", "user_agent", "label"}

// ProjectionColumns is the reduced view used for training datasets.
var ProjectionColumns = []string{"url", "referrer", "label"}

// ToTable renders records as a header row followed by one row per record.
// A nil columns slice selects Columns.
func ToTable(records []domain.LabeledRecord, columns []string) ([][]string, error) {
	if columns == nil {
		columns = Columns
	}
	for _, c := range columns {
		if !isKnownColumn(c) {
			return nil, fmt.Errorf("unknown column %q", c)
		}
	}

	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, append([]string(nil), columns...))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = cell(rec, c)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FromTable parses rows produced by ToTable or any table whose first row names
// a subset of Columns. Absent columns and empty cells yield zero values; the
// label, when present and non-empty, must be a known label.
func FromTable(rows [][]string) ([]domain.LabeledRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	for _, c := range header {
		if !isKnownColumn(c) {
			return nil, fmt.Errorf("unknown column %q", c)
		}
	}

	records := make([]domain.LabeledRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", n+1, len(header), len(row))
		}
		var rec domain.LabeledRecord
		for i, c := range header {
			if err := setCell(&rec, c, row[i]); err != nil {
				return nil, fmt.Errorf("row %d: %w", n+1, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []domain.LabeledRecord, columns []string) error {
	rows, err := ToTable(records, columns)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ReadCSV reads records written by WriteCSV.
func ReadCSV(r io.Reader) ([]domain.LabeledRecord, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return FromTable(rows)
}

func isKnownColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

func cell(rec domain.LabeledRecord, column string) string {
	switch column {
	case "ip":
		return rec.IP
	case "timestamp":
		return rec.Timestamp
	case "method":
		return rec.Method
	case "url":
		return rec.URL
	case "protocol":
		return rec.Protocol
	case "status":
		return strconv.Itoa(rec.Status)
	case "size":
		return strconv.FormatInt(rec.Size, 10)
	case "referrer":
		return rec.Referrer
	case "user_agent":
		return rec.UserAgent
	case "label":
		return string(rec.Label)
	}
	return ""
}

func setCell(rec *domain.LabeledRecord, column, value string) error {
	var err error
	switch column {
	case "ip":
		rec.IP = value
	case "timestamp":
		rec.Timestamp = value
	case "method":
		rec.Method = value
	case "url":
		rec.URL = value
	case "protocol":
		rec.Protocol = value
	case "status":
		if value != "" {
			rec.Status, err = strconv.Atoi(value)
		}
	case "size":
		if value != "" {
			rec.Size, err = strconv.ParseInt(value, 10, 64)
		}
	case "referrer":
		rec.Referrer = value
	case "user_agent":
		rec.UserAgent = value
	case "label":
		if value != "" {
			rec.Label, err = domain.ParseLabel(value)
		}
	}
	if err != nil {
		return fmt.Errorf("column %s: %w", column, err)
	}
	return nil
}
