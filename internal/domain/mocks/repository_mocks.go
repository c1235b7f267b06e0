package mocks

import (
	"context"
	"sync"

	"github.com/V4T54L/log-labeler/internal/domain"
)

// MockSink is a mock implementation of domain.LabeledRecordSink for testing.
type MockSink struct {
	mu         sync.Mutex
	SinkName   string
	Written    []domain.LabeledRecord
	Offsets    []int
	RunIDs     []string
	Calls      int
	WriteErr   error
	FailFirstN int // fail this many calls with WriteErr, then succeed
}

func (m *MockSink) Name() string {
	if m.SinkName == "" {
		return "mock"
	}
	return m.SinkName
}

func (m *MockSink) WriteBatch(ctx context.Context, runID string, offset int, records []domain.LabeledRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.WriteErr != nil && (m.FailFirstN == 0 || m.Calls <= m.FailFirstN) {
		return m.WriteErr
	}
	m.RunIDs = append(m.RunIDs, runID)
	m.Offsets = append(m.Offsets, offset)
	m.Written = append(m.Written, records...)
	return nil
}

// MockLineSource is a mock implementation of domain.LineSource.
type MockLineSource struct {
	Lines   map[string][]string
	ReadErr error
}

func (m *MockLineSource) ReadLines(ctx context.Context, path string) ([]string, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.Lines[path], nil
}

// MockWAL is an in-memory domain.WALRepository.
type MockWAL struct {
	mu       sync.Mutex
	Records  []domain.SpooledRecord
	WriteErr error
}

func (m *MockWAL) Write(ctx context.Context, rec domain.SpooledRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockWAL) Replay(ctx context.Context, handler func(rec domain.SpooledRecord) error) error {
	m.mu.Lock()
	recs := append([]domain.SpooledRecord(nil), m.Records...)
	m.mu.Unlock()
	for _, r := range recs {
		if err := handler(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockWAL) Truncate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = nil
	return nil
}
