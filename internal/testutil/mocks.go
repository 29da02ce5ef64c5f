// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"log/slog"
	"sync"

	"semval/internal/domain"
)

// === Query Executor Mock ===

// MockQueryExecutor implements domain.QueryExecutor for testing.
// It is safe for concurrent use.
type MockQueryExecutor struct {
	ExecuteFn func(ctx context.Context, query string) (*domain.ResultSet, error)
	CloseFn   func() error

	mu      sync.Mutex
	queries []string // collected queries for assertions
	closed  int
}

// Execute implements the interface method for testing. Without ExecuteFn it
// returns an empty result set.
func (m *MockQueryExecutor) Execute(ctx context.Context, query string) (*domain.ResultSet, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, query)
	}
	return &domain.ResultSet{}, nil
}

// Close implements the interface method for testing.
func (m *MockQueryExecutor) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	if m.CloseFn != nil {
		return m.CloseFn()
	}
	return nil
}

// Queries returns a copy of the queries executed so far.
func (m *MockQueryExecutor) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// CloseCount returns how many times Close was called.
func (m *MockQueryExecutor) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ domain.QueryExecutor = (*MockQueryExecutor)(nil)

// === Connector Factory Mock ===

// MockConnectorFactory hands out a fixed executor, or calls OpenFn when set.
type MockConnectorFactory struct {
	OpenFn   func(ctx context.Context, account string) (domain.QueryExecutor, error)
	Executor domain.QueryExecutor
	Accounts []string // collected account identifiers
}

// Open implements warehouse.ConnectorFactory for testing.
func (m *MockConnectorFactory) Open(ctx context.Context, account string) (domain.QueryExecutor, error) {
	m.Accounts = append(m.Accounts, account)
	if m.OpenFn != nil {
		return m.OpenFn(ctx, account)
	}
	if m.Executor != nil {
		return m.Executor, nil
	}
	panic("unexpected call to MockConnectorFactory.Open")
}

// === Log Recorder ===

// RecordingHandler is a slog.Handler that keeps every record it receives.
type RecordingHandler struct {
	mu      *sync.Mutex
	records *[]slog.Record
	attrs   []slog.Attr
}

// NewRecordingHandler returns an empty RecordingHandler.
func NewRecordingHandler() *RecordingHandler {
	return &RecordingHandler{mu: &sync.Mutex{}, records: &[]slog.Record{}}
}

// Enabled implements slog.Handler. Every level is recorded.
func (h *RecordingHandler) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (h *RecordingHandler) Handle(_ context.Context, r slog.Record) error {
	r = r.Clone()
	r.AddAttrs(h.attrs...)
	h.mu.Lock()
	*h.records = append(*h.records, r)
	h.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler.
func (h *RecordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RecordingHandler{
		mu:      h.mu,
		records: h.records,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *RecordingHandler) WithGroup(string) slog.Handler { return h }

// Messages returns the messages of records at or above level, in order.
func (h *RecordingHandler) Messages(level slog.Level) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range *h.records {
		if r.Level >= level {
			out = append(out, r.Message)
		}
	}
	return out
}

// Attr returns the value of key on the first record that carries it.
func (h *RecordingHandler) Attr(key string) (slog.Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range *h.records {
		var (
			v     slog.Value
			found bool
		)
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				v, found = a.Value, true
				return false
			}
			return true
		})
		if found {
			return v, true
		}
	}
	return slog.Value{}, false
}
