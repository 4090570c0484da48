package storage

import (
	"context"
	"sync"
	"time"

	"github.com/navid-fn/skywatch/internal/models"
)

// Memory keeps rows in process. It is its own Connector.
type Memory struct {
	mu     sync.Mutex
	rows   []models.Row
	events []models.MovementEvent
	loc    *time.Location
}

// NewMemory returns an empty store rendering times in loc.
func NewMemory(loc *time.Location) *Memory {
	if loc == nil {
		loc = time.UTC
	}
	return &Memory{loc: loc}
}

func (m *Memory) Connect(context.Context) (EventStore, error) { return m, nil }
func (m *Memory) Ping(context.Context) error                  { return nil }

// Seed appends raw rows, as if written by an earlier process.
func (m *Memory) Seed(rows ...models.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
}

func (m *Memory) ReadRecent(_ context.Context, w Window) ([]models.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := 0
	if w.Rows > 0 && len(m.rows) > w.Rows {
		start = len(m.rows) - w.Rows
	}
	out := make([]models.Row, len(m.rows)-start)
	copy(out, m.rows[start:])
	return out, nil
}

func (m *Memory) Append(_ context.Context, events []models.MovementEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		m.rows = append(m.rows, e.Row(m.loc))
		m.events = append(m.events, e)
	}
	return nil
}

// Events returns every event appended through Append.
func (m *Memory) Events() []models.MovementEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MovementEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Len returns the number of stored rows.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
