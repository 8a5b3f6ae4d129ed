package store

import (
	"context"
	"sync"
	"time"
)

// Record is the durable shape of one turn. The session's in-memory sequence
// stays authoritative for the live view; the store is the append-only copy.
type Record struct {
	Content     string    `json:"message"`
	IsAssistant bool      `json:"is_assistant"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Store persists turns. Insert is called exactly once per turn, in causal
// order, and is never retried by the pipeline.
type Store interface {
	Insert(ctx context.Context, rec Record) error
}

// Memory is an in-process Store for tests and credential-less runs.
type Memory struct {
	mu      sync.Mutex
	records []Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Insert appends the record.
func (m *Memory) Insert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything inserted so far.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}
