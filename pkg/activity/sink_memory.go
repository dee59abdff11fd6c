package activity

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemorySink keeps entries in memory. Used in tests and as the
// fallback when no durable sink is configured.
type MemorySink struct {
	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{entries: make(map[string]*Entry)}
}

func (s *MemorySink) Name() string { return "memory" }

func (s *MemorySink) InsertPending(_ context.Context, e *Entry) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("entry missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return fmt.Errorf("duplicate entry id %s", e.ID)
	}
	cp := *e
	cp.Status = StatusPending
	s.entries[e.ID] = &cp
	s.order = append(s.order, e.ID)
	return nil
}

func (s *MemorySink) MarkFinalized(_ context.Context, id string) error {
	return s.resolve(id, StatusFinalized)
}

func (s *MemorySink) MarkUndone(_ context.Context, id string) error {
	return s.resolve(id, StatusUndone)
}

func (s *MemorySink) resolve(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	if e.Status != StatusPending {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, e.Status)
	}
	now := time.Now().UTC()
	e.Status = status
	e.ResolvedAt = &now
	return nil
}

func (s *MemorySink) Recent(_ context.Context, limit int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Entry
	for i := len(s.order) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		cp := *s.entries[s.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemorySink) Close(_ context.Context) error { return nil }
