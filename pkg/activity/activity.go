// Package activity records mitigation events. Every clear produces a
// pending entry; the entry is later finalized (content stayed cleared)
// or marked undone (user restored it), never both.
package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// Entry statuses. A pending entry moves to exactly one terminal state.
const (
	StatusPending   = "pending"
	StatusFinalized = "finalized"
	StatusUndone    = "undone"
)

var (
	// ErrNotFound reports an unknown entry id.
	ErrNotFound = errors.New("activity entry not found")
	// ErrAlreadyResolved reports a second terminal transition on the
	// same entry.
	ErrAlreadyResolved = errors.New("activity entry already resolved")
)

// Entry is one mitigation event.
type Entry struct {
	ID         string            `json:"id"`
	Surface    string            `json:"surface"`
	Text       string            `json:"text"`
	Category   patterns.Category `json:"category"`
	Confidence float64           `json:"confidence"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
}

// NewEntry builds a pending entry with a fresh id.
func NewEntry(surface, text string, category patterns.Category, confidence float64) *Entry {
	return &Entry{
		ID:         uuid.NewString(),
		Surface:    surface,
		Text:       text,
		Category:   category,
		Confidence: confidence,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// Sink persists entries and their terminal transitions.
type Sink interface {
	// Name identifies the sink in startup logs.
	Name() string
	// InsertPending stores a new pending entry.
	InsertPending(ctx context.Context, e *Entry) error
	// MarkFinalized moves a pending entry to finalized.
	MarkFinalized(ctx context.Context, id string) error
	// MarkUndone moves a pending entry to undone.
	MarkUndone(ctx context.Context, id string) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]*Entry, error)
	// Close flushes and releases the sink.
	Close(ctx context.Context) error
}
