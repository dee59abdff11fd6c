package guard

import (
	"context"
	"sync"

	"github.com/satyamahesh03/misuseguard/pkg/detect"
)

// Outcome is the user's response to an opened notification.
type Outcome string

const (
	OutcomeDismissed     Outcome = "dismissed"
	OutcomeUndoRequested Outcome = "undo_requested"
	OutcomeTimedOut      Outcome = "timed_out"
)

// Notification is the payload handed to the notification surface.
type Notification struct {
	ID           string         `json:"id"`
	Surface      SurfaceKey     `json:"surface"`
	Verdict      detect.Verdict `json:"verdict"`
	OriginalText string         `json:"-"`
}

// Notifier renders a notification and blocks until the user responds
// or ctx expires. Implementations must return OutcomeTimedOut on
// expiry, never block past it.
type Notifier interface {
	Open(ctx context.Context, n Notification) Outcome
}

// ChannelNotifier bridges the notification surface over an API: Open
// parks the episode on a channel, a transport handler resolves it by
// id. Unresolved notifications time out through ctx.
type ChannelNotifier struct {
	mu      sync.Mutex
	pending map[string]*pendingNotification
}

type pendingNotification struct {
	n  Notification
	ch chan Outcome
}

// NewChannelNotifier creates an empty notifier.
func NewChannelNotifier() *ChannelNotifier {
	return &ChannelNotifier{pending: make(map[string]*pendingNotification)}
}

func (cn *ChannelNotifier) Open(ctx context.Context, n Notification) Outcome {
	p := &pendingNotification{n: n, ch: make(chan Outcome, 1)}

	cn.mu.Lock()
	cn.pending[n.ID] = p
	cn.mu.Unlock()

	defer func() {
		cn.mu.Lock()
		delete(cn.pending, n.ID)
		cn.mu.Unlock()
	}()

	select {
	case out := <-p.ch:
		return out
	case <-ctx.Done():
		return OutcomeTimedOut
	}
}

// Resolve delivers the user's choice for an open notification.
// Returns false when the id is unknown or already resolved.
func (cn *ChannelNotifier) Resolve(id string, out Outcome) bool {
	cn.mu.Lock()
	p, ok := cn.pending[id]
	if ok {
		delete(cn.pending, id)
	}
	cn.mu.Unlock()
	if !ok {
		return false
	}
	p.ch <- out
	return true
}

// Pending lists currently open notifications, for polling clients.
func (cn *ChannelNotifier) Pending() []Notification {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	out := make([]Notification, 0, len(cn.pending))
	for _, p := range cn.pending {
		out = append(out, p.n)
	}
	return out
}
