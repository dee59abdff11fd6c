package detect

import (
	"sync"
	"sync/atomic"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// Stats tracks classification totals for the stats endpoint.
type Stats struct {
	total   atomic.Int64
	flagged atomic.Int64

	mu         sync.Mutex
	byCategory map[patterns.Category]int64
	byTier     map[string]int64
}

// NewStats creates an empty counter set.
func NewStats() *Stats {
	return &Stats{
		byCategory: make(map[patterns.Category]int64),
		byTier:     make(map[string]int64),
	}
}

// Record counts one verdict.
func (s *Stats) Record(v Verdict) {
	s.total.Add(1)
	s.mu.Lock()
	s.byTier[v.Tier]++
	if v.IsMisuse {
		s.byCategory[v.Category]++
	}
	s.mu.Unlock()
	if v.IsMisuse {
		s.flagged.Add(1)
	}
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Total      int64                       `json:"total"`
	Flagged    int64                       `json:"flagged"`
	ByCategory map[patterns.Category]int64 `json:"by_category"`
	ByTier     map[string]int64            `json:"by_tier"`
}

// Snapshot copies the counters for reporting.
func (s *Stats) Snapshot() StatsSnapshot {
	out := StatsSnapshot{
		Total:      s.total.Load(),
		Flagged:    s.flagged.Load(),
		ByCategory: make(map[patterns.Category]int64),
		ByTier:     make(map[string]int64),
	}
	s.mu.Lock()
	for k, v := range s.byCategory {
		out.ByCategory[k] = v
	}
	for k, v := range s.byTier {
		out.ByTier[k] = v
	}
	s.mu.Unlock()
	return out
}
