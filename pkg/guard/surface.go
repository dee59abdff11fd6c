package guard

import (
	"fmt"
	"time"
)

// SurfaceKey identifies one monitored input surface: an editable
// widget inside a host application or page.
type SurfaceKey struct {
	App   string `json:"app"`
	Field string `json:"field"`
}

// Key returns the map key form.
func (k SurfaceKey) Key() string { return k.App + "/" + k.Field }

func (k SurfaceKey) String() string { return k.Key() }

// Event is one observed text change on a surface.
type Event struct {
	Surface    SurfaceKey `json:"surface"`
	Text       string     `json:"text"`
	ObservedAt time.Time  `json:"observed_at"`
}

// Validate rejects events with no addressable surface.
func (e Event) Validate() error {
	if e.Surface.App == "" || e.Surface.Field == "" {
		return fmt.Errorf("event surface incomplete: %+v", e.Surface)
	}
	return nil
}

// ClearedContentRecord preserves the text a mitigation erased so a
// single undo can put it back. At most one live record per surface.
type ClearedContentRecord struct {
	Surface      SurfaceKey
	OriginalText string
	CapturedAt   time.Time
}
