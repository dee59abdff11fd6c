// Package guard runs the per-surface mitigation state machine. Each
// observed input surface moves through IDLE, ANALYZING, MITIGATED and
// PROTECTED; verdicts are applied in generation order, a cleared
// surface can be restored exactly once, and a restored surface is not
// re-analyzed until it is emptied again.
package guard

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/satyamahesh03/misuseguard/pkg/activity"
	"github.com/satyamahesh03/misuseguard/pkg/config"
	"github.com/satyamahesh03/misuseguard/pkg/detect"
	"github.com/satyamahesh03/misuseguard/pkg/httputil"
	"github.com/satyamahesh03/misuseguard/pkg/telemetry"
)

// Phase is the lifecycle state of one surface.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseAnalyzing Phase = "ANALYZING"
	PhaseMitigated Phase = "MITIGATED"
	PhaseProtected Phase = "PROTECTED"
)

// fieldState is the consolidated per-surface record: phase,
// generation counter, protection flag and episode bookkeeping all
// live here under one mutex, so two completions for the same surface
// can never interleave.
type fieldState struct {
	mu sync.Mutex

	key        SurfaceKey
	phase      Phase
	generation uint64
	protection bool

	lastText    string
	lastEventAt time.Time

	restoredText string

	cleared   *ClearedContentRecord
	pendingID string
}

// Guard owns the surface map and drives mitigation episodes.
type Guard struct {
	cfg      *config.Config
	cascade  *detect.Cascade
	actuator Actuator
	notifier Notifier
	sink     activity.Sink
	sem      *httputil.Semaphore

	mu     sync.Mutex
	fields map[string]*fieldState

	notifyMu   sync.Mutex
	lastNotify time.Time
}

// New wires a guard over its collaborators.
func New(cfg *config.Config, cascade *detect.Cascade, actuator Actuator, notifier Notifier, sink activity.Sink) *Guard {
	return &Guard{
		cfg:      cfg,
		cascade:  cascade,
		actuator: actuator,
		notifier: notifier,
		sink:     sink,
		sem:      httputil.NewSemaphore(cfg.AnalysisWorkers),
		fields:   make(map[string]*fieldState),
	}
}

func (g *Guard) field(key SurfaceKey) *fieldState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.fields[key.Key()]
	if !ok {
		st = &fieldState{key: key, phase: PhaseIdle}
		g.fields[key.Key()] = st
	}
	return st
}

// Phase reports the current phase of a surface.
func (g *Guard) Phase(key SurfaceKey) Phase {
	st := g.field(key)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.phase
}

// Forget evicts a surface that is no longer observed.
func (g *Guard) Forget(key SurfaceKey) {
	g.mu.Lock()
	delete(g.fields, key.Key())
	g.mu.Unlock()
}

// AnalysisStats reports the analysis scheduler's occupancy.
func (g *Guard) AnalysisStats() httputil.SemaphoreStats {
	return g.sem.Stats()
}

// HandleEvent ingests one text-change event. It never blocks on
// classification: qualifying events start an asynchronous analysis
// and return immediately.
func (g *Guard) HandleEvent(ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	st := g.field(ev.Surface)
	reg := g.cascade.Snapshot().Registry

	st.mu.Lock()
	defer st.mu.Unlock()

	// The event source may deliver duplicates and out-of-order
	// observations; anything older than the last seen timestamp is a
	// stale delivery.
	if !ev.ObservedAt.IsZero() && ev.ObservedAt.Before(st.lastEventAt) {
		return nil
	}
	if !ev.ObservedAt.IsZero() {
		st.lastEventAt = ev.ObservedAt
	}

	if st.phase == PhaseProtected {
		// The sole function of PROTECTED: ignore everything until
		// the surface is emptied, so restored content is never
		// re-mitigated.
		if isEmptyText(reg, ev.Text) {
			g.toIdleLocked(st, "surface emptied, protection lifted")
		}
		return nil
	}

	if st.phase == PhaseMitigated {
		// An episode is resolving; the notification outcome decides
		// the next phase.
		return nil
	}

	if ev.Text == st.lastText {
		return nil
	}
	if st.restoredText != "" && ev.Text == st.restoredText {
		return nil
	}
	st.lastText = ev.Text

	if isEmptyText(reg, ev.Text) {
		// Emptying the field supersedes any in-flight analysis.
		st.generation++
		st.phase = PhaseIdle
		return nil
	}

	st.generation++
	st.phase = PhaseAnalyzing
	gen := st.generation
	go g.analyze(st, gen, ev.Text)
	return nil
}

func (g *Guard) toIdleLocked(st *fieldState, reason string) {
	st.phase = PhaseIdle
	st.protection = false
	st.restoredText = ""
	st.lastText = ""
	st.cleared = nil
	st.pendingID = ""
	log.Printf("[GUARD] %s -> IDLE: %s", st.key, reason)
}

func (g *Guard) analyze(st *fieldState, gen uint64, text string) {
	if !g.sem.TryAcquire() {
		log.Printf("[WARN] analysis capacity exhausted, dropping event for %s", st.key)
		st.mu.Lock()
		if st.generation == gen && st.phase == PhaseAnalyzing {
			st.phase = PhaseIdle
		}
		st.mu.Unlock()
		return
	}
	defer g.sem.Release()

	v := g.cascade.ClassifyContext(context.Background(), text)
	g.apply(st, gen, text, v)
}

// apply consumes a completed verdict. Stale generations are discarded
// unapplied; a flagging verdict at or above the mitigation threshold
// starts a mitigation episode.
func (g *Guard) apply(st *fieldState, gen uint64, triggerText string, v detect.Verdict) {
	st.mu.Lock()
	if st.generation != gen {
		st.mu.Unlock()
		log.Printf("[GUARD] stale verdict for %s (generation %d < %d), discarded", st.key, gen, st.generation)
		return
	}
	if st.phase != PhaseAnalyzing {
		st.mu.Unlock()
		return
	}
	if !v.IsMisuse || v.Confidence < g.cfg.MitigationThreshold {
		st.phase = PhaseIdle
		st.mu.Unlock()
		return
	}

	// MITIGATED: the record captures the trigger-time text, not
	// whatever the surface holds now.
	rec := &ClearedContentRecord{
		Surface:      st.key,
		OriginalText: triggerText,
		CapturedAt:   time.Now().UTC(),
	}
	entry := activity.NewEntry(st.key.Key(), triggerText, v.Category, v.Confidence)
	st.phase = PhaseMitigated
	st.cleared = rec
	st.pendingID = entry.ID
	st.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.actuator.Clear(ctx, st.key); err != nil {
		// The notification still opens so the user is informed even
		// if erasure could not be confirmed.
		log.Printf("[WARN] %s: %v", st.key, err)
	}
	if err := g.sink.InsertPending(ctx, entry); err != nil {
		log.Printf("[WARN] activity insert failed for %s: %v", st.key, err)
	}
	if telemetry.GlobalClient != nil {
		telemetry.GlobalClient.Track("mitigation", map[string]interface{}{
			"surface":  st.key.Key(),
			"category": string(v.Category),
		})
	}

	go g.runEpisode(st, rec, entry.ID, v)
}

// runEpisode owns a mitigation from notification to resolution. It
// terminates in IDLE (finalized) or PROTECTED (confirmed restore).
func (g *Guard) runEpisode(st *fieldState, rec *ClearedContentRecord, entryID string, v detect.Verdict) {
	n := Notification{
		ID:           entryID,
		Surface:      rec.Surface,
		Verdict:      v,
		OriginalText: rec.OriginalText,
	}

	for {
		g.awaitCooldown()

		ctx, cancel := context.WithTimeout(context.Background(), g.cfg.AutoDismissAfter)
		outcome := g.notifier.Open(ctx, n)
		cancel()

		if outcome != OutcomeUndoRequested {
			g.finalize(st, entryID)
			return
		}

		rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := g.actuator.Restore(rctx, rec.Surface, rec.OriginalText)
		rcancel()
		if err != nil {
			// Protection is only granted on a confirmed write. The
			// notification reopens so the user can retry or dismiss.
			log.Printf("[WARN] %s: %v", rec.Surface, err)
			continue
		}

		st.mu.Lock()
		st.phase = PhaseProtected
		st.protection = true
		st.restoredText = rec.OriginalText
		st.lastText = rec.OriginalText
		st.cleared = nil
		st.pendingID = ""
		st.mu.Unlock()

		mctx, mcancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := g.sink.MarkUndone(mctx, entryID); err != nil {
			log.Printf("[WARN] activity undo mark failed for %s: %v", entryID, err)
		}
		mcancel()
		log.Printf("[GUARD] %s restored and protected", rec.Surface)
		return
	}
}

func (g *Guard) finalize(st *fieldState, entryID string) {
	st.mu.Lock()
	st.phase = PhaseIdle
	st.cleared = nil
	st.pendingID = ""
	// The surface was cleared, so the next observation starts fresh.
	st.lastText = ""
	st.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.sink.MarkFinalized(ctx, entryID); err != nil {
		log.Printf("[WARN] activity finalize failed for %s: %v", entryID, err)
	}
}

// awaitCooldown serializes notification openings: a mitigation
// arriving inside the cooldown window has already cleared and logged,
// only its UI artifact is deferred.
func (g *Guard) awaitCooldown() {
	for {
		g.notifyMu.Lock()
		since := time.Since(g.lastNotify)
		if since >= g.cfg.NotificationCooldown {
			g.lastNotify = time.Now()
			g.notifyMu.Unlock()
			return
		}
		wait := g.cfg.NotificationCooldown - since
		g.notifyMu.Unlock()
		time.Sleep(wait)
	}
}
