package detect

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// fakeEngine returns a canned verdict or error, optionally after a delay.
type fakeEngine struct {
	name    string
	verdict *Verdict
	err     error
	delay   time.Duration
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Score(ctx context.Context, text string) (*Verdict, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ErrAnalysisTimeout
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.verdict, nil
}

func misuseVerdict(cat patterns.Category, conf float64) *Verdict {
	v := newVerdict(cat, conf, TierEnsemble, "remote flag")
	return &v
}

func safeRemoteVerdict() *Verdict {
	v := newVerdict(patterns.CategoryNone, 0.9, TierEnsemble, "remote pass")
	return &v
}

func localMisuse(conf float64) Verdict {
	return newVerdict(patterns.CategoryHarmful, conf, TierHighRisk, "local flag")
}

func localSafe() Verdict {
	return newVerdict(patterns.CategoryNone, 0.3, TierVector, "local pass")
}

func TestEnsembleNoEnginesReturnsLocal(t *testing.T) {
	e := NewEnsemble(nil, nil, time.Second, 0.6, 3)
	local := localMisuse(0.95)
	got := e.Combine(context.Background(), "text", local)
	if !reflect.DeepEqual(got, local) {
		t.Errorf("got %+v, want local verdict unmodified", got)
	}
}

func TestEnsembleAllEnginesFailReturnsLocal(t *testing.T) {
	engines := []Engine{
		&fakeEngine{name: "broken", err: ErrAnalysisFailure},
		&fakeEngine{name: "slow", delay: time.Second},
	}
	e := NewEnsemble(engines, nil, 10*time.Millisecond, 0.6, 3)

	local := localMisuse(0.95)
	got := e.Combine(context.Background(), "text", local)
	if !reflect.DeepEqual(got, local) {
		t.Errorf("got %+v, want local verdict unmodified when no engine survives", got)
	}
}

func TestEnsembleTimeoutExcludesEngineOnly(t *testing.T) {
	engines := []Engine{
		&fakeEngine{name: "slow", delay: time.Second},
		&fakeEngine{name: "fast", verdict: misuseVerdict(patterns.CategoryHacking, 0.9)},
	}
	e := NewEnsemble(engines, nil, 10*time.Millisecond, 0.6, 3)

	got := e.Combine(context.Background(), "text", localMisuse(0.8))
	if !got.IsMisuse {
		t.Fatalf("surviving engine plus local should flag, got %+v", got)
	}
	if got.Tier != TierEnsemble {
		t.Errorf("tier = %s, want %s", got.Tier, TierEnsemble)
	}
	// (0.9 + 0.8) / 2 participants at equal weight.
	if got.Confidence < 0.84 || got.Confidence > 0.86 {
		t.Errorf("confidence = %v, want 0.85", got.Confidence)
	}
}

func TestEnsembleFailureIsNotASafeVote(t *testing.T) {
	// One engine errors, one flags. The error must be excluded from
	// the denominator rather than diluting the flag.
	engines := []Engine{
		&fakeEngine{name: "broken", err: ErrAnalysisFailure},
		&fakeEngine{name: "flagger", verdict: misuseVerdict(patterns.CategoryDeepfake, 0.95)},
	}
	e := NewEnsemble(engines, nil, time.Second, 0.6, 3)

	got := e.Combine(context.Background(), "text", localMisuse(0.95))
	if !got.IsMisuse {
		t.Errorf("got %+v, want misuse", got)
	}
}

func TestEnsembleBelowThresholdReportsSafe(t *testing.T) {
	engines := []Engine{
		&fakeEngine{name: "a", verdict: safeRemoteVerdict()},
		&fakeEngine{name: "b", verdict: misuseVerdict(patterns.CategoryHacking, 0.7)},
	}
	e := NewEnsemble(engines, nil, time.Second, 0.6, 3)

	// Weighted sum: 0.7 / 3 participants = 0.23, under threshold.
	got := e.Combine(context.Background(), "text", localSafe())
	if got.IsMisuse {
		t.Errorf("got %+v, want safe verdict below threshold", got)
	}
	if got.Category != patterns.CategoryNone {
		t.Errorf("category = %s, want %s", got.Category, patterns.CategoryNone)
	}
}

func TestEnsembleCategoryFromHighestConfidenceFlagger(t *testing.T) {
	engines := []Engine{
		&fakeEngine{name: "a", verdict: misuseVerdict(patterns.CategoryHacking, 0.85)},
		&fakeEngine{name: "b", verdict: misuseVerdict(patterns.CategoryDeepfake, 0.99)},
	}
	e := NewEnsemble(engines, nil, time.Second, 0.6, 3)

	got := e.Combine(context.Background(), "text", localMisuse(0.8))
	if !got.IsMisuse {
		t.Fatalf("got %+v, want misuse", got)
	}
	if got.Category != patterns.CategoryDeepfake {
		t.Errorf("category = %s, want %s (highest-confidence flagger)", got.Category, patterns.CategoryDeepfake)
	}
}

func TestEnsembleWeights(t *testing.T) {
	engines := []Engine{
		&fakeEngine{name: "heavy", verdict: misuseVerdict(patterns.CategoryHacking, 0.9)},
	}
	weights := map[string]float64{
		"heavy":         3,
		LocalEngineName: 1,
	}
	e := NewEnsemble(engines, weights, time.Second, 0.6, 3)

	// (3*0.9 + 1*0.0) / 4 = 0.675 > 0.6 even though local passed.
	got := e.Combine(context.Background(), "text", localSafe())
	if !got.IsMisuse {
		t.Errorf("got %+v, want heavy engine to carry the decision", got)
	}
}

func TestEnsembleSuggestionsMergedAndCapped(t *testing.T) {
	a := misuseVerdict(patterns.CategoryHacking, 0.95)
	a.Suggestions = []string{"one", "two", "dup"}
	b := misuseVerdict(patterns.CategoryHacking, 0.9)
	b.Suggestions = []string{"dup", "three", "four"}

	engines := []Engine{
		&fakeEngine{name: "a", verdict: a},
		&fakeEngine{name: "b", verdict: b},
	}
	e := NewEnsemble(engines, nil, time.Second, 0.6, 3)

	got := e.Combine(context.Background(), "text", localMisuse(0.95))
	if len(got.Suggestions) > 3 {
		t.Errorf("suggestions = %v, want at most 3", got.Suggestions)
	}
	seen := map[string]bool{}
	for _, s := range got.Suggestions {
		if seen[s] {
			t.Errorf("duplicate suggestion %q", s)
		}
		seen[s] = true
	}
}
