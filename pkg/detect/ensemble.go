package detect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// Error taxonomy for remote engines. Both exclude the engine from the
// combination; neither is treated as a safe vote.
var (
	ErrAnalysisTimeout = errors.New("analysis timed out")
	ErrAnalysisFailure = errors.New("analysis failed")
)

// Engine is one independent scoring backend consulted by the ensemble.
type Engine interface {
	// Name identifies the engine in weights, logs and rationale.
	Name() string
	// Score classifies text. Implementations must honor ctx; the
	// ensemble bounds each call with its own timeout.
	Score(ctx context.Context, text string) (*Verdict, error)
}

// LocalEngineName is the weight key for the local cascade when it
// participates in the combination.
const LocalEngineName = "local"

// Ensemble fans text out to the configured engines in parallel,
// excludes failures and timeouts, and folds the survivors plus the
// local verdict into one decision.
type Ensemble struct {
	engines        []Engine
	weights        map[string]float64
	timeout        time.Duration
	threshold      float64
	maxSuggestions int
}

// NewEnsemble builds a combiner. Engines without a weight entry get 1.0.
func NewEnsemble(engines []Engine, weights map[string]float64, timeout time.Duration, threshold float64, maxSuggestions int) *Ensemble {
	return &Ensemble{
		engines:        engines,
		weights:        weights,
		timeout:        timeout,
		threshold:      threshold,
		maxSuggestions: maxSuggestions,
	}
}

// EngineCount reports the number of configured remote engines.
func (e *Ensemble) EngineCount() int { return len(e.engines) }

type engineResult struct {
	name    string
	verdict *Verdict
}

// Combine runs every engine with an individual timeout and merges the
// survivors with the local cascade verdict. Zero survivors returns the
// local verdict unmodified: remote engines are strictly additive,
// never a single point of failure.
func (e *Ensemble) Combine(ctx context.Context, text string, local Verdict) Verdict {
	if len(e.engines) == 0 {
		return local
	}

	results := make(chan engineResult, len(e.engines))
	var wg sync.WaitGroup
	for _, eng := range e.engines {
		wg.Add(1)
		go func(eng Engine) {
			defer wg.Done()
			ectx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			v, err := eng.Score(ectx, text)
			if err != nil {
				switch {
				case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrAnalysisTimeout):
					log.Printf("[ENSEMBLE] engine %s timed out, excluding", eng.Name())
				default:
					log.Printf("[ENSEMBLE] engine %s failed, excluding: %v", eng.Name(), err)
				}
				return
			}
			if v == nil {
				log.Printf("[ENSEMBLE] engine %s returned no verdict, excluding", eng.Name())
				return
			}
			results <- engineResult{name: eng.Name(), verdict: v}
		}(eng)
	}
	wg.Wait()
	close(results)

	var survivors []engineResult
	for r := range results {
		survivors = append(survivors, r)
	}
	if len(survivors) == 0 {
		return local
	}

	// The local cascade participates with its own weight.
	survivors = append(survivors, engineResult{name: LocalEngineName, verdict: &local})

	var weightedSum, totalWeight float64
	anyMisuse := false
	bestCat := patterns.CategoryNone
	bestConf := 0.0
	rationale := make([]string, 0, len(survivors))
	var hints []string

	for _, r := range survivors {
		w := e.weight(r.name)
		totalWeight += w
		if r.verdict.IsMisuse {
			anyMisuse = true
			weightedSum += w * r.verdict.Confidence
			if r.verdict.Confidence > bestConf {
				bestConf = r.verdict.Confidence
				bestCat = r.verdict.Category
			}
		}
		for _, reason := range r.verdict.Rationale {
			rationale = append(rationale, fmt.Sprintf("%s: %s", r.name, reason))
		}
		hints = append(hints, r.verdict.Suggestions...)
	}

	if totalWeight == 0 {
		return local
	}

	combined := weightedSum / totalWeight
	if anyMisuse && combined > e.threshold {
		v := newVerdict(bestCat, combined, TierEnsemble, rationale...)
		v.Suggestions = dedupeCap(hints, e.maxSuggestions)
		return v
	}

	// Combination stayed under threshold: report the non-misuse
	// consensus but keep the merged rationale for observability.
	v := newVerdict(patterns.CategoryNone, clamp01(1-combined), TierEnsemble, rationale...)
	return v
}

func (e *Ensemble) weight(name string) float64 {
	if w, ok := e.weights[name]; ok {
		return w
	}
	return 1.0
}
