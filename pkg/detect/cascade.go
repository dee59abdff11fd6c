package detect

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/satyamahesh03/misuseguard/pkg/config"
	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// Snapshot is one immutable configuration generation of the cascade:
// thresholds, compiled phrase registry and derived scorers. The
// cascade swaps whole snapshots atomically, so a classification runs
// against exactly one consistent generation end to end.
type Snapshot struct {
	ID       string
	Config   *config.Config
	Registry *patterns.Registry
	Fuzzy    *FuzzyScorer
	Vector   *VectorScorer
	Intent   *IntentScorer

	// Feedback-learned exemplar texts, carried so every later
	// generation keeps the full learned set.
	extraMalicious map[patterns.Category][]string
	extraSafe      []string
}

// NewSnapshot compiles a snapshot from a config and raw lists.
func NewSnapshot(cfg *config.Config, lists patterns.Lists) *Snapshot {
	reg := patterns.NewRegistry(lists)
	return &Snapshot{
		ID:       uuid.NewString(),
		Config:   cfg,
		Registry: reg,
		Fuzzy:    NewFuzzyScorer(reg.Lists()),
		Vector:   NewVectorScorer(nil, nil),
		Intent:   NewIntentScorer(cfg.TieBreakOrder, cfg.HeuristicConfidenceCap),
	}
}

// Cascade turns raw text into a calibrated verdict by running the
// ordered tiers, short-circuiting on the first that commits. Optional
// collaborators (ensemble, verdict cache, stats) are wired after
// construction and may be nil.
type Cascade struct {
	snapshot atomic.Pointer[Snapshot]

	Ensemble *Ensemble
	Cache    *VerdictCache
	Stats    *Stats
}

// NewCascade builds a cascade over the given snapshot.
func NewCascade(snap *Snapshot) *Cascade {
	c := &Cascade{}
	c.snapshot.Store(snap)
	return c
}

// Snapshot returns the current configuration generation.
func (c *Cascade) Snapshot() *Snapshot { return c.snapshot.Load() }

// Swap installs a new snapshot. In-flight classifications keep the
// generation they started with.
func (c *Cascade) Swap(snap *Snapshot) {
	c.snapshot.Store(snap)
	log.Printf("[CASCADE] configuration snapshot swapped: %s", snap.ID)
}

// ApplyFeedback derives a new snapshot with text learned into the safe
// or high-risk lists and installs it. The previous snapshot is
// untouched; readers race-freely finish on it.
func (c *Cascade) ApplyFeedback(text string, userSaysSafe bool) {
	cur := c.Snapshot()

	extraMal := make(map[patterns.Category][]string, len(cur.extraMalicious)+1)
	for cat, texts := range cur.extraMalicious {
		extraMal[cat] = append([]string(nil), texts...)
	}
	extraSafe := append([]string(nil), cur.extraSafe...)
	if userSaysSafe {
		extraSafe = append(extraSafe, text)
	} else {
		extraMal[patterns.CategoryHarmful] = append(extraMal[patterns.CategoryHarmful], text)
	}

	next := &Snapshot{
		ID:             uuid.NewString(),
		Config:         cur.Config,
		Registry:       cur.Registry.WithFeedback(text, userSaysSafe),
		Intent:         cur.Intent,
		extraMalicious: extraMal,
		extraSafe:      extraSafe,
	}
	next.Fuzzy = NewFuzzyScorer(next.Registry.Lists())
	next.Vector = NewVectorScorer(extraMal, extraSafe)
	c.Swap(next)
}

// Classify runs the local cascade tiers 1-7. Deterministic for a given
// text and snapshot: same input, same snapshot, bit-identical verdict.
func (c *Cascade) Classify(text string) Verdict {
	v := classifyWith(c.Snapshot(), text)
	if c.Stats != nil {
		c.Stats.Record(v)
	}
	return v
}

// ClassifyContext runs the full pipeline: verdict cache, local
// cascade, then the ensemble when remote engines are configured.
func (c *Cascade) ClassifyContext(ctx context.Context, text string) Verdict {
	snap := c.Snapshot()

	if c.Cache != nil {
		if v, ok := c.Cache.Get(ctx, snap.ID, text); ok {
			return v
		}
	}

	v := classifyWith(snap, text)

	if c.Ensemble != nil {
		v = c.Ensemble.Combine(ctx, text, v)
	}

	if c.Stats != nil {
		c.Stats.Record(v)
	}
	if c.Cache != nil {
		c.Cache.Put(ctx, snap.ID, text, v)
	}
	return v
}

// classifyWith is the tier ladder. Each tier either commits a verdict
// or falls through to the next.
func classifyWith(snap *Snapshot, raw string) Verdict {
	cfg := snap.Config
	reg := snap.Registry
	text := patterns.Normalize(raw)

	// Tier 1: pre-filter. Too little signal, or a structural token.
	if len(text) < cfg.MinTextLength {
		return newVerdict(patterns.CategoryNone, 0.3, TierInsufficientSignal,
			"text too short for reliable analysis")
	}
	if patterns.LooksStructural(text) {
		return newVerdict(patterns.CategoryNone, 0.3, TierInsufficientSignal,
			"structural token (url/domain/email), no intent signal")
	}

	// Tier 2: safe-phrase override. Checked before every malicious
	// tier so a legitimate phrase containing an incidental risky
	// substring is never blocked.
	if phrase, ok := reg.MatchSafe(text); ok {
		return newVerdict(patterns.CategoryNone, 0.1, TierSafeOverride,
			fmt.Sprintf("safe phrase detected: %q", phrase))
	}

	// Tier 3: compound malicious verb+object pairing.
	if verb, object, cat, ok := reg.MatchCompound(text); ok {
		v := newVerdict(cat, 0.95, TierCompound,
			fmt.Sprintf("malicious combination: %q + %q", verb, object))
		v.Suggestions = dedupeCap(suggestionsFor(cat), cfg.MaxSuggestions)
		return v
	}

	// Tier 4: curated high-risk phrase.
	if phrase, cat, ok := reg.MatchHighRisk(text); ok {
		v := newVerdict(cat, 0.95, TierHighRisk,
			fmt.Sprintf("high risk phrase detected: %q", phrase))
		v.Suggestions = dedupeCap(suggestionsFor(cat), cfg.MaxSuggestions)
		return v
	}

	// Tier 5: ambiguity guard. A short text ending in a dangling
	// function word is a sentence still being typed, never a
	// completed request.
	if len(text) < cfg.ShortTextBound && reg.EndsDangling(text) {
		return newVerdict(patterns.CategoryNone, 0.1, TierIncompletePhrase,
			"incomplete phrase, likely still being typed")
	}

	// Tier 6: fuzzy/vector scoring, gated on enough text plus an
	// ambiguous verb or medium-risk indicator.
	if len(text) >= cfg.ShortTextBound && (reg.HasAmbiguousVerb(text) || reg.HasMediumRisk(text)) {
		return vectorTier(snap, text)
	}

	// Tier 7: heuristic intent scoring for genuinely novel text.
	v := snap.Intent.Score(text)
	if v.IsMisuse {
		v.Suggestions = dedupeCap(suggestionsFor(v.Category), cfg.MaxSuggestions)
	}
	return v
}

// vectorTier runs fuzzy and cosine scoring against the exemplar sets.
func vectorTier(snap *Snapshot, text string) Verdict {
	cfg := snap.Config

	fuzzy := snap.Fuzzy.Score(text)
	malScore, malCat := snap.Vector.BestMalicious(text)
	safeScore := snap.Vector.BestSafe(text)

	if malScore > cfg.VectorMaliciousThreshold {
		v := newVerdict(malCat, malScore, TierVector,
			fmt.Sprintf("high similarity (%.3f) with malicious exemplar", malScore))
		v.Suggestions = dedupeCap(suggestionsFor(malCat), cfg.MaxSuggestions)
		return v
	}
	if safeScore > cfg.VectorSafeThreshold && safeScore > malScore {
		return newVerdict(patterns.CategoryNone, safeScore, TierVector,
			fmt.Sprintf("high similarity (%.3f) with safe exemplar", safeScore))
	}

	const eps = 0.001
	ratio := malScore / (safeScore + eps)
	if ratio > cfg.SimilarityRatio {
		// Fuzzy evidence counts toward confidence only above the
		// configured threshold; weaker token matches are noise.
		conf := malScore
		if fuzzy >= cfg.FuzzyThreshold && fuzzy > conf {
			conf = fuzzy
		}
		cat := malCat
		if cat == patterns.CategoryNone {
			cat = patterns.CategoryHarmful
		}
		v := newVerdict(cat, conf, TierVector,
			fmt.Sprintf("ambiguous similarity, ratio %.3f favors malicious (malicious=%.3f safe=%.3f fuzzy=%.3f)",
				ratio, malScore, safeScore, fuzzy))
		v.Suggestions = dedupeCap(suggestionsFor(cat), cfg.MaxSuggestions)
		return v
	}

	return newVerdict(patterns.CategoryNone, 0.3, TierVector,
		fmt.Sprintf("ambiguous similarity, ratio %.3f within safe bounds (malicious=%.3f safe=%.3f)",
			ratio, malScore, safeScore))
}
