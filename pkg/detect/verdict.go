// Package detect implements the misuse classification cascade: lexical
// matching, similarity scoring, heuristic intent analysis and the
// ensemble combiner for optional remote scoring engines.
package detect

import (
	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// Tier identifies which cascade stage committed a verdict.
const (
	TierInsufficientSignal = "insufficient-signal"
	TierSafeOverride       = "safe-override"
	TierCompound           = "compound"
	TierHighRisk           = "high-risk"
	TierIncompletePhrase   = "incomplete-phrase"
	TierVector             = "vector"
	TierHeuristic          = "heuristic"
	TierEnsemble           = "ensemble"
)

// Verdict is the immutable classification result for one text snapshot.
type Verdict struct {
	Category    patterns.Category `json:"category"`
	Confidence  float64           `json:"confidence"`
	IsMisuse    bool              `json:"is_misuse"`
	Tier        string            `json:"tier"`
	Rationale   []string          `json:"rationale,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// newVerdict builds a verdict with the derived fields filled in and
// the confidence clamped to [0,1].
func newVerdict(cat patterns.Category, confidence float64, tier string, rationale ...string) Verdict {
	return Verdict{
		Category:   cat,
		Confidence: clamp01(confidence),
		IsMisuse:   cat.IsMisuse(),
		Tier:       tier,
		Rationale:  rationale,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// suggestionsFor returns the remediation hints shown to the user for a
// committed misuse category.
func suggestionsFor(cat patterns.Category) []string {
	switch cat {
	case patterns.CategoryDeepfake:
		return []string{
			"Use consented photos only",
			"Try artistic style transfer instead",
			"Label any synthetic media clearly",
		}
	case patterns.CategoryHarmful:
		return []string{
			"Rephrase the request without harmful intent",
			"If you are in crisis, contact a local helpline",
			"Ask about the topic from a safety perspective",
		}
	case patterns.CategoryPrivacy:
		return []string{
			"Remove personal identifiers before sharing",
			"Ask for the person's consent first",
			"Use anonymized or synthetic data",
		}
	case patterns.CategoryHacking:
		return []string{
			"Study security through authorized labs and CTFs",
			"Request permission before testing a system",
			"Look into defensive security resources",
		}
	case patterns.CategoryExplosives:
		return []string{
			"Ask about the chemistry from an educational angle",
			"Consult licensed professionals for pyrotechnics",
			"Review safety regulations instead",
		}
	case patterns.CategoryDrugs:
		return []string{
			"Ask about substance safety and health effects",
			"Consult a medical professional",
			"Look into harm-reduction resources",
		}
	default:
		return nil
	}
}

// dedupeCap returns hints with duplicates removed, order preserved,
// capped at n.
func dedupeCap(hints []string, n int) []string {
	if n <= 0 {
		return nil
	}
	seen := make(map[string]bool, len(hints))
	var out []string
	for _, h := range hints {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
		if len(out) == n {
			break
		}
	}
	return out
}
