package detect

import (
	"fmt"
	"strings"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// Heuristic intent scoring: the cascade's terminal fallback for text
// no curated list or exemplar covers. Four linguistic signal groups
// feed three intent buckets; structural form (question vs command)
// shifts the balance; the winning bucket decides.

// Intent bucket names. These appear in TieBreakOrder config and in
// verdict rationale.
const (
	BucketEducational  = "educational"
	BucketMalicious    = "malicious"
	BucketPersonalInfo = "personal_info"
)

var (
	questionWords    = []string{"what", "how", "why", "when", "where", "who", "which"}
	educationalVerbs = []string{"explain", "describe", "discuss", "analyze", "research", "study", "learn"}
	contextModifiers = []string{"detect", "prevent", "identify", "recognize", "spot", "avoid", "protect"}
	researchWords    = []string{"research", "study", "investigate", "examine", "explore", "review"}

	actionVerbs      = []string{"create", "make", "build", "generate", "produce", "develop", "hack", "steal"}
	harmfulObjects   = []string{"bomb", "weapon", "virus", "malware", "scam", "deepfake", "fake"}
	instructionWords = []string{"how to", "tutorial", "guide", "instructions", "steps", "method"}

	possessionWords   = []string{"my ", "i have", "my personal", "my private", "my own"}
	personalDataTypes = []string{"email", "phone", "address", "card", "password", "ssn", "birthday"}
	sharingIndicators = []string{" is ", " are ", "number", "details", "information", "account"}

	commandIndicators = []string{"create", "make", "build", "generate", "produce", "develop"}
)

// harmfulObjectCategories maps a detected harmful object to the
// category a heuristic misuse verdict reports.
var harmfulObjectCategories = map[string]patterns.Category{
	"bomb":     patterns.CategoryExplosives,
	"weapon":   patterns.CategoryExplosives,
	"virus":    patterns.CategoryHacking,
	"malware":  patterns.CategoryHacking,
	"scam":     patterns.CategoryHacking,
	"deepfake": patterns.CategoryDeepfake,
	"fake":     patterns.CategoryDeepfake,
}

// IntentScorer runs the weighted bucket scoring. The tie-break order
// is configurable; the stock order fails toward caution.
type IntentScorer struct {
	tieBreak      []string
	confidenceCap float64
}

// NewIntentScorer builds a scorer. tieBreak lists bucket names most
// severe first; confidenceCap bounds the reported confidence.
func NewIntentScorer(tieBreak []string, confidenceCap float64) *IntentScorer {
	if len(tieBreak) == 0 {
		tieBreak = []string{BucketMalicious, BucketPersonalInfo, BucketEducational}
	}
	if confidenceCap <= 0 || confidenceCap > 1 {
		confidenceCap = 0.9
	}
	return &IntentScorer{tieBreak: tieBreak, confidenceCap: confidenceCap}
}

// Score classifies normalized text and returns a heuristic-tier verdict.
func (s *IntentScorer) Score(text string) Verdict {
	edu, mal, pii := bucketScores(text)

	isQuestion := strings.Contains(text, "?") || containsAnyWord(text, questionWords)
	isCommand := containsAnyWord(text, commandIndicators)

	if isQuestion {
		edu += 0.2
		mal -= 0.1
	}
	if isCommand {
		mal += 0.2
		edu -= 0.1
	}

	edu, mal, pii = max0(edu), max0(mal), max0(pii)
	total := edu + mal + pii
	if total > 0 {
		edu, mal, pii = edu/total, mal/total, pii/total
	}

	scores := map[string]float64{
		BucketEducational:  edu,
		BucketMalicious:    mal,
		BucketPersonalInfo: pii,
	}

	winner := s.winningBucket(scores)
	confidence := scores[winner]
	if confidence > s.confidenceCap {
		confidence = s.confidenceCap
	}

	rationale := []string{
		fmt.Sprintf("intent scores: educational=%.2f malicious=%.2f personal_info=%.2f", edu, mal, pii),
	}
	if isQuestion {
		rationale = append(rationale, "question structure detected")
	}
	if isCommand {
		rationale = append(rationale, "command structure detected")
	}

	switch winner {
	case BucketMalicious:
		cat := heuristicCategory(text)
		rationale = append(rationale, "dominant intent: malicious")
		return newVerdict(cat, confidence, TierHeuristic, rationale...)
	case BucketPersonalInfo:
		rationale = append(rationale, "dominant intent: personal information exposure")
		return newVerdict(patterns.CategoryPrivacy, confidence, TierHeuristic, rationale...)
	default:
		rationale = append(rationale, "dominant intent: educational")
		return newVerdict(patterns.CategoryNone, confidence, TierHeuristic, rationale...)
	}
}

// winningBucket returns the highest-scoring bucket; exact ties resolve
// by tie-break order.
func (s *IntentScorer) winningBucket(scores map[string]float64) string {
	best := ""
	for _, b := range s.tieBreak {
		if best == "" || scores[b] > scores[best] {
			best = b
		}
	}
	return best
}

func bucketScores(text string) (edu, mal, pii float64) {
	if containsAnyWord(text, questionWords) {
		edu += 0.3
	}
	if containsAnySub(text, educationalVerbs) {
		edu += 0.4
	}
	if containsAnySub(text, contextModifiers) {
		edu += 0.5
	}
	if containsAnySub(text, researchWords) {
		edu += 0.3
	}

	if containsAnySub(text, actionVerbs) {
		mal += 0.3
	}
	if containsAnySub(text, harmfulObjects) {
		mal += 0.4
	}
	if containsAnySub(text, instructionWords) {
		mal += 0.2
	}

	if containsAnySub(text, possessionWords) {
		pii += 0.3
	}
	if containsAnySub(text, personalDataTypes) {
		pii += 0.4
	}
	if containsAnySub(text, sharingIndicators) {
		pii += 0.2
	}
	return edu, mal, pii
}

// heuristicCategory picks the misuse category for a malicious-bucket
// win from the harmful object present, defaulting to harmful content.
func heuristicCategory(text string) patterns.Category {
	for _, obj := range harmfulObjects {
		if strings.Contains(text, obj) {
			if cat, ok := harmfulObjectCategories[obj]; ok {
				return cat
			}
		}
	}
	return patterns.CategoryHarmful
}

func containsAnySub(text string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func containsAnyWord(text string, words []string) bool {
	fields := strings.Fields(text)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, "?.!,")] = true
	}
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
