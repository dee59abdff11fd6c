package detect

import (
	"math"
	"strings"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// Similarity primitives for the fuzzy/vector tier: token edit distance
// with a coarse phonetic fallback, and bag-of-words cosine against
// pre-built malicious/safe exemplar vectors.

// Levenshtein returns the edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// TokenSimilarity returns 1 - dist/maxLen, the normalized edit
// similarity between two tokens in [0,1].
func TokenSimilarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}

// phoneticEqualBonus is the score granted when two tokens share a
// phonetic code despite differing spelling ("hak" vs "hack").
const phoneticEqualBonus = 0.8

var phoneticDigraphs = strings.NewReplacer(
	"ph", "f",
	"th", "t",
	"sh", "s",
	"ch", "k",
)

// PhoneticCode produces a coarse 4-character sound code: digraphs are
// collapsed, vowels dropped, first four consonants kept.
func PhoneticCode(token string) string {
	t := phoneticDigraphs.Replace(strings.ToLower(token))
	var b strings.Builder
	for _, r := range t {
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			continue
		}
		if r < 'a' || r > 'z' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == 4 {
			break
		}
	}
	return b.String()
}

// TokenScore combines edit similarity with the phonetic bonus.
func TokenScore(a, b string) float64 {
	s := TokenSimilarity(a, b)
	if a != b && PhoneticCode(a) != "" && PhoneticCode(a) == PhoneticCode(b) && phoneticEqualBonus > s {
		s = phoneticEqualBonus
	}
	return s
}

// FuzzyScorer matches text tokens against the tokenized high-risk
// phrase list. Pattern token lists are derived once per snapshot.
type FuzzyScorer struct {
	patterns [][]string
}

// NewFuzzyScorer tokenizes every high-risk phrase in the lists.
func NewFuzzyScorer(l patterns.Lists) *FuzzyScorer {
	fs := &FuzzyScorer{}
	for _, phrases := range l.HighRisk {
		for _, phrase := range phrases {
			toks := vectorTokens(patterns.Normalize(phrase))
			if len(toks) > 0 {
				fs.patterns = append(fs.patterns, toks)
			}
		}
	}
	return fs
}

// Score returns the best token-level similarity between text and any
// high-risk phrase: for each pattern token, the best matching text
// token; averaged per pattern; max over patterns.
func (fs *FuzzyScorer) Score(text string) float64 {
	textTokens := vectorTokens(text)
	if len(textTokens) == 0 {
		return 0
	}

	best := 0.0
	for _, pTokens := range fs.patterns {
		sum := 0.0
		for _, pt := range pTokens {
			tokenBest := 0.0
			for _, tt := range textTokens {
				if s := TokenScore(pt, tt); s > tokenBest {
					tokenBest = s
				}
			}
			sum += tokenBest
		}
		if avg := sum / float64(len(pTokens)); avg > best {
			best = avg
		}
	}
	return best
}

// TermVector is a bag-of-words term-frequency vector.
type TermVector map[string]float64

// vectorTokens splits normalized text into the tokens that populate
// term vectors. Tokens of one or two characters carry no signal.
func vectorTokens(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

// TextToVector converts normalized text into its term-frequency vector.
func TextToVector(text string) TermVector {
	v := make(TermVector)
	for _, tok := range vectorTokens(text) {
		v[tok]++
	}
	return v
}

// Cosine returns the cosine similarity of two term vectors.
func Cosine(a, b TermVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for k, va := range a {
		na += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// exemplar is one pre-vectorized reference text.
type exemplar struct {
	text     string
	category patterns.Category
	vec      TermVector
}

// VectorScorer holds the malicious and safe exemplar sets. Immutable
// after construction; feedback learning builds a replacement.
type VectorScorer struct {
	malicious []exemplar
	safe      []exemplar
}

// NewVectorScorer builds a scorer from the built-in exemplars plus any
// extras (feedback-learned texts).
func NewVectorScorer(extraMalicious map[patterns.Category][]string, extraSafe []string) *VectorScorer {
	vs := &VectorScorer{}
	for cat, texts := range maliciousExemplars() {
		for _, t := range texts {
			vs.addMalicious(t, cat)
		}
	}
	for cat, texts := range extraMalicious {
		for _, t := range texts {
			vs.addMalicious(t, cat)
		}
	}
	for _, t := range safeExemplars() {
		vs.addSafe(t)
	}
	for _, t := range extraSafe {
		vs.addSafe(t)
	}
	return vs
}

func (vs *VectorScorer) addMalicious(text string, cat patterns.Category) {
	norm := patterns.Normalize(text)
	vec := TextToVector(norm)
	if len(vec) == 0 {
		return
	}
	vs.malicious = append(vs.malicious, exemplar{text: norm, category: cat, vec: vec})
}

func (vs *VectorScorer) addSafe(text string) {
	norm := patterns.Normalize(text)
	vec := TextToVector(norm)
	if len(vec) == 0 {
		return
	}
	vs.safe = append(vs.safe, exemplar{text: norm, category: patterns.CategoryNone, vec: vec})
}

// BestMalicious returns the highest cosine similarity between text and
// any malicious exemplar, with the exemplar's category.
func (vs *VectorScorer) BestMalicious(text string) (float64, patterns.Category) {
	vec := TextToVector(text)
	best, bestCat := 0.0, patterns.CategoryNone
	for _, ex := range vs.malicious {
		if s := Cosine(vec, ex.vec); s > best {
			best, bestCat = s, ex.category
		}
	}
	return best, bestCat
}

// BestSafe returns the highest cosine similarity between text and any
// safe exemplar.
func (vs *VectorScorer) BestSafe(text string) float64 {
	vec := TextToVector(text)
	best := 0.0
	for _, ex := range vs.safe {
		if s := Cosine(vec, ex.vec); s > best {
			best = s
		}
	}
	return best
}

func maliciousExemplars() map[patterns.Category][]string {
	return map[patterns.Category][]string{
		patterns.CategoryHarmful: {
			"how to kill someone", "how to murder a person",
			"how to assassinate someone", "how to commit suicide",
			"how to end my life", "how to poison food",
			"create nude image", "create revenge porn",
			"torture animal", "hurt animal", "exploit children",
		},
		patterns.CategoryExplosives: {
			"how to make a bomb", "how to create explosives",
			"how to build a weapon", "how to make gunpowder",
		},
		patterns.CategoryDrugs: {
			"how to make drugs", "how to create cocaine",
			"how to manufacture heroin", "how to make meth",
		},
		patterns.CategoryHacking: {
			"how to hack into a computer", "how to hack someone account",
			"how to steal passwords", "how to hack social media",
			"how to scam people", "how to steal money",
			"how to commit fraud",
		},
		patterns.CategoryPrivacy: {
			"how to steal identity", "how to spy on someone",
			"leak someone private photos",
		},
		patterns.CategoryDeepfake: {
			"generate deepfake", "make fake video of a person",
			"swap my face with a celebrity",
		},
	}
}

func safeExemplars() []string {
	return []string{
		// Educational
		"calculate average of marks", "solve math problem", "homework help",
		"study guide", "educational content",
		// Health
		"how to treat illness", "medical advice", "how to stay healthy",
		// Cooking
		"how to cook pasta", "recipe for dinner", "cooking instructions",
		"how to make food", "how to make dinner", "how to make pizza",
		// Technology
		"how to code", "programming tutorial", "how to create website",
		"software development", "how to make app",
		// Creative
		"how to draw", "create art", "how to paint", "how to make music",
		"how to make video", "how to make content", "how to make design",
		// Fitness, travel, work
		"how to exercise", "workout routine", "travel guide",
		"career advice", "how to make money", "how to make business",
		// Home
		"how to clean", "home organization", "home improvement",
		// Generic instruction stubs
		"how to make", "how to create", "how to build", "how to develop",
		"how to organize", "how to prepare", "how to plan", "how to design",
		"how to set up", "how to configure",
	}
}
