package patterns

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalization applied to every classified text and every curated
// phrase: NFKD fold (collapses fullwidth/compatibility forms used to
// dodge matchers), diacritic stripping, lowercase, whitespace collapse.

// foldPool hands out fold chains per call. A transform.Chain carries
// internal buffers and is not safe for concurrent use, and Normalize
// runs on every analysis goroutine.
var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		)
	},
}

var (
	reWhitespace = regexp.MustCompile(`\s+`)

	// Structural tokens the classifier should not treat as prose.
	reURL    = regexp.MustCompile(`^(?:https?://|www\.)\S+$`)
	reDomain = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*\.(?:com|org|net|io|dev|app|edu|gov|co|ai|me)(?:/\S*)?$`)
	reEmail  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Normalize returns the canonical lowercase form of text used for all
// phrase matching. The result is stable: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	chain := foldPool.Get().(transform.Transformer)
	folded, _, err := transform.String(chain, text)
	foldPool.Put(chain)
	if err != nil {
		// Fold failure means malformed input; fall back to the raw text
		// rather than dropping the event.
		folded = text
	}
	folded = strings.ToLower(folded)
	folded = reWhitespace.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// LooksStructural reports whether normalized text is a URL, bare
// domain or email address rather than prose. Such tokens carry no
// intent signal and are excluded by the pre-filter.
func LooksStructural(text string) bool {
	if text == "" {
		return false
	}
	return reURL.MatchString(text) || reDomain.MatchString(text) || reEmail.MatchString(text)
}
