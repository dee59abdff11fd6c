// Package patterns provides the curated phrase registry used by the
// misuse classifier. All phrase sets are normalized and compiled once
// when a registry is built and the registry is immutable afterwards:
// updates (feedback learning, config reload) build a replacement
// registry rather than mutating a live one, so readers never race
// writers.
//
// Design principles:
// - COMPILE ONCE: safe-phrase word-boundary regexes compiled at build, not per-request
// - IMMUTABLE: a registry never changes after construction
// - CATEGORIZED: high-risk phrases and compound combinations carry their category
package patterns

import (
	"regexp"
	"strings"
	"sync"
)

// Category identifies a misuse category. The tags are fixed and appear
// verbatim in verdicts, activity records and API responses.
type Category string

const (
	CategoryNone       Category = "NONE"
	CategoryDeepfake   Category = "DEEPFAKE_IMPERSONATION"
	CategoryHarmful    Category = "HARMFUL_CONTENT"
	CategoryPrivacy    Category = "PRIVACY_VIOLATION"
	CategoryHacking    Category = "HACKING"
	CategoryExplosives Category = "EXPLOSIVES_WEAPONS"
	CategoryDrugs      Category = "DRUGS"
)

// Categories lists every misuse category (NONE excluded).
func Categories() []Category {
	return []Category{
		CategoryDeepfake,
		CategoryHarmful,
		CategoryPrivacy,
		CategoryHacking,
		CategoryExplosives,
		CategoryDrugs,
	}
}

// Valid reports whether c is one of the closed set of category tags.
func (c Category) Valid() bool {
	switch c {
	case CategoryNone, CategoryDeepfake, CategoryHarmful, CategoryPrivacy,
		CategoryHacking, CategoryExplosives, CategoryDrugs:
		return true
	}
	return false
}

// IsMisuse reports whether the category represents a policy violation.
func (c Category) IsMisuse() bool { return c.Valid() && c != CategoryNone }

// Combo pairs action verbs with harmful objects. A text matches when it
// contains at least one verb and at least one object from the same combo.
type Combo struct {
	Verbs    []string `yaml:"verbs"`
	Objects  []string `yaml:"objects"`
	Category Category `yaml:"category"`
}

// Lists is the raw, serializable form of the curated phrase sets.
// It is what YAML config files and feedback learning operate on;
// NewRegistry compiles it into the queryable form.
type Lists struct {
	Safe           []string              `yaml:"safe"`
	HighRisk       map[Category][]string `yaml:"high_risk"`
	Compound       []Combo               `yaml:"compound"`
	MediumRisk     []string              `yaml:"medium_risk"`
	AmbiguousVerbs []string              `yaml:"ambiguous_verbs"`
	Placeholders   []string              `yaml:"placeholders"`
}

// Clone returns a deep copy so derived lists never alias a live registry.
func (l Lists) Clone() Lists {
	out := Lists{
		Safe:           append([]string(nil), l.Safe...),
		HighRisk:       make(map[Category][]string, len(l.HighRisk)),
		Compound:       make([]Combo, len(l.Compound)),
		MediumRisk:     append([]string(nil), l.MediumRisk...),
		AmbiguousVerbs: append([]string(nil), l.AmbiguousVerbs...),
		Placeholders:   append([]string(nil), l.Placeholders...),
	}
	for cat, phrases := range l.HighRisk {
		out.HighRisk[cat] = append([]string(nil), phrases...)
	}
	for i, c := range l.Compound {
		out.Compound[i] = Combo{
			Verbs:    append([]string(nil), c.Verbs...),
			Objects:  append([]string(nil), c.Objects...),
			Category: c.Category,
		}
	}
	return out
}

// danglingWords are the function words that mark a partially typed
// sentence when they terminate a short text ("how to make a ...").
var danglingWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"for": true, "to": true, "of": true,
}

// safePhrase is a curated safe phrase with its precompiled
// word-boundary matcher.
type safePhrase struct {
	phrase string
	re     *regexp.Regexp
}

// highRiskPhrase carries the category its list was registered under.
type highRiskPhrase struct {
	phrase   string
	category Category
}

// Registry holds the compiled phrase sets. Immutable after NewRegistry.
type Registry struct {
	lists    Lists
	safe     []safePhrase
	highRisk []highRiskPhrase
}

// global default registry, built from the built-in lists on first use
var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the registry built from the built-in curated lists.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(DefaultLists())
	})
	return defaultRegistry
}

// NewRegistry compiles lists into an immutable registry. Phrases are
// normalized the same way classified text is, so matches are stable
// regardless of input casing or unicode form.
func NewRegistry(l Lists) *Registry {
	l = l.Clone()
	for i, p := range l.MediumRisk {
		l.MediumRisk[i] = Normalize(p)
	}
	for i, p := range l.AmbiguousVerbs {
		l.AmbiguousVerbs[i] = Normalize(p)
	}
	for i, c := range l.Compound {
		for j, v := range c.Verbs {
			l.Compound[i].Verbs[j] = Normalize(v)
		}
		for j, o := range c.Objects {
			l.Compound[i].Objects[j] = Normalize(o)
		}
	}
	r := &Registry{lists: l}

	for _, p := range l.Safe {
		norm := Normalize(p)
		if norm == "" {
			continue
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(norm) + `\b`)
		r.safe = append(r.safe, safePhrase{phrase: norm, re: re})
	}

	for cat, phrases := range l.HighRisk {
		for _, p := range phrases {
			norm := Normalize(p)
			if norm == "" {
				continue
			}
			r.highRisk = append(r.highRisk, highRiskPhrase{phrase: norm, category: cat})
		}
	}

	return r
}

// Lists returns a copy of the raw lists this registry was built from.
func (r *Registry) Lists() Lists { return r.lists.Clone() }

// WithFeedback derives a new registry with text appended to the safe
// list (userSaysSafe) or to the harmful-content high-risk list. The
// receiver is untouched; callers swap the returned registry in
// wholesale.
func (r *Registry) WithFeedback(text string, userSaysSafe bool) *Registry {
	l := r.lists.Clone()
	norm := Normalize(text)
	if norm == "" {
		return NewRegistry(l)
	}
	if userSaysSafe {
		l.Safe = append(l.Safe, norm)
	} else {
		if l.HighRisk == nil {
			l.HighRisk = make(map[Category][]string)
		}
		l.HighRisk[CategoryHarmful] = append(l.HighRisk[CategoryHarmful], norm)
	}
	return NewRegistry(l)
}

// MatchSafe reports the first curated safe phrase contained in text as
// a whole word/phrase. text must already be normalized.
func (r *Registry) MatchSafe(text string) (string, bool) {
	for _, sp := range r.safe {
		if sp.re.MatchString(text) {
			return sp.phrase, true
		}
	}
	return "", false
}

// MatchHighRisk reports the first high-risk phrase contained in text
// and the category it belongs to. Plain substring semantics.
func (r *Registry) MatchHighRisk(text string) (string, Category, bool) {
	for _, hr := range r.highRisk {
		if strings.Contains(text, hr.phrase) {
			return hr.phrase, hr.category, true
		}
	}
	return "", CategoryNone, false
}

// MatchCompound reports the first verb+object pairing present in text.
func (r *Registry) MatchCompound(text string) (verb, object string, cat Category, ok bool) {
	for _, combo := range r.lists.Compound {
		v, hasVerb := containsAny(text, combo.Verbs)
		if !hasVerb {
			continue
		}
		o, hasObject := containsAny(text, combo.Objects)
		if !hasObject {
			continue
		}
		return v, o, combo.Category, true
	}
	return "", "", CategoryNone, false
}

// HasMediumRisk reports whether text contains a medium-risk indicator.
func (r *Registry) HasMediumRisk(text string) bool {
	_, ok := containsAny(text, r.lists.MediumRisk)
	return ok
}

// HasAmbiguousVerb reports whether text contains an ambiguous action
// verb ("create", "make", ...) that needs deeper analysis.
func (r *Registry) HasAmbiguousVerb(text string) bool {
	_, ok := containsAny(text, r.lists.AmbiguousVerbs)
	return ok
}

// EndsDangling reports whether normalized text terminates in a dangling
// function word or a bare ambiguous verb, i.e. looks like a sentence
// still being typed ("how to make a", "how to make").
func (r *Registry) EndsDangling(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	last := fields[len(fields)-1]
	if danglingWords[last] {
		return true
	}
	for _, v := range r.lists.AmbiguousVerbs {
		// Ambiguous verb phrases end in the verb itself ("how to make").
		vf := strings.Fields(v)
		if len(vf) > 0 && vf[len(vf)-1] == last && strings.HasSuffix(text, v) {
			return true
		}
	}
	return false
}

// IsPlaceholder reports whether text equals a known host-rendered
// placeholder ("Message...", "Search") and should count as empty.
func (r *Registry) IsPlaceholder(text string) bool {
	norm := Normalize(text)
	for _, p := range r.lists.Placeholders {
		if norm == Normalize(p) {
			return true
		}
	}
	return false
}

func containsAny(text string, phrases []string) (string, bool) {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}
