// Package keywords turns free text into normalized term sets for set-overlap
// similarity scoring. Extraction is pure string work with no I/O, so the
// prefilter built on top of it stays deterministic and unit-testable.
package keywords

import (
	"strings"
	"unicode"
)

const (
	minTokenLen = 3

	// Tag prefixes keep boosted tokens out of the general vocabulary while
	// still participating in set intersection.
	topicTag = "topic:"
	deptTag  = "dept:"
)

// Extractor normalizes text into weighted term sets
type Extractor struct {
	stop        map[string]struct{}
	important   map[string]struct{}
	departments map[string][]string
}

// NewExtractor creates an extractor with the built-in vocabulary
func NewExtractor() *Extractor {
	return NewExtractorFromTable(DefaultTable())
}

// NewExtractorFromTable creates an extractor from an explicit vocabulary table
func NewExtractorFromTable(t Table) *Extractor {
	e := &Extractor{
		stop:        make(map[string]struct{}, len(t.Stopwords)),
		important:   make(map[string]struct{}, len(t.Important)),
		departments: make(map[string][]string, len(t.Departments)),
	}
	for _, w := range t.Stopwords {
		e.stop[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range t.Important {
		e.important[strings.ToLower(w)] = struct{}{}
	}
	for key, aliases := range t.Departments {
		lowered := make([]string, len(aliases))
		for i, a := range aliases {
			lowered[i] = strings.ToLower(a)
		}
		e.departments[key] = lowered
	}
	return e
}

// Extract returns the normalized tokens of a text: lower-cased alphabetic
// runs of at least three characters, stop-words removed, with an extra
// "topic:" tagged token for every domain-important term.
func (e *Extractor) Extract(text string) []string {
	var tokens []string
	for _, tok := range tokenize(text) {
		if _, stopped := e.stop[tok]; stopped {
			continue
		}
		tokens = append(tokens, tok)
		if _, hot := e.important[tok]; hot {
			tokens = append(tokens, topicTag+tok)
		}
	}
	return tokens
}

// ExtractSet extracts all texts into a single deduplicated term set
func (e *Extractor) ExtractSet(texts ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, text := range texts {
		for _, tok := range e.Extract(text) {
			set[tok] = struct{}{}
		}
	}
	return set
}

// DepartmentKey maps a free-form department name to its canonical key via
// substring alias matching. Returns false when no alias matches.
func (e *Extractor) DepartmentKey(name string) (string, bool) {
	lowered := strings.ToLower(name)
	if lowered == "" {
		return "", false
	}
	for key, aliases := range e.departments {
		for _, alias := range aliases {
			if strings.Contains(lowered, alias) {
				return key, true
			}
		}
	}
	return "", false
}

// DepartmentTags maps department names to distinguishable "dept:" tokens so
// department alignment can contribute to similarity without polluting the
// general vocabulary. Unrecognized names are dropped.
func (e *Extractor) DepartmentTags(names ...string) []string {
	seen := make(map[string]struct{}, len(names))
	var tags []string
	for _, name := range names {
		key, ok := e.DepartmentKey(name)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, deptTag+key)
	}
	return tags
}

// IsTopicTag reports whether a token is a boosted domain-important tag
func IsTopicTag(tok string) bool { return strings.HasPrefix(tok, topicTag) }

// IsDeptTag reports whether a token is a canonical department tag
func IsDeptTag(tok string) bool { return strings.HasPrefix(tok, deptTag) }

// tokenize splits text into lower-cased alphabetic runs of minTokenLen or
// more runes. The length check counts runes, not bytes, so accented terms in
// bilingual source text are measured by character count.
func tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	var runeLen int
	flush := func() {
		if runeLen >= minTokenLen {
			tokens = append(tokens, b.String())
		}
		b.Reset()
		runeLen = 0
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
			runeLen++
			continue
		}
		flush()
	}
	flush()
	return tokens
}
