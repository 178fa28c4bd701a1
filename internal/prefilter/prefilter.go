// Package prefilter reduces the (evidence x promise) evaluation problem to a
// small ranked candidate list per evidence item, so the expensive judge only
// sees pairs with at least a floor of lexical similarity. This stage is pure
// computation: no network I/O, deterministic for identical inputs.
package prefilter

import (
	"sort"
	"sync"

	"github.com/civictrace/promislink/internal/keywords"
	"github.com/civictrace/promislink/internal/model"
	"github.com/civictrace/promislink/internal/score"
)

// Candidate is an ephemeral (evidence, promise, score) pair computed per run
type Candidate struct {
	Promise model.Promise
	Score   float64
}

// Config bounds candidate generation. Defaults favor recall: a promise
// dropped here can never be recovered downstream, while a surviving false
// positive only costs one judge call.
type Config struct {
	MinSimilarity float64
	MaxCandidates int
}

// DefaultConfig returns the recall-favoring defaults
func DefaultConfig() Config {
	return Config{MinSimilarity: 0.1, MaxCandidates: 20}
}

// Generator scores one evidence item against every in-scope promise. Promise
// term sets are extracted once and reused across all evidence items in a run.
type Generator struct {
	extractor *keywords.Extractor
	scorer    *score.Scorer
	cfg       Config

	mu    sync.Mutex
	terms map[string]map[string]struct{} // promise ID -> term set
}

// NewGenerator creates a candidate generator
func NewGenerator(extractor *keywords.Extractor, scorer *score.Scorer, cfg Config) *Generator {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultConfig().MaxCandidates
	}
	return &Generator{
		extractor: extractor,
		scorer:    scorer,
		cfg:       cfg,
		terms:     make(map[string]map[string]struct{}),
	}
}

// Candidates returns the promises most similar to the evidence item, ranked
// by descending score, capped at MaxCandidates, every score at or above
// MinSimilarity. Empty keyword sets on either side score 0 and fall out.
func (g *Generator) Candidates(ev model.Evidence, promises []model.Promise) []Candidate {
	evTerms := g.evidenceTerms(ev)

	var out []Candidate
	for _, p := range promises {
		s := g.scorer.Similarity(evTerms, g.promiseTerms(p))
		if s >= g.cfg.MinSimilarity && s > 0 {
			out = append(out, Candidate{Promise: p, Score: s})
		}
	}

	sortCandidates(out)
	if len(out) > g.cfg.MaxCandidates {
		out = out[:g.cfg.MaxCandidates]
	}
	return out
}

// Merge fuses two ranked candidate lists, keeping the maximum score per
// promise, re-ranking, and re-applying the candidate cap. Used to widen
// recall with the semantic signal without changing this package's contract.
func (g *Generator) Merge(a, b []Candidate) []Candidate {
	best := make(map[string]Candidate, len(a)+len(b))
	for _, c := range append(append([]Candidate{}, a...), b...) {
		if prev, ok := best[c.Promise.ID]; !ok || c.Score > prev.Score {
			best[c.Promise.ID] = c
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sortCandidates(out)
	if len(out) > g.cfg.MaxCandidates {
		out = out[:g.cfg.MaxCandidates]
	}
	return out
}

func (g *Generator) evidenceTerms(ev model.Evidence) map[string]struct{} {
	set := g.extractor.ExtractSet(ev.Title, ev.Description)
	for _, tag := range g.extractor.DepartmentTags(ev.Departments...) {
		set[tag] = struct{}{}
	}
	return set
}

func (g *Generator) promiseTerms(p model.Promise) map[string]struct{} {
	g.mu.Lock()
	cached, ok := g.terms[p.ID]
	g.mu.Unlock()
	if ok {
		return cached
	}

	set := g.extractor.ExtractSet(p.FullText())
	if p.LeadDepartment != "" {
		for _, tag := range g.extractor.DepartmentTags(p.LeadDepartment) {
			set[tag] = struct{}{}
		}
	}

	g.mu.Lock()
	g.terms[p.ID] = set
	g.mu.Unlock()
	return set
}

// sortCandidates orders by descending score, ties broken by promise ID so
// output is stable across runs.
func sortCandidates(cs []Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].Promise.ID < cs[j].Promise.ID
	})
}
