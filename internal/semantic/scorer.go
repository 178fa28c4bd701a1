package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/civictrace/promislink/internal/cache"
	"github.com/civictrace/promislink/internal/model"
	"github.com/civictrace/promislink/internal/prefilter"
	"github.com/civictrace/promislink/internal/score"
)

// Scorer ranks promises by cosine similarity to an evidence item. Promise
// vectors are computed once per corpus and cached by text digest, so every
// evidence item in a run (and reruns over an unchanged corpus) reuse them.
type Scorer struct {
	embedder Embedder
	cache    cache.Cache

	// MinSimilarity floors the ranked output; MaxCandidates caps it.
	MinSimilarity float64
	MaxCandidates int
}

// NewScorer creates a semantic scorer. A nil cache disables vector reuse.
func NewScorer(embedder Embedder, c cache.Cache, minSimilarity float64, maxCandidates int) *Scorer {
	if maxCandidates <= 0 {
		maxCandidates = prefilter.DefaultConfig().MaxCandidates
	}
	return &Scorer{
		embedder:      embedder,
		cache:         c,
		MinSimilarity: minSimilarity,
		MaxCandidates: maxCandidates,
	}
}

// PromiseVectors embeds every promise, serving cached vectors where possible.
// Promises whose text embeds to a degenerate vector are omitted.
func (s *Scorer) PromiseVectors(ctx context.Context, promises []model.Promise) (map[string][]float32, error) {
	vectors := make(map[string][]float32, len(promises))

	var missing []model.Promise
	for _, p := range promises {
		if vec, ok := s.cached(p.FullText()); ok {
			vectors[p.ID] = vec
			continue
		}
		missing = append(missing, p)
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, p := range missing {
			texts[i] = p.FullText()
		}
		embedded, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed promises: %w", err)
		}
		for i, p := range missing {
			vec := embedded[i]
			if degenerate(vec) {
				continue
			}
			vectors[p.ID] = vec
			s.remember(p.FullText(), vec)
		}
	}

	return vectors, nil
}

// Rank scores one evidence item against pre-computed promise vectors and
// returns a ranked candidate list in the prefilter's shape.
func (s *Scorer) Rank(ctx context.Context, ev model.Evidence, promises []model.Promise, vectors map[string][]float32) ([]prefilter.Candidate, error) {
	evVecs, err := s.embedder.Embed(ctx, []string{ev.Text()})
	if err != nil {
		return nil, fmt.Errorf("embed evidence %s: %w", ev.ID, err)
	}
	if len(evVecs) != 1 || degenerate(evVecs[0]) {
		return nil, fmt.Errorf("embed evidence %s: degenerate vector", ev.ID)
	}
	evVec := evVecs[0]

	var out []prefilter.Candidate
	for _, p := range promises {
		vec, ok := vectors[p.ID]
		if !ok {
			continue
		}
		sim := score.Cosine(evVec, vec)
		if sim >= s.MinSimilarity && sim > 0 {
			out = append(out, prefilter.Candidate{Promise: p, Score: sim})
		}
	}

	sortByScore(out)
	if len(out) > s.MaxCandidates {
		out = out[:s.MaxCandidates]
	}
	return out, nil
}

func (s *Scorer) cached(text string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok := s.cache.Get(cache.Key(text))
	if !ok {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	if degenerate(vec) {
		return nil, false
	}
	return vec, true
}

func (s *Scorer) remember(text string, vec []float32) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	_ = s.cache.Set(cache.Key(text), raw, 0)
}

// degenerate rejects empty and near-zero-magnitude vectors before they can
// poison cosine ranking
func degenerate(vec []float32) bool {
	if len(vec) == 0 {
		return true
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	return norm < 1e-12
}

func sortByScore(cs []prefilter.Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].Promise.ID < cs[j].Promise.ID
	})
}
