package prefilter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civictrace/promislink/internal/keywords"
	"github.com/civictrace/promislink/internal/model"
	"github.com/civictrace/promislink/internal/score"
)

func newGenerator(cfg Config) *Generator {
	return NewGenerator(keywords.NewExtractor(), score.NewScorer(score.DefaultWeights()), cfg)
}

func TestCandidates_RespectsMaxCandidates(t *testing.T) {
	g := newGenerator(Config{MinSimilarity: 0.0001, MaxCandidates: 3})

	ev := model.Evidence{ID: "e1", Title: "housing construction starts accelerate"}
	var promises []model.Promise
	for i := 0; i < 10; i++ {
		promises = append(promises, model.Promise{
			ID:   fmt.Sprintf("p%02d", i),
			Text: "accelerate housing construction across municipalities",
		})
	}

	cands := g.Candidates(ev, promises)
	assert.Len(t, cands, 3)
}

func TestCandidates_FloorIsInclusive(t *testing.T) {
	g := newGenerator(Config{MinSimilarity: 0.1, MaxCandidates: 20})

	ev := model.Evidence{ID: "e1", Title: "pharmacare coverage expands"}
	promises := []model.Promise{
		{ID: "related", Text: "introduce universal pharmacare coverage"},
		{ID: "unrelated", Text: "expand rural broadband access"},
	}

	cands := g.Candidates(ev, promises)
	require.Len(t, cands, 1)
	assert.Equal(t, "related", cands[0].Promise.ID)
	for _, c := range cands {
		assert.GreaterOrEqual(t, c.Score, 0.1)
	}
}

func TestCandidates_RankedDescendingWithStableTies(t *testing.T) {
	g := newGenerator(Config{MinSimilarity: 0.0001, MaxCandidates: 20})

	ev := model.Evidence{ID: "e1", Title: "dental care benefit payments begin"}
	promises := []model.Promise{
		{ID: "b", Text: "dental care benefit payments"},
		{ID: "a", Text: "dental care benefit payments"},
		{ID: "c", Text: "dental benefit"},
	}

	first := g.Candidates(ev, promises)
	second := g.Candidates(ev, promises)

	require.Equal(t, first, second, "candidate generation must be deterministic")
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
	}
	// Equal scores fall back to promise ID order
	assert.Equal(t, "a", first[0].Promise.ID)
	assert.Equal(t, "b", first[1].Promise.ID)
}

func TestCandidates_EmptyEvidenceYieldsNoCandidates(t *testing.T) {
	g := newGenerator(DefaultConfig())

	ev := model.Evidence{ID: "e1"} // no title, no description
	promises := []model.Promise{{ID: "p1", Text: "build four million homes"}}

	assert.Empty(t, g.Candidates(ev, promises))
}

func TestCandidates_EmptyPromiseTextScoresZero(t *testing.T) {
	g := newGenerator(DefaultConfig())

	ev := model.Evidence{ID: "e1", Title: "climate adaptation funding"}
	promises := []model.Promise{{ID: "p1"}}

	assert.Empty(t, g.Candidates(ev, promises))
}

func TestCandidates_JordansPrincipleAboveDefaultFloor(t *testing.T) {
	g := newGenerator(DefaultConfig())

	ev := model.Evidence{
		ID:    "ev-ocp",
		Title: "Order transfers powers over Indigenous child welfare funding",
	}
	promises := []model.Promise{{
		ID:       "p-jordan",
		Text:     "Continue to fund Jordan's Principle",
		Keywords: []string{"indigenous", "child welfare", "funding", "jordan's principle"},
	}}

	cands := g.Candidates(ev, promises)
	require.Len(t, cands, 1)
	assert.Greater(t, cands[0].Score, 0.1)
}

func TestCandidates_DepartmentAlignmentBoostsRank(t *testing.T) {
	g := newGenerator(Config{MinSimilarity: 0.0001, MaxCandidates: 20})

	ev := model.Evidence{
		ID:          "e1",
		Title:       "funding agreement signed",
		Departments: []string{"Indigenous Services Canada"},
	}
	promises := []model.Promise{
		{ID: "aligned", Text: "funding agreement", LeadDepartment: "Indigenous Services Canada"},
		{ID: "other", Text: "funding agreement", LeadDepartment: "Transport Canada"},
	}

	cands := g.Candidates(ev, promises)
	require.NotEmpty(t, cands)
	assert.Equal(t, "aligned", cands[0].Promise.ID)
}

func TestMerge_KeepsMaxScorePerPromise(t *testing.T) {
	g := newGenerator(Config{MinSimilarity: 0.1, MaxCandidates: 2})

	p1 := model.Promise{ID: "p1"}
	p2 := model.Promise{ID: "p2"}
	p3 := model.Promise{ID: "p3"}

	a := []Candidate{{Promise: p1, Score: 0.3}, {Promise: p2, Score: 0.6}}
	b := []Candidate{{Promise: p1, Score: 0.8}, {Promise: p3, Score: 0.4}}

	merged := g.Merge(a, b)

	require.Len(t, merged, 2) // cap still applies
	assert.Equal(t, "p1", merged[0].Promise.ID)
	assert.Equal(t, 0.8, merged[0].Score)
	assert.Equal(t, "p2", merged[1].Promise.ID)
}
