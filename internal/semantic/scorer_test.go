package semantic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civictrace/promislink/internal/cache"
	"github.com/civictrace/promislink/internal/model"
)

// fakeEmbedder returns canned vectors keyed by input text and counts calls
type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestPromiseVectors_CachedAcrossCalls(t *testing.T) {
	p := model.Promise{ID: "p1", Text: "universal pharmacare"}
	emb := &fakeEmbedder{vectors: map[string][]float32{
		p.FullText(): {1, 0, 0},
	}}
	s := NewScorer(emb, cache.NewMemory(time.Hour, time.Hour), 0, 20)

	ctx := context.Background()
	first, err := s.PromiseVectors(ctx, []model.Promise{p})
	require.NoError(t, err)
	second, err := s.PromiseVectors(ctx, []model.Promise{p})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, emb.calls, "second call must be served from cache")
}

func TestPromiseVectors_DegenerateVectorsOmitted(t *testing.T) {
	good := model.Promise{ID: "good", Text: "dental coverage"}
	bad := model.Promise{ID: "bad", Text: "zero vector promise"}
	emb := &fakeEmbedder{vectors: map[string][]float32{
		good.FullText(): {0.5, 0.5},
		bad.FullText():  {0, 0},
	}}
	s := NewScorer(emb, nil, 0, 20)

	vectors, err := s.PromiseVectors(context.Background(), []model.Promise{good, bad})
	require.NoError(t, err)

	assert.Contains(t, vectors, "good")
	assert.NotContains(t, vectors, "bad")
}

func TestRank_OrdersByCosine(t *testing.T) {
	ev := model.Evidence{ID: "e1", Title: "pharmacare bill receives assent"}
	near := model.Promise{ID: "near", Text: "a"}
	far := model.Promise{ID: "far", Text: "b"}

	emb := &fakeEmbedder{vectors: map[string][]float32{
		ev.Text(): {1, 0},
	}}
	s := NewScorer(emb, nil, 0.1, 20)
	vectors := map[string][]float32{
		"near": {0.9, 0.1},
		"far":  {0.1, 0.9},
	}

	cands, err := s.Rank(context.Background(), ev, []model.Promise{far, near}, vectors)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, "near", cands[0].Promise.ID)
	assert.Greater(t, cands[0].Score, cands[1].Score)
}

func TestRank_DegenerateEvidenceVectorIsError(t *testing.T) {
	ev := model.Evidence{ID: "e1", Title: "empty"}
	emb := &fakeEmbedder{vectors: map[string][]float32{
		ev.Text(): {0, 0},
	}}
	s := NewScorer(emb, nil, 0, 20)

	_, err := s.Rank(context.Background(), ev, nil, nil)
	require.Error(t, err)
}

func TestRank_RespectsCap(t *testing.T) {
	ev := model.Evidence{ID: "e1", Title: "budget measures"}
	emb := &fakeEmbedder{vectors: map[string][]float32{
		ev.Text(): {1, 0},
	}}
	s := NewScorer(emb, nil, 0, 2)

	promises := []model.Promise{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	vectors := map[string][]float32{
		"a": {1, 0}, "b": {0.9, 0.1}, "c": {0.8, 0.2},
	}

	cands, err := s.Rank(context.Background(), ev, promises, vectors)
	require.NoError(t, err)
	assert.Len(t, cands, 2)
}
