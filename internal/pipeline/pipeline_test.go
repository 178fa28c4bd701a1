package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civictrace/promislink/internal/decision"
	"github.com/civictrace/promislink/internal/judge"
	"github.com/civictrace/promislink/internal/keywords"
	"github.com/civictrace/promislink/internal/linker"
	"github.com/civictrace/promislink/internal/model"
	"github.com/civictrace/promislink/internal/prefilter"
	"github.com/civictrace/promislink/internal/score"
	"github.com/civictrace/promislink/internal/store"
	"github.com/civictrace/promislink/internal/worker"
)

// fakeJudge returns canned raw payloads per promise ID, exercising the same
// parse path as a live provider
type fakeJudge struct {
	raw   map[string]string // promise ID -> raw model output
	calls atomic.Int64
}

func (f *fakeJudge) Name() string                     { return "fake" }
func (f *fakeJudge) IsAvailable(context.Context) bool { return true }

func (f *fakeJudge) Evaluate(_ context.Context, req judge.EvaluateRequest) (*judge.Verdict, error) {
	f.calls.Add(1)
	raw, ok := f.raw[req.Promise.ID]
	if !ok {
		raw = `{"should_link": false, "confidence_score": 0.1, "rationale": ""}`
	}
	return judge.ParseVerdict(raw)
}

func newTestPipeline(s *store.Memory, j judge.Provider, policy decision.Policy) *Pipeline {
	gen := prefilter.NewGenerator(keywords.NewExtractor(), score.NewScorer(score.DefaultWeights()), prefilter.DefaultConfig())
	return &Pipeline{
		Store:     s,
		Prefilter: gen,
		Judge:     j,
		Policy:    policy,
		Linker:    linker.New(s),
		Limiter:   worker.NewLimiter(1000, 1000),
	}
}

func seedCorpus(s *store.Memory) {
	s.PutEvidence(model.Evidence{
		ID:            "ev-jordan",
		Title:         "Order transfers powers over Indigenous child welfare funding",
		Description:   "Transfer of duties relating to Indigenous Services child and family programs.",
		SourceType:    model.SourceRegulation,
		Session:       "44-1",
		LinkingStatus: model.LinkingPending,
	})
	s.PutPromise(model.Promise{
		ID:       "pr-jordan",
		Session:  "44-1",
		Party:    "LPC",
		Rank:     "core",
		Text:     "Fully fund Jordan's Principle so First Nations children get the services they need",
		Keywords: []string{"indigenous", "child welfare", "funding", "jordan's principle"},
	})
	s.PutPromise(model.Promise{
		ID:       "pr-dental",
		Session:  "44-1",
		Party:    "LPC",
		Rank:     "core",
		Text:     "Implement a national dental care plan for uninsured families",
		Keywords: []string{"dental", "insurance", "health coverage"},
	})
}

func TestRun_DirectLink(t *testing.T) {
	s := store.NewMemory()
	seedCorpus(s)

	j := &fakeJudge{raw: map[string]string{
		"pr-jordan": `{"should_link": true, "confidence_score": 0.82, "rationale": "The order funds the program the commitment names."}`,
	}}
	p := newTestPipeline(s, j, decision.DefaultPolicy())

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.EvidenceProcessed)
	assert.Equal(t, 1, stats.Linked)
	assert.Zero(t, stats.PairErrors)
	// The dental promise shares no vocabulary with the order and never
	// reaches the judge
	assert.Equal(t, int64(1), j.calls.Load())

	ev, err := s.Evidence(context.Background(), "ev-jordan")
	require.NoError(t, err)
	assert.Equal(t, model.LinkingProcessed, ev.LinkingStatus)
	assert.Equal(t, []string{"pr-jordan"}, ev.PromiseIDs)

	pr, err := s.Promise(context.Background(), "pr-jordan")
	require.NoError(t, err)
	require.Len(t, pr.LinkedEvidence, 1)
	assert.Equal(t, "ev-jordan", pr.LinkedEvidence[0].EvidenceID)
	assert.Equal(t, 0.82, pr.LinkedEvidence[0].Confidence)
}

func TestRun_ReviewModeQueuesWeakPositive(t *testing.T) {
	s := store.NewMemory()
	seedCorpus(s)

	j := &fakeJudge{raw: map[string]string{
		"pr-jordan": `{"should_link": true, "confidence_score": 0.55, "rationale": "Related program but scope unclear."}`,
	}}
	policy, err := decision.NewPolicy(decision.ModeReview, 0.7)
	require.NoError(t, err)
	p := newTestPipeline(s, j, policy)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Queued)
	assert.Zero(t, stats.Linked)

	pending, err := s.PendingReviews(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ev-jordan", pending[0].EvidenceID)
	assert.Equal(t, model.LikelihoodLow, pending[0].Likelihood)
	assert.NotEmpty(t, pending[0].EvidenceTitle)

	// No relation mutation until a human confirms
	ev, err := s.Evidence(context.Background(), "ev-jordan")
	require.NoError(t, err)
	assert.Empty(t, ev.PromiseIDs)
	assert.Equal(t, model.LinkingProcessed, ev.LinkingStatus)
}

func TestRun_MalformedVerdictCountedNotFatal(t *testing.T) {
	s := store.NewMemory()
	seedCorpus(s)

	// Missing confidence_score is a terminal schema violation
	j := &fakeJudge{raw: map[string]string{
		"pr-jordan": `{"should_link": true, "rationale": "looks related"}`,
	}}
	p := newTestPipeline(s, j, decision.DefaultPolicy())

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.PairErrors)
	assert.Zero(t, stats.Linked)
	assert.Equal(t, 1, stats.EvidenceProcessed)

	// The item still completes its pass
	ev, err := s.Evidence(context.Background(), "ev-jordan")
	require.NoError(t, err)
	assert.Equal(t, model.LinkingProcessed, ev.LinkingStatus)
}

func TestRun_ProcessedEvidenceSkippedUnlessForced(t *testing.T) {
	s := store.NewMemory()
	seedCorpus(s)
	require.NoError(t, s.SetLinkingStatus(context.Background(), "ev-jordan", model.LinkingProcessed))

	j := &fakeJudge{raw: map[string]string{
		"pr-jordan": `{"should_link": true, "confidence_score": 0.9, "rationale": "match"}`,
	}}
	p := newTestPipeline(s, j, decision.DefaultPolicy())

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.EvidenceProcessed)
	assert.Zero(t, j.calls.Load())

	p.ForceReprocessing = true
	stats, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EvidenceProcessed)
	assert.Equal(t, 1, stats.Linked)

	// A second forced pass is idempotent on the relations
	stats, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Linked)

	pr, err := s.Promise(context.Background(), "pr-jordan")
	require.NoError(t, err)
	assert.Len(t, pr.LinkedEvidence, 1)
}

func TestRun_DryRunDecidesButNeverWrites(t *testing.T) {
	s := store.NewMemory()
	seedCorpus(s)

	j := &fakeJudge{raw: map[string]string{
		"pr-jordan": `{"should_link": true, "confidence_score": 0.82, "rationale": "match"}`,
	}}
	p := newTestPipeline(s, j, decision.DefaultPolicy())
	p.Linker.DryRun = true

	var lines []string
	p.Linker.Logf = func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	// Same decision counters as a live run, zero store mutations
	assert.Equal(t, 1, stats.Linked)
	assert.Equal(t, 1, stats.EvidenceProcessed)
	assert.Zero(t, s.WriteCount())
	assert.NotEmpty(t, lines)

	ev, err := s.Evidence(context.Background(), "ev-jordan")
	require.NoError(t, err)
	assert.Equal(t, model.LinkingPending, ev.LinkingStatus)
	assert.Empty(t, ev.PromiseIDs)
}

func TestRun_ScopeFiltersPromises(t *testing.T) {
	s := store.NewMemory()
	seedCorpus(s)
	s.PutPromise(model.Promise{
		ID:       "pr-old",
		Session:  "43-2",
		Party:    "LPC",
		Text:     "Fund Indigenous child welfare services",
		Keywords: []string{"indigenous", "child welfare", "funding"},
	})

	j := &fakeJudge{raw: map[string]string{
		"pr-jordan": `{"should_link": true, "confidence_score": 0.82, "rationale": "match"}`,
		"pr-old":    `{"should_link": true, "confidence_score": 0.9, "rationale": "match"}`,
	}}
	p := newTestPipeline(s, j, decision.DefaultPolicy())
	p.Scope = store.ScopeFilter{Sessions: []string{"44"}}

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	// The session-43 promise never entered the run
	assert.Equal(t, 1, stats.Linked)
	ev, err := s.Evidence(context.Background(), "ev-jordan")
	require.NoError(t, err)
	assert.Equal(t, []string{"pr-jordan"}, ev.PromiseIDs)
}

func TestRun_ParallelWorkersMatchSequential(t *testing.T) {
	seed := func() *store.Memory {
		s := store.NewMemory()
		seedCorpus(s)
		for i := 0; i < 5; i++ {
			s.PutEvidence(model.Evidence{
				ID:            fmt.Sprintf("ev-extra-%d", i),
				Title:         "Funding announced for Indigenous child welfare programs",
				SourceType:    model.SourceNews,
				Session:       "44-1",
				LinkingStatus: model.LinkingPending,
			})
		}
		return s
	}
	raw := map[string]string{
		"pr-jordan": `{"should_link": true, "confidence_score": 0.82, "rationale": "match"}`,
	}

	sequential := seed()
	p1 := newTestPipeline(sequential, &fakeJudge{raw: raw}, decision.DefaultPolicy())
	st1, err := p1.Run(context.Background())
	require.NoError(t, err)

	parallel := seed()
	p2 := newTestPipeline(parallel, &fakeJudge{raw: raw}, decision.DefaultPolicy())
	p2.Workers = 4
	st2, err := p2.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, st1.EvidenceProcessed, st2.EvidenceProcessed)
	assert.Equal(t, st1.Linked, st2.Linked)
	assert.Equal(t, st1.PairsJudged, st2.PairsJudged)

	pr1, err := sequential.Promise(context.Background(), "pr-jordan")
	require.NoError(t, err)
	pr2, err := parallel.Promise(context.Background(), "pr-jordan")
	require.NoError(t, err)
	assert.Equal(t, len(pr1.LinkedEvidence), len(pr2.LinkedEvidence))
}

func TestRun_ParallelHandlesLargeBacklog(t *testing.T) {
	// Backlog much larger than the worker count: the run must drain every
	// item rather than stalling once the pool queue fills
	s := store.NewMemory()
	seedCorpus(s)
	for i := 0; i < 40; i++ {
		s.PutEvidence(model.Evidence{
			ID:            fmt.Sprintf("ev-backlog-%02d", i),
			Title:         "Funding announced for Indigenous child welfare programs",
			SourceType:    model.SourceNews,
			Session:       "44-1",
			LinkingStatus: model.LinkingPending,
		})
	}

	j := &fakeJudge{raw: map[string]string{
		"pr-jordan": `{"should_link": true, "confidence_score": 0.82, "rationale": "match"}`,
	}}
	p := newTestPipeline(s, j, decision.DefaultPolicy())
	p.Workers = 4

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 41, stats.EvidenceProcessed)
	assert.Equal(t, 41, stats.Linked)
	assert.Zero(t, stats.EvidenceErrored)

	pr, err := s.Promise(context.Background(), "pr-jordan")
	require.NoError(t, err)
	assert.Len(t, pr.LinkedEvidence, 41)
}

func TestStats_MergeAndSummary(t *testing.T) {
	a := Stats{EvidenceProcessed: 2, Linked: 1, PairsJudged: 3, TokensUsed: 100}
	b := Stats{EvidenceProcessed: 1, Queued: 2, PairsJudged: 2, PairErrors: 1, TokensUsed: 50}
	a.Merge(b)

	assert.Equal(t, 3, a.EvidenceProcessed)
	assert.Equal(t, 5, a.PairsJudged)
	assert.Equal(t, 150, a.TokensUsed)

	out := a.Summary()
	assert.Contains(t, out, "Evidence processed:    3")
	assert.Contains(t, out, "Links created:         1")
	assert.Contains(t, out, "Evaluation errors:     1")
}
