// Package pipeline orchestrates a linking run: fetch the in-scope corpus,
// prefilter candidate pairs, judge the survivors, calibrate, persist. Each
// evidence item is processed independently so one failure never poisons the
// rest of the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/civictrace/promislink/internal/decision"
	"github.com/civictrace/promislink/internal/judge"
	"github.com/civictrace/promislink/internal/linker"
	"github.com/civictrace/promislink/internal/model"
	"github.com/civictrace/promislink/internal/prefilter"
	"github.com/civictrace/promislink/internal/semantic"
	"github.com/civictrace/promislink/internal/store"
	"github.com/civictrace/promislink/internal/worker"
)

// judgeService is the rate-limiter key shared by every judge call in a run
const judgeService = "judge"

// Pipeline wires the linking stages together for one run
type Pipeline struct {
	Store     store.Store
	Prefilter *prefilter.Generator
	Judge     judge.Provider
	Policy    decision.Policy
	Linker    *linker.Manager
	Limiter   *worker.Limiter

	// Semantic, when non-nil, widens candidate recall with embedding
	// similarity merged into the lexical ranking
	Semantic *semantic.Scorer

	// Scope restricts which documents participate
	Scope store.ScopeFilter

	// CallDelay is the fixed pause between consecutive judge calls
	CallDelay time.Duration

	// Workers bounds parallelism across evidence items (<=1 = sequential)
	Workers int

	// ForceReprocessing pulls already-processed evidence back into scope
	ForceReprocessing bool

	// Logf receives verbose progress lines; nil disables them
	Logf func(format string, args ...any)
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

// Run executes one linking pass and returns the run statistics. The returned
// stats are valid even when an error is returned part-way through.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}
	defer func() { stats.TotalTime = time.Since(start) }()

	scope := p.Scope
	scope.IncludeProcessed = p.ForceReprocessing

	promises, err := p.Store.Promises(ctx, scope)
	if err != nil {
		return stats, fmt.Errorf("loading promises: %w", err)
	}
	if len(promises) == 0 {
		p.logf("no promises in scope; nothing to do")
		return stats, nil
	}

	evidence, err := p.Store.UnlinkedEvidence(ctx, scope)
	if err != nil {
		return stats, fmt.Errorf("loading evidence: %w", err)
	}
	p.logf("scope: %d evidence items x %d promises", len(evidence), len(promises))

	var vectors map[string][]float32
	if p.Semantic != nil {
		vectors, err = p.Semantic.PromiseVectors(ctx, promises)
		if err != nil {
			return stats, fmt.Errorf("preparing promise vectors: %w", err)
		}
		p.logf("embedded %d promises", len(vectors))
	}

	if p.Workers > 1 {
		p.runParallel(ctx, evidence, promises, vectors, stats)
	} else {
		for _, ev := range evidence {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Merge(p.processEvidence(ctx, ev, promises, vectors))
		}
	}

	return stats, ctx.Err()
}

// evidenceJob adapts one evidence item to the worker pool
type evidenceJob struct {
	p        *Pipeline
	ev       model.Evidence
	promises []model.Promise
	vectors  map[string][]float32
}

// evidenceResult carries one item's counters out of the pool
type evidenceResult struct {
	stats Stats
}

func (r evidenceResult) GetError() error { return nil }

func (j evidenceJob) Execute(ctx context.Context) worker.Result {
	return evidenceResult{stats: j.p.processEvidence(ctx, j.ev, j.promises, j.vectors)}
}

func (p *Pipeline) runParallel(ctx context.Context, evidence []model.Evidence, promises []model.Promise, vectors map[string][]float32, stats *Stats) {
	pool := worker.NewPool(p.Workers)
	pool.Start()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			pool.Shutdown()
		case <-done:
		}
	}()

	for _, ev := range evidence {
		pool.Submit(evidenceJob{p: p, ev: ev, promises: promises, vectors: vectors})
	}
	results := pool.Wait()
	close(done)

	for _, res := range results {
		if r, ok := res.(evidenceResult); ok {
			stats.Merge(r.stats)
		}
	}
}

// processEvidence runs the full stage sequence for one evidence item. Pair
// failures are counted and skipped; the item still completes and is marked
// processed so reruns do not retry poison pairs forever.
func (p *Pipeline) processEvidence(ctx context.Context, ev model.Evidence, promises []model.Promise, vectors map[string][]float32) Stats {
	var s Stats

	preStart := time.Now()
	candidates := p.Prefilter.Candidates(ev, promises)

	if p.Semantic != nil && len(vectors) > 0 {
		semCands, err := p.Semantic.Rank(ctx, ev, promises, vectors)
		if err != nil {
			// Lexical candidates still stand; the semantic signal is additive
			p.logf("evidence %s: semantic ranking failed, using lexical only: %v", ev.ID, err)
		} else {
			candidates = p.Prefilter.Merge(candidates, semCands)
		}
	}
	s.PrefilterTime = time.Since(preStart)

	s.CandidatesConsidered = len(candidates)
	s.CandidatesPruned = len(promises) - len(candidates)
	p.logf("evidence %s: %d candidates (%d pruned)", ev.ID, len(candidates), s.CandidatesPruned)

	for _, cand := range candidates {
		if err := p.Limiter.WaitWithDelay(ctx, judgeService, p.CallDelay); err != nil {
			s.EvidenceErrored++
			return s
		}

		judgeStart := time.Now()
		verdict, err := p.Judge.Evaluate(ctx, judge.EvaluateRequest{Evidence: ev, Promise: cand.Promise})
		s.JudgeTime += time.Since(judgeStart)
		if err != nil {
			if ctx.Err() != nil {
				s.EvidenceErrored++
				return s
			}
			s.PairErrors++
			p.logf("evidence %s / promise %s: evaluation failed: %v", ev.ID, cand.Promise.ID, err)
			continue
		}
		s.PairsJudged++
		s.TokensUsed += verdict.TokensUsed

		d := p.Policy.Decide(*verdict)
		p.logf("evidence %s / promise %s: %s (confidence %.2f, %s)",
			ev.ID, cand.Promise.ID, d.Action, verdict.Confidence, d.Likelihood)

		switch d.Action {
		case decision.ActionLink:
			if err := p.Linker.CreateDirectLink(ctx, ev, cand.Promise, verdict.Rationale, verdict.Confidence); err != nil {
				s.PairErrors++
				p.logf("evidence %s / promise %s: %v", ev.ID, cand.Promise.ID, err)
				continue
			}
			s.Linked++
		case decision.ActionQueue:
			if _, err := p.Linker.CreatePendingReview(ctx, ev, cand.Promise, verdict.Rationale, verdict.Confidence, d.Likelihood); err != nil {
				s.PairErrors++
				p.logf("evidence %s / promise %s: %v", ev.ID, cand.Promise.ID, err)
				continue
			}
			s.Queued++
		default:
			s.Rejected++
		}
	}

	if err := p.Linker.MarkProcessed(ctx, ev.ID); err != nil {
		s.EvidenceErrored++
		p.logf("evidence %s: %v", ev.ID, err)
		return s
	}
	s.EvidenceProcessed++
	return s
}
