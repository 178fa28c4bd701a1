package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Stats accumulates run-level counters. One instance per run; worker results
// are merged in after the pool drains.
type Stats struct {
	EvidenceProcessed int // evidence items fully examined
	EvidenceErrored   int // evidence items abandoned on a non-pair error

	CandidatesConsidered int // pairs surviving the prefilter
	CandidatesPruned     int // pairs the prefilter removed before judging

	PairsJudged int // judge calls that returned a schema-valid verdict
	Linked      int // direct links committed
	Queued      int // review records created
	Rejected    int // pairs discarded by the policy
	PairErrors  int // judge calls that failed after retries

	TokensUsed int

	PrefilterTime time.Duration
	JudgeTime     time.Duration
	TotalTime     time.Duration
}

// Merge folds another accumulator into this one
func (s *Stats) Merge(other Stats) {
	s.EvidenceProcessed += other.EvidenceProcessed
	s.EvidenceErrored += other.EvidenceErrored
	s.CandidatesConsidered += other.CandidatesConsidered
	s.CandidatesPruned += other.CandidatesPruned
	s.PairsJudged += other.PairsJudged
	s.Linked += other.Linked
	s.Queued += other.Queued
	s.Rejected += other.Rejected
	s.PairErrors += other.PairErrors
	s.TokensUsed += other.TokensUsed
	s.PrefilterTime += other.PrefilterTime
	s.JudgeTime += other.JudgeTime
}

// Summary renders the operator-facing run report
func (s *Stats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evidence processed:    %d\n", s.EvidenceProcessed)
	if s.EvidenceErrored > 0 {
		fmt.Fprintf(&b, "Evidence errored:      %d\n", s.EvidenceErrored)
	}
	fmt.Fprintf(&b, "Candidates considered: %d (pruned %d)\n", s.CandidatesConsidered, s.CandidatesPruned)
	fmt.Fprintf(&b, "Pairs judged:          %d\n", s.PairsJudged)
	fmt.Fprintf(&b, "Links created:         %d\n", s.Linked)
	fmt.Fprintf(&b, "Queued for review:     %d\n", s.Queued)
	fmt.Fprintf(&b, "Discarded:             %d\n", s.Rejected)
	if s.PairErrors > 0 {
		fmt.Fprintf(&b, "Evaluation errors:     %d\n", s.PairErrors)
	}
	if s.TokensUsed > 0 {
		fmt.Fprintf(&b, "Tokens used:           %d\n", s.TokensUsed)
	}
	fmt.Fprintf(&b, "Elapsed:               %s (judging %s)\n",
		s.TotalTime.Round(time.Millisecond), s.JudgeTime.Round(time.Millisecond))
	return b.String()
}
