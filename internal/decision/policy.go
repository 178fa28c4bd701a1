// Package decision converts a judge's continuous confidence into a discrete
// persistence action. The two operating modes are mutually exclusive per run
// so audit trails stay interpretable.
package decision

import (
	"fmt"

	"github.com/civictrace/promislink/internal/judge"
	"github.com/civictrace/promislink/internal/model"
)

// Mode selects the run-level operating policy
type Mode string

const (
	// ModeDirect links confident positives and discards everything else
	ModeDirect Mode = "direct"

	// ModeReview links confident positives and queues every other positive
	// verdict for human triage instead of discarding it
	ModeReview Mode = "review"
)

// Action is the decided persistence path for one judged pair
type Action int

const (
	// ActionDiscard drops the pair; counted as rejected
	ActionDiscard Action = iota

	// ActionLink creates a direct link immediately
	ActionLink

	// ActionQueue creates a pending review record
	ActionQueue
)

func (a Action) String() string {
	switch a {
	case ActionLink:
		return "link"
	case ActionQueue:
		return "queue"
	default:
		return "discard"
	}
}

// DefaultMinConfidence is the auto-link threshold
const DefaultMinConfidence = 0.7

// Policy is the tunable calibration applied to every verdict in a run
type Policy struct {
	Mode          Mode
	MinConfidence float64
}

// NewPolicy validates and creates a policy
func NewPolicy(mode Mode, minConfidence float64) (Policy, error) {
	switch mode {
	case ModeDirect, ModeReview:
	default:
		return Policy{}, fmt.Errorf("unknown decision mode: %q (supported: direct, review)", mode)
	}
	if minConfidence < 0 || minConfidence > 1 {
		return Policy{}, fmt.Errorf("min confidence %v outside [0,1]", minConfidence)
	}
	return Policy{Mode: mode, MinConfidence: minConfidence}, nil
}

// DefaultPolicy returns the direct-only policy at the default threshold
func DefaultPolicy() Policy {
	return Policy{Mode: ModeDirect, MinConfidence: DefaultMinConfidence}
}

// Decision is the outcome of calibrating one verdict
type Decision struct {
	Action     Action
	Likelihood model.Likelihood
}

// Decide maps a verdict to an action. Rationale and confidence travel with
// the verdict into whichever persistence path is taken.
func (p Policy) Decide(v judge.Verdict) Decision {
	bucket := BucketFor(v.Confidence)

	if !v.ShouldLink {
		return Decision{Action: ActionDiscard, Likelihood: bucket}
	}
	if v.Confidence >= p.MinConfidence {
		return Decision{Action: ActionLink, Likelihood: bucket}
	}
	if p.Mode == ModeReview {
		return Decision{Action: ActionQueue, Likelihood: bucket}
	}
	return Decision{Action: ActionDiscard, Likelihood: bucket}
}

// BucketFor bins a confidence value into the coarse reviewer-facing bucket
func BucketFor(confidence float64) model.Likelihood {
	switch {
	case confidence >= 0.8:
		return model.LikelihoodHigh
	case confidence >= 0.6:
		return model.LikelihoodMedium
	case confidence >= 0.4:
		return model.LikelihoodLow
	default:
		return model.LikelihoodNotRelated
	}
}
