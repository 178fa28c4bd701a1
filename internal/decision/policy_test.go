package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civictrace/promislink/internal/judge"
	"github.com/civictrace/promislink/internal/model"
)

func TestDecide_DirectMode(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		verdict judge.Verdict
		want    Action
	}{
		{"confident positive links", judge.Verdict{ShouldLink: true, Confidence: 0.82}, ActionLink},
		{"threshold is inclusive", judge.Verdict{ShouldLink: true, Confidence: 0.7}, ActionLink},
		{"weak positive discarded", judge.Verdict{ShouldLink: true, Confidence: 0.65}, ActionDiscard},
		{"negative discarded", judge.Verdict{ShouldLink: false, Confidence: 0.95}, ActionDiscard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Decide(tt.verdict).Action)
		})
	}
}

func TestDecide_ReviewMode(t *testing.T) {
	p, err := NewPolicy(ModeReview, 0.7)
	require.NoError(t, err)

	tests := []struct {
		name    string
		verdict judge.Verdict
		want    Action
	}{
		{"confident positive still links", judge.Verdict{ShouldLink: true, Confidence: 0.9}, ActionLink},
		{"weak positive queued, not discarded", judge.Verdict{ShouldLink: true, Confidence: 0.5}, ActionQueue},
		{"barely positive queued", judge.Verdict{ShouldLink: true, Confidence: 0.1}, ActionQueue},
		{"negative discarded", judge.Verdict{ShouldLink: false, Confidence: 0.5}, ActionDiscard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Decide(tt.verdict).Action)
		})
	}
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		confidence float64
		want       model.Likelihood
	}{
		{0.95, model.LikelihoodHigh},
		{0.8, model.LikelihoodHigh},
		{0.79, model.LikelihoodMedium},
		{0.6, model.LikelihoodMedium},
		{0.59, model.LikelihoodLow},
		{0.4, model.LikelihoodLow},
		{0.39, model.LikelihoodNotRelated},
		{0, model.LikelihoodNotRelated},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketFor(tt.confidence), "confidence %v", tt.confidence)
	}
}

func TestNewPolicy_Validation(t *testing.T) {
	_, err := NewPolicy("hybrid", 0.7)
	assert.Error(t, err)

	_, err = NewPolicy(ModeDirect, 1.2)
	assert.Error(t, err)

	_, err = NewPolicy(ModeReview, 0)
	assert.NoError(t, err)
}
