package judge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns queued responses in order
type scriptedProvider struct {
	responses []func() (*Verdict, error)
	calls     int
}

func (s *scriptedProvider) Name() string                        { return "scripted" }
func (s *scriptedProvider) IsAvailable(context.Context) bool    { return true }
func (s *scriptedProvider) Evaluate(context.Context, EvaluateRequest) (*Verdict, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx]()
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestRetryingProvider_TransientThenSuccess(t *testing.T) {
	want := &Verdict{ShouldLink: true, Confidence: 0.8, Rationale: "ok"}
	inner := &scriptedProvider{responses: []func() (*Verdict, error){
		func() (*Verdict, error) { return nil, transportErr("boom", nil) },
		func() (*Verdict, error) { return nil, rateLimitErr("slow down", nil) },
		func() (*Verdict, error) { return want, nil },
	}}

	r := NewRetryingProvider(inner, fastRetry(3))
	got, err := r.Evaluate(context.Background(), EvaluateRequest{})

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingProvider_MalformedNotRetried(t *testing.T) {
	inner := &scriptedProvider{responses: []func() (*Verdict, error){
		func() (*Verdict, error) { return nil, malformedErr("bad json", "{", nil) },
	}}

	r := NewRetryingProvider(inner, fastRetry(3))
	_, err := r.Evaluate(context.Background(), EvaluateRequest{})

	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)

	ee, ok := AsEvalError(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformed, ee.Kind)
}

func TestRetryingProvider_ExhaustsAttempts(t *testing.T) {
	inner := &scriptedProvider{responses: []func() (*Verdict, error){
		func() (*Verdict, error) { return nil, transportErr("down", nil) },
	}}

	r := NewRetryingProvider(inner, fastRetry(2))
	_, err := r.Evaluate(context.Background(), EvaluateRequest{})

	require.Error(t, err)
	assert.Equal(t, 3, inner.calls) // initial call + 2 retries
}

func TestRetryingProvider_ContextCancelled(t *testing.T) {
	inner := &scriptedProvider{responses: []func() (*Verdict, error){
		func() (*Verdict, error) { return nil, transportErr("down", nil) },
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetryingProvider(inner, RetryConfig{MaxAttempts: 5, BaseDelay: time.Minute, MaxDelay: time.Minute})
	_, err := r.Evaluate(ctx, EvaluateRequest{})

	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestNewProvider_Factory(t *testing.T) {
	tests := []struct {
		provider string
		wantErr  bool
	}{
		{"openai", false},
		{"anthropic", false},
		{"claude", false},
		{"ollama", false},
		{"", true},
		{"bard", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Provider = tt.provider
			cfg.APIKey = "test-key"

			p, err := NewProvider(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, p.Name())
		})
	}
}
