// Package judge asks a generative-language-model service whether one
// evidence item substantiates one promise. Each call covers exactly one
// (evidence, promise) pair and must come back as strict JSON; anything else
// is a typed evaluation error the caller skips and counts, never a crash.
package judge

import (
	"context"

	"github.com/civictrace/promislink/internal/model"
)

// Provider is the interface every judge backend implements
type Provider interface {
	// Name returns the provider name
	Name() string

	// Evaluate judges a single (evidence, promise) pair. A nil error means
	// the verdict is schema-valid; failures surface as *EvalError so the
	// caller can distinguish "could not evaluate" from "not related".
	Evaluate(ctx context.Context, req EvaluateRequest) (*Verdict, error)

	// IsAvailable checks the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// EvaluateRequest carries both sides of one candidate pair
type EvaluateRequest struct {
	Evidence model.Evidence
	Promise  model.Promise

	// Model overrides the configured model for this call (optional)
	Model string

	// MaxTokens limits the response length (0 = provider default)
	MaxTokens int
}

// Verdict is the strict response contract for one judged pair
type Verdict struct {
	// ShouldLink is the judge's binary relevance decision
	ShouldLink bool `json:"should_link"`

	// Confidence is the judge's self-reported confidence in [0, 1]
	Confidence float64 `json:"confidence_score" validate:"min=0,max=1"`

	// Rationale is the human-readable justification, always populated on a
	// positive judgement
	Rationale string `json:"rationale"`

	// Model records which model produced the verdict
	Model string `json:"-"`

	// TokensUsed tracks cost attribution for the run summary
	TokensUsed int `json:"-"`
}

// Config holds judge provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama or a gateway)
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	// MaxTokens for verdict generation
	MaxTokens int

	// Temperature; low values keep verdicts consistent
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Timeout:     30,
		MaxTokens:   500,
		Temperature: 0.1,
	}
}

// ConfigFromModel converts the run configuration's LLM section
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		HTTPProxy:   c.HTTPProxy,
		HTTPSProxy:  c.HTTPSProxy,
		NoProxy:     c.NoProxy,
	}
}
