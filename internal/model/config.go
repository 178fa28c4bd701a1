package model

import "time"

// Config is the aggregate run configuration.
// Hierarchy (highest to lowest priority): CLI flags, PROMISLINK_* environment
// variables, ~/.promislink/config.yaml, the defaults below.
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Prefilter   PrefilterConfig   `yaml:"prefilter"`
	Decision    DecisionConfig    `yaml:"decision"`
	Scope       ScopeConfig       `yaml:"scope"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Cache       CacheConfig       `yaml:"cache"`
	Output      OutputConfig      `yaml:"output"`

	// DryRun executes and logs every decision but issues zero writes
	DryRun bool `yaml:"dry_run"`

	// ForceReprocessing re-runs linking over already-processed evidence;
	// union semantics on the relations prevent duplicate entries
	ForceReprocessing bool `yaml:"force_reprocessing"`
}

// StoreConfig selects and configures the document store backend
type StoreConfig struct {
	Backend    string `yaml:"backend"`     // "firestore" or "memory"
	Project    string `yaml:"project"`     // GCP project ID for firestore
	Database   string `yaml:"database"`    // named firestore database ("" = default)
	Credential string `yaml:"credentials"` // service account file (optional)
}

// LLMConfig configures the relevance judge provider
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, anthropic, ollama
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Timeout     int     `yaml:"timeout"` // seconds per judge call
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	// Rate controls shared across all workers in a run
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CallDelay         time.Duration `yaml:"call_delay"` // fixed pause between judge calls

	// Retry bounds for transient failures
	MaxRetries int `yaml:"max_retries"`

	// Proxy settings
	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// EmbeddingConfig configures the optional semantic scoring signal
type EmbeddingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Timeout int    `yaml:"timeout"` // seconds
}

// PrefilterConfig tunes candidate generation. Defaults favor recall: a false
// negative here can never be recovered downstream, a false positive only
// costs one extra judge call.
type PrefilterConfig struct {
	MinSimilarity float64 `yaml:"min_similarity"`
	MaxCandidates int     `yaml:"max_candidates"`

	// KeywordTable optionally overrides the built-in stop-word /
	// important-term / department-alias tables with a YAML file
	KeywordTable string `yaml:"keyword_table,omitempty"`
}

// DecisionConfig tunes the confidence calibrator
type DecisionConfig struct {
	Mode          string  `yaml:"mode"` // "direct" or "review"
	MinConfidence float64 `yaml:"min_confidence"`
}

// ScopeConfig filters which evidence and promises participate in a run
type ScopeConfig struct {
	Sessions      []string `yaml:"sessions"`       // bare "44" expands to sub-session variants
	EvidenceTypes []string `yaml:"evidence_types"` // source-type tags
	Parties       []string `yaml:"parties"`
	Ranks         []string `yaml:"ranks"`
	Limit         int      `yaml:"limit"` // max evidence items per run (0 = all)
}

// ConcurrencyConfig bounds parallelism across evidence items
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// CacheConfig controls the embedding cache layers
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir,omitempty"` // disk layer; "" = memory only
	TTL     time.Duration `yaml:"ttl"`
}

// OutputConfig controls operator-facing output
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns sensible defaults for a linking run
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "firestore",
		},
		LLM: LLMConfig{
			Provider:          "openai",
			Timeout:           30,
			MaxTokens:         500,
			Temperature:       0.1,
			RequestsPerSecond: 2,
			Burst:             2,
			CallDelay:         500 * time.Millisecond,
			MaxRetries:        3,
		},
		Embedding: EmbeddingConfig{
			Enabled: false,
			Model:   "text-embedding-3-small",
			Timeout: 30,
		},
		Prefilter: PrefilterConfig{
			MinSimilarity: 0.1,
			MaxCandidates: 20,
		},
		Decision: DecisionConfig{
			Mode:          "direct",
			MinConfidence: 0.7,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 1,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
	}
}
