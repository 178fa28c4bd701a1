package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/civictrace/promislink/internal/cache"
	"github.com/civictrace/promislink/internal/decision"
	"github.com/civictrace/promislink/internal/judge"
	"github.com/civictrace/promislink/internal/keywords"
	"github.com/civictrace/promislink/internal/linker"
	"github.com/civictrace/promislink/internal/model"
	"github.com/civictrace/promislink/internal/pipeline"
	"github.com/civictrace/promislink/internal/prefilter"
	"github.com/civictrace/promislink/internal/score"
	"github.com/civictrace/promislink/internal/semantic"
	"github.com/civictrace/promislink/internal/store"
	"github.com/civictrace/promislink/internal/worker"
)

var (
	linkSessions      []string
	linkParties       []string
	linkRanks         []string
	linkEvidenceTypes []string
	linkLimit         int

	linkMinConfidence float64
	linkMinSimilarity float64
	linkMaxCandidates int
	linkMode          string
	linkKeywordTable  string

	linkDryRun   bool
	linkForce    bool
	linkSemantic bool

	linkProvider  string
	linkModel     string
	linkCallDelay time.Duration
	linkWorkers   int

	linkProject  string
	linkDatabase string
	linkTimeout  time.Duration
)

// linkCmd represents the link command
var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Run a linking pass over pending evidence",
	Long: `Link examines every pending evidence item in scope, finds the promises it
plausibly substantiates, asks the configured LLM judge to verify each
candidate pair, and persists confident links (or queues uncertain ones for
human review, in review mode).

Already-processed evidence is skipped unless --force is given; forced reruns
are safe because link writes use set-union semantics.

Example:
  promislink link --project my-gcp-project --session 44
  promislink link --project my-gcp-project --session 44-1 --party LPC --mode review
  promislink link --project my-gcp-project --dry-run --verbose
  promislink link --project my-gcp-project --semantic --provider anthropic`,
	Args: cobra.NoArgs,
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)

	// Scope flags
	linkCmd.Flags().StringSliceVar(&linkSessions, "session", nil, "legislative session(s); bare numbers like 44 match all sub-sessions")
	linkCmd.Flags().StringSliceVar(&linkParties, "party", nil, "restrict promises to these parties")
	linkCmd.Flags().StringSliceVar(&linkRanks, "rank", nil, "restrict promises to these priority ranks")
	linkCmd.Flags().StringSliceVar(&linkEvidenceTypes, "evidence-type", nil, "restrict evidence to these source types")
	linkCmd.Flags().IntVar(&linkLimit, "limit", 0, "max evidence items this run (0 = all)")

	// Tuning flags
	linkCmd.Flags().Float64Var(&linkMinConfidence, "min-confidence", decision.DefaultMinConfidence, "auto-link confidence threshold")
	linkCmd.Flags().Float64Var(&linkMinSimilarity, "min-similarity", prefilter.DefaultConfig().MinSimilarity, "prefilter similarity floor")
	linkCmd.Flags().IntVar(&linkMaxCandidates, "max-candidates", prefilter.DefaultConfig().MaxCandidates, "max candidates per evidence item")
	linkCmd.Flags().StringVar(&linkMode, "mode", "direct", "decision mode (direct, review)")
	linkCmd.Flags().StringVar(&linkKeywordTable, "keyword-table", "", "YAML file overriding the built-in keyword tables")

	// Behavior flags
	linkCmd.Flags().BoolVar(&linkDryRun, "dry-run", false, "log every decision without writing anything")
	linkCmd.Flags().BoolVar(&linkForce, "force", false, "reprocess evidence already marked processed")
	linkCmd.Flags().BoolVar(&linkSemantic, "semantic", false, "add embedding similarity to candidate generation")

	// LLM flags
	linkCmd.Flags().StringVar(&linkProvider, "provider", "openai", "judge provider (openai, anthropic, ollama)")
	linkCmd.Flags().StringVar(&linkModel, "model", "", "judge model name (provider default if empty)")
	linkCmd.Flags().DurationVar(&linkCallDelay, "call-delay", 500*time.Millisecond, "pause between judge calls")
	linkCmd.Flags().IntVar(&linkWorkers, "workers", 1, "parallel evidence workers")

	// Store flags
	linkCmd.Flags().StringVar(&linkProject, "project", "", "GCP project ID for the document store")
	linkCmd.Flags().StringVar(&linkDatabase, "database", "", "named Firestore database (default database if empty)")
	linkCmd.Flags().DurationVar(&linkTimeout, "timeout", 30*time.Minute, "overall run timeout")

	_ = viper.BindPFlag("store.project", linkCmd.Flags().Lookup("project"))
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), linkTimeout)
	defer cancel()

	cfg := buildConfig()
	if verbose {
		fmt.Fprintf(os.Stderr, "Mode: %s (min confidence %.2f)\n", cfg.Decision.Mode, cfg.Decision.MinConfidence)
		fmt.Fprintf(os.Stderr, "Judge: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Dry run: %v\n", cfg.DryRun)
		fmt.Fprintln(os.Stderr)
	}

	policy, err := decision.NewPolicy(decision.Mode(cfg.Decision.Mode), cfg.Decision.MinConfidence)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closer, ok := st.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	provider, err := buildJudge(cfg)
	if err != nil {
		return err
	}
	if !provider.IsAvailable(ctx) {
		return fmt.Errorf("judge provider %s is not available (check API key and connectivity)", cfg.LLM.Provider)
	}

	table := keywords.DefaultTable()
	if cfg.Prefilter.KeywordTable != "" {
		table, err = keywords.LoadTable(cfg.Prefilter.KeywordTable)
		if err != nil {
			return fmt.Errorf("loading keyword table: %w", err)
		}
	}
	gen := prefilter.NewGenerator(
		keywords.NewExtractorFromTable(table),
		score.NewScorer(score.DefaultWeights()),
		prefilter.Config{MinSimilarity: cfg.Prefilter.MinSimilarity, MaxCandidates: cfg.Prefilter.MaxCandidates},
	)

	var sem *semantic.Scorer
	if cfg.Embedding.Enabled {
		sem, err = buildSemantic(cfg)
		if err != nil {
			return err
		}
	}

	mgr := linker.New(st)
	mgr.DryRun = cfg.DryRun
	logf := func(format string, a ...any) {
		if verbose {
			fmt.Fprintf(os.Stderr, format+"\n", a...)
		}
	}
	mgr.Logf = logf

	limiter := worker.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)

	p := &pipeline.Pipeline{
		Store:     st,
		Prefilter: gen,
		Judge:     provider,
		Policy:    policy,
		Linker:    mgr,
		Limiter:   limiter,
		Semantic:  sem,
		Scope: store.ScopeFilter{
			Sessions:    cfg.Scope.Sessions,
			SourceTypes: toSourceTypes(cfg.Scope.EvidenceTypes),
			Parties:     cfg.Scope.Parties,
			Ranks:       cfg.Scope.Ranks,
			Limit:       cfg.Scope.Limit,
		},
		CallDelay:         cfg.LLM.CallDelay,
		Workers:           cfg.Concurrency.Workers,
		ForceReprocessing: cfg.ForceReprocessing,
		Logf:              logf,
	}

	stats, err := p.Run(ctx)
	if stats != nil {
		fmt.Println()
		fmt.Print(stats.Summary())
	}
	if err != nil {
		return fmt.Errorf("linking run failed: %w", err)
	}
	return nil
}

// buildConfig merges defaults, config file, environment, and flags
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	cfg.Scope.Sessions = linkSessions
	cfg.Scope.Parties = linkParties
	cfg.Scope.Ranks = linkRanks
	cfg.Scope.EvidenceTypes = linkEvidenceTypes
	cfg.Scope.Limit = linkLimit

	cfg.Prefilter.MinSimilarity = linkMinSimilarity
	cfg.Prefilter.MaxCandidates = linkMaxCandidates
	cfg.Prefilter.KeywordTable = linkKeywordTable
	cfg.Decision.Mode = linkMode
	cfg.Decision.MinConfidence = linkMinConfidence

	cfg.DryRun = linkDryRun
	cfg.ForceReprocessing = linkForce
	cfg.Embedding.Enabled = linkSemantic

	cfg.LLM.Provider = linkProvider
	cfg.LLM.Model = linkModel
	cfg.LLM.CallDelay = linkCallDelay
	cfg.Concurrency.Workers = linkWorkers
	cfg.Output.Verbose = verbose

	cfg.Store.Project = linkProject
	if cfg.Store.Project == "" {
		cfg.Store.Project = viper.GetString("store.project")
	}
	cfg.Store.Database = linkDatabase

	// API keys come from the environment, never from flags
	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")

	return cfg
}

func openStore(ctx context.Context, cfg *model.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "firestore", "":
		return store.NewFirestore(ctx, cfg.Store)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}

func buildJudge(cfg *model.Config) (judge.Provider, error) {
	jc := judge.ConfigFromModel(cfg.LLM)
	inner, err := judge.NewProvider(jc)
	if err != nil {
		return nil, err
	}

	rc := judge.DefaultRetryConfig()
	if cfg.LLM.MaxRetries > 0 {
		rc.MaxAttempts = cfg.LLM.MaxRetries
	}
	return judge.NewRetryingProvider(inner, rc), nil
}

func buildSemantic(cfg *model.Config) (*semantic.Scorer, error) {
	if cfg.Embedding.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set (required for --semantic)")
	}
	embedder, err := semantic.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.Timeout)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	var c cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.Dir != "" {
			c = cache.NewLayered(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
		} else {
			c = cache.NewMemory(cfg.Cache.TTL, cfg.Cache.TTL)
		}
	}
	return semantic.NewScorer(embedder, c, cfg.Prefilter.MinSimilarity, cfg.Prefilter.MaxCandidates), nil
}

func toSourceTypes(names []string) []model.SourceType {
	out := make([]model.SourceType, 0, len(names))
	for _, n := range names {
		out = append(out, model.SourceType(n))
	}
	return out
}
