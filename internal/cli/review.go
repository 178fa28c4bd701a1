package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/civictrace/promislink/internal/linker"
	"github.com/civictrace/promislink/internal/store"
)

var (
	reviewProject  string
	reviewDatabase string
	reviewLimit    int
	reviewReason   string
)

// reviewCmd represents the review command group
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Triage links queued for human review",
	Long: `Review manages the queue produced by review-mode linking runs: positive
judge verdicts below the auto-link threshold wait here until a human
confirms or rejects them.

Confirming performs the same mutual link write as a direct link, atomically
with the status change. Rejecting records the reason and touches nothing
else.`,
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending review records",
	Long:  `Display pending review records, oldest first, with their confidence bucket and rationale.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		st, err := openReviewStore(ctx)
		if err != nil {
			return err
		}

		pending, err := st.PendingReviews(ctx, reviewLimit)
		if err != nil {
			return fmt.Errorf("listing pending reviews: %w", err)
		}
		if len(pending) == 0 {
			fmt.Println("No pending reviews.")
			return nil
		}

		for _, rec := range pending {
			fmt.Printf("%s  [%s, %.2f]\n", rec.ID, rec.Likelihood, rec.Confidence)
			fmt.Printf("  Evidence: %s\n", rec.EvidenceTitle)
			fmt.Printf("  Promise:  %s\n", rec.PromiseText)
			fmt.Printf("  Why:      %s\n", rec.Rationale)
			fmt.Println()
		}
		fmt.Printf("%d pending review(s).\n", len(pending))
		return nil
	},
}

var reviewConfirmCmd = &cobra.Command{
	Use:   "confirm <record-id>",
	Short: "Confirm a pending review and create the link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		st, err := openReviewStore(ctx)
		if err != nil {
			return err
		}

		mgr := linker.New(st)
		if verbose {
			mgr.Logf = func(format string, a ...any) { fmt.Fprintf(os.Stderr, format+"\n", a...) }
		}
		if err := mgr.ConfirmReview(ctx, args[0]); err != nil {
			if errors.Is(err, store.ErrReviewNotPending) {
				return fmt.Errorf("record %s has already been decided", args[0])
			}
			return err
		}
		fmt.Printf("Confirmed %s; link created.\n", args[0])
		return nil
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <record-id>",
	Short: "Reject a pending review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		st, err := openReviewStore(ctx)
		if err != nil {
			return err
		}

		mgr := linker.New(st)
		if err := mgr.RejectReview(ctx, args[0], reviewReason); err != nil {
			if errors.Is(err, store.ErrReviewNotPending) {
				return fmt.Errorf("record %s has already been decided", args[0])
			}
			return err
		}
		fmt.Printf("Rejected %s.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewConfirmCmd)
	reviewCmd.AddCommand(reviewRejectCmd)

	reviewCmd.PersistentFlags().StringVar(&reviewProject, "project", "", "GCP project ID for the document store")
	reviewCmd.PersistentFlags().StringVar(&reviewDatabase, "database", "", "named Firestore database (default database if empty)")
	reviewListCmd.Flags().IntVar(&reviewLimit, "limit", 50, "max records to list (0 = all)")
	reviewRejectCmd.Flags().StringVar(&reviewReason, "reason", "", "why the proposed link is wrong")
	_ = reviewRejectCmd.MarkFlagRequired("reason")
}

func openReviewStore(ctx context.Context) (store.Store, error) {
	cfg := buildConfig()
	if reviewProject != "" {
		cfg.Store.Project = reviewProject
	}
	cfg.Store.Database = reviewDatabase
	return openStore(ctx, cfg)
}
