// Package store is the document-store port for the linking engine. Two
// implementations exist: Firestore for production and an in-memory store for
// tests and rehearsals. The bidirectional link invariant — every promise ID
// in an evidence item's promise set appears in that promise's linked-evidence
// relation, and vice versa — is enforced here, inside single atomic
// operations, not by caller discipline.
package store

import (
	"context"
	"errors"
	"regexp"

	"github.com/civictrace/promislink/internal/model"
)

// Sentinel errors callers branch on
var (
	ErrNotFound = errors.New("document not found")

	// ErrReviewNotPending is returned when confirming or rejecting a record
	// that has already been decided
	ErrReviewNotPending = errors.New("review record is not pending")
)

// LinkMeta travels with a dual write into the promise-side link descriptor
type LinkMeta struct {
	Rationale  string
	Confidence float64
}

// ScopeFilter selects which documents participate in a run. Zero-value
// slices mean "no restriction".
type ScopeFilter struct {
	Sessions    []string
	SourceTypes []model.SourceType
	Parties     []string
	Ranks       []string

	// IncludeProcessed pulls already-processed evidence back in
	// (force-reprocessing runs)
	IncludeProcessed bool

	// Limit caps the number of evidence items returned (0 = all)
	Limit int
}

// Store is the document-store contract used by the linking engine
type Store interface {
	// Evidence fetches one evidence item by ID
	Evidence(ctx context.Context, id string) (*model.Evidence, error)

	// UnlinkedEvidence lists evidence in scope, pending-only unless the
	// filter includes processed items
	UnlinkedEvidence(ctx context.Context, f ScopeFilter) ([]model.Evidence, error)

	// Promise fetches one promise by ID
	Promise(ctx context.Context, id string) (*model.Promise, error)

	// Promises lists promises in scope
	Promises(ctx context.Context, f ScopeFilter) ([]model.Promise, error)

	// LinkPair atomically appends the promise ID to the evidence item's
	// promise set and a link descriptor to the promise's linked-evidence
	// relation. Set-union semantics: calling twice with the same pair
	// produces exactly one entry on each side.
	LinkPair(ctx context.Context, evidenceID, promiseID string, meta LinkMeta) error

	// SetLinkingStatus updates one evidence item's linking status
	SetLinkingStatus(ctx context.Context, evidenceID string, status model.LinkingStatus) error

	// CreateReviewRecord persists a new pending review record and returns its ID
	CreateReviewRecord(ctx context.Context, rec *model.ReviewRecord) (string, error)

	// ReviewRecord fetches one review record by ID
	ReviewRecord(ctx context.Context, id string) (*model.ReviewRecord, error)

	// PendingReviews lists records awaiting triage, oldest first
	PendingReviews(ctx context.Context, limit int) ([]model.ReviewRecord, error)

	// ConfirmReview atomically marks the record confirmed and performs the
	// same dual write as LinkPair. Either everything commits or nothing does.
	ConfirmReview(ctx context.Context, recordID string) error

	// RejectReview marks the record rejected with a reason; no relation
	// mutation.
	RejectReview(ctx context.Context, recordID, reason string) error
}

var bareSessionRe = regexp.MustCompile(`^\d+$`)

// ExpandSessions widens session identifiers to their acceptable variants: a
// bare legislative-session number like "44" matches any of its sub-sessions
// ("44-1", "44-2", ...), while exact identifiers pass through untouched.
func ExpandSessions(sessions []string) []string {
	seen := make(map[string]struct{}, len(sessions))
	var out []string
	add := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, s := range sessions {
		add(s)
		if bareSessionRe.MatchString(s) {
			for _, suffix := range []string{"-1", "-2", "-3"} {
				add(s + suffix)
			}
		}
	}
	return out
}
