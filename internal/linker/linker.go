// Package linker turns calibrated decisions into store mutations. It is the
// only component that writes links or review records, which keeps the
// dry-run guarantee in one place.
package linker

import (
	"context"
	"fmt"

	"github.com/civictrace/promislink/internal/model"
	"github.com/civictrace/promislink/internal/store"
)

// Manager applies decided outcomes to the document store
type Manager struct {
	store store.Store

	// DryRun logs every would-be mutation instead of performing it
	DryRun bool

	// Logf receives one line per decision; nil disables logging
	Logf func(format string, args ...any)
}

// New creates a manager over the given store
func New(s store.Store) *Manager {
	return &Manager{store: s}
}

func (m *Manager) logf(format string, args ...any) {
	if m.Logf != nil {
		m.Logf(format, args...)
	}
}

// CreateDirectLink commits a confident positive verdict as a mutual link
func (m *Manager) CreateDirectLink(ctx context.Context, ev model.Evidence, p model.Promise, rationale string, confidence float64) error {
	if m.DryRun {
		m.logf("dry-run: would link evidence %s to promise %s (confidence %.2f)", ev.ID, p.ID, confidence)
		return nil
	}

	err := m.store.LinkPair(ctx, ev.ID, p.ID, store.LinkMeta{
		Rationale:  rationale,
		Confidence: confidence,
	})
	if err != nil {
		return fmt.Errorf("creating direct link: %w", err)
	}
	m.logf("linked evidence %s to promise %s (confidence %.2f)", ev.ID, p.ID, confidence)
	return nil
}

// CreatePendingReview queues a below-threshold positive verdict for triage.
// Snippets are denormalized into the record so reviewers never need extra
// document reads.
func (m *Manager) CreatePendingReview(ctx context.Context, ev model.Evidence, p model.Promise, rationale string, confidence float64, likelihood model.Likelihood) (string, error) {
	if m.DryRun {
		m.logf("dry-run: would queue evidence %s / promise %s for review (%s, %.2f)", ev.ID, p.ID, likelihood, confidence)
		return "", nil
	}

	id, err := m.store.CreateReviewRecord(ctx, &model.ReviewRecord{
		EvidenceID:    ev.ID,
		PromiseID:     p.ID,
		EvidenceTitle: ev.Title,
		PromiseText:   p.Text,
		Rationale:     rationale,
		Likelihood:    likelihood,
		Confidence:    confidence,
		Status:        model.ReviewPending,
	})
	if err != nil {
		return "", fmt.Errorf("queueing review: %w", err)
	}
	m.logf("queued review %s for evidence %s / promise %s (%s, %.2f)", id, ev.ID, p.ID, likelihood, confidence)
	return id, nil
}

// MarkProcessed records that an evidence item has completed a linking pass
func (m *Manager) MarkProcessed(ctx context.Context, evidenceID string) error {
	if m.DryRun {
		m.logf("dry-run: would mark evidence %s processed", evidenceID)
		return nil
	}
	if err := m.store.SetLinkingStatus(ctx, evidenceID, model.LinkingProcessed); err != nil {
		return fmt.Errorf("marking evidence processed: %w", err)
	}
	return nil
}

// ConfirmReview applies a reviewer's confirmation
func (m *Manager) ConfirmReview(ctx context.Context, recordID string) error {
	if m.DryRun {
		m.logf("dry-run: would confirm review %s", recordID)
		return nil
	}
	if err := m.store.ConfirmReview(ctx, recordID); err != nil {
		return err
	}
	m.logf("confirmed review %s", recordID)
	return nil
}

// RejectReview applies a reviewer's rejection
func (m *Manager) RejectReview(ctx context.Context, recordID, reason string) error {
	if m.DryRun {
		m.logf("dry-run: would reject review %s", recordID)
		return nil
	}
	if err := m.store.RejectReview(ctx, recordID, reason); err != nil {
		return err
	}
	m.logf("rejected review %s", recordID)
	return nil
}
