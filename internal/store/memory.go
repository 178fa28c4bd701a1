package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/civictrace/promislink/internal/model"
)

// Memory is the in-memory Store used by tests and local rehearsals. All
// mutating operations are applied under one lock with copy-then-commit
// semantics, so ConfirmReview's dual write is atomic by construction.
type Memory struct {
	mu       sync.Mutex
	evidence map[string]model.Evidence
	promises map[string]model.Promise
	reviews  map[string]model.ReviewRecord

	nextReviewID int
	writes       int

	// failpoint, when set, is invoked inside ConfirmReview after the
	// record-side mutation is staged and before anything commits. Tests use
	// it to prove no partial state can leak.
	failpoint func(stage string) error
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		evidence: make(map[string]model.Evidence),
		promises: make(map[string]model.Promise),
		reviews:  make(map[string]model.ReviewRecord),
	}
}

// PutEvidence seeds or replaces an evidence item
func (m *Memory) PutEvidence(ev model.Evidence) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evidence[ev.ID] = ev
}

// PutPromise seeds or replaces a promise
func (m *Memory) PutPromise(p model.Promise) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promises[p.ID] = p
}

// WriteCount reports how many mutating store operations have committed;
// dry-run tests assert it stays zero.
func (m *Memory) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// SetFailpoint installs a fault-injection hook for transactional tests
func (m *Memory) SetFailpoint(fn func(stage string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failpoint = fn
}

// Evidence fetches one evidence item
func (m *Memory) Evidence(_ context.Context, id string) (*model.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.evidence[id]
	if !ok {
		return nil, fmt.Errorf("evidence %s: %w", id, ErrNotFound)
	}
	cp := copyEvidence(ev)
	return &cp, nil
}

// UnlinkedEvidence lists evidence in scope, ordered by ID for determinism
func (m *Memory) UnlinkedEvidence(_ context.Context, f ScopeFilter) ([]model.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := toSet(ExpandSessions(f.Sessions))
	types := make(map[model.SourceType]struct{}, len(f.SourceTypes))
	for _, t := range f.SourceTypes {
		types[t] = struct{}{}
	}

	var out []model.Evidence
	for _, ev := range m.evidence {
		if !f.IncludeProcessed && ev.LinkingStatus == model.LinkingProcessed {
			continue
		}
		if len(sessions) > 0 {
			if _, ok := sessions[ev.Session]; !ok {
				continue
			}
		}
		if len(types) > 0 {
			if _, ok := types[ev.SourceType]; !ok {
				continue
			}
		}
		out = append(out, copyEvidence(ev))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Promise fetches one promise
func (m *Memory) Promise(_ context.Context, id string) (*model.Promise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promises[id]
	if !ok {
		return nil, fmt.Errorf("promise %s: %w", id, ErrNotFound)
	}
	cp := copyPromise(p)
	return &cp, nil
}

// Promises lists promises in scope, ordered by ID for determinism
func (m *Memory) Promises(_ context.Context, f ScopeFilter) ([]model.Promise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := toSet(ExpandSessions(f.Sessions))
	parties := toSet(f.Parties)
	ranks := toSet(f.Ranks)

	var out []model.Promise
	for _, p := range m.promises {
		if len(sessions) > 0 {
			if _, ok := sessions[p.Session]; !ok {
				continue
			}
		}
		if len(parties) > 0 {
			if _, ok := parties[p.Party]; !ok {
				continue
			}
		}
		if len(ranks) > 0 {
			if _, ok := ranks[p.Rank]; !ok {
				continue
			}
		}
		out = append(out, copyPromise(p))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LinkPair performs the idempotent dual write
func (m *Memory) LinkPair(_ context.Context, evidenceID, promiseID string, meta LinkMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linkPairLocked(evidenceID, promiseID, meta)
}

func (m *Memory) linkPairLocked(evidenceID, promiseID string, meta LinkMeta) error {
	ev, ok := m.evidence[evidenceID]
	if !ok {
		return fmt.Errorf("evidence %s: %w", evidenceID, ErrNotFound)
	}
	p, ok := m.promises[promiseID]
	if !ok {
		return fmt.Errorf("promise %s: %w", promiseID, ErrNotFound)
	}

	ev = copyEvidence(ev)
	p = copyPromise(p)

	if !ev.HasPromise(promiseID) {
		ev.PromiseIDs = append(ev.PromiseIDs, promiseID)
	}
	if !p.HasEvidence(evidenceID) {
		p.LinkedEvidence = append(p.LinkedEvidence, model.EvidenceLink{
			EvidenceID: evidenceID,
			Rationale:  meta.Rationale,
			Confidence: meta.Confidence,
			LinkedAt:   time.Now().UTC(),
		})
	}

	m.evidence[evidenceID] = ev
	m.promises[promiseID] = p
	m.writes++
	return nil
}

// SetLinkingStatus updates the evidence linking status
func (m *Memory) SetLinkingStatus(_ context.Context, evidenceID string, status model.LinkingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.evidence[evidenceID]
	if !ok {
		return fmt.Errorf("evidence %s: %w", evidenceID, ErrNotFound)
	}
	ev.LinkingStatus = status
	m.evidence[evidenceID] = ev
	m.writes++
	return nil
}

// CreateReviewRecord persists a new pending record
func (m *Memory) CreateReviewRecord(_ context.Context, rec *model.ReviewRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextReviewID++
	cp := *rec
	cp.ID = fmt.Sprintf("review-%04d", m.nextReviewID)
	if cp.Status == "" {
		cp.Status = model.ReviewPending
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.reviews[cp.ID] = cp
	m.writes++
	return cp.ID, nil
}

// ReviewRecord fetches one record
func (m *Memory) ReviewRecord(_ context.Context, id string) (*model.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review record %s: %w", id, ErrNotFound)
	}
	cp := rec
	return &cp, nil
}

// PendingReviews lists pending records, oldest first
func (m *Memory) PendingReviews(_ context.Context, limit int) ([]model.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.ReviewRecord
	for _, rec := range m.reviews {
		if rec.Status == model.ReviewPending {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ConfirmReview atomically confirms the record and performs the dual write.
// Nothing commits until every side has been staged successfully.
func (m *Memory) ConfirmReview(_ context.Context, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.reviews[recordID]
	if !ok {
		return fmt.Errorf("review record %s: %w", recordID, ErrNotFound)
	}
	switch rec.Status {
	case model.ReviewConfirmed:
		return nil // already applied; the dual write is idempotent anyway
	case model.ReviewRejected:
		return fmt.Errorf("review record %s: %w", recordID, ErrReviewNotPending)
	}

	ev, ok := m.evidence[rec.EvidenceID]
	if !ok {
		return fmt.Errorf("evidence %s: %w", rec.EvidenceID, ErrNotFound)
	}
	p, ok := m.promises[rec.PromiseID]
	if !ok {
		return fmt.Errorf("promise %s: %w", rec.PromiseID, ErrNotFound)
	}

	// Stage all three documents before committing any of them
	rec.Status = model.ReviewConfirmed
	rec.DecidedAt = time.Now().UTC()

	if m.failpoint != nil {
		if err := m.failpoint("confirm-after-record-write"); err != nil {
			return fmt.Errorf("confirm review %s: %w", recordID, err)
		}
	}

	ev = copyEvidence(ev)
	p = copyPromise(p)
	if !ev.HasPromise(rec.PromiseID) {
		ev.PromiseIDs = append(ev.PromiseIDs, rec.PromiseID)
	}
	if !p.HasEvidence(rec.EvidenceID) {
		p.LinkedEvidence = append(p.LinkedEvidence, model.EvidenceLink{
			EvidenceID: rec.EvidenceID,
			Rationale:  rec.Rationale,
			Confidence: rec.Confidence,
			LinkedAt:   rec.DecidedAt,
		})
	}

	m.reviews[recordID] = rec
	m.evidence[rec.EvidenceID] = ev
	m.promises[rec.PromiseID] = p
	m.writes++
	return nil
}

// RejectReview marks the record rejected; relations stay untouched
func (m *Memory) RejectReview(_ context.Context, recordID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.reviews[recordID]
	if !ok {
		return fmt.Errorf("review record %s: %w", recordID, ErrNotFound)
	}
	if rec.Status != model.ReviewPending {
		return fmt.Errorf("review record %s: %w", recordID, ErrReviewNotPending)
	}

	rec.Status = model.ReviewRejected
	rec.Reason = reason
	rec.DecidedAt = time.Now().UTC()
	m.reviews[recordID] = rec
	m.writes++
	return nil
}

func copyEvidence(ev model.Evidence) model.Evidence {
	cp := ev
	cp.Departments = append([]string(nil), ev.Departments...)
	cp.PromiseIDs = append([]string(nil), ev.PromiseIDs...)
	return cp
}

func copyPromise(p model.Promise) model.Promise {
	cp := p
	cp.Keywords = append([]string(nil), p.Keywords...)
	cp.LinkedEvidence = append([]model.EvidenceLink(nil), p.LinkedEvidence...)
	return cp
}

func toSet(items []string) map[string]struct{} {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
