package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/civictrace/promislink/internal/model"
)

const (
	evidenceCollection = "evidence"
	promiseCollection  = "promises"
	reviewCollection   = "review_records"
)

// Firestore is the production Store backed by Cloud Firestore. Dual writes
// run inside RunTransaction so the bidirectional relation can never be
// observed half-written. Listing queries skip documents that fail to decode
// so one malformed document cannot block a whole run.
type Firestore struct {
	client *firestore.Client

	// Logf receives skip warnings for undecodable documents; the standard
	// logger is used when nil
	Logf func(format string, args ...any)
}

var _ Store = (*Firestore)(nil)

// NewFirestore connects to the project's Firestore database. With an empty
// database name the default database is used; with an empty credentials path
// application default credentials apply.
func NewFirestore(ctx context.Context, cfg model.StoreConfig) (*Firestore, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("firestore store requires a GCP project ID")
	}

	var opts []option.ClientOption
	if cfg.Credential != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credential))
	}

	var (
		client *firestore.Client
		err    error
	)
	if cfg.Database != "" {
		client, err = firestore.NewClientWithDatabase(ctx, cfg.Project, cfg.Database, opts...)
	} else {
		client, err = firestore.NewClient(ctx, cfg.Project, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to firestore: %w", err)
	}
	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (s *Firestore) Close() error {
	return s.client.Close()
}

func (s *Firestore) warnf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Evidence fetches one evidence item
func (s *Firestore) Evidence(ctx context.Context, id string) (*model.Evidence, error) {
	snap, err := s.client.Collection(evidenceCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, wrapGetErr("evidence", id, err)
	}
	var ev model.Evidence
	if err := snap.DataTo(&ev); err != nil {
		return nil, fmt.Errorf("decoding evidence %s: %w", id, err)
	}
	ev.ID = snap.Ref.ID
	return &ev, nil
}

// UnlinkedEvidence lists evidence in scope. Firestore allows a single
// disjunctive clause per query, so sessions go into the query and the
// remaining scope criteria are applied client-side.
func (s *Firestore) UnlinkedEvidence(ctx context.Context, f ScopeFilter) ([]model.Evidence, error) {
	q := s.client.Collection(evidenceCollection).Query
	if sessions := ExpandSessions(f.Sessions); len(sessions) > 0 {
		q = q.Where("session", "in", sessions)
	}

	types := make(map[model.SourceType]struct{}, len(f.SourceTypes))
	for _, t := range f.SourceTypes {
		types[t] = struct{}{}
	}

	var out []model.Evidence
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing evidence: %w", err)
		}
		var ev model.Evidence
		if err := snap.DataTo(&ev); err != nil {
			s.warnf("skipping evidence %s: %v", snap.Ref.ID, err)
			continue
		}
		ev.ID = snap.Ref.ID

		if !f.IncludeProcessed && ev.LinkingStatus == model.LinkingProcessed {
			continue
		}
		if len(types) > 0 {
			if _, ok := types[ev.SourceType]; !ok {
				continue
			}
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Promise fetches one promise
func (s *Firestore) Promise(ctx context.Context, id string) (*model.Promise, error) {
	snap, err := s.client.Collection(promiseCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, wrapGetErr("promise", id, err)
	}
	var p model.Promise
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decoding promise %s: %w", id, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

// Promises lists promises in scope
func (s *Firestore) Promises(ctx context.Context, f ScopeFilter) ([]model.Promise, error) {
	q := s.client.Collection(promiseCollection).Query
	if sessions := ExpandSessions(f.Sessions); len(sessions) > 0 {
		q = q.Where("session", "in", sessions)
	}

	parties := toSet(f.Parties)
	ranks := toSet(f.Ranks)

	var out []model.Promise
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing promises: %w", err)
		}
		var p model.Promise
		if err := snap.DataTo(&p); err != nil {
			s.warnf("skipping promise %s: %v", snap.Ref.ID, err)
			continue
		}
		p.ID = snap.Ref.ID

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
		out = append(out, p)
	}
	return out, nil
}

// LinkPair performs the idempotent dual write in one transaction. The union
// is computed in Go rather than with ArrayUnion because link descriptors
// carry timestamps, which would defeat Firestore's element-equality dedup.
func (s *Firestore) LinkPair(ctx context.Context, evidenceID, promiseID string, meta LinkMeta) error {
	evRef := s.client.Collection(evidenceCollection).Doc(evidenceID)
	prRef := s.client.Collection(promiseCollection).Doc(promiseID)

	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		ev, err := txEvidence(tx, evRef)
		if err != nil {
			return err
		}
		p, err := txPromise(tx, prRef)
		if err != nil {
			return err
		}
		return applyLink(tx, evRef, prRef, ev, p, model.EvidenceLink{
			EvidenceID: evidenceID,
			Rationale:  meta.Rationale,
			Confidence: meta.Confidence,
			LinkedAt:   time.Now().UTC(),
		})
	})
	if err != nil {
		return fmt.Errorf("linking evidence %s to promise %s: %w", evidenceID, promiseID, err)
	}
	return nil
}

// SetLinkingStatus updates one evidence item's linking status
func (s *Firestore) SetLinkingStatus(ctx context.Context, evidenceID string, st model.LinkingStatus) error {
	_, err := s.client.Collection(evidenceCollection).Doc(evidenceID).Update(ctx, []firestore.Update{
		{Path: "linking_status", Value: st},
	})
	if err != nil {
		return wrapGetErr("evidence", evidenceID, err)
	}
	return nil
}

// CreateReviewRecord persists a new pending record under an auto-generated ID
func (s *Firestore) CreateReviewRecord(ctx context.Context, rec *model.ReviewRecord) (string, error) {
	cp := *rec
	if cp.Status == "" {
		cp.Status = model.ReviewPending
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	ref, _, err := s.client.Collection(reviewCollection).Add(ctx, cp)
	if err != nil {
		return "", fmt.Errorf("creating review record: %w", err)
	}
	return ref.ID, nil
}

// ReviewRecord fetches one record
func (s *Firestore) ReviewRecord(ctx context.Context, id string) (*model.ReviewRecord, error) {
	snap, err := s.client.Collection(reviewCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, wrapGetErr("review record", id, err)
	}
	var rec model.ReviewRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decoding review record %s: %w", id, err)
	}
	rec.ID = snap.Ref.ID
	return &rec, nil
}

// PendingReviews lists records awaiting triage, oldest first
func (s *Firestore) PendingReviews(ctx context.Context, limit int) ([]model.ReviewRecord, error) {
	q := s.client.Collection(reviewCollection).
		Where("status", "==", string(model.ReviewPending)).
		OrderBy("created_at", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []model.ReviewRecord
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing pending reviews: %w", err)
		}
		var rec model.ReviewRecord
		if err := snap.DataTo(&rec); err != nil {
			s.warnf("skipping review record %s: %v", snap.Ref.ID, err)
			continue
		}
		rec.ID = snap.Ref.ID
		out = append(out, rec)
	}
	return out, nil
}

// ConfirmReview atomically flips the record to confirmed and performs the
// dual write. All three documents commit together or not at all.
func (s *Firestore) ConfirmReview(ctx context.Context, recordID string) error {
	recRef := s.client.Collection(reviewCollection).Doc(recordID)

	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(recRef)
		if err != nil {
			return wrapGetErr("review record", recordID, err)
		}
		var rec model.ReviewRecord
		if err := snap.DataTo(&rec); err != nil {
			return fmt.Errorf("decoding review record %s: %w", recordID, err)
		}

		switch rec.Status {
		case model.ReviewConfirmed:
			return nil
		case model.ReviewRejected:
			return fmt.Errorf("review record %s: %w", recordID, ErrReviewNotPending)
		}

		evRef := s.client.Collection(evidenceCollection).Doc(rec.EvidenceID)
		prRef := s.client.Collection(promiseCollection).Doc(rec.PromiseID)
		ev, err := txEvidence(tx, evRef)
		if err != nil {
			return err
		}
		p, err := txPromise(tx, prRef)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := applyLink(tx, evRef, prRef, ev, p, model.EvidenceLink{
			EvidenceID: rec.EvidenceID,
			Rationale:  rec.Rationale,
			Confidence: rec.Confidence,
			LinkedAt:   now,
		}); err != nil {
			return err
		}
		return tx.Update(recRef, []firestore.Update{
			{Path: "status", Value: model.ReviewConfirmed},
			{Path: "decided_at", Value: now},
		})
	})
	if err != nil {
		return fmt.Errorf("confirming review %s: %w", recordID, err)
	}
	return nil
}

// RejectReview marks the record rejected; the relations stay untouched
func (s *Firestore) RejectReview(ctx context.Context, recordID, reason string) error {
	recRef := s.client.Collection(reviewCollection).Doc(recordID)

	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(recRef)
		if err != nil {
			return wrapGetErr("review record", recordID, err)
		}
		var rec model.ReviewRecord
		if err := snap.DataTo(&rec); err != nil {
			return fmt.Errorf("decoding review record %s: %w", recordID, err)
		}
		if rec.Status != model.ReviewPending {
			return fmt.Errorf("review record %s: %w", recordID, ErrReviewNotPending)
		}
		return tx.Update(recRef, []firestore.Update{
			{Path: "status", Value: model.ReviewRejected},
			{Path: "reason", Value: reason},
			{Path: "decided_at", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return fmt.Errorf("rejecting review %s: %w", recordID, err)
	}
	return nil
}

func txEvidence(tx *firestore.Transaction, ref *firestore.DocumentRef) (*model.Evidence, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		return nil, wrapGetErr("evidence", ref.ID, err)
	}
	var ev model.Evidence
	if err := snap.DataTo(&ev); err != nil {
		return nil, fmt.Errorf("decoding evidence %s: %w", ref.ID, err)
	}
	ev.ID = ref.ID
	return &ev, nil
}

func txPromise(tx *firestore.Transaction, ref *firestore.DocumentRef) (*model.Promise, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		return nil, wrapGetErr("promise", ref.ID, err)
	}
	var p model.Promise
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decoding promise %s: %w", ref.ID, err)
	}
	p.ID = ref.ID
	return &p, nil
}

// applyLink stages the union writes for one link inside an open transaction
func applyLink(tx *firestore.Transaction, evRef, prRef *firestore.DocumentRef, ev *model.Evidence, p *model.Promise, link model.EvidenceLink) error {
	if !ev.HasPromise(prRef.ID) {
		ids := append(append([]string(nil), ev.PromiseIDs...), prRef.ID)
		if err := tx.Update(evRef, []firestore.Update{{Path: "promise_ids", Value: ids}}); err != nil {
			return fmt.Errorf("updating evidence %s: %w", evRef.ID, err)
		}
	}
	if !p.HasEvidence(link.EvidenceID) {
		links := append(append([]model.EvidenceLink(nil), p.LinkedEvidence...), link)
		if err := tx.Update(prRef, []firestore.Update{{Path: "linked_evidence", Value: links}}); err != nil {
			return fmt.Errorf("updating promise %s: %w", prRef.ID, err)
		}
	}
	return nil
}

func wrapGetErr(kind, id string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("fetching %s %s: %w", kind, id, err)
}
