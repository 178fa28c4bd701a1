package model

import "time"

// ReviewStatus is the lifecycle of a pending review record
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending_review"
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewRejected  ReviewStatus = "rejected"
)

// Likelihood is the coarse confidence bucket shown to reviewers
type Likelihood string

const (
	LikelihoodHigh       Likelihood = "High"
	LikelihoodMedium     Likelihood = "Medium"
	LikelihoodLow        Likelihood = "Low"
	LikelihoodNotRelated Likelihood = "Not Related"
)

// ReviewRecord is a provisional candidate link awaiting human adjudication.
// Confirmation performs the same dual write as a direct link inside one
// transaction; rejection only updates Status and Reason.
type ReviewRecord struct {
	ID         string `json:"id" firestore:"-"`
	EvidenceID string `json:"evidence_id" firestore:"evidence_id"`
	PromiseID  string `json:"promise_id" firestore:"promise_id"`

	// Snippets duplicated here so the review UI never needs extra reads
	EvidenceTitle string `json:"evidence_title,omitempty" firestore:"evidence_title"`
	PromiseText   string `json:"promise_text,omitempty" firestore:"promise_text"`

	Rationale  string     `json:"rationale" firestore:"rationale"`
	Likelihood Likelihood `json:"likelihood" firestore:"likelihood"`
	Confidence float64    `json:"confidence" firestore:"confidence"`

	Status ReviewStatus `json:"status" firestore:"status"`
	Reason string       `json:"reason,omitempty" firestore:"reason"` // reviewer's rejection reason

	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	DecidedAt time.Time `json:"decided_at,omitempty" firestore:"decided_at"`
}
