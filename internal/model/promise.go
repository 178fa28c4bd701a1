package model

import (
	"strings"
	"time"
)

// Promise is a tracked political commitment scoped to a legislative session
// and an owning party. Created upstream; this engine only appends to
// LinkedEvidence.
type Promise struct {
	ID          string `json:"id" firestore:"-"`
	Session     string `json:"session" firestore:"session"` // e.g. "44-1"
	Party       string `json:"party" firestore:"party"`     // party or entity code
	Text        string `json:"text" firestore:"text"`       // the primary commitment statement
	Description string `json:"description,omitempty" firestore:"description"`
	Background  string `json:"background,omitempty" firestore:"background"`

	// LeadDepartment is the department expected to deliver the commitment
	LeadDepartment string `json:"lead_department,omitempty" firestore:"lead_department"`

	// Rank is the priority classification used to scope linking runs
	// (e.g. "core", "secondary", "aspirational")
	Rank string `json:"rank,omitempty" firestore:"rank"`

	// Keywords are terms extracted upstream, fed to the judge as hints
	Keywords []string `json:"keywords,omitempty" firestore:"keywords"`

	// LinkedEvidence is the promise-side half of the bidirectional relation
	LinkedEvidence []EvidenceLink `json:"linked_evidence,omitempty" firestore:"linked_evidence"`
}

// EvidenceLink is the descriptor stored inside a promise's linked-evidence
// relation for one committed link.
type EvidenceLink struct {
	EvidenceID string    `json:"evidence_id" firestore:"evidence_id"`
	Rationale  string    `json:"rationale,omitempty" firestore:"rationale"`
	Confidence float64   `json:"confidence" firestore:"confidence"`
	LinkedAt   time.Time `json:"linked_at" firestore:"linked_at"`
}

// FullText returns the concatenated free text used for keyword and embedding input
func (p Promise) FullText() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Text, p.Description, p.Background, strings.Join(p.Keywords, " ")} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ". ")
}

// HasEvidence reports whether the promise already references the evidence item
func (p Promise) HasEvidence(evidenceID string) bool {
	for _, l := range p.LinkedEvidence {
		if l.EvidenceID == evidenceID {
			return true
		}
	}
	return false
}
