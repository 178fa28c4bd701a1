package model

import (
	"strings"
	"time"
)

// LinkingStatus tracks whether an evidence item has been through a linking pass
type LinkingStatus string

const (
	LinkingPending   LinkingStatus = "pending"   // Not yet examined by the linking engine
	LinkingProcessed LinkingStatus = "processed" // Examined; zero links is a valid outcome
)

// SourceType classifies where an evidence item was scraped from
type SourceType string

const (
	SourceLegislative SourceType = "legislative_event" // Votes, readings, royal assent
	SourceRegulation  SourceType = "regulation"        // Gazette / orders in council
	SourceNews        SourceType = "news_release"      // Departmental news releases
)

// Evidence is a discrete factual record produced by the ingestion jobs.
// The linking engine only ever writes LinkingStatus and PromiseIDs; every
// other field is owned upstream and treated as immutable here.
type Evidence struct {
	ID          string     `json:"id" firestore:"-"`
	Title       string     `json:"title" firestore:"title"`
	Description string     `json:"description" firestore:"description"`
	SourceType  SourceType `json:"source_type" firestore:"source_type"`
	SourceRef   string     `json:"source_ref,omitempty" firestore:"source_ref"` // URL or document number
	PublishedAt time.Time  `json:"published_at" firestore:"published_at"`
	Session     string     `json:"session,omitempty" firestore:"session"` // e.g. "44-1"

	// Departments are free-form department labels attached by ingestion
	Departments []string `json:"departments,omitempty" firestore:"departments"`

	LinkingStatus LinkingStatus `json:"linking_status" firestore:"linking_status"`

	// PromiseIDs is the evidence-side half of the bidirectional link relation
	PromiseIDs []string `json:"promise_ids,omitempty" firestore:"promise_ids"`
}

// Text returns the concatenated free text used for keyword and embedding input
func (e Evidence) Text() string {
	if e.Description == "" {
		return e.Title
	}
	return strings.TrimSpace(e.Title + ". " + e.Description)
}

// HasPromise reports whether the evidence already references the promise
func (e Evidence) HasPromise(promiseID string) bool {
	for _, id := range e.PromiseIDs {
		if id == promiseID {
			return true
		}
	}
	return false
}
