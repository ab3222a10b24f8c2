// Package resolver turns url-space entity ids into fully-populated
// candidate and case records: it fetches detail pages through the shared
// authenticated session, reconciles the two identifier spaces, discovers
// the candidates connected to a case and records every degradation with
// the outcome tracker.
package resolver

import (
	"context"

	"erpharvest/services/harvest/outcome"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("harvest/resolver")

// Session is the authenticated ERP session every resolution rides on.
// It is a single shared mutable resource: exactly one resolution may be
// in flight against it at any time, the batch flow guarantees that by
// being strictly sequential.
type Session interface {
	FetchPage(ctx context.Context, path string) ([]byte, error)
	AbsoluteURL(path string) string
}

// ResumeSink persists a candidate's résumé given its download reference
// and returns the stored path. The sink owns naming, layout and its own
// retry behavior.
type ResumeSink interface {
	Save(ctx context.Context, cand *CandidateRecord, ref string) (string, error)
}

type CandidateRecord struct {
	URLID int64 `json:"url_id"`
	// RealID is the internal database id. Extracted from the page when
	// possible, otherwise derived from the offset (RealIDDerived).
	RealID        int64 `json:"real_id"`
	RealIDDerived bool  `json:"real_id_derived,omitempty"`

	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Position    string `json:"position,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedDate string `json:"created_date,omitempty"`
	UpdatedDate string `json:"updated_date,omitempty"`

	ResumeRef  string `json:"resume_ref,omitempty"`
	ResumePath string `json:"resume_path,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

type CaseRecord struct {
	URLID         int64 `json:"url_id"`
	RealID        int64 `json:"real_id"`
	RealIDDerived bool  `json:"real_id_derived,omitempty"`

	Company     string `json:"company"`
	Position    string `json:"position"`
	Status      string `json:"status,omitempty"`
	Team        string `json:"team,omitempty"`
	Drafter     string `json:"drafter,omitempty"`
	CreatedDate string `json:"created_date,omitempty"`

	// zero means the client could not be resolved
	ClientRealID int64 `json:"client_real_id,omitempty"`

	Candidates []*CandidateRecord `json:"connected_candidates"`
	SourceURL  string             `json:"source_url,omitempty"`
}

type Resolver struct {
	session Session
	tracker *outcome.Tracker
	resumes ResumeSink
}

// New builds a resolver around the shared session. resumes may be nil
// when the caller never requests résumé retrieval.
func New(session Session, tracker *outcome.Tracker, resumes ResumeSink) *Resolver {
	return &Resolver{
		session: session,
		tracker: tracker,
		resumes: resumes,
	}
}
