package resolver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"erpharvest/lib/htmlutil"
	"erpharvest/lib/scrapers/hrerp"
	"erpharvest/services/harvest/ids"
	"erpharvest/services/harvest/outcome"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type CandidateOptions struct {
	// FetchResume hands a discovered résumé reference to the sink and
	// records NO_RESUME_URL when there is none.
	FetchResume bool
}

// ResolveCandidate fetches and parses a candidate detail page by its
// url id. Only the fetch itself is fatal, every extraction step
// degrades to an empty field or a derived id plus a warning.
func (r *Resolver) ResolveCandidate(ctx context.Context, urlID int64, opts CandidateOptions) (*CandidateRecord, error) {
	ctx, span := tracer.Start(ctx, "resolver:ResolveCandidate")
	defer span.End()
	span.SetAttributes(attribute.Int64("url_id", urlID))

	path := hrerp.CandidateViewPath(urlID)
	src := r.session.AbsoluteURL(path)

	body, err := r.session.FetchPage(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch candidate page")
		r.tracker.Error(outcome.ConnectionError, urlID, outcome.Context{
			SourceURL: src,
			Message:   err.Error(),
		})
		return nil, fmt.Errorf("fetch candidate %d: %w", urlID, err)
	}
	doc, err := hrerp.Document(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse candidate page")
		r.tracker.Error(outcome.ParseError, urlID, outcome.Context{
			SourceURL: src,
			Message:   err.Error(),
		})
		return nil, fmt.Errorf("parse candidate %d: %w", urlID, err)
	}

	rec := r.parseCandidate(doc, urlID, src)
	if rec.Name != "" {
		r.tracker.SetEntityName(urlID, rec.Name)
	}

	if opts.FetchResume {
		r.fetchResume(ctx, rec)
	}

	return rec, nil
}

func (r *Resolver) parseCandidate(doc *goquery.Document, urlID int64, src string) *CandidateRecord {
	rec := &CandidateRecord{URLID: urlID, SourceURL: src}

	rec.RealID, rec.RealIDDerived = r.candidateRealID(doc, urlID, src)

	rec.Name = candidateName(doc)
	if rec.Name == "" {
		r.tracker.Warn(outcome.MissingData, urlID, outcome.Context{
			SourceURL: src,
			Message:   "candidate name not found on detail page",
		})
	}

	rec.Email = hrerp.Field(doc, "E-Mail", "Email", "E-Mail Address")
	rec.Phone = hrerp.Field(doc, "Phone", "Phone Number", "Mobile", "Cell Phone")
	rec.Position = hrerp.Field(doc, "Current Position Title", "Position", "Job Title")
	rec.Status = hrerp.Field(doc, "Status", "Profile Status")

	rec.CreatedDate = hrerp.LabeledDate(doc, "Created")
	rec.UpdatedDate = hrerp.LabeledDate(doc, "Last Updated")
	if rec.CreatedDate == "" {
		r.tracker.Warn(outcome.DateExtractionFailed, urlID, outcome.Context{
			Name:      rec.Name,
			SourceURL: src,
			Message:   "created date not found, file layout will fall back to the current date",
		})
	}

	rec.ResumeRef = hrerp.ResumeRef(doc)
	return rec
}

// candidateRealID extracts the real candidate id from the hidden form
// value, falling back to the affine offset with a warning. An extracted
// value that disagrees with the offset is kept but surfaced as a
// data-quality warning, the mapping is empirical, not proven.
func (r *Resolver) candidateRealID(doc *goquery.Document, urlID int64, src string) (int64, bool) {
	derived := ids.ToReal(urlID, ids.Candidate)

	raw := hrerp.HiddenInput(doc, "cdd")
	if raw == "" {
		raw = hrerp.Field(doc, "Candidate No", "Candidate Number")
	}
	extracted, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil || extracted <= 0 {
		r.tracker.Warn(outcome.ParseError, urlID, outcome.Context{
			SourceURL: src,
			Message:   fmt.Sprintf("real candidate id not present on page, derived %d from offset", derived),
		})
		return derived, true
	}

	if extracted != derived {
		r.tracker.Warn(outcome.ParseError, urlID, outcome.Context{
			SourceURL: src,
			Message:   fmt.Sprintf("extracted real id %d disagrees with offset-derived %d", extracted, derived),
		})
	}
	return extracted, false
}

// candidateName reads the page title, "Candidate Information - Sang
// Youn HAN" on current deployments.
func candidateName(doc *goquery.Document) string {
	title := htmlutil.CleanText(doc.Find("h2").First().Text())
	if _, name, found := strings.Cut(title, " - "); found {
		return strings.TrimSpace(name)
	}
	return ""
}

func (r *Resolver) fetchResume(ctx context.Context, rec *CandidateRecord) {
	if rec.ResumeRef == "" {
		// a candidate without an attached résumé is valid data
		r.tracker.Warn(outcome.NoResumeURL, rec.URLID, outcome.Context{
			Name:      rec.Name,
			SourceURL: rec.SourceURL,
			Message:   "no résumé reference found on detail page",
		})
		return
	}
	if r.resumes == nil {
		return
	}

	path, err := r.resumes.Save(ctx, rec, rec.ResumeRef)
	if err != nil {
		r.tracker.Error(outcome.DownloadFailed, rec.URLID, outcome.Context{
			Name:      rec.Name,
			SourceURL: rec.SourceURL,
			Message:   err.Error(),
		})
		return
	}
	rec.ResumePath = path
}
