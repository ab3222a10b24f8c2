package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"erpharvest/lib/scrapers/hrerp"
	"erpharvest/services/harvest/ids"
	"erpharvest/services/harvest/outcome"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type CaseOptions struct {
	// HarvestCandidates resolves every discovered connected candidate
	// into a full record via its own detail page, otherwise connected
	// candidates carry identity fields only.
	HarvestCandidates bool
	// FetchResumes additionally hands each harvested candidate's résumé
	// to the sink. Implies HarvestCandidates.
	FetchResumes bool
}

const companyPlaceholder = "Unknown Company"
const fieldPlaceholder = "Unknown"

// ResolveCase fetches a case detail page by url id, reconciles the real
// case number, extracts descriptive fields with per-field placeholder
// fallbacks, discovers connected candidates and resolves each of them,
// and resolves the client's real id. Only the case-page fetch is fatal.
func (r *Resolver) ResolveCase(ctx context.Context, urlID int64, opts CaseOptions) (*CaseRecord, error) {
	ctx, span := tracer.Start(ctx, "resolver:ResolveCase")
	defer span.End()
	span.SetAttributes(attribute.Int64("url_id", urlID))

	path := hrerp.CaseViewPath(urlID)
	src := r.session.AbsoluteURL(path)

	body, err := r.session.FetchPage(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch case page")
		r.tracker.Error(outcome.ConnectionError, urlID, outcome.Context{
			SourceURL: src,
			Message:   err.Error(),
		})
		return nil, fmt.Errorf("fetch case %d: %w", urlID, err)
	}
	doc, err := hrerp.Document(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse case page")
		r.tracker.Error(outcome.ParseError, urlID, outcome.Context{
			SourceURL: src,
			Message:   err.Error(),
		})
		return nil, fmt.Errorf("parse case %d: %w", urlID, err)
	}

	rec := &CaseRecord{URLID: urlID, SourceURL: src, Candidates: []*CandidateRecord{}}
	rec.RealID, rec.RealIDDerived = r.caseRealID(doc, urlID, src)

	rec.Company = r.caseField(doc, urlID, src, "company",
		companyPlaceholder, "Company", "Client Company", "Company Name")
	rec.Position = r.caseField(doc, urlID, src, "position",
		fmt.Sprintf("Case %d", urlID), "Position", "Position Title", "Job Title")
	rec.Status = r.caseField(doc, urlID, src, "status",
		fieldPlaceholder, "Status", "Case Status", "Progress")
	rec.Team = r.caseField(doc, urlID, src, "team",
		fieldPlaceholder, "Team", "Assigned Team")
	rec.Drafter = r.caseField(doc, urlID, src, "drafter",
		fieldPlaceholder, "Drafter", "Created By", "Author")

	rec.CreatedDate = hrerp.LabeledDate(doc, "Created")
	if rec.CreatedDate == "" {
		rec.CreatedDate = hrerp.Field(doc, "Creation Date", "Created Date")
	}
	if rec.CreatedDate == "" {
		r.tracker.Warn(outcome.DateExtractionFailed, urlID, outcome.Context{
			SourceURL: src,
			Message:   "case creation date not found",
		})
	}

	if rec.Company != companyPlaceholder {
		r.tracker.SetEntityName(urlID, rec.Company)
	}

	candidateIDs, pageRealIDs := discoverCandidates(doc)
	span.SetAttributes(attribute.Int("connected_candidates", len(candidateIDs)))
	// zero discovered candidates is a valid terminal state, not an error

	for _, candID := range candidateIDs {
		cand := r.resolveConnectedCandidate(ctx, candID, pageRealIDs[candID], opts)
		if cand != nil {
			rec.Candidates = append(rec.Candidates, cand)
		}
	}

	rec.ClientRealID = r.resolveClientID(doc, urlID, src)

	return rec, nil
}

// caseField extracts one descriptive case field through the ordered
// label patterns, defaulting to the field's placeholder with a warning
// scoped to that field only. Partial extraction failure never aborts
// the record.
func (r *Resolver) caseField(doc *goquery.Document, urlID int64, src, field, placeholder string, labels ...string) string {
	value := hrerp.Field(doc, labels...)
	if value != "" {
		return value
	}
	r.tracker.Warn(outcome.MissingData, urlID, outcome.Context{
		SourceURL: src,
		Message:   fmt.Sprintf("case %s not found, using placeholder %q", field, placeholder),
	})
	return placeholder
}

func (r *Resolver) caseRealID(doc *goquery.Document, urlID int64, src string) (int64, bool) {
	derived := ids.ToReal(urlID, ids.Case)

	raw := hrerp.HiddenInput(doc, "prj")
	if raw == "" {
		raw = hrerp.Field(doc, "Case No", "Case Number")
	}
	extracted, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil || extracted <= 0 {
		r.tracker.Warn(outcome.ParseError, urlID, outcome.Context{
			SourceURL: src,
			Message:   fmt.Sprintf("real case number not present on page, derived %d from offset", derived),
		})
		return derived, true
	}

	if extracted != derived {
		r.tracker.Warn(outcome.ParseError, urlID, outcome.Context{
			SourceURL: src,
			Message:   fmt.Sprintf("extracted case number %d disagrees with offset-derived %d", extracted, derived),
		})
	}
	return extracted, false
}

var candidateTextRegex = regexp.MustCompile(`(?i)candidate[_ ]?id[=:]\s*(\d+)`)

// discoverCandidates runs the four connected-candidate strategies in
// order and unions their results, preserving discovery order and
// dropping duplicates. The page sometimes carries the candidate's real
// id alongside, those are returned in the second map.
func discoverCandidates(doc *goquery.Document) ([]int64, map[int64]int64) {
	var out []int64
	seen := map[int64]bool{}
	add := func(found []int64) {
		for _, id := range found {
			if id > 0 && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}

	add(hrerp.OnclickIDs(doc, "openCandidate"))
	add(hrerp.HrefIDs(doc, "/candidate/dispView/"))
	add(hrerp.AttrIDs(doc, "data-candidate-id"))
	add(hrerp.TextIDs(doc, candidateTextRegex))

	realIDs := map[int64]int64{}
	doc.Find("[data-candidate-id][data-candidate-real-id]").Each(func(_ int, s *goquery.Selection) {
		urlID, err1 := strconv.ParseInt(s.AttrOr("data-candidate-id", ""), 10, 64)
		realID, err2 := strconv.ParseInt(s.AttrOr("data-candidate-real-id", ""), 10, 64)
		if err1 == nil && err2 == nil && urlID > 0 && realID > 0 {
			realIDs[urlID] = realID
		}
	})
	return out, realIDs
}

// resolveConnectedCandidate resolves one discovered candidate. Full
// harvesting goes through the candidate's own detail page, identity-only
// resolution prefers a real id already present on the case page and
// falls back to a secondary fetch. Returns nil when the candidate's
// page could not be fetched, the failure is already tracked and must
// not fail the case.
func (r *Resolver) resolveConnectedCandidate(ctx context.Context, candID, pageRealID int64, opts CaseOptions) *CandidateRecord {
	if opts.HarvestCandidates || opts.FetchResumes {
		cand, err := r.ResolveCandidate(ctx, candID, CandidateOptions{
			FetchResume: opts.FetchResumes,
		})
		if err != nil {
			return nil
		}
		return cand
	}

	if pageRealID != 0 {
		rec := &CandidateRecord{URLID: candID, RealID: pageRealID}
		if pageRealID != ids.ToReal(candID, ids.Candidate) {
			r.tracker.Warn(outcome.ParseError, candID, outcome.Context{
				Message: fmt.Sprintf(
					"case-page real id %d disagrees with offset-derived %d",
					pageRealID, ids.ToReal(candID, ids.Candidate),
				),
			})
		}
		return rec
	}

	// secondary fetch of the candidate's own page just for its real id
	path := hrerp.CandidateViewPath(candID)
	src := r.session.AbsoluteURL(path)
	body, err := r.session.FetchPage(ctx, path)
	if err != nil {
		r.tracker.Error(outcome.ConnectionError, candID, outcome.Context{
			SourceURL: src,
			Message:   err.Error(),
		})
		return nil
	}
	doc, err := hrerp.Document(body)
	if err != nil {
		r.tracker.Error(outcome.ParseError, candID, outcome.Context{
			SourceURL: src,
			Message:   err.Error(),
		})
		return nil
	}

	rec := &CandidateRecord{URLID: candID, SourceURL: src}
	rec.RealID, rec.RealIDDerived = r.candidateRealID(doc, candID, src)
	if name := candidateName(doc); name != "" {
		rec.Name = name
		r.tracker.SetEntityName(candID, name)
	}
	return rec
}

// resolveClientID tries the four client extraction patterns in order,
// first success wins. Failure leaves the client unresolved and records
// a data-quality warning, it is never fatal.
func (r *Resolver) resolveClientID(doc *goquery.Document, urlID int64, src string) int64 {
	if raw := hrerp.HiddenInput(doc, "clt"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return id
		}
	}
	if found := hrerp.OnclickIDs(doc, "openClient"); len(found) > 0 {
		return found[0]
	}
	if found := hrerp.HrefIDs(doc, "/client/dispView/"); len(found) > 0 {
		return found[0]
	}
	if found := hrerp.AttrIDs(doc, "data-client-id"); len(found) > 0 {
		return found[0]
	}

	r.tracker.Warn(outcome.MissingData, urlID, outcome.Context{
		SourceURL: src,
		Message:   "client id not found on case page",
	})
	return 0
}
