package resolver

import (
	"context"
	"fmt"
	"strconv"

	"erpharvest/lib/scrapers/hrerp"
	"erpharvest/services/harvest/ids"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Verification compares the real id a live page reports against the
// one the affine offset predicts for the same url id.
type Verification struct {
	Kind      ids.Kind `json:"kind"`
	URLID     int64    `json:"url_id"`
	Extracted int64    `json:"extracted_real_id"`
	Derived   int64    `json:"derived_real_id"`
	Match     bool     `json:"match"`
}

// VerifyOffset fetches the entity's detail page and checks whether the
// offset still holds for it. Extracted is 0 when the page does not
// expose a real id at all.
func (r *Resolver) VerifyOffset(ctx context.Context, urlID int64, kind ids.Kind) (*Verification, error) {
	ctx, span := tracer.Start(ctx, "resolver:VerifyOffset")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("url_id", urlID),
		attribute.String("kind", kind.String()),
	)

	var path string
	var hiddenID string
	var labels []string
	switch kind {
	case ids.Case:
		path = hrerp.CaseViewPath(urlID)
		hiddenID = "prj"
		labels = []string{"Case No", "Case Number"}
	default:
		path = hrerp.CandidateViewPath(urlID)
		hiddenID = "cdd"
		labels = []string{"Candidate No", "Candidate Number"}
	}

	body, err := r.session.FetchPage(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page for verification")
		return nil, fmt.Errorf("verify %s %d: %w", kind, urlID, err)
	}
	doc, err := hrerp.Document(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse page for verification")
		return nil, fmt.Errorf("verify %s %d: %w", kind, urlID, err)
	}

	raw := hrerp.HiddenInput(doc, hiddenID)
	if raw == "" {
		raw = hrerp.Field(doc, labels...)
	}
	extracted, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil || extracted <= 0 {
		extracted = 0
	}

	derived := ids.ToReal(urlID, kind)
	return &Verification{
		Kind:      kind,
		URLID:     urlID,
		Extracted: extracted,
		Derived:   derived,
		Match:     extracted == derived,
	}, nil
}
