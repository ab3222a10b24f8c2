package batch

import (
	"context"
	"log/slog"
	"time"

	"erpharvest/lib/scrapers/hrerp"
	"erpharvest/services/harvest/ids"
	"erpharvest/services/harvest/outcome"

	"go.opentelemetry.io/otel/attribute"
)

type PageOptions struct {
	Options

	// StartPage is the first search-result page to walk, 1-based.
	StartPage int
	// MaxPages caps the walk. 0 walks until the listing runs out.
	MaxPages int
}

// RunCandidatePages walks the candidate search listing page by page and
// resolves every candidate each page links to, in listing order.
// Candidates appearing on more than one page are resolved each time
// they appear. A listing page that fails to fetch ends the walk but
// keeps everything harvested so far.
func (o *Orchestrator) RunCandidatePages(ctx context.Context, opts PageOptions) (*Result, error) {
	ctx, span := tracer.Start(ctx, "batch:RunCandidatePages")
	defer span.End()

	page := opts.StartPage
	if page < 1 {
		page = 1
	}
	span.SetAttributes(attribute.Int("start_page", page))

	result := &Result{Kind: ids.Candidate, StartedAt: time.Now()}
	walked := 0
	for {
		if opts.MaxPages > 0 && walked >= opts.MaxPages {
			break
		}
		if walked > 0 {
			if err := o.pause(ctx, opts.Options); err != nil {
				result.finish(o.tracker)
				return result, err
			}
		}

		path := hrerp.CandidateListPath(page)
		body, err := o.session.FetchPage(ctx, path)
		if err != nil {
			slog.WarnContext(ctx, "listing page fetch failed, ending walk", "page", page, "err", err)
			o.tracker.Error(outcome.ConnectionError, int64(page), outcome.Context{
				SourceURL: o.session.AbsoluteURL(path),
				Message:   "listing page: " + err.Error(),
			})
			break
		}
		doc, err := hrerp.Document(body)
		if err != nil {
			slog.WarnContext(ctx, "listing page parse failed, ending walk", "page", page, "err", err)
			o.tracker.Error(outcome.ParseError, int64(page), outcome.Context{
				SourceURL: o.session.AbsoluteURL(path),
				Message:   "listing page: " + err.Error(),
			})
			break
		}
		walked++

		rows := hrerp.CandidateRows(doc)
		slog.InfoContext(ctx, "walking listing page", "page", page, "candidates", len(rows))
		for _, urlID := range rows {
			if err := o.pause(ctx, opts.Options); err != nil {
				result.finish(o.tracker)
				return result, err
			}
			o.runOne(ctx, urlID, ids.Candidate, opts.Options, result)
		}

		if !hrerp.HasNextPage(doc) {
			break
		}
		page++
	}

	span.SetAttributes(attribute.Int("pages_walked", walked))
	result.finish(o.tracker)
	return result, nil
}
