// Package batch drives whole harvest runs over a single authenticated
// session, resolving one entity at a time with a fixed politeness delay
// between requests.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"erpharvest/services/harvest/ids"
	"erpharvest/services/harvest/outcome"
	"erpharvest/services/harvest/resolver"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("harvest/batch")

type Options struct {
	// Delay is the fixed pause between consecutive entity requests.
	Delay time.Duration
	// Jitter adds up to this much random extra on top of Delay.
	Jitter time.Duration

	Case      resolver.CaseOptions
	Candidate resolver.CandidateOptions
}

// Stats counts per-item outcomes. Succeeded+Failed+Skipped always
// equals Total. Nothing is ever skipped during a run, the counter
// exists so report readers don't have to infer it.
type Stats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

type Result struct {
	Kind       ids.Kind                    `json:"kind"`
	Stats      Stats                       `json:"stats"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at"`
	Candidates []*resolver.CandidateRecord `json:"candidates,omitempty"`
	Cases      []*resolver.CaseRecord      `json:"cases,omitempty"`
	Report     outcome.Report              `json:"report"`
}

// Orchestrator is strictly sequential. It owns no locks because no two
// resolutions ever overlap.
type Orchestrator struct {
	session  resolver.Session
	resolver *resolver.Resolver
	tracker  *outcome.Tracker
}

func New(session resolver.Session, r *resolver.Resolver, tracker *outcome.Tracker) *Orchestrator {
	return &Orchestrator{session: session, resolver: r, tracker: tracker}
}

// Run resolves every entity the id specification expands to, in the
// specification's order. Individual failures are tracked and never
// abort the run, context cancellation does.
func (o *Orchestrator) Run(ctx context.Context, spec *ids.Spec, kind ids.Kind, opts Options) (*Result, error) {
	ctx, span := tracer.Start(ctx, "batch:Run")
	defer span.End()
	span.SetAttributes(attribute.String("kind", kind.String()))

	urlIDs, err := spec.Expand(kind)
	if err != nil {
		return nil, fmt.Errorf("expand id specification: %w", err)
	}
	span.SetAttributes(attribute.Int("planned", len(urlIDs)))

	result := &Result{Kind: kind, StartedAt: time.Now()}
	for i, urlID := range urlIDs {
		if i > 0 {
			if err := o.pause(ctx, opts); err != nil {
				result.finish(o.tracker)
				return result, err
			}
		}
		o.runOne(ctx, urlID, kind, opts, result)
		slog.InfoContext(ctx, "harvested entity",
			"kind", kind.String(),
			"url_id", urlID,
			"progress", fmt.Sprintf("%d/%d", i+1, len(urlIDs)),
		)
	}

	result.finish(o.tracker)
	return result, nil
}

func (o *Orchestrator) runOne(ctx context.Context, urlID int64, kind ids.Kind, opts Options, result *Result) {
	result.Stats.Total++
	switch kind {
	case ids.Case:
		rec, err := o.resolver.ResolveCase(ctx, urlID, opts.Case)
		if err != nil {
			slog.WarnContext(ctx, "case resolution failed", "url_id", urlID, "err", err)
			result.Stats.Failed++
			return
		}
		result.Cases = append(result.Cases, rec)
	default:
		rec, err := o.resolver.ResolveCandidate(ctx, urlID, opts.Candidate)
		if err != nil {
			slog.WarnContext(ctx, "candidate resolution failed", "url_id", urlID, "err", err)
			result.Stats.Failed++
			return
		}
		result.Candidates = append(result.Candidates, rec)
	}
	result.Stats.Succeeded++
}

func (o *Orchestrator) pause(ctx context.Context, opts Options) error {
	delay := opts.Delay
	if opts.Jitter > 0 {
		extra, err := random.IntRange(0, int(opts.Jitter/time.Millisecond)+1)
		if err == nil {
			delay += time.Duration(extra) * time.Millisecond
		}
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Result) finish(tracker *outcome.Tracker) {
	r.FinishedAt = time.Now()
	r.Report = tracker.Finalize()
}
