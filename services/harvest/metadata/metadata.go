// Package metadata persists harvested records next to their downloaded
// files: one .meta.json per entity plus a year/month résumé layout.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"erpharvest/lib/fileutil"
	"erpharvest/lib/scrapers/hrerp"
	"erpharvest/services/harvest/ids"
	"erpharvest/services/harvest/outcome"
	"erpharvest/services/harvest/resolver"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("harvest/metadata")

// Saver writes one <real-id>.meta.json per harvested entity under a
// per-kind directory.
type Saver struct {
	Root    string
	tracker *outcome.Tracker
}

func NewSaver(root string, tracker *outcome.Tracker) *Saver {
	return &Saver{Root: root, tracker: tracker}
}

func (s *Saver) SaveCandidate(ctx context.Context, cand *resolver.CandidateRecord) error {
	return s.save(ctx, ids.Candidate, cand.URLID, cand.RealID, cand)
}

func (s *Saver) SaveCase(ctx context.Context, c *resolver.CaseRecord) error {
	return s.save(ctx, ids.Case, c.URLID, c.RealID, c)
}

func (s *Saver) save(ctx context.Context, kind ids.Kind, urlID, realID int64, record any) error {
	_, span := tracer.Start(ctx, "metadata:save")
	defer span.End()
	span.SetAttributes(
		attribute.String("kind", kind.String()),
		attribute.Int64("real_id", realID),
	)

	dir := filepath.Join(s.Root, kind.String())
	path := filepath.Join(dir, fmt.Sprintf("%d.meta.json", realID))

	err := fileutil.EnsureDir(dir)
	if err == nil {
		var data []byte
		data, err = json.MarshalIndent(record, "", "  ")
		if err == nil {
			err = os.WriteFile(path, data, 0644)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save metadata")
		s.tracker.Error(outcome.MetadataSaveError, urlID, outcome.Context{
			Message: fmt.Sprintf("saving %s: %v", path, err),
		})
		return fmt.Errorf("save metadata %s: %w", path, err)
	}
	return nil
}

type DownloadStats struct {
	Successful int   `json:"successful"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	Bytes      int64 `json:"bytes"`
}

// Downloader is satisfied by *hrerp.Client.
type Downloader interface {
	DownloadFile(ctx context.Context, ref string, dest string) (hrerp.DownloadResult, error)
}

const DefaultTemplate = "{name}_{id}_resume"

// ResumeStore downloads résumés into a Root/<year>/<month>/ layout and
// keeps running download statistics. It implements resolver.ResumeSink.
// Like everything downstream of the orchestrator it assumes strictly
// sequential use.
type ResumeStore struct {
	Root     string
	Template string

	downloader Downloader
	now        func() time.Time

	Stats DownloadStats
}

func NewResumeStore(root string, downloader Downloader) *ResumeStore {
	return &ResumeStore{
		Root:       root,
		Template:   DefaultTemplate,
		downloader: downloader,
		now:        time.Now,
	}
}

// Save places the candidate's résumé under the year and month of the
// candidate's creation date, falling back to the current date when the
// page carried none.
func (s *ResumeStore) Save(ctx context.Context, cand *resolver.CandidateRecord, ref string) (string, error) {
	ctx, span := tracer.Start(ctx, "metadata:SaveResume")
	defer span.End()
	span.SetAttributes(attribute.Int64("url_id", cand.URLID))

	year, month, _ := fileutil.DatePartsOrNow(cand.CreatedDate, s.now())
	name := fileutil.TemplateFilename(s.Template, cand.Name, cand.RealID)
	dest := filepath.Join(s.Root, year, month, name+".pdf")

	result, err := s.downloader.DownloadFile(ctx, ref, dest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resume download failed")
		s.Stats.Failed++
		return "", err
	}
	if result.Skipped {
		s.Stats.Skipped++
	} else {
		s.Stats.Successful++
	}
	s.Stats.Bytes += result.Bytes
	return result.Path, nil
}
