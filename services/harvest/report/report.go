// Package report renders the artifacts of a finished harvest run:
// record exports, a machine-readable run report, a terminal summary
// table and an optional email notification.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"erpharvest/lib/fileutil"
	"erpharvest/services/harvest/batch"
	"erpharvest/services/harvest/ids"
	"erpharvest/services/harvest/metadata"
	"erpharvest/services/harvest/outcome"
	"erpharvest/services/harvest/resolver"
)

// RunReport is the persisted harvest_report_<stamp>.json shape.
type RunReport struct {
	GeneratedAt    time.Time              `json:"generated_at"`
	Kind           ids.Kind               `json:"kind"`
	Stats          batch.Stats            `json:"stats"`
	Downloads      metadata.DownloadStats `json:"downloads"`
	DurationSecs   float64                `json:"duration_seconds"`
	Errors         []outcome.Event        `json:"errors"`
	Warnings       []outcome.Event        `json:"warnings"`
	Recommendation string                 `json:"recommendation,omitempty"`
}

// Writer persists run artifacts under a results directory.
type Writer struct {
	Root string
}

func NewWriter(root string) *Writer {
	return &Writer{Root: root}
}

// WriteRecords exports the run's records as both json and csv, named
// candidates.* or cases.* after the run's kind.
func (w *Writer) WriteRecords(result *batch.Result) error {
	if err := fileutil.EnsureDir(w.Root); err != nil {
		return err
	}
	switch result.Kind {
	case ids.Case:
		if err := w.writeJSON("cases.json", result.Cases); err != nil {
			return err
		}
		return w.writeCSV("cases.csv", caseHeader, caseRows(result.Cases))
	default:
		if err := w.writeJSON("candidates.json", result.Candidates); err != nil {
			return err
		}
		return w.writeCSV("candidates.csv", candidateHeader, candidateRows(result.Candidates))
	}
}

// WriteRunReport persists the outcome report with a timestamped name
// and returns the path it was written to.
func (w *Writer) WriteRunReport(result *batch.Result, downloads metadata.DownloadStats) (string, error) {
	if err := fileutil.EnsureDir(w.Root); err != nil {
		return "", err
	}
	rep := RunReport{
		GeneratedAt:    time.Now(),
		Kind:           result.Kind,
		Stats:          result.Stats,
		Downloads:      downloads,
		DurationSecs:   result.FinishedAt.Sub(result.StartedAt).Seconds(),
		Errors:         result.Report.Errors,
		Warnings:       result.Report.Warnings,
		Recommendation: result.Report.Recommendation(),
	}
	if rep.Errors == nil {
		rep.Errors = []outcome.Event{}
	}
	if rep.Warnings == nil {
		rep.Warnings = []outcome.Event{}
	}

	name := fmt.Sprintf("harvest_report_%s.json", rep.GeneratedAt.Format("20060102_150405"))
	if err := w.writeJSON(name, rep); err != nil {
		return "", err
	}
	return filepath.Join(w.Root, name), nil
}

func (w *Writer) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(w.Root, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (w *Writer) writeCSV(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.Root, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

var candidateHeader = []string{
	"url_id", "real_id", "real_id_derived", "name", "email", "phone",
	"position", "status", "created_date", "updated_date", "resume_path",
	"source_url",
}

func candidateRows(cands []*resolver.CandidateRecord) [][]string {
	rows := make([][]string, 0, len(cands))
	for _, c := range cands {
		rows = append(rows, []string{
			strconv.FormatInt(c.URLID, 10),
			strconv.FormatInt(c.RealID, 10),
			strconv.FormatBool(c.RealIDDerived),
			c.Name, c.Email, c.Phone, c.Position, c.Status,
			c.CreatedDate, c.UpdatedDate, c.ResumePath, c.SourceURL,
		})
	}
	return rows
}

var caseHeader = []string{
	"url_id", "real_id", "real_id_derived", "company", "position",
	"status", "team", "drafter", "created_date", "client_real_id",
	"connected_candidates", "source_url",
}

func caseRows(cases []*resolver.CaseRecord) [][]string {
	rows := make([][]string, 0, len(cases))
	for _, c := range cases {
		connected := make([]string, 0, len(c.Candidates))
		for _, cand := range c.Candidates {
			connected = append(connected, strconv.FormatInt(cand.RealID, 10))
		}
		rows = append(rows, []string{
			strconv.FormatInt(c.URLID, 10),
			strconv.FormatInt(c.RealID, 10),
			strconv.FormatBool(c.RealIDDerived),
			c.Company, c.Position, c.Status, c.Team, c.Drafter,
			c.CreatedDate,
			strconv.FormatInt(c.ClientRealID, 10),
			strings.Join(connected, ";"),
			c.SourceURL,
		})
	}
	return rows
}
