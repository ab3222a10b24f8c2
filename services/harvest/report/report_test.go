package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"erpharvest/lib/telemetry"
	"erpharvest/services/harvest/batch"
	"erpharvest/services/harvest/ids"
	"erpharvest/services/harvest/metadata"
	"erpharvest/services/harvest/outcome"
	"erpharvest/services/harvest/resolver"

	"github.com/stretchr/testify/require"
)

func sampleResult() *batch.Result {
	return &batch.Result{
		Kind:       ids.Candidate,
		Stats:      batch.Stats{Total: 3, Succeeded: 2, Failed: 1},
		StartedAt:  time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 28, 10, 5, 0, 0, time.UTC),
		Candidates: []*resolver.CandidateRecord{
			{URLID: 65586, RealID: 1044760, Name: "Sang Youn HAN", Email: "cand@example.com", CreatedDate: "2025-06-12"},
			{URLID: 65585, RealID: 1044759, RealIDDerived: true, Name: "Second, \"Candidate\""},
		},
		Report: outcome.Report{
			Errors: []outcome.Event{{
				Severity: outcome.SeverityError,
				Kind:     outcome.ConnectionError,
				EntityID: 65584,
				Message:  "connection reset",
			}},
		},
	}
}

func TestWriteRecordsCandidates(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/report")
	defer cleanup()

	root := t.TempDir()
	w := NewWriter(root)
	require.NoError(t, w.WriteRecords(sampleResult()))

	data, err := os.ReadFile(filepath.Join(root, "candidates.json"))
	require.NoError(t, err)
	var got []*resolver.CandidateRecord
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	require.Equal(t, "Sang Youn HAN", got[0].Name)

	f, err := os.Open(filepath.Join(root, "candidates.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, candidateHeader, rows[0])
	require.Equal(t, "65586", rows[1][0])
	require.Equal(t, "1044760", rows[1][1])
	// csv quoting survives commas and quotes in names
	require.Equal(t, `Second, "Candidate"`, rows[2][3])
	require.Equal(t, "true", rows[2][2])
}

func TestWriteRecordsCases(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/report")
	defer cleanup()

	result := &batch.Result{
		Kind:  ids.Case,
		Stats: batch.Stats{Total: 1, Succeeded: 1},
		Cases: []*resolver.CaseRecord{{
			URLID:        3897,
			RealID:       13897,
			Company:      "Acme Korea",
			Position:     "CTO",
			ClientRealID: 123,
			Candidates: []*resolver.CandidateRecord{
				{URLID: 65586, RealID: 1044760},
				{URLID: 65585, RealID: 1044759},
			},
		}},
	}

	root := t.TempDir()
	w := NewWriter(root)
	require.NoError(t, w.WriteRecords(result))

	f, err := os.Open(filepath.Join(root, "cases.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "1044760;1044759", rows[1][10])
}

func TestWriteRunReport(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/report")
	defer cleanup()

	root := t.TempDir()
	w := NewWriter(root)

	path, err := w.WriteRunReport(sampleResult(), metadata.DownloadStats{Successful: 1, Bytes: 2048})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(filepath.Base(path), "harvest_report_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rep RunReport
	require.NoError(t, json.Unmarshal(data, &rep))
	require.Equal(t, 3, rep.Stats.Total)
	require.Equal(t, 1, rep.Downloads.Successful)
	require.Equal(t, 300.0, rep.DurationSecs)
	require.Len(t, rep.Errors, 1)
	require.NotEmpty(t, rep.Recommendation)
	require.NotNil(t, rep.Warnings)
}

func TestSummaryBanner(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/report")
	defer cleanup()

	var buf bytes.Buffer
	Summary(&buf, sampleResult(), metadata.DownloadStats{Successful: 1, Failed: 1, Skipped: 1, Bytes: 2048})

	out := buf.String()
	require.Contains(t, out, "Succeeded")
	require.Contains(t, out, "0.0 MB")
	require.Contains(t, out, "50%")
	// the dominant error kind drives the recommendation line
	require.Contains(t, out, sampleResult().Report.Recommendation())
}
