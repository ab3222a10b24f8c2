package outcome

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDedupePerEntityAndKind(t *testing.T) {
	tr := NewTracker()
	tr.Error(ConnectionError, 65586, Context{Message: "timeout"})
	tr.Error(ConnectionError, 65586, Context{Message: "refused"})

	report := tr.Finalize()
	require.Len(t, report.Errors, 1)
	require.Equal(t, "timeout", report.Errors[0].Message)
}

func TestDistinctKindsKept(t *testing.T) {
	tr := NewTracker()
	tr.Error(ConnectionError, 65586, Context{})
	tr.Warn(MissingData, 65586, Context{})
	tr.Error(ConnectionError, 65587, Context{})

	report := tr.Finalize()
	require.Len(t, report.Errors, 2)
	require.Len(t, report.Warnings, 1)
}

func TestLateNamePatch(t *testing.T) {
	tr := NewTracker()
	tr.Warn(NoResumeURL, 65586, Context{SourceURL: "/candidate/dispView/65586"})
	tr.SetEntityName(65586, "Jane Doe")

	report := tr.Finalize()
	require.Len(t, report.Warnings, 1)
	require.Equal(t, "Jane Doe", report.Warnings[0].EntityName)
}

func TestLateNameViaDuplicateRecord(t *testing.T) {
	tr := NewTracker()
	tr.Error(ConnectionError, 7, Context{})
	tr.Error(ConnectionError, 7, Context{Name: "Case 7 Corp"})

	report := tr.Finalize()
	require.Len(t, report.Errors, 1)
	require.Equal(t, "Case 7 Corp", report.Errors[0].EntityName)
}

func TestOrderPreservedWithinSeverity(t *testing.T) {
	tr := NewTracker()
	tr.now = func() time.Time { return time.Unix(0, 0) }
	tr.Warn(MissingData, 1, Context{})
	tr.Warn(NoResumeURL, 2, Context{})
	tr.Warn(DateExtractionFailed, 3, Context{})

	report := tr.Finalize()
	require.Len(t, report.Warnings, 3)
	require.Equal(t, MissingData, report.Warnings[0].Kind)
	require.Equal(t, NoResumeURL, report.Warnings[1].Kind)
	require.Equal(t, DateExtractionFailed, report.Warnings[2].Kind)
}

func TestRecommendationDominantKind(t *testing.T) {
	tr := NewTracker()
	tr.Error(ConnectionError, 1, Context{})
	tr.Error(ConnectionError, 2, Context{})
	tr.Error(DownloadFailed, 3, Context{})

	rec := tr.Finalize().Recommendation()
	require.Contains(t, rec, "connection errors")
}

func TestRecommendationEmptyOnCleanRun(t *testing.T) {
	tr := NewTracker()
	tr.Warn(MissingData, 1, Context{})
	require.Empty(t, tr.Finalize().Recommendation())
}
