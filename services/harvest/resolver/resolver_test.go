package resolver

import (
	"context"
	"fmt"
	"testing"

	"erpharvest/lib/scrapers/hrerp"
	"erpharvest/lib/telemetry"
	"erpharvest/services/harvest/ids"
	"erpharvest/services/harvest/outcome"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	pages    map[string]string
	failures map[string]error
	fetched  []string
}

func (s *fakeSession) FetchPage(_ context.Context, path string) ([]byte, error) {
	s.fetched = append(s.fetched, path)
	if err, ok := s.failures[path]; ok {
		return nil, err
	}
	page, ok := s.pages[path]
	if !ok {
		return nil, fmt.Errorf("%w: 404 fetching %s", hrerp.ErrBadStatus, path)
	}
	return []byte(page), nil
}

func (s *fakeSession) AbsoluteURL(path string) string {
	return "https://erp.example.com" + path
}

type fakeSink struct {
	saved []string
	err   error
}

func (s *fakeSink) Save(_ context.Context, cand *CandidateRecord, ref string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	path := fmt.Sprintf("Resume/%d.pdf", cand.URLID)
	s.saved = append(s.saved, path)
	return path, nil
}

func candidatePage(realID int64, name string) string {
	return fmt.Sprintf(`<html><body>
		<input type="hidden" id="cdd" value="%d">
		<h2>Candidate Information - %s</h2>
		<h3>Contact Information</h3>
		<table>
			<tr><th>E-Mail</th><td>cand@example.com</td></tr>
			<tr><th>Phone</th><td>010-1234-5678</td></tr>
		</table>
		<table>
			<tr><th>Current Position Title</th><td>Backend Engineer</td></tr>
			<tr><th>Status</th><td>Active</td></tr>
		</table>
		<table><tr><td>Created : 06/12/2025</td></tr></table>
		<h3>Resume</h3>
		<table><tr><td>
			<button onclick="downloadFile('abc123')">Download RESUME</button>
		</td></tr></table>
	</body></html>`, realID, name)
}

const casePageFull = `<html><body>
	<input type="hidden" id="prj" value="13897">
	<table>
		<tr><th>Company</th><td>Acme Korea</td></tr>
		<tr><th>Position</th><td>CTO</td></tr>
		<tr><th>Status</th><td>Open</td></tr>
		<tr><th>Team</th><td>Search Team 1</td></tr>
		<tr><th>Drafter</th><td>J. Kim</td></tr>
	</table>
	<table><tr><td>Created : 03/02/2025</td></tr></table>
	<div data-candidate-id="65586" data-candidate-real-id="1044760">Sang Youn HAN</div>
	<a onclick="openCandidate('65586')">Sang Youn HAN</a>
	<a href="/candidate/dispView/65585?kw=">Second Candidate</a>
	<span>candidate_id: 65584</span>
	<a href="/client/dispView/123">Acme Korea</a>
</body></html>`

const casePageEmptyish = `<html><body>
	<input type="hidden" id="prj" value="13897">
	<table>
		<tr><th>Company</th><td>Acme Korea</td></tr>
		<tr><th>Position</th><td>CTO</td></tr>
		<tr><th>Status</th><td>Open</td></tr>
		<tr><th>Team</th><td>Search Team 1</td></tr>
		<tr><th>Drafter</th><td>J. Kim</td></tr>
	</table>
	<table><tr><td>Created : 03/02/2025</td></tr></table>
	<input type="hidden" id="clt" value="123">
</body></html>`

func TestResolveCandidate(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	session := &fakeSession{pages: map[string]string{
		hrerp.CandidateViewPath(65586): candidatePage(1044760, "Sang Youn HAN"),
	}}
	tracker := outcome.NewTracker()
	sink := &fakeSink{}
	r := New(session, tracker, sink)

	cand, err := r.ResolveCandidate(context.Background(), 65586, CandidateOptions{FetchResume: true})
	require.NoError(t, err)

	diff := cmp.Diff(&CandidateRecord{
		URLID:       65586,
		RealID:      1044760,
		Name:        "Sang Youn HAN",
		Email:       "cand@example.com",
		Phone:       "010-1234-5678",
		Position:    "Backend Engineer",
		Status:      "Active",
		CreatedDate: "2025-06-12",
		ResumeRef:   "/file/procDownload/abc123",
		ResumePath:  "Resume/65586.pdf",
		SourceURL:   "https://erp.example.com" + hrerp.CandidateViewPath(65586),
	}, cand)
	if diff != "" {
		t.Fatalf("unexpected candidate record:\n%s", diff)
	}

	report := tracker.Finalize()
	require.Empty(t, report.Errors)
	require.Empty(t, report.Warnings)
}

func TestResolveCandidateFetchFailureIsFatal(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	session := &fakeSession{
		pages:    map[string]string{},
		failures: map[string]error{hrerp.CandidateViewPath(65586): fmt.Errorf("connection reset")},
	}
	tracker := outcome.NewTracker()
	r := New(session, tracker, nil)

	_, err := r.ResolveCandidate(context.Background(), 65586, CandidateOptions{})
	require.Error(t, err)

	report := tracker.Finalize()
	require.Len(t, report.Errors, 1)
	require.Equal(t, outcome.ConnectionError, report.Errors[0].Kind)
	require.Equal(t, int64(65586), report.Errors[0].EntityID)
}

func TestResolveCandidateMissingResume(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	page := `<html><body>
		<input type="hidden" id="cdd" value="1044760">
		<h2>Candidate Information - Sang Youn HAN</h2>
		<table><tr><th>E-Mail</th><td>cand@example.com</td></tr></table>
		<table><tr><td>Created : 06/12/2025</td></tr></table>
	</body></html>`
	session := &fakeSession{pages: map[string]string{
		hrerp.CandidateViewPath(65586): page,
	}}
	tracker := outcome.NewTracker()
	r := New(session, tracker, &fakeSink{})

	cand, err := r.ResolveCandidate(context.Background(), 65586, CandidateOptions{FetchResume: true})
	require.NoError(t, err)
	require.Empty(t, cand.ResumePath)

	report := tracker.Finalize()
	require.Empty(t, report.Errors)
	require.Len(t, report.Warnings, 1)
	require.Equal(t, outcome.NoResumeURL, report.Warnings[0].Kind)
}

func TestResolveCandidateDownloadFailureIsNotFatal(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	session := &fakeSession{pages: map[string]string{
		hrerp.CandidateViewPath(65586): candidatePage(1044760, "Sang Youn HAN"),
	}}
	tracker := outcome.NewTracker()
	r := New(session, tracker, &fakeSink{err: fmt.Errorf("disk full")})

	cand, err := r.ResolveCandidate(context.Background(), 65586, CandidateOptions{FetchResume: true})
	require.NoError(t, err)
	require.Empty(t, cand.ResumePath)
	require.NotEmpty(t, cand.ResumeRef)

	report := tracker.Finalize()
	require.Len(t, report.Errors, 1)
	require.Equal(t, outcome.DownloadFailed, report.Errors[0].Kind)
}

func TestResolveCandidateAffineFallback(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	page := `<html><body>
		<h2>Candidate Information - Sang Youn HAN</h2>
		<table><tr><td>Created : 06/12/2025</td></tr></table>
	</body></html>`
	session := &fakeSession{pages: map[string]string{
		hrerp.CandidateViewPath(65586): page,
	}}
	tracker := outcome.NewTracker()
	r := New(session, tracker, nil)

	cand, err := r.ResolveCandidate(context.Background(), 65586, CandidateOptions{})
	require.NoError(t, err)
	require.Equal(t, ids.ToReal(65586, ids.Candidate), cand.RealID)
	require.True(t, cand.RealIDDerived)

	report := tracker.Finalize()
	kinds := map[outcome.Kind]bool{}
	for _, w := range report.Warnings {
		kinds[w.Kind] = true
	}
	require.True(t, kinds[outcome.ParseError])
}

func TestResolveCaseDiscoversCandidates(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	session := &fakeSession{pages: map[string]string{
		hrerp.CaseViewPath(3897):       casePageFull,
		hrerp.CandidateViewPath(65585): candidatePage(1044759, "Second Candidate"),
		hrerp.CandidateViewPath(65584): candidatePage(1044758, "Third Candidate"),
	}}
	tracker := outcome.NewTracker()
	r := New(session, tracker, nil)

	rec, err := r.ResolveCase(context.Background(), 3897, CaseOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(3897), rec.URLID)
	require.Equal(t, int64(13897), rec.RealID)
	require.False(t, rec.RealIDDerived)
	require.Equal(t, "Acme Korea", rec.Company)
	require.Equal(t, "CTO", rec.Position)
	require.Equal(t, "2025-03-02", rec.CreatedDate)
	require.Equal(t, int64(123), rec.ClientRealID)

	// four strategies union in discovery order, duplicates dropped
	require.Len(t, rec.Candidates, 3)
	require.Equal(t, int64(65586), rec.Candidates[0].URLID)
	require.Equal(t, int64(65585), rec.Candidates[1].URLID)
	require.Equal(t, int64(65584), rec.Candidates[2].URLID)

	// 65586's real id rides on the case page, no secondary fetch for it
	require.Equal(t, int64(1044760), rec.Candidates[0].RealID)
	require.NotContains(t, session.fetched, hrerp.CandidateViewPath(65586))
	require.Equal(t, int64(1044759), rec.Candidates[1].RealID)
	require.Equal(t, int64(1044758), rec.Candidates[2].RealID)
}

func TestResolveCaseHarvestsCandidates(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	session := &fakeSession{pages: map[string]string{
		hrerp.CaseViewPath(3897):       casePageFull,
		hrerp.CandidateViewPath(65586): candidatePage(1044760, "Sang Youn HAN"),
		hrerp.CandidateViewPath(65585): candidatePage(1044759, "Second Candidate"),
		hrerp.CandidateViewPath(65584): candidatePage(1044758, "Third Candidate"),
	}}
	tracker := outcome.NewTracker()
	r := New(session, tracker, nil)

	rec, err := r.ResolveCase(context.Background(), 3897, CaseOptions{HarvestCandidates: true})
	require.NoError(t, err)
	require.Len(t, rec.Candidates, 3)
	require.Equal(t, "Sang Youn HAN", rec.Candidates[0].Name)
	require.Equal(t, "cand@example.com", rec.Candidates[0].Email)
}

func TestResolveCaseZeroCandidates(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	session := &fakeSession{pages: map[string]string{
		hrerp.CaseViewPath(3897): casePageEmptyish,
	}}
	tracker := outcome.NewTracker()
	r := New(session, tracker, nil)

	rec, err := r.ResolveCase(context.Background(), 3897, CaseOptions{})
	require.NoError(t, err)
	require.Empty(t, rec.Candidates)

	report := tracker.Finalize()
	require.Empty(t, report.Errors)
	require.Empty(t, report.Warnings)
}

func TestResolveCasePlaceholders(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	page := `<html><body>
		<input type="hidden" id="prj" value="13897">
		<table>
			<tr><th>Position</th><td>CTO</td></tr>
			<tr><th>Status</th><td>Open</td></tr>
			<tr><th>Team</th><td>Search Team 1</td></tr>
			<tr><th>Drafter</th><td>J. Kim</td></tr>
		</table>
		<table><tr><td>Created : 03/02/2025</td></tr></table>
		<input type="hidden" id="clt" value="123">
	</body></html>`
	session := &fakeSession{pages: map[string]string{
		hrerp.CaseViewPath(3897): page,
	}}
	tracker := outcome.NewTracker()
	r := New(session, tracker, nil)

	rec, err := r.ResolveCase(context.Background(), 3897, CaseOptions{})
	require.NoError(t, err)
	require.Equal(t, "Unknown Company", rec.Company)
	require.Equal(t, "CTO", rec.Position)

	report := tracker.Finalize()
	require.Empty(t, report.Errors)
	missing := 0
	for _, w := range report.Warnings {
		if w.Kind == outcome.MissingData {
			missing++
		}
	}
	require.Equal(t, 1, missing)
}

func TestResolveCaseAffineFallback(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	page := `<html><body>
		<table>
			<tr><th>Company</th><td>Acme Korea</td></tr>
			<tr><th>Position</th><td>CTO</td></tr>
			<tr><th>Status</th><td>Open</td></tr>
			<tr><th>Team</th><td>Search Team 1</td></tr>
			<tr><th>Drafter</th><td>J. Kim</td></tr>
		</table>
		<table><tr><td>Created : 03/02/2025</td></tr></table>
		<input type="hidden" id="clt" value="123">
	</body></html>`
	session := &fakeSession{pages: map[string]string{
		hrerp.CaseViewPath(3897): page,
	}}
	tracker := outcome.NewTracker()
	r := New(session, tracker, nil)

	rec, err := r.ResolveCase(context.Background(), 3897, CaseOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(13897), rec.RealID)
	require.True(t, rec.RealIDDerived)

	report := tracker.Finalize()
	require.Len(t, report.Warnings, 1)
	require.Equal(t, outcome.ParseError, report.Warnings[0].Kind)
}

func TestResolveCaseFetchFailureIsFatal(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	session := &fakeSession{
		failures: map[string]error{hrerp.CaseViewPath(3897): fmt.Errorf("timeout")},
	}
	tracker := outcome.NewTracker()
	r := New(session, tracker, nil)

	_, err := r.ResolveCase(context.Background(), 3897, CaseOptions{})
	require.Error(t, err)

	report := tracker.Finalize()
	require.Len(t, report.Errors, 1)
	require.Equal(t, outcome.ConnectionError, report.Errors[0].Kind)
}

func TestVerifyOffset(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest/resolver")
	defer cleanup()

	session := &fakeSession{pages: map[string]string{
		hrerp.CandidateViewPath(65586): candidatePage(1044760, "Sang Youn HAN"),
		hrerp.CandidateViewPath(65585): candidatePage(999, "Drifted Candidate"),
	}}
	r := New(session, outcome.NewTracker(), nil)

	v, err := r.VerifyOffset(context.Background(), 65586, ids.Candidate)
	require.NoError(t, err)
	require.True(t, v.Match)
	require.Equal(t, int64(1044760), v.Extracted)
	require.Equal(t, int64(1044760), v.Derived)

	v, err = r.VerifyOffset(context.Background(), 65585, ids.Candidate)
	require.NoError(t, err)
	require.False(t, v.Match)
	require.Equal(t, int64(999), v.Extracted)
}
