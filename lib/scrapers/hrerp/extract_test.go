package hrerp

import (
	"regexp"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const detailPage = `
<html><body>
<input type="hidden" id="cdd" value="1044760"/>
<h2>Candidate Information - Sang Youn HAN</h2>
<h3>Candidate Contact Information</h3>
<table>
  <tr><th>E-Mail</th><td>syhan@example.com</td></tr>
  <tr><th>Phone Number</th><td>201-555-0142</td></tr>
</table>
<h3>Candidate Qualification</h3>
<table>
  <tr><th>Current Position Title</th><td>Staff Engineer</td></tr>
  <tr><th>Experience Year</th><td>12</td></tr>
</table>
<table>
  <tr><td>Created : 06/12/2025</td></tr>
  <tr><td>Last Updated : 07/01/2025</td></tr>
</table>
<h3>Candidate Resume</h3>
<table>
  <tr><td><button onclick="downloadFile('8100a96c-91ac-90b2-9211-6c923cb7a156')">Download RESUME</button></td></tr>
</table>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	doc, err := Document([]byte(html))
	require.NoError(t, err)
	return doc
}

func TestHiddenInput(t *testing.T) {
	doc := mustDoc(t, detailPage)
	require.Equal(t, "1044760", HiddenInput(doc, "cdd"))
	require.Equal(t, "", HiddenInput(doc, "prj"))
}

func TestFieldExactLabel(t *testing.T) {
	doc := mustDoc(t, detailPage)
	require.Equal(t, "syhan@example.com", Field(doc, "E-Mail"))
	require.Equal(t, "Staff Engineer", Field(doc, "Current Position Title"))
}

func TestFieldSynonymFallback(t *testing.T) {
	doc := mustDoc(t, detailPage)
	// no exact "Phone" cell, the synonym list catches "Phone Number"
	require.Equal(t, "201-555-0142", Field(doc, "Phone", "Phone Number"))
	// substring pass: "Phone" is contained in "Phone Number"
	require.Equal(t, "201-555-0142", Field(doc, "Phone"))
}

func TestFieldFuzzyLastResort(t *testing.T) {
	doc := mustDoc(t, `<table><tr><th>Curent Position Titlte</th><td>Manager</td></tr></table>`)
	require.Equal(t, "Manager", Field(doc, "Current Position Title"))
}

func TestFieldMiss(t *testing.T) {
	doc := mustDoc(t, detailPage)
	require.Equal(t, "", Field(doc, "Shoe Size"))
}

func TestSectionField(t *testing.T) {
	doc := mustDoc(t, detailPage)
	require.Equal(t, "12", SectionField(doc, "Qualification", "Experience Year"))
	require.Equal(t, "", SectionField(doc, "Contact Information", "Experience Year"))
}

func TestLabeledDate(t *testing.T) {
	doc := mustDoc(t, detailPage)
	require.Equal(t, "2025-06-12", LabeledDate(doc, "Created"))
	require.Equal(t, "2025-07-01", LabeledDate(doc, "Last Updated"))
	require.Equal(t, "", LabeledDate(doc, "Closed"))
}

func TestResumeRefButton(t *testing.T) {
	doc := mustDoc(t, detailPage)
	require.Equal(t, "/file/procDownload/8100a96c-91ac-90b2-9211-6c923cb7a156", ResumeRef(doc))
}

func TestResumeRefDirectLink(t *testing.T) {
	doc := mustDoc(t, `
<h3>Candidate Resume</h3>
<table><tr><td><a href="/html/files/2025/resume_65586.pdf">resume_65586.pdf</a></td></tr></table>`)
	require.Equal(t, "/html/files/2025/resume_65586.pdf", ResumeRef(doc))
}

func TestResumeRefMissing(t *testing.T) {
	doc := mustDoc(t, `<html><body><h2>Candidate Information</h2></body></html>`)
	require.Equal(t, "", ResumeRef(doc))
}

func TestOnclickIDs(t *testing.T) {
	doc := mustDoc(t, `
<a onclick="openCandidate(65586)">A</a>
<a onclick="openCandidate('65587')">B</a>
<a onclick="openClient(4112)">C</a>`)
	require.Equal(t, []int64{65586, 65587}, OnclickIDs(doc, "openCandidate"))
	require.Equal(t, []int64{4112}, OnclickIDs(doc, "openClient"))
}

func TestHrefIDs(t *testing.T) {
	doc := mustDoc(t, `
<a href="/candidate/dispView/65586?kw=">one</a>
<a href="/client/dispView/4112">two</a>`)
	require.Equal(t, []int64{65586}, HrefIDs(doc, "/candidate/dispView/"))
	require.Equal(t, []int64{4112}, HrefIDs(doc, "/client/dispView/"))
}

func TestAttrIDs(t *testing.T) {
	doc := mustDoc(t, `
<tr data-candidate-id="65586"></tr>
<div data-candidate-id="junk"></div>
<div data-candidate-id="65590"></div>`)
	require.Equal(t, []int64{65586, 65590}, AttrIDs(doc, "data-candidate-id"))
}

func TestTextIDs(t *testing.T) {
	doc := mustDoc(t, `<p>see candidate_id=65586 and candidate_id=65590</p>`)
	re := regexp.MustCompile(`candidate_id=(\d+)`)
	require.Equal(t, []int64{65586, 65590}, TextIDs(doc, re))
}

func TestCandidateRows(t *testing.T) {
	doc := mustDoc(t, `
<table>
<tr data-candidate-id="65590"><td><a href="/candidate/dispView/65590">Jane</a></td></tr>
<tr><td><a href="/candidate/dispView/65586">Sang</a></td></tr>
</table>`)
	require.Equal(t, []int64{65590, 65586}, CandidateRows(doc))
}

func TestHasNextPage(t *testing.T) {
	doc := mustDoc(t, `<ul class="pagination"><li class="active">1</li><li><a href="/p/2">Next</a></li></ul>`)
	require.True(t, HasNextPage(doc))

	doc = mustDoc(t, `<ul class="pagination"><li class="active">3</li></ul>`)
	require.False(t, HasNextPage(doc))
}
