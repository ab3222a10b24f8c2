package hrerp

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"erpharvest/lib/htmlutil"
	"erpharvest/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

func Document(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewBuffer(body))
}

type labeledCell struct {
	label string
	value string
}

// rendered detail pages lay fields out as <tr><th>Label</th><td>value</td></tr>
func labeledCells(root *goquery.Selection) []labeledCell {
	var cells []labeledCell
	root.Find("tr").Each(func(_ int, row *goquery.Selection) {
		th := row.Find("th").First()
		td := row.Find("td").First()
		if th.Length() == 0 || td.Length() == 0 {
			return
		}
		cells = append(cells, labeledCell{
			label: htmlutil.CleanText(th.Text()),
			value: htmlutil.CleanText(td.Text()),
		})
	})
	return cells
}

// labels fuzzier than this are not considered the same field
const fuzzyLabelThreshold = 0.92

// fieldFromCells tries label patterns in priority order: exact
// normalized match first, then substring, then a JaroWinkler pass as a
// last resort. First non-empty value wins.
func fieldFromCells(cells []labeledCell, labels []string) string {
	for _, label := range labels {
		want := textutil.NormalizeLabel(label)
		for _, cell := range cells {
			if textutil.NormalizeLabel(cell.label) == want && cell.value != "" {
				return cell.value
			}
		}
	}
	for _, label := range labels {
		want := textutil.NormalizeLabel(label)
		for _, cell := range cells {
			if strings.Contains(textutil.NormalizeLabel(cell.label), want) && cell.value != "" {
				return cell.value
			}
		}
	}

	best := ""
	bestSim := fuzzyLabelThreshold
	for _, label := range labels {
		want := textutil.NormalizeLabel(label)
		for _, cell := range cells {
			if cell.value == "" {
				continue
			}
			sim := matchr.JaroWinkler(want, textutil.NormalizeLabel(cell.label), false)
			if sim > bestSim {
				bestSim = sim
				best = cell.value
			}
		}
	}
	return best
}

// Field extracts a labeled value from anywhere on the page.
func Field(doc *goquery.Document, labels ...string) string {
	return fieldFromCells(labeledCells(doc.Selection), labels)
}

// SectionField extracts a labeled value from the table that follows an
// <h3> section header containing the section text.
func SectionField(doc *goquery.Document, section string, labels ...string) string {
	table := sectionTable(doc, section)
	if table == nil {
		return ""
	}
	return fieldFromCells(labeledCells(table), labels)
}

func sectionTable(doc *goquery.Document, section string) *goquery.Selection {
	want := strings.ToLower(section)
	var table *goquery.Selection
	doc.Find("h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(h.Text()), want) {
			return true
		}
		t := h.NextAllFiltered("table").First()
		if t.Length() == 0 {
			return true
		}
		table = t
		return false
	})
	return table
}

func HiddenInput(doc *goquery.Document, id string) string {
	return strings.TrimSpace(doc.Find("input#" + id).AttrOr("value", ""))
}

var usDateRegex = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)

// LabeledDate finds a cell of the form "Created : 06/12/2025" and
// returns the date normalized to YYYY-MM-DD.
func LabeledDate(doc *goquery.Document, label string) string {
	out := ""
	doc.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		text := htmlutil.CleanText(td.Text())
		if !strings.Contains(text, label+" :") && !strings.Contains(text, label+":") {
			return true
		}
		groups := usDateRegex.FindStringSubmatch(text)
		if groups == nil {
			return true
		}
		out = fmt.Sprintf("%s-%s-%s", groups[3], groups[1], groups[2])
		return false
	})
	return out
}

// OnclickIDs collects the numeric argument of every onclick handler
// calling the named function, e.g. onclick="openCandidate(65586)".
func OnclickIDs(doc *goquery.Document, fn string) []int64 {
	re := regexp.MustCompile(regexp.QuoteMeta(fn) + `\(\s*'?(\d+)'?\s*\)`)
	var out []int64
	doc.Find("[onclick]").Each(func(_ int, s *goquery.Selection) {
		groups := re.FindStringSubmatch(s.AttrOr("onclick", ""))
		if groups == nil {
			return
		}
		id, err := strconv.ParseInt(groups[1], 10, 64)
		if err != nil {
			return
		}
		out = append(out, id)
	})
	return out
}

// HrefIDs collects the trailing id of every link whose href contains the
// path segment, e.g. segment "/candidate/dispView/".
func HrefIDs(doc *goquery.Document, segment string) []int64 {
	re := regexp.MustCompile(regexp.QuoteMeta(segment) + `(\d+)`)
	var out []int64
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		groups := re.FindStringSubmatch(s.AttrOr("href", ""))
		if groups == nil {
			return
		}
		id, err := strconv.ParseInt(groups[1], 10, 64)
		if err != nil {
			return
		}
		out = append(out, id)
	})
	return out
}

// AttrIDs collects numeric values of a data attribute, e.g.
// data-candidate-id="65586".
func AttrIDs(doc *goquery.Document, attr string) []int64 {
	var out []int64
	doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
		id, err := strconv.ParseInt(strings.TrimSpace(s.AttrOr(attr, "")), 10, 64)
		if err != nil {
			return
		}
		out = append(out, id)
	})
	return out
}

// TextIDs is the last-resort strategy: a textual pattern search over the
// whole rendered page. The regexp's first group must be the id.
func TextIDs(doc *goquery.Document, re *regexp.Regexp) []int64 {
	var out []int64
	for _, groups := range re.FindAllStringSubmatch(doc.Text(), -1) {
		id, err := strconv.ParseInt(groups[1], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

var downloadFileRegex = regexp.MustCompile(`downloadFile\('([^']+)'\)`)
var resumeButtonRegex = regexp.MustCompile(`(?i)download.*resume`)
var resumeFileExts = []string{".pdf", ".doc", ".docx"}

// ResumeRef locates the résumé download reference on a candidate detail
// page. Strategies in order: a "Download RESUME" button carrying a
// downloadFile file key, direct file links under the resume section,
// then any downloadFile button at all.
func ResumeRef(doc *goquery.Document) string {
	ref := ""
	doc.Find("button[onclick]").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		if !resumeButtonRegex.MatchString(b.Text()) {
			return true
		}
		groups := downloadFileRegex.FindStringSubmatch(b.AttrOr("onclick", ""))
		if groups == nil {
			return true
		}
		ref = FileDownloadPath(groups[1])
		return false
	})
	if ref != "" {
		return ref
	}

	if table := sectionTable(doc, "resume"); table != nil {
		table.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href := a.AttrOr("href", "")
			if !strings.Contains(href, "/html/files/") {
				return true
			}
			lower := strings.ToLower(href)
			for _, ext := range resumeFileExts {
				if strings.Contains(lower, ext) {
					ref = href
					return false
				}
			}
			return true
		})
	}
	if ref != "" {
		return ref
	}

	doc.Find("[onclick]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		groups := downloadFileRegex.FindStringSubmatch(s.AttrOr("onclick", ""))
		if groups == nil {
			return true
		}
		ref = FileDownloadPath(groups[1])
		return false
	})
	return ref
}

// CandidateRows extracts the candidate url-ids off a listing page, in
// row order. Rows carry either a data attribute or a detail link.
func CandidateRows(doc *goquery.Document) []int64 {
	var out []int64
	seen := map[int64]bool{}
	add := func(id int64) {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range AttrIDs(doc, "data-candidate-id") {
		add(id)
	}
	for _, id := range HrefIDs(doc, "/candidate/dispView/") {
		add(id)
	}
	return out
}

// HasNextPage reports whether the listing pagination offers a next page.
func HasNextPage(doc *goquery.Document) bool {
	found := false
	doc.Find("div.pagination a, ul.pagination a, div.paging a, ul.paging a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.ToLower(htmlutil.CleanText(a.Text()))
		if text == "next" || text == ">" || text == "»" {
			found = true
			return false
		}
		return true
	})
	return found
}
