package fileutil

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"erpharvest/lib/textutil"
)

// TemplateFilename expands a `{name}`/`{id}` filename template, for
// example "{name}_{id}_resume".
func TemplateFilename(template, name string, id int64) string {
	out := strings.ReplaceAll(template, "{name}", textutil.SanitizeFilename(name))
	out = strings.ReplaceAll(out, "{id}", strconv.FormatInt(id, 10))
	return out
}

var isoDateRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-\d{2}`)

// DateParts extracts the year and zero-padded month from a YYYY-MM-DD
// date string.
func DateParts(date string) (year string, month string, err error) {
	groups := isoDateRegex.FindStringSubmatch(date)
	if groups == nil {
		return "", "", fmt.Errorf("not a YYYY-MM-DD date: %q", date)
	}
	return groups[1], groups[2], nil
}

// DatePartsOrNow is DateParts falling back to the current date, callers
// are expected to record the degradation themselves.
func DatePartsOrNow(date string, now time.Time) (year string, month string, ok bool) {
	year, month, err := DateParts(date)
	if err != nil {
		return fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", now.Month()), false
	}
	return year, month, true
}

var pdfMagic = []byte("%PDF-")

// ValidatePDF reports whether the file at path begins with the PDF magic
// bytes. Truncated or HTML error-page downloads fail this check.
func ValidatePDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	_, err = f.Read(header)
	if err != nil {
		return false
	}
	return bytes.Equal(header, pdfMagic)
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
