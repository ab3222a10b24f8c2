package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeLabel(label string) string {
	label = strings.ToLower(label)
	label = strings.Trim(label, " \n\t:")
	label = whitespaceRegex.ReplaceAllString(label, "")
	return label
}

func MatchLabel(label string, matchers []string) bool {
	label = NormalizeLabel(label)
	for _, m := range matchers {
		if strings.Contains(label, m) {
			return true
		}
	}
	return false
}

var unsafeFilenameRegex = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// SanitizeFilename turns free-form text (usually a person's name) into
// something safe to embed in a filename.
func SanitizeFilename(s string) string {
	s = strings.Trim(s, " \n\t")
	s = unsafeFilenameRegex.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}
