package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips all markup and returns the remaining plain text, trimmed. Entities are decoded so
// stored text reads as typed; rendering must escape it.
func Sanitize(input string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(input)))
}
