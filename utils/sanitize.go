package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()
)

// SanitizeText strips all markup from single-line fields such as titles, tags and room names.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}

// SanitizeRich keeps safe formatting in free-text fields such as task descriptions.
func SanitizeRich(input string) string {
	return ugcPolicy.Sanitize(input)
}
