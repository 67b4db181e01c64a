package formatter

import (
	"html"
	"regexp"
	"strings"
)

var (
	listItemPattern = regexp.MustCompile(`(?i)<li[^>]*>`)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
	blankLines      = regexp.MustCompile(`\n{2,}`)
)

// SummaryText renders a summary's HTML bullet list as plain "• " lines for terminals.
func SummaryText(s string) string {
	s = listItemPattern.ReplaceAllString(s, "\n• ")
	s = tagPattern.ReplaceAllString(s, "")
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(html.UnescapeString(s))
}
