package service

import (
	"html"
	"regexp"
)

var (
	boldRe    = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	italicRe  = regexp.MustCompile(`\*([^*\n]+?)\*`)
	allowedRe = regexp.MustCompile(`&lt;(/?)(br|strong|em|ul|li|hr)\s*/?&gt;`)
)

// SanitizeReply escapes model output and then lets a small set of
// attribute-free formatting tags back through. Markdown emphasis is turned
// into the matching tags.
func SanitizeReply(s string) string {
	s = html.EscapeString(s)

	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicRe.ReplaceAllString(s, "<em>$1</em>")

	return allowedRe.ReplaceAllString(s, "<$1$2>")
}
