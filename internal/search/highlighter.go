package search

import (
	"strings"
	"unicode"

	"github.com/hyperjump/stemmaflat/pkg/utils"
)

// Snippet flattens a highlighted fragment to one line and truncates it to
// maxLen characters. Highlight tags are kept and never cut.
func Snippet(fragment string, maxLen int) string {
	s := strings.Join(strings.FieldsFunc(fragment, unicode.IsSpace), " ")
	if maxLen <= 0 || utils.RuneLen(s) <= maxLen {
		return s
	}
	cut := utils.Truncate(s, maxLen)
	cut = strings.TrimSuffix(cut, "...")
	if open := strings.LastIndex(cut, "<"); open > strings.LastIndex(cut, ">") {
		cut = cut[:open]
	}
	if strings.Count(cut, "<mark>") > strings.Count(cut, "</mark>") {
		cut += "</mark>"
	}
	return cut + "..."
}
