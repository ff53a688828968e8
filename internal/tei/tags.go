// Package tei serializes aligned section nodes as TEI-XML.
package tei

import (
	"fmt"
	"strings"

	"github.com/hyperjump/stemmaflat/internal/models"
)

// OpenTag returns the markup that opens an annotation of the given kind.
func OpenTag(a models.Annotation) string {
	switch a.Kind {
	case models.KindComment:
		return milestone("comment", "start", "annotation_"+a.ID)
	case models.KindPerson:
		return fmt.Sprintf(`<name ref="person_%s">`, attr(a.ID))
	case models.KindPlace:
		return fmt.Sprintf(`<name ref="place_%s">`, attr(a.ID))
	case models.KindDate:
		return "<date>"
	case models.KindEvent:
		return milestone("event", "start", "event_"+a.ID)
	}
	return ""
}

// CloseTag returns the markup that closes an annotation of the given kind.
func CloseTag(a models.Annotation) string {
	switch a.Kind {
	case models.KindComment:
		return milestone("comment", "end", "annotation_"+a.ID)
	case models.KindPerson, models.KindPlace:
		return "</name>"
	case models.KindDate:
		return "</date>"
	case models.KindEvent:
		return milestone("event", "end", "event_"+a.ID)
	}
	return ""
}

func milestone(typ, unit, target string) string {
	return fmt.Sprintf(`<milestone type="%s" unit="%s" ana="#%s" />`, typ, unit, attr(target))
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// escape makes s safe as XML character data.
func escape(s string) string { return textEscaper.Replace(s) }

func attr(s string) string { return attrEscaper.Replace(s) }
