package tei

import (
	"strings"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/normalize"
)

// NodeMarkup renders one node: its plain, escaped text with the
// node's marks applied in order, prefixed by a space when the node needs one.
//
// A mark that starts and ends on the node wraps the text. For person, place
// and date the wrap stops before the first closing tag already present, so an
// element opened by an earlier mark is not split.
func NodeMarkup(n models.TextNode) string {
	text := escape(normalize.PlainText(n.Text))
	for _, m := range n.Marks {
		switch m.Position {
		case models.StartEnd:
			openTag, closeTag := OpenTag(m.Annotation), CloseTag(m.Annotation)
			if i := strings.Index(text, "</"); i >= 0 && m.Annotation.Kind.Paired() {
				text = openTag + text[:i] + closeTag + text[i:]
			} else {
				text = openTag + text + closeTag
			}
		case models.Start:
			text = OpenTag(m.Annotation) + text
		case models.End:
			text = text + CloseTag(m.Annotation)
		}
	}
	if n.NeedsSpaceBefore {
		return " " + text
	}
	return text
}

// SectionBody renders the paragraph of a section, or "" when the section has
// no text.
func SectionBody(nodes []models.TextNode) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(NodeMarkup(n))
	}
	if b.Len() == 0 {
		return ""
	}
	return "<p>" + b.String() + "</p>\n"
}

// RenderSection renders the section <div> with its headings and collects the
// registries its nodes contribute.
func RenderSection(section models.Section, nodes []models.TextNode) models.SectionTEI {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(indent(3))
	b.WriteString(`<div xml:id="section_` + attr(section.ID) + `">`)
	if !section.Titles.Empty() {
		b.WriteString("\n")
	}
	if section.Titles.Armenian != "" {
		b.WriteString(indent(4) + `<head xml:lang="hy">` + escape(normalize.PlainText(section.Titles.Armenian)) + "</head>\n")
	}
	if section.Titles.English != "" {
		b.WriteString(indent(4) + `<head xml:lang="en">` + escape(normalize.PlainText(section.Titles.English)) + "</head>")
	}
	b.WriteString("\n" + indent(4))
	b.WriteString(SectionBody(nodes))
	b.WriteString("\n" + indent(3) + "</div>")

	return models.SectionTEI{
		SectionID:  section.ID,
		Body:       b.String(),
		Registries: BuildRegistries(nodes),
	}
}

func indent(level int) string {
	return strings.Repeat("    ", level)
}
