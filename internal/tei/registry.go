package tei

import (
	"strings"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/normalize"
)

// BuildRegistries collects the people, places, events and comments marked on
// nodes. The first occurrence of an id wins; dates have no registry. Entry
// text is plain: covered node text may still carry inline markup.
func BuildRegistries(nodes []models.TextNode) models.Registries {
	var r models.Registries
	seen := make(map[models.AnnotationKind]map[string]bool)
	for _, n := range nodes {
		for _, m := range n.Marks {
			a := m.Annotation
			var list *[]models.RegistryEntry
			switch a.Kind {
			case models.KindPerson:
				list = &r.People
			case models.KindPlace:
				list = &r.Places
			case models.KindEvent:
				list = &r.Events
			case models.KindComment:
				list = &r.Annotations
			default:
				continue
			}
			if seen[a.Kind] == nil {
				seen[a.Kind] = make(map[string]bool)
			}
			if seen[a.Kind][a.ID] {
				continue
			}
			seen[a.Kind][a.ID] = true
			*list = append(*list, models.RegistryEntry{ID: a.ID, Text: normalize.PlainText(a.Text)})
		}
	}
	return r
}

// RegistryLists holds the per-section standOff fragments of one section.
// A fragment is empty when the section has no entries of that kind.
type RegistryLists struct {
	People      string
	Places      string
	Events      string
	Annotations string
}

// RenderRegistryLists renders the section's registries as the nested lists
// that go inside the document-level standOff lists.
func RenderRegistryLists(sectionID string, r models.Registries) RegistryLists {
	id := attr(sectionID)
	return RegistryLists{
		People: renderList("listPerson", `section_`+id+`_people`, r.People, func(e models.RegistryEntry) string {
			return `<person xml:id="person_` + attr(e.ID) + `"><persName xml:lang="hy">` + escape(e.Text) + `</persName></person>`
		}),
		Places: renderList("listPlace", `section_`+id+`_places`, r.Places, func(e models.RegistryEntry) string {
			return `<place xml:id="place_` + attr(e.ID) + `"><placeName xml:lang="hy">` + escape(e.Text) + `</placeName></place>`
		}),
		Events: renderList("listEvent", `section_`+id+`_events`, r.Events, func(e models.RegistryEntry) string {
			return `<event xml:id="event_` + attr(e.ID) + `"><eventName xml:lang="hy">` + escape(e.Text) + `</eventName></event>`
		}),
		Annotations: renderList("listAnnotation", `section_`+id+`_annotations`, r.Annotations, func(e models.RegistryEntry) string {
			return `<note xml:id="annotation_` + attr(e.ID) + `" xml:lang="en">` + escape(e.Text) + `</note>`
		}),
	}
}

func renderList(element, xmlID string, entries []models.RegistryEntry, item func(models.RegistryEntry) string) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(indent(4) + "<" + element + ` xml:id="` + xmlID + `">` + "\n")
	for _, e := range entries {
		b.WriteString(indent(5) + item(e) + "\n")
	}
	b.WriteString(indent(4) + "</" + element + ">\n")
	return b.String()
}

// MergeRegistryLists concatenates section fragments in the given order.
func MergeRegistryLists(sections []models.SectionTEI) RegistryLists {
	var out RegistryLists
	for _, s := range sections {
		l := RenderRegistryLists(s.SectionID, s.Registries)
		out.People += l.People
		out.Places += l.Places
		out.Events += l.Events
		out.Annotations += l.Annotations
	}
	return out
}
