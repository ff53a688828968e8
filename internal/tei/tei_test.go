package tei

import (
	"bytes"
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"

	"github.com/hyperjump/stemmaflat/internal/align"
	"github.com/hyperjump/stemmaflat/internal/models"
)

func nodesABC() []models.TextNode {
	return []models.TextNode{
		{ID: "1", Text: "A", StartPos: 0, EndPos: 1},
		{ID: "2", Text: "B", StartPos: 1, EndPos: 2, NeedsSpaceBefore: true},
		{ID: "3", Text: "C", StartPos: 2, EndPos: 3, NeedsSpaceBefore: true},
	}
}

// elements returns every element named name below n, in document order.
func elements(n *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	var walk func(*xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode {
				if c.Data == name {
					out = append(out, c)
				}
				walk(c)
			}
		}
	}
	walk(n)
	return out
}

func attrValue(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func parse(t *testing.T, data []byte) *xmlquery.Node {
	t.Helper()
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parse: %v\n%s", err, data)
	}
	return doc
}

func TestTags(t *testing.T) {
	tests := []struct {
		kind        models.AnnotationKind
		open, close string
	}{
		{models.KindComment, `<milestone type="comment" unit="start" ana="#annotation_9" />`, `<milestone type="comment" unit="end" ana="#annotation_9" />`},
		{models.KindPerson, `<name ref="person_9">`, `</name>`},
		{models.KindPlace, `<name ref="place_9">`, `</name>`},
		{models.KindDate, `<date>`, `</date>`},
		{models.KindEvent, `<milestone type="event" unit="start" ana="#event_9" />`, `<milestone type="event" unit="end" ana="#event_9" />`},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			a := models.Annotation{ID: "9", Kind: tt.kind}
			if got := OpenTag(a); got != tt.open {
				t.Errorf("OpenTag = %s, want %s", got, tt.open)
			}
			if got := CloseTag(a); got != tt.close {
				t.Errorf("CloseTag = %s, want %s", got, tt.close)
			}
		})
	}
}

func TestSectionBody_NoAnnotations(t *testing.T) {
	if got := SectionBody(nodesABC()); got != "<p>A B C</p>\n" {
		t.Errorf("body = %q", got)
	}
	if got := SectionBody(nil); got != "" {
		t.Errorf("empty section body = %q", got)
	}
}

func TestNodeMarkup_SingleNode(t *testing.T) {
	n := models.TextNode{ID: "1", Text: "Եդեսիա", NeedsSpaceBefore: true, Marks: []models.Mark{
		{Position: models.StartEnd, Annotation: models.Annotation{ID: "p", Kind: models.KindPlace}},
	}}
	if got := NodeMarkup(n); got != ` <name ref="place_p">Եդեսիա</name>` {
		t.Errorf("markup = %q", got)
	}
}

func TestNodeMarkup_SplicesBeforeExistingClose(t *testing.T) {
	n := models.TextNode{ID: "1", Text: "X", Marks: []models.Mark{
		{Position: models.End, Annotation: models.Annotation{ID: "a", Kind: models.KindPerson}},
		{Position: models.StartEnd, Annotation: models.Annotation{ID: "b", Kind: models.KindDate}},
	}}
	want := `<date>X</date></name>`
	if got := NodeMarkup(n); got != want {
		t.Errorf("markup = %q, want %q", got, want)
	}

	// milestones never splice
	n.Marks[1] = models.Mark{Position: models.StartEnd, Annotation: models.Annotation{ID: "c", Kind: models.KindComment}}
	want = `<milestone type="comment" unit="start" ana="#annotation_c" />X</name><milestone type="comment" unit="end" ana="#annotation_c" />`
	if got := NodeMarkup(n); got != want {
		t.Errorf("markup = %q, want %q", got, want)
	}
}

func TestNodeMarkup_StripsAndEscapes(t *testing.T) {
	n := models.TextNode{Text: "<i>a</i> & b"}
	if got := NodeMarkup(n); got != "a &amp; b" {
		t.Errorf("markup = %q", got)
	}
}

func TestNodeMarkup_EscapesEntitiesOnce(t *testing.T) {
	n := models.TextNode{Text: "A &amp; B"}
	if got := NodeMarkup(n); got != "A &amp; B" {
		t.Errorf("markup = %q", got)
	}
}

func TestBuildRegistries_PlainText(t *testing.T) {
	nodes := []models.TextNode{{ID: "1", Text: "<i>Basil</i>", StartPos: 0, EndPos: 1}}
	res := align.Align("1", nodes, []models.Annotation{
		{ID: "P", Kind: models.KindPerson, BeginNodeID: "1", EndNodeID: "1"},
		{ID: "C", Kind: models.KindComment, BeginNodeID: "1", EndNodeID: "1", Text: "Tom &amp; Jerry"},
	})
	if got := SectionBody(res.Nodes); !strings.Contains(got, `<name ref="person_P">Basil</name>`) {
		t.Errorf("body = %q", got)
	}
	reg := BuildRegistries(res.Nodes)
	if len(reg.People) != 1 || reg.People[0].Text != "Basil" {
		t.Fatalf("people = %+v", reg.People)
	}
	if len(reg.Annotations) != 1 || reg.Annotations[0].Text != "Tom & Jerry" {
		t.Fatalf("annotations = %+v", reg.Annotations)
	}
	lists := RenderRegistryLists("1", reg)
	if !strings.Contains(lists.People, `<persName xml:lang="hy">Basil</persName>`) {
		t.Errorf("people list = %q", lists.People)
	}
	if !strings.Contains(lists.Annotations, ">Tom &amp; Jerry</note>") {
		t.Errorf("annotation list = %q", lists.Annotations)
	}
}

func TestSectionBody_Span(t *testing.T) {
	res := align.Align("1", nodesABC(), []models.Annotation{
		{ID: "X", Kind: models.KindPerson, BeginNodeID: "1", EndNodeID: "3"},
	})
	want := `<p><name ref="person_X">A B C</name></p>` + "\n"
	if got := SectionBody(res.Nodes); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	reg := BuildRegistries(res.Nodes)
	if len(reg.People) != 1 || reg.People[0].ID != "X" || reg.People[0].Text != "A B C" {
		t.Errorf("people = %+v", reg.People)
	}
}

func TestBuildRegistries_Dedup(t *testing.T) {
	res := align.Align("1", nodesABC(), []models.Annotation{
		{ID: "P", Kind: models.KindPlace, BeginNodeID: "1", EndNodeID: "1", Text: "first"},
		{ID: "P", Kind: models.KindPlace, BeginNodeID: "3", EndNodeID: "3", Text: "second"},
		{ID: "D", Kind: models.KindDate, BeginNodeID: "2", EndNodeID: "2"},
		{ID: "E", Kind: models.KindEvent, BeginNodeID: "1", EndNodeID: "3"},
		{ID: "C", Kind: models.KindComment, BeginNodeID: "2", EndNodeID: "3", Text: "note"},
	})
	reg := BuildRegistries(res.Nodes)
	if len(reg.Places) != 1 || reg.Places[0].Text != "first" {
		t.Errorf("places = %+v", reg.Places)
	}
	if len(reg.Events) != 1 || len(reg.Annotations) != 1 || len(reg.People) != 0 {
		t.Errorf("registries = %+v", reg)
	}
	if reg.Len() != 3 {
		t.Errorf("Len = %d, want 3", reg.Len())
	}
}

func TestRenderSection_ArmenianTitleOnly(t *testing.T) {
	s := RenderSection(models.Section{ID: "5", Titles: models.Titles{Armenian: "Գլուխ"}}, nodesABC())
	if !strings.Contains(s.Body, `<head xml:lang="hy">Գլուխ</head>`) {
		t.Errorf("missing hy head:\n%s", s.Body)
	}
	if strings.Contains(s.Body, `xml:lang="en"`) {
		t.Errorf("unexpected en head:\n%s", s.Body)
	}
	doc := parse(t, []byte(s.Body))
	heads := elements(doc, "head")
	if len(heads) != 1 {
		t.Errorf("heads = %d, want 1", len(heads))
	}
}

func TestRenderSection_HeadOrder(t *testing.T) {
	s := RenderSection(models.Section{ID: "5", Titles: models.Titles{Armenian: "Ա", English: "E & co"}}, nodesABC())
	doc := parse(t, []byte(s.Body))
	heads := elements(doc, "head")
	if len(heads) != 2 {
		t.Fatalf("heads = %d", len(heads))
	}
	if attrValue(heads[0], "lang") != "hy" || attrValue(heads[1], "lang") != "en" {
		t.Errorf("head order wrong:\n%s", s.Body)
	}
	if heads[1].InnerText() != "E & co" {
		t.Errorf("en head = %q", heads[1].InnerText())
	}
	div := elements(doc, "div")
	if len(div) != 1 || attrValue(div[0], "id") != "section_5" {
		t.Errorf("div:\n%s", s.Body)
	}
}

func TestRenderRegistryLists(t *testing.T) {
	l := RenderRegistryLists("8", models.Registries{
		People:      []models.RegistryEntry{{ID: "1", Text: "Բարսեղ"}},
		Annotations: []models.RegistryEntry{{ID: "2", Text: "a <b> note"}},
	})
	if !strings.Contains(l.People, `<listPerson xml:id="section_8_people">`) ||
		!strings.Contains(l.People, `<person xml:id="person_1"><persName xml:lang="hy">Բարսեղ</persName></person>`) {
		t.Errorf("people:\n%s", l.People)
	}
	if !strings.Contains(l.Annotations, `<note xml:id="annotation_2" xml:lang="en">a &lt;b&gt; note</note>`) {
		t.Errorf("annotations:\n%s", l.Annotations)
	}
	if l.Places != "" || l.Events != "" {
		t.Errorf("empty lists should render nothing: %+v", l)
	}
}

func TestWriteDocument_RoundTrip(t *testing.T) {
	res := align.Align("1", nodesABC(), []models.Annotation{
		{ID: "X", Kind: models.KindPerson, BeginNodeID: "1", EndNodeID: "3"},
	})
	section := RenderSection(models.Section{ID: "1", Titles: models.Titles{English: "One", Armenian: "Մէկ"}}, res.Nodes)
	empty := RenderSection(models.Section{ID: "2"}, nil)

	data, err := Render(Document{Sections: []models.SectionTEI{section, empty}})
	if err != nil {
		t.Fatal(err)
	}
	if err := Validate(data); err != nil {
		t.Fatalf("Validate: %v\n%s", err, data)
	}

	doc := parse(t, data)
	if title := elements(doc, "title"); len(title) != 1 || title[0].InnerText() != DefaultTitle {
		t.Errorf("title = %v", title)
	}
	names := elements(doc, "name")
	if len(names) != 1 || attrValue(names[0], "ref") != "person_X" || names[0].InnerText() != "A B C" {
		t.Errorf("names:\n%s", data)
	}
	persons := elements(doc, "person")
	if len(persons) != 1 || attrValue(persons[0], "id") != "person_X" {
		t.Errorf("persons:\n%s", data)
	}
	if len(elements(doc, "listPerson")) != 2 {
		t.Errorf("expected document and section listPerson:\n%s", data)
	}
	for _, absent := range []string{"listPlace", "listEvent", "listAnnotation"} {
		if len(elements(doc, absent)) != 0 {
			t.Errorf("%s should be omitted", absent)
		}
	}
	divs := elements(doc, "div")
	if len(divs) != 2 || attrValue(divs[1], "id") != "section_2" {
		t.Errorf("divs:\n%s", data)
	}
	if len(elements(divs[1], "p")) != 0 {
		t.Error("empty section should have no paragraph")
	}
}

func TestWriteDocument_RegistryOrderFollowsSections(t *testing.T) {
	mk := func(id string) models.SectionTEI {
		return models.SectionTEI{SectionID: id, Registries: models.Registries{
			Places: []models.RegistryEntry{{ID: "pl" + id, Text: id}},
		}}
	}
	data, err := Render(Document{Title: "T", Sections: []models.SectionTEI{mk("1"), mk("2"), mk("3")}})
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	i1 := strings.Index(out, "section_1_places")
	i2 := strings.Index(out, "section_2_places")
	i3 := strings.Index(out, "section_3_places")
	if i1 < 0 || !(i1 < i2 && i2 < i3) {
		t.Errorf("registry order wrong:\n%s", out)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		data string
		ok   bool
	}{
		{"minimal", `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><body/></text></TEI>`, true},
		{"mismatched", `<TEI><text><body></text></TEI>`, false},
		{"wrong root", `<html><text><body/></text></html>`, false},
		{"no body", `<TEI><text/></TEI>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.data))
			if (err == nil) != tt.ok {
				t.Errorf("Validate() err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
