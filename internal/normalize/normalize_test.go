package normalize

import (
	"testing"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/stemmarest"
)

func TestLemmaReadings(t *testing.T) {
	readings := []stemmarest.Reading{
		{ID: "9", Rank: 3, Text: "C", IsLemma: true},
		{ID: "1", Rank: 0, Text: "#START#", IsLemma: true, IsStart: true},
		{ID: "5", Rank: 1, Text: "A", IsLemma: true},
		{ID: "6", Rank: 2, Text: "variant", IsLemma: false},
		{ID: "7", Rank: 2, Text: "B", IsLemma: true},
		{ID: "2", Rank: 4, Text: "#END#", IsLemma: true, IsEnd: true},
	}
	got := LemmaReadings(readings)
	want := []string{"5", "7", "9"}
	if len(got) != len(want) {
		t.Fatalf("got %d readings, want %d", len(got), len(want))
	}
	for i, id := range want {
		if string(got[i].ID) != id {
			t.Errorf("reading %d: got id %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestWitnessReadings(t *testing.T) {
	readings := []stemmarest.Reading{
		{ID: "3", Rank: 2, Text: "b", Witnesses: []string{"A"}},
		{ID: "4", Rank: 2, Text: "b2", Witnesses: []string{"B"}},
		{ID: "2", Rank: 1, Text: "a", Witnesses: []string{"A", "B"}},
		{ID: "1", Rank: 0, IsStart: true, Witnesses: []string{"A", "B"}},
	}
	got := WitnessReadings(readings, "A")
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
		t.Errorf("witness A readings = %+v", got)
	}
	if got := WitnessReadings(readings, "Z"); len(got) != 0 {
		t.Errorf("unknown witness should have no readings, got %+v", got)
	}
}

func TestReadingText(t *testing.T) {
	if got := ReadingText(stemmarest.Reading{Text: "ԶՔ", NormalForm: "զք"}); got != "զք" {
		t.Errorf("normal form should win, got %q", got)
	}
	if got := ReadingText(stemmarest.Reading{Text: "ԶՔ"}); got != "ԶՔ" {
		t.Errorf("fallback to text, got %q", got)
	}
}

func TestBuildNodes(t *testing.T) {
	readings := []stemmarest.Reading{
		{ID: "1", Rank: 1, Text: "Ի"},
		{ID: "2", Rank: 2, Text: "թուականիս", JoinNext: true},
		{ID: "3", Rank: 3, Text: "։"},
		{ID: "4", Rank: 4, Text: "և"},
		{ID: "5", Rank: 5, Text: "-ն", JoinPrior: true},
	}
	nodes := BuildNodes(readings)
	if len(nodes) != 5 {
		t.Fatalf("got %d nodes", len(nodes))
	}

	space := []bool{false, true, false, true, false}
	for i, n := range nodes {
		if n.NeedsSpaceBefore != space[i] {
			t.Errorf("node %s: NeedsSpaceBefore = %v, want %v", n.ID, n.NeedsSpaceBefore, space[i])
		}
	}

	// rune offsets, spaces not counted
	wantPos := [][2]int{{0, 1}, {1, 10}, {10, 11}, {11, 12}, {12, 14}}
	for i, n := range nodes {
		if n.StartPos != wantPos[i][0] || n.EndPos != wantPos[i][1] {
			t.Errorf("node %s: pos = [%d,%d), want [%d,%d)", n.ID, n.StartPos, n.EndPos, wantPos[i][0], wantPos[i][1])
		}
	}

	if got := JoinText(nodes); got != "Ի թուականիս։ և-ն" {
		t.Errorf("JoinText = %q", got)
	}
}

func TestBuildNodes_CanonicalIDs(t *testing.T) {
	nodes := BuildNodes([]stemmarest.Reading{{ID: "007", Text: "x"}})
	if nodes[0].ID != "7" {
		t.Errorf("id = %q, want 7", nodes[0].ID)
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"<i>Smbat</i> the constable", "Smbat the constable"},
		{`<span class="note">a &amp; b</span>`, "a &amp; b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripTags(tt.in); got != tt.want {
			t.Errorf("StripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"<i>Basil</i>", "Basil"},
		{"A &amp; B", "A & B"},
		{`<span class="note">&lt;sic&gt;</span>`, "<sic>"},
		{"a & b", "a & b"},
	}
	for _, tt := range tests {
		if got := PlainText(tt.in); got != tt.want {
			t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func link(typ, target string) stemmarest.Link {
	return stemmarest.Link{Type: typ, Target: stemmarest.ID(target)}
}

func TestAnnotations(t *testing.T) {
	records := []stemmarest.AnnotationRecord{
		{ID: "t1", Label: "TITLE", Properties: stemmarest.Properties{Text: "Prologue", Language: "en"}},
		{ID: "t2", Label: "TITLE", Properties: stemmarest.Properties{Text: "Յառաջաբան", Language: "hy"}},
		{ID: "d1", Label: "DATING", Links: []stemmarest.Link{link("BEGIN", "1"), link("END", "2")}},
		{ID: "p1", Label: "PERSONREF", Properties: stemmarest.Properties{Text: "<b>Basil</b>"},
			Links: []stemmarest.Link{link("BEGIN", "3"), link("END", "03")}},
		{ID: "c1", Label: "COMMENT", Properties: stemmarest.Properties{Text: "note"},
			Links: []stemmarest.Link{link("BEGIN", "1"), link("END", "4")}},
		{ID: "x1", Label: "PLACEREF", Links: []stemmarest.Link{link("BEGIN", "1")}},
		{ID: "tr", Label: "TRANSLATION", Links: []stemmarest.Link{link("BEGIN", "1")}},
	}
	got := Annotations("12", records)

	if got.Titles.English != "Prologue" || got.Titles.Armenian != "Յառաջաբան" {
		t.Errorf("titles = %+v", got.Titles)
	}

	wantOrder := []models.AnnotationKind{models.KindComment, models.KindPerson, models.KindEvent}
	if len(got.Annotations) != len(wantOrder) {
		t.Fatalf("annotations = %+v", got.Annotations)
	}
	for i, k := range wantOrder {
		if got.Annotations[i].Kind != k {
			t.Errorf("annotation %d kind = %s, want %s", i, got.Annotations[i].Kind, k)
		}
	}

	person := got.Annotations[1]
	if person.Text != "Basil" || person.BeginNodeID != "3" || person.EndNodeID != "3" {
		t.Errorf("person = %+v", person)
	}

	if len(got.Warnings) != 1 {
		t.Fatalf("warnings = %+v", got.Warnings)
	}
	w := got.Warnings[0]
	if w.Kind != models.WarningMissingLink || w.AnnotationID != "x1" || w.SectionID != "12" {
		t.Errorf("warning = %+v", w)
	}
}

func TestAnnotations_ArmenianTitleOnly(t *testing.T) {
	got := Annotations("4", []stemmarest.AnnotationRecord{
		{ID: "t", Label: "TITLE", Properties: stemmarest.Properties{Text: "Գլուխ", Language: "hy"}},
	})
	if got.Titles.English != "" || got.Titles.Armenian != "Գլուխ" {
		t.Errorf("titles = %+v", got.Titles)
	}
	if len(got.Warnings) != 1 || got.Warnings[0].Kind != models.WarningMissingTitle {
		t.Errorf("warnings = %+v", got.Warnings)
	}
}

func TestAnnotations_NoTitle(t *testing.T) {
	got := Annotations("4", nil)
	if !got.Titles.Empty() {
		t.Errorf("titles = %+v", got.Titles)
	}
	if len(got.Warnings) != 1 || got.Warnings[0].Detail != "no title for section" {
		t.Errorf("warnings = %+v", got.Warnings)
	}
}
