// Package models defines core data structures for sections, text nodes, annotations and run reports.
package models

import "fmt"

// Titles holds the bilingual heading of a section. An empty field means the
// upstream tradition carries no title in that language.
type Titles struct {
	English  string `json:"englishTitle,omitempty"`
	Armenian string `json:"armenianTitle,omitempty"`
}

// Empty reports whether neither title is set.
func (t Titles) Empty() bool {
	return t.English == "" && t.Armenian == ""
}

// Section is one section of the tradition as listed by the collation service.
type Section struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Titles Titles `json:"titles"`
}

// TextNode is a lemma reading positioned within its section.
// StartPos and EndPos are rune offsets over the concatenated node text
// (inter-node spaces are not counted).
type TextNode struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	StartPos         int    `json:"start_pos"`
	EndPos           int    `json:"end_pos"`
	NeedsSpaceBefore bool   `json:"needs_space_before"`
	Marks            []Mark `json:"marks,omitempty"`
}

// AnnotationKind is the alignment category of an annotation.
type AnnotationKind string

const (
	KindComment AnnotationKind = "comment"
	KindPerson  AnnotationKind = "person"
	KindPlace   AnnotationKind = "place"
	KindDate    AnnotationKind = "date"
	KindEvent   AnnotationKind = "event"
)

// Upstream annotation labels.
const (
	LabelTitle       = "TITLE"
	LabelComment     = "COMMENT"
	LabelPersonRef   = "PERSONREF"
	LabelPlaceRef    = "PLACEREF"
	LabelDateRef     = "DATEREF"
	LabelDating      = "DATING"
	LabelTranslation = "TRANSLATION"
	LabelPlace       = "PLACE"
)

// AlignedLabels lists the labels that become annotation spans, in the order
// their annotations are applied to nodes.
var AlignedLabels = []string{LabelComment, LabelPersonRef, LabelPlaceRef, LabelDateRef, LabelDating}

// KindForLabel maps an upstream label to its annotation kind.
func KindForLabel(label string) (AnnotationKind, bool) {
	switch label {
	case LabelComment:
		return KindComment, true
	case LabelPersonRef:
		return KindPerson, true
	case LabelPlaceRef:
		return KindPlace, true
	case LabelDateRef:
		return KindDate, true
	case LabelDating:
		return KindEvent, true
	}
	return "", false
}

// Paired reports whether the kind is serialized as an open/close element pair
// rather than as self-closing milestones.
func (k AnnotationKind) Paired() bool {
	return k == KindPerson || k == KindPlace || k == KindDate
}

// Annotation is a labeled span over the lemma text anchored by begin/end node ids.
type Annotation struct {
	ID          string         `json:"id"`
	Kind        AnnotationKind `json:"type"`
	BeginNodeID string         `json:"begin"`
	EndNodeID   string         `json:"end"`
	Text        string         `json:"text,omitempty"`
}

// MarkPosition says where a node sits within the span of the annotation that marks it.
type MarkPosition int

const (
	// StartEnd marks an annotation that begins and ends on the same node.
	StartEnd MarkPosition = iota
	Start
	Middle
	End
)

func (p MarkPosition) String() string {
	switch p {
	case StartEnd:
		return "start_end"
	case Start:
		return "start"
	case Middle:
		return "middle"
	case End:
		return "end"
	}
	return fmt.Sprintf("MarkPosition(%d)", int(p))
}

// Mark is an annotation projected onto a single text node.
type Mark struct {
	Position   MarkPosition `json:"position"`
	Annotation Annotation   `json:"annotation"`
}

// IsStart reports whether the annotation opens on this node.
func (m Mark) IsStart() bool { return m.Position == StartEnd || m.Position == Start }

// IsEnd reports whether the annotation closes on this node.
func (m Mark) IsEnd() bool { return m.Position == StartEnd || m.Position == End }
