// Package align projects span annotations onto the text nodes they cover.
package align

import (
	"fmt"
	"strings"

	"github.com/hyperjump/stemmaflat/internal/models"
)

// Result holds the marked nodes and any annotations that could not be placed.
type Result struct {
	Nodes    []models.TextNode
	Warnings []models.Warning
}

// Align attaches a mark for every annotation to each node it covers. Input
// nodes are not modified; the returned nodes keep their order and count, with
// marks appended in annotation order. Annotations with no default text get the
// covered text. Annotations whose begin or end node is unknown, or whose end
// precedes their begin, are left out and reported.
func Align(sectionID string, nodes []models.TextNode, annotations []models.Annotation) Result {
	index := make(map[string]int, len(nodes))
	for i := range nodes {
		if _, dup := index[nodes[i].ID]; !dup {
			index[nodes[i].ID] = i
		}
	}

	var warnings []models.Warning
	marks := make(map[int][]models.Mark)

	for _, a := range annotations {
		si, okStart := index[a.BeginNodeID]
		ei, okEnd := index[a.EndNodeID]
		if !okStart || !okEnd {
			warnings = append(warnings, models.Warning{
				Kind:         models.WarningMissingNode,
				SectionID:    sectionID,
				AnnotationID: a.ID,
				Detail:       missingDetail(a, okStart, okEnd),
			})
			continue
		}

		if si == ei {
			if a.Text == "" {
				a.Text = nodes[si].Text
			}
			marks[si] = append(marks[si], models.Mark{Position: models.StartEnd, Annotation: a})
			continue
		}

		if ei < si {
			warnings = append(warnings, models.Warning{
				Kind:         models.WarningReversedSpan,
				SectionID:    sectionID,
				AnnotationID: a.ID,
				Detail:       fmt.Sprintf("%s ends at node %s before it begins at node %s", a.Kind, a.EndNodeID, a.BeginNodeID),
			})
			continue
		}

		between := betweenNodes(nodes, si, ei)
		if a.Text == "" {
			a.Text = spanText(nodes, si, between, ei)
		}
		marks[si] = append(marks[si], models.Mark{Position: models.Start, Annotation: a})
		for _, i := range between {
			marks[i] = append(marks[i], models.Mark{Position: models.Middle, Annotation: a})
		}
		marks[ei] = append(marks[ei], models.Mark{Position: models.End, Annotation: a})
	}

	out := make([]models.TextNode, len(nodes))
	for i, n := range nodes {
		var m []models.Mark
		if len(n.Marks) > 0 || len(marks[i]) > 0 {
			m = make([]models.Mark, 0, len(n.Marks)+len(marks[i]))
			m = append(m, n.Marks...)
			m = append(m, marks[i]...)
		}
		n.Marks = m
		out[i] = n
	}
	return Result{Nodes: out, Warnings: warnings}
}

// betweenNodes returns the indexes of nodes lying within the gap between the
// start and end nodes by offset, excluding those two nodes.
func betweenNodes(nodes []models.TextNode, si, ei int) []int {
	start, end := nodes[si], nodes[ei]
	var idx []int
	for i := range nodes {
		if i == si || i == ei {
			continue
		}
		if nodes[i].StartPos >= start.EndPos && nodes[i].EndPos <= end.StartPos {
			idx = append(idx, i)
		}
	}
	return idx
}

func spanText(nodes []models.TextNode, si int, between []int, ei int) string {
	var b strings.Builder
	b.WriteString(nodes[si].Text)
	write := func(n models.TextNode) {
		if n.NeedsSpaceBefore {
			b.WriteByte(' ')
		}
		b.WriteString(n.Text)
	}
	for _, i := range between {
		write(nodes[i])
	}
	write(nodes[ei])
	return b.String()
}

func missingDetail(a models.Annotation, okStart, okEnd bool) string {
	switch {
	case !okStart && !okEnd:
		return fmt.Sprintf("%s begin node %q and end node %q not in lemma text", a.Kind, a.BeginNodeID, a.EndNodeID)
	case !okStart:
		return fmt.Sprintf("%s begin node %q not in lemma text", a.Kind, a.BeginNodeID)
	default:
		return fmt.Sprintf("%s end node %q not in lemma text", a.Kind, a.EndNodeID)
	}
}
