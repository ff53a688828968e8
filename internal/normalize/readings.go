// Package normalize turns upstream readings and annotation records into
// positioned text nodes and typed annotations.
package normalize

import (
	"sort"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/stemmarest"
	"github.com/hyperjump/stemmaflat/pkg/utils"
)

// LemmaReadings keeps the readings on the lemma path, dropping the graph's
// start and end sentinels, ordered by rank.
func LemmaReadings(readings []stemmarest.Reading) []stemmarest.Reading {
	return filterByRank(readings, func(r *stemmarest.Reading) bool {
		return r.IsLemma && !r.IsStart && !r.IsEnd
	})
}

// WitnessReadings keeps the readings attested by the witness with the given
// sigil, dropping the start and end sentinels, ordered by rank.
func WitnessReadings(readings []stemmarest.Reading, sigil string) []stemmarest.Reading {
	return filterByRank(readings, func(r *stemmarest.Reading) bool {
		if r.IsStart || r.IsEnd {
			return false
		}
		for _, w := range r.Witnesses {
			if w == sigil {
				return true
			}
		}
		return false
	})
}

func filterByRank(readings []stemmarest.Reading, keep func(*stemmarest.Reading) bool) []stemmarest.Reading {
	out := make([]stemmarest.Reading, 0, len(readings))
	for i := range readings {
		if keep(&readings[i]) {
			out = append(out, readings[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// ReadingText returns the normalized form of a reading when it has one.
func ReadingText(r stemmarest.Reading) string {
	if r.NormalForm != "" {
		return r.NormalForm
	}
	return r.Text
}

// BuildNodes positions rank-ordered readings as text nodes. A node needs a
// leading space unless it is first, joins its predecessor, or its predecessor
// joins it. Offsets count runes of node text only.
func BuildNodes(readings []stemmarest.Reading) []models.TextNode {
	nodes := make([]models.TextNode, 0, len(readings))
	pos := 0
	for i, r := range readings {
		text := ReadingText(r)
		n := utils.RuneLen(text)
		nodes = append(nodes, models.TextNode{
			ID:               r.ID.Canonical(),
			Text:             text,
			NeedsSpaceBefore: i > 0 && !r.JoinPrior && !readings[i-1].JoinNext,
			StartPos:         pos,
			EndPos:           pos + n,
		})
		pos += n
	}
	return nodes
}

// JoinText concatenates node text honoring each node's spacing flag.
func JoinText(nodes []models.TextNode) string {
	var n int
	for i := range nodes {
		n += len(nodes[i].Text) + 1
	}
	buf := make([]byte, 0, n)
	for i := range nodes {
		if nodes[i].NeedsSpaceBefore {
			buf = append(buf, ' ')
		}
		buf = append(buf, nodes[i].Text...)
	}
	return string(buf)
}
