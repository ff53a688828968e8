package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// TraditionID is the tradition the fake repository serves.
const TraditionID = "chronicle"

type reading struct {
	ID        int      `json:"id"`
	Rank      int      `json:"rank"`
	Text      string   `json:"text"`
	IsLemma   bool     `json:"is_lemma"`
	IsStart   bool     `json:"is_start"`
	IsEnd     bool     `json:"is_end"`
	Witnesses []string `json:"witnesses,omitempty"`
}

type link struct {
	Type   string `json:"type"`
	Target int    `json:"target"`
}

type annotation struct {
	ID         int               `json:"id"`
	Label      string            `json:"label"`
	Properties map[string]string `json:"properties"`
	Links      []link            `json:"links"`
}

// readingsFor returns the section's readings: start and end sentinels around the
// lemma words, every word attested by all witnesses.
func readingsFor(s E2ESection) []reading {
	out := []reading{{ID: s.ID * 100, Rank: 0, Text: "#START#", IsStart: true}}
	for i, w := range s.Words {
		out = append(out, reading{ID: s.ReadingID(i), Rank: i + 1, Text: w, IsLemma: true, Witnesses: Witnesses})
	}
	return append(out, reading{ID: s.ID*100 + 99, Rank: len(s.Words) + 1, Text: "#END#", IsEnd: true})
}

// annotationsFor returns the section's TITLE, PERSONREF and TRANSLATION records.
// The person spans the signature word; its id is 1000+section.
func annotationsFor(s E2ESection) []annotation {
	sig := s.ReadingID(s.SignatureIndex())
	return []annotation{
		{ID: 2000 + s.ID, Label: "TITLE", Properties: map[string]string{"text": s.EnglishTitle, "language": "en"}, Links: []link{}},
		{ID: 3000 + s.ID, Label: "TITLE", Properties: map[string]string{"text": s.ArmenianTitle, "language": "hy"}, Links: []link{}},
		{ID: 1000 + s.ID, Label: "PERSONREF", Properties: map[string]string{"text": s.Signature},
			Links: []link{{Type: "BEGIN", Target: sig}, {Type: "END", Target: sig}}},
		{ID: 4000 + s.ID, Label: "TRANSLATION", Properties: map[string]string{"text": "<p>" + s.EnglishTitle + "</p>"},
			Links: []link{{Type: "BEGIN", Target: s.ReadingID(0)}, {Type: "END", Target: s.ReadingID(len(s.Words) - 1)}}},
	}
}

// Handler serves the corpus the way a Stemmarest repository serves
// /tradition/{id}/... Requests for other traditions get 404.
func (c *Corpus) Handler() http.Handler {
	prefix := "/tradition/" + TraditionID
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, ok := strings.CutPrefix(r.URL.Path, prefix)
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch {
		case path == "/sections":
			sections := make([]map[string]interface{}, 0, len(c.Sections))
			for _, s := range c.Sections {
				sections = append(sections, map[string]interface{}{"id": s.ID, "name": fmt.Sprintf("section %d", s.ID)})
			}
			writeJSON(w, sections)
		case path == "/witnesses":
			var ws []map[string]string
			for _, sigil := range Witnesses {
				ws = append(ws, map[string]string{"sigil": sigil})
			}
			writeJSON(w, ws)
		case path == "/annotations":
			// No tradition-wide places.
			writeJSON(w, []annotation{})
		case strings.HasPrefix(path, "/section/"):
			c.serveSection(w, r, strings.TrimPrefix(path, "/section/"))
		default:
			http.NotFound(w, r)
		}
	})
}

func (c *Corpus) serveSection(w http.ResponseWriter, r *http.Request, rest string) {
	idStr, resource, _ := strings.Cut(rest, "/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s, ok := c.Section(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch resource {
	case "readings":
		writeJSON(w, readingsFor(s))
	case "annotations":
		label := r.URL.Query().Get("label")
		out := []annotation{}
		for _, a := range annotationsFor(s) {
			if label == "" || a.Label == label {
				out = append(out, a)
			}
		}
		writeJSON(w, out)
	case "lemmatext":
		writeJSON(w, map[string]string{"text": s.LemmaText()})
	case "dot":
		fmt.Fprintf(w, "digraph section%d { n%d -> n%d }", s.ID, s.ReadingID(0), s.ReadingID(1))
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
