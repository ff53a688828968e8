package stemmarest

import (
	"context"
	"fmt"
	"net/url"
)

// Sections returns the sections of the tradition in upstream order.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	var sections []Section
	if err := c.getJSON(ctx, "/sections", nil, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// Witnesses returns the manuscript witnesses of the tradition.
func (c *Client) Witnesses(ctx context.Context) ([]Witness, error) {
	var witnesses []Witness
	if err := c.getJSON(ctx, "/witnesses", nil, &witnesses); err != nil {
		return nil, err
	}
	return witnesses, nil
}

// Readings returns every reading of a section, lemma or not, unordered.
func (c *Client) Readings(ctx context.Context, sectionID string) ([]Reading, error) {
	var readings []Reading
	if err := c.getJSON(ctx, sectionPath(sectionID, "/readings"), nil, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// Annotations returns the annotations of a section. With no labels a single
// unfiltered request is made; otherwise one request per label, concatenated in
// label order.
func (c *Client) Annotations(ctx context.Context, sectionID string, labels ...string) ([]AnnotationRecord, error) {
	path := sectionPath(sectionID, "/annotations")
	if len(labels) == 0 {
		var all []AnnotationRecord
		if err := c.getJSON(ctx, path, nil, &all); err != nil {
			return nil, err
		}
		return all, nil
	}
	var out []AnnotationRecord
	for _, label := range labels {
		var recs []AnnotationRecord
		if err := c.getJSON(ctx, path, url.Values{"label": {label}}, &recs); err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// TraditionAnnotations returns the tradition-wide annotations with the given label.
func (c *Client) TraditionAnnotations(ctx context.Context, label string) ([]AnnotationRecord, error) {
	var recs []AnnotationRecord
	if err := c.getJSON(ctx, "/annotations", url.Values{"label": {label}}, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// LemmaText returns the finalized lemma text of a section. Sections without an
// edited lemma return an empty Text.
func (c *Client) LemmaText(ctx context.Context, sectionID string) (LemmaText, error) {
	var lt LemmaText
	err := c.getJSON(ctx, sectionPath(sectionID, "/lemmatext"), url.Values{"final": {"true"}}, &lt)
	return lt, err
}

// Dot returns the GraphViz source of the section's variant graph.
func (c *Client) Dot(ctx context.Context, sectionID string) ([]byte, error) {
	q := url.Values{"show_normal": {"true"}, "normalise": {"spelling"}}
	return c.get(ctx, c.endpoint(sectionPath(sectionID, "/dot"), q), true)
}

func sectionPath(sectionID, suffix string) string {
	return fmt.Sprintf("/section/%s%s", url.PathEscape(sectionID), suffix)
}
