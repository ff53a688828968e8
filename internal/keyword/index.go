// Package keyword provides full-text indexing and search over edition sections.
package keyword

import "context"

// SectionDoc is the indexed form of one section: its titles and lemma text.
type SectionDoc struct {
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// DocID returns the index document id of a section.
func DocID(sectionID string) string {
	return "section:" + sectionID
}

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from matches in the title field.
	TitleBoost float64
	// Fuzzy matches terms within Fuzziness edits, for spelling variants
	// between witnesses.
	Fuzzy     bool
	Fuzziness int
}

// Index defines section indexing and search operations.
type Index interface {
	Index(ctx context.Context, doc *SectionDoc) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, sectionID string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	SectionID string
	Title     string
	// Content is the stored lemma text.
	Content string
	// Fragment is a highlighted excerpt of the matching lemma text, if any.
	Fragment string
	Score    float64
}

// TermDictionary exposes indexed terms with their document frequency.
type TermDictionary interface {
	Terms() (map[string]int, error)
}
