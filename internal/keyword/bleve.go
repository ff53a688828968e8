package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/text/unicode/norm"
)

const defaultTitleBoost = 2.0

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is reopened as is; remove the directory after changing
// the mapping to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase and unicode word segmentation, no stemming.
	// English stemmers have nothing useful to say about Armenian.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("section_id", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("section", docMapping)
	im.DefaultType = "section"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Normalize returns s in Unicode NFC, the form both documents and queries
// are indexed in.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// Index adds or replaces the document of a section.
func (b *BleveIndex) Index(ctx context.Context, doc *SectionDoc) error {
	if doc.SectionID == "" {
		return fmt.Errorf("section id is required")
	}
	d := SectionDoc{
		SectionID: doc.SectionID,
		Title:     Normalize(doc.Title),
		Content:   Normalize(doc.Content),
	}
	return b.index.Index(DocID(doc.SectionID), d)
}

// Search matches query against titles and lemma text and returns up to limit
// sections, best first. Title matches count TitleBoost times. With more than
// one query term, sections matching only some terms are penalized by the
// square of the share of terms they match.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	titleBoost := defaultTitleBoost
	fuzzy := false
	fuzziness := 1
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzzy = opts.Fuzzy
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}
	if limit <= 0 {
		limit = 10
	}

	query = Normalize(query)
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		return nil, nil
	}

	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	q := bleve.NewDisjunctionQuery(
		fieldQuery(query, terms, "title", titleBoost, fuzzy, fuzziness),
		fieldQuery(query, terms, "content", 1, fuzzy, fuzziness),
	)
	req := bleve.NewSearchRequestOptions(q, reqSize, 0, false)
	req.Fields = []string{"section_id", "title", "content"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("content")

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	var coverage map[string]int
	if len(terms) > 1 {
		coverage = b.termCoverage(ctx, terms, reqSize, fuzzy, fuzziness)
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		score := hit.Score
		if len(terms) > 1 {
			matched := coverage[hit.ID]
			if matched == 0 {
				matched = 1
			}
			share := float64(matched) / float64(len(terms))
			score *= share * share
		}
		r := &Result{
			SectionID: stringField(hit.Fields, "section_id"),
			Title:     stringField(hit.Fields, "title"),
			Content:   stringField(hit.Fields, "content"),
			Score:     score,
		}
		if r.SectionID == "" {
			r.SectionID = strings.TrimPrefix(hit.ID, "section:")
		}
		if frags := hit.Fragments["content"]; len(frags) > 0 {
			r.Fragment = frags[0]
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SectionID < out[j].SectionID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func stringField(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

// tokenizeQuery splits query into lowercase terms on anything that is not a
// letter, digit or combining mark, so Armenian punctuation such as ։ and ՝
// never sticks to a word.
func tokenizeQuery(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r)
	})
}

// fieldQuery builds the query for one field: a match query, or with fuzzy
// set a disjunction of per-term fuzzy queries.
func fieldQuery(query string, terms []string, field string, boost float64, fuzzy bool, fuzziness int) blevequery.Query {
	if !fuzzy {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	dq := bleve.NewDisjunctionQuery(queries...)
	dq.SetBoost(boost)
	return dq
}

// termCoverage counts how many distinct query terms each document matches.
func (b *BleveIndex) termCoverage(ctx context.Context, terms []string, reqSize int, fuzzy bool, fuzziness int) map[string]int {
	coverage := make(map[string]int)
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		var q blevequery.Query
		if fuzzy {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			q = fq
		} else {
			q = bleve.NewMatchQuery(term)
		}
		req := bleve.NewSearchRequest(q)
		req.Size = reqSize
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			continue
		}
		for _, hit := range results.Hits {
			coverage[hit.ID]++
		}
	}
	return coverage
}

// Delete removes a section from the index.
func (b *BleveIndex) Delete(ctx context.Context, sectionID string) error {
	return b.index.Delete(DocID(sectionID))
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the number of indexed sections.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Terms returns every indexed title and content term with the number of
// documents containing it.
func (b *BleveIndex) Terms() (map[string]int, error) {
	terms := make(map[string]int)
	for _, field := range []string{"content", "title"} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if n := int(entry.Count); n > terms[entry.Term] {
				terms[entry.Term] = n
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}
