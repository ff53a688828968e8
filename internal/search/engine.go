// Package search answers full-text queries over the edition sections.
package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/stemmaflat/internal/keyword"
	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/ranking"
)

// Engine runs section queries against a keyword index.
type Engine struct {
	index      keyword.Index
	suggester  *keyword.Suggester
	ranker     *ranking.Ranker
	titleBoost float64
	snippetLen int
	logger     *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSuggester enables "did you mean" hints for queries with no hits.
func WithSuggester(s *keyword.Suggester) EngineOption {
	return func(e *Engine) { e.suggester = s }
}

// WithRanker rescores hits by match quality and enables quoted phrases and
// -term exclusions.
func WithRanker(r *ranking.Ranker) EngineOption {
	return func(e *Engine) { e.ranker = r }
}

// WithTitleBoost sets how much more a title match counts than a text match.
func WithTitleBoost(b float64) EngineOption {
	return func(e *Engine) {
		if b > 0 {
			e.titleBoost = b
		}
	}
}

// WithSnippetLength caps snippets at n characters.
func WithSnippetLength(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.snippetLen = n
		}
	}
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine over index.
func NewEngine(index keyword.Index, opts ...EngineOption) *Engine {
	e := &Engine{index: index, snippetLen: 240, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Search validates query and returns matching sections, best first. A
// non-fuzzy query with no hits is retried fuzzily; if that also finds
// nothing, a corrected query is offered when a suggester is configured.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	text := query.Query
	fetch := query.Limit
	var analyzed *ranking.AnalyzedQuery
	if e.ranker != nil {
		analyzed = e.ranker.AnalyzeQuery(query.Query)
		text = analyzed.SearchText()
		// Exclusions and phrase filters can drop hits after the fetch.
		fetch = query.Limit * 3
	}

	response := &models.SearchResponse{Query: query.Query, Hits: []*models.SearchHit{}}
	if text == "" {
		response.QueryTime = time.Since(start).Milliseconds()
		return response, nil
	}

	opts := &keyword.SearchOptions{TitleBoost: e.titleBoost, Fuzzy: query.FuzzyEnabled}
	results, err := e.index.Search(ctx, text, fetch, opts)
	if err != nil {
		return nil, err
	}
	results = e.rerank(analyzed, results, !opts.Fuzzy)

	if len(results) == 0 && !query.FuzzyEnabled {
		opts.Fuzzy = true
		results, err = e.index.Search(ctx, text, fetch, opts)
		if err != nil {
			return nil, err
		}
		results = e.rerank(analyzed, results, false)
		response.AutoFuzzy = len(results) > 0
	}
	if len(results) == 0 && e.suggester != nil {
		if corrected, ok := e.suggester.Correct(text); ok {
			response.DidYouMean = corrected
		}
	}
	if len(results) > query.Limit {
		results = results[:query.Limit]
	}

	for i, r := range results {
		response.Hits = append(response.Hits, &models.SearchHit{
			SectionID: r.SectionID,
			Title:     r.Title,
			Snippet:   Snippet(r.Fragment, e.snippetLen),
			Score:     r.Score,
			Rank:      i + 1,
		})
	}
	response.Total = len(response.Hits)
	response.QueryTime = time.Since(start).Milliseconds()

	e.logger.Debug("search",
		zap.String("query", query.Query),
		zap.Int("hits", response.Total),
		zap.Bool("auto_fuzzy", response.AutoFuzzy))
	return response, nil
}

// rerank applies the ranker, if any, to keyword results. Phrases are only
// enforced on exact searches.
func (e *Engine) rerank(q *ranking.AnalyzedQuery, results []*keyword.Result, exact bool) []*keyword.Result {
	if e.ranker == nil || q == nil || len(results) == 0 {
		return results
	}
	byID := make(map[string]*keyword.Result, len(results))
	candidates := make([]*ranking.Candidate, 0, len(results))
	for _, r := range results {
		byID[r.SectionID] = r
		candidates = append(candidates, &ranking.Candidate{
			SectionID: r.SectionID,
			Title:     r.Title,
			Content:   r.Content,
			Score:     r.Score,
		})
	}
	ranked := e.ranker.Rerank(q, candidates, exact)
	out := make([]*keyword.Result, 0, len(ranked))
	for _, c := range ranked {
		r := byID[c.SectionID]
		r.Score = c.Score
		out = append(out, r)
	}
	return out
}
