package ranking

import "sort"

// Ranker rescales and filters section hits for an analyzed query.
type Ranker struct {
	config   *Config
	analyzer *QueryAnalyzer
}

// NewRanker creates a new Ranker. A nil config uses the defaults.
func NewRanker(config *Config) *Ranker {
	if config == nil {
		config = DefaultConfig()
	}
	config.ApplyDefaults()
	return &Ranker{config: config, analyzer: NewQueryAnalyzer()}
}

// AnalyzeQuery parses and analyzes a query string.
func (r *Ranker) AnalyzeQuery(query string) *AnalyzedQuery {
	return r.analyzer.Analyze(query)
}

// MatchType returns the best match of query in the candidate's title or
// lemma text.
func (r *Ranker) MatchType(query *AnalyzedQuery, c *Candidate) MatchType {
	tokens := query.MatchTokens()
	best := MatchTypeNone
	for _, text := range []string{c.Title, c.Content} {
		if text == "" {
			continue
		}
		for _, phrase := range query.Phrases {
			if FindPhrasePosition(phrase, text) != -1 {
				return MatchTypePhrase
			}
		}
		switch {
		case AllTermsMatch(tokens, text) && len(tokens) > 1 && TermsInOrder(tokens, text):
			return MatchTypePhrase
		case AllTermsMatch(tokens, text):
			best = max(best, MatchTypeAllWords)
		case ContainsAny(tokens, text):
			best = max(best, MatchTypePartial)
		}
	}
	return best
}

func (r *Ranker) multiplier(m MatchType) float64 {
	switch m {
	case MatchTypePhrase:
		return r.config.PhraseMatchMultiplier
	case MatchTypeAllWords:
		return r.config.AllWordsMultiplier
	case MatchTypePartial:
		return r.config.PartialMatchMultiplier
	default:
		// Fuzzy hits match no term verbatim; leave their score alone.
		return 1.0
	}
}

// Score returns the candidate's score rescaled for query.
func (r *Ranker) Score(query *AnalyzedQuery, c *Candidate) float64 {
	c.MatchType = r.MatchType(query, c)
	score := c.Score * r.multiplier(c.MatchType)
	if tokens := query.MatchTokens(); c.Title != "" && AllTermsMatch(tokens, c.Title) {
		score *= r.config.TitleMatchMultiplier
	}
	return score
}

// Rerank drops candidates containing a negated term, and, when exact is
// set, candidates missing one of the quoted phrases. The rest are rescored
// and returned best first, ties broken by section id.
func (r *Ranker) Rerank(query *AnalyzedQuery, candidates []*Candidate, exact bool) []*Candidate {
	out := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		if ContainsAny(query.NegatedTerms, c.Title) || ContainsAny(query.NegatedTerms, c.Content) {
			continue
		}
		if exact && !hasAllPhrases(query.Phrases, c) {
			continue
		}
		c.Score = r.Score(query, c)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SectionID < out[j].SectionID
	})
	return out
}

func hasAllPhrases(phrases []string, c *Candidate) bool {
	for _, p := range phrases {
		if FindPhrasePosition(p, c.Title) == -1 && FindPhrasePosition(p, c.Content) == -1 {
			return false
		}
	}
	return true
}
