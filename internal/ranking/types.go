// Package ranking reorders section search hits by how well they match the
// query as written: quoted phrases, all terms, or only some of them.
package ranking

// MatchType represents the type of query match found.
type MatchType int

const (
	// MatchTypeNone indicates no query term occurs in the section.
	MatchTypeNone MatchType = iota
	// MatchTypePartial indicates some query terms matched.
	MatchTypePartial
	// MatchTypeAllWords indicates all query words matched but not as a phrase.
	MatchTypeAllWords
	// MatchTypePhrase indicates a quoted phrase, or all terms in query order.
	MatchTypePhrase
)

// String returns a string representation of the match type.
func (m MatchType) String() string {
	switch m {
	case MatchTypeNone:
		return "none"
	case MatchTypePartial:
		return "partial"
	case MatchTypeAllWords:
		return "all_words"
	case MatchTypePhrase:
		return "phrase"
	default:
		return "unknown"
	}
}

// QueryType represents the type of search query.
type QueryType int

const (
	// QueryTypeSingleWord is a single word query.
	QueryTypeSingleWord QueryType = iota
	// QueryTypeMultiWord is a multi-word query without quotes.
	QueryTypeMultiWord
	// QueryTypePhrase contains at least one quoted phrase.
	QueryTypePhrase
	// QueryTypeBoolean excludes terms with a leading '-'.
	QueryTypeBoolean
)

// String returns a string representation of the query type.
func (q QueryType) String() string {
	switch q {
	case QueryTypeSingleWord:
		return "single_word"
	case QueryTypeMultiWord:
		return "multi_word"
	case QueryTypePhrase:
		return "phrase"
	case QueryTypeBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// AnalyzedQuery holds the parsed form of a search query. Terms, phrases and
// negated terms are lowercased NFC.
type AnalyzedQuery struct {
	Original     string
	Terms        []string
	Phrases      []string
	NegatedTerms []string
	QueryType    QueryType
}

// SearchText returns the words the index should be asked for: the plain
// terms followed by the words of every phrase. Negated terms are left out.
func (q *AnalyzedQuery) SearchText() string {
	words := append([]string{}, q.Terms...)
	for _, p := range q.Phrases {
		words = append(words, Words(p)...)
	}
	return joinWords(words)
}

// MatchTokens returns every positive token of the query.
func (q *AnalyzedQuery) MatchTokens() []string {
	tokens := append([]string{}, q.Terms...)
	for _, p := range q.Phrases {
		tokens = append(tokens, Words(p)...)
	}
	return tokens
}

// Candidate is a section hit being ranked.
type Candidate struct {
	SectionID string
	Title     string
	Content   string
	Score     float64
	MatchType MatchType
}
