package ranking

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Straight double quotes or the guillemets Armenian editions use.
var phraseRegex = regexp.MustCompile(`["«“]([^"»”]+)["»”]`)

// QueryAnalyzer analyzes search queries to extract terms, phrases and
// exclusions.
type QueryAnalyzer struct{}

// NewQueryAnalyzer creates a new QueryAnalyzer.
func NewQueryAnalyzer() *QueryAnalyzer {
	return &QueryAnalyzer{}
}

// Analyze parses a query string and returns an AnalyzedQuery.
func (qa *QueryAnalyzer) Analyze(query string) *AnalyzedQuery {
	result := &AnalyzedQuery{
		Original:     query,
		Terms:        []string{},
		Phrases:      []string{},
		NegatedTerms: []string{},
	}
	normalized := norm.NFC.String(query)

	for _, match := range phraseRegex.FindAllStringSubmatch(normalized, -1) {
		if phrase := joinWords(Words(match[1])); phrase != "" {
			result.Phrases = append(result.Phrases, phrase)
		}
	}
	remaining := phraseRegex.ReplaceAllString(normalized, " ")

	for _, word := range strings.Fields(remaining) {
		if strings.EqualFold(word, "AND") || strings.EqualFold(word, "OR") || strings.EqualFold(word, "NOT") {
			continue
		}
		if negated, ok := strings.CutPrefix(word, "-"); ok {
			result.NegatedTerms = append(result.NegatedTerms, Words(negated)...)
			continue
		}
		result.Terms = append(result.Terms, Words(word)...)
	}

	result.QueryType = classifyQuery(result)
	return result
}

func classifyQuery(q *AnalyzedQuery) QueryType {
	switch {
	case len(q.NegatedTerms) > 0:
		return QueryTypeBoolean
	case len(q.Phrases) > 0:
		return QueryTypePhrase
	case len(q.Terms) > 1:
		return QueryTypeMultiWord
	default:
		return QueryTypeSingleWord
	}
}

// Words splits text into lowercase NFC words. Punctuation, including the
// Armenian full stop and comma, separates words.
func Words(text string) []string {
	text = strings.ToLower(norm.NFC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r)
	})
}

func joinWords(words []string) string {
	return strings.Join(words, " ")
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// AllTermsMatch reports whether every term is a word of text.
func AllTermsMatch(terms []string, text string) bool {
	if len(terms) == 0 {
		return false
	}
	return CountMatchingTerms(terms, text) == len(terms)
}

// CountMatchingTerms returns how many of terms are words of text.
func CountMatchingTerms(terms []string, text string) int {
	set := wordSet(Words(text))
	count := 0
	for _, t := range terms {
		if set[t] {
			count++
		}
	}
	return count
}

// TermsInOrder reports whether terms occur in text in the given order, not
// necessarily adjacent.
func TermsInOrder(terms []string, text string) bool {
	if len(terms) == 0 {
		return false
	}
	words := Words(text)
	next := 0
	for _, w := range words {
		if w == terms[next] {
			next++
			if next == len(terms) {
				return true
			}
		}
	}
	return false
}

// FindPhrasePosition returns the word index at which phrase starts in text,
// or -1.
func FindPhrasePosition(phrase, text string) int {
	pw := Words(phrase)
	if len(pw) == 0 {
		return -1
	}
	tw := Words(text)
	for i := 0; i+len(pw) <= len(tw); i++ {
		match := true
		for j, w := range pw {
			if tw[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// ContainsAny reports whether any of terms is a word of text.
func ContainsAny(terms []string, text string) bool {
	return len(terms) > 0 && CountMatchingTerms(terms, text) > 0
}
