package keyword

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Suggestion is a known term close to a query term.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// Suggester proposes indexed terms for query terms that are not in the index.
// Manuscript spelling varies a lot; the suggestion is a "did you mean" hint,
// the query itself is never rewritten.
type Suggester struct {
	dict           TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	mu    sync.RWMutex
	terms map[string]int
	valid bool
}

// SuggesterOption configures a Suggester.
type SuggesterOption func(*Suggester)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SuggesterOption {
	return func(s *Suggester) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores terms found in fewer than f sections.
func WithMinFrequency(f int) SuggesterOption {
	return func(s *Suggester) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions caps the suggestions returned per term.
func WithMaxSuggestions(n int) SuggesterOption {
	return func(s *Suggester) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSuggester creates a Suggester over dict.
func NewSuggester(dict TermDictionary, opts ...SuggesterOption) *Suggester {
	s := &Suggester{
		dict:           dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh reloads the term list from the dictionary.
func (s *Suggester) Refresh() error {
	terms, err := s.dict.Terms()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.terms = terms
	s.valid = true
	s.mu.Unlock()
	return nil
}

// Invalidate marks the term list stale; it is reloaded on next use.
func (s *Suggester) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
}

func (s *Suggester) snapshot() (map[string]int, error) {
	s.mu.RLock()
	terms, valid := s.terms, s.valid
	s.mu.RUnlock()
	if valid {
		return terms, nil
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terms, nil
}

// Suggest returns indexed terms within the maximum edit distance of term,
// best first: higher frequency over distance, then alphabetical.
func (s *Suggester) Suggest(term string) []Suggestion {
	terms, err := s.snapshot()
	if err != nil {
		return nil
	}
	term = strings.ToLower(Normalize(term))
	n := utf8.RuneCountInString(term)

	var out []Suggestion
	for t, freq := range terms {
		if t == term || freq < s.minFreq {
			continue
		}
		diff := utf8.RuneCountInString(t) - n
		if diff < 0 {
			diff = -diff
		}
		if diff > s.maxDistance {
			continue
		}
		d := LevenshteinDistance(term, t)
		if d > s.maxDistance {
			continue
		}
		out = append(out, Suggestion{
			Term:      t,
			Distance:  d,
			Frequency: freq,
			Score:     float64(freq) / float64(d+1),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// Correct replaces every unknown query term with its best suggestion. It
// reports false when nothing was replaced.
func (s *Suggester) Correct(query string) (string, bool) {
	terms, err := s.snapshot()
	if err != nil {
		return query, false
	}
	words := tokenizeQuery(Normalize(query))
	changed := false
	for i, w := range words {
		if _, ok := terms[w]; ok {
			continue
		}
		if sug := s.Suggest(w); len(sug) > 0 {
			words[i] = sug[0].Term
			changed = true
		}
	}
	if !changed {
		return query, false
	}
	return strings.Join(words, " "), true
}
