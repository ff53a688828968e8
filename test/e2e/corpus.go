// Package e2e provides end-to-end tests over a synthetic tradition served by a
// fake collation service.
package e2e

import (
	"fmt"
	"strings"
)

// Witnesses are the sigla every reading of the corpus is attested in.
var Witnesses = []string{"A", "B"}

// E2ESection is one section of the synthetic tradition. Each section carries a
// unique Signature word that also names the person annotated in it.
type E2ESection struct {
	ID            int
	EnglishTitle  string
	ArmenianTitle string
	Signature     string
	Words         []string
}

// ReadingID returns the upstream id of the i-th lemma word of the section.
func (s E2ESection) ReadingID(i int) int {
	return s.ID*100 + i + 1
}

// SignatureIndex returns the position of the signature word.
func (s E2ESection) SignatureIndex() int {
	for i, w := range s.Words {
		if w == s.Signature {
			return i
		}
	}
	return -1
}

// LemmaText returns the words joined by spaces.
func (s E2ESection) LemmaText() string {
	return strings.Join(s.Words, " ")
}

// QueryTestCase defines a query and the section id(s) that must appear in search results.
type QueryTestCase struct {
	Query              string
	ExpectedSectionIDs []string
	Description        string
}

// Corpus holds the sections and query test cases for E2E tests.
type Corpus struct {
	Sections     []E2ESection
	TestCases    []QueryTestCase
	TotalQueries int
}

var signatures = []struct {
	english  string
	armenian string
	name     string
}{
	{"Concerning Edessa", "Վասն Ուռհայոյ", "Եդեսիա"},
	{"Concerning Antioch", "Վասն Անտիոքայ", "Անտիոք"},
	{"Concerning Samosata", "Վասն Սամուսատայ", "Սամուսատ"},
	{"Concerning Melitene", "Վասն Մելտենոյ", "Մելտենի"},
	{"Concerning Constantinople", "Վասն Կոստանդնուպոլսի", "Կոստանդնուպոլիս"},
	{"Concerning Jerusalem", "Վասն Երուսաղեմի", "Երուսաղեմ"},
	{"Concerning Ani", "Վասն Անւոյ", "Անի"},
	{"Concerning Kars", "Վասն Կարուց", "Կարս"},
	{"Concerning Tarsus", "Վասն Տարսոնի", "Տարսոն"},
	{"Concerning Marash", "Վասն Մարաշու", "Մարաշ"},
	{"Concerning Kesoun", "Վասն Քեսունոյ", "Քեսուն"},
	{"Concerning Baghdad", "Վասն Բաղդադու", "Բաղդադ"},
}

// BuildCorpus returns a tradition of n sections (at most one per known
// signature) with one query test case per section.
func BuildCorpus(n int) *Corpus {
	if n > len(signatures) {
		n = len(signatures)
	}
	c := &Corpus{}
	for i := 0; i < n; i++ {
		sig := signatures[i]
		c.Sections = append(c.Sections, E2ESection{
			ID:            i + 1,
			EnglishTitle:  sig.english,
			ArmenianTitle: sig.armenian,
			Signature:     sig.name,
			Words:         []string{"Ի", "թուին", fmt.Sprintf("%d", 400+i), "եղեւ", sig.name, "մեծ", "տագնապ"},
		})
	}
	for _, s := range c.Sections {
		c.TestCases = append(c.TestCases, QueryTestCase{
			Query:              s.Signature,
			ExpectedSectionIDs: []string{fmtID(s.ID)},
			Description:        fmt.Sprintf("query %q should return section %d", s.Signature, s.ID),
		})
	}
	c.TotalQueries = len(c.TestCases)
	return c
}

// Section returns the section with the given upstream id.
func (c *Corpus) Section(id int) (E2ESection, bool) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return E2ESection{}, false
}

func containsWord(s E2ESection, word string) bool {
	for _, w := range s.Words {
		if w == word {
			return true
		}
	}
	return false
}

func fmtID(id int) string {
	return fmt.Sprintf("%d", id)
}
