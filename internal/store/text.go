package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText returns the text of a span fragment written by ReadingsHTML,
// one reading per word.
func PlainText(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}
	var words []string
	doc.Find("span").Each(func(_ int, s *goquery.Selection) {
		if w := strings.TrimSpace(s.Text()); w != "" {
			words = append(words, w)
		}
	})
	return strings.Join(words, " "), nil
}

// ReadLemmaText loads and flattens {outDir}/{sectionID}/lemmaText.html.
func ReadLemmaText(outDir, sectionID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(outDir, sectionID, LemmaFile))
	if err != nil {
		return "", err
	}
	return PlainText(string(data))
}
