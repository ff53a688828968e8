// Package indexer loads the generated section store into the search index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/hyperjump/stemmaflat/internal/keyword"
	"github.com/hyperjump/stemmaflat/internal/store"
)

// Indexer indexes the sections found under a store directory.
type Indexer struct {
	index   keyword.Index
	root    string
	onIndex func()
	logger  *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithAfterChange registers fn to run after the index changed, e.g. to
// invalidate a term cache.
func WithAfterChange(fn func()) IndexerOption {
	return func(idx *Indexer) { idx.onIndex = fn }
}

// NewIndexer creates an indexer for the store written to root.
func NewIndexer(index keyword.Index, root string, opts ...IndexerOption) *Indexer {
	idx := &Indexer{index: index, root: filepath.Clean(root), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

// IndexSection (re)indexes one section from {root}/{id}/lemmaText.html,
// titled from sections.json when that is present. A section without lemma
// text is removed from the index.
func (idx *Indexer) IndexSection(ctx context.Context, sectionID string) error {
	text, err := store.ReadLemmaText(idx.root, sectionID)
	if errors.Is(err, os.ErrNotExist) {
		return idx.DeleteSection(ctx, sectionID)
	}
	if err != nil {
		return fmt.Errorf("read section %s: %w", sectionID, err)
	}
	titles, err := idx.titles()
	if err != nil {
		return err
	}
	doc := &keyword.SectionDoc{
		SectionID: sectionID,
		Title:     titles[sectionID],
		Content:   Preprocess(text),
	}
	if err := idx.index.Index(ctx, doc); err != nil {
		return fmt.Errorf("failed to index section %s: %w", sectionID, err)
	}
	idx.logger.Debug("section indexed", zap.String("section", sectionID))
	idx.changed()
	return nil
}

// IndexAll indexes every section listed in sections.json and returns how
// many were indexed. Sections without lemma text are skipped.
func (idx *Indexer) IndexAll(ctx context.Context) (int, error) {
	entries, err := store.ReadSections(idx.root)
	if err != nil {
		return 0, fmt.Errorf("read sections: %w", err)
	}
	n := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := os.Stat(filepath.Join(idx.root, e.SectionID, store.LemmaFile)); err != nil {
			continue
		}
		if err := idx.IndexSection(ctx, e.SectionID); err != nil {
			return n, err
		}
		n++
	}
	idx.logger.Info("store indexed", zap.String("root", idx.root), zap.Int("sections", n))
	return n, nil
}

// IndexFile reacts to a changed store file: sections.json reindexes
// everything, {id}/lemmaText.html reindexes that section, anything else is
// ignored.
func (idx *Indexer) IndexFile(ctx context.Context, path string) error {
	switch kind, id := idx.classify(path); kind {
	case sectionsFile:
		_, err := idx.IndexAll(ctx)
		return err
	case lemmaFile:
		return idx.IndexSection(ctx, id)
	}
	return nil
}

// RemoveFile drops a section whose lemma text was deleted.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) error {
	if kind, id := idx.classify(path); kind == lemmaFile {
		return idx.DeleteSection(ctx, id)
	}
	return nil
}

// DeleteSection removes a section from the index.
func (idx *Indexer) DeleteSection(ctx context.Context, sectionID string) error {
	if err := idx.index.Delete(ctx, sectionID); err != nil {
		return fmt.Errorf("failed to delete section %s: %w", sectionID, err)
	}
	idx.logger.Debug("section removed from index", zap.String("section", sectionID))
	idx.changed()
	return nil
}

type fileKind int

const (
	otherFile fileKind = iota
	sectionsFile
	lemmaFile
)

func (idx *Indexer) classify(path string) (fileKind, string) {
	rel, err := filepath.Rel(idx.root, filepath.Clean(path))
	if err != nil {
		return otherFile, ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	switch {
	case len(parts) == 1 && parts[0] == store.SectionsFile:
		return sectionsFile, ""
	case len(parts) == 2 && parts[1] == store.LemmaFile && parts[0] != "..":
		return lemmaFile, parts[0]
	}
	return otherFile, ""
}

func (idx *Indexer) titles() (map[string]string, error) {
	entries, err := store.ReadSections(idx.root)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(entries))
	for _, e := range entries {
		titles[e.SectionID] = strings.TrimSpace(e.EnglishTitle + " " + e.ArmenianTitle)
	}
	return titles, nil
}

func (idx *Indexer) changed() {
	if idx.onIndex != nil {
		idx.onIndex()
	}
}

// Preprocess trims text and collapses whitespace runs to one space.
func Preprocess(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}
