package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/stemmaflat/internal/keyword"
	"github.com/hyperjump/stemmaflat/internal/store"
)

func writeStore(t *testing.T, root string) {
	t.Helper()
	files := map[string]string{
		store.SectionsFile: `[{"sectionId": "1", "englishTitle": "Famine", "armenianTitle": "Սով"},
			{"sectionId": "2", "englishTitle": "War", "armenianTitle": ""},
			{"sectionId": "3", "englishTitle": "Empty", "armenianTitle": ""}]`,
		"1/" + store.LemmaFile: "<span id='text-10'>Ի</span> <span id='text-11'>թուին</span>",
		"2/" + store.LemmaFile: "<span id='text-20'>Edessa</span>",
	}
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func testIndexer(t *testing.T) (*Indexer, *keyword.BleveIndex, string, *int) {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "store")
	writeStore(t, root)
	kw, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })
	changes := 0
	return NewIndexer(kw, root, WithAfterChange(func() { changes++ })), kw, root, &changes
}

func TestIndexAll(t *testing.T) {
	idx, kw, _, changes := testIndexer(t)
	ctx := context.Background()

	n, err := idx.IndexAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("indexed %d sections, want 2", n)
	}
	if *changes != 2 {
		t.Errorf("after-change hook ran %d times", *changes)
	}

	res, err := kw.Search(ctx, "թուին", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].SectionID != "1" || res[0].Title != "Famine Սով" {
		t.Errorf("results = %+v", res)
	}
}

func TestIndexFile(t *testing.T) {
	idx, kw, root, _ := testIndexer(t)
	ctx := context.Background()

	if err := idx.IndexFile(ctx, filepath.Join(root, "2", store.LemmaFile)); err != nil {
		t.Fatal(err)
	}
	if n, _ := kw.DocCount(); n != 1 {
		t.Fatalf("DocCount = %d", n)
	}

	// witness files and files outside the store are ignored
	for _, p := range []string{filepath.Join(root, "2", "A.html"), filepath.Join(root, "..", "x", store.LemmaFile)} {
		if err := idx.IndexFile(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := kw.DocCount(); n != 1 {
		t.Errorf("DocCount = %d after unrelated files", n)
	}

	if err := idx.IndexFile(ctx, filepath.Join(root, store.SectionsFile)); err != nil {
		t.Fatal(err)
	}
	if n, _ := kw.DocCount(); n != 2 {
		t.Errorf("DocCount = %d after sections.json", n)
	}

	lemma := filepath.Join(root, "2", store.LemmaFile)
	if err := os.Remove(lemma); err != nil {
		t.Fatal(err)
	}
	if err := idx.RemoveFile(ctx, lemma); err != nil {
		t.Fatal(err)
	}
	if n, _ := kw.DocCount(); n != 1 {
		t.Errorf("DocCount = %d after removal", n)
	}
}

func TestIndexSection_MissingLemmaDeletes(t *testing.T) {
	idx, kw, root, _ := testIndexer(t)
	ctx := context.Background()
	if _, err := idx.IndexAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(root, "1")); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexSection(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := kw.DocCount(); n != 1 {
		t.Errorf("DocCount = %d", n)
	}
}

func TestIndexAll_NoStore(t *testing.T) {
	kw, err := keyword.NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer kw.Close()
	if _, err := NewIndexer(kw, t.TempDir()).IndexAll(context.Background()); err == nil {
		t.Error("expected error without sections.json")
	}
}

func TestPreprocess(t *testing.T) {
	if got := Preprocess("  Ի \n թուին\t ՇԼԱ "); got != "Ի թուին ՇԼԱ" {
		t.Errorf("Preprocess = %q", got)
	}
}
