// Package store writes the static per-section files the reading interface
// loads: sections.json plus lemma, witness and translation HTML fragments.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/normalize"
	"github.com/hyperjump/stemmaflat/internal/stemmarest"
)

// File names written per section and at the output root.
const (
	SectionsFile    = "sections.json"
	LemmaFile       = "lemmaText.html"
	TranslationFile = "translation.html"
)

// Source is the subset of the collation client the store reads from.
type Source interface {
	Sections(ctx context.Context) ([]stemmarest.Section, error)
	Witnesses(ctx context.Context) ([]stemmarest.Witness, error)
	Readings(ctx context.Context, sectionID string) ([]stemmarest.Reading, error)
	Annotations(ctx context.Context, sectionID string, labels ...string) ([]stemmarest.AnnotationRecord, error)
	LemmaText(ctx context.Context, sectionID string) (stemmarest.LemmaText, error)
}

// SectionEntry is one element of sections.json.
type SectionEntry struct {
	SectionID     string `json:"sectionId"`
	EnglishTitle  string `json:"englishTitle"`
	ArmenianTitle string `json:"armenianTitle"`
}

// Generator writes the store.
type Generator struct {
	src         Source
	concurrency int
	logger      *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// WithConcurrency bounds how many sections are processed at once.
func WithConcurrency(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// NewGenerator creates a Generator reading from src.
func NewGenerator(src Source, opts ...GeneratorOption) *Generator {
	g := &Generator{src: src, concurrency: 4, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

type sectionOutcome struct {
	entry    *SectionEntry
	files    []string
	warnings []models.Warning
}

// Generate writes the store under outDir. Sections without a final lemma text
// are skipped and left out of sections.json. A section whose data cannot be
// fetched is reported and also left out.
func (g *Generator) Generate(ctx context.Context, outDir string) (*models.Report, error) {
	report := &models.Report{
		RunID:     uuid.New().String(),
		Command:   "store",
		OutputDir: outDir,
		Started:   time.Now(),
	}
	defer func() { report.Finished = time.Now() }()

	var (
		sections  []stemmarest.Section
		witnesses []stemmarest.Witness
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		sections, err = g.src.Sections(egCtx)
		if err != nil {
			return fmt.Errorf("fetch sections: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		witnesses, err = g.src.Witnesses(egCtx)
		if err != nil {
			return fmt.Errorf("fetch witnesses: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return report, err
	}
	report.Sections = len(sections)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return report, fmt.Errorf("create output directory: %w", err)
	}

	outcomes := make([]sectionOutcome, len(sections))
	work := new(errgroup.Group)
	work.SetLimit(g.concurrency)
	for i, s := range sections {
		i, s := i, s
		work.Go(func() error {
			outcomes[i] = g.section(ctx, outDir, s.ID.String(), witnesses)
			return nil
		})
	}
	_ = work.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	entries := make([]SectionEntry, 0, len(sections))
	for _, o := range outcomes {
		report.Warn(o.warnings...)
		report.Files = append(report.Files, o.files...)
		if o.entry != nil {
			entries = append(entries, *o.entry)
		}
	}

	path := filepath.Join(outDir, SectionsFile)
	data, err := json.Marshal(entries)
	if err != nil {
		return report, fmt.Errorf("encode %s: %w", SectionsFile, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return report, fmt.Errorf("write %s: %w", SectionsFile, err)
	}
	report.Files = append(report.Files, path)

	g.logger.Info("store written",
		zap.String("dir", outDir),
		zap.Int("sections", len(entries)),
		zap.Int("warnings", len(report.Warnings)))
	return report, nil
}

func (g *Generator) section(ctx context.Context, outDir, id string, witnesses []stemmarest.Witness) sectionOutcome {
	var out sectionOutcome
	fetchWarning := func(err error) sectionOutcome {
		out.warnings = append(out.warnings, models.Warning{Kind: models.WarningFetch, SectionID: id, Detail: err.Error()})
		return out
	}

	lemma, err := g.src.LemmaText(ctx, id)
	if err != nil {
		return fetchWarning(err)
	}
	if strings.TrimSpace(lemma.Text) == "" {
		g.logger.Debug("section has no lemma text, skipping", zap.String("section", id))
		return out
	}

	var (
		readings    []stemmarest.Reading
		translation []stemmarest.AnnotationRecord
		titles      []stemmarest.AnnotationRecord
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		readings, err = g.src.Readings(egCtx, id)
		return err
	})
	eg.Go(func() (err error) {
		translation, err = g.src.Annotations(egCtx, id, models.LabelTranslation)
		return err
	})
	eg.Go(func() (err error) {
		titles, err = g.src.Annotations(egCtx, id, models.LabelTitle)
		return err
	})
	if err := eg.Wait(); err != nil {
		return fetchWarning(err)
	}

	dir := filepath.Join(outDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fetchWarning(fmt.Errorf("create section directory: %w", err))
	}

	write := func(name, content string) {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			out.warnings = append(out.warnings, models.Warning{Kind: models.WarningExport, SectionID: id, Detail: err.Error()})
			return
		}
		out.files = append(out.files, path)
	}

	write(LemmaFile, ReadingsHTML(normalize.LemmaReadings(readings)))
	for _, w := range witnesses {
		if w.Sigil == "" || strings.ContainsAny(w.Sigil, `/\`) || w.Sigil == ".." {
			continue
		}
		if frag := ReadingsHTML(normalize.WitnessReadings(readings, w.Sigil)); frag != "" {
			write(w.Sigil+".html", frag)
		}
	}
	if len(translation) > 0 {
		if len(translation) > 1 {
			g.logger.Warn("more than one translation for section", zap.String("section", id))
		}
		write(TranslationFile, TranslationHTML(translation))
	}

	t, warnings := normalize.Titles(id, titles)
	out.warnings = append(out.warnings, warnings...)
	out.entry = &SectionEntry{SectionID: id, EnglishTitle: t.English, ArmenianTitle: t.Armenian}
	return out
}

// ReadingsHTML renders rank-ordered readings as a run of spans keyed by
// reading id.
func ReadingsHTML(readings []stemmarest.Reading) string {
	var b strings.Builder
	for _, r := range readings {
		id := html.EscapeString(r.ID.String())
		fmt.Fprintf(&b, "<span id='text-%s' key=%s>%s</span>", id, id, html.EscapeString(normalize.ReadingText(r)))
	}
	return b.String()
}

// TranslationHTML renders translation annotations as spans keyed by the
// reading each translation begins at. The translation text is already HTML.
func TranslationHTML(records []stemmarest.AnnotationRecord) string {
	var b strings.Builder
	for _, rec := range records {
		begin, _ := rec.LinkTarget(stemmarest.LinkBegin)
		id := html.EscapeString(begin.String())
		fmt.Fprintf(&b, "<span id='text-%s' key=%s>%s</span>", id, id, rec.Properties.Text)
	}
	return b.String()
}

// ReadSections loads sections.json from outDir.
func ReadSections(outDir string) ([]SectionEntry, error) {
	data, err := os.ReadFile(filepath.Join(outDir, SectionsFile))
	if err != nil {
		return nil, err
	}
	var entries []SectionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", SectionsFile, err)
	}
	return entries, nil
}
