// Package pipeline runs the lemma edition generator: fetch every section,
// align its annotations, and write the TEI document and registry workbook.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/stemmaflat/internal/align"
	"github.com/hyperjump/stemmaflat/internal/export"
	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/normalize"
	"github.com/hyperjump/stemmaflat/internal/stemmarest"
	"github.com/hyperjump/stemmaflat/internal/tei"
)

// Output file names.
const (
	TEIFile      = "lemma.tei.xml"
	WorkbookFile = "registries.xlsx"
)

// TEIDir returns the directory the TEI edition for timestamp is written to.
func TEIDir(root, timestamp string) string {
	return filepath.Join(root, "dts-xml_"+timestamp)
}

// DataDir returns the directory timestamped data files (locations, graphs) go to.
func DataDir(root, timestamp string) string {
	return filepath.Join(root, "data_"+timestamp)
}

// Source is the subset of the collation client the generator reads from.
type Source interface {
	Sections(ctx context.Context) ([]stemmarest.Section, error)
	Readings(ctx context.Context, sectionID string) ([]stemmarest.Reading, error)
	Annotations(ctx context.Context, sectionID string, labels ...string) ([]stemmarest.AnnotationRecord, error)
}

// Runner generates the lemma edition.
type Runner struct {
	src         Source
	concurrency int
	title       string
	workbook    bool
	logger      *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithConcurrency bounds how many sections are fetched at once.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithTitle sets the edition title written to the TEI header.
func WithTitle(title string) RunnerOption {
	return func(r *Runner) { r.title = title }
}

// WithWorkbook toggles writing registries.xlsx next to the TEI document.
func WithWorkbook(enabled bool) RunnerOption {
	return func(r *Runner) { r.workbook = enabled }
}

// NewRunner creates a Runner reading from src.
func NewRunner(src Source, opts ...RunnerOption) *Runner {
	r := &Runner{
		src:         src,
		concurrency: 4,
		title:       tei.DefaultTitle,
		workbook:    true,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// SectionResult is the rendered form of one section plus what went wrong
// producing it.
type SectionResult struct {
	Section  models.Section
	Nodes    []models.TextNode
	TEI      models.SectionTEI
	Warnings []models.Warning
}

// BuildSections fetches and renders every section. Sections are processed
// concurrently but results are returned in upstream order. Only a failure to
// list sections is an error; per-section fetch failures become warnings and
// the section is rendered from whatever was fetched.
func (r *Runner) BuildSections(ctx context.Context) ([]SectionResult, error) {
	sections, err := r.src.Sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch sections: %w", err)
	}
	r.logger.Info("sections fetched", zap.Int("count", len(sections)))

	results := make([]SectionResult, len(sections))
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i, s := range sections {
		i, s := i, s
		g.Go(func() error {
			results[i] = r.buildSection(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) buildSection(ctx context.Context, s stemmarest.Section) SectionResult {
	id := s.ID.String()
	r.logger.Debug("processing section", zap.String("section", id))

	var warnings []models.Warning
	readings, err := r.src.Readings(ctx, id)
	if err != nil {
		warnings = append(warnings, models.Warning{Kind: models.WarningFetch, SectionID: id, Detail: err.Error()})
	}
	records, err := r.src.Annotations(ctx, id)
	if err != nil {
		warnings = append(warnings, models.Warning{Kind: models.WarningFetch, SectionID: id, Detail: err.Error()})
	}

	nodes := normalize.BuildNodes(normalize.LemmaReadings(readings))
	ann := normalize.Annotations(id, records)
	aligned := align.Align(id, nodes, ann.Annotations)
	warnings = append(warnings, ann.Warnings...)
	warnings = append(warnings, aligned.Warnings...)

	section := models.Section{ID: id, Name: s.Name, Titles: ann.Titles}
	return SectionResult{
		Section:  section,
		Nodes:    aligned.Nodes,
		TEI:      tei.RenderSection(section, aligned.Nodes),
		Warnings: warnings,
	}
}

// GenerateTEI writes lemma.tei.xml (and registries.xlsx) to outDir. The
// document is written even when sections produced warnings; a document that
// fails the well-formedness check is kept and reported.
func (r *Runner) GenerateTEI(ctx context.Context, outDir string) (*models.Report, error) {
	report := &models.Report{
		RunID:     uuid.New().String(),
		Command:   "tei",
		OutputDir: outDir,
		Started:   time.Now(),
	}
	defer func() { report.Finished = time.Now() }()

	results, err := r.BuildSections(ctx)
	if err != nil {
		return report, err
	}
	report.Sections = len(results)

	sections := make([]models.SectionTEI, len(results))
	for i, res := range results {
		sections[i] = res.TEI
		report.Warn(res.Warnings...)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return report, fmt.Errorf("create output directory: %w", err)
	}

	data, err := tei.Render(tei.Document{Title: r.title, Sections: sections})
	if err != nil {
		return report, fmt.Errorf("render TEI: %w", err)
	}
	teiPath := filepath.Join(outDir, TEIFile)
	if err := os.WriteFile(teiPath, data, 0644); err != nil {
		return report, fmt.Errorf("write %s: %w", TEIFile, err)
	}
	report.Files = append(report.Files, teiPath)
	if err := tei.Validate(data); err != nil {
		report.Warn(models.Warning{Kind: models.WarningInvalidXML, Detail: err.Error()})
	}

	if r.workbook {
		wbPath := filepath.Join(outDir, WorkbookFile)
		if err := export.WriteRegistries(wbPath, sections); err != nil {
			report.Warn(models.Warning{Kind: models.WarningExport, Detail: err.Error()})
		} else {
			report.Files = append(report.Files, wbPath)
		}
	}

	r.logger.Info("TEI edition written",
		zap.String("path", teiPath),
		zap.Int("sections", report.Sections),
		zap.Int("warnings", len(report.Warnings)))
	return report, nil
}
