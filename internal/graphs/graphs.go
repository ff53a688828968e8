// Package graphs renders each section's variant graph to SVG with Graphviz.
package graphs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/stemmarest"
)

// GraphFile is the per-section SVG file name.
const GraphFile = "graph.svg"

// Source is the subset of the collation client the renderer uses.
type Source interface {
	Sections(ctx context.Context) ([]stemmarest.Section, error)
	LemmaText(ctx context.Context, sectionID string) (stemmarest.LemmaText, error)
	Dot(ctx context.Context, sectionID string) ([]byte, error)
}

// Renderer writes graph.svg for every section with a lemma text.
type Renderer struct {
	src         Source
	dotBinary   string
	concurrency int
	logger      *zap.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithDotBinary sets the Graphviz executable (name on PATH or absolute path).
func WithDotBinary(bin string) RendererOption {
	return func(r *Renderer) {
		if bin != "" {
			r.dotBinary = bin
		}
	}
}

// WithConcurrency bounds how many sections are rendered at once.
func WithConcurrency(n int) RendererOption {
	return func(r *Renderer) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) RendererOption {
	return func(r *Renderer) { r.logger = l }
}

// NewRenderer creates a Renderer.
func NewRenderer(src Source, opts ...RendererOption) *Renderer {
	r := &Renderer{src: src, dotBinary: "dot", concurrency: 4, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// CheckBinary reports whether the Graphviz executable can be found.
func (r *Renderer) CheckBinary() error {
	if _, err := exec.LookPath(r.dotBinary); err != nil {
		return fmt.Errorf("graphviz binary %q not found: %w", r.dotBinary, err)
	}
	return nil
}

// SVG pipes dot source through `dot -Tsvg`.
func (r *Renderer) SVG(ctx context.Context, dot []byte) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.dotBinary, "-Tsvg")
	cmd.Stdin = bytes.NewReader(dot)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s -Tsvg: %w: %s", r.dotBinary, err, msg)
		}
		return nil, fmt.Errorf("%s -Tsvg: %w", r.dotBinary, err)
	}
	return stdout.Bytes(), nil
}

// Generate writes {outDir}/{section}/graph.svg for each section that has a
// final lemma text. A missing Graphviz binary is an error before anything is
// fetched; per-section failures are warnings.
func (r *Renderer) Generate(ctx context.Context, outDir string) (*models.Report, error) {
	report := &models.Report{
		RunID:     uuid.New().String(),
		Command:   "graphs",
		OutputDir: outDir,
		Started:   time.Now(),
	}
	defer func() { report.Finished = time.Now() }()

	if err := r.CheckBinary(); err != nil {
		return report, err
	}
	sections, err := r.src.Sections(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch sections: %w", err)
	}
	report.Sections = len(sections)

	files := make([]string, len(sections))
	warnings := make([]*models.Warning, len(sections))
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i, s := range sections {
		i, s := i, s
		g.Go(func() error {
			id := s.ID.String()
			path, err := r.section(ctx, outDir, id)
			if err != nil {
				warnings[i] = &models.Warning{Kind: models.WarningGraph, SectionID: id, Detail: err.Error()}
				return nil
			}
			files[i] = path
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for i := range sections {
		if files[i] != "" {
			report.Files = append(report.Files, files[i])
		}
		if warnings[i] != nil {
			report.Warn(*warnings[i])
		}
	}
	r.logger.Info("graphs written", zap.String("dir", outDir), zap.Int("graphs", len(report.Files)))
	return report, nil
}

// section renders one section; it returns "" without error when the section
// has no lemma text.
func (r *Renderer) section(ctx context.Context, outDir, id string) (string, error) {
	lemma, err := r.src.LemmaText(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(lemma.Text) == "" {
		r.logger.Debug("section has no lemma text, skipping", zap.String("section", id))
		return "", nil
	}
	dot, err := r.src.Dot(ctx, id)
	if err != nil {
		return "", err
	}
	svg, err := r.SVG(ctx, dot)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(outDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create section directory: %w", err)
	}
	path := filepath.Join(dir, GraphFile)
	if err := os.WriteFile(path, svg, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", GraphFile, err)
	}
	return path, nil
}
