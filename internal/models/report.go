package models

import (
	"fmt"
	"time"
)

// WarningKind classifies a recoverable problem found during a run.
type WarningKind string

const (
	WarningFetch        WarningKind = "fetch"
	WarningMissingNode  WarningKind = "missing_node"
	WarningReversedSpan WarningKind = "reversed_span"
	WarningMissingLink  WarningKind = "missing_link"
	WarningMissingTitle WarningKind = "missing_title"
	WarningInvalidXML   WarningKind = "invalid_xml"
	WarningGazetteer    WarningKind = "gazetteer"
	WarningGraph        WarningKind = "graph"
	WarningExport       WarningKind = "export"
)

// Warning is a recoverable problem. The run continues and still writes output.
type Warning struct {
	Kind         WarningKind `json:"kind"`
	SectionID    string      `json:"section_id,omitempty"`
	AnnotationID string      `json:"annotation_id,omitempty"`
	Detail       string      `json:"detail"`
}

func (w Warning) String() string {
	s := string(w.Kind)
	if w.SectionID != "" {
		s += " section=" + w.SectionID
	}
	if w.AnnotationID != "" {
		s += " annotation=" + w.AnnotationID
	}
	return fmt.Sprintf("%s: %s", s, w.Detail)
}

// Report summarizes one generator run.
type Report struct {
	RunID     string    `json:"run_id"`
	Command   string    `json:"command"`
	Timestamp string    `json:"timestamp,omitempty"`
	OutputDir string    `json:"output_dir"`
	Started   time.Time `json:"started_at"`
	Finished  time.Time `json:"finished_at"`
	Sections  int       `json:"sections"`
	Files     []string  `json:"files,omitempty"`
	Warnings  []Warning `json:"warnings"`
}

// Warn appends a warning.
func (r *Report) Warn(w ...Warning) {
	r.Warnings = append(r.Warnings, w...)
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// CountByKind returns the number of warnings of each kind.
func (r *Report) CountByKind() map[WarningKind]int {
	counts := make(map[WarningKind]int)
	for _, w := range r.Warnings {
		counts[w.Kind]++
	}
	return counts
}
