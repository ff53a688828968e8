// Package storage defines the persistence interface for generator run history.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/stemmaflat/internal/models"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is a run without its warnings, as listed by ListReports.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Command   string    `json:"command"`
	Timestamp string    `json:"timestamp,omitempty"`
	OutputDir string    `json:"output_dir"`
	Started   time.Time `json:"started_at"`
	Finished  time.Time `json:"finished_at"`
	Sections  int       `json:"sections"`
	Warnings  int       `json:"warnings"`
}

// Storage records generator runs and their warnings.
type Storage interface {
	SaveReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, runID string) (*models.Report, error)
	ListReports(ctx context.Context, offset, limit int) ([]*RunSummary, error)
	CountReports(ctx context.Context) (int64, error)
	Close() error
}
