// Package report records the outcome of manipulation runs.
//
// A [Report] is produced per run and saved through a [Store]: a file-based
// store for single machines, or MongoDB for shared build infrastructure.
// Reporting is best-effort by policy: callers log store failures as
// warnings and never let them abort a finished manipulation.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/packsmith/packsmith/pkg/manip"
)

// Report summarizes one manipulation run.
type Report struct {
	ID        string       `json:"id" bson:"_id"`
	StartedAt time.Time    `json:"started_at" bson:"started_at"`
	Duration  float64      `json:"duration_seconds" bson:"duration_seconds"`
	Executed  []manip.Kind `json:"executed" bson:"executed"`
	Changed   []string     `json:"changed" bson:"changed"`
	Projects  int          `json:"projects" bson:"projects"`
	DryRun    bool         `json:"dry_run" bson:"dry_run"`
}

// New creates a report with a fresh run ID and the given start time.
func New(startedAt time.Time) *Report {
	return &Report{
		ID:        uuid.NewString(),
		StartedAt: startedAt.UTC(),
	}
}

// Finish stamps the run duration.
func (r *Report) Finish() {
	r.Duration = time.Since(r.StartedAt).Seconds()
}

// Store persists run reports.
type Store interface {
	// Save persists one report.
	Save(ctx context.Context, r *Report) error

	// List returns up to limit reports, most recent first.
	List(ctx context.Context, limit int) ([]*Report, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
