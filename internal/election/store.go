package election

import (
	"context"
	"time"
)

// Store is pure I/O over election metadata, options, and persisted results.
type Store interface {
	Create(ctx context.Context, e *Election, options []Option) error
	Get(ctx context.Context, id string) (*Election, error)
	List(ctx context.Context) ([]Election, error)
	ListOptions(ctx context.Context, electionID string) ([]Option, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateEndAt(ctx context.Context, id string, endAt time.Time) error
	// SetCounted flips the election to counted only if it is not counted
	// already, reporting whether this caller performed the flip. Racing count
	// requests must observe exactly one true result.
	SetCounted(ctx context.Context, id string) (bool, error)
	// SaveResults persists the count-time figures. Results are written once
	// and never recomputed on read.
	SaveResults(ctx context.Context, electionID string, figures *Figures) error
	GetResults(ctx context.Context, electionID string) (*Figures, error)
}
