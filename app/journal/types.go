package journal

import (
	"context"
	"time"
)

// Mutation is one write a command made, or would have made in test mode.
type Mutation struct {
	ID        int64
	RunID     string
	Command   string
	Method    string
	URI       string
	Before    string // Resource XML before the write, empty for creations
	After     string // XML sent to the server, empty for deletions
	TestMode  bool
	CreatedAt time.Time
}

type Recorder interface {
	Record(ctx context.Context, m Mutation) error
	RunID() string
}

type Repository interface {
	Recorder
	List(ctx context.Context, runID string) ([]Mutation, error)
	Count(ctx context.Context) (int, error)
}

var _ Repository = (*MutationRepository)(nil)
