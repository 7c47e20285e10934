// Package runctx tags a harvest run with an identifier carried by its
// context and its logger.
package runctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type key int

const runKey key = 0

// Run identifies one invocation of the harvester.
type Run struct {
	ID        string
	StartTime time.Time
}

// Elapsed reports the time since the run started.
func (r *Run) Elapsed() time.Duration {
	return time.Since(r.StartTime)
}

// Start attaches a new run to ctx and returns a logger derived from base
// that stamps every line with the run id. The logger is attached to the
// returned context as well.
func Start(ctx context.Context, base zerolog.Logger) (context.Context, *Run) {
	run := &Run{ID: generateID(), StartTime: time.Now()}
	logger := base.With().Str("run_id", run.ID).Logger()
	ctx = context.WithValue(ctx, runKey, run)
	return logger.WithContext(ctx), run
}

// From returns the run attached to ctx, or a placeholder.
func From(ctx context.Context) *Run {
	if r, ok := ctx.Value(runKey).(*Run); ok {
		return r
	}
	return &Run{ID: "unknown", StartTime: time.Now()}
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// RunError wraps an error with the run that produced it
type RunError struct {
	RunID string
	Err   error
}

// Error implements the error interface
func (e *RunError) Error() string {
	return fmt.Sprintf("[run %s] %v", e.RunID, e.Err)
}

// Unwrap returns the underlying error
func (e *RunError) Unwrap() error {
	return e.Err
}

// Wrap tags err with the run attached to ctx. A nil err stays nil.
func Wrap(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return &RunError{RunID: From(ctx).ID, Err: err}
}
