// Package llm wraps the reasoning and embedding collaborators. Every model
// response is treated as untrusted input: callers parse through DecodeJSON
// and apply their own validation before accepting anything.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks transient transport failures talking to a
// collaborator. Attempts that hit it count against the caller's retry budget.
var ErrUnavailable = errors.New("collaborator unavailable")

// ErrSchemaViolation marks collaborator output that failed to parse into the
// requested structure.
var ErrSchemaViolation = errors.New("collaborator output violates schema")

// Request is one reasoning call. JSONMode asks the backend to constrain
// output to valid JSON where the backend supports it; the response is still
// never trusted blindly.
type Request struct {
	System   string
	User     string
	JSONMode bool
}

// Client is the reasoning collaborator contract.
type Client interface {
	// Complete returns the raw response text for the prompt.
	Complete(ctx context.Context, req Request) (string, error)
	// Name identifies the backend for logging.
	Name() string
}

// Embedder is the embedding collaborator contract used by the retrieval
// memory.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Backoff returns the exponential delay before retry attempt n (0-based):
// 1s, 2s, 4s, ... capped at 30s.
func Backoff(attempt int) time.Duration {
	if attempt < 0 || attempt > 4 {
		return 30 * time.Second
	}
	return time.Second << uint(attempt)
}

// Wait sleeps for d or until the context is cancelled.
func Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
