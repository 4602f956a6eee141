package llm

import (
	"context"
	"fmt"
	"time"
)

// timeoutClient bounds each Complete call with a deadline so a stalled
// collaborator surfaces as ErrUnavailable instead of hanging a pipeline stage.
type timeoutClient struct {
	inner   Client
	timeout time.Duration
}

// WithTimeout wraps c so every Complete call runs under d. A deadline hit is
// reported as ErrUnavailable and counts against the caller's retry budget.
// d <= 0 returns c unchanged.
func WithTimeout(c Client, d time.Duration) Client {
	if d <= 0 {
		return c
	}
	return &timeoutClient{inner: c, timeout: d}
}

func (t *timeoutClient) Complete(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.inner.Complete(callCtx, req)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return "", fmt.Errorf("%w: %s timed out after %s", ErrUnavailable, t.inner.Name(), t.timeout)
	}
	return resp, err
}

func (t *timeoutClient) Name() string {
	return t.inner.Name()
}

// timeoutEmbedder is the Embedder counterpart of timeoutClient.
type timeoutEmbedder struct {
	inner   Embedder
	timeout time.Duration
}

// WithEmbedTimeout wraps e so every Embed call runs under d. d <= 0 returns
// e unchanged.
func WithEmbedTimeout(e Embedder, d time.Duration) Embedder {
	if d <= 0 {
		return e
	}
	return &timeoutEmbedder{inner: e, timeout: d}
}

func (t *timeoutEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	vec, err := t.inner.Embed(callCtx, text)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: embedding timed out after %s", ErrUnavailable, t.timeout)
	}
	return vec, err
}
