// Package director implements the chapter-editing pass: for each chapter it
// assembles local and retrieved context, asks a reasoning collaborator for a
// cut list, and repairs the answer into a valid chapter EDL. Chapters share
// no mutable state, so the pass runs on a bounded worker pool.
package director

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alpkeskin/gotoon"

	"github.com/roughcut/roughcut-agent/internal/annotate"
	"github.com/roughcut/roughcut-agent/internal/memory"
)

// Retriever is the retrieval collaborator contract.
type Retriever interface {
	Search(ctx context.Context, runID, query string, k int) ([]memory.Snippet, error)
}

// Context is everything the chapter editor gets to reason over: the
// chapter's annotation slice plus globally retrieved snippets. Degraded
// marks contexts assembled without global retrieval.
type Context struct {
	Words    []annotate.TranscriptWord
	Moments  []annotate.VisualMoment
	Global   []memory.Snippet
	Degraded bool
}

// Assembler extracts per-chapter context from the annotation store and the
// retrieval memory.
type Assembler struct {
	store     *annotate.Store
	retriever Retriever
	runID     string
	topK      int
	logger    *slog.Logger
}

// NewAssembler creates an Assembler for one run.
func NewAssembler(store *annotate.Store, retriever Retriever, runID string, topK int, logger *slog.Logger) *Assembler {
	if topK <= 0 {
		topK = 2
	}
	return &Assembler{store: store, retriever: retriever, runID: runID, topK: topK, logger: logger}
}

// Assemble gathers context for [t0, t1). Local extraction cannot fail; an
// empty slice is a valid silent chapter. Global retrieval is an enrichment:
// on collaborator failure or an empty index the context is returned
// local-only and flagged degraded rather than failing the pass.
func (a *Assembler) Assemble(ctx context.Context, t0, t1 float64, summary string) Context {
	out := Context{
		Words:   a.store.WordsIn(t0, t1),
		Moments: a.store.MomentsIn(t0, t1),
	}

	if a.retriever == nil {
		out.Degraded = true
		return out
	}

	query := fmt.Sprintf("What is the most important context from the rest of the podcast related to this topic: %s", summary)
	snippets, err := a.retriever.Search(ctx, a.runID, query, a.topK)
	if err != nil {
		a.logger.Warn("global retrieval failed, continuing local-only", "error", err)
		out.Degraded = true
		return out
	}
	if len(snippets) == 0 {
		a.logger.Warn("memory index empty, continuing local-only")
		out.Degraded = true
		return out
	}

	out.Global = snippets
	return out
}

// LocalBlock renders the chapter's transcript and visual cues for the
// director prompt.
func (c Context) LocalBlock() string {
	words := make([]string, len(c.Words))
	for i, w := range c.Words {
		words[i] = w.Text
	}

	visuals := make([]string, len(c.Moments))
	for i, m := range c.Moments {
		visuals[i] = fmt.Sprintf("At %.1fs [%s]: %s", m.Timestamp, m.Camera, m.Description)
	}

	return fmt.Sprintf("TRANSCRIPT FOR THIS SEGMENT:\n%s\n\nVISUAL CUES FOR THIS SEGMENT:\n%s",
		strings.Join(words, " "), strings.Join(visuals, "\n"))
}

// GlobalBlock renders the retrieved snippets in LLM-friendly toon format,
// falling back to plain text when encoding fails.
func (c Context) GlobalBlock() string {
	if len(c.Global) == 0 {
		return "No global context available."
	}

	if encoded, err := gotoon.Encode(c.Global); err == nil {
		return encoded
	}

	var sb strings.Builder
	for _, s := range c.Global {
		fmt.Fprintf(&sb, "- (%.2f @ %.1fs) %s\n", s.Score, s.Timestamp, s.Text)
	}
	return sb.String()
}
