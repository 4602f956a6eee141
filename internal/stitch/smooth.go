package stitch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/roughcut/roughcut-agent/internal/annotate"
	"github.com/roughcut/roughcut-agent/internal/edit"
	"github.com/roughcut/roughcut-agent/internal/llm"
)

const smoothSystemPrompt = `You are a finishing editor reviewing a single cut point in a podcast edit. You will see the transcript around the cut and which cameras are used before and after it. Decide whether shifting the cut by a few seconds would land it on a more natural pause in the conversation.

You MUST output a valid JSON object with a single key "shift_seconds": a number of seconds to move the cut (negative = earlier, positive = later, 0 = keep as is).`

// Smoother optionally adjusts chapter-boundary cut points with a reasoning
// collaborator. Every adjustment is re-validated; one that would break
// coverage or non-overlap is discarded and the unmodified boundary kept.
type Smoother struct {
	client     llm.Client
	store      *annotate.Store
	windowSecs float64
	logger     *slog.Logger
}

// NewSmoother creates a Smoother with the given adjustment window.
func NewSmoother(client llm.Client, store *annotate.Store, windowSecs float64, logger *slog.Logger) *Smoother {
	if windowSecs <= 0 {
		windowSecs = 3.0
	}
	return &Smoother{client: client, store: store, windowSecs: windowSecs, logger: logger}
}

type shiftProposal struct {
	ShiftSeconds float64 `json:"shift_seconds"`
}

// Smooth visits each interior chapter boundary that survived stitching as a
// cut point and asks the collaborator for an adjustment. Collaborator
// failures and rejected adjustments leave the boundary unchanged; Smooth
// itself never fails the run.
func (s *Smoother) Smooth(ctx context.Context, t edit.Timeline, chapters []edit.Chapter) edit.Timeline {
	out := edit.Timeline{Cuts: make([]edit.CutInstruction, len(t.Cuts))}
	copy(out.Cuts, t.Cuts)

	for i := 0; i < len(chapters)-1; i++ {
		boundary := chapters[i].End
		idx := cutEndingAt(out.Cuts, boundary)
		if idx < 0 || idx+1 >= len(out.Cuts) {
			// Boundary was merged away; nothing to adjust.
			continue
		}

		shift, err := s.proposeShift(ctx, out.Cuts[idx], out.Cuts[idx+1], boundary)
		if err != nil {
			s.logger.Warn("boundary smoothing call failed, keeping cut", "boundary", boundary, "error", err)
			continue
		}
		if shift == 0 {
			continue
		}

		if !s.applyShift(out.Cuts, idx, shift) {
			s.logger.Warn("boundary adjustment rejected, keeping cut", "boundary", boundary, "shift", shift)
			continue
		}
		s.logger.Info("boundary adjusted", "boundary", boundary, "shift", shift)
	}

	return out
}

// proposeShift asks the collaborator for a cut-point adjustment.
func (s *Smoother) proposeShift(ctx context.Context, before, after edit.CutInstruction, boundary float64) (float64, error) {
	words := s.store.WordsIn(boundary-s.windowSecs, boundary+s.windowSecs)
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = fmt.Sprintf("%.1fs %q", w.Start, w.Text)
	}

	user := fmt.Sprintf(`The cut is at %.1fs, switching from camera %s to camera %s. You may shift it by at most %.1f seconds in either direction.

TRANSCRIPT AROUND THE CUT (word start times):
%s`,
		boundary, before.Camera, after.Camera, s.windowSecs, strings.Join(texts, "\n"))

	raw, err := s.client.Complete(ctx, llm.Request{System: smoothSystemPrompt, User: user, JSONMode: true})
	if err != nil {
		return 0, err
	}

	var proposal shiftProposal
	if err := llm.DecodeJSON(raw, &proposal); err != nil {
		return 0, err
	}

	shift := proposal.ShiftSeconds
	if math.IsNaN(shift) || math.Abs(shift) > s.windowSecs {
		return 0, fmt.Errorf("%w: shift %v outside window %v", llm.ErrSchemaViolation, shift, s.windowSecs)
	}
	return shift, nil
}

// applyShift moves the cut point between cuts idx and idx+1, refusing any
// shift that would empty either cut. Total coverage is preserved by
// construction: the two cuts trade exactly the shifted interval.
func (s *Smoother) applyShift(cuts []edit.CutInstruction, idx int, shift float64) bool {
	newBoundary := cuts[idx].End + shift
	if newBoundary-cuts[idx].Start <= edit.Eps {
		return false
	}
	if cuts[idx+1].End-newBoundary <= edit.Eps {
		return false
	}
	cuts[idx].End = newBoundary
	cuts[idx+1].Start = newBoundary
	return true
}

func cutEndingAt(cuts []edit.CutInstruction, t float64) int {
	for i, c := range cuts {
		if math.Abs(c.End-t) <= edit.Eps {
			return i
		}
	}
	return -1
}
