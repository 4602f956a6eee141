// Package stitch implements the finishing pass: concatenating per-chapter
// cut lists into one global timeline, removing spurious cuts at chapter
// boundaries, and optionally smoothing boundary placement with a reasoning
// collaborator under strict invariant protection.
package stitch

import (
	"fmt"
	"math"

	"github.com/roughcut/roughcut-agent/internal/edit"
)

// Stitch concatenates chapter EDLs in chapter order into a single timeline.
// When two consecutive instructions use the same camera and are temporally
// adjacent they are merged into one, removing the spurious mid-boundary cut.
// The reduction is a left-to-right fold whose only state is the running
// right edge, so it is associative in chapter order and idempotent on an
// already-stitched timeline.
func Stitch(chapters []edit.Chapter, edits *edit.DirectorEdits) (edit.Timeline, error) {
	var t edit.Timeline
	for _, ch := range chapters {
		edl, ok := edits.EDLByChapter(ch.ID)
		if !ok {
			return edit.Timeline{}, fmt.Errorf("no EDL for chapter %s", ch.ID)
		}
		if err := edit.ValidateCuts(edl.Cuts, ch); err != nil {
			return edit.Timeline{}, fmt.Errorf("chapter %s EDL invalid: %w", ch.ID, err)
		}
		t = Append(t, edl.Cuts)
	}

	if len(chapters) > 0 {
		if err := edit.ValidateTimeline(t, chapters[0].Start, chapters[len(chapters)-1].End); err != nil {
			return edit.Timeline{}, fmt.Errorf("stitched timeline invalid: %w", err)
		}
	}
	return t, nil
}

// Append folds one chapter's cuts onto the right edge of the timeline,
// merging the join when camera and boundary line up.
func Append(t edit.Timeline, cuts []edit.CutInstruction) edit.Timeline {
	out := edit.Timeline{Cuts: make([]edit.CutInstruction, len(t.Cuts), len(t.Cuts)+len(cuts))}
	copy(out.Cuts, t.Cuts)
	for _, c := range cuts {
		if n := len(out.Cuts); n > 0 {
			last := &out.Cuts[n-1]
			if last.Camera == c.Camera && math.Abs(last.End-c.Start) <= edit.Eps {
				last.End = c.End
				continue
			}
		}
		out.Cuts = append(out.Cuts, c)
	}
	return out
}
