// Package edit defines the shared editorial data model (chapters, cut
// instructions, chapter EDLs and the stitched timeline) together with the
// validation and deterministic repair layer that keeps every reasoning-pass
// output temporally consistent, non-overlapping and gap-free.
package edit

import "fmt"

// Chapter is one top-level topical segment of the recording, produced by the
// structural pass. Chapters are sorted, non-overlapping and cover the whole
// recording; later passes cannot revise their boundaries.
type Chapter struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Summary string  `json:"summary"`
	Start   float64 `json:"start_time"`
	End     float64 `json:"end_time"`
}

// CutInstruction selects one camera for one contiguous interval.
type CutInstruction struct {
	Start     float64 `json:"start_time"`
	End       float64 `json:"end_time"`
	Camera    string  `json:"camera_id"`
	Rationale string  `json:"rationale,omitempty"`
}

// Duration returns the instruction length in seconds.
func (c CutInstruction) Duration() float64 {
	return c.End - c.Start
}

// ChapterEDL is the ordered cut list for one chapter. After validation its
// cuts are sorted, non-overlapping and exactly cover [chapter.start,
// chapter.end). Degraded marks chapters where fallback logic was used so
// editorial review can prioritise re-checking them.
type ChapterEDL struct {
	ChapterID string           `json:"chapter_id"`
	Degraded  bool             `json:"degraded,omitempty"`
	Cuts      []CutInstruction `json:"cuts"`
}

// Timeline is the stitched global cut list spanning the full recording.
type Timeline struct {
	Cuts []CutInstruction `json:"cuts"`
}

// Start returns the first covered instant, 0 for an empty timeline.
func (t Timeline) Start() float64 {
	if len(t.Cuts) == 0 {
		return 0
	}
	return t.Cuts[0].Start
}

// End returns the last covered instant, 0 for an empty timeline.
func (t Timeline) End() float64 {
	if len(t.Cuts) == 0 {
		return 0
	}
	return t.Cuts[len(t.Cuts)-1].End
}

// Repair records one deterministic invariant fix. Repairs are quality
// signals: always logged, never silently discarded.
type Repair struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func repairf(code, format string, args ...any) Repair {
	return Repair{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Repair codes.
const (
	RepairClamp           = "clamp"
	RepairDrop            = "drop"
	RepairOverlapTruncate = "overlap_truncate"
	RepairGapFill         = "gap_fill"
	RepairFillerInsert    = "filler_insert"
	RepairFallback        = "fallback"
)

// Eps is the tolerance for timestamp comparisons. Reasoning collaborators
// emit decimal seconds, so exact float equality is too strict.
const Eps = 1e-6
