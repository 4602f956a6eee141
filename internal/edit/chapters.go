package edit

import (
	"fmt"
	"math"
	"sort"
)

// ValidateChapters checks the structural-pass invariant: chapters sorted,
// non-overlapping, each start < end, and their union equal to
// [0, recordingEnd] within Eps.
func ValidateChapters(chapters []Chapter, recordingEnd float64) error {
	if len(chapters) == 0 {
		return fmt.Errorf("no chapters")
	}

	prev := 0.0
	for i, ch := range chapters {
		if math.IsNaN(ch.Start) || math.IsNaN(ch.End) {
			return fmt.Errorf("chapter %d has NaN boundary", i)
		}
		if ch.Start < -Eps || ch.End > recordingEnd+Eps {
			return fmt.Errorf("chapter %d range [%v, %v) outside recording [0, %v]", i, ch.Start, ch.End, recordingEnd)
		}
		if ch.End-ch.Start <= Eps {
			return fmt.Errorf("chapter %d is empty or inverted: [%v, %v)", i, ch.Start, ch.End)
		}
		if math.Abs(ch.Start-prev) > Eps {
			if ch.Start > prev {
				return fmt.Errorf("gap before chapter %d: [%v, %v)", i, prev, ch.Start)
			}
			return fmt.Errorf("chapter %d overlaps previous: starts %v before %v", i, ch.Start, prev)
		}
		prev = ch.End
	}

	if math.Abs(prev-recordingEnd) > Eps {
		return fmt.Errorf("chapters end at %v, recording ends at %v", prev, recordingEnd)
	}
	return nil
}

// RepairChapters deterministically restores the coverage invariant: clamps
// ranges to the recording, discards empty chapters, truncates overlaps, and
// closes gaps by extending the preceding chapter's end to the next chapter's
// start. A completely unusable input collapses to a single full-recording
// chapter. The returned repairs describe every fix applied.
func RepairChapters(chapters []Chapter, recordingEnd float64) ([]Chapter, []Repair) {
	var repairs []Repair

	kept := make([]Chapter, 0, len(chapters))
	for i, ch := range chapters {
		if math.IsNaN(ch.Start) || math.IsNaN(ch.End) {
			repairs = append(repairs, repairf(RepairDrop, "chapter %d %q has NaN boundary", i, ch.Title))
			continue
		}
		clamped := ch
		if clamped.Start < 0 {
			clamped.Start = 0
		}
		if clamped.End > recordingEnd {
			clamped.End = recordingEnd
		}
		if clamped != ch {
			repairs = append(repairs, repairf(RepairClamp, "chapter %d %q clamped to [%v, %v)", i, ch.Title, clamped.Start, clamped.End))
		}
		if clamped.End-clamped.Start <= Eps {
			repairs = append(repairs, repairf(RepairDrop, "chapter %d %q empty after clamping", i, ch.Title))
			continue
		}
		kept = append(kept, clamped)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Start < kept[j].Start
	})

	// Truncate overlaps: the earlier chapter yields to the later one.
	out := kept[:0]
	for _, ch := range kept {
		for len(out) > 0 {
			last := &out[len(out)-1]
			if ch.Start >= last.End-Eps {
				break
			}
			repairs = append(repairs, repairf(RepairOverlapTruncate, "chapter %q end %v truncated to %v", last.Title, last.End, ch.Start))
			last.End = ch.Start
			if last.End-last.Start > Eps {
				break
			}
			repairs = append(repairs, repairf(RepairDrop, "chapter %q swallowed by overlap", last.Title))
			out = out[:len(out)-1]
		}
		out = append(out, ch)
	}

	if len(out) == 0 {
		repairs = append(repairs, repairf(RepairFallback, "no usable chapters, covering [0, %v) with one chapter", recordingEnd))
		return []Chapter{{Title: "Full Recording", Summary: "Entire recording as a single chapter.", Start: 0, End: recordingEnd}}, repairs
	}

	// Close gaps: extend the preceding edge toward the following chapter.
	if out[0].Start > Eps {
		repairs = append(repairs, repairf(RepairGapFill, "leading gap [0, %v) closed by extending chapter %q", out[0].Start, out[0].Title))
		out[0].Start = 0
	}
	for i := 1; i < len(out); i++ {
		if gap := out[i].Start - out[i-1].End; gap > Eps {
			repairs = append(repairs, repairf(RepairGapFill, "gap [%v, %v) closed by extending chapter %q", out[i-1].End, out[i].Start, out[i-1].Title))
			out[i-1].End = out[i].Start
		} else {
			out[i].Start = out[i-1].End
		}
	}
	if gap := recordingEnd - out[len(out)-1].End; gap > Eps {
		repairs = append(repairs, repairf(RepairGapFill, "trailing gap [%v, %v) closed by extending chapter %q", out[len(out)-1].End, recordingEnd, out[len(out)-1].Title))
	}
	out[len(out)-1].End = recordingEnd

	return out, repairs
}
