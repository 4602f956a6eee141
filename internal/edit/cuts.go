package edit

import (
	"fmt"
	"math"
	"sort"
)

// ValidateCuts checks the chapter-editor invariant: cuts sorted,
// non-overlapping, and their union exactly [chapter.start, chapter.end)
// within Eps.
func ValidateCuts(cuts []CutInstruction, ch Chapter) error {
	return validateCoverage(cuts, ch.Start, ch.End)
}

// ValidateTimeline checks the global invariant on a stitched timeline.
func ValidateTimeline(t Timeline, start, end float64) error {
	return validateCoverage(t.Cuts, start, end)
}

func validateCoverage(cuts []CutInstruction, start, end float64) error {
	if len(cuts) == 0 {
		return fmt.Errorf("no cuts covering [%v, %v)", start, end)
	}

	prev := start
	for i, c := range cuts {
		if math.IsNaN(c.Start) || math.IsNaN(c.End) {
			return fmt.Errorf("cut %d has NaN boundary", i)
		}
		if c.End-c.Start <= Eps {
			return fmt.Errorf("cut %d is empty or inverted: [%v, %v)", i, c.Start, c.End)
		}
		if c.Camera == "" {
			return fmt.Errorf("cut %d has no camera", i)
		}
		if math.Abs(c.Start-prev) > Eps {
			if c.Start > prev {
				return fmt.Errorf("gap before cut %d: [%v, %v)", i, prev, c.Start)
			}
			return fmt.Errorf("cut %d overlaps previous: starts %v before %v", i, c.Start, prev)
		}
		prev = c.End
	}

	if math.Abs(prev-end) > Eps {
		return fmt.Errorf("cuts end at %v, range ends at %v", prev, end)
	}
	return nil
}

// RepairCuts deterministically restores the coverage invariant for one
// chapter: clips cuts to the chapter range, sorts and deduplicates them,
// truncates overlaps (earlier cut yields), and closes gaps by extending the
// preceding cut, or inserting a default-camera filler when no preceding cut
// exists at the chapter start. An empty input yields a single filler spanning
// the chapter.
func RepairCuts(cuts []CutInstruction, ch Chapter, defaultCamera string) ([]CutInstruction, []Repair) {
	var repairs []Repair

	kept := make([]CutInstruction, 0, len(cuts))
	for i, c := range cuts {
		if math.IsNaN(c.Start) || math.IsNaN(c.End) {
			repairs = append(repairs, repairf(RepairDrop, "cut %d has NaN boundary", i))
			continue
		}
		clipped := c
		if clipped.Start < ch.Start {
			clipped.Start = ch.Start
		}
		if clipped.End > ch.End {
			clipped.End = ch.End
		}
		if clipped.Start != c.Start || clipped.End != c.End {
			repairs = append(repairs, repairf(RepairClamp, "cut %d [%v, %v) clipped to chapter %q", i, c.Start, c.End, ch.ID))
		}
		if clipped.End-clipped.Start <= Eps {
			repairs = append(repairs, repairf(RepairDrop, "cut %d empty after clipping", i))
			continue
		}
		kept = append(kept, clipped)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Start < kept[j].Start
	})

	// Drop exact duplicates, then truncate overlaps.
	out := kept[:0]
	for _, c := range kept {
		if len(out) > 0 {
			last := out[len(out)-1]
			if c.Start == last.Start && c.End == last.End && c.Camera == last.Camera {
				repairs = append(repairs, repairf(RepairDrop, "duplicate cut [%v, %v) on %s", c.Start, c.End, c.Camera))
				continue
			}
		}
		for len(out) > 0 {
			last := &out[len(out)-1]
			if c.Start >= last.End-Eps {
				break
			}
			repairs = append(repairs, repairf(RepairOverlapTruncate, "cut on %s end %v truncated to %v", last.Camera, last.End, c.Start))
			last.End = c.Start
			if last.End-last.Start > Eps {
				break
			}
			repairs = append(repairs, repairf(RepairDrop, "cut on %s swallowed by overlap", last.Camera))
			out = out[:len(out)-1]
		}
		out = append(out, c)
	}

	if len(out) == 0 {
		repairs = append(repairs, repairf(RepairFillerInsert, "no usable cuts, filling chapter %q with %s", ch.ID, defaultCamera))
		return []CutInstruction{{Start: ch.Start, End: ch.End, Camera: defaultCamera}}, repairs
	}

	// Close gaps. A gap at the chapter start has no preceding cut to extend,
	// so it gets a filler on the default camera instead.
	if out[0].Start > ch.Start+Eps {
		repairs = append(repairs, repairf(RepairFillerInsert, "leading gap [%v, %v) filled with %s", ch.Start, out[0].Start, defaultCamera))
		out = append([]CutInstruction{{Start: ch.Start, End: out[0].Start, Camera: defaultCamera}}, out...)
	} else {
		out[0].Start = ch.Start
	}
	for i := 1; i < len(out); i++ {
		if gap := out[i].Start - out[i-1].End; gap > Eps {
			repairs = append(repairs, repairf(RepairGapFill, "gap [%v, %v) closed by extending cut on %s", out[i-1].End, out[i].Start, out[i-1].Camera))
			out[i-1].End = out[i].Start
		} else {
			out[i].Start = out[i-1].End
		}
	}
	if gap := ch.End - out[len(out)-1].End; gap > Eps {
		repairs = append(repairs, repairf(RepairGapFill, "trailing gap [%v, %v) closed by extending cut on %s", out[len(out)-1].End, ch.End, out[len(out)-1].Camera))
	}
	out[len(out)-1].End = ch.End

	return out, repairs
}

// KnownCameras reports whether every cut references a camera from the
// allowed set. The chapter editor rejects responses that invent cameras.
func KnownCameras(cuts []CutInstruction, cameras []string) error {
	allowed := make(map[string]bool, len(cameras))
	for _, id := range cameras {
		allowed[id] = true
	}
	for i, c := range cuts {
		if !allowed[c.Camera] {
			return fmt.Errorf("cut %d references unknown camera %q", i, c.Camera)
		}
	}
	return nil
}
