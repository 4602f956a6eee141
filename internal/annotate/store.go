// Package annotate holds the time-indexed annotation substrate every
// editorial pass reads from: the word-level transcript of the master audio
// track and the per-second visual descriptions of each camera angle.
package annotate

import (
	"sort"
)

// TranscriptWord is one transcribed word with its spoken interval.
// The transcription collaborator may omit words on low confidence; missing
// intervals are silence, not errors.
type TranscriptWord struct {
	Text    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// VisualMoment is one sampled visual description for one camera.
type VisualMoment struct {
	Timestamp   float64 `json:"timestamp"`
	Camera      string  `json:"camera_id"`
	Description string  `json:"description"`
}

// Store is an immutable, time-indexed merge of transcript words and visual
// moments. It is built once per run and safely shared across concurrent
// chapter tasks; all range queries are O(log n) binary searches.
type Store struct {
	words   []TranscriptWord
	moments []VisualMoment
	cameras []string
	end     float64
}

// NewStore builds a Store from raw annotations. Input slices are copied and
// sorted; the caller may discard or reuse them afterwards.
func NewStore(words []TranscriptWord, moments []VisualMoment) *Store {
	s := &Store{
		words:   make([]TranscriptWord, len(words)),
		moments: make([]VisualMoment, len(moments)),
	}
	copy(s.words, words)
	copy(s.moments, moments)

	sort.SliceStable(s.words, func(i, j int) bool {
		return s.words[i].Start < s.words[j].Start
	})
	sort.SliceStable(s.moments, func(i, j int) bool {
		return s.moments[i].Timestamp < s.moments[j].Timestamp
	})

	cams := make(map[string]bool)
	for _, m := range s.moments {
		if m.Camera != "" && !cams[m.Camera] {
			cams[m.Camera] = true
			s.cameras = append(s.cameras, m.Camera)
		}
	}
	sort.Strings(s.cameras)

	for _, w := range s.words {
		if w.End > s.end {
			s.end = w.End
		}
	}
	for _, m := range s.moments {
		if m.Timestamp > s.end {
			s.end = m.Timestamp
		}
	}

	return s
}

// Duration returns the recording end in seconds, derived from the last
// annotated instant.
func (s *Store) Duration() float64 {
	return s.end
}

// Cameras returns the sorted camera ids observed in the visual log.
func (s *Store) Cameras() []string {
	return s.cameras
}

// WordCount returns the number of transcript words.
func (s *Store) WordCount() int {
	return len(s.words)
}

// MomentCount returns the number of visual moments.
func (s *Store) MomentCount() int {
	return len(s.moments)
}

// WordsIn returns the transcript words whose start falls in [t0, t1).
// The returned slice aliases the store and must not be modified.
func (s *Store) WordsIn(t0, t1 float64) []TranscriptWord {
	lo := sort.Search(len(s.words), func(i int) bool {
		return s.words[i].Start >= t0
	})
	hi := sort.Search(len(s.words), func(i int) bool {
		return s.words[i].Start >= t1
	})
	return s.words[lo:hi]
}

// MomentsIn returns the visual moments whose timestamp falls in [t0, t1).
// The returned slice aliases the store and must not be modified.
func (s *Store) MomentsIn(t0, t1 float64) []VisualMoment {
	lo := sort.Search(len(s.moments), func(i int) bool {
		return s.moments[i].Timestamp >= t0
	})
	hi := sort.Search(len(s.moments), func(i int) bool {
		return s.moments[i].Timestamp >= t1
	})
	return s.moments[lo:hi]
}

// LatestMomentAt returns the most recent visual moment at or before t, or
// false when none exists yet.
func (s *Store) LatestMomentAt(t float64) (VisualMoment, bool) {
	idx := sort.Search(len(s.moments), func(i int) bool {
		return s.moments[i].Timestamp > t
	})
	if idx == 0 {
		return VisualMoment{}, false
	}
	return s.moments[idx-1], true
}

// Transcript joins every transcribed word into the full-recording transcript
// used by the structural pass.
func (s *Store) Transcript() string {
	if len(s.words) == 0 {
		return ""
	}
	n := 0
	for _, w := range s.words {
		n += len(w.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, w := range s.words {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, w.Text...)
	}
	return string(buf)
}
