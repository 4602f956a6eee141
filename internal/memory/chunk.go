// Package memory provides the retrieval collaborator used by the chapter
// editor: annotation chunks embedded into a SQLite-backed vector index and
// ranked by cosine similarity at query time.
package memory

import (
	"fmt"
	"strings"

	"github.com/roughcut/roughcut-agent/internal/annotate"
)

// DefaultChunkSeconds is the bucket size for memory chunks. 5-10 seconds
// keeps each chunk a coherent beat of conversation.
const DefaultChunkSeconds = 5.0

// Chunk is one retrievable memory: a time bucket's transcript combined with
// the visual context in effect when the bucket started.
type Chunk struct {
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}

// BuildChunks buckets the annotation store into fixed intervals. Buckets
// with no spoken words are skipped; silence carries no retrievable content.
func BuildChunks(store *annotate.Store, chunkSecs float64) []Chunk {
	if chunkSecs <= 0 {
		chunkSecs = DefaultChunkSeconds
	}

	var chunks []Chunk
	for start := 0.0; start < store.Duration(); start += chunkSecs {
		words := store.WordsIn(start, start+chunkSecs)
		if len(words) == 0 {
			continue
		}

		texts := make([]string, len(words))
		for i, w := range words {
			texts[i] = w.Text
		}

		visual := "No visual data."
		if m, ok := store.LatestMomentAt(start); ok {
			visual = m.Description
		}

		chunks = append(chunks, Chunk{
			Text:      fmt.Sprintf("[VISUAL: %s] TRANSCRIPT: %s", visual, strings.Join(texts, " ")),
			Timestamp: start,
		})
	}
	return chunks
}
