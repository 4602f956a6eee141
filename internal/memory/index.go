package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roughcut/roughcut-agent/internal/llm"
)

// Snippet is one retrieval result.
type Snippet struct {
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
	Timestamp float64 `json:"timestamp"`
}

// Index is the SQLite-backed vector store. Embeddings are stored as
// little-endian float64 blobs alongside the chunk text; ranking is a linear
// cosine scan, which is plenty for one recording's worth of chunks.
type Index struct {
	db       *sql.DB
	embedder llm.Embedder
	logger   *slog.Logger
}

// NewIndex creates an index over the given database connection.
func NewIndex(db *sql.DB, embedder llm.Embedder, logger *slog.Logger) *Index {
	return &Index{db: db, embedder: embedder, logger: logger}
}

// Populate embeds and stores chunks for a run, replacing any previous index
// for the same run.
func (ix *Index) Populate(ctx context.Context, runID string, chunks []Chunk) error {
	if _, err := ix.db.ExecContext(ctx, "DELETE FROM memory_chunks WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clear memory index: %w", err)
	}

	for i, chunk := range chunks {
		vec, err := ix.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}
		if err := validateVector(vec); err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}

		_, err = ix.db.ExecContext(ctx, `
			INSERT INTO memory_chunks (run_id, seq, timestamp, text, embedding)
			VALUES (?, ?, ?, ?, ?)
		`, runID, i, chunk.Timestamp, chunk.Text, encodeVector(vec))
		if err != nil {
			return fmt.Errorf("store chunk %d: %w", i, err)
		}
	}

	ix.logger.Info("memory index populated", "run_id", runID, "chunks", len(chunks))
	return nil
}

// Count returns the number of indexed chunks for a run.
func (ix *Index) Count(ctx context.Context, runID string) (int, error) {
	var count int
	err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memory_chunks WHERE run_id = ?", runID).Scan(&count)
	return count, err
}

// Search returns the top-k chunks most similar to the query. An empty index
// yields an empty result, not an error.
func (ix *Index) Search(ctx context.Context, runID, query string, k int) ([]Snippet, error) {
	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT timestamp, text, embedding FROM memory_chunks WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("scan memory index: %w", err)
	}
	defer rows.Close()

	var results []Snippet
	for rows.Next() {
		var s Snippet
		var blob []byte
		if err := rows.Scan(&s.Timestamp, &s.Text, &blob); err != nil {
			return nil, err
		}

		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk at %vs: %w", s.Timestamp, err)
		}

		score, err := CosineSimilarity(queryVec, vec)
		if err != nil {
			return nil, fmt.Errorf("chunk at %vs: %w", s.Timestamp, err)
		}
		s.Score = score
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}
