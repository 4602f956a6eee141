package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Repository interface {
	CreateRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListPendingRuns(ctx context.Context) ([]*Run, error)
	UpdateRunStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateRunStage(ctx context.Context, id, stage string) error
	SetDegradedChapters(ctx context.Context, id string, chapterIDs []string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, stage, annotation_path, error, degraded_chapters, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Status, run.Stage, run.AnnotationPath, nullString(run.Error),
		nullString(encodeIDs(run.DegradedChapters)),
		run.CreatedAt.Format(time.RFC3339), run.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, stage, annotation_path, error, degraded_chapters, created_at, updated_at
		FROM runs WHERE id = ?
	`, id)
	return r.scanRun(row)
}

func (r *SQLiteRepository) scanRun(row *sql.Row) (*Run, error) {
	var run Run
	var errMsg, degraded sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&run.ID, &run.Status, &run.Stage, &run.AnnotationPath, &errMsg, &degraded, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.Error = errMsg.String
	run.DegradedChapters = decodeIDs(degraded.String)
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &run, nil
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, stage, annotation_path, error, degraded_chapters, created_at, updated_at
		FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRuns(rows)
}

func (r *SQLiteRepository) ListPendingRuns(ctx context.Context) ([]*Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, stage, annotation_path, error, degraded_chapters, created_at, updated_at
		FROM runs WHERE status = 'pending' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRuns(rows)
}

func (r *SQLiteRepository) scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		var run Run
		var errMsg, degraded sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&run.ID, &run.Status, &run.Stage, &run.AnnotationPath, &errMsg, &degraded, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		run.Error = errMsg.String
		run.DegradedChapters = decodeIDs(degraded.String)
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		run.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRepository) UpdateRunStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) UpdateRunStage(ctx context.Context, id, stage string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET stage = ?, updated_at = datetime('now') WHERE id = ?
	`, stage, id)
	return err
}

func (r *SQLiteRepository) SetDegradedChapters(ctx context.Context, id string, chapterIDs []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET degraded_chapters = ?, updated_at = datetime('now') WHERE id = ?
	`, nullString(encodeIDs(chapterIDs)), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func encodeIDs(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeIDs(s string) []string {
	if s == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	return ids
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
