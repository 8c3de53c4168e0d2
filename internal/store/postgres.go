package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) InsertSuggestion(ctx context.Context, row SuggestionRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suggestions (id, editor_id, document_id, author_id, kind, description, status, thread_id, anchor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, row.ID, row.EditorID, row.DocumentID, row.AuthorID, row.Kind, row.Description, row.Status, row.ThreadID, row.Anchor, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

func (s *PostgresStore) LinkThread(ctx context.Context, suggestionID, threadID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE suggestions SET thread_id=$2 WHERE id=$1 AND status='pending'
	`, suggestionID, threadID)
	if err != nil {
		return fmt.Errorf("link thread: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResolveSuggestion(ctx context.Context, suggestionID, status, reviewerID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE suggestions
		SET status=$2, resolved_by=$3, resolved_at=NOW()
		WHERE id=$1 AND status='pending'
	`, suggestionID, status, reviewerID)
	if err != nil {
		return fmt.Errorf("resolve suggestion: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve suggestion: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("suggestion %s is not pending", suggestionID)
	}
	return nil
}

func (s *PostgresStore) GetSuggestion(ctx context.Context, suggestionID string) (SuggestionRow, error) {
	const query = `
		SELECT id, editor_id, document_id, author_id, kind, description, status, thread_id, anchor, created_at, COALESCE(resolved_by, ''), resolved_at
		FROM suggestions WHERE id=$1
	`
	var row SuggestionRow
	err := s.db.QueryRowContext(ctx, query, suggestionID).Scan(
		&row.ID, &row.EditorID, &row.DocumentID, &row.AuthorID, &row.Kind,
		&row.Description, &row.Status, &row.ThreadID, &row.Anchor,
		&row.CreatedAt, &row.ResolvedBy, &row.ResolvedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return SuggestionRow{}, fmt.Errorf("suggestion %s not found", suggestionID)
	}
	if err != nil {
		return SuggestionRow{}, fmt.Errorf("get suggestion: %w", err)
	}
	return row, nil
}

func (s *PostgresStore) ListSuggestions(ctx context.Context, documentID string, pendingOnly bool) ([]SuggestionRow, error) {
	query := `
		SELECT id, editor_id, document_id, author_id, kind, description, status, thread_id, anchor, created_at, COALESCE(resolved_by, ''), resolved_at
		FROM suggestions WHERE document_id=$1
	`
	if pendingOnly {
		query += ` AND status='pending'`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var out []SuggestionRow
	for rows.Next() {
		var row SuggestionRow
		if err := rows.Scan(
			&row.ID, &row.EditorID, &row.DocumentID, &row.AuthorID, &row.Kind,
			&row.Description, &row.Status, &row.ThreadID, &row.Anchor,
			&row.CreatedAt, &row.ResolvedBy, &row.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	return out, nil
}
