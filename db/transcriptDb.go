package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ragchat/models"

	_ "github.com/lib/pq"
)

var ErrTranscriptNotFound = errors.New("transcript not found")

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS ragchat;
	CREATE TABLE IF NOT EXISTS ragchat.transcripts (
		id            TEXT PRIMARY KEY,
		session_id    TEXT NOT NULL DEFAULT '',
		model         TEXT NOT NULL,
		messages      JSONB NOT NULL,
		message_count INTEGER NOT NULL,
		started_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS transcripts_session_idx ON ragchat.transcripts (session_id);`

type TranscriptRepository interface {
	SaveTranscript(ctx context.Context, record *models.TranscriptRecord) error
	GetTranscript(ctx context.Context, id string) (*models.TranscriptRecord, error)
	ListTranscripts(ctx context.Context, sessionID string, limit int) ([]*models.TranscriptRecord, error)
}

type PostgresTranscriptRepository struct {
	db *sql.DB
}

func NewPostgresTranscriptRepository(databaseURL string) (*PostgresTranscriptRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresTranscriptRepository{db: db}, nil
}

func (r *PostgresTranscriptRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create transcripts table: %w", err)
	}
	return nil
}

// SaveTranscript inserts the record or replaces the stored messages of an
// existing one.
func (r *PostgresTranscriptRepository) SaveTranscript(ctx context.Context, record *models.TranscriptRecord) error {
	messagesJSON, err := json.Marshal(record.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := `
		INSERT INTO ragchat.transcripts (id, session_id, model, messages, message_count, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET messages = EXCLUDED.messages,
			message_count = EXCLUDED.message_count,
			model = EXCLUDED.model,
			updated_at = NOW()
		RETURNING updated_at`

	row := r.db.QueryRowContext(ctx, query,
		record.ID, record.SessionID, string(record.Model), messagesJSON, len(record.Messages), record.StartedAt)

	if err := row.Scan(&record.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	record.MessageCount = len(record.Messages)

	return nil
}

func (r *PostgresTranscriptRepository) GetTranscript(ctx context.Context, id string) (*models.TranscriptRecord, error) {
	query := `
		SELECT id, session_id, model, messages, message_count, started_at, updated_at
		FROM ragchat.transcripts
		WHERE id = $1`

	record, err := scanTranscript(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTranscriptNotFound, id)
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	return record, nil
}

// ListTranscripts returns the newest transcripts first. An empty sessionID
// lists every session.
func (r *PostgresTranscriptRepository) ListTranscripts(ctx context.Context, sessionID string, limit int) ([]*models.TranscriptRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, model, messages, message_count, started_at, updated_at
		FROM ragchat.transcripts
		WHERE ($1 = '' OR session_id = $1)
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	records := make([]*models.TranscriptRecord, 0)
	for rows.Next() {
		record, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transcripts: %w", err)
	}

	return records, nil
}

func (r *PostgresTranscriptRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscript(s scanner) (*models.TranscriptRecord, error) {
	record := &models.TranscriptRecord{}
	var model string
	var messagesJSON []byte

	err := s.Scan(&record.ID, &record.SessionID, &model, &messagesJSON, &record.MessageCount, &record.StartedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	record.Model = models.ModelChoice(model)

	if err := json.Unmarshal(messagesJSON, &record.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}

	return record, nil
}
