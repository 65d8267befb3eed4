package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agricagent/agricagent/internal/core/domain"
	"github.com/agricagent/agricagent/internal/logger"
)

// SQLiteRepository persists interactions in a local SQLite database. The
// table is append-only: the pipeline never updates or deletes rows.
type SQLiteRepository struct {
	db    *sql.DB
	mutex sync.RWMutex
	log   logger.Logger
}

// NewSQLiteRepository opens (or creates) the database at path and ensures
// the schema exists.
func NewSQLiteRepository(path string, log logger.Logger) (*SQLiteRepository, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Info("opened interaction store", "path", path)
	return &SQLiteRepository{db: db, log: log}, nil
}

// createSchema creates the interactions table if it doesn't exist
func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS interactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			body TEXT NOT NULL,
			media_mime TEXT,
			media_path TEXT,
			category TEXT NOT NULL,
			analysis TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_interactions_created_at
		ON interactions(created_at)
	`)
	return err
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save appends one interaction and fills in its assigned ID.
func (r *SQLiteRepository) Save(ctx context.Context, interaction *domain.Interaction) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO interactions
		(trace_id, sender, body, media_mime, media_path, category, analysis, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(
		ctx,
		query,
		interaction.TraceID,
		interaction.Sender,
		interaction.Body,
		nullable(interaction.MediaMime),
		nullable(interaction.MediaPath),
		interaction.Category,
		interaction.Analysis,
		interaction.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err == nil {
		interaction.ID = id
	}
	return nil
}

// ListRecent returns up to limit interactions, most recent first.
func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]domain.Interaction, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, trace_id, sender, body, media_mime, media_path, category, analysis, created_at
		FROM interactions
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interactions []domain.Interaction
	for rows.Next() {
		var i domain.Interaction
		var mediaMime, mediaPath sql.NullString
		var createdAt string

		if err := rows.Scan(&i.ID, &i.TraceID, &i.Sender, &i.Body, &mediaMime, &mediaPath, &i.Category, &i.Analysis, &createdAt); err != nil {
			return nil, err
		}
		i.MediaMime = mediaMime.String
		i.MediaPath = mediaPath.String
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			i.CreatedAt = ts
		}
		interactions = append(interactions, i)
	}
	return interactions, rows.Err()
}

// nullable maps "" to NULL so optional columns stay NULL in the table.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
