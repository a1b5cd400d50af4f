package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"

	_ "modernc.org/sqlite"
)

const cursorKey = "telegram_offset"

// journalRepo implements the Journal repository
type journalRepo struct {
	db *sql.DB
}

// NewJournalRepo creates a new Journal repository
func NewJournalRepo(dbPath string) (repo.JournalRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The poll loop, peer listener and cleanup all write; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			chat_id INTEGER NOT NULL DEFAULT 0,
			sender TEXT NOT NULL DEFAULT '',
			fragments INTEGER NOT NULL DEFAULT 1,
			bytes INTEGER NOT NULL DEFAULT 0,
			delivered INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns(created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS relay_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create state table: %w", err)
	}

	return &journalRepo{db: db}, nil
}

// Record appends one injection attempt
func (r *journalRepo) Record(ctx context.Context, e *domain.JournalEntry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO turns (source, chat_id, sender, fragments, bytes, delivered, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(e.Source),
		e.ChatID,
		e.Sender,
		e.Fragments,
		e.Bytes,
		boolToInt(e.Delivered),
		e.Error,
		createdAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// Recent returns the newest entries first
func (r *journalRepo) Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, chat_id, sender, fragments, bytes, delivered, error, created_at
		FROM turns
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		var source string
		var delivered int
		var createdAt int64
		if err := rows.Scan(&e.ID, &source, &e.ChatID, &e.Sender, &e.Fragments, &e.Bytes, &delivered, &e.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		e.Source = domain.Source(source)
		e.Delivered = delivered != 0
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CleanupOld deletes entries created before the given time
func (r *journalRepo) CleanupOld(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM turns WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup turns: %w", err)
	}
	return result.RowsAffected()
}

// LoadCursor returns the stored poll cursor, 0 when none was saved
func (r *journalRepo) LoadCursor(ctx context.Context) (int, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM relay_state WHERE key = ?`, cursorKey).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load cursor: %w", err)
	}
	cursor, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid stored cursor %q: %w", value, err)
	}
	return cursor, nil
}

// SaveCursor stores the poll cursor
func (r *journalRepo) SaveCursor(ctx context.Context, cursor int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO relay_state (key, value, updated_at)
		VALUES (?, ?, ?)
	`, cursorKey, strconv.Itoa(cursor), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *journalRepo) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
