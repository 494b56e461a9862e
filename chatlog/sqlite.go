// Package chatlog houses concrete implementations of core.ChatLogStore, the
// durable append-only conversation history.
package chatlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/platewise/platewise/core"
)

// SQLiteStore implements core.ChatLogStore on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLite opens (creating if necessary) the chat history database at dbPath.
func NewSQLite(dbPath string, optFns ...func(o *Options)) (*SQLiteStore, error) {
	opts := Options{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS chat_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
		content TEXT NOT NULL,
		metadata TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history(user_id, session_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append writes one history row inside a transaction.
func (s *SQLiteStore) Append(ctx context.Context, entry core.ChatLogEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var metadata sql.NullString
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return core.NewPersistenceError("chatlog", "append", fmt.Errorf("marshal metadata: %w", err))
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewPersistenceError("chatlog", "append", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_history (user_id, session_id, role, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.SessionID, entry.Role, entry.Content, metadata, createdAt.Unix(),
	)
	if err != nil {
		return core.NewPersistenceError("chatlog", "append", err)
	}

	if err := tx.Commit(); err != nil {
		return core.NewPersistenceError("chatlog", "append", err)
	}

	return nil
}

// Recent returns up to limit rows for (user, session) ordered oldest to
// newest. The query fetches newest-first for the LIMIT, then reverses.
func (s *SQLiteStore) Recent(ctx context.Context, userID, sessionID string, limit int) ([]core.ChatLogEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, session_id, role, content, metadata, created_at
		 FROM chat_history
		 WHERE user_id = ? AND session_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, sessionID, limit,
	)
	if err != nil {
		return nil, core.NewPersistenceError("chatlog", "recent", err)
	}
	defer rows.Close()

	var entries []core.ChatLogEntry
	for rows.Next() {
		var entry core.ChatLogEntry
		var metadata sql.NullString
		var createdAt int64

		if err := rows.Scan(&entry.UserID, &entry.SessionID, &entry.Role, &entry.Content, &metadata, &createdAt); err != nil {
			return nil, core.NewPersistenceError("chatlog", "recent", fmt.Errorf("scan row: %w", err))
		}

		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &entry.Metadata); err != nil {
				return nil, core.NewPersistenceError("chatlog", "recent", fmt.Errorf("unmarshal metadata: %w", err))
			}
		}
		entry.CreatedAt = time.Unix(createdAt, 0).UTC()

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewPersistenceError("chatlog", "recent", err)
	}

	// Reverse to oldest-first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}
