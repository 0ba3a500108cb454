// Package sqlite provides SQLite-backed persistence for transcripts,
// summaries, meetings and users.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/meetscribe/server/pkg/logger"
)

// Convenience aliases for logger field constructors
var (
	String = logger.String
	Int    = logger.Int
	Int64  = logger.Int64
	Error  = logger.Error
)

// Storage owns the database handle shared by the typed stores.
type Storage struct {
	db     *sql.DB
	logger *logger.Logger
}

// New opens (or creates) the SQLite database at path and initializes
// the schema.
func New(path string, log *logger.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite performs best with a single writer connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=10000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	s := &Storage{
		db:     db,
		logger: log.Named("sqlite"),
	}

	if err := s.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	s.logger.Info("Database initialized", String("path", path))

	return s, nil
}

// initDB creates the tables and indexes if they don't exist
func (s *Storage) initDB() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS transcript_segments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			participant TEXT NOT NULL,
			speaker INTEGER NOT NULL,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transcript_segments_room_id
			ON transcript_segments(room_id)`,
		`CREATE TABLE IF NOT EXISTS meeting_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			participant TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(room_id, participant)
		)`,
		`CREATE TABLE IF NOT EXISTS meetings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			participant TEXT NOT NULL,
			title TEXT NOT NULL,
			room_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(room_id, participant)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			token TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Close closes the underlying database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// now returns the current time formatted for TEXT timestamp columns.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
