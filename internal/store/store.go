package store

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	// busy_timeout goes in the DSN so every pooled connection gets it;
	// a plain Exec would configure only the connection it ran on.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		plan TEXT NOT NULL DEFAULT 'free',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		handle TEXT NOT NULL,
		goal TEXT,
		brand TEXT,
		language TEXT,
		status TEXT NOT NULL DEFAULT 'stopped',
		auto_tweet_enabled BOOLEAN NOT NULL DEFAULT 0,
		auto_tweet_frequency_hours REAL,
		auto_tweet_count INTEGER,
		last_auto_tweet_at DATETIME,
		auto_engage_enabled BOOLEAN NOT NULL DEFAULT 0,
		auto_engage_frequency_hours REAL,
		auto_engage_max_replies INTEGER,
		auto_engage_min_score INTEGER,
		auto_engage_strictness INTEGER,
		auto_engage_quality_filter BOOLEAN NOT NULL DEFAULT 1,
		last_auto_engage_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS replies (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL REFERENCES agents(id),
		source_id TEXT NOT NULL,
		source_author TEXT,
		source_text TEXT,
		text TEXT NOT NULL,
		status TEXT NOT NULL,
		score INTEGER,
		external_id TEXT,
		posted_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS scheduled_posts (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL REFERENCES agents(id),
		content TEXT NOT NULL,
		scheduled_for DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		external_id TEXT,
		external_url TEXT,
		posted_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS usage (
		user_id TEXT NOT NULL REFERENCES users(id),
		period TEXT NOT NULL,
		replies_used INTEGER NOT NULL DEFAULT 0,
		generations_used INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, period)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_replies_active
		ON replies(agent_id, source_id)
		WHERE status NOT IN ('failed', 'rejected');
	CREATE INDEX IF NOT EXISTS idx_replies_agent ON replies(agent_id);
	CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due
		ON scheduled_posts(status, scheduled_for);
	`

	_, err := s.db.Exec(schema)
	return err
}
