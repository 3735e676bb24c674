package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists identities in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

var _ ConversationStore = (*SQLiteStore)(nil)

// NewSQLite opens (and creates if needed) the database at dbPath.
func NewSQLite(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// a single connection keeps ":memory:" databases shared and writes serialized
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	s := &SQLiteStore{db: db, logger: logger.With().Str("store", "sqlite").Logger()}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "initialize schema")
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS conversations (
		storage_key TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(query); err != nil {
		return errors.Wrap(err, "create schema")
	}
	return nil
}

// Load returns the identity stored for chatbotID. Read errors are logged and
// reported as absent.
func (s *SQLiteStore) Load(ctx context.Context, chatbotID string) (string, bool) {
	row := s.db.QueryRowContext(ctx,
		`SELECT conversation_id FROM conversations WHERE storage_key = ?`, Key(chatbotID))

	var id string
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("chatbot_id", chatbotID).Msg("load conversation id failed")
		return "", false
	}
	return id, true
}

// Save upserts the identity stored for chatbotID.
func (s *SQLiteStore) Save(ctx context.Context, chatbotID, conversationID string) error {
	query := `
	INSERT INTO conversations (storage_key, conversation_id, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(storage_key) DO UPDATE SET
		conversation_id = excluded.conversation_id,
		updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, Key(chatbotID), conversationID, time.Now().Unix()); err != nil {
		return errors.Wrap(err, "save conversation id")
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close database")
	}
	return nil
}
