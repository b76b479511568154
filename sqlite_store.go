package wheel

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteOptionStore persists option sets in a local SQLite database,
// for single-host deployments without Redis
type SQLiteOptionStore struct {
	db     *sql.DB
	logger Logger
}

// OpenSQLiteOptionStore opens (creating if needed) the database at path
func OpenSQLiteOptionStore(path string, logger Logger) (*SQLiteOptionStore, error) {
	if path == "" {
		return nil, ErrInvalidParameters.WithDetails("empty sqlite path")
	}
	if logger == nil {
		logger = NewSilentLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, ErrStateLoadFailure.WithDetailsf("create directory for %s", path).WithCause(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ErrStateLoadFailure.WithDetailsf("open %s", path).WithCause(err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, ErrStateLoadFailure.WithDetailsf("init schema in %s", path).WithCause(err)
	}

	logger.Info("Opened sqlite option store at %s", path)
	return &SQLiteOptionStore{db: db, logger: logger}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS wheel_options (
			wheel_id   TEXT PRIMARY KEY,
			options    TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the saved option set, or nil when nothing was saved
func (s *SQLiteOptionStore) Load(ctx context.Context, wheelID string) (OptionSet, error) {
	if err := ValidateWheelID(wheelID); err != nil {
		return nil, err
	}

	s.logger.Debug("Loading options for wheel=%s from sqlite", wheelID)

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT options FROM wheel_options WHERE wheel_id = ?", wheelID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to load options for wheel=%s: %v", wheelID, err)
		return nil, ErrStateLoadFailure.WithCause(err)
	}

	if len(data) > MaxSerializationSize {
		return nil, ErrStateCorrupted.WithDetailsf("stored size %d bytes exceeds %d", len(data), MaxSerializationSize)
	}
	return deserializeOptions([]byte(data))
}

// Save replaces the saved option set
func (s *SQLiteOptionStore) Save(ctx context.Context, wheelID string, options OptionSet) error {
	if err := ValidateWheelID(wheelID); err != nil {
		return err
	}

	data, err := serializeOptions(options)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wheel_options (wheel_id, options, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(wheel_id) DO UPDATE SET options = excluded.options, updated_at = excluded.updated_at`,
		wheelID, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.logger.Error("Failed to save options for wheel=%s: %v", wheelID, err)
		return ErrStateSaveFailure.WithCause(err)
	}

	s.logger.Debug("Saved %d options for wheel=%s to sqlite", len(options), wheelID)
	return nil
}

// Delete removes the saved option set
func (s *SQLiteOptionStore) Delete(ctx context.Context, wheelID string) error {
	if err := ValidateWheelID(wheelID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM wheel_options WHERE wheel_id = ?", wheelID); err != nil {
		return ErrStateSaveFailure.WithCause(err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteOptionStore) Close() error { return s.db.Close() }
