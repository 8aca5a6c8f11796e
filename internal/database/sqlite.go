package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Operation statuses recorded in the ledger.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SQLiteDatabase is the operation ledger. It also implements
// cemetery.Store over the documents table, so a host can keep its whole
// cemetery in one database file.
type SQLiteDatabase struct {
	db    *sql.DB
	clock cemetery.Clock
	path  string
}

// NewSQLiteDatabase opens the database at path and migrates it to the
// latest schema. path can be a file path or ":memory:".
func NewSQLiteDatabase(path string, clock cemetery.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		if !errors.Is(err, migrations.ErrNeedsMigration) {
			db.Close()
			return nil, fmt.Errorf("checking ledger schema: %w", err)
		}
		if err := migrations.MigrateUp(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating ledger: %w", err)
		}
	}

	return NewSQLiteDatabaseFromDB(db, clock, path), nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already migrated connection.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock cemetery.Clock, path string) *SQLiteDatabase {
	if clock == nil {
		clock = cemetery.RealClock{}
	}
	return &SQLiteDatabase{db: db, clock: clock, path: path}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Operation ledger

func (s *SQLiteDatabase) CreateOperation(operation string, parameters string) (*cemetery.Operation, error) {
	startedAt := s.clock.Now().UTC()
	res, err := s.db.Exec(
		"INSERT INTO operations (operation, parameters, started_at, status) VALUES (?, ?, ?, ?)",
		operation, parameters, startedAt, StatusRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &cemetery.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
		Status:     StatusRunning,
	}, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string, result *cemetery.ScanResult) error {
	var scanned, zombies int
	var message string
	if result != nil {
		scanned, zombies, message = result.Scanned, result.Zombies, result.Message
	}

	res, err := s.db.Exec(
		"UPDATE operations SET finished_at = ?, status = ?, scanned = ?, zombies = ?, message = ? WHERE id = ?",
		s.clock.Now().UTC(), status, scanned, zombies, message, id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
// A non-positive limit returns all of them.
func (s *SQLiteDatabase) ListOperations(limit int) ([]*cemetery.Operation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, operation, parameters, started_at, finished_at, status, scanned, zombies, message
		FROM operations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*cemetery.Operation
	for rows.Next() {
		var op cemetery.Operation
		var finishedAt sql.NullTime
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &finishedAt,
			&op.Status, &op.Scanned, &op.Zombies, &op.Message); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteDatabase) MaxOperationID() (int64, error) {
	var id int64
	if err := s.db.QueryRow("SELECT COALESCE(MAX(id), 0) FROM operations").Scan(&id); err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

// AdvanceOperationID makes sure the next operation ID is greater than
// minID. Used after restoring from an archive written by a ledger that
// had already reached minID.
func (s *SQLiteDatabase) AdvanceOperationID(minID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("advancing operation ID: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE sqlite_sequence SET seq = MAX(seq, ?) WHERE name = 'operations'", minID)
	if err != nil {
		return fmt.Errorf("advancing operation ID: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := tx.Exec("INSERT INTO sqlite_sequence (name, seq) VALUES ('operations', ?)", minID); err != nil {
			return fmt.Errorf("advancing operation ID: %w", err)
		}
	}
	return tx.Commit()
}

// Documents

func notExist(name string) error {
	return &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
}

// Read returns the stored document.
func (s *SQLiteDatabase) Read(name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM documents WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notExist(name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the stored document in a single statement.
func (s *SQLiteDatabase) Write(name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.Exec(`
		INSERT INTO documents (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data, s.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing document %s: %w", name, err)
	}
	return nil
}

// ModTime returns when the document was last written.
func (s *SQLiteDatabase) ModTime(name string) (time.Time, error) {
	var t time.Time
	err := s.db.QueryRow("SELECT updated_at FROM documents WHERE name = ?", name).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, notExist(name)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading document %s: %w", name, err)
	}
	return t, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var (
	_ cemetery.Ledger = (*SQLiteDatabase)(nil)
	_ cemetery.Store  = (*SQLiteDatabase)(nil)
)
