package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates) the ledger at dbPath.
// Use ":memory:" for an in-memory ledger.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, errors.WrapError(err, errors.CategoryLedger, "create ledger directory").
				WithContext("path", dbPath).Build()
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryLedger, "open ledger database").
			WithContext("path", dbPath).Build()
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryLedger, "initialize ledger schema").Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bundles (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		path TEXT NOT NULL,
		images INTEGER NOT NULL,
		tags TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bundles_created_at ON bundles(created_at);
	CREATE INDEX IF NOT EXISTS idx_bundles_fingerprint ON bundles(fingerprint);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a record to the ledger.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.ValidationError("ledger record requires an id").Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var tagsJSON []byte
	if len(rec.Tags) > 0 {
		var err error
		tagsJSON, err = json.Marshal(rec.Tags)
		if err != nil {
			return errors.WrapError(err, errors.CategoryLedger, "marshal tags").Build()
		}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO bundles (id, title, fingerprint, path, images, tags, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.Title, rec.Fingerprint, rec.Path, rec.Images, tagsJSON, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryLedger, "insert bundle record").
			WithContext("id", rec.ID).Build()
	}
	return nil
}

// List returns up to limit records, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, fingerprint, path, images, tags, created_at FROM bundles ORDER BY created_at DESC, seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryLedger, "query bundle records").Build()
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryLedger, "iterate bundle records").Build()
	}
	return records, nil
}

// Get returns the record with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, fingerprint, path, images, tags, created_at FROM bundles WHERE id = ?",
		id,
	)
	rec, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Record{}, errors.NotFoundError("bundle not found").WithContext("id", id).Build()
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec      Record
		tagsJSON []byte
		created  int64
	)
	if err := row.Scan(&rec.ID, &rec.Title, &rec.Fingerprint, &rec.Path, &rec.Images, &tagsJSON, &created); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, errors.WrapError(err, errors.CategoryLedger, "scan bundle record").Build()
	}
	rec.CreatedAt = time.Unix(0, created)
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &rec.Tags); err != nil {
			return Record{}, errors.WrapError(err, errors.CategoryLedger, "unmarshal tags").
				WithContext("id", rec.ID).Build()
		}
	}
	return rec, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
