package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cybertec-postgresql/rbxref/internal/errors"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS files (
    path     TEXT PRIMARY KEY,
    language TEXT NOT NULL,
    loc      INTEGER NOT NULL,
    lines    INTEGER NOT NULL,
    mod_time INTEGER NOT NULL -- Unix nanoseconds
);

CREATE TABLE IF NOT EXISTS symbols (
    path        TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    byte_offset INTEGER NOT NULL,
    line        INTEGER NOT NULL,
    keyword     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_path ON symbols(path);
`

// SQLiteStore keeps the index in a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewStoreError("sqlite", "open", fmt.Errorf("failed to create database directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewStoreError("sqlite", "open", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.NewStoreError("sqlite", "open", fmt.Errorf("failed to set pragma: %w", err))
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, errors.NewStoreError("sqlite", "open", fmt.Errorf("failed to initialize schema: %w", err))
	}

	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Save replaces all stored files in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError(s.Name(), "save", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM symbols", "DELETE FROM files", "DELETE FROM meta"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.NewStoreError(s.Name(), "save", err)
		}
	}

	meta := map[string]string{
		"version":   snap.Version,
		"run_id":    snap.RunID,
		"timestamp": snap.Timestamp.UTC().Format(time.RFC3339Nano),
		"root":      snap.Root,
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return errors.NewStoreError(s.Name(), "save", err)
		}
	}

	for _, path := range snap.Paths() {
		if err := sqliteInsertFile(ctx, tx, snap.Files[path]); err != nil {
			return errors.NewStoreError(s.Name(), "save", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError(s.Name(), "save", err)
	}
	return nil
}

func sqliteInsertFile(ctx context.Context, tx *sql.Tx, f *FileEntry) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO files (path, language, loc, lines, mod_time) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Language, f.LOC, f.Lines, f.ModTime.UnixNano()); err != nil {
		return fmt.Errorf("failed to insert %s: %w", f.Path, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO symbols (path, name, byte_offset, line, keyword) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sym := range f.Symbols {
		if _, err := stmt.ExecContext(ctx, f.Path, sym.Name, sym.Offset, sym.Line, sym.Keyword); err != nil {
			return fmt.Errorf("failed to insert symbols of %s: %w", f.Path, err)
		}
	}
	return nil
}

// Load reads the whole index back.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Files: make(map[string]*FileEntry)}

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	found := false
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, errors.NewStoreError(s.Name(), "load", err)
		}
		found = true
		switch k {
		case "version":
			snap.Version = v
		case "run_id":
			snap.RunID = v
		case "root":
			snap.Root = v
		case "timestamp":
			snap.Timestamp, _ = time.Parse(time.RFC3339Nano, v)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	if !found {
		return nil, errors.NewStoreError(s.Name(), "load", fmt.Errorf("%w: %s", ErrNoIndex, s.path))
	}

	rows, err = s.db.QueryContext(ctx, "SELECT path, language, loc, lines, mod_time FROM files")
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	for rows.Next() {
		var f FileEntry
		var mod int64
		if err := rows.Scan(&f.Path, &f.Language, &f.LOC, &f.Lines, &mod); err != nil {
			rows.Close()
			return nil, errors.NewStoreError(s.Name(), "load", err)
		}
		f.ModTime = time.Unix(0, mod)
		snap.Files[f.Path] = &f
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT path, name, byte_offset, line, keyword FROM symbols ORDER BY path, byte_offset")
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		var sym Symbol
		if err := rows.Scan(&path, &sym.Name, &sym.Offset, &sym.Line, &sym.Keyword); err != nil {
			return nil, errors.NewStoreError(s.Name(), "load", err)
		}
		if f := snap.Files[path]; f != nil {
			f.Symbols = append(f.Symbols, sym)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	return snap, nil
}

// PutFile replaces one file and its symbols.
func (s *SQLiteStore) PutFile(ctx context.Context, entry *FileEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError(s.Name(), "put", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE path = ?", entry.Path); err != nil {
		return errors.NewStoreError(s.Name(), "put", err)
	}
	if err := sqliteInsertFile(ctx, tx, entry); err != nil {
		return errors.NewStoreError(s.Name(), "put", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStoreError(s.Name(), "put", err)
	}
	return nil
}

// DeleteFile removes one file; its symbols go with it.
func (s *SQLiteStore) DeleteFile(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE path = ?", path); err != nil {
		return errors.NewStoreError(s.Name(), "delete", err)
	}
	return nil
}

// FindSymbol queries the name index.
func (s *SQLiteStore) FindSymbol(ctx context.Context, name string) ([]Location, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, name, byte_offset, line, keyword FROM symbols WHERE name = ? ORDER BY path, byte_offset",
		NormalizeName(name))
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "find", err)
	}
	defer rows.Close()

	var hits []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.Path, &loc.Name, &loc.Offset, &loc.Line, &loc.Keyword); err != nil {
			return nil, errors.NewStoreError(s.Name(), "find", err)
		}
		hits = append(hits, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError(s.Name(), "find", err)
	}
	return hits, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
