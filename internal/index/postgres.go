package index

import (
	"context"
	"fmt"
	"time"

	"github.com/cybertec-postgresql/rbxref/internal/database"
	"github.com/cybertec-postgresql/rbxref/internal/errors"
	"github.com/jackc/pgx/v5"
)

// PostgresStore keeps the index in PostgreSQL, shared by several
// indexers and searchers. Every committed change is announced on
// ChangeChannel.
type PostgresStore struct {
	pool       *database.Pool
	connString string
}

// OpenPostgres connects and migrates the schema.
func OpenPostgres(ctx context.Context, connString string, maxConns int) (*PostgresStore, error) {
	pool, err := database.NewPool(ctx, connString, maxConns)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, errors.NewStoreError("postgres", "open", err)
	}
	return &PostgresStore{pool: pool, connString: connString}, nil
}

// notify queues a change notification, delivered when tx commits.
func notify(ctx context.Context, tx pgx.Tx, c Change) error {
	_, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", ChangeChannel, c.String())
	return err
}

// Subscribe listens for changes committed by any client of the store.
func (s *PostgresStore) Subscribe(ctx context.Context) (*database.Listener, error) {
	return database.NewListener(ctx, s.connString, ChangeChannel)
}

func (s *PostgresStore) Name() string { return "postgres" }

// Save replaces all stored files in one transaction, copying symbols in bulk.
func (s *PostgresStore) Save(ctx context.Context, snap *Snapshot) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "TRUNCATE rbxref_symbols, rbxref_files, rbxref_meta"); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for k, v := range map[string]string{
			"version":   snap.Version,
			"run_id":    snap.RunID,
			"timestamp": snap.Timestamp.UTC().Format(time.RFC3339Nano),
			"root":      snap.Root,
		} {
			batch.Queue("INSERT INTO rbxref_meta (key, value) VALUES ($1, $2)", k, v)
		}
		for _, path := range snap.Paths() {
			f := snap.Files[path]
			batch.Queue("INSERT INTO rbxref_files (path, language, loc, lines, mod_time) VALUES ($1, $2, $3, $4, $5)",
				f.Path, f.Language, f.LOC, f.Lines, f.ModTime)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert files: %w", err)
		}

		if err := copySymbols(ctx, tx, snap.Paths(), snap.Files); err != nil {
			return err
		}
		return notify(ctx, tx, Change{Op: ChangeSave, Path: snap.RunID})
	})
	if err != nil {
		return errors.NewStoreError(s.Name(), "save", err)
	}
	return nil
}

func copySymbols(ctx context.Context, tx pgx.Tx, paths []string, files map[string]*FileEntry) error {
	var rows [][]any
	for _, path := range paths {
		for _, sym := range files[path].Symbols {
			rows = append(rows, []any{path, sym.Name, sym.Offset, sym.Line, sym.Keyword})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"rbxref_symbols"},
		[]string{"path", "name", "byte_offset", "line", "keyword"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy symbols: %w", err)
	}
	return nil
}

// Load reads the whole index back.
func (s *PostgresStore) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Files: make(map[string]*FileEntry)}

	rows, err := s.pool.Query(ctx, "SELECT key, value FROM rbxref_meta")
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	meta, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([2]string, error) {
		var kv [2]string
		err := row.Scan(&kv[0], &kv[1])
		return kv, err
	})
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	if len(meta) == 0 {
		return nil, errors.NewStoreError(s.Name(), "load", ErrNoIndex)
	}
	for _, kv := range meta {
		switch kv[0] {
		case "version":
			snap.Version = kv[1]
		case "run_id":
			snap.RunID = kv[1]
		case "root":
			snap.Root = kv[1]
		case "timestamp":
			snap.Timestamp, _ = time.Parse(time.RFC3339Nano, kv[1])
		}
	}

	rows, err = s.pool.Query(ctx, "SELECT path, language, loc, lines, mod_time FROM rbxref_files")
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	files, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*FileEntry, error) {
		var f FileEntry
		err := row.Scan(&f.Path, &f.Language, &f.LOC, &f.Lines, &f.ModTime)
		return &f, err
	})
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	for _, f := range files {
		snap.Files[f.Path] = f
	}

	rows, err = s.pool.Query(ctx,
		"SELECT path, name, byte_offset, line, keyword FROM rbxref_symbols ORDER BY path, byte_offset")
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	locs, err := pgx.CollectRows(rows, scanLocation)
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", err)
	}
	for _, loc := range locs {
		if f := snap.Files[loc.Path]; f != nil {
			f.Symbols = append(f.Symbols, loc.Symbol)
		}
	}
	return snap, nil
}

func scanLocation(row pgx.CollectableRow) (Location, error) {
	var loc Location
	err := row.Scan(&loc.Path, &loc.Name, &loc.Offset, &loc.Line, &loc.Keyword)
	return loc, err
}

// PutFile replaces one file and its symbols.
func (s *PostgresStore) PutFile(ctx context.Context, entry *FileEntry) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM rbxref_files WHERE path = $1", entry.Path); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO rbxref_files (path, language, loc, lines, mod_time) VALUES ($1, $2, $3, $4, $5)",
			entry.Path, entry.Language, entry.LOC, entry.Lines, entry.ModTime); err != nil {
			return err
		}
		if err := copySymbols(ctx, tx, []string{entry.Path}, map[string]*FileEntry{entry.Path: entry}); err != nil {
			return err
		}
		return notify(ctx, tx, Change{Op: ChangePut, Path: entry.Path})
	})
	if err != nil {
		return errors.NewStoreError(s.Name(), "put", err)
	}
	return nil
}

// DeleteFile removes one file; its symbols go with it.
func (s *PostgresStore) DeleteFile(ctx context.Context, path string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM rbxref_files WHERE path = $1", path); err != nil {
			return err
		}
		return notify(ctx, tx, Change{Op: ChangeDelete, Path: path})
	})
	if err != nil {
		return errors.NewStoreError(s.Name(), "delete", err)
	}
	return nil
}

// FindSymbol queries the name index.
func (s *PostgresStore) FindSymbol(ctx context.Context, name string) ([]Location, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT path, name, byte_offset, line, keyword FROM rbxref_symbols WHERE name = $1 ORDER BY path, byte_offset",
		NormalizeName(name))
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "find", err)
	}
	hits, err := pgx.CollectRows(rows, scanLocation)
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "find", err)
	}
	return hits, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
