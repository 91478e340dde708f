package index

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cybertec-postgresql/rbxref/internal/errors"
)

// ErrNoIndex is returned (wrapped in a StoreError) by Load when nothing
// has been indexed yet.
var ErrNoIndex = stderrors.New("index not found")

// Backend persists snapshots and answers symbol lookups.
type Backend interface {
	// Name returns the backend name used in configuration and errors.
	Name() string

	// Save replaces the stored index with s.
	Save(ctx context.Context, s *Snapshot) error

	// Load returns the stored index.
	Load(ctx context.Context) (*Snapshot, error)

	// PutFile adds or replaces one file of the stored index.
	PutFile(ctx context.Context, entry *FileEntry) error

	// DeleteFile removes one file from the stored index.
	DeleteFile(ctx context.Context, path string) error

	// FindSymbol returns all occurrences of name, ordered by path and offset.
	FindSymbol(ctx context.Context, name string) ([]Location, error)

	Close() error
}

// Store handles persistence of the index as one JSON file
type Store struct {
	// Root is recorded in the snapshot PutFile creates when no index exists yet.
	Root string

	filePath string
	mu       sync.Mutex
}

// NewStore creates a new JSON index store
func NewStore(filePath string) *Store {
	return &Store{
		filePath: filePath,
	}
}

func (s *Store) Name() string { return "json" }

// Save writes the snapshot to disk as JSON
func (s *Store) Save(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(snap)
}

func (s *Store) save(snap *Snapshot) error {
	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewStoreError(s.Name(), "save", fmt.Errorf("failed to create directory %s: %w", dir, err))
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.NewStoreError(s.Name(), "save", fmt.Errorf("failed to marshal index: %w", err))
	}

	// Write a sibling file, then rename over the index
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.NewStoreError(s.Name(), "save", fmt.Errorf("failed to write index file: %w", err))
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return errors.NewStoreError(s.Name(), "save", fmt.Errorf("failed to replace index file: %w", err))
	}
	return nil
}

// Load reads the snapshot from disk
func (s *Store) Load(_ context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*Snapshot, error) {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil, errors.NewStoreError(s.Name(), "load", fmt.Errorf("%w: %s", ErrNoIndex, s.filePath))
	}
	if err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", fmt.Errorf("failed to read index file: %w", err))
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.NewStoreError(s.Name(), "load", fmt.Errorf("failed to parse index file: %w", err))
	}
	if snap.Files == nil {
		snap.Files = make(map[string]*FileEntry)
	}
	return &snap, nil
}

// PutFile rewrites the index with entry added. A missing index starts empty.
func (s *Store) PutFile(_ context.Context, entry *FileEntry) error {
	return s.update(func(snap *Snapshot) { snap.Put(entry) })
}

// DeleteFile rewrites the index without path.
func (s *Store) DeleteFile(_ context.Context, path string) error {
	return s.update(func(snap *Snapshot) { snap.Delete(path) })
}

func (s *Store) update(fn func(*Snapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if stderrors.Is(err, ErrNoIndex) {
		snap, err = NewSnapshot(s.Root), nil
	}
	if err != nil {
		return err
	}
	fn(snap)
	return s.save(snap)
}

// FindSymbol loads the index and searches it.
func (s *Store) FindSymbol(ctx context.Context, name string) ([]Location, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Find(name), nil
}

// Exists checks if the index file exists
func (s *Store) Exists() bool {
	_, err := os.Stat(s.filePath)
	return err == nil
}

// Delete removes the index file
func (s *Store) Delete() error {
	if !s.Exists() {
		return nil
	}
	return os.Remove(s.filePath)
}

// Path returns the file path where the index is stored
func (s *Store) Path() string {
	return s.filePath
}

func (s *Store) Close() error { return nil }
