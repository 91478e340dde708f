package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybertec-postgresql/rbxref/internal/errors"
	"github.com/cybertec-postgresql/rbxref/pkg/types"
)

func sampleSnapshot() *Snapshot {
	s := NewSnapshot("/src")
	s.Timestamp = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Put(&FileEntry{
		Path:     "lib/a.rb",
		Language: "ruby",
		LOC:      3,
		Lines:    4,
		ModTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Symbols: []Symbol{
			{Name: "Foo", Offset: 6, Line: 1},
			{Name: "bar", Offset: 16, Line: 2},
			{Name: "Foo", Offset: 40, Line: 3},
		},
	})
	s.Put(&FileEntry{
		Path:     "app.rb",
		Language: "ruby",
		LOC:      1,
		Lines:    1,
		ModTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Symbols:  []Symbol{{Name: "Foo", Offset: 0, Line: 1}},
	})
	return s
}

// ── Snapshot ────────────────────────────────────────────────────────────

func TestSnapshot(t *testing.T) {
	s := sampleSnapshot()

	assert.Equal(t, SchemaVersion, s.Version)
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, []string{"app.rb", "lib/a.rb"}, s.Paths())
	assert.Equal(t, 4, s.TotalLOC())
	assert.Equal(t, 4, s.SymbolCount())

	hits := s.Find("Foo")
	require.Len(t, hits, 3)
	assert.Equal(t, "app.rb", hits[0].Path)
	assert.Equal(t, "lib/a.rb", hits[1].Path)
	assert.Equal(t, 40, hits[2].Offset)

	s.Delete("app.rb")
	assert.Len(t, s.Find("Foo"), 2)
	assert.Empty(t, s.Find("missing"))
}

func TestSnapshot_FindNormalizes(t *testing.T) {
	s := NewSnapshot("")
	s.Put(&FileEntry{Path: "x.rb", Symbols: []Symbol{{Name: NormalizeName("cafe\u0301")}}})
	assert.Len(t, s.Find("caf\u00e9"), 1)
	assert.Len(t, s.Find("cafe\u0301"), 1)
}

func TestSortLocations(t *testing.T) {
	locs := []Location{
		{Path: "b", Symbol: Symbol{Offset: 1}},
		{Path: "a", Symbol: Symbol{Offset: 9}},
		{Path: "a", Symbol: Symbol{Offset: 2}},
	}
	SortLocations(locs)
	assert.Equal(t, "a", locs[0].Path)
	assert.Equal(t, 2, locs[0].Offset)
	assert.Equal(t, "b", locs[2].Path)
}

// ── Backends ────────────────────────────────────────────────────────────

// exerciseBackend runs the same scenario against any backend.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Load(ctx)
	require.ErrorIs(t, err, ErrNoIndex)

	snap := sampleSnapshot()
	require.NoError(t, b.Save(ctx, snap))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.RunID, got.RunID)
	assert.Equal(t, snap.Root, got.Root)
	assert.True(t, snap.Timestamp.Equal(got.Timestamp))
	require.Equal(t, snap.Paths(), got.Paths())
	a := got.Files["lib/a.rb"]
	assert.Equal(t, 3, a.LOC)
	assert.Equal(t, 4, a.Lines)
	assert.True(t, a.ModTime.Equal(snap.Files["lib/a.rb"].ModTime))
	assert.Equal(t, snap.Files["lib/a.rb"].Symbols, a.Symbols)

	hits, err := b.FindSymbol(ctx, "Foo")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "app.rb", hits[0].Path)
	assert.Equal(t, 6, hits[1].Offset)

	require.NoError(t, b.PutFile(ctx, &FileEntry{
		Path:     "lib/a.rb",
		Language: "ruby",
		LOC:      1,
		Lines:    1,
		ModTime:  time.Now(),
		Symbols:  []Symbol{{Name: "baz", Offset: 4, Line: 1}},
	}))
	hits, err = b.FindSymbol(ctx, "Foo")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	hits, err = b.FindSymbol(ctx, "baz")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	require.NoError(t, b.DeleteFile(ctx, "app.rb"))
	hits, err = b.FindSymbol(ctx, "Foo")
	require.NoError(t, err)
	assert.Empty(t, hits)

	got, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/a.rb"}, got.Paths())
}

func TestStore_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.json")
	s := NewStore(path)
	assert.False(t, s.Exists())
	assert.Equal(t, "json", s.Name())

	exerciseBackend(t, s)

	assert.True(t, s.Exists())
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must be renamed away")

	require.NoError(t, s.Delete())
	assert.False(t, s.Exists())
	require.NoError(t, s.Delete())
}

func TestStore_JSONCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewStore(path).Load(context.Background())
	require.Error(t, err)
	var se *errors.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load", se.Op)
}

func TestStore_JSONPutFileStartsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "index.json"))
	s.Root = "/src/app"
	ctx := context.Background()
	require.NoError(t, s.PutFile(ctx, &FileEntry{Path: "a.rb", Symbols: []Symbol{{Name: "x"}}}))

	hits, err := s.FindSymbol(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/src/app", snap.Root)
	assert.NotEmpty(t, snap.RunID)
}

func TestStore_SQLite(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "index.sqlite"))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "sqlite", s.Name())

	exerciseBackend(t, s)
}

func TestStore_SQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.sqlite")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleSnapshot()))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, got.SymbolCount())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := Open(ctx, &types.Config{Store: types.StoreJSON, Root: ".", IndexFile: filepath.Join(dir, "i.json")})
	require.NoError(t, err)
	assert.Equal(t, "json", b.Name())
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, b.(*Store).Root)

	b, err = Open(ctx, &types.Config{Store: types.StoreSQLite, IndexFile: filepath.Join(dir, "i.db")})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", b.Name())
	require.NoError(t, b.Close())

	_, err = Open(ctx, &types.Config{Store: "redis"})
	var ce *types.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "store", ce.Field)
}

func TestParseChange(t *testing.T) {
	tests := []struct {
		payload string
		want    Change
		wantErr bool
	}{
		{"put:lib/a.rb", Change{Op: ChangePut, Path: "lib/a.rb"}, false},
		{"delete:x:y.rb", Change{Op: ChangeDelete, Path: "x:y.rb"}, false},
		{"save:run-1", Change{Op: ChangeSave, Path: "run-1"}, false},
		{"put", Change{}, true},
		{"rename:a", Change{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, err := ParseChange(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.payload, got.String())
		})
	}
}
