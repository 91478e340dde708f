package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybertec-postgresql/rbxref/internal/errors"
	"github.com/cybertec-postgresql/rbxref/internal/testutil"
)

func TestStore_Postgres(t *testing.T) {
	connString, cleanup := testutil.SetupPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	s, err := OpenPostgres(ctx, connString, 2)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "postgres", s.Name())

	exerciseBackend(t, s)

	// Migrating an up-to-date schema is a no-op
	s2, err := OpenPostgres(ctx, connString, 1)
	require.NoError(t, err)
	got, err := s2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/a.rb"}, got.Paths())
	require.NoError(t, s2.Close())
}

func TestOpenPostgres_BadConnString(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "postgres://%zz", 1)
	require.Error(t, err)
	var ce *errors.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.NotEmpty(t, ce.Suggestion)
}

func TestStore_PostgresNotifications(t *testing.T) {
	connString, cleanup := testutil.SetupPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	s, err := OpenPostgres(ctx, connString, 2)
	require.NoError(t, err)
	defer s.Close()

	l, err := s.Subscribe(ctx)
	require.NoError(t, err)
	defer l.Close(ctx)

	require.NoError(t, s.PutFile(ctx, &FileEntry{Path: "lib/n.rb", Symbols: []Symbol{{Name: "N"}}}))
	require.NoError(t, s.DeleteFile(ctx, "lib/n.rb"))

	for _, want := range []Change{{Op: ChangePut, Path: "lib/n.rb"}, {Op: ChangeDelete, Path: "lib/n.rb"}} {
		n, err := l.Wait(ctx, 10*time.Second)
		require.NoError(t, err)
		got, err := ParseChange(n.Payload)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestStore_PostgresCloseReleasesPool(t *testing.T) {
	connString, cleanup := testutil.SetupPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	s, err := OpenPostgres(ctx, connString, 1)
	require.NoError(t, err)

	// The single pool connection must be free again once migrations ran
	qctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	hits, err := s.FindSymbol(qctx, "Missing")
	require.NoError(t, err)
	assert.Empty(t, hits)

	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return")
	}
}
