package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybertec-postgresql/rbxref/internal/analysis"
	"github.com/cybertec-postgresql/rbxref/internal/discovery"
	"github.com/cybertec-postgresql/rbxref/internal/index"
)

type harness struct {
	root    string
	store   *index.Store
	updates chan Update
}

func startWatcher(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		root:    t.TempDir(),
		store:   index.NewStore(filepath.Join(t.TempDir(), "index.json")),
		updates: make(chan Update, 64),
	}
	h.store.Root = h.root
	require.NoError(t, os.MkdirAll(filepath.Join(h.root, "lib"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(h.root, "tmp"), 0755))

	reg := analysis.NewRegistry(0, nil)
	w, err := New(h.root, Options{
		Discovery: discovery.Options{Ignore: discovery.DefaultIgnore, Classify: reg.Classify},
		Registry:  reg,
		Store:     h.store,
		Debounce:  20 * time.Millisecond,
		Timeout:   10 * time.Second,
		OnUpdate: func(u Update) {
			select {
			case h.updates <- u:
			default:
			}
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return h
}

func (h *harness) write(t *testing.T, rel, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.root, filepath.FromSlash(rel)), []byte(content), 0644))
}

// next waits for an update of rel matching want, skipping all others.
// A single save can produce more than one debounced update.
func (h *harness) next(t *testing.T, rel string, want func(Update) bool) Update {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case u := <-h.updates:
			if u.Path == rel && (want == nil || want(u)) {
				return u
			}
		case <-deadline:
			t.Fatalf("no update for %s", rel)
		}
	}
}

func (h *harness) find(t *testing.T, name string) []index.Location {
	t.Helper()
	hits, err := h.store.FindSymbol(context.Background(), name)
	require.NoError(t, err)
	return hits
}

func TestWatcher_CreateModifyRemove(t *testing.T) {
	h := startWatcher(t)

	h.write(t, "lib/a.rb", "class Alpha\nend\n")
	u := h.next(t, "lib/a.rb", func(u Update) bool { return u.Entry != nil && len(u.Entry.Symbols) == 1 })
	require.NoError(t, u.Err)
	assert.False(t, u.Removed)
	assert.Len(t, h.find(t, "Alpha"), 1)
	snap, err := h.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, h.root, snap.Root)

	h.write(t, "lib/a.rb", "class Beta\nend\n")
	u = h.next(t, "lib/a.rb", func(u Update) bool {
		return u.Entry != nil && len(u.Entry.Symbols) == 1 && u.Entry.Symbols[0].Name == "Beta"
	})
	require.NoError(t, u.Err)
	assert.Empty(t, h.find(t, "Alpha"))
	assert.Len(t, h.find(t, "Beta"), 1)

	require.NoError(t, os.Remove(filepath.Join(h.root, "lib", "a.rb")))
	u = h.next(t, "lib/a.rb", func(u Update) bool { return u.Removed })
	require.NoError(t, u.Err)
	assert.Empty(t, h.find(t, "Beta"))
}

func TestWatcher_NewDirectory(t *testing.T) {
	h := startWatcher(t)

	require.NoError(t, os.MkdirAll(filepath.Join(h.root, "app", "models"), 0755))
	h.write(t, "app/models/user.rb", "class User; end\n")

	require.NoError(t, h.next(t, "app/models/user.rb", func(u Update) bool { return u.Entry != nil && len(u.Entry.Symbols) == 1 }).Err)
	assert.Len(t, h.find(t, "User"), 1)

	require.NoError(t, os.RemoveAll(filepath.Join(h.root, "app")))
	require.Eventually(t, func() bool {
		hits, err := h.store.FindSymbol(context.Background(), "User")
		return err == nil && len(hits) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresSkippedFiles(t *testing.T) {
	h := startWatcher(t)

	h.write(t, "tmp/scratch.rb", "class Scratch; end\n")
	h.write(t, "notes.zzqqxx", "Scratch")
	h.write(t, "lib/b.rb", "class Bravo; end\n")

	require.NoError(t, h.next(t, "lib/b.rb", nil).Err)
	assert.Empty(t, h.find(t, "Scratch"))
}

func TestWatcher_Due(t *testing.T) {
	w := &Watcher{opts: Options{Debounce: time.Second}, pending: make(map[string]time.Time)}
	now := time.Now()
	w.pending["old"] = now.Add(-2 * time.Second)
	w.pending["fresh"] = now

	assert.Equal(t, []string{"old"}, w.due(now))
	assert.Len(t, w.pending, 1)
	assert.Equal(t, []string{"fresh"}, w.due(now.Add(time.Second)))
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), Options{})
	assert.Error(t, err)
}
