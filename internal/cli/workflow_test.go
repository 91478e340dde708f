package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cybertec-postgresql/rbxref/pkg/types"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func sampleTree(t *testing.T) string {
	return writeTree(t, map[string]string{
		"lib/user.rb":      "class User\n  def name\n    @name\n  end\nend\n",
		"app.rb":           "require 'lib/user'\nUser.new.name\n",
		"tmp/cache.rb":     "class Cached; end\n",
		"cmd/tool/main.go": "package main\n\nfunc main() {}\n",
	})
}

func loadTestConfig(t *testing.T, root string, flags Flags) *Config {
	t.Helper()
	cfg, err := LoadConfig(root, flags)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid config: %v", err)
	}
	return cfg
}

func TestIndexAndSearch(t *testing.T) {
	for _, store := range []string{types.StoreJSON, types.StoreSQLite} {
		t.Run(store, func(t *testing.T) {
			root := sampleTree(t)
			cfg := loadTestConfig(t, root, Flags{Store: store, Parallel: 2})
			ctx := context.Background()

			var out bytes.Buffer
			code, err := Index(ctx, cfg, &out)
			if err != nil || code != 0 {
				t.Fatalf("Index failed: code=%d err=%v\n%s", code, err, out.String())
			}
			for _, want := range []string{"3 indexed", "3 total", "Index written to"} {
				if !strings.Contains(out.String(), want) {
					t.Errorf("summary missing %q:\n%s", want, out.String())
				}
			}

			out.Reset()
			code, err = Search(ctx, cfg, "User", &out)
			if err != nil || code != 0 {
				t.Fatalf("Search failed: code=%d err=%v", code, err)
			}
			want := "app.rb:2: User\nlib/user.rb:1: User\n"
			if out.String() != want {
				t.Errorf("Search output = %q, want %q", out.String(), want)
			}

			out.Reset()
			if code, err := Search(ctx, cfg, "Cached", &out); err != nil || code != 1 {
				t.Errorf("ignored files must not be indexed: code=%d err=%v out=%q", code, err, out.String())
			}
		})
	}
}

func TestIndex_Empty(t *testing.T) {
	cfg := loadTestConfig(t, writeTree(t, map[string]string{"README.zzqqxx": "x"}), Flags{})

	var out bytes.Buffer
	code, err := Index(context.Background(), cfg, &out)
	if err != nil || code != 0 {
		t.Fatalf("Index failed: code=%d err=%v", code, err)
	}
	if !strings.Contains(out.String(), "No source files found") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestIndex_Cancelled(t *testing.T) {
	cfg := loadTestConfig(t, sampleTree(t), Flags{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, err := Index(ctx, cfg, &bytes.Buffer{})
	if err == nil || code != 1 {
		t.Errorf("expected interrupted error, got code=%d err=%v", code, err)
	}
	if _, statErr := os.Stat(cfg.IndexFile); !os.IsNotExist(statErr) {
		t.Error("an interrupted run must not write the index")
	}
}

func TestIndex_Xref(t *testing.T) {
	root := sampleTree(t)
	xrefDir := filepath.Join(t.TempDir(), "xref")
	cfg := loadTestConfig(t, root, Flags{XrefDir: xrefDir, Parallel: 1})

	if code, err := Index(context.Background(), cfg, &bytes.Buffer{}); err != nil || code != 0 {
		t.Fatalf("Index failed: code=%d err=%v", code, err)
	}
	for _, rel := range []string{"lib/user.rb.html", "app.rb.html", "cmd/tool/main.go.html"} {
		if _, err := os.Stat(filepath.Join(xrefDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing xref page %s: %v", rel, err)
		}
	}

	reportPath := filepath.Join(filepath.Dir(xrefDir), "report.html")
	if err := Report(context.Background(), cfg, "html", reportPath, &bytes.Buffer{}); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	page, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), `<a href="xref/lib/user.rb.html">lib/user.rb</a>`) {
		t.Errorf("report does not link xref pages:\n%s", page)
	}
}

func TestSearch_NoIndex(t *testing.T) {
	cfg := loadTestConfig(t, t.TempDir(), Flags{})

	_, err := Search(context.Background(), cfg, "x", &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "run 'rbxref index' first") {
		t.Errorf("expected missing index error, got %v", err)
	}
	err = Report(context.Background(), cfg, "json", "-", &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "run 'rbxref index' first") {
		t.Errorf("expected missing index error, got %v", err)
	}
}

func TestReport_Formats(t *testing.T) {
	cfg := loadTestConfig(t, sampleTree(t), Flags{})
	ctx := context.Background()
	if _, err := Index(ctx, cfg, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		format string
		want   string
	}{
		{"json", `"path": "lib/user.rb"`},
		{"ctags", "User\tlib/user.rb\t1;\""},
		{"html", "<td>lib/user.rb</td>"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			if err := Report(ctx, cfg, tt.format, "-", &out); err != nil {
				t.Fatalf("Report failed: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("expected %q in output", tt.want)
			}
		})
	}

	if err := Report(ctx, cfg, "lcov", "-", &bytes.Buffer{}); err == nil {
		t.Error("expected unsupported format error")
	}
}

func TestXrefAndDump(t *testing.T) {
	root := sampleTree(t)
	cfg := loadTestConfig(t, root, Flags{})
	path := filepath.Join(root, "lib", "user.rb")

	var out bytes.Buffer
	if err := Xref(context.Background(), cfg, path, "-", &out); err != nil {
		t.Fatalf("Xref failed: %v", err)
	}
	if !strings.Contains(out.String(), "<title>lib/user.rb</title>") {
		t.Errorf("unexpected page title:\n%s", out.String())
	}

	out.Reset()
	if err := Dump(context.Background(), cfg, path, &out); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	if !strings.Contains(out.String(), `symbol  "User" @6`) {
		t.Errorf("unexpected dump:\n%s", out.String())
	}

	if err := Dump(context.Background(), cfg, filepath.Join(root, "missing.rb"), &out); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWatch(t *testing.T) {
	root := sampleTree(t)
	cfg := loadTestConfig(t, root, Flags{Debounce: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Watch(ctx, cfg, &bytes.Buffer{})
		done <- err
	}()

	// The initial index exists before the watcher sees changes
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(cfg.IndexFile); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("initial index not written")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancellation")
	}
}

func TestFollow_RequiresPostgres(t *testing.T) {
	cfg := loadTestConfig(t, t.TempDir(), Flags{})

	err := Follow(context.Background(), cfg, &bytes.Buffer{})
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("expected ConfigError, got %T (%v)", err, err)
	}
}
