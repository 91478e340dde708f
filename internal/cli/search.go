package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/cybertec-postgresql/rbxref/internal/index"
)

// Search prints every occurrence of name in the stored index, one
// path:line per row. The exit code is 1 when nothing matched.
func Search(ctx context.Context, cfg *Config, name string, out io.Writer) (int, error) {
	// Step 1: Open the index store
	store, err := index.Open(ctx, cfg)
	if err != nil {
		return 1, fmt.Errorf("failed to open index store: %w", err)
	}
	defer store.Close()

	// Step 2: Look up the symbol
	hits, err := store.FindSymbol(ctx, name)
	if stderrors.Is(err, index.ErrNoIndex) {
		return 1, fmt.Errorf("no index found in %s (run 'rbxref index' first)", describeStore(cfg))
	}
	if err != nil {
		return 1, fmt.Errorf("search failed: %w", err)
	}

	// Step 3: Print hits
	for _, h := range hits {
		kind := ""
		if h.Keyword {
			kind = " (keyword)"
		}
		fmt.Fprintf(out, "%s:%d: %s%s\n", h.Path, h.Line, h.Name, kind)
	}
	if len(hits) == 0 {
		return 1, nil
	}
	return 0, nil
}
