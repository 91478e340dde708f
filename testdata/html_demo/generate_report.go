// Command generate_report indexes testdata/ruby and writes a demo HTML
// report with xref pages into testdata/html_demo/out.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cybertec-postgresql/rbxref/internal/cli"
)

func main() {
	out := filepath.Join("testdata", "html_demo", "out")
	cfg, err := cli.LoadConfig(filepath.Join("testdata", "ruby"), cli.Flags{
		IndexFile: filepath.Join(out, "index.json"),
		XrefDir:   filepath.Join(out, "xref"),
		Keywords:  true,
	})
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	if _, err := cli.Index(ctx, cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cli.Report(ctx, cfg, "html", filepath.Join(out, "index.html"), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Open", filepath.Join(out, "index.html"), "in a browser")
}
