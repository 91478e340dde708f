package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	urfavecli "github.com/urfave/cli/v3"

	"github.com/cybertec-postgresql/rbxref/internal/cli"
	"github.com/cybertec-postgresql/rbxref/internal/logger"
	"github.com/cybertec-postgresql/rbxref/pkg/types"
)

const version = "1.0.0"

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

// exitError carries a non-zero exit code out of a command action.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

var configFlags = []urfavecli.Flag{
	&urfavecli.StringFlag{
		Name:  "config",
		Usage: "Config file (default: <root>/" + cli.ConfigFileName + ")",
	},
	&urfavecli.StringFlag{
		Name:  "store",
		Usage: "Index backend (json, sqlite, or postgres)",
	},
	&urfavecli.StringFlag{
		Name:  "index-file",
		Usage: "Index file for the json and sqlite backends (default: <root>/.rbxref/index.json)",
	},
	&urfavecli.StringFlag{
		Name:    "connection",
		Aliases: []string{"c"},
		Usage:   "PostgreSQL connection string (URI or key=value format) for the postgres backend",
	},
	&urfavecli.StringSliceFlag{
		Name:  "language",
		Usage: "Only index files of this language (repeatable)",
	},
	&urfavecli.StringSliceFlag{
		Name:  "ignore",
		Usage: "Additional ignore pattern (repeatable)",
	},
	&urfavecli.Int64Flag{
		Name:  "max-file-size",
		Usage: "Skip files larger than this many bytes",
	},
	&urfavecli.StringFlag{
		Name:  "log-format",
		Usage: "Log output format (console or json)",
	},
	&urfavecli.BoolFlag{
		Name:  "verbose",
		Usage: "Enable debug output",
	},
}

var scanFlags = []urfavecli.Flag{
	&urfavecli.DurationFlag{
		Name:  "timeout",
		Usage: "Per-file scan timeout",
	},
	&urfavecli.IntFlag{
		Name:  "parallel",
		Usage: "Maximum concurrent file scans (1 = sequential)",
	},
	&urfavecli.BoolFlag{
		Name:  "keywords",
		Usage: "Index keyword occurrences too",
	},
	&urfavecli.StringFlag{
		Name:  "xref-dir",
		Usage: "Write an HTML xref page per file into this directory",
	},
}

func flags(extra ...[]urfavecli.Flag) []urfavecli.Flag {
	all := append([]urfavecli.Flag(nil), configFlags...)
	for _, e := range extra {
		all = append(all, e...)
	}
	return all
}

func main() {
	app := &urfavecli.Command{
		Name:    "rbxref",
		Usage:   "Ruby-aware source cross-reference indexer",
		Version: version,
		Commands: []*urfavecli.Command{
			{
				Name:      "index",
				Usage:     "Scan a source tree and store its symbol index",
				ArgsUsage: "[root]",
				Action:    indexCommand,
				Flags:     flags(scanFlags),
			},
			{
				Name:      "watch",
				Usage:     "Index a source tree and keep the index current as files change",
				ArgsUsage: "[root]",
				Action:    watchCommand,
				Flags: flags(scanFlags, []urfavecli.Flag{
					&urfavecli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period before a changed file is re-indexed",
					},
				}),
			},
			{
				Name:      "search",
				Usage:     "Print all occurrences of a symbol",
				ArgsUsage: "<name>",
				Action:    searchCommand,
				Flags: flags([]urfavecli.Flag{
					&urfavecli.StringFlag{
						Name:  "root",
						Usage: "Source tree the index belongs to",
						Value: ".",
					},
				}),
			},
			{
				Name:      "report",
				Usage:     "Generate a report from the stored index",
				ArgsUsage: "[root]",
				Action:    reportCommand,
				Flags: flags([]urfavecli.Flag{
					&urfavecli.StringFlag{
						Name:  "format",
						Usage: "Output format (json, ctags, or html)",
						Value: "json",
					},
					&urfavecli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (use - for stdout)",
						Value:   "-",
					},
					&urfavecli.StringFlag{
						Name:  "xref-dir",
						Usage: "Link html report entries to xref pages in this directory",
					},
				}),
			},
			{
				Name:      "xref",
				Usage:     "Render the HTML xref page of one file",
				ArgsUsage: "<file>",
				Action:    xrefCommand,
				Flags: flags([]urfavecli.Flag{
					&urfavecli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (use - for stdout)",
						Value:   "-",
					},
				}),
			},
			{
				Name:   "follow",
				Usage:  "Print index changes committed to a shared postgres store",
				Action: followCommand,
				Flags:  flags(),
			},
			{
				Name:      "dump",
				Usage:     "Print the raw scanner output of one file",
				ArgsUsage: "<file>",
				Action:    dumpCommand,
				Flags:     flags(),
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()

	if err == nil {
		return
	}
	var ee *exitError
	if stderrors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ee.err)
		}
		os.Exit(ee.code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitFailed)
}

// loadConfig builds and validates the configuration of a command and sets
// up logging.
func loadConfig(cmd *urfavecli.Command, root string) (*cli.Config, error) {
	config, err := cli.LoadConfig(root, cli.Flags{
		ConfigFile:  cmd.String("config"),
		Store:       cmd.String("store"),
		IndexFile:   cmd.String("index-file"),
		Connection:  cmd.String("connection"),
		XrefDir:     cmd.String("xref-dir"),
		LogFormat:   cmd.String("log-format"),
		Languages:   cmd.StringSlice("language"),
		Ignore:      cmd.StringSlice("ignore"),
		MaxFileSize: cmd.Int64("max-file-size"),
		Parallel:    cmd.Int("parallel"),
		Timeout:     cmd.Duration("timeout"),
		Debounce:    cmd.Duration("debounce"),
		Keywords:    cmd.Bool("keywords"),
		Verbose:     cmd.Bool("verbose"),
	})
	if err == nil {
		err = config.Validate()
	}
	if err != nil {
		var ce *types.ConfigError
		if stderrors.As(err, &ce) {
			return nil, &exitError{code: exitConfig, err: err}
		}
		return nil, err
	}

	logger.SetDefault(logger.NewWithFormat(config.Verbose, os.Stderr, config.LogFormat))
	return config, nil
}

func rootArg(cmd *urfavecli.Command) string {
	if root := cmd.Args().First(); root != "" {
		return root
	}
	return "."
}

func requireArg(cmd *urfavecli.Command, name string) (string, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return "", &exitError{code: exitConfig, err: fmt.Errorf("missing %s argument", name)}
	}
	return arg, nil
}

func withCode(code int, err error) error {
	if err != nil {
		return err
	}
	if code != exitOK {
		return &exitError{code: code}
	}
	return nil
}

// indexCommand handles the 'rbxref index' command
func indexCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config, err := loadConfig(cmd, rootArg(cmd))
	if err != nil {
		return err
	}
	return withCode(cli.Index(ctx, config, os.Stdout))
}

// watchCommand handles the 'rbxref watch' command
func watchCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config, err := loadConfig(cmd, rootArg(cmd))
	if err != nil {
		return err
	}
	code, err := cli.Watch(ctx, config, os.Stdout)
	if err != nil {
		return err
	}
	// Stopping by signal after a clean initial index is a success
	return withCode(code, nil)
}

// searchCommand handles the 'rbxref search' command
func searchCommand(ctx context.Context, cmd *urfavecli.Command) error {
	name, err := requireArg(cmd, "symbol name")
	if err != nil {
		return err
	}
	config, err := loadConfig(cmd, cmd.String("root"))
	if err != nil {
		return err
	}
	return withCode(cli.Search(ctx, config, name, os.Stdout))
}

// reportCommand handles the 'rbxref report' command
func reportCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config, err := loadConfig(cmd, rootArg(cmd))
	if err != nil {
		return err
	}
	return cli.Report(ctx, config, cmd.String("format"), cmd.String("output"), os.Stdout)
}

// xrefCommand handles the 'rbxref xref' command
func xrefCommand(ctx context.Context, cmd *urfavecli.Command) error {
	path, err := requireArg(cmd, "file")
	if err != nil {
		return err
	}
	config, err := loadConfig(cmd, ".")
	if err != nil {
		return err
	}
	return cli.Xref(ctx, config, path, cmd.String("output"), os.Stdout)
}

// dumpCommand handles the 'rbxref dump' command
func dumpCommand(ctx context.Context, cmd *urfavecli.Command) error {
	path, err := requireArg(cmd, "file")
	if err != nil {
		return err
	}
	config, err := loadConfig(cmd, ".")
	if err != nil {
		return err
	}
	return cli.Dump(ctx, config, path, os.Stdout)
}

// followCommand handles the 'rbxref follow' command
func followCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config, err := loadConfig(cmd, ".")
	if err != nil {
		return err
	}
	if err := cli.Follow(ctx, config, os.Stdout); err != nil {
		var ce *types.ConfigError
		if stderrors.As(err, &ce) {
			return &exitError{code: exitConfig, err: err}
		}
		return err
	}
	return nil
}
