package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/chatctx/internal/config"
	"github.com/hpungsan/chatctx/internal/errors"
	"github.com/hpungsan/chatctx/internal/logging"
	"github.com/hpungsan/chatctx/internal/ops"
)

// cliEnv carries dependencies shared by every command.
// The logger is built in Before once --verbose has been parsed.
type cliEnv struct {
	db  *sql.DB
	cfg *config.Config
	log *zap.Logger
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	env := &cliEnv{db: db, cfg: cfg, log: zap.NewNop()}

	app := &cli.App{
		Name:    "chatctx",
		Usage:   "Context windows around matching chat messages",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", EnvVars: []string{"CHATCTX_VERBOSE"}, Usage: "Debug logging on stderr"},
		},
		Before: func(c *cli.Context) error {
			log, err := logging.New(c.Bool("verbose"))
			if err != nil {
				return err
			}
			env.log = log
			return nil
		},
		After: func(c *cli.Context) error {
			_ = env.log.Sync()
			return nil
		},
		Commands: []*cli.Command{
			extractCmd(env),
			scanCmd(env),
			historyCmd(env),
			showCmd(env),
			purgeCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// sourceFlags are shared by extract and scan.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory (default from config)"},
		&cli.StringSliceFlag{Name: "predicate", Aliases: []string{"p"}, Usage: "Case-insensitive substring selecting messages (repeatable)"},
		&cli.IntFlag{Name: "window", Aliases: []string{"w"}, Usage: "Messages kept before and after each match"},
	}
}

// sourceInput builds the source from the positional file argument ("-" reads stdin).
func sourceInput(c *cli.Context) (ops.SourceInput, error) {
	if c.NArg() != 1 {
		return ops.SourceInput{}, errors.NewInvalidRequest("exactly one export file is required")
	}

	input := ops.SourceInput{
		OutputDir:  c.String("out"),
		Predicates: c.StringSlice("predicate"),
	}
	if c.IsSet("window") {
		w := c.Int("window")
		input.HalfWindow = &w
	}

	path := c.Args().First()
	if path != "-" {
		input.Path = path
		return input, nil
	}

	if !stdinHasData() {
		return ops.SourceInput{}, errors.NewInvalidRequest("export content must be piped via stdin")
	}
	doc, err := readStdin()
	if err != nil {
		return ops.SourceInput{}, errors.NewInternal(err)
	}
	input.Document = doc
	return input, nil
}

// extractCmd creates the extract command.
func extractCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Write one context document per matching message",
		ArgsUsage: "<export.html|->",
		Flags: append(sourceFlags(),
			&cli.IntFlag{Name: "workers", Usage: "Concurrent writes (default from config)"},
			&cli.BoolFlag{Name: "skip-index", Usage: "Do not write index.html"},
		),
		Action: func(c *cli.Context) error {
			src, err := sourceInput(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Extract(c.Context, env.db, env.cfg, env.log, ops.ExtractInput{
				SourceInput: src,
				Workers:     c.Int("workers"),
				SkipIndex:   c.Bool("skip-index"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// scanCmd creates the scan command.
func scanCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Report matches and windows without writing files",
		ArgsUsage: "<export.html|->",
		Flags:     sourceFlags(),
		Action: func(c *cli.Context) error {
			src, err := sourceInput(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Scan(env.cfg, ops.ScanInput{SourceInput: src})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List past runs, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Max runs to return"},
			&cli.IntFlag{Name: "offset", Usage: "Runs to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(env.db, ops.HistoryInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one run and its extracts",
		ArgsUsage: "<run-id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Show(env.db, ops.ShowInput{RunID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete runs from the history (extract files are kept)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only purge runs older than N days (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}

			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(c.Context, env.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var cErr *errors.ChatctxError
	if stderrors.As(err, &cErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin. The document is kept byte-exact.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
