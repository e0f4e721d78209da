package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/superdoc-dev/docbridge/internal/config"
	"github.com/superdoc-dev/docbridge/internal/engine"
	"github.com/superdoc-dev/docbridge/internal/errors"
	"github.com/superdoc-dev/docbridge/internal/host"
	"github.com/superdoc-dev/docbridge/internal/journal"
	"github.com/superdoc-dev/docbridge/internal/protocol"
	"github.com/superdoc-dev/docbridge/internal/session"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "docbridge",
		Usage:   "Document editing bridge for AI agents",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Enable debug logging"},
		},
		Commands: []*cli.Command{
			serveCmd(db, cfg),
			execCmd(db, cfg),
			sendCmd(),
			exportCmd(cfg),
			historyCmd(db),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command: an in-process editing session wired to
// the host controller, watching the document and its command channel file.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve a document: autosave, external-change reconciliation, command channel",
		ArgsUsage: "<document>",
		Action: func(c *cli.Context) error {
			docPath, err := docArg(c)
			if err != nil {
				return outputError(err)
			}
			log := newLogger(c.Bool("verbose"))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			surface, hostEnd := protocol.NewPipe(16)
			sess := session.New(surface, cfg, log)
			ctrl := host.NewController(hostEnd, docPath, cfg, db, log)

			errc := make(chan error, 2)
			go func() { errc <- sess.Run(ctx) }()
			go func() { errc <- ctrl.Run(ctx) }()

			fmt.Fprintf(os.Stderr, "serving %s (command file: %s)\n", docPath, ctrl.Bridge().CommandPath())

			first := <-errc
			cancel()
			<-errc
			if first != nil && first != context.Canceled {
				return outputError(first)
			}
			return nil
		},
	}
}

// execCmd creates the exec command: one command against a document on disk,
// without a serving session. Edit history lives in a session, not the
// document file, so undo and redo report applied=false here; use send
// against a served document instead.
func execCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Execute one command against a document (args as JSON via --args or stdin; undo/redo need a served session, use send)",
		ArgsUsage: "<document> <command>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "args", Aliases: []string{"a"}, Usage: "Command arguments as a JSON object"},
		},
		Action: func(c *cli.Context) error {
			docPath, err := docArg(c)
			if err != nil {
				return outputError(err)
			}
			command := c.Args().Get(1)
			if command == "" {
				return outputError(errors.NewValidation(
					fmt.Sprintf("command is required: one of %s", strings.Join(engine.CommandNames(), ", "))))
			}

			args, err := readArgs(c)
			if err != nil {
				return outputError(err)
			}

			out, err := runCommand(c.Context, db, cfg, newLogger(c.Bool("verbose")), docPath, command, args)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// sendCmd creates the send command: write a command request into a served
// document's side-channel file and wait for the correlated response.
func sendCmd() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a command to a served document via its command channel file",
		ArgsUsage: "<document> <command>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "args", Aliases: []string{"a"}, Usage: "Command arguments as a JSON object"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "How long to wait for a response"},
		},
		Action: func(c *cli.Context) error {
			docPath, err := docArg(c)
			if err != nil {
				return outputError(err)
			}
			command := c.Args().Get(1)
			if command == "" {
				return outputError(errors.NewValidation("command is required"))
			}
			args, err := readArgs(c)
			if err != nil {
				return outputError(err)
			}

			entropy := ulid.Monotonic(rand.Reader, 0)
			id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
			req := map[string]any{"id": id, "command": command}
			if len(args) > 0 {
				req["args"] = args
			}
			payload, err := json.MarshalIndent(req, "", "  ")
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			cmdPath := host.CommandFilePath(docPath)
			if err := host.WriteFileAtomic(cmdPath, payload); err != nil {
				return outputError(errors.NewOperationFailed("send", err))
			}

			result, err := awaitResponse(c.Context, cmdPath, id, c.Duration("timeout"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(result)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Print a document as plain text or HTML",
		ArgsUsage: "<document>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "Output format: text|html|both"},
		},
		Action: func(c *cli.Context) error {
			docPath, err := docArg(c)
			if err != nil {
				return outputError(err)
			}

			doc, err := host.LoadDocument(docPath)
			if err != nil {
				return outputError(err)
			}
			eng := engine.New(doc, cfg, nil, newLogger(c.Bool("verbose")))

			out, err := eng.GetText(engine.GetTextInput{Format: c.String("format")})
			if err != nil {
				return outputError(err)
			}
			switch {
			case out.Text != nil && out.HTML == nil:
				fmt.Println(*out.Text)
				return nil
			case out.HTML != nil && out.Text == nil:
				fmt.Println(*out.HTML)
				return nil
			}
			return outputJSON(out)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List journaled revisions of a document",
		ArgsUsage: "<document>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum revisions to return"},
		},
		Action: func(c *cli.Context) error {
			docPath, err := docArg(c)
			if err != nil {
				return outputError(err)
			}

			revs, err := journal.ListRevisions(db, docPath, c.Int("limit"))
			if err != nil {
				return outputError(errors.NewOperationFailed("history", err))
			}
			return outputJSON(revs)
		},
	}
}

// runCommand loads a document, runs one engine command against it, and lets
// the engine's forced save persist any mutation.
func runCommand(ctx context.Context, db *sql.DB, cfg *config.Config, log zerolog.Logger, docPath, command string, args map[string]any) (any, error) {
	doc, err := host.LoadDocument(docPath)
	if err != nil {
		return nil, err
	}

	if command == "insertImage" {
		if src, _ := args["src"].(string); src != "" && !strings.HasPrefix(src, "data:") {
			resolved, err := host.ResolveImageSource(ctx, src, filepath.Dir(docPath), cfg)
			if err != nil {
				return nil, err
			}
			args["src"] = resolved
		}
	}

	saver := &host.FileSaver{Doc: doc, Path: docPath, DB: db, Log: log}
	eng := engine.New(doc, cfg, saver, log)

	out, err := eng.Invoke(command, args)
	if err == engine.ErrNoop {
		return &engine.HistoryOutput{Applied: false}, nil
	}
	return out, err
}

// awaitResponse polls the command channel file until it holds a response
// (no command field) with the expected id.
func awaitResponse(ctx context.Context, cmdPath, id string, timeout time.Duration) (map[string]any, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		data, err := os.ReadFile(cmdPath)
		if err == nil {
			var payload map[string]any
			if json.Unmarshal(data, &payload) == nil {
				if _, pending := payload["command"]; !pending && payload["id"] == id {
					return payload, nil
				}
			}
		}

		if time.Now().After(deadline) {
			return nil, errors.NewOperationFailed("send",
				fmt.Errorf("no response after %s; is the document being served?", timeout))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Helper functions

// docArg resolves the required document path argument to an absolute path so
// journal entries key consistently regardless of working directory.
func docArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", errors.NewValidation("document path is required")
	}
	path, err := filepath.Abs(c.Args().First())
	if err != nil {
		return "", errors.NewValidation(fmt.Sprintf("invalid document path: %v", err))
	}
	return path, nil
}

// readArgs reads command arguments from --args, or from piped stdin when the
// flag is absent.
func readArgs(c *cli.Context) (map[string]any, error) {
	raw := c.String("args")
	if raw == "" && stdinHasData() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		raw = strings.TrimSpace(string(data))
	}
	if raw == "" {
		return nil, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, errors.NewValidation(fmt.Sprintf("args must be a JSON object: %v", err))
	}
	return args, nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if bridgeErr, ok := err.(*errors.BridgeError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", bridgeErr.Code, bridgeErr.Message), 1)
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
