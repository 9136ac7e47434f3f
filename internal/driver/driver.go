// Package driver runs the formatter over every file of a change set.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schaermu/fmtdiff/internal/diffrange"
	"github.com/schaermu/fmtdiff/internal/formatter"
	"github.com/schaermu/fmtdiff/internal/preview"
)

// Resolver picks the style for a path
type Resolver interface {
	Resolve(path string) string
}

// Options configures an Engine
type Options struct {
	// DryRun prints the would-be changes instead of rewriting files
	DryRun bool
	// Dir is the directory diff paths are relative to
	Dir string
	// Stdout receives preview diffs
	Stdout io.Writer
	// Stderr receives formatter diagnostics on failure
	Stderr io.Writer
}

// Engine joins a change set with the style table and drives the formatter
type Engine struct {
	client formatter.Formatter
	styles Resolver
	logger *slog.Logger
	opts   Options
}

// NewEngine creates a new format engine
func NewEngine(f formatter.Formatter, styles Resolver, logger *slog.Logger, opts Options) *Engine {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Engine{
		client: f,
		styles: styles,
		logger: logger,
		opts:   opts,
	}
}

// Requests builds one formatter request per file of cs, sorted by path
func (e *Engine) Requests(cs diffrange.ChangeSet) []formatter.Request {
	files := cs.Files()
	reqs := make([]formatter.Request, 0, len(files))
	for _, path := range files {
		reqs = append(reqs, formatter.Request{
			Path:   path,
			Style:  e.styles.Resolve(path),
			Ranges: cs[path],
		})
	}
	return reqs
}

// Run formats every file in cs. The first failing file stops the run;
// files already formatted are left as they are.
func (e *Engine) Run(ctx context.Context, cs diffrange.ChangeSet) error {
	reqs := e.Requests(cs)
	if len(reqs) == 0 {
		e.logger.Info("no changed source files, nothing to format")
		return nil
	}

	e.logger.Info("formatting changed files",
		"files", len(reqs),
		"dry_run", e.opts.DryRun)

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.logger.Debug("running formatter",
			"path", req.Path,
			"style", req.Style,
			"ranges", len(req.Ranges))

		var err error
		if e.opts.DryRun {
			err = e.preview(ctx, req)
		} else {
			err = e.client.FormatInPlace(ctx, req)
		}
		if err != nil {
			e.relayDiagnostics(err)
			return err
		}
	}

	e.logger.Info("formatting completed", "files", len(reqs))
	return nil
}

// preview prints the diff between the file on disk and the formatter output
func (e *Engine) preview(ctx context.Context, req formatter.Request) error {
	formatted, err := e.client.Format(ctx, req)
	if err != nil {
		return err
	}

	original, err := os.ReadFile(e.path(req.Path))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", req.Path, err)
	}

	diff, err := preview.Unified(req.Path, original, formatted)
	if err != nil {
		return err
	}
	if diff == "" {
		e.logger.Debug("already formatted", "path", req.Path)
		return nil
	}

	if _, err := io.WriteString(e.opts.Stdout, diff); err != nil {
		return fmt.Errorf("failed to write diff for %s: %w", req.Path, err)
	}
	return nil
}

// relayDiagnostics copies a failing formatter's stderr verbatim
func (e *Engine) relayDiagnostics(err error) {
	var exitErr *formatter.ExitError
	if !errors.As(err, &exitErr) {
		return
	}
	e.logger.Error("formatter failed", "path", exitErr.Path, "exit_code", exitErr.Code)
	if len(exitErr.Stderr) > 0 {
		_, _ = e.opts.Stderr.Write(exitErr.Stderr)
	}
}

func (e *Engine) path(p string) string {
	if filepath.IsAbs(p) || e.opts.Dir == "" {
		return p
	}
	return filepath.Join(e.opts.Dir, filepath.FromSlash(p))
}
