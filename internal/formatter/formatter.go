package formatter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/schaermu/fmtdiff/internal/diffrange"
)

// DefaultBinary is the formatter invoked when none is configured
const DefaultBinary = "clang-format"

// Request is one formatter invocation: a file, its style and the line
// ranges the formatter may touch
type Request struct {
	Path   string
	Style  string
	Ranges []diffrange.Range
}

// Formatter runs the external formatting tool
type Formatter interface {
	// Format returns the reformatted content of the request's file without
	// modifying it on disk
	Format(ctx context.Context, req Request) ([]byte, error)
	// FormatInPlace rewrites the request's file
	FormatInPlace(ctx context.Context, req Request) error
}

// ExitError reports a formatter process that exited non-zero
type ExitError struct {
	Path   string
	Code   int
	Stderr []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("formatter failed on %s with exit status %d", e.Path, e.Code)
}

// Client implements Formatter by executing the formatter binary
type Client struct {
	binary string
	dir    string
}

// NewClient creates a client for binary, run with dir as its working
// directory. An empty dir uses the current directory.
func NewClient(binary, dir string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{binary: binary, dir: dir}
}

// Binary returns the formatter executable name or path
func (c *Client) Binary() string {
	return c.binary
}

// Format runs the formatter and returns its standard output
func (c *Client) Format(ctx context.Context, req Request) ([]byte, error) {
	return c.run(ctx, req, false)
}

// FormatInPlace runs the formatter with -i
func (c *Client) FormatInPlace(ctx context.Context, req Request) error {
	_, err := c.run(ctx, req, true)
	return err
}

func (c *Client) run(ctx context.Context, req Request, inPlace bool) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.binary, Args(req, inPlace)...)
	cmd.Dir = c.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			return nil, &ExitError{Path: req.Path, Code: exitErr.ExitCode(), Stderr: stderr.Bytes()}
		}
		return nil, fmt.Errorf("failed to run %s on %s: %w", c.binary, req.Path, err)
	}

	return stdout.Bytes(), nil
}

// Args builds the formatter command line for req:
// -style=<name> [-lines=<start>:<end>]* [-i] <path>
func Args(req Request, inPlace bool) []string {
	args := make([]string, 0, len(req.Ranges)+3)
	args = append(args, "-style="+req.Style)
	for _, r := range req.Ranges {
		args = append(args, r.Arg())
	}
	if inPlace {
		args = append(args, "-i")
	}
	return append(args, req.Path)
}
