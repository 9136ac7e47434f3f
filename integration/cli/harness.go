//go:build integration

package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/schaermu/fmtdiff/internal/testutil"
)

const defaultTimeout = 2 * time.Minute

// shimFormatter collapses runs of spaces on every line, which is enough to
// observe which files were touched. It logs each invocation and fails on
// any file containing FAIL.
const shimFormatter = `echo "$*" >> "$SHIM_LOG"
inplace=0
for a in "$@"; do
  case "$a" in -i) inplace=1 ;; esac
  last="$a"
done
if grep -q FAIL "$last"; then
  echo "$last:1:1: error: cannot format" >&2
  exit 9
fi
if [ "$inplace" = 1 ]; then
  sed 's/  */ /g' "$last" > "$last.tmp" && mv "$last.tmp" "$last"
else
  sed 's/  */ /g' "$last"
fi
`

// Harness builds the fmtdiff binary once per test and runs it against a
// working tree with a logging shim in place of the formatter
type Harness struct {
	t         *testing.T
	binary    string
	formatter string
	shimLog   string
	WorkDir   string
}

// Result holds the outcome of one fmtdiff invocation
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// NewHarness builds the binary and prepares an empty working tree
func NewHarness(ctx context.Context, t *testing.T) *Harness {
	t.Helper()

	root, err := testutil.FindProjectRoot()
	if err != nil {
		t.Fatalf("get project root: %v", err)
	}

	binDir := t.TempDir()
	binary := filepath.Join(binDir, "fmtdiff")
	build := exec.CommandContext(ctx, "go", "build", "-o", binary, "./cmd/fmtdiff")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("go build: %v\n%s", err, out)
	}

	return &Harness{
		t:         t,
		binary:    binary,
		formatter: testutil.WriteScript(t, "clang-format", shimFormatter),
		shimLog:   filepath.Join(binDir, "shim.log"),
		WorkDir:   t.TempDir(),
	}
}

// Run executes fmtdiff in the working tree with diff on stdin
func (h *Harness) Run(ctx context.Context, diff string, args ...string) Result {
	h.t.Helper()

	full := append([]string{"--binary", h.formatter, "-C", h.WorkDir}, args...)
	cmd := exec.CommandContext(ctx, h.binary, full...)
	cmd.Env = append(os.Environ(),
		"SHIM_LOG="+h.shimLog,
		"HOME="+h.t.TempDir(),
	)
	cmd.Stdin = strings.NewReader(diff)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			h.t.Fatalf("exec failed: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}

// WriteFile writes a file relative to the working tree
func (h *Harness) WriteFile(rel, content string) string {
	h.t.Helper()
	path := filepath.Join(h.WorkDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.t.Fatalf("mkdir parent: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		h.t.Fatalf("write file: %v", err)
	}
	return path
}

// ReadFile reads a file relative to the working tree
func (h *Harness) ReadFile(rel string) string {
	h.t.Helper()
	data, err := os.ReadFile(filepath.Join(h.WorkDir, rel))
	if err != nil {
		h.t.Fatalf("read file: %v", err)
	}
	return string(data)
}

// ShimCalls returns the argument lists the formatter was invoked with
func (h *Harness) ShimCalls() [][]string {
	h.t.Helper()
	f, err := os.Open(h.shimLog)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		h.t.Fatalf("open shim log: %v", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var calls [][]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			calls = append(calls, strings.Fields(line))
		}
	}
	if err := scanner.Err(); err != nil {
		h.t.Fatalf("read shim log: %v", err)
	}
	return calls
}

// ClearShimLog forgets previous formatter invocations
func (h *Harness) ClearShimLog() {
	h.t.Helper()
	if err := os.Remove(h.shimLog); err != nil && !os.IsNotExist(err) {
		h.t.Fatalf("clear shim log: %v", err)
	}
}

// Styles writes an override list and returns the flag pointing at it
func (h *Harness) Styles(lines ...string) []string {
	h.t.Helper()
	path := filepath.Join(h.t.TempDir(), "styles")
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		h.t.Fatalf("write styles: %v", err)
	}
	return []string{"--styles", path}
}

func (r Result) String() string {
	return fmt.Sprintf("exit=%d\nstdout:\n%s\nstderr:\n%s", r.ExitCode, r.Stdout, r.Stderr)
}
