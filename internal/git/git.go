package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client produces diff text from a repository
type Client interface {
	// Diff returns the zero-context diff of the working tree in dir against ref
	Diff(ctx context.Context, dir, ref string) ([]byte, error)
}

// ShellClient implements Client by shelling out to the git command
type ShellClient struct {
	binary string
}

// NewShellClient creates a new git client that uses the git command
func NewShellClient() *ShellClient {
	return &ShellClient{binary: "git"}
}

// Diff runs git diff with no context lines so every hunk covers only
// changed lines. The a/ and b/ prefixes are forced so that stripping one
// path component works regardless of the user's diff.noprefix setting.
// Paths are relative to dir, and changes outside dir are left out.
func (c *ShellClient) Diff(ctx context.Context, dir, ref string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary, diffArgs(dir, ref)...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git diff %s failed: %w: %s", ref, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git diff %s failed: %w", ref, err)
	}
	return output, nil
}

func diffArgs(dir, ref string) []string {
	args := []string{}
	if dir != "" {
		args = append(args, "-C", dir)
	}
	args = append(args,
		"diff",
		"-U0",
		"--no-color",
		"--no-ext-diff",
		"--relative",
		"--src-prefix=a/",
		"--dst-prefix=b/",
	)
	if ref != "" {
		args = append(args, ref)
	}
	return append(args, "--")
}
