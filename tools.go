//go:build tools

// Package tools pins the versions of development tools used by the Makefile
// and CI.
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "golang.org/x/vuln/cmd/govulncheck"
)
