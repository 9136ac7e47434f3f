package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/schaermu/fmtdiff/internal/style"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
formatter:
  binary: "clang-format-3.9"
  default_style: "llvm"

diff:
  strip: 0
  extensions: [cpp, h]

styles:
  file: "/etc/fmtdiff/styles"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Formatter.Binary != "clang-format-3.9" {
		t.Errorf("expected binary clang-format-3.9, got %s", cfg.Formatter.Binary)
	}
	if cfg.Formatter.DefaultStyle != "llvm" {
		t.Errorf("expected default style llvm, got %s", cfg.Formatter.DefaultStyle)
	}
	if cfg.Diff.Strip != 0 {
		t.Errorf("expected strip 0, got %d", cfg.Diff.Strip)
	}
	if strings.Join(cfg.Diff.Extensions, ",") != "cpp,h" {
		t.Errorf("expected extensions [cpp h], got %v", cfg.Diff.Extensions)
	}
	if cfg.Styles.File != "/etc/fmtdiff/styles" {
		t.Errorf("expected styles file /etc/fmtdiff/styles, got %s", cfg.Styles.File)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "formatter:\n  default_style: google\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	def := Default()
	if cfg.Formatter.Binary != def.Formatter.Binary {
		t.Errorf("Binary: got %q, want %q", cfg.Formatter.Binary, def.Formatter.Binary)
	}
	if cfg.Diff.Strip != def.Diff.Strip {
		t.Errorf("Strip: got %d, want %d", cfg.Diff.Strip, def.Diff.Strip)
	}
	if len(cfg.Diff.Extensions) != len(def.Diff.Extensions) {
		t.Errorf("Extensions: got %v, want %v", cfg.Diff.Extensions, def.Diff.Extensions)
	}
	if cfg.Formatter.DefaultStyle != "google" {
		t.Errorf("DefaultStyle: got %q, want google", cfg.Formatter.DefaultStyle)
	}
}

func TestLoad_EmptyStringsFallBack(t *testing.T) {
	path := writeConfig(t, "formatter:\n  binary: \"\"\n  default_style: \"\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Formatter.Binary != "clang-format" {
		t.Errorf("Binary: got %q, want clang-format", cfg.Formatter.Binary)
	}
	if cfg.Formatter.DefaultStyle != style.DefaultStyle {
		t.Errorf("DefaultStyle: got %q, want %q", cfg.Formatter.DefaultStyle, style.DefaultStyle)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("FMTDIFF_TEST_BIN", "/opt/llvm/bin/clang-format")
	t.Setenv("FMTDIFF_TEST_DIR", "/srv/styles")

	path := writeConfig(t, "formatter:\n  binary: $FMTDIFF_TEST_BIN\nstyles:\n  file: ${FMTDIFF_TEST_DIR}/list\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Formatter.Binary != "/opt/llvm/bin/clang-format" {
		t.Errorf("Binary: got %q", cfg.Formatter.Binary)
	}
	if cfg.Styles.File != "/srv/styles/list" {
		t.Errorf("Styles.File: got %q", cfg.Styles.File)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{{{{not valid yaml")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoad_InvalidStrip(t *testing.T) {
	path := writeConfig(t, "diff:\n  strip: -1\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for negative strip, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "missing binary", mutate: func(c *Config) { c.Formatter.Binary = "" }, wantErr: true},
		{name: "missing default style", mutate: func(c *Config) { c.Formatter.DefaultStyle = "" }, wantErr: true},
		{name: "negative strip", mutate: func(c *Config) { c.Diff.Strip = -2 }, wantErr: true},
		{name: "zero strip", mutate: func(c *Config) { c.Diff.Strip = 0 }, wantErr: false},
		{name: "no extensions", mutate: func(c *Config) { c.Diff.Extensions = nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStylesFile(t *testing.T) {
	cfg := Default()
	cfg.Styles.File = "/explicit/styles"

	got, err := cfg.StylesFile()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/explicit/styles" {
		t.Errorf("StylesFile() = %q, want /explicit/styles", got)
	}

	cfg.Styles.File = ""
	got, err = cfg.StylesFile()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != style.DefaultFileName {
		t.Errorf("StylesFile() = %q, want a %s beside the executable", got, style.DefaultFileName)
	}
}
