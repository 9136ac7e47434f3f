package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schaermu/fmtdiff/internal/config"
	"github.com/schaermu/fmtdiff/internal/diffrange"
	"github.com/schaermu/fmtdiff/internal/driver"
	"github.com/schaermu/fmtdiff/internal/formatter"
	"github.com/schaermu/fmtdiff/internal/git"
	"github.com/schaermu/fmtdiff/internal/source"
	"github.com/schaermu/fmtdiff/internal/style"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes
const (
	exitOK            = 0
	exitError         = 1
	exitStylesMissing = 3
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	opts options
)

// options holds the format command flags. Flags override the config file
// only when they are set explicitly.
type options struct {
	dryRun       bool
	list         bool
	binary       string
	dir          string
	strip        int
	extensions   []string
	stylesFile   string
	defaultStyle string
	diffFile     string
	gitRef       string
}

func main() {
	os.Exit(exitCode(rootCmd.Execute()))
}

var rootCmd = &cobra.Command{
	Use:   "fmtdiff",
	Short: "Reformat only the lines changed in a diff",
	Long: `fmtdiff reads a unified diff, collects the line ranges each patch adds to
C and C++ sources, and runs the formatter on just those ranges.

Each file is formatted with the style chosen by the override list: an entry
for the file itself wins over one for an enclosing directory, which wins over
the default style.

By default the diff is read from standard input and files are rewritten in
place. Use --dry-run to print the changes instead.`,
	Example: `  git diff -U0 HEAD | fmtdiff
  fmtdiff --git-ref origin/main --dry-run
  fmtdiff --diff-file diff.txt --styles ./styles.txt -C ./src`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runFormat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fmtdiff %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/fmtdiff/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	registerFlags(rootCmd.Flags(), &opts)

	rootCmd.AddCommand(versionCmd)
}

func registerFlags(fs *pflag.FlagSet, o *options) {
	fs.BoolVarP(&o.dryRun, "dry-run", "n", false, "print the would-be changes as a diff instead of rewriting files")
	fs.BoolVar(&o.list, "list", false, "list changed files with their style and line ranges, then exit")
	fs.StringVar(&o.binary, "binary", formatter.DefaultBinary, "formatter executable name or path")
	fs.StringVarP(&o.dir, "dir", "C", ".", "directory the diff paths are relative to")
	fs.IntVarP(&o.strip, "strip", "p", diffrange.DefaultStrip, "leading path components to strip from diff file names")
	fs.StringSliceVar(&o.extensions, "extensions", source.DefaultExtensions, "source file extensions to format")
	fs.StringVar(&o.stylesFile, "styles", "", "style override list (default is "+style.DefaultFileName+" beside the executable)")
	fs.StringVar(&o.defaultStyle, "default-style", style.DefaultStyle, "style for files without an override")
	fs.StringVar(&o.diffFile, "diff-file", "", "read the diff from this file and remove it after a successful run")
	fs.StringVar(&o.gitRef, "git-ref", "", "read the diff from git diff -U0 against this ref")
}

func runFormat(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}

	dir, err := filepath.Abs(opts.dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}

	stylesPath, err := cfg.StylesFile()
	if err != nil {
		return err
	}
	logger.Debug("loading style overrides", "path", stylesPath)
	styles, err := style.LoadFile(stylesPath, dir, cfg.Formatter.DefaultStyle)
	if err != nil {
		return err
	}
	logger.Debug("style overrides loaded", "count", styles.Len(), "default", styles.Default())

	cs, err := readChanges(ctx, logger, cmd.InOrStdin(), git.NewShellClient(), dir, cfg)
	if err != nil {
		return err
	}
	logger.Info("changed files", "files", cs.Files())

	client := formatter.NewClient(cfg.Formatter.Binary, dir)
	logger.Debug("using formatter", "binary", client.Binary(), "dir", dir)

	engine := driver.NewEngine(
		client,
		styles,
		logger,
		driver.Options{
			DryRun: opts.dryRun,
			Dir:    dir,
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		},
	)

	if opts.list {
		return listChanges(cmd.OutOrStdout(), engine, cs)
	}

	if err := engine.Run(ctx, cs); err != nil {
		return err
	}

	if opts.diffFile != "" && !opts.dryRun {
		logger.Debug("removing diff file", "path", opts.diffFile)
		if err := os.Remove(opts.diffFile); err != nil {
			return fmt.Errorf("failed to remove diff file: %w", err)
		}
	}

	return nil
}

// readChanges parses the diff from the selected source
func readChanges(ctx context.Context, logger *slog.Logger, stdin io.Reader, gc git.Client, dir string, cfg *config.Config) (diffrange.ChangeSet, error) {
	filter := source.NewFilter(cfg.Diff.Extensions)
	logger.Debug("reading diff",
		"strip", cfg.Diff.Strip,
		"extensions", filter.Extensions())

	parseOpts := diffrange.Options{
		Strip:   cfg.Diff.Strip,
		Include: filter.IsSourceFile,
	}

	switch {
	case opts.diffFile != "" && opts.gitRef != "":
		return nil, fmt.Errorf("--diff-file and --git-ref are mutually exclusive")

	case opts.diffFile != "":
		f, err := os.Open(opts.diffFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open diff file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		return diffrange.Parse(f, parseOpts)

	case opts.gitRef != "":
		out, err := gc.Diff(ctx, dir, opts.gitRef)
		if err != nil {
			return nil, err
		}
		return diffrange.ParseString(string(out), parseOpts), nil

	default:
		return diffrange.Parse(stdin, parseOpts)
	}
}

// listChanges prints one line per file: path, resolved style and ranges
func listChanges(w io.Writer, engine *driver.Engine, cs diffrange.ChangeSet) error {
	for _, req := range engine.Requests(cs) {
		ranges := make([]string, 0, len(req.Ranges))
		for _, r := range req.Ranges {
			ranges = append(ranges, r.String())
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", req.Path, req.Style, strings.Join(ranges, " ")); err != nil {
			return err
		}
	}
	return nil
}

// applyFlags overrides config values with explicitly set flags
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("binary") {
		cfg.Formatter.Binary = opts.binary
	}
	if fs.Changed("default-style") {
		cfg.Formatter.DefaultStyle = opts.defaultStyle
	}
	if fs.Changed("strip") {
		cfg.Diff.Strip = opts.strip
	}
	if fs.Changed("extensions") {
		cfg.Diff.Extensions = opts.extensions
	}
	if fs.Changed("styles") {
		cfg.Styles.File = opts.stylesFile
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var exitErr *formatter.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, style.ErrNotFound) {
		return exitStylesMissing
	}
	return exitError
}

func setupLogger(w io.Writer) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	handlerOpts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler)
}

// loadConfig reads the config file. Only an explicitly requested file is
// required to exist.
func loadConfig(logger *slog.Logger) (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Debug("no home directory, using default configuration", "error", err)
			return config.Default(), nil
		}
		configPath = filepath.Join(home, ".config", "fmtdiff", "config.yaml")
		if _, err := os.Stat(configPath); err != nil {
			logger.Debug("no config file, using defaults", "path", configPath)
			return config.Default(), nil
		}
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"binary", cfg.Formatter.Binary,
		"default_style", cfg.Formatter.DefaultStyle,
		"strip", cfg.Diff.Strip,
		"styles_file", cfg.Styles.File)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
