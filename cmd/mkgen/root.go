// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the mkgen command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mkgen/mkgen/internal/config"
	"github.com/mkgen/mkgen/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App wires CLI services. Every command handler receives it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// rootFlagValues holds the persistent flags shared by every command.
	rootFlagValues struct {
		configPath string
		workdir    string
		verbose    bool
	}

	// session is the per-invocation state built from the root flags.
	session struct {
		cfg        *config.Config
		configFile string
		workdir    string
		logger     *log.Logger
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{Config: deps.Config, stdout: deps.Stdout, stderr: deps.Stderr}
}

// NewRootCommand builds the mkgen command tree.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "mkgen",
		Short: "Generate make recipes from package descriptors",
		Long: TitleStyle.Render("mkgen") + SubtitleStyle.Render(" - a build graph compiler") + `

mkgen reads BUILD.cue or BUILD.hcl descriptors, resolves the dependency
graph of the requested rules and writes one make-compatible recipe that
builds every rule in every configured variant.

` + SubtitleStyle.Render("Examples:") + `
  mkgen gen                 Generate the recipe for every package
  mkgen gen //app:server    Generate the recipe for one rule and its deps
  mkgen deps //app:server   Show the build order of a rule
  mkgen watch               Regenerate whenever a descriptor changes
  mkgen config show         Show the effective configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "configuration file (default is <workdir>/"+config.FileName+")")
	rootCmd.PersistentFlags().StringVarP(&flags.workdir, "workdir", "C", "", "workspace directory (default is the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level and show full error chains")

	rootCmd.AddCommand(
		newGenCommand(app, flags),
		newDepsCommand(app, flags),
		newWatchCommand(app, flags),
		newDBCommand(app, flags),
		newConfigCommand(app, flags),
		newIssueCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Main runs the command line and returns the process exit code.
func Main() int {
	app := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err == nil {
		return int(types.ExitOK)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.Code)
	}
	if errors.Is(err, context.Canceled) {
		return int(types.ExitInterrupted)
	}
	return int(types.ExitUsage)
}

// Execute is called by main.main.
func Execute() {
	os.Exit(Main())
}

// newSession loads the configuration the root flags select and builds the
// logger from it.
func (app *App) newSession(ctx context.Context, flags *rootFlagValues) (*session, error) {
	workdir := flags.workdir
	if workdir == "" {
		workdir = "."
	}
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, err
	}

	cfg, file, err := app.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		WorkspaceDir:   abs,
	})
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(app.stderr, cfg.Log, flags.verbose)
	if err != nil {
		return nil, err
	}
	if file != "" {
		logger.Debug("loaded configuration", "file", file)
	}
	return &session{cfg: cfg, configFile: file, workdir: abs, logger: logger}, nil
}

// relativeConfigFile returns the configuration file relative to the
// workspace, as the recipe names it, or "" when it lies outside.
func (s *session) relativeConfigFile() string {
	if s.configFile == "" {
		return ""
	}
	abs, err := filepath.Abs(s.configFile)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(s.workdir, abs)
	if err != nil || !filepath.IsLocal(rel) {
		return ""
	}
	return filepath.ToSlash(rel)
}
