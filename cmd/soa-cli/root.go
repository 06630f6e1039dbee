// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/SOALIN228/soa-cli/internal/config"
	"github.com/SOALIN228/soa-cli/internal/selfupdate"
)

// updateCheckTimeout bounds the registry request behind the update notice.
const updateCheckTimeout = 3 * time.Second

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

func userAgent() string {
	return config.AppName + "/" + Version
}

// Execute builds the command tree for the process arguments and runs it.
// This is called by main.main().
func Execute() {
	ctx := context.Background()
	app := NewApp(Dependencies{})
	root := app.NewRootCommand(ctx, os.Args[1:])

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code.Normalize()))
		}
		os.Exit(1)
	}
}

// errorHandler leaves ExitErrors alone: their cause was rendered by runE or
// the child already reported it.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// NewRootCommand resolves the global flags in args, loads the environment
// and configuration, and returns the command tree with args set. A startup
// failure does not prevent building the tree; commands that need the
// environment report it when they run.
func (a *App) NewRootCommand(ctx context.Context, args []string) *cobra.Command {
	a.args = slices.Clone(args)
	a.flags = parseGlobalFlags(args)
	setupLogger(a.stderr, a.flags.debug)

	a.startErr = a.start(ctx)
	if a.startErr != nil {
		slog.Debug("startup failed", "error", a.startErr)
	} else if a.cfg.UI.Verbose && !a.flags.debug {
		setupLogger(a.stderr, true)
	}
	if a.env != nil {
		slog.Debug("environment resolved", "home", a.env.Home, "targetPath", a.env.TargetPath)
	}

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "A scaffolding CLI that runs its commands from npm packages",
		Long: TitleStyle.Render(config.AppName) + SubtitleStyle.Render(" - a scaffolding CLI that runs its commands from npm packages") + `

Every command is implemented by a package on the npm registry. On first use
the package is installed below the soa-cli home (default ~/.soa-cli-dev);
later runs update it when a newer version is published.

` + SubtitleStyle.Render("Examples:") + `
  soa-cli init my-app              Create a project from a template
  soa-cli publish --build-cmd "npm run build"
  soa-cli --target-path ./init init my-app
                                   Run a local checkout of the init package
  soa-cli cache list               Show cached command packages`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.notifyUpdate(cmd)
			return nil
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetArgs(args)
	addGlobalFlags(root.PersistentFlags(), &a.flags)

	root.AddCommand(
		a.newInitCommand(),
		a.newPublishCommand(),
		a.newConfigCommand(),
		a.newCacheCommand(),
		a.newGitCommand(),
		a.newUpgradeCommand(),
	)
	root.AddCommand(a.newTableCommands(root)...)

	return root
}

func addGlobalFlags(fs *pflag.FlagSet, f *globalFlags) {
	fs.BoolVarP(&f.debug, "debug", "d", false, "enable debug logging")
	fs.StringVar(&f.targetPath, "target-path", "", "run command packages from this local directory (env SOA_CLI_TARGET_PATH)")
	fs.StringVar(&f.configPath, "config", "", "config file (default is <soa-cli home>/config.cue)")
}

// parseGlobalFlags extracts the global flags from args ahead of the full
// parse, which needs the configuration to know every command.
func parseGlobalFlags(args []string) globalFlags {
	var f globalFlags
	fs := pflag.NewFlagSet(config.AppName, pflag.ContinueOnError)
	fs.ParseErrorsAllowlist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	addGlobalFlags(fs, &f)
	_ = fs.Parse(args) //nolint:errcheck // Cobra reports flag errors when it parses the tree.
	return f
}

// setupLogger installs a charm logger as the slog default handler.
func setupLogger(w io.Writer, debug bool) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
	slog.SetDefault(slog.New(logger))
}

// notifyUpdate prints a warning when the registry has a newer CLI release.
// Failures only show up in debug logs.
func (a *App) notifyUpdate(cmd *cobra.Command) {
	if a.cfg == nil || !a.cfg.UpdateCheck.Enabled || cmd.Name() == "upgrade" {
		return
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), updateCheckTimeout)
	defer cancel()

	notice, err := selfupdate.NewChecker(Version, a.cfg.UpdateCheck.Package, a.registryClient()).Check(ctx)
	if err != nil {
		slog.Debug("update check skipped", "error", err)
		return
	}
	if notice.UpgradeAvailable {
		fmt.Fprintln(a.stderr, WarningStyle.Render(notice.Message()))
	}
}
