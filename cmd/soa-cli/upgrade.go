// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/shell"

	"github.com/SOALIN228/soa-cli/internal/selfupdate"
)

// execCommand is a test seam for exec.CommandContext.
//
//nolint:gochecknoglobals // Test seam requires a package-level variable.
var execCommand = exec.CommandContext

// upgradeParams bundles the dependencies and flags for the upgrade command,
// so runUpgrade can be tested without a Cobra command.
type upgradeParams struct {
	stdout  io.Writer
	stderr  io.Writer
	checker *selfupdate.Checker
	check   bool // --check mode: report availability without installing
}

// newUpgradeCommand creates the `soa-cli upgrade` command.
func (a *App) newUpgradeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Update soa-cli to the latest published version",
		Long: `Update soa-cli to the latest published version.

The newest version is looked up on the configured registry. The upgrade runs
the package manager soa-cli was installed with: npm install -g for npm
installs, go install for binaries built with the Go toolchain.`,
		Example: `  # Check for updates without installing
  soa-cli upgrade --check

  # Upgrade
  soa-cli upgrade`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := a.session()
			if err != nil {
				return err
			}
			check, _ := cmd.Flags().GetBool("check")
			return runUpgrade(cmd.Context(), upgradeParams{
				stdout:  cmd.OutOrStdout(),
				stderr:  cmd.ErrOrStderr(),
				checker: selfupdate.NewChecker(Version, cfg.UpdateCheck.Package, a.registryClient()),
				check:   check,
			})
		}),
	}

	cmd.Flags().Bool("check", false, "check for an available upgrade without installing")
	return cmd
}

// runUpgrade is the core upgrade logic, separated from Cobra for testability.
//
// Flow:
//  1. Ask the registry for a newer version.
//  2. Report development builds and up-to-date installs and return.
//  3. With --check, print the upgrade command and return.
//  4. Otherwise run the upgrade command.
func runUpgrade(ctx context.Context, p upgradeParams) error {
	notice, err := p.checker.Check(ctx)
	if errors.Is(err, selfupdate.ErrInvalidVersion) {
		fmt.Fprintf(p.stdout, "Current version: %s\n", getVersionString())
		fmt.Fprintln(p.stdout, WarningStyle.Render("Development builds cannot be upgraded; install a release instead."))
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking for upgrade: %w", err)
	}

	fmt.Fprintf(p.stdout, "Current version: %s\n", notice.CurrentVersion)
	if !notice.UpgradeAvailable {
		fmt.Fprintf(p.stdout, "\n%s\n", SuccessStyle.Render(notice.Message()))
		return nil
	}
	fmt.Fprintf(p.stdout, "Latest version:  %s\n", notice.LatestVersion)

	if p.check {
		fmt.Fprintf(p.stdout, "\nAn upgrade is available: %s → %s\n", notice.CurrentVersion, notice.LatestVersion)
		fmt.Fprintf(p.stdout, "Run %s to install.\n", CmdStyle.Render(notice.Command))
		return nil
	}

	argv, err := shell.Fields(notice.Command, os.Getenv)
	if err != nil {
		return fmt.Errorf("parsing upgrade command %q: %w", notice.Command, err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("empty upgrade command for %s", notice.Package)
	}

	fmt.Fprintf(p.stdout, "\nRunning %s\n", CmdStyle.Render(notice.Command))
	c := execCommand(ctx, argv[0], argv[1:]...)
	c.Stdout = p.stdout
	c.Stderr = p.stderr
	c.Stdin = os.Stdin
	if err := c.Run(); err != nil {
		return fmt.Errorf("running %q: %w", notice.Command, err)
	}

	fmt.Fprintln(p.stdout, SuccessStyle.Render("Successfully upgraded to "+notice.LatestVersion))
	return nil
}
