// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/SOALIN228/soa-cli/internal/config"
	"github.com/SOALIN228/soa-cli/internal/dispatch"
	"github.com/SOALIN228/soa-cli/internal/gitserver"
	"github.com/SOALIN228/soa-cli/internal/installer"
	"github.com/SOALIN228/soa-cli/internal/issue"
	"github.com/SOALIN228/soa-cli/internal/pkgcache"
	"github.com/SOALIN228/soa-cli/pkg/types"
)

// runE adapts a handler to the CLI error contract: failures are rendered
// once to stderr and returned as an ExitError with status 1. An ExitError
// without cause carries a child's status and is passed through silently.
func (a *App) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true

		err := fn(cmd, args)
		if err == nil {
			return nil
		}

		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Err == nil {
			return err
		}
		a.renderError(err)
		return &ExitError{Code: types.ExitFailure, Err: err}
	}
}

// classifyError maps a failure to its issue catalog entry. It returns 0 when
// no entry applies.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}

	switch {
	case errors.Is(err, dispatch.ErrUnknownCommand):
		return issue.UnknownCommandId
	case errors.Is(err, installer.ErrIntegrityMismatch):
		return issue.IntegrityMismatchId
	case errors.Is(err, pkgcache.ErrRegistryUnavailable):
		return issue.RegistryUnavailableId
	case errors.Is(err, pkgcache.ErrNoVersions):
		return issue.NoVersionsId
	case errors.Is(err, pkgcache.ErrInstallFailure):
		return issue.InstallFailedId
	case errors.Is(err, pkgcache.ErrEntryNotFound):
		return issue.EntryNotFoundId
	case errors.Is(err, dispatch.ErrSpawn):
		return issue.SpawnFailedId
	case errors.Is(err, gitserver.ErrMissingToken), errors.Is(err, gitserver.ErrUnauthorized):
		return issue.GitTokenMissingId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	}
	return 0
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderError writes err to stderr. In verbose mode the matching catalog
// entry follows; otherwise a hint points at --debug.
func (a *App) renderError(err error) {
	verbose := a.verbose()
	fmt.Fprintf(a.stderr, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))

	id := classifyError(err)
	if id == 0 {
		return
	}
	if !verbose {
		fmt.Fprintln(a.stderr, SubtitleStyle.Render("Run again with --debug for troubleshooting help."))
		return
	}

	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render(a.glamourStyle())
	if renderErr != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
		return
	}
	fmt.Fprint(a.stderr, rendered)
}

// glamourStyle picks the markdown style for ui.color_scheme.
func (a *App) glamourStyle() string {
	scheme := config.ColorSchemeAuto
	if a.cfg != nil {
		scheme = a.cfg.UI.ColorScheme
	}
	switch scheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		if lipgloss.HasDarkBackground() {
			return "dark"
		}
		return "light"
	}
}
