// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/SOALIN228/soa-cli/internal/dispatch"
)

// reservedCommands are added by Cobra itself and cannot come from the
// command table.
var reservedCommands = map[string]bool{
	"help":       true,
	"completion": true,
}

func (a *App) newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [projectName]",
		Short: "Create a project from a template",
		Long: `Create a project from a template.

The prompts and templates live in the init command package, which is
installed or updated before it runs.`,
		Example: `  soa-cli init my-app
  soa-cli init my-app --force`,
		Args: cobra.MaximumNArgs(1),
	}
	cmd.RunE = a.runE(a.runPackageCommand)
	cmd.Flags().BoolP("force", "f", false, "initialize even when the target directory is not empty")
	return cmd
}

func (a *App) newPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build and publish the current project",
		Example: `  soa-cli publish
  soa-cli publish --refresh-token
  soa-cli publish --build-cmd "npm run build"`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.runE(a.runPackageCommand)
	cmd.Flags().Bool("refresh-server", false, "choose the Git hosting service again")
	cmd.Flags().Bool("refresh-token", false, "enter the Git access token again")
	cmd.Flags().Bool("refresh-owner", false, "choose the repository owner again")
	cmd.Flags().String("build-cmd", "", "command that builds the project")
	return cmd
}

// newTableCommands returns one pass-through command per table entry that
// has no command of its own. Their arguments reach the package verbatim.
func (a *App) newTableCommands(root *cobra.Command) []*cobra.Command {
	if a.table == nil {
		return nil
	}

	existing := make(map[string]bool)
	for _, c := range root.Commands() {
		existing[c.Name()] = true
		for _, alias := range c.Aliases {
			existing[alias] = true
		}
	}

	var cmds []*cobra.Command
	for _, name := range a.table.Commands() {
		if existing[name] {
			continue
		}
		if reservedCommands[name] {
			slog.Warn("ignoring configured command with a reserved name", "command", name)
			continue
		}
		pkg, err := a.table.Lookup(name)
		if err != nil {
			continue
		}
		cmds = append(cmds, &cobra.Command{
			Use:                name + " [args...]",
			Short:              fmt.Sprintf("Run the %s command package", pkg),
			DisableFlagParsing: true,
			RunE:               a.runE(a.runPackageCommand),
		})
	}
	return cmds
}

// runPackageCommand dispatches the invoked command to its package and
// mirrors the child's exit status.
func (a *App) runPackageCommand(cmd *cobra.Command, args []string) error {
	if _, _, err := a.session(); err != nil {
		return err
	}
	d, err := a.newDispatcher()
	if err != nil {
		return err
	}

	if cmd.DisableFlagParsing {
		args = argsAfterCommand(a.args, cmd.Name())
	}
	inv := dispatch.Invocation{
		Command: cmd.Name(),
		Args:    slices.Clone(args),
		Options: invocationOptions(cmd),
	}
	slog.Debug("dispatching command", "command", inv.Command, "args", inv.Args)

	code, err := d.Dispatch(cmd.Context(), inv)
	if err != nil {
		return err
	}
	if !code.IsSuccess() {
		return &ExitError{Code: code}
	}
	return nil
}

// argsAfterCommand returns what follows name in the process arguments,
// skipping the global flags that may precede it.
func argsAfterCommand(args []string, name string) []string {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case name:
			return args[i+1:]
		case "--target-path", "--config":
			i++
		}
	}
	return nil
}

// invocationOptions collects the command's own flags, defaults included,
// keyed by their camelCase names. Hidden and inherited flags are left out.
func invocationOptions(cmd *cobra.Command) map[string]any {
	opts := make(map[string]any)
	if cmd.DisableFlagParsing {
		return opts
	}
	flags := cmd.Flags()
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		opts[optionKey(f.Name)] = flagValue(flags, f)
	})
	return opts
}

func flagValue(fs *pflag.FlagSet, f *pflag.Flag) any {
	switch f.Value.Type() {
	case "bool":
		if v, err := fs.GetBool(f.Name); err == nil {
			return v
		}
	case "int":
		if v, err := fs.GetInt(f.Name); err == nil {
			return v
		}
	case "stringSlice":
		if v, err := fs.GetStringSlice(f.Name); err == nil {
			return v
		}
	}
	return f.Value.String()
}

// optionKey converts a kebab-case flag name to camelCase.
func optionKey(name string) string {
	parts := strings.Split(name, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
