// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/SOALIN228/soa-cli/internal/config"
	"github.com/SOALIN228/soa-cli/internal/issue"
)

// newConfigCommand creates the `soa-cli config` command tree.
func (a *App) newConfigCommand() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage soa-cli configuration",
		Long: `Manage soa-cli configuration.

Configuration is read from <soa-cli home>/config.cue, where the home is
~/.soa-cli-dev unless SOA_CLI_HOME says otherwise. Every key can be
overridden with a SOA_CLI_<SECTION>_<KEY> environment variable, for
example SOA_CLI_REGISTRY_MIRROR=true.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  a.runE(a.showConfig),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			if _, _, err := a.session(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.configFile())
			return nil
		}),
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE:  a.runE(a.initConfig),
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func (a *App) showConfig(cmd *cobra.Command, _ []string) error {
	_, cfg, err := a.session()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("rendering configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	path := a.configFile()
	if _, statErr := os.Stat(path); statErr == nil {
		fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Registry"), SuccessStyle.Render(cfg.RegistryURL()))
	fmt.Fprintln(out)
	fmt.Fprint(out, string(data))
	return nil
}

func (a *App) initConfig(cmd *cobra.Command, _ []string) error {
	if _, _, err := a.session(); err != nil {
		return err
	}
	path := a.configFile()
	force, _ := cmd.Flags().GetBool("force")

	if force {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return configWriteError(path, err)
		}
		if err := os.WriteFile(path, []byte(config.GenerateCUE(config.DefaultConfig())), 0o644); err != nil {
			return configWriteError(path, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Wrote default configuration to "+path))
		return nil
	}

	created, err := config.CreateDefaultConfig(path)
	if err != nil {
		return configWriteError(path, err)
	}
	if !created {
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at %s (use --force to overwrite)\n", path)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Created configuration at "+path))
	return nil
}

func configWriteError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("write configuration").
		WithResource(path).
		WithSuggestion("Check that the soa-cli home is writable").
		Wrap(err).
		BuildError()
}
