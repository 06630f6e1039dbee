// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/SOALIN228/soa-cli/internal/cueutil"
	"github.com/SOALIN228/soa-cli/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "soa-cli"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SOA_CLI"
)

//go:embed config_schema.cue
var configSchema string

// FilePath returns the config file location inside the soa-cli home.
func FilePath(home string) string {
	return filepath.Join(home, ConfigFileName+"."+ConfigFileExt)
}

// loadWithOptions performs option-driven config loading and returns the
// config with the path of the file it was read from ("" for none).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	switch {
	case opts.ConfigFilePath != "":
		path := opts.ConfigFilePath.String()
		if !fileExists(path) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'soa-cli config init' to create a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", invalidFileError(path, err)
		}
		resolvedPath = path
	case opts.HomeDir != "":
		path := FilePath(opts.HomeDir.String())
		if fileExists(path) {
			if err := loadCUEIntoViper(v, path); err != nil {
				return nil, "", invalidFileError(path, err)
			}
			resolvedPath = path
		}
	}

	applyDotenv(v, opts.Dotenv)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Commands == nil {
		cfg.Commands = map[string]string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check SOA_CLI_* environment variables and ~/.env for invalid values").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("registry.mirror", defaults.Registry.Mirror)
	v.SetDefault("registry.url", defaults.Registry.URL)
	v.SetDefault("commands", defaults.Commands)
	v.SetDefault("runtime.interpreter", defaults.Runtime.Interpreter)
	v.SetDefault("update_check.enabled", defaults.UpdateCheck.Enabled)
	v.SetDefault("update_check.package", defaults.UpdateCheck.Package)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("git.server", defaults.Git.Server)
}

// applyDotenv sets the ~/.env value of every known key whose environment
// variable is not exported by the process.
func applyDotenv(v *viper.Viper, dotenv map[string]string) {
	if len(dotenv) == 0 {
		return
	}
	for _, key := range v.AllKeys() {
		if strings.HasPrefix(key, "commands") {
			continue
		}
		name := envName(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if val, ok := dotenv[name]; ok {
			v.Set(key, val)
		}
	}
}

// envName returns the environment variable bound to a config key.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func invalidFileError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithIssue(issue.ConfigLoadFailedId).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("Run 'soa-cli config show' to see the effective configuration").
		Wrap(err).
		BuildError()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// v. Fields stay optional, so validation does not require concrete values.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config file to path unless one
// exists. It reports whether a file was written.
func CreateDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// soa-cli configuration file\n\n")

	sb.WriteString("registry: {\n")
	fmt.Fprintf(&sb, "\tmirror: %v\n", cfg.Registry.Mirror)
	if cfg.Registry.URL != "" {
		fmt.Fprintf(&sb, "\turl: %q\n", cfg.Registry.URL)
	}
	sb.WriteString("}\n")

	if len(cfg.Commands) > 0 {
		sb.WriteString("\ncommands: {\n")
		for _, name := range slices.Sorted(maps.Keys(cfg.Commands)) {
			fmt.Fprintf(&sb, "\t%q: %q\n", name, cfg.Commands[name])
		}
		sb.WriteString("}\n")
	}

	sb.WriteString("\nruntime: {\n")
	fmt.Fprintf(&sb, "\tinterpreter: %q\n", cfg.Runtime.Interpreter)
	sb.WriteString("}\n")

	sb.WriteString("\nupdate_check: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.UpdateCheck.Enabled)
	fmt.Fprintf(&sb, "\tpackage: %q\n", cfg.UpdateCheck.Package)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	sb.WriteString("\ngit: {\n")
	fmt.Fprintf(&sb, "\tserver: %q\n", cfg.Git.Server)
	sb.WriteString("}\n")

	return sb.String()
}
