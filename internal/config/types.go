// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/SOALIN228/soa-cli/internal/registry"
	"github.com/SOALIN228/soa-cli/pkg/pkgref"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// GitServerGithub selects github.com.
	GitServerGithub GitServerType = "github"
	// GitServerGitee selects gitee.com.
	GitServerGitee GitServerType = "gitee"

	// DefaultInterpreter runs JavaScript entry points.
	DefaultInterpreter = "node"
	// DefaultUpdatePackage is the registry package the update notice checks.
	DefaultUpdatePackage = "@soa-cli/core"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidGitServer is returned when a GitServerType value is not recognized.
	ErrInvalidGitServer = errors.New("invalid git server")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// GitServerType names a supported Git hosting service.
	GitServerType string

	// InvalidGitServerError is returned when a GitServerType value is not recognized.
	InvalidGitServerError struct {
		Value GitServerType
	}

	// InvalidConfigError collects the field errors of a Config. It wraps
	// ErrInvalidConfig and every field error.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Registry RegistryConfig `json:"registry" mapstructure:"registry" toml:"registry"`
		// Commands adds or overrides command-to-package table entries.
		Commands    map[string]string `json:"commands" mapstructure:"commands" toml:"commands"`
		Runtime     RuntimeConfig     `json:"runtime" mapstructure:"runtime" toml:"runtime"`
		UpdateCheck UpdateCheckConfig `json:"update_check" mapstructure:"update_check" toml:"update_check"`
		UI          UIConfig          `json:"ui" mapstructure:"ui" toml:"ui"`
		Git         GitConfig         `json:"git" mapstructure:"git" toml:"git"`
	}

	// RegistryConfig selects the npm registry.
	RegistryConfig struct {
		// Mirror selects the npmmirror registry instead of the official one.
		Mirror bool `json:"mirror" mapstructure:"mirror" toml:"mirror"`
		// URL, when set, overrides both built-in registries.
		URL string `json:"url" mapstructure:"url" toml:"url"`
	}

	// RuntimeConfig configures how command packages are started.
	RuntimeConfig struct {
		// Interpreter is the command line used for JavaScript entry points.
		Interpreter string `json:"interpreter" mapstructure:"interpreter" toml:"interpreter"`
	}

	// UpdateCheckConfig configures the startup notice about newer CLI releases.
	UpdateCheckConfig struct {
		Enabled bool   `json:"enabled" mapstructure:"enabled" toml:"enabled"`
		Package string `json:"package" mapstructure:"package" toml:"package"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme"`
		// Verbose enables debug logging, like --debug.
		Verbose bool `json:"verbose" mapstructure:"verbose" toml:"verbose"`
	}

	// GitConfig selects the default Git hosting service.
	GitConfig struct {
		Server GitServerType `json:"server" mapstructure:"server" toml:"server"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{},
		Commands: map[string]string{},
		Runtime: RuntimeConfig{
			Interpreter: DefaultInterpreter,
		},
		UpdateCheck: UpdateCheckConfig{
			Enabled: true,
			Package: DefaultUpdatePackage,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
		Git: GitConfig{
			Server: GitServerGithub,
		},
	}
}

// RegistryURL returns the registry packages are fetched from: the explicit
// URL when set, otherwise the official or mirror registry.
func (c *Config) RegistryURL() string {
	if u := strings.TrimSpace(c.Registry.URL); u != "" {
		return strings.TrimRight(u, "/")
	}
	return registry.DefaultRegistry(!c.Registry.Mirror)
}

// Validate checks the fields CUE does not see, such as values coming from
// environment overrides.
func (c *Config) Validate() error {
	var errs []error
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Git.Server.Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Runtime.Interpreter) == "" {
		errs = append(errs, errors.New("runtime.interpreter must not be empty"))
	}
	if c.UpdateCheck.Enabled {
		if err := pkgref.Name(c.UpdateCheck.Package).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("update_check.package: %w", err))
		}
	}
	for _, cmd := range slices.Sorted(maps.Keys(c.Commands)) {
		if err := pkgref.Name(c.Commands[cmd]).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("commands.%s: %w", cmd, err))
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Validate returns an error if the ColorScheme is not recognized.
func (c ColorScheme) Validate() error {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	}
	return &InvalidColorSchemeError{Value: c}
}

// Validate returns an error if the GitServerType is not recognized.
func (s GitServerType) Validate() error {
	switch s {
	case GitServerGithub, GitServerGitee:
		return nil
	}
	return &InvalidGitServerError{Value: s}
}

func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

func (e *InvalidGitServerError) Error() string {
	return fmt.Sprintf("invalid git server %q (valid: github, gitee)", e.Value)
}

func (e *InvalidGitServerError) Unwrap() error { return ErrInvalidGitServer }

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
