// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SOALIN228/soa-cli/internal/issue"
	"github.com/SOALIN228/soa-cli/pkg/types"
)

const (
	// EnvHome moves the soa-cli home. Relative values are taken from the
	// user home directory.
	EnvHome = EnvPrefix + "_HOME"
	// EnvTargetPath points command dispatch at a local package directory.
	EnvTargetPath = EnvPrefix + "_TARGET_PATH"
	// DefaultHomeDirName is the soa-cli home below the user home.
	DefaultHomeDirName = ".soa-cli-dev"
	// DotenvFileName is read from the user home directory.
	DotenvFileName = ".env"
)

// ErrUserHomeNotFound is returned when the user home directory is missing.
var ErrUserHomeNotFound = errors.New("user home directory not found")

// Environment is everything resolved from the process environment once at
// startup and handed down explicitly.
type Environment struct {
	// UserHome is the user's home directory.
	UserHome string
	// Home is the soa-cli home holding config.cue and the package cache.
	Home string
	// TargetPath is a local command package directory, empty when dispatch
	// goes through the cache.
	TargetPath string
	// Dotenv holds the variables read from ~/.env.
	Dotenv map[string]string
}

// UserHomeDir returns the user home directory, honoring test overrides.
func UserHomeDir() (string, error) {
	if userHomeOverride != "" {
		return userHomeOverride, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return home, nil
}

// ResolveEnvironment locates the user home, reads ~/.env and resolves the
// soa-cli home and local target path. targetPath, when set, wins over
// SOA_CLI_TARGET_PATH. Process variables win over ~/.env entries.
func ResolveEnvironment(targetPath types.FilesystemPath) (*Environment, error) {
	userHome, err := UserHomeDir()
	if err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(userHome); statErr != nil || !info.IsDir() {
		return nil, issue.NewErrorContext().
			WithOperation("resolve user home directory").
			WithResource(userHome).
			WithIssue(issue.UserHomeNotFoundId).
			WithSuggestion("Set HOME to an existing directory").
			Wrap(ErrUserHomeNotFound).
			BuildError()
	}

	dotenv, err := LoadDotenv(filepath.Join(userHome, DotenvFileName))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load environment file").
			WithResource(filepath.Join(userHome, DotenvFileName)).
			WithSuggestion("Each line must have the form KEY=value").
			Wrap(err).
			BuildError()
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}

	env := &Environment{
		UserHome: userHome,
		Home:     filepath.Join(userHome, DefaultHomeDirName),
		Dotenv:   dotenv,
	}
	if h := lookup(EnvHome); h != "" {
		env.Home = types.FilesystemPath(h).Resolve(userHome)
	}

	if targetPath == "" {
		targetPath = types.FilesystemPath(lookup(EnvTargetPath))
	}
	if targetPath != "" {
		if err := targetPath.Validate(); err != nil {
			return nil, err
		}
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		env.TargetPath = targetPath.Resolve(wd)
	}

	return env, nil
}

// ConfigFile returns the config file path inside the soa-cli home.
func (e *Environment) ConfigFile() string { return FilePath(e.Home) }
