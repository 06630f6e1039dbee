// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SOALIN228/soa-cli/internal/testutil"
	"github.com/SOALIN228/soa-cli/pkg/types"
)

func withUserHome(t *testing.T) string {
	t.Helper()
	isolateEnv(t)
	home := t.TempDir()
	SetUserHomeOverride(home)
	t.Cleanup(Reset)
	return home
}

func TestResolveEnvironment_Defaults(t *testing.T) {
	userHome := withUserHome(t)

	env, err := ResolveEnvironment("")
	if err != nil {
		t.Fatalf("ResolveEnvironment() error = %v", err)
	}
	if env.UserHome != userHome {
		t.Errorf("UserHome = %q, want %q", env.UserHome, userHome)
	}
	if want := filepath.Join(userHome, DefaultHomeDirName); env.Home != want {
		t.Errorf("Home = %q, want %q", env.Home, want)
	}
	if env.TargetPath != "" {
		t.Errorf("TargetPath = %q, want empty", env.TargetPath)
	}
	if env.ConfigFile() != filepath.Join(env.Home, "config.cue") {
		t.Errorf("ConfigFile() = %q", env.ConfigFile())
	}
}

func TestResolveEnvironment_HomeFromEnv(t *testing.T) {
	userHome := withUserHome(t)

	t.Cleanup(testutil.MustSetenv(t, EnvHome, ".soa-cli"))
	env, err := ResolveEnvironment("")
	if err != nil {
		t.Fatalf("ResolveEnvironment() error = %v", err)
	}
	if want := filepath.Join(userHome, ".soa-cli"); env.Home != want {
		t.Errorf("relative %s: Home = %q, want %q", EnvHome, env.Home, want)
	}

	abs := t.TempDir()
	t.Cleanup(testutil.MustSetenv(t, EnvHome, abs))
	env, err = ResolveEnvironment("")
	if err != nil {
		t.Fatalf("ResolveEnvironment() error = %v", err)
	}
	if env.Home != abs {
		t.Errorf("absolute %s: Home = %q, want %q", EnvHome, env.Home, abs)
	}
}

func TestResolveEnvironment_Dotenv(t *testing.T) {
	userHome := withUserHome(t)

	target := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(userHome, ".env"),
		"SOA_CLI_HOME=from-dotenv\nSOA_CLI_TARGET_PATH="+target+"\n", 0o600)

	env, err := ResolveEnvironment("")
	if err != nil {
		t.Fatalf("ResolveEnvironment() error = %v", err)
	}
	if want := filepath.Join(userHome, "from-dotenv"); env.Home != want {
		t.Errorf("Home = %q, want %q", env.Home, want)
	}
	if env.TargetPath != target {
		t.Errorf("TargetPath = %q, want %q", env.TargetPath, target)
	}

	// Process variables win over ~/.env.
	t.Cleanup(testutil.MustSetenv(t, EnvHome, "from-process"))
	env, err = ResolveEnvironment("")
	if err != nil {
		t.Fatalf("ResolveEnvironment() error = %v", err)
	}
	if want := filepath.Join(userHome, "from-process"); env.Home != want {
		t.Errorf("Home = %q, want %q", env.Home, want)
	}
}

func TestResolveEnvironment_TargetPath(t *testing.T) {
	withUserHome(t)

	fromEnv := t.TempDir()
	t.Cleanup(testutil.MustSetenv(t, EnvTargetPath, fromEnv))

	flag := t.TempDir()
	env, err := ResolveEnvironment(types.FilesystemPath(flag))
	if err != nil {
		t.Fatalf("ResolveEnvironment() error = %v", err)
	}
	if env.TargetPath != flag {
		t.Errorf("TargetPath = %q, the flag should win over %s", env.TargetPath, EnvTargetPath)
	}

	env, err = ResolveEnvironment("pkg/local")
	if err != nil {
		t.Fatalf("ResolveEnvironment() error = %v", err)
	}
	wd, _ := os.Getwd()
	if want := filepath.Join(wd, "pkg", "local"); env.TargetPath != want {
		t.Errorf("relative TargetPath = %q, want %q", env.TargetPath, want)
	}
}

func TestResolveEnvironment_MissingUserHome(t *testing.T) {
	isolateEnv(t)
	SetUserHomeOverride(filepath.Join(t.TempDir(), "gone"))
	t.Cleanup(Reset)

	_, err := ResolveEnvironment("")
	if !errors.Is(err, ErrUserHomeNotFound) {
		t.Fatalf("expected ErrUserHomeNotFound, got %v", err)
	}
}

func TestResolveEnvironment_BadDotenv(t *testing.T) {
	userHome := withUserHome(t)
	testutil.MustWriteFile(t, filepath.Join(userHome, ".env"), "NOT A PAIR\n", 0o600)

	if _, err := ResolveEnvironment(""); err == nil {
		t.Fatal("expected an error for a malformed ~/.env")
	}
}
