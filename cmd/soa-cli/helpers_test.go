// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/SOALIN228/soa-cli/internal/config"
	"github.com/SOALIN228/soa-cli/internal/testutil"
)

// cliEnv is an isolated user home with a soa-cli home below it.
type cliEnv struct {
	userHome string
	home     string
	reg      *testutil.FakeRegistry
	deps     Dependencies
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

// newCLIEnv points the user home at a temp dir, clears every SOA_CLI_*
// variable of the process and turns the update notice off. Tests using it must not run in parallel.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix+"_") {
			t.Cleanup(testutil.MustUnsetenv(t, key))
		}
	}
	// Keeps commands that fall back to the public registries offline.
	t.Cleanup(testutil.MustSetenv(t, "SOA_CLI_UPDATE_CHECK_ENABLED", "false"))

	userHome := t.TempDir()
	config.SetUserHomeOverride(userHome)
	t.Cleanup(config.Reset)

	e := &cliEnv{
		userHome: userHome,
		home:     filepath.Join(userHome, config.DefaultHomeDirName),
		reg:      testutil.NewFakeRegistry(t),
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
	}
	e.deps = Dependencies{
		Stdin:  bytes.NewReader(nil),
		Stdout: e.stdout,
		Stderr: e.stderr,
	}
	e.writeConfig(t, nil)
	return e
}

// writeConfig writes a config file that points at the fake registry with
// the update notice off. edit, when set, adjusts it first.
func (e *cliEnv) writeConfig(t *testing.T, edit func(*config.Config)) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Registry.URL = e.reg.URL()
	cfg.UpdateCheck.Enabled = false
	if edit != nil {
		edit(cfg)
	}
	testutil.MustWriteFile(t, config.FilePath(e.home), config.GenerateCUE(cfg), 0o644)
}

// run executes the command tree with args.
func (e *cliEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	e.stdout.Reset()
	e.stderr.Reset()

	ctx := context.Background()
	root := NewApp(e.deps).NewRootCommand(ctx, args)
	return root.ExecuteContext(ctx)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script entry points require a POSIX shell")
	}
}
