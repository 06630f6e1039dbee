// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SOALIN228/soa-cli/internal/config"
	"github.com/SOALIN228/soa-cli/internal/testutil"
)

func TestConfigShow(t *testing.T) {
	e := newCLIEnv(t)
	e.writeConfig(t, func(cfg *config.Config) {
		cfg.Commands = map[string]string{"lint": "@soa-cli/lint"}
	})

	if err := e.run(t, "config", "show"); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := e.stdout.String()
	for _, want := range []string{
		"Current Configuration",
		config.FilePath(e.home),
		e.reg.URL(),
		"[registry]",
		"lint = '@soa-cli/lint'",
		"interpreter = 'node'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("config show output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShow_EnvOverride(t *testing.T) {
	e := newCLIEnv(t)
	t.Cleanup(testutil.MustSetenv(t, "SOA_CLI_RUNTIME_INTERPRETER", "bun"))

	if err := e.run(t, "config", "show"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(e.stdout.String(), "interpreter = 'bun'") {
		t.Errorf("expected the env override in:\n%s", e.stdout.String())
	}
}

func TestConfigPath(t *testing.T) {
	e := newCLIEnv(t)

	if err := e.run(t, "config", "path"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(e.stdout.String()); got != config.FilePath(e.home) {
		t.Errorf("config path = %q, want %q", got, config.FilePath(e.home))
	}

	custom := filepath.Join(t.TempDir(), "custom.cue")
	testutil.MustWriteFile(t, custom, "registry: mirror: true\n", 0o644)
	if err := e.run(t, "--config", custom, "config", "path"); err != nil {
		t.Fatalf("run with --config: %v", err)
	}
	if got := strings.TrimSpace(e.stdout.String()); got != custom {
		t.Errorf("config path = %q, want %q", got, custom)
	}
}

func TestConfigInit(t *testing.T) {
	e := newCLIEnv(t)
	path := config.FilePath(e.home)
	if err := os.Remove(path); err != nil {
		t.Fatalf("removing config: %v", err)
	}

	if err := e.run(t, "config", "init"); err != nil {
		t.Fatalf("run: %v", err)
	}
	testutil.MustExist(t, path)
	if !strings.Contains(e.stdout.String(), "Created") {
		t.Errorf("stdout = %q", e.stdout.String())
	}

	if err := os.WriteFile(path, []byte("registry: mirror: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.run(t, "config", "init"); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(e.stdout.String(), "already exists") {
		t.Errorf("stdout = %q", e.stdout.String())
	}

	if err := e.run(t, "config", "init", "--force"); err != nil {
		t.Fatalf("run --force: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != config.GenerateCUE(config.DefaultConfig()) {
		t.Errorf("--force did not write the defaults:\n%s", data)
	}
}
