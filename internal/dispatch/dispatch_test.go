// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/SOALIN228/soa-cli/internal/installer"
	"github.com/SOALIN228/soa-cli/internal/pkgcache"
	"github.com/SOALIN228/soa-cli/internal/registry"
	"github.com/SOALIN228/soa-cli/internal/testutil"
	"github.com/SOALIN228/soa-cli/pkg/pkgref"
	"github.com/SOALIN228/soa-cli/pkg/types"
)

// recordScript writes its first argument next to the package manifest and
// exits with the status found in the invocation's "code" option.
const recordScript = `#!/bin/sh
dir=$(cd "$(dirname "$0")/.." && pwd)
printf '%s' "$1" > "$dir/invocation.json"
[ "$SOA_CLI_INVOCATION" = "$1" ] || exit 99
echo "hello from package"
exit 7
`

// dependentScript is recordScript for a package that requires its
// "kebab-case" dependency to resolve from the package directory.
const dependentScript = `#!/bin/sh
dir=$(cd "$(dirname "$0")/.." && pwd)
[ -f "$dir/node_modules/kebab-case/index.js" ] || exit 98
printf '%s' "$1" > "$dir/invocation.json"
[ "$SOA_CLI_INVOCATION" = "$1" ] || exit 99
echo "hello from package"
exit 7
`

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script entry points require a POSIX shell")
	}
}

func newTestDispatcher(t *testing.T, reg *testutil.FakeRegistry, opts Options) (*Dispatcher, *bytes.Buffer) {
	t.Helper()

	table, err := NewTable(map[string]string{"init": "@scope/init"})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	var stdout bytes.Buffer
	if opts.Home == "" {
		opts.Home = filepath.Join(t.TempDir(), ".soa-cli-dev")
	}
	if reg != nil {
		client := registry.NewClient(registry.WithRegistryURL(reg.URL()))
		opts.Registry = client.URL()
		opts.Resolver = client
		opts.Installer = installer.NewTarballInstaller()
	}
	opts.Stdin = bytes.NewReader(nil)
	opts.Stdout = &stdout
	opts.Stderr = &bytes.Buffer{}
	return New(table, opts), &stdout
}

func TestTable_Lookup(t *testing.T) {
	t.Parallel()

	table, err := NewTable(map[string]string{"lint": "@soa-cli/lint", "init": "@acme/init"})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	tests := []struct {
		command string
		want    pkgref.Name
	}{
		{"init", "@acme/init"},
		{"publish", "@soa-cli/publish"},
		{"lint", "@soa-cli/lint"},
	}
	for _, tt := range tests {
		got, err := table.Lookup(tt.command)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", tt.command, err)
		}
		if got != tt.want {
			t.Errorf("Lookup(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}

	if got := table.Commands(); !slices.Equal(got, []string{"init", "lint", "publish"}) {
		t.Errorf("Commands() = %v", got)
	}
}

func TestTable_UnknownCommandSuggestions(t *testing.T) {
	t.Parallel()

	table, err := NewTable(nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	_, err = table.Lookup("pubish")
	var uce *UnknownCommandError
	if !errors.As(err, &uce) {
		t.Fatalf("expected *UnknownCommandError, got %v", err)
	}
	if !errors.Is(err, ErrUnknownCommand) {
		t.Error("expected errors.Is(err, ErrUnknownCommand)")
	}
	if !slices.Contains(uce.Suggestions, "publish") {
		t.Errorf("Suggestions = %v, want publish", uce.Suggestions)
	}

	_, err = table.Lookup("zzz")
	if !errors.As(err, &uce) || len(uce.Suggestions) != 0 {
		t.Errorf("expected no suggestions for zzz, got %v", err)
	}
}

func TestNewTable_RejectsInvalidPackage(t *testing.T) {
	t.Parallel()

	if _, err := NewTable(map[string]string{"bad": "a/b/c"}); !errors.Is(err, pkgref.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
	if _, err := NewTable(map[string]string{" ": "pkg"}); err == nil {
		t.Error("expected an error for an empty command name")
	}
}

func TestInvocation_Sanitized(t *testing.T) {
	t.Parallel()

	inv := Invocation{
		Command: "init",
		Args:    []string{"my-app"},
		Options: map[string]any{
			"force":       true,
			"template":    "vue",
			"retries":     3,
			"tags":        []string{"a", "b"},
			"_parent":     "cobra internals",
			"debug":       true,
			"target-path": "/tmp/x",
			"nested":      map[string]any{"cycle": nil},
			"fn":          func() {},
		},
	}

	got := inv.Sanitized()
	want := map[string]any{"force": true, "template": "vue", "retries": 3, "tags": []string{"a", "b"}}
	if len(got.Options) != len(want) {
		t.Fatalf("Options = %v, want %v", got.Options, want)
	}
	for k := range want {
		if _, ok := got.Options[k]; !ok {
			t.Errorf("option %q missing", k)
		}
	}

	data, err := inv.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Invocation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Command != "init" || !slices.Equal(decoded.Args, []string{"my-app"}) {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestParseInterpreter(t *testing.T) {
	t.Parallel()

	got, err := ParseInterpreter(`node --title "soa cli"`)
	if err != nil {
		t.Fatalf("ParseInterpreter: %v", err)
	}
	if want := []string{"node", "--title", "soa cli"}; !slices.Equal(got, want) {
		t.Errorf("ParseInterpreter = %q, want %q", got, want)
	}

	if _, err := ParseInterpreter("   "); err == nil {
		t.Error("expected an error for an empty interpreter")
	}
	if _, err := ParseInterpreter(`node "unterminated`); err == nil {
		t.Error("expected an error for unbalanced quotes")
	}
}

func TestDispatch_UnknownCommandTouchesNothing(t *testing.T) {
	t.Parallel()

	reg := testutil.NewFakeRegistry(t)
	home := filepath.Join(t.TempDir(), "home")
	d, _ := newTestDispatcher(t, reg, Options{Home: home})

	code, err := d.Dispatch(context.Background(), Invocation{Command: "foo"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if code != types.ExitFailure {
		t.Errorf("code = %d, want %d", code, types.ExitFailure)
	}
	if n := reg.TotalRequests(); n != 0 {
		t.Errorf("registry requests = %d, want 0", n)
	}
	testutil.MustNotExist(t, home)
}

func TestDispatch_InstallsAndRunsLatest(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	reg := testutil.NewFakeRegistry(t)
	reg.Publish(t, "@scope/init", "1.1.0", map[string]string{
		"package.json": `{"name":"@scope/init","main":"bin/run.sh"}`,
		"bin/run.sh":   "#!/bin/sh\nexit 1\n",
	})
	reg.Publish(t, "@scope/init", "1.2.0", map[string]string{
		"package.json": `{"name":"@scope/init","main":"bin/run.sh","dependencies":{"kebab-case":"^1.0.0"}}`,
		"bin/run.sh":   dependentScript,
	})
	for _, v := range []string{"1.0.0", "1.1.0", "2.0.0"} {
		reg.Publish(t, "kebab-case", v, map[string]string{
			"package.json": `{"name":"kebab-case","version":"` + v + `","main":"index.js"}`,
			"index.js":     "module.exports = s => s",
		})
	}

	d, stdout := newTestDispatcher(t, reg, Options{})
	inv := Invocation{Command: "init", Args: []string{"my-app"}, Options: map[string]any{"force": true, "debug": true}}

	code, err := d.Dispatch(context.Background(), inv)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if code != 7 {
		t.Errorf("code = %d, want 7", code)
	}
	if got := stdout.String(); got != "hello from package\n" {
		t.Errorf("stdout = %q", got)
	}

	_, store := StorePaths(d.opts.Home)
	slot := filepath.Join(store, "_@scope_init@1.2.0@@scope")
	testutil.MustExist(t, slot)
	testutil.MustNotExist(t, filepath.Join(store, "_@scope_init@1.1.0@@scope"))
	testutil.MustExist(t, pkgref.SlotPath(store, "kebab-case", "1.1.0"))
	testutil.MustNotExist(t, pkgref.SlotPath(store, "kebab-case", "2.0.0"))

	data, err := os.ReadFile(filepath.Join(slot, "init", "invocation.json"))
	if err != nil {
		t.Fatalf("reading recorded invocation: %v", err)
	}
	var got Invocation
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding recorded invocation: %v", err)
	}
	if got.Command != "init" || !slices.Equal(got.Args, []string{"my-app"}) {
		t.Errorf("child saw %+v", got)
	}
	if got.Options["force"] != true {
		t.Errorf("force option = %v, want true", got.Options["force"])
	}
	if _, ok := got.Options["debug"]; ok {
		t.Error("CLI-level debug option leaked into the child")
	}

	// The second run finds the cached latest slot and does not download.
	tarballs := reg.TarballRequests()
	if _, err := d.Dispatch(context.Background(), inv); err != nil {
		t.Fatalf("second Dispatch: %v", err)
	}
	if reg.TarballRequests() != tarballs {
		t.Error("second dispatch downloaded a tarball")
	}
}

func TestDispatch_LocalTargetPathBypassesCache(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	reg := testutil.NewFakeRegistry(t)
	local := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(local, "package.json"), `{"main":"bin/run.sh"}`, 0o644)
	testutil.MustWriteFile(t, filepath.Join(local, "bin", "run.sh"), recordScript, 0o755)

	d, _ := newTestDispatcher(t, reg, Options{TargetPath: local})
	code, err := d.Dispatch(context.Background(), Invocation{Command: "init"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if code != 7 {
		t.Errorf("code = %d, want 7", code)
	}
	if n := reg.TotalRequests(); n != 0 {
		t.Errorf("registry requests = %d, want 0", n)
	}
	testutil.MustNotExist(t, d.opts.Home)
	testutil.MustExist(t, filepath.Join(local, "invocation.json"))
}

func TestDispatch_JavaScriptEntryUsesInterpreter(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	local := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(local, "package.json"), `{"main":"index.js"}`, 0o644)
	// Not executable: only the interpreter can run it.
	testutil.MustWriteFile(t, filepath.Join(local, "index.js"), "echo interpreted\nexit 3\n", 0o644)

	d, stdout := newTestDispatcher(t, nil, Options{TargetPath: local, Interpreter: []string{"/bin/sh"}})
	code, err := d.Dispatch(context.Background(), Invocation{Command: "init"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if code != 3 {
		t.Errorf("code = %d, want 3", code)
	}
	if stdout.String() != "interpreted\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestDispatch_EntryNotFound(t *testing.T) {
	t.Parallel()

	local := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(local, "package.json"), `{"name":"no-entry"}`, 0o644)

	d, _ := newTestDispatcher(t, nil, Options{TargetPath: local})
	code, err := d.Dispatch(context.Background(), Invocation{Command: "init"})
	if !errors.Is(err, pkgcache.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if code != types.ExitFailure {
		t.Errorf("code = %d, want %d", code, types.ExitFailure)
	}
}

func TestDispatch_MissingTargetPath(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "not-there")
	d, _ := newTestDispatcher(t, nil, Options{TargetPath: missing})
	code, err := d.Dispatch(context.Background(), Invocation{Command: "init"})
	if !errors.Is(err, pkgcache.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	var enf *pkgcache.EntryNotFoundError
	if !errors.As(err, &enf) || enf.Dir != missing {
		t.Errorf("expected *EntryNotFoundError for %s, got %v", missing, err)
	}
	if code != types.ExitFailure {
		t.Errorf("code = %d, want %d", code, types.ExitFailure)
	}
}

func TestDispatch_SpawnFailure(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	local := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(local, "package.json"), `{"main":"bin/missing"}`, 0o644)

	d, _ := newTestDispatcher(t, nil, Options{TargetPath: local})
	code, err := d.Dispatch(context.Background(), Invocation{Command: "init"})
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	var se *SpawnError
	if !errors.As(err, &se) || se.Entry == "" {
		t.Errorf("expected *SpawnError with entry, got %v", err)
	}
	if code != types.ExitFailure {
		t.Errorf("code = %d, want %d", code, types.ExitFailure)
	}
}

// Not parallel: swaps the default logger.
func TestDispatch_SpawnFailureIsNotLoggedTwice(t *testing.T) {
	skipOnWindows(t)

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	local := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(local, "package.json"), `{"main":"bin/missing"}`, 0o644)

	d, _ := newTestDispatcher(t, nil, Options{TargetPath: local})
	if _, err := d.Dispatch(context.Background(), Invocation{Command: "init"}); !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if logs.Len() != 0 {
		t.Errorf("spawn failure logged above debug level:\n%s", logs.String())
	}
}

func TestDispatch_InstallFailureAborts(t *testing.T) {
	t.Parallel()

	reg := testutil.NewFakeRegistry(t)
	reg.PublishVersions(t, "@scope/init", "1.0.0")
	reg.Corrupt("@scope/init", "1.0.0")

	d, _ := newTestDispatcher(t, reg, Options{})
	code, err := d.Dispatch(context.Background(), Invocation{Command: "init"})
	if !errors.Is(err, pkgcache.ErrInstallFailure) {
		t.Fatalf("expected ErrInstallFailure, got %v", err)
	}
	if !errors.Is(err, installer.ErrIntegrityMismatch) {
		t.Errorf("expected the integrity failure to be wrapped, got %v", err)
	}
	if code != types.ExitFailure {
		t.Errorf("code = %d, want %d", code, types.ExitFailure)
	}
}
