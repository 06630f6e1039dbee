// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SOALIN228/soa-cli/internal/registry"
	"github.com/SOALIN228/soa-cli/internal/testutil"
)

const corePackage = "@soa-cli/core"

// withExecPath points the executable seams at path.
func withExecPath(t *testing.T, path string, err error) {
	t.Helper()
	origExec, origEval := osExecutable, evalSymlinks
	osExecutable = func() (string, error) { return path, err }
	evalSymlinks = func(p string) (string, error) { return p, nil }
	t.Cleanup(func() {
		osExecutable = origExec
		evalSymlinks = origEval
	})
}

func newRegistryClient(reg *testutil.FakeRegistry) *registry.Client {
	return registry.NewClient(
		registry.WithRegistryURL(reg.URL()),
		registry.WithHTTPClient(reg.Client()),
	)
}

func TestChecker_UpgradeAvailable(t *testing.T) {
	withHint(t, "")
	withExecPath(t, "/usr/local/lib/node_modules/@soa-cli/core/bin/soa-cli", nil)

	reg := testutil.NewFakeRegistry(t)
	reg.PublishVersions(t, corePackage, "1.0.0", "1.2.0", "1.10.0")

	n, err := NewChecker("1.2.0", corePackage, newRegistryClient(reg)).Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !n.UpgradeAvailable {
		t.Fatal("UpgradeAvailable = false, want true")
	}
	if n.LatestVersion != "1.10.0" {
		t.Errorf("LatestVersion = %q, want 1.10.0", n.LatestVersion)
	}
	if n.InstallMethod != InstallMethodNpm {
		t.Errorf("InstallMethod = %v, want npm", n.InstallMethod)
	}
	if n.Command != "npm install -g @soa-cli/core" {
		t.Errorf("Command = %q", n.Command)
	}
	msg := n.Message()
	for _, want := range []string{"1.2.0", "1.10.0", "npm install -g @soa-cli/core"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Message() = %q, missing %q", msg, want)
		}
	}
}

func TestChecker_UpToDate(t *testing.T) {
	withHint(t, "")
	withExecPath(t, "/opt/soa-cli", nil)

	reg := testutil.NewFakeRegistry(t)
	reg.PublishVersions(t, corePackage, "1.0.0", "1.2.0")

	n, err := NewChecker("1.2.0", corePackage, newRegistryClient(reg)).Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if n.UpgradeAvailable || n.LatestVersion != "" || n.Command != "" {
		t.Errorf("Check() = %+v, want no upgrade", n)
	}
	if !strings.Contains(n.Message(), "up to date") {
		t.Errorf("Message() = %q", n.Message())
	}
}

func TestChecker_GoInstallCommand(t *testing.T) {
	withHint(t, "goinstall")
	withExecPath(t, filepath.Join(t.TempDir(), "soa-cli"), nil)

	reg := testutil.NewFakeRegistry(t)
	reg.PublishVersions(t, corePackage, "0.1.0", "0.2.0")

	n, err := NewChecker("v0.1.0", corePackage, newRegistryClient(reg)).Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if n.Command != "go install github.com/SOALIN228/soa-cli@latest" {
		t.Errorf("Command = %q", n.Command)
	}
}

func TestChecker_ExecutableUnknown(t *testing.T) {
	withHint(t, "")
	withExecPath(t, "", errors.New("no executable"))

	reg := testutil.NewFakeRegistry(t)
	reg.PublishVersions(t, corePackage, "2.0.0")

	n, err := NewChecker("1.0.0", corePackage, newRegistryClient(reg)).Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if n.InstallMethod != InstallMethodUnknown {
		t.Errorf("InstallMethod = %v, want unknown", n.InstallMethod)
	}
	if n.Command != "npm install -g @soa-cli/core" {
		t.Errorf("Command = %q", n.Command)
	}
}

func TestChecker_InvalidCurrentVersion(t *testing.T) {
	t.Parallel()

	reg := testutil.NewFakeRegistry(t)
	_, err := NewChecker("dev", corePackage, newRegistryClient(reg)).Check(context.Background())
	if !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("Check() error = %v, want ErrInvalidVersion", err)
	}
	if got := reg.TotalRequests(); got != 0 {
		t.Errorf("registry requests = %d, want 0", got)
	}
}

func TestChecker_RegistryFailure(t *testing.T) {
	t.Parallel()

	reg := testutil.NewFakeRegistry(t)
	reg.FailWith(http.StatusBadGateway)

	_, err := NewChecker("1.0.0", corePackage, newRegistryClient(reg)).Check(context.Background())
	if err == nil {
		t.Fatal("Check() error = nil, want registry failure")
	}
	if !strings.Contains(err.Error(), corePackage) {
		t.Errorf("error %q does not name the package", err)
	}
}
