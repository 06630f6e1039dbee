// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets the test binary act as the soa-cli executable inside
// scripts.
func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"soa-cli": Execute,
	})
}

// TestCLI runs the scripts under testdata/script against the real binary
// entry point, each in its own home directory.
func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "script"),
		Setup: func(env *testscript.Env) error {
			home := filepath.Join(env.WorkDir, "home")
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			env.Setenv("HOME", home)
			env.Setenv("USERPROFILE", home)
			env.Setenv("SOA_CLI_UPDATE_CHECK_ENABLED", "false")
			return nil
		},
		ContinueOnError: true,
	})
}
