// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/SOALIN228/soa-cli/internal/installer"
	"github.com/SOALIN228/soa-cli/internal/pkgcache"
	"github.com/SOALIN228/soa-cli/pkg/pkgref"
	"github.com/SOALIN228/soa-cli/pkg/types"
)

const (
	// DependenciesDir is the install root under the soa-cli home.
	DependenciesDir = "dependencies"
	// StoreDir is the cache store under the install root.
	StoreDir = "node_modules"
)

type (
	// Options configures a Dispatcher.
	Options struct {
		// Home is the soa-cli home; the cache lives under
		// <Home>/dependencies/node_modules.
		Home string
		// TargetPath, when set, is a local command package used instead of
		// the cache.
		TargetPath string
		// Registry is the registry URL packages are installed from.
		Registry  string
		Resolver  pkgcache.VersionResolver
		Installer installer.Installer
		// Interpreter runs JavaScript entry points. Defaults to ["node"].
		Interpreter []string

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Dispatcher runs table commands through their packages.
	Dispatcher struct {
		table *Table
		opts  Options
	}
)

// New returns a Dispatcher. Unset streams default to the process streams.
func New(table *Table, opts Options) *Dispatcher {
	if len(opts.Interpreter) == 0 {
		opts.Interpreter = []string{"node"}
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Dispatcher{table: table, opts: opts}
}

// Table returns the command table.
func (d *Dispatcher) Table() *Table { return d.table }

// StorePaths returns the install root and store directory under home.
func StorePaths(home string) (root, store string) {
	root = filepath.Join(home, DependenciesDir)
	return root, filepath.Join(root, StoreDir)
}

// Dispatch runs inv.Command. A child that ran returns its exit code and a
// nil error; every failure before or while starting the child returns
// ExitFailure with the cause.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) (types.ExitCode, error) {
	name, err := d.table.Lookup(inv.Command)
	if err != nil {
		return types.ExitFailure, err
	}

	pkg, err := d.newPackage(name)
	if err != nil {
		return types.ExitFailure, err
	}

	if !pkg.IsLocal() {
		if err := ensure(ctx, pkg); err != nil {
			return types.ExitFailure, err
		}
	} else {
		slog.Debug("using local command package", "command", inv.Command, "path", pkg.TargetPath())
		exists, err := pkg.Exists(ctx)
		if err != nil {
			return types.ExitFailure, err
		}
		if !exists {
			return types.ExitFailure, &pkgcache.EntryNotFoundError{
				Name:   name,
				Dir:    pkg.TargetPath(),
				Reason: "target path does not exist",
			}
		}
	}

	entry, err := pkg.RootFilePath(ctx)
	if err != nil {
		return types.ExitFailure, err
	}
	slog.Debug("resolved entry point", "command", inv.Command, "entry", entry)

	payload, err := inv.Marshal()
	if err != nil {
		return types.ExitFailure, err
	}

	code, err := d.spawn(ctx, entry, payload)
	if err != nil {
		slog.Debug("command failed to start", "command", inv.Command, "error", err)
		return types.ExitFailure, err
	}
	return code, nil
}

func (d *Dispatcher) newPackage(name pkgref.Name) (*pkgcache.Package, error) {
	if d.opts.TargetPath != "" {
		return pkgcache.New(pkgcache.Options{
			TargetPath: d.opts.TargetPath,
			Name:       name,
		})
	}

	if d.opts.Home == "" {
		return nil, errors.New("soa-cli home is not set")
	}
	root, store := StorePaths(d.opts.Home)
	return pkgcache.New(pkgcache.Options{
		TargetPath: root,
		StoreDir:   store,
		Name:       name,
		Version:    pkgref.Latest(),
		Registry:   d.opts.Registry,
		Resolver:   d.opts.Resolver,
		Installer:  d.opts.Installer,
	})
}

// ensure installs pkg when its slot is missing and updates it otherwise.
func ensure(ctx context.Context, pkg *pkgcache.Package) error {
	ok, err := pkg.Exists(ctx)
	if err != nil {
		return fmt.Errorf("checking %s: %w", pkg.Name(), err)
	}
	if !ok {
		slog.Debug("installing command package", "name", pkg.Name(), "version", pkg.Version())
		return pkg.Install(ctx)
	}
	slog.Debug("updating command package", "name", pkg.Name(), "version", pkg.Version())
	return pkg.Update(ctx)
}
