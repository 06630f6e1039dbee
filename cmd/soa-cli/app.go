// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/SOALIN228/soa-cli/internal/config"
	"github.com/SOALIN228/soa-cli/internal/dispatch"
	"github.com/SOALIN228/soa-cli/internal/gitserver"
	"github.com/SOALIN228/soa-cli/internal/installer"
	"github.com/SOALIN228/soa-cli/internal/registry"
	"github.com/SOALIN228/soa-cli/pkg/types"
)

var errNotStarted = errors.New("soa-cli environment is not initialized")

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives the App and reaches
	// configuration, registry and dispatch through it.
	App struct {
		Config     ConfigProvider
		HTTPClient *http.Client
		Installer  installer.Installer
		GitOptions []gitserver.Option

		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer

		args     []string
		flags    globalFlags
		env      *config.Environment
		cfg      *config.Config
		table    *dispatch.Table
		startErr error
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		// HTTPClient is used for registry and tarball requests.
		HTTPClient *http.Client
		Installer  installer.Installer
		// GitOptions are passed to every Git server client.
		GitOptions []gitserver.Option
		Stdin      io.Reader
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	globalFlags struct {
		debug      bool
		targetPath string
		configPath string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config:     deps.Config,
		HTTPClient: deps.HTTPClient,
		Installer:  deps.Installer,
		GitOptions: deps.GitOptions,
		stdin:      deps.Stdin,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

// start resolves the environment, loads the configuration and builds the
// command table.
func (a *App) start(ctx context.Context) error {
	env, err := config.ResolveEnvironment(types.FilesystemPath(a.flags.targetPath))
	if err != nil {
		return err
	}

	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(a.flags.configPath),
		HomeDir:        types.FilesystemPath(env.Home),
		Dotenv:         env.Dotenv,
	})
	if err != nil {
		return err
	}

	table, err := dispatch.NewTable(cfg.Commands)
	if err != nil {
		return err
	}

	a.env, a.cfg, a.table = env, cfg, table
	return nil
}

// session returns the resolved environment and configuration, or the
// startup failure.
func (a *App) session() (*config.Environment, *config.Config, error) {
	if a.startErr != nil {
		return nil, nil, a.startErr
	}
	if a.env == nil || a.cfg == nil {
		return nil, nil, errNotStarted
	}
	return a.env, a.cfg, nil
}

// verbose reports whether debug output was requested by flag or config.
func (a *App) verbose() bool {
	return a.flags.debug || (a.cfg != nil && a.cfg.UI.Verbose)
}

// configFile returns the config file in effect: the --config value or the
// one inside the soa-cli home.
func (a *App) configFile() string {
	if a.flags.configPath != "" {
		return a.flags.configPath
	}
	if a.env == nil {
		return ""
	}
	return a.env.ConfigFile()
}

func (a *App) registryClient() *registry.Client {
	opts := []registry.ClientOption{
		registry.WithRegistryURL(a.cfg.RegistryURL()),
		registry.WithUserAgent(userAgent()),
	}
	if a.HTTPClient != nil {
		opts = append(opts, registry.WithHTTPClient(a.HTTPClient))
	}
	return registry.NewClient(opts...)
}

func (a *App) newDispatcher() (*dispatch.Dispatcher, error) {
	interpreter, err := dispatch.ParseInterpreter(a.cfg.Runtime.Interpreter)
	if err != nil {
		return nil, err
	}

	inst := a.Installer
	if inst == nil {
		opts := []installer.Option{installer.WithUserAgent(userAgent())}
		if a.HTTPClient != nil {
			opts = append(opts, installer.WithHTTPClient(a.HTTPClient))
		}
		inst = installer.NewTarballInstaller(opts...)
	}

	client := a.registryClient()
	return dispatch.New(a.table, dispatch.Options{
		Home:        a.env.Home,
		TargetPath:  a.env.TargetPath,
		Registry:    client.URL(),
		Resolver:    client,
		Installer:   inst,
		Interpreter: interpreter,
		Stdin:       a.stdin,
		Stdout:      a.stdout,
		Stderr:      a.stderr,
	}), nil
}
