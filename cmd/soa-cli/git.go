// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SOALIN228/soa-cli/internal/gitserver"
	"github.com/SOALIN228/soa-cli/internal/issue"
)

type gitFlags struct {
	server string
	token  string
	org    string
}

// newGitCommand creates the `soa-cli git` command tree.
func (a *App) newGitCommand() *cobra.Command {
	var flags gitFlags

	gitCmd := &cobra.Command{
		Use:   "git",
		Short: "Query the Git hosting service used by publish",
		Long: `Query the Git hosting service used by publish.

The service, access token and repository owner are stored below the
soa-cli home in .git/. --server, --token and --org update the stored
values before the command runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	gitCmd.PersistentFlags().StringVar(&flags.server, "server", "", "Git hosting service: github or gitee")
	gitCmd.PersistentFlags().StringVar(&flags.token, "token", "", "access token for the Git hosting service")

	gitCmd.AddCommand(&cobra.Command{
		Use:   "user",
		Short: "Show the account owning the access token",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			srv, err := a.gitServer(flags)
			if err != nil {
				return err
			}
			user, err := srv.GetUser(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Login"), user.Login)
			if user.Name != "" {
				fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Name"), user.Name)
			}
			fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Profile"), user.HTMLURL)
			return nil
		}),
	})

	gitCmd.AddCommand(&cobra.Command{
		Use:   "orgs",
		Short: "List the organizations of the token owner",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			srv, err := a.gitServer(flags)
			if err != nil {
				return err
			}
			orgs, err := srv.GetOrgs(cmd.Context())
			if err != nil {
				return err
			}
			if len(orgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("(no organizations)"))
				return nil
			}
			for _, o := range orgs {
				fmt.Fprintln(cmd.OutOrStdout(), o.Login)
			}
			return nil
		}),
	})

	repoCmd := &cobra.Command{
		Use:   "repo <name>",
		Short: "Show a repository of the configured owner",
		Example: `  soa-cli git repo my-app
  soa-cli git repo my-app --org acme --create`,
		Args: cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			create, _ := cmd.Flags().GetBool("create")
			return a.showRepo(cmd, flags, args[0], create)
		}),
	}
	repoCmd.Flags().StringVar(&flags.org, "org", "", "use this organization as repository owner")
	repoCmd.Flags().Bool("create", false, "create the repository when it does not exist")
	gitCmd.AddCommand(repoCmd)

	gitCmd.AddCommand(&cobra.Command{
		Use:   "token-url",
		Short: "Show where access tokens are created",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			t, err := a.gitServerType(flags)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), gitserver.TokenURL(t))
			return nil
		}),
	})

	return gitCmd
}

func (a *App) gitStore() (*gitserver.Store, error) {
	env, _, err := a.session()
	if err != nil {
		return nil, err
	}
	return gitserver.NewStore(env.Home), nil
}

// gitServerType returns the service from --server (stored for later runs),
// the store, or the git.server setting, in that order.
func (a *App) gitServerType(flags gitFlags) (gitserver.Type, error) {
	store, err := a.gitStore()
	if err != nil {
		return "", err
	}
	if flags.server != "" {
		t := gitserver.Type(flags.server)
		if err := store.SetServer(t); err != nil {
			return "", err
		}
		return t, nil
	}
	t, ok, err := store.Server()
	if err != nil {
		return "", err
	}
	if ok {
		return t, nil
	}
	return gitserver.Type(a.cfg.Git.Server), nil
}

// gitServer returns an authenticated client for the selected service.
func (a *App) gitServer(flags gitFlags) (gitserver.Server, error) {
	t, err := a.gitServerType(flags)
	if err != nil {
		return nil, err
	}
	store, err := a.gitStore()
	if err != nil {
		return nil, err
	}

	if flags.token != "" {
		if err := store.SetToken(flags.token); err != nil {
			return nil, err
		}
	}
	token, ok, err := store.Token()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, issue.NewErrorContext().
			WithOperation("connect to " + string(t)).
			WithIssue(issue.GitTokenMissingId).
			WithSuggestions(
				"Create a token at "+gitserver.TokenURL(t),
				"Pass it once with --token; it is stored for later runs",
			).
			Wrap(gitserver.ErrMissingToken).
			BuildError()
	}

	opts := append([]gitserver.Option{gitserver.WithUserAgent(userAgent())}, a.GitOptions...)
	if a.HTTPClient != nil {
		opts = append(opts, gitserver.WithHTTPClient(a.HTTPClient))
	}
	return gitserver.New(t, token, opts...)
}

// repoOwner returns the owner kind and login: --org (stored), the stored
// owner, or the token owner.
func (a *App) repoOwner(ctx context.Context, srv gitserver.Server, flags gitFlags) (gitserver.OwnerKind, string, error) {
	store, err := a.gitStore()
	if err != nil {
		return "", "", err
	}
	if flags.org != "" {
		if err := store.SetOwner(gitserver.OwnerOrg, flags.org); err != nil {
			return "", "", err
		}
		return gitserver.OwnerOrg, flags.org, nil
	}
	kind, login, ok, err := store.Owner()
	if err != nil {
		return "", "", err
	}
	if ok {
		return kind, login, nil
	}
	user, err := srv.GetUser(ctx)
	if err != nil {
		return "", "", err
	}
	return gitserver.OwnerUser, user.Login, nil
}

func (a *App) showRepo(cmd *cobra.Command, flags gitFlags, name string, create bool) error {
	ctx := cmd.Context()
	srv, err := a.gitServer(flags)
	if err != nil {
		return err
	}
	kind, owner, err := a.repoOwner(ctx, srv, flags)
	if err != nil {
		return err
	}

	repo, err := srv.GetRepo(ctx, owner, name)
	if err != nil {
		return err
	}
	if repo == nil {
		if !create {
			return fmt.Errorf("repository %s/%s does not exist (use --create to create it)", owner, name)
		}
		if kind == gitserver.OwnerOrg {
			repo, err = srv.CreateOrgRepo(ctx, name, owner)
		} else {
			repo, err = srv.CreateRepo(ctx, name)
		}
		if err != nil {
			return err
		}
		if repo == nil {
			return errors.New("the server returned no repository")
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Created "+repo.FullName))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Repository"), repo.FullName)
	fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("URL"), repo.HTMLURL)
	if repo.SSHURL != "" {
		fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("SSH"), repo.SSHURL)
	}
	fmt.Fprintf(out, "%s: %v\n", CmdStyle.Render("Private"), repo.Private)
	return nil
}
