// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/SOALIN228/soa-cli/internal/dispatch"
	"github.com/SOALIN228/soa-cli/internal/registry"
	"github.com/SOALIN228/soa-cli/pkg/pkgref"
)

type cachedVersion struct {
	name    pkgref.Name
	version string
	path    string
}

// newCacheCommand creates the `soa-cli cache` command tree.
func (a *App) newCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the command package cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached command packages",
		Example: `  soa-cli cache list
  soa-cli cache list --match '@soa-cli/*'`,
		Args: cobra.NoArgs,
		RunE: a.runE(a.listCache),
	}
	listCmd.Flags().String("match", "", "only list packages whose name matches this glob")
	cacheCmd.AddCommand(listCmd)

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the cache store directory",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			env, _, err := a.session()
			if err != nil {
				return err
			}
			_, store := dispatch.StorePaths(env.Home)
			fmt.Fprintln(cmd.OutOrStdout(), store)
			return nil
		}),
	})

	return cacheCmd
}

func (a *App) listCache(cmd *cobra.Command, _ []string) error {
	env, _, err := a.session()
	if err != nil {
		return err
	}
	pattern, _ := cmd.Flags().GetString("match")
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid --match pattern %q", pattern)
	}

	_, store := dispatch.StorePaths(env.Home)
	entries, err := scanStore(store, pattern)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, SubtitleStyle.Render("No cached packages in "+store))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.name, e.version, e.path)
	}
	return tw.Flush()
}

// scanStore returns the cache slots in store, sorted by name and then by
// version, highest first. A missing store is empty.
func scanStore(store, pattern string) ([]cachedVersion, error) {
	dirEntries, err := os.ReadDir(store)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache store %s: %w", store, err)
	}

	byName := make(map[pkgref.Name][]string)
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		name, version, ok := pkgref.ParseSlotName(de.Name())
		if !ok {
			continue
		}
		if pattern != "" {
			// ValidatePattern already ran, so Match cannot fail.
			if matched, _ := doublestar.Match(pattern, name.String()); !matched {
				continue
			}
		}
		byName[name] = append(byName[name], version)
	}

	names := make([]pkgref.Name, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	slices.Sort(names)

	var out []cachedVersion
	for _, name := range names {
		for _, v := range registry.SortDescending(byName[name]) {
			out = append(out, cachedVersion{
				name:    name,
				version: v,
				path:    filepath.Join(store, pkgref.SlotName(name, v)),
			})
		}
	}
	return out, nil
}
