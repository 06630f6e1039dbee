// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	UserHomeNotFoundId Id = iota + 1
	ConfigLoadFailedId
	UnknownCommandId
	RegistryUnavailableId
	NoVersionsId
	InstallFailedId
	IntegrityMismatchId
	EntryNotFoundId
	SpawnFailedId
	GitTokenMissingId
	PermissionDeniedId
)

const docsBase HttpLink = "https://github.com/SOALIN228/soa-cli#"

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation for this issue type
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown. stylePath is a glamour
// style name ("dark", "light", "notty") or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, links := range [][]HttpLink{i.docLinks, i.extLinks} {
			for _, link := range links {
				sb.WriteString("- <" + string(link) + ">\n")
			}
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	userHomeNotFoundIssue = &Issue{
		id: UserHomeNotFoundId,
		mdMsg: `
# Your home directory could not be found!

soa-cli keeps its configuration and package cache below your home directory.

## Things you can try:
- Check that HOME (USERPROFILE on Windows) points to an existing directory
- Move the soa-cli home somewhere else:
~~~
$ export SOA_CLI_HOME=/path/to/soa-cli-home
~~~`,
		docLinks: []HttpLink{docsBase + "environment"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration!

The configuration file or a SOA_CLI_* override holds an invalid value.

## Things you can try:
- Show the effective configuration and where it was read from:
~~~
$ soa-cli config show
$ soa-cli config path
~~~

- Recreate a default file:
~~~
$ soa-cli config init --force
~~~

## Example config.cue:
~~~cue
registry: mirror: true
commands: {
	deploy: "@soa-cli/deploy"
}
git: server: "gitee"
~~~`,
		docLinks: []HttpLink{docsBase + "configuration"},
	}

	unknownCommandIssue = &Issue{
		id: UnknownCommandId,
		mdMsg: `
# Unknown command!

The command is not in the command table, so no package implements it.

## Things you can try:
- List the available commands:
~~~
$ soa-cli --help
~~~

- Map the command to a package in config.cue:
~~~cue
commands: {
	mycmd: "@scope/mycmd"
}
~~~`,
	}

	registryUnavailableIssue = &Issue{
		id: RegistryUnavailableId,
		mdMsg: `
# The package registry could not be reached!

soa-cli asks the npm registry for the newest version of a command package
before running it.

## Things you can try:
- Check your network connection and proxy settings
- Switch to the mirror registry:
~~~
$ SOA_CLI_REGISTRY_MIRROR=true soa-cli init
~~~

- Run a local copy of the command package instead:
~~~
$ soa-cli --target-path ./my-init-package init
~~~`,
		extLinks: []HttpLink{"https://registry.npmjs.org", "https://npmmirror.com"},
	}

	noVersionsIssue = &Issue{
		id: NoVersionsId,
		mdMsg: `
# No published versions!

The registry does not know any valid semantic version of the package.

## Things you can try:
- Check the package name in the command table ('commands' in config.cue)
- Check that the package was published to the configured registry`,
	}

	installFailedIssue = &Issue{
		id: InstallFailedId,
		mdMsg: `
# Failed to install the command package!

Downloading or unpacking the package into the cache failed.

## Things you can try:
- Retry; partially downloaded files are discarded
- Inspect the cache:
~~~
$ soa-cli cache list
~~~

- Remove the package from the cache directory shown by 'soa-cli cache path'`,
	}

	integrityMismatchIssue = &Issue{
		id: IntegrityMismatchId,
		mdMsg: `
# Package integrity check failed!

The downloaded tarball does not match the checksum published by the registry.
Nothing was written to the cache.

## Things you can try:
- Retry the command; the download may have been corrupted in transit
- If it keeps failing, the registry or a proxy may serve altered content`,
	}

	entryNotFoundIssue = &Issue{
		id: EntryNotFoundId,
		mdMsg: `
# No entry point found!

The command package has no package.json, or its package.json has no
"main" field.

## Things you can try:
- Add a main field to the package:
~~~json
{
  "name": "@soa-cli/init",
  "main": "lib/index.js"
}
~~~`,
	}

	spawnFailedIssue = &Issue{
		id: SpawnFailedId,
		mdMsg: `
# The command package could not be started!

## Things you can try:
- Check that Node.js is installed and on your PATH:
~~~
$ node --version
~~~

- Point soa-cli at another interpreter in config.cue:
~~~cue
runtime: interpreter: "node --enable-source-maps"
~~~`,
		extLinks: []HttpLink{"https://nodejs.org"},
	}

	gitTokenMissingIssue = &Issue{
		id: GitTokenMissingId,
		mdMsg: `
# No Git access token!

The git commands call the Github or Gitee API and need a personal access token.

## Things you can try:
- Print the page where a token is created:
~~~
$ soa-cli git token-url
~~~

- Store the token:
~~~
$ soa-cli git user --token <token>
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

soa-cli could not write below its home directory.

## Things you can try:
- Check the permissions of the directory shown by 'soa-cli cache path'
- Move the soa-cli home with SOA_CLI_HOME`,
	}

	issues = map[Id]*Issue{
		userHomeNotFoundIssue.Id():    userHomeNotFoundIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		unknownCommandIssue.Id():      unknownCommandIssue,
		registryUnavailableIssue.Id(): registryUnavailableIssue,
		noVersionsIssue.Id():          noVersionsIssue,
		installFailedIssue.Id():       installFailedIssue,
		integrityMismatchIssue.Id():   integrityMismatchIssue,
		entryNotFoundIssue.Id():       entryNotFoundIssue,
		spawnFailedIssue.Id():         spawnFailedIssue,
		gitTokenMissingIssue.Id():     gitTokenMissingIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
	}
)

// Values returns every catalog issue ordered by Id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for _, v := range issues {
		values = append(values, v)
	}
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id - b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
