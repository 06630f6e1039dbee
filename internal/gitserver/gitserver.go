// SPDX-License-Identifier: MPL-2.0

package gitserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	// Github is github.com.
	Github Type = "github"
	// Gitee is gitee.com.
	Gitee Type = "gitee"

	// maxJSONResponseBytes bounds decoded API responses (10 MB).
	maxJSONResponseBytes = 10 << 20
	// orgsPerPage is the page size used when listing organizations.
	orgsPerPage = 100
	// maxPages bounds pagination.
	maxPages = 5
)

var (
	// ErrUnknownServer is returned by New for an unsupported Type.
	ErrUnknownServer = errors.New("unknown git server")
	// ErrMissingToken is returned by New when no access token is given.
	ErrMissingToken = errors.New("git access token is required")
	// ErrUnauthorized is returned when the service rejects the token.
	ErrUnauthorized = errors.New("git access token rejected")
)

type (
	// Type selects a Git hosting service.
	Type string

	// User is the account owning the access token.
	User struct {
		Login   string `json:"login"`
		Name    string `json:"name"`
		HTMLURL string `json:"html_url"`
	}

	// Org is an organization the user belongs to.
	Org struct {
		Login string `json:"login"`
	}

	// Repo is a remote repository.
	Repo struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
		SSHURL   string `json:"ssh_url"`
		CloneURL string `json:"clone_url"`
		Private  bool   `json:"private"`
	}

	// Server is the capability set shared by every hosting service.
	Server interface {
		// Type returns the service type.
		Type() Type
		// GetUser returns the token owner.
		GetUser(ctx context.Context) (*User, error)
		// GetOrgs lists the organizations of the token owner.
		GetOrgs(ctx context.Context) ([]Org, error)
		// GetRepo returns owner/name, or nil when it does not exist.
		GetRepo(ctx context.Context, owner, name string) (*Repo, error)
		// CreateRepo creates a repository for the token owner.
		CreateRepo(ctx context.Context, name string) (*Repo, error)
		// CreateOrgRepo creates a repository inside org.
		CreateOrgRepo(ctx context.Context, name, org string) (*Repo, error)
		// TokenURL is the page where access tokens are created.
		TokenURL() string
		// TokenHelpURL documents how to set up access.
		TokenHelpURL() string
	}

	// StatusError reports an unexpected API response status.
	StatusError struct {
		Server     Type
		Operation  string
		StatusCode int
	}

	// Option configures a Server client.
	Option func(*client)

	// client holds the transport settings shared by both services.
	client struct {
		httpClient *http.Client
		baseURL    string
		token      string
		userAgent  string
	}
)

// Validate returns an error for an unsupported Type.
func (t Type) Validate() error {
	switch t {
	case Github, Gitee:
		return nil
	}
	return fmt.Errorf("%w: %q (valid: github, gitee)", ErrUnknownServer, string(t))
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s: unexpected status %d", e.Server, e.Operation, e.StatusCode)
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) {
		cl.httpClient = c
	}
}

// WithBaseURL overrides the API base URL, primarily for test servers.
func WithBaseURL(base string) Option {
	return func(cl *client) {
		cl.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(cl *client) {
		cl.userAgent = ua
	}
}

// New returns the Server client for t authenticated with token.
func New(t Type, token string, opts ...Option) (Server, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	c := client{
		httpClient: http.DefaultClient,
		token:      strings.TrimSpace(token),
		userAgent:  "soa-cli/dev",
	}
	switch t {
	case Gitee:
		c.baseURL = giteeAPI
	default:
		c.baseURL = githubAPI
	}
	for _, opt := range opts {
		opt(&c)
	}

	if t == Gitee {
		return &GiteeClient{client: c}, nil
	}
	return &GithubClient{client: c}, nil
}

// TokenURL returns the token creation page of t without building a client.
func TokenURL(t Type) string {
	if t == Gitee {
		return giteeTokenURL
	}
	return githubTokenURL
}
