// SPDX-License-Identifier: MPL-2.0

package gitserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	githubAPI          = "https://api.github.com"
	githubTokenURL     = "https://github.com/settings/tokens"
	githubTokenHelpURL = "https://docs.github.com/en/authentication/keeping-your-account-and-data-secure/managing-your-personal-access-tokens"
)

// GithubClient implements Server for the GitHub REST API.
type GithubClient struct {
	client
}

var _ Server = (*GithubClient)(nil)

// Type returns Github.
func (g *GithubClient) Type() Type { return Github }

// TokenURL returns the personal access token settings page.
func (g *GithubClient) TokenURL() string { return githubTokenURL }

// TokenHelpURL returns the personal access token documentation.
func (g *GithubClient) TokenHelpURL() string { return githubTokenHelpURL }

// GetUser returns the authenticated user.
func (g *GithubClient) GetUser(ctx context.Context) (*User, error) {
	var u User
	if err := g.get(ctx, "get user", g.baseURL+"/user", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetOrgs lists the organizations of the authenticated user, following
// pagination up to maxPages.
func (g *GithubClient) GetOrgs(ctx context.Context) ([]Org, error) {
	pageURL := fmt.Sprintf("%s/user/orgs?page=1&per_page=%d", g.baseURL, orgsPerPage)
	orgs := []Org{}

	for page := 0; page < maxPages && pageURL != ""; page++ {
		req, err := g.request(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		var batch []Org
		header, found, err := g.do(req, Github, "list organizations", http.StatusOK, &batch)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &StatusError{Server: Github, Operation: "list organizations", StatusCode: http.StatusNotFound}
		}
		orgs = append(orgs, batch...)

		pageURL = parseLinkHeader(header.Get("Link"))
		if pageURL != "" && !sameHost(pageURL, g.baseURL) {
			pageURL = ""
		}
	}
	return orgs, nil
}

// GetRepo returns owner/name, or nil when it does not exist.
func (g *GithubClient) GetRepo(ctx context.Context, owner, name string) (*Repo, error) {
	req, err := g.request(ctx, http.MethodGet, g.repoURL(owner, name), nil)
	if err != nil {
		return nil, err
	}
	var r Repo
	_, found, err := g.do(req, Github, "get repository", http.StatusOK, &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}

// CreateRepo creates a repository for the authenticated user.
func (g *GithubClient) CreateRepo(ctx context.Context, name string) (*Repo, error) {
	return g.create(ctx, g.baseURL+"/user/repos", name)
}

// CreateOrgRepo creates a repository inside org.
func (g *GithubClient) CreateOrgRepo(ctx context.Context, name, org string) (*Repo, error) {
	return g.create(ctx, g.baseURL+"/orgs/"+url.PathEscape(org)+"/repos", name)
}

func (g *GithubClient) create(ctx context.Context, endpoint, name string) (*Repo, error) {
	req, err := g.request(ctx, http.MethodPost, endpoint, map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	var r Repo
	_, found, err := g.do(req, Github, "create repository", http.StatusCreated, &r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &StatusError{Server: Github, Operation: "create repository", StatusCode: http.StatusNotFound}
	}
	return &r, nil
}

func (g *GithubClient) get(ctx context.Context, op, endpoint string, out any) error {
	req, err := g.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	_, found, err := g.do(req, Github, op, http.StatusOK, out)
	if err != nil {
		return err
	}
	if !found {
		return &StatusError{Server: Github, Operation: op, StatusCode: http.StatusNotFound}
	}
	return nil
}

// request adds the GitHub API headers and the token.
func (g *GithubClient) request(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	req, err := g.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("Authorization", "Bearer "+g.token)
	return req, nil
}

func (g *GithubClient) repoURL(owner, name string) string {
	return g.baseURL + "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
}
