// SPDX-License-Identifier: MPL-2.0

package gitserver

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const (
	giteeAPI          = "https://gitee.com/api/v5"
	giteeTokenURL     = "https://gitee.com/personal_access_tokens"
	giteeTokenHelpURL = "https://gitee.com/help/articles/4191"
)

// GiteeClient implements Server for the Gitee v5 API, which takes the token
// as the access_token parameter.
type GiteeClient struct {
	client
}

var _ Server = (*GiteeClient)(nil)

// Type returns Gitee.
func (g *GiteeClient) Type() Type { return Gitee }

// TokenURL returns the personal access token page.
func (g *GiteeClient) TokenURL() string { return giteeTokenURL }

// TokenHelpURL returns the access token documentation.
func (g *GiteeClient) TokenHelpURL() string { return giteeTokenHelpURL }

// GetUser returns the authenticated user.
func (g *GiteeClient) GetUser(ctx context.Context) (*User, error) {
	var u User
	found, err := g.get(ctx, "get user", "/user", nil, &u)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &StatusError{Server: Gitee, Operation: "get user", StatusCode: http.StatusNotFound}
	}
	return &u, nil
}

// GetOrgs lists the organizations of the authenticated user, one page at a
// time until a short page is returned.
func (g *GiteeClient) GetOrgs(ctx context.Context) ([]Org, error) {
	orgs := []Org{}
	for page := 1; page <= maxPages; page++ {
		var batch []Org
		q := url.Values{"page": {strconv.Itoa(page)}, "per_page": {strconv.Itoa(orgsPerPage)}}
		found, err := g.get(ctx, "list organizations", "/user/orgs", q, &batch)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &StatusError{Server: Gitee, Operation: "list organizations", StatusCode: http.StatusNotFound}
		}
		orgs = append(orgs, batch...)
		if len(batch) < orgsPerPage {
			break
		}
	}
	return orgs, nil
}

// GetRepo returns owner/name, or nil when it does not exist.
func (g *GiteeClient) GetRepo(ctx context.Context, owner, name string) (*Repo, error) {
	var r Repo
	found, err := g.get(ctx, "get repository", "/repos/"+url.PathEscape(owner)+"/"+url.PathEscape(name), nil, &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}

// CreateRepo creates a repository for the authenticated user.
func (g *GiteeClient) CreateRepo(ctx context.Context, name string) (*Repo, error) {
	return g.create(ctx, "/user/repos", name)
}

// CreateOrgRepo creates a repository inside org.
func (g *GiteeClient) CreateOrgRepo(ctx context.Context, name, org string) (*Repo, error) {
	return g.create(ctx, "/orgs/"+url.PathEscape(org)+"/repos", name)
}

func (g *GiteeClient) create(ctx context.Context, path, name string) (*Repo, error) {
	body := map[string]string{"access_token": g.token, "name": name}
	req, err := g.newRequest(ctx, http.MethodPost, g.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	var r Repo
	_, found, err := g.do(req, Gitee, "create repository", http.StatusCreated, &r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &StatusError{Server: Gitee, Operation: "create repository", StatusCode: http.StatusNotFound}
	}
	return &r, nil
}

func (g *GiteeClient) get(ctx context.Context, op, path string, q url.Values, out any) (bool, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("access_token", g.token)
	req, err := g.newRequest(ctx, http.MethodGet, g.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}
	_, found, err := g.do(req, Gitee, op, http.StatusOK, out)
	return found, err
}
