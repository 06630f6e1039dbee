// SPDX-License-Identifier: MPL-2.0

package gitserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type capturedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]string
}

// newCaptureServer records every request on a buffered channel and answers
// with handler.
func newCaptureServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	reqs := make(chan capturedRequest, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
		}
		if r.Body != nil && r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&c.body)
		}
		reqs <- c
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, reqs
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		typ     Type
		token   string
		wantErr error
		want    Type
	}{
		{"github", Github, "tok", nil, Github},
		{"gitee", Gitee, "tok", nil, Gitee},
		{"unknown", Type("gitlab"), "tok", ErrUnknownServer, ""},
		{"missing token", Github, "  ", ErrMissingToken, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(tt.typ, tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if s.Type() != tt.want {
				t.Errorf("Type() = %q, want %q", s.Type(), tt.want)
			}
			if s.TokenURL() != TokenURL(tt.typ) || s.TokenHelpURL() == "" {
				t.Errorf("token URLs = %q, %q", s.TokenURL(), s.TokenHelpURL())
			}
		})
	}
}

func TestGithub_GetUser(t *testing.T) {
	t.Parallel()

	srv, reqs := newCaptureServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, User{Login: "soalin", Name: "Soa Lin"})
	})

	s, err := New(Github, "secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	u, err := s.GetUser(context.Background())
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.Login != "soalin" {
		t.Errorf("Login = %q", u.Login)
	}

	got := <-reqs
	if got.method != http.MethodGet || got.path != "/user" {
		t.Errorf("request = %s %s, want GET /user", got.method, got.path)
	}
	if got.auth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", got.auth)
	}
}

func TestGithub_GetOrgs_Pagination(t *testing.T) {
	t.Parallel()

	var srvURL string
	srv, _ := newCaptureServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(t, w, http.StatusOK, []Org{{Login: "org-b"}})
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/user/orgs?page=2&per_page=100>; rel="next"`, srvURL))
		writeJSON(t, w, http.StatusOK, []Org{{Login: "org-a"}})
	})
	srvURL = srv.URL

	s, _ := New(Github, "secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	orgs, err := s.GetOrgs(context.Background())
	if err != nil {
		t.Fatalf("GetOrgs() error = %v", err)
	}
	if len(orgs) != 2 || orgs[0].Login != "org-a" || orgs[1].Login != "org-b" {
		t.Errorf("GetOrgs() = %v", orgs)
	}
}

func TestGithub_GetOrgs_IgnoresForeignNextPage(t *testing.T) {
	t.Parallel()

	srv, reqs := newCaptureServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<https://evil.example.com/steal?page=2>; rel="next"`)
		writeJSON(t, w, http.StatusOK, []Org{{Login: "org-a"}})
	})

	s, _ := New(Github, "secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	orgs, err := s.GetOrgs(context.Background())
	if err != nil {
		t.Fatalf("GetOrgs() error = %v", err)
	}
	if len(orgs) != 1 {
		t.Errorf("GetOrgs() = %v, want one page", orgs)
	}
	if len(reqs) != 1 {
		t.Errorf("expected 1 request, got %d", len(reqs))
	}
}

func TestGithub_GetRepo(t *testing.T) {
	t.Parallel()

	srv, reqs := newCaptureServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(t, w, http.StatusOK, Repo{Name: "demo", FullName: "soalin/demo"})
	})

	s, _ := New(Github, "secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	r, err := s.GetRepo(context.Background(), "soalin", "demo")
	if err != nil || r == nil || r.FullName != "soalin/demo" {
		t.Fatalf("GetRepo() = %v, %v", r, err)
	}
	if got := <-reqs; got.path != "/repos/soalin/demo" {
		t.Errorf("path = %q", got.path)
	}

	r, err = s.GetRepo(context.Background(), "soalin", "missing")
	if err != nil || r != nil {
		t.Errorf("GetRepo() of a missing repo = %v, %v; want nil, nil", r, err)
	}
}

func TestGithub_CreateRepo(t *testing.T) {
	t.Parallel()

	srv, reqs := newCaptureServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusCreated, Repo{Name: "demo"})
	})

	s, _ := New(Github, "secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	if _, err := s.CreateRepo(context.Background(), "demo"); err != nil {
		t.Fatalf("CreateRepo() error = %v", err)
	}
	got := <-reqs
	if got.method != http.MethodPost || got.path != "/user/repos" || got.body["name"] != "demo" {
		t.Errorf("request = %+v", got)
	}

	if _, err := s.CreateOrgRepo(context.Background(), "demo", "soa-team"); err != nil {
		t.Fatalf("CreateOrgRepo() error = %v", err)
	}
	if got := <-reqs; got.path != "/orgs/soa-team/repos" {
		t.Errorf("path = %q, want /orgs/soa-team/repos", got.path)
	}
}

func TestGithub_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		headers map[string]string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrUnauthorized) {
					t.Errorf("expected ErrUnauthorized, got %v", err)
				}
			},
		},
		{
			name:    "rate limited",
			status:  http.StatusForbidden,
			headers: map[string]string{"X-RateLimit-Remaining": "0", "X-RateLimit-Limit": "60"},
			check: func(t *testing.T, err error) {
				var rl *RateLimitError
				if !errors.As(err, &rl) || rl.Limit != 60 {
					t.Errorf("expected *RateLimitError with limit 60, got %v", err)
				}
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				var se *StatusError
				if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
					t.Errorf("expected *StatusError 502, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newCaptureServer(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			})
			s, _ := New(Github, "secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
			_, err := s.GetUser(context.Background())
			tt.check(t, err)
		})
	}
}

func TestParseLinkHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{`<https://api.github.com/user/orgs?page=2>; rel="next", <https://api.github.com/user/orgs?page=5>; rel="last"`, "https://api.github.com/user/orgs?page=2"},
		{`<https://api.github.com/user/orgs?page=1>; rel="prev"`, ""},
	}
	for _, tt := range tests {
		if got := parseLinkHeader(tt.header); got != tt.want {
			t.Errorf("parseLinkHeader(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
