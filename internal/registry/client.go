// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"
)

const (
	// OfficialURL is the public npm registry.
	OfficialURL = "https://registry.npmjs.org"
	// MirrorURL is the npmmirror registry, a full mirror of OfficialURL.
	MirrorURL = "https://registry.npmmirror.com"

	// maxMetadataBytes bounds a metadata document. Packages with long
	// histories publish documents of several megabytes.
	maxMetadataBytes = 64 << 20
)

type (
	// Client queries package metadata from a single registry.
	Client struct {
		httpClient *http.Client
		baseURL    string
		userAgent  string
		group      singleflight.Group
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// DefaultRegistry returns OfficialURL when official is true, MirrorURL
// otherwise.
func DefaultRegistry(official bool) string {
	if official {
		return OfficialURL
	}
	return MirrorURL
}

// WithRegistryURL points the client at another registry.
func WithRegistryURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Client for the official registry unless overridden.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    OfficialURL,
		userAgent:  "soa-cli/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the registry base URL without a trailing slash.
func (c *Client) URL() string {
	return c.baseURL
}

// FetchMetadata returns the metadata document for name. A registry answer
// other than 200 yields (nil, nil). Concurrent calls for the same package
// share one request; a caller whose ctx ends stops waiting without
// cancelling the request for the others.
func (c *Client) FetchMetadata(ctx context.Context, name string) (*Metadata, error) {
	if name == "" {
		return nil, nil
	}

	metaURL := c.metadataURL(name)
	ch := c.group.DoChan(metaURL, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), metaURL)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetching metadata for %s: %w", name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("fetching metadata for %s: %w", name, res.Err)
		}
		return res.Val.(*Metadata), nil
	}
}

func (c *Client) fetch(ctx context.Context, metaURL string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		slog.Debug("registry returned no metadata", "url", metaURL, "status", resp.StatusCode)
		return (*Metadata)(nil), nil
	}

	var meta Metadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBytes)).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return &meta, nil
}

// metadataURL joins the registry URL and the package name. The scope
// separator is escaped the way the npm CLI sends it ("@scope%2Fname").
func (c *Client) metadataURL(name string) string {
	return c.baseURL + "/" + url.PathEscape(name)
}
