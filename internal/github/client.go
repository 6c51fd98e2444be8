package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"appdeck-core/internal/config"
)

// Client handles GitHub API interactions
type Client struct {
	api *gh.Client
}

// NewClient creates a GitHub REST client for cfg.APIURL. Requests are
// authenticated with cfg.Token when it is set and anonymous otherwise.
func NewClient(cfg config.GitHubConfig) (*Client, error) {
	httpClient := &http.Client{}
	if cfg.Token != "" {
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), tokenSource)
	}
	httpClient.Timeout = time.Duration(cfg.Timeout) * time.Second

	api := gh.NewClient(httpClient)

	if cfg.APIURL != "" {
		raw := cfg.APIURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		baseURL, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("cannot parse github API URL: %w", err)
		}
		api.BaseURL = baseURL
	}

	return &Client{api: api}, nil
}

// GetRepository fetches GET /repos/{owner}/{repo}
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*gh.Repository, *gh.Response, error) {
	return c.api.Repositories.Get(ctx, owner, name)
}

// ListCommits fetches GET /repos/{owner}/{repo}/commits?per_page=limit
func (c *Client) ListCommits(ctx context.Context, owner, name string, limit int) ([]*gh.RepositoryCommit, *gh.Response, error) {
	return c.api.Repositories.ListCommits(ctx, owner, name, &gh.CommitsListOptions{
		ListOptions: gh.ListOptions{PerPage: limit},
	})
}

// ListReleases fetches GET /repos/{owner}/{repo}/releases?per_page=limit
func (c *Client) ListReleases(ctx context.Context, owner, name string, limit int) ([]*gh.RepositoryRelease, *gh.Response, error) {
	return c.api.Repositories.ListReleases(ctx, owner, name, &gh.ListOptions{PerPage: limit})
}

// BaseURL returns the API root requests are sent to
func (c *Client) BaseURL() string {
	return c.api.BaseURL.String()
}
