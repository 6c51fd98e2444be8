package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appdeck-core/internal/application/dto"
	"appdeck-core/internal/config"
	"appdeck-core/internal/database"
	"appdeck-core/internal/domain/repo"
)

func init() {
	color.NoColor = true
}

func run(t *testing.T, opts Options, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	opts.Out, opts.Err = &out, &errOut
	cmd := NewRootCmd(opts)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func fakeGitHubAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widget", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"widget","full_name":"acme/widget","description":"Widgets for everyone",
			"html_url":"https://github.com/acme/widget","default_branch":"main","stargazers_count":42,"forks_count":7}`)
	})
	mux.HandleFunc("/repos/acme/widget/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"sha":"abc1234def5678","commit":{"message":"Fix the widget\n\nLonger body","author":{"name":"Ada","date":"2024-03-01T00:00:00Z"}}}]`)
	})
	mux.HandleFunc("/repos/acme/widget/releases", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"tag_name":"v1.0.0","name":"First","published_at":"2024-04-01T00:00:00Z"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRootHelp(t *testing.T) {
	out, _, err := run(t, Options{}, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "appdeckctl")
	assert.Contains(t, out, "repo")
	assert.Contains(t, out, "migrate")
}

func TestRepoCommandRendersTables(t *testing.T) {
	srv := fakeGitHubAPI(t)

	out, _, err := run(t, Options{}, "repo", "https://github.com/acme/widget", "--api-url", srv.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "acme/widget")
	assert.Contains(t, out, "Widgets for everyone")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "abc1234")
	assert.NotContains(t, out, "abc1234def5678")
	assert.Contains(t, out, "Fix the widget")
	assert.NotContains(t, out, "Longer body")
	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "v1.0.0")
}

func TestRepoCommandJSON(t *testing.T) {
	srv := fakeGitHubAPI(t)

	out, _, err := run(t, Options{}, "repo", "git@github.com:acme/widget.git", "--api-url", srv.URL, "--json")
	require.NoError(t, err)

	var snap dto.RepositorySnapshotResponse
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.NotNil(t, snap.Info)
	assert.Equal(t, "main", snap.Info.DefaultBranch)
	assert.Len(t, snap.Commits, 1)
	assert.Len(t, snap.Releases, 1)
}

func TestRepoCommandInvalidURL(t *testing.T) {
	_, _, err := run(t, Options{}, "repo", "https://example.com/acme/widget")
	require.Error(t, err)
	assert.True(t, repo.IsInvalidURL(err))
}

func TestRepoCommandTransportFailure(t *testing.T) {
	srv := fakeGitHubAPI(t)
	srv.Close()

	_, errOut, err := run(t, Options{}, "repo", "https://github.com/acme/widget", "--api-url", srv.URL)
	require.Error(t, err)
	assert.True(t, repo.IsTransport(err))
	assert.Contains(t, errOut, "Failed to fetch GitHub data")
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	opened := false
	opts := Options{OpenDB: func(context.Context, *config.DatabaseConfig) (*database.DB, error) {
		opened = true
		return nil, nil
	}}

	_, _, err := run(t, opts, "migrate", "up")
	require.EqualError(t, err, "DB_DSN is required")
	assert.False(t, opened)
}

func TestMigrateReportsConnectionFailure(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/appdeck")
	var gotDSN string
	opts := Options{OpenDB: func(_ context.Context, cfg *config.DatabaseConfig) (*database.DB, error) {
		gotDSN = cfg.DSN
		return nil, errors.New("connection refused")
	}}

	for _, args := range [][]string{{"migrate", "up"}, {"migrate", "status"}, {"migrate", "down", "--to", "1"}} {
		_, _, err := run(t, opts, args...)
		assert.EqualError(t, err, "connection refused", args)
	}
	assert.Equal(t, "postgres://localhost/appdeck", gotDSN)

	_, _, err := run(t, opts, "migrate", "down", "--to", "-1")
	assert.EqualError(t, err, "--to must not be negative")
}
