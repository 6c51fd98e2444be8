package repo

import (
	"context"
)

// GitHubService is a domain service interface for reading repository data from GitHub.
// Implementation will be in infrastructure layer.
//
// Every method returns a PARTIAL_UNAVAILABLE DomainError for a non-2xx response
// and a TRANSPORT_FAILURE DomainError when no usable response was obtained.
type GitHubService interface {
	// FetchRepository fetches repository metadata
	FetchRepository(ctx context.Context, ref RepoRef) (*RepoInfo, error)

	// FetchCommits fetches the most recent commits, newest first
	FetchCommits(ctx context.Context, ref RepoRef, limit int) ([]Commit, error)

	// FetchReleases fetches the most recent releases, newest first
	FetchReleases(ctx context.Context, ref RepoRef, limit int) ([]Release, error)
}
