package github

import (
	"context"
	"net/http"

	gh "github.com/google/go-github/v66/github"

	"appdeck-core/internal/domain/repo"
	"appdeck-core/internal/github"
)

// GitHubServiceImpl implements the domain repo.GitHubService interface
type GitHubServiceImpl struct {
	client *github.Client
}

// NewGitHubService creates a new GitHub service implementation
func NewGitHubService(client *github.Client) repo.GitHubService {
	return &GitHubServiceImpl{client: client}
}

// FetchRepository fetches repository metadata
func (g *GitHubServiceImpl) FetchRepository(ctx context.Context, ref repo.RepoRef) (*repo.RepoInfo, error) {
	r, resp, err := g.client.GetRepository(ctx, ref.Owner(), ref.Name())
	if err != nil {
		return nil, classify("repository", resp, err)
	}

	return &repo.RepoInfo{
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Description:     r.Description,
		HTMLURL:         r.GetHTMLURL(),
		CloneURL:        r.GetCloneURL(),
		DefaultBranch:   r.GetDefaultBranch(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		StargazersCount: r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		CreatedAt:       r.GetCreatedAt().Time,
		UpdatedAt:       r.GetUpdatedAt().Time,
		PushedAt:        r.GetPushedAt().Time,
	}, nil
}

// FetchCommits fetches the most recent commits, newest first
func (g *GitHubServiceImpl) FetchCommits(ctx context.Context, ref repo.RepoRef, limit int) ([]repo.Commit, error) {
	ghCommits, resp, err := g.client.ListCommits(ctx, ref.Owner(), ref.Name(), limit)
	if err != nil {
		return nil, classify("commits", resp, err)
	}

	commits := make([]repo.Commit, 0, len(ghCommits))
	for _, c := range ghCommits {
		author := c.GetCommit().GetAuthor()
		commits = append(commits, repo.Commit{
			SHA:        c.GetSHA(),
			Message:    c.GetCommit().GetMessage(),
			AuthorName: author.GetName(),
			AuthorDate: author.GetDate().Time,
			HTMLURL:    c.GetHTMLURL(),
		})
	}
	return repo.CapCommits(commits), nil
}

// FetchReleases fetches the most recent releases, newest first
func (g *GitHubServiceImpl) FetchReleases(ctx context.Context, ref repo.RepoRef, limit int) ([]repo.Release, error) {
	ghReleases, resp, err := g.client.ListReleases(ctx, ref.Owner(), ref.Name(), limit)
	if err != nil {
		return nil, classify("releases", resp, err)
	}

	releases := make([]repo.Release, 0, len(ghReleases))
	for _, r := range ghReleases {
		releases = append(releases, repo.Release{
			TagName:     r.GetTagName(),
			Name:        r.GetName(),
			PublishedAt: r.GetPublishedAt().Time,
			HTMLURL:     r.GetHTMLURL(),
		})
	}
	return repo.CapReleases(releases), nil
}

// classify maps a go-github failure onto the domain taxonomy. A response with
// a non-2xx status is PARTIAL_UNAVAILABLE; anything else, including a 2xx
// whose body failed to decode, is TRANSPORT_FAILURE.
func classify(resource string, resp *gh.Response, err error) error {
	if resp != nil && resp.Response != nil {
		status := resp.StatusCode
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return repo.ErrUnavailable(resource, status, err)
		}
	}
	return repo.ErrTransport(resource, err)
}
