package dto

import (
	"time"

	"appdeck-core/internal/application/service"
	"appdeck-core/internal/domain/repo"
)

// RepositoryInfoResponse represents repository metadata in API responses
type RepositoryInfoResponse struct {
	Name            string  `json:"name"`
	FullName        string  `json:"full_name"`
	Description     *string `json:"description"`
	HTMLURL         string  `json:"html_url"`
	CloneURL        string  `json:"clone_url"`
	DefaultBranch   string  `json:"default_branch"`
	OpenIssuesCount int     `json:"open_issues_count"`
	Stars           int     `json:"stargazers_count"`
	Forks           int     `json:"forks_count"`
	CreatedAt       string  `json:"created_at,omitempty"`
	UpdatedAt       string  `json:"updated_at,omitempty"`
	PushedAt        string  `json:"pushed_at,omitempty"`
}

// CommitResponse represents a commit summary
type CommitResponse struct {
	SHA        string `json:"sha"`
	Message    string `json:"message"`
	AuthorName string `json:"author_name"`
	AuthorDate string `json:"author_date,omitempty"`
	HTMLURL    string `json:"html_url"`
}

// ReleaseResponse represents a release summary
type ReleaseResponse struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	PublishedAt string `json:"published_at,omitempty"`
	HTMLURL     string `json:"html_url"`
}

// RepositorySnapshotResponse is an aggregator's view of one repository
type RepositorySnapshotResponse struct {
	URL      string                  `json:"url"`
	Info     *RepositoryInfoResponse `json:"info"`
	Commits  []CommitResponse        `json:"commits"`
	Releases []ReleaseResponse       `json:"releases"`
	Loading  bool                    `json:"loading"`
	Error    string                  `json:"error,omitempty"`
}

// ToRepositorySnapshotResponse converts an aggregator state
func ToRepositorySnapshotResponse(s service.AggregatorState) *RepositorySnapshotResponse {
	out := &RepositorySnapshotResponse{
		URL:      s.URL,
		Commits:  make([]CommitResponse, 0, len(s.Snapshot.Commits)),
		Releases: make([]ReleaseResponse, 0, len(s.Snapshot.Releases)),
		Loading:  s.Loading,
		Error:    s.Error,
	}
	if info := s.Snapshot.Info; info != nil {
		out.Info = toRepositoryInfoResponse(info)
	}
	for _, c := range s.Snapshot.Commits {
		out.Commits = append(out.Commits, CommitResponse{
			SHA:        c.SHA,
			Message:    c.Message,
			AuthorName: c.AuthorName,
			AuthorDate: formatTime(c.AuthorDate),
			HTMLURL:    c.HTMLURL,
		})
	}
	for _, r := range s.Snapshot.Releases {
		out.Releases = append(out.Releases, ReleaseResponse{
			TagName:     r.TagName,
			Name:        r.Name,
			PublishedAt: formatTime(r.PublishedAt),
			HTMLURL:     r.HTMLURL,
		})
	}
	return out
}

func toRepositoryInfoResponse(info *repo.RepoInfo) *RepositoryInfoResponse {
	return &RepositoryInfoResponse{
		Name:            info.Name,
		FullName:        info.FullName,
		Description:     info.Description,
		HTMLURL:         info.HTMLURL,
		CloneURL:        info.CloneURL,
		DefaultBranch:   info.DefaultBranch,
		OpenIssuesCount: info.OpenIssuesCount,
		Stars:           info.StargazersCount,
		Forks:           info.ForksCount,
		CreatedAt:       formatTime(info.CreatedAt),
		UpdatedAt:       formatTime(info.UpdatedAt),
		PushedAt:        formatTime(info.PushedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
