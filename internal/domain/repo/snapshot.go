package repo

import "time"

// Fetch limits for the snapshot lists
const (
	CommitLimit  = 5
	ReleaseLimit = 3
)

// RepoInfo is repository metadata
type RepoInfo struct {
	Name            string
	FullName        string
	Description     *string
	HTMLURL         string
	CloneURL        string
	DefaultBranch   string
	OpenIssuesCount int
	StargazersCount int
	ForksCount      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PushedAt        time.Time
}

// Commit is a commit summary
type Commit struct {
	SHA        string
	Message    string
	AuthorName string
	AuthorDate time.Time
	HTMLURL    string
}

// Release is a release summary
type Release struct {
	TagName     string
	Name        string
	PublishedAt time.Time
	HTMLURL     string
}

// Snapshot is the aggregated view of a remote repository. The three parts are
// populated independently; a failure on one never clears the others.
type Snapshot struct {
	Info     *RepoInfo
	Commits  []Commit
	Releases []Release
}

// Clone returns a copy that shares nothing with s
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{}
	if s.Info != nil {
		info := *s.Info
		if s.Info.Description != nil {
			d := *s.Info.Description
			info.Description = &d
		}
		out.Info = &info
	}
	if s.Commits != nil {
		out.Commits = append([]Commit(nil), s.Commits...)
	}
	if s.Releases != nil {
		out.Releases = append([]Release(nil), s.Releases...)
	}
	return out
}

// IsEmpty reports whether nothing has been fetched yet
func (s Snapshot) IsEmpty() bool {
	return s.Info == nil && len(s.Commits) == 0 && len(s.Releases) == 0
}

// CapCommits truncates commits to CommitLimit
func CapCommits(c []Commit) []Commit {
	if len(c) > CommitLimit {
		return c[:CommitLimit]
	}
	return c
}

// CapReleases truncates releases to ReleaseLimit
func CapReleases(r []Release) []Release {
	if len(r) > ReleaseLimit {
		return r[:ReleaseLimit]
	}
	return r
}
