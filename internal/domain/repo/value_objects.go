package repo

import (
	"regexp"
	"strings"
)

// githubURLPattern matches owner and name in https, scheme-less and ssh forms.
var githubURLPattern = regexp.MustCompile(`github\.com[/:]([^/\s]+)/([^/\s#?]+)`)

// RepoRef is a value object identifying a repository by owner and name
type RepoRef struct {
	owner string
	name  string
}

// NewRepoRef creates a RepoRef; both parts must be non-empty
func NewRepoRef(owner, name string) (RepoRef, error) {
	owner = strings.TrimSpace(owner)
	name = strings.TrimSuffix(strings.TrimSpace(name), ".git")
	if owner == "" || name == "" {
		return RepoRef{}, ErrInvalidURL(owner + "/" + name)
	}
	return RepoRef{owner: owner, name: name}, nil
}

// ParseURL extracts owner and repository name from a GitHub URL.
// A trailing ".git" is stripped from the name.
func ParseURL(raw string) (RepoRef, error) {
	m := githubURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return RepoRef{}, ErrInvalidURL(raw)
	}
	return NewRepoRef(m[1], m[2])
}

func (r RepoRef) Owner() string {
	return r.owner
}

func (r RepoRef) Name() string {
	return r.name
}

// FullName returns "owner/name"
func (r RepoRef) FullName() string {
	return r.owner + "/" + r.name
}

func (r RepoRef) String() string {
	return r.FullName()
}

func (r RepoRef) Equals(other RepoRef) bool {
	return r.owner == other.owner && r.name == other.name
}

func (r RepoRef) IsZero() bool {
	return r.owner == "" && r.name == ""
}

// Topic is the notification topic for a repository URL
func Topic(url string) string {
	return "repo:" + url
}
