package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"appdeck-core/internal/domain/events"
	"appdeck-core/internal/domain/repo"
	"appdeck-core/internal/metrics"
	"appdeck-core/internal/notification"
)

// AggregatorState is a point-in-time view of an aggregator
type AggregatorState struct {
	URL      string
	Snapshot repo.Snapshot
	Loading  bool
	Error    string
}

// RepositoryAggregator builds a repository snapshot from three independent
// GitHub reads. A non-2xx answer on one read leaves that part of the snapshot
// alone; a transport failure aborts the merge and sets the error field.
type RepositoryAggregator struct {
	github    repo.GitHubService
	notifier  notification.Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *logrus.Entry

	mu         sync.Mutex
	url        string
	generation uint64
	snapshot   repo.Snapshot
	inflight   int
	errMsg     string
}

// NewRepositoryAggregator creates an unbound aggregator. publisher and m may be nil.
func NewRepositoryAggregator(
	github repo.GitHubService,
	notifier notification.Notifier,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *logrus.Entry,
) *RepositoryAggregator {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &RepositoryAggregator{
		github:    github,
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// Bind points the aggregator at url. A changed URL discards the snapshot and
// fetches again.
func (a *RepositoryAggregator) Bind(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if !a.rebind(url) {
		return nil
	}
	return a.FetchGitHubData(ctx, url)
}

// rebind switches the URL without fetching. It reports whether the URL changed.
func (a *RepositoryAggregator) rebind(url string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if url == a.url {
		return false
	}
	a.url = url
	a.generation++
	a.snapshot = repo.Snapshot{}
	a.errMsg = ""
	return true
}

// Refetch fetches the bound URL again
func (a *RepositoryAggregator) Refetch(ctx context.Context) error {
	a.mu.Lock()
	url := a.url
	a.mu.Unlock()
	return a.FetchGitHubData(ctx, url)
}

type fetchResult struct {
	resource string
	err      error
	apply    func(s *repo.Snapshot)
}

// FetchGitHubData fetches metadata, recent commits and recent releases for url
// and merges them into the snapshot. An empty url does nothing.
func (a *RepositoryAggregator) FetchGitHubData(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}

	a.mu.Lock()
	gen := a.generation
	a.mu.Unlock()

	ref, err := repo.ParseURL(url)
	if err != nil {
		a.mu.Lock()
		if gen == a.generation {
			a.errMsg = repo.MessageInvalidURL
		}
		a.mu.Unlock()
		a.log.WithField("url", url).Debug("rejected repository URL")
		return err
	}

	a.mu.Lock()
	a.inflight++
	a.errMsg = ""
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inflight--
		a.mu.Unlock()
	}()

	var (
		info     *repo.RepoInfo
		commits  []repo.Commit
		releases []repo.Release
		results  = make([]fetchResult, 3)
	)

	// Every read runs to the end; one failing does not cancel the others.
	var g errgroup.Group
	g.Go(func() error {
		info, results[0].err = a.github.FetchRepository(ctx, ref)
		return nil
	})
	g.Go(func() error {
		commits, results[1].err = a.github.FetchCommits(ctx, ref, repo.CommitLimit)
		return nil
	})
	g.Go(func() error {
		releases, results[2].err = a.github.FetchReleases(ctx, ref, repo.ReleaseLimit)
		return nil
	})
	_ = g.Wait()

	results[0].resource, results[0].apply = "repository", func(s *repo.Snapshot) { s.Info = info }
	results[1].resource, results[1].apply = "commits", func(s *repo.Snapshot) { s.Commits = repo.CapCommits(commits) }
	results[2].resource, results[2].apply = "releases", func(s *repo.Snapshot) { s.Releases = repo.CapReleases(releases) }

	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		a.metrics.RepoFetch("snapshot", metrics.OutcomeStale)
		return nil
	}

	var transportErr error
	for _, r := range results {
		if r.err == nil {
			r.apply(&a.snapshot)
			a.metrics.RepoFetch(r.resource, metrics.OutcomeOK)
			continue
		}
		if repo.IsUnavailable(r.err) {
			a.metrics.RepoFetch(r.resource, metrics.OutcomeUnavailable)
			a.log.WithError(r.err).WithField("resource", r.resource).Debug("github resource unavailable")
			continue
		}
		a.metrics.RepoFetch(r.resource, metrics.OutcomeTransport)
		transportErr = r.err
		break
	}
	if transportErr != nil {
		a.errMsg = repo.MessageFetchFailed
	}
	snapshot := a.snapshot.Clone()
	a.mu.Unlock()

	if transportErr != nil {
		a.log.WithError(transportErr).WithField("repository", ref.FullName()).Error("failed to fetch GitHub data")
		a.notifier.NotifyError(repo.MessageFetchFailed)
		return fmt.Errorf("fetch github data for %s: %w", ref.FullName(), transportErr)
	}

	if a.publisher != nil {
		if err := a.publisher.Dispatch(context.WithoutCancel(ctx), repo.NewSnapshotFetchedEvent(url, ref, snapshot)); err != nil {
			a.log.WithError(err).Warn("failed to publish event")
		}
	}
	return nil
}

// State returns a copy of the aggregator's state
func (a *RepositoryAggregator) State() AggregatorState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AggregatorState{
		URL:      a.url,
		Snapshot: a.snapshot.Clone(),
		Loading:  a.inflight > 0,
		Error:    a.errMsg,
	}
}
