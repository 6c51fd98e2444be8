package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appdeck-core/internal/application/service"
	"appdeck-core/internal/domain/events"
	"appdeck-core/internal/domain/repo"
	"appdeck-core/internal/logging"
	"appdeck-core/internal/notification"
)

const widgetURL = "https://github.com/acme/widget.git"

// fakeGitHub answers per owner. A gate blocks calls for an owner, or for one
// "owner/resource", until closed.
type fakeGitHub struct {
	mu       sync.Mutex
	info     map[string]*repo.RepoInfo
	commits  map[string][]repo.Commit
	releases map[string][]repo.Release
	errs     map[string]error // "owner/resource" -> error
	gates    map[string]chan struct{} // "owner" or "owner/resource"
	calls    atomic.Int32
	refs     []repo.RepoRef
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		info:     map[string]*repo.RepoInfo{},
		commits:  map[string][]repo.Commit{},
		releases: map[string][]repo.Release{},
		errs:     map[string]error{},
		gates:    map[string]chan struct{}{},
	}
}

func (f *fakeGitHub) seed(owner string, commits, releases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info[owner] = &repo.RepoInfo{Name: "widget", FullName: owner + "/widget", StargazersCount: 42}
	f.commits[owner] = make([]repo.Commit, commits)
	for i := range f.commits[owner] {
		f.commits[owner][i] = repo.Commit{SHA: owner + "-sha", Message: "change"}
	}
	f.releases[owner] = make([]repo.Release, releases)
	for i := range f.releases[owner] {
		f.releases[owner][i] = repo.Release{TagName: "v1." + string(rune('0'+i))}
	}
}

func (f *fakeGitHub) fail(owner, resource string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[owner+"/"+resource] = err
}

func (f *fakeGitHub) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeGitHub) enter(ctx context.Context, ref repo.RepoRef, resource string) error {
	f.calls.Add(1)
	f.mu.Lock()
	f.refs = append(f.refs, ref)
	gate := f.gates[ref.Owner()]
	if gate == nil {
		gate = f.gates[ref.Owner()+"/"+resource]
	}
	err := f.errs[ref.Owner()+"/"+resource]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return repo.ErrTransport(resource, ctx.Err())
		}
	}
	return err
}

func (f *fakeGitHub) FetchRepository(ctx context.Context, ref repo.RepoRef) (*repo.RepoInfo, error) {
	if err := f.enter(ctx, ref, "repository"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	info := *f.info[ref.Owner()]
	return &info, nil
}

func (f *fakeGitHub) FetchCommits(ctx context.Context, ref repo.RepoRef, limit int) ([]repo.Commit, error) {
	if err := f.enter(ctx, ref, "commits"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repo.Commit(nil), f.commits[ref.Owner()]...), nil
}

func (f *fakeGitHub) FetchReleases(ctx context.Context, ref repo.RepoRef, limit int) ([]repo.Release, error) {
	if err := f.enter(ctx, ref, "releases"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repo.Release(nil), f.releases[ref.Owner()]...), nil
}

func newAggregator(gh repo.GitHubService, rec *notification.Recorder) *service.RepositoryAggregator {
	return service.NewRepositoryAggregator(gh, rec, nil, nil, logging.Component(logging.Discard(), "aggregator"))
}

func TestFetchPopulatesSnapshot(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 2, 1)
	rec := &notification.Recorder{}
	agg := newAggregator(gh, rec)

	require.NoError(t, agg.Bind(context.Background(), widgetURL))

	state := agg.State()
	assert.Equal(t, widgetURL, state.URL)
	assert.Empty(t, state.Error)
	assert.False(t, state.Loading)
	require.NotNil(t, state.Snapshot.Info)
	assert.Equal(t, "acme/widget", state.Snapshot.Info.FullName)
	assert.Len(t, state.Snapshot.Commits, 2)
	assert.Len(t, state.Snapshot.Releases, 1)
	assert.Empty(t, rec.Entries())

	// .git was stripped before the API was called
	assert.Equal(t, "widget", gh.refs[0].Name())
}

func TestFetchEmptyURLIsNoop(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 1, 1)
	rec := &notification.Recorder{}
	agg := newAggregator(gh, rec)
	require.NoError(t, agg.Bind(context.Background(), widgetURL))
	before := agg.State()
	calls := gh.calls.Load()

	require.NoError(t, agg.FetchGitHubData(context.Background(), ""))
	require.NoError(t, agg.FetchGitHubData(context.Background(), "   "))

	assert.Equal(t, before, agg.State())
	assert.Equal(t, calls, gh.calls.Load())
	assert.Empty(t, rec.Entries())
}

func TestFetchInvalidURL(t *testing.T) {
	gh := newFakeGitHub()
	rec := &notification.Recorder{}
	agg := newAggregator(gh, rec)

	err := agg.Bind(context.Background(), "not a url")

	require.Error(t, err)
	assert.True(t, repo.IsInvalidURL(err))
	state := agg.State()
	assert.Equal(t, "Invalid GitHub URL", state.Error)
	assert.False(t, state.Loading)
	assert.True(t, state.Snapshot.IsEmpty())
	assert.Zero(t, gh.calls.Load())
	assert.Empty(t, rec.Entries(), "validation errors are not notified")
}

func TestFetchToleratesUnavailableReleases(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 3, 2)
	gh.fail("acme", "releases", repo.ErrUnavailable("releases", 404, errors.New("Not Found")))
	rec := &notification.Recorder{}
	agg := newAggregator(gh, rec)

	require.NoError(t, agg.Bind(context.Background(), widgetURL))

	state := agg.State()
	assert.Empty(t, state.Error)
	require.NotNil(t, state.Snapshot.Info)
	assert.Len(t, state.Snapshot.Commits, 3)
	assert.Empty(t, state.Snapshot.Releases)
	assert.Empty(t, rec.Entries())
}

func TestUnavailableKeepsPreviousValue(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 2, 2)
	agg := newAggregator(gh, &notification.Recorder{})
	require.NoError(t, agg.Bind(context.Background(), widgetURL))

	gh.seed("acme", 4, 0)
	gh.fail("acme", "repository", repo.ErrUnavailable("repository", 500, nil))
	gh.fail("acme", "releases", repo.ErrUnavailable("releases", 403, nil))
	require.NoError(t, agg.Refetch(context.Background()))

	state := agg.State()
	require.NotNil(t, state.Snapshot.Info, "info from the previous fetch is kept")
	assert.Len(t, state.Snapshot.Commits, 4, "commits are replaced")
	assert.Len(t, state.Snapshot.Releases, 2, "releases from the previous fetch are kept")
}

func TestTransportFailureSetsError(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 2, 2)
	gh.fail("acme", "commits", repo.ErrTransport("commits", errors.New("connection refused")))
	rec := &notification.Recorder{}
	agg := newAggregator(gh, rec)

	err := agg.Bind(context.Background(), widgetURL)

	require.Error(t, err)
	assert.True(t, repo.IsTransport(err))
	state := agg.State()
	assert.Equal(t, "Failed to fetch GitHub data", state.Error)
	assert.False(t, state.Loading)
	assert.NotNil(t, state.Snapshot.Info, "parts before the failure are kept")
	assert.Empty(t, state.Snapshot.Releases, "parts after the failure are not applied")
	assert.Equal(t, []string{"Failed to fetch GitHub data"}, rec.Messages(notification.LevelError))
}

func TestFastTransportFailureDoesNotCancelSiblings(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 2, 1)
	gh.fail("acme", "releases", repo.ErrTransport("releases", errors.New("connection refused")))
	infoGate := gh.gate("acme/repository")
	commitsGate := gh.gate("acme/commits")
	rec := &notification.Recorder{}
	agg := newAggregator(gh, rec)

	done := make(chan error, 1)
	go func() { done <- agg.Bind(context.Background(), widgetURL) }()

	require.Eventually(t, func() bool { return gh.calls.Load() == 3 }, waitFor, tick)
	// releases has failed; the other two are still waiting on GitHub
	time.Sleep(20 * time.Millisecond)
	close(infoGate)
	close(commitsGate)

	err := <-done
	require.Error(t, err)
	assert.True(t, repo.IsTransport(err))
	assert.Contains(t, err.Error(), "fetching releases")
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotContains(t, err.Error(), "context canceled")

	state := agg.State()
	require.NotNil(t, state.Snapshot.Info)
	assert.Equal(t, "acme/widget", state.Snapshot.Info.FullName)
	assert.Len(t, state.Snapshot.Commits, 2)
	assert.Empty(t, state.Snapshot.Releases)
	assert.Equal(t, repo.MessageFetchFailed, state.Error)
	assert.Equal(t, []string{repo.MessageFetchFailed}, rec.Messages(notification.LevelError))
}

func TestNextFetchClearsError(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 1, 1)
	gh.fail("acme", "repository", repo.ErrTransport("repository", errors.New("timeout")))
	agg := newAggregator(gh, &notification.Recorder{})
	require.Error(t, agg.Bind(context.Background(), widgetURL))

	gh.fail("acme", "repository", nil)
	require.NoError(t, agg.Refetch(context.Background()))
	assert.Empty(t, agg.State().Error)
	assert.NotNil(t, agg.State().Snapshot.Info)
}

func TestSnapshotCapsLists(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 9, 6)
	agg := newAggregator(gh, &notification.Recorder{})

	require.NoError(t, agg.Bind(context.Background(), widgetURL))

	assert.Len(t, agg.State().Snapshot.Commits, repo.CommitLimit)
	assert.Len(t, agg.State().Snapshot.Releases, repo.ReleaseLimit)
}

func TestRebindDiscardsStaleResults(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("slow", 1, 1)
	gh.seed("fast", 2, 2)
	gate := gh.gate("slow")
	agg := newAggregator(gh, &notification.Recorder{})

	done := make(chan error, 1)
	go func() { done <- agg.Bind(context.Background(), "https://github.com/slow/widget") }()

	assert.Eventually(t, func() bool { return agg.State().Loading }, waitFor, tick)

	require.NoError(t, agg.Bind(context.Background(), "https://github.com/fast/widget"))
	close(gate)
	require.NoError(t, <-done)

	state := agg.State()
	assert.Equal(t, "https://github.com/fast/widget", state.URL)
	require.NotNil(t, state.Snapshot.Info)
	assert.Equal(t, "fast/widget", state.Snapshot.Info.FullName)
	assert.Len(t, state.Snapshot.Commits, 2)
}

func TestAggregatorPublishesEvent(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 2, 1)
	dispatcher := events.NewDispatcher(logging.Component(logging.Discard(), "events"))
	got := make(chan events.DomainEvent, 1)
	dispatcher.Register(repo.EventTypeSnapshotFetched, func(_ context.Context, e events.DomainEvent) error {
		got <- e
		return nil
	})

	agg := service.NewRepositoryAggregator(gh, nil, dispatcher, nil, logging.Component(logging.Discard(), "aggregator"))
	require.NoError(t, agg.Bind(context.Background(), widgetURL))

	select {
	case e := <-got:
		ev, ok := e.(*repo.SnapshotFetchedEvent)
		require.True(t, ok)
		assert.Equal(t, "repo:"+widgetURL, ev.Topic())
		assert.Equal(t, 2, ev.CommitCount)
		assert.True(t, ev.HasInfo)
	case <-time.After(waitFor):
		t.Fatal("no event published")
	}
}

func TestAggregatorRegistry(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 1, 1)
	reg := service.NewAggregatorRegistry(gh, nil, nil, nil, logging.Component(logging.Discard(), "aggregator"), 0)

	first, err := reg.Get(context.Background(), widgetURL)
	require.NoError(t, err)
	again, err := reg.Get(context.Background(), " "+widgetURL+" ")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, int32(3), gh.calls.Load(), "second Get does not refetch")

	_, err = reg.Get(context.Background(), "https://example.com/nope")
	assert.True(t, repo.IsInvalidURL(err))
	_, err = reg.Refetch(context.Background(), "not a url")
	assert.True(t, repo.IsInvalidURL(err))
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Refetch(context.Background(), widgetURL)
	require.NoError(t, err)
	assert.Equal(t, int32(6), gh.calls.Load(), "known URLs are fetched again")

	_, err = reg.Refetch(context.Background(), "https://github.com/acme/other")
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestAggregatorRegistrySharesBoundAggregator(t *testing.T) {
	gh := newFakeGitHub()
	gh.seed("acme", 1, 1)
	gate := gh.gate("acme")
	reg := service.NewAggregatorRegistry(gh, nil, nil, nil, logging.Component(logging.Discard(), "aggregator"), 0)

	firstDone := make(chan error, 1)
	go func() {
		_, err := reg.Get(context.Background(), widgetURL)
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return gh.calls.Load() == 3 }, waitFor, tick)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	agg, err := reg.Get(ctx, widgetURL)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "later callers wait for the first fetch")
	require.NotNil(t, agg)
	assert.Equal(t, widgetURL, agg.State().URL)

	waiting := make(chan *service.RepositoryAggregator, 1)
	go func() {
		a, _ := reg.Refetch(context.Background(), widgetURL)
		waiting <- a
	}()

	close(gate)
	require.NoError(t, <-firstDone)
	assert.Same(t, agg, <-waiting)
	assert.Equal(t, int32(6), gh.calls.Load(), "the waiting refetch runs after the first fetch")
	assert.NotNil(t, agg.State().Snapshot.Info)
}

func TestAggregatorRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	gh := newFakeGitHub()
	for _, owner := range []string{"a", "b", "c"} {
		gh.seed(owner, 1, 1)
	}
	reg := service.NewAggregatorRegistry(gh, nil, nil, nil, logging.Component(logging.Discard(), "aggregator"), 2)
	ctx := context.Background()

	a, err := reg.Get(ctx, "https://github.com/a/widget")
	require.NoError(t, err)
	_, err = reg.Get(ctx, "https://github.com/b/widget")
	require.NoError(t, err)
	_, err = reg.Get(ctx, "https://github.com/a/widget")
	require.NoError(t, err)
	_, err = reg.Get(ctx, "https://github.com/c/widget")
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, int32(9), gh.calls.Load())

	again, err := reg.Get(ctx, "https://github.com/a/widget")
	require.NoError(t, err)
	assert.Same(t, a, again, "recently used entries survive")
	assert.Equal(t, int32(9), gh.calls.Load())

	_, err = reg.Get(ctx, "https://github.com/b/widget")
	require.NoError(t, err)
	assert.Equal(t, int32(12), gh.calls.Load(), "evicted URLs are fetched again")
	assert.Equal(t, 2, reg.Len())
}
