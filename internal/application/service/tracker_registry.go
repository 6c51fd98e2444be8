package service

import (
	"context"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/sirupsen/logrus"

	"appdeck-core/internal/domain/deployment"
	"appdeck-core/internal/domain/events"
	"appdeck-core/internal/metrics"
	"appdeck-core/internal/notification"
)

// DefaultMaxTrackers caps a TrackerRegistry built with capacity zero
const DefaultMaxTrackers = 1000

// NotifierFactory returns the notifier for a topic
type NotifierFactory func(topic string) notification.Notifier

type trackerEntry struct {
	tracker *DeploymentTracker
	// ready is closed once the first load has finished
	ready chan struct{}
}

// TrackerRegistry holds one bound DeploymentTracker per app. When full, the
// least recently used tracker is closed and dropped.
type TrackerRegistry struct {
	store       deployment.DeploymentStore
	notifierFor NotifierFactory
	publisher   events.Publisher
	metrics     *metrics.Metrics
	log         *logrus.Entry
	opts        TrackerOptions

	mu       sync.Mutex
	trackers *lru.Cache // deployment.AppID -> *trackerEntry
}

// NewTrackerRegistry creates an empty registry keeping at most capacity trackers
func NewTrackerRegistry(
	store deployment.DeploymentStore,
	notifierFor NotifierFactory,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *logrus.Entry,
	opts TrackerOptions,
	capacity int,
) *TrackerRegistry {
	if capacity <= 0 {
		capacity = DefaultMaxTrackers
	}
	r := &TrackerRegistry{
		store:       store,
		notifierFor: notifierFor,
		publisher:   publisher,
		metrics:     m,
		log:         log,
		opts:        opts,
		trackers:    lru.New(capacity),
	}
	r.trackers.OnEvicted = r.evicted
	return r
}

func (r *TrackerRegistry) evicted(key lru.Key, value interface{}) {
	value.(*trackerEntry).tracker.Close()
	r.log.WithField("app_id", key.(deployment.AppID).String()).Debug("closed deployment tracker")
}

// Get returns the tracker for appID. The first caller binds and loads it and
// gets the load's failure, if any; the tracker is kept either way. Concurrent
// callers wait for that first load.
func (r *TrackerRegistry) Get(ctx context.Context, appID string) (*DeploymentTracker, error) {
	e, created, err := r.getOrCreate(appID)
	if err != nil {
		return nil, err
	}
	if created {
		return e.tracker, r.load(ctx, e)
	}
	return e.tracker, waitReady(ctx, e.ready)
}

// Refetch reloads appID's deployments, or binds and loads the app if it has
// no tracker yet
func (r *TrackerRegistry) Refetch(ctx context.Context, appID string) (*DeploymentTracker, error) {
	e, created, err := r.getOrCreate(appID)
	if err != nil {
		return nil, err
	}
	if created {
		return e.tracker, r.load(ctx, e)
	}
	if err := waitReady(ctx, e.ready); err != nil {
		return e.tracker, err
	}
	return e.tracker, e.tracker.Refetch(ctx)
}

func (r *TrackerRegistry) load(ctx context.Context, e *trackerEntry) error {
	defer close(e.ready)
	return e.tracker.Refetch(ctx)
}

// getOrCreate binds a new tracker before it becomes visible to other callers
func (r *TrackerRegistry) getOrCreate(appID string) (*trackerEntry, bool, error) {
	id := deployment.NewAppID(appID)
	if id.IsZero() {
		return nil, false, deployment.ErrAppNotBound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.trackers.Get(id); ok {
		return v.(*trackerEntry), false, nil
	}

	var notifier notification.Notifier = notification.Nop{}
	if r.notifierFor != nil {
		notifier = r.notifierFor(deployment.Topic(id))
	}
	t := NewDeploymentTracker(r.store, notifier, r.publisher, r.metrics,
		r.log.WithField("app_id", id.String()), r.opts)
	if _, err := t.rebind(id); err != nil {
		return nil, false, err
	}

	e := &trackerEntry{tracker: t, ready: make(chan struct{})}
	full := r.trackers.Len() >= r.trackers.MaxEntries
	r.trackers.Add(id, e)
	if full {
		r.metrics.Eviction("trackers")
	}
	return e, true, nil
}

// Len returns the number of live trackers
func (r *TrackerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackers.Len()
}

// Close closes every tracker, cancelling their pending completions
func (r *TrackerRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers.Clear()
}

func waitReady(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
