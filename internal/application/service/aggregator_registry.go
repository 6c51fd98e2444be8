package service

import (
	"context"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/sirupsen/logrus"

	"appdeck-core/internal/domain/events"
	"appdeck-core/internal/domain/repo"
	"appdeck-core/internal/metrics"
	"appdeck-core/internal/notification"
)

// DefaultMaxAggregators caps an AggregatorRegistry built with capacity zero
const DefaultMaxAggregators = 256

type aggregatorEntry struct {
	aggregator *RepositoryAggregator
	// ready is closed once the first fetch has finished
	ready chan struct{}
}

// AggregatorRegistry holds one bound RepositoryAggregator per repository URL.
// When full, the least recently used aggregator is dropped.
type AggregatorRegistry struct {
	github      repo.GitHubService
	notifierFor NotifierFactory
	publisher   events.Publisher
	metrics     *metrics.Metrics
	log         *logrus.Entry

	mu          sync.Mutex
	aggregators *lru.Cache // url -> *aggregatorEntry
}

// NewAggregatorRegistry creates an empty registry keeping at most capacity
// aggregators
func NewAggregatorRegistry(
	github repo.GitHubService,
	notifierFor NotifierFactory,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *logrus.Entry,
	capacity int,
) *AggregatorRegistry {
	if capacity <= 0 {
		capacity = DefaultMaxAggregators
	}
	return &AggregatorRegistry{
		github:      github,
		notifierFor: notifierFor,
		publisher:   publisher,
		metrics:     m,
		log:         log,
		aggregators: lru.New(capacity),
	}
}

// Get returns the aggregator for url. The first caller fetches the snapshot
// and gets the fetch's failure, if any; concurrent callers wait for it.
// URLs that do not name a GitHub repository are rejected without registering.
func (r *AggregatorRegistry) Get(ctx context.Context, url string) (*RepositoryAggregator, error) {
	url = strings.TrimSpace(url)
	e, created, err := r.getOrCreate(url)
	if err != nil {
		return nil, err
	}
	if created {
		return e.aggregator, r.load(ctx, e, url)
	}
	return e.aggregator, waitReady(ctx, e.ready)
}

// Refetch fetches url again, or binds it if it has not been seen yet
func (r *AggregatorRegistry) Refetch(ctx context.Context, url string) (*RepositoryAggregator, error) {
	url = strings.TrimSpace(url)
	e, created, err := r.getOrCreate(url)
	if err != nil {
		return nil, err
	}
	if created {
		return e.aggregator, r.load(ctx, e, url)
	}
	if err := waitReady(ctx, e.ready); err != nil {
		return e.aggregator, err
	}
	return e.aggregator, e.aggregator.Refetch(ctx)
}

func (r *AggregatorRegistry) load(ctx context.Context, e *aggregatorEntry, url string) error {
	defer close(e.ready)
	return e.aggregator.FetchGitHubData(ctx, url)
}

// getOrCreate binds a new aggregator before it becomes visible to other callers
func (r *AggregatorRegistry) getOrCreate(url string) (*aggregatorEntry, bool, error) {
	if _, err := repo.ParseURL(url); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.aggregators.Get(url); ok {
		return v.(*aggregatorEntry), false, nil
	}

	var notifier notification.Notifier = notification.Nop{}
	if r.notifierFor != nil {
		notifier = r.notifierFor(repo.Topic(url))
	}
	a := NewRepositoryAggregator(r.github, notifier, r.publisher, r.metrics, r.log.WithField("url", url))
	a.rebind(url)

	e := &aggregatorEntry{aggregator: a, ready: make(chan struct{})}
	full := r.aggregators.Len() >= r.aggregators.MaxEntries
	r.aggregators.Add(url, e)
	if full {
		r.metrics.Eviction("aggregators")
		r.log.Debug("dropped least recently used repository aggregator")
	}
	return e, true, nil
}

// Len returns the number of live aggregators
func (r *AggregatorRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aggregators.Len()
}
