package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"appdeck-core/internal/domain/deployment"
	"appdeck-core/internal/domain/events"
	"appdeck-core/internal/metrics"
	"appdeck-core/internal/notification"
)

// Notification messages emitted by the tracker
const (
	MsgDeploymentsLoadFailed  = "Failed to load deployments"
	MsgDeploymentCreated      = "Deployment created successfully"
	MsgDeploymentCreateFailed = "Failed to create deployment"
	MsgDeploymentTriggered    = "Deployment triggered"
	MsgDeploymentTriggerFail  = "Failed to trigger deployment"
	MsgDeploymentCompleted    = "Deployment completed successfully"
)

// Default timings
const (
	DefaultCompletionDelay   = 3 * time.Second
	DefaultCompletionTimeout = 10 * time.Second
)

// ErrTrackerClosed is returned by operations on a closed tracker
var ErrTrackerClosed = errors.New("deployment tracker closed")

// TrackerOptions tunes the delayed completion
type TrackerOptions struct {
	// CompletionDelay is measured from the start of a trigger's first phase.
	// Zero or negative selects DefaultCompletionDelay.
	CompletionDelay time.Duration
	// CompletionTimeout bounds the delayed backend write
	CompletionTimeout time.Duration
}

func (o TrackerOptions) withDefaults() TrackerOptions {
	if o.CompletionDelay <= 0 {
		o.CompletionDelay = DefaultCompletionDelay
	}
	if o.CompletionTimeout <= 0 {
		o.CompletionTimeout = DefaultCompletionTimeout
	}
	return o
}

// TrackerState is a point-in-time view of a tracker
type TrackerState struct {
	AppID       deployment.AppID
	Deployments []*deployment.Deployment
	Loading     bool
}

type pendingCompletion struct {
	timer        *time.Timer
	generation   uint64
	appID        deployment.AppID
	deploymentID deployment.DeploymentID
}

// DeploymentTracker keeps a cached, newest-first list of one app's deployments
// in step with the store and drives the delayed completion of triggered
// deployments.
type DeploymentTracker struct {
	store     deployment.DeploymentStore
	notifier  notification.Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *logrus.Entry
	opts      TrackerOptions

	// lifetime is cancelled by Close and parents every delayed write
	lifetime context.Context
	cancel   context.CancelFunc

	mu          sync.Mutex
	appID       deployment.AppID
	generation  uint64
	deployments []*deployment.Deployment
	inflight    int
	pending     map[uint64]*pendingCompletion
	nextSeq     uint64
	closed      bool
}

// NewDeploymentTracker creates an unbound tracker. publisher and m may be nil.
func NewDeploymentTracker(
	store deployment.DeploymentStore,
	notifier notification.Notifier,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *logrus.Entry,
	opts TrackerOptions,
) *DeploymentTracker {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &DeploymentTracker{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
		log:       log,
		opts:      opts.withDefaults(),
		lifetime:  lifetime,
		cancel:    cancel,
		pending:   make(map[uint64]*pendingCompletion),
	}
}

// Bind points the tracker at appID and loads its deployments. Rebinding drops
// the cache and cancels the delayed completions of the previous binding. An
// empty appID unbinds without fetching.
func (t *DeploymentTracker) Bind(ctx context.Context, appID string) error {
	changed, err := t.rebind(deployment.NewAppID(appID))
	if err != nil || !changed {
		return err
	}
	return t.Refetch(ctx)
}

// rebind switches the binding without loading anything
func (t *DeploymentTracker) rebind(id deployment.AppID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false, ErrTrackerClosed
	}
	if id == t.appID {
		return false, nil
	}
	t.appID = id
	t.generation++
	t.deployments = nil
	t.cancelPendingLocked()
	return true, nil
}

// Refetch reloads the bound app's deployments. On failure the cache is left
// as it was.
func (t *DeploymentTracker) Refetch(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTrackerClosed
	}
	appID, gen := t.appID, t.generation
	if appID.IsZero() {
		t.mu.Unlock()
		return nil
	}
	t.inflight++
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.inflight--
		t.mu.Unlock()
	}()

	list, err := t.store.List(ctx, appID)
	if err != nil {
		t.mu.Lock()
		stale := gen != t.generation
		t.mu.Unlock()
		if stale {
			t.metrics.TrackerOperation("fetch", metrics.OutcomeStale)
			t.log.WithError(err).WithField("app_id", appID.String()).Debug("discarded failed load for a previous binding")
			return nil
		}

		t.metrics.TrackerOperation("fetch", metrics.OutcomeError)
		t.log.WithError(err).WithField("app_id", appID.String()).Error("failed to load deployments")
		t.notifier.NotifyError(MsgDeploymentsLoadFailed)
		return fmt.Errorf("fetch deployments: %w", err)
	}

	list = deployment.SortNewestFirst(list)

	t.mu.Lock()
	stale := gen != t.generation
	if !stale {
		t.deployments = list
	}
	t.mu.Unlock()

	if stale {
		t.metrics.TrackerOperation("fetch", metrics.OutcomeStale)
		return nil
	}
	t.metrics.TrackerOperation("fetch", metrics.OutcomeOK)
	return nil
}

// Create inserts a deployment for the bound app and puts it at the front of
// the cache. Status is always pending whatever the input says.
func (t *DeploymentTracker) Create(ctx context.Context, in deployment.CreateInput) (*deployment.Deployment, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTrackerClosed
	}
	appID, gen := t.appID, t.generation
	t.mu.Unlock()

	draft, err := deployment.NewDraft(appID, in)
	if err != nil {
		return nil, t.createFailed(appID, err)
	}

	created, err := t.store.Insert(ctx, draft)
	if err != nil {
		return nil, t.createFailed(appID, err)
	}

	t.mu.Lock()
	if gen == t.generation {
		t.deployments = deployment.Prepend(t.deployments, created.Clone())
	}
	t.mu.Unlock()

	t.metrics.TrackerOperation("create", metrics.OutcomeOK)
	t.log.WithFields(logrus.Fields{
		"app_id":        appID.String(),
		"deployment_id": created.ID().String(),
		"environment":   created.Environment().String(),
	}).Info("deployment created")
	t.notifier.NotifySuccess(MsgDeploymentCreated)
	t.publish(ctx, deployment.NewDeploymentCreated(created))

	return created, nil
}

func (t *DeploymentTracker) createFailed(appID deployment.AppID, err error) error {
	t.metrics.TrackerOperation("create", metrics.OutcomeError)
	t.log.WithError(err).WithField("app_id", appID.String()).Error("failed to create deployment")
	t.notifier.NotifyError(MsgDeploymentCreateFailed)
	return fmt.Errorf("create deployment: %w", err)
}

// Trigger resets a deployment to pending and schedules its completion. It
// returns once the reset is stored; the completion runs in the background
// after the configured delay, counted from when Trigger started. A bound
// tracker only touches its own app's deployments; any other id is not found.
func (t *DeploymentTracker) Trigger(ctx context.Context, rawID string) (*deployment.Deployment, error) {
	started := time.Now()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTrackerClosed
	}
	appID, gen := t.appID, t.generation
	t.mu.Unlock()

	id, err := deployment.ParseDeploymentID(rawID)
	if err != nil {
		return nil, t.triggerFailed(rawID, err)
	}

	updated, err := t.store.Update(ctx, id, deployment.StatusChange(deployment.StatusPending, started.UTC()).ScopedTo(appID))
	if err != nil {
		return nil, t.triggerFailed(rawID, err)
	}

	t.mu.Lock()
	current := gen == t.generation && !t.closed
	if current {
		t.deployments = deployment.ReplaceByID(t.deployments, updated.Clone())
		t.scheduleCompletionLocked(appID, id, gen, t.opts.CompletionDelay-time.Since(started))
	}
	t.mu.Unlock()

	t.metrics.TrackerOperation("trigger", metrics.OutcomeOK)
	t.log.WithField("deployment_id", id.String()).Info("deployment triggered")
	t.notifier.NotifySuccess(MsgDeploymentTriggered)
	t.publish(ctx, deployment.NewDeploymentTriggered(updated))

	return updated, nil
}

func (t *DeploymentTracker) triggerFailed(rawID string, err error) error {
	t.metrics.TrackerOperation("trigger", metrics.OutcomeError)
	t.log.WithError(err).WithField("deployment_id", rawID).Error("failed to trigger deployment")
	t.notifier.NotifyError(MsgDeploymentTriggerFail)
	return fmt.Errorf("trigger deployment: %w", err)
}

func (t *DeploymentTracker) scheduleCompletionLocked(appID deployment.AppID, id deployment.DeploymentID, gen uint64, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	t.nextSeq++
	seq := t.nextSeq
	pc := &pendingCompletion{generation: gen, appID: appID, deploymentID: id}
	pc.timer = time.AfterFunc(delay, func() { t.complete(seq, pc) })
	t.pending[seq] = pc
}

// complete is the delayed second phase. Failures are not logged or notified;
// they only show up in the completion metric.
func (t *DeploymentTracker) complete(seq uint64, pc *pendingCompletion) {
	t.mu.Lock()
	if _, ok := t.pending[seq]; !ok {
		// cancelled after the timer fired
		t.mu.Unlock()
		return
	}
	delete(t.pending, seq)
	if pc.generation != t.generation || t.closed {
		t.mu.Unlock()
		t.metrics.Completion(metrics.OutcomeStale)
		return
	}
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(t.lifetime, t.opts.CompletionTimeout)
	defer cancel()

	updated, err := t.store.Update(ctx, pc.deploymentID, deployment.StatusChange(deployment.StatusDeployed, time.Now().UTC()).ScopedTo(pc.appID))
	if err != nil {
		t.metrics.Completion(metrics.OutcomeError)
		return
	}

	t.mu.Lock()
	stale := pc.generation != t.generation || t.closed
	if !stale {
		t.deployments = deployment.ReplaceByID(t.deployments, updated.Clone())
	}
	t.mu.Unlock()

	if stale {
		t.metrics.Completion(metrics.OutcomeStale)
		return
	}

	t.metrics.Completion(metrics.OutcomeCompleted)
	t.notifier.NotifySuccess(MsgDeploymentCompleted)
	t.publish(ctx, deployment.NewDeploymentCompleted(updated))
}

func (t *DeploymentTracker) cancelPendingLocked() {
	for seq, pc := range t.pending {
		pc.timer.Stop()
		delete(t.pending, seq)
		t.metrics.Completion(metrics.OutcomeDropped)
	}
}

func (t *DeploymentTracker) publish(ctx context.Context, event events.DomainEvent) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.Dispatch(context.WithoutCancel(ctx), event); err != nil {
		t.log.WithError(err).WithField("event_type", event.EventType()).Warn("failed to publish event")
	}
}

// State returns the current cache, newest first. The entries are copies.
func (t *DeploymentTracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := make([]*deployment.Deployment, len(t.deployments))
	for i, d := range t.deployments {
		list[i] = d.Clone()
	}
	return TrackerState{
		AppID:       t.appID,
		Deployments: list,
		Loading:     t.inflight > 0,
	}
}

// AppID returns the bound app identifier
func (t *DeploymentTracker) AppID() deployment.AppID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appID
}

// PendingCompletions returns the number of scheduled delayed completions
func (t *DeploymentTracker) PendingCompletions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Close cancels every pending completion and aborts any delayed write in
// flight. The tracker rejects further operations.
func (t *DeploymentTracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.generation++
	t.cancelPendingLocked()
	t.mu.Unlock()

	t.cancel()
}
