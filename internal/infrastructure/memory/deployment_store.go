package memory

import (
	"context"
	"sync"
	"time"

	"appdeck-core/internal/domain/deployment"
)

// DeploymentStore is an in-process deployment.DeploymentStore.
// It hands out clones so callers never share state with the store.
type DeploymentStore struct {
	mu          sync.RWMutex
	deployments map[string]*deployment.Deployment
	lastCreated time.Time
	now         func() time.Time
}

// NewDeploymentStore creates an empty store
func NewDeploymentStore() *DeploymentStore {
	return &DeploymentStore{
		deployments: make(map[string]*deployment.Deployment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// List returns all deployments for an app, newest first
func (s *DeploymentStore) List(ctx context.Context, appID deployment.AppID) ([]*deployment.Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, deployment.NewStoreError("list", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*deployment.Deployment, 0)
	for _, d := range s.deployments {
		if d.BelongsToApp(appID) {
			out = append(out, d.Clone())
		}
	}
	return deployment.SortNewestFirst(out), nil
}

// Insert assigns an ID and strictly increasing timestamps
func (s *DeploymentStore) Insert(ctx context.Context, draft deployment.Draft) (*deployment.Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, deployment.NewStoreError("insert", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.After(s.lastCreated) {
		now = s.lastCreated.Add(time.Microsecond)
	}
	s.lastCreated = now

	d, err := deployment.Reconstitute(deployment.Attributes{
		ID:              deployment.NewDeploymentID().String(),
		AppID:           draft.AppID.String(),
		Environment:     draft.Environment.String(),
		HostingProvider: draft.HostingProvider,
		DomainName:      draft.DomainName,
		DeploymentURL:   draft.DeploymentURL,
		Status:          draft.Status.String(),
		CICDSetup:       draft.CICDSetup,
		DNSSetup:        draft.DNSSetup,
		SSLEnabled:      draft.SSLEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, deployment.NewStoreError("insert", err)
	}

	s.deployments[d.ID().String()] = d
	return d.Clone(), nil
}

// Update applies changes through the entity so the status state machine holds
func (s *DeploymentStore) Update(ctx context.Context, id deployment.DeploymentID, changes deployment.Changes) (*deployment.Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, deployment.NewStoreError("update", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.deployments[id.String()]
	if !ok || (!changes.AppID.IsZero() && !current.BelongsToApp(changes.AppID)) {
		return nil, deployment.NewStoreError("update", deployment.ErrDeploymentNotFound)
	}

	if changes.UpdatedAt.IsZero() {
		changes.UpdatedAt = s.now()
	}

	next := current.Clone()
	if err := next.Apply(changes); err != nil {
		return nil, deployment.NewStoreError("update", err)
	}

	s.deployments[id.String()] = next
	return next.Clone(), nil
}

// Count returns the number of stored deployments
func (s *DeploymentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deployments)
}

var _ deployment.DeploymentStore = (*DeploymentStore)(nil)
