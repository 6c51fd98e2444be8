package deployment

import (
	"context"
)

// DeploymentStore is the backend the tracker reads through and writes through.
// Implementations wrap every failure in a *StoreError.
type DeploymentStore interface {
	// List returns all deployments for an app, newest first
	List(ctx context.Context, appID AppID) ([]*Deployment, error)

	// Insert persists a draft; the backend assigns the ID and timestamps
	Insert(ctx context.Context, draft Draft) (*Deployment, error)

	// Update applies a partial update and returns the stored row.
	// Unknown IDs fail with ErrDeploymentNotFound.
	Update(ctx context.Context, id DeploymentID, changes Changes) (*Deployment, error)
}
