package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"appdeck-core/internal/database"
	"appdeck-core/internal/domain/deployment"
)

const deploymentColumns = `id, app_id, environment, hosting_provider, domain_name, deployment_url,
	status, cicd_setup, dns_setup, ssl_enabled, created_at, updated_at`

const listDeploymentsQuery = `SELECT ` + deploymentColumns + `
FROM deployments
WHERE app_id = $1
ORDER BY created_at DESC`

const insertDeploymentQuery = `INSERT INTO deployments (
	app_id, environment, hosting_provider, domain_name, deployment_url,
	status, cicd_setup, dns_setup, ssl_enabled
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + deploymentColumns

const updateDeploymentQuery = `UPDATE deployments SET
	status = COALESCE($2, status),
	domain_name = COALESCE($3, domain_name),
	deployment_url = COALESCE($4, deployment_url),
	updated_at = COALESCE($5, now())
WHERE id = $1 AND ($6 = '' OR app_id = $6)
RETURNING ` + deploymentColumns

// DeploymentRepositoryImpl implements the domain deployment.DeploymentStore interface on PostgreSQL
type DeploymentRepositoryImpl struct {
	db *database.DB
}

// NewDeploymentRepository creates a new deployment repository implementation
func NewDeploymentRepository(db *database.DB) *DeploymentRepositoryImpl {
	return &DeploymentRepositoryImpl{db: db}
}

// List retrieves all deployments for an app, newest first
func (r *DeploymentRepositoryImpl) List(ctx context.Context, appID deployment.AppID) ([]*deployment.Deployment, error) {
	rows, err := r.db.GetConnection().QueryContext(ctx, listDeploymentsQuery, appID.String())
	if err != nil {
		return nil, deployment.NewStoreError("list", fmt.Errorf("failed to get deployments: %w", err))
	}
	defer rows.Close()

	deployments := make([]*deployment.Deployment, 0)
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, deployment.NewStoreError("list", err)
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, deployment.NewStoreError("list", fmt.Errorf("failed to iterate deployments: %w", err))
	}

	return deployments, nil
}

// Insert persists a draft; the database assigns the ID and timestamps
func (r *DeploymentRepositoryImpl) Insert(ctx context.Context, draft deployment.Draft) (*deployment.Deployment, error) {
	row := r.db.GetConnection().QueryRowContext(ctx, insertDeploymentQuery,
		draft.AppID.String(),
		draft.Environment.String(),
		draft.HostingProvider,
		nullString(draft.DomainName),
		nullString(draft.DeploymentURL),
		draft.Status.String(),
		draft.CICDSetup,
		draft.DNSSetup,
		nullBool(draft.SSLEnabled),
	)

	d, err := scanDeployment(row)
	if err != nil {
		return nil, deployment.NewStoreError("insert", fmt.Errorf("failed to create deployment: %w", err))
	}
	return d, nil
}

// Update applies a partial update. Status transitions are not checked here;
// the row is written as requested.
func (r *DeploymentRepositoryImpl) Update(ctx context.Context, id deployment.DeploymentID, changes deployment.Changes) (*deployment.Deployment, error) {
	var status sql.NullString
	if changes.Status != nil {
		status = sql.NullString{String: changes.Status.String(), Valid: true}
	}

	row := r.db.GetConnection().QueryRowContext(ctx, updateDeploymentQuery,
		id.UUID().String(),
		status,
		nullString(changes.DomainName),
		nullString(changes.DeploymentURL),
		sql.NullTime{Time: changes.UpdatedAt, Valid: !changes.UpdatedAt.IsZero()},
		changes.AppID.String(),
	)

	d, err := scanDeployment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, deployment.NewStoreError("update", deployment.ErrDeploymentNotFound)
		}
		return nil, deployment.NewStoreError("update", fmt.Errorf("failed to update deployment: %w", err))
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeployment(row rowScanner) (*deployment.Deployment, error) {
	var (
		a             deployment.Attributes
		domainName    sql.NullString
		deploymentURL sql.NullString
		sslEnabled    sql.NullBool
	)

	err := row.Scan(
		&a.ID,
		&a.AppID,
		&a.Environment,
		&a.HostingProvider,
		&domainName,
		&deploymentURL,
		&a.Status,
		&a.CICDSetup,
		&a.DNSSetup,
		&sslEnabled,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if domainName.Valid {
		a.DomainName = &domainName.String
	}
	if deploymentURL.Valid {
		a.DeploymentURL = &deploymentURL.String
	}
	if sslEnabled.Valid {
		a.SSLEnabled = &sslEnabled.Bool
	}

	d, err := deployment.Reconstitute(a)
	if err != nil {
		return nil, fmt.Errorf("failed to convert deployment: %w", err)
	}
	return d, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

var _ deployment.DeploymentStore = (*DeploymentRepositoryImpl)(nil)
