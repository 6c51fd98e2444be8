package deployment

import (
	"fmt"
	"strings"
	"time"
)

// Deployment is a domain entity representing one attempt to publish an app to an environment
type Deployment struct {
	id              DeploymentID
	appID           AppID
	environment     Environment
	hostingProvider string
	domainName      *string
	deploymentURL   *string
	status          DeploymentStatus
	cicdSetup       SetupDescriptor
	dnsSetup        SetupDescriptor
	sslEnabled      *bool
	createdAt       time.Time
	updatedAt       time.Time
}

// Attributes is the flat, persistence-facing shape of a Deployment
type Attributes struct {
	ID              string
	AppID           string
	Environment     string
	HostingProvider string
	DomainName      *string
	DeploymentURL   *string
	Status          string
	CICDSetup       SetupDescriptor
	DNSSetup        SetupDescriptor
	SSLEnabled      *bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Reconstitute recreates a Deployment entity from persistence
func Reconstitute(a Attributes) (*Deployment, error) {
	id, err := ParseDeploymentID(a.ID)
	if err != nil {
		return nil, err
	}

	appID := NewAppID(a.AppID)
	if appID.IsZero() {
		return nil, fmt.Errorf("deployment %s has no app ID", a.ID)
	}

	env, err := ParseEnvironment(a.Environment)
	if err != nil {
		return nil, err
	}

	status, err := NewDeploymentStatus(a.Status)
	if err != nil {
		return nil, err
	}

	return &Deployment{
		id:              id,
		appID:           appID,
		environment:     env,
		hostingProvider: a.HostingProvider,
		domainName:      copyString(a.DomainName),
		deploymentURL:   copyString(a.DeploymentURL),
		status:          status,
		cicdSetup:       a.CICDSetup.Clone(),
		dnsSetup:        a.DNSSetup.Clone(),
		sslEnabled:      copyBool(a.SSLEnabled),
		createdAt:       a.CreatedAt,
		updatedAt:       a.UpdatedAt,
	}, nil
}

// CanTransition reports whether a deployment may move from one status to another.
// Every status may be reset to pending; pending resolves to deployed or failed.
func CanTransition(from, to DeploymentStatus) bool {
	if from == to || to == StatusPending {
		return true
	}
	return from == StatusPending && (to == StatusDeployed || to == StatusFailed)
}

// UpdateStatus updates the deployment status
func (d *Deployment) UpdateStatus(newStatus DeploymentStatus, at time.Time) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	if !CanTransition(d.status, newStatus) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatusTransition, d.status, newStatus)
	}

	d.status = newStatus
	d.updatedAt = at
	return nil
}

// Apply applies a partial update. Nothing is changed when it returns an error.
func (d *Deployment) Apply(c Changes) error {
	if c.Status != nil {
		if err := d.UpdateStatus(*c.Status, c.UpdatedAt); err != nil {
			return err
		}
	}
	if c.DomainName != nil {
		d.domainName = copyString(c.DomainName)
	}
	if c.DeploymentURL != nil {
		d.deploymentURL = copyString(c.DeploymentURL)
	}
	d.updatedAt = c.UpdatedAt
	return nil
}

// Clone returns a deep copy
func (d *Deployment) Clone() *Deployment {
	c := *d
	c.domainName = copyString(d.domainName)
	c.deploymentURL = copyString(d.deploymentURL)
	c.cicdSetup = d.cicdSetup.Clone()
	c.dnsSetup = d.dnsSetup.Clone()
	c.sslEnabled = copyBool(d.sslEnabled)
	return &c
}

// BelongsToApp checks if the deployment belongs to the specified app
func (d *Deployment) BelongsToApp(appID AppID) bool {
	return d.appID == appID
}

// Getters

func (d *Deployment) ID() DeploymentID {
	return d.id
}

func (d *Deployment) AppID() AppID {
	return d.appID
}

func (d *Deployment) Environment() Environment {
	return d.environment
}

func (d *Deployment) HostingProvider() string {
	return d.hostingProvider
}

func (d *Deployment) DomainName() *string {
	return copyString(d.domainName)
}

func (d *Deployment) DeploymentURL() *string {
	return copyString(d.deploymentURL)
}

func (d *Deployment) Status() DeploymentStatus {
	return d.status
}

func (d *Deployment) CICDSetup() SetupDescriptor {
	return d.cicdSetup.Clone()
}

func (d *Deployment) DNSSetup() SetupDescriptor {
	return d.dnsSetup.Clone()
}

func (d *Deployment) SSLEnabled() *bool {
	return copyBool(d.sslEnabled)
}

func (d *Deployment) CreatedAt() time.Time {
	return d.createdAt
}

func (d *Deployment) UpdatedAt() time.Time {
	return d.updatedAt
}

// String returns string representation (for debugging)
func (d *Deployment) String() string {
	return fmt.Sprintf("Deployment{id: %s, appID: %s, env: %s, status: %s}",
		d.id.String(), d.appID.String(), d.environment.String(), d.status.String())
}

// CreateInput is the partial deployment a caller supplies on create.
// Every field is optional; Status is accepted but always overridden.
type CreateInput struct {
	Environment     *string
	HostingProvider *string
	DomainName      *string
	DeploymentURL   *string
	Status          *string
	CICDSetup       SetupDescriptor
	DNSSetup        SetupDescriptor
	SSLEnabled      *bool
}

// Draft is a deployment that the backend has not assigned an identity to yet
type Draft struct {
	AppID           AppID
	Environment     Environment
	HostingProvider string
	DomainName      *string
	DeploymentURL   *string
	Status          DeploymentStatus
	CICDSetup       SetupDescriptor
	DNSSetup        SetupDescriptor
	SSLEnabled      *bool
}

// NewDraft applies the creation defaults: environment production, hosting
// provider vercel, status pending regardless of input.
func NewDraft(appID AppID, in CreateInput) (Draft, error) {
	if appID.IsZero() {
		return Draft{}, ErrAppNotBound
	}

	env := EnvironmentProduction
	if in.Environment != nil && strings.TrimSpace(*in.Environment) != "" {
		parsed, err := ParseEnvironment(*in.Environment)
		if err != nil {
			return Draft{}, err
		}
		env = parsed
	}

	provider := DefaultHostingProvider
	if in.HostingProvider != nil && strings.TrimSpace(*in.HostingProvider) != "" {
		provider = strings.TrimSpace(*in.HostingProvider)
	}

	return Draft{
		AppID:           appID,
		Environment:     env,
		HostingProvider: provider,
		DomainName:      copyString(in.DomainName),
		DeploymentURL:   copyString(in.DeploymentURL),
		Status:          StatusPending,
		CICDSetup:       in.CICDSetup.Clone(),
		DNSSetup:        in.DNSSetup.Clone(),
		SSLEnabled:      copyBool(in.SSLEnabled),
	}, nil
}

// Changes is a partial update; nil fields are left untouched
type Changes struct {
	// AppID, when set, restricts the update to that app's deployment. A
	// deployment of another app is reported as not found.
	AppID         AppID
	Status        *DeploymentStatus
	DomainName    *string
	DeploymentURL *string
	UpdatedAt     time.Time
}

// StatusChange builds a Changes that only sets the status
func StatusChange(status DeploymentStatus, at time.Time) Changes {
	return Changes{Status: &status, UpdatedAt: at}
}

// ScopedTo restricts c to appID's deployments
func (c Changes) ScopedTo(appID AppID) Changes {
	c.AppID = appID
	return c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
