package dto

import (
	"time"

	"appdeck-core/internal/application/service"
	"appdeck-core/internal/domain/deployment"
)

// CreateDeploymentRequest represents the request to create a deployment.
// Every field is optional; status is accepted and ignored.
type CreateDeploymentRequest struct {
	Environment     *string        `json:"environment,omitempty" example:"staging"`
	HostingProvider *string        `json:"hosting_provider,omitempty" example:"vercel"`
	DomainName      *string        `json:"domain_name,omitempty" example:"app.example.com"`
	DeploymentURL   *string        `json:"deployment_url,omitempty"`
	Status          *string        `json:"status,omitempty"`
	CICDSetup       map[string]any `json:"cicd_setup,omitempty"`
	DNSSetup        map[string]any `json:"dns_setup,omitempty"`
	SSLEnabled      *bool          `json:"ssl_enabled,omitempty"`
}

// ToInput converts the request to the domain's create input
func (r *CreateDeploymentRequest) ToInput() deployment.CreateInput {
	return deployment.CreateInput{
		Environment:     r.Environment,
		HostingProvider: r.HostingProvider,
		DomainName:      r.DomainName,
		DeploymentURL:   r.DeploymentURL,
		Status:          r.Status,
		CICDSetup:       deployment.SetupDescriptor(r.CICDSetup),
		DNSSetup:        deployment.SetupDescriptor(r.DNSSetup),
		SSLEnabled:      r.SSLEnabled,
	}
}

// DeploymentResponse represents a deployment in API responses
type DeploymentResponse struct {
	ID              string         `json:"id"`
	AppID           string         `json:"app_id"`
	Environment     string         `json:"environment"`
	HostingProvider string         `json:"hosting_provider"`
	DomainName      *string        `json:"domain_name"`
	DeploymentURL   *string        `json:"deployment_url"`
	Status          string         `json:"status"`
	CICDSetup       map[string]any `json:"cicd_setup,omitempty"`
	DNSSetup        map[string]any `json:"dns_setup,omitempty"`
	SSLEnabled      *bool          `json:"ssl_enabled"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

// DeploymentListResponse is a tracker's cached view of an app's deployments
type DeploymentListResponse struct {
	AppID       string                `json:"app_id"`
	Deployments []*DeploymentResponse `json:"deployments"`
	Loading     bool                  `json:"loading"`
}

// ToDeploymentResponse converts a domain entity to its API shape
func ToDeploymentResponse(d *deployment.Deployment) *DeploymentResponse {
	return &DeploymentResponse{
		ID:              d.ID().String(),
		AppID:           d.AppID().String(),
		Environment:     d.Environment().String(),
		HostingProvider: d.HostingProvider(),
		DomainName:      d.DomainName(),
		DeploymentURL:   d.DeploymentURL(),
		Status:          d.Status().String(),
		CICDSetup:       d.CICDSetup(),
		DNSSetup:        d.DNSSetup(),
		SSLEnabled:      d.SSLEnabled(),
		CreatedAt:       d.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:       d.UpdatedAt().Format(time.RFC3339Nano),
	}
}

// ToDeploymentListResponse converts a tracker state
func ToDeploymentListResponse(s service.TrackerState) *DeploymentListResponse {
	out := &DeploymentListResponse{
		AppID:       s.AppID.String(),
		Deployments: make([]*DeploymentResponse, 0, len(s.Deployments)),
		Loading:     s.Loading,
	}
	for _, d := range s.Deployments {
		out.Deployments = append(out.Deployments, ToDeploymentResponse(d))
	}
	return out
}
