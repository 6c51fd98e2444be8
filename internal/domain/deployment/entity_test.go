package deployment_test

import (
	"errors"
	"testing"
	"time"

	"appdeck-core/internal/domain/deployment"
)

func strPtr(s string) *string { return &s }

func newAttributes(status string) deployment.Attributes {
	now := time.Now().UTC()
	return deployment.Attributes{
		ID:              "550e8400-e29b-41d4-a716-446655440000",
		AppID:           "app-1",
		Environment:     "production",
		HostingProvider: "vercel",
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestNewDraftDefaults(t *testing.T) {
	tests := []struct {
		name         string
		input        deployment.CreateInput
		wantEnv      deployment.Environment
		wantProvider string
		wantErr      error
	}{
		{
			name:         "all defaults",
			input:        deployment.CreateInput{},
			wantEnv:      deployment.EnvironmentProduction,
			wantProvider: "vercel",
		},
		{
			name:         "caller values kept",
			input:        deployment.CreateInput{Environment: strPtr("staging"), HostingProvider: strPtr("netlify")},
			wantEnv:      deployment.EnvironmentStaging,
			wantProvider: "netlify",
		},
		{
			name:         "blank values treated as absent",
			input:        deployment.CreateInput{Environment: strPtr("  "), HostingProvider: strPtr("")},
			wantEnv:      deployment.EnvironmentProduction,
			wantProvider: "vercel",
		},
		{
			name:         "environment is case-insensitive",
			input:        deployment.CreateInput{Environment: strPtr("Preview")},
			wantEnv:      deployment.EnvironmentPreview,
			wantProvider: "vercel",
		},
		{
			name:    "unknown environment",
			input:   deployment.CreateInput{Environment: strPtr("qa")},
			wantErr: deployment.ErrInvalidEnvironment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := deployment.NewDraft("app-1", tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewDraft() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDraft() error = %v", err)
			}
			if draft.Environment != tt.wantEnv {
				t.Errorf("Environment = %v, want %v", draft.Environment, tt.wantEnv)
			}
			if draft.HostingProvider != tt.wantProvider {
				t.Errorf("HostingProvider = %v, want %v", draft.HostingProvider, tt.wantProvider)
			}
			if draft.Status != deployment.StatusPending {
				t.Errorf("Status = %v, want pending", draft.Status)
			}
		})
	}
}

func TestNewDraftForcesPending(t *testing.T) {
	for _, status := range []string{"deployed", "failed", "pending", "bogus"} {
		draft, err := deployment.NewDraft("app-1", deployment.CreateInput{Status: strPtr(status)})
		if err != nil {
			t.Fatalf("NewDraft(status=%s) error = %v", status, err)
		}
		if draft.Status != deployment.StatusPending {
			t.Errorf("NewDraft(status=%s).Status = %v, want pending", status, draft.Status)
		}
	}
}

func TestNewDraftPassesThroughOptionalFields(t *testing.T) {
	draft, err := deployment.NewDraft("app-1", deployment.CreateInput{
		DomainName:    strPtr("widget.example.com"),
		DeploymentURL: nil,
	})
	if err != nil {
		t.Fatalf("NewDraft() error = %v", err)
	}
	if draft.DomainName == nil || *draft.DomainName != "widget.example.com" {
		t.Errorf("DomainName = %v, want widget.example.com", draft.DomainName)
	}
	if draft.DeploymentURL != nil {
		t.Errorf("DeploymentURL = %v, want nil", *draft.DeploymentURL)
	}
}

func TestNewDraftRequiresApp(t *testing.T) {
	if _, err := deployment.NewDraft("", deployment.CreateInput{}); !errors.Is(err, deployment.ErrAppNotBound) {
		t.Errorf("NewDraft() error = %v, want ErrAppNotBound", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to deployment.DeploymentStatus
		want     bool
	}{
		{deployment.StatusPending, deployment.StatusDeployed, true},
		{deployment.StatusPending, deployment.StatusFailed, true},
		{deployment.StatusDeployed, deployment.StatusPending, true},
		{deployment.StatusFailed, deployment.StatusPending, true},
		{deployment.StatusPending, deployment.StatusPending, true},
		{deployment.StatusDeployed, deployment.StatusFailed, false},
		{deployment.StatusFailed, deployment.StatusDeployed, false},
	}

	for _, tt := range tests {
		if got := deployment.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestApplyRejectsInvalidTransition(t *testing.T) {
	dep, err := deployment.Reconstitute(newAttributes("failed"))
	if err != nil {
		t.Fatalf("Reconstitute() error = %v", err)
	}

	before := dep.UpdatedAt()
	err = dep.Apply(deployment.StatusChange(deployment.StatusDeployed, before.Add(time.Second)))
	if !errors.Is(err, deployment.ErrInvalidStatusTransition) {
		t.Fatalf("Apply() error = %v, want ErrInvalidStatusTransition", err)
	}
	if dep.Status() != deployment.StatusFailed {
		t.Errorf("Status = %v, want failed", dep.Status())
	}
	if !dep.UpdatedAt().Equal(before) {
		t.Error("UpdatedAt should not change on a rejected update")
	}
}

func TestApplyUpdatesFields(t *testing.T) {
	dep, _ := deployment.Reconstitute(newAttributes("pending"))
	at := dep.UpdatedAt().Add(time.Minute)

	url := "https://widget.vercel.app"
	status := deployment.StatusDeployed
	if err := dep.Apply(deployment.Changes{Status: &status, DeploymentURL: &url, UpdatedAt: at}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if dep.Status() != deployment.StatusDeployed {
		t.Errorf("Status = %v, want deployed", dep.Status())
	}
	if got := dep.DeploymentURL(); got == nil || *got != url {
		t.Errorf("DeploymentURL = %v, want %v", got, url)
	}
	if !dep.UpdatedAt().Equal(at) {
		t.Errorf("UpdatedAt = %v, want %v", dep.UpdatedAt(), at)
	}
}

func TestReconstituteValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *deployment.Attributes)
	}{
		{"invalid id", func(a *deployment.Attributes) { a.ID = "nope" }},
		{"missing app", func(a *deployment.Attributes) { a.AppID = " " }},
		{"invalid environment", func(a *deployment.Attributes) { a.Environment = "qa" }},
		{"invalid status", func(a *deployment.Attributes) { a.Status = "building" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAttributes("pending")
			tt.mutate(&a)
			if _, err := deployment.Reconstitute(a); err == nil {
				t.Error("Reconstitute() expected error")
			}
		})
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	a := newAttributes("pending")
	a.DomainName = strPtr("a.example.com")
	a.CICDSetup = deployment.SetupDescriptor{"provider": "github-actions"}
	dep, _ := deployment.Reconstitute(a)

	clone := dep.Clone()
	_ = clone.Apply(deployment.Changes{DomainName: strPtr("b.example.com"), UpdatedAt: time.Now()})

	if *dep.DomainName() != "a.example.com" {
		t.Errorf("original DomainName changed to %v", *dep.DomainName())
	}
	setup := dep.CICDSetup()
	setup["provider"] = "circleci"
	if dep.CICDSetup()["provider"] != "github-actions" {
		t.Error("CICDSetup getter should return a copy")
	}
}
