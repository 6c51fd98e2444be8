package deployment

import (
	"appdeck-core/internal/domain/events"
)

// Event types
const (
	EventTypeDeploymentCreated   = "deployment.created"
	EventTypeDeploymentTriggered = "deployment.triggered"
	EventTypeDeploymentCompleted = "deployment.completed"
)

// Topic is the notification topic for an app's deployments
func Topic(appID AppID) string {
	return "app:" + appID.String()
}

// DeploymentCreated is raised when a new deployment is created
type DeploymentCreated struct {
	events.BaseEvent
	DeploymentID string
	AppID        string
	Environment  string
}

func NewDeploymentCreated(d *Deployment) *DeploymentCreated {
	return &DeploymentCreated{
		BaseEvent:    events.NewBaseEvent(EventTypeDeploymentCreated, d.ID().String(), Topic(d.AppID())),
		DeploymentID: d.ID().String(),
		AppID:        d.AppID().String(),
		Environment:  d.Environment().String(),
	}
}

// DeploymentTriggered is raised when a deployment is reset to pending
type DeploymentTriggered struct {
	events.BaseEvent
	DeploymentID string
	AppID        string
}

func NewDeploymentTriggered(d *Deployment) *DeploymentTriggered {
	return &DeploymentTriggered{
		BaseEvent:    events.NewBaseEvent(EventTypeDeploymentTriggered, d.ID().String(), Topic(d.AppID())),
		DeploymentID: d.ID().String(),
		AppID:        d.AppID().String(),
	}
}

// DeploymentCompleted is raised when the delayed completion marks a deployment deployed
type DeploymentCompleted struct {
	events.BaseEvent
	DeploymentID string
	AppID        string
}

func NewDeploymentCompleted(d *Deployment) *DeploymentCompleted {
	return &DeploymentCompleted{
		BaseEvent:    events.NewBaseEvent(EventTypeDeploymentCompleted, d.ID().String(), Topic(d.AppID())),
		DeploymentID: d.ID().String(),
		AppID:        d.AppID().String(),
	}
}
