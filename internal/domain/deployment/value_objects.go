package deployment

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultHostingProvider is applied when a deployment is created without one
const DefaultHostingProvider = "vercel"

// DeploymentID is a value object representing a deployment's unique identifier
type DeploymentID struct {
	value uuid.UUID
}

// NewDeploymentID creates a new DeploymentID
func NewDeploymentID() DeploymentID {
	return DeploymentID{value: uuid.New()}
}

// ParseDeploymentID parses a string into a DeploymentID
func ParseDeploymentID(id string) (DeploymentID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return DeploymentID{}, fmt.Errorf("%w: %v", ErrInvalidDeploymentID, err)
	}
	return DeploymentID{value: uid}, nil
}

func (id DeploymentID) String() string {
	return id.value.String()
}

func (id DeploymentID) UUID() uuid.UUID {
	return id.value
}

func (id DeploymentID) Equals(other DeploymentID) bool {
	return id.value == other.value
}

func (id DeploymentID) IsZero() bool {
	return id.value == uuid.Nil
}

// AppID identifies the app that owns a deployment. It is opaque to this package.
type AppID string

// NewAppID trims the raw identifier. An empty AppID means "not bound".
func NewAppID(raw string) AppID {
	return AppID(strings.TrimSpace(raw))
}

func (a AppID) String() string {
	return string(a)
}

func (a AppID) IsZero() bool {
	return a == ""
}

// Environment is the target context of a deployment
type Environment string

const (
	EnvironmentPreview    Environment = "preview"
	EnvironmentStaging    Environment = "staging"
	EnvironmentProduction Environment = "production"
)

// ParseEnvironment validates an environment name, case-insensitively
func ParseEnvironment(raw string) (Environment, error) {
	env := Environment(strings.ToLower(strings.TrimSpace(raw)))
	if !env.IsValid() {
		return "", fmt.Errorf("%w: %q (must be one of: preview, staging, production)", ErrInvalidEnvironment, raw)
	}
	return env, nil
}

func (e Environment) String() string {
	return string(e)
}

func (e Environment) IsValid() bool {
	switch e {
	case EnvironmentPreview, EnvironmentStaging, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// DeploymentStatus represents the status of a deployment
type DeploymentStatus string

const (
	StatusPending  DeploymentStatus = "pending"
	StatusDeployed DeploymentStatus = "deployed"
	StatusFailed   DeploymentStatus = "failed"
)

// NewDeploymentStatus creates a new DeploymentStatus with validation
func NewDeploymentStatus(status string) (DeploymentStatus, error) {
	s := DeploymentStatus(strings.ToLower(strings.TrimSpace(status)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q (must be one of: pending, deployed, failed)", ErrInvalidStatus, status)
	}
	return s, nil
}

func (s DeploymentStatus) String() string {
	return string(s)
}

func (s DeploymentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusDeployed, StatusFailed:
		return true
	default:
		return false
	}
}

func (s DeploymentStatus) IsTerminal() bool {
	return s == StatusDeployed || s == StatusFailed
}

// SetupDescriptor is a free-form JSON object describing CI/CD or DNS setup.
// It is stored as JSONB.
type SetupDescriptor map[string]any

// Value implements driver.Valuer
func (d SetupDescriptor) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode setup descriptor: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner
func (d *SetupDescriptor) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SetupDescriptor", src)
	}
	if len(raw) == 0 {
		*d = nil
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode setup descriptor: %w", err)
	}
	*d = out
	return nil
}

// Clone returns a shallow copy so cached values never alias caller maps.
func (d SetupDescriptor) Clone() SetupDescriptor {
	if d == nil {
		return nil
	}
	out := make(SetupDescriptor, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
