package repo

import (
	"appdeck-core/internal/domain/events"
)

// Event types
const (
	EventTypeSnapshotFetched = "repository.snapshot_fetched"
)

// SnapshotFetchedEvent is raised when a fetch finished without a transport failure
type SnapshotFetchedEvent struct {
	events.BaseEvent
	URL          string
	FullName     string
	HasInfo      bool
	CommitCount  int
	ReleaseCount int
}

// NewSnapshotFetchedEvent creates a new SnapshotFetchedEvent
func NewSnapshotFetchedEvent(url string, ref RepoRef, s Snapshot) *SnapshotFetchedEvent {
	return &SnapshotFetchedEvent{
		BaseEvent:    events.NewBaseEvent(EventTypeSnapshotFetched, ref.FullName(), Topic(url)),
		URL:          url,
		FullName:     ref.FullName(),
		HasInfo:      s.Info != nil,
		CommitCount:  len(s.Commits),
		ReleaseCount: len(s.Releases),
	}
}
