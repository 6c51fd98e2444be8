package notification

import (
	"sync"
	"time"
)

// Level classifies a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelEvent   Level = "event"
)

// Notification is a user-facing message routed by topic
type Notification struct {
	Topic   string    `json:"topic"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Type    string    `json:"type,omitempty"`
	Data    any       `json:"data,omitempty"`
	Time    time.Time `json:"time"`
}

// Notifier emits transient success and failure messages. Calls never block for
// long and never fail.
type Notifier interface {
	NotifySuccess(message string)
	NotifyError(message string)
}

// Nop discards every notification
type Nop struct{}

func (Nop) NotifySuccess(string) {}
func (Nop) NotifyError(string)   {}

// Recorder keeps every notification in memory
type Recorder struct {
	mu      sync.Mutex
	entries []Notification
}

func (r *Recorder) NotifySuccess(message string) {
	r.record(LevelSuccess, message)
}

func (r *Recorder) NotifyError(message string) {
	r.record(LevelError, message)
}

func (r *Recorder) record(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Notification{Level: level, Message: message, Time: time.Now().UTC()})
}

// Entries returns a copy of the recorded notifications
func (r *Recorder) Entries() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.entries...)
}

// Messages returns the recorded messages at level
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, n := range r.Entries() {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}
