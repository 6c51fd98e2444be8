package notification

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"appdeck-core/internal/domain/events"
)

// AllTopics subscribes to every topic
const AllTopics = "*"

// Subscriber is one live listener on a topic
type Subscriber struct {
	ID    string
	Topic string
	C     chan Notification
}

// Hub fans notifications out to subscribers by topic
type Hub struct {
	subscribers map[string][]*Subscriber // topic -> subscribers
	mu          sync.RWMutex
	seq         atomic.Uint64
	log         *logrus.Entry
}

// NewHub creates a new notification hub
func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		subscribers: make(map[string][]*Subscriber),
		log:         log,
	}
}

// Subscribe registers a listener on topic, or AllTopics
func (h *Hub) Subscribe(topic string, buffer int) *Subscriber {
	sub := &Subscriber{
		ID:    fmt.Sprintf("sub_%d", h.seq.Add(1)),
		Topic: topic,
		C:     make(chan Notification, buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[topic] = append(h.subscribers[topic], sub)
	return sub
}

// Unsubscribe removes a listener and closes its channel
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[sub.Topic]
	for i, s := range subs {
		if s.ID == sub.ID {
			close(s.C)
			h.subscribers[sub.Topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}

	if len(h.subscribers[sub.Topic]) == 0 {
		delete(h.subscribers, sub.Topic)
	}
}

// Publish logs n and delivers it to the topic's subscribers and the
// AllTopics subscribers. It never blocks: a subscriber whose buffer is full
// misses the notification.
func (h *Hub) Publish(n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now().UTC()
	}
	h.logNotification(n)

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := append([]*Subscriber{}, h.subscribers[n.Topic]...)
	if n.Topic != AllTopics {
		targets = append(targets, h.subscribers[AllTopics]...)
	}

	for _, sub := range targets {
		select {
		case sub.C <- n:
		default:
			h.log.WithFields(logrus.Fields{"topic": n.Topic, "subscriber": sub.ID}).Debug("dropped notification for slow subscriber")
		}
	}
}

func (h *Hub) logNotification(n Notification) {
	entry := h.log.WithFields(logrus.Fields{"topic": n.Topic, "level": n.Level})
	switch n.Level {
	case LevelError:
		entry.Warn(n.Message)
	case LevelEvent:
		entry.WithField("type", n.Type).Debug(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// SubscriberCount returns the number of listeners on topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

// For returns a Notifier that publishes on topic
func (h *Hub) For(topic string) Notifier {
	return &topicNotifier{hub: h, topic: topic}
}

// ForwardEvents is a dispatcher handler that republishes domain events
func (h *Hub) ForwardEvents(_ context.Context, event events.DomainEvent) error {
	h.Publish(Notification{
		Topic:   event.Topic(),
		Level:   LevelEvent,
		Message: event.EventType(),
		Type:    event.EventType(),
		Data:    event,
		Time:    event.OccurredAt(),
	})
	return nil
}

type topicNotifier struct {
	hub   *Hub
	topic string
}

func (n *topicNotifier) NotifySuccess(message string) {
	n.hub.Publish(Notification{Topic: n.topic, Level: LevelSuccess, Message: message})
}

func (n *topicNotifier) NotifyError(message string) {
	n.hub.Publish(Notification{Topic: n.topic, Level: LevelError, Message: message})
}
