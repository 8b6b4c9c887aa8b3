// Package events publishes domain events about posts, comments and follows.
package events

import (
	"context"
	"time"

	"github.com/Morgoth-Ryuk/hw05-final/config"
)

const (
	PostCreated    = "post.created"
	PostUpdated    = "post.updated"
	CommentCreated = "comment.created"
	FollowCreated  = "follow.created"
	FollowDeleted  = "follow.deleted"
)

// Event is the payload written to the bus.
type Event struct {
	Type     string    `json:"type"`
	ActorID  uint      `json:"actor_id"`
	PostID   uint      `json:"post_id,omitempty"`
	AuthorID uint      `json:"author_id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher delivers events. Implementations must not block request handling for long.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// New returns a Kafka publisher when brokers are configured, otherwise Noop.
func New(cfg config.AppConfig) Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return Noop{}
	}
	return NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.Events = append(r.Events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types lists recorded event types in order.
func (r *Recorder) Types() []string {
	out := make([]string, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.Type
	}
	return out
}
