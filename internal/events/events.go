// Package events announces record changes so other open dashboards know to
// refetch. Delivery is best effort; a failed publish never undoes a write.
package events

import (
	"context"
	"time"
)

// Action is the kind of change made to a record.
type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
	Deleted Action = "deleted"
)

// Event describes one successful write.
type Event struct {
	Collection string    `json:"collection"`
	Action     Action    `json:"action"`
	ID         string    `json:"id"`
	Actor      string    `json:"actor,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher delivers change events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}

// Topic returns the topic an event is published on: prefix/collection/action.
func Topic(prefix string, event Event) string {
	if prefix == "" {
		return event.Collection + "/" + string(event.Action)
	}
	return prefix + "/" + event.Collection + "/" + string(event.Action)
}
