// Package notify fans committed workflow outcomes out to the participants.
// Notifications are sent after commit and never affect the outcome of the
// operation that produced them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Type       string      `json:"type"` // e.g. project.accepted, work.payment_submitted
	ProjectID  uuid.UUID   `json:"project_id"`
	WorkID     *uuid.UUID  `json:"work_id,omitempty"`
	Status     string      `json:"status,omitempty"`
	Message    string      `json:"message"` // toast text
	ActorID    uuid.UUID   `json:"actor_id"`
	Recipients []uuid.UUID `json:"-"`
	Data       any         `json:"data,omitempty"`
	At         time.Time   `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		n.Notify(ctx, ev)
	}
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// Recorder keeps every event; handy in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
