// Package events publishes operation lifecycle changes after they are committed.
package events

import (
	"context"
	"encoding/json"
	"sync"
)

type Type string

const (
	OperationAssigned   Type = "operation.assigned"
	OperationProgressed Type = "operation.progressed"
	OperationPaused     Type = "operation.paused"
	OperationReviewed   Type = "operation.reviewed"
	OperationApproved   Type = "operation.approved"
	OperationReworked   Type = "operation.reworked"
	JobCompleted        Type = "job.completed"
	GraphChanged        Type = "graph.changed"
)

// Event is the wire payload. HappenedAt is unix seconds.
type Event struct {
	Type        Type   `json:"type"`
	JobID       string `json:"job_id,omitempty"`
	TaskID      string `json:"task_id,omitempty"`
	OperationID string `json:"operation_id,omitempty"`
	Actor       string `json:"actor,omitempty"`
	Status      string `json:"status,omitempty"`
	Progress    int    `json:"progress"`
	HappenedAt  int64  `json:"happened_at"`
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// Subscriber delivers events to handler until the returned cancel func is called.
type Subscriber interface {
	Subscribe(handler func(Event)) (cancel func(), err error)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close()                               {}

// Broker fans events out to in-process subscribers.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]func(Event))}
}

func (b *Broker) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, h := range b.subs {
		h(e)
	}
	return nil
}

func (b *Broker) Subscribe(handler func(Event)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = handler
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	b.subs = make(map[int]func(Event))
	b.mu.Unlock()
}
