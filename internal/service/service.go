// Package service runs each workflow action as one storage transaction and announces the
// committed result on the event bus.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/moldtrack/internal/evaluation"
	"github.com/julianstephens/moldtrack/internal/events"
	"github.com/julianstephens/moldtrack/internal/lifecycle"
	"github.com/julianstephens/moldtrack/internal/logger"
	"github.com/julianstephens/moldtrack/internal/models"
	"github.com/julianstephens/moldtrack/internal/storage"
)

type Service struct {
	store      storage.Provider
	engine     *lifecycle.Engine
	aggregator *evaluation.Aggregator
	locks      *lifecycle.MachineLocks
	publisher  events.Publisher
	now        func() time.Time
	newID      func() string
}

type Option func(*Service)

// WithClock sets the time source for every timestamp the service writes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator sets the generator for new entity ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMachineLocks shares per-machine locks between services in one process.
func WithMachineLocks(l *lifecycle.MachineLocks) Option {
	return func(s *Service) { s.locks = l }
}

func New(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:     store,
		locks:     lifecycle.NewMachineLocks(),
		publisher: events.Nop{},
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = lifecycle.NewEngine(lifecycle.WithClock(s.now), lifecycle.WithIDGenerator(s.newID))
	s.aggregator = evaluation.New(s.now)
	return s
}

func (s *Service) Store() storage.Provider {
	return s.store
}

// ResolveActor looks the acting person up in the personnel registry.
func (s *Service) ResolveActor(ctx context.Context, name string) (lifecycle.Actor, error) {
	var actor lifecycle.Actor
	err := s.store.View(ctx, func(tx storage.Tx) error {
		p, err := tx.GetPersonnelByName(name)
		if err != nil {
			return err
		}
		actor = lifecycle.NewActor(p)
		return nil
	})
	return actor, err
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	e.HappenedAt = s.now().Unix()
	if err := s.publisher.Publish(ctx, e); err != nil {
		logger.Warn("Failed to publish event", "type", e.Type, "operation", e.OperationID, "error", err)
	}
}

func operationEvent(t events.Type, task models.Task, op models.Operation, actor lifecycle.Actor) events.Event {
	return events.Event{
		Type:        t,
		JobID:       task.JobID,
		TaskID:      task.ID,
		OperationID: op.ID,
		Actor:       actor.Name,
		Status:      string(op.Status),
		Progress:    op.ProgressPercentage,
	}
}
