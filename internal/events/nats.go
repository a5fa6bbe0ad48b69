package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/julianstephens/moldtrack/internal/constants"
	"github.com/julianstephens/moldtrack/internal/logger"
)

// Bus publishes events to NATS under subject.<type>.
type Bus struct {
	nc      *nats.Conn
	subject string
}

func Connect(url, subject string) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.Name(constants.AppName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(constants.NATSReconnectWait),
		nats.Timeout(constants.NATSConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return NewBus(nc, subject), nil
}

// NewBus wraps an existing connection.
func NewBus(nc *nats.Conn, subject string) *Bus {
	if subject == "" {
		subject = constants.DefaultEventSubject
	}
	return &Bus{nc: nc, subject: subject}
}

func (b *Bus) Subject(t Type) string {
	return b.subject + "." + string(t)
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.nc.Publish(b.Subject(e.Type), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Type, err)
	}
	return nil
}

// Subscribe receives every event type under the bus subject.
func (b *Bus) Subscribe(handler func(Event)) (func(), error) {
	sub, err := b.nc.Subscribe(b.subject+".>", func(msg *nats.Msg) {
		e, err := Unmarshal(msg.Data)
		if err != nil {
			logger.Warn("Dropping malformed event", "subject", msg.Subject, "error", err)
			return
		}
		handler(e)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close flushes pending publishes and drains the connection.
func (b *Bus) Close() {
	if b.nc == nil {
		return
	}
	if err := b.nc.FlushTimeout(constants.NATSFlushTimeout); err != nil {
		logger.Warn("Failed to flush events", "error", err)
	}
	_ = b.nc.Drain()
}
