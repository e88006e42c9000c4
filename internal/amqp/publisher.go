package amqp

import (
	"context"
	"log/slog"
	"sync/atomic"

	"lori/internal/core"
)

// EventPublisher is the outbound side of Client.
type EventPublisher interface {
	PublishTabEvent(ctx context.Context, ev *TabEvent) error
}

// Publisher forwards every tab snapshot to the broker. Failures are logged
// and dropped so a missing broker never blocks the UI.
type Publisher struct {
	pub    EventPublisher
	seq    atomic.Uint64
	logger *slog.Logger
}

func NewPublisher(pub EventPublisher, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{pub: pub, logger: logger}
}

func (p *Publisher) Snapshot(ctx context.Context, items []core.Item) {
	ev := NewTabEvent(p.seq.Add(1), items)
	if err := p.pub.PublishTabEvent(ctx, ev); err != nil {
		p.logger.WarnContext(ctx, "Tab event not published",
			"component", "amqp",
			"sequence", ev.Sequence,
			"error", err)
	}
}
