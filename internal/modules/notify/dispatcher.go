package notify

import (
	"context"
	"log/slog"
	"time"
)

// Sender hands an event to the notification collaborator. The default
// implementation just logs; the real delivery service subscribes downstream.
type Sender interface {
	Send(ctx context.Context, ev OutboxEvent) error
}

type LogSender struct{ Log *slog.Logger }

func (s LogSender) Send(_ context.Context, ev OutboxEvent) error {
	s.Log.Info("notification event",
		slog.String("topic", ev.Topic),
		slog.String("order_id", ev.OrderID),
		slog.String("event_id", ev.ID))
	return nil
}

type Dispatcher struct {
	outbox   *Outbox
	sender   Sender
	log      *slog.Logger
	interval time.Duration
}

func NewDispatcher(outbox *Outbox, sender Sender, log *slog.Logger, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Dispatcher{outbox: outbox, sender: sender, log: log, interval: interval}
}

// Run drains unsent events until ctx is cancelled. A failed send stays
// pending and is retried next tick.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	events, err := d.outbox.FetchPending(ctx, 100)
	if err != nil {
		d.log.Error("outbox fetch failed", slog.Any("err", err))
		return
	}
	for _, ev := range events {
		if err := d.sender.Send(ctx, ev); err != nil {
			d.log.Warn("notification send failed",
				slog.String("event_id", ev.ID),
				slog.String("topic", ev.Topic),
				slog.Any("err", err))
			continue
		}
		if err := d.outbox.MarkSent(ctx, ev.ID); err != nil {
			d.log.Error("outbox mark sent failed",
				slog.String("event_id", ev.ID), slog.Any("err", err))
		}
	}
}
