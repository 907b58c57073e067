package projection

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Projection is the reduced order view the live UI reads.
type Projection struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

type Sync struct {
	writer  Writer
	log     *slog.Logger
	timeout time.Duration
}

func NewSync(writer Writer, log *slog.Logger, timeout time.Duration) *Sync {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Sync{writer: writer, log: log, timeout: timeout}
}

// Upsert mirrors the order into the read store. Best-effort: failures are
// logged and never reach the caller, so they can never roll back the write
// that triggered them.
func (s *Sync) Upsert(ctx context.Context, p Projection) {
	payload, err := json.Marshal(p)
	if err != nil {
		s.log.Error("projection marshal failed",
			slog.String("order_id", p.OrderID), slog.Any("err", err))
		return
	}

	// Detached from the request context: a cancelled request should not be
	// able to abort the mirror write midway.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.writer.Set(wctx, "order:"+p.OrderID, payload); err != nil {
		s.log.Warn("projection sync failed",
			slog.String("order_id", p.OrderID),
			slog.String("status", p.Status),
			slog.Any("err", err))
	}
}
