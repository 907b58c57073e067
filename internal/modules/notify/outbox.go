package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TopicOrderCreated       = "order_created"
	TopicOrderStatusChanged = "order_status_changed"
)

// OutboxEvent is written in the caller's flow and delivered later by the
// dispatcher, so notification transport can never fail a checkout or a
// status change.
type OutboxEvent struct {
	ID        string `gorm:"primaryKey"`
	Topic     string
	OrderID   string
	Payload   []byte `gorm:"type:json"`
	CreatedAt time.Time
	SentAt    *time.Time
}

func (OutboxEvent) TableName() string { return "outbox_events" }

type Outbox struct{ db *gorm.DB }

func NewOutbox(db *gorm.DB) *Outbox { return &Outbox{db: db} }

func (o *Outbox) Enqueue(ctx context.Context, topic, orderID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ev := OutboxEvent{
		ID:        uuid.NewString(),
		Topic:     topic,
		OrderID:   orderID,
		Payload:   data,
		CreatedAt: time.Now(),
	}
	return o.db.WithContext(ctx).Create(&ev).Error
}

func (o *Outbox) FetchPending(ctx context.Context, limit int) ([]OutboxEvent, error) {
	var out []OutboxEvent
	err := o.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	now := time.Now()
	return o.db.WithContext(ctx).Model(&OutboxEvent{}).
		Where("id = ?", id).
		Update("sent_at", now).Error
}
