package orders

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return Status(s), true
	default:
		return "", false
	}
}

// CheckoutState tracks how far the multi-step checkout write got. Orders that
// never reach complete are invisible to listings and get repaired by the
// reconciler. The allocated marker is what lets the reconciler tell a checkout
// that holds stock apart from one that never took any.
type CheckoutState string

const (
	CheckoutItemsPending CheckoutState = "items_pending" // header written, items not yet
	CheckoutStockPending CheckoutState = "stock_pending" // items written, allocation in flight
	CheckoutAllocated    CheckoutState = "allocated"     // stock taken, final bookkeeping pending
	CheckoutComplete     CheckoutState = "complete"
)

type ShippingAddress struct {
	Name       string `gorm:"column:ship_name"`
	Phone      string `gorm:"column:ship_phone"`
	Street     string `gorm:"column:ship_street"`
	City       string `gorm:"column:ship_city"`
	State      string `gorm:"column:ship_state"`
	PostalCode string `gorm:"column:ship_postal_code"`
	Country    string `gorm:"column:ship_country"`
}

// Order is written once at checkout and never hard-deleted afterwards; the
// only mutable header fields are status and delivered_at.
type Order struct {
	ID            string `gorm:"primaryKey"`
	UserID        string
	BrandID       string
	Status        Status
	CheckoutState CheckoutState

	SubtotalCents int64
	ShippingCents int64
	DiscountCents int64
	TotalCents    int64
	Currency      string

	Address ShippingAddress `gorm:"embedded"`

	PromoCode      *string
	Note           *string
	IdempotencyKey *string `gorm:"uniqueIndex"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeliveredAt *time.Time
}

// OrderItem carries the product name and variant descriptor as they were at
// order time; later catalog edits never reach back into it.
type OrderItem struct {
	ID             string `gorm:"primaryKey"`
	OrderID        string
	ProductID      string
	VariantID      *string
	ProductName    string
	VariantLabel   string
	Quantity       int
	UnitPriceCents int64
	LineTotalCents int64
	CreatedAt      time.Time
}

// OrderEvent is the audit row written for every status transition.
type OrderEvent struct {
	ID         string `gorm:"primaryKey"`
	OrderID    string
	ActorID    string
	ActorRole  string
	FromStatus Status
	ToStatus   Status
	Note       *string
	CreatedAt  time.Time
}

func (Order) TableName() string      { return "orders" }
func (OrderItem) TableName() string  { return "order_items" }
func (OrderEvent) TableName() string { return "order_events" }
