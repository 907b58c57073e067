package orders

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) InsertOrder(ctx context.Context, o *Order) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		var me *mysql.MySQLError
		// 1062: duplicate key — a retry reused its idempotency key
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrDuplicateRequest
		}
		return err
	}
	return nil
}

func (r *Repo) InsertItems(ctx context.Context, items []OrderItem) error {
	if len(items) == 0 {
		return ErrEmptyOrder
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *Repo) SetCheckoutState(ctx context.Context, orderID string, state CheckoutState) error {
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"checkout_state": state, "updated_at": time.Now()}).Error
}

// DeleteNeverCommitted removes the header and items of an order whose
// checkout never allocated stock. Orders past that point are never
// hard-deleted; the checkout_state guard keeps this compensation from
// touching one.
func (r *Repo) DeleteNeverCommitted(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&OrderItem{}, "order_id = ?", orderID).Error; err != nil {
			return err
		}
		return tx.Delete(&Order{}, "id = ? AND checkout_state IN ?", orderID,
			[]CheckoutState{CheckoutItemsPending, CheckoutStockPending}).Error
	})
}

func (r *Repo) GetWithItems(ctx context.Context, id string) (Order, []OrderItem, error) {
	var o Order
	if err := r.db.WithContext(ctx).
		First(&o, "id = ? AND checkout_state = ?", id, CheckoutComplete).Error; err != nil {
		return Order{}, nil, err
	}
	items, err := r.ItemsByOrder(ctx, id)
	if err != nil {
		return Order{}, nil, err
	}
	return o, items, nil
}

func (r *Repo) ItemsByOrder(ctx context.Context, orderID string) ([]OrderItem, error) {
	var items []OrderItem
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&items, "order_id = ?", orderID).Error
	return items, err
}

// MaxListLimit caps the page size; the handler clamps to the same bound so
// the pagination block always describes the page actually served.
const MaxListLimit = 100

type ListParams struct {
	UserID  string // scope to an owner (client listings)
	BrandID string // scope to a brand (manager listings)
	Status  string // optional filter
	Page    int
	Limit   int
}

type ListItem struct {
	Order     Order
	ItemCount int
}

type ListResult struct {
	Items []ListItem
	Total int64
}

func (r *Repo) List(ctx context.Context, in ListParams) (ListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	q := r.db.WithContext(ctx).Model(&Order{}).
		Where("checkout_state = ?", CheckoutComplete)
	if in.UserID != "" {
		q = q.Where("user_id = ?", in.UserID)
	}
	if in.BrandID != "" {
		q = q.Where("brand_id = ?", in.BrandID)
	}
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult{}, err
	}

	var rows []Order
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error; err != nil {
		return ListResult{}, err
	}

	items := make([]ListItem, len(rows))
	for i, o := range rows {
		var count int64
		if err := r.db.WithContext(ctx).Model(&OrderItem{}).
			Where("order_id = ?", o.ID).Count(&count).Error; err != nil {
			count = 0
		}
		items[i] = ListItem{Order: o, ItemCount: int(count)}
	}
	return ListResult{Items: items, Total: total}, nil
}

// ApplyTransition flips the status with an optimistic guard on the previous
// one and writes the audit event in the same transaction. Returns false when
// another request moved the order first.
func (r *Repo) ApplyTransition(ctx context.Context, ev OrderEvent, deliveredAt *time.Time) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     ev.ToStatus,
			"updated_at": ev.CreatedAt,
		}
		if deliveredAt != nil {
			updates["delivered_at"] = *deliveredAt
		}
		res := tx.Model(&Order{}).
			Where("id = ? AND status = ?", ev.OrderID, ev.FromStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		applied = true
		return tx.Create(&ev).Error
	})
	return applied, err
}

// StuckCheckouts returns orders that started checkout before the cutoff and
// never reached complete.
func (r *Repo) StuckCheckouts(ctx context.Context, before time.Time, limit int) ([]Order, error) {
	var out []Order
	err := r.db.WithContext(ctx).
		Where("checkout_state <> ? AND created_at < ?", CheckoutComplete, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
