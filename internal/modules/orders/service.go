package orders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"labrand.store/app/internal/modules/checkout"
	"labrand.store/app/internal/modules/notify"
	"labrand.store/app/internal/modules/pricing"
	"labrand.store/app/internal/modules/projection"
	"labrand.store/app/internal/modules/promo"
	"labrand.store/app/internal/shared/auth"
	"labrand.store/app/internal/shared/money"
)

// Shipping is a flat fee, currently free. Kept as a named constant so the
// totals math reads the same once it stops being zero.
const shippingFlatCents int64 = 0

// Store is the order persistence surface; satisfied by Repo.
type Store interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, items []OrderItem) error
	SetCheckoutState(ctx context.Context, orderID string, state CheckoutState) error
	DeleteNeverCommitted(ctx context.Context, orderID string) error
	GetWithItems(ctx context.Context, id string) (Order, []OrderItem, error)
	ItemsByOrder(ctx context.Context, orderID string) ([]OrderItem, error)
	List(ctx context.Context, in ListParams) (ListResult, error)
	ApplyTransition(ctx context.Context, ev OrderEvent, deliveredAt *time.Time) (bool, error)
	StuckCheckouts(ctx context.Context, before time.Time, limit int) ([]Order, error)
}

type Pricer interface {
	Quote(ctx context.Context, items []pricing.Item) (pricing.Quote, error)
}

type PromoValidator interface {
	Check(ctx context.Context, code string, subtotalCents int64) (promo.Result, error)
	Redeem(ctx context.Context, code string) error
	Unredeem(ctx context.Context, code string) error
}

type StockAllocator interface {
	Allocate(ctx context.Context, lines []checkout.StockLine) error
	Release(ctx context.Context, lines []checkout.StockLine) error
}

type ProjectionSync interface {
	Upsert(ctx context.Context, p projection.Projection)
}

type Notifier interface {
	Enqueue(ctx context.Context, topic, orderID string, payload any) error
}

type Service struct {
	store      Store
	pricer     Pricer
	promos     PromoValidator
	stock      StockAllocator
	projection ProjectionSync
	notifier   Notifier
	log        *slog.Logger
	dbTimeout  time.Duration
	now        func() time.Time
}

func NewService(store Store, pricer Pricer, promos PromoValidator, stock StockAllocator,
	proj ProjectionSync, notifier Notifier, log *slog.Logger, dbTimeout time.Duration) *Service {
	if dbTimeout <= 0 {
		dbTimeout = 3 * time.Second
	}
	return &Service{
		store:      store,
		pricer:     pricer,
		promos:     promos,
		stock:      stock,
		projection: proj,
		notifier:   notifier,
		log:        log,
		dbTimeout:  dbTimeout,
		now:        time.Now,
	}
}

type CreateInput struct {
	UserID         string
	Items          []pricing.Item
	Address        ShippingAddress
	PromoCode      string
	Note           string
	IdempotencyKey string
}

type OrderWithItems struct {
	Order Order
	Items []OrderItem
}

// Create runs the checkout pipeline: price, single-brand check, promo,
// totals, header, items, promo redeem, stock. Each write step advances
// checkout_state; on failure the steps already taken are compensated in
// reverse. The projection and the notification event come last and are
// best-effort.
func (s *Service) Create(ctx context.Context, in CreateInput) (OrderWithItems, error) {
	if len(in.Items) == 0 {
		return OrderWithItems{}, ErrEmptyOrder
	}

	quote, err := s.quote(ctx, in.Items)
	if err != nil {
		return OrderWithItems{}, err
	}

	brandID := quote.Lines[0].BrandID
	for _, ln := range quote.Lines {
		if ln.BrandID != brandID {
			return OrderWithItems{}, ErrMixedBrands
		}
	}

	var discount int64
	var promoCode *string
	if in.PromoCode != "" {
		res, err := s.checkPromo(ctx, in.PromoCode, quote.SubtotalCents)
		if err != nil {
			return OrderWithItems{}, err
		}
		discount = res.DiscountCents
		promoCode = &res.Code
	}

	now := s.now()
	o := Order{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		BrandID:       brandID,
		Status:        StatusPending,
		CheckoutState: CheckoutItemsPending,
		SubtotalCents: quote.SubtotalCents,
		ShippingCents: shippingFlatCents,
		DiscountCents: discount,
		TotalCents:    quote.SubtotalCents - discount + shippingFlatCents,
		Currency:      quote.Currency,
		Address:       in.Address,
		PromoCode:     promoCode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Note != "" {
		note := in.Note
		o.Note = &note
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		o.IdempotencyKey = &key
	}

	items := make([]OrderItem, len(quote.Lines))
	stockLines := make([]checkout.StockLine, len(quote.Lines))
	for i, ln := range quote.Lines {
		items[i] = OrderItem{
			ID:             uuid.NewString(),
			OrderID:        o.ID,
			ProductID:      ln.ProductID,
			ProductName:    ln.ProductName,
			VariantLabel:   ln.VariantLabel,
			Quantity:       ln.Quantity,
			UnitPriceCents: ln.UnitCents,
			LineTotalCents: ln.LineCents,
			CreatedAt:      now,
		}
		if ln.VariantID != "" {
			vid := ln.VariantID
			items[i].VariantID = &vid
		}
		stockLines[i] = checkout.StockLine{
			ProductID:   ln.ProductID,
			VariantID:   ln.VariantID,
			ProductName: ln.ProductName,
			Qty:         ln.Quantity,
		}
	}

	// Step 1: promo redemption. Taking the use before the header is written
	// keeps the saga unambiguous: any persisted order carrying a promo code
	// is known to have redeemed it, so compensation never has to guess.
	if promoCode != nil {
		if err := s.redeemPromo(ctx, *promoCode); err != nil {
			return OrderWithItems{}, err
		}
	}

	// Step 2: header
	if err := s.insertOrder(ctx, &o); err != nil {
		if promoCode != nil {
			s.compensatePromo(ctx, *promoCode)
		}
		return OrderWithItems{}, err
	}

	// Step 3: items
	if err := s.insertItems(ctx, items); err != nil {
		s.unwind(ctx, o)
		return OrderWithItems{}, err
	}
	if err := s.setState(ctx, o.ID, CheckoutStockPending); err != nil {
		s.unwind(ctx, o)
		return OrderWithItems{}, err
	}

	// Step 4: stock; the allocator compensates its own partial decrements
	if err := s.allocate(ctx, stockLines); err != nil {
		s.unwind(ctx, o)
		return OrderWithItems{}, err
	}

	// The allocated marker must be durable before success is reported: a row
	// left in stock_pending gives the reconciler no way to tell whether stock
	// was taken. If the marker cannot be written, hand the stock back and
	// unwind rather than report an order nobody can account for.
	if err := s.setState(ctx, o.ID, CheckoutAllocated); err != nil {
		s.release(ctx, stockLines)
		s.unwind(ctx, o)
		return OrderWithItems{}, err
	}
	o.CheckoutState = CheckoutAllocated

	if err := s.setState(ctx, o.ID, CheckoutComplete); err != nil {
		// Stock is held and the allocated marker is durable; the reconciler
		// finishes this forward. The order stays, and stays sellable.
		s.log.Error("checkout state finalize failed, left for reconciler",
			slog.String("order_id", o.ID), slog.Any("err", err))
	} else {
		o.CheckoutState = CheckoutComplete
	}

	s.projection.Upsert(ctx, s.projectionOf(o))
	s.enqueue(ctx, o.ID, orderCreatedPayload(o))

	return OrderWithItems{Order: o, Items: items}, nil
}

// Get returns one order with items, scope-checked for the actor.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id string) (OrderWithItems, error) {
	o, items, err := s.getWithItems(ctx, id)
	if err != nil {
		return OrderWithItems{}, err
	}
	if err := scopeCheck(actor, o); err != nil {
		return OrderWithItems{}, err
	}
	return OrderWithItems{Order: o, Items: items}, nil
}

// List is role-filtered: clients see their own orders, brand managers their
// brand's, admins everything.
func (s *Service) List(ctx context.Context, actor auth.Identity, status string, page, limit int) (ListResult, error) {
	params := ListParams{Status: status, Page: page, Limit: limit}
	switch actor.Role {
	case auth.RoleClient:
		params.UserID = actor.UserID
	case auth.RoleBrandManager:
		params.BrandID = actor.BrandID
	case auth.RoleAdmin:
	}

	sctx, cancel := s.step(ctx)
	defer cancel()
	return s.store.List(sctx, params)
}

// UpdateStatus validates scope and the role transition table, applies the
// transition with an optimistic guard, restocks cancelled unshipped orders,
// then mirrors and notifies.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Identity, orderID string, to Status, note string) (Order, error) {
	o, items, err := s.getWithItems(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if err := scopeCheck(actor, o); err != nil {
		return Order{}, err
	}
	if !Allowed(actor.Role, o.Status, to) {
		return Order{}, ErrInvalidTransition
	}

	now := s.now()
	ev := OrderEvent{
		ID:         uuid.NewString(),
		OrderID:    o.ID,
		ActorID:    actor.UserID,
		ActorRole:  string(actor.Role),
		FromStatus: o.Status,
		ToStatus:   to,
		CreatedAt:  now,
	}
	if note != "" {
		n := note
		ev.Note = &n
	}

	var deliveredAt *time.Time
	if to == StatusDelivered {
		deliveredAt = &now
	}

	applied, err := s.applyTransition(ctx, ev, deliveredAt)
	if err != nil {
		return Order{}, err
	}
	if !applied {
		return Order{}, ErrConcurrentUpdate
	}

	from := o.Status
	o.Status = to
	o.UpdatedAt = now
	o.DeliveredAt = deliveredAt

	if to == StatusCancelled && restocksOnExit(from) {
		// Release failure is logged inside the allocator; the cancellation
		// stands either way and inventory reconciliation picks up the rest.
		_ = s.stock.Release(ctx, stockLinesOf(items))
	}

	s.projection.Upsert(ctx, s.projectionOf(o))
	s.enqueue(ctx, o.ID, statusChangedPayload(o, from, actor))

	return o, nil
}

// Cancel is the client shorthand for a cancelled transition on their own
// pending order; the lifecycle table enforces both restrictions.
func (s *Service) Cancel(ctx context.Context, actor auth.Identity, orderID string) (Order, error) {
	return s.UpdateStatus(ctx, actor, orderID, StatusCancelled, "")
}

// --- scope ---

func scopeCheck(actor auth.Identity, o Order) error {
	switch actor.Role {
	case auth.RoleClient:
		if o.UserID != actor.UserID {
			return ErrOutOfScope
		}
	case auth.RoleBrandManager:
		if o.BrandID != actor.BrandID {
			return ErrOutOfScope
		}
	case auth.RoleAdmin:
	default:
		return ErrOutOfScope
	}
	return nil
}

// --- bounded datastore steps ---

func (s *Service) step(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.dbTimeout)
}

func (s *Service) quote(ctx context.Context, items []pricing.Item) (pricing.Quote, error) {
	sctx, cancel := s.step(ctx)
	defer cancel()
	return s.pricer.Quote(sctx, items)
}

func (s *Service) checkPromo(ctx context.Context, code string, subtotal int64) (promo.Result, error) {
	sctx, cancel := s.step(ctx)
	defer cancel()
	return s.promos.Check(sctx, code, subtotal)
}

func (s *Service) redeemPromo(ctx context.Context, code string) error {
	sctx, cancel := s.step(ctx)
	defer cancel()
	return s.promos.Redeem(sctx, code)
}

func (s *Service) insertOrder(ctx context.Context, o *Order) error {
	sctx, cancel := s.step(ctx)
	defer cancel()
	return s.store.InsertOrder(sctx, o)
}

func (s *Service) insertItems(ctx context.Context, items []OrderItem) error {
	sctx, cancel := s.step(ctx)
	defer cancel()
	return s.store.InsertItems(sctx, items)
}

func (s *Service) setState(ctx context.Context, id string, st CheckoutState) error {
	sctx, cancel := s.step(ctx)
	defer cancel()
	return s.store.SetCheckoutState(sctx, id, st)
}

func (s *Service) allocate(ctx context.Context, lines []checkout.StockLine) error {
	sctx, cancel := s.step(ctx)
	defer cancel()
	return s.stock.Allocate(sctx, lines)
}

func (s *Service) getWithItems(ctx context.Context, id string) (Order, []OrderItem, error) {
	sctx, cancel := s.step(ctx)
	defer cancel()
	return s.store.GetWithItems(sctx, id)
}

func (s *Service) applyTransition(ctx context.Context, ev OrderEvent, deliveredAt *time.Time) (bool, error) {
	sctx, cancel := s.step(ctx)
	defer cancel()
	return s.store.ApplyTransition(sctx, ev, deliveredAt)
}

// --- compensation ---

// unwind removes a never-committed order and hands the promo use back.
// Ownership rule shared with the reconciler: whoever deletes the header does
// the un-redeem. If the delete fails both are left to the reconciler, so a
// redemption is never refunded twice.
func (s *Service) unwind(ctx context.Context, o Order) {
	sctx, cancel := s.step(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.store.DeleteNeverCommitted(sctx, o.ID); err != nil {
		s.log.Error("orphaned order cleanup failed, left for reconciler",
			slog.String("order_id", o.ID), slog.Any("err", err))
		return
	}
	if o.PromoCode != nil {
		s.compensatePromo(ctx, *o.PromoCode)
	}
}

// release hands allocated stock back when the checkout cannot commit after
// the decrements already landed. Per-line failures are logged by the
// allocator.
func (s *Service) release(ctx context.Context, lines []checkout.StockLine) {
	sctx, cancel := s.step(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.stock.Release(sctx, lines); err != nil {
		s.log.Error("stock release during unwind failed", slog.Any("err", err))
	}
}

func (s *Service) compensatePromo(ctx context.Context, code string) {
	sctx, cancel := s.step(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.promos.Unredeem(sctx, code); err != nil {
		s.log.Error("promo un-redeem failed",
			slog.String("code", code), slog.Any("err", err))
	}
}

// --- side channels ---

func (s *Service) projectionOf(o Order) projection.Projection {
	return projection.Projection{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
		CreatedAt:  o.CreatedAt,
	}
}

func (s *Service) enqueue(ctx context.Context, orderID string, payload eventPayload) {
	sctx, cancel := s.step(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.notifier.Enqueue(sctx, payload.Topic, orderID, payload); err != nil {
		s.log.Warn("notification enqueue failed",
			slog.String("order_id", orderID),
			slog.String("topic", payload.Topic),
			slog.Any("err", err))
	}
}

type eventPayload struct {
	Topic      string `json:"topic"`
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	BrandID    string `json:"brand_id"`
	Status     string `json:"status"`
	FromStatus string `json:"from_status,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	ActorRole  string `json:"actor_role,omitempty"`
	TotalCents int64  `json:"total_cents"`
	Total      string `json:"total"`
}

func orderCreatedPayload(o Order) eventPayload {
	return eventPayload{
		Topic:      notify.TopicOrderCreated,
		OrderID:    o.ID,
		UserID:     o.UserID,
		BrandID:    o.BrandID,
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		Total:      money.Format(o.Currency, o.TotalCents),
	}
}

func statusChangedPayload(o Order, from Status, actor auth.Identity) eventPayload {
	return eventPayload{
		Topic:      notify.TopicOrderStatusChanged,
		OrderID:    o.ID,
		UserID:     o.UserID,
		BrandID:    o.BrandID,
		Status:     string(o.Status),
		FromStatus: string(from),
		ActorID:    actor.UserID,
		ActorRole:  string(actor.Role),
		TotalCents: o.TotalCents,
		Total:      money.Format(o.Currency, o.TotalCents),
	}
}

func stockLinesOf(items []OrderItem) []checkout.StockLine {
	lines := make([]checkout.StockLine, len(items))
	for i, it := range items {
		lines[i] = checkout.StockLine{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Qty:         it.Quantity,
		}
		if it.VariantID != nil {
			lines[i].VariantID = *it.VariantID
		}
	}
	return lines
}

// IsNotFound folds the storage-level miss into one check for handlers.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
