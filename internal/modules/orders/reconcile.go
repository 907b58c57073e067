package orders

import (
	"context"
	"log/slog"
	"time"
)

// Reconciler sweeps orders whose checkout stalled between steps and repairs
// each according to how far it got. An allocated order holds its stock and
// only misses the final bookkeeping write, so it is finished forward, never
// unwound. An items_pending order never touched stock, so its header and
// items are removed and a redeemed promo is handed back. Orders younger than
// the cutoff are skipped so a slow in-flight checkout is never repaired from
// under its own request.
//
// An order found in stock_pending sits in a crash window where some
// decrements may have landed without a record of which. Neither deleting nor
// releasing is safe there; those rows are logged loudly for an inventory
// audit and left alone.
type Reconciler struct {
	store    Store
	promos   PromoValidator
	log      *slog.Logger
	after    time.Duration
	interval time.Duration
}

func NewReconciler(store Store, promos PromoValidator, log *slog.Logger, after, interval time.Duration) *Reconciler {
	if after <= 0 {
		after = 10 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{store: store, promos: promos, log: log, after: after, interval: interval}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one pass; exported so an operator can trigger it directly.
func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.after)
	stuck, err := r.store.StuckCheckouts(ctx, cutoff, 50)
	if err != nil {
		r.log.Error("reconcile: stuck checkout scan failed", slog.Any("err", err))
		return
	}

	for _, o := range stuck {
		r.repair(ctx, o)
	}
}

func (r *Reconciler) repair(ctx context.Context, o Order) {
	switch o.CheckoutState {
	case CheckoutAllocated:
		// Stock is held and items exist; only the final write is missing.
		// Finish the saga forward.
		if err := r.store.SetCheckoutState(ctx, o.ID, CheckoutComplete); err != nil {
			r.log.Error("reconcile: finalize failed",
				slog.String("order_id", o.ID), slog.Any("err", err))
			return
		}
		r.log.Info("reconcile: stalled checkout finalized",
			slog.String("order_id", o.ID))

	case CheckoutStockPending:
		r.log.Error("reconcile: order died during stock allocation; verify stock by hand",
			slog.String("order_id", o.ID),
			slog.Time("created_at", o.CreatedAt))

	case CheckoutItemsPending:
		// Stock was never touched on this path, so deletion leaks nothing.
		// Delete first, refund the promo use second — same ownership rule as
		// the assembler's unwind. The promo redeem always precedes the header
		// write, so a stuck header with a promo code is known to hold a
		// redemption.
		if err := r.store.DeleteNeverCommitted(ctx, o.ID); err != nil {
			r.log.Error("reconcile: cleanup failed",
				slog.String("order_id", o.ID), slog.Any("err", err))
			return
		}
		if o.PromoCode != nil {
			if err := r.promos.Unredeem(ctx, *o.PromoCode); err != nil {
				r.log.Error("reconcile: promo un-redeem failed",
					slog.String("order_id", o.ID),
					slog.String("code", *o.PromoCode),
					slog.Any("err", err))
			}
		}
		r.log.Info("reconcile: stalled checkout unwound",
			slog.String("order_id", o.ID))
	}
}
