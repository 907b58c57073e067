package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/go-sql-driver/mysql"
)

// StockLine targets variant stock when VariantID is set, product stock
// otherwise. ProductName rides along for error reporting only.
type StockLine struct {
	ProductID   string
	VariantID   string
	ProductName string
	Qty         int
}

func (l StockLine) key() string {
	if l.VariantID != "" {
		return "v:" + l.VariantID
	}
	return "p:" + l.ProductID
}

// StockStore is the storage primitive the allocator runs on. Decrement must
// be a single conditional statement (stock = stock - qty only when
// stock >= qty); a separate read-then-write is a lost-update race and no
// implementation may do that.
type StockStore interface {
	Decrement(ctx context.Context, line StockLine) (bool, error)
	Increment(ctx context.Context, line StockLine) error
	Available(ctx context.Context, line StockLine) (int, error)
}

type Allocator struct {
	store StockStore
	log   *slog.Logger
}

func NewAllocator(store StockStore, log *slog.Logger) *Allocator {
	return &Allocator{store: store, log: log}
}

// Allocate decrements stock for every line, one conditional decrement each.
// On the first failed precondition it re-increments the lines already taken
// (LIFO) and reports the whole request as out of stock. Compensation is owned
// here; callers never restock on their own.
func (a *Allocator) Allocate(ctx context.Context, lines []StockLine) error {
	lines = coalesce(lines)

	var applied []StockLine
	for _, ln := range lines {
		ok, err := a.store.Decrement(ctx, ln)
		if err != nil {
			a.compensate(ctx, applied)
			return err
		}
		if !ok {
			a.compensate(ctx, applied)
			avail, aerr := a.store.Available(ctx, ln)
			if aerr != nil {
				avail = 0
			}
			return &OutOfStockError{Items: []OutOfStockItem{{
				ProductID:   ln.ProductID,
				ProductName: ln.ProductName,
				VariantID:   ln.VariantID,
				Requested:   ln.Qty,
				Available:   avail,
			}}}
		}
		applied = append(applied, ln)
	}
	return nil
}

// Release puts allocated stock back (cancellation, reconciliation).
func (a *Allocator) Release(ctx context.Context, lines []StockLine) error {
	var firstErr error
	for _, ln := range coalesce(lines) {
		if err := a.store.Increment(ctx, ln); err != nil {
			a.log.Error("stock release failed",
				slog.String("product_id", ln.ProductID),
				slog.String("variant_id", ln.VariantID),
				slog.Int("qty", ln.Qty),
				slog.Any("err", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (a *Allocator) compensate(ctx context.Context, applied []StockLine) {
	for i := len(applied) - 1; i >= 0; i-- {
		ln := applied[i]
		if err := a.store.Increment(ctx, ln); err != nil {
			// Left for the reconciler; the order record never commits on this path.
			a.log.Error("stock compensation failed",
				slog.String("product_id", ln.ProductID),
				slog.String("variant_id", ln.VariantID),
				slog.Int("qty", ln.Qty),
				slog.Any("err", err))
		}
	}
}

// coalesce merges duplicate targets and fixes a deterministic order so two
// concurrent checkouts touch rows in the same sequence.
func coalesce(lines []StockLine) []StockLine {
	merged := make(map[string]StockLine, len(lines))
	for _, ln := range lines {
		if ln.Qty < 1 {
			ln.Qty = 1
		}
		if prev, ok := merged[ln.key()]; ok {
			prev.Qty += ln.Qty
			merged[ln.key()] = prev
			continue
		}
		merged[ln.key()] = ln
	}
	out := make([]StockLine, 0, len(merged))
	for _, ln := range merged {
		out = append(out, ln)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// --- retry helper (deadlock/lock timeout) ---

func withRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if isRetryableMySQLError(err) && i < attempts-1 {
			select {
			case <-time.After(time.Duration(50*(i+1)) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		return err
	}
	return lastErr
}

func isRetryableMySQLError(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		// 1213: Deadlock found; 1205: Lock wait timeout
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}
