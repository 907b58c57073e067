package pricing

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"labrand.store/app/internal/modules/catalog"
	"labrand.store/app/internal/modules/checkout"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
)

// Catalog is the read surface the calculator needs; satisfied by catalog.Repo.
type Catalog interface {
	ProductByID(ctx context.Context, id string) (catalog.Product, error)
	VariantByID(ctx context.Context, productID, id string) (catalog.Variant, error)
}

// Item is one requested cart line.
type Item struct {
	ProductID string
	VariantID string // optional
	Quantity  int
}

// Line is a priced cart line carrying the catalog snapshot that will be
// frozen onto the order item.
type Line struct {
	ProductID    string
	VariantID    string
	BrandID      string
	ProductName  string
	VariantLabel string
	Quantity     int
	UnitCents    int64
	LineCents    int64
	Currency     string
	Stock        int // availability at pricing time; re-verified by the allocator
}

type Quote struct {
	Lines         []Line
	SubtotalCents int64
	Currency      string
}

type Calculator struct {
	catalog Catalog
}

func NewCalculator(cat Catalog) *Calculator { return &Calculator{catalog: cat} }

// Quote resolves every line against the catalog and sums the subtotal.
// Stock is checked here for an early answer; the authoritative check is the
// allocator's conditional decrement.
func (c *Calculator) Quote(ctx context.Context, items []Item) (Quote, error) {
	var q Quote
	for _, it := range items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}

		p, err := c.catalog.ProductByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Quote{}, ErrProductNotFound
			}
			return Quote{}, err
		}
		if !p.Active {
			return Quote{}, ErrProductNotFound
		}

		ln := Line{
			ProductID:   p.ID,
			BrandID:     p.BrandID,
			ProductName: p.Name,
			Quantity:    qty,
			Currency:    p.Currency,
			Stock:       p.Stock,
		}

		var variant *catalog.Variant
		if it.VariantID != "" {
			v, err := c.catalog.VariantByID(ctx, it.ProductID, it.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return Quote{}, ErrVariantNotFound
				}
				return Quote{}, err
			}
			variant = &v
			ln.VariantID = v.ID
			ln.VariantLabel = v.Label()
			ln.Stock = v.Stock
		}

		if ln.Stock < qty {
			return Quote{}, &checkout.OutOfStockError{Items: []checkout.OutOfStockItem{{
				ProductID:   p.ID,
				ProductName: p.Name,
				VariantID:   ln.VariantID,
				Requested:   qty,
				Available:   ln.Stock,
			}}}
		}

		ln.UnitCents = p.EffectiveUnitCents(variant)
		ln.LineCents = ln.UnitCents * int64(qty)

		if q.Currency == "" {
			q.Currency = p.Currency
		}
		q.Lines = append(q.Lines, ln)
		q.SubtotalCents += ln.LineCents
	}
	return q, nil
}
