package catalog

import "time"

// Catalog rows are read-only from the checkout core's point of view, except
// for the stock columns which the allocator updates conditionally.

type Brand struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
}

type Product struct {
	ID             string `gorm:"primaryKey"`
	BrandID        string
	Name           string
	PriceCents     int64
	SalePriceCents *int64
	Currency       string
	Stock          int // used when the product has no variants
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Variants []Variant `gorm:"foreignKey:ProductID"`
}

type Variant struct {
	ID            string `gorm:"primaryKey"`
	ProductID     string
	SKU           string
	Size          string
	Color         string
	PriceAdjCents int64 // added on top of the product price
	Stock         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Brand) TableName() string   { return "brands" }
func (Product) TableName() string { return "products" }
func (Variant) TableName() string { return "product_variants" }

// EffectiveUnitCents: sale price wins over list price, variant adjustment on top.
func (p Product) EffectiveUnitCents(v *Variant) int64 {
	unit := p.PriceCents
	if p.SalePriceCents != nil {
		unit = *p.SalePriceCents
	}
	if v != nil {
		unit += v.PriceAdjCents
	}
	return unit
}

// Label renders the snapshot descriptor stored on order items ("M / Black").
func (v Variant) Label() string {
	switch {
	case v.Size != "" && v.Color != "":
		return v.Size + " / " + v.Color
	case v.Size != "":
		return v.Size
	case v.Color != "":
		return v.Color
	default:
		return v.SKU
	}
}
