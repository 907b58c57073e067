package catalog

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) ProductByID(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return p, err
}

func (r *Repo) VariantByID(ctx context.Context, productID, id string) (Variant, error) {
	var v Variant
	err := r.db.WithContext(ctx).
		First(&v, "id = ? AND product_id = ?", id, productID).Error
	return v, err
}
