package checkout

import (
	"context"

	"gorm.io/gorm"
)

// GormStockStore runs the conditional stock updates against MySQL. Each
// decrement is one UPDATE with the availability check in the WHERE clause, so
// the precondition and the write are a single atomic statement.
type GormStockStore struct{ db *gorm.DB }

func NewGormStockStore(db *gorm.DB) *GormStockStore { return &GormStockStore{db: db} }

func (s *GormStockStore) Decrement(ctx context.Context, line StockLine) (bool, error) {
	var ok bool
	err := withRetry(ctx, 3, func() error {
		res := s.target(ctx, line).
			Where("stock >= ?", line.Qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", line.Qty))
		if res.Error != nil {
			return res.Error
		}
		ok = res.RowsAffected == 1
		return nil
	})
	return ok, err
}

func (s *GormStockStore) Increment(ctx context.Context, line StockLine) error {
	return withRetry(ctx, 3, func() error {
		return s.target(ctx, line).
			UpdateColumn("stock", gorm.Expr("stock + ?", line.Qty)).Error
	})
}

func (s *GormStockStore) Available(ctx context.Context, line StockLine) (int, error) {
	var stock int
	q := s.db.WithContext(ctx)
	if line.VariantID != "" {
		q = q.Table("product_variants").Select("stock").Where("id = ?", line.VariantID)
	} else {
		q = q.Table("products").Select("stock").Where("id = ?", line.ProductID)
	}
	err := q.Scan(&stock).Error
	return stock, err
}

func (s *GormStockStore) target(ctx context.Context, line StockLine) *gorm.DB {
	if line.VariantID != "" {
		return s.db.WithContext(ctx).Table("product_variants").Where("id = ?", line.VariantID)
	}
	return s.db.WithContext(ctx).Table("products").Where("id = ?", line.ProductID)
}
