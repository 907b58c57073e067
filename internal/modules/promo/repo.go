package promo

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// FindActive is an exact-match lookup that requires the active flag.
func (r *Repo) FindActive(ctx context.Context, code string) (Code, error) {
	var c Code
	err := r.db.WithContext(ctx).
		First(&c, "code = ? AND active = ?", code, true).Error
	return c, err
}

// Redeem increments used_count with the limit check inside the same UPDATE.
// Returns false when the limit is already reached; under concurrent
// redemption only usage_limit requests ever get true.
func (r *Repo) Redeem(ctx context.Context, code string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Code{}).
		Where("code = ? AND active = ?", code, true).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Unredeem hands a redemption back when the order it belonged to never
// committed. Conditional so a count can never go negative.
func (r *Repo) Unredeem(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Model(&Code{}).
		Where("code = ? AND used_count > 0", code).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error
}
