package promo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"labrand.store/app/internal/shared/money"
)

var (
	ErrInvalidCode        = errors.New("invalid promo code")
	ErrExpiredCode        = errors.New("promo code expired")
	ErrUsageLimitReached  = errors.New("promo code usage limit reached")
	ErrMinimumOrderNotMet = errors.New("minimum order amount not met")
)

type Store interface {
	FindActive(ctx context.Context, code string) (Code, error)
	Redeem(ctx context.Context, code string) (bool, error)
	Unredeem(ctx context.Context, code string) error
}

type Result struct {
	Code          string
	DiscountCents int64
}

type Validator struct {
	store Store
	now   func() time.Time
}

func NewValidator(store Store) *Validator {
	return &Validator{store: store, now: time.Now}
}

// Check runs the eligibility checks in order, each with its own failure, and
// computes the discount. It does not consume a redemption; Redeem does, and
// the two are separate on purpose: Check answers "would this code apply",
// Redeem is the write that the assembler pairs with the order insert.
func (v *Validator) Check(ctx context.Context, code string, subtotalCents int64) (Result, error) {
	c, err := v.store.FindActive(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{}, ErrInvalidCode
		}
		return Result{}, err
	}
	if c.ExpiresAt.Before(v.now()) {
		return Result{}, ErrExpiredCode
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return Result{}, ErrUsageLimitReached
	}
	if subtotalCents < c.MinOrderCents {
		return Result{}, ErrMinimumOrderNotMet
	}

	return Result{Code: c.Code, DiscountCents: discount(c, subtotalCents)}, nil
}

// Redeem consumes one use. A false row count here means a concurrent
// redemption took the last slot between Check and now.
func (v *Validator) Redeem(ctx context.Context, code string) error {
	ok, err := v.store.Redeem(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUsageLimitReached
	}
	return nil
}

func (v *Validator) Unredeem(ctx context.Context, code string) error {
	return v.store.Unredeem(ctx, code)
}

// discount never exceeds the subtotal, so a promo cannot push an order
// negative.
func discount(c Code, subtotalCents int64) int64 {
	var d int64
	switch c.Kind {
	case KindPercentage:
		d = money.Percent(subtotalCents, c.Value)
		if c.MaxDiscountCents != nil && d > *c.MaxDiscountCents {
			d = *c.MaxDiscountCents
		}
	case KindFixed:
		d = c.Value
	}
	if d > subtotalCents {
		d = subtotalCents
	}
	if d < 0 {
		d = 0
	}
	return d
}
