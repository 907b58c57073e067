package promo

import "time"

type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
)

// Code is a named discount rule. Value is basis points for percentage codes
// (1000 = 10%) and cents for fixed codes, so discount math never leaves
// integers.
type Code struct {
	Code             string `gorm:"primaryKey"`
	Kind             Kind
	Value            int64
	MaxDiscountCents *int64
	MinOrderCents    int64
	UsageLimit       *int
	UsedCount        int
	ExpiresAt        time.Time
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Code) TableName() string { return "promo_codes" }
