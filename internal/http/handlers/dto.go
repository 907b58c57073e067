package handlers

import (
	"time"

	"labrand.store/app/internal/modules/orders"
	"labrand.store/app/internal/shared/money"
)

type createOrderInput struct {
	Items           []createOrderItem    `json:"items" binding:"required,min=1,max=100,dive"`
	ShippingAddress shippingAddressInput `json:"shipping_address" binding:"required"`
	PromoCode       string               `json:"promo_code" binding:"omitempty,max=64"`
	Notes           string               `json:"notes" binding:"omitempty,max=1000"`
}

type createOrderItem struct {
	ProductID string `json:"product_id" binding:"required,max=36"`
	VariantID string `json:"variant_id" binding:"omitempty,max=36"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type shippingAddressInput struct {
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Phone      string `json:"phone" binding:"required,min=5,max=32"`
	Street     string `json:"street" binding:"required,min=5,max=255"`
	City       string `json:"city" binding:"required,min=2,max=100"`
	State      string `json:"state" binding:"omitempty,max=100"`
	PostalCode string `json:"postal_code" binding:"required,min=2,max=32"`
	Country    string `json:"country" binding:"required,len=2"`
}

type updateStatusInput struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"omitempty,max=500"`
}

// --- responses ---

type addressDTO struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type orderItemDTO struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	VariantID      string `json:"variant_id,omitempty"`
	ProductName    string `json:"product_name"`
	VariantLabel   string `json:"variant_label,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	UnitPrice      string `json:"unit_price"`
	LineTotalCents int64  `json:"line_total_cents"`
	LineTotal      string `json:"line_total"`
}

type orderDTO struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	BrandID       string         `json:"brand_id"`
	Status        string         `json:"status"`
	SubtotalCents int64          `json:"subtotal_cents"`
	Subtotal      string         `json:"subtotal"`
	ShippingCents int64          `json:"shipping_cents"`
	Shipping      string         `json:"shipping"`
	DiscountCents int64          `json:"discount_cents"`
	Discount      string         `json:"discount"`
	TotalCents    int64          `json:"total_cents"`
	Total         string         `json:"total"`
	Currency      string         `json:"currency"`
	PromoCode     string         `json:"promo_code,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	Address       addressDTO     `json:"shipping_address"`
	Items         []orderItemDTO `json:"items,omitempty"`
	ItemCount     int            `json:"item_count,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
}

func orderToDTO(o orders.Order, items []orders.OrderItem) orderDTO {
	dto := orderDTO{
		ID:            o.ID,
		UserID:        o.UserID,
		BrandID:       o.BrandID,
		Status:        string(o.Status),
		SubtotalCents: o.SubtotalCents,
		Subtotal:      money.Format(o.Currency, o.SubtotalCents),
		ShippingCents: o.ShippingCents,
		Shipping:      money.Format(o.Currency, o.ShippingCents),
		DiscountCents: o.DiscountCents,
		Discount:      money.Format(o.Currency, o.DiscountCents),
		TotalCents:    o.TotalCents,
		Total:         money.Format(o.Currency, o.TotalCents),
		Currency:      o.Currency,
		Address: addressDTO{
			Name:       o.Address.Name,
			Phone:      o.Address.Phone,
			Street:     o.Address.Street,
			City:       o.Address.City,
			State:      o.Address.State,
			PostalCode: o.Address.PostalCode,
			Country:    o.Address.Country,
		},
		CreatedAt:   o.CreatedAt,
		DeliveredAt: o.DeliveredAt,
	}
	if o.PromoCode != nil {
		dto.PromoCode = *o.PromoCode
	}
	if o.Note != nil {
		dto.Notes = *o.Note
	}
	for _, it := range items {
		item := orderItemDTO{
			ID:             it.ID,
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			VariantLabel:   it.VariantLabel,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			UnitPrice:      money.Format(o.Currency, it.UnitPriceCents),
			LineTotalCents: it.LineTotalCents,
			LineTotal:      money.Format(o.Currency, it.LineTotalCents),
		}
		if it.VariantID != nil {
			item.VariantID = *it.VariantID
		}
		dto.Items = append(dto.Items, item)
	}
	return dto
}
