package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"labrand.store/app/internal/http/middleware"
	"labrand.store/app/internal/http/render"
	"labrand.store/app/internal/http/validation"
	"labrand.store/app/internal/modules/checkout"
	"labrand.store/app/internal/modules/orders"
	"labrand.store/app/internal/modules/pricing"
	"labrand.store/app/internal/modules/promo"
	"labrand.store/app/internal/shared/apperr"
)

const headerIdempotencyKey = "Idempotency-Key"

type OrdersHandler struct {
	Svc *orders.Service
}

func NewOrdersHandler(svc *orders.Service) *OrdersHandler {
	return &OrdersHandler{Svc: svc}
}

// List: GET /api/orders — role-filtered, newest first.
func (h *OrdersHandler) List(c *gin.Context) {
	actor, ok := middleware.CurrentIdentity(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Authentication required."))
		return
	}

	status := strings.TrimSpace(c.Query("status"))
	if status != "" {
		if _, ok := orders.ParseStatus(status); !ok {
			middleware.Fail(c, apperr.InvalidErr("Unknown status filter.", map[string]string{"status": "Unknown status."}))
			return
		}
	}
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 20)
	if limit > orders.MaxListLimit {
		limit = orders.MaxListLimit
	}

	res, err := h.Svc.List(c.Request.Context(), actor, status, page, limit)
	if err != nil {
		middleware.Fail(c, mapOrderErr(err))
		return
	}

	items := make([]orderDTO, 0, len(res.Items))
	for _, it := range res.Items {
		dto := orderToDTO(it.Order, nil)
		dto.ItemCount = it.ItemCount
		items = append(items, dto)
	}

	render.List(c, http.StatusOK, items, render.NewPagination(page, limit, res.Total))
}

// Detail: GET /api/orders/:id — full order with items.
func (h *OrdersHandler) Detail(c *gin.Context) {
	actor, ok := middleware.CurrentIdentity(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Authentication required."))
		return
	}

	res, err := h.Svc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		middleware.Fail(c, mapOrderErr(err))
		return
	}

	render.OK(c, http.StatusOK, orderToDTO(res.Order, res.Items))
}

// Create: POST /api/orders — the checkout entry point.
func (h *OrdersHandler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentIdentity(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Authentication required."))
		return
	}

	var in createOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request is invalid.", validation.FromBindError(err, &in)))
		return
	}

	items := make([]pricing.Item, len(in.Items))
	for i, it := range in.Items {
		items[i] = pricing.Item{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		}
	}

	res, err := h.Svc.Create(c.Request.Context(), orders.CreateInput{
		UserID: actor.UserID,
		Items:  items,
		Address: orders.ShippingAddress{
			Name:       strings.TrimSpace(in.ShippingAddress.Name),
			Phone:      strings.TrimSpace(in.ShippingAddress.Phone),
			Street:     strings.TrimSpace(in.ShippingAddress.Street),
			City:       strings.TrimSpace(in.ShippingAddress.City),
			State:      strings.TrimSpace(in.ShippingAddress.State),
			PostalCode: strings.TrimSpace(in.ShippingAddress.PostalCode),
			Country:    strings.ToUpper(strings.TrimSpace(in.ShippingAddress.Country)),
		},
		PromoCode:      strings.TrimSpace(in.PromoCode),
		Note:           strings.TrimSpace(in.Notes),
		IdempotencyKey: strings.TrimSpace(c.GetHeader(headerIdempotencyKey)),
	})
	if err != nil {
		middleware.Fail(c, mapOrderErr(err))
		return
	}

	render.OK(c, http.StatusCreated, orderToDTO(res.Order, res.Items))
}

// UpdateStatus: PUT /api/orders/:id/status — brand manager / admin.
func (h *OrdersHandler) UpdateStatus(c *gin.Context) {
	actor, ok := middleware.CurrentIdentity(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Authentication required."))
		return
	}

	var in updateStatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request is invalid.", validation.FromBindError(err, &in)))
		return
	}
	to, ok := orders.ParseStatus(in.Status)
	if !ok {
		middleware.Fail(c, apperr.InvalidErr("Unknown status.", map[string]string{"status": "Unknown status."}))
		return
	}

	o, err := h.Svc.UpdateStatus(c.Request.Context(), actor, c.Param("id"), to, strings.TrimSpace(in.Note))
	if err != nil {
		middleware.Fail(c, mapOrderErr(err))
		return
	}

	render.OK(c, http.StatusOK, orderToDTO(o, nil))
}

// Cancel: POST /api/orders/:id/cancel — client shorthand for cancelled.
func (h *OrdersHandler) Cancel(c *gin.Context) {
	actor, ok := middleware.CurrentIdentity(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Authentication required."))
		return
	}

	o, err := h.Svc.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		middleware.Fail(c, mapOrderErr(err))
		return
	}

	render.OK(c, http.StatusOK, orderToDTO(o, nil))
}

// mapOrderErr folds service errors into the apperr taxonomy. Business rules
// come back as 400 with their message, scope misses as 403, storage misses
// as 404; anything else is wrapped and logged as a 500.
func mapOrderErr(err error) error {
	var oos *checkout.OutOfStockError
	switch {
	case errors.As(err, &oos):
		return apperr.BusinessErr("Insufficient stock for "+oos.Items[0].ProductName+".", err)
	case errors.Is(err, pricing.ErrProductNotFound):
		return apperr.NotFoundErr("Product not found.")
	case errors.Is(err, pricing.ErrVariantNotFound):
		return apperr.NotFoundErr("Variant not found.")
	case errors.Is(err, promo.ErrInvalidCode):
		return apperr.BusinessErr("Promo code is invalid.", err)
	case errors.Is(err, promo.ErrExpiredCode):
		return apperr.BusinessErr("Promo code has expired.", err)
	case errors.Is(err, promo.ErrUsageLimitReached):
		return apperr.BusinessErr("Promo code usage limit reached.", err)
	case errors.Is(err, promo.ErrMinimumOrderNotMet):
		return apperr.BusinessErr("Order does not meet the promo minimum.", err)
	case errors.Is(err, orders.ErrEmptyOrder):
		return apperr.BusinessErr("Order has no items.", err)
	case errors.Is(err, orders.ErrMixedBrands):
		return apperr.BusinessErr("All items must belong to one brand.", err)
	case errors.Is(err, orders.ErrInvalidTransition):
		return apperr.BusinessErr("Status change is not allowed.", err)
	case errors.Is(err, orders.ErrOutOfScope):
		return apperr.ForbiddenErr("You do not have access to this order.")
	case errors.Is(err, orders.ErrDuplicateRequest):
		return apperr.ConflictErr("This checkout was already submitted.")
	case errors.Is(err, orders.ErrConcurrentUpdate):
		return apperr.ConflictErr("Order was modified concurrently, retry.")
	case orders.IsNotFound(err):
		return apperr.NotFoundErr("Order not found.")
	default:
		return apperr.Wrap(err)
	}
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
