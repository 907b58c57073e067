package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"labrand.store/app/internal/http/middleware"
	"labrand.store/app/internal/http/render"
	"labrand.store/app/internal/modules/checkout"
	"labrand.store/app/internal/modules/orders"
	"labrand.store/app/internal/modules/pricing"
	"labrand.store/app/internal/modules/projection"
	"labrand.store/app/internal/modules/promo"
	"labrand.store/app/internal/shared/auth"
)

// --- stub collaborators ---

type stubStore struct {
	mu     sync.Mutex
	orders map[string]orders.Order
	items  map[string][]orders.OrderItem
}

func newStubStore() *stubStore {
	return &stubStore{
		orders: map[string]orders.Order{},
		items:  map[string][]orders.OrderItem{},
	}
}

func (s *stubStore) seed(o orders.Order, items ...orders.OrderItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	s.items[o.ID] = items
}

func (s *stubStore) InsertOrder(_ context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.IdempotencyKey != nil {
		for _, have := range s.orders {
			if have.IdempotencyKey != nil && *have.IdempotencyKey == *o.IdempotencyKey {
				return orders.ErrDuplicateRequest
			}
		}
	}
	s.orders[o.ID] = *o
	return nil
}

func (s *stubStore) InsertItems(_ context.Context, items []orders.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.items[it.OrderID] = append(s.items[it.OrderID], it)
	}
	return nil
}

func (s *stubStore) SetCheckoutState(_ context.Context, orderID string, state orders.CheckoutState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[orderID]
	o.CheckoutState = state
	s.orders[orderID] = o
	return nil
}

func (s *stubStore) DeleteNeverCommitted(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, orderID)
	delete(s.items, orderID)
	return nil
}

func (s *stubStore) GetWithItems(_ context.Context, id string) (orders.Order, []orders.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.CheckoutState != orders.CheckoutComplete {
		return orders.Order{}, nil, gorm.ErrRecordNotFound
	}
	return o, s.items[id], nil
}

func (s *stubStore) ItemsByOrder(_ context.Context, orderID string) ([]orders.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[orderID], nil
}

func (s *stubStore) List(_ context.Context, in orders.ListParams) (orders.ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out orders.ListResult
	for _, o := range s.orders {
		if o.CheckoutState != orders.CheckoutComplete {
			continue
		}
		if in.UserID != "" && o.UserID != in.UserID {
			continue
		}
		if in.BrandID != "" && o.BrandID != in.BrandID {
			continue
		}
		if in.Status != "" && string(o.Status) != in.Status {
			continue
		}
		out.Total++
		out.Items = append(out.Items, orders.ListItem{Order: o, ItemCount: len(s.items[o.ID])})
	}
	limit := in.Limit
	if limit > 0 && len(out.Items) > limit {
		out.Items = out.Items[:limit]
	}
	return out, nil
}

func (s *stubStore) ApplyTransition(_ context.Context, ev orders.OrderEvent, deliveredAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[ev.OrderID]
	if !ok || o.Status != ev.FromStatus {
		return false, nil
	}
	o.Status = ev.ToStatus
	if deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}
	s.orders[ev.OrderID] = o
	return true, nil
}

func (s *stubStore) StuckCheckouts(_ context.Context, _ time.Time, _ int) ([]orders.Order, error) {
	return nil, nil
}

type stubPricer struct{ err error }

func (p stubPricer) Quote(_ context.Context, items []pricing.Item) (pricing.Quote, error) {
	if p.err != nil {
		return pricing.Quote{}, p.err
	}
	q := pricing.Quote{Currency: "USD"}
	for _, it := range items {
		line := pricing.Line{
			ProductID: it.ProductID, VariantID: it.VariantID, BrandID: "b1",
			ProductName: "Linen Shirt", Quantity: it.Quantity,
			UnitCents: 2500, LineCents: int64(it.Quantity) * 2500,
			Currency: "USD", Stock: 100,
		}
		q.Lines = append(q.Lines, line)
		q.SubtotalCents += line.LineCents
	}
	return q, nil
}

type stubPromo struct{}

func (stubPromo) Check(_ context.Context, code string, _ int64) (promo.Result, error) {
	if code != "SAVE10" {
		return promo.Result{}, promo.ErrInvalidCode
	}
	return promo.Result{Code: code, DiscountCents: 500}, nil
}
func (stubPromo) Redeem(context.Context, string) error   { return nil }
func (stubPromo) Unredeem(context.Context, string) error { return nil }

type stubStock struct{ err error }

func (s stubStock) Allocate(context.Context, []checkout.StockLine) error { return s.err }
func (s stubStock) Release(context.Context, []checkout.StockLine) error  { return nil }

type stubProjection struct{}

func (stubProjection) Upsert(context.Context, projection.Projection) {}

type stubNotifier struct{}

func (stubNotifier) Enqueue(context.Context, string, string, any) error { return nil }

// --- harness ---

const authSpec = "tok-client:u1:client,tok-client2:u2:client,tok-manager:m1:brand_manager:b1,tok-admin:a1:admin"

func newTestServer(t *testing.T, stock stubStock) (*gin.Engine, *stubStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newStubStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := orders.NewService(store, stubPricer{}, stubPromo{}, stock,
		stubProjection{}, stubNotifier{}, log, time.Second)

	r := NewRouter(log, Deps{Auth: auth.NewStaticTokens(authSpec), Orders: svc})
	return r, store
}

func doJSON(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success    bool               `json:"success"`
	Data       json.RawMessage    `json:"data"`
	Error      string             `json:"error"`
	Fields     map[string]string  `json:"fields"`
	Pagination *render.Pagination `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func validCreateBody() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"product_id": "p1", "quantity": 2},
		},
		"shipping_address": map[string]any{
			"name": "Ada Kaya", "phone": "+1 555 0100",
			"street": "12 Pine Street", "city": "Portland",
			"postal_code": "97201", "country": "us",
		},
	}
}

func seedPending(store *stubStore, id, userID, brandID string) {
	store.seed(orders.Order{
		ID: id, UserID: userID, BrandID: brandID,
		Status: orders.StatusPending, CheckoutState: orders.CheckoutComplete,
		SubtotalCents: 5000, TotalCents: 5000, Currency: "USD",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}, orders.OrderItem{
		ID: id + "-i1", OrderID: id, ProductID: "p1",
		ProductName: "Linen Shirt", Quantity: 2,
		UnitPriceCents: 2500, LineTotalCents: 5000,
	})
}

// --- tests ---

func TestHealthz(t *testing.T) {
	r, _ := newTestServer(t, stubStock{})
	w := doJSON(r, http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	r, _ := newTestServer(t, stubStock{})

	w := doJSON(r, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)

	w = doJSON(r, http.MethodGet, "/api/orders", "tok-bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrder(t *testing.T) {
	r, _ := newTestServer(t, stubStock{})

	w := doJSON(r, http.MethodPost, "/api/orders", "tok-client", validCreateBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env := decode(t, w)
	assert.True(t, env.Success)

	var data struct {
		ID         string `json:"id"`
		UserID     string `json:"user_id"`
		Status     string `json:"status"`
		TotalCents int64  `json:"total_cents"`
		Total      string `json:"total"`
		Address    struct {
			Country string `json:"country"`
		} `json:"shipping_address"`
		Items []struct {
			ProductName string `json:"product_name"`
			Quantity    int    `json:"quantity"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.ID)
	assert.Equal(t, "u1", data.UserID)
	assert.Equal(t, "pending", data.Status)
	assert.Equal(t, int64(5000), data.TotalCents)
	assert.Equal(t, "$50.00", data.Total)
	assert.Equal(t, "US", data.Address.Country, "country is normalized to upper case")
	require.Len(t, data.Items, 1)
	assert.Equal(t, 2, data.Items[0].Quantity)
}

func TestCreateOrderValidation(t *testing.T) {
	r, _ := newTestServer(t, stubStock{})

	w := doJSON(r, http.MethodPost, "/api/orders", "tok-client", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Contains(t, env.Fields, "items")
}

func TestCreateOrderValidationNestedFieldKeys(t *testing.T) {
	r, _ := newTestServer(t, stubStock{})

	body := validCreateBody()
	body["items"] = []map[string]any{{"product_id": "p1", "quantity": 0}}
	addr := body["shipping_address"].(map[string]any)
	delete(addr, "postal_code")

	w := doJSON(r, http.MethodPost, "/api/orders", "tok-client", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Contains(t, env.Fields, "items[0].quantity")
	assert.Contains(t, env.Fields, "shipping_address.postal_code")
}

func TestRequestIDHeader(t *testing.T) {
	r, _ := newTestServer(t, stubStock{})

	w := doJSON(r, http.MethodGet, "/api/healthz", "", nil)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set(middleware.HeaderRequestID, "rid-from-proxy")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "rid-from-proxy", w.Header().Get(middleware.HeaderRequestID))
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	stock := stubStock{err: &checkout.OutOfStockError{
		Items: []checkout.OutOfStockItem{
			{ProductID: "p1", ProductName: "Linen Shirt", Requested: 2, Available: 0},
		},
	}}
	r, store := newTestServer(t, stock)

	w := doJSON(r, http.MethodPost, "/api/orders", "tok-client", validCreateBody())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "Insufficient stock")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.orders, "failed checkout leaves nothing behind")
}

func TestCreateOrderBadPromo(t *testing.T) {
	r, _ := newTestServer(t, stubStock{})

	body := validCreateBody()
	body["promo_code"] = "NOPE"
	w := doJSON(r, http.MethodPost, "/api/orders", "tok-client", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error, "invalid")
}

func TestDetailNotFound(t *testing.T) {
	r, _ := newTestServer(t, stubStock{})
	w := doJSON(r, http.MethodGet, "/api/orders/missing", "tok-client", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetailScope(t *testing.T) {
	r, store := newTestServer(t, stubStock{})
	seedPending(store, "o1", "u1", "b1")

	w := doJSON(r, http.MethodGet, "/api/orders/o1", "tok-client", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/orders/o1", "tok-client2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListPagination(t *testing.T) {
	r, store := newTestServer(t, stubStock{})
	seedPending(store, "o1", "u1", "b1")
	seedPending(store, "o2", "u1", "b1")
	seedPending(store, "o3", "u2", "b1")

	w := doJSON(r, http.MethodGet, "/api/orders?page=1&limit=2", "tok-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.EqualValues(t, 3, env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	assert.True(t, env.Pagination.HasNext)
	assert.False(t, env.Pagination.HasPrev)
}

func TestListLimitClampedToCap(t *testing.T) {
	r, store := newTestServer(t, stubStock{})
	seedPending(store, "o1", "u1", "b1")
	seedPending(store, "o2", "u1", "b1")
	seedPending(store, "o3", "u2", "b1")

	w := doJSON(r, http.MethodGet, "/api/orders?limit=500", "tok-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// the pagination block must describe the page actually served
	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 100, env.Pagination.Limit)
	assert.EqualValues(t, 3, env.Pagination.Total)
	assert.Equal(t, 1, env.Pagination.TotalPages)
	assert.False(t, env.Pagination.HasNext)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	r, _ := newTestServer(t, stubStock{})
	w := doJSON(r, http.MethodGet, "/api/orders?status=teleported", "tok-client", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusRouteRequiresManagerRole(t *testing.T) {
	r, store := newTestServer(t, stubStock{})
	seedPending(store, "o1", "u1", "b1")

	w := doJSON(r, http.MethodPut, "/api/orders/o1/status", "tok-client",
		map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateStatus(t *testing.T) {
	r, store := newTestServer(t, stubStock{})
	seedPending(store, "o1", "u1", "b1")

	w := doJSON(r, http.MethodPut, "/api/orders/o1/status", "tok-manager",
		map[string]any{"status": "confirmed", "note": "packing"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "confirmed", data.Status)

	// skipping a step is a business rule violation, not a validation error
	w = doJSON(r, http.MethodPut, "/api/orders/o1/status", "tok-manager",
		map[string]any{"status": "delivered"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelRouteRequiresClientRole(t *testing.T) {
	r, store := newTestServer(t, stubStock{})
	seedPending(store, "o1", "u1", "b1")

	w := doJSON(r, http.MethodPost, "/api/orders/o1/cancel", "tok-manager", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestClientCancel(t *testing.T) {
	r, store := newTestServer(t, stubStock{})
	seedPending(store, "o1", "u1", "b1")

	w := doJSON(r, http.MethodPost, "/api/orders/o1/cancel", "tok-client", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "cancelled", data.Status)

	// a cancelled order cannot be cancelled again
	w = doJSON(r, http.MethodPost, "/api/orders/o1/cancel", "tok-client", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
