package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/api/http/middleware"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/metrics"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/ratelimit"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/realtime"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository/memory"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service"
)

var testTopics = service.Topics{Orders: "pharma.orders", Payments: "pharma.payments", Doctors: "pharma.doctors"}

type testAPI struct {
	router  chi.Router
	store   *memory.Store
	catalog *service.CatalogService
	metrics *metrics.Metrics
}

func newTestAPI(t *testing.T, limiter ratelimit.Limiter) *testAPI {
	t.Helper()

	logger := zap.NewNop()
	store := memory.NewStore()
	hub := realtime.NewHub(realtime.DefaultBufferSize, logger)
	changes := realtime.NewMemoryBroker(hub)

	m, err := metrics.New()
	require.NoError(t, err)

	accounts := service.NewAccountService(logger, store, store.Accounts(), store.Sessions(), store.Outbox(), testTopics, changes, time.Hour)
	catalog := service.NewCatalogService(logger, store.Products(), changes)
	carts := service.NewCartService(logger, store.Carts(), store.Products())
	orders := service.NewOrderService(logger, service.OrderDeps{
		Tx:       store,
		Accounts: store.Accounts(),
		Products: store.Products(),
		Orders:   store.Orders(),
		Ledger:   store.Ledger(),
		Carts:    store.Carts(),
		Outbox:   store.Outbox(),
		Topics:   testTopics,
		Changes:  changes,
		Metrics:  m,
	})
	ledger := service.NewLedgerService(logger, service.LedgerDeps{
		Tx:       store,
		Accounts: store.Accounts(),
		Orders:   store.Orders(),
		Ledger:   store.Ledger(),
		Outbox:   store.Outbox(),
		Topics:   testTopics,
		Changes:  changes,
		Metrics:  m,
	})

	_, err = accounts.CreateAdmin(context.Background(), service.CreateAdminInput{
		Email:    "admin@upkar.test",
		Password: "admin-pass-1",
		FullName: "Store Admin",
	})
	require.NoError(t, err)

	handler := NewHandler(logger, accounts, catalog, carts, orders, ledger)
	router := NewRouter(handler, RouterDeps{Hub: hub, AuthLimiter: limiter, Metrics: m}, logger)
	return &testAPI{router: router, store: store, catalog: catalog, metrics: m}
}

func (a *testAPI) do(t *testing.T, method, path, sid string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.Header.Set(middleware.SessionHeader, sid)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAPI_OrderLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.login(t, "admin@upkar.test", "admin-pass-1")

	rec := api.do(t, http.MethodPost, "/api/v1/admin/products", admin, map[string]any{
		"sku": "PCM-500", "name": "Paracetamol 500mg", "unit": "strip of 10", "price": "42.50", "stock": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decodeBody[productResponse](t, rec)
	assert.Equal(t, "42.50", product.Price)

	// каталог доступен без сессии
	rec = api.do(t, http.MethodGet, "/api/v1/products?search=paracetamol", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[productListResponse](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Total)

	rec = api.do(t, http.MethodPost, "/api/v1/auth/register", "", registerRequest{
		Email:         "Rao@Clinic.test",
		Password:      "doctor-pass",
		FullName:      "Dr. Rao",
		Phone:         "+919800000001",
		ClinicName:    "Rao Clinic",
		LicenseNumber: "MCI-1001",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doctor := decodeBody[accountResponse](t, rec)
	assert.Equal(t, "pending", doctor.Status)
	assert.Equal(t, "rao@clinic.test", doctor.Email)

	doc := api.login(t, "rao@clinic.test", "doctor-pass")

	rec = api.do(t, http.MethodPost, "/api/v1/orders", doc, placeOrderRequest{
		Items: []orderLineRequest{{ProductID: product.ID, Quantity: 2}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, "pending doctor must not order")

	rec = api.do(t, http.MethodPost, "/api/v1/admin/doctors/"+doctor.ID+"/approve", admin, map[string]string{"credit_limit": "1000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1000.00", decodeBody[accountResponse](t, rec).CreditLimit)

	rec = api.do(t, http.MethodPut, "/api/v1/cart/items/"+product.ID, doc, setCartItemRequest{Quantity: 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "170.00", decodeBody[cartResponse](t, rec).Subtotal)

	// пустой items оформляет корзину
	rec = api.do(t, http.MethodPost, "/api/v1/orders", doc, placeOrderRequest{Note: "urgent"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decodeBody[orderResponse](t, rec)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "170.00", order.Total)
	require.Len(t, order.Items, 1)

	rec = api.do(t, http.MethodGet, "/api/v1/cart", doc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[cartResponse](t, rec).Lines)

	rec = api.do(t, http.MethodGet, "/api/v1/ledger/balance", doc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decodeBody[balanceResponse](t, rec)
	assert.Equal(t, "170.00", bal.Balance)
	require.NotNil(t, bal.AvailableCredit)
	assert.Equal(t, "830.00", *bal.AvailableCredit)

	rec = api.do(t, http.MethodPatch, "/api/v1/admin/orders/"+order.ID+"/status", admin, updateOrderStatusRequest{Status: "processing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// врач не может отменить заказ в обработке
	rec = api.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+"/cancel", doc, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPatch, "/api/v1/admin/orders/"+order.ID+"/status", admin, updateOrderStatusRequest{Status: "delivered"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "delivered", decodeBody[orderResponse](t, rec).Status)

	rec = api.do(t, http.MethodPatch, "/api/v1/admin/orders/"+order.ID+"/status", admin, updateOrderStatusRequest{Status: "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	payment := recordPaymentRequest{Amount: decimal.RequireFromString("100"), Method: "UPI", Reference: "UTR-1"}
	rec = api.do(t, http.MethodPost, "/api/v1/admin/doctors/"+doctor.ID+"/payments", admin, payment)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paid := decodeBody[recordPaymentResponse](t, rec)
	assert.Equal(t, "70.00", paid.Balance)
	assert.Equal(t, "upi", paid.Payment.Method)

	rec = api.do(t, http.MethodPost, "/api/v1/admin/doctors/"+doctor.ID+"/payments", admin, payment)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[recordPaymentResponse](t, rec).Duplicate)

	rec = api.do(t, http.MethodGet, "/api/v1/admin/doctors/"+doctor.ID+"/reconciliation", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rc := decodeBody[reconciliationResponse](t, rec)
	assert.True(t, rc.Consistent)
	require.Len(t, rc.Orders, 1)
	assert.Equal(t, "partial", rc.Orders[0].PaymentState)
	assert.Equal(t, "70.00", rc.Orders[0].Outstanding)

	rec = api.do(t, http.MethodGet, "/api/v1/ledger/statement", doc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[statementResponse](t, rec)
	require.Len(t, st.Entries, 2)
	assert.Equal(t, "170.00", st.Entries[0].Balance)
	assert.Equal(t, "70.00", st.ClosingBalance)

	assert.InDelta(t, 1, counterValue(t, api.metrics, "orders_placed_total"), 0)
}

// counterValue значение счётчика без меток из реестра
func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestAPI_AccessControl(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.login(t, "admin@upkar.test", "admin-pass-1")

	rec := api.do(t, http.MethodPost, "/api/v1/auth/register", "", registerRequest{
		Email: "doc@clinic.test", Password: "doctor-pass", FullName: "Dr. Who", Phone: "+919800000002", LicenseNumber: "MCI-2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	doc := api.login(t, "doc@clinic.test", "doctor-pass")

	tests := []struct {
		name     string
		method   string
		path     string
		sid      string
		wantCode int
	}{
		{name: "cart without session", method: http.MethodGet, path: "/api/v1/cart", wantCode: http.StatusUnauthorized},
		{name: "unknown session", method: http.MethodGet, path: "/api/v1/me", sid: "nope", wantCode: http.StatusUnauthorized},
		{name: "doctor on admin route", method: http.MethodGet, path: "/api/v1/admin/doctors", sid: doc, wantCode: http.StatusForbidden},
		{name: "admin on doctor cart", method: http.MethodGet, path: "/api/v1/cart", sid: admin, wantCode: http.StatusForbidden},
		{name: "admin lists doctors", method: http.MethodGet, path: "/api/v1/admin/doctors?status=pending", sid: admin, wantCode: http.StatusOK},
		{name: "bad status filter", method: http.MethodGet, path: "/api/v1/admin/doctors?status=sleeping", sid: admin, wantCode: http.StatusBadRequest},
		{name: "bad limit", method: http.MethodGet, path: "/api/v1/orders?limit=ten", sid: doc, wantCode: http.StatusBadRequest},
		{name: "bad time", method: http.MethodGet, path: "/api/v1/ledger/statement?from=yesterday", sid: doc, wantCode: http.StatusBadRequest},
		{name: "unknown order", method: http.MethodGet, path: "/api/v1/orders/missing", sid: doc, wantCode: http.StatusNotFound},
		{name: "me", method: http.MethodGet, path: "/api/v1/me", sid: doc, wantCode: http.StatusOK},
		{name: "health", method: http.MethodGet, path: "/health", wantCode: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.sid, nil)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	t.Run("logout invalidates session", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/v1/auth/logout", doc, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = api.do(t, http.MethodGet, "/api/v1/me", doc, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAPI_ValidationErrors(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/v1/auth/register", "", registerRequest{
		Email: "doc@clinic.test", Password: "short", FullName: "Dr. Who", Phone: "+919800000002", LicenseNumber: "MCI-2",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorResponse](t, rec)
	assert.Equal(t, "password", body.Field)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"a@b.c","password":"x","extra":1}`))
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "ghost@clinic.test", Password: "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_AuthRateLimit(t *testing.T) {
	api := newTestAPI(t, ratelimit.NewMemoryLimiter(2, time.Hour))

	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "ghost@clinic.test", Password: fmt.Sprintf("attempt-%d", i)})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := api.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "ghost@clinic.test", Password: "attempt-3"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// каталог не ограничивается
	rec = api.do(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: &service.ValidationError{Field: "sku", Message: "is required"}, want: http.StatusBadRequest},
		{err: service.ErrEmptyOrder, want: http.StatusBadRequest},
		{err: service.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{err: service.ErrDoctorNotApproved, want: http.StatusForbidden},
		{err: fmt.Errorf("get order: %w", repository.ErrNotFound), want: http.StatusNotFound},
		{err: repository.ErrAlreadyExists, want: http.StatusConflict},
		{err: fmt.Errorf("product p1: %w", repository.ErrInsufficientStock), want: http.StatusConflict},
		{err: service.ErrCreditLimitExceeded, want: http.StatusConflict},
		{err: service.ErrInvalidStateTransition, want: http.StatusConflict},
		{err: repository.ErrVersionConflict, want: http.StatusConflict},
		{err: errors.New("connection reset"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
