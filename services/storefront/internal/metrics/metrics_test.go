package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/orders/{id}", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInflight.WithLabelValues("GET")))
}

func TestBusinessCounters(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.OrderPlaced()
	m.OrderPlaced()
	m.OrderStatusChanged("cancelled")
	m.PaymentRecorded()
	m.OutboxPublished("pharma.orders", true)
	m.OutboxPublished("pharma.orders", false)
	require.NoError(t, m.RegisterGaugeFunc("realtime_subscribers", "Connected realtime subscribers", func() float64 { return 3 }))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orderStatusChanges.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboxPublished.WithLabelValues("pharma.orders", "failed")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "orders_placed_total 2")
	assert.Contains(t, string(body), "storefront_realtime_subscribers 3")
}
