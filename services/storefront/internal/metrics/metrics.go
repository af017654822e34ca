// Package metrics Prometheus метрики storefront: HTTP, бизнес-счётчики, outbox, пул Postgres.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics набор коллекторов сервиса; регистрируется в собственном registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	ordersPlaced       prometheus.Counter
	orderStatusChanges *prometheus.CounterVec
	paymentsRecorded   prometheus.Counter
	outboxPublished    *prometheus.CounterVec
}

// New создаёт и регистрирует метрики
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "In-flight HTTP requests",
		}, []string{"method"}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders placed by doctors",
		}),
		orderStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_changes_total",
			Help: "Order status transitions by target status",
		}, []string{"status"}),
		paymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payments_recorded_total",
			Help: "Payments recorded against doctor credit",
		}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_total",
			Help:      "Outbox events publish attempts by result",
		}, []string{"topic", "result"}), // result: sent|failed
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpInflight,
		m.ordersPlaced,
		m.orderStatusChanges,
		m.paymentsRecorded,
		m.outboxPublished,
	} {
		if err := m.register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// register игнорирует повторную регистрацию
func (m *Metrics) register(c prometheus.Collector) error {
	if err := m.registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// Handler отдаёт /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry для тестов и дополнительных коллекторов
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware считает запросы по шаблону маршрута chi (а не по сырому пути с id)
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		m.httpInflight.WithLabelValues(method).Inc()
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			m.httpInflight.WithLabelValues(method).Dec()

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(ww, r)
	})
}

// OrderPlaced +1 заказ
func (m *Metrics) OrderPlaced() { m.ordersPlaced.Inc() }

// OrderStatusChanged +1 переход в status
func (m *Metrics) OrderStatusChanged(status string) {
	m.orderStatusChanges.WithLabelValues(status).Inc()
}

// PaymentRecorded +1 оплата
func (m *Metrics) PaymentRecorded() { m.paymentsRecorded.Inc() }

// OutboxPublished результат публикации события outbox
func (m *Metrics) OutboxPublished(topic string, ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.outboxPublished.WithLabelValues(topic, result).Inc()
}

// RegisterGaugeFunc значение, вычисляемое при scrape (подписчики realtime и т.п.)
func (m *Metrics) RegisterGaugeFunc(name, help string, fn func() float64) error {
	return m.register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// RegisterPool статистика пула соединений Postgres
func (m *Metrics) RegisterPool(pool *pgxpool.Pool) error {
	return m.register(newPoolCollector(pool))
}

type poolCollector struct {
	pool *pgxpool.Pool

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
	maxDesc      *prometheus.Desc
}

func newPoolCollector(pool *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc(namespace+"_pgxpool_acquired", "Acquired Postgres connections", nil, nil),
		idleDesc:     prometheus.NewDesc(namespace+"_pgxpool_idle", "Idle Postgres connections", nil, nil),
		totalDesc:    prometheus.NewDesc(namespace+"_pgxpool_total", "Total Postgres connections", nil, nil),
		maxDesc:      prometheus.NewDesc(namespace+"_pgxpool_max", "Max Postgres connections", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
	ch <- c.maxDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.maxDesc, prometheus.GaugeValue, float64(stat.MaxConns()))
}
