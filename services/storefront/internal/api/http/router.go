package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformhealth "github.com/byteracerx/upkar-pharma-orders-sub001/platform/health/http"
	platformobservability "github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/api/http/middleware"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/authctx"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/metrics"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/ratelimit"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/realtime"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// RouterDeps зависимости роутера помимо Handler. Metrics и AuthLimiter необязательны.
type RouterDeps struct {
	Hub           *realtime.Hub
	AuthLimiter   ratelimit.Limiter
	Metrics       *metrics.Metrics
	HealthChecks  []platformhealth.Check
	HealthTimeout time.Duration
	Heartbeat     time.Duration
}

// NewRouter собирает HTTP API storefront.
// Доступ: каталог публичный (сессия опциональна), cart/orders/ledger только врач, /admin только администратор.
func NewRouter(handler *Handler, deps RouterDeps, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	// trace context + span на каждый запрос, logger с trace_id в контексте
	router.Use(platformobservability.HTTPMiddleware("storefront", logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
	}

	optionalSession := middleware.WithSession(handler.accounts, false, logger)
	requiredSession := middleware.WithSession(handler.accounts, true, logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if deps.AuthLimiter != nil {
					r.Use(middleware.RateLimit(deps.AuthLimiter, logger))
				}
				r.Post("/register", handler.Register)
				r.Post("/login", handler.Login)
			})
			r.With(requiredSession).Post("/logout", handler.Logout)
		})

		r.With(requiredSession).Get("/me", handler.Me)

		r.Group(func(r chi.Router) {
			r.Use(optionalSession)
			r.Get("/products", handler.ListProducts)
			r.Get("/products/{id}", handler.GetProduct)
		})

		if deps.Hub != nil {
			r.With(requiredSession).Get("/realtime", realtime.SSEHandler(deps.Hub, sessionFilter, deps.Heartbeat, logger))
		}

		// врач и администратор: доступ к чужому заказу проверяет service
		r.With(requiredSession).Get("/orders/{id}", handler.GetOrder)

		r.Group(func(r chi.Router) {
			r.Use(requiredSession)
			r.Use(middleware.RequireRole(repository.RoleDoctor))

			r.Get("/cart", handler.GetCart)
			r.Delete("/cart", handler.ClearCart)
			r.Put("/cart/items/{productID}", handler.SetCartItem)
			r.Delete("/cart/items/{productID}", handler.RemoveCartItem)

			r.Post("/orders", handler.PlaceOrder)
			r.Get("/orders", handler.ListOrders)
			r.Post("/orders/{id}/cancel", handler.CancelOrder)

			r.Get("/ledger/balance", handler.Balance)
			r.Get("/ledger/statement", handler.Statement)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requiredSession)
			r.Use(middleware.RequireRole(repository.RoleAdmin))

			r.Route("/doctors", func(r chi.Router) {
				r.Get("/", handler.ListDoctors)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", handler.GetDoctor)
					r.Post("/approve", handler.ApproveDoctor)
					r.Post("/reject", handler.RejectDoctor)
					r.Post("/suspend", handler.SuspendDoctor)
					r.Put("/credit-limit", handler.SetCreditLimit)
					r.Get("/balance", handler.DoctorBalance)
					r.Get("/ledger", handler.DoctorLedger)
					r.Get("/reconciliation", handler.Reconciliation)
					r.Post("/payments", handler.RecordPayment)
					r.Post("/adjustments", handler.Adjust)
				})
			})

			r.Post("/products", handler.CreateProduct)
			r.Put("/products/{id}", handler.UpdateProduct)
			r.Post("/products/{id}/stock", handler.AdjustStock)

			r.Get("/orders", handler.ListOrders)
			r.Patch("/orders/{id}/status", handler.UpdateOrderStatus)
		})
	})

	// health и metrics без сессии
	router.Get("/health", platformhealth.Handler(deps.HealthTimeout, deps.HealthChecks...))
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return router
}

// sessionFilter врач видит свои строки и каталог, администратор всё
func sessionFilter(r *http.Request) (realtime.Filter, bool) {
	acc, ok := authctx.AccountFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return realtime.ForAccount(acc.ID, acc.Role == repository.RoleAdmin), true
}
