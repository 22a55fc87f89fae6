package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baanfurniture/storefront-backend/api/controllers"
	cartcontrollers "github.com/baanfurniture/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/baanfurniture/storefront-backend/api/controllers/orders"
	"github.com/baanfurniture/storefront-backend/api/middleware"
	"github.com/baanfurniture/storefront-backend/internal/cart"
	"github.com/baanfurniture/storefront-backend/internal/orders"
	"github.com/baanfurniture/storefront-backend/internal/pricing"
	"github.com/baanfurniture/storefront-backend/pkg/config"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	"github.com/baanfurniture/storefront-backend/pkg/logger"
	"github.com/baanfurniture/storefront-backend/pkg/redis"
)

// NewRouter mounts the storefront API. redisClient may be nil, in which case
// idempotency replay is disabled and readiness skips the redis check.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	pricingService pricing.Service,
	cartService cart.Service,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readyDeps := map[string]controllers.Pinger{"db": dbP}
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		readyDeps["redis"] = redisClient
		idemStore = redisClient
	}

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readyDeps, logg))
	})
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleCustomer))
		r.Use(middleware.Idempotency(idemStore, cfg.Redis.IdemTTL, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Get(cartService, logg))
			r.Delete("/", cartcontrollers.Clear(cartService, logg))
			r.Put("/items", cartcontrollers.UpsertItem(cartService, logg))
			r.Delete("/items", cartcontrollers.RemoveItem(cartService, logg))
		})
		r.Get("/products/{productId}/pricing", controllers.ProductPricing(pricingService, logg))
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersService, logg))
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.Put("/cancel/{orderId}", ordercontrollers.Cancel(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		r.Use(middleware.Idempotency(idemStore, cfg.Redis.IdemTTL, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(ordersService, logg))
			r.Post("/", ordercontrollers.AdminCreate(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.AdminDetail(ordersService, logg))
			r.Put("/{orderId}/status", ordercontrollers.AdminSetStatus(ordersService, logg))
			r.Put("/approve/{orderId}", ordercontrollers.AdminApprove(ordersService, logg))
			r.Put("/reject/{orderId}", ordercontrollers.AdminReject(ordersService, logg))
			r.Put("/advance/{orderId}", ordercontrollers.AdminAdvance(ordersService, logg))
			r.Put("/{orderId}/installments/{number}/paid", ordercontrollers.AdminMarkInstallmentPaid(ordersService, logg))
		})
	})

	return r
}
