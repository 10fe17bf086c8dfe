package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/northwest-community/marketplace-backend/api/controllers"
	"github.com/northwest-community/marketplace-backend/api/middleware"
	checkoutsvc "github.com/northwest-community/marketplace-backend/internal/checkout"
	"github.com/northwest-community/marketplace-backend/internal/ledger"
	"github.com/northwest-community/marketplace-backend/internal/listings"
	"github.com/northwest-community/marketplace-backend/internal/offers"
	"github.com/northwest-community/marketplace-backend/internal/orders"
	"github.com/northwest-community/marketplace-backend/internal/shipping"
	"github.com/northwest-community/marketplace-backend/pkg/config"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/metrics"
	pkgredis "github.com/northwest-community/marketplace-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Health   map[string]controllers.Pinger
	Redis    pkgredis.IdempotencyStore
	Limiter  middleware.WriteLimiter
	Registry *prometheus.Registry
	HTTP     *metrics.HTTPMetrics

	Checkout checkoutsvc.Service
	Orders   orders.Service
	Ledger   ledger.Service
	Shipping shipping.Service
	Offers   offers.Service
	Listings listings.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTP),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/listings/{listingId}", controllers.ListingDetail(deps.Listings, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.WriteRateLimit(middleware.DefaultWriteRateLimitPolicy(), deps.Limiter, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(deps.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
				r.Post("/{orderId}/deliver", controllers.OrderDeliver(deps.Orders, logg))
			})

			r.Route("/offers", func(r chi.Router) {
				r.Get("/", controllers.OfferList(deps.Offers, logg))
				r.Post("/", controllers.OfferSubmit(deps.Offers, logg))
			})

			r.Route("/seller", func(r chi.Router) {
				r.Get("/orders", controllers.SellerOrderList(deps.Orders, logg))
				r.Post("/orders/{orderId}/refund", controllers.SellerOrderRefund(deps.Orders, logg))

				r.Post("/shipping/rates", controllers.ShippingRates(deps.Shipping, logg))
				r.Post("/shipping/labels", controllers.ShippingLabelPurchase(deps.Shipping, logg))

				r.Route("/balance", func(r chi.Router) {
					r.Get("/", controllers.SellerBalanceDetail(deps.Ledger, logg))
					r.Get("/transactions", controllers.SellerBalanceTransactions(deps.Ledger, logg))
					r.Post("/payouts", controllers.SellerPayoutCreate(deps.Ledger, logg))
				})

				r.Route("/offers", func(r chi.Router) {
					r.Get("/", controllers.SellerOfferList(deps.Offers, logg))
					r.Post("/{offerId}/decision", controllers.SellerOfferDecision(deps.Offers, logg))
				})

				r.Route("/listings", func(r chi.Router) {
					r.Get("/", controllers.SellerListingList(deps.Listings, logg))
					r.Post("/", controllers.ListingCreate(deps.Listings, logg))
					r.Patch("/{listingId}", controllers.ListingUpdate(deps.Listings, logg))
				})
			})
		})
	})

	return r
}
