package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ikrcommerce/ikr-backend/api/controllers"
	webhookcontrollers "github.com/ikrcommerce/ikr-backend/api/controllers/webhooks"
	"github.com/ikrcommerce/ikr-backend/api/middleware"
	"github.com/ikrcommerce/ikr-backend/internal/cart"
	"github.com/ikrcommerce/ikr-backend/internal/catalog"
	checkoutsvc "github.com/ikrcommerce/ikr-backend/internal/checkout"
	"github.com/ikrcommerce/ikr-backend/internal/coupons"
	"github.com/ikrcommerce/ikr-backend/internal/orders"
	"github.com/ikrcommerce/ikr-backend/internal/payments"
	mpesawebhook "github.com/ikrcommerce/ikr-backend/internal/webhooks/mpesa"
	"github.com/ikrcommerce/ikr-backend/pkg/config"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
	"github.com/ikrcommerce/ikr-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter assembles the HTTP surface: public catalog browsing, the
// session cart, the authenticated checkout/orders/payments flows, the
// staff admin surface, and the M-Pesa callback.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database pinger,
	redisClient *redis.Client,
	catalogService catalog.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	couponsService coupons.Service,
	ordersService orders.Service,
	paymentsService payments.Service,
	webhookService *mpesawebhook.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	var cachePinger pinger
	if redisClient != nil {
		cachePinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(database, cachePinger, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mpesa", webhookcontrollers.MpesaCallback(webhookService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(catalogService, logg))
		r.Get("/products/{slug}", controllers.GetProduct(catalogService, logg))
		r.Get("/categories", controllers.ListCategories(catalogService, logg))
		r.Get("/categories/{slug}", controllers.GetCategory(catalogService, logg))
		r.Post("/coupons/validate", controllers.ValidateCoupon(couponsService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session())

			r.Get("/cart", controllers.GetCart(cartService, logg))
			r.Post("/cart/items", controllers.AddCartItem(cartService, logg))
			r.Patch("/cart/items/{productID}", controllers.UpdateCartItem(cartService, logg))
			r.Delete("/cart/items/{productID}", controllers.RemoveCartItem(cartService, logg))
			r.Delete("/cart", controllers.ClearCart(cartService, logg))

			r.With(middleware.Auth(cfg.JWT, logg)).Post("/checkout", controllers.Checkout(checkoutService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/orders", controllers.ListOrders(ordersService, logg))
			r.Get("/orders/{id}", controllers.GetOrder(ordersService, logg))

			paymentPolicy := middleware.NewRateLimitPolicy(
				"payment",
				cfg.RateLimit.PaymentWindow,
				cfg.RateLimit.PaymentIPLimit,
			)
			limiter := middleware.RateLimit(paymentPolicy, nil, logg)
			if redisClient != nil {
				limiter = middleware.RateLimit(paymentPolicy, redisClient, logg)
			}
			r.With(limiter).Post("/orders/{orderID}/payments", controllers.InitiatePayment(paymentsService, logg))
			r.Get("/orders/{orderID}/payments/latest", controllers.PollPayment(paymentsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireAdmin(logg))

		r.Post("/categories", controllers.AdminCreateCategory(catalogService, logg))
		r.Post("/products", controllers.AdminCreateProduct(catalogService, logg))
		r.Patch("/products/{id}", controllers.AdminUpdateProduct(catalogService, logg))
		r.Delete("/products/{id}", controllers.AdminDeleteProduct(catalogService, logg))
		r.Delete("/variants/{id}", controllers.AdminDeleteVariant(catalogService, logg))
		r.Post("/orders/{id}/transition", controllers.AdminTransitionOrder(ordersService, logg))
	})

	return r
}
