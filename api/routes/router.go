package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visionkart/storefront-backend/api/controllers"
	"github.com/visionkart/storefront-backend/api/middleware"
	"github.com/visionkart/storefront-backend/pkg/config"
	"github.com/visionkart/storefront-backend/pkg/logger"
	"github.com/visionkart/storefront-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Cart       controllers.CartService
	Checkout   controllers.CheckoutService
	Orders     controllers.OrderSource
	Addresses  controllers.AddressBook
	Reconciler controllers.Reconciler
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	commerceP controllers.Pinger,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisClient, commerceP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, cfg.Checkout.IdempotencyTTL, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svcs.Cart, logg))
			r.Delete("/", controllers.CartClear(svcs.Cart, logg))
			r.Route("/lines", func(r chi.Router) {
				r.Post("/", controllers.CartAddLines(svcs.Cart, logg))
				r.Patch("/", controllers.CartUpdateLines(svcs.Cart, logg))
				r.Delete("/", controllers.CartRemoveLines(svcs.Cart, logg))
			})
		})

		r.Route("/identity", func(r chi.Router) {
			r.Get("/", controllers.IdentityFetch(svcs.Cart, logg))
			r.With(middleware.RequireIdentity(logg)).Post("/", controllers.IdentitySignIn(svcs.Cart, logg))
			r.Delete("/", controllers.IdentitySignOut(svcs.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutBegin(svcs.Checkout, svcs.Cart, logg))
			r.Get("/", controllers.CheckoutFetch(svcs.Checkout, svcs.Cart, logg))
			r.Delete("/", controllers.CheckoutCancel(svcs.Checkout, logg))
			r.Post("/address", controllers.CheckoutSubmitAddress(svcs.Checkout, svcs.Cart, logg))
			r.Get("/rates", controllers.CheckoutRates(svcs.Checkout, logg))
			r.Post("/rate", controllers.CheckoutSelectRate(svcs.Checkout, svcs.Cart, logg))
			r.With(middleware.RequireIdentity(logg)).Post("/customer", controllers.CheckoutAssociateCustomer(svcs.Checkout, svcs.Cart, logg))
			r.Post("/payment", controllers.CheckoutPresentPayment(svcs.Checkout, logg))
			r.Post("/payment/return", controllers.CheckoutPaymentReturn(svcs.Checkout, svcs.Cart, logg))
		})

		r.Post("/app/foreground", controllers.AppForeground(svcs.Reconciler, svcs.Cart, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity(logg))
			r.Get("/orders", controllers.OrdersList(svcs.Orders, logg))
			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressesList(svcs.Addresses, logg))
				r.Post("/", controllers.AddressCreate(svcs.Addresses, logg))
				r.Put("/{addressID}", controllers.AddressUpdate(svcs.Addresses, logg))
				r.Delete("/{addressID}", controllers.AddressDelete(svcs.Addresses, logg))
				r.Post("/{addressID}/default", controllers.AddressSetDefault(svcs.Addresses, logg))
			})
		})
	})

	return r
}
