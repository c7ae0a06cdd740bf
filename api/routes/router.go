package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teakline/storefront-backend/api/controllers"
	"github.com/teakline/storefront-backend/api/middleware"
	"github.com/teakline/storefront-backend/internal/cart"
	checkoutsvc "github.com/teakline/storefront-backend/internal/checkout"
	"github.com/teakline/storefront-backend/internal/coupons"
	"github.com/teakline/storefront-backend/internal/orders"
	"github.com/teakline/storefront-backend/internal/payments"
	"github.com/teakline/storefront-backend/pkg/config"
	"github.com/teakline/storefront-backend/pkg/enums"
	"github.com/teakline/storefront-backend/pkg/logger"
	pkgredis "github.com/teakline/storefront-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config           *config.Config
	Logger           *logger.Logger
	IdempotencyStore pkgredis.IdempotencyStore
	ReadyChecks      map[string]controllers.Pinger

	CartService     cart.Service
	CouponsService  coupons.Service
	CheckoutService checkoutsvc.Service
	PaymentsService payments.Service
	OrdersService   orders.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.ReadyChecks))
	})
	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/ping", controllers.PublicPing())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Get("/checkout/cart", controllers.CartPreview(deps.CartService, logg))
		r.Post("/checkout", controllers.Checkout(deps.CheckoutService, logg))

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/available", controllers.CouponsAvailable(deps.CouponsService, logg))
			r.Post("/apply", controllers.CouponApply(deps.CouponsService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/intent", controllers.PaymentIntent(deps.PaymentsService, logg))
			r.Post("/verify", controllers.PaymentVerify(deps.PaymentsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.OrdersService, logg))
			r.Get("/{orderID}", controllers.OrderDetail(deps.OrdersService, logg))
			r.Post("/{orderID}/cancel", controllers.OrderCancel(deps.OrdersService, logg))
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
			r.Post("/{orderID}/status", controllers.AdminOrderStatus(deps.OrdersService, logg))
			r.Post("/{orderID}/cancel", controllers.AdminOrderCancel(deps.OrdersService, logg))
			r.Post("/{orderID}/mark-paid", controllers.AdminOrderMarkPaid(deps.OrdersService, logg))
		})
	})

	return r
}
