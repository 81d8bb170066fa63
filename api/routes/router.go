package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalamandir/kalamandir-backend/api/controllers"
	webhookcontrollers "github.com/kalamandir/kalamandir-backend/api/controllers/webhooks"
	"github.com/kalamandir/kalamandir-backend/api/middleware"
	"github.com/kalamandir/kalamandir-backend/internal/orders"
	"github.com/kalamandir/kalamandir-backend/internal/orphans"
	"github.com/kalamandir/kalamandir-backend/internal/reconcile"
	"github.com/kalamandir/kalamandir-backend/internal/sweep"
	razorpaywebhook "github.com/kalamandir/kalamandir-backend/internal/webhooks/razorpay"
	"github.com/kalamandir/kalamandir-backend/pkg/config"
	"github.com/kalamandir/kalamandir-backend/pkg/db"
	"github.com/kalamandir/kalamandir-backend/pkg/enums"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
	"github.com/kalamandir/kalamandir-backend/pkg/razorpay"
	"github.com/kalamandir/kalamandir-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	Gateway        *razorpay.Client
	Reconciler     *reconcile.Service
	WebhookGuard   *razorpaywebhook.IdempotencyGuard
	Orders         orders.Service
	Orphans        orphans.Repository
	OrphanSweeper  *sweep.OrphanSweeper
	TimeoutSweeper *sweep.TimeoutSweeper
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/razorpay", webhookcontrollers.RazorpayWebhook(deps.Reconciler, deps.Gateway, deps.WebhookGuard, logg))
		r.Post("/payments/verify", controllers.VerifyPayment(deps.Gateway, logg))
		r.Post("/checkout", controllers.Checkout(deps.Orders, logg))
		r.Get("/orders/{orderId}", controllers.OrderDetail(deps.Orders, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.StaffRoleAdmin), logg))

		r.Post("/sweeps/orphans", controllers.AdminSweepOrphans(deps.OrphanSweeper, logg))
		r.Post("/sweeps/timeouts", controllers.AdminSweepTimeouts(deps.TimeoutSweeper, logg))
		r.Get("/orphans", controllers.AdminListOrphans(deps.Orphans, logg))
		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
			r.Delete("/", controllers.AdminTrashOrder(deps.Orders, logg))
		})
	})

	return r
}
