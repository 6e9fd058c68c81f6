package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tablewise-app/tablewise-backend/api/controllers"
	cartcontrollers "github.com/tablewise-app/tablewise-backend/api/controllers/cart"
	"github.com/tablewise-app/tablewise-backend/api/middleware"
	cartsvc "github.com/tablewise-app/tablewise-backend/internal/cart"
	"github.com/tablewise-app/tablewise-backend/internal/engine"
	"github.com/tablewise-app/tablewise-backend/pkg/config"
	"github.com/tablewise-app/tablewise-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	manager *engine.Manager,
	rates cartsvc.Rates,
	redisP controllers.Pinger,
	mongoP controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisP, mongoP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.Session(logg))
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/", cartcontrollers.CartFetch(manager, rates, logg))
		r.Delete("/", cartcontrollers.CartClear(manager, rates, logg))
		r.Post("/items", cartcontrollers.CartAddItem(manager, rates, logg))
		r.Patch("/items/{itemId}", cartcontrollers.CartUpdateQuantity(manager, rates, logg))
		r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(manager, rates, logg))
		r.Post("/promo", cartcontrollers.CartApplyPromo(manager, rates, logg))
		r.Delete("/promo", cartcontrollers.CartRemovePromo(manager, rates, logg))
	})

	return r
}
