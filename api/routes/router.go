package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lukamarin/gearbox-backend/api/controllers"
	"github.com/lukamarin/gearbox-backend/api/middleware"
	"github.com/lukamarin/gearbox-backend/internal/catalog"
	"github.com/lukamarin/gearbox-backend/internal/inventory"
	"github.com/lukamarin/gearbox-backend/internal/jobs"
	"github.com/lukamarin/gearbox-backend/internal/notifications"
	"github.com/lukamarin/gearbox-backend/pkg/config"
	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
	"github.com/lukamarin/gearbox-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	metricsRegistry *prometheus.Registry,
	catalogService catalog.Service,
	inventoryService inventory.Service,
	jobsService jobs.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.WorkshopContext(logg))

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", controllers.BrowseFolder(catalogService, logg))
			r.Post("/", controllers.CreateFolder(catalogService, logg))
			r.Patch("/{folderId}", controllers.RenameFolder(catalogService, logg))
			r.Post("/{folderId}/move", controllers.MoveFolder(catalogService, logg))
			r.Delete("/{folderId}", controllers.DeleteFolder(catalogService, logg))
		})

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", controllers.ListParts(inventoryService, logg))
			r.Post("/", controllers.CreatePart(inventoryService, logg))
			r.Post("/recalculate", controllers.RecalculateInventory(inventoryService, logg))
			r.Get("/{partId}", controllers.GetPart(inventoryService, logg))
			r.Patch("/{partId}", controllers.UpdatePart(inventoryService, logg))
			r.Delete("/{partId}", controllers.DeletePart(inventoryService, logg))
			r.Post("/{partId}/recalculate", controllers.RecalculatePart(inventoryService, logg))
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", controllers.ListJobs(jobsService, logg))
			r.Post("/", controllers.CreateJob(jobsService, logg))
			r.Get("/{jobId}", controllers.GetJob(jobsService, logg))
			r.Patch("/{jobId}", controllers.UpdateJob(jobsService, logg))
			r.Delete("/{jobId}", controllers.DeleteJob(jobsService, logg))
		})

		r.Delete("/orders/{orderId}/jobs", controllers.DeleteOrderJobs(jobsService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
