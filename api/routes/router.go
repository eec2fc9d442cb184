// Package routes assembles the HTTP surface.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printforge/quickorder-backend/api/controllers"
	"github.com/printforge/quickorder-backend/api/controllers/quickorder"
	"github.com/printforge/quickorder-backend/api/middleware"
	"github.com/printforge/quickorder-backend/internal/materials"
	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/internal/uploads"
	"github.com/printforge/quickorder-backend/pkg/logger"
	"github.com/printforge/quickorder-backend/pkg/session"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger          *logger.Logger
	Sessions        *session.Manager
	Registry        *pipeline.Registry
	Uploader        *uploads.Client
	Materials       materials.Service
	Health          map[string]controllers.Pinger
	MetricsGatherer prometheus.Gatherer
	AllowedOrigins  []string
}

// New builds the chi router with the full middleware stack.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.Recoverer(deps.Logger))

	r.Get("/health/live", controllers.Live())
	r.Get("/health/ready", controllers.Ready(deps.Health))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", controllers.StartSession(deps.Sessions, deps.Logger))
		r.Get("/materials", controllers.ListMaterials(deps.Materials, deps.Logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(deps.Sessions, deps.Logger))

			r.Route("/pipeline", func(r chi.Router) {
				r.Get("/", quickorder.State(deps.Registry, deps.Logger))
				r.Post("/step", quickorder.GoToStep(deps.Registry, deps.Logger))

				r.Post("/files", quickorder.UploadFile(deps.Registry, deps.Uploader, deps.Materials, deps.Logger))
				r.Delete("/files/{fileID}", quickorder.RemoveFile(deps.Registry, deps.Logger))
				r.Patch("/files/{fileID}/settings", quickorder.UpdateSettings(deps.Registry, deps.Logger))
				r.Post("/files/{fileID}/settings/reset", quickorder.ResetSettings(deps.Registry, deps.Materials, deps.Logger))
				r.Post("/files/{fileID}/fallback/accept", quickorder.AcceptFallback(deps.Registry, deps.Logger))

				r.Post("/orientation/current", quickorder.SetOrienting(deps.Registry, deps.Logger))
				r.Post("/orientation/apply", quickorder.ApplyOrientation(deps.Registry, deps.Logger))
				r.Post("/orientation/lock", quickorder.LockOrientation(deps.Registry, deps.Logger))

				r.Post("/prepare", quickorder.PrepareFiles(deps.Registry, deps.Logger))
				r.Post("/price", quickorder.ComputePrice(deps.Registry, deps.Logger))
				r.Put("/address", quickorder.SetAddress(deps.Registry, deps.Logger))
				r.Get("/wallet", quickorder.WalletBalance(deps.Registry, deps.Logger))
				r.Post("/checkout", quickorder.Checkout(deps.Registry, deps.Logger))

				r.Route("/draft", func(r chi.Router) {
					r.Get("/", quickorder.PendingDraft(deps.Registry, deps.Logger))
					r.Post("/resume", quickorder.ResumeDraft(deps.Registry, deps.Logger))
					r.Delete("/", quickorder.DiscardDraft(deps.Registry, deps.Logger))
					r.Post("/flush", quickorder.FlushDraft(deps.Registry, deps.Logger))
				})
			})
		})
	})

	return r
}
