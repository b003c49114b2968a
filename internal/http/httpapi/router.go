// Package httpapi mounts the API handlers on a chi router.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"story-shorts/internal/http/handlers"
	"story-shorts/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/stats", app.Stats)

		r.Post("/pipeline/run", app.RunPipeline)

		r.Route("/scheduler", func(r chi.Router) {
			r.Post("/start", app.StartScheduler)
			r.Get("/status", app.SchedulerStatus)
		})

		r.Route("/content", func(r chi.Router) {
			r.Get("/", app.ListContent)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetContent)
				r.Delete("/", app.DeleteContent)
				r.Post("/publish", app.PublishContent)
				r.Get("/download", app.DownloadContent)
				r.Get("/story", app.StoryPage)
			})
		})
	})

	return r
}
