package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vaultindex/internal/handlers"
	"vaultindex/internal/indexer"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine indexer.Engine
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	blocks := handlers.NewBlocksHandler(deps.Engine)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Engine))
		r.Method(http.MethodGet, "/search", handlers.NewSearchHandler(deps.Engine))
		r.Method(http.MethodPost, "/tasks", handlers.NewTaskHandler(deps.Engine))
		r.Method(http.MethodPost, "/index/rebuild", handlers.NewIndexHandler(deps.Engine))
		r.Method(http.MethodPost, "/index/wait", handlers.NewWaitHandler(deps.Engine))
		r.Method(http.MethodGet, "/backlinks", handlers.NewBacklinksHandler(deps.Engine))
		r.Method(http.MethodGet, "/stats", handlers.NewStatsHandler(deps.Engine))
		r.Get("/blocks", blocks.Search)
		r.Get("/blocks/{hash}/fanout", blocks.FanOut)
	})

	return r
}
