package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/metrics"
)

// RouterConfig holds the router's cross-cutting settings.
type RouterConfig struct {
	APIKeys []string
	// MCP is mounted at MCPPath when non-nil.
	MCP     http.Handler
	MCPPath string
}

// NewRouter wires the middleware chain and every route.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chimw.RequestID)
	r.Use(WideEvent(s.logger))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})

	r.Post("/models", s.UploadModel)
	r.Post("/models/remote", s.LoadRemoteModel)
	r.Get("/models/current", s.GetCurrentModel)

	r.Get("/schema", s.GetSchema)
	r.Post("/query", s.Query)
	r.Post("/filter", s.Filter)
	r.Get("/elements/{expressID}", s.GetElement)
	r.Get("/export.csv", s.ExportCSV)

	r.Get("/view", s.GetView)
	r.Post("/view/reset", s.ResetView)

	r.Get("/usage", s.GetUsage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	if cfg.MCP != nil {
		path := cfg.MCPPath
		if path == "" {
			path = "/mcp"
		}
		s.logger.Info("MCP endpoint enabled", zap.String("path", path))
		r.Handle(path, cfg.MCP)
	}
	return r
}
