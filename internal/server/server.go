// Package server exposes the map dashboard over HTTP: configuration, the
// static data proxy, and per-session state with its resolved view.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/placemap/internal/config"
	"github.com/sells-group/placemap/internal/dashboard"
	"github.com/sells-group/placemap/internal/dataproxy"
	"github.com/sells-group/placemap/internal/monitoring"
	"github.com/sells-group/placemap/internal/orchestrator"
)

// Server holds the handler dependencies.
type Server struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	sessions *dashboard.Sessions
	proxy    *dataproxy.Proxy
	metrics  *monitoring.Metrics
}

// New creates a Server. proxy and metrics may be nil; their routes are then
// not mounted.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, sessions *dashboard.Sessions, proxy *dataproxy.Proxy, metrics *monitoring.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		orch:     orch,
		sessions: sessions,
		proxy:    proxy,
		metrics:  metrics,
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestLogger)
	if s.metrics != nil {
		r.Use(instrument(s.metrics))
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(chimw.Timeout(60 * time.Second))

		api.Get("/config", s.handleConfig)
		api.Get("/industries", s.handleIndustries)
		if s.proxy != nil {
			api.Get("/data/{slug}", s.proxy.ServeHTTP)
		}

		api.Post("/sessions", s.handleCreateSession)
		api.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.Use(s.withSession)

			sr.Get("/", s.handleGetSession)
			sr.Delete("/", s.handleDeleteSession)
			sr.Post("/selection", s.handleToggleSelection)
			sr.Put("/home-zipcodes", s.handleShowHomeZipcodes)
			sr.Patch("/customer-analysis", s.handleCustomerAnalysis)
			sr.Patch("/place-analysis", s.handlePlaceAnalysis)
			sr.Put("/places-visibility", s.handlePlacesVisibility)
			sr.Put("/tooltip", s.handleSetTooltip)
			sr.Delete("/tooltip", s.handleClearTooltip)
			sr.Put("/map-view", s.handleMapView)
			sr.Put("/competitor-mode", s.handleCompetitorMode)
			sr.Get("/view", s.handleView)
			sr.Get("/status", s.handleStatus)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// configResponse is what a map client needs to render tiles.
type configResponse struct {
	AccessToken string `json:"accessToken"`
	StyleURL    string `json:"styleUrl"`
	MyPlaceID   string `json:"myPlaceId"`
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	if err := s.cfg.Map.Validate(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{
		AccessToken: s.cfg.Map.AccessToken,
		StyleURL:    s.cfg.Map.StyleURL,
		MyPlaceID:   s.orch.MyPlaceID(),
	})
}

func (s *Server) handleIndustries(w http.ResponseWriter, r *http.Request) {
	industries, err := s.orch.FetchIndustries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if industries == nil {
		industries = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"industries": industries})
}
