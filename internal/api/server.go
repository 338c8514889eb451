// Package api exposes the dashboard REST endpoints.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pulseboard/sentiment-monitor/internal/config"
	"github.com/pulseboard/sentiment-monitor/internal/monitoring"
	"github.com/rs/cors"
)

// Server routes HTTP requests to the monitoring service
type Server struct {
	config  *config.Config
	service *monitoring.Service
	router  *mux.Router
}

func NewServer(cfg *config.Config, service *monitoring.Service) *Server {
	s := &Server{
		config:  cfg,
		service: service,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(logRequests)

	s.router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.metricsHandler).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)

	api.HandleFunc("/comments", s.listComments).Methods(http.MethodGet)
	api.HandleFunc("/comments", s.createComment).Methods(http.MethodPost)
	api.HandleFunc("/analyze", s.analyze).Methods(http.MethodPost)
	api.HandleFunc("/snapshots", s.snapshots).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.summary).Methods(http.MethodGet)
	api.HandleFunc("/authors", s.authors).Methods(http.MethodGet)
	api.HandleFunc("/suggestions", s.suggestions).Methods(http.MethodGet)
	api.HandleFunc("/topic-breakdown", s.topicBreakdown).Methods(http.MethodGet)
	api.HandleFunc("/geo", s.geo).Methods(http.MethodGet)
	api.HandleFunc("/config", s.getConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", s.updateConfig).Methods(http.MethodPut)
	api.HandleFunc("/report/digest", s.triggerDigest).Methods(http.MethodPost)
	api.HandleFunc("/collect", s.collect).Methods(http.MethodPost)
	api.HandleFunc("/report/{kind:pdf|excel|infographic}", s.reportStub).Methods(http.MethodPost)
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}
