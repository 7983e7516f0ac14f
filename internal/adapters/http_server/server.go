package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Timeout     time.Duration
	CORSOrigins []string
}

type Server struct{ mux *chi.Mux }

func New(opts Options) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	m := chi.NewRouter()

	// All middlewares go here (before any routes are added)
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))
	m.Use(Timeout(opts.Timeout))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Router exposes the chi router for adapters that need the concrete type (Lambda proxy).
func (s *Server) Router() *chi.Mux { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
