package api

import (
	"context"
	"net/http"
	"time"

	"cardscout/cardworker/logger"
	"cardscout/cardworker/services/store"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
)

const (
	// interactiveTimeout bounds single-page scrape and store-read requests
	interactiveTimeout = 60 * time.Second
	// bulkTimeout bounds category-walk requests, which fetch many pages
	// sequentially with a fixed delay between them
	bulkTimeout = 9 * time.Minute
)

// Server wraps the HTTP server and its router
type Server struct {
	srv *http.Server
	log *logger.Logger
}

// NewServer assembles the router. Authenticated routes live under /v1; the
// health check and stored images are public.
func NewServer(addr string, h *Handler, keys store.APIKeyStore) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", apiKeyHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Get("/images/{filename}", h.serveImage)

	authMW := newAuth(keys)
	limiter := newKeyRateLimiter()

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW.middleware)
		r.Use(limiter.middleware)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(interactiveTimeout))

			r.Get("/scrape/search", h.searchSource)
			r.Post("/scrape/card", h.scrapeCard(""))
			r.Get("/scrape/card/{slug}", h.scrapeBySlug)
			r.Post("/scrape/update/{cardId}", h.refreshCard)

			r.Post("/scrape/ratehub/card", h.scrapeCard("ratehub"))
			r.Get("/scrape/ratehub/categories", h.listCategories("ratehub"))

			r.Get("/cards/{slug}", h.getCard)
			r.Get("/cards", h.listCards)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(bulkTimeout))

			r.Post("/scrape/bulk", h.bulkImport(""))
			r.Post("/scrape/ratehub/bulk", h.bulkImport("ratehub"))
			r.Post("/scrape/ratehub/import-all", h.importAll("ratehub"))
		})
	})

	return &Server{
		srv: &http.Server{
			Addr:    addr,
			Handler: r,
			// generous write timeout: bulk imports stream nothing until done
			ReadTimeout:  30 * time.Second,
			WriteTimeout: bulkTimeout + 30*time.Second,
			IdleTimeout:  120 * time.Second,
		},
		log: logger.ForAPI(),
	}
}

// Handler exposes the assembled router
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start runs the server until it fails or is shut down
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
