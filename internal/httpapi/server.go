// Package httpapi exposes analysis, the station registry and the irradiance
// archive over HTTP.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"curtailwatch/internal/config"
	"curtailwatch/internal/engine"
	"curtailwatch/internal/fetcher"
	"curtailwatch/internal/storage"
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Engine *engine.Engine
	// Defaults seed every analyze request before the request options apply.
	Defaults   engine.Options
	Stations   storage.StationStore
	Irradiance fetcher.IrradianceFetcher
	// AccessLog receives one line per request in Apache combined format.
	AccessLog io.Writer
	Now       func() time.Time
}

// Server serves the HTTP API.
type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	logger zerolog.Logger
}

// NewServer constructs a Server.
func NewServer(cfg config.ServerConfig, deps Deps, logger zerolog.Logger) *Server {
	if deps.Engine == nil {
		deps.Engine = engine.New(logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 50 << 20
	}
	return &Server{cfg: cfg, deps: deps, logger: logger.With().Str("component", "httpapi").Logger()}
}

// Router registers every route.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/analyze", s.analyze).Methods(http.MethodPost)
	api.HandleFunc("/stations", s.listStations).Methods(http.MethodGet)
	api.HandleFunc("/stations", s.upsertStation).Methods(http.MethodPost)
	api.HandleFunc("/stations/{name}", s.deleteStation).Methods(http.MethodDelete)
	api.HandleFunc("/weather/irradiance", s.irradiance).Methods(http.MethodGet)

	return r
}

// Handler wraps the router with CORS and access logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = handlers.CORS(
		handlers.AllowedOrigins(s.cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	if s.deps.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(s.deps.AccessLog, h)
	}
	return h
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("http api stopped")
	return nil
}
