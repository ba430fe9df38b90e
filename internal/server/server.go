package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newspulse/analytics/internal/database"
	"newspulse/analytics/internal/related"
	"newspulse/analytics/internal/server/api"
	"newspulse/analytics/internal/storage"
	"newspulse/analytics/internal/tfidf"
	"newspulse/analytics/internal/wordcloud"
	"newspulse/analytics/internal/workpool"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Deps bundles the analysis components the HTTP layer exposes.
type Deps struct {
	DB            *database.DB
	Extractor     *tfidf.Extractor
	Generator     *wordcloud.Generator
	Pool          *workpool.Pool
	WordcloudRoot string
}

// NewRouter builds the route table with logging and request tracking
// middleware attached.
func NewRouter(deps Deps, logger zerolog.Logger) http.Handler {
	repo := storage.NewRepository(deps.DB)
	scorer := related.NewScorer(repo)
	handler := api.NewHandler(repo, deps.Extractor, scorer, deps.Generator, deps.Pool, deps.WordcloudRoot)

	r := chi.NewRouter()
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.MethodHandler("method"))
	r.Use(hlog.URLHandler("url"))
	r.Use(hlog.RemoteAddrHandler("remote_addr"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
		idReq, _ := hlog.IDFromRequest(req)

		hlog.FromRequest(req).Info().
			Str("method", req.Method).
			Stringer("url", req.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("req_id", idReq.String()).
			Msg("HTTP Request")
	}))

	r.Get("/health", healthCheckHandler)
	r.Get("/api/analysis/tfidf", handler.GetTopTerms)
	r.Get("/api/analysis/wordcloud", handler.RenderWordclouds)
	r.Get("/api/analysis/wordcloud/latest", handler.GetLatestWordcloud)
	r.Get("/api/news/{newsID}/related", handler.GetRelatedNews)
	r.Get("/api/search/news", handler.SearchNews)

	return r
}

// RunServer starts the HTTP server with graceful shutdown support.
// It sets up routes, middleware, and handles OS signals for clean termination.
func RunServer(deps Deps, listenAddr string, logger zerolog.Logger) error {
	// Add service identifier to the logger
	logger = logger.With().Str("service", "analytics-api").Logger()

	h := NewRouter(deps, logger)

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Fatal().Err(err).Msg("Server failed to start")

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	logger.Info().Msg("Server exiting.")
	return nil
}

// healthCheckHandler responds to health check requests with a simple 200 OK.
// This endpoint is used by monitoring systems to verify the service is operational.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Health check request received")

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("Error writing health check response")
	}
}
