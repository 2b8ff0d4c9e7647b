package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"attendtrack/internal/api"
	"attendtrack/internal/app"
	"attendtrack/internal/auth"
	"attendtrack/internal/config"
	"attendtrack/internal/httpmiddleware"
	"attendtrack/internal/logger"
	"attendtrack/internal/roster"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component("api")

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}()

	storage, err := app.Archive(cfg.Archive)
	if err != nil {
		return err
	}
	if storage == nil {
		log.Info().Msg("roster archive disabled")
	} else {
		log.Info().Str("backend", cfg.Archive.Backend).Msg("roster archive configured")
	}

	if cfg.QueueBackend == "memory" {
		if err := a.StartConsumer(ctx, logger.Component("queue_consumer")); err != nil {
			return err
		}
		log.Info().Msg("memory queue, enqueued jobs are dispatched in process")
	}

	login := auth.NewStaffLogin(cfg.StaffUsername, cfg.StaffPassHash)
	if !login.Enabled() {
		log.Warn().Msg("STAFF_PASSWORD_HASH not set, staff login disabled")
	}

	health := map[string]api.HealthCheck{"db": a.DB.Healthy}
	if a.Redis != nil {
		health["redis"] = a.Redis.Healthy
	}

	srv := api.NewServer(api.Deps{
		Students:  a.Students,
		Analytics: a.Analytics,
		Notify:    a.Notify,
		Importer:  roster.NewImporter(a.Students, storage, logger.Component("roster")),
		Sweeper:   a.Sweeper,
		Audit:     a.Repo,
		Queue:     a.Queue,
		Signer:    auth.NewSigner(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL),
		Login:     login,
		Health:    health,
		Log:       logger.Component("http"),
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger.Component("http"), "/healthz", "/metrics"))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.Instrument())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())
	srv.Register(r)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("starting server")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced shutdown")
	}
	log.Info().Msg("server exited")
	return nil
}

// corsConfig allows every origin without credentials for "*", otherwise
// exactly the listed origins with credentials.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       24 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
