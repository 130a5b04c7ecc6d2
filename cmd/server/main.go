package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/temirkhan/gist_registry/internal/config"
	"github.com/temirkhan/gist_registry/internal/db"
	"github.com/temirkhan/gist_registry/internal/handler"
	"github.com/temirkhan/gist_registry/internal/middleware"
	"github.com/temirkhan/gist_registry/internal/schema"
	"github.com/temirkhan/gist_registry/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	registry := schema.NewRegistry()
	if err := registry.Load(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to load schema registry")
	}
	log.Info().Int("schemas", registry.SchemaCount()).Msg("schema registry loaded")

	router := mux.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.ContentType)

	handler.New(store.New(pool), registry, cfg).Register(router)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down...")
		srv.Shutdown(context.Background())
	}()

	log.Info().Str("addr", cfg.Addr()).Msg("listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
}
