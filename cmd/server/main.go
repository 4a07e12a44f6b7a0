package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/adapters/geoip"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/adapters/handler"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/config"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/colors"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/services"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Initialize Repository
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()

	locator, err := geoip.Open(cfg.GeoIPDatabase)
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.GeoIPDatabase).Msg("geoip database unavailable, visits won't be located")
	}
	defer locator.Close()

	// Initialize Services
	service := services.NewLinkService(repo,
		services.WithLocator(locator),
		services.WithIPHashSalt(cfg.IPHashSalt),
		services.WithPageSize(cfg.DefaultPageSize))
	tagService := services.NewTagService(repo, colors.NewGenerator(repo.TagColors()))
	ruleService := services.NewRedirectRuleService(repo)

	// Initialize Router
	mux := handler.NewRouter(cfg, service, tagService, ruleService)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
	logging.Info().Msg("server stopped")
}
