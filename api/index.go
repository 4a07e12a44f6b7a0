package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/adapters/geoip"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/adapters/handler"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/config"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/colors"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/services"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/logging"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Note: On Vercel, db.sqlite is ephemeral unless using a remote SQL/Turso URL in DATABASE_URL
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}

	locator, err := geoip.Open(cfg.GeoIPDatabase)
	if err != nil {
		logging.Warn().Err(err).Msg("geoip database unavailable, visits won't be located")
	}

	service := services.NewLinkService(repo,
		services.WithLocator(locator),
		services.WithIPHashSalt(cfg.IPHashSalt),
		services.WithPageSize(cfg.DefaultPageSize))
	tagService := services.NewTagService(repo, colors.NewGenerator(repo.TagColors()))
	ruleService := services.NewRedirectRuleService(repo)

	mux = handler.NewRouter(cfg, service, tagService, ruleService)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
