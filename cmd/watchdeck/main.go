package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/watchdeck/internal/accounts"
	appconfig "github.com/example/watchdeck/internal/config"
	"github.com/example/watchdeck/internal/handlers"
	"github.com/example/watchdeck/internal/omdb"
	"github.com/example/watchdeck/internal/orchestrator"
	"github.com/example/watchdeck/internal/platform/analytics"
	"github.com/example/watchdeck/internal/platform/auth"
	"github.com/example/watchdeck/internal/platform/config"
	"github.com/example/watchdeck/internal/platform/db"
	"github.com/example/watchdeck/internal/platform/httpserver"
	"github.com/example/watchdeck/internal/platform/logging"
	"github.com/example/watchdeck/internal/platform/natsconn"
	"github.com/example/watchdeck/internal/platform/run"
	"github.com/example/watchdeck/internal/proxy"
	"github.com/example/watchdeck/internal/watchlist"
)

const cacheInvalidationSubject = "cache.invalidate"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	appCfg, err := appconfig.Load()
	if err != nil {
		log.Error("load app config", zap.Error(err))
		run.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx)
	if err != nil {
		log.Error("open database", zap.Error(err))
		run.Exit(1)
	}
	defer pool.Close()

	accountsStore := accounts.NewPostgresStore(pool)
	if err := accountsStore.EnsureSchema(ctx); err != nil {
		log.Error("accounts schema", zap.Error(err))
		run.Exit(1)
	}
	listStore := watchlist.NewPostgresStore(pool)
	if err := listStore.EnsureSchema(ctx); err != nil {
		log.Error("watchlist schema", zap.Error(err))
		run.Exit(1)
	}

	// NATS is optional: without it analytics is a no-op and cache
	// invalidation stays instance-local.
	var nc *nats.Conn
	var js nats.JetStreamContext
	if appCfg.NATSURL != "" {
		nc, err = natsconn.Connect(natsconn.Options{URL: appCfg.NATSURL})
		if err != nil {
			log.Error("nats connect", zap.Error(err))
			run.Exit(1)
		}
		defer nc.Close()
		if js, err = nc.JetStream(); err != nil {
			log.Warn("jetstream unavailable, analytics disabled", zap.Error(err))
		}
	}
	ap := analytics.New(js, log)
	cache := handlers.NewTTLCache(appCfg.TrendingTTLSec, nc, cacheInvalidationSubject)

	authSvc := &accounts.Service{
		Store: accountsStore,
		Tokens: accounts.Tokens{
			Secret:          appCfg.JWTSecret,
			AccessTokenTTL:  appCfg.AccessTokenTTL,
			RefreshTokenTTL: appCfg.RefreshTokenTTL,
		},
	}
	verifier := auth.JWTVerifier{Secret: appCfg.JWTSecret}

	// The upstream client stays nil without a key; the proxy endpoint then
	// answers 500 per request instead of the process refusing to start.
	var movies *omdb.Client
	if appCfg.OmdbAPIKey != "" {
		movies = omdb.New(appCfg.OmdbBaseURL, appCfg.OmdbAPIKey)
	} else {
		log.Warn("OMDB_API_KEY not set, movie lookups disabled")
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)

	// The proxy endpoint answers CORS itself (echo-or-fallback), so it is
	// mounted outside the API group; the allow-list middleware would
	// otherwise intercept its preflight.
	omdbProxy := &proxy.Handler{
		Log:            log,
		Verifier:       verifier,
		AllowedOrigins: appCfg.AllowedOrigins,
	}
	if movies != nil {
		omdbProxy.Upstream = movies
	}
	r.Method(http.MethodGet, "/omdb-proxy", omdbProxy)
	r.Method(http.MethodOptions, "/omdb-proxy", omdbProxy)

	api := chi.NewRouter()
	api.Use(httpserver.CORS(appCfg.AllowedOrigins))

	api.Post("/auth/register", handlers.Register(authSvc, ap))
	api.Post("/auth/login", handlers.Login(authSvc, ap))
	api.Post("/auth/refresh", handlers.Refresh(authSvc))
	api.Post("/auth/logout", handlers.Logout(authSvc))

	api.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))

		r.Get("/me", handlers.Me(accountsStore))

		var movieAPI orchestrator.MovieAPI
		if movies != nil {
			movieAPI = movies
		}
		r.Get("/search", handlers.Search(movieAPI, ap))
		r.Get("/trending", handlers.Trending(movieAPI, cache))
		r.Get("/series/{imdb_id}/random-episode", handlers.RandomEpisode(movieAPI))

		r.Get("/watchlist", handlers.ListWatchlist(listStore, cache))
		r.Post("/watchlist", handlers.AddToWatchlist(listStore, cache, ap))
		r.Get("/watchlist/stats", handlers.WatchlistStats(listStore))
		r.Delete("/watchlist/{imdb_id}", handlers.RemoveFromWatchlist(listStore, cache, ap))
		r.Put("/watchlist/{imdb_id}/rating", handlers.RateEntry(listStore, cache, ap))
		r.Put("/watchlist/{imdb_id}/status", handlers.SetEntryStatus(listStore, cache, ap))
	})
	r.Mount("/v1", api)

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}
