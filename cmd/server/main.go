package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"coupang-review-harvester/internal/api"
	"coupang-review-harvester/internal/browser"
	"coupang-review-harvester/internal/config"
	"coupang-review-harvester/internal/crawler"
	"coupang-review-harvester/internal/database"
	"coupang-review-harvester/internal/etl"
	"coupang-review-harvester/internal/jobs"
	"coupang-review-harvester/internal/pipeline"
	"coupang-review-harvester/internal/ratelimit"
	"coupang-review-harvester/internal/report"
	"coupang-review-harvester/pkg/logger"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logg)
	logg.Info("starting review harvester server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logg.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := database.NewReviewStore(db)
	if err := store.CreateSchema(ctx); err != nil {
		logg.Error("failed to create schema", "error", err)
		os.Exit(1)
	}

	b, err := browser.New(&browser.Options{
		WSEndpoint:     cfg.Browser.WSEndpoint,
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		Locale:         cfg.Browser.Locale,
		TimezoneID:     cfg.Browser.TimezoneID,
		ProxyServer:    cfg.Proxy.Host,
		ProxyUsername:  cfg.Proxy.Username,
		ProxyPassword:  cfg.Proxy.Password,
	})
	if err != nil {
		logg.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	resolver := crawler.NewResolver(cfg.Crawler.SearchBaseURL, cfg.Crawler.ListSize, cfg.ProxyURL(), logg)
	settle := ratelimit.NewSettler(cfg.Crawler.SettleMin, cfg.Crawler.SettleMax)
	collector := crawler.NewCollector(settle, logg)
	harvester := crawler.NewHarvester(b, resolver, collector, logg)
	p := pipeline.New(harvester, etl.NewNormalizer(logg), store, logg)

	runs := jobs.NewManager(db, p, cfg.Redis.Stream, logg)
	go runs.StartWorker(ctx)

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		defer redisClient.Close()

		relay := database.NewRelay(db, redisClient, logg, database.RelayConfig{})
		go relay.Start(ctx)
	}

	handlers := api.NewHandlers(runs, store, report.NewGenerator(), logg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Route("/api", handlers.Routes)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logg.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error("http server failed", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logg.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error("server shutdown failed", "error", err)
	}
	cancel()
}
