package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjannette/vitanova-gold/internal/api"
	"github.com/kjannette/vitanova-gold/internal/cache"
	"github.com/kjannette/vitanova-gold/internal/config"
	"github.com/kjannette/vitanova-gold/internal/db"
	"github.com/kjannette/vitanova-gold/internal/external"
	"github.com/kjannette/vitanova-gold/internal/notifications"
	"github.com/kjannette/vitanova-gold/internal/pricing"
	"github.com/kjannette/vitanova-gold/internal/repository"
	"github.com/kjannette/vitanova-gold/internal/scheduler"
	"github.com/kjannette/vitanova-gold/internal/stream"
)

const banner = `
╔══════════════════════════════════════╗
║     VitaNova Gold Price API v1.0     ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	deps := api.Deps{}

	// Orders database (optional)
	if cfg.OrdersEnabled() {
		fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
		pool, err := db.Connect(cfg.DSN())
		if err != nil {
			fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			pool.Close()
			fmt.Println("[DB] Connection pool closed")
		}()

		if err := db.EnsureSchema(context.Background(), pool); err != nil {
			fmt.Fprintf(os.Stderr, "[DB] %v\n", err)
			os.Exit(1)
		}
		deps.Orders = repository.NewOrderRepo(pool)
		deps.DB = pool
	} else {
		fmt.Println("[DB] Skipped - orders disabled")
	}

	// History cache (optional; the API works without it)
	var historyCache *cache.HistoryCache
	if cfg.CacheEnabled() {
		historyCache, err = cache.NewHistoryCache(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.HistoryCacheTTL(),
		})
		if err != nil {
			fmt.Printf("[CACHE] Disabled: %v\n", err)
			historyCache = nil
		} else {
			defer historyCache.Close()
			deps.Cache = historyCache
			fmt.Printf("[CACHE] Connected to %s (ttl %s)\n", cfg.RedisAddr, cfg.HistoryCacheTTL())
		}
	}

	notify := notifications.NewSender(cfg.WebhookURL, cfg.AppName)
	if notify.Enabled() {
		fmt.Println("[NOTIFY] Webhook notices enabled")
	} else {
		fmt.Println("[NOTIFY] No WEBHOOK_URL, notices go to stdout only")
	}
	hub := stream.NewHub(cfg.CORSAllowOrigin)
	deps.Stream = hub

	priceLog := repository.NewPriceLog(repository.PriceLogConfig{
		DailyPath:     cfg.DailyLogPath(),
		MonthlyPath:   cfg.MonthlyLogPath(),
		MarkerPath:    cfg.MarkerPath(),
		Location:      cfg.Location,
		PegRate:       cfg.USDToAEDRate,
		GramsPerOunce: cfg.GramsPerOunce,
	})

	apised := external.NewApisedClient(external.ApisedConfig{
		BaseURL:         cfg.ApisedBaseURL,
		APIKey:          cfg.ApisedAPIKey,
		Timeout:         cfg.FetchTimeout(),
		RateLimitPerMin: cfg.FetchRateLimitPerMin,
	})

	opts := pricing.Options{
		Source:      external.ApisedSource,
		Location:    cfg.Location,
		Broadcaster: hub,
		Notifier:    notify,
	}
	if historyCache != nil {
		opts.Cache = historyCache
	}
	svc := pricing.NewService(apised, priceLog, opts)
	deps.Prices = svc

	var poller *scheduler.PricePoller
	if cfg.PollInterval() > 0 {
		poller = scheduler.NewPricePoller(svc, scheduler.PollerConfig{
			Interval:  cfg.PollInterval(),
			Timeout:   cfg.FetchTimeout() + 5*time.Second,
			OnFailing: notify.FetchFailing,
		})
		deps.Poller = poller
	}

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. API server
	srv := api.NewServer(deps, api.Options{
		Port:       cfg.APIPort,
		APIKey:     cfg.APIKey,
		CORSOrigin: cfg.CORSAllowOrigin,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Price poller (optional)
	if poller != nil {
		poller.Start()
	} else {
		fmt.Println("[POLLER] Skipped - POLL_INTERVAL_SECONDS not set")
	}

	fmt.Println("\nAll services started successfully")

	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	if poller != nil {
		poller.Stop()
	}
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
