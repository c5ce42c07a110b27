package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/repairshop-cart/internal/api"
	"github.com/nikolayk812/repairshop-cart/internal/cart"
	"github.com/nikolayk812/repairshop-cart/internal/catalog"
	"github.com/nikolayk812/repairshop-cart/internal/config"
	"github.com/nikolayk812/repairshop-cart/internal/logger"
	"github.com/nikolayk812/repairshop-cart/internal/port"
	"github.com/nikolayk812/repairshop-cart/internal/repository"
	"github.com/nikolayk812/repairshop-cart/internal/shutdown"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

func main() {
	if err := run(); err != nil {
		slog.Error("cartd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	log := logger.New(logger.Options{
		Service: "cartd",
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
	})
	if cfg.ConfigPath != "" {
		log.Info("config loaded", slog.String("path", cfg.ConfigPath))
	}

	unit, err := currency.ParseISO(cfg.Cart.Currency)
	if err != nil {
		return fmt.Errorf("currency.ParseISO[%s]: %w", cfg.Cart.Currency, err)
	}
	locale, err := language.Parse(cfg.Cart.Locale)
	if err != nil {
		return fmt.Errorf("language.Parse[%s]: %w", cfg.Cart.Locale, err)
	}

	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	slots, closeSlots, err := openSlots(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeSlots()

	shop := catalog.New(catalog.Config{
		BaseURL:         cfg.Catalog.BaseURL,
		Timeout:         cfg.Catalog.Timeout,
		BreakerFailures: cfg.Catalog.BreakerFailures,
		BreakerTimeout:  cfg.Catalog.BreakerTimeout,
	}, log)

	registry, err := api.NewRegistry(slots, api.RegistryConfig{
		Keys:            cart.Keys{Products: cfg.Cart.ProductsKey, Services: cfg.Cart.ServicesKey},
		Currency:        unit,
		Locale:          locale,
		MaxIdleSessions: cfg.Cart.MaxIdleSessions,
	}, log)
	if err != nil {
		return fmt.Errorf("api.NewRegistry: %w", err)
	}
	server := api.NewServer(registry, shop, api.Options{
		ShopPhone:      cfg.Cart.ShopPhone,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, log)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("cartd listening", slog.String("addr", cfg.HTTP.Addr), slog.String("backend", string(cfg.Storage.Backend)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("httpServer.ListenAndServe: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpServer.Shutdown: %w", err)
	}

	log.Info("cartd stopped")
	return nil
}

func openSlots(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (port.SlotStore, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendFile:
		slots, err := repository.NewFileSlots(cfg.File.Dir, cfg.File.MaxValueBytes)
		if err != nil {
			return nil, noop, fmt.Errorf("repository.NewFileSlots: %w", err)
		}
		return slots, noop, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("client.Ping: %w", err)
		}
		log.Info("redis ping succeeded", slog.String("addr", cfg.Redis.Addr))

		return repository.NewRedisSlots(client, cfg.Redis.TTL), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("pgxpool.New: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("pool.Ping: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := repository.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, noop, fmt.Errorf("repository.Migrate: %w", err)
			}
		}

		return repository.NewPostgresSlots(pool), pool.Close, nil

	default:
		log.Warn("memory backend selected, carts are lost on restart")
		return repository.NewMemorySlots(), noop, nil
	}
}
