package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"stusave.app/config"
	"stusave.app/internal/api"
	"stusave.app/internal/crypto"
	"stusave.app/internal/discovery"
	"stusave.app/internal/exchange"
	"stusave.app/internal/logging"
	"stusave.app/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "stusave-server:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	st, err := initStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ids, err := crypto.NewGenerator(cfg.Transfer.IDAlphabet, cfg.Transfer.IDLength)
	if err != nil {
		return err
	}
	svc := exchange.NewService(st, ids,
		exchange.Config{TTL: cfg.Transfer.TTL, MaxAttempts: cfg.Transfer.MaxIDAttempts},
		exchange.WithLogger(logger),
	)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.SetupRouter(svc, cfg, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			"addr", cfg.Addr(),
			"base_url", cfg.Server.BaseURL,
			"store", cfg.Store.Type,
			"ttl", cfg.Transfer.TTL,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Discovery.Enabled {
		g.Go(func() error {
			err := discovery.Announce(ctx, discovery.Service{
				Name:    cfg.Discovery.Instance,
				Type:    cfg.Discovery.Service,
				Port:    cfg.Server.Port,
				BaseURL: cfg.Server.BaseURL,
			}, logger)
			if err != nil {
				// the exchange works without mDNS
				logger.Warn("mDNS announcement failed", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func initStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	opts := []store.Option{
		store.WithLogger(logger),
		store.WithKeyPrefix(cfg.Store.Redis.KeyPrefix),
	}

	switch cfg.Store.Type {
	case "redis":
		st, err := store.NewRedisStore(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return st, nil
	default:
		return store.NewMemoryStore(cfg.Transfer.SweepInterval, opts...), nil
	}
}
