package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sheikh-saqib/balance-ledger/internal/config"
	"github.com/sheikh-saqib/balance-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/balance-ledger/internal/ledger"
	"github.com/sheikh-saqib/balance-ledger/internal/rates"
	"github.com/sheikh-saqib/balance-ledger/internal/server"
	"github.com/sheikh-saqib/balance-ledger/internal/storage"
	"github.com/sheikh-saqib/balance-ledger/internal/storage/gormstore"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := storage.Open(ctx, storage.Config{
		Driver:  cfg.Store.Driver,
		DSN:     cfg.Store.DSN,
		Migrate: cfg.Store.Migrate,
		Gorm: gormstore.Config{
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
			LogLevel:        cfg.Store.LogLevel,
		},
	}, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []ledger.Option{ledger.WithLogger(logger)}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		opts = append(opts, ledger.WithPublisher(publisher))
		logger.Info("publishing transaction events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	var cache rates.TableCache
	if cfg.Redis.Addr != "" {
		client, err := rates.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("rate cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cache = rates.NewRedisCache(client, cfg.Redis.TTL)
		}
	}
	cbr := rates.NewCBRClient(cfg.Rates.URL, cfg.Rates.Timeout, logger)
	opts = append(opts, ledger.WithRateSource(rates.NewService(cbr, cache, logger)))

	l := ledger.NewLedger(store, opts...)
	srv := server.NewServer(l, server.NewMetrics(), logger, server.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
