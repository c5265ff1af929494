package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nikolayk812/ordermgr/internal/auth"
	"github.com/nikolayk812/ordermgr/internal/config"
	"github.com/nikolayk812/ordermgr/internal/events"
	"github.com/nikolayk812/ordermgr/internal/handlers"
	"github.com/nikolayk812/ordermgr/internal/lock"
	"github.com/nikolayk812/ordermgr/internal/observability"
	"github.com/nikolayk812/ordermgr/internal/repository"
	"github.com/nikolayk812/ordermgr/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(cfg.Auth, os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	baseLogger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("orderd")
	ctx = observability.WithLogger(ctx, logger)

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Fatal("invalid database url", zap.Error(err))
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := repository.ApplySchema(ctx, pool); err != nil {
		logger.Fatal("failed to apply schema", zap.Error(err))
	}

	orderRepo := repository.NewOrder(pool)
	itemRepo := repository.NewItem(pool)
	metrics := observability.NewMetrics()

	serviceOpts := []service.Option{
		service.WithLogger(logger.Named("orders")),
		service.WithRecorder(metrics),
	}

	if cfg.Lock.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.Lock.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()

		locker, err := lock.NewRedisLocker(client, cfg.Lock.TTL, cfg.Lock.Wait)
		if err != nil {
			logger.Fatal("failed to initialise order locker", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, service.WithLocker(locker))
		logger.Info("order locks enabled", zap.Duration("ttl", cfg.Lock.TTL))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		if err != nil {
			logger.Fatal("failed to initialise kafka publisher", zap.Error(err))
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("kafka publisher close error", zap.Error(err))
			}
		}()

		serviceOpts = append(serviceOpts, service.WithEventPublisher(publisher))
		logger.Info("order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.OrderTopic))
	}

	orderService, err := service.NewOrderService(orderRepo, itemRepo, serviceOpts...)
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	itemService, err := service.NewItemService(itemRepo, logger.Named("catalog"))
	if err != nil {
		logger.Fatal("failed to initialise item service", zap.Error(err))
	}

	authn, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("failed to initialise authenticator", zap.Error(err))
	}

	router, err := handlers.NewRouter(authn,
		handlers.WithLogger(logger.Named("http")),
		handlers.WithMetrics(metrics),
		handlers.WithHealth(handlers.NewHealthHandlers(pool)),
		handlers.WithOrders(handlers.NewOrderHandlers(orderService)),
		handlers.WithItems(handlers.NewItemHandlers(itemService, cfg.Catalog.Currency)),
		handlers.WithTimeout(cfg.Server.WriteTimeout),
	)
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	server := &http.Server{
		Addr:         net.JoinHostPort("", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("order service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("order service stopped", zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))
}

