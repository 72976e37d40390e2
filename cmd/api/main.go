// Command api runs the courier service HTTP and websocket server.
//
// @title                       Courier Service API
// @version                     1.0
// @description                 Shipment lifecycle, pricing and live AWB tracking.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/rs/zerolog"

	_ "github.com/dipto-roy/courier-service-sub002/docs"
	"github.com/dipto-roy/courier-service-sub002/internal/api"
	"github.com/dipto-roy/courier-service-sub002/internal/api/handler"
	"github.com/dipto-roy/courier-service-sub002/internal/core/geo"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
	"github.com/dipto-roy/courier-service-sub002/internal/core/pricing"
	"github.com/dipto-roy/courier-service-sub002/internal/core/service"
	"github.com/dipto-roy/courier-service-sub002/internal/core/tracking"
	"github.com/dipto-roy/courier-service-sub002/internal/infrastructure/db/memory"
	mongostore "github.com/dipto-roy/courier-service-sub002/internal/infrastructure/db/mongo"
	redisstore "github.com/dipto-roy/courier-service-sub002/internal/infrastructure/db/redis"
	"github.com/dipto-roy/courier-service-sub002/internal/infrastructure/messaging"
	"github.com/dipto-roy/courier-service-sub002/internal/infrastructure/messaging/kafka"
	"github.com/dipto-roy/courier-service-sub002/internal/infrastructure/queue"
	"github.com/dipto-roy/courier-service-sub002/internal/infrastructure/ws"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/config"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/keylock"
	"github.com/dipto-roy/courier-service-sub002/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type stores struct {
	shipments ports.ShipmentRepository
	locations ports.LocationRepository
	cache     ports.LocationCache
	dedup     ports.DedupChecker
	health    map[string]handler.Pinger
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "courier-service",
	})

	res := newResources(log)
	defer res.closeAll()

	st, err := openStores(ctx, cfg, res, log)
	if err != nil {
		return err
	}

	// --- Notification channel ---
	var sink ports.Notifier = messaging.NewLogSink(logger.Component("notifications"))
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		kafkaSink := kafka.NewNotificationSink(producer, cfg.Kafka.NotificationTopic)
		res.add("kafka", func(context.Context) error { return kafkaSink.Close() })
		sink = kafkaSink
	}
	notifications := queue.NewNotificationQueue(cfg.Dispatch.Workers, sink, log)

	// --- Core ---
	hub := tracking.NewHub(tracking.Config{
		QueueSize:   cfg.Tracking.QueueSize,
		SendTimeout: cfg.Tracking.WriteTimeout,
	}, logger.Component("tracking"))

	hours, err := cfg.Pricing.BusinessHours()
	if err != nil {
		return err
	}
	var pricingOpts []pricing.Option
	if hours != nil {
		pricingOpts = append(pricingOpts, pricing.WithBusinessHours(*hours))
	}

	locks := keylock.New()
	estimator := geo.NewEstimator()
	engine := pricing.NewEngine(pricingOpts...)

	shipments := service.NewShipmentService(st.shipments, estimator, engine, locks, logger.Component("shipments"))
	lifecycle := service.NewLifecycleService(st.shipments, hub, notifications, locks, logger.Component("lifecycle"),
		service.WithMaxDeliveryAttempts(cfg.Lifecycle.MaxDeliveryAttempts))
	locations := service.NewLocationService(st.locations, hub, logger.Component("locations"),
		service.WithLocationCache(st.cache),
		service.WithETA(st.shipments, estimator, cfg.Location.DefaultSpeedKmh))
	events := service.NewEventService(lifecycle, st.dedup, logger.Component("events"))

	// --- Workers ---
	// Registered after the stores, so workers are stopped before any store closes.
	bg := newWorkers()
	defer bg.stop()

	eventQueue := queue.NewEventDispatcher(cfg.Dispatch.Workers, events, log)
	bg.run(func(ctx context.Context) {
		eventQueue.Start(ctx)
		eventQueue.Wait()
	})
	bg.run(func(ctx context.Context) {
		notifications.Start(ctx)
		notifications.Wait()
	})
	if cfg.AMQP.URL != "" {
		consumer := queue.NewLocationConsumer(cfg.AMQP.URL, cfg.AMQP.LocationQueue, locations, logger.Component("amqp"))
		bg.run(consumer.Run)
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		JWTSecret: cfg.JWTSecret,
		Shipments: shipments,
		Lifecycle: lifecycle,
		Locations: locations,
		Events:    eventQueue,
		Tracking:  hub,
		TrackingWS: ws.NewServer(hub, locations, ws.Config{
			WriteTimeout: cfg.Tracking.WriteTimeout,
			PingPeriod:   cfg.Tracking.PingPeriod,
			PongWait:     cfg.Tracking.PongWait,
		}, logger.Component("ws")),
		Health: st.health,
		Log:    log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage).Msg("courier service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		serveErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	hub.Close()
	bg.stop()

	if serveErr == nil {
		log.Info().Msg("courier service stopped")
	}
	return serveErr
}

func openStores(ctx context.Context, cfg *config.Config, res *resources, log zerolog.Logger) (*stores, error) {
	st := &stores{health: map[string]handler.Pinger{}}

	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		st.shipments = memory.NewShipmentRepository()
		st.locations = memory.NewLocationRepository(0)
	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		res.add("mongodb", client.Disconnect)
		st.health["mongodb"] = mongostore.Pinger{Client: client}

		shipments := mongostore.NewShipmentRepository(db)
		locations := mongostore.NewLocationRepository(db, cfg.Location.Retention)
		if err := shipments.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		if err := locations.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		st.shipments, st.locations = shipments, locations
	}

	if cfg.Redis.Addr == "" {
		log.Warn().Msg("REDIS_ADDR not set; event dedup disabled and rider positions kept in memory")
		st.cache = memory.NewLocationCache()
		return st, nil
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	res.add("redis", func(context.Context) error { return rdb.Close() })
	st.health["redis"] = redisstore.Pinger{Client: rdb}
	st.dedup = redisstore.NewDedupChecker(rdb)
	st.cache = redisstore.NewLocationCache(rdb, cfg.Location.PositionTTL)
	return st, nil
}
