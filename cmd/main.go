package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/auth"
	"github.com/ukydev/service-center/internal/config"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/events"
	"github.com/ukydev/service-center/internal/routes"
	"github.com/ukydev/service-center/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := db.ConnectMongo(connectCtx, cfg.Mongo.URI)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	logger.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")

	database := client.Database(cfg.Mongo.Database)
	if err := db.EnsureIndexes(connectCtx, database); err != nil {
		return err
	}

	publisher := newPublisher(cfg.MQTT, logger)
	defer publisher.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	handler := routes.NewHandler(routes.Deps{
		Stores:        db.NewStores(database),
		Auth:          auth.NewService(cfg.JWT.Secret, cfg.JWT.Expiry),
		Objects:       newObjectStore(connectCtx, cfg.Storage, logger),
		Publisher:     publisher,
		Location:      loc,
		Logger:        logger,
		AuthRateLimit: cfg.Server.AuthRateLimit,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}

func newLogger(cfg config.LogConfig) *log.Logger {
	logger := log.StandardLogger()
	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// newPublisher connects to the MQTT broker, falling back to a no-op
// publisher when none is configured or it cannot be reached.
func newPublisher(cfg config.MQTTConfig, logger *log.Logger) events.Publisher {
	if cfg.Broker == "" {
		logger.Info("MQTT broker not configured, change events disabled")
		return events.Noop{}
	}
	publisher, err := events.NewMQTTPublisher(cfg)
	if err != nil {
		logger.WithError(err).Warn("MQTT unavailable, change events disabled")
		return events.Noop{}
	}
	logger.WithField("broker", cfg.Broker).Info("Publishing change events")
	return publisher
}

// newObjectStore returns nil when object storage is not configured or not
// reachable; photo uploads are then refused.
func newObjectStore(ctx context.Context, cfg config.StorageConfig, logger *log.Logger) storage.ObjectStore {
	store, err := storage.NewMinioStore(ctx, cfg)
	if errors.Is(err, storage.ErrNotConfigured) {
		logger.Info("Object storage not configured, photo uploads disabled")
		return nil
	}
	if err != nil {
		logger.WithError(err).Warn("Object storage unavailable, photo uploads disabled")
		return nil
	}
	return store
}
