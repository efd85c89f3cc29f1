package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/config"
	"github.com/iliyamo/flight-reservation/internal/database"
	"github.com/iliyamo/flight-reservation/internal/handler"
	"github.com/iliyamo/flight-reservation/internal/logging"
	"github.com/iliyamo/flight-reservation/internal/queue"
	"github.com/iliyamo/flight-reservation/internal/repository"
	"github.com/iliyamo/flight-reservation/internal/router"
	"github.com/iliyamo/flight-reservation/internal/service"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == database.DriverSQLite {
		return database.OpenSQLite(cfg.SQLitePath)
	}
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

func run(cfg config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.AMQPURL, logger)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	flights := repository.NewFlightRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)

	catalog := service.NewFlightService(flights, seats, bookings, logger)
	generator := service.NewSeatGenerator(db, flights, seats, logger)
	booking := service.NewBookingService(db, users, flights, seats, bookings, events, logger)
	cancellation := service.NewCancellationService(db, flights, seats, bookings, events, logger)
	scheduler := service.NewJourneyScheduler(db, flights, bookings, cfg.SchedulerInterval, logger)

	scheduler.SetHoldExpiry(func(ctx context.Context) (int, error) {
		return booking.ExpireHolds(ctx, cfg.HoldTTL)
	})
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.ConsumerEnabled {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.AuditLogDir, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("audit consumer stopped")
			}
		}()
	}

	e := router.New(router.Deps{
		Cfg:      cfg,
		DB:       db,
		Redis:    rdb,
		Log:      logger,
		Auth:     handler.NewAuthHandler(cfg, users, tokens, logger),
		Flights:  handler.NewFlightHandler(catalog, logger),
		Bookings: handler.NewBookingHandler(booking, cancellation, logger),
		Admin:    handler.NewAdminHandler(catalog, generator, scheduler, logger),
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "db": cfg.DBDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
