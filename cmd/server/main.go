package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/iliyamo/hotel-backoffice/internal/config"
	"github.com/iliyamo/hotel-backoffice/internal/database"
	"github.com/iliyamo/hotel-backoffice/internal/handler"
	"github.com/iliyamo/hotel-backoffice/internal/middleware"
	"github.com/iliyamo/hotel-backoffice/internal/model"
	"github.com/iliyamo/hotel-backoffice/internal/queue"
	"github.com/iliyamo/hotel-backoffice/internal/repository"
	"github.com/iliyamo/hotel-backoffice/internal/repository/bootstrap"
	"github.com/iliyamo/hotel-backoffice/internal/router"
	"github.com/iliyamo/hotel-backoffice/internal/service"
)

func main() {
	log := logrus.New()
	app := &cli.App{
		Name:  "hotel-backoffice",
		Usage: "guest service order pipeline",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: func(c *cli.Context) error { return serve(c.Context, log) },
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "down", Usage: "roll back every migration"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := setup(log)
					if err != nil {
						return err
					}
					if !cfg.DatabaseConfigured() {
						return errors.New("DB_HOST is not set")
					}
					return database.Migrate(cfg, c.Bool("down"), log)
				},
			},
			{
				Name:   "seed",
				Usage:  "copy bootstrap rooms, customers and staff into the database",
				Action: func(c *cli.Context) error { return seed(c.Context, log) },
			},
			{
				Name:   "consume-events",
				Usage:  "append guest order events to the order log",
				Action: func(c *cli.Context) error { return consume(c.Context, log) },
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("exit")
	}
}

// setup loads configuration and applies the logging settings.
func setup(log *logrus.Logger) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.Env != "dev" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return cfg, nil
}

// openStores returns mirror-only stores when no database is configured.
func openStores(ctx context.Context, cfg config.Config, log *logrus.Logger) (*repository.Stores, *sqlx.DB, error) {
	seedData := bootstrap.New(cfg.BcryptCost)
	if !cfg.DatabaseConfigured() {
		log.Warn("DB_HOST not set; serving from the in-process mirror")
		return repository.NewStores(nil, seedData, log), nil, nil
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Ping(ctx, db); err != nil {
		log.WithError(err).Warn("database unreachable at startup; requests will fall back to the mirror")
	}
	stores := repository.NewStores(db, seedData, log)
	stores.SetAttemptTimeout(cfg.StoreAttemptTimeout)
	return stores, db, nil
}

func serve(ctx context.Context, log *logrus.Logger) error {
	cfg, err := setup(log)
	if err != nil {
		return err
	}
	stores, db, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = service.NewRabbitPublisher(cfg.RabbitURL, log)
	}
	routing := model.Routing{LegacyServiceText: cfg.LegacyServiceTypeRouting}
	orders := service.NewOrderService(stores, routing, events, log)

	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return err
	}
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		return err
	}
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		log.Warn("redis unavailable; guest rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
				"ip":      v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	router.RegisterRoutes(e, router.Handlers{
		Health:     handler.NewHealthHandler(stores.Health),
		Auth:       handler.NewAuthHandler(stores.Staff, cfg.JWTSecret, cfg.AccessTTLMin, cfg.StoreTimeout, log),
		Orders:     handler.NewOrderHandler(orders, cfg.StoreTimeout, log),
		Rooms:      handler.NewEntityHandler(stores.Rooms, cfg.StoreTimeout, log),
		Customers:  handler.NewEntityHandler(stores.Customers, cfg.StoreTimeout, log),
		JWTSecret:  cfg.JWTSecret,
		GuestLimit: middleware.NewTokenBucket(rlCfg, rdb, log),
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": stores.Health.Mode()}).Info("listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func seed(ctx context.Context, log *logrus.Logger) error {
	cfg, err := setup(log)
	if err != nil {
		return err
	}
	if !cfg.DatabaseConfigured() {
		return errors.New("DB_HOST is not set")
	}
	stores, db, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Ping(ctx, db); err != nil {
		return errors.Wrap(err, "database unreachable")
	}
	n, err := stores.SeedDurable(ctx)
	if err != nil {
		return err
	}
	log.WithField("inserted", n).Info("seed complete")
	return nil
}

func consume(ctx context.Context, log *logrus.Logger) error {
	cfg, err := setup(log)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.RabbitURL, LogDir: cfg.EventLogDir, Log: log}
	log.WithField("queue", queue.OrdersQueueName).Info("consuming order events")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
