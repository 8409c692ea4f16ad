package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/config"
	"github.com/Mliaj/scholarsphere-sub000/internal/credential"
	"github.com/Mliaj/scholarsphere-sub000/internal/handler"
	"github.com/Mliaj/scholarsphere-sub000/internal/infra/postgresql"
	"github.com/Mliaj/scholarsphere-sub000/internal/infra/postgresql/migrations"
	infraredis "github.com/Mliaj/scholarsphere-sub000/internal/infra/redis"
	"github.com/Mliaj/scholarsphere-sub000/internal/notify"
	"github.com/Mliaj/scholarsphere-sub000/internal/observability"
	"github.com/Mliaj/scholarsphere-sub000/internal/repository"
	"github.com/Mliaj/scholarsphere-sub000/internal/service"
	"github.com/Mliaj/scholarsphere-sub000/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	mail, err := notify.NewRabbitMQMail(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mail.Close()

	matcher, err := credential.NewHTTPMatcher(cfg.CredentialMatcherURL)
	if err != nil {
		logger.Fatal("credential matcher initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	store := repository.NewGormStore(db)
	dispatcher := notify.NewDispatcher(notify.NewService(store.Notifications(), mail), metrics, logger)

	reviews, err := service.NewReviewService(store, matcher, dispatcher, metrics, logger)
	if err != nil {
		logger.Fatal("review service initialization failed", zap.Error(err))
	}
	applications, err := service.NewApplicationService(store, dispatcher, metrics, logger)
	if err != nil {
		logger.Fatal("application service initialization failed", zap.Error(err))
	}
	scholarships, err := service.NewScholarshipService(store, metrics, logger)
	if err != nil {
		logger.Fatal("scholarship service initialization failed", zap.Error(err))
	}
	expirations, err := service.NewExpirationService(store, dispatcher, metrics, logger)
	if err != nil {
		logger.Fatal("expiration service initialization failed", zap.Error(err))
	}

	gate, err := infraredis.NewSweepGate(rdb, time.Duration(cfg.SweepGateTTLSeconds)*time.Second)
	if err != nil {
		logger.Fatal("sweep gate initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "scholarsphere",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware(transport.StatusFromError))

	handler.RegisterHealthRoutes(app, handler.ReadinessChecks{
		"postgres": sqlDB.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	if err := handler.RegisterApplicationRoutes(app, applications, reviews); err != nil {
		logger.Fatal("application routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterScholarshipRoutes(app, scholarships); err != nil {
		logger.Fatal("scholarship routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterSweepRoutes(app, expirations, gate); err != nil {
		logger.Fatal("sweep routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterNotificationRoutes(app, store.Notifications()); err != nil {
		logger.Fatal("notification routes registration failed", zap.Error(err))
	}

	promHandler := fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		promHandler(c.Context())
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("scholarsphere api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	if cfg.SweepIntervalMinutes > 0 {
		runner, err := service.NewSweepRunner(expirations, gate,
			time.Duration(cfg.SweepIntervalMinutes)*time.Minute, logger)
		if err != nil {
			logger.Fatal("sweep runner initialization failed", zap.Error(err))
		}
		group.Go(func() error {
			logger.Info("expiration sweep runner started",
				zap.Int("intervalMinutes", cfg.SweepIntervalMinutes))
			return runner.Start(groupCtx)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal("service terminated", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
