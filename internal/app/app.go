package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/staymarket/staycore/internal/config"
	"github.com/staymarket/staycore/internal/domain"
	"github.com/staymarket/staycore/internal/postgres"
	redisx "github.com/staymarket/staycore/internal/redis"
	postgresrepo "github.com/staymarket/staycore/internal/repository/postgres"
	redisrepo "github.com/staymarket/staycore/internal/repository/redis"
	"github.com/staymarket/staycore/internal/service"
	"github.com/staymarket/staycore/internal/service/booking"
	"github.com/staymarket/staycore/internal/service/inventory"
	"github.com/staymarket/staycore/internal/service/query"
	httpgin "github.com/staymarket/staycore/internal/transport/http/gin"
	"github.com/staymarket/staycore/internal/worker"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	horizon    *worker.Horizon
	sweep      *worker.Sweep
	pubsub     *redisx.UnitsPubSub
	cache      *redisrepo.Cache
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisx.NewUnitsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "booking", 10, 1*time.Minute)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	defaultPolicy := domain.OwnerPolicy{
		DepositPercent:  cfg.Booking.DefaultDepositPercent,
		DepositMinCents: cfg.Booking.DefaultDepositMinCents,
	}

	// Initialize services
	services := service.NewServices(store, cache, pubsub, limiter, service.Config{
		Inventory: inventory.Config{
			HorizonDays:         cfg.Booking.HorizonDays,
			HorizonCeilingYears: cfg.Booking.HorizonCeilingYears,
		},
		Booking: booking.Config{
			PaymentDeadline: cfg.Booking.PaymentDeadline,
			DefaultPolicy:   defaultPolicy,
		},
		Query: query.Config{
			DefaultPolicy: defaultPolicy,
		},
	}, logger)

	// Initialize background workers
	horizon := worker.NewHorizon(store.Availability(), store.Inventory(), worker.HorizonConfig{
		Interval:     cfg.Booking.HorizonInterval,
		HorizonDays:  cfg.Booking.HorizonDays,
		CeilingYears: cfg.Booking.HorizonCeilingYears,
	}, logger)
	sweep := worker.NewSweep(services.Booking, cfg.Booking.SweepInterval, logger)

	// Initialize Gin router
	router := httpgin.NewRouter(services, idempotencyStore, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
		horizon: horizon,
		sweep:   sweep,
		pubsub:  pubsub,
		cache:   cache,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Start background loops
	g.Go(func() error {
		if err := a.horizon.Run(gCtx); err != nil && err != context.Canceled {
			return fmt.Errorf("horizon worker: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.sweep.Run(gCtx); err != nil && err != context.Canceled {
			return fmt.Errorf("sweep worker: %w", err)
		}
		return nil
	})

	// Listen for unit changes published by other instances and drop the
	// local cache entries, so a multi-instance deployment converges without
	// waiting for TTLs.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, unitID uuid.UUID) {
			if err := a.cache.InvalidateUnit(ctx, unitID); err != nil {
				a.logger.Warn("unit cache invalidation failed",
					"unit_id", unitID.String(), "error", err.Error())
			}
		})
		if err != nil && err != context.Canceled {
			return fmt.Errorf("units subscriber: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
