package service

import (
	"log/slog"

	redisx "github.com/staymarket/staycore/internal/redis"
	postgres "github.com/staymarket/staycore/internal/repository/postgres"
	redis "github.com/staymarket/staycore/internal/repository/redis"
	"github.com/staymarket/staycore/internal/service/booking"
	"github.com/staymarket/staycore/internal/service/inventory"
	"github.com/staymarket/staycore/internal/service/payment"
	"github.com/staymarket/staycore/internal/service/query"
)

type Services struct {
	Inventory *inventory.Service
	Booking   *booking.Service
	Payment   *payment.Service
	Query     *query.Service
}

type Config struct {
	Inventory inventory.Config
	Booking   booking.Config
	Query     query.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redisx.UnitsPubSub,
	limiter *redis.SlidingWindowLimiter,
	cfg Config,
	log *slog.Logger,
) *Services {
	return &Services{
		Inventory: inventory.New(store, cache, pubsub, cfg.Inventory),
		Booking:   booking.New(store, cache, pubsub, limiter, cfg.Booking, log),
		Payment:   payment.New(store, cache),
		Query:     query.New(store, cache, cfg.Query),
	}
}
