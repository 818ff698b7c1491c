// README: Entry point; loads config, wires stores and services, serves HTTP until SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/mimoreirac/pi-tercero/internal/config"
	httptransport "github.com/mimoreirac/pi-tercero/internal/http"
	"github.com/mimoreirac/pi-tercero/internal/infra"
	"github.com/mimoreirac/pi-tercero/internal/logging"
	"github.com/mimoreirac/pi-tercero/internal/maps"
	"github.com/mimoreirac/pi-tercero/internal/migrations"
	"github.com/mimoreirac/pi-tercero/internal/modules/audit"
	"github.com/mimoreirac/pi-tercero/internal/modules/incident"
	"github.com/mimoreirac/pi-tercero/internal/modules/reservation"
	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/modules/user"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error(ctx, "invalid configuration", "err", err)
		return err
	}
	log := logging.New(cfg.Log.Level)
	gin.SetMode(gin.ReleaseMode)

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Error(ctx, "database unavailable", "err", err)
		return err
	}
	defer dbPool.Close()

	if cfg.DB.Migrate {
		if err := migrations.Up(ctx, dbPool); err != nil {
			log.Error(ctx, "migrations failed", "err", err)
			return err
		}
	}

	var publisher audit.Publisher
	if cfg.AMQP.URL != "" {
		mq, err := infra.NewRabbitMQ(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			log.Error(ctx, "rabbitmq unavailable", "err", err)
			return err
		}
		defer mq.Close()
		publisher = mq
	}
	auditSvc := audit.NewService(audit.NewStore(dbPool), publisher, log)

	// The cache is optional; without Redis every lookup goes to Postgres.
	var cache user.Cache
	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Warn(ctx, "redis unavailable, user cache disabled", "addr", cfg.Redis.Addr, "err", err)
	} else {
		defer redisClient.Close()
		cache = user.NewRedisCache(redisClient, cfg.Redis.UserCacheTTL)
	}
	userSvc := user.NewService(user.NewStore(dbPool), cache, auditSvc, log)

	tripStore := trip.NewStore(dbPool)
	tripSvc := trip.NewService(tripStore, auditSvc)
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Error(ctx, "maps client init failed", "err", err)
			return err
		}
		tripSvc.WithRoutes(routes)
	}

	mode := reservation.ModeBaseline
	if cfg.Reservations.Mode == config.ReservationModeStrict {
		mode = reservation.ModeStrict
	}
	reservationSvc := reservation.NewService(reservation.NewStore(dbPool), tripStore, mode, auditSvc)
	incidentSvc := incident.NewService(incident.NewStore(dbPool), tripStore, reservationSvc, auditSvc)

	deps := httptransport.RouterDeps{
		Log:             log,
		Health:          dbPool,
		Users:           userSvc,
		Trips:           tripSvc,
		Reservations:    reservationSvc,
		Incidents:       incidentSvc,
		Audit:           auditSvc,
		EmptyListStatus: cfg.API.EmptyListStatus,
	}
	switch cfg.Auth.Mode {
	case config.AuthModeLocal:
		tokens := infra.NewLocalTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		deps.Verifier = tokens
		deps.Issuer = tokens
	default:
		verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentials)
		if err != nil {
			log.Error(ctx, "firebase init failed", "err", err)
			return err
		}
		deps.Verifier = verifier
	}

	log.Info(ctx, "starting rides api",
		"auth_mode", cfg.Auth.Mode,
		"reservation_mode", string(mode),
		"routes_enabled", tripSvc.RoutesEnabled(),
		"audit_broker", publisher != nil,
		"user_cache", cache != nil,
	)
	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.NewRouter(deps), log)
	if err := server.Run(ctx); err != nil {
		log.Error(ctx, "http server failed", "err", err)
		return err
	}
	return nil
}
