package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/summitrails/tour-booking-api/internal/api"
	"github.com/summitrails/tour-booking-api/internal/infrastructure/db/mongo"
	"github.com/summitrails/tour-booking-api/internal/infrastructure/db/redis"
	"github.com/summitrails/tour-booking-api/internal/infrastructure/email"
	"github.com/summitrails/tour-booking-api/internal/infrastructure/payment"
	"github.com/summitrails/tour-booking-api/internal/pkg/config"
	"github.com/summitrails/tour-booking-api/pkg/logger"
)

func main() {
	// Absent .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, !cfg.Production())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.DSN(),
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	if err := ensureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	redisCfg := redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB}
	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		// Dedup is advisory; the unique session index still guards bookings.
		log.Warn().Err(err).Msg("redis unavailable, webhook dedup fast path degraded")
		rdb = redis.Lazy(redisCfg)
	}
	defer rdb.Close()

	mailer := email.NewMailer(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	}, logger.Component(log, "mailer"))

	gateway := payment.NewClient(payment.Config{
		BaseURL:       cfg.Payment.BaseURL,
		SecretKey:     cfg.Payment.SecretKey,
		WebhookSecret: cfg.Payment.WebhookSecret,
	}, logger.Component(log, "payment"))

	e := api.NewRouter(db, rdb, api.RouterConfig{
		JWTSecret:  cfg.JWT.Secret,
		TokenTTL:   cfg.JWT.TokenTTL,
		CookieTTL:  cfg.JWT.CookieTTL,
		Production: cfg.Production(),
		Gateway:    gateway,
		Mailer:     mailer,
		Log:        log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

// ensureIndexes creates every collection index up front so unique and
// geospatial constraints hold from the first request.
func ensureIndexes(ctx context.Context, db *mongodriver.Database) error {
	if err := mongo.NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := mongo.NewTourRepository(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := mongo.NewReviewRepository(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	return mongo.NewBookingRepository(db).EnsureIndexes(ctx)
}
