package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/config"
	"github.com/harentsoaR/healthcare-api/internal/handlers"
	"github.com/harentsoaR/healthcare-api/internal/logging"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/services"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app holds the long lived clients shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    store.Store
	redis    *redis.Client
	notifier *services.NotificationService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.IsDev())
	utils.BcryptCost = cfg.BcryptCost

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, store: st}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, using in-process locks and revocations")
			_ = client.Close()
		} else {
			a.redis = client
		}
	}

	var mailer services.Mailer = services.NoopMailer{Log: log}
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	}
	a.notifier = services.NewNotificationService(st, mailer, log)

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn().Msg("using the in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	mongoStore, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoTimeout)
	if err != nil {
		return nil, err
	}
	err = utils.Retry(ctx, utils.RetryOptions{Attempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
		defer cancel()
		return mongoStore.Ping(pingCtx)
	})
	if err != nil {
		_ = mongoStore.Close(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	log.Info().Str("database", cfg.MongoDB).Msg("connected to mongodb")
	return mongoStore, nil
}

func (a *app) close() {
	a.notifier.Wait()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		a.log.Error().Err(err).Msg("failed to close store")
	}
}

func (a *app) ensureIndexes(ctx context.Context) error {
	mongoStore, ok := a.store.(*store.MongoStore)
	if !ok {
		return nil
	}
	if err := mongoStore.EnsureIndexes(ctx, models.Indexes); err != nil {
		return err
	}
	a.log.Info().Int("count", len(models.Indexes)).Msg("indexes ensured")
	return nil
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ensureIndexes(ctx); err != nil {
		return err
	}

	var (
		revocations services.RevocationStore
		locker      services.SlotLocker
	)
	if a.redis != nil {
		revocations = services.NewRedisRevocationStore(a.redis)
		locker = services.NewRedisLocker(a.redis)
	} else {
		memRevocations := services.NewMemoryRevocationStore()
		defer memRevocations.Close()
		revocations = memRevocations
		locker = services.NewMemoryLocker()
	}

	tokens := services.NewTokenService(a.cfg.JWTSecret, a.cfg.JWTIssuer, a.cfg.TokenTTL, revocations)
	h := handlers.NewHandler(
		a.store,
		tokens,
		a.notifier,
		locker,
		services.NewAuditLogger(a.store, a.log),
		services.NewSymptomAnalyzer(),
		a.log,
	)

	if a.cfg.SchedulerEnabled {
		scheduler := services.NewScheduler(a.store, a.notifier, a.log)
		if err := scheduler.Start(a.cfg.ReminderCron, a.cfg.ExpiryCron); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	if !a.cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           handlers.NewRouter(h, handlers.RouterConfig{CORSOrigins: a.cfg.CORSOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func ensureIndexes(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return a.ensureIndexes(ctx)
}

func sweep(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	scheduler := services.NewScheduler(a.store, a.notifier, a.log)
	sent, err := scheduler.SendReminders(ctx)
	if err != nil {
		return fmt.Errorf("send reminders: %w", err)
	}
	expired, err := scheduler.ExpirePrescriptions(ctx)
	if err != nil {
		return fmt.Errorf("expire prescriptions: %w", err)
	}
	a.log.Info().Int("reminders", sent).Int64("expired", expired).Msg("sweep finished")
	return nil
}
