package main // Entry point package

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/eventdesk/internal/checkin"
	"github.com/iliyamo/eventdesk/internal/config"
	"github.com/iliyamo/eventdesk/internal/database"
	"github.com/iliyamo/eventdesk/internal/handler"
	"github.com/iliyamo/eventdesk/internal/live"
	"github.com/iliyamo/eventdesk/internal/logging"
	"github.com/iliyamo/eventdesk/internal/metrics"
	"github.com/iliyamo/eventdesk/internal/middleware"
	"github.com/iliyamo/eventdesk/internal/queue"
	"github.com/iliyamo/eventdesk/internal/repository"
	"github.com/iliyamo/eventdesk/internal/router"
	"github.com/iliyamo/eventdesk/internal/service"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply the embedded schema before serving")
	flag.Parse()

	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	if err != nil {
		logging.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()

	if *migrate {
		n, err := database.Migrate(ctx, db)
		if err != nil {
			logging.Fatal().Err(err).Msg("migration failed")
		}
		logging.Info().Int("statements", n).Msg("schema applied")
	}
	if err := repository.CheckSchema(ctx, db); errors.Is(err, repository.ErrSchemaMissing) {
		logging.Warn().Msg(repository.SetupMessage)
	} else if err != nil {
		logging.Error().Err(err).Msg("schema check failed")
	}

	rdb := config.NewRedisClient() // nil when redis is down
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	participants := repository.NewParticipantRepo(db)

	hub := live.NewHub(cfg.Server.AllowedOrigins, metrics.Recorder{})
	defer hub.Close()

	cacheCfg := config.LoadCacheConfig()
	opts := []checkin.Option{checkin.WithBroadcaster(hub), checkin.WithRecorder(metrics.Recorder{})}
	if inv := middleware.NewCacheInvalidator(cacheCfg, rdb); inv != nil {
		opts = append(opts, checkin.WithInvalidator(inv))
	}
	if cfg.Broker.Enabled {
		pub := service.NewPublisher(cfg.Broker.URL, service.BreakerConfig{
			FailureThreshold: cfg.Broker.BreakerFailures,
			Timeout:          cfg.Broker.BreakerOpenFor,
			DialTimeout:      cfg.Broker.DialTimeout,
			Backlog:          cfg.Broker.Backlog,
		})
		pub.OnFailure(metrics.Recorder{}.PublishFailed)
		go pub.Run(ctx)
		opts = append(opts, checkin.WithPublisher(pub))

		consumer := queue.NewConsumer(cfg.Broker.URL, cfg.Broker.LogDir)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("check-in consumer stopped")
			}
		}()
	}
	engine := checkin.NewEngine(events, participants, opts...)

	e := router.New(router.Deps{
		Auth:           handler.NewAuthHandler(cfg.Auth, users, tokens),
		Events:         handler.NewEventHandler(events, engine),
		CheckIn:        handler.NewCheckInHandler(engine, hub, cfg.ExportLocation()),
		Analytics:      handler.NewAnalyticsHandler(events, participants),
		Setup:          handler.NewSetupHandler(db),
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      config.LoadRateLimitConfig(),
		Cache:          cacheCfg,
		Redis:          rdb,
	})

	addr := ":" + cfg.Server.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}
