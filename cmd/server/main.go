// Command server runs the progress engine HTTP service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eduverse/progress-engine/config"
	"github.com/eduverse/progress-engine/internal/application/command"
	"github.com/eduverse/progress-engine/internal/application/query"
	"github.com/eduverse/progress-engine/internal/domain/progress"
	"github.com/eduverse/progress-engine/internal/domain/shared"
	"github.com/eduverse/progress-engine/internal/infrastructure/messaging"
	"github.com/eduverse/progress-engine/internal/infrastructure/persistence/memory"
	"github.com/eduverse/progress-engine/internal/infrastructure/persistence/postgres"
	"github.com/eduverse/progress-engine/internal/infrastructure/persistence/redis"
	httpiface "github.com/eduverse/progress-engine/internal/interface/http"
	"github.com/eduverse/progress-engine/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.App.LogLevel)).
		With(logger.String("service", "progress-engine"), logger.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Store ──────────────────────────────────────────────────────────

	var store progress.Store
	var closeStore func()

	if cfg.Database.Disabled {
		log.Warn("database disabled, using in-memory store")
		store = memory.NewStore()
		closeStore = func() {}
	} else {
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = cfg.Database.URL
		pgCfg.MaxConns = cfg.Database.MaxConns
		pgCfg.MinConns = cfg.Database.MinConns
		pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout
		pgCfg.QueryTimeout = cfg.Database.QueryTimeout

		conn, err := postgres.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		closeStore = conn.Close

		if err := postgres.Migrate(ctx, conn); err != nil {
			conn.Close()
			return err
		}
		log.Info("database connected")
		store = postgres.NewProgressRepository(conn)
	}
	defer closeStore()

	// ── Cache ──────────────────────────────────────────────────────────

	var cache progress.Cache
	if !cfg.Redis.Disabled {
		rdCfg := redis.DefaultConfig()
		rdCfg.URL = cfg.Redis.URL
		rdCfg.Addr = cfg.Redis.Addr
		rdCfg.Password = cfg.Redis.Password
		rdCfg.DB = cfg.Redis.DB

		rd, err := redis.Connect(ctx, rdCfg)
		if err != nil {
			// The cache is an optimization; run degraded without it.
			log.Warn("redis unavailable, running without cache", logger.Err(err))
		} else {
			defer rd.Close()
			log.Info("redis connected")
			cache = redis.NewProgressCache(rd)
		}
	}

	// ── Event bus ──────────────────────────────────────────────────────

	bus := messaging.NewInMemoryEventBus(log)
	defer bus.Close()
	registerNotificationLog(bus, log)

	// ── Handlers and server ────────────────────────────────────────────

	deps := httpiface.Dependencies{
		CompleteQuiz: command.NewCompleteQuizHandler(store, cache, bus, log),
		StudySet:     command.NewStudyFlashcardSetHandler(store, cache, bus, log),
		Reset:        command.NewResetProgressHandler(store, cache, bus, log),
		GetProgress:  query.NewGetProgressHandler(store, cache, cfg.Progress.CacheTTL, log),
		Store:        store,
		Logger:       log,
	}

	srvCfg := httpiface.DefaultConfig()
	srvCfg.Host = cfg.HTTP.Host
	srvCfg.Port = cfg.HTTP.Port
	srvCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	srvCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	srvCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	srvCfg.RequestTimeout = cfg.HTTP.RequestTimeout
	srvCfg.ServiceTokens = cfg.HTTP.ServiceTokens
	srvCfg.AdminTokens = cfg.HTTP.AdminTokens

	server := httpiface.NewServer(srvCfg, deps)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// registerNotificationLog subscribes the celebratory-event log. In a
// larger deployment this is where a push-notification service would hook
// in; here the unlocks and level-ups land in the structured log.
func registerNotificationLog(bus *messaging.InMemoryEventBus, log *logger.Logger) {
	_ = bus.Subscribe(shared.EventBadgeUnlocked, func(ev shared.Event) error {
		log.Info("badge unlocked",
			logger.String("user_id", ev.AggregateID()),
			logger.Any("payload", ev.Payload()))
		return nil
	})
	_ = bus.Subscribe(shared.EventLevelUp, func(ev shared.Event) error {
		log.Info("level up",
			logger.String("user_id", ev.AggregateID()),
			logger.Any("payload", ev.Payload()))
		return nil
	})
}
