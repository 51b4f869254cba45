package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/Proton-105/leave-bot/internal/bot"
	"github.com/Proton-105/leave-bot/internal/database"
	errors "github.com/Proton-105/leave-bot/internal/errors"
	"github.com/Proton-105/leave-bot/internal/health"
	"github.com/Proton-105/leave-bot/internal/i18n"
	"github.com/Proton-105/leave-bot/internal/idempotency"
	"github.com/Proton-105/leave-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/leave-bot/internal/jobs/handlers"
	"github.com/Proton-105/leave-bot/internal/lifecycle"
	"github.com/Proton-105/leave-bot/internal/middleware"
	"github.com/Proton-105/leave-bot/internal/ratelimit"
	"github.com/Proton-105/leave-bot/internal/roles"
	"github.com/Proton-105/leave-bot/internal/state"
	"github.com/Proton-105/leave-bot/internal/store"
	"github.com/Proton-105/leave-bot/internal/workflow"
	"github.com/Proton-105/leave-bot/pkg/config"
	"github.com/Proton-105/leave-bot/pkg/graceful"
	"github.com/Proton-105/leave-bot/pkg/logger"
	"github.com/Proton-105/leave-bot/pkg/metrics"
	pkgredis "github.com/Proton-105/leave-bot/pkg/redis"
)

const (
	sweepInterval   = time.Minute
	rateLimitMaxAge = 10 * time.Minute
	lockTTL         = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("leave bot stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)
	log.Info("starting leave bot",
		slog.String("bot_mode", cfg.Bot.Mode),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("pending_backend", cfg.Pending.Backend),
		slog.String("roles_source", cfg.Roles.Source),
	)

	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log)
	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)

	texts, err := loadTexts(cfg, log)
	if err != nil {
		return err
	}

	var rdb *goredis.Client
	if cfg.Redis.Enabled {
		rdb, err = pkgredis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		checker.AddCheck("redis", health.NewRedisChecker(rdb))
		shutdown.Register(lifecycle.PhaseResources, "redis", func(context.Context) error { return rdb.Close() })
	}

	var db *sql.DB
	if cfg.Database.Enabled || cfg.Roles.Source == "postgres" {
		db, err = database.Open(ctx, cfg)
		if err != nil {
			return err
		}
		if err := database.NewMigrator(db, log).Apply(ctx, os.DirFS("."), cfg.Database.MigrationsDir); err != nil {
			_ = db.Close()
			return err
		}
		checker.AddCheck("database", health.NewDBChecker(db))
		shutdown.Register(lifecycle.PhaseResources, "database", func(context.Context) error { return db.Close() })
	}

	backend, err := storeBackend(cfg, rdb)
	if err != nil {
		return err
	}
	leaveStore, err := store.Open(ctx, backend, log)
	if err != nil {
		return err
	}
	checker.AddCheck("store", leaveStore)

	pending, locker, err := pendingTable(cfg, rdb, log)
	if err != nil {
		return err
	}

	roleProvider := buildRoleProvider(cfg, v, db, rdb, log)
	engine := workflow.NewEngine(pending, locker, leaveStore, roleProvider, texts, errHandler, log)

	workers, cancelWorkers := context.WithCancel(ctx)
	shutdown.Register(lifecycle.PhaseWorkers, "background workers", func(context.Context) error {
		cancelWorkers()
		return nil
	})
	go metrics.NewPendingCollector(pending, 0).Run(workers)

	dedupe := duplicateGuard(workers, rdb, log)
	limiter, redisLimiter := rateLimiter(workers, rdb, log)

	cleaner := state.NewCleaner(pending, log, cfg.Pending.TTL, cfg.Pending.SweepInterval)
	var queuedCleaner *state.Cleaner
	if sharedPendingSweep(cfg, rdb) {
		queuedCleaner = cleaner
	} else {
		go cleaner.Run(workers)
	}
	if rdb != nil {
		if err := startJobs(ctx, cfg, queuedCleaner, redisLimiter, shutdown, log); err != nil {
			return err
		}
	}

	b, err := bot.New(*cfg, log, bot.Deps{
		Engine:      engine,
		Pending:     pending,
		Roles:       roleProvider,
		Texts:       texts,
		ErrHandler:  errHandler,
		Idempotency: dedupe,
		RateLimit:   middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(cfg.RateLimit), texts, log),
	})
	if err != nil {
		return err
	}
	checker.AddOptionalCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	shutdown.Register(lifecycle.PhaseIngress, "telegram", func(context.Context) error {
		b.Stop()
		return nil
	})
	go b.Start()

	ops := graceful.NewServer(log, cfg.Server.Addr, opsRouter(checker, log), cfg.Server.ShutdownTimeout)
	shutdown.Register(lifecycle.PhaseIngress, "ops http", ops.Shutdown)
	go func() {
		// stopped by the "ops http" shutdown hook
		if err := ops.ListenAndServe(context.Background()); err != nil {
			log.Error("ops server failed", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	log.Info("leave bot shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return shutdown.Execute(shutdownCtx)
}

func loadTexts(cfg *config.Config, log *slog.Logger) (*i18n.Manager, error) {
	if cfg.I18n.Dir != "" {
		texts, err := i18n.LoadFromDir(cfg.I18n.Dir, cfg.I18n.DefaultLang)
		if err == nil {
			return texts, nil
		}
		log.Warn("falling back to embedded catalogues", slog.String("dir", cfg.I18n.Dir), slog.Any("error", err))
	}

	return i18n.Load(cfg.I18n.DefaultLang)
}

func storeBackend(cfg *config.Config, rdb *goredis.Client) (store.Backend, error) {
	if cfg.Store.Backend == "redis" {
		if rdb == nil {
			return nil, fmt.Errorf("store backend redis requires redis.enabled")
		}
		return store.NewRedisBackend(rdb, cfg.Store.RedisKey), nil
	}
	return store.NewFileBackend(cfg.Store.Path), nil
}

func pendingTable(cfg *config.Config, rdb *goredis.Client, log *slog.Logger) (state.Storage, state.Locker, error) {
	if cfg.Pending.Backend == "redis" {
		if rdb == nil {
			return nil, nil, fmt.Errorf("pending backend redis requires redis.enabled")
		}
		return state.NewRedisStorage(rdb, log, cfg.Pending.TTL), state.NewRedisLocker(rdb, log, lockTTL), nil
	}
	return state.NewMemoryStorage(cfg.Pending.TTL), state.NewMemoryLocker(), nil
}

func buildRoleProvider(cfg *config.Config, v *viper.Viper, db *sql.DB, rdb *goredis.Client, log *slog.Logger) roles.Provider {
	if cfg.Roles.Source == "postgres" && db != nil {
		sqlProvider := roles.NewSQLProvider(db, log)
		if rdb != nil {
			return roles.NewCachedProvider(sqlProvider, rdb, cfg.Roles.CacheTTL, log)
		}
		return sqlProvider
	}

	static := roles.NewStaticProvider(cfg.Roles)
	var provider roles.Provider = static
	var cached *roles.CachedProvider
	if rdb != nil {
		cached = roles.NewCachedProvider(static, rdb, cfg.Roles.CacheTTL, log)
		provider = cached
	}

	config.WatchRoles(v, reloadRoles(static, cached, log), func(err error) {
		log.Warn("ignoring invalid role configuration", slog.Any("error", err))
	})
	return provider
}

// reloadRoles applies a new role configuration and drops role lists cached from the old one.
func reloadRoles(static *roles.StaticProvider, cached *roles.CachedProvider, log *slog.Logger) func(config.RolesConfig) {
	return func(rc config.RolesConfig) {
		static.Update(rc)
		if cached != nil {
			if err := cached.Flush(context.Background()); err != nil {
				log.Warn("failed to flush cached roles", slog.Any("error", err))
			}
		}
		log.Info("role configuration reloaded", slog.Int("default_roles", len(rc.Default)), slog.Int("members", len(rc.Members)))
	}
}

func duplicateGuard(ctx context.Context, rdb *goredis.Client, log *slog.Logger) *idempotency.Manager {
	if rdb != nil {
		return idempotency.NewManager(idempotency.NewRedisStore(rdb, log), idempotency.DefaultTTL, log)
	}

	mem := idempotency.NewMemoryStore()
	go idempotency.NewCleaner(mem, log, sweepInterval).Run(ctx)
	return idempotency.NewManager(mem, idempotency.DefaultTTL, log)
}

func rateLimiter(ctx context.Context, rdb *goredis.Client, log *slog.Logger) (ratelimit.Limiter, *ratelimit.RedisLimiter) {
	mem := ratelimit.NewMemoryLimiter()
	go ratelimit.NewCleaner(mem, log, sweepInterval, rateLimitMaxAge).Run(ctx)

	if rdb == nil {
		return mem, nil
	}

	primary := ratelimit.NewRedisLimiter(rdb, log)
	return ratelimit.NewAdaptiveLimiter(primary, mem, log), primary
}

// sharedPendingSweep reports whether the pending table lives in Redis, where one instance
// sweeps it for everybody. An in-memory table is always swept by its own process.
func sharedPendingSweep(cfg *config.Config, rdb *goredis.Client) bool {
	return rdb != nil && cfg.Pending.Backend == "redis"
}

// startJobs moves the shared-state sweeps onto asynq so one instance runs each sweep.
// A nil cleaner keeps the pending sweep out of the queue.
func startJobs(ctx context.Context, cfg *config.Config, cleaner *state.Cleaner, limiter *ratelimit.RedisLimiter, shutdown *lifecycle.Shutdown, log *slog.Logger) error {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	worker := jobs.NewWorker(redisOpt, log)
	pendingEvery := time.Duration(0)
	if cleaner != nil {
		pendingEvery = cfg.Pending.SweepInterval
		worker.RegisterHandler(jobs.TaskTypePendingSweep, jobhandlers.NewPendingSweepHandler(cleaner, log))
	}
	worker.RegisterHandler(jobs.TaskTypeRateLimitSweep, jobhandlers.NewRateLimitSweepHandler(limiter, log))
	if err := worker.Start(); err != nil {
		return fmt.Errorf("start jobs worker: %w", err)
	}
	shutdown.Register(lifecycle.PhaseWorkers, "jobs worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})

	scheduler := jobs.NewScheduler(redisOpt, log)
	if err := scheduler.RegisterTasks(pendingEvery, sweepInterval, rateLimitMaxAge); err != nil {
		return err
	}
	scheduler.Run()
	shutdown.Register(lifecycle.PhaseWorkers, "jobs scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})

	manager := jobs.NewManager(redisOpt, log)
	shutdown.Register(lifecycle.PhaseResources, "jobs client", func(context.Context) error { return manager.Close() })

	if cleaner != nil {
		if err := jobs.SweepOnStartup(ctx, manager); err != nil {
			log.Warn("initial pending sweep not enqueued", slog.Any("error", err))
		}
	}
	return nil
}

func opsRouter(checker *health.Checker, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(logger.Middleware)
	r.Use(middleware.New(log))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", checker.LivenessHandler)
	r.Get("/readyz", checker.ReadinessHandler)

	return r
}
