package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"trialgate/internal/housekeeping"
	"trialgate/internal/identity"
	"trialgate/internal/lifecycle"
	"trialgate/internal/notify"
	"trialgate/internal/platform/config"
	"trialgate/internal/platform/httpserver"
	"trialgate/internal/platform/logger"
	"trialgate/internal/platform/metrics"
	"trialgate/internal/platform/postgres"
	"trialgate/internal/platform/redis"
	rlmetrics "trialgate/internal/ratelimit/metrics"
	rlservice "trialgate/internal/ratelimit/service"
	"trialgate/internal/ratelimit/store/bucket"
	"trialgate/internal/reputation"
	"trialgate/internal/scheduler"
	"trialgate/internal/tamper"
	httptransport "trialgate/internal/transport/http"
	"trialgate/internal/transport/telegram"
	"trialgate/internal/trial/store"
	"trialgate/pkg/platform/audit"
	"trialgate/pkg/platform/circuit"
	"trialgate/pkg/platform/middleware/metadata"
)

// main wires dependencies and runs the HTTP server, the job scheduler and the
// housekeeping janitor until SIGINT or SIGTERM.
func main() {
	if err := run(); err != nil {
		slog.Error("trialgate exited", logger.Err(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	records, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter, closeLimiter, err := openLimiter(ctx, cfg, log, rlmetrics.New(reg))
	if err != nil {
		return err
	}
	defer closeLimiter()

	publisher, err := openPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(publisher,
		notify.WithRate(cfg.Notify.RatePerSecond, cfg.Notify.Burst),
		notify.WithMetrics(m),
		notify.WithLogger(log),
	)
	defer dispatcher.Close()

	signer, err := tamper.NewSigner([]byte(cfg.Trial.RecordSigningKey))
	if err != nil {
		return err
	}
	validator := tamper.New(
		tamper.WithSigner(signer),
		tamper.WithMaxRecordAge(cfg.Trial.MaxRecordAge),
		tamper.WithLogger(log),
		tamper.WithMetrics(m),
	)

	rep := reputation.New(cfg.Reputation.BaseURL, cfg.Reputation.APIKeys, cfg.Reputation.Timeout, cfg.Reputation.CacheTTL,
		reputation.WithMetrics(m),
		reputation.WithLogger(log),
	)
	defer rep.Close()

	sched := scheduler.New(
		scheduler.WithSweepInterval(cfg.Trial.SweepInterval),
		scheduler.WithLogger(log),
		scheduler.WithMetrics(m),
	)

	svc, err := lifecycle.New(lifecycle.Deps{
		Store:      records,
		Limiter:    limiter,
		Transport:  telegram.New(cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Telegram.ChannelID, telegram.WithLogger(log)),
		Reputation: rep,
		Identity:   identity.NewVerifier(cfg.Identity.TokenSecret, cfg.Identity.MaxAge, cfg.Identity.Leeway),
		Notifier:   dispatcher,
		Scheduler:  sched,
	},
		lifecycle.WithConfig(lifecycleConfig(cfg)),
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(m),
		lifecycle.WithAuditor(audit.NewEmitter(log)),
		lifecycle.WithValidator(validator),
	)
	if err != nil {
		return fmt.Errorf("build lifecycle service: %w", err)
	}

	proxies, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}
	initData := identity.NewInitDataValidator(cfg.Telegram.BotToken, cfg.Identity.InitDataMaxAge, cfg.Identity.Leeway)
	handler := httptransport.New(svc, limiter, initData, cfg.Server.APISecret,
		httptransport.WithLogger(log),
		httptransport.WithGatherer(reg),
		httptransport.WithTrustedProxies(proxies),
	)
	srv := httpserver.New(cfg.Server.Addr, handler.Routes())

	janitor := housekeeping.New(records,
		housekeeping.WithPruner(limiter),
		housekeeping.WithPendingTTL(cfg.Trial.PendingTTL),
		housekeeping.WithSchedule(cfg.Housekeeping.Schedule),
		housekeeping.WithInitialDelay(cfg.Housekeeping.InitialDelay),
		housekeeping.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx, svc) })
	g.Go(func() error { return janitor.Run(gctx) })
	g.Go(func() error {
		log.Info("starting trialgate", "addr", cfg.Server.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func lifecycleConfig(cfg *config.Config) lifecycle.Config {
	return lifecycle.Config{
		TimezoneOffsetHours:    cfg.Trial.TimezoneOffsetHours,
		Cooldown:               cfg.Trial.Cooldown,
		InviteExpiry:           cfg.Trial.InviteExpiry,
		BlockedPhonePrefixes:   cfg.Trial.BlockedPhonePrefixes,
		BlockedCountries:       cfg.Trial.BlockedCountries,
		MissingEndedAtPolicy:   cfg.Trial.MissingEndedAtPolicy,
		MissingEndedAtFallback: cfg.Trial.MissingEndedAtFallback,
		TransportTimeout:       cfg.Trial.TransportTimeout,
		ReputationTimeout:      cfg.Reputation.Timeout,
		ReputationFailOpen:     cfg.Reputation.FailOpen,
		NotifyTimeout:          cfg.Notify.Timeout,
		EngineActorID:          cfg.Trial.EngineActorID,
	}
}

// openStore picks Postgres when a DSN is configured and the in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, func(), error) {
	if cfg.Postgres.DSN == "" {
		log.Warn("DATABASE_URL not set, trial records are kept in memory")
		return store.NewInMemoryStore(), func() {}, nil
	}
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store.NewPostgres(db), closer(db, log), nil
}

func closer(db *sql.DB, log *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Error("close database", logger.Err(err))
		}
	}
}

// openLimiter uses Redis with an in-memory fallback behind a circuit breaker,
// or in-memory counters alone when Redis is not configured.
func openLimiter(ctx context.Context, cfg *config.Config, log *slog.Logger, m *rlmetrics.Metrics) (*rlservice.Limiter, func(), error) {
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if rc == nil {
		log.Warn("REDIS_URL not set, rate limits are per instance")
		l, err := rlservice.New(bucket.NewInMemoryBucketStore(), rlservice.WithLogger(log), rlservice.WithMetrics(m))
		return l, func() {}, err
	}
	l, err := rlservice.New(bucket.NewRedisBucketStore(rc.Client),
		rlservice.WithFallback(bucket.NewInMemoryBucketStore(), circuit.New("ratelimit")),
		rlservice.WithLogger(log),
		rlservice.WithMetrics(m),
	)
	if err != nil {
		_ = rc.Close()
		return nil, nil, err
	}
	return l, func() { _ = rc.Close() }, nil
}

func openPublisher(ctx context.Context, cfg *config.Config, log *slog.Logger) (notify.Publisher, error) {
	switch cfg.Notify.Backend {
	case config.NotifyBackendKafka:
		p, err := notify.NewKafkaPublisher(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic)
		if err != nil {
			return nil, err
		}
		// -1 leaves partitions and replication to the broker defaults.
		if err := p.EnsureTopic(ctx, -1, -1); err != nil {
			_ = p.Close()
			return nil, err
		}
		return p, nil
	case config.NotifyBackendRabbitMQ:
		return notify.NewAMQPPublisher(cfg.Notify.AMQPURL, cfg.Notify.AMQPExchange)
	default:
		return notify.NewLogPublisher(log), nil
	}
}
