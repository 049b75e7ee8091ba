// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"gridgate/internal/connector"
	"gridgate/internal/connector/dk"
	"gridgate/internal/connector/no"
	"gridgate/internal/dataneed"
	"gridgate/internal/engine"
	"gridgate/internal/engine/outbox"
	"gridgate/internal/permission"
	"gridgate/internal/permission/handler"
	"gridgate/internal/permission/service"
	"gridgate/internal/platform/config"
	"gridgate/internal/platform/httpserver"
	"gridgate/internal/platform/logger"
	"gridgate/internal/platform/metrics"
	platformredis "gridgate/internal/platform/redis"
	"gridgate/internal/scheduler"
	"gridgate/internal/status"
	id "gridgate/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	registry := connector.NewRegistry(
		dk.New(dk.NewHTTPAdapter(cfg.Denmark.Endpoint, cfg.Denmark.SenderGLN, 0)),
		no.New(no.NewPushedAuthAdapter(cfg.Norway.Endpoint, cfg.Norway.ClientID, []byte(cfg.Norway.ClientSecret), 0)),
	)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Storage: PostgreSQL when configured, in-memory otherwise. The store
	// contract is identical in both modes.
	var (
		repo        permission.Repository
		outboxStore outbox.Store
		needStore   dataneed.Store
		engineTx    engine.Tx = engine.NopTx{}
	)
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if _, err := db.ExecContext(ctx, permission.Schema); err != nil {
			return fmt.Errorf("apply permission schema: %w", err)
		}
		if _, err := db.ExecContext(ctx, outbox.Schema); err != nil {
			return fmt.Errorf("apply outbox schema: %w", err)
		}
		repo = permission.NewPostgresStore(db)
		outboxStore = outbox.NewPostgresStore(db)
		engineTx = engine.NewSQLTx(db)

		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("open pgx pool: %w", err)
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, dataneed.Schema); err != nil {
			return fmt.Errorf("apply data need schema: %w", err)
		}
		needStore = dataneed.NewPostgresStore(pool)
	} else {
		repo = permission.NewInMemoryStore()
		outboxStore = outbox.NewInMemoryStore()
		needStore = dataneed.NewInMemoryStore()
	}

	// Status emitter: Kafka when brokers are configured.
	var emitter status.Emitter
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaEmitter, err := status.NewKafkaEmitter(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("status emitter: %w", err)
		}
		defer kafkaEmitter.Close()
		emitter = kafkaEmitter
	} else {
		emitter = status.NewInMemoryEmitter()
	}
	statusSub := status.NewSubscriber(emitter, m)

	engines := make(map[id.Region]*engine.Engine)
	for _, region := range registry.Regions() {
		conn, err := registry.Get(region)
		if err != nil {
			return err
		}
		engines[region] = engine.New(region, conn.Table(), repo, outboxStore, log,
			engine.WithTx(engineTx),
			engine.WithMetrics(m),
			engine.WithSubscribers(statusSub),
		)
	}

	// Resend queue: Redis when configured.
	var queue scheduler.Queue
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		queue = scheduler.NewRedisQueue(redisClient.Client)
	} else {
		queue = scheduler.NewInMemoryQueue()
	}
	resend := scheduler.NewResend(queue, nil, log,
		scheduler.WithResendDelay(cfg.Engine.ResendDelay),
	)

	svc, err := service.New(service.Config{
		Repository: repo,
		Engines:    engines,
		Resolver:   engine.NewResolver(repo, log, m),
		Registry:   registry,
		DataNeeds:  dataneed.NewService(needStore),
		Resend:     resend,
		Logger:     log,
		Metrics:    m,
	})
	if err != nil {
		return fmt.Errorf("build permission service: %w", err)
	}
	resend.SetHandler(svc)

	retrier := scheduler.NewSendRetrier(repo, svc, cfg.Engine.RetryInterval, log)
	sweeper := scheduler.NewSweeper(repo, engines, log,
		scheduler.WithAnswerTimeout(cfg.Engine.AnswerTimeout),
		scheduler.WithSweepInterval(cfg.Engine.SweepInterval),
		scheduler.WithSweeperMetrics(m),
	)

	router := chi.NewRouter()
	handler.New(svc, log, []byte(cfg.Server.WebhookSecretHash)).Register(router)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.Get("/healthz", healthz(redisClient))

	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting gridgate", "addr", cfg.Server.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return resend.Run(ctx) })
	g.Go(func() error { return retrier.Run(ctx) })
	g.Go(func() error { return sweeper.Run(ctx) })
	g.Go(func() error { return httpserver.Run(ctx, srv, 10*time.Second) })

	if err := g.Wait(); err != nil && !isShutdown(err) {
		return err
	}
	log.Info("gridgate stopped")
	return nil
}

func healthz(redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
