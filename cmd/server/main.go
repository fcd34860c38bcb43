package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/audit"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/credentials"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/dns/configurator"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/dns/health"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/handler"
	domainmetrics "github.com/UpmaxAutomation/coldforge-sub007/internal/domains/metrics"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/service"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/store"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/platform/config"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/platform/httpserver"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/platform/logger"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/platform/metrics"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/platform/postgres"
	platformredis "github.com/UpmaxAutomation/coldforge-sub007/internal/platform/redis"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar/factory"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: postgres when configured, in-memory otherwise.
	var (
		domainStore     store.Store
		credentialStore credentials.Store
	)
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		domainStore = store.NewPostgres(db)
		credentialStore = credentials.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		domainStore = store.NewMemory()
		credentialStore = credentials.NewMemory()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit trail: kafka sink when brokers are configured.
	var sink audit.Sink = audit.NewMemorySink()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("failed to connect to kafka", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	}
	publisher := audit.NewPublisher(log, cfg.AuditBuffer)
	worker := audit.NewWorker(sink, publisher.Inbox(), log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.Run(ctx)
	}()

	m := domainmetrics.New()

	breakers := circuit.NewRegistry(
		circuit.WithFailureThreshold(cfg.Breaker.FailureThreshold),
		circuit.WithSuccessThreshold(cfg.Breaker.SuccessThreshold),
		circuit.WithTimeout(cfg.Breaker.Timeout),
		circuit.WithResetTimeout(cfg.Breaker.ResetTimeout),
		circuit.WithOnStateChange(func(name string, _, to circuit.State) {
			m.SetBreakerState(name, float64(to))
			log.Info("circuit breaker state change",
				slog.String("registrar", name),
				slog.String("state", to.String()))
		}),
	)
	clientFactory := factory.New(breakers,
		factory.WithHTTPClient(&http.Client{Timeout: cfg.RegistrarTimeout}),
	)

	domainService := service.New(domainStore, credentialStore, clientFactory,
		service.WithLogger(log),
		service.WithAuditEmitter(publisher),
		service.WithMetrics(m),
	)
	dnsConfigurator := configurator.New(domainStore, credentialStore, clientFactory,
		configurator.WithLogger(log),
		configurator.WithAuditEmitter(publisher),
		configurator.WithMetrics(m),
	)

	healthOpts := []health.Option{
		health.WithLogger(log),
		health.WithAuditEmitter(publisher),
		health.WithMetrics(m),
	}
	if redisClient != nil {
		healthOpts = append(healthOpts,
			health.WithCache(health.NewRedisCache(redisClient.Client, cfg.HealthCacheTTL, log)))
	}
	healthService := health.New(domainStore, health.NewChecker(net.DefaultResolver), healthOpts...)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(2 * time.Minute))
	router.Handle("/metrics", metrics.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler.New(domainService, dnsConfigurator, healthService, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting coldforge provisioning server", slog.String("addr", cfg.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
	// The worker flushes buffered audit events before exiting.
	<-workerDone
}
