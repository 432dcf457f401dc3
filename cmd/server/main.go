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

	_ "github.com/lib/pq"

	caseexport "coopaml/internal/amlcase/export"
	caseshandler "coopaml/internal/amlcase/handler"
	casemetrics "coopaml/internal/amlcase/metrics"
	caseservice "coopaml/internal/amlcase/service"
	casestore "coopaml/internal/amlcase/store"
	"coopaml/internal/member"
	memberstore "coopaml/internal/member/store"
	"coopaml/internal/platform/config"
	"coopaml/internal/platform/httpserver"
	"coopaml/internal/platform/logger"
	platformredis "coopaml/internal/platform/redis"
	"coopaml/internal/rescreen"
	"coopaml/internal/rescreen/lock"
	sanctionhandler "coopaml/internal/sanction/handler"
	sanctionservice "coopaml/internal/sanction/service"
	sanctionstore "coopaml/internal/sanction/store"
	screeninghandler "coopaml/internal/screening/handler"
	screeningmetrics "coopaml/internal/screening/metrics"
	screeningservice "coopaml/internal/screening/service"
	screeningstore "coopaml/internal/screening/store"
	httptransport "coopaml/internal/transport/http"
	ttrexport "coopaml/internal/ttr/export"
	ttrhandler "coopaml/internal/ttr/handler"
	ttrmetrics "coopaml/internal/ttr/metrics"
	ttrservice "coopaml/internal/ttr/service"
	ttrstore "coopaml/internal/ttr/store"
	whitelisthandler "coopaml/internal/whitelist/handler"
	whitelistservice "coopaml/internal/whitelist/service"
	whiteliststore "coopaml/internal/whitelist/store"
	audit "coopaml/pkg/platform/audit"
	"coopaml/pkg/platform/audit/publisher"
	auditkafka "coopaml/pkg/platform/audit/sink/kafka"
	auditmemory "coopaml/pkg/platform/audit/store/memory"
	auditpostgres "coopaml/pkg/platform/audit/store/postgres"
	"coopaml/pkg/platform/hooks"
	"coopaml/pkg/platform/middleware/tenantauth"
)

// main wires stores, services, and the HTTP surface, then runs the server
// until a shutdown signal. Business logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	// Persistent stores when a DSN is configured; in-memory otherwise so the
	// engine can run standalone in dev and test environments.
	var (
		db  *sql.DB
		err error
	)
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
	}

	var (
		members    member.Store
		sanctions  sanctionservice.Store
		whitelist  whitelistservice.Store
		flags      screeningservice.FlagStore
		cases      caseservice.Store
		ttrs       ttrservice.Store
		auditStore audit.Store
	)
	if db != nil {
		members = memberstore.NewPostgres(db)
		sanctions = sanctionstore.NewPostgres(db)
		whitelist = whiteliststore.NewPostgres(db)
		flags = screeningstore.NewPostgres(db)
		cases = casestore.NewPostgres(db)
		ttrs = ttrstore.NewPostgres(db)
		auditStore = auditpostgres.New(db)
	} else {
		log.Warn("POSTGRES_DSN not set, running on in-memory stores")
		members = memberstore.NewInMemory()
		sanctions = sanctionstore.NewInMemory()
		whitelist = whiteliststore.NewInMemory()
		flags = screeningstore.NewInMemory()
		cases = casestore.NewInMemory()
		ttrs = ttrstore.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
	}

	if len(cfg.KafkaBrokers) > 0 {
		sink, err := auditkafka.New(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect audit kafka sink: %w", err)
		}
		defer sink.Close()
		auditStore = audit.NewFanout(auditStore, sink)
		log.Info("audit kafka sink enabled", "topic", cfg.AuditTopic)
	}

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	dispatcher := hooks.NewDispatcher()
	audit.RegisterHooks(dispatcher, auditPublisher)

	// The rescreen run-lock is shared across replicas when Redis is
	// configured; a single instance falls back to the in-process lock.
	var locker lock.Locker = lock.NewMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedis(redisClient)
	} else {
		log.Warn("REDIS_URL not set, rescreen lock is process-local")
	}

	screeningSvc := screeningservice.New(members, sanctions, whitelist, flags, dispatcher, screeningmetrics.New(), log)
	scheduler := rescreen.NewScheduler(screeningSvc, locker, log)
	sanctionSvc := sanctionservice.New(sanctions, scheduler, dispatcher, log)
	whitelistSvc := whitelistservice.New(whitelist, dispatcher, log)
	caseSvc := caseservice.New(cases, members, caseexport.NewFileFormatter(cfg.ExportDir), dispatcher, casemetrics.New(), log)
	ttrSvc := ttrservice.New(ttrs, members, ttrexport.NewXMLExporter(cfg.ExportDir), dispatcher, ttrmetrics.New(), log, cfg.TTRFilingWindowDays)

	handlers := httptransport.Handlers{
		Sanctions: sanctionhandler.New(sanctionSvc, log),
		Whitelist: whitelisthandler.New(whitelistSvc, log),
		Screening: screeninghandler.New(screeningSvc, scheduler, log),
		Cases:     caseshandler.New(caseSvc, log),
		TTRs:      ttrhandler.New(ttrSvc, log),
	}
	router := httptransport.NewRouter(handlers, tenantauth.NewValidator(cfg.JWTSigningKey), log)

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting coopaml server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
