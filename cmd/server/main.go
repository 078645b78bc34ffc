// Command server runs the address credential issuer: session lifecycle,
// postcode lookup, and signed credential issuance behind one HTTP API, with
// metrics on a separate ops listener.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"address-cri/internal/credential"
	credentialhandler "address-cri/internal/credential/handler"
	credentialmetrics "address-cri/internal/credential/metrics"
	"address-cri/internal/platform/config"
	"address-cri/internal/platform/httpserver"
	"address-cri/internal/platform/logger"
	"address-cri/internal/platform/middleware"
	platformredis "address-cri/internal/platform/redis"
	"address-cri/internal/postcode"
	sessionhandler "address-cri/internal/session/handler"
	sessionmetrics "address-cri/internal/session/metrics"
	"address-cri/internal/session/service"
	"address-cri/internal/session/store"
	httptransport "address-cri/internal/transport/http"
	"address-cri/pkg/platform/audit/publisher"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session store selection: postgres, then redis, then in-memory.
	var sessions service.SessionStore
	switch {
	case cfg.Postgres.DSN != "":
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pgStore := store.NewPostgres(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure session schema", "error", err)
			os.Exit(1)
		}
		sessions = pgStore
		log.Info("session store: postgres")
	case cfg.Redis.URL != "":
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		sessions = store.NewRedis(redisClient.Client)
		log.Info("session store: redis")
	default:
		sessions = store.New()
		log.Warn("session store: in-memory, sessions do not survive restarts")
	}

	// Audit publisher: kafka when brokers are configured, otherwise events
	// only reach the log.
	var auditPublisher service.AuditPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := publisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("failed to build kafka audit publisher", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
	}

	registry := postcode.NewClient(cfg.Registry.BaseURL, cfg.Registry.APIKey,
		postcode.WithTimeout(cfg.Registry.Timeout),
		postcode.WithLogger(log),
	)

	sessionOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(sessionmetrics.New()),
	}
	if auditPublisher != nil {
		sessionOpts = append(sessionOpts, service.WithAuditPublisher(auditPublisher))
	}
	sessionSvc := service.New(sessions, registry, cfg.SessionTTL, sessionOpts...)

	credentialStore, ok := sessions.(credential.SessionStore)
	if !ok {
		log.Error("session store does not support credential lookups")
		os.Exit(1)
	}
	credentialOpts := []credential.Option{
		credential.WithLogger(log),
		credential.WithMetrics(credentialmetrics.New()),
	}
	if auditPublisher != nil {
		credentialOpts = append(credentialOpts, credential.WithAuditPublisher(auditPublisher))
	}
	credentialSvc := credential.New(
		credentialStore,
		credential.NewJWTSigner(cfg.SigningKey, cfg.SigningKeyID),
		cfg.Issuer,
		cfg.CredentialTTL,
		credentialOpts...,
	)

	var clientAuth *middleware.APIKeyAuth
	if len(cfg.ClientAPIKeys) > 0 {
		clientAuth = middleware.NewAPIKeyAuth(cfg.ClientAPIKeys, log)
	} else {
		log.Warn("no client api keys configured, session endpoints are unauthenticated")
	}

	router := httptransport.NewRouter(httptransport.Routes{
		Session:    sessionhandler.New(sessionSvc, log),
		Credential: credentialhandler.New(credentialSvc, log),
		ClientAuth: clientAuth,
	})

	apiServer := httpserver.New(cfg.Addr, router)
	opsServer := httpserver.New(cfg.MetricsAddr, httptransport.NewOpsRouter())

	group, groupCtx := errgroup.WithContext(ctx)
	if sweeper, ok := sessions.(expiredSweeper); ok {
		group.Go(func() error {
			sweepExpired(groupCtx, sweeper, log)
			return nil
		})
	}
	group.Go(func() error {
		log.Info("starting api listener", "addr", cfg.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Info("starting ops listener", "addr", cfg.MetricsAddr)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Error("api shutdown failed", "error", err)
		}
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("ops shutdown failed", "error", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// expiredSweeper is satisfied by stores that need periodic expiry cleanup.
// The redis store relies on key TTLs instead and does not implement it.
type expiredSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

func sweepExpired(ctx context.Context, sessions expiredSweeper, log *slog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			deleted, err := sessions.DeleteExpired(ctx, now.UTC())
			if err != nil {
				log.WarnContext(ctx, "expired session sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.InfoContext(ctx, "expired sessions removed", "count", deleted)
			}
		}
	}
}
