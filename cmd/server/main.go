package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	credmetrics "veritas/internal/credential/metrics"
	credservice "veritas/internal/credential/service"
	credstore "veritas/internal/credential/store"
	"veritas/internal/keymanager"
	"veritas/internal/platform/config"
	"veritas/internal/platform/database"
	"veritas/internal/platform/health"
	"veritas/internal/platform/kafka/producer"
	"veritas/internal/platform/logger"
	platformredis "veritas/internal/platform/redis"
	revmetrics "veritas/internal/revocation/metrics"
	revservice "veritas/internal/revocation/service"
	revstore "veritas/internal/revocation/store"
	"veritas/internal/seeder"
	httptransport "veritas/internal/transport/http"
	vermetrics "veritas/internal/verification/metrics"
	verservice "veritas/internal/verification/service"
	verstore "veritas/internal/verification/store"
	"veritas/pkg/platform/audit"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages; everything here is assembly.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing credential trust engine",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"issuer_did", cfg.IssuerDID,
	)

	ctx := context.Background()

	// Durable stores are optional: without a database URL everything runs
	// in memory, which is how the development and test profiles operate.
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.DatabaseURL
		var err error
		db, err = database.Open(ctx, dbCfg)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var kafkaProducer *producer.Producer
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, err = producer.New(producer.Config{Brokers: cfg.Kafka.Brokers}, log)
		if err != nil {
			log.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
	}

	auditOpts := []audit.PublisherOption{
		audit.WithAsyncBuffer(1024),
		audit.WithPublisherLogger(log),
	}
	if kafkaProducer != nil {
		auditOpts = append(auditOpts, audit.WithKafkaSink(kafkaProducer, cfg.Kafka.AuditTopic))
	}
	auditor := audit.NewPublisher(audit.NewInMemoryStore(), auditOpts...)
	defer auditor.Close()

	var (
		certStore   verservice.CertificateStore
		resultStore verservice.ResultStore
		certReg     httptransport.CertificateRegistry
		issuerStore verservice.TrustedIssuerSource
		policies    credstore.PolicyStore
		issuances   credstore.IssuanceStore
		credentials credstore.CredentialStore
		revocations revstore.Store
	)
	if db != nil {
		pgCerts := verstore.NewPostgres(db)
		certStore, resultStore, certReg = pgCerts, pgCerts, pgCerts
		issuerStore = verstore.NewPostgresIssuers(db)
		policies = credstore.NewPostgresPolicies(db)
		issuances = credstore.NewPostgresIssuances(db)
		credentials = credstore.NewPostgresCredentials(db)
		revocations = revstore.NewPostgres(db)
	} else {
		memCerts := verstore.NewInMemory()
		memIssuers := verstore.NewInMemoryIssuers()
		memPolicies := credstore.NewInMemoryPolicies()
		certStore, resultStore, certReg = memCerts, memCerts, memCerts
		issuerStore = memIssuers
		policies = memPolicies
		issuances = credstore.NewInMemoryIssuances()
		credentials = credstore.NewInMemoryCredentials()
		revocations = revstore.NewInMemory()

		// Memory stores start empty, so development runs get demo data.
		if cfg.Environment == "development" {
			if err := seeder.New(memIssuers, memPolicies, log).SeedAll(ctx); err != nil {
				log.Error("failed to seed demo data", "error", err)
				os.Exit(1)
			}
		}
	}
	// Redis takes precedence for revocation lists: status checks are the
	// hottest read path.
	if redisClient != nil {
		revocations = revstore.NewRedis(redisClient)
	}

	keys, err := keymanager.NewInMemory()
	if err != nil {
		log.Error("failed to generate signing key", "error", err)
		os.Exit(1)
	}

	orchestrator, err := verservice.NewOrchestrator(cfg.Verification, issuerStore, certStore, resultStore,
		verservice.WithLogger(log),
		verservice.WithAuditor(auditor),
		verservice.WithMetrics(vermetrics.New()),
	)
	if err != nil {
		log.Error("invalid verification config", "error", err)
		os.Exit(1)
	}

	credCollectors := credmetrics.New()
	issuer := credservice.NewIssuer(cfg.IssuerDID, cfg.Issuance, policies, issuances, credentials, keys,
		credservice.WithIssuerLogger(log),
		credservice.WithIssuerAuditor(auditor),
		credservice.WithIssuerMetrics(credCollectors),
	)

	revocationManager := revservice.NewManager(revocations,
		revservice.WithManagerLogger(log),
		revservice.WithManagerAuditor(auditor),
		revservice.WithManagerMetrics(revmetrics.New()),
	)

	verifier := credservice.NewVerifier(keys, revocationManager, []string{cfg.IssuerDID},
		credservice.WithVerifierLogger(log),
		credservice.WithVerifierAuditor(auditor),
		credservice.WithVerifierMetrics(credCollectors),
	)

	healthHandler := health.New("veritas", cfg.Environment)
	if db != nil {
		healthHandler.RegisterCheck("database", func(ctx context.Context) error {
			return db.PingContext(ctx)
		})
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", redisClient.Health)
	}
	healthHandler.RegisterCheck("signing_key", func(ctx context.Context) error {
		_, err := keys.CurrentKey(ctx)
		return err
	})

	router := httptransport.NewRouter(httptransport.Handlers{
		Certificates: httptransport.NewCertificateHandler(certReg, orchestrator),
		Credentials:  httptransport.NewCredentialHandler(issuer, verifier, credentials),
		Revocations:  httptransport.NewRevocationHandler(revocationManager),
		Health:       healthHandler,
	}, log)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
