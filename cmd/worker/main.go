// Command worker runs the compliance engine's background process: the Kafka
// consumer for trigger events, async contract parsing, and score refreshes,
// plus the cron scheduler for severity sweeps, score snapshots, and the
// weekly digest.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	"github.com/efilo-ai/compliance-engine/internal/config"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres/repositories"
	redisinfra "github.com/efilo-ai/compliance-engine/internal/infrastructure/database/redis"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/messaging/kafka"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/notify/email"
	"github.com/efilo-ai/compliance-engine/internal/intelligence/contractllm"
)

const defaultHealthPort = 8081

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment-only when empty)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: logger init: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("worker failed", logging.Err(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func run(cfg *config.Config, logger logging.Logger) error {
	// Infrastructure.
	conn, err := postgres.NewConnection(postgres.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.DBName,
		Username:        cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	redisClient, err := redisinfra.NewClient(&redisinfra.RedisConfig{
		Mode:         "standalone",
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	locks := redisinfra.NewLockFactory(redisClient, logger)

	mailer, err := email.NewMailer(email.Config{
		Host:        cfg.Email.Host,
		Port:        cfg.Email.Port,
		Username:    cfg.Email.Username,
		Password:    cfg.Email.Password,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		Timeout:     cfg.Email.Timeout,
	}, logger)
	if err != nil {
		return err
	}

	llmCfg := contractllm.DefaultConfig()
	llmCfg.BaseURL = cfg.Intelligence.BaseURL
	llmCfg.APIKey = cfg.Intelligence.APIKey
	llmCfg.ExtractionModel = cfg.Intelligence.ExtractionModel
	llmCfg.DraftingModel = cfg.Intelligence.DraftingModel
	if cfg.Intelligence.RequestTimeout > 0 {
		llmCfg.RequestTimeout = cfg.Intelligence.RequestTimeout
	}
	if cfg.Intelligence.MaxContractChars > 0 {
		llmCfg.MaxContractChars = cfg.Intelligence.MaxContractChars
	}
	llm, err := contractllm.NewClient(llmCfg, logger)
	if err != nil {
		return err
	}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "compliance",
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	// Repositories and services.
	tx := postgres.NewTxRunner(conn, logger)
	clauseRepo := repositories.NewPostgresClauseRepo(conn, logger)
	deadlineRepo := repositories.NewPostgresDeadlineRepo(conn, logger)
	noticeRepo := repositories.NewPostgresNoticeRepo(conn, logger)
	scoreRepo := repositories.NewPostgresScoreRepo(conn, logger)
	holidayRepo := repositories.NewPostgresHolidayRepo(conn, logger)
	auditRepo := repositories.NewPostgresAuditRepo(conn, logger)
	projectRepo := repositories.NewPostgresProjectRepo(conn, logger)
	notificationRepo := repositories.NewPostgresNotificationRepo(conn, logger)
	docs := repositories.NewPostgresDocumentSource(conn, logger)

	calendar := appcompliance.NewCalendarService(holidayRepo, logger)
	clauses := appcompliance.NewClauseService(clauseRepo, auditRepo, docs, llm, llmCfg, tx, logger)
	deadlines := appcompliance.NewDeadlineService(deadlineRepo, clauseRepo, auditRepo, calendar, tx, logger)
	triggers := appcompliance.NewTriggerService(clauseRepo, deadlines, deadlineRepo, logger)
	scores := appcompliance.NewScoreService(scoreRepo, noticeRepo, deadlineRepo, cfg.Compliance.ClaimsValuePerNoticeCents, logger)
	alerts := appcompliance.NewAlertService(deadlineRepo, projectRepo, notificationRepo, scores, mailer, logger)

	// Message consumer.
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topics:          []string{kafka.TopicTriggerEvent, kafka.TopicContractParse, kafka.TopicScoreRefresh},
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:   cfg.Worker.MaxRetries,
			RetryBackoff: cfg.Worker.RetryBackoff,
			DeadLetter:   true,
		},
	}, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	handlers := &messageHandlers{
		triggers: triggers,
		clauses:  clauses,
		scores:   scores,
		metrics:  metrics,
		logger:   logger,
	}
	consumer.Subscribe(kafka.TopicTriggerEvent, handlers.handleTriggerEvent)
	consumer.Subscribe(kafka.TopicContractParse, handlers.handleContractParse)
	consumer.Subscribe(kafka.TopicScoreRefresh, handlers.handleScoreRefresh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	// Cron scheduler.
	sched := &scheduler{
		locks:     locks,
		deadlines: deadlines,
		scores:    scores,
		alerts:    alerts,
		deadRepo:  deadlineRepo,
		projects:  projectRepo,
		metrics:   metrics,
		logger:    logger.Named("cron"),
	}
	c := cron.New(cron.WithLocation(time.UTC))
	if err := sched.register(c); err != nil {
		return err
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	// Health and metrics endpoint for the orchestrator and scrapes.
	healthPort := cfg.Worker.HealthPort
	if healthPort == 0 {
		healthPort = defaultHealthPort
	}
	healthSrv := newHealthServer(healthPort, conn, redisClient, collector.Handler())
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", logging.Err(err))
		}
	}()

	logger.Info("worker started",
		logging.String("group", cfg.Kafka.GroupID),
		logging.Int("health_port", healthPort),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", logging.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown failed", logging.Err(err))
	}
	return nil
}

// newHealthServer serves the worker's liveness, readiness, and metrics
// endpoints on a dedicated port.
func newHealthServer(port int, conn *postgres.Connection, redisClient *redisinfra.Client, metricsHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := conn.HealthCheck(ctx); err != nil {
			http.Error(w, "postgres down", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.Ping(ctx); err != nil {
			http.Error(w, "redis down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	mux.Handle("/metrics", metricsHandler)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
