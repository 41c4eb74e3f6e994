package main

import (
	"context"

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
	httpserver "github.com/efilo-ai/compliance-engine/internal/interfaces/http"
	"github.com/efilo-ai/compliance-engine/internal/interfaces/http/handlers"
	"github.com/efilo-ai/compliance-engine/internal/interfaces/http/middleware"
)

// app holds the assembled router configuration and the connections that must
// be closed on shutdown.
type app struct {
	Router httpserver.RouterConfig

	pg       *postgres.Connection
	redis    *redisinfra.Client
	producer *kafka.Producer
	logger   logging.Logger
}

// Close releases infrastructure connections in reverse dependency order.
func (a *app) Close() {
	if err := a.producer.Close(); err != nil {
		a.logger.Warn("kafka producer close failed", logging.Err(err))
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("redis close failed", logging.Err(err))
	}
	if err := a.pg.Close(); err != nil {
		a.logger.Warn("postgres close failed", logging.Err(err))
	}
}

// pingerFunc adapts a plain health-check function to the handlers.Pinger
// interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// buildApp connects infrastructure, constructs the application services, and
// assembles the router configuration.
func buildApp(cfg *config.Config, logger logging.Logger) (*app, error) {
	conn, err := postgres.NewConnection(postgresConfig(cfg.Database), logger)
	if err != nil {
		return nil, err
	}

	redisClient, err := redisinfra.NewClient(redisConfig(cfg.Redis), logger)
	if err != nil {
		return nil, err
	}
	cache := redisinfra.NewRedisCache(redisClient, logger,
		redisinfra.WithPrefix(cfg.Redis.KeyPrefix),
		redisinfra.WithDefaultTTL(cfg.Redis.DefaultTTL),
	)

	producer, err := kafka.NewProducer(producerConfig(cfg.Kafka), logger)
	if err != nil {
		return nil, err
	}
	refresher := kafka.NewScoreRefreshPublisher(producer)

	mailer, err := email.NewMailer(mailerConfig(cfg.Email), logger)
	if err != nil {
		return nil, err
	}

	llmCfg := llmConfig(cfg.Intelligence)
	llm, err := contractllm.NewClient(llmCfg, logger)
	if err != nil {
		return nil, err
	}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "compliance",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, err
	}
	metrics := prometheus.NewAppMetrics(collector)

	// Repositories.
	tx := postgres.NewTxRunner(conn, logger)
	clauseRepo := repositories.NewPostgresClauseRepo(conn, logger)
	deadlineRepo := repositories.NewPostgresDeadlineRepo(conn, logger)
	noticeRepo := repositories.NewPostgresNoticeRepo(conn, logger)
	scoreRepo := repositories.NewPostgresScoreRepo(conn, logger)
	holidayRepo := repositories.NewPostgresHolidayRepo(conn, logger)
	auditRepo := repositories.NewPostgresAuditRepo(conn, logger)
	projectRepo := repositories.NewPostgresProjectRepo(conn, logger)
	docs := repositories.NewPostgresDocumentSource(conn, logger)

	// Application services.
	calendar := appcompliance.NewCalendarService(holidayRepo, logger)
	clauses := appcompliance.NewClauseService(clauseRepo, auditRepo, docs, llm, llmCfg, tx, logger)
	deadlines := appcompliance.NewDeadlineService(deadlineRepo, clauseRepo, auditRepo, calendar, tx, logger)
	notices := appcompliance.NewNoticeService(noticeRepo, deadlineRepo, clauseRepo, auditRepo, projectRepo,
		llm, llmCfg, mailer, refresher, tx, logger)
	scores := appcompliance.NewScoreService(scoreRepo, noticeRepo, deadlineRepo, cfg.Compliance.ClaimsValuePerNoticeCents, logger)
	search := appcompliance.NewSearchService(clauseRepo, deadlineRepo, noticeRepo, logger)
	holidays := appcompliance.NewHolidayService(holidayRepo, logger)

	// Middleware.
	auth := middleware.NewAuthMiddleware(middleware.AuthConfig{}, logger)
	limiter := middleware.NewRateLimiter(cache, func(scope string) {
		metrics.RateLimitRejections.WithLabelValues(scope).Inc()
	}, logger)
	general := middleware.GeneralRateLimit(cfg.Compliance.RateLimitPerHour)
	searchLimit := middleware.SearchRateLimit(cfg.Compliance.SearchRateLimitPerMinute)
	if cfg.Compliance.Environment == "development" {
		general.Disabled = true
		searchLimit.Disabled = true
	}

	health := handlers.NewHealthHandler(scores, map[string]handlers.Pinger{
		"postgres": pingerFunc(conn.HealthCheck),
		"redis":    pingerFunc(cache.Ping),
	}, logger)

	return &app{
		Router: httpserver.RouterConfig{
			Logger:            logger,
			ClauseHandler:     handlers.NewClauseHandler(clauses, logger),
			DeadlineHandler:   handlers.NewDeadlineHandler(deadlines, logger),
			NoticeHandler:     handlers.NewNoticeHandler(notices, logger),
			ScoreHandler:      handlers.NewScoreHandler(scores, logger),
			SearchHandler:     handlers.NewSearchHandler(search, logger),
			HolidayHandler:    handlers.NewHolidayHandler(holidays, logger),
			HealthHandler:     health,
			Auth:              auth,
			RateLimiter:       limiter,
			GeneralLimit:      general,
			SearchLimit:       searchLimit,
			CORS:              middleware.DefaultCORSConfig("*"),
			MetricsHandler:    collector.Handler(),
			MetricsMiddleware: middleware.Metrics(metrics),
		},
		pg:       conn,
		redis:    redisClient,
		producer: producer,
		logger:   logger,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Config adapters
// ─────────────────────────────────────────────────────────────────────────────

func postgresConfig(cfg config.DatabaseConfig) postgres.PostgresConfig {
	return postgres.PostgresConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Database:        cfg.DBName,
		Username:        cfg.User,
		Password:        cfg.Password,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

func redisConfig(cfg config.RedisConfig) *redisinfra.RedisConfig {
	return &redisinfra.RedisConfig{
		Mode:         "standalone",
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func producerConfig(cfg config.KafkaConfig) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:    cfg.Brokers,
		MaxRetries: cfg.ProducerRetries,
		BatchSize:  cfg.BatchSize,
	}
}

func mailerConfig(cfg config.EmailConfig) email.Config {
	return email.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
		Timeout:     cfg.Timeout,
	}
}

func llmConfig(cfg config.IntelligenceConfig) contractllm.Config {
	c := contractllm.DefaultConfig()
	c.BaseURL = cfg.BaseURL
	c.APIKey = cfg.APIKey
	c.ExtractionModel = cfg.ExtractionModel
	c.DraftingModel = cfg.DraftingModel
	if cfg.RequestTimeout > 0 {
		c.RequestTimeout = cfg.RequestTimeout
	}
	if cfg.MaxContractChars > 0 {
		c.MaxContractChars = cfg.MaxContractChars
	}
	if cfg.ExtractionMaxTokens > 0 {
		c.ExtractionMaxTokens = cfg.ExtractionMaxTokens
	}
	if cfg.DraftingMaxTokens > 0 {
		c.DraftingMaxTokens = cfg.DraftingMaxTokens
	}
	return c
}
