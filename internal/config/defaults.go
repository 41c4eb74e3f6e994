// Package config provides configuration loading, defaults, and validation for
// the efilo compliance engine.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "efilo"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "efilo:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "compliance-worker"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 10
	DefaultWorkerHealthPort  = 8081

	DefaultLLMBaseURL          = "https://api.openai.com/v1"
	DefaultMaxContractChars    = 100_000
	DefaultExtractionMaxTokens = 8000
	DefaultDraftingMaxTokens   = 4000

	DefaultSMTPPort     = 587
	DefaultEmailFrom    = "noreply@efilo.ai"
	DefaultEmailFromName = "efilo"

	DefaultEnvironment            = "production"
	DefaultClaimsValueCents       = 5_000_000 // $50,000.00 per on-time notice
	DefaultRateLimitPerHour       = 1000
	DefaultSearchRateLimitPerMin  = 30
	DefaultDeadlineTimezone       = "America/Los_Angeles"
)

// ApplyDefaults fills every zero-value field in cfg with the engine default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must be called
// after unmarshalling raw config data and before Validate() so that
// optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 5 * time.Minute
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = time.Second
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}

	// ── Intelligence ──────────────────────────────────────────────────────────
	if cfg.Intelligence.BaseURL == "" {
		cfg.Intelligence.BaseURL = DefaultLLMBaseURL
	}
	if cfg.Intelligence.RequestTimeout == 0 {
		cfg.Intelligence.RequestTimeout = 120 * time.Second
	}
	if cfg.Intelligence.MaxContractChars == 0 {
		cfg.Intelligence.MaxContractChars = DefaultMaxContractChars
	}
	if cfg.Intelligence.ExtractionMaxTokens == 0 {
		cfg.Intelligence.ExtractionMaxTokens = DefaultExtractionMaxTokens
	}
	if cfg.Intelligence.DraftingMaxTokens == 0 {
		cfg.Intelligence.DraftingMaxTokens = DefaultDraftingMaxTokens
	}

	// ── Email ─────────────────────────────────────────────────────────────────
	if cfg.Email.Port == 0 {
		cfg.Email.Port = DefaultSMTPPort
	}
	if cfg.Email.FromAddress == "" {
		cfg.Email.FromAddress = DefaultEmailFrom
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = DefaultEmailFromName
	}
	if cfg.Email.Timeout == 0 {
		cfg.Email.Timeout = 30 * time.Second
	}

	// ── Compliance ────────────────────────────────────────────────────────────
	if cfg.Compliance.Environment == "" {
		cfg.Compliance.Environment = DefaultEnvironment
	}
	if cfg.Compliance.ClaimsValuePerNoticeCents == 0 {
		cfg.Compliance.ClaimsValuePerNoticeCents = DefaultClaimsValueCents
	}
	if cfg.Compliance.RateLimitPerHour == 0 {
		cfg.Compliance.RateLimitPerHour = DefaultRateLimitPerHour
	}
	if cfg.Compliance.SearchRateLimitPerMinute == 0 {
		cfg.Compliance.SearchRateLimitPerMinute = DefaultSearchRateLimitPerMin
	}
	if cfg.Compliance.DefaultTimezone == "" {
		cfg.Compliance.DefaultTimezone = DefaultDeadlineTimezone
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
