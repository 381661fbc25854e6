package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App       App       `mapstructure:",squash"`
	Server    Server    `mapstructure:",squash"`
	Database  Database  `mapstructure:",squash"`
	Auth      Auth      `mapstructure:",squash"`
	Stripe    Stripe    `mapstructure:",squash"`
	Webhook   Webhook   `mapstructure:",squash"`
	Metrics   Metrics   `mapstructure:",squash"`
	Redis     Redis     `mapstructure:",squash"`
	Scheduler Scheduler `mapstructure:",squash"`
	Cors      Cors      `mapstructure:",squash"`
}

type App struct {
	LogLevel    string `mapstructure:"log_level"`
	Environment string `mapstructure:"app_env"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type Database struct {
	DSN         string `mapstructure:"-"`
	Driver      string `mapstructure:"database_driver"`
	Password    string `mapstructure:"database_password"`
	URL         string `mapstructure:"database_url"`
	User        string `mapstructure:"database_user"`
	AutoMigrate bool   `mapstructure:"database_auto_migrate"`
}

type Auth struct {
	SecretKey     string        `mapstructure:"secret_key"`
	TokenDuration time.Duration `mapstructure:"auth_token_duration"`
}

type Stripe struct {
	WebhookSecret     string        `mapstructure:"stripe_webhook_secret"`
	WebhookTolerance  time.Duration `mapstructure:"stripe_webhook_tolerance"`
	APIURL            string        `mapstructure:"stripe_api_url"`
	RequestTimeout    time.Duration `mapstructure:"stripe_request_timeout"`
	RequestsPerSecond float64       `mapstructure:"stripe_requests_per_second"`
	RequestBurst      int           `mapstructure:"stripe_request_burst"`
}

type Webhook struct {
	MaxBodyBytes                int64         `mapstructure:"webhook_max_body_bytes"`
	IdempotencyWindow           time.Duration `mapstructure:"webhook_idempotency_window"`
	IdempotencyCompactThreshold int           `mapstructure:"webhook_idempotency_compact_threshold"`
	RetryMaxAttempts            int           `mapstructure:"webhook_retry_max_attempts"`
	RetryInitialInterval        time.Duration `mapstructure:"webhook_retry_initial_interval"`
	ProcessingBudget            time.Duration `mapstructure:"webhook_processing_budget"`
}

type Metrics struct {
	SubscriptionPageSize int64         `mapstructure:"metrics_subscription_page_size"`
	CustomerLimit        int64         `mapstructure:"metrics_customer_limit"`
	ChurnBaselineRate    float64       `mapstructure:"metrics_churn_baseline_rate"`
	RecalculationWindow  time.Duration `mapstructure:"metrics_recalculation_window"`
}

type Redis struct {
	URL       string `mapstructure:"redis_url"`
	KeyPrefix string `mapstructure:"redis_key_prefix"`
}

type Scheduler struct {
	MetricsSyncCron           string `mapstructure:"metrics_sync_cron"`
	MetricsSyncEnabled        bool   `mapstructure:"metrics_sync_enabled"`
	MetricsSyncMaxConcurrency int    `mapstructure:"metrics_sync_max_concurrency"`
	IdempotencyCompactionCron string `mapstructure:"idempotency_compaction_cron"`
}

type Cors struct {
	AllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "debug")

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/saas_metrics?sslmode=disable")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")
	viper.SetDefault("DATABASE_AUTO_MIGRATE", true)

	viper.SetDefault("SECRET_KEY", "your_secret_key")
	viper.SetDefault("AUTH_TOKEN_DURATION", "24h")

	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("STRIPE_WEBHOOK_TOLERANCE", "5m")
	viper.SetDefault("STRIPE_API_URL", "")
	viper.SetDefault("STRIPE_REQUEST_TIMEOUT", "10s")
	viper.SetDefault("STRIPE_REQUESTS_PER_SECOND", 20)
	viper.SetDefault("STRIPE_REQUEST_BURST", 5)

	viper.SetDefault("WEBHOOK_MAX_BODY_BYTES", 1<<20)
	viper.SetDefault("WEBHOOK_IDEMPOTENCY_WINDOW", "24h")
	viper.SetDefault("WEBHOOK_IDEMPOTENCY_COMPACT_THRESHOLD", 10000)
	viper.SetDefault("WEBHOOK_RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("WEBHOOK_RETRY_INITIAL_INTERVAL", "1s")
	viper.SetDefault("WEBHOOK_PROCESSING_BUDGET", "30s")

	viper.SetDefault("METRICS_SUBSCRIPTION_PAGE_SIZE", 100)
	viper.SetDefault("METRICS_CUSTOMER_LIMIT", 1000)
	viper.SetDefault("METRICS_CHURN_BASELINE_RATE", 0.05)
	viper.SetDefault("METRICS_RECALCULATION_WINDOW", "5m")

	// Empty means process-local stores
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_KEY_PREFIX", "saas-metrics")

	viper.SetDefault("METRICS_SYNC_CRON", "0 2 * * *") // every day at 02:00
	viper.SetDefault("METRICS_SYNC_ENABLED", false)
	viper.SetDefault("METRICS_SYNC_MAX_CONCURRENCY", 3)
	viper.SetDefault("IDEMPOTENCY_COMPACTION_CRON", "*/30 * * * *")

	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
}

func NewConfig() (*Config, error) {
	loadEnvFile()

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("config: using environment loaded by godotenv, viper could not read .env: ", err)
	} else {
		logrus.Info("config: .env read by viper")
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// Validate rejects settings the webhook pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Webhook.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: WEBHOOK_MAX_BODY_BYTES must be positive, got %d", c.Webhook.MaxBodyBytes)
	}
	if c.Webhook.RetryMaxAttempts < 1 {
		return fmt.Errorf("config: WEBHOOK_RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Webhook.RetryMaxAttempts)
	}
	if c.Webhook.IdempotencyWindow <= 0 {
		return fmt.Errorf("config: WEBHOOK_IDEMPOTENCY_WINDOW must be positive")
	}
	if c.Metrics.ChurnBaselineRate < 0 || c.Metrics.ChurnBaselineRate >= 1 {
		return fmt.Errorf("config: METRICS_CHURN_BASELINE_RATE must be in [0, 1), got %v", c.Metrics.ChurnBaselineRate)
	}
	if c.Stripe.WebhookSecret == "" {
		logrus.Warn("config: STRIPE_WEBHOOK_SECRET is empty, every webhook delivery will be rejected")
	}
	return nil
}

func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("config: could not resolve working directory: ", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
		filepath.Join(cwd, "../../.env"),
	}

	for _, location := range locations {
		if err := godotenv.Load(location); err == nil {
			logrus.Info("config: .env loaded from ", location)
			return
		}
	}

	logrus.Debug("config: no .env file found, relying on process environment")
}
