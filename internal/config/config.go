package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	AWS       AWSConfig
	Detection DetectionConfig
	Forecast  ForecastConfig
	Collector CollectorConfig
	Insights  InsightsConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	Environment     string
	APIKey          string
	RateLimit       float64
	RateBurst       int
}

// DatabaseConfig contains record store configuration
type DatabaseConfig struct {
	Driver          string // sqlite, postgres or dynamodb
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// AWSConfig contains AWS client and table configuration
type AWSConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	MetricsTable    string
	CostsTable      string
	AnomaliesTable  string
	ForecastsTable  string
	AlertsTable     string
	AlertsTopicARN  string
}

// DetectionConfig contains anomaly detection defaults
type DetectionConfig struct {
	WindowSize          int
	ThresholdMultiplier float64
	MinDataPoints       int
	Lookback            time.Duration
	AlertMinSeverity    string
}

// ForecastConfig contains multi-month forecast defaults
type ForecastConfig struct {
	Months          int
	BaseMonthlyCost float64
	GrowthFactor    float64
	HistoryDays     int
}

// CollectorConfig contains scheduled collection configuration
type CollectorConfig struct {
	Enabled        bool
	AccountID      string
	CostSchedule   string
	MetricSchedule string
	DetectSchedule string
	// RetentionSchedule purges expired SQL rows; DynamoDB expires items itself
	RetentionSchedule string
	UseMockData       bool
	Concurrency       int
}

// InsightsConfig contains LLM insight configuration
type InsightsConfig struct {
	OpenAIAPIKey string
	Model        string
	Timeout      time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			APIKey:          getEnv("API_KEY", ""),
			RateLimit:       getEnvAsFloat("RATE_LIMIT_RPS", 100),
			RateBurst:       getEnvAsInt("RATE_LIMIT_BURST", 200),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "cloudops"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./cloudops.db"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REDIS_TTL", 15*time.Minute),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        getEnv("AWS_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			MetricsTable:    getEnv("METRICS_TABLE", "cloudops-metrics"),
			CostsTable:      getEnv("COSTS_TABLE", "cloudops-costs"),
			AnomaliesTable:  getEnv("ANOMALIES_TABLE", "cloudops-anomalies"),
			ForecastsTable:  getEnv("FORECASTS_TABLE", "cloudops-forecasts"),
			AlertsTable:     getEnv("ALERTS_TABLE", "cloudops-alerts"),
			AlertsTopicARN:  getEnv("ALERTS_TOPIC_ARN", ""),
		},
		Detection: DetectionConfig{
			WindowSize:          getEnvAsInt("DETECTION_WINDOW_SIZE", 24),
			ThresholdMultiplier: getEnvAsFloat("DETECTION_THRESHOLD_MULTIPLIER", 2.5),
			MinDataPoints:       getEnvAsInt("DETECTION_MIN_DATA_POINTS", 10),
			Lookback:            getEnvAsDuration("DETECTION_LOOKBACK", 24*time.Hour),
			AlertMinSeverity:    getEnv("DETECTION_ALERT_MIN_SEVERITY", "high"),
		},
		Forecast: ForecastConfig{
			Months:          getEnvAsInt("FORECAST_MONTHS", 3),
			BaseMonthlyCost: getEnvAsFloat("FORECAST_BASE_MONTHLY_COST", 3000),
			GrowthFactor:    getEnvAsFloat("FORECAST_GROWTH_FACTOR", 1.02),
			HistoryDays:     getEnvAsInt("FORECAST_HISTORY_DAYS", 30),
		},
		Collector: CollectorConfig{
			Enabled:           getEnvAsBool("COLLECTOR_ENABLED", false),
			AccountID:         getEnv("COLLECTOR_ACCOUNT_ID", "default"),
			CostSchedule:      getEnv("COLLECTOR_COST_SCHEDULE", "0 6 * * *"),
			MetricSchedule:    getEnv("COLLECTOR_METRIC_SCHEDULE", "*/5 * * * *"),
			DetectSchedule:    getEnv("COLLECTOR_DETECT_SCHEDULE", "*/15 * * * *"),
			RetentionSchedule: getEnv("COLLECTOR_RETENTION_SCHEDULE", "30 3 * * *"),
			UseMockData:       getEnvAsBool("USE_MOCK_DATA", false),
			Concurrency:       getEnvAsInt("COLLECTOR_CONCURRENCY", 4),
		},
		Insights: InsightsConfig{
			OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
			Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:      getEnvAsDuration("INSIGHTS_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "dynamodb":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Detection.ThresholdMultiplier <= 0 {
		return fmt.Errorf("detection threshold multiplier must be positive: %v", c.Detection.ThresholdMultiplier)
	}
	if c.Detection.MinDataPoints < 1 {
		return fmt.Errorf("detection min data points must be at least 1: %d", c.Detection.MinDataPoints)
	}
	if c.Detection.WindowSize < 1 {
		return fmt.Errorf("detection window size must be at least 1: %d", c.Detection.WindowSize)
	}
	switch c.Detection.AlertMinSeverity {
	case "low", "medium", "high", "critical":
	default:
		return fmt.Errorf("unsupported alert min severity: %s", c.Detection.AlertMinSeverity)
	}

	if c.Forecast.Months < 1 || c.Forecast.Months > 24 {
		return fmt.Errorf("forecast months must be between 1 and 24: %d", c.Forecast.Months)
	}
	if c.Forecast.GrowthFactor <= 0 {
		return fmt.Errorf("forecast growth factor must be positive: %v", c.Forecast.GrowthFactor)
	}

	if c.Collector.Concurrency < 1 {
		return fmt.Errorf("collector concurrency must be at least 1: %d", c.Collector.Concurrency)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
