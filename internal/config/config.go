package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	OTLPEndpoint string
	Telemetry    TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBStats           bool
	DBLogLevel        string
	DBSlowQueryMs     int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TaxingConfigPath is an extra directory searched for taxing.yml.
	TaxingConfigPath string

	Bootstrap   BootstrapConfig
	MetricsPush MetricsPushConfig
}

// TelemetryConfig tunes logs, traces and the tax metrics.
type TelemetryConfig struct {
	LogFormat             string
	LogSamplingInitial    int
	LogSamplingThereafter int

	OtelEnabled       bool
	OtelProtocol      string
	OtelSamplingRatio float64

	// TaxMetricsEnabled registers the prometheus tax metrics. Disabled
	// modules still record otel metrics when OtelEnabled is set.
	TaxMetricsEnabled bool
}

// MetricsPushConfig selects where short-lived runs push their metrics.
// An empty exporter disables pushing.
type MetricsPushConfig struct {
	Exporter        string
	Endpoint        string
	AuthToken       string
	Job             string
	IntervalSeconds int
}

type BootstrapConfig struct {
	RunMigrations bool
	SeedDefaults  bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "taxengine"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", "info")),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		Telemetry: TelemetryConfig{
			LogFormat:             strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			LogSamplingInitial:    getenvInt("LOG_SAMPLING_INITIAL", 100),
			LogSamplingThereafter: getenvInt("LOG_SAMPLING_THEREAFTER", 100),
			OtelEnabled:           getenvBool("OTEL_ENABLED", false),
			OtelProtocol:          strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			OtelSamplingRatio:     getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
			TaxMetricsEnabled:     getenvBool("TAX_METRICS_ENABLED", true),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBStats:           getenvBool("DATABASE_STATS", false),
		DBLogLevel:        strings.ToLower(getenv("DATABASE_LOG_LEVEL", "warn")),
		DBSlowQueryMs:     getenvInt("DATABASE_SLOW_QUERY_MS", 200),
		RedisAddr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("REDIS_DB", 0),
		TaxingConfigPath:  strings.TrimSpace(getenv("TAXING_CONFIG_PATH", "")),
		Bootstrap: BootstrapConfig{
			RunMigrations: getenvBool("BOOTSTRAP_RUN_MIGRATIONS", true),
			SeedDefaults:  getenvBool("BOOTSTRAP_SEED_DEFAULTS", true),
		},
		MetricsPush: MetricsPushConfig{
			Exporter:        strings.ToLower(strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", ""))),
			Endpoint:        strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken:       getenv("METRICS_PUSH_AUTH_TOKEN", ""),
			Job:             strings.TrimSpace(getenv("METRICS_PUSH_JOB", "")),
			IntervalSeconds: getenvInt("METRICS_PUSH_INTERVAL_SECONDS", 0),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
