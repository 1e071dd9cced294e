package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// HTTP holds HTTP server configuration.
type HTTP struct {
	Host         string
	Port         int
	AllowOrigins []string
	BodyLimit    string
}

// GRPC holds gRPC server configuration.
type GRPC struct {
	Host string
	Port int
}

// Cache configures caching behavior and backend selection.
type Cache struct {
	Enabled    bool
	Driver     string
	DefaultTTL time.Duration
	Redis      Redis
}

// Redis contains redis-specific connection settings.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Messaging configures the message bus used by the application.
type Messaging struct {
	Driver        string
	Enabled       bool
	Kafka         Kafka
	ConsumerGroup string
	Workers       Worker
}

// Kafka holds Kafka connection details.
type Kafka struct {
	Brokers        []string
	ClientID       string
	Topic          string
	CommitInterval time.Duration
	MinBytes       int
	MaxBytes       int
	ConnectTimeout time.Duration
}

// Worker configures background worker concurrency and polling.
type Worker struct {
	Enabled      bool
	PollInterval time.Duration
	Concurrency  int
}

// Database holds the notification ledger connection settings.
type Database struct {
	Enabled         bool
	Driver          string
	WriterDSN       string
	ReaderDSN       string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// Observability contains logging, tracing, and metrics configuration.
type Observability struct {
	ServiceName     string
	Environment     string
	LogLevel        string
	LogEncoding     string
	EnableTracing   bool
	TraceExporter   string
	TraceEndpoint   string
	TraceInsecure   bool
	EnableMetrics   bool
	MetricsExporter string
	PrometheusPath  string
}

// Store configures the hosted record store REST endpoint.
type Store struct {
	URL        string
	ServiceKey string
	AnonKey    string
	Timeout    time.Duration
}

// Line configures the messaging platform client.
type Line struct {
	AccessToken   string
	ChannelSecret string
	StaffUserID   string
	APIBaseURL    string
	WebAppURL     string
	Timeout       time.Duration
}

// AI configures the chat-completion fallback.
type AI struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Referer     string
	Title       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Order holds order workflow knobs.
type Order struct {
	Timezone       string
	Location       *time.Location
	MigrationMode  string
	NumberAttempts int
	TotalTolerance float64
	TotalPolicy    string
	RollbackPolicy string
	MinPhoneLength int
}

// Notification configures the background notification queue.
type Notification struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Payment configures payment transaction defaults.
type Payment struct {
	PromptPayID string
	QRValidity  time.Duration
}

// Config wraps all application configuration knobs.
type Config struct {
	HTTP          HTTP
	GRPC          GRPC
	Cache         Cache
	Messaging     Messaging
	Database      Database
	Observability Observability
	Store         Store
	Line          Line
	AI            AI
	Order         Order
	Notification  Notification
	Payment       Payment
}

// Migration modes for the order schema dual-write shim.
const (
	MigrationLegacy   = "legacy"
	MigrationDual     = "dual"
	MigrationEnhanced = "enhanced"
)

// Total policies decide which amount is persisted when items and the declared total disagree.
const (
	TotalTrustClient = "trust_client"
	TotalRecompute   = "recompute"
)

// Rollback policies applied when an order row exists but its items failed to persist.
const (
	RollbackCancel = "cancel"
	RollbackDelete = "delete"
)

// AI providers.
const (
	AIProviderOpenRouter = "openrouter"
	AIProviderMock       = "mock"
)

// Module wires the configuration loader into the Fx graph.
var Module = fx.Provide(New)

var loadEnvOnce sync.Once

// New builds a Config from environment variables or defaults.
func New() (Config, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	cfg := Config{
		HTTP: HTTP{
			Host:         getEnv("HTTP_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("HTTP_PORT", 8000, "PORT"),
			AllowOrigins: getEnvAsStringSlice("HTTP_ALLOW_ORIGINS", []string{"*"}),
			BodyLimit:    getEnv("HTTP_BODY_LIMIT", "2M"),
		},
		GRPC: GRPC{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnvAsInt("GRPC_PORT", 9090),
		},
		Cache: Cache{
			Enabled:    getEnvAsBool("CACHE_ENABLED", true),
			Driver:     getEnv("CACHE_DRIVER", "redis"),
			DefaultTTL: getEnvAsDuration("CACHE_DEFAULT_TTL", time.Minute),
			Redis: Redis{
				Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
			},
		},
		Messaging: Messaging{
			Driver:  getEnv("MESSAGING_DRIVER", "kafka"),
			Enabled: getEnvAsBool("MESSAGING_ENABLED", true),
			Kafka: Kafka{
				Brokers:        getEnvAsStringSlice("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
				ClientID:       getEnv("KAFKA_CLIENT_ID", "tenzai-service"),
				Topic:          getEnv("KAFKA_TOPIC", "orders.events"),
				CommitInterval: getEnvAsDuration("KAFKA_COMMIT_INTERVAL", time.Second),
				MinBytes:       getEnvAsInt("KAFKA_MIN_BYTES", 10e3),
				MaxBytes:       getEnvAsInt("KAFKA_MAX_BYTES", 10e6),
				ConnectTimeout: getEnvAsDuration("KAFKA_CONNECT_TIMEOUT", 5*time.Second),
			},
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "tenzai-worker"),
			Workers: Worker{
				Enabled:      getEnvAsBool("WORKER_ENABLED", true),
				PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", time.Second),
				Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 2),
			},
		},
		Database: Database{
			Enabled:         getEnvAsBool("DB_ENABLED", true),
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			WriterDSN:       getEnv("DB_WRITER_DSN", "file:tenzai-ledger.db?cache=shared"),
			ReaderDSN:       getEnv("DB_READER_DSN", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Minute*5),
		},
		Observability: Observability{
			ServiceName:     getEnv("OBS_SERVICE_NAME", "tenzai"),
			Environment:     getEnv("OBS_ENVIRONMENT", "local"),
			LogLevel:        getEnv("OBS_LOG_LEVEL", "info"),
			LogEncoding:     getEnv("OBS_LOG_ENCODING", "json"),
			EnableTracing:   getEnvAsBool("OBS_ENABLE_TRACING", true),
			TraceExporter:   getEnv("OBS_TRACE_EXPORTER", "stdout"),
			TraceEndpoint:   getEnv("OBS_OTLP_ENDPOINT", "localhost:4317"),
			TraceInsecure:   getEnvAsBool("OBS_OTLP_INSECURE", true),
			EnableMetrics:   getEnvAsBool("OBS_ENABLE_METRICS", true),
			MetricsExporter: getEnv("OBS_METRICS_EXPORTER", "prometheus"),
			PrometheusPath:  getEnv("OBS_PROMETHEUS_PATH", "/metrics"),
		},
		Store: Store{
			URL:        getEnv("STORE_URL", "http://127.0.0.1:54321", "SUPABASE_URL"),
			ServiceKey: getEnv("STORE_SERVICE_KEY", "", "SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_SERVICE_KEY"),
			AnonKey:    getEnv("STORE_ANON_KEY", "", "SUPABASE_ANON_KEY"),
			Timeout:    getEnvAsDuration("STORE_TIMEOUT", 30*time.Second),
		},
		Line: Line{
			AccessToken:   getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
			ChannelSecret: getEnv("LINE_CHANNEL_SECRET", ""),
			StaffUserID:   getEnv("LINE_STAFF_USER_ID", "", "STAFF_LINE_ID"),
			APIBaseURL:    getEnv("LINE_API_BASE_URL", "https://api.line.me"),
			WebAppURL:     getEnv("WEBAPP_BASE_URL", "http://localhost:8000"),
			Timeout:       getEnvAsDuration("LINE_TIMEOUT", 15*time.Second),
		},
		AI: AI{
			Provider:    getEnv("AI_PROVIDER", AIProviderOpenRouter),
			APIKey:      getEnv("AI_API_KEY", "", "OPENROUTER_API_KEY"),
			BaseURL:     getEnv("AI_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnv("AI_MODEL", "mistralai/mistral-7b-instruct:free"),
			Referer:     getEnv("AI_REFERER", "https://order.tenzaitech.online"),
			Title:       getEnv("AI_TITLE", "Tenzai Sushi Chatbot"),
			Timeout:     getEnvAsDuration("AI_TIMEOUT", 8*time.Second),
			MaxTokens:   getEnvAsInt("AI_MAX_TOKENS", 100),
			Temperature: getEnvAsFloat("AI_TEMPERATURE", 0.7),
		},
		Order: Order{
			Timezone:       getEnv("ORDER_TIMEZONE", "Asia/Bangkok"),
			MigrationMode:  getEnv("ORDER_MIGRATION_MODE", MigrationLegacy),
			NumberAttempts: getEnvAsInt("ORDER_NUMBER_ATTEMPTS", 5),
			TotalTolerance: getEnvAsFloat("ORDER_TOTAL_TOLERANCE", 0.01),
			TotalPolicy:    getEnv("ORDER_TOTAL_POLICY", TotalTrustClient),
			RollbackPolicy: getEnv("ORDER_ROLLBACK_POLICY", RollbackCancel),
			MinPhoneLength: getEnvAsInt("ORDER_MIN_PHONE_LENGTH", 9),
		},
		Notification: Notification{
			Workers:   getEnvAsInt("NOTIFY_WORKERS", 2),
			QueueSize: getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			Timeout:   getEnvAsDuration("NOTIFY_TIMEOUT", 15*time.Second),
		},
		Payment: Payment{
			PromptPayID: getEnv("PAYMENT_PROMPTPAY_ID", "0123456789"),
			QRValidity:  getEnvAsDuration("PAYMENT_QR_VALIDITY", time.Hour),
		},
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.HTTP.Port <= 0 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.HTTP.Port)
	}

	if cfg.GRPC.Port <= 0 {
		return fmt.Errorf("invalid gRPC port: %d", cfg.GRPC.Port)
	}

	if !cfg.Cache.Enabled {
		cfg.Cache.Driver = "noop"
	}

	switch cfg.Cache.Driver {
	case "redis", "memory", "noop":
		// supported
	default:
		return fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}

	if cfg.Cache.Driver == "redis" && cfg.Cache.Redis.Addr == "" {
		return fmt.Errorf("missing REDIS_ADDR for redis cache")
	}

	if cfg.Cache.DefaultTTL < 0 {
		cfg.Cache.DefaultTTL = time.Minute
	}

	cfg.Observability.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Observability.LogLevel))
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	cfg.Observability.LogEncoding = strings.ToLower(strings.TrimSpace(cfg.Observability.LogEncoding))
	if cfg.Observability.LogEncoding == "" {
		cfg.Observability.LogEncoding = "json"
	}
	cfg.Observability.TraceExporter = strings.ToLower(strings.TrimSpace(cfg.Observability.TraceExporter))
	if cfg.Observability.TraceExporter == "" {
		cfg.Observability.TraceExporter = "stdout"
	}
	cfg.Observability.MetricsExporter = strings.ToLower(strings.TrimSpace(cfg.Observability.MetricsExporter))
	if cfg.Observability.MetricsExporter == "" {
		cfg.Observability.MetricsExporter = "prometheus"
	}

	if cfg.Observability.PrometheusPath == "" {
		cfg.Observability.PrometheusPath = "/metrics"
	} else if !strings.HasPrefix(cfg.Observability.PrometheusPath, "/") {
		cfg.Observability.PrometheusPath = "/" + cfg.Observability.PrometheusPath
	}

	if !cfg.Messaging.Enabled {
		cfg.Messaging.Driver = "noop"
	}

	switch cfg.Messaging.Driver {
	case "kafka", "memory", "noop":
		// supported
	default:
		return fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}

	if cfg.Messaging.Driver == "kafka" {
		if len(cfg.Messaging.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS must be provided")
		}
		if cfg.Messaging.Kafka.Topic == "" {
			return fmt.Errorf("KAFKA_TOPIC must be provided")
		}
		if cfg.Messaging.ConsumerGroup == "" {
			return fmt.Errorf("KAFKA_CONSUMER_GROUP must be provided")
		}
	}

	if cfg.Messaging.Workers.Concurrency <= 0 {
		cfg.Messaging.Workers.Concurrency = 1
	}
	if cfg.Messaging.Workers.PollInterval <= 0 {
		cfg.Messaging.Workers.PollInterval = time.Second
	}

	if cfg.Database.Enabled {
		if cfg.Database.WriterDSN == "" {
			return fmt.Errorf("missing DB_WRITER_DSN")
		}
		if cfg.Database.ReaderDSN == "" {
			cfg.Database.ReaderDSN = cfg.Database.WriterDSN
		}
	}

	cfg.Store.URL = strings.TrimRight(strings.TrimSpace(cfg.Store.URL), "/")
	if cfg.Store.URL == "" {
		return fmt.Errorf("missing STORE_URL")
	}
	if cfg.Store.Timeout <= 0 {
		cfg.Store.Timeout = 30 * time.Second
	}

	cfg.Line.APIBaseURL = strings.TrimRight(cfg.Line.APIBaseURL, "/")
	cfg.Line.WebAppURL = strings.TrimRight(cfg.Line.WebAppURL, "/")
	if cfg.Line.Timeout <= 0 {
		cfg.Line.Timeout = 15 * time.Second
	}

	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	switch cfg.AI.Provider {
	case AIProviderOpenRouter, AIProviderMock:
	default:
		return fmt.Errorf("unsupported AI provider: %s", cfg.AI.Provider)
	}
	cfg.AI.BaseURL = strings.TrimRight(cfg.AI.BaseURL, "/")
	if cfg.AI.Timeout <= 0 || cfg.AI.Timeout >= 10*time.Second {
		cfg.AI.Timeout = 8 * time.Second
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 100
	}

	loc, err := time.LoadLocation(cfg.Order.Timezone)
	if err != nil {
		loc = time.FixedZone("ICT", 7*60*60)
	}
	cfg.Order.Location = loc

	cfg.Order.MigrationMode = strings.ToLower(strings.TrimSpace(cfg.Order.MigrationMode))
	switch cfg.Order.MigrationMode {
	case MigrationLegacy, MigrationDual, MigrationEnhanced:
		// supported
	default:
		return fmt.Errorf("unsupported ORDER_MIGRATION_MODE: %s", cfg.Order.MigrationMode)
	}

	switch cfg.Order.TotalPolicy {
	case TotalTrustClient, TotalRecompute:
		// supported
	default:
		return fmt.Errorf("unsupported ORDER_TOTAL_POLICY: %s", cfg.Order.TotalPolicy)
	}

	switch cfg.Order.RollbackPolicy {
	case RollbackCancel, RollbackDelete:
		// supported
	default:
		return fmt.Errorf("unsupported ORDER_ROLLBACK_POLICY: %s", cfg.Order.RollbackPolicy)
	}

	if cfg.Order.NumberAttempts <= 0 {
		cfg.Order.NumberAttempts = 5
	}
	if cfg.Order.TotalTolerance < 0 {
		cfg.Order.TotalTolerance = 0.01
	}
	if cfg.Order.MinPhoneLength <= 0 {
		cfg.Order.MinPhoneLength = 9
	}

	if cfg.Notification.Workers <= 0 {
		cfg.Notification.Workers = 1
	}
	if cfg.Notification.QueueSize <= 0 {
		cfg.Notification.QueueSize = 64
	}
	if cfg.Notification.Timeout <= 0 {
		cfg.Notification.Timeout = 15 * time.Second
	}

	if cfg.Payment.QRValidity <= 0 {
		cfg.Payment.QRValidity = time.Hour
	}

	return nil
}
