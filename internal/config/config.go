package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	RabbitMQ RabbitMQConfig
	Maps     MapsConfig
	Ledger   LedgerConfig
	Policy   PolicyConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// RabbitMQConfig holds the event broker configuration.
// An empty URL disables event publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// MapsConfig holds the route estimator configuration.
type MapsConfig struct {
	APIKey   string
	Language string
	Region   string
}

// ChainConfig describes one block explorer endpoint.
type ChainConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Kind    string // "etherscan" or "trongrid"
}

// LedgerConfig holds block explorer settings used by payment auto-detection.
type LedgerConfig struct {
	Chains      []ChainConfig
	Timeout     time.Duration
	Retries     int
	Parallelism int
}

// PolicyConfig holds the business policy constants.
type PolicyConfig struct {
	// GroupWindow is the half-width of the grouping and conflict window.
	GroupWindow time.Duration
	// PaymentDetectionWindow is how far after the requested time transfers are accepted.
	PaymentDetectionWindow time.Duration
	// AmountEpsilon is the tolerance used when comparing payment amounts.
	AmountEpsilon float64
	// PaymentExpiry is how long a payment may stay pending before it expires.
	PaymentExpiry time.Duration
	// ExpirySweepInterval is how often stale payments are expired.
	ExpirySweepInterval time.Duration
	// RouteCacheTTL is how long fixed routes are cached.
	RouteCacheTTL time.Duration
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to read .env: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "carpool"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "carpool-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "carpool_events"),
		},
		Maps: MapsConfig{
			APIKey:   getEnv("GOOGLE_MAPS_API_KEY", ""),
			Language: getEnv("GOOGLE_MAPS_LANGUAGE", "en"),
			Region:   getEnv("GOOGLE_MAPS_REGION", ""),
		},
		Ledger: LedgerConfig{
			Chains:      loadChains(),
			Timeout:     getDurationEnv("LEDGER_TIMEOUT", 8*time.Second),
			Retries:     getIntEnv("LEDGER_RETRIES", 2),
			Parallelism: getIntEnv("LEDGER_PARALLELISM", 4),
		},
		Policy: PolicyConfig{
			GroupWindow:            getDurationEnv("GROUP_WINDOW", 30*time.Minute),
			PaymentDetectionWindow: getDurationEnv("PAYMENT_DETECTION_WINDOW", 72*time.Hour),
			AmountEpsilon:          getFloatEnv("PAYMENT_AMOUNT_EPSILON", 0.001),
			PaymentExpiry:          getDurationEnv("PAYMENT_EXPIRY", 7*24*time.Hour),
			ExpirySweepInterval:    getDurationEnv("PAYMENT_EXPIRY_SWEEP", 15*time.Minute),
			RouteCacheTTL:          getDurationEnv("ROUTE_CACHE_TTL", 10*time.Minute),
		},
	}
}

// loadChains reads LEDGER_CHAINS (comma separated chain names) and, per chain,
// <NAME>_EXPLORER_URL, <NAME>_EXPLORER_API_KEY and <NAME>_EXPLORER_KIND.
func loadChains() []ChainConfig {
	names := getEnv("LEDGER_CHAINS", "ethereum,bsc,tron")

	var chains []ChainConfig
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		prefix := strings.ToUpper(name)
		chains = append(chains, ChainConfig{
			Name:    name,
			BaseURL: getEnv(prefix+"_EXPLORER_URL", defaultExplorerURL(name)),
			APIKey:  getEnv(prefix+"_EXPLORER_API_KEY", ""),
			Kind:    getEnv(prefix+"_EXPLORER_KIND", defaultExplorerKind(name)),
		})
	}
	return chains
}

func defaultExplorerURL(chain string) string {
	switch chain {
	case "ethereum":
		return "https://api.etherscan.io/api"
	case "bsc":
		return "https://api.bscscan.com/api"
	case "polygon":
		return "https://api.polygonscan.com/api"
	case "tron":
		return "https://api.trongrid.io"
	default:
		return ""
	}
}

func defaultExplorerKind(chain string) string {
	if chain == "tron" {
		return "trongrid"
	}
	return "etherscan"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
