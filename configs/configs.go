// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// Airport is the target airport and the area polled around it.
	Airport AirportConfig

	// Policy holds the extraction thresholds.
	Policy PolicyConfig

	// Index bounds the store read that seeds the signature index.
	Index IndexConfig

	// Run holds per-run execution settings.
	Run RunConfig

	// Source holds the flight data source settings.
	Source SourceConfig

	// Store selects and configures the event store backend.
	Store StoreConfig

	// Kafka is used to announce recorded movements. Empty Broker disables it.
	Kafka KafkaConfig

	// Server holds the HTTP API settings.
	Server ServerConfig

	// Log holds logger settings.
	Log LogConfig
}

// AirportConfig describes the target airport.
type AirportConfig struct {
	// IATA is the target airport code (e.g., "MAD").
	IATA string

	// Latitude and Longitude locate the airport.
	Latitude  float64
	Longitude float64

	// RadiusMeters is the half-side of the polled square.
	RadiusMeters float64

	// Timezone renders stored local times (e.g., "Europe/Madrid").
	Timezone string
}

// PolicyConfig holds the extractor thresholds.
type PolicyConfig struct {
	FreshnessWindow      time.Duration
	ArrivalCeilingFt     int
	DepartureCeilingFt   int
	UnknownCeilingFt     int
	GroundSpeedCeilingKt int
	DelaySanityLimit     time.Duration

	// Resolver is "route" or "status".
	Resolver string
}

// IndexConfig bounds the signature index read window.
type IndexConfig struct {
	Rows    int
	Horizon time.Duration
}

// RunConfig holds run execution settings.
type RunConfig struct {
	WriteMaxAttempts int
	WriteBaseDelay   time.Duration
	Workers          int

	// Lock is "process" or "none".
	Lock string

	// CollectInterval drives the standalone collector loop.
	CollectInterval time.Duration
}

// SourceConfig holds FlightRadar24 endpoint settings.
type SourceConfig struct {
	FeedURL        string
	DetailURL      string
	DetailInterval time.Duration
}

// StoreConfig selects the backend.
type StoreConfig struct {
	// Backend is "sheets", "clickhouse" or "memory".
	Backend string

	GoogleCredentialsFile string
	SpreadsheetID         string
	SheetName             string

	// ClickHouseDSN is the ClickHouse connection string.
	ClickHouseDSN string
}

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	// Broker is the Kafka broker address (e.g., "localhost:9092").
	Broker string

	// Topic receives one message per recorded movement.
	Topic string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// getDatabaseDSN constructs the ClickHouse DSN from environment variables.
func getDatabaseDSN() string {
	if dsn := getEnv("CLICKHOUSE_DSN", ""); dsn != "" {
		return dsn
	}
	dbUser := getEnv("CLICKHOUSE_USER", "default")
	dbPassword := getEnv("CLICKHOUSE_PASSWORD", "")
	dbHost := getEnv("CLICKHOUSE_HOST", "localhost")
	dbPort := getEnv("CLICKHOUSE_TCP_PORT", "9000")
	dbName := getEnv("CLICKHOUSE_DB", "default")

	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&read_timeout=20s",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		Airport: AirportConfig{
			IATA:         strings.ToUpper(getEnv("TARGET_IATA", "MAD")),
			Latitude:     getEnvFloat("AIRPORT_LAT", 40.4719),
			Longitude:    getEnvFloat("AIRPORT_LON", -3.5626),
			RadiusMeters: getEnvFloat("RADIUS_METERS", 50000),
			Timezone:     getEnv("TIMEZONE", "Europe/Madrid"),
		},
		Policy: PolicyConfig{
			FreshnessWindow:      getEnvMinutes("FRESHNESS_WINDOW_MINUTES", 90),
			ArrivalCeilingFt:     getEnvInt("ARRIVAL_CEILING_FT", 6000),
			DepartureCeilingFt:   getEnvInt("DEPARTURE_CEILING_FT", 12000),
			UnknownCeilingFt:     getEnvInt("UNKNOWN_CEILING_FT", 6000),
			GroundSpeedCeilingKt: getEnvInt("GROUND_SPEED_CEILING_KT", 250),
			DelaySanityLimit:     time.Duration(getEnvInt("DELAY_SANITY_HOURS", 24)) * time.Hour,
			Resolver:             getEnv("RESOLVER", "route"),
		},
		Index: IndexConfig{
			Rows:    getEnvInt("INDEX_ROWS", 1500),
			Horizon: time.Duration(getEnvInt("INDEX_HORIZON_HOURS", 24)) * time.Hour,
		},
		Run: RunConfig{
			WriteMaxAttempts: getEnvInt("WRITE_MAX_ATTEMPTS", 3),
			WriteBaseDelay:   time.Duration(getEnvInt("WRITE_BASE_DELAY_MS", 500)) * time.Millisecond,
			Workers:          getEnvInt("WORKERS", 1),
			Lock:             getEnv("RUN_LOCK", "process"),
			CollectInterval:  time.Duration(getEnvInt("COLLECT_INTERVAL_SECONDS", 300)) * time.Second,
		},
		Source: SourceConfig{
			FeedURL:        getEnv("FR24_FEED_URL", ""),
			DetailURL:      getEnv("FR24_DETAIL_URL", ""),
			DetailInterval: time.Duration(getEnvInt("DETAIL_FETCH_INTERVAL_MS", 250)) * time.Millisecond,
		},
		Store: StoreConfig{
			Backend:               getEnv("STORE_BACKEND", "sheets"),
			GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "service_account.json"),
			SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
			SheetName:             getEnv("SHEET_NAME", "Sheet1"),
			ClickHouseDSN:         getDatabaseDSN(),
		},
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_MOVEMENT_TOPIC", "skywatch_movements"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Validate rejects configurations that would run but silently lose or
// duplicate movements.
func (c *AppConfig) Validate() error {
	var errs []error
	if len(c.Airport.IATA) != 3 {
		errs = append(errs, fmt.Errorf("TARGET_IATA must be a 3-letter code, got %q", c.Airport.IATA))
	}
	if c.Airport.RadiusMeters <= 0 {
		errs = append(errs, errors.New("RADIUS_METERS must be positive"))
	}
	if c.Policy.FreshnessWindow <= 0 {
		errs = append(errs, errors.New("FRESHNESS_WINDOW_MINUTES must be positive"))
	}
	// movements older than the index horizon but still fresh would be
	// appended again on every run
	if c.Policy.FreshnessWindow > c.Index.Horizon {
		errs = append(errs, fmt.Errorf("freshness window %v exceeds index horizon %v", c.Policy.FreshnessWindow, c.Index.Horizon))
	}
	if c.Index.Rows <= 0 {
		errs = append(errs, errors.New("INDEX_ROWS must be positive"))
	}
	if c.Run.WriteMaxAttempts < 1 {
		errs = append(errs, errors.New("WRITE_MAX_ATTEMPTS must be at least 1"))
	}
	switch c.Policy.Resolver {
	case "route", "status":
	default:
		errs = append(errs, fmt.Errorf("RESOLVER must be route or status, got %q", c.Policy.Resolver))
	}
	switch c.Run.Lock {
	case "process", "none":
	default:
		errs = append(errs, fmt.Errorf("RUN_LOCK must be process or none, got %q", c.Run.Lock))
	}
	switch c.Store.Backend {
	case "sheets":
		if c.Store.SpreadsheetID == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID is required for the sheets backend"))
		}
	case "clickhouse", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be sheets, clickhouse or memory, got %q", c.Store.Backend))
	}
	return errors.Join(errs...)
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvMinutes(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Minute
}
