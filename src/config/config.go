package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"cgm-alert-pipeline/src/logger"
)

// Stream consumer groups served by the same binary.
const (
	StreamConsumerAlerts = "alerts"
	StreamConsumerRaw    = "raw"
)

type Config struct {
	Region      string
	EndpointURL string

	Tables struct {
		Sessions            string
		SessionsUserIDIndex string
		Users               string
		Guardians           string
		GuardiansUserIndex  string
		Readings            string
		LatestReadings      string
	}

	StreamConsumer string

	Queues struct {
		BackfillARN string
		RefreshARN  string
		RefreshURL  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	AlertStatusTTL time.Duration

	Dexcom struct {
		BaseURL    string
		SecretName string
		RateLimit  float64
		RateBurst  int
	}

	Voice struct {
		OriginationNumber string
		CallerID          string
	}

	DefaultThresholds struct {
		UrgentLow float64
		Low       float64
		High      float64
	}

	StaleReadingAge        time.Duration
	RefreshWindow          time.Duration
	BackfillChunk          time.Duration
	BackfillLookbackMonths int

	PushgatewayURL string

	Logger logger.Config
}

// Load reads configuration from the environment. A .env file, when present,
// seeds variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	cfg.Region = getenv("AWS_REGION", "us-east-1")
	cfg.EndpointURL = os.Getenv("AWS_ENDPOINT_URL")

	cfg.Tables.Sessions = getenv("SESSIONS_TABLE", "OAuthSessions")
	cfg.Tables.SessionsUserIDIndex = getenv("SESSIONS_USER_ID_INDEX", "remoteUserId-index")
	cfg.Tables.Users = getenv("USERS_TABLE", "Users")
	cfg.Tables.Guardians = getenv("GUARDIANS_TABLE", "Guardians")
	cfg.Tables.GuardiansUserIndex = getenv("GUARDIANS_USER_INDEX", "userEmail-index")
	cfg.Tables.Readings = getenv("READINGS_TABLE", "GlucoseReadings")
	cfg.Tables.LatestReadings = getenv("LATEST_READINGS_TABLE", "LatestGlucoseReadings")

	cfg.StreamConsumer = getenv("STREAM_CONSUMER", StreamConsumerAlerts)

	cfg.Queues.BackfillARN = os.Getenv("BACKFILL_QUEUE_ARN")
	cfg.Queues.RefreshARN = os.Getenv("REFRESH_QUEUE_ARN")
	cfg.Queues.RefreshURL = os.Getenv("REFRESH_QUEUE_URL")

	cfg.Redis.Addr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = getenvInt("REDIS_DB", 0)
	cfg.AlertStatusTTL = getenvDuration("ALERT_STATUS_TTL", time.Hour)

	cfg.Dexcom.BaseURL = getenv("DEXCOM_BASE_URL", "https://api.dexcom.com")
	cfg.Dexcom.SecretName = getenv("DEXCOM_SECRET_NAME", "dexcom/client")
	cfg.Dexcom.RateLimit = getenvFloat("DEXCOM_RATE_LIMIT", 5)
	cfg.Dexcom.RateBurst = getenvInt("DEXCOM_RATE_BURST", 5)

	cfg.Voice.OriginationNumber = os.Getenv("VOICE_ORIGINATION_NUMBER")
	cfg.Voice.CallerID = os.Getenv("VOICE_CALLER_ID")

	cfg.DefaultThresholds.UrgentLow = getenvFloat("DEFAULT_URGENT_LOW", 40)
	cfg.DefaultThresholds.Low = getenvFloat("DEFAULT_LOW", 70)
	cfg.DefaultThresholds.High = getenvFloat("DEFAULT_HIGH", 180)

	cfg.StaleReadingAge = getenvDuration("STALE_READING_AGE", 10*time.Minute)
	cfg.RefreshWindow = getenvDuration("REFRESH_WINDOW", 30*time.Minute)
	cfg.BackfillChunk = getenvDuration("BACKFILL_CHUNK", 30*24*time.Hour)
	cfg.BackfillLookbackMonths = getenvInt("BACKFILL_LOOKBACK_MONTHS", 6)

	cfg.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")

	cfg.Logger = logger.Config{
		Level:  logger.ParseLevel(getenv("LOG_LEVEL", "info")),
		Format: getenv("LOG_FORMAT", "json"),
	}

	switch cfg.StreamConsumer {
	case StreamConsumerAlerts, StreamConsumerRaw:
	default:
		return nil, fmt.Errorf("STREAM_CONSUMER must be %q or %q, got %q", StreamConsumerAlerts, StreamConsumerRaw, cfg.StreamConsumer)
	}
	if cfg.BackfillChunk <= 0 {
		return nil, fmt.Errorf("BACKFILL_CHUNK must be positive, got %s", cfg.BackfillChunk)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
