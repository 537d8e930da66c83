package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	// Shared secret for the internal verification/award entry points.
	InternalAPISecret string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	MigrationsEnabled bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RedisPingTimeout time.Duration // startup ping only

	VerificationQueueName      string
	VerificationLockPrefix     string
	VerificationLockTTLSeconds int
	VerificationMaxAttempts    int
	VerificationConcurrency    int
	EmbeddedWorker             bool

	VisionAPIURL        string
	VisionAPIKey        string
	VisionModel         string
	VisionTimeout       time.Duration
	VisionRatePerSecond float64
	VisionBurst         int

	DefaultRewardCoins int
	QuestCacheSize     int
	ReconcileSchedule  string

	APIRatePerSecond float64
	APIRateBurst     int

	LogLevel  string
	LogFormat string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:           getEnv("API_PORT", "8080"),
		JWTKey:            []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:            time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		InternalAPISecret: getEnv("INTERNAL_API_SECRET", ""),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "user"),
		DBPassword:        getEnv("DB_PASSWORD", "password"),
		DBName:            getEnv("DB_NAME", "trippey_db"),
		DBSslMode:         getEnv("DB_SSLMODE", "disable"),
		MigrationsEnabled: getEnvAsBool("MIGRATIONS_ENABLED", true),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		RedisPingTimeout:  getEnvAsDuration("REDIS_PING_TIMEOUT_SECONDS", 5*time.Second),

		VerificationQueueName:      getEnv("VERIFICATION_QUEUE_NAME", "verification_jobs_queue"),
		VerificationLockPrefix:     getEnv("VERIFICATION_LOCK_PREFIX", "verification_lock:"),
		VerificationLockTTLSeconds: getEnvAsInt("VERIFICATION_LOCK_TTL_SECONDS", 120),
		VerificationMaxAttempts:    getEnvAsInt("VERIFICATION_MAX_ATTEMPTS", 3),
		VerificationConcurrency:    getEnvAsInt("VERIFICATION_CONCURRENCY", 2),
		EmbeddedWorker:             getEnvAsBool("EMBEDDED_WORKER", true),

		VisionAPIURL:        getEnv("VISION_API_URL", "https://api.openai.com/v1/chat/completions"),
		VisionAPIKey:        getEnv("VISION_API_KEY", ""),
		VisionModel:         getEnv("VISION_MODEL", "gpt-4o-mini"),
		VisionTimeout:       getEnvAsDuration("VISION_TIMEOUT_SECONDS", 20*time.Second),
		VisionRatePerSecond: getEnvAsFloat("VISION_RATE_PER_SECOND", 5),
		VisionBurst:         getEnvAsInt("VISION_BURST", 5),

		DefaultRewardCoins: getEnvAsInt("DEFAULT_REWARD_COINS", 10),
		QuestCacheSize:     getEnvAsInt("QUEST_CACHE_SIZE", 256),
		ReconcileSchedule:  getEnv("RECONCILE_SCHEDULE", "@every 5m"),

		APIRatePerSecond: getEnvAsFloat("API_RATE_PER_SECOND", 10),
		APIRateBurst:     getEnvAsInt("API_RATE_BURST", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration reads a whole number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
		return time.Duration(value) * time.Second
	}
	return fallback
}
