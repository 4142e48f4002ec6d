package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	RedisAddr               string
	RedisPassword           string
	KafkaBrokers            []string
	FanoutSyncThreshold     int
	FanoutBatchSize         int
	FanoutMaxAttempts       int
	FeedCacheSize           int
	FeedCacheTTLHours       int
}

// Load reads the configuration from the environment. The .env file is loaded
// first so its values are visible to every getEnv call below.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "socialmedia"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:            strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		FanoutSyncThreshold:     getEnvInt("FANOUT_SYNC_THRESHOLD", 50),
		FanoutBatchSize:         getEnvInt("FANOUT_BATCH_SIZE", 500),
		FanoutMaxAttempts:       getEnvInt("FANOUT_MAX_ATTEMPTS", 3),
		FeedCacheSize:           getEnvInt("FEED_CACHE_SIZE", 200),
		FeedCacheTTLHours:       getEnvInt("FEED_CACHE_TTL_HOURS", 72),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
