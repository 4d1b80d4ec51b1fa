// Package config reads runtime settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type MySQL struct {
	User         string
	Password     string
	Host         string
	Port         string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
}

type Server struct {
	Port            string
	GinMode         string
	LogLevel        string
	LogFormat       string
	MySQL           MySQL
	RedisAddr       string
	CacheTTL        time.Duration
	RabbitURL       string
	RabbitExchange  string
	StorageBackend  string
	UploadDir       string
	NatsURL         string
	NatsBucket      string
	MaxUploadSize   int64
	ShutdownTimeout time.Duration
}

const (
	StorageLocal       = "local"
	StorageObjectStore = "objectstore"
)

func Load() Server {
	return Server{
		Port:      getEnv("PORT", "5000"),
		GinMode:   getEnv("GIN_MODE", "release"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		MySQL: MySQL{
			User:         getEnv("MYSQL_USER", "root"),
			Password:     os.Getenv("MYSQL_PASSWORD"),
			Host:         getEnv("MYSQL_HOST", "localhost"),
			Port:         getEnv("MYSQL_PORT", "3306"),
			Database:     getEnv("MYSQL_DATABASE", "simple_store"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 10),
		},
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		CacheTTL:        getEnvDuration("CACHE_TTL", 30*time.Second),
		RabbitURL:       os.Getenv("RABBITMQ_URL"),
		RabbitExchange:  getEnv("RABBITMQ_EXCHANGE", "store.exchange"),
		StorageBackend:  getEnv("STORAGE_BACKEND", StorageLocal),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		NatsURL:         getEnv("NATS_URL", "nats://localhost:4222"),
		NatsBucket:      getEnv("NATS_BUCKET", "product-images"),
		MaxUploadSize:   int64(getEnvInt("MAX_UPLOAD_SIZE", 10<<20)),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

type Client struct {
	APIURL        string
	CartFile      string
	WhatsAppPhone string
	Timeout       time.Duration
	LogLevel      string
}

func LoadClient() Client {
	return Client{
		APIURL:        getEnv("STORE_API_URL", "http://localhost:5000"),
		CartFile:      getEnv("CART_FILE", defaultCartFile()),
		WhatsAppPhone: getEnv("WHATSAPP_PHONE", "255750761558"),
		Timeout:       getEnvDuration("STORE_API_TIMEOUT", 5*time.Second),
		LogLevel:      getEnv("LOG_LEVEL", "warn"),
	}
}

func defaultCartFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cart.json"
	}
	return filepath.Join(home, ".storefront", "cart.json")
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
