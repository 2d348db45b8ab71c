package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	JWT    JWTConfig
	Chat   ChatConfig
	Upload UploadConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type JWTConfig struct {
	Secret    []byte
	ExpiresIn time.Duration
}

type ChatConfig struct {
	// DirectoryURL is the optional Postgres DSN for the account directory.
	// When empty the server keeps accounts in memory.
	DirectoryURL string
	HistoryCap   int
	DefaultRoom  string
	SeedRooms    []string
}

type UploadConfig struct {
	Dir     string
	MaxSize int64
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", ":5000"),
			ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", "15s"),
			WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", "15s"),
		},
		JWT: JWTConfig{
			Secret:    []byte(getEnvOrDefault("JWT_SECRET", "chat_secret_key_final")),
			ExpiresIn: getDurationOrDefault("JWT_EXPIRES_IN", "12h"),
		},
		Chat: ChatConfig{
			DirectoryURL: os.Getenv("DATABASE_URL"),
			HistoryCap:   getIntOrDefault("HISTORY_CAP", 2000),
			DefaultRoom:  "global",
			SeedRooms:    []string{"global", "general", "random"},
		},
		Upload: UploadConfig{
			Dir:     getEnvOrDefault("UPLOAD_DIR", "public/uploads"),
			MaxSize: int64(getIntOrDefault("UPLOAD_MAX_BYTES", 25<<20)),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("Invalid integer for %s: %v", key, err)
	}
	return intValue
}
