package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr           string
	MySQLDSN           string
	RedisAddr          string
	MigrationsPath     string
	AllocationInterval time.Duration
	CallbackTimeout    time.Duration
	CallbackQueueSize  int
	SeedData           bool
}

func FromEnv() Config {
	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		MySQLDSN:           getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/taphouse?parseTime=true"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", "migrations"),
		AllocationInterval: getDuration("ALLOCATION_INTERVAL", 5*time.Second),
		CallbackTimeout:    getDuration("CALLBACK_TIMEOUT", 5*time.Second),
		CallbackQueueSize:  getInt("CALLBACK_QUEUE_SIZE", 100),
		SeedData:           getBool("SEED_DATA", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
