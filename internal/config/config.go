package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	LogLevel    string
	LogFormat   string
	DatabaseURL string // empty keeps profiles in memory
	RedisURL    string // empty disables the snapshot cache
	TickRate    int
	LevelsFile  string // empty uses the embedded tables
	StagesFile  string
	SnapshotTTL time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		TickRate:    getEnvInt("TICK_RATE", 30),
		LevelsFile:  getEnv("LEVELS_FILE", ""),
		StagesFile:  getEnv("STAGES_FILE", ""),
		SnapshotTTL: getEnvDuration("SNAPSHOT_TTL", 10*time.Minute),
	}
}

// TickInterval is the duration of one simulation frame.
func (c *Config) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.TickRate)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
