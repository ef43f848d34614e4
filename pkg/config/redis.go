package config

import (
	"fmt"
	"time"
)

// RedisConfig configures the cache connection.
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	OpTimeout time.Duration
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:      getEnv("REDIS_HOST", "localhost"),
		Port:      getEnvInt("REDIS_PORT", 6379),
		Password:  getEnv("REDIS_PASSWORD", ""),
		DB:        getEnvInt("REDIS_DB", 0),
		OpTimeout: getEnvDuration("REDIS_OP_TIMEOUT", 3*time.Second),
	}
}

// Address returns host:port for the Redis client.
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
