package eventstore

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrFailedToLoadConfig = errors.New("failed to load event store config from environment")

var dotEnvOnce sync.Once

// loadDotEnv loads a local .env file once per process. A missing file is
// fine, real environments set variables directly.
func loadDotEnv() {
	dotEnvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// LoadPostgresConfig reads PostgresConfig from the environment.
func LoadPostgresConfig() (PostgresConfig, error) {
	loadDotEnv()
	var cfg PostgresConfig
	if err := env.Parse(&cfg); err != nil {
		return PostgresConfig{}, errors.Join(ErrFailedToLoadConfig, err)
	}
	return cfg, nil
}

// LoadRedisConfig reads RedisConfig from the environment.
func LoadRedisConfig() (RedisConfig, error) {
	loadDotEnv()
	var cfg RedisConfig
	if err := env.Parse(&cfg); err != nil {
		return RedisConfig{}, errors.Join(ErrFailedToLoadConfig, err)
	}
	return cfg, nil
}

// LoadMongoConfig reads MongoConfig from the environment.
func LoadMongoConfig() (MongoConfig, error) {
	loadDotEnv()
	var cfg MongoConfig
	if err := env.Parse(&cfg); err != nil {
		return MongoConfig{}, errors.Join(ErrFailedToLoadConfig, err)
	}
	return cfg, nil
}
