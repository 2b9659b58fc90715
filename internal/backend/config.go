package backend

import (
	"fmt"

	"fincycle/internal/config"
	"fincycle/internal/services"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		ExchangeAPIURL:   appConfig.ExchangeAPIURL,
		ExchangeTimeout:  appConfig.ExchangeTimeout,
		ExchangeCacheTTL: appConfig.ExchangeCacheTTL,

		DeletionPolicy:  services.DeletionPolicy(appConfig.DeletionPolicy),
		SyncConcurrency: appConfig.SyncConcurrency,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	}

	if c.ExchangeAPIURL == "" {
		return fmt.Errorf("exchange API URL is required")
	}
	if c.DeletionPolicy != "" {
		if err := c.DeletionPolicy.Validate(); err != nil {
			return err
		}
	}
	return nil
}
