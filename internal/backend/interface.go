package backend

import (
	"context"
	"time"

	"fincycle/internal/amqp"
	"fincycle/internal/exchange"
	"fincycle/internal/services"
	"fincycle/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the infrastructure shared by the API and the worker.
type BackendResult struct {
	Store        storage.Store
	Rates        exchange.RateProvider
	Synchronizer *services.Synchronizer
	// Publisher is the AMQP client when a broker is configured and reachable,
	// otherwise an inline publisher over Synchronizer.
	Publisher services.SyncPublisher
	// AMQP is nil when sync runs inline.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	ExchangeAPIURL   string
	ExchangeTimeout  time.Duration
	ExchangeCacheTTL time.Duration

	DeletionPolicy  services.DeletionPolicy
	SyncConcurrency int
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}
