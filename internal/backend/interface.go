package backend

import (
	"context"
	"time"

	"cartera/internal/amqp"
	"cartera/internal/rates"
	"cartera/internal/services"
	"cartera/internal/sheets"
	"cartera/internal/storage"
)

// Backend bundles everything a command needs. Publisher and Exporter are
// nil when their integration is not configured.
type Backend struct {
	Store     storage.Store
	Rates     *rates.Provider
	Publisher *amqp.Client
	Exporter  sheets.Exporter
	Tracker   *services.Tracker
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Exchange rates
	RatesURL      string
	RatesTimeout  time.Duration
	RatesCacheTTL time.Duration
	FallbackBCV   float64
	FallbackUSDT  float64

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export, optional
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
