package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cartera/internal/amqp"
	"cartera/internal/core"
	"cartera/internal/rates"
	"cartera/internal/services"
	gsheet "cartera/internal/sheets/google"
	"cartera/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend. Optional integrations
// that fail to start are logged and left out rather than failing the
// whole backend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	provider := f.createRates(config, store)
	b := &Backend{
		Store:   store,
		Rates:   provider,
		Tracker: services.NewTracker(store, provider),
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			b.Publisher = client
			b.Tracker.WithPublisher(client)
		}
	}

	if config.GoogleSpreadsheetID != "" {
		exporter, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetBase:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			f.logger.Warn("Failed to initialize Google Sheets client, export disabled", "error", err)
		} else {
			f.logger.Info("Initialized Google Sheets exporter")
			b.Exporter = exporter
			b.Tracker.WithExporter(exporter)
		}
	}

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"rates_feed", config.RatesURL != "",
		"amqp_enabled", b.Publisher != nil,
		"sheets_enabled", b.Exporter != nil)

	return &BackendResult{
		Backend: b,
		Cleanup: func() error {
			var errs []error
			if b.Publisher != nil {
				errs = append(errs, b.Publisher.Close())
			}
			errs = append(errs, store.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return store, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createRates(config Config, store storage.Store) *rates.Provider {
	var fetcher rates.Fetcher
	if config.RatesURL != "" {
		fetcher = rates.NewClient(config.RatesURL, config.RatesTimeout)
	}
	return rates.NewProvider(fetcher, store, rates.ProviderConfig{
		TTL:      config.RatesCacheTTL,
		Fallback: core.NewRates(config.FallbackBCV, config.FallbackUSDT, time.Time{}),
	})
}
