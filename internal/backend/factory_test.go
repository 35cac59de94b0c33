package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartera/internal/config"
	"cartera/internal/core"
	"cartera/internal/rates"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.ErrorContains(t, err, "invalid backend type")

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:       "sqlite",
		SQLiteDBPath:      "/tmp/x.db",
		RatesBCVFallback:  36.5,
		RatesUSDTFallback: 40,
		AMQPURL:           "amqp://localhost/",
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)
	assert.Equal(t, 36.5, cfg.FallbackBCV)
	assert.Equal(t, "amqp://localhost/", cfg.AMQPURL)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{Type: "bogus"}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: MemoryBackend, AMQPURL: "amqp://x/"}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestFactory_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	result, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:         MemoryBackend,
		FallbackBCV:  36.5,
		FallbackUSDT: 40,
	})
	require.NoError(t, err)
	defer result.Cleanup()

	b := result.Backend
	assert.Nil(t, b.Publisher)
	assert.Nil(t, b.Exporter)

	r, source := b.Rates.CurrentWithSource(ctx)
	assert.Equal(t, rates.SourceFallback, source)
	assert.True(t, r.Available())

	w, err := b.Tracker.AddWallet(ctx, core.Wallet{Name: "Cash", Currency: core.USD})
	require.NoError(t, err)
	st, err := b.Tracker.State(ctx)
	require.NoError(t, err)
	require.Len(t, st.Wallets, 1)
	assert.Equal(t, w.ID, st.Wallets[0].ID)
}

func TestFactory_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "cartera.db")

	result, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:          SQLiteBackend,
		SQLiteDBPath:  path,
		RatesCacheTTL: time.Minute,
	})
	require.NoError(t, err)

	_, err = result.Backend.Tracker.AddWallet(ctx, core.Wallet{ID: "w", Name: "Cash", Currency: core.VEF})
	require.NoError(t, err)
	require.NoError(t, result.Cleanup())

	result, err = NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	defer result.Cleanup()

	st, err := result.Backend.Tracker.State(ctx)
	require.NoError(t, err)
	require.Len(t, st.Wallets, 1)
	assert.Equal(t, "w", st.Wallets[0].ID)
}

func TestFactory_SheetsFailureDisablesExport(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	result, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:                MemoryBackend,
		GoogleSpreadsheetID: "sheet",
	})
	require.NoError(t, err)
	defer result.Cleanup()
	assert.Nil(t, result.Backend.Exporter)
}
