package svc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ratiobot/internal/infrastructure/config"
	"ratiobot/internal/interfaces/console"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.App.DryRun = true
	cfg.App.ChartDir = filepath.Join(dir, "charts")
	cfg.Ratio.StateFile = filepath.Join(dir, "state.json")
	cfg.SQLite.Path = filepath.Join(dir, "ratiobot.db")
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func TestNewDryRunWithoutJournals(t *testing.T) {
	sc, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer sc.Close()

	require.IsType(t, &console.Sink{}, sc.Notifier)
	require.Nil(t, sc.Journal())
	_, err = sc.ProductCatalog()
	require.ErrorIs(t, err, ErrCatalogUnavailable)

	engine := sc.BuildEngine()
	require.Equal(t, []string{"BTC-EUR", "ETH-EUR"}, engine.Pair().Products())

	deps := sc.BuildRatioServiceDeps(engine)
	require.Same(t, sc.Feed, deps.Feed)
	require.NotNil(t, deps.Reporter)
}

func TestNewWithSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLite.Enabled = true

	sc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer sc.Close()

	require.NotNil(t, sc.Journal())
	catalog, err := sc.ProductCatalog()
	require.NoError(t, err)
	products, err := catalog.LoadProducts(context.Background())
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.DryRun = false
	cfg.Telegram.Enabled = true

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}
