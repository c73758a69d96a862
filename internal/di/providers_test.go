package di

import (
	"testing"

	"FinKPI/internal/repository"
	"FinKPI/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("finnhub:\n  api_key: test\nmetrics:\n  enabled: false\n"))
	require.NoError(t, err)
	cfg.Data.RawDir = t.TempDir()
	cfg.Data.ProcessedDir = t.TempDir()
	return cfg
}

func TestProvideStoresDefaultToCSV(t *testing.T) {
	cfg := testConfig(t)
	ch, cleanup, err := ProvideClickHouseClient(cfg, nil)
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, ch)

	kpi, done, err := ProvideKpiStore(cfg, ch, nil)
	require.NoError(t, err)
	defer done()
	assert.IsType(t, &repository.CSVKpiStore{}, kpi)

	raw, err := ProvideRawStore(cfg, ch, nil)
	require.NoError(t, err)
	assert.IsType(t, &repository.CSVRawStore{}, raw)
}

func TestProvideKpiStoreMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Kpi = "memory"
	kpi, done, err := ProvideKpiStore(cfg, nil, nil)
	require.NoError(t, err)
	defer done()
	assert.IsType(t, &repository.CacheKpiStore{}, kpi)
}

func TestProvideKpiStoreClickHouseNeedsClient(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Kpi = "clickhouse"
	_, _, err := ProvideKpiStore(cfg, nil, nil)
	assert.Error(t, err)
}

func TestKafkaDisabledYieldsNil(t *testing.T) {
	cfg := testConfig(t)
	p, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, p)
	c, err := ProvideKafkaConsumer(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestInitializePipeline(t *testing.T) {
	cache, cleanup, err := InitializePipeline(testConfig(t))
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, cache)
}
