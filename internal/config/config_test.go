package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

const sampleYAML = `
exchanges:
  - BINANCE
  - COINBASE
default_latency: 5
market_data_file: fixtures/md.json
brokers:
  BINANCE:
    wire_latency: 10
    internal_latency: 2
    strict_execution: true
messaging:
  backend: memory
  buffer_size: 64
metrics:
  enabled: true
log_level: debug
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(sampleYAML), 0o644))
	return dir
}

func TestLoadParsesExchangesAndBrokers(t *testing.T) {
	dir := writeSampleConfig(t)
	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, []string{"BINANCE", "COINBASE"}, cfg.Exchanges)
	require.Equal(t, uint64(5), cfg.DefaultLatency)

	broker := cfg.Brokers["BINANCE"].ToSimBrokerConfig()
	require.Equal(t, simtype.Timestamp(10), broker.WireLatency)
	require.Equal(t, simtype.Timestamp(2), broker.InternalLatency)
	require.True(t, broker.StrictExecution)
}

func TestLoadAppliesMessagingAndMetricsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("exchanges: [BINANCE]\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, "", cfg.Messaging.Backend)
	require.Equal(t, 256, cfg.Messaging.BufferSize)
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, ":9090", cfg.Metrics.Address)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMissingConfigFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, cfg.Exchanges)
	require.Equal(t, "info", cfg.LogLevel)
}
