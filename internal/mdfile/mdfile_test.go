package mdfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

const sampleFixture = `[
  {"s": "BTCUSDT", "b": 100.0, "a": 100.5, "e": 1, "r": 2},
  {"s": "BTCUSDT", "b": 101.0, "a": 101.5, "e": 2, "r": 3}
]`

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quotes.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestProviderReplaysEventsInFileOrder(t *testing.T) {
	path := writeFixture(t, sampleFixture)
	provider, err := New(path, "BINANCE", zap.NewNop())
	require.NoError(t, err)

	ev1, ok := provider.NextEvent()
	require.True(t, ok)
	require.Equal(t, simtype.Timestamp(1), ev1.ExchangeTimestamp)
	require.Equal(t, simtype.Exchange("BINANCE"), ev1.Exchange)
	require.Equal(t, 100.0, ev1.Quote.Bid)

	ev2, ok := provider.NextEvent()
	require.True(t, ok)
	require.Equal(t, simtype.Timestamp(2), ev2.ExchangeTimestamp)

	_, ok = provider.NextEvent()
	require.False(t, ok)
}

func TestNewRejectsMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.json"), "BINANCE", zap.NewNop())
	require.Error(t, err)
}

func TestNewRejectsMalformedJSON(t *testing.T) {
	path := writeFixture(t, "not json")
	_, err := New(path, "BINANCE", zap.NewNop())
	require.Error(t, err)
}
