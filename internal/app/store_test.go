package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirinyoku/tix-checkout/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const seedJSON = `{
  "title": "Jazz Night",
  "layout": {
    "event_id": 7,
    "categories": [{"id": "vip", "name": "VIP", "price": 25000, "applies_to": "table"}],
    "units": [{"id": "T1", "type": "table", "category_id": "vip", "label": "Table 1", "capacity": 6, "status": "available"}]
  },
  "pricing": {"service_fee": 1000, "tax_percent": 5}
}`

func memoryConfig(seed string) *config.Config {
	return &config.Config{Store: config.StoreConfig{Driver: config.StoreMemory, SeedFile: seed, DemoEventID: 3}}
}

func TestOpenStore_MemoryDemo(t *testing.T) {
	st, err := openStore(context.Background(), memoryConfig(""), discard)
	require.NoError(t, err)

	l, err := st.layouts.GetEventLayout(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, l.Units, 27)
}

func TestOpenStore_MemorySeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o600))

	st, err := openStore(context.Background(), memoryConfig(path), discard)
	require.NoError(t, err)

	l, err := st.layouts.GetEventLayout(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, l.Units, 1)
	assert.Equal(t, 6, l.Units[0].Capacity)

	p, err := st.layouts.GetPricingConfig(context.Background(), 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, p.ServiceFee)
}

func TestReadSeed_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := readSeed(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"layout": {}}`), 0o600))
	_, err = readSeed(bad)
	assert.ErrorContains(t, err, "event_id")
}
