package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ratiobot/internal/domain"
)

var pair = domain.NewRatioPair("BTC", "ETH", "EUR")

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestLoadMissingFileIsColdStart(t *testing.T) {
	st, err := NewStateStore(filepath.Join(t.TempDir(), "state", "ratio.json"), pair)
	require.NoError(t, err)

	snap, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st, err := NewStateStore(filepath.Join(t.TempDir(), "ratio.json"), pair)
	require.NoError(t, err)

	ts := time.Date(2022, 4, 22, 8, 19, 27, 28459000, time.UTC)
	in := domain.NewSnapshot()
	in.Quotes["BTC-EUR"] = domain.QuoteState{Sell: nd("38123.45"), Buy: nd("38120.01"), Sequence: 42, UpdatedAt: ts}
	in.Quotes["ETH-EUR"] = domain.QuoteState{Buy: nd("2850.7"), Sequence: 7}
	in.Ratios[domain.DirectionAToB] = domain.RatioState{Anchor: nd("13.3700000000000001"), Latest: nd("13.37")}
	in.Ratios[domain.DirectionBToA] = domain.RatioState{}
	in.UpdatedAt = ts

	require.NoError(t, st.Save(context.Background(), in))
	out, err := st.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)

	require.True(t, out.UpdatedAt.Equal(ts))
	require.Len(t, out.Quotes, 2)
	for id, q := range in.Quotes {
		got := out.Quotes[id]
		require.Equal(t, q.Sell.Valid, got.Sell.Valid, id)
		require.Equal(t, q.Buy.Valid, got.Buy.Valid, id)
		require.True(t, q.Sell.Decimal.Equal(got.Sell.Decimal), id)
		require.True(t, q.Buy.Decimal.Equal(got.Buy.Decimal), id)
		require.Equal(t, q.Sequence, got.Sequence, id)
		require.True(t, q.UpdatedAt.Equal(got.UpdatedAt), id)
	}
	for d, r := range in.Ratios {
		got := out.Ratios[d]
		require.Equal(t, r.Anchor.Valid, got.Anchor.Valid, d)
		require.Equal(t, r.Latest.Valid, got.Latest.Valid, d)
		require.Equal(t, r.Anchor.Decimal.String(), got.Anchor.Decimal.String(), d)
		require.Equal(t, r.Latest.Decimal.String(), got.Latest.Decimal.String(), d)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ratio.json")
	st, err := NewStateStore(path, pair)
	require.NoError(t, err)

	for i := int64(1); i <= 3; i++ {
		snap := domain.NewSnapshot()
		snap.Quotes["BTC-EUR"] = domain.QuoteState{Buy: nd("100"), Sequence: i}
		require.NoError(t, st.Save(context.Background(), snap))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "ratio.json", entries[0].Name())

	out, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), out.Quotes["BTC-EUR"].Sequence)
}

func TestFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratio.json")
	st, err := NewStateStore(path, pair)
	require.NoError(t, err)

	in := domain.NewSnapshot()
	in.Quotes["BTC-EUR"] = domain.QuoteState{Sell: nd("100"), Sequence: 1}
	in.Ratios[domain.DirectionBToA] = domain.RatioState{Anchor: nd("2"), Latest: nd("2")}
	require.NoError(t, st.Save(context.Background(), in))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]map[string]map[string]any
	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &top))
	require.Contains(t, top, "timestamp")
	delete(top, "timestamp")
	b, _ = json.Marshal(top)
	require.NoError(t, json.Unmarshal(b, &raw))

	require.Equal(t, "100", raw["quotes"]["BTC-EUR"]["sell"])
	require.Nil(t, raw["quotes"]["BTC-EUR"]["buy"])
	require.Equal(t, float64(1), raw["quotes"]["BTC-EUR"]["sequence"])
	require.Equal(t, "2", raw["ratios"]["ETH-sell"]["anchor"])

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratio.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	st, err := NewStateStore(path, pair)
	require.NoError(t, err)

	_, err = st.Load(context.Background())
	require.Error(t, err)
}
