package coinbase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ratiobot/internal/domain"
)

func TestParseMatch(t *testing.T) {
	b := []byte(`{"type":"match","trade_id":10,"sequence":50,"maker_order_id":"ac928c66","taker_order_id":"132fb6ae","time":"2022-04-22T08:19:27.028459Z","product_id":"BTC-EUR","size":"5.23512","price":"400.23","side":"sell"}`)
	ev, typ, ok, err := parseMessage(b)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "match", typ)
	require.Equal(t, "BTC-EUR", ev.Product)
	require.Equal(t, domain.SideSell, ev.Side)
	require.Equal(t, "400.23", ev.Price.String())
	require.Equal(t, int64(50), ev.Sequence)
	require.Equal(t, 2022, ev.Time.Year())
}

func TestParseNonTradeMessages(t *testing.T) {
	for _, b := range []string{
		`{"type":"subscriptions","channels":[{"name":"matches","product_ids":["BTC-EUR"]}]}`,
		`{"type":"heartbeat","sequence":90,"last_trade_id":20}`,
		`{"type":"error","message":"Failed to subscribe","reason":"BTC-XYZ is not a valid product"}`,
	} {
		_, typ, ok, err := parseMessage([]byte(b))
		require.NoError(t, err, b)
		require.False(t, ok, b)
		require.NotEmpty(t, typ)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `{"type":`,
		"missing type":  `{"product_id":"BTC-EUR"}`,
		"bad side":      `{"type":"match","product_id":"BTC-EUR","side":"hold","price":"1","time":"2022-04-22T08:19:27Z"}`,
		"missing price": `{"type":"match","product_id":"BTC-EUR","side":"buy","time":"2022-04-22T08:19:27Z"}`,
		"bad price":     `{"type":"last_match","product_id":"BTC-EUR","side":"buy","price":"abc","time":"2022-04-22T08:19:27Z"}`,
		"bad time":      `{"type":"match","product_id":"BTC-EUR","side":"buy","price":"1","time":"yesterday"}`,
		"no sequence":   `{"type":"match","product_id":"BTC-EUR","side":"buy","price":"1","time":"2022-04-22T08:19:27Z"}`,
		"null sequence": `{"type":"last_match","sequence":null,"product_id":"BTC-EUR","side":"buy","price":"1","time":"2022-04-22T08:19:27Z"}`,
	}
	for name, b := range cases {
		_, _, ok, err := parseMessage([]byte(b))
		require.False(t, ok, name)
		require.True(t, errors.Is(err, ErrMalformedMessage), name)
	}
}
