package coinbase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/BTC-EUR/ticker", r.URL.Path)
		fmt.Fprint(w, `{"trade_id":1,"price":"38123.45","size":"0.01","time":"2022-04-22T08:19:27Z"}`)
	}))
	defer srv.Close()

	px, err := NewRESTClient(srv.URL).GetPrice(context.Background(), "BTC-EUR")
	require.NoError(t, err)
	require.Equal(t, "38123.45", px.String())
}

func TestGetPriceAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"NotFound"}`)
	}))
	defer srv.Close()

	_, err := NewRESTClient(srv.URL).GetPrice(context.Background(), "XYZ-EUR")
	require.Error(t, err)
	require.Contains(t, err.Error(), "NotFound")
}

func TestGetCandlesPagesAndSorts(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		calls = append(calls, q.Get("start")+"/"+q.Get("end"))
		mu.Unlock()
		require.Equal(t, "60", q.Get("granularity"))

		start, _ := time.Parse(time.RFC3339, q.Get("start"))
		end, _ := time.Parse(time.RFC3339, q.Get("end"))
		// 交易所按时间倒序返回
		var rows []string
		for ts := end.Truncate(time.Minute); !ts.Before(start); ts = ts.Add(-time.Minute) {
			v := strconv.FormatInt(ts.Unix()%1000, 10)
			rows = append(rows, fmt.Sprintf("[%d,%s,%s,%s,%s,1.5]", ts.Unix(), v, v, v, v))
		}
		fmt.Fprint(w, "["+strings.Join(rows, ",")+"]")
	}))
	defer srv.Close()

	start := time.Date(2022, 4, 22, 0, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	cs, err := NewRESTClient(srv.URL).GetCandles(context.Background(), "BTC-EUR", start, end, time.Minute)
	require.NoError(t, err)

	require.Len(t, calls, 2)
	require.Equal(t, "2022-04-22T00:00:00Z/2022-04-22T05:00:00Z", calls[0])
	require.Equal(t, "2022-04-22T05:00:01Z/2022-04-22T06:00:00Z", calls[1])

	require.Len(t, cs, 6*60+1)
	for i := 1; i < len(cs); i++ {
		require.True(t, cs[i-1].Time.Before(cs[i].Time))
	}
	require.True(t, cs[0].Time.Equal(start))
	require.Equal(t, "1.5", cs[0].Volume.String())
}

func TestGetCandlesRejectsGranularity(t *testing.T) {
	c := NewRESTClient("http://127.0.0.1:1")
	_, err := c.GetCandles(context.Background(), "BTC-EUR", time.Now().Add(-time.Hour), time.Now(), time.Hour)
	require.True(t, errors.Is(err, ErrUnsupportedGranularity))
}

func TestGetProductsCanonicalRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products", r.URL.Path)
		fmt.Fprint(w, `[
			{"status":"online","id":"ETH-EUR","quote_currency":"EUR","base_currency":"ETH","min_market_funds":"0.84"},
			{"id":"BTC-EUR","base_currency":"BTC","quote_currency":"EUR","status":"online","min_market_funds":"0.84"}
		]`)
	}))
	defer srv.Close()

	ps, err := NewRESTClient(srv.URL).GetProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 2)
	require.Equal(t, "BTC-EUR", ps[0].ID)
	require.Equal(t, "BTC", ps[0].BaseCurrency)
	require.Equal(t, "online", ps[1].Status)
	require.Equal(t, `{"base_currency":"ETH","id":"ETH-EUR","min_market_funds":"0.84","quote_currency":"EUR","status":"online"}`, ps[1].Raw)
}
