package coinbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
)

const DefaultRESTURL = "https://api.exchange.coinbase.com"

var ErrUnsupportedGranularity = errors.New("coinbase: unsupported granularity")

// candleWindows 每次请求覆盖的时间跨度（交易所单次最多返回 300 根）
var candleWindows = map[time.Duration]time.Duration{
	time.Minute:    5 * time.Hour,
	24 * time.Hour: (28*6 - 1) * 24 * time.Hour,
}

// RESTClient Coinbase Exchange 公共行情接口
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ port.MarketData = (*RESTClient)(nil)

func NewRESTClient(baseURL string) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	return &RESTClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type tickerResp struct {
	Price json.Number `json:"price"`
}

// GetPrice 最新成交价
func (c *RESTClient) GetPrice(ctx context.Context, product string) (decimal.Decimal, error) {
	var t tickerResp
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(product)+"/ticker", nil, &t); err != nil {
		return decimal.Zero, fmt.Errorf("get ticker %s: %w", product, err)
	}
	px, err := decimal.NewFromString(t.Price.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse ticker %s price %q: %w", product, t.Price, err)
	}
	return px, nil
}

// GetCandles 分段拉取 [start, end] 的 K 线，按时间升序返回
func (c *RESTClient) GetCandles(ctx context.Context, product string, start, end time.Time, granularity time.Duration) ([]domain.Candle, error) {
	window, ok := candleWindows[granularity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGranularity, granularity)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("candles %s: end %s before start %s", product, end, start)
	}

	seen := make(map[int64]struct{})
	var out []domain.Candle
	for from := start; !from.After(end); {
		to := from.Add(window)
		if to.After(end) {
			to = end
		}
		page, err := c.candlePage(ctx, product, from, to, granularity)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("product", product).
			Time("from", from).
			Time("to", to).
			Int("points", len(page)).
			Msg("candles fetched")
		for _, cd := range page {
			k := cd.Time.Unix()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, cd)
		}
		from = to.Add(time.Second)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (c *RESTClient) candlePage(ctx context.Context, product string, from, to time.Time, granularity time.Duration) ([]domain.Candle, error) {
	params := url.Values{}
	params.Set("start", from.UTC().Format(time.RFC3339))
	params.Set("end", to.UTC().Format(time.RFC3339))
	params.Set("granularity", strconv.Itoa(int(granularity/time.Second)))

	var rows [][]json.Number
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(product)+"/candles", params, &rows); err != nil {
		return nil, fmt.Errorf("get candles %s: %w", product, err)
	}

	out := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		cd, err := parseCandle(r)
		if err != nil {
			return nil, fmt.Errorf("candles %s: %w", product, err)
		}
		out = append(out, cd)
	}
	return out, nil
}

// parseCandle [time, low, high, open, close, volume]
func parseCandle(r []json.Number) (domain.Candle, error) {
	if len(r) < 6 {
		return domain.Candle{}, fmt.Errorf("candle row has %d fields", len(r))
	}
	sec, err := r[0].Int64()
	if err != nil {
		return domain.Candle{}, fmt.Errorf("candle time %q: %w", r[0], err)
	}
	vals := make([]decimal.Decimal, 5)
	for i := range vals {
		v, err := decimal.NewFromString(r[i+1].String())
		if err != nil {
			return domain.Candle{}, fmt.Errorf("candle field %d %q: %w", i+1, r[i+1], err)
		}
		vals[i] = v
	}
	return domain.Candle{
		Time:   time.Unix(sec, 0).UTC(),
		Low:    vals[0],
		High:   vals[1],
		Open:   vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// GetProducts 产品目录；Raw 为按 key 排序重新编码的 JSON，便于比较
func (c *RESTClient) GetProducts(ctx context.Context) ([]domain.ProductInfo, error) {
	var raw []map[string]any
	if err := c.getJSON(ctx, "/products", nil, &raw); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	out := make([]domain.ProductInfo, 0, len(raw))
	for _, m := range raw {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode product: %w", err)
		}
		out = append(out, domain.ProductInfo{
			ID:            str(m["id"]),
			BaseCurrency:  str(m["base_currency"]),
			QuoteCurrency: str(m["quote_currency"]),
			Status:        str(m["status"]),
			Raw:           string(b),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
