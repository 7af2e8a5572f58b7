package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ratiobot/internal/domain"
)

// TradeFeed 实时成交流（Coinbase matches 频道）
type TradeFeed interface {
	Name() string
	Subscribe(ctx context.Context, products []string) (<-chan domain.TradeEvent, error)
}

// MarketData 按需拉取的行情接口
type MarketData interface {
	GetPrice(ctx context.Context, product string) (decimal.Decimal, error)
	GetCandles(ctx context.Context, product string, start, end time.Time, granularity time.Duration) ([]domain.Candle, error)
	GetProducts(ctx context.Context) ([]domain.ProductInfo, error)
}
