package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeEvent 一条成交回报，只消费一次
type TradeEvent struct {
	Product  string
	Side     Side // taker side
	Price    decimal.Decimal
	Sequence int64
	Time     time.Time
}
