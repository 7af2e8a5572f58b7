package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle 一根 K 线
type Candle struct {
	Time   time.Time
	Low    decimal.Decimal
	High   decimal.Decimal
	Open   decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// Closes 收盘价序列（float，用于指标和绘图）
func Closes(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close.InexactFloat64()
	}
	return out
}
