package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal 一次阈值穿越后给出的调仓建议
type Signal struct {
	ID          string
	Direction   Direction
	From        string
	To          string
	Anchor      decimal.Decimal // 穿越前的 anchor
	Latest      decimal.Decimal
	Divergence  decimal.Decimal
	Multiplier  int64
	NotionalEUR decimal.Decimal
	Time        time.Time
	Message     string
}
