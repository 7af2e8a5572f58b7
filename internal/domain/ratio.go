package domain

import "github.com/shopspring/decimal"

// Direction 方向性比率：从哪一侧卖出的视角计算
type Direction string

const (
	// DirectionAToB latest = A.sell / B.buy，比率上升时卖 A 买 B
	DirectionAToB Direction = "a_to_b"
	// DirectionBToA latest = A.buy / B.sell，比率下降时卖 B 买 A
	DirectionBToA Direction = "b_to_a"
)

var Directions = []Direction{DirectionAToB, DirectionBToA}

// Label 持久化与展示用的名字，例如 "BTC-sell"
func (d Direction) Label(p RatioPair) string {
	if d == DirectionAToB {
		return p.A + "-sell"
	}
	return p.B + "-sell"
}

// From/To 信号触发时的调仓方向
func (d Direction) From(p RatioPair) string {
	if d == DirectionAToB {
		return p.A
	}
	return p.B
}

func (d Direction) To(p RatioPair) string {
	if d == DirectionAToB {
		return p.B
	}
	return p.A
}

// RatioState anchor 在首次观测或信号触发时被设置为 latest
type RatioState struct {
	Anchor decimal.NullDecimal
	Latest decimal.NullDecimal
}

func (r RatioState) Armed() bool { return r.Anchor.Valid }

// Rearm 把 anchor 重置为当前 latest（latest 未知时 anchor 也保持未知）
func (r *RatioState) Rearm() { r.Anchor = r.Latest }
