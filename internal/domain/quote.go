package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SequenceCheck 序列号检查结果，仅用于观测
type SequenceCheck int

const (
	SequenceOK SequenceCheck = iota
	SequenceFirst
	SequenceRepeated
	SequenceGap
)

func (c SequenceCheck) String() string {
	switch c {
	case SequenceFirst:
		return "first"
	case SequenceRepeated:
		return "repeated"
	case SequenceGap:
		return "gap"
	default:
		return "ok"
	}
}

// QuoteState 由成交推断出的最优买卖价。Sequence 为 0 表示尚未见过序列号。
type QuoteState struct {
	Sell      decimal.NullDecimal
	Buy       decimal.NullDecimal
	Sequence  int64
	UpdatedAt time.Time
}

// Get 返回指定挂单方向的报价
func (q *QuoteState) Get(side Side) decimal.NullDecimal {
	if side == SideSell {
		return q.Sell
	}
	return q.Buy
}

// Apply 把成交价写入推断出的挂单方向，并返回序列号检查结果及丢失的消息数
func (q *QuoteState) Apply(resting Side, price decimal.Decimal, seq int64, ts time.Time) (SequenceCheck, int64) {
	v := decimal.NewNullDecimal(price)
	if resting == SideSell {
		q.Sell = v
	} else {
		q.Buy = v
	}
	q.UpdatedAt = ts

	check, missed := SequenceFirst, int64(0)
	if q.Sequence != 0 {
		switch {
		case seq == q.Sequence:
			check = SequenceRepeated
		case seq > q.Sequence+1:
			check = SequenceGap
			missed = seq - q.Sequence - 1
		default:
			check = SequenceOK
		}
	}
	q.Sequence = seq
	return check, missed
}
