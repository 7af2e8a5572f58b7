package analyze

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// MovingAverage n 期简单移动平均；前 n-1 个点为 NaN
func MovingAverage(closes []float64, n int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if n <= 0 || len(closes) < n {
		return out
	}
	sma := trend.NewSmaWithPeriod[float64](n)
	ma := helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes)))
	// 预热期的点不输出，结果与序列尾部对齐
	copy(out[len(out)-len(ma):], ma)
	return out
}

// BuySignals 收盘价曾跌到 MA 下方超过 threshold*close（按持续期内的最低偏离计），
// 随后重新站上 MA 的那一天为买点
func BuySignals(closes, ma []float64, threshold float64) []bool {
	below := make([]float64, len(closes))
	for i, c := range closes {
		if c < ma[i] {
			prev := 0.0
			if i > 0 {
				prev = below[i-1]
			}
			below[i] = math.Min(c-ma[i], prev)
		}
	}

	out := make([]bool, len(closes))
	for i, c := range closes {
		prev := 0.0
		if i > 0 {
			prev = below[i-1]
		}
		out[i] = c > ma[i] && prev < -threshold*c
	}
	return out
}

// SellSignals 与 BuySignals 对称：曾高于 MA 超过 threshold*close，随后跌破 MA
func SellSignals(closes, ma []float64, threshold float64) []bool {
	above := make([]float64, len(closes))
	for i, c := range closes {
		if c > ma[i] {
			prev := 0.0
			if i > 0 {
				prev = above[i-1]
			}
			above[i] = math.Max(c-ma[i], prev)
		}
	}

	out := make([]bool, len(closes))
	for i, c := range closes {
		prev := 0.0
		if i > 0 {
			prev = above[i-1]
		}
		out[i] = c < ma[i] && prev > threshold*c
	}
	return out
}

// Wallet 回测中每一天的资金状态
type Wallet struct {
	Cash   float64
	Crypto float64
	Hold   float64 // 第一天全部买入并持有的价值
}

// BackSimulate 买点全仓买入、卖点全部卖出
func BackSimulate(closes []float64, buy, sell []bool, initial float64) []Wallet {
	out := make([]Wallet, len(closes))
	if len(closes) == 0 {
		return out
	}
	first := closes[0]
	for i, c := range closes {
		if first > 0 {
			out[i].Hold = initial / first * c
		}
		if i == 0 {
			out[0].Cash = initial
			continue
		}
		prev := out[i-1]
		switch {
		case buy[i] && prev.Cash > 0:
			out[i].Crypto = prev.Cash / c
		case sell[i] && prev.Crypto > 0:
			out[i].Cash = prev.Crypto * c
		default:
			out[i].Cash = prev.Cash
			out[i].Crypto = prev.Crypto
		}
	}
	return out
}

// Value 按收盘价计算的总价值
func (w Wallet) Value(close float64) float64 { return w.Cash + w.Crypto*close }

// MAWindow 最近 Days 天收盘价的均值
type MAWindow struct {
	Days int
	Mean float64
}

// MAWindows 从 maxDays 到 minDays 天的均值；数据不足时按已有数据计算
func MAWindows(closes []float64, minDays, maxDays int) []MAWindow {
	if len(closes) == 0 || minDays <= 0 || maxDays < minDays {
		return nil
	}
	out := make([]MAWindow, 0, maxDays-minDays+1)
	for d := maxDays; d >= minDays; d-- {
		from := len(closes) - d
		if from < 0 {
			from = 0
		}
		var sum float64
		for _, c := range closes[from:] {
			sum += c
		}
		out = append(out, MAWindow{Days: d, Mean: sum / float64(len(closes)-from)})
	}
	return out
}

// MAStatus 当前价相对各窗口均值的位置，从最短窗口开始数连续在同一侧的窗口数
func MAStatus(windows []MAWindow, price float64) string {
	if len(windows) == 0 {
		return "MA n/a"
	}
	last := windows[len(windows)-1].Mean
	var (
		sign string
		same func(m float64) bool
	)
	switch {
	case price > last:
		sign, same = ">", func(m float64) bool { return price > m }
	case price < last:
		sign, same = "<", func(m float64) bool { return price < m }
	default:
		return "= MA"
	}

	n := 0
	for i := len(windows) - 1; i >= 0; i-- {
		if !same(windows[i].Mean) {
			return fmt.Sprintf("%s MA for %d days", sign, n)
		}
		n++
	}
	return sign + " MA"
}
