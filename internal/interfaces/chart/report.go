package chart

import (
	"fmt"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
)

var _ port.ReportCharts = (*Renderer)(nil)

// QuoteChart 两个产品推断出的挂单价；B 使用右侧坐标轴
func (r *Renderer) QuoteChart(path string, rep domain.Report) error {
	a, b := rep.Pair.ProductA().ID(), rep.Pair.ProductB().ID()
	lines := []line{
		quoteLine(rep.Trades, a, domain.SideSell, colorRed, false),
		quoteLine(rep.Trades, a, domain.SideBuy, colorGreen, false),
		quoteLine(rep.Trades, b, domain.SideSell, colorOrange, true),
		quoteLine(rep.Trades, b, domain.SideBuy, colorBlue, true),
	}
	return r.renderTime(path, timeChart{
		title:      fmt.Sprintf("%s / %s quotes", a, b),
		yName:      a,
		y2Name:     b,
		timeFormat: gochart.TimeMinuteValueFormatter,
		lines:      lines,
	})
}

// quoteLine side 为挂单方向：taker 买入的成交价即挂单卖价
func quoteLine(trades []domain.TradePoint, product string, side domain.Side, c drawing.Color, secondary bool) line {
	l := line{name: product + " " + string(side), color: c, secondary: secondary, dots: true}
	for _, tp := range trades {
		if tp.Product != product || tp.Side.Opposite() != side {
			continue
		}
		l.times = append(l.times, tp.Time)
		l.values = append(l.values, tp.Price)
	}
	return l
}

// RatioChart 两个方向的 latest 以及各自触发信号的阈值线
func (r *Renderer) RatioChart(path string, rep domain.Report) error {
	n := len(rep.Ratios)
	times := make([]time.Time, n)
	abLatest := make([]float64, n)
	abLimit := make([]float64, n)
	baLatest := make([]float64, n)
	baLimit := make([]float64, n)
	for i, p := range rep.Ratios {
		times[i] = p.Time
		abLatest[i] = p.AToBLatest
		abLimit[i] = p.AToBAnchor * (1 + rep.Threshold)
		baLatest[i] = p.BToALatest
		baLimit[i] = p.BToAAnchor * (1 - rep.Threshold)
	}

	ab := domain.DirectionAToB.Label(rep.Pair)
	ba := domain.DirectionBToA.Label(rep.Pair)
	return r.renderTime(path, timeChart{
		title:      fmt.Sprintf("%s/%s ratio, threshold %.2f%%", rep.Pair.A, rep.Pair.B, rep.Threshold*100),
		yName:      "ratio",
		timeFormat: gochart.TimeMinuteValueFormatter,
		lines: []line{
			{name: ab, times: times, values: abLatest, color: colorRed},
			{name: ab + " threshold", times: times, values: abLimit, color: colorRed, dashed: true},
			{name: ba, times: times, values: baLatest, color: colorBlue},
			{name: ba + " threshold", times: times, values: baLimit, color: colorBlue, dashed: true},
		},
	})
}
