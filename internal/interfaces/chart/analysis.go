package chart

import (
	"fmt"
	"math"
	"os"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"ratiobot/internal/application/usecase/analyze"
	"ratiobot/internal/domain"
)

var _ analyze.Charts = (*Renderer)(nil)

// PriceChart 收盘价、MA、买卖点，右轴为回测与持有的价值
func (r *Renderer) PriceChart(path string, a analyze.Analysis) error {
	n := len(a.Candles)
	times := make([]time.Time, n)
	closes := domain.Closes(a.Candles)
	buys := make([]float64, n)
	sells := make([]float64, n)
	strategy := make([]float64, n)
	hold := make([]float64, n)
	for i, c := range a.Candles {
		times[i] = c.Time
		buys[i], sells[i] = math.NaN(), math.NaN()
		if i < len(a.Buy) && a.Buy[i] {
			buys[i] = closes[i]
		}
		if i < len(a.Sell) && a.Sell[i] {
			sells[i] = closes[i]
		}
		strategy[i], hold[i] = math.NaN(), math.NaN()
		if i < len(a.Wallet) {
			strategy[i] = a.Wallet[i].Value(closes[i])
			hold[i] = a.Wallet[i].Hold
		}
	}

	return r.renderTime(path, timeChart{
		title:      fmt.Sprintf("%s close, MA%d, threshold %.2f", a.Product, a.MADays, a.Threshold),
		yName:      a.Product,
		y2Name:     "value",
		timeFormat: gochart.TimeDateValueFormatter,
		lines: []line{
			{name: "close", times: times, values: closes, color: colorBlue},
			{name: fmt.Sprintf("MA%d", a.MADays), times: times, values: a.MA, color: colorOrange, dashed: true},
			{name: "buy", times: times, values: buys, color: colorGreen, dots: true},
			{name: "sell", times: times, values: sells, color: colorRed, dots: true},
			{name: "strategy", times: times, values: strategy, color: colorPurple, secondary: true},
			{name: "hold", times: times, values: hold, color: colorGray, secondary: true},
		},
	})
}

// VolumeChart 日成交量
func (r *Renderer) VolumeChart(path string, a analyze.Analysis) error {
	times := make([]time.Time, len(a.Candles))
	volumes := make([]float64, len(a.Candles))
	for i, c := range a.Candles {
		times[i] = c.Time
		volumes[i] = c.Volume.InexactFloat64()
	}
	return r.renderTime(path, timeChart{
		title:      a.Product + " volume",
		yName:      "volume",
		timeFormat: gochart.TimeDateValueFormatter,
		lines:      []line{{name: "volume", times: times, values: volumes, color: colorBlue, fill: true}},
	})
}

// MAWindowChart 各窗口长度的均值柱状图，最后一根为当前价
func (r *Renderer) MAWindowChart(path string, a analyze.Analysis) error {
	if len(a.Windows) == 0 {
		return ErrNoData
	}
	var b bounds
	bars := make([]gochart.Value, 0, len(a.Windows)+1)
	for _, w := range a.Windows {
		b.add(w.Mean)
		bars = append(bars, gochart.Value{
			Label: fmt.Sprintf("%d", w.Days),
			Value: w.Mean,
			Style: gochart.Style{FillColor: colorBlue, StrokeColor: colorBlue},
		})
	}
	if !math.IsNaN(a.Price) {
		b.add(a.Price)
		bars = append(bars, gochart.Value{
			Label: "now",
			Value: a.Price,
			Style: gochart.Style{FillColor: colorOrange, StrokeColor: colorOrange},
		})
	}

	w, h := r.size()
	slot := (w - 150) / len(bars)
	if slot < 3 {
		slot = 3
	}
	graph := gochart.BarChart{
		Title:  fmt.Sprintf("%s %s", a.Product, a.Status),
		Width:  w,
		Height: h,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		BarWidth:   slot * 2 / 3,
		BarSpacing: slot - slot*2/3,
		YAxis:      gochart.YAxis{Range: b.padded()},
		Bars:       bars,
	}
	return writePNG(path, func(f *os.File) error { return graph.Render(gochart.PNG, f) })
}
