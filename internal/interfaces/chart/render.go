package chart

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNoData = errors.New("chart: no data points")

const (
	defaultWidth  = 1280
	defaultHeight = 720
)

var (
	colorBlue   = drawing.ColorFromHex("1f77b4")
	colorOrange = drawing.ColorFromHex("ff7f0e")
	colorGreen  = drawing.ColorFromHex("2ca02c")
	colorRed    = drawing.ColorFromHex("d62728")
	colorPurple = drawing.ColorFromHex("9467bd")
	colorGray   = drawing.ColorFromHex("7f7f7f")
)

// Renderer 用 go-chart 把报告和分析结果画成 PNG
type Renderer struct {
	Width  int
	Height int
}

func New() *Renderer { return &Renderer{Width: defaultWidth, Height: defaultHeight} }

// line 一条时间序列；NaN 点在绘图前被过滤
type line struct {
	name      string
	times     []time.Time
	values    []float64
	color     drawing.Color
	secondary bool
	dots      bool
	dashed    bool
	fill      bool
}

func (l line) points() ([]time.Time, []float64) {
	ts := make([]time.Time, 0, len(l.times))
	vs := make([]float64, 0, len(l.values))
	for i, v := range l.values {
		if i >= len(l.times) {
			break
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		ts = append(ts, l.times[i])
		vs = append(vs, v)
	}
	return ts, vs
}

func (l line) series() (gochart.TimeSeries, bool) {
	ts, vs := l.points()
	if len(vs) == 0 {
		return gochart.TimeSeries{}, false
	}
	style := gochart.Style{StrokeColor: l.color, StrokeWidth: 1.5}
	if l.dots {
		style = gochart.Style{StrokeColor: drawing.ColorTransparent, DotColor: l.color, DotWidth: 4}
	}
	if l.dashed {
		style.StrokeDashArray = []float64{5, 5}
	}
	if l.fill {
		style.FillColor = l.color.WithAlpha(64)
	}
	s := gochart.TimeSeries{Name: l.name, XValues: ts, YValues: vs, Style: style}
	if l.secondary {
		s.YAxis = gochart.YAxisSecondary
	}
	return s, true
}

type bounds struct {
	min, max float64
	ok       bool
}

func (b *bounds) add(v float64) {
	if !b.ok {
		b.min, b.max, b.ok = v, v, true
		return
	}
	b.min = math.Min(b.min, v)
	b.max = math.Max(b.max, v)
}

// padded 留出 5% 边距；区间退化为一个点时按数值大小展开
func (b bounds) padded() *gochart.ContinuousRange {
	span := b.max - b.min
	if span == 0 {
		span = math.Abs(b.max) * 0.02
		if span == 0 {
			span = 1
		}
	}
	return &gochart.ContinuousRange{Min: b.min - span*0.05, Max: b.max + span*0.05}
}

type timeChart struct {
	title      string
	yName      string
	y2Name     string
	timeFormat gochart.ValueFormatter
	lines      []line
}

func (r *Renderer) size() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

func (r *Renderer) renderTime(path string, c timeChart) error {
	var (
		series       []gochart.Series
		x, y1, y2    bounds
		hasSecondary bool
	)
	for _, l := range c.lines {
		s, ok := l.series()
		if !ok {
			continue
		}
		for i, t := range s.XValues {
			x.add(float64(t.UnixNano()))
			if l.secondary {
				y2.add(s.YValues[i])
			} else {
				y1.add(s.YValues[i])
			}
		}
		hasSecondary = hasSecondary || l.secondary
		series = append(series, s)
	}
	if len(series) == 0 {
		return ErrNoData
	}

	w, h := r.size()
	graph := gochart.Chart{
		Title:  c.title,
		Width:  w,
		Height: h,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			ValueFormatter: c.timeFormat,
			Range:          x.padded(),
		},
		YAxis:  gochart.YAxis{Name: c.yName},
		Series: series,
	}
	if y1.ok {
		graph.YAxis.Range = y1.padded()
	} else {
		graph.YAxis.Range = y2.padded()
	}
	if hasSecondary {
		graph.YAxisSecondary = gochart.YAxis{Name: c.y2Name, Range: y2.padded()}
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	return writePNG(path, func(f *os.File) error { return graph.Render(gochart.PNG, f) })
}

func writePNG(path string, render func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}
