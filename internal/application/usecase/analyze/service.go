package analyze

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
)

var ErrNotEnoughHistory = errors.New("analyze: not enough candles")

const (
	DefaultDays      = 90
	DefaultMA        = 20
	DefaultThreshold = 0.05

	maWindowMin = 11
	maWindowMax = 50
)

// Analysis 一个产品的日线分析结果，各切片与 Candles 等长
type Analysis struct {
	Product   string
	MADays    int
	Threshold float64
	Candles   []domain.Candle
	MA        []float64
	Buy       []bool
	Sell      []bool
	Wallet    []Wallet
	Windows   []MAWindow
	Price     float64
	Status    string
}

// Charts 分析图表渲染
type Charts interface {
	PriceChart(path string, a Analysis) error
	VolumeChart(path string, a Analysis) error
	MAWindowChart(path string, a Analysis) error
}

type Params struct {
	Product   string
	Days      int
	MADays    int
	Threshold float64
	Initial   float64
	Dir       string
	Now       time.Time
}

type ServiceDeps struct {
	Market   port.MarketData
	Charts   Charts
	Notifier port.Notifier
}

type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service { return &Service{deps: deps} }

func (p *Params) applyDefaults() {
	if p.Days <= 0 {
		p.Days = DefaultDays
	}
	if p.MADays <= 0 {
		p.MADays = DefaultMA
	}
	if p.Threshold <= 0 {
		p.Threshold = DefaultThreshold
	}
	if p.Initial <= 0 {
		p.Initial = 100
	}
	if p.Dir == "" {
		p.Dir = "."
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
}

// Analyze 拉取日线（含 MA 预热区间）并计算买卖点、回测和 MA 状态
func (s *Service) Analyze(ctx context.Context, p Params) (Analysis, error) {
	p.applyDefaults()
	start := p.Now.AddDate(0, 0, -p.Days)
	warm := start.AddDate(0, 0, -p.MADays)

	candles, err := s.deps.Market.GetCandles(ctx, p.Product, warm, p.Now, 24*time.Hour)
	if err != nil {
		return Analysis{}, fmt.Errorf("load history %s: %w", p.Product, err)
	}
	a, err := Build(p.Product, candles, start, p.MADays, p.Threshold, p.Initial)
	if err != nil {
		return Analysis{}, err
	}

	price, err := s.deps.Market.GetPrice(ctx, p.Product)
	if err != nil {
		return Analysis{}, fmt.Errorf("get price %s: %w", p.Product, err)
	}
	a.Price = price.InexactFloat64()
	a.Status = MAStatus(a.Windows, a.Price)
	return a, nil
}

// Build 纯计算部分：MA 在全部数据上计算，然后裁掉 start 之前的预热数据
func Build(product string, candles []domain.Candle, start time.Time, maDays int, threshold, initial float64) (Analysis, error) {
	closesAll := domain.Closes(candles)
	maAll := MovingAverage(closesAll, maDays)

	from := len(candles)
	for i, c := range candles {
		if !c.Time.Before(start) {
			from = i
			break
		}
	}
	if from >= len(candles) {
		return Analysis{}, fmt.Errorf("%w: %s has no candles after %s", ErrNotEnoughHistory, product, start.Format(time.DateOnly))
	}

	kept := candles[from:]
	closes := closesAll[from:]
	ma := maAll[from:]
	buy := BuySignals(closes, ma, threshold)
	sell := SellSignals(closes, ma, threshold)

	return Analysis{
		Product:   product,
		MADays:    maDays,
		Threshold: threshold,
		Candles:   kept,
		MA:        ma,
		Buy:       buy,
		Sell:      sell,
		Wallet:    BackSimulate(closes, buy, sell, initial),
		Windows:   MAWindows(closesAll, maWindowMin, maWindowMax),
		Price:     math.NaN(),
	}, nil
}

// Publish 渲染三张图并逐张发送
func (s *Service) Publish(ctx context.Context, a Analysis, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}
	paths := []string{
		filepath.Join(dir, a.Product+".png"),
		filepath.Join(dir, a.Product+"-Volume.png"),
		filepath.Join(dir, a.Product+"-MA.png"),
	}
	renders := []func(string, Analysis) error{
		s.deps.Charts.PriceChart,
		s.deps.Charts.VolumeChart,
		s.deps.Charts.MAWindowChart,
	}

	var errs []error
	for i, path := range paths {
		if err := renders[i](path, a); err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", filepath.Base(path), err))
			continue
		}
		if s.deps.Notifier == nil {
			continue
		}
		if err := s.deps.Notifier.SendImage(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("send %s: %w", filepath.Base(path), err))
		}
	}
	return paths, errors.Join(errs...)
}

// Summary 回测结果的一行描述
func Summary(a Analysis) string {
	if len(a.Wallet) == 0 {
		return a.Product + ": no data"
	}
	last := a.Wallet[len(a.Wallet)-1]
	closeLast := a.Candles[len(a.Candles)-1].Close.InexactFloat64()
	buys, sells := count(a.Buy), count(a.Sell)
	s := fmt.Sprintf("%s THR=%.2f MA%d: buys=%d sells=%d strategy=%.2f hold=%.2f",
		a.Product, a.Threshold, a.MADays, buys, sells, last.Value(closeLast), last.Hold)
	if a.Status != "" {
		s += " | " + a.Status
	}
	return s
}

func count(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func logAnalysis(a Analysis) {
	log.Info().
		Str("product", a.Product).
		Int("candles", len(a.Candles)).
		Int("buys", count(a.Buy)).
		Int("sells", count(a.Sell)).
		Str("status", a.Status).
		Msg("analysis done")
}

// Run 分析 + 发图 + 发送摘要
func (s *Service) Run(ctx context.Context, p Params) (Analysis, error) {
	p.applyDefaults()
	a, err := s.Analyze(ctx, p)
	if err != nil {
		return Analysis{}, err
	}
	logAnalysis(a)
	if _, err := s.Publish(ctx, a, p.Dir); err != nil {
		log.Error().Err(err).Str("product", a.Product).Msg("publish charts failed")
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.SendText(ctx, Summary(a)); err != nil {
			log.Error().Err(err).Msg("send summary failed")
		}
	}
	return a, nil
}
