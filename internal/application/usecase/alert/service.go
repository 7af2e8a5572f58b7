package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"ratiobot/internal/application/port"
)

const (
	DefaultInterval = 60 * time.Second
	DefaultStep     = "0.01"
)

var ErrNoBounds = errors.New("alert: at least one of high/low is required")

// Bounds 未设置的一侧不检查；触发后该侧按 Step 外移
type Bounds struct {
	High decimal.NullDecimal
	Low  decimal.NullDecimal
	Step decimal.Decimal
}

// ParseBound "*" 表示不检查
func ParseBound(s string) (decimal.NullDecimal, error) {
	if s == "*" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid bound %q: %w", s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

type ServiceDeps struct {
	Market   port.MarketData
	Notifier port.Notifier
}

type Service struct {
	deps     ServiceDeps
	product  string
	bounds   Bounds
	interval time.Duration
}

func NewService(deps ServiceDeps, product string, b Bounds, interval time.Duration) (*Service, error) {
	if deps.Market == nil || deps.Notifier == nil {
		return nil, errors.New("alert: missing deps")
	}
	if !b.High.Valid && !b.Low.Valid {
		return nil, ErrNoBounds
	}
	if b.Step.IsZero() {
		b.Step = decimal.RequireFromString(DefaultStep)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{deps: deps, product: product, bounds: b, interval: interval}, nil
}

func (s *Service) Bounds() Bounds { return s.bounds }

// Check 拉一次价格；越过上界或下界时通知并把该界外移一个 Step
func (s *Service) Check(ctx context.Context) (string, error) {
	price, err := s.deps.Market.GetPrice(ctx, s.product)
	if err != nil {
		return "", fmt.Errorf("get price %s: %w", s.product, err)
	}
	log.Info().
		Str("product", s.product).
		Str("price", price.String()).
		Str("high", boundString(s.bounds.High)).
		Str("low", boundString(s.bounds.Low)).
		Msg("price checked")

	var msg string
	switch {
	case s.bounds.High.Valid && price.GreaterThanOrEqual(s.bounds.High.Decimal):
		msg = fmt.Sprintf("HIGH-THR ALERT! %s = USD %s", s.product, price)
		s.bounds.High.Decimal = s.bounds.High.Decimal.Add(s.bounds.Step)
	case s.bounds.Low.Valid && price.LessThanOrEqual(s.bounds.Low.Decimal):
		msg = fmt.Sprintf("LOW-THR ALERT! %s = %s", s.product, price)
		s.bounds.Low.Decimal = s.bounds.Low.Decimal.Sub(s.bounds.Step)
	default:
		return "", nil
	}

	log.Info().Str("product", s.product).Msg(msg)
	if err := s.deps.Notifier.SendText(ctx, msg); err != nil {
		log.Error().Err(err).Msg("send alert failed")
	}
	return msg, nil
}

// Run 立即检查一次，然后按固定间隔轮询；取价失败只记录，下个周期重试
func (s *Service) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		if _, err := s.Check(ctx); err != nil {
			log.Error().Err(err).Msg("price check failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func boundString(b decimal.NullDecimal) string {
	if !b.Valid {
		return "*"
	}
	return b.Decimal.String()
}
