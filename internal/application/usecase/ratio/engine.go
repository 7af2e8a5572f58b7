package ratio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
	dsvc "ratiobot/internal/domain/service"
)

type EngineDeps struct {
	Pair      domain.RatioPair
	Threshold decimal.Decimal
	UnitEUR   decimal.Decimal
	Store     port.StateStore
	Journal   port.Journal // optional
	Notifier  port.Notifier
	Recorder  port.Recorder
	Now       func() time.Time
	NewID     func() string
}

// Outcome 单个事件的处理结果
type Outcome struct {
	Tracked bool
	// Updated 本次重新计算的方向，未计算时为空
	Updated domain.Direction
	// Armed 本次事件首次设置了 anchor
	Armed  bool
	Signal *domain.Signal
}

// Engine 把成交流转换为调仓建议。
// 只允许被单个 goroutine 调用（接收循环独占 QuoteState / RatioState）。
type Engine struct {
	deps      EngineDeps
	quotes    map[string]*domain.QuoteState
	ratios    map[domain.Direction]*domain.RatioState
	updatedAt time.Time
}

func NewEngine(deps EngineDeps) *Engine {
	if deps.Recorder == nil {
		deps.Recorder = port.NopRecorder()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	e := &Engine{
		deps:   deps,
		quotes: make(map[string]*domain.QuoteState, 2),
		ratios: make(map[domain.Direction]*domain.RatioState, len(domain.Directions)),
	}
	for _, p := range deps.Pair.Products() {
		e.quotes[p] = &domain.QuoteState{}
	}
	for _, d := range domain.Directions {
		e.ratios[d] = &domain.RatioState{}
	}
	return e
}

func (e *Engine) Pair() domain.RatioPair { return e.deps.Pair }

func (e *Engine) Threshold() decimal.Decimal { return e.deps.Threshold }

// Restore 载入持久化快照；不在跟踪集合内的条目被忽略，不触发任何通知
func (e *Engine) Restore(s *domain.Snapshot) {
	if s == nil {
		return
	}
	for id, q := range s.Quotes {
		if cur, ok := e.quotes[id]; ok {
			*cur = q
		}
	}
	for d, r := range s.Ratios {
		if cur, ok := e.ratios[d]; ok {
			*cur = r
		}
	}
	e.updatedAt = s.UpdatedAt
}

// Snapshot 当前状态的副本
func (e *Engine) Snapshot() domain.Snapshot {
	s := domain.NewSnapshot()
	for id, q := range e.quotes {
		s.Quotes[id] = *q
	}
	for d, r := range e.ratios {
		s.Ratios[d] = *r
	}
	s.UpdatedAt = e.updatedAt
	return s
}

// OnTradeEvent 处理一条成交：更新报价 -> 重算一个方向的比率 -> anchor/阈值判断。
// 穿越时的顺序固定为：重置两个 anchor -> 保存快照 -> 记录信号 -> 通知。
// 返回的 error 只代表快照保存失败，通知失败只记录日志。
func (e *Engine) OnTradeEvent(ctx context.Context, ev domain.TradeEvent) (Outcome, error) {
	q, ok := e.quotes[ev.Product]
	if !ok {
		return Outcome{}, nil
	}
	out := Outcome{Tracked: true}

	resting := ev.Side.Opposite()
	check, missed := q.Apply(resting, ev.Price, ev.Sequence, ev.Time)
	switch check {
	case domain.SequenceRepeated:
		log.Info().Str("product", ev.Product).Int64("seq", ev.Sequence).Msg("sequence number repeated")
		e.deps.Recorder.SequenceAnomaly(ev.Product, check.String())
	case domain.SequenceGap:
		log.Info().Str("product", ev.Product).Int64("seq", ev.Sequence).Int64("missed", missed).Msg("sequence number dropped")
		e.deps.Recorder.SequenceAnomaly(ev.Product, check.String())
	}
	e.updatedAt = ev.Time
	e.deps.Recorder.TradeObserved(ev.Product)

	dir := e.directionFor(ev.Product, resting)
	latest, ok := e.ratioFor(dir)
	if !ok {
		return out, nil
	}
	st := e.ratios[dir]
	st.Latest = decimal.NewNullDecimal(latest)
	out.Updated = dir

	if !st.Armed() {
		st.Rearm()
		out.Armed = true
		e.recordRatio(dir)
		log.Info().
			Str("direction", dir.Label(e.deps.Pair)).
			Str("anchor", latest.String()).
			Msg("anchor initialized")
		if err := e.save(ctx); err != nil {
			return out, err
		}
		return out, nil
	}
	e.recordRatio(dir)

	anchor := st.Anchor.Decimal
	var crossed bool
	switch dir {
	case domain.DirectionAToB:
		// 只在比率高于 anchor 时卖 A
		crossed = dsvc.CrossedAbove(anchor, latest, e.deps.Threshold)
	case domain.DirectionBToA:
		// 只在比率低于 anchor 时卖 B
		crossed = dsvc.CrossedBelow(anchor, latest, e.deps.Threshold)
	}
	if !crossed {
		return out, nil
	}

	sig := e.buildSignal(dir, anchor, latest, ev.Time)
	out.Signal = &sig
	for _, d := range domain.Directions {
		e.ratios[d].Rearm()
		e.recordRatio(d)
	}
	e.deps.Recorder.SignalEmitted(dir.Label(e.deps.Pair))
	log.Info().
		Str("direction", dir.Label(e.deps.Pair)).
		Str("anchor", anchor.String()).
		Str("latest", latest.String()).
		Int64("multiplier", sig.Multiplier).
		Msg(sig.Message)

	saveErr := e.save(ctx)

	if e.deps.Journal != nil {
		if err := e.deps.Journal.InsertSignal(ctx, sig); err != nil {
			log.Error().Err(err).Str("signal", sig.ID).Msg("journal signal failed")
		}
	}
	if e.deps.Notifier != nil {
		if err := e.deps.Notifier.SendText(ctx, sig.Message); err != nil {
			e.deps.Recorder.NotificationFailed()
			log.Error().Err(err).Str("signal", sig.ID).Msg("notify signal failed")
		}
	}
	return out, saveErr
}

// directionFor 固定映射：A 卖出侧或 B 买入侧变化时重算 A->B，否则重算 B->A
func (e *Engine) directionFor(product string, resting domain.Side) domain.Direction {
	a := e.deps.Pair.ProductA().ID()
	b := e.deps.Pair.ProductB().ID()
	if (product == a && resting == domain.SideSell) || (product == b && resting == domain.SideBuy) {
		return domain.DirectionAToB
	}
	return domain.DirectionBToA
}

// ratioFor A->B = A.sell / B.buy；B->A = A.buy / B.sell。两边都已知才返回。
func (e *Engine) ratioFor(dir domain.Direction) (decimal.Decimal, bool) {
	qa := e.quotes[e.deps.Pair.ProductA().ID()]
	qb := e.quotes[e.deps.Pair.ProductB().ID()]

	var num, den decimal.NullDecimal
	if dir == domain.DirectionAToB {
		num, den = qa.Sell, qb.Buy
	} else {
		num, den = qa.Buy, qb.Sell
	}
	if !num.Valid || !den.Valid || den.Decimal.IsZero() {
		return decimal.Zero, false
	}
	return num.Decimal.Div(den.Decimal), true
}

func (e *Engine) buildSignal(dir domain.Direction, anchor, latest decimal.Decimal, ts time.Time) domain.Signal {
	mult := dsvc.Multiplier(anchor, latest, e.deps.Threshold)
	sig := domain.Signal{
		ID:          e.deps.NewID(),
		Direction:   dir,
		From:        dir.From(e.deps.Pair),
		To:          dir.To(e.deps.Pair),
		Anchor:      anchor,
		Latest:      latest,
		Divergence:  dsvc.Divergence(anchor, latest),
		Multiplier:  mult,
		NotionalEUR: e.deps.UnitEUR.Mul(decimal.NewFromInt(mult)),
		Time:        ts,
	}
	if sig.Time.IsZero() {
		sig.Time = e.deps.Now()
	}
	sig.Message = SignalMessage(e.deps.Pair, sig)
	return sig
}

func (e *Engine) save(ctx context.Context) error {
	if e.deps.Store == nil {
		return nil
	}
	if err := e.deps.Store.Save(ctx, e.Snapshot()); err != nil {
		log.Error().Err(err).Msg("save ratio state failed")
		return fmt.Errorf("save ratio state: %w", err)
	}
	return nil
}

func (e *Engine) recordRatio(dir domain.Direction) {
	r := e.ratios[dir]
	e.deps.Recorder.RatioUpdated(dir.Label(e.deps.Pair), floatOrNaN(r.Anchor), floatOrNaN(r.Latest))
}

// Point 当前状态在滚动窗口中的一个采样点
func (e *Engine) Point(ts time.Time) domain.RatioPoint {
	ab := e.ratios[domain.DirectionAToB]
	ba := e.ratios[domain.DirectionBToA]
	return domain.RatioPoint{
		Time:       ts,
		AToBLatest: floatOrNaN(ab.Latest),
		AToBAnchor: floatOrNaN(ab.Anchor),
		BToALatest: floatOrNaN(ba.Latest),
		BToAAnchor: floatOrNaN(ba.Anchor),
	}
}
