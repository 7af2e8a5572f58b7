package ratio

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
)

var ErrFeedClosed = errors.New("trade feed closed")

// Publisher 报告任务，在接收循环之外运行
type Publisher interface {
	Publish(ctx context.Context, r domain.Report) error
}

type ServiceDeps struct {
	Feed          port.TradeFeed
	Engine        *Engine
	HistoryWindow time.Duration
	ReportEvery   time.Duration
	Reporter      Publisher // optional
}

// Service 单一所有者的接收循环：引擎状态和历史窗口只在 Run 的 goroutine 中修改，
// 报告任务只拿到复制出来的 Report。
type Service struct {
	deps   ServiceDeps
	trades *window[domain.TradePoint]
	ratios *window[domain.RatioPoint]
}

func NewService(deps ServiceDeps) *Service {
	if deps.ReportEvery <= 0 {
		deps.ReportEvery = 5 * time.Minute
	}
	return &Service{
		deps:   deps,
		trades: newWindow(deps.HistoryWindow, func(p domain.TradePoint) time.Time { return p.Time }),
		ratios: newWindow(deps.HistoryWindow, func(p domain.RatioPoint) time.Time { return p.Time }),
	}
}

func (s *Service) Run(ctx context.Context) error {
	if s.deps.Feed == nil || s.deps.Engine == nil {
		return errors.New("ratio service: feed and engine are required")
	}

	pair := s.deps.Engine.Pair()
	in, err := s.deps.Feed.Subscribe(ctx, pair.Products())
	if err != nil {
		return err
	}
	log.Info().Str("feed", s.deps.Feed.Name()).Strs("products", pair.Products()).Msg("feed started")

	reports := make(chan domain.Report, 1)
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		for r := range reports {
			if s.deps.Reporter == nil {
				continue
			}
			if err := s.deps.Reporter.Publish(ctx, r); err != nil {
				log.Error().Err(err).Msg("publish report failed")
			}
		}
	}()
	defer func() {
		close(reports)
		<-reporterDone
	}()

	reportTicker := time.NewTicker(s.deps.ReportEvery)
	defer reportTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case now := <-reportTicker.C:
			r := s.Report(now)
			log.Info().
				Int("trades", len(r.Trades)).
				Int("ratios", len(r.Ratios)).
				Str("state", Summary(pair, r.State)).
				Msg("report")
			select {
			case reports <- r:
			default:
				log.Warn().Msg("reporter busy, report skipped")
			}

		case ev, ok := <-in:
			if !ok {
				// 取消时 feed 也会关闭通道
				if err := ctx.Err(); err != nil {
					return err
				}
				return ErrFeedClosed
			}
			s.Handle(ctx, ev)
		}
	}
}

// Handle 把一条成交交给引擎并更新历史窗口
func (s *Service) Handle(ctx context.Context, ev domain.TradeEvent) Outcome {
	out, err := s.deps.Engine.OnTradeEvent(ctx, ev)
	if err != nil {
		log.Error().Err(err).Str("product", ev.Product).Int64("seq", ev.Sequence).Msg("trade event handling failed")
	}
	if !out.Tracked {
		log.Debug().Str("product", ev.Product).Msg("untracked product ignored")
		return out
	}
	s.trades.Push(domain.TradePoint{
		Time:    ev.Time,
		Product: ev.Product,
		Side:    ev.Side,
		Price:   ev.Price.InexactFloat64(),
	})
	s.ratios.Push(s.deps.Engine.Point(ev.Time))
	return out
}

// Report 复制当前窗口和状态
func (s *Service) Report(now time.Time) domain.Report {
	return domain.Report{
		Time:      now,
		Pair:      s.deps.Engine.Pair(),
		Threshold: s.deps.Engine.Threshold().InexactFloat64(),
		Trades:    s.trades.Copy(),
		Ratios:    s.ratios.Copy(),
		State:     s.deps.Engine.Snapshot(),
	}
}
