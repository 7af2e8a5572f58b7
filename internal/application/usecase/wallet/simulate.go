package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"ratiobot/internal/domain/service"
)

var ErrInvalidOptions = errors.New("wallet: invalid simulate options")

// SimulateOptions ratio = price(A) / price(B)；比率上升时 A→B，下降时 B→A
type SimulateOptions struct {
	MarketA     string
	MarketB     string
	Unit        decimal.Decimal // 每个阈值倍数对应的 EUR
	Threshold   decimal.Decimal
	MaxTransfer decimal.Decimal // 单次上限，0 表示不限
	Start       time.Time       // 零值表示从第一个有持仓的日期开始
}

// SimulateResult 模拟中执行的调仓，以及最后一天触发时的提示
type SimulateResult struct {
	Transfers []TransferRecord
	Message   string
}

// Simulate 在日线收盘价上回放 anchor/阈值规则，只维护一个 anchor
func (l *Ledger) Simulate(opts SimulateOptions) (SimulateResult, error) {
	if err := l.checkMarket(opts.MarketA); err != nil {
		return SimulateResult{}, err
	}
	if err := l.checkMarket(opts.MarketB); err != nil {
		return SimulateResult{}, err
	}
	if opts.MarketA == opts.MarketB || !opts.Unit.IsPositive() ||
		!opts.Threshold.IsPositive() || opts.Threshold.GreaterThanOrEqual(decimal.NewFromInt(1)) ||
		opts.MaxTransfer.IsNegative() {
		return SimulateResult{}, ErrInvalidOptions
	}
	if len(l.rows) == 0 {
		return SimulateResult{}, ErrEmptyLedger
	}

	start, err := l.simStart(opts.Start)
	if err != nil {
		return SimulateResult{}, err
	}

	var (
		res    SimulateResult
		anchor = l.ratio(start, opts)
		last   = len(l.rows) - 1
	)
	for i := start + 1; i <= last; i++ {
		latest := l.ratio(i, opts)
		if anchor.IsZero() {
			anchor = latest
			continue
		}
		dir := service.Band(anchor, latest, opts.Threshold)
		if dir == 0 {
			continue
		}
		factor := service.Multiplier(anchor, latest, opts.Threshold)

		from, to := opts.MarketA, opts.MarketB
		if dir < 0 {
			from, to = opts.MarketB, opts.MarketA
		}
		eur := l.transferAmount(i, from, opts, factor)
		anchor = latest
		if !eur.IsPositive() {
			log.Debug().Str("from", from).Time("date", l.rows[i].Date).Msg("crossing without balance, skipped")
			continue
		}
		if _, err := l.transferAt(l.rows[i].Date, from, to, eur); err != nil {
			return res, fmt.Errorf("simulate transfer on %s: %w", l.rows[i].Date.Format(time.DateOnly), err)
		}

		rec := TransferRecord{Date: l.rows[i].Date, From: from, To: to, EUR: eur, Ratio: latest, Factor: factor}
		if i == last {
			rec.Message = fmt.Sprintf("%s: ratio %s/%s = %s => Sell %s and Buy %s: EUR %s (x%d)",
				rec.Date.Format(time.DateOnly), opts.MarketA, opts.MarketB, latest.StringFixed(6),
				from, to, eur.StringFixed(2), factor)
			res.Message = rec.Message
		}
		l.transfers = append(l.transfers, rec)
		res.Transfers = append(res.Transfers, rec)
	}
	return res, nil
}

// simStart 第一个有持仓价值的行
func (l *Ledger) simStart(from time.Time) (int, error) {
	i := 0
	if !from.IsZero() {
		var err error
		if i, err = l.index(from); err != nil {
			return 0, err
		}
	}
	for ; i < len(l.rows); i++ {
		if l.rows[i].Value().IsPositive() {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: no holdings to simulate", ErrEmptyLedger)
}

func (l *Ledger) ratio(i int, opts SimulateOptions) decimal.Decimal {
	pb := l.rows[i].Prices[opts.MarketB]
	if !pb.IsPositive() {
		return decimal.Zero
	}
	return l.rows[i].Prices[opts.MarketA].Div(pb)
}

// transferAmount factor × unit，受来源余额和单次上限限制
func (l *Ledger) transferAmount(i int, from string, opts SimulateOptions, factor int64) decimal.Decimal {
	eur := opts.Unit.Mul(decimal.NewFromInt(factor))
	r := l.rows[i]
	if avail := r.Amounts[from].Mul(r.Prices[from]); eur.GreaterThan(avail) {
		eur = avail
	}
	if opts.MaxTransfer.IsPositive() && eur.GreaterThan(opts.MaxTransfer) {
		eur = opts.MaxTransfer
	}
	return eur
}
