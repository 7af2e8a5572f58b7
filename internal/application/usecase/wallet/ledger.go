package wallet

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"ratiobot/internal/domain"
)

var (
	ErrUnknownMarket       = errors.New("wallet: unknown market")
	ErrDuplicateMarket     = errors.New("wallet: market already added")
	ErrDateOutOfRange      = errors.New("wallet: date out of range")
	ErrInsufficientBalance = errors.New("wallet: insufficient balance")
	ErrEmptyLedger         = errors.New("wallet: no rows")
)

// Row 某一天的收盘价与持仓
type Row struct {
	Date    time.Time
	Prices  map[string]decimal.Decimal
	Amounts map[string]decimal.Decimal
}

// Value 当天总价值 = Σ price × amount
func (r Row) Value() decimal.Decimal {
	total := decimal.Zero
	for m, p := range r.Prices {
		total = total.Add(p.Mul(r.Amounts[m]))
	}
	return total
}

func (r Row) clone() Row {
	out := Row{Date: r.Date, Prices: make(map[string]decimal.Decimal, len(r.Prices)), Amounts: make(map[string]decimal.Decimal, len(r.Amounts))}
	for k, v := range r.Prices {
		out.Prices[k] = v
	}
	for k, v := range r.Amounts {
		out.Amounts[k] = v
	}
	return out
}

// TransferRecord 一次已执行的调仓
type TransferRecord struct {
	Date    time.Time
	From    string
	To      string
	EUR     decimal.Decimal
	Ratio   decimal.Decimal
	Factor  int64
	Message string
}

// Ledger 按天排列的持仓表；修改在生效日及之后的所有行上覆盖
type Ledger struct {
	markets   []string
	rows      []Row
	transfers []TransferRecord
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewLedger 以第一个市场的日线建表
func NewLedger(market string, candles []domain.Candle) *Ledger {
	l := &Ledger{markets: []string{market}}
	seen := make(map[time.Time]bool, len(candles))
	for _, c := range candles {
		d := day(c.Time)
		if seen[d] {
			continue
		}
		seen[d] = true
		l.rows = append(l.rows, Row{
			Date:    d,
			Prices:  map[string]decimal.Decimal{market: c.Close},
			Amounts: map[string]decimal.Decimal{market: decimal.Zero},
		})
	}
	slices.SortFunc(l.rows, func(a, b Row) int { return a.Date.Compare(b.Date) })
	return l
}

// AddMarket 加入另一个市场；只保留所有市场都有收盘价的日期
func (l *Ledger) AddMarket(market string, candles []domain.Candle) error {
	if slices.Contains(l.markets, market) {
		return fmt.Errorf("%w: %s", ErrDuplicateMarket, market)
	}
	closes := make(map[time.Time]decimal.Decimal, len(candles))
	for _, c := range candles {
		closes[day(c.Time)] = c.Close
	}
	kept := l.rows[:0]
	for _, r := range l.rows {
		p, ok := closes[r.Date]
		if !ok {
			continue
		}
		r.Prices[market] = p
		r.Amounts[market] = decimal.Zero
		kept = append(kept, r)
	}
	l.rows = kept
	l.markets = append(l.markets, market)
	return nil
}

func (l *Ledger) Markets() []string { return slices.Clone(l.markets) }

// Rows 返回副本
func (l *Ledger) Rows() []Row {
	out := make([]Row, len(l.rows))
	for i, r := range l.rows {
		out[i] = r.clone()
	}
	return out
}

func (l *Ledger) Transfers() []TransferRecord { return slices.Clone(l.transfers) }

func (l *Ledger) checkMarket(m string) error {
	if !slices.Contains(l.markets, m) {
		return fmt.Errorf("%w: %s", ErrUnknownMarket, m)
	}
	return nil
}

// index 第一个日期 >= date 的行
func (l *Ledger) index(date time.Time) (int, error) {
	d := day(date)
	i, _ := slices.BinarySearchFunc(l.rows, d, func(r Row, t time.Time) int { return r.Date.Compare(t) })
	if i >= len(l.rows) {
		return 0, fmt.Errorf("%w: %s", ErrDateOutOfRange, d.Format(time.DateOnly))
	}
	return i, nil
}

func (l *Ledger) setFrom(i int, market string, amount decimal.Decimal) {
	for j := i; j < len(l.rows); j++ {
		l.rows[j].Amounts[market] = amount
	}
}

// SetAsset 从 date 起持有 amount 个 market 资产
func (l *Ledger) SetAsset(date time.Time, market string, amount decimal.Decimal) error {
	if err := l.checkMarket(market); err != nil {
		return err
	}
	i, err := l.index(date)
	if err != nil {
		return err
	}
	l.setFrom(i, market, amount)
	return nil
}

// Transfer 按当天收盘价把 eur 价值从 from 换到 to，无手续费和滑点
func (l *Ledger) Transfer(date time.Time, from, to string, eur decimal.Decimal) error {
	i, err := l.transferAt(date, from, to, eur)
	if err != nil {
		return err
	}
	l.transfers = append(l.transfers, TransferRecord{Date: l.rows[i].Date, From: from, To: to, EUR: eur})
	return nil
}

func (l *Ledger) transferAt(date time.Time, from, to string, eur decimal.Decimal) (int, error) {
	if err := l.checkMarket(from); err != nil {
		return 0, err
	}
	if err := l.checkMarket(to); err != nil {
		return 0, err
	}
	i, err := l.index(date)
	if err != nil {
		return 0, err
	}
	r := l.rows[i]
	pf, pt := r.Prices[from], r.Prices[to]
	if !pf.IsPositive() || !pt.IsPositive() {
		return 0, fmt.Errorf("%w: no price on %s", ErrDateOutOfRange, r.Date.Format(time.DateOnly))
	}
	sold := eur.Div(pf)
	if sold.GreaterThan(r.Amounts[from]) {
		return 0, fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientBalance, from, r.Amounts[from], sold)
	}
	newFrom := r.Amounts[from].Sub(sold)
	newTo := r.Amounts[to].Add(eur.Div(pt))
	l.setFrom(i, from, newFrom)
	l.setFrom(i, to, newTo)
	return i, nil
}

// TotalValue date 当天（或之后第一个交易日）的总价值
func (l *Ledger) TotalValue(date time.Time) (decimal.Decimal, error) {
	i, err := l.index(date)
	if err != nil {
		return decimal.Zero, err
	}
	return l.rows[i].Value(), nil
}

// FinalValue 最后一行的总价值；空表为 0
func (l *Ledger) FinalValue() decimal.Decimal {
	if len(l.rows) == 0 {
		return decimal.Zero
	}
	return l.rows[len(l.rows)-1].Value()
}
