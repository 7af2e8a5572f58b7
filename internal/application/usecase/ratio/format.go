package ratio

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"ratiobot/internal/domain"
)

var hundred = decimal.NewFromInt(100)

func floatOrNaN(v decimal.NullDecimal) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Decimal.InexactFloat64()
}

func fmtNull(v decimal.NullDecimal, places int32) string {
	if !v.Valid {
		return "--"
	}
	return v.Decimal.StringFixed(places)
}

// SignalMessage 发给运营通道的一行建议
func SignalMessage(p domain.RatioPair, sig domain.Signal) string {
	way := "above"
	if sig.Direction == domain.DirectionBToA {
		way = "below"
	}
	return fmt.Sprintf("%s ratio %s is %s%% %s anchor %s => Sell %s and Buy %s: %s %s (x%d)",
		sig.Direction.Label(p),
		sig.Latest.StringFixed(6),
		sig.Divergence.Mul(hundred).StringFixed(2),
		way,
		sig.Anchor.StringFixed(6),
		sig.From, sig.To,
		p.Quote,
		sig.NotionalEUR.StringFixed(2),
		sig.Multiplier,
	)
}

// SpreadPercent |sell-buy| / min(sell,buy) * 100
func SpreadPercent(q domain.QuoteState) (decimal.Decimal, bool) {
	if !q.Sell.Valid || !q.Buy.Valid {
		return decimal.Zero, false
	}
	lo := decimal.Min(q.Sell.Decimal, q.Buy.Decimal)
	if lo.IsZero() {
		return decimal.Zero, false
	}
	return q.Sell.Decimal.Sub(q.Buy.Decimal).Abs().Div(lo).Mul(hundred), true
}

// Summary 报告用的单行状态，和图表一起落库
func Summary(p domain.RatioPair, s domain.Snapshot) string {
	var sb strings.Builder
	for i, id := range p.Products() {
		if i > 0 {
			sb.WriteString("  ||  ")
		}
		q := s.Quotes[id]
		sb.WriteString(id)
		sb.WriteString(" S:")
		sb.WriteString(fmtNull(q.Sell, 2))
		sb.WriteString(" B:")
		sb.WriteString(fmtNull(q.Buy, 2))
		if sp, ok := SpreadPercent(q); ok {
			sb.WriteString(" Δ=")
			sb.WriteString(sp.StringFixed(3))
			sb.WriteString("%")
		}
	}
	for _, d := range domain.Directions {
		r := s.Ratios[d]
		sb.WriteString("  ||  ")
		sb.WriteString(d.Label(p))
		sb.WriteString(" latest=")
		sb.WriteString(fmtNull(r.Latest, 6))
		sb.WriteString(" anchor=")
		sb.WriteString(fmtNull(r.Anchor, 6))
	}
	return sb.String()
}
