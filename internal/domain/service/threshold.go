package service

import "github.com/shopspring/decimal"

// Divergence |latest-anchor| / anchor；anchor 为 0 时返回 0
func Divergence(anchor, latest decimal.Decimal) decimal.Decimal {
	if anchor.IsZero() {
		return decimal.Zero
	}
	return latest.Sub(anchor).Abs().Div(anchor)
}

// Band 相对 anchor 的偏离分级：+1 向上穿越，-1 向下穿越，0 未穿越
func Band(anchor, latest, threshold decimal.Decimal) int {
	if anchor.IsZero() || !threshold.IsPositive() {
		return 0
	}
	if Divergence(anchor, latest).LessThan(threshold) {
		return 0
	}
	if latest.GreaterThan(anchor) {
		return +1
	}
	return -1
}

// CrossedAbove latest 高于 anchor 且相对偏离 >= threshold
func CrossedAbove(anchor, latest, threshold decimal.Decimal) bool {
	return Band(anchor, latest, threshold) == +1
}

// CrossedBelow latest 低于 anchor 且相对偏离 >= threshold
func CrossedBelow(anchor, latest, threshold decimal.Decimal) bool {
	return Band(anchor, latest, threshold) == -1
}

// Multiplier floor(divergence / threshold)：偏离了几个阈值步长
func Multiplier(anchor, latest, threshold decimal.Decimal) int64 {
	if !threshold.IsPositive() {
		return 0
	}
	return Divergence(anchor, latest).Div(threshold).Floor().IntPart()
}
