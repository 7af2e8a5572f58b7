package domain

import "time"

// TradePoint 滚动窗口中的一条成交
type TradePoint struct {
	Time    time.Time
	Product string
	Side    Side
	Price   float64
}

// RatioPoint 每次成交后的比率与报价快照；未知值为 NaN
type RatioPoint struct {
	Time       time.Time
	AToBLatest float64
	AToBAnchor float64
	BToALatest float64
	BToAAnchor float64
}

// Report 交给报告任务的只读副本
type Report struct {
	Time      time.Time
	Pair      RatioPair
	Threshold float64
	Trades    []TradePoint
	Ratios    []RatioPoint
	State     Snapshot
}
