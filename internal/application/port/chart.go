package port

import "ratiobot/internal/domain"

// ReportCharts 把实时报告渲染成 PNG 文件
type ReportCharts interface {
	QuoteChart(path string, r domain.Report) error
	RatioChart(path string, r domain.Report) error
}
