// Package metrics exposes the live listener counters in Prometheus format.
//
//   - ratiobot_trades_total{product}
//   - ratiobot_messages_ignored_total{type}
//   - ratiobot_sequence_anomalies_total{product,kind}
//   - ratiobot_signals_total{direction}
//   - ratiobot_ratio{direction,kind}     kind: anchor|latest
//   - ratiobot_reconnects_total
//   - ratiobot_notifications_failed_total
package metrics

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"ratiobot/internal/application/port"
)

type Recorder struct {
	reg          *prometheus.Registry
	trades       *prometheus.CounterVec
	ignored      *prometheus.CounterVec
	anomalies    *prometheus.CounterVec
	signals      *prometheus.CounterVec
	ratio        *prometheus.GaugeVec
	reconnects   prometheus.Counter
	notifyFailed prometheus.Counter
}

var _ port.Recorder = (*Recorder)(nil)

// New 使用独立 registry，避免重复注册到全局默认 registry
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ratiobot_trades_total", Help: "Trade executions consumed"},
			[]string{"product"},
		),
		ignored: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ratiobot_messages_ignored_total", Help: "Feed messages that were not trades"},
			[]string{"type"},
		),
		anomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ratiobot_sequence_anomalies_total", Help: "Repeated or skipped sequence numbers"},
			[]string{"product", "kind"},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ratiobot_signals_total", Help: "Rebalancing signals emitted"},
			[]string{"direction"},
		),
		ratio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "ratiobot_ratio", Help: "Current directional ratio anchor and latest value"},
			[]string{"direction", "kind"},
		),
		reconnects: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "ratiobot_reconnects_total", Help: "Feed reconnects"},
		),
		notifyFailed: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "ratiobot_notifications_failed_total", Help: "Notification deliveries that failed"},
		),
	}
	r.reg.MustRegister(r.trades, r.ignored, r.anomalies, r.signals, r.ratio, r.reconnects, r.notifyFailed)
	return r
}

func (r *Recorder) TradeObserved(product string) { r.trades.WithLabelValues(product).Inc() }

func (r *Recorder) MessageIgnored(kind string) { r.ignored.WithLabelValues(kind).Inc() }

func (r *Recorder) SequenceAnomaly(product, kind string) {
	r.anomalies.WithLabelValues(product, kind).Inc()
}

// RatioUpdated 未知值（NaN）不写入
func (r *Recorder) RatioUpdated(direction string, anchor, latest float64) {
	if !math.IsNaN(anchor) {
		r.ratio.WithLabelValues(direction, "anchor").Set(anchor)
	}
	if !math.IsNaN(latest) {
		r.ratio.WithLabelValues(direction, "latest").Set(latest)
	}
}

func (r *Recorder) SignalEmitted(direction string) { r.signals.WithLabelValues(direction).Inc() }

func (r *Recorder) NotificationFailed() { r.notifyFailed.Inc() }

func (r *Recorder) Reconnected() { r.reconnects.Inc() }

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve 在 addr 上暴露 /metrics，ctx 结束时关闭
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
