package coinbase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
)

const (
	ExchangeName = "coinbase"
	DefaultWSURL = "wss://ws-feed.exchange.coinbase.com"

	minBackoff = 500 * time.Millisecond
	maxBackoff = 10 * time.Second
)

type MatchFeedConfig struct {
	WSURL       string
	Keepalive   time.Duration
	DialRetries int
	Recorder    port.Recorder
}

// MatchFeed 订阅 matches 频道，断线后自动重连并重新订阅
type MatchFeed struct {
	wsURL       string
	keepalive   time.Duration
	dialRetries int
	rec         port.Recorder
	dialer      *websocket.Dialer
}

func NewMatchFeed(cfg MatchFeedConfig) *MatchFeed {
	f := &MatchFeed{
		wsURL:       strings.TrimSpace(cfg.WSURL),
		keepalive:   cfg.Keepalive,
		dialRetries: cfg.DialRetries,
		rec:         cfg.Recorder,
		dialer:      websocket.DefaultDialer,
	}
	if f.wsURL == "" {
		f.wsURL = DefaultWSURL
	}
	if f.keepalive <= 0 {
		f.keepalive = 30 * time.Second
	}
	if f.dialRetries < 0 {
		f.dialRetries = 0
	}
	if f.rec == nil {
		f.rec = port.NopRecorder()
	}
	return f
}

func (f *MatchFeed) Name() string { return ExchangeName }

// Subscribe 首次连接失败（含重试）直接返回错误，由调用方决定退出
func (f *MatchFeed) Subscribe(ctx context.Context, products []string) (<-chan domain.TradeEvent, error) {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			ids = append(ids, p)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("coinbase: no products to subscribe")
	}

	var (
		conn    *websocket.Conn
		err     error
		backoff = minBackoff
	)
	for attempt := 0; attempt <= f.dialRetries; attempt++ {
		conn, err = f.connect(ctx, ids)
		if err == nil {
			break
		}
		log.Error().Str("feed", f.Name()).Int("attempt", attempt+1).Err(err).Msg("ws dial failed")
		if attempt == f.dialRetries || !sleepCtx(ctx, backoff) {
			break
		}
		backoff = minDur(backoff*2, maxBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("coinbase subscribe: %w", err)
	}

	out := make(chan domain.TradeEvent, 1024)
	go f.run(ctx, conn, ids, out)
	return out, nil
}

// connect 建立连接并发送订阅请求
func (f *MatchFeed) connect(ctx context.Context, products []string) (*websocket.Conn, error) {
	log.Info().Str("feed", f.Name()).Str("url", f.wsURL).Msg("ws connecting")
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := f.dialer.DialContext(cctx, f.wsURL, nil)
	cancel()
	if err != nil {
		return nil, err
	}
	if err := conn.WriteJSON(newSubscribeRequest(products)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send subscribe: %w", err)
	}
	log.Info().Str("feed", f.Name()).Strs("products", products).Msg("ws subscribed")
	return conn, nil
}

func (f *MatchFeed) run(ctx context.Context, conn *websocket.Conn, products []string, out chan<- domain.TradeEvent) {
	defer close(out)

	backoff := minBackoff
	for {
		if conn != nil {
			err := f.session(ctx, conn, out)
			_ = conn.Close()
			conn = nil
			if ctx.Err() != nil {
				return
			}
			log.Warn().Str("feed", f.Name()).Err(err).Msg("ws disconnected, reconnecting")
			f.rec.Reconnected()
		}

		if !sleepCtx(ctx, backoff) {
			return
		}
		c, err := f.connect(ctx, products)
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws reconnect failed")
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff
		conn = c
	}
}

// session 读取直到连接出错；keepalive goroutine 在返回前被回收
func (f *MatchFeed) session(ctx context.Context, conn *websocket.Conn, out chan<- domain.TradeEvent) error {
	readTimeout := 2 * f.keepalive
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	// ctx 取消时关闭连接，使阻塞中的 ReadMessage 返回
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.keepaliveLoop(conn, done)
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		ev, msgType, ok, err := parseMessage(b)
		if err != nil {
			f.rec.MessageIgnored("malformed")
			log.Warn().Str("feed", f.Name()).Err(err).Msg("message dropped")
			continue
		}
		if !ok {
			f.rec.MessageIgnored(msgType)
			f.logControl(b, msgType)
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *MatchFeed) logControl(b []byte, msgType string) {
	switch msgType {
	case msgError:
		log.Warn().Str("feed", f.Name()).RawJSON("msg", b).Msg("feed error message")
	case msgSubscriptions:
		log.Info().Str("feed", f.Name()).RawJSON("msg", b).Msg("subscriptions confirmed")
	default:
		log.Debug().Str("feed", f.Name()).Str("type", msgType).Msg("message ignored")
	}
}

// keepaliveLoop 连接存活期间定时 ping；写失败说明连接已关闭
func (f *MatchFeed) keepaliveLoop(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(f.keepalive)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(5*time.Second)); err != nil {
				log.Debug().Str("feed", f.Name()).Err(err).Msg("keepalive stopped")
				return
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
