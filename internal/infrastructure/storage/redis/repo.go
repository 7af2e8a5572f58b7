package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
	"ratiobot/internal/infrastructure/storage"
)

type Repo struct {
	rdb          *redis.Client
	prefix       string
	ttl          time.Duration
	keyLatest    string // prefix + ":latest"
	signalStream string
	signalChan   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, signalStream, signalChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "ratiobot"
	}
	if strings.TrimSpace(signalStream) == "" {
		signalStream = prefix + ":signals"
	}
	if strings.TrimSpace(signalChan) == "" {
		signalChan = prefix + ":signals:pub"
	}
	return &Repo{
		rdb:          rdb,
		prefix:       prefix,
		ttl:          ttl,
		keyLatest:    prefix + ":latest",
		signalStream: signalStream,
		signalChan:   signalChan,
	}
}

// InsertSnapshot 最新报告写入 hash，供外部看板读取
func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, "report", payload, "report_ts", ts)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertSignal(ctx context.Context, sig domain.Signal) error {
	rec := storage.NewSignalRecord(sig)
	payload := rec.JSON()

	// 1) Hash: field = 方向 -> 最近一次信号
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, "signal:"+rec.Direction, payload)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	// 2) Stream: XADD <stream> * ts direction multiplier payload
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.signalStream,
		Values: map[string]any{
			"ts_ms":      sig.Time.UnixMilli(),
			"direction":  rec.Direction,
			"multiplier": rec.Multiplier,
			"payload":    payload,
		},
	}).Result()
	if err != nil {
		return err
	}

	// 3) PubSub: PUBLISH <channel> json
	return r.rdb.Publish(ctx, r.signalChan, payload).Err()
}

var _ port.Journal = (*Repo)(nil)
