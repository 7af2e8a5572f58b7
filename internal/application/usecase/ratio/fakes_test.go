package ratio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ratiobot/internal/domain"
)

var (
	btcEUR = "BTC-EUR"
	ethEUR = "ETH-EUR"
	t0     = time.Date(2022, 4, 22, 10, 0, 0, 0, time.UTC)
)

type memStore struct {
	mu    sync.Mutex
	saved []domain.Snapshot
	err   error
}

func (m *memStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil, nil
	}
	s := m.saved[len(m.saved)-1].Clone()
	return &s, nil
}

func (m *memStore) Save(ctx context.Context, s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, s.Clone())
	return nil
}

func (m *memStore) last() domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[len(m.saved)-1]
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

type fakeNotifier struct {
	mu     sync.Mutex
	texts  []string
	images []string
	fail   bool
	// onSend 在发送时回调，用于检查发送时刻的持久化状态
	onSend func(text string)
}

func (n *fakeNotifier) SendText(ctx context.Context, text string) error {
	if n.onSend != nil {
		n.onSend(text)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	if n.fail {
		return errors.New("telegram unavailable")
	}
	return nil
}

func (n *fakeNotifier) SendImage(ctx context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.images = append(n.images, path)
	if n.fail {
		return errors.New("telegram unavailable")
	}
	return nil
}

type fakeJournal struct {
	mu        sync.Mutex
	signals   []domain.Signal
	snapshots []string
}

func (j *fakeJournal) InsertSignal(ctx context.Context, sig domain.Signal) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.signals = append(j.signals, sig)
	return nil
}

func (j *fakeJournal) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snapshots = append(j.snapshots, payload)
	return nil
}

type countingRecorder struct {
	trades    int
	anomalies map[string]int
	signals   int
	failed    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{anomalies: map[string]int{}}
}

func (r *countingRecorder) TradeObserved(string)                  { r.trades++ }
func (r *countingRecorder) MessageIgnored(string)                 {}
func (r *countingRecorder) SequenceAnomaly(_ string, kind string) { r.anomalies[kind]++ }
func (r *countingRecorder) RatioUpdated(string, float64, float64) {}
func (r *countingRecorder) SignalEmitted(string)                  { r.signals++ }
func (r *countingRecorder) NotificationFailed()                   { r.failed++ }
func (r *countingRecorder) Reconnected()                          {}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var seq int64

func trade(product string, side domain.Side, price string) domain.TradeEvent {
	seq++
	return domain.TradeEvent{
		Product:  product,
		Side:     side,
		Price:    dec(price),
		Sequence: seq,
		Time:     t0.Add(time.Duration(seq) * time.Second),
	}
}

type harness struct {
	engine   *Engine
	store    *memStore
	notifier *fakeNotifier
	journal  *fakeJournal
	rec      *countingRecorder
}

func newHarness() *harness {
	h := &harness{
		store:    &memStore{},
		notifier: &fakeNotifier{},
		journal:  &fakeJournal{},
		rec:      newCountingRecorder(),
	}
	h.engine = NewEngine(EngineDeps{
		Pair:      domain.NewRatioPair("btc", "eth", "eur"),
		Threshold: dec("0.01"),
		UnitEUR:   dec("100"),
		Store:     h.store,
		Journal:   h.journal,
		Notifier:  h.notifier,
		Recorder:  h.rec,
		NewID:     func() string { return "sig-1" },
	})
	return h
}

func (h *harness) feed(evs ...domain.TradeEvent) []Outcome {
	out := make([]Outcome, 0, len(evs))
	for _, ev := range evs {
		o, err := h.engine.OnTradeEvent(context.Background(), ev)
		if err != nil {
			panic(err)
		}
		out = append(out, o)
	}
	return out
}
