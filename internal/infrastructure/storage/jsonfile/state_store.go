package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
)

// StateStore 单个 JSON 文件保存完整快照，写入经临时文件 + rename 保证原子性
type StateStore struct {
	path string
	pair domain.RatioPair
	mu   sync.Mutex
}

var _ port.StateStore = (*StateStore)(nil)

func NewStateStore(path string, pair domain.RatioPair) (*StateStore, error) {
	if path == "" {
		return nil, errors.New("state file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	return &StateStore{path: path, pair: pair}, nil
}

func (s *StateStore) Path() string { return s.path }

type storedQuote struct {
	Sell      decimal.NullDecimal `json:"sell"`
	Buy       decimal.NullDecimal `json:"buy"`
	Sequence  int64               `json:"sequence"`
	UpdatedAt *time.Time          `json:"updated_at,omitempty"`
}

type storedRatio struct {
	Anchor decimal.NullDecimal `json:"anchor"`
	Latest decimal.NullDecimal `json:"latest"`
}

// fileState 文件格式：报价按 product id，比率按方向标签（"BTC-sell"）
type fileState struct {
	Quotes    map[string]storedQuote `json:"quotes"`
	Ratios    map[string]storedRatio `json:"ratios"`
	Timestamp *time.Time             `json:"timestamp"`
}

// Load 文件不存在或为空时返回 (nil, nil)，引擎冷启动
func (s *StateStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var fs fileState
	if err := json.Unmarshal(payload, &fs); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", s.path, err)
	}

	snap := domain.NewSnapshot()
	for id, q := range fs.Quotes {
		qs := domain.QuoteState{Sell: q.Sell, Buy: q.Buy, Sequence: q.Sequence}
		if q.UpdatedAt != nil {
			qs.UpdatedAt = *q.UpdatedAt
		}
		snap.Quotes[id] = qs
	}
	for _, d := range domain.Directions {
		if r, ok := fs.Ratios[d.Label(s.pair)]; ok {
			snap.Ratios[d] = domain.RatioState{Anchor: r.Anchor, Latest: r.Latest}
		}
	}
	if fs.Timestamp != nil {
		snap.UpdatedAt = *fs.Timestamp
	}
	return &snap, nil
}

func (s *StateStore) Save(ctx context.Context, snap domain.Snapshot) error {
	fs := fileState{
		Quotes: make(map[string]storedQuote, len(snap.Quotes)),
		Ratios: make(map[string]storedRatio, len(snap.Ratios)),
	}
	for id, q := range snap.Quotes {
		sq := storedQuote{Sell: q.Sell, Buy: q.Buy, Sequence: q.Sequence}
		if !q.UpdatedAt.IsZero() {
			ts := q.UpdatedAt
			sq.UpdatedAt = &ts
		}
		fs.Quotes[id] = sq
	}
	for d, r := range snap.Ratios {
		fs.Ratios[d.Label(s.pair)] = storedRatio{Anchor: r.Anchor, Latest: r.Latest}
	}
	if !snap.UpdatedAt.IsZero() {
		ts := snap.UpdatedAt
		fs.Timestamp = &ts
	}

	payload, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create state temp file: %w", err)
	}
	tmp := f.Name()
	if err := writeSynced(f, payload); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// writeSynced 写入并落盘后关闭
func writeSynced(f *os.File, payload []byte) error {
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
