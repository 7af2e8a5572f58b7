package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ratiobot/internal/domain"
)

func newRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "ratiobot.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepoInsertSignal(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	sig := domain.Signal{
		ID:          "sig-1",
		Direction:   domain.DirectionAToB,
		From:        "BTC",
		To:          "ETH",
		Anchor:      decimal.RequireFromString("2"),
		Latest:      decimal.RequireFromString("2.04"),
		Divergence:  decimal.RequireFromString("0.02"),
		Multiplier:  2,
		NotionalEUR: decimal.RequireFromString("200"),
		Time:        time.Date(2022, 4, 22, 10, 0, 0, 0, time.UTC),
		Message:     "BTC-sell ratio 2.040000",
	}
	if err := repo.InsertSignal(ctx, sig); err != nil {
		t.Fatalf("InsertSignal failed: %v", err)
	}
	// 相同 id 重复写入被忽略
	if err := repo.InsertSignal(ctx, sig); err != nil {
		t.Fatalf("InsertSignal duplicate failed: %v", err)
	}

	got, err := repo.ListSignals(ctx, 10)
	if err != nil {
		t.Fatalf("ListSignals failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(got))
	}
	if got[0].Direction != "a_to_b" || got[0].Multiplier != 2 || got[0].Latest != "2.04" || got[0].NotionalEUR != "200" {
		t.Errorf("unexpected signal row: %+v", got[0])
	}
	if !got[0].Time.Equal(sig.Time) {
		t.Errorf("expected time %v, got %v", sig.Time, got[0].Time)
	}
}

func TestSQLiteRepoInsertSnapshot(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	ts, payload, err := repo.LatestSnapshot(ctx)
	if err != nil || ts != 0 || payload != "" {
		t.Fatalf("expected empty snapshot table, got %d %q %v", ts, payload, err)
	}

	if err := repo.InsertSnapshot(ctx, 1000, "first"); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}
	if err := repo.InsertSnapshot(ctx, 2000, "second"); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}

	ts, payload, err = repo.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if ts != 2000 || payload != "second" {
		t.Errorf("expected latest snapshot 2000/second, got %d/%s", ts, payload)
	}
}

func TestSQLiteRepoReplaceProducts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first := []domain.ProductInfo{
		{ID: "BTC-EUR", BaseCurrency: "BTC", QuoteCurrency: "EUR", Status: "online", Raw: `{"id":"BTC-EUR"}`},
		{ID: "ETH-EUR", BaseCurrency: "ETH", QuoteCurrency: "EUR", Status: "online", Raw: `{"id":"ETH-EUR"}`},
	}
	if err := repo.ReplaceProducts(ctx, first); err != nil {
		t.Fatalf("ReplaceProducts failed: %v", err)
	}

	second := []domain.ProductInfo{
		{ID: "SOL-EUR", BaseCurrency: "SOL", QuoteCurrency: "EUR", Status: "online", Raw: `{"id":"SOL-EUR"}`},
	}
	if err := repo.ReplaceProducts(ctx, second); err != nil {
		t.Fatalf("ReplaceProducts failed: %v", err)
	}

	got, err := repo.LoadProducts(ctx)
	if err != nil {
		t.Fatalf("LoadProducts failed: %v", err)
	}
	if len(got) != 1 || got[0] != second[0] {
		t.Errorf("expected catalogue to be replaced, got %+v", got)
	}
}
