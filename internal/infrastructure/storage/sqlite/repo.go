package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
	"ratiobot/internal/infrastructure/storage"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);

CREATE TABLE IF NOT EXISTS signals (
  id TEXT PRIMARY KEY,
  ts_ms INTEGER NOT NULL,
  direction TEXT NOT NULL,
  from_asset TEXT NOT NULL,
  to_asset TEXT NOT NULL,
  anchor TEXT NOT NULL,
  latest TEXT NOT NULL,
  divergence REAL NOT NULL,
  multiplier INTEGER NOT NULL,
  notional TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts_ms);
CREATE INDEX IF NOT EXISTS idx_signals_direction ON signals(direction);

CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  base_currency TEXT NOT NULL,
  quote_currency TEXT NOT NULL,
  status TEXT NOT NULL,
  raw TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload, created_at) VALUES(?, ?, ?)`, ts, payload, time.Now().UnixMilli())
	return err
}

// LatestSnapshot 最近一条报告文本，没有记录时返回空串
func (r *Repo) LatestSnapshot(ctx context.Context) (ts int64, payload string, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT ts_ms, payload FROM snapshots ORDER BY ts_ms DESC, id DESC LIMIT 1`).
		Scan(&ts, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil
	}
	return
}

func (r *Repo) InsertSignal(ctx context.Context, sig domain.Signal) error {
	rec := storage.NewSignalRecord(sig)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signals(id, ts_ms, direction, from_asset, to_asset, anchor, latest, divergence, multiplier, notional, payload, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, sig.Time.UnixMilli(), rec.Direction, rec.From, rec.To, rec.Anchor, rec.Latest,
		rec.Divergence, rec.Multiplier, rec.NotionalEUR, rec.JSON(), time.Now().UnixMilli())
	return err
}

// ListSignals 按时间倒序返回最近 limit 条信号
func (r *Repo) ListSignals(ctx context.Context, limit int) ([]storage.SignalRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ts_ms, direction, from_asset, to_asset, anchor, latest, divergence, multiplier, notional
		FROM signals ORDER BY ts_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.SignalRecord
	for rows.Next() {
		var (
			rec storage.SignalRecord
			ts  int64
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Direction, &rec.From, &rec.To, &rec.Anchor, &rec.Latest,
			&rec.Divergence, &rec.Multiplier, &rec.NotionalEUR); err != nil {
			return nil, err
		}
		rec.Time = time.UnixMilli(ts).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) LoadProducts(ctx context.Context) ([]domain.ProductInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, base_currency, quote_currency, status, raw FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ProductInfo
	for rows.Next() {
		var p domain.ProductInfo
		if err := rows.Scan(&p.ID, &p.BaseCurrency, &p.QuoteCurrency, &p.Status, &p.Raw); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceProducts 用新目录整体替换旧目录
func (r *Repo) ReplaceProducts(ctx context.Context, products []domain.ProductInfo) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products(id, base_currency, quote_currency, status, raw, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, p.ID, p.BaseCurrency, p.QuoteCurrency, p.Status, p.Raw, now); err != nil {
			return fmt.Errorf("insert product %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

var (
	_ port.Journal        = (*Repo)(nil)
	_ port.ProductCatalog = (*Repo)(nil)
)
