package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
	"ratiobot/internal/infrastructure/storage"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);

CREATE TABLE IF NOT EXISTS signals (
  id TEXT PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  direction TEXT NOT NULL,
  anchor NUMERIC NOT NULL,
  latest NUMERIC NOT NULL,
  multiplier BIGINT NOT NULL,
  notional NUMERIC NOT NULL,
  payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts_ms);
`)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload) VALUES($1, $2)`, ts, payload)
	return err
}

func (r *Repo) InsertSignal(ctx context.Context, sig domain.Signal) error {
	rec := storage.NewSignalRecord(sig)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signals(id, ts_ms, direction, anchor, latest, multiplier, notional, payload)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, sig.Time.UnixMilli(), rec.Direction, rec.Anchor, rec.Latest, rec.Multiplier, rec.NotionalEUR, rec.JSON())
	return err
}

var _ port.Journal = (*Repo)(nil)
