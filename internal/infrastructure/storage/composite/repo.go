package composite

import (
	"context"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
)

// Repo 把写入扇出到所有已配置的 journal，返回第一个错误
type Repo struct {
	repos []port.Journal
}

func New(repos ...port.Journal) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Journal, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.InsertSnapshot(ctx, ts, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) InsertSignal(ctx context.Context, sig domain.Signal) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.InsertSignal(ctx, sig); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.Journal = (*Repo)(nil)
