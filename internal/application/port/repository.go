package port

import (
	"context"

	"ratiobot/internal/domain"
)

// StateStore 单个全局快照；Load 在没有快照时返回 (nil, nil)
type StateStore interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Save(ctx context.Context, s domain.Snapshot) error
}

// Journal 信号与报告的追加记录（sqlite / redis / postgres）
type Journal interface {
	InsertSignal(ctx context.Context, sig domain.Signal) error
	InsertSnapshot(ctx context.Context, ts int64, payload string) error
}

// ProductCatalog 上一次看到的产品目录
type ProductCatalog interface {
	LoadProducts(ctx context.Context) ([]domain.ProductInfo, error)
	ReplaceProducts(ctx context.Context, products []domain.ProductInfo) error
}
