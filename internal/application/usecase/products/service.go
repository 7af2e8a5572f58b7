package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
)

type ServiceDeps struct {
	Market   port.MarketData
	Catalog  port.ProductCatalog
	Notifier port.Notifier
}

type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Market == nil || deps.Catalog == nil || deps.Notifier == nil {
		return nil, errors.New("products: missing deps")
	}
	return &Service{deps: deps}, nil
}

// Result 一次目录比对的结果
type Result struct {
	New     []domain.ProductInfo
	Changed []domain.ProductInfo
	Updated bool
	Initial bool
}

// Diff 按 id 比对规范化后的原始 JSON
func Diff(prev, cur []domain.ProductInfo) (added, changed []domain.ProductInfo, old map[string]domain.ProductInfo) {
	old = make(map[string]domain.ProductInfo, len(prev))
	for _, p := range prev {
		old[p.ID] = p
	}
	for _, p := range cur {
		o, ok := old[p.ID]
		switch {
		case !ok:
			added = append(added, p)
		case o.Raw != p.Raw:
			changed = append(changed, p)
		}
	}
	return added, changed, old
}

// Check 拉取当前目录，通知新增与变化的产品；有更新时保存新目录。
// 目录为空时只保存基线，不逐条通知。
func (s *Service) Check(ctx context.Context) (Result, error) {
	cur, err := s.deps.Market.GetProducts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("get products: %w", err)
	}
	prev, err := s.deps.Catalog.LoadProducts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load catalogue: %w", err)
	}

	if len(prev) == 0 {
		if err := s.deps.Catalog.ReplaceProducts(ctx, cur); err != nil {
			return Result{}, fmt.Errorf("store catalogue: %w", err)
		}
		s.send(ctx, fmt.Sprintf("Product List initialized with %d products", len(cur)))
		return Result{Updated: true, Initial: true}, nil
	}

	added, changed, old := Diff(prev, cur)
	for _, p := range added {
		s.send(ctx, "New product: "+p.Raw)
	}
	for _, p := range changed {
		s.send(ctx, fmt.Sprintf("Product %s changed: %s -> %s", p.ID, old[p.ID].Raw, p.Raw))
	}

	res := Result{New: added, Changed: changed, Updated: len(added)+len(changed) > 0}
	if res.Updated {
		if err := s.deps.Catalog.ReplaceProducts(ctx, cur); err != nil {
			return res, fmt.Errorf("store catalogue: %w", err)
		}
	}
	log.Info().Int("new", len(added)).Int("changed", len(changed)).Int("total", len(cur)).Msg("product list checked")
	s.send(ctx, fmt.Sprintf("Product List Check completed, Updated=%t", res.Updated))
	return res, nil
}

func (s *Service) send(ctx context.Context, text string) {
	if err := s.deps.Notifier.SendText(ctx, text); err != nil {
		log.Error().Err(err).Msg("send product notification failed")
	}
}
