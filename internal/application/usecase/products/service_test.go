package products

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ratiobot/internal/domain"
)

type market struct {
	products []domain.ProductInfo
	err      error
}

func (m *market) GetPrice(context.Context, string) (decimal.Decimal, error) { return decimal.Zero, nil }
func (m *market) GetCandles(context.Context, string, time.Time, time.Time, time.Duration) ([]domain.Candle, error) {
	return nil, nil
}
func (m *market) GetProducts(context.Context) ([]domain.ProductInfo, error) { return m.products, m.err }

type catalog struct {
	stored  []domain.ProductInfo
	replace int
}

func (c *catalog) LoadProducts(context.Context) ([]domain.ProductInfo, error) { return c.stored, nil }
func (c *catalog) ReplaceProducts(_ context.Context, ps []domain.ProductInfo) error {
	c.replace++
	c.stored = ps
	return nil
}

type notifier struct{ texts []string }

func (n *notifier) SendText(_ context.Context, s string) error {
	n.texts = append(n.texts, s)
	return nil
}
func (n *notifier) SendImage(context.Context, string) error { return nil }

func product(id, status string) domain.ProductInfo {
	return domain.ProductInfo{ID: id, Status: status, Raw: `{"id":"` + id + `","status":"` + status + `"}`}
}

func TestCheckReportsNewAndChanged(t *testing.T) {
	m := &market{products: []domain.ProductInfo{product("BTC-EUR", "online"), product("ETH-EUR", "delisted"), product("SOL-EUR", "online")}}
	c := &catalog{stored: []domain.ProductInfo{product("BTC-EUR", "online"), product("ETH-EUR", "online")}}
	n := &notifier{}
	s, err := NewService(ServiceDeps{Market: m, Catalog: c, Notifier: n})
	require.NoError(t, err)

	res, err := s.Check(context.Background())
	require.NoError(t, err)
	require.True(t, res.Updated)
	require.Len(t, res.New, 1)
	require.Len(t, res.Changed, 1)
	require.Equal(t, []string{
		`New product: {"id":"SOL-EUR","status":"online"}`,
		`Product ETH-EUR changed: {"id":"ETH-EUR","status":"online"} -> {"id":"ETH-EUR","status":"delisted"}`,
		"Product List Check completed, Updated=true",
	}, n.texts)
	require.Equal(t, 1, c.replace)
	require.Len(t, c.stored, 3)
}

func TestCheckUnchangedDoesNotStore(t *testing.T) {
	list := []domain.ProductInfo{product("BTC-EUR", "online")}
	c := &catalog{stored: list}
	n := &notifier{}
	s, err := NewService(ServiceDeps{Market: &market{products: list}, Catalog: c, Notifier: n})
	require.NoError(t, err)

	res, err := s.Check(context.Background())
	require.NoError(t, err)
	require.False(t, res.Updated)
	require.Zero(t, c.replace)
	require.Equal(t, []string{"Product List Check completed, Updated=false"}, n.texts)
}

func TestFirstRunStoresBaseline(t *testing.T) {
	c := &catalog{}
	n := &notifier{}
	s, err := NewService(ServiceDeps{Market: &market{products: []domain.ProductInfo{product("BTC-EUR", "online")}}, Catalog: c, Notifier: n})
	require.NoError(t, err)

	res, err := s.Check(context.Background())
	require.NoError(t, err)
	require.True(t, res.Initial)
	require.Len(t, c.stored, 1)
	require.Equal(t, []string{"Product List initialized with 1 products"}, n.texts)
}

func TestCheckMarketFailure(t *testing.T) {
	s, err := NewService(ServiceDeps{Market: &market{err: errors.New("503")}, Catalog: &catalog{}, Notifier: &notifier{}})
	require.NoError(t, err)
	_, err = s.Check(context.Background())
	require.ErrorContains(t, err, "503")
}
