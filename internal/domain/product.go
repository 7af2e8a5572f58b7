package domain

import (
	"fmt"
	"strings"
)

// Side 成交方向（taker 视角）
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite 返回对手方向：taker buy 意味着挂单方是 sell
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	default:
		return "", false
	}
}

// Product 交易对，例如 BTC-EUR
type Product struct {
	Base  string
	Quote string
}

func (p Product) ID() string { return p.Base + "-" + p.Quote }

func ParseProduct(id string) (Product, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(id)), "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Product{}, fmt.Errorf("invalid product id %q", id)
	}
	return Product{Base: parts[0], Quote: parts[1]}, nil
}

// RatioPair 两个共享计价货币的资产：A 为分子，B 为分母
type RatioPair struct {
	A     string
	B     string
	Quote string
}

func NewRatioPair(a, b, quote string) RatioPair {
	norm := func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
	return RatioPair{A: norm(a), B: norm(b), Quote: norm(quote)}
}

func (p RatioPair) ProductA() Product { return Product{Base: p.A, Quote: p.Quote} }
func (p RatioPair) ProductB() Product { return Product{Base: p.B, Quote: p.Quote} }

// Products 订阅用的 product id 列表
func (p RatioPair) Products() []string {
	return []string{p.ProductA().ID(), p.ProductB().ID()}
}

// ProductInfo 交易所产品目录中的一项，Raw 为规范化后的原始 JSON
type ProductInfo struct {
	ID            string
	BaseCurrency  string
	QuoteCurrency string
	Status        string
	Raw           string
}
