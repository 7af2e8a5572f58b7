package coinbase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ratiobot/internal/domain"
)

var ErrMalformedMessage = errors.New("coinbase: malformed message")

const (
	msgMatch         = "match"
	msgLastMatch     = "last_match"
	msgError         = "error"
	msgSubscriptions = "subscriptions"
)

type subscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

func newSubscribeRequest(products []string) subscribeRequest {
	return subscribeRequest{
		Type:       "subscribe",
		ProductIDs: products,
		Channels:   []string{"matches"},
	}
}

// feedMessage matches 频道消息；其它类型只用到 Type / Message / Reason
type feedMessage struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Sequence  *int64 `json:"sequence"`
	Time      string `json:"time"`
	Message   string `json:"message"`
	Reason    string `json:"reason"`
}

// parseMessage 解码一帧。非成交消息返回 ok=false 及其类型；字段缺失返回 ErrMalformedMessage。
func parseMessage(b []byte) (ev domain.TradeEvent, msgType string, ok bool, err error) {
	var m feedMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return ev, "", false, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.Type == "" {
		return ev, "", false, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	if m.Type != msgMatch && m.Type != msgLastMatch {
		return ev, m.Type, false, nil
	}

	side, valid := domain.ParseSide(m.Side)
	if !valid {
		return ev, m.Type, false, fmt.Errorf("%w: side %q", ErrMalformedMessage, m.Side)
	}
	if m.Sequence == nil {
		return ev, m.Type, false, fmt.Errorf("%w: missing sequence", ErrMalformedMessage)
	}
	if m.ProductID == "" || m.Price == "" {
		return ev, m.Type, false, fmt.Errorf("%w: missing product_id or price", ErrMalformedMessage)
	}
	price, perr := decimal.NewFromString(m.Price)
	if perr != nil || !price.IsPositive() {
		return ev, m.Type, false, fmt.Errorf("%w: price %q", ErrMalformedMessage, m.Price)
	}
	ts, terr := time.Parse(time.RFC3339Nano, m.Time)
	if terr != nil {
		return ev, m.Type, false, fmt.Errorf("%w: time %q", ErrMalformedMessage, m.Time)
	}

	return domain.TradeEvent{
		Product:  strings.ToUpper(m.ProductID),
		Side:     side,
		Price:    price,
		Sequence: *m.Sequence,
		Time:     ts,
	}, m.Type, true, nil
}
