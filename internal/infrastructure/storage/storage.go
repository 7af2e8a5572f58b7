package storage

import (
	"encoding/json"
	"time"

	"ratiobot/internal/domain"
)

// SignalRecord 信号落库/推送时的统一 JSON 结构
type SignalRecord struct {
	ID          string    `json:"id"`
	Direction   string    `json:"direction"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Anchor      string    `json:"anchor"`
	Latest      string    `json:"latest"`
	Divergence  float64   `json:"divergence"`
	Multiplier  int64     `json:"multiplier"`
	NotionalEUR string    `json:"notional_eur"`
	Message     string    `json:"message"`
	Time        time.Time `json:"time"`
}

func NewSignalRecord(sig domain.Signal) SignalRecord {
	return SignalRecord{
		ID:          sig.ID,
		Direction:   string(sig.Direction),
		From:        sig.From,
		To:          sig.To,
		Anchor:      sig.Anchor.String(),
		Latest:      sig.Latest.String(),
		Divergence:  sig.Divergence.InexactFloat64(),
		Multiplier:  sig.Multiplier,
		NotionalEUR: sig.NotionalEUR.String(),
		Message:     sig.Message,
		Time:        sig.Time.UTC(),
	}
}

func (r SignalRecord) JSON() string {
	b, _ := json.Marshal(r)
	return string(b)
}
