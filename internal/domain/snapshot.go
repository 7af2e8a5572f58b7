package domain

import "time"

// Snapshot 持久化的完整状态：所有报价和两个方向的比率
type Snapshot struct {
	Quotes    map[string]QuoteState
	Ratios    map[Direction]RatioState
	UpdatedAt time.Time
}

func NewSnapshot() Snapshot {
	return Snapshot{
		Quotes: make(map[string]QuoteState),
		Ratios: make(map[Direction]RatioState),
	}
}

func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Quotes:    make(map[string]QuoteState, len(s.Quotes)),
		Ratios:    make(map[Direction]RatioState, len(s.Ratios)),
		UpdatedAt: s.UpdatedAt,
	}
	for k, v := range s.Quotes {
		out.Quotes[k] = v
	}
	for k, v := range s.Ratios {
		out.Ratios[k] = v
	}
	return out
}
