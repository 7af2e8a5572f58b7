package port

// Recorder 运行指标
type Recorder interface {
	TradeObserved(product string)
	MessageIgnored(kind string)
	SequenceAnomaly(product, kind string)
	RatioUpdated(direction string, anchor, latest float64)
	SignalEmitted(direction string)
	NotificationFailed()
	Reconnected()
}

type nopRecorder struct{}

func NopRecorder() Recorder { return nopRecorder{} }

func (nopRecorder) TradeObserved(string)                  {}
func (nopRecorder) MessageIgnored(string)                 {}
func (nopRecorder) SequenceAnomaly(string, string)        {}
func (nopRecorder) RatioUpdated(string, float64, float64) {}
func (nopRecorder) SignalEmitted(string)                  {}
func (nopRecorder) NotificationFailed()                   {}
func (nopRecorder) Reconnected()                          {}
