package ratio

import (
	"time"

	"github.com/gammazero/deque"
)

// window 按时间排序的滚动窗口，队首过期即弹出，均摊 O(1)
type window[T any] struct {
	keep time.Duration
	at   func(T) time.Time
	buf  deque.Deque[T]
}

func newWindow[T any](keep time.Duration, at func(T) time.Time) *window[T] {
	return &window[T]{keep: keep, at: at}
}

// Push 追加一项，并淘汰早于 (该项时间 - keep) 的旧项
func (w *window[T]) Push(v T) {
	w.buf.PushBack(v)
	if w.keep <= 0 {
		return
	}
	cutoff := w.at(v).Add(-w.keep)
	for w.buf.Len() > 0 && w.at(w.buf.Front()).Before(cutoff) {
		w.buf.PopFront()
	}
}

func (w *window[T]) Len() int { return w.buf.Len() }

// Copy 交给报告任务的副本
func (w *window[T]) Copy() []T {
	out := make([]T, w.buf.Len())
	for i := range out {
		out[i] = w.buf.At(i)
	}
	return out
}
