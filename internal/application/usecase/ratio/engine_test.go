package ratio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ratiobot/internal/domain"
)

func ratioOf(t *testing.T, e *Engine, d domain.Direction) domain.RatioState {
	t.Helper()
	return e.Snapshot().Ratios[d]
}

func TestColdStartScenario(t *testing.T) {
	h := newHarness()

	// A taker sells -> 推断挂单方为 buy
	out := h.feed(trade(btcEUR, domain.SideSell, "100"))[0]
	q := h.engine.Snapshot().Quotes[btcEUR]
	require.True(t, q.Buy.Valid)
	require.True(t, q.Buy.Decimal.Equal(dec("100")))
	require.False(t, q.Sell.Valid)
	require.Empty(t, out.Updated)
	require.Equal(t, 0, h.store.count())

	// B taker buys -> B.sell = 50 -> B->A = 100/50
	out = h.feed(trade(ethEUR, domain.SideBuy, "50"))[0]
	require.Equal(t, domain.DirectionBToA, out.Updated)
	require.True(t, out.Armed)
	require.Nil(t, out.Signal)

	r := ratioOf(t, h.engine, domain.DirectionBToA)
	require.True(t, r.Latest.Decimal.Equal(dec("2")))
	require.True(t, r.Anchor.Decimal.Equal(dec("2")))
	require.False(t, ratioOf(t, h.engine, domain.DirectionAToB).Anchor.Valid)

	require.Equal(t, 1, h.store.count())
	require.True(t, h.store.last().Ratios[domain.DirectionBToA].Anchor.Decimal.Equal(dec("2")))
	require.Empty(t, h.notifier.texts)
}

func TestQuoteOnlyEventsNeverTouchRatios(t *testing.T) {
	h := newHarness()
	h.feed(
		trade(btcEUR, domain.SideSell, "100"), // A.buy
		trade(btcEUR, domain.SideBuy, "102"),  // A.sell
		trade(btcEUR, domain.SideSell, "101"), // A.buy
	)
	for _, d := range domain.Directions {
		r := ratioOf(t, h.engine, d)
		require.False(t, r.Latest.Valid, d)
		require.False(t, r.Anchor.Valid, d)
	}
	require.Equal(t, 0, h.store.count())

	// B.buy 到达后只重算 A->B
	out := h.feed(trade(ethEUR, domain.SideSell, "50"))[0]
	require.Equal(t, domain.DirectionAToB, out.Updated)
	require.True(t, ratioOf(t, h.engine, domain.DirectionAToB).Latest.Decimal.Equal(dec("2.04")))
	require.False(t, ratioOf(t, h.engine, domain.DirectionBToA).Latest.Valid)
}

func TestAnchorHeldUntilThresholdCrossing(t *testing.T) {
	h := newHarness()
	h.feed(
		trade(ethEUR, domain.SideSell, "50"), // B.buy = 50
		trade(btcEUR, domain.SideBuy, "100"), // A.sell = 100 -> A->B = 2.0
	)
	require.True(t, ratioOf(t, h.engine, domain.DirectionAToB).Anchor.Decimal.Equal(dec("2")))

	// 2.019 : +0.95%，不触发
	out := h.feed(trade(btcEUR, domain.SideBuy, "100.95"))[0]
	require.Nil(t, out.Signal)
	r := ratioOf(t, h.engine, domain.DirectionAToB)
	require.True(t, r.Latest.Decimal.Equal(dec("2.019")))
	require.True(t, r.Anchor.Decimal.Equal(dec("2")))

	// 比率下降对 A->B 无意义
	out = h.feed(trade(btcEUR, domain.SideBuy, "90"))[0]
	require.Nil(t, out.Signal)
	require.True(t, ratioOf(t, h.engine, domain.DirectionAToB).Anchor.Decimal.Equal(dec("2")))

	// 2.02 : 恰好 1%，触发
	out = h.feed(trade(btcEUR, domain.SideBuy, "101"))[0]
	require.NotNil(t, out.Signal)
	sig := out.Signal
	require.Equal(t, domain.DirectionAToB, sig.Direction)
	require.Equal(t, "BTC", sig.From)
	require.Equal(t, "ETH", sig.To)
	require.Equal(t, int64(1), sig.Multiplier)
	require.True(t, sig.NotionalEUR.Equal(dec("100")))
	require.True(t, sig.Anchor.Equal(dec("2")))
	require.True(t, ratioOf(t, h.engine, domain.DirectionAToB).Anchor.Decimal.Equal(dec("2.02")))

	require.Len(t, h.notifier.texts, 1)
	require.Contains(t, h.notifier.texts[0], "Sell BTC and Buy ETH")
	require.Len(t, h.journal.signals, 1)
	require.Equal(t, 1, h.rec.signals)
}

func TestCrossingResetsBothAnchors(t *testing.T) {
	h := newHarness()
	h.feed(
		trade(ethEUR, domain.SideSell, "50"),   // B.buy = 50
		trade(btcEUR, domain.SideBuy, "100"),   // A->B = 2.00 armed
		trade(ethEUR, domain.SideBuy, "50"),    // B.sell = 50
		trade(btcEUR, domain.SideSell, "99"),   // B->A = 1.98 armed
		trade(btcEUR, domain.SideSell, "99.5"), // B->A = 1.99, above anchor: ignored
	)
	ba := ratioOf(t, h.engine, domain.DirectionBToA)
	require.True(t, ba.Anchor.Decimal.Equal(dec("1.98")))
	require.True(t, ba.Latest.Decimal.Equal(dec("1.99")))

	out := h.feed(trade(btcEUR, domain.SideBuy, "102"))[0] // A->B = 2.04, +2%
	require.NotNil(t, out.Signal)
	require.Equal(t, int64(2), out.Signal.Multiplier)
	require.True(t, out.Signal.NotionalEUR.Equal(dec("200")))

	ab := ratioOf(t, h.engine, domain.DirectionAToB)
	ba = ratioOf(t, h.engine, domain.DirectionBToA)
	require.True(t, ab.Anchor.Decimal.Equal(dec("2.04")))
	require.True(t, ba.Anchor.Decimal.Equal(dec("1.99")))

	saved := h.store.last()
	require.True(t, saved.Ratios[domain.DirectionAToB].Anchor.Decimal.Equal(dec("2.04")))
	require.True(t, saved.Ratios[domain.DirectionBToA].Anchor.Decimal.Equal(dec("1.99")))
}

func TestBToACrossingOnlyBelowAnchor(t *testing.T) {
	h := newHarness()
	h.feed(
		trade(ethEUR, domain.SideBuy, "50"),  // B.sell = 50
		trade(btcEUR, domain.SideSell, "99"), // B->A = 1.98
	)
	out := h.feed(trade(btcEUR, domain.SideSell, "104"))[0] // 2.08: +5% 方向不对
	require.Nil(t, out.Signal)

	out = h.feed(trade(btcEUR, domain.SideSell, "98"))[0] // 1.96: -1.01%
	require.NotNil(t, out.Signal)
	require.Equal(t, domain.DirectionBToA, out.Signal.Direction)
	require.Equal(t, "ETH", out.Signal.From)
	require.Equal(t, "BTC", out.Signal.To)
	require.Contains(t, h.notifier.texts[0], "Sell ETH and Buy BTC")
	require.True(t, ratioOf(t, h.engine, domain.DirectionBToA).Anchor.Decimal.Equal(dec("1.96")))
	// A->B 尚无 latest，anchor 仍未设置
	require.False(t, ratioOf(t, h.engine, domain.DirectionAToB).Anchor.Valid)
}

func TestPersistBeforeNotify(t *testing.T) {
	h := newHarness()
	h.notifier.fail = true
	var anchorAtSend string
	h.notifier.onSend = func(string) {
		anchorAtSend = h.store.last().Ratios[domain.DirectionAToB].Anchor.Decimal.String()
	}
	h.feed(
		trade(ethEUR, domain.SideSell, "50"),
		trade(btcEUR, domain.SideBuy, "100"),
	)

	out, err := h.engine.OnTradeEvent(context.Background(), trade(btcEUR, domain.SideBuy, "103"))
	require.NoError(t, err)
	require.NotNil(t, out.Signal)
	require.Equal(t, "2.06", anchorAtSend)
	require.Equal(t, 1, h.rec.failed)

	loaded, err := h.store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, loaded.Ratios[domain.DirectionAToB].Anchor.Decimal.Equal(dec("2.06")))
}

func TestSaveFailureIsReportedButSignalStillSent(t *testing.T) {
	h := newHarness()
	h.feed(
		trade(ethEUR, domain.SideSell, "50"),
		trade(btcEUR, domain.SideBuy, "100"),
	)
	h.store.err = errors.New("disk full")

	out, err := h.engine.OnTradeEvent(context.Background(), trade(btcEUR, domain.SideBuy, "103"))
	require.Error(t, err)
	require.NotNil(t, out.Signal)
	require.Len(t, h.notifier.texts, 1)
}

func TestRestoreIsIdempotent(t *testing.T) {
	h := newHarness()
	h.feed(
		trade(ethEUR, domain.SideSell, "50"),
		trade(btcEUR, domain.SideBuy, "100"),
		trade(ethEUR, domain.SideBuy, "50"),
		trade(btcEUR, domain.SideSell, "99"),
	)
	loaded, err := h.store.Load(context.Background())
	require.NoError(t, err)

	h2 := newHarness()
	h2.engine.Restore(loaded)
	first := h2.engine.Snapshot()
	h2.engine.Restore(loaded)
	second := h2.engine.Snapshot()

	require.Equal(t, first, second)
	require.Equal(t, *loaded, first)
	require.Empty(t, h2.notifier.texts)
	require.Equal(t, 0, h2.store.count())
}

func TestRestoredAnchorsDriveNextDecision(t *testing.T) {
	h := newHarness()
	h.feed(
		trade(ethEUR, domain.SideSell, "50"),
		trade(btcEUR, domain.SideBuy, "100"),
	)
	loaded, _ := h.store.Load(context.Background())

	h2 := newHarness()
	h2.engine.Restore(loaded)
	out := h2.feed(trade(btcEUR, domain.SideBuy, "101"))[0]
	require.False(t, out.Armed)
	require.NotNil(t, out.Signal)
}

func TestUntrackedProductIgnored(t *testing.T) {
	h := newHarness()
	before := h.engine.Snapshot()
	out := h.feed(trade("LTC-EUR", domain.SideBuy, "80"))[0]
	require.False(t, out.Tracked)
	require.Equal(t, before, h.engine.Snapshot())
	require.Equal(t, 0, h.rec.trades)
}

func TestSequenceAnomaliesAreObservational(t *testing.T) {
	h := newHarness()
	ev := domain.TradeEvent{Product: btcEUR, Side: domain.SideBuy, Price: dec("100"), Sequence: 10, Time: t0}
	h.feed(ev)

	dup := ev
	dup.Price = dec("101")
	h.feed(dup)

	gap := ev
	gap.Sequence = 15
	gap.Price = dec("102")
	h.feed(gap)

	require.Equal(t, 1, h.rec.anomalies["repeated"])
	require.Equal(t, 1, h.rec.anomalies["gap"])
	q := h.engine.Snapshot().Quotes[btcEUR]
	require.True(t, q.Sell.Decimal.Equal(dec("102")))
	require.Equal(t, int64(15), q.Sequence)
}
