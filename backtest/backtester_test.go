package backtest

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/portfolio"
	"github.com/rustyeddy/quantsim/strategy"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// scripted emits a fixed signal batch on its first GenerateSignals call and
// stays silent afterwards.
type scripted struct {
	id      string
	signals []strategy.Signal
	fired   bool
}

func (s *scripted) ID() string { return s.id }

func (s *scripted) GenerateSignals(map[string]market.Quote, portfolio.Snapshot, market.History) []strategy.Signal {
	if s.fired {
		return nil
	}
	s.fired = true
	return s.signals
}

func (s *scripted) ValidateSignal(sig strategy.Signal) bool { return strategy.ValidSignal(sig) }

func (s *scripted) UpdateState(map[string]market.Quote, portfolio.Snapshot) {}

func flatHistory(symbol string, prices ...float64) market.History {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make([]market.Quote, len(prices))
	for i, p := range prices {
		series[i] = market.Quote{
			Symbol:  symbol,
			Time:    start.AddDate(0, 0, i),
			Bid:     p,
			Ask:     p,
			BidSize: 100,
			AskSize: 100,
		}
	}
	return market.History{symbol: series}
}

func repeat(price float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func runRange() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
}

func TestRunNoopFlatMarket(t *testing.T) {
	hist := flatHistory("AAPL", repeat(150, 10)...)
	start, end := runRange()

	noop, err := strategy.NewNoop(strategy.Config{ID: "noop", Type: "noop", Symbols: []string{"AAPL"}}, quietLogger())
	require.NoError(t, err)

	results, err := New(DefaultCostParams(), 100_000, quietLogger()).Run(noop, hist, start, end)
	require.NoError(t, err)

	assert.Equal(t, "noop", results.StrategyID)
	assert.InDelta(t, 100_000, results.FinalValue, 1e-9)
	assert.Zero(t, results.TotalReturn)
	assert.Zero(t, results.MaxDrawdown)
	assert.Zero(t, results.TotalTrades)
	assert.Len(t, results.History, 10)
	assert.Empty(t, results.Trades)
}

func TestRunSingleBuyMarksToMarket(t *testing.T) {
	// 150 on the first day, 160 thereafter. Zero costs and bid==ask make the
	// fill price exactly the quoted level.
	prices := append([]float64{150}, repeat(160, 9)...)
	hist := flatHistory("AAPL", prices...)
	start, end := runRange()

	strat := &scripted{id: "buyer", signals: []strategy.Signal{{
		Symbol:   "AAPL",
		Type:     strategy.Buy,
		Strength: 1,
		Quantity: 100,
		Meta:     map[string]string{"strategy_id": "buyer"},
	}}}

	results, err := New(CostParams{}, 100_000, quietLogger()).Run(strat, hist, start, end)
	require.NoError(t, err)

	require.Len(t, results.Trades, 1)
	trade := results.Trades[0]
	assert.Equal(t, portfolio.Buy, trade.Side)
	assert.Equal(t, int64(100), trade.Quantity)
	assert.InDelta(t, 150, trade.Price, 1e-9)
	assert.Zero(t, trade.TotalCost())
	assert.Equal(t, "buyer", trade.StrategyID)

	// Day one snapshot carries the fresh position at cost.
	first := results.History[0]
	assert.InDelta(t, 85_000, first.BuyingPower, 1e-9)
	assert.InDelta(t, 100_000, first.TotalValue, 1e-9)

	// From day two the position marks at 160.
	last := results.History[len(results.History)-1]
	assert.InDelta(t, 85_000, last.BuyingPower, 1e-9)
	assert.InDelta(t, 101_000, last.TotalValue, 1e-9)

	pos, ok := last.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(100), pos.Quantity)
	assert.InDelta(t, 16_000, pos.MarketValue, 1e-9)
	assert.InDelta(t, 1_000, pos.UnrealizedPL, 1e-9)

	assert.InDelta(t, 101_000, results.FinalValue, 1e-9)
	assert.InDelta(t, 0.01, results.TotalReturn, 1e-9)
}

func TestSnapshotInvariantHoldsThroughRun(t *testing.T) {
	prices := []float64{150, 152, 149, 155, 158, 154, 160, 161, 159, 163}
	hist := flatHistory("AAPL", prices...)
	start, end := runRange()

	strat := &scripted{id: "buyer", signals: []strategy.Signal{{
		Symbol: "AAPL", Type: strategy.Buy, Strength: 1, Quantity: 200,
	}}}

	results, err := New(DefaultCostParams(), 100_000, quietLogger()).Run(strat, hist, start, end)
	require.NoError(t, err)
	require.Len(t, results.History, 10)

	for _, snap := range results.History {
		sum := snap.BuyingPower
		for _, pos := range snap.Positions {
			sum += pos.MarketValue
		}
		assert.InDelta(t, snap.TotalValue, sum, 1e-6, "snapshot at %s", snap.Time)
	}
}

func TestSignalSizedFromCapital(t *testing.T) {
	hist := flatHistory("AAPL", repeat(150, 10)...)
	start, end := runRange()

	// Quantity zero sizes from 10% of cash scaled by strength:
	// 100000 * 0.1 * 1.0 / 150 = 66 shares.
	strat := &scripted{id: "sizer", signals: []strategy.Signal{{
		Symbol: "AAPL", Type: strategy.Buy, Strength: 1,
	}}}

	results, err := New(CostParams{}, 100_000, quietLogger()).Run(strat, hist, start, end)
	require.NoError(t, err)

	require.Len(t, results.Trades, 1)
	assert.Equal(t, int64(66), results.Trades[0].Quantity)
}

func TestOversizedBuyShrinksToAffordable(t *testing.T) {
	hist := flatHistory("AAPL", repeat(150, 10)...)
	start, end := runRange()

	strat := &scripted{id: "whale", signals: []strategy.Signal{{
		Symbol: "AAPL", Type: strategy.Buy, Strength: 1, Quantity: 1_000,
	}}}

	results, err := New(CostParams{}, 10_000, quietLogger()).Run(strat, hist, start, end)
	require.NoError(t, err)

	require.Len(t, results.Trades, 1)
	assert.Equal(t, int64(66), results.Trades[0].Quantity)
	assert.GreaterOrEqual(t, results.History[0].BuyingPower, 0.0)
}

func TestUnaffordableBuySkipped(t *testing.T) {
	hist := flatHistory("AAPL", repeat(150, 10)...)
	start, end := runRange()

	strat := &scripted{id: "broke", signals: []strategy.Signal{{
		Symbol: "AAPL", Type: strategy.Buy, Strength: 1, Quantity: 1,
	}}}

	results, err := New(CostParams{}, 100, quietLogger()).Run(strat, hist, start, end)
	require.NoError(t, err)

	assert.Empty(t, results.Trades)
	assert.InDelta(t, 100, results.FinalValue, 1e-9)
}

func TestSignalWithoutQuoteIgnored(t *testing.T) {
	hist := flatHistory("AAPL", repeat(150, 10)...)
	start, end := runRange()

	strat := &scripted{id: "misfire", signals: []strategy.Signal{{
		Symbol: "MSFT", Type: strategy.Buy, Strength: 1, Quantity: 10,
	}}}

	results, err := New(CostParams{}, 100_000, quietLogger()).Run(strat, hist, start, end)
	require.NoError(t, err)
	assert.Empty(t, results.Trades)
}

func TestHoldAndInvalidSignalsSkipped(t *testing.T) {
	hist := flatHistory("AAPL", repeat(150, 10)...)
	start, end := runRange()

	strat := &scripted{id: "mixed", signals: []strategy.Signal{
		{Symbol: "AAPL", Type: strategy.Hold, Strength: 0.9},
		{Symbol: "AAPL", Type: strategy.Buy, Strength: 2.0, Quantity: 10}, // strength out of range
	}}

	results, err := New(CostParams{}, 100_000, quietLogger()).Run(strat, hist, start, end)
	require.NoError(t, err)
	assert.Empty(t, results.Trades)
}

func TestRunValidationErrors(t *testing.T) {
	hist := flatHistory("AAPL", repeat(150, 10)...)
	start, end := runRange()
	noop, err := strategy.NewNoop(strategy.Config{ID: "noop", Type: "noop"}, quietLogger())
	require.NoError(t, err)

	_, err = New(CostParams{}, 100_000, quietLogger()).Run(noop, market.History{}, start, end)
	assert.ErrorIs(t, err, ErrNoHistoricalData)

	_, err = New(CostParams{}, 100_000, quietLogger()).Run(noop, hist, end, start)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(CostParams{}, 0, quietLogger()).Run(noop, hist, start, end)
	assert.ErrorIs(t, err, ErrInvalidCapital)

	_, err = New(CostParams{}, 100_000, quietLogger()).Run(noop, market.History{"AAPL": nil}, start, end)
	assert.ErrorIs(t, err, ErrEmptySeries)

	before := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err = New(CostParams{}, 100_000, quietLogger()).Run(noop, hist, before, before.AddDate(0, 0, 9))
	assert.ErrorIs(t, err, ErrNoTradingDates)
}

func TestRunsAreDeterministic(t *testing.T) {
	prices := []float64{150, 152, 149, 155, 158, 154, 160, 161, 159, 163}
	hist := market.History{
		"AAPL": flatHistory("AAPL", prices...)["AAPL"],
		"MSFT": flatHistory("MSFT", repeat(300, 10)...)["MSFT"],
	}
	start, end := runRange()

	run := func() *Results {
		strat := &scripted{id: "det", signals: []strategy.Signal{
			{Symbol: "AAPL", Type: strategy.Buy, Strength: 0.8},
			{Symbol: "MSFT", Type: strategy.Buy, Strength: 0.5},
		}}
		results, err := New(DefaultCostParams(), 100_000, quietLogger()).Run(strat, hist, start, end)
		require.NoError(t, err)
		return results
	}

	a, b := run(), run()

	assert.Equal(t, a.FinalValue, b.FinalValue)
	assert.Equal(t, a.TotalReturn, b.TotalReturn)
	assert.Equal(t, a.TotalTrades, b.TotalTrades)
	require.Equal(t, len(a.Trades), len(b.Trades))
	for i := range a.Trades {
		// Trade IDs are freshly minted per run; everything else must match.
		assert.Equal(t, a.Trades[i].Symbol, b.Trades[i].Symbol)
		assert.Equal(t, a.Trades[i].Side, b.Trades[i].Side)
		assert.Equal(t, a.Trades[i].Quantity, b.Trades[i].Quantity)
		assert.Equal(t, a.Trades[i].Price, b.Trades[i].Price)
	}
	for i := range a.History {
		assert.Equal(t, a.History[i].TotalValue, b.History[i].TotalValue)
	}
}
