package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/strategy"
)

func walkForwardFixture(t *testing.T, days int) (strategy.SignalSource, market.History, time.Time) {
	t.Helper()
	noop, err := strategy.NewNoop(strategy.Config{ID: "noop", Type: "noop", Symbols: []string{"AAPL"}}, quietLogger())
	require.NoError(t, err)
	return noop, flatHistory("AAPL", repeat(150, days)...), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestWalkForwardValidatesParams(t *testing.T) {
	noop, hist, start := walkForwardFixture(t, 91)
	bt := New(DefaultCostParams(), 100_000, quietLogger())

	for _, params := range []WalkForwardParams{
		{TrainingMonths: 0, TestingMonths: 1, StepMonths: 1},
		{TrainingMonths: 1, TestingMonths: 0, StepMonths: 1},
		{TrainingMonths: 1, TestingMonths: 1, StepMonths: -1},
	} {
		_, err := bt.RunWalkForward(noop, hist, start, start.AddDate(0, 0, 90), params)
		assert.Error(t, err)
	}
}

func TestWalkForwardNinetyDaysYieldsTwoWindows(t *testing.T) {
	noop, hist, start := walkForwardFixture(t, 91)
	end := start.AddDate(0, 0, 90)
	params := WalkForwardParams{TrainingMonths: 1, TestingMonths: 1, StepMonths: 1}

	result, err := New(DefaultCostParams(), 100_000, quietLogger()).RunWalkForward(noop, hist, start, end, params)
	require.NoError(t, err)

	require.Len(t, result.Windows, 2)

	first := result.Windows[0]
	assert.Equal(t, start, first.TrainingStart)
	assert.Equal(t, start.AddDate(0, 0, 30), first.TrainingEnd)
	assert.Equal(t, start.AddDate(0, 0, 30), first.TestingStart)
	assert.Equal(t, start.AddDate(0, 0, 60), first.TestingEnd)

	second := result.Windows[1]
	assert.Equal(t, start.AddDate(0, 0, 30), second.TrainingStart)
	assert.Equal(t, start.AddDate(0, 0, 60), second.TestingStart)
	assert.Equal(t, start.AddDate(0, 0, 90), second.TestingEnd)

	// Flat market, no trades: every window is dead even.
	for _, w := range result.Windows {
		assert.Zero(t, w.TotalReturn)
		assert.Zero(t, w.TotalTrades)
	}

	assert.Equal(t, 2, result.Stats.WindowsTested)
	assert.Zero(t, result.Stats.MeanReturn)
	assert.Zero(t, result.Stats.PositiveWindows)
	assert.Zero(t, result.Stats.ConsistencyRatio)
}

func TestWalkForwardTooShortRangeYieldsNoWindows(t *testing.T) {
	noop, hist, start := walkForwardFixture(t, 30)
	params := WalkForwardParams{TrainingMonths: 1, TestingMonths: 1, StepMonths: 1}

	result, err := New(DefaultCostParams(), 100_000, quietLogger()).RunWalkForward(noop, hist, start, start.AddDate(0, 0, 30), params)
	require.NoError(t, err)

	assert.Empty(t, result.Windows)
	assert.Equal(t, WalkForwardStats{}, result.Stats)
}

func TestWalkForwardPropagatesWindowErrors(t *testing.T) {
	// History covers only the first 40 days; the second testing window has
	// no trading dates at all.
	noop, hist, start := walkForwardFixture(t, 40)
	params := WalkForwardParams{TrainingMonths: 1, TestingMonths: 1, StepMonths: 1}

	_, err := New(DefaultCostParams(), 100_000, quietLogger()).RunWalkForward(noop, hist, start, start.AddDate(0, 0, 90), params)
	assert.ErrorIs(t, err, ErrNoTradingDates)
}

func TestAggregateWindowsStats(t *testing.T) {
	windows := []WindowResult{
		{TotalReturn: 0.10, SharpeRatio: 1.0, MaxDrawdown: 0.05},
		{TotalReturn: -0.02, SharpeRatio: -0.2, MaxDrawdown: 0.12},
		{TotalReturn: 0.04, SharpeRatio: 0.4, MaxDrawdown: 0.03},
	}

	stats := aggregateWindows(windows)

	assert.Equal(t, 3, stats.WindowsTested)
	assert.InDelta(t, 0.04, stats.MeanReturn, 1e-9)
	assert.InDelta(t, 0.12, stats.WorstDrawdown, 1e-9)
	assert.Equal(t, 2, stats.PositiveWindows)
	assert.InDelta(t, 2.0/3.0, stats.ConsistencyRatio, 1e-9)
	assert.Greater(t, stats.ReturnStdDev, 0.0)
}
