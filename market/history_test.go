package market

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quoteAt(sym string, t time.Time, bid, ask float64) Quote {
	return Quote{Symbol: sym, Time: t, Bid: bid, Ask: ask}
}

func TestQuoteDerived(t *testing.T) {
	q := Quote{Symbol: "AAPL", Bid: 150.00, Ask: 150.10}

	assert.InDelta(t, 150.05, q.Mid(), 1e-9)
	assert.InDelta(t, 0.10, q.Spread(), 1e-9)
}

func TestDayNormalizesToMidnightUTC(t *testing.T) {
	ts := time.Date(2024, 3, 15, 16, 30, 45, 123, time.UTC)
	assert.Equal(t, day(2024, 3, 15), Day(ts))
}

func TestTradingDatesSortedAndDeduped(t *testing.T) {
	hist := History{
		"AAPL": {
			quoteAt("AAPL", day(2024, 1, 3).Add(14*time.Hour), 150, 150.1),
			quoteAt("AAPL", day(2024, 1, 2).Add(15*time.Hour), 149, 149.1),
		},
		"MSFT": {
			quoteAt("MSFT", day(2024, 1, 2).Add(16*time.Hour), 390, 390.2),
			quoteAt("MSFT", day(2024, 1, 4), 391, 391.2),
		},
	}

	dates := hist.TradingDates(day(2024, 1, 1), day(2024, 1, 31))
	require.Len(t, dates, 3)
	assert.Equal(t, day(2024, 1, 2), dates[0])
	assert.Equal(t, day(2024, 1, 3), dates[1])
	assert.Equal(t, day(2024, 1, 4), dates[2])
}

func TestTradingDatesRespectsRange(t *testing.T) {
	hist := History{
		"AAPL": {
			quoteAt("AAPL", day(2024, 1, 1), 150, 150.1),
			quoteAt("AAPL", day(2024, 1, 15), 151, 151.1),
			quoteAt("AAPL", day(2024, 2, 1), 152, 152.1),
		},
	}

	dates := hist.TradingDates(day(2024, 1, 10), day(2024, 1, 31))
	require.Len(t, dates, 1)
	assert.Equal(t, day(2024, 1, 15), dates[0])
}

func TestAtDateSkipsMissingSymbols(t *testing.T) {
	hist := History{
		"AAPL": {quoteAt("AAPL", day(2024, 1, 2), 150, 150.1)},
		"MSFT": {quoteAt("MSFT", day(2024, 1, 3), 390, 390.2)},
	}

	quotes := hist.AtDate(day(2024, 1, 2))
	require.Len(t, quotes, 1)
	assert.Equal(t, "AAPL", quotes["AAPL"].Symbol)
}

func TestThroughKeepsInclusivePrefix(t *testing.T) {
	hist := History{
		"AAPL": {
			quoteAt("AAPL", day(2024, 1, 2), 150, 150.1),
			quoteAt("AAPL", day(2024, 1, 3), 151, 151.1),
			quoteAt("AAPL", day(2024, 1, 4), 152, 152.1),
		},
	}

	subset := hist.Through(day(2024, 1, 3))
	require.Len(t, subset["AAPL"], 2)
	assert.Equal(t, day(2024, 1, 3), subset["AAPL"][1].Day())
}

func TestResampleChronologicalSameLength(t *testing.T) {
	series := make([]Quote, 0, 30)
	for i := 0; i < 30; i++ {
		series = append(series, quoteAt("AAPL", day(2024, 1, 1).AddDate(0, 0, i), 100+float64(i), 100.1+float64(i)))
	}
	hist := History{"AAPL": series}

	rng := rand.New(rand.NewSource(42))
	sampled := hist.Resample(rng)

	require.Len(t, sampled["AAPL"], len(series))
	for i := 1; i < len(sampled["AAPL"]); i++ {
		assert.False(t, sampled["AAPL"][i].Time.Before(sampled["AAPL"][i-1].Time))
	}

	// Every draw must come from the original series.
	originals := make(map[time.Time]bool)
	for _, q := range series {
		originals[q.Time] = true
	}
	for _, q := range sampled["AAPL"] {
		assert.True(t, originals[q.Time])
	}
}

func TestResampleCopiesShortSeries(t *testing.T) {
	hist := History{"AAPL": {quoteAt("AAPL", day(2024, 1, 2), 150, 150.1)}}

	sampled := hist.Resample(rand.New(rand.NewSource(1)))
	require.Len(t, sampled["AAPL"], 1)
	assert.Equal(t, hist["AAPL"][0], sampled["AAPL"][0])
}

func TestSymbolsSorted(t *testing.T) {
	hist := History{"MSFT": nil, "AAPL": nil, "GOOG": nil}
	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, hist.Symbols())
}

func TestResampleDeterministicPerSeed(t *testing.T) {
	series := make([]Quote, 0, 20)
	for i := 0; i < 20; i++ {
		series = append(series, quoteAt("AAPL", day(2024, 1, 1).AddDate(0, 0, i), 100+float64(i), 100.1+float64(i)))
	}
	hist := History{"AAPL": series}

	a := hist.Resample(rand.New(rand.NewSource(7)))
	b := hist.Resample(rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b)
}
