package market

import (
	"math/rand"
	"sort"
	"time"
)

// History maps a symbol to its chronologically ordered quote series. It is
// supplied wholesale before a run starts; the engine never fetches data.
type History map[string][]Quote

// Symbols returns the symbols present in the history, sorted.
func (h History) Symbols() []string {
	syms := make([]string, 0, len(h))
	for sym := range h {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// Sort orders every symbol's series chronologically in place.
func (h History) Sort() {
	for _, quotes := range h {
		SortQuotes(quotes)
	}
}

// TradingDates returns the sorted, de-duplicated calendar dates present
// across all symbols within [start, end] (date granularity, midnight UTC).
func (h History) TradingDates(start, end time.Time) []time.Time {
	startDay, endDay := Day(start), Day(end)
	seen := make(map[time.Time]struct{})

	for _, quotes := range h {
		for _, q := range quotes {
			d := q.Day()
			if d.Before(startDay) || d.After(endDay) {
				continue
			}
			seen[d] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// AtDate returns each symbol's first quote on the given calendar date.
// Symbols without a quote that date are absent from the result.
func (h History) AtDate(date time.Time) map[string]Quote {
	day := Day(date)
	quotes := make(map[string]Quote)

	for sym, series := range h {
		for _, q := range series {
			if q.Day().Equal(day) {
				quotes[sym] = q
				break
			}
		}
	}
	return quotes
}

// Through returns the subset of the history up to and including the given
// calendar date, preserving series order.
func (h History) Through(date time.Time) History {
	day := Day(date)
	subset := make(History, len(h))

	for sym, series := range h {
		var kept []Quote
		for _, q := range series {
			if !q.Day().After(day) {
				kept = append(kept, q)
			}
		}
		subset[sym] = kept
	}
	return subset
}

// Resample bootstraps a randomized copy of the history: each symbol's series
// is sampled with replacement at its original length and re-sorted so the
// result is still chronologically ordered. Series shorter than two quotes
// are copied as-is.
func (h History) Resample(rng *rand.Rand) History {
	sampled := make(History, len(h))

	for sym, series := range h {
		if len(series) < 2 {
			sampled[sym] = append([]Quote(nil), series...)
			continue
		}

		draws := make([]Quote, len(series))
		for i := range draws {
			draws[i] = series[rng.Intn(len(series))]
		}
		SortQuotes(draws)
		sampled[sym] = draws
	}
	return sampled
}
