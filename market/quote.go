package market

import (
	"sort"
	"time"
)

// Quote is a bid/ask pair for a symbol at a point in time. One quote per
// symbol per timestamp in a historical series.
type Quote struct {
	Symbol  string
	Time    time.Time
	Bid     float64
	Ask     float64
	BidSize int64
	AskSize int64
}

// Mid returns the bid/ask midpoint.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// Spread returns ask minus bid.
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Day truncates the quote timestamp to its UTC calendar date.
func (q Quote) Day() time.Time {
	return Day(q.Time)
}

// Day normalizes t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SortQuotes orders a series chronologically in place.
func SortQuotes(quotes []Quote) {
	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Time.Before(quotes[j].Time)
	})
}
