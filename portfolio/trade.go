package portfolio

import "time"

// Side of an executed trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ExecutedTrade records one fill produced during a simulation run. Created
// exactly once per executed signal and never mutated afterwards.
type ExecutedTrade struct {
	ID             string
	Time           time.Time
	Symbol         string
	Side           Side
	Quantity       int64
	Price          float64
	Commission     float64
	Slippage       float64
	MarketImpact   float64
	StrategyID     string
	SignalStrength float64
}

// TotalCost is commission plus slippage plus market impact.
func (t ExecutedTrade) TotalCost() float64 {
	return t.Commission + t.Slippage + t.MarketImpact
}

// NetAmount is the gross amount adjusted for costs: buys pay price*qty plus
// costs, sells receive price*qty minus costs.
func (t ExecutedTrade) NetAmount() float64 {
	gross := t.Price * float64(t.Quantity)
	if t.Side == Buy {
		return gross + t.TotalCost()
	}
	return gross - t.TotalCost()
}
