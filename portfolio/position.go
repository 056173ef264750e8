package portfolio

import "time"

// Position is an open holding. Quantity is signed: positive long, negative
// short. MarketValue carries the same sign as Quantity.
type Position struct {
	Symbol       string
	Quantity     int64
	MarketValue  float64
	CostBasis    float64
	UnrealizedPL float64
	DayPL        float64
}

// IsLong reports whether the position is long.
func (p Position) IsLong() bool { return p.Quantity > 0 }

// IsShort reports whether the position is short.
func (p Position) IsShort() bool { return p.Quantity < 0 }

// Snapshot is an immutable record of portfolio state at one simulated date.
type Snapshot struct {
	Time        time.Time
	TotalValue  float64
	BuyingPower float64
	DayPL       float64
	TotalPL     float64
	Positions   []Position
}

// Position returns the snapshot's position for symbol, if present.
func (s Snapshot) Position(symbol string) (Position, bool) {
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}
