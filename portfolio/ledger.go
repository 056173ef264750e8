package portfolio

import (
	"sort"
	"time"

	"github.com/rustyeddy/quantsim/market"
)

// Ledger is the in-memory portfolio state for one simulation run: cash,
// open positions, an append-only trade log and an append-only snapshot
// history. It is not safe for concurrent use; a run is strictly sequential.
type Ledger struct {
	initialCapital float64
	cash           float64
	positions      map[string]Position
	trades         []ExecutedTrade
	history        []Snapshot
	dayPL          float64
}

// NewLedger returns a ledger holding only cash.
func NewLedger(initialCapital float64) *Ledger {
	l := &Ledger{initialCapital: initialCapital}
	l.Reset()
	return l
}

// Reset returns the ledger to its all-cash starting state.
func (l *Ledger) Reset() {
	l.cash = l.initialCapital
	l.positions = make(map[string]Position)
	l.trades = nil
	l.history = nil
	l.dayPL = 0
}

// InitialCapital returns the configured starting capital.
func (l *Ledger) InitialCapital() float64 { return l.initialCapital }

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// Position returns the open position for symbol, if any.
func (l *Ledger) Position(symbol string) (Position, bool) {
	p, ok := l.positions[symbol]
	return p, ok
}

// Positions returns the open positions sorted by symbol.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Trades returns the trade log in execution order.
func (l *Ledger) Trades() []ExecutedTrade { return l.trades }

// History returns the recorded snapshot history in chronological order.
func (l *Ledger) History() []Snapshot { return l.history }

// TotalValue is cash plus the sum of open position market values.
func (l *Ledger) TotalValue() float64 {
	total := l.cash
	for _, p := range l.positions {
		total += p.MarketValue
	}
	return total
}

// MarkToMarket reprices every held position that has a quote for the date
// off the quote midpoint, accumulating the day's P&L. Positions without a
// quote retain their prior market value. It returns the interim (pre-trade)
// snapshot for the date without recording it; call RecordSnapshot once the
// date's trades have executed.
func (l *Ledger) MarkToMarket(quotes map[string]market.Quote, date time.Time) Snapshot {
	l.dayPL = 0

	for sym, pos := range l.positions {
		q, ok := quotes[sym]
		if !ok {
			pos.DayPL = 0
			l.positions[sym] = pos
			continue
		}

		value := float64(abs64(pos.Quantity)) * q.Mid()
		if pos.Quantity < 0 {
			value = -value
		}

		change := value - pos.MarketValue
		pos.MarketValue = value
		pos.UnrealizedPL = value - pos.CostBasis
		pos.DayPL = change
		l.positions[sym] = pos

		l.dayPL += change
	}

	return l.snapshot(date)
}

// RecordSnapshot appends one snapshot of the current state to the history
// and returns it. The caller invokes it exactly once per simulated date,
// after the date's signals have executed.
func (l *Ledger) RecordSnapshot(date time.Time) Snapshot {
	snap := l.snapshot(date)
	l.history = append(l.history, snap)
	return snap
}

func (l *Ledger) snapshot(date time.Time) Snapshot {
	total := l.TotalValue()
	return Snapshot{
		Time:        date,
		TotalValue:  total,
		BuyingPower: l.cash,
		DayPL:       l.dayPL,
		TotalPL:     total - l.initialCapital,
		Positions:   l.Positions(),
	}
}

// ExecuteTrade applies a fill to cash and positions and appends it to the
// trade log. Affordability is the caller's responsibility: a buy that would
// push cash negative is a precondition violation, not a handled error.
//
// Cost basis averages up on same-direction adds, stays unchanged on partial
// closes and is zeroed when quantity returns to exactly zero, at which point
// the position entry is removed.
func (l *Ledger) ExecuteTrade(trade ExecutedTrade) {
	l.trades = append(l.trades, trade)

	if trade.Side == Buy {
		l.cash -= trade.NetAmount()
	} else {
		l.cash += trade.NetAmount()
	}

	gross := trade.Price * float64(trade.Quantity)

	pos, held := l.positions[trade.Symbol]
	if !held {
		qty := trade.Quantity
		basis := gross
		if trade.Side == Sell {
			qty = -qty
			basis = -gross
		}
		l.positions[trade.Symbol] = newPosition(trade.Symbol, qty, trade.Price, basis)
		return
	}

	var qty int64
	basis := pos.CostBasis
	if trade.Side == Buy {
		qty = pos.Quantity + trade.Quantity
		basis += gross
	} else {
		qty = pos.Quantity - trade.Quantity
	}

	if qty == 0 {
		delete(l.positions, trade.Symbol)
		return
	}
	l.positions[trade.Symbol] = newPosition(trade.Symbol, qty, trade.Price, basis)
}

func newPosition(symbol string, qty int64, price, basis float64) Position {
	value := float64(abs64(qty)) * price
	if qty < 0 {
		value = -value
	}
	return Position{
		Symbol:       symbol,
		Quantity:     qty,
		MarketValue:  value,
		CostBasis:    basis,
		UnrealizedPL: value - basis,
	}
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
