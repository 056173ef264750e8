// Package strategy defines the signal-source contract consumed by the
// backtesting engine, plus the built-in momentum and mean-reversion
// implementations.
package strategy

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/portfolio"
)

// SignalType is the recommended action for a symbol.
type SignalType string

const (
	Buy  SignalType = "buy"
	Sell SignalType = "sell"
	Hold SignalType = "hold"
)

// Signal is a strategy's recommendation for one symbol on one simulated
// date. Quantity zero means "size from capital"; Meta always carries the
// originating strategy under the "strategy_id" key.
type Signal struct {
	Symbol     string
	Type       SignalType
	Strength   float64
	Quantity   int64
	LimitPrice float64
	Meta       map[string]string
}

// StrategyID returns the originating strategy recorded in the signal
// metadata, or "unknown" when absent.
func (s Signal) StrategyID() string {
	if id, ok := s.Meta["strategy_id"]; ok && id != "" {
		return id
	}
	return "unknown"
}

// SignalSource maps market state to trade signals. Once per simulated date
// the engine calls GenerateSignals, then ValidateSignal per candidate, then
// UpdateState, in that order.
type SignalSource interface {
	// ID identifies the strategy instance in results and trade records.
	ID() string

	// GenerateSignals yields zero or more signals for the date given the
	// day's quotes, the current portfolio and the history up to and
	// including the date.
	GenerateSignals(quotes map[string]market.Quote, snap portfolio.Snapshot, hist market.History) []Signal

	// ValidateSignal reports whether a generated signal is acceptable for
	// execution.
	ValidateSignal(sig Signal) bool

	// UpdateState lets the strategy refresh internal state from the day's
	// market data and the post-execution portfolio.
	UpdateState(quotes map[string]market.Quote, snap portfolio.Snapshot)
}

// ValidSignal is the base acceptance check shared by the built-in
// strategies: known action, strength within [0,1], sane quantity.
func ValidSignal(sig Signal) bool {
	if sig.Symbol == "" {
		return false
	}
	switch sig.Type {
	case Buy, Sell, Hold:
	default:
		return false
	}
	if sig.Strength < 0 || sig.Strength > 1 {
		return false
	}
	return sig.Quantity >= 0
}

// Config describes one strategy instance: its registry type, the symbols it
// trades and free-form numeric parameters. Parameters the strategy does not
// recognize are ignored; missing ones fall back to defaults.
type Config struct {
	ID      string             `json:"id" yaml:"id"`
	Type    string             `json:"type" yaml:"type"`
	Symbols []string           `json:"symbols" yaml:"symbols"`
	Params  map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

func (c Config) param(name string, def float64) float64 {
	if v, ok := c.Params[name]; ok {
		return v
	}
	return def
}

func (c Config) boolParam(name string, def bool) bool {
	v, ok := c.Params[name]
	if !ok {
		return def
	}
	return v != 0
}

// base carries the state shared by the built-in strategies: identity, an
// ordered symbol list and the holdings observed from portfolio snapshots.
type base struct {
	id       string
	symbols  []string
	holdings map[string]int64
	log      *logrus.Entry
}

func newBase(cfg Config, logger *logrus.Logger, component string) base {
	symbols := append([]string(nil), cfg.Symbols...)
	sort.Strings(symbols)

	log := logrus.NewEntry(logrus.StandardLogger())
	if logger != nil {
		log = logger.WithField("component", component)
	}

	return base{
		id:       cfg.ID,
		symbols:  symbols,
		holdings: make(map[string]int64),
		log:      log.WithField("strategy", cfg.ID),
	}
}

func (b *base) ID() string { return b.id }

// UpdateState mirrors the portfolio's positions for the strategy's symbols
// into the local holdings map.
func (b *base) UpdateState(_ map[string]market.Quote, snap portfolio.Snapshot) {
	for k := range b.holdings {
		delete(b.holdings, k)
	}
	for _, pos := range snap.Positions {
		b.holdings[pos.Symbol] = pos.Quantity
	}
}

func (b *base) meta() map[string]string {
	return map[string]string{"strategy_id": b.id}
}

// midPrices extracts the quote midpoints for the trailing lookback window.
func midPrices(series []market.Quote, lookback int) []float64 {
	if len(series) > lookback {
		series = series[len(series)-lookback:]
	}
	prices := make([]float64, len(series))
	for i, q := range series {
		prices[i] = q.Mid()
	}
	return prices
}

// quoteVolumes extracts total quoted size for the trailing lookback window.
func quoteVolumes(series []market.Quote, lookback int) []float64 {
	if len(series) > lookback {
		series = series[len(series)-lookback:]
	}
	vols := make([]float64, len(series))
	for i, q := range series {
		vols[i] = float64(q.BidSize + q.AskSize)
	}
	return vols
}
