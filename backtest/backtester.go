// Package backtest implements the historical-simulation engine: an
// event-driven replay of per-symbol quote series through a signal source,
// with transaction-cost modeling, portfolio accounting and statistical
// results reduction. Walk-forward and Monte Carlo drivers build on the same
// engine.
package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/quantsim/analysis"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/pkg/id"
	"github.com/rustyeddy/quantsim/portfolio"
	"github.com/rustyeddy/quantsim/strategy"
)

// Validation failures surfaced before any simulation work begins.
var (
	ErrNoHistoricalData = errors.New("historical data cannot be empty")
	ErrEmptySeries      = errors.New("quote series is empty")
	ErrInvalidRange     = errors.New("start date must be before end date")
	ErrInvalidCapital   = errors.New("initial capital must be positive")
	ErrNoTradingDates   = errors.New("no trading dates in range")
)

// Backtester replays historical quotes through a strategy, one calendar
// date at a time, and reduces the resulting trade log and snapshot history
// into Results. A single run is strictly sequential; create one Backtester
// per concurrent run.
type Backtester struct {
	costs          CostParams
	initialCapital float64
	analyzer       *analysis.Analyzer
	logger         *logrus.Logger
	log            *logrus.Entry
}

// New returns a Backtester with the given cost schedule and starting
// capital. A nil logger falls back to the logrus standard logger.
func New(costs CostParams, initialCapital float64, logger *logrus.Logger) *Backtester {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Backtester{
		costs:          costs,
		initialCapital: initialCapital,
		analyzer:       analysis.NewAnalyzer(),
		logger:         logger,
		log:            logger.WithField("component", "backtest"),
	}
}

// Run executes one full backtest of strat over hist within [start, end].
// It either returns complete Results or an error describing the violated
// precondition; there is no partial-result contract.
func (b *Backtester) Run(strat strategy.SignalSource, hist market.History, start, end time.Time) (*Results, error) {
	if err := b.validate(hist, start, end); err != nil {
		return nil, err
	}

	dates := hist.TradingDates(start, end)
	if len(dates) == 0 {
		return nil, ErrNoTradingDates
	}

	b.log.WithFields(logrus.Fields{
		"strategy": strat.ID(),
		"start":    start.Format("2006-01-02"),
		"end":      end.Format("2006-01-02"),
		"dates":    len(dates),
		"capital":  b.initialCapital,
	}).Info("starting backtest")

	ledger := portfolio.NewLedger(b.initialCapital)

	for _, date := range dates {
		quotes := hist.AtDate(date)
		if len(quotes) == 0 {
			continue
		}

		snap := ledger.MarkToMarket(quotes, date)
		subset := hist.Through(date)

		for _, sig := range strat.GenerateSignals(quotes, snap, subset) {
			if sig.Type == strategy.Hold {
				continue
			}
			if !strat.ValidateSignal(sig) {
				b.log.WithField("symbol", sig.Symbol).Debug("signal rejected by strategy validation")
				continue
			}
			b.executeSignal(ledger, sig, quotes, date)
		}

		recorded := ledger.RecordSnapshot(date)
		strat.UpdateState(quotes, recorded)
	}

	results, err := b.reduce(strat.ID(), start, end, ledger)
	if err != nil {
		return nil, err
	}

	b.log.WithFields(logrus.Fields{
		"strategy":     strat.ID(),
		"total_return": results.TotalReturn,
		"sharpe":       results.SharpeRatio,
		"max_drawdown": results.MaxDrawdown,
		"trades":       results.TotalTrades,
	}).Info("backtest complete")

	return results, nil
}

func (b *Backtester) validate(hist market.History, start, end time.Time) error {
	if len(hist) == 0 {
		return ErrNoHistoricalData
	}
	if !start.Before(end) {
		return ErrInvalidRange
	}
	if b.initialCapital <= 0 {
		return ErrInvalidCapital
	}

	for _, sym := range hist.Symbols() {
		series := hist[sym]
		if len(series) == 0 {
			return fmt.Errorf("symbol %s: %w", sym, ErrEmptySeries)
		}

		first, last := series[0].Day(), series[0].Day()
		for _, q := range series[1:] {
			d := q.Day()
			if d.Before(first) {
				first = d
			}
			if d.After(last) {
				last = d
			}
		}
		if market.Day(start).Before(first) || market.Day(end).After(last) {
			b.log.WithFields(logrus.Fields{
				"symbol":     sym,
				"data_start": first.Format("2006-01-02"),
				"data_end":   last.Format("2006-01-02"),
			}).Warn("symbol data does not fully cover the backtest period")
		}
	}
	return nil
}

// executeSignal sizes, prices and books one buy/sell signal. Anomalies
// (zero sizing, unaffordable even at one share) are absorbed locally so a
// bad signal cannot abort the run.
func (b *Backtester) executeSignal(ledger *portfolio.Ledger, sig strategy.Signal, quotes map[string]market.Quote, date time.Time) {
	quote, ok := quotes[sig.Symbol]
	if !ok {
		return
	}

	side := portfolio.Buy
	if sig.Type == strategy.Sell {
		side = portfolio.Sell
	}

	qty := sig.Quantity
	if qty == 0 {
		// Size from capital: up to 10% of cash, scaled by signal strength.
		positionValue := ledger.Cash() * 0.1 * sig.Strength
		if mid := quote.Mid(); mid > 0 {
			qty = int64(positionValue / mid)
		}
	}
	if qty <= 0 {
		b.log.WithField("symbol", sig.Symbol).Debug("signal sized to zero quantity, skipping")
		return
	}

	price := b.costs.ExecutionPrice(quote, side, qty)
	commission := b.costs.Commission(qty)
	slippage := b.costs.SlippageCost(quote.Spread(), qty)
	impact := b.costs.MarketImpact(qty, price)

	if side == portfolio.Buy {
		total := float64(qty)*price + commission + slippage + impact
		if total > ledger.Cash() {
			// Shrink to the largest affordable quantity, minimum one share.
			available := ledger.Cash() - commission - slippage - impact
			qty = int64(available / price)
			if qty < 1 {
				qty = 1
			}
			total = float64(qty)*price + commission + slippage + impact
			if total > ledger.Cash() {
				b.log.WithField("symbol", sig.Symbol).Debug("insufficient capital for trade, skipping")
				return
			}
		}
	}

	ledger.ExecuteTrade(portfolio.ExecutedTrade{
		ID:             id.New(),
		Time:           date,
		Symbol:         sig.Symbol,
		Side:           side,
		Quantity:       qty,
		Price:          price,
		Commission:     commission,
		Slippage:       slippage,
		MarketImpact:   impact,
		StrategyID:     sig.StrategyID(),
		SignalStrength: sig.Strength,
	})
}
