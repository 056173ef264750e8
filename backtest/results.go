package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/quantsim/analysis"
	"github.com/rustyeddy/quantsim/portfolio"
)

// Results is the reduction of one backtest run: capital outcome, risk
// metrics, trade statistics and the full trade log and snapshot history.
// Produced once at the end of a run and read-only thereafter.
type Results struct {
	StrategyID     string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalValue     float64

	TotalReturn  float64
	AnnualReturn float64
	MaxDrawdown  float64
	SharpeRatio  float64
	SortinoRatio float64
	CalmarRatio  float64

	WinRate       float64
	ProfitFactor  float64
	TotalTrades   int
	WinningTrades int
	LosingTrades  int

	TotalCommission float64
	TotalSlippage   float64

	Trades  []portfolio.ExecutedTrade
	History []portfolio.Snapshot
	Metrics analysis.RiskMetrics
}

func (b *Backtester) reduce(strategyID string, start, end time.Time, ledger *portfolio.Ledger) (*Results, error) {
	history := ledger.History()
	if len(history) == 0 {
		return nil, fmt.Errorf("no portfolio history available for results calculation")
	}

	finalValue := history[len(history)-1].TotalValue
	totalReturn := (finalValue - b.initialCapital) / b.initialCapital

	years := end.Sub(start).Hours() / 24 / 365.25
	annualReturn := totalReturn
	if years > 0 {
		annualReturn = math.Pow(1+totalReturn, 1/years) - 1
	}

	metrics := b.analyzer.RiskMetrics(history)

	trades := ledger.Trades()
	var winners, losers int
	var grossProfit, grossLoss float64
	var totalCommission, totalSlippage float64

	for _, t := range trades {
		totalCommission += t.Commission
		totalSlippage += t.Slippage

		pl := tradePL(t)
		if isWinningTrade(t) {
			winners++
			grossProfit += pl
		} else {
			losers++
			grossLoss += pl
		}
	}

	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(winners) / float64(len(trades))
	}

	profitFactor := math.Inf(1)
	if grossLoss != 0 {
		profitFactor = grossProfit / math.Abs(grossLoss)
	}

	return &Results{
		StrategyID:      strategyID,
		Start:           start,
		End:             end,
		InitialCapital:  b.initialCapital,
		FinalValue:      finalValue,
		TotalReturn:     totalReturn,
		AnnualReturn:    annualReturn,
		MaxDrawdown:     metrics.MaxDrawdown,
		SharpeRatio:     metrics.SharpeRatio,
		SortinoRatio:    metrics.SortinoRatio,
		CalmarRatio:     metrics.CalmarRatio,
		WinRate:         winRate,
		ProfitFactor:    profitFactor,
		TotalTrades:     len(trades),
		WinningTrades:   winners,
		LosingTrades:    losers,
		TotalCommission: totalCommission,
		TotalSlippage:   totalSlippage,
		Trades:          trades,
		History:         history,
		Metrics:         metrics,
	}, nil
}

// isWinningTrade classifies sells as profit-realizing and buys as cost.
// True round-trip accounting would need paired entry/exit lot matching;
// until then the win rate measures realization frequency, not edge.
func isWinningTrade(t portfolio.ExecutedTrade) bool {
	return t.Side == portfolio.Sell
}

// tradePL is the one-sided cash flow of a trade under the same
// simplification: proceeds for sells, outlay for buys.
func tradePL(t portfolio.ExecutedTrade) float64 {
	gross := t.Price * float64(t.Quantity)
	if t.Side == portfolio.Sell {
		return gross - t.TotalCost()
	}
	return -(gross + t.TotalCost())
}
