package backtest

import (
	"math"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/portfolio"
)

// CostParams configures transaction costs and market impact for a run.
// All values are non-negative constants, fixed for the life of a Backtester.
type CostParams struct {
	CommissionPerShare float64 `json:"commission_per_share" yaml:"commission_per_share"`
	CommissionMin      float64 `json:"commission_min" yaml:"commission_min"`
	CommissionMax      float64 `json:"commission_max" yaml:"commission_max"`
	SpreadCostFactor   float64 `json:"spread_cost_factor" yaml:"spread_cost_factor"`
	MarketImpactFactor float64 `json:"market_impact_factor" yaml:"market_impact_factor"`
	SlippageFactor     float64 `json:"slippage_factor" yaml:"slippage_factor"`
}

// DefaultCostParams models a retail commission schedule: half a cent per
// share clamped to [$1, $5], half the spread as slippage cost, 0.1% market
// impact and 0.05% price slippage.
func DefaultCostParams() CostParams {
	return CostParams{
		CommissionPerShare: 0.005,
		CommissionMin:      1.00,
		CommissionMax:      5.00,
		SpreadCostFactor:   0.5,
		MarketImpactFactor: 0.001,
		SlippageFactor:     0.0005,
	}
}

// Commission is the per-share rate clamped to the configured floor and
// ceiling.
func (c CostParams) Commission(qty int64) float64 {
	commission := float64(qty) * c.CommissionPerShare
	commission = math.Max(commission, c.CommissionMin)
	return math.Min(commission, c.CommissionMax)
}

// SlippageCost charges a fraction of the quoted spread per share traded.
func (c CostParams) SlippageCost(spread float64, qty int64) float64 {
	return spread * c.SpreadCostFactor * float64(qty)
}

// MarketImpact charges a fraction of the trade's notional value.
func (c CostParams) MarketImpact(qty int64, price float64) float64 {
	return float64(qty) * price * c.MarketImpactFactor
}

// ExecutionPrice is the realistic fill price: buys lift the ask, sells hit
// the bid, and both give up an extra slippage term that grows with quantity,
// capped at 1% of the spread.
func (c CostParams) ExecutionPrice(q market.Quote, side portfolio.Side, qty int64) float64 {
	factor := math.Min(0.01, c.SlippageFactor*float64(qty)/1000)
	slip := q.Spread() * factor

	if side == portfolio.Buy {
		return q.Ask + slip
	}
	return q.Bid - slip
}
