// Package analysis computes risk and performance statistics over portfolio
// value series produced by a simulation run.
package analysis

import (
	"math"
	"sort"

	"github.com/rustyeddy/quantsim/portfolio"
)

// TradingDaysPerYear is the annualization factor for daily return series.
const TradingDaysPerYear = 252

// DefaultRiskFreeRate is the annual risk-free rate assumed when none is set.
const DefaultRiskFreeRate = 0.02

// RiskMetrics summarizes the risk profile of a snapshot value series.
type RiskMetrics struct {
	MeanDailyReturn   float64
	DailyVolatility   float64
	AnnualReturn      float64
	AnnualVolatility  float64
	SharpeRatio       float64
	SortinoRatio      float64
	DownsideDeviation float64
	MaxDrawdown       float64
	CalmarRatio       float64
}

// Analyzer computes metrics relative to a configurable risk-free rate.
type Analyzer struct {
	riskFree float64
}

// NewAnalyzer returns an analyzer using DefaultRiskFreeRate.
func NewAnalyzer() *Analyzer {
	return &Analyzer{riskFree: DefaultRiskFreeRate}
}

// SetRiskFreeRate overrides the annual risk-free rate used for Sharpe and
// Sortino calculations.
func (a *Analyzer) SetRiskFreeRate(rate float64) { a.riskFree = rate }

// RiskMetrics reduces a snapshot history into risk statistics. Fewer than
// two snapshots yields zero metrics: there is no return series to measure.
func (a *Analyzer) RiskMetrics(history []portfolio.Snapshot) RiskMetrics {
	if len(history) < 2 {
		return RiskMetrics{}
	}

	values := make([]float64, len(history))
	for i, snap := range history {
		values[i] = snap.TotalValue
	}
	returns := Returns(values)

	mean := Mean(returns)
	vol := StdDev(returns)

	annualReturn := mean * TradingDaysPerYear
	annualVol := vol * math.Sqrt(TradingDaysPerYear)
	excess := annualReturn - a.riskFree

	sharpe := 0.0
	if annualVol > 0 {
		sharpe = excess / annualVol
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	downsideDev := StdDev(downside) * math.Sqrt(TradingDaysPerYear)

	sortino := 0.0
	if downsideDev > 0 {
		sortino = excess / downsideDev
	}

	maxDD := MaxDrawdown(values)
	calmar := 0.0
	if maxDD != 0 {
		calmar = annualReturn / math.Abs(maxDD)
	}

	return RiskMetrics{
		MeanDailyReturn:   mean,
		DailyVolatility:   vol,
		AnnualReturn:      annualReturn,
		AnnualVolatility:  annualVol,
		SharpeRatio:       sharpe,
		SortinoRatio:      sortino,
		DownsideDeviation: downsideDev,
		MaxDrawdown:       maxDD,
		CalmarRatio:       calmar,
	}
}

// Returns converts a value series into simple period-over-period returns.
// A non-positive prior value contributes a zero return rather than an
// undefined one.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			out = append(out, (values[i]-values[i-1])/values[i-1])
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// MaxDrawdown returns the largest peak-to-trough decline in the series as a
// positive fraction of the peak.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	peak := values[0]
	maxDD := 0.0
	for _, v := range values[1:] {
		if v > peak {
			peak = v
			continue
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Mean of a sample; zero for an empty sample.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev is the sample standard deviation (n-1 denominator); zero for
// samples smaller than two.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

// Median of a sample; zero for an empty sample.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Percentile returns the p-th percentile (p in [0,100]) of the sample using
// linear interpolation between closest ranks; zero for an empty sample.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
