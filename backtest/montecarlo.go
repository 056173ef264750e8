package backtest

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/quantsim/analysis"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/strategy"
)

// ErrAllSimulationsFailed is returned when no Monte Carlo run completes.
var ErrAllSimulationsFailed = errors.New("all monte carlo simulations failed")

// DefaultWorkers bounds the Monte Carlo worker pool.
const DefaultWorkers = 4

// StrategyFactory produces a fresh, independent strategy instance for one
// simulation. Each worker needs its own instance because strategies carry
// mutable state.
type StrategyFactory func() (strategy.SignalSource, error)

// MonteCarloParams configures the simulation batch.
type MonteCarloParams struct {
	Simulations      int       `json:"simulations" yaml:"simulations"`
	ConfidenceLevels []float64 `json:"confidence_levels" yaml:"confidence_levels"`
	Workers          int       `json:"workers" yaml:"workers"`
	Seed             int64     `json:"seed" yaml:"seed"` // 0 seeds from the clock
}

// DefaultMonteCarloParams runs a thousand simulations with 5%/95% tails.
func DefaultMonteCarloParams() MonteCarloParams {
	return MonteCarloParams{
		Simulations:      1000,
		ConfidenceLevels: []float64{0.05, 0.95},
		Workers:          DefaultWorkers,
	}
}

func (p MonteCarloParams) validate() error {
	if p.Simulations <= 0 {
		return fmt.Errorf("monte carlo: simulation count must be positive")
	}
	for _, level := range p.ConfidenceLevels {
		if level <= 0 || level >= 1 {
			return fmt.Errorf("monte carlo: confidence level %v outside (0, 1)", level)
		}
	}
	return nil
}

// VaREstimate is the empirical Value-at-Risk and Conditional VaR of the
// return distribution at one confidence level.
type VaREstimate struct {
	Level float64
	VaR   float64
	CVaR  float64
}

// MonteCarloStats summarizes the return distribution across completed runs.
type MonteCarloStats struct {
	Completed         int
	Failed            int
	MeanReturn        float64
	MedianReturn      float64
	ReturnStdDev      float64
	MinReturn         float64
	MaxReturn         float64
	MeanSharpe        float64
	MeanDrawdown      float64
	WorstDrawdown     float64
	PositiveReturnPct float64
}

// MonteCarloResult carries the distribution statistics, the VaR analysis
// and the per-run results that completed.
type MonteCarloResult struct {
	Stats  MonteCarloStats
	VaR    []VaREstimate
	Runs   []*Results
	Params MonteCarloParams
}

// RunMonteCarlo bootstraps randomized resamples of the history and runs one
// independent backtest per resample across a bounded worker pool. Each
// worker owns a fresh Backtester, ledger and strategy instance, so no state
// is shared. A single failed simulation is logged and excluded; the batch
// only fails if every simulation does. Results are aggregated in completion
// order, which is fine because only the distribution matters.
func (b *Backtester) RunMonteCarlo(factory StrategyFactory, hist market.History, start, end time.Time, params MonteCarloParams) (*MonteCarloResult, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("monte carlo: strategy factory is required")
	}

	workers := params.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	seed := params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	log := b.logger.WithField("component", "montecarlo")
	log.WithFields(logrus.Fields{
		"simulations": params.Simulations,
		"workers":     workers,
		"seed":        seed,
	}).Info("starting monte carlo simulation")

	// Resampling happens up front on a single seeded source so a batch is
	// reproducible regardless of worker scheduling.
	datasets := make([]market.History, params.Simulations)
	for i := range datasets {
		datasets[i] = hist.Resample(rng)
	}

	jobs := make(chan int)
	completed := make(chan *Results, params.Simulations)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := b.runSimulation(factory, datasets[i], start, end)
				if err != nil {
					log.WithError(err).WithField("simulation", i).Warn("simulation failed")
					completed <- nil
					continue
				}
				completed <- res
			}
		}()
	}

	go func() {
		for i := 0; i < params.Simulations; i++ {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(completed)
	}()

	var runs []*Results
	failed := 0
	for res := range completed {
		if res == nil {
			failed++
			continue
		}
		runs = append(runs, res)
	}

	if len(runs) == 0 {
		return nil, ErrAllSimulationsFailed
	}

	result := &MonteCarloResult{
		Stats:  aggregateRuns(runs, failed),
		VaR:    varAnalysis(runs, params.ConfidenceLevels),
		Runs:   runs,
		Params: params,
	}

	log.WithFields(logrus.Fields{
		"completed":   len(runs),
		"failed":      failed,
		"mean_return": result.Stats.MeanReturn,
	}).Info("monte carlo simulation complete")

	return result, nil
}

// runSimulation executes one resampled backtest on a fresh engine.
func (b *Backtester) runSimulation(factory StrategyFactory, hist market.History, start, end time.Time) (*Results, error) {
	strat, err := factory()
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}

	sim := New(b.costs, b.initialCapital, b.logger)
	return sim.Run(strat, hist, start, end)
}

func aggregateRuns(runs []*Results, failed int) MonteCarloStats {
	returns := make([]float64, len(runs))
	sharpes := make([]float64, len(runs))
	drawdowns := make([]float64, len(runs))
	positive := 0

	for i, r := range runs {
		returns[i] = r.TotalReturn
		sharpes[i] = r.SharpeRatio
		drawdowns[i] = r.MaxDrawdown
		if r.TotalReturn > 0 {
			positive++
		}
	}

	minReturn, maxReturn := returns[0], returns[0]
	for _, r := range returns[1:] {
		if r < minReturn {
			minReturn = r
		}
		if r > maxReturn {
			maxReturn = r
		}
	}

	worstDD := drawdowns[0]
	for _, d := range drawdowns[1:] {
		if d > worstDD {
			worstDD = d
		}
	}

	return MonteCarloStats{
		Completed:         len(runs),
		Failed:            failed,
		MeanReturn:        analysis.Mean(returns),
		MedianReturn:      analysis.Median(returns),
		ReturnStdDev:      analysis.StdDev(returns),
		MinReturn:         minReturn,
		MaxReturn:         maxReturn,
		MeanSharpe:        analysis.Mean(sharpes),
		MeanDrawdown:      analysis.Mean(drawdowns),
		WorstDrawdown:     worstDD,
		PositiveReturnPct: float64(positive) / float64(len(runs)) * 100,
	}
}

// varAnalysis computes the empirical percentile VaR and the tail-mean CVaR
// for each requested confidence level. Levels below 0.5 read the loss tail
// (returns at or below the percentile); levels above read the gain tail.
func varAnalysis(runs []*Results, levels []float64) []VaREstimate {
	returns := make([]float64, len(runs))
	for i, r := range runs {
		returns[i] = r.TotalReturn
	}

	estimates := make([]VaREstimate, 0, len(levels))
	for _, level := range levels {
		varValue := analysis.Percentile(returns, level*100)

		var tail []float64
		for _, r := range returns {
			if level < 0.5 && r <= varValue {
				tail = append(tail, r)
			} else if level >= 0.5 && r >= varValue {
				tail = append(tail, r)
			}
		}

		cvar := varValue
		if len(tail) > 0 {
			cvar = analysis.Mean(tail)
		}

		estimates = append(estimates, VaREstimate{Level: level, VaR: varValue, CVaR: cvar})
	}
	return estimates
}
