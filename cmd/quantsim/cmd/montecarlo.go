package cmd

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/strategy"
)

var montecarloCmd = &cobra.Command{
	Use:   "montecarlo",
	Short: "Run Monte Carlo bootstrap simulations and VaR analysis",
	RunE:  runMonteCarlo,
}

var (
	mcSimulations int
	mcWorkers     int
	mcSeed        int64
)

func init() {
	rootCmd.AddCommand(montecarloCmd)

	montecarloCmd.Flags().IntVarP(&mcSimulations, "simulations", "n", 0, "number of simulations (overrides config)")
	montecarloCmd.Flags().IntVar(&mcWorkers, "workers", 0, "worker pool size (overrides config)")
	montecarloCmd.Flags().Int64Var(&mcSeed, "seed", 0, "resampling seed for reproducible batches")
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, logger, registry, err := setup()
	if err != nil {
		return err
	}

	hist, err := loadQuotesCSV(quotesPath)
	if err != nil {
		return err
	}
	start, err := parseDate("start", startArg)
	if err != nil {
		return err
	}
	end, err := parseDate("end", endArg)
	if err != nil {
		return err
	}

	params := cfg.MonteCarlo
	if mcSimulations > 0 {
		params.Simulations = mcSimulations
	}
	if mcWorkers > 0 {
		params.Workers = mcWorkers
	}
	if mcSeed != 0 {
		params.Seed = mcSeed
	}

	// Each simulation gets its own strategy instance; the factory is called
	// from worker goroutines, so registry access is serialized.
	var mu sync.Mutex
	n := 0
	factory := func() (strategy.SignalSource, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		cfgCopy := cfg.Strategy
		cfgCopy.ID = fmt.Sprintf("%s-%d", cfg.Strategy.ID, n)
		return registry.Create(cfgCopy)
	}

	bt := backtest.New(cfg.Costs, cfg.Account.InitialCapital, logger)
	result, err := bt.RunMonteCarlo(factory, hist, start, end, params)
	if err != nil {
		return fmt.Errorf("monte carlo: %w", err)
	}

	s := result.Stats
	fmt.Printf("simulations:     %d completed, %d failed\n", s.Completed, s.Failed)
	fmt.Printf("mean return:     %.2f%% (median %.2f%%, stdev %.2f%%)\n",
		s.MeanReturn*100, s.MedianReturn*100, s.ReturnStdDev*100)
	fmt.Printf("return range:    %.2f%% .. %.2f%%\n", s.MinReturn*100, s.MaxReturn*100)
	fmt.Printf("mean sharpe:     %.2f\n", s.MeanSharpe)
	fmt.Printf("mean drawdown:   %.2f%% (worst %.2f%%)\n", s.MeanDrawdown*100, s.WorstDrawdown*100)
	fmt.Printf("positive runs:   %.1f%%\n", s.PositiveReturnPct)

	for _, v := range result.VaR {
		fmt.Printf("VaR %4.0f%%:        %.2f%% (CVaR %.2f%%)\n", v.Level*100, v.VaR*100, v.CVaR*100)
	}

	return nil
}
