package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/backtest"
)

var walkforwardCmd = &cobra.Command{
	Use:   "walkforward",
	Short: "Run walk-forward analysis over rolling out-of-sample windows",
	RunE:  runWalkForward,
}

var (
	wfTraining int
	wfTesting  int
	wfStep     int
)

func init() {
	rootCmd.AddCommand(walkforwardCmd)

	walkforwardCmd.Flags().IntVar(&wfTraining, "training", 0, "training window in months (overrides config)")
	walkforwardCmd.Flags().IntVar(&wfTesting, "testing", 0, "testing window in months (overrides config)")
	walkforwardCmd.Flags().IntVar(&wfStep, "step", 0, "step size in months (overrides config)")
}

func runWalkForward(cmd *cobra.Command, args []string) error {
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

	params := cfg.WalkForward
	if wfTraining > 0 {
		params.TrainingMonths = wfTraining
	}
	if wfTesting > 0 {
		params.TestingMonths = wfTesting
	}
	if wfStep > 0 {
		params.StepMonths = wfStep
	}

	strat, err := registry.Create(cfg.Strategy)
	if err != nil {
		return err
	}

	bt := backtest.New(cfg.Costs, cfg.Account.InitialCapital, logger)
	result, err := bt.RunWalkForward(strat, hist, start, end, params)
	if err != nil {
		return fmt.Errorf("walk-forward: %w", err)
	}

	for i, w := range result.Windows {
		fmt.Printf("window %2d  %s .. %s  return %7.2f%%  sharpe %6.2f  dd %6.2f%%  trades %d\n",
			i+1, w.TestingStart.Format("2006-01-02"), w.TestingEnd.Format("2006-01-02"),
			w.TotalReturn*100, w.SharpeRatio, w.MaxDrawdown*100, w.TotalTrades)
	}

	s := result.Stats
	if s.WindowsTested == 0 {
		fmt.Println("no testing windows fit in the requested range")
		return nil
	}

	fmt.Printf("\nwindows tested:    %d\n", s.WindowsTested)
	fmt.Printf("mean return:       %.2f%% (stdev %.2f%%)\n", s.MeanReturn*100, s.ReturnStdDev*100)
	fmt.Printf("mean sharpe:       %.2f\n", s.MeanSharpe)
	fmt.Printf("mean drawdown:     %.2f%% (worst %.2f%%)\n", s.MeanDrawdown*100, s.WorstDrawdown*100)
	fmt.Printf("consistency ratio: %.2f\n", s.ConsistencyRatio)

	return nil
}
