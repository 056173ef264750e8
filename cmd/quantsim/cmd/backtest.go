package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/backtest"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a single backtest and print the performance summary",
	Long: `Backtest replays the quote file through the configured strategy over
the requested date range and prints the resulting performance metrics.

Example:
  quantsim backtest -q quotes.csv -s momentum --symbols AAPL,MSFT \
      --start 2024-01-01 --end 2024-12-31`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
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

	strat, err := registry.Create(cfg.Strategy)
	if err != nil {
		return err
	}

	bt := backtest.New(cfg.Costs, cfg.Account.InitialCapital, logger)
	results, err := bt.Run(strat, hist, start, end)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	fmt.Printf("Strategy:        %s\n", results.StrategyID)
	fmt.Printf("Period:          %s .. %s\n",
		results.Start.Format("2006-01-02"), results.End.Format("2006-01-02"))
	fmt.Printf("Initial capital: %.2f\n", results.InitialCapital)
	fmt.Printf("Final value:     %.2f\n", results.FinalValue)
	fmt.Printf("Total return:    %.2f%%\n", results.TotalReturn*100)
	fmt.Printf("Annual return:   %.2f%%\n", results.AnnualReturn*100)
	fmt.Printf("Max drawdown:    %.2f%%\n", results.MaxDrawdown*100)
	fmt.Printf("Sharpe ratio:    %.2f\n", results.SharpeRatio)
	fmt.Printf("Sortino ratio:   %.2f\n", results.SortinoRatio)
	fmt.Printf("Calmar ratio:    %.2f\n", results.CalmarRatio)
	fmt.Printf("Trades:          %d (win rate %.1f%%, profit factor %.2f)\n",
		results.TotalTrades, results.WinRate*100, results.ProfitFactor)
	fmt.Printf("Costs:           commission %.2f, slippage %.2f\n",
		results.TotalCommission, results.TotalSlippage)

	return nil
}
