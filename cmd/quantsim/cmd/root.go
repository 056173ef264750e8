package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/config"
	"github.com/rustyeddy/quantsim/logging"
	"github.com/rustyeddy/quantsim/strategy"
)

var rootCmd = &cobra.Command{
	Use:   "quantsim",
	Short: "Historical simulation engine for rule-based trading strategies",
	Long: `Quantsim replays historical bid/ask quote data through rule-based
strategies with realistic transaction costs and slippage.

It provides:
  - Single backtest runs with full performance metrics
  - Walk-forward analysis over rolling out-of-sample windows
  - Monte Carlo bootstrap simulation with VaR/CVaR analysis`,
}

var (
	cfgPath      string
	quotesPath   string
	startArg     string
	endArg       string
	capitalFlag  float64
	strategyType string
	strategyID   string
	symbolsFlag  []string
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "path to YAML/JSON config file")
	pf.StringVarP(&quotesPath, "quotes", "q", "", "path to quote CSV (time,symbol,bid,ask[,bid_size,ask_size]) (required)")
	pf.StringVar(&startArg, "start", "", "start date (YYYY-MM-DD) (required)")
	pf.StringVar(&endArg, "end", "", "end date (YYYY-MM-DD) (required)")
	pf.Float64VarP(&capitalFlag, "capital", "b", 0, "initial capital (overrides config)")
	pf.StringVarP(&strategyType, "strategy", "s", "", "strategy type (momentum, mean-reversion, noop; overrides config)")
	pf.StringVar(&strategyID, "id", "", "strategy instance id (overrides config)")
	pf.StringSliceVar(&symbolsFlag, "symbols", nil, "symbols to trade (overrides config)")
}

// setup is the composition root shared by all subcommands: it loads config,
// applies flag overrides, initializes logging and builds the strategy
// registry.
func setup() (*config.Config, *logrus.Logger, *strategy.Registry, error) {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, nil, nil, err
		}
		cfg = loaded
	}

	if capitalFlag > 0 {
		cfg.Account.InitialCapital = capitalFlag
	}
	if strategyType != "" {
		cfg.Strategy.Type = strategyType
	}
	if strategyID != "" {
		cfg.Strategy.ID = strategyID
	}
	if len(symbolsFlag) > 0 {
		cfg.Strategy.Symbols = symbolsFlag
	}
	if cfg.Strategy.ID == "" {
		cfg.Strategy.ID = cfg.Strategy.Type
	}
	if cfg.Strategy.Type == "" {
		return nil, nil, nil, fmt.Errorf("a strategy type is required (--strategy or config)")
	}

	logger := logging.New(cfg.Logging)
	registry := strategy.NewRegistry(logger)

	return cfg, logger, registry, nil
}
