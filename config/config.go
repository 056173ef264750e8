// Package config loads the simulation configuration from YAML or JSON
// files and applies defaults and validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/logging"
	"github.com/rustyeddy/quantsim/strategy"
)

// Config is the complete run configuration.
type Config struct {
	Account     AccountConfig              `json:"account" yaml:"account"`
	Costs       backtest.CostParams        `json:"costs" yaml:"costs"`
	Strategy    strategy.Config            `json:"strategy" yaml:"strategy"`
	WalkForward backtest.WalkForwardParams `json:"walk_forward" yaml:"walk_forward"`
	MonteCarlo  backtest.MonteCarloParams  `json:"monte_carlo" yaml:"monte_carlo"`
	Logging     logging.Config             `json:"logging" yaml:"logging"`
}

// AccountConfig holds the simulated account parameters.
type AccountConfig struct {
	ID             string  `json:"id" yaml:"id"`
	Currency       string  `json:"currency" yaml:"currency"`
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
}

// Default returns a config with the standard cost schedule, $100k capital
// and the default analysis windows.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:             "SIM-BACKTEST",
			Currency:       "USD",
			InitialCapital: 100_000,
		},
		Costs:       backtest.DefaultCostParams(),
		WalkForward: backtest.DefaultWalkForwardParams(),
		MonteCarlo:  backtest.DefaultMonteCarloParams(),
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// LoadFromFile reads a YAML or JSON config file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the engine's configuration constraints.
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("config: initial capital must be positive, got %v", c.Account.InitialCapital)
	}

	costs := []struct {
		name  string
		value float64
	}{
		{"commission_per_share", c.Costs.CommissionPerShare},
		{"commission_min", c.Costs.CommissionMin},
		{"commission_max", c.Costs.CommissionMax},
		{"spread_cost_factor", c.Costs.SpreadCostFactor},
		{"market_impact_factor", c.Costs.MarketImpactFactor},
		{"slippage_factor", c.Costs.SlippageFactor},
	}
	for _, cost := range costs {
		if cost.value < 0 {
			return fmt.Errorf("config: %s must be non-negative, got %v", cost.name, cost.value)
		}
	}
	if c.Costs.CommissionMax < c.Costs.CommissionMin {
		return fmt.Errorf("config: commission_max %v below commission_min %v",
			c.Costs.CommissionMax, c.Costs.CommissionMin)
	}

	wf := c.WalkForward
	if wf.TrainingMonths <= 0 || wf.TestingMonths <= 0 || wf.StepMonths <= 0 {
		return fmt.Errorf("config: walk-forward window sizes must be positive months")
	}

	if c.MonteCarlo.Simulations <= 0 {
		return fmt.Errorf("config: monte carlo simulation count must be positive")
	}
	for _, level := range c.MonteCarlo.ConfidenceLevels {
		if level <= 0 || level >= 1 {
			return fmt.Errorf("config: confidence level %v outside (0, 1)", level)
		}
	}

	return nil
}
