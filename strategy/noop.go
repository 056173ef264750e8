package strategy

import (
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/portfolio"
)

// Noop never signals. Useful as a baseline run and in tests.
type Noop struct {
	base
}

// NewNoop builds a strategy that holds cash forever.
func NewNoop(cfg Config, logger *logrus.Logger) (SignalSource, error) {
	return &Noop{base: newBase(cfg, logger, "noop")}, nil
}

func (n *Noop) GenerateSignals(map[string]market.Quote, portfolio.Snapshot, market.History) []Signal {
	return nil
}

func (n *Noop) ValidateSignal(sig Signal) bool { return ValidSignal(sig) }
