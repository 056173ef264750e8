package strategy

import (
	"fmt"

	"github.com/cinar/indicator"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/portfolio"
)

// Momentum is a trend-following strategy: it scores RSI posture, MACD
// crossovers, raw price momentum, quoted-volume surges and the short/long
// SMA trend, and signals when the aggregate score clears a minimum
// strength.
type Momentum struct {
	base

	lookback       int
	rsiOversold    float64
	rsiOverbought  float64
	priceChangeMin float64
	volumeSurgeMin float64
	minStrength    float64
}

// NewMomentum builds a momentum strategy from config. Recognized params:
// lookback_period, rsi_oversold, rsi_overbought, price_change_threshold,
// volume_threshold, min_momentum_strength.
func NewMomentum(cfg Config, logger *logrus.Logger) (SignalSource, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("momentum strategy: at least one symbol required")
	}

	m := &Momentum{
		base:           newBase(cfg, logger, "momentum"),
		lookback:       int(cfg.param("lookback_period", 20)),
		rsiOversold:    cfg.param("rsi_oversold", 30),
		rsiOverbought:  cfg.param("rsi_overbought", 70),
		priceChangeMin: cfg.param("price_change_threshold", 0.02),
		volumeSurgeMin: cfg.param("volume_threshold", 1.5),
		minStrength:    cfg.param("min_momentum_strength", 0.6),
	}
	if m.lookback < 2 {
		return nil, fmt.Errorf("momentum strategy: lookback_period must be at least 2")
	}
	return m, nil
}

// GenerateSignals scores each configured symbol that has a quote for the
// date and enough history for the lookback window.
func (m *Momentum) GenerateSignals(quotes map[string]market.Quote, _ portfolio.Snapshot, hist market.History) []Signal {
	var signals []Signal

	for _, sym := range m.symbols {
		quote, ok := quotes[sym]
		if !ok {
			continue
		}
		series := hist[sym]
		if len(series) < m.lookback {
			m.log.WithField("symbol", sym).Debug("insufficient history for momentum analysis")
			continue
		}

		if sig, ok := m.analyze(sym, quote, series); ok {
			signals = append(signals, sig)
		}
	}
	return signals
}

// ValidateSignal applies the shared base checks.
func (m *Momentum) ValidateSignal(sig Signal) bool { return ValidSignal(sig) }

func (m *Momentum) analyze(sym string, quote market.Quote, series []market.Quote) (Signal, bool) {
	prices := midPrices(series, m.lookback)
	volumes := quoteVolumes(series, m.lookback)

	_, rsi := indicator.RsiPeriod(14, prices)
	macdLine, macdSignal := indicator.Macd(prices)
	smaShort := indicator.Sma(10, prices)
	smaLong := indicator.Sma(20, prices)

	current := quote.Mid()
	last := len(prices) - 1

	priceChange := 0.0
	if prices[last-1] > 0 {
		priceChange = (current - prices[last-1]) / prices[last-1]
	}

	volumeWindow := volumes
	if len(volumeWindow) > 10 {
		volumeWindow = volumeWindow[len(volumeWindow)-10:]
	}
	avgVolume := 0.0
	for _, v := range volumeWindow {
		avgVolume += v
	}
	avgVolume /= float64(len(volumeWindow))

	volumeRatio := 1.0
	if avgVolume > 0 {
		volumeRatio = float64(quote.BidSize+quote.AskSize) / avgVolume
	}

	var bull, bear float64

	// RSI posture: momentum without being overbought.
	if rsi[last] > 50 && rsi[last] < m.rsiOverbought {
		bull += 0.2
	}
	if rsi[last] > m.rsiOverbought {
		bear += 0.2
	} else if rsi[last] < 50 {
		bear += 0.1
	}

	// MACD: crossovers score highest, holding above/below the signal line
	// scores a residual.
	if last > 0 {
		switch {
		case macdLine[last] > macdSignal[last] && macdLine[last-1] <= macdSignal[last-1]:
			bull += 0.3
		case macdLine[last] > macdSignal[last]:
			bull += 0.1
		}
		switch {
		case macdLine[last] < macdSignal[last] && macdLine[last-1] >= macdSignal[last-1]:
			bear += 0.3
		case macdLine[last] < macdSignal[last]:
			bear += 0.1
		}
	}

	// Raw price momentum.
	switch {
	case priceChange > m.priceChangeMin:
		bull += 0.25
	case priceChange > 0:
		bull += 0.1
	}
	switch {
	case priceChange < -m.priceChangeMin:
		bear += 0.25
	case priceChange < 0:
		bear += 0.1
	}

	// Volume surge confirms the bull case only.
	if volumeRatio > m.volumeSurgeMin {
		bull += 0.15
	}

	// SMA trend.
	if smaShort[last] > smaLong[last] {
		bull += 0.1
	} else if smaShort[last] < smaLong[last] {
		bear += 0.1
	}

	switch {
	case bull > bear && bull >= m.minStrength:
		return Signal{
			Symbol:   sym,
			Type:     Buy,
			Strength: clampStrength(bull),
			Meta:     m.meta(),
		}, true
	case bear > bull && bear >= m.minStrength && m.holdings[sym] > 0:
		// Only sell into weakness when there is a long to unwind.
		return Signal{
			Symbol:   sym,
			Type:     Sell,
			Strength: clampStrength(bear),
			Meta:     m.meta(),
		}, true
	}
	return Signal{}, false
}

func clampStrength(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}
