package strategy

import (
	"fmt"
	"math"

	"github.com/cinar/indicator"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/quantsim/analysis"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/portfolio"
)

// MeanReversion trades deviations from a rolling mean: it scores how far
// price has stretched from its lookback average (deviation, z-score,
// Bollinger-band breach, RSI extreme) and fades the move once the aggregate
// score clears a minimum strength. An SMA trend filter dampens signals that
// fight the prevailing trend.
type MeanReversion struct {
	base

	lookback      int
	zThreshold    float64
	rsiOversold   float64
	rsiOverbought float64
	deviationMin  float64
	minStrength   float64
	volumeConfirm bool
	trendFilter   bool
}

// NewMeanReversion builds a mean-reversion strategy from config. Recognized
// params: lookback_period, std_dev_threshold, rsi_oversold, rsi_overbought,
// mean_reversion_threshold, min_reversion_strength, volume_confirmation,
// trend_filter.
func NewMeanReversion(cfg Config, logger *logrus.Logger) (SignalSource, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("mean-reversion strategy: at least one symbol required")
	}

	m := &MeanReversion{
		base:          newBase(cfg, logger, "mean-reversion"),
		lookback:      int(cfg.param("lookback_period", 20)),
		zThreshold:    cfg.param("std_dev_threshold", 2.0),
		rsiOversold:   cfg.param("rsi_oversold", 30),
		rsiOverbought: cfg.param("rsi_overbought", 70),
		deviationMin:  cfg.param("mean_reversion_threshold", 0.05),
		minStrength:   cfg.param("min_reversion_strength", 0.5),
		volumeConfirm: cfg.boolParam("volume_confirmation", true),
		trendFilter:   cfg.boolParam("trend_filter", true),
	}
	if m.lookback < 2 {
		return nil, fmt.Errorf("mean-reversion strategy: lookback_period must be at least 2")
	}
	return m, nil
}

// GenerateSignals scores each configured symbol that has a quote for the
// date and enough history for the lookback window.
func (m *MeanReversion) GenerateSignals(quotes map[string]market.Quote, _ portfolio.Snapshot, hist market.History) []Signal {
	var signals []Signal

	for _, sym := range m.symbols {
		quote, ok := quotes[sym]
		if !ok {
			continue
		}
		series := hist[sym]
		if len(series) < m.lookback {
			m.log.WithField("symbol", sym).Debug("insufficient history for mean-reversion analysis")
			continue
		}

		if sig, ok := m.analyze(sym, quote, series); ok {
			signals = append(signals, sig)
		}
	}
	return signals
}

// ValidateSignal applies the shared base checks.
func (m *MeanReversion) ValidateSignal(sig Signal) bool { return ValidSignal(sig) }

func (m *MeanReversion) analyze(sym string, quote market.Quote, series []market.Quote) (Signal, bool) {
	prices := midPrices(series, m.lookback)
	volumes := quoteVolumes(series, m.lookback)
	last := len(prices) - 1

	current := quote.Mid()
	mean := analysis.Mean(prices)
	std := analysis.StdDev(prices)

	deviation := 0.0
	if mean > 0 {
		deviation = (current - mean) / mean
	}
	z := 0.0
	if std > 0 {
		z = (current - mean) / std
	}

	_, rsi := indicator.RsiPeriod(14, prices)
	_, bbUpper, bbLower := indicator.BollingerBands(prices)

	volumeWindow := volumes
	if len(volumeWindow) > 10 {
		volumeWindow = volumeWindow[len(volumeWindow)-10:]
	}
	avgVolume := analysis.Mean(volumeWindow)
	volumeRatio := 1.0
	if avgVolume > 0 {
		volumeRatio = float64(quote.BidSize+quote.AskSize) / avgVolume
	}

	var oversold, overbought float64

	// Stretch below/above the rolling mean, weighted by magnitude.
	if deviation < -m.deviationMin {
		oversold += math.Abs(deviation) * 2
	}
	if deviation > m.deviationMin {
		overbought += deviation * 2
	}

	// Z-score extremes, capped.
	if z < -m.zThreshold {
		oversold += math.Min(math.Abs(z)/m.zThreshold*0.3, 0.3)
	}
	if z > m.zThreshold {
		overbought += math.Min(z/m.zThreshold*0.3, 0.3)
	}

	// RSI extremes.
	if rsi[last] < m.rsiOversold {
		oversold += 0.25
	}
	if rsi[last] > m.rsiOverbought {
		overbought += 0.25
	}

	// Bollinger band breaches, weighted by breach depth.
	if bbLower[last] > 0 && current < bbLower[last] {
		oversold += math.Min((bbLower[last]-current)/bbLower[last]*2, 0.2)
	}
	if bbUpper[last] > 0 && current > bbUpper[last] {
		overbought += math.Min((current-bbUpper[last])/bbUpper[last]*2, 0.2)
	}

	// Elevated quoted volume confirms either extreme.
	if m.volumeConfirm && volumeRatio > 1.2 {
		oversold += 0.1
		overbought += 0.1
	}

	// Dampen signals that fade the prevailing trend.
	if m.trendFilter {
		smaShort := indicator.Sma(10, prices)
		smaLong := indicator.Sma(20, prices)
		if smaShort[last] < smaLong[last] {
			oversold *= 0.7
		} else if smaShort[last] > smaLong[last] {
			overbought *= 0.7
		}
	}

	switch {
	case oversold > overbought && oversold >= m.minStrength:
		return Signal{
			Symbol:   sym,
			Type:     Buy,
			Strength: clampStrength(oversold),
			Meta:     m.meta(),
		}, true
	case overbought > oversold && overbought >= m.minStrength && m.holdings[sym] > 0:
		return Signal{
			Symbol:   sym,
			Type:     Sell,
			Strength: clampStrength(overbought),
			Meta:     m.meta(),
		}, true
	}
	return Signal{}, false
}
