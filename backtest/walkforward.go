package backtest

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/quantsim/analysis"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/strategy"
)

// Windows are measured in 30-day months.
const monthDays = 30

// WalkForwardParams sizes the rolling training/testing windows, in whole
// months.
type WalkForwardParams struct {
	TrainingMonths int `json:"training_months" yaml:"training_months"`
	TestingMonths  int `json:"testing_months" yaml:"testing_months"`
	StepMonths     int `json:"step_months" yaml:"step_months"`
}

// DefaultWalkForwardParams is a year of training, a quarter of testing,
// stepping one month at a time.
func DefaultWalkForwardParams() WalkForwardParams {
	return WalkForwardParams{TrainingMonths: 12, TestingMonths: 3, StepMonths: 1}
}

func (p WalkForwardParams) validate() error {
	if p.TrainingMonths <= 0 || p.TestingMonths <= 0 || p.StepMonths <= 0 {
		return fmt.Errorf("walk-forward window sizes must be positive months")
	}
	return nil
}

// WindowResult is one out-of-sample evaluation.
type WindowResult struct {
	TrainingStart time.Time
	TrainingEnd   time.Time
	TestingStart  time.Time
	TestingEnd    time.Time

	TotalReturn float64
	SharpeRatio float64
	MaxDrawdown float64
	WinRate     float64
	TotalTrades int
}

// WalkForwardStats aggregates the per-window outcomes.
type WalkForwardStats struct {
	WindowsTested    int
	MeanReturn       float64
	ReturnStdDev     float64
	MeanSharpe       float64
	MeanDrawdown     float64
	WorstDrawdown    float64
	PositiveWindows  int
	ConsistencyRatio float64
}

// WalkForwardResult carries the per-window results and their aggregate.
type WalkForwardResult struct {
	Windows []WindowResult
	Stats   WalkForwardStats
	Params  WalkForwardParams
}

// RunWalkForward slices [start, end] into rolling (training, testing)
// windows and evaluates the strategy out-of-sample on each testing window.
// The training window is reserved for parameter fitting by the caller; the
// engine itself does not refit, it only evaluates the given instance per
// window. Zero qualifying windows is not an error: the aggregate is simply
// empty.
func (b *Backtester) RunWalkForward(strat strategy.SignalSource, hist market.History, start, end time.Time, params WalkForwardParams) (*WalkForwardResult, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	log := b.logger.WithField("component", "walkforward")
	log.WithFields(logrus.Fields{
		"strategy": strat.ID(),
		"training": params.TrainingMonths,
		"testing":  params.TestingMonths,
		"step":     params.StepMonths,
	}).Info("starting walk-forward analysis")

	var windows []WindowResult

	for cur := start; cur.Before(end); cur = cur.AddDate(0, 0, params.StepMonths*monthDays) {
		trainEnd := cur.AddDate(0, 0, params.TrainingMonths*monthDays)
		testStart := trainEnd
		testEnd := testStart.AddDate(0, 0, params.TestingMonths*monthDays)

		if testEnd.After(end) {
			break
		}

		res, err := b.Run(strat, hist, testStart, testEnd)
		if err != nil {
			return nil, fmt.Errorf("walk-forward window %s..%s: %w",
				testStart.Format("2006-01-02"), testEnd.Format("2006-01-02"), err)
		}

		windows = append(windows, WindowResult{
			TrainingStart: cur,
			TrainingEnd:   trainEnd,
			TestingStart:  testStart,
			TestingEnd:    testEnd,
			TotalReturn:   res.TotalReturn,
			SharpeRatio:   res.SharpeRatio,
			MaxDrawdown:   res.MaxDrawdown,
			WinRate:       res.WinRate,
			TotalTrades:   res.TotalTrades,
		})
	}

	result := &WalkForwardResult{
		Windows: windows,
		Stats:   aggregateWindows(windows),
		Params:  params,
	}

	log.WithField("windows", len(windows)).Info("walk-forward analysis complete")
	return result, nil
}

func aggregateWindows(windows []WindowResult) WalkForwardStats {
	if len(windows) == 0 {
		return WalkForwardStats{}
	}

	returns := make([]float64, len(windows))
	sharpes := make([]float64, len(windows))
	drawdowns := make([]float64, len(windows))
	positive := 0

	for i, w := range windows {
		returns[i] = w.TotalReturn
		sharpes[i] = w.SharpeRatio
		drawdowns[i] = w.MaxDrawdown
		if w.TotalReturn > 0 {
			positive++
		}
	}

	worst := drawdowns[0]
	for _, d := range drawdowns[1:] {
		if d > worst {
			worst = d
		}
	}

	return WalkForwardStats{
		WindowsTested:    len(windows),
		MeanReturn:       analysis.Mean(returns),
		ReturnStdDev:     analysis.StdDev(returns),
		MeanSharpe:       analysis.Mean(sharpes),
		MeanDrawdown:     analysis.Mean(drawdowns),
		WorstDrawdown:    worst,
		PositiveWindows:  positive,
		ConsistencyRatio: float64(positive) / float64(len(windows)),
	}
}
