package backtest

import (
	"github.com/pkg/errors"

	"github.com/trendscout/trendscout/internal/store/model"
	"github.com/trendscout/trendscout/internal/sweep"
)

var ErrInsufficientData = errors.New("not enough bars for the requested lookbacks")

// Result is the outcome of simulating one configuration over one symbol's
// bar history.
type Result struct {
	Metrics Metrics   `json:"metrics"`
	Equity  []float64 `json:"equity"`
}

// Simulator evaluates one parameter combo against a bar series. The worker
// treats the concrete strategy as opaque behind this interface.
type Simulator interface {
	Simulate(bars []model.Bar, combo sweep.Combo) (Result, error)
}

// Donchian is a long-only channel-breakout simulator: it enters when the
// close breaks above the highest high of the prior entry-lookback bars and
// exits when the close breaks below the lowest low of the prior
// exit-lookback bars. One unit of equity, no costs.
type Donchian struct{}

func NewDonchian() *Donchian {
	return &Donchian{}
}

func (d *Donchian) Simulate(bars []model.Bar, combo sweep.Combo) (Result, error) {
	warmup := combo.EntryLookback
	if combo.ExitLookback > warmup {
		warmup = combo.ExitLookback
	}
	if len(bars) <= warmup+1 {
		return Result{}, errors.Wrapf(ErrInsufficientData,
			"have %d bars, need more than %d", len(bars), warmup+1)
	}

	equity := make([]float64, 0, len(bars))
	equity = append(equity, 1.0)

	inPosition := false
	entryPrice := 0.0
	var trades []float64

	for i := warmup; i < len(bars)-1; i++ {
		if !inPosition {
			if bars[i].Close > highestHigh(bars, i, combo.EntryLookback) {
				inPosition = true
				entryPrice = bars[i+1].Open
			}
		} else if bars[i].Close < lowestLow(bars, i, combo.ExitLookback) {
			exitPrice := bars[i+1].Open
			trades = append(trades, exitPrice/entryPrice-1)
			inPosition = false
		}

		last := equity[len(equity)-1]
		if inPosition {
			equity = append(equity, last*(bars[i+1].Close/bars[i].Close))
		} else {
			equity = append(equity, last)
		}
	}

	if inPosition {
		trades = append(trades, bars[len(bars)-1].Close/entryPrice-1)
	}

	return Result{
		Metrics: ComputeMetrics(equity, trades),
		Equity:  equity,
	}, nil
}

// highestHigh is the channel top over the lookback bars strictly before i.
func highestHigh(bars []model.Bar, i, lookback int) float64 {
	h := bars[i-lookback].High
	for j := i - lookback + 1; j < i; j++ {
		if bars[j].High > h {
			h = bars[j].High
		}
	}
	return h
}

func lowestLow(bars []model.Bar, i, lookback int) float64 {
	l := bars[i-lookback].Low
	for j := i - lookback + 1; j < i; j++ {
		if bars[j].Low < l {
			l = bars[j].Low
		}
	}
	return l
}
