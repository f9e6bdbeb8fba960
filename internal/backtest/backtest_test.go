package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trendscout/trendscout/internal/store/model"
	"github.com/trendscout/trendscout/internal/sweep"
)

func trendingBars(n int) []model.Bar {
	bars := make([]model.Bar, 0, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price *= 1.01
		bars = append(bars, model.Bar{
			Symbol:    "TEST",
			Timestamp: start.AddDate(0, 0, i),
			Open:      price * 0.995,
			High:      price * 1.005,
			Low:       price * 0.99,
			Close:     price,
			Volume:    1000,
		})
	}
	return bars
}

func TestSimulateInsufficientData(t *testing.T) {
	d := NewDonchian()
	_, err := d.Simulate(trendingBars(10), sweep.Combo{EntryLookback: 20, ExitLookback: 10})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestSimulateDeterministic(t *testing.T) {
	d := NewDonchian()
	bars := trendingBars(300)
	combo := sweep.Combo{EntryLookback: 20, ExitLookback: 10}

	first, err := d.Simulate(bars, combo)
	require.NoError(t, err)
	second, err := d.Simulate(bars, combo)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSimulateCapturesUptrend(t *testing.T) {
	d := NewDonchian()
	res, err := d.Simulate(trendingBars(300), sweep.Combo{EntryLookback: 20, ExitLookback: 10})
	require.NoError(t, err)

	// a steady uptrend should be entered and held profitably
	require.Greater(t, res.Equity[len(res.Equity)-1], 1.0)
	require.GreaterOrEqual(t, res.Metrics.Trades, 1)
	require.Greater(t, res.Metrics.Sharpe, 0.0)
}

func TestComputeMetricsFlatEquity(t *testing.T) {
	m := ComputeMetrics([]float64{1, 1, 1, 1}, nil)
	require.Zero(t, m.Sharpe)
	require.Zero(t, m.MaxDrawdown)
	require.Zero(t, m.Trades)
}

func TestComputeMetricsDrawdown(t *testing.T) {
	m := ComputeMetrics([]float64{1, 1.2, 0.9, 1.1}, []float64{0.2, -0.25})
	require.InDelta(t, 0.25, m.MaxDrawdown, 1e-9)
	require.InDelta(t, 0.5, m.HitRate, 1e-9)
	require.Equal(t, 2, m.Trades)
}

func TestComputeMetricsCAGR(t *testing.T) {
	// 252 daily returns doubling the equity is a 100% CAGR
	equity := make([]float64, 253)
	for i := range equity {
		equity[i] = math.Pow(2, float64(i)/252)
	}
	m := ComputeMetrics(equity, nil)
	require.InDelta(t, 1.0, m.CAGR, 1e-6)
}
