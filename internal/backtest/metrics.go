package backtest

import "math"

const tradingDaysPerYear = 252

// Metrics summarizes one backtest run.
type Metrics struct {
	Sharpe      float64 `json:"sharpe"`
	CAGR        float64 `json:"cagr"`
	MaxDrawdown float64 `json:"max_drawdown"`
	HitRate     float64 `json:"hit_rate"`
	Trades      int     `json:"trades"`
}

// ComputeMetrics derives summary metrics from a daily equity curve and the
// per-trade returns. The Sharpe ratio is annualized assuming daily bars and
// a zero risk-free rate. Max drawdown is reported as a positive fraction.
func ComputeMetrics(equity []float64, trades []float64) Metrics {
	m := Metrics{Trades: len(trades)}
	if len(equity) < 2 {
		return m
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		returns = append(returns, equity[i]/equity[i-1]-1)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std > 0 {
		m.Sharpe = mean / std * math.Sqrt(tradingDaysPerYear)
	}

	years := float64(len(returns)) / tradingDaysPerYear
	final := equity[len(equity)-1] / equity[0]
	if years > 0 && final > 0 {
		m.CAGR = math.Pow(final, 1/years) - 1
	}

	peak := equity[0]
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		dd := 1 - e/peak
		if dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
		}
	}

	if len(trades) > 0 {
		wins := 0
		for _, t := range trades {
			if t > 0 {
				wins++
			}
		}
		m.HitRate = float64(wins) / float64(len(trades))
	}

	return m
}
