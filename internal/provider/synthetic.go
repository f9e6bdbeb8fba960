package provider

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trendscout/trendscout/internal/store/model"
)

var ErrUnknownSymbol = errors.New("unknown symbol")

// syntheticUniverse is the set of symbols the synthetic provider recognizes.
var syntheticUniverse = []string{
	"ADBE", "AMD", "AMZN", "AVGO", "CRM", "GOOG", "INTC", "META",
	"MSFT", "NFLX", "NVDA", "ORCL", "QCOM", "TSLA", "TXN",
}

// Synthetic generates deterministic random-walk daily bars. The walk is
// seeded by the symbol name, so the same symbol and date range always yields
// the same series. Used for offline research and tests.
type Synthetic struct {
	universe []string
}

func NewSynthetic() *Synthetic {
	return &Synthetic{universe: syntheticUniverse}
}

func (s *Synthetic) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.known(symbol) {
		return nil, errors.Wrap(ErrUnknownSymbol, symbol)
	}
	if end.Before(start) {
		return nil, errors.Errorf("end %s precedes start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	rng := rand.New(rand.NewSource(int64(seed(symbol))))
	price := 50 + rng.Float64()*150
	drift := (rng.Float64() - 0.45) * 0.002
	vol := 0.005 + rng.Float64()*0.02

	var bars []model.Bar
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		open := price
		price *= math.Exp(drift + vol*rng.NormFloat64())
		high := math.Max(open, price) * (1 + rng.Float64()*0.005)
		low := math.Min(open, price) * (1 - rng.Float64()*0.005)
		bars = append(bars, model.Bar{
			Symbol:    symbol,
			Timestamp: d,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    float64(100000 + rng.Intn(900000)),
		})
	}
	return bars, nil
}

// Search returns universe symbols containing the query, case-insensitive.
// An empty query matches nothing.
func (s *Synthetic) Search(ctx context.Context, query string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	var matches []string
	for _, sym := range s.universe {
		if strings.Contains(sym, query) {
			matches = append(matches, sym)
		}
	}
	return matches, nil
}

func (s *Synthetic) known(symbol string) bool {
	for _, sym := range s.universe {
		if sym == symbol {
			return true
		}
	}
	return false
}

func seed(symbol string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum32()
}
