package leaderboard

import (
	"encoding/json"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/trendscout/trendscout/internal/backtest"
	"github.com/trendscout/trendscout/internal/fileio"
)

// AggregatedMetrics summarizes one configuration's performance across all
// symbols it was evaluated on.
type AggregatedMetrics struct {
	AvgSharpe     float64 `json:"avg_sharpe"`
	MinSharpe     float64 `json:"min_sharpe"`
	MaxSharpe     float64 `json:"max_sharpe"`
	GeoMeanCAGR   float64 `json:"geo_mean_cagr"`
	WorstDrawdown float64 `json:"worst_drawdown"`
	AvgDrawdown   float64 `json:"avg_drawdown"`
	HitRate       float64 `json:"hit_rate"`
	AvgTrades     float64 `json:"avg_trades"`
	Symbols       int     `json:"symbols"`
}

// Aggregate folds per-symbol metrics into cross-symbol aggregates. The CAGR
// aggregate is a geometric mean computed over log growth factors; a symbol
// wiped out to -100% pins it at -1.
func Aggregate(perSymbol []backtest.Metrics) AggregatedMetrics {
	agg := AggregatedMetrics{Symbols: len(perSymbol)}
	if len(perSymbol) == 0 {
		return agg
	}

	agg.MinSharpe = perSymbol[0].Sharpe
	agg.MaxSharpe = perSymbol[0].Sharpe

	logSum := 0.0
	wipedOut := false
	for _, m := range perSymbol {
		agg.AvgSharpe += m.Sharpe
		agg.MinSharpe = math.Min(agg.MinSharpe, m.Sharpe)
		agg.MaxSharpe = math.Max(agg.MaxSharpe, m.Sharpe)
		agg.AvgDrawdown += m.MaxDrawdown
		agg.WorstDrawdown = math.Max(agg.WorstDrawdown, m.MaxDrawdown)
		agg.HitRate += m.HitRate
		agg.AvgTrades += float64(m.Trades)

		if m.CAGR <= -1 {
			wipedOut = true
		} else {
			logSum += math.Log1p(m.CAGR)
		}
	}

	n := float64(len(perSymbol))
	agg.AvgSharpe /= n
	agg.AvgDrawdown /= n
	agg.HitRate /= n
	agg.AvgTrades /= n
	if wipedOut {
		agg.GeoMeanCAGR = -1
	} else {
		agg.GeoMeanCAGR = math.Expm1(logSum / n)
	}

	return agg
}

// RankMetric selects how cross-symbol entries are ordered. Values are the
// wire names used in config and the persistence document.
type RankMetric string

const (
	RankAvgSharpe     RankMetric = "avg_sharpe"
	RankMinSharpe     RankMetric = "min_sharpe"
	RankGeoMeanCAGR   RankMetric = "geo_mean_cagr"
	RankWorstDrawdown RankMetric = "worst_drawdown"
)

func ParseRankMetric(s string) (RankMetric, error) {
	switch RankMetric(s) {
	case RankAvgSharpe, RankMinSharpe, RankGeoMeanCAGR, RankWorstDrawdown:
		return RankMetric(s), nil
	default:
		return "", errors.Errorf("unknown rank metric %q", s)
	}
}

// Value maps the aggregate onto a scalar where higher is always better, so
// drawdown is negated.
func (r RankMetric) Value(a AggregatedMetrics) float64 {
	switch r {
	case RankMinSharpe:
		return a.MinSharpe
	case RankGeoMeanCAGR:
		return a.GeoMeanCAGR
	case RankWorstDrawdown:
		return -a.WorstDrawdown
	default:
		return a.AvgSharpe
	}
}

// CrossSymbolEntry is one configuration's cross-symbol standing.
type CrossSymbolEntry struct {
	ConfigID  string            `json:"config_id"`
	Metrics   AggregatedMetrics `json:"metrics"`
	SessionID string            `json:"session_id"`
	Rank      int               `json:"rank"`
}

// CrossSymbol maintains the bounded cross-symbol leaderboard. It accumulates
// per-symbol metrics per configuration and keeps the aggregates re-ranked as
// results stream in.
type CrossSymbol struct {
	capacity  int
	metric    RankMetric
	perConfig map[string][]backtest.Metrics
	entries   []CrossSymbolEntry
}

func NewCrossSymbol(capacity int, metric RankMetric) *CrossSymbol {
	if capacity < 1 {
		capacity = 1
	}
	return &CrossSymbol{
		capacity:  capacity,
		metric:    metric,
		perConfig: make(map[string][]backtest.Metrics),
	}
}

// Observe records one symbol's result for the configuration and refreshes
// the board with the updated aggregate.
func (c *CrossSymbol) Observe(configID, sessionID string, m backtest.Metrics) {
	c.perConfig[configID] = append(c.perConfig[configID], m)
	agg := Aggregate(c.perConfig[configID])
	c.upsert(CrossSymbolEntry{ConfigID: configID, Metrics: agg, SessionID: sessionID})
}

func (c *CrossSymbol) Entries() []CrossSymbolEntry {
	out := make([]CrossSymbolEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *CrossSymbol) upsert(e CrossSymbolEntry) {
	for i := range c.entries {
		if c.entries[i].ConfigID == e.ConfigID {
			c.entries[i] = e
			c.rerank()
			return
		}
	}

	if len(c.entries) < c.capacity {
		c.entries = append(c.entries, e)
		c.rerank()
		return
	}

	worst := len(c.entries) - 1
	if !c.beats(e, c.entries[worst]) {
		return
	}
	c.entries[worst] = e
	c.rerank()
}

func (c *CrossSymbol) beats(a, b CrossSymbolEntry) bool {
	av, bv := c.metric.Value(a.Metrics), c.metric.Value(b.Metrics)
	if av != bv {
		return av > bv
	}
	return a.Metrics.AvgTrades > b.Metrics.AvgTrades
}

func (c *CrossSymbol) rerank() {
	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.beats(c.entries[i], c.entries[j])
	})
	for i := range c.entries {
		c.entries[i].Rank = i + 1
	}
}

// document is the persisted shape of the cross-symbol leaderboard.
type document struct {
	RankMetric RankMetric         `json:"rank_metric"`
	Entries    []CrossSymbolEntry `json:"entries"`
}

// Save writes the board to the given path, temp-then-rename so readers never
// observe a torn document.
func (c *CrossSymbol) Save(w *fileio.Writer, path string) error {
	doc := document{RankMetric: c.metric, Entries: c.entries}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding leaderboard")
	}
	return w.WriteFileAtomic(path, data)
}

// Load restores a previously saved board. A missing file is an empty board;
// malformed JSON is an error, never silently discarded.
func Load(w *fileio.Writer, path string, capacity int, metric RankMetric) (*CrossSymbol, error) {
	c := NewCrossSymbol(capacity, metric)

	data, err := w.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing leaderboard file %s", path)
	}
	if doc.RankMetric != "" {
		c.metric = doc.RankMetric
	}
	c.entries = doc.Entries
	c.rerank()
	return c, nil
}
