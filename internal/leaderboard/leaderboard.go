package leaderboard

import (
	"sort"

	"github.com/trendscout/trendscout/internal/backtest"
)

// Entry is one ranked configuration. Symbol is empty for cross-symbol
// entries.
type Entry struct {
	ConfigID  string           `json:"config_id"`
	Metrics   backtest.Metrics `json:"metrics"`
	Symbol    string           `json:"symbol,omitempty"`
	SessionID string           `json:"session_id"`
	Rank      int              `json:"rank"`
}

// Leaderboard is a bounded top-N set of entries ordered by a rank metric,
// descending. Size never exceeds the capacity it was created with.
type Leaderboard struct {
	capacity int
	metric   func(backtest.Metrics) float64
	entries  []Entry
}

// New returns a leaderboard ranked by Sharpe ratio.
func New(capacity int) *Leaderboard {
	return NewWithMetric(capacity, func(m backtest.Metrics) float64 { return m.Sharpe })
}

func NewWithMetric(capacity int, metric func(backtest.Metrics) float64) *Leaderboard {
	if capacity < 1 {
		capacity = 1
	}
	return &Leaderboard{capacity: capacity, metric: metric}
}

// TryInsert offers an entry to the board and reports whether it was kept.
// A known config id is replaced in place when the new entry beats the old
// one. A full board admits the entry only if it beats the current worst;
// exact metric ties fall back to the higher trade count, and an entry equal
// on both never displaces an existing one.
func (l *Leaderboard) TryInsert(e Entry) bool {
	for i := range l.entries {
		if l.entries[i].ConfigID == e.ConfigID && l.entries[i].Symbol == e.Symbol {
			if !l.beats(e, l.entries[i]) {
				return false
			}
			l.entries[i] = e
			l.rerank()
			return true
		}
	}

	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, e)
		l.rerank()
		return true
	}

	worst := len(l.entries) - 1
	if !l.beats(e, l.entries[worst]) {
		return false
	}
	l.entries[worst] = e
	l.rerank()
	return true
}

// Entries returns the current ranking, best first.
func (l *Leaderboard) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Leaderboard) Len() int {
	return len(l.entries)
}

func (l *Leaderboard) beats(a, b Entry) bool {
	av, bv := l.metric(a.Metrics), l.metric(b.Metrics)
	if av != bv {
		return av > bv
	}
	return a.Metrics.Trades > b.Metrics.Trades
}

func (l *Leaderboard) rerank() {
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.beats(l.entries[i], l.entries[j])
	})
	for i := range l.entries {
		l.entries[i].Rank = i + 1
	}
}
