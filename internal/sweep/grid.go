package sweep

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ParamEntryLookback = "entry_lookback"
	ParamExitLookback  = "exit_lookback"
)

var (
	defaultEntryLookbacks = []int{10, 20, 30, 40, 50}
	defaultExitLookbacks  = []int{5, 10, 15, 20, 25}
)

// Combo is one point of the sweep grid.
type Combo struct {
	EntryLookback int `json:"entry_lookback"`
	ExitLookback  int `json:"exit_lookback"`
}

// ConfigID returns the stable identity of the combo. Leaderboard entries and
// persisted results are keyed by this string.
func (c Combo) ConfigID() string {
	return fmt.Sprintf("donchian_%d_%d", c.EntryLookback, c.ExitLookback)
}

// Grid is an ordered, duplicate-free sequence of parameter combos. Order is
// the nested iteration order of the resolved value lists, entry lookback
// varying slowest, so progress percentages are reproducible across runs.
type Grid struct {
	Combos []Combo `json:"combos"`
}

func (g Grid) Size() int {
	return len(g.Combos)
}

// ValidationError reports a parameter whose supplied values could not be
// parsed. It names the parameter so callers can surface it verbatim.
type ValidationError struct {
	Param  string
	Values []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid values for %q: %s", e.Param, strings.Join(e.Values, ","))
}

// Build expands the supplied parameter ranges into a Grid. Each value is
// parsed as a positive integer; values that fail to parse are skipped, but a
// non-empty input yielding zero usable values is a validation error rather
// than a silent fallback. Omitted parameters take the documented defaults.
func Build(paramRanges map[string][]string) (Grid, error) {
	entries, err := resolveParam(paramRanges, ParamEntryLookback, defaultEntryLookbacks)
	if err != nil {
		return Grid{}, err
	}
	exits, err := resolveParam(paramRanges, ParamExitLookback, defaultExitLookbacks)
	if err != nil {
		return Grid{}, err
	}

	seen := make(map[Combo]struct{}, len(entries)*len(exits))
	combos := make([]Combo, 0, len(entries)*len(exits))
	for _, entry := range entries {
		for _, exit := range exits {
			combo := Combo{EntryLookback: entry, ExitLookback: exit}
			if _, ok := seen[combo]; ok {
				continue
			}
			seen[combo] = struct{}{}
			combos = append(combos, combo)
		}
	}

	return Grid{Combos: combos}, nil
}

func resolveParam(paramRanges map[string][]string, name string, defaults []int) ([]int, error) {
	raw, ok := paramRanges[name]
	if !ok {
		return defaults, nil
	}

	values := make([]int, 0, len(raw))
	nonEmpty := false
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		nonEmpty = true
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			continue
		}
		values = append(values, v)
	}

	if len(values) == 0 {
		if nonEmpty {
			return nil, &ValidationError{Param: name, Values: raw}
		}
		return defaults, nil
	}
	return values, nil
}

// ParseValues splits a comma-separated flag value into the raw string list
// Build expects, preserving order.
func ParseValues(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
