package worker

import (
	"time"

	"github.com/trendscout/trendscout/internal/leaderboard"
	"github.com/trendscout/trendscout/internal/sweep"
)

// Command is one request to the worker. Variants form a closed set matched
// exhaustively at the dispatch point.
type Command interface {
	isCommand()
	jobID() string
}

type FetchDataCommand struct {
	JobID   string
	Symbols []string
	Start   time.Time
	End     time.Time
	Force   bool
}

type SearchSymbolsCommand struct {
	JobID string
	Query string
}

type RunSweepCommand struct {
	JobID   string
	Grid    sweep.Grid
	Symbols []string
}

type CancelCommand struct{}

func (FetchDataCommand) isCommand()     {}
func (SearchSymbolsCommand) isCommand() {}
func (RunSweepCommand) isCommand()      {}
func (CancelCommand) isCommand()        {}

func (c FetchDataCommand) jobID() string     { return c.JobID }
func (c SearchSymbolsCommand) jobID() string { return c.JobID }
func (c RunSweepCommand) jobID() string      { return c.JobID }
func (CancelCommand) jobID() string          { return "" }

// Update is one asynchronous reply from the worker. For a given job,
// progress updates arrive in completion order and the terminal update is
// always last.
type Update interface {
	isUpdate()
}

type ProgressUpdate struct {
	JobID     string
	Completed int
	Total     int
	Message   string
}

type CompletedUpdate struct {
	JobID  string
	Result any
}

type FailedUpdate struct {
	JobID string
	Err   error
}

type CancelledUpdate struct {
	JobID string
}

func (ProgressUpdate) isUpdate()  {}
func (CompletedUpdate) isUpdate() {}
func (FailedUpdate) isUpdate()    {}
func (CancelledUpdate) isUpdate() {}

// FetchResult is the terminal result of a FetchData command. Per-symbol
// failures accumulate in Errors; the job itself fails only when no symbol
// succeeded.
type FetchResult struct {
	Fetched []string          `json:"fetched"`
	Skipped []string          `json:"skipped"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type SearchResult struct {
	Matches []string `json:"matches"`
}

// SweepSummary is the terminal result of a RunSweep command.
type SweepSummary struct {
	SessionID   string                         `json:"session_id"`
	Evaluated   int                            `json:"evaluated"`
	PerSymbol   map[string][]leaderboard.Entry `json:"per_symbol"`
	CrossSymbol []leaderboard.CrossSymbolEntry `json:"cross_symbol"`
	Errors      map[string]string              `json:"errors,omitempty"`
}
