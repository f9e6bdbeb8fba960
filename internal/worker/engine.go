package worker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/trendscout/trendscout/internal/backtest"
	"github.com/trendscout/trendscout/internal/companion"
	"github.com/trendscout/trendscout/internal/config"
	"github.com/trendscout/trendscout/internal/fileio"
	"github.com/trendscout/trendscout/internal/jobs"
	"github.com/trendscout/trendscout/internal/leaderboard"
	"github.com/trendscout/trendscout/internal/provider"
	"github.com/trendscout/trendscout/internal/store"
	"github.com/trendscout/trendscout/internal/store/model"
	"github.com/trendscout/trendscout/internal/sweep"
	"github.com/trendscout/trendscout/pkg/metrics"
)

type StateKind string

const (
	StateIdle     StateKind = "idle"
	StateFetching StateKind = "fetching"
	StateSweeping StateKind = "sweeping"
)

// OperationState describes what the worker is doing right now, for UI
// status lines and companion heartbeats.
type OperationState struct {
	State  StateKind `json:"state"`
	Symbol string    `json:"symbol,omitempty"`
	Index  int       `json:"index,omitempty"`
	Total  int       `json:"total,omitempty"`
}

func (s OperationState) describe() string {
	switch s.State {
	case StateFetching:
		return fmt.Sprintf("fetching %s (%d/%d)", s.Symbol, s.Index, s.Total)
	case StateSweeping:
		return fmt.Sprintf("sweeping (%d/%d)", s.Index, s.Total)
	default:
		return "idle"
	}
}

// Engine consumes commands from a FIFO queue on a single background
// goroutine and replies with asynchronous updates. Issuers are never blocked
// on command processing; at most one fetch or sweep runs at a time and later
// commands queue behind it.
type Engine struct {
	queue     *commandQueue
	registry  *jobs.Registry
	store     store.Store
	provider  provider.Provider
	simulator backtest.Simulator
	companion *companion.Client
	writer    *fileio.Writer

	boardSize       int
	leaderboardPath string
	heartbeat       time.Duration
	sessionID       string
	version         string

	updates chan Update

	stateMu     sync.Mutex
	opState     OperationState
	activeJobID string

	boardsMu sync.Mutex
	boards   map[string]*leaderboard.Leaderboard
	cross    *leaderboard.CrossSymbol

	log *zap.SugaredLogger
}

func NewEngine(
	cfg *config.Config,
	st store.Store,
	prov provider.Provider,
	sim backtest.Simulator,
	comp *companion.Client,
	writer *fileio.Writer,
	version string,
) (*Engine, error) {
	rankMetric, err := leaderboard.ParseRankMetric(cfg.Worker.RankMetric)
	if err != nil {
		return nil, err
	}

	cross, err := leaderboard.Load(writer, cfg.Worker.LeaderboardPath, cfg.Worker.LeaderboardSize, rankMetric)
	if err != nil {
		return nil, errors.Wrap(err, "loading leaderboard")
	}

	return &Engine{
		queue:           newCommandQueue(),
		registry:        jobs.NewRegistry(),
		store:           st,
		provider:        prov,
		simulator:       sim,
		companion:       comp,
		writer:          writer,
		boardSize:       cfg.Worker.LeaderboardSize,
		leaderboardPath: cfg.Worker.LeaderboardPath,
		heartbeat:       time.Duration(cfg.Worker.HeartbeatInterval) * time.Second,
		sessionID:       jobs.NewID("session"),
		version:         version,
		updates:         make(chan Update, 256),
		opState:         OperationState{State: StateIdle},
		boards:          make(map[string]*leaderboard.Leaderboard),
		cross:           cross,
		log:             zap.S().Named("worker"),
	}, nil
}

// Updates is the stream of asynchronous replies. The consumer must keep
// draining it while the engine runs.
func (e *Engine) Updates() <-chan Update {
	return e.updates
}

func (e *Engine) SessionID() string {
	return e.sessionID
}

// Fetch enqueues a FetchData command and returns its job id.
func (e *Engine) Fetch(symbols []string, start, end time.Time, force bool) string {
	jobID := jobs.NewID("fetch")
	e.registry.Create(jobID)
	e.queue.Push(FetchDataCommand{JobID: jobID, Symbols: symbols, Start: start, End: end, Force: force})
	return jobID
}

// Search enqueues a SearchSymbols command and returns its job id.
func (e *Engine) Search(query string) string {
	jobID := jobs.NewID("search")
	e.registry.Create(jobID)
	e.queue.Push(SearchSymbolsCommand{JobID: jobID, Query: query})
	return jobID
}

// RunSweep enqueues a RunSweep command and returns its job id.
func (e *Engine) RunSweep(grid sweep.Grid, symbols []string) string {
	jobID := jobs.NewID("sweep")
	e.registry.Create(jobID)
	e.queue.Push(RunSweepCommand{JobID: jobID, Grid: grid, Symbols: symbols})
	return jobID
}

// Cancel flags the active job for cancellation and reports whether there was
// one. It never waits for the job to stop; termination surfaces later as a
// Cancelled update.
func (e *Engine) Cancel() bool {
	e.stateMu.Lock()
	jobID := e.activeJobID
	e.stateMu.Unlock()

	if jobID == "" {
		return false
	}
	return e.registry.Cancel(jobID)
}

// CancelJob flags a specific job, running or still queued. Unknown ids
// return false.
func (e *Engine) CancelJob(jobID string) bool {
	return e.registry.Cancel(jobID)
}

func (e *Engine) JobStatus(jobID string) (jobs.Status, bool) {
	return e.registry.Status(jobID)
}

func (e *Engine) OperationState() OperationState {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.opState
}

// Leaderboard returns the current per-symbol ranking, best first.
func (e *Engine) Leaderboard(symbol string) []leaderboard.Entry {
	e.boardsMu.Lock()
	defer e.boardsMu.Unlock()
	board, ok := e.boards[symbol]
	if !ok {
		return nil
	}
	return board.Entries()
}

func (e *Engine) CrossSymbolLeaderboard() []leaderboard.CrossSymbolEntry {
	e.boardsMu.Lock()
	defer e.boardsMu.Unlock()
	return e.cross.Entries()
}

// DiverseLeaderboard returns up to n entries for the symbol spanning
// distinct parameter regions.
func (e *Engine) DiverseLeaderboard(symbol string, n int, cfg leaderboard.DiversityConfig) []leaderboard.Entry {
	entries := e.Leaderboard(symbol)
	return leaderboard.SelectDiverse(entries, comboFeatures, n, cfg)
}

// Run consumes commands until the context is cancelled. It owns the single
// execution context: no two commands ever run concurrently.
func (e *Engine) Run(ctx context.Context) error {
	e.companion.Emit(companion.NewStartedEvent(os.Getpid(), e.version))
	e.log.Infow("worker started", "session_id", e.sessionID)

	ticker := jitterbug.New(e.heartbeat, &jitterbug.Norm{Stdev: 30 * time.Millisecond, Mean: 0})
	defer ticker.Stop()

	for {
		e.drain(ctx)

		select {
		case <-ctx.Done():
			e.companion.Emit(companion.NewShutdownEvent())
			e.companion.Close()
			close(e.updates)
			e.log.Info("worker stopped")
			return nil
		case <-ticker.C:
			e.companion.Emit(companion.NewStatusEvent(e.OperationState().describe()))
		case <-e.queue.Wake():
		}
	}
}

func (e *Engine) drain(ctx context.Context) {
	for ctx.Err() == nil {
		cmd, ok := e.queue.Pop()
		if !ok {
			return
		}
		e.dispatch(ctx, cmd)
	}
}

func (e *Engine) dispatch(ctx context.Context, cmd Command) {
	if _, ok := cmd.(CancelCommand); ok {
		e.Cancel()
		return
	}

	jobID := cmd.jobID()
	token, ok := e.registry.Token(jobID)
	if !ok {
		e.log.Warnw("dropping command with unregistered job", "job_id", jobID)
		return
	}

	if token.IsCancelled() {
		e.registry.SetStatus(jobID, jobs.StatusCancelled)
		metrics.IncreaseJobsTotalMetric(string(jobs.StatusCancelled))
		e.emitCancelled(jobID)
		return
	}

	e.registry.SetStatus(jobID, jobs.StatusRunning)
	e.setActive(jobID)
	e.companion.Emit(companion.NewJobStartedEvent(jobID, describeCommand(cmd)))

	var terminal jobs.Status
	switch c := cmd.(type) {
	case FetchDataCommand:
		terminal = e.handleFetch(ctx, c, token)
	case SearchSymbolsCommand:
		terminal = e.handleSearch(ctx, c)
	case RunSweepCommand:
		terminal = e.handleSweep(ctx, c, token)
	}

	e.registry.SetStatus(jobID, terminal)
	metrics.IncreaseJobsTotalMetric(string(terminal))
	e.clearActive()
}

func describeCommand(cmd Command) string {
	switch c := cmd.(type) {
	case FetchDataCommand:
		return fmt.Sprintf("fetch %d symbols", len(c.Symbols))
	case SearchSymbolsCommand:
		return fmt.Sprintf("search %q", c.Query)
	case RunSweepCommand:
		return fmt.Sprintf("sweep %d configs over %d symbols", c.Grid.Size(), len(c.Symbols))
	default:
		return ""
	}
}

func (e *Engine) handleFetch(ctx context.Context, c FetchDataCommand, token *jobs.CancellationToken) jobs.Status {
	total := len(c.Symbols)
	result := FetchResult{Errors: make(map[string]string)}

	for i, symbol := range c.Symbols {
		if token.IsCancelled() {
			e.emitCancelled(c.JobID)
			return jobs.StatusCancelled
		}
		e.setState(OperationState{State: StateFetching, Symbol: symbol, Index: i, Total: total})

		if !c.Force {
			covered, err := e.store.Bar().Has(ctx, symbol, c.Start, c.End)
			if err != nil {
				e.log.Warnw("cache lookup failed", "symbol", symbol, "error", err)
			} else if covered {
				result.Skipped = append(result.Skipped, symbol)
				e.emitProgress(c.JobID, i+1, total, fmt.Sprintf("%s cached", symbol))
				continue
			}
		}

		bars, err := e.provider.Fetch(ctx, symbol, c.Start, c.End)
		if err == nil && len(bars) == 0 {
			err = errors.Errorf("no bars returned for %s", symbol)
		}
		if err == nil {
			err = e.store.Bar().Write(ctx, bars)
		}
		if err != nil {
			result.Errors[symbol] = err.Error()
			metrics.IncreaseSymbolsFetchedMetric("failure")
			e.log.Warnw("symbol fetch failed", "job_id", c.JobID, "symbol", symbol, "error", err)
			e.emitProgress(c.JobID, i+1, total, fmt.Sprintf("%s failed", symbol))
			continue
		}

		result.Fetched = append(result.Fetched, symbol)
		metrics.IncreaseSymbolsFetchedMetric("success")
		e.emitProgress(c.JobID, i+1, total, fmt.Sprintf("%s fetched", symbol))
	}

	if len(result.Errors) > 0 && len(result.Fetched) == 0 && len(result.Skipped) == 0 {
		e.emitFailed(c.JobID, newError(ErrorInternal, errors.Errorf("all %d symbols failed to fetch", total)))
		return jobs.StatusFailed
	}
	e.emitCompleted(c.JobID, result, "fetch complete")
	return jobs.StatusCompleted
}

func (e *Engine) handleSearch(ctx context.Context, c SearchSymbolsCommand) jobs.Status {
	if strings.TrimSpace(c.Query) == "" {
		e.emitCompleted(c.JobID, SearchResult{}, "empty query")
		return jobs.StatusCompleted
	}

	matches, err := e.provider.Search(ctx, c.Query)
	if err != nil {
		e.emitFailed(c.JobID, newError(ErrorInternal, errors.Wrap(err, "searching symbols")))
		return jobs.StatusFailed
	}
	e.emitCompleted(c.JobID, SearchResult{Matches: matches}, "search complete")
	return jobs.StatusCompleted
}

func (e *Engine) handleSweep(ctx context.Context, c RunSweepCommand, token *jobs.CancellationToken) jobs.Status {
	if c.Grid.Size() == 0 {
		e.emitFailed(c.JobID, newError(ErrorInvalidInput, errors.New("sweep grid is empty")))
		return jobs.StatusFailed
	}

	total := c.Grid.Size() * len(c.Symbols)
	completed := 0
	summary := SweepSummary{
		SessionID: e.sessionID,
		PerSymbol: make(map[string][]leaderboard.Entry),
		Errors:    make(map[string]string),
	}
	var rows []model.SweepResult

	for _, symbol := range c.Symbols {
		bars, err := e.store.Bar().ReadAll(ctx, symbol)
		if err != nil {
			summary.Errors[symbol] = err.Error()
			completed += c.Grid.Size()
			e.log.Warnw("no cached bars for symbol", "job_id", c.JobID, "symbol", symbol, "error", err)
			e.emitProgress(c.JobID, completed, total, fmt.Sprintf("%s skipped", symbol))
			continue
		}

		for _, combo := range c.Grid.Combos {
			if token.IsCancelled() {
				e.emitCancelled(c.JobID)
				return jobs.StatusCancelled
			}
			e.setState(OperationState{State: StateSweeping, Index: completed, Total: total})

			res, err := e.simulator.Simulate(bars, combo)
			completed++
			if err != nil {
				summary.Errors[fmt.Sprintf("%s/%s", symbol, combo.ConfigID())] = err.Error()
				e.emitProgress(c.JobID, completed, total, fmt.Sprintf("%s %s failed", symbol, combo.ConfigID()))
				continue
			}

			metrics.AddConfigsEvaluatedMetric(1)
			e.record(symbol, combo, res.Metrics)
			rows = append(rows, model.SweepResult{
				SessionID:   e.sessionID,
				ConfigID:    combo.ConfigID(),
				Symbol:      symbol,
				Sharpe:      res.Metrics.Sharpe,
				CAGR:        res.Metrics.CAGR,
				MaxDrawdown: res.Metrics.MaxDrawdown,
				HitRate:     res.Metrics.HitRate,
				Trades:      res.Metrics.Trades,
			})
			summary.Evaluated++
			e.emitProgress(c.JobID, completed, total, fmt.Sprintf("%s %s", symbol, combo.ConfigID()))
		}
	}

	if err := e.store.SweepResult().Save(ctx, rows); err != nil {
		e.log.Warnw("failed to persist sweep results", "job_id", c.JobID, "error", err)
	}

	e.boardsMu.Lock()
	for symbol, board := range e.boards {
		summary.PerSymbol[symbol] = board.Entries()
	}
	summary.CrossSymbol = e.cross.Entries()
	e.boardsMu.Unlock()

	// only the worker goroutine mutates the boards, so the save can run
	// outside the lock
	if err := e.cross.Save(e.writer, e.leaderboardPath); err != nil {
		e.log.Warnw("failed to persist leaderboard", "job_id", c.JobID, "error", err)
	}

	if summary.Evaluated == 0 && len(summary.Errors) > 0 {
		e.emitFailed(c.JobID, newError(ErrorInternal, errors.Errorf("no configuration produced a result (%d errors)", len(summary.Errors))))
		return jobs.StatusFailed
	}
	e.emitCompleted(c.JobID, summary, "sweep complete")
	return jobs.StatusCompleted
}

// record feeds one result into the per-symbol and cross-symbol boards. The
// lock covers only the in-memory inserts.
func (e *Engine) record(symbol string, combo sweep.Combo, m backtest.Metrics) {
	e.boardsMu.Lock()
	defer e.boardsMu.Unlock()

	board, ok := e.boards[symbol]
	if !ok {
		board = leaderboard.New(e.boardSize)
		e.boards[symbol] = board
	}
	board.TryInsert(leaderboard.Entry{
		ConfigID:  combo.ConfigID(),
		Metrics:   m,
		Symbol:    symbol,
		SessionID: e.sessionID,
	})
	e.cross.Observe(combo.ConfigID(), e.sessionID, m)
}

func (e *Engine) setActive(jobID string) {
	e.stateMu.Lock()
	e.activeJobID = jobID
	e.stateMu.Unlock()
}

func (e *Engine) clearActive() {
	e.stateMu.Lock()
	e.activeJobID = ""
	e.opState = OperationState{State: StateIdle}
	e.stateMu.Unlock()
}

func (e *Engine) setState(s OperationState) {
	e.stateMu.Lock()
	e.opState = s
	e.stateMu.Unlock()
}

func (e *Engine) emitProgress(jobID string, completed, total int, message string) {
	e.updates <- ProgressUpdate{JobID: jobID, Completed: completed, Total: total, Message: message}
	e.companion.Emit(companion.NewJobProgressEvent(jobID, completed, total, message))
}

func (e *Engine) emitCompleted(jobID string, result any, message string) {
	e.updates <- CompletedUpdate{JobID: jobID, Result: result}
	e.companion.Emit(companion.NewJobCompleteEvent(jobID, message))
}

func (e *Engine) emitFailed(jobID string, err error) {
	e.log.Warnw("job failed", "job_id", jobID, "error", err)
	e.updates <- FailedUpdate{JobID: jobID, Err: err}
	e.companion.Emit(companion.NewJobFailedEvent(jobID, err))
}

func (e *Engine) emitCancelled(jobID string) {
	e.log.Infow("job cancelled", "job_id", jobID)
	e.updates <- CancelledUpdate{JobID: jobID}
	e.companion.Emit(companion.NewJobCancelledEvent(jobID))
}

// comboFeatures maps a config id back onto a normalized feature vector for
// diversity clustering.
func comboFeatures(entry leaderboard.Entry) []float64 {
	parts := strings.Split(entry.ConfigID, "_")
	if len(parts) != 3 {
		return []float64{0, 0}
	}
	entryLB, err1 := strconv.Atoi(parts[1])
	exitLB, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return []float64{0, 0}
	}
	return []float64{float64(entryLB) / 100, float64(exitLB) / 100}
}
