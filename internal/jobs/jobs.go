package jobs

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status of a job. Transitions are Queued -> Running -> one of the terminal
// states. Terminal states never transition again.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CancellationToken is a shared flag polled cooperatively by running work at
// unit-of-work boundaries. It is safe to poll from any goroutine at any rate.
type CancellationToken struct {
	cancelled atomic.Bool
}

func (t *CancellationToken) Cancel() {
	t.cancelled.Store(true)
}

func (t *CancellationToken) IsCancelled() bool {
	return t.cancelled.Load()
}

type entry struct {
	status Status
	token  *CancellationToken
}

// Registry tracks job identity, status and cancellation flags. All access
// serializes through a single mutex; nothing is called back while it is held,
// so a panic in job code can never leave the registry inconsistent.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*entry
	log  *zap.SugaredLogger
}

func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*entry),
		log:  zap.S().Named("jobs"),
	}
}

// NewID returns a fresh job id carrying a human-readable prefix. Ids are
// never reused.
func NewID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// Create registers the job as queued and returns its cancellation token.
func (r *Registry) Create(jobID string) *CancellationToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	token := &CancellationToken{}
	r.jobs[jobID] = &entry{status: StatusQueued, token: token}
	return token
}

// SetStatus records the job's new status. Transitions out of a terminal
// state are ignored with a warning, they indicate a bookkeeping bug in the
// caller rather than a recoverable condition.
func (r *Registry) SetStatus(jobID string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		r.log.Warnw("status update for unknown job", "job_id", jobID, "status", status)
		return
	}
	if e.status.Terminal() {
		r.log.Warnw("ignoring status transition out of terminal state",
			"job_id", jobID, "from", e.status, "to", status)
		return
	}
	e.status = status
}

// Status reports the job's current status.
func (r *Registry) Status(jobID string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return "", false
	}
	return e.status, true
}

// Token returns the job's cancellation token.
func (r *Registry) Token(jobID string) (*CancellationToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return nil, false
	}
	return e.token, true
}

// Cancel sets the job's cancellation token and reports whether the job
// existed. Cancelling an unknown id is a no-op returning false.
func (r *Registry) Cancel(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return false
	}
	e.token.Cancel()
	return true
}
