package companion

// SocketEnv names the host:port of a listening companion server. A process
// with this variable set mirrors its job activity there.
const SocketEnv = "TRENDSCOUT_COMPANION_SOCKET"

type EventType string

const (
	EventStarted      EventType = "started"
	EventStatus       EventType = "status"
	EventJobStarted   EventType = "job_started"
	EventJobProgress  EventType = "job_progress"
	EventJobComplete  EventType = "job_complete"
	EventJobFailed    EventType = "job_failed"
	EventJobCancelled EventType = "job_cancelled"
	EventShutdown     EventType = "shutdown"
)

// Event is one line of the companion wire protocol: a single JSON object,
// discriminated by Type, with only the fields relevant to that type set.
type Event struct {
	Type      EventType `json:"type"`
	PID       int       `json:"pid,omitempty"`
	Version   string    `json:"version,omitempty"`
	Message   string    `json:"message,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	Completed int       `json:"completed,omitempty"`
	Total     int       `json:"total,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func NewStartedEvent(pid int, version string) Event {
	return Event{Type: EventStarted, PID: pid, Version: version}
}

func NewStatusEvent(message string) Event {
	return Event{Type: EventStatus, Message: message}
}

func NewJobStartedEvent(jobID, message string) Event {
	return Event{Type: EventJobStarted, JobID: jobID, Message: message}
}

func NewJobProgressEvent(jobID string, completed, total int, message string) Event {
	return Event{Type: EventJobProgress, JobID: jobID, Completed: completed, Total: total, Message: message}
}

func NewJobCompleteEvent(jobID, message string) Event {
	return Event{Type: EventJobComplete, JobID: jobID, Message: message}
}

func NewJobFailedEvent(jobID string, err error) Event {
	return Event{Type: EventJobFailed, JobID: jobID, Error: err.Error()}
}

func NewJobCancelledEvent(jobID string) Event {
	return Event{Type: EventJobCancelled, JobID: jobID}
}

func NewShutdownEvent() Event {
	return Event{Type: EventShutdown}
}
