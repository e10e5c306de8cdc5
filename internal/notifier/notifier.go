// Package notifier provides per-job event broadcast for SSE streaming.
// Jobs publish typed events; each subscriber of a job receives them on a
// buffered channel.
package notifier

import (
	"sync"
	"time"

	"github.com/leapstack-labs/analyst/pkg/core"
)

// EventType names the SSE event kinds.
type EventType string

const (
	// EventStatus signals a job status change (queued, running, ...).
	EventStatus EventType = "status"
	// EventStep carries one appended execution step.
	EventStep EventType = "step"
	// EventProgress carries iteration and budget counters.
	EventProgress EventType = "progress"
	// EventCompletion carries the terminal payload.
	EventCompletion EventType = "completion"
	// EventError signals a rejected or crashed job.
	EventError EventType = "error"
)

// Event is one streamed update for a job.
type Event struct {
	Type  EventType `json:"type"`
	JobID string    `json:"job_id"`
	Time  time.Time `json:"time"`

	Status   core.JobStatus      `json:"status,omitempty"`
	Step     *core.ExecutionStep `json:"step,omitempty"`
	Progress *Progress           `json:"progress,omitempty"`
	Result   *core.RunResult     `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// Progress is the counter snapshot sent alongside step events.
type Progress struct {
	Iteration   int     `json:"iteration"`
	QueriesUsed int     `json:"queries_used"`
	SecondsUsed float64 `json:"seconds_used"`
}

// subscriberBuffer is sized so a slow reader does not drop routine
// events; a full buffer drops the oldest behavior in favor of skipping.
const subscriberBuffer = 64

// Notifier fans typed events out to per-job subscribers.
type Notifier struct {
	mu   sync.RWMutex
	jobs map[string]map[chan Event]struct{}
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{jobs: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns a channel receiving the job's events. The caller must
// Unsubscribe when done to prevent leaks.
func (n *Notifier) Subscribe(jobID string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	n.mu.Lock()
	subs := n.jobs[jobID]
	if subs == nil {
		subs = make(map[chan Event]struct{})
		n.jobs[jobID] = subs
	}
	subs[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(jobID string, ch chan Event) {
	n.mu.Lock()
	if subs, ok := n.jobs[jobID]; ok {
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(n.jobs, jobID)
		}
	}
	n.mu.Unlock()
}

// Publish sends an event to every subscriber of the job. Non-blocking:
// a full subscriber channel skips the event rather than stalling the run.
func (n *Notifier) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.jobs[ev.JobID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports the live listener count for a job.
func (n *Notifier) Subscribers(jobID string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.jobs[jobID])
}
