// Package broadcast defines the port for publishing real-time job events
// to connected clients and the event bus.
package broadcast

import "context"

// Broadcaster sends a typed event to every listener. Implementations are
// fire-and-forget: a slow or broken listener never blocks a mission.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Event types published by the scheduler.
const (
	EventJobStatus = "job_status"
	EventJobLog    = "job_log"
)

// JobStatusEvent is the payload for EventJobStatus.
type JobStatusEvent struct {
	JobID     string  `json:"job_id"`
	MissionID string  `json:"mission_id,omitempty"`
	Status    string  `json:"status"`
	Reason    string  `json:"reason,omitempty"`
	CostUSD   float64 `json:"cost_usd,omitempty"`
	Rounds    int     `json:"rounds,omitempty"`
}

// JobLogEvent is the payload for EventJobLog.
type JobLogEvent struct {
	JobID string `json:"job_id"`
	Line  string `json:"line"`
}

// Multi fans one event out to several broadcasters.
type Multi []Broadcaster

// BroadcastEvent implements Broadcaster.
func (m Multi) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	for _, b := range m {
		b.BroadcastEvent(ctx, eventType, payload)
	}
}
