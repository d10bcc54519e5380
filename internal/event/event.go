// Package event publishes confirmed health-state transitions. The
// primary sink is a Redis stream for external consumers; an in-process
// hub feeds the API's event endpoints and keeps working when Redis is
// unreachable.
package event

import (
	"context"
	"strconv"
	"time"

	"github.com/pulsewatch/vigil/internal/health"
)

// Event is one confirmed state transition on the wire.
type Event struct {
	ID                string             `json:"id"`
	MonitorID         string             `json:"monitorId"`
	CheckID           string             `json:"checkId,omitempty"`
	From              health.HealthState `json:"from"`
	To                health.HealthState `json:"to"`
	Reason            string             `json:"reason,omitempty"`
	ErrorKind         health.ErrorKind   `json:"errorKind,omitempty"`
	PreventedFlapping bool               `json:"preventedFlapping,omitempty"`
	At                time.Time          `json:"at"`
}

// Publisher is the transition sink the pipeline writes to.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(buffer int) (<-chan Event, func())
	Close() error
}

// FromDecision builds the wire event for a confirmed transition.
func FromDecision(d health.HealthDecision, from health.HealthState) Event {
	return Event{
		ID:                d.CheckID,
		MonitorID:         d.MonitorID,
		CheckID:           d.CheckID,
		From:              from,
		To:                d.State,
		Reason:            d.PrimaryReason(),
		ErrorKind:         d.Verdict.ErrorKind,
		PreventedFlapping: d.PreventedFlapping,
		At:                d.At,
	}
}

// values flattens the event for a Redis stream entry.
func (e Event) values() map[string]any {
	v := map[string]any{
		"id":         e.ID,
		"monitor_id": e.MonitorID,
		"from":       string(e.From),
		"to":         string(e.To),
		"at":         e.At.UTC().Format(time.RFC3339Nano),
	}
	if e.CheckID != "" {
		v["check_id"] = e.CheckID
	}
	if e.Reason != "" {
		v["reason"] = e.Reason
	}
	if e.ErrorKind != "" {
		v["error_kind"] = string(e.ErrorKind)
	}
	if e.PreventedFlapping {
		v["flap_suppressed"] = "1"
	}
	return v
}

func eventFromValues(v map[string]any) Event {
	e := Event{
		ID:        str(v["id"]),
		MonitorID: str(v["monitor_id"]),
		CheckID:   str(v["check_id"]),
		From:      health.HealthState(str(v["from"])),
		To:        health.HealthState(str(v["to"])),
		Reason:    str(v["reason"]),
		ErrorKind: health.ErrorKind(str(v["error_kind"])),
	}
	if at, err := time.Parse(time.RFC3339Nano, str(v["at"])); err == nil {
		e.At = at
	}
	if b, err := strconv.ParseBool(str(v["flap_suppressed"])); err == nil {
		e.PreventedFlapping = b
	}
	return e
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
