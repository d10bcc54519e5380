// Package incident turns confirmed health transitions into incident
// records: open on the first confirmed degraded/down, resolve on the
// confirmed recovery. A monitor has at most one ongoing incident.
package incident

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/logging"
)

const (
	// Verification summaries can arrive before the transition that
	// opened the incident has committed; attachment retries briefly.
	defaultFindRetries    = 6
	defaultFindRetryDelay = 500 * time.Millisecond
)

type Manager struct {
	store  *db.Store
	logger *log.Logger

	findRetries    int
	findRetryDelay time.Duration
}

func NewManager(store *db.Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		store:          store,
		logger:         logger,
		findRetries:    defaultFindRetries,
		findRetryDelay: defaultFindRetryDelay,
	}
}

// HandleTransition opens or resolves an incident for a confirmed
// decision. It returns the incident acted on, or nil when the decision
// required nothing (unconfirmed, unknown, or already in the right
// lifecycle state). Ticks are idempotent: repeated confirmed downs
// keep the one ongoing incident.
func (m *Manager) HandleTransition(d health.HealthDecision) (*db.Incident, error) {
	if !d.Confirmed {
		return nil, nil
	}
	switch d.State {
	case health.StateUp:
		return m.resolve(d)
	case health.StateDegraded, health.StateDown:
		return m.open(d)
	default:
		// Warmup (unknown) never opens incidents.
		return nil, nil
	}
}

func (m *Manager) open(d health.HealthDecision) (*db.Incident, error) {
	if _, err := m.store.FindOngoingIncident(d.MonitorID); err == nil {
		return nil, nil
	} else if !errors.Is(err, db.ErrNoOngoingIncident) {
		return nil, fmt.Errorf("check ongoing incident: %w", err)
	}

	startedAt := d.At
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	inc, err := m.store.CreateIncident(db.Incident{
		MonitorID: d.MonitorID,
		Severity:  string(d.State),
		Cause:     d.PrimaryReason(),
		ErrorKind: string(d.Verdict.ErrorKind),
		StartedAt: startedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("open incident: %w", err)
	}
	m.logger.Printf("incident %s opened for %s (%s: %s)", inc.ID, d.MonitorID, inc.Severity, inc.Cause)
	return &inc, nil
}

func (m *Manager) resolve(d health.HealthDecision) (*db.Incident, error) {
	inc, err := m.store.FindOngoingIncident(d.MonitorID)
	if errors.Is(err, db.ErrNoOngoingIncident) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ongoing incident: %w", err)
	}

	endedAt := d.At
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}
	if err := m.store.ResolveIncident(inc.ID, endedAt); err != nil {
		return nil, fmt.Errorf("resolve incident: %w", err)
	}
	inc.EndedAt = &endedAt
	m.logger.Printf("incident %s resolved for %s after %s", inc.ID, d.MonitorID, inc.Duration(endedAt).Round(time.Second))
	return &inc, nil
}

// AttachVerification stores a verification summary on the monitor's
// ongoing incident. The summary may race the transition that opens the
// incident, so lookup retries before giving up.
func (m *Manager) AttachVerification(monitorID string, summary any) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode verification summary: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < m.findRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(m.findRetryDelay)
		}
		inc, err := m.store.FindOngoingIncident(monitorID)
		if errors.Is(err, db.ErrNoOngoingIncident) {
			lastErr = err
			continue
		}
		if err != nil {
			return fmt.Errorf("find ongoing incident: %w", err)
		}
		return m.store.SetIncidentVerification(inc.ID, string(payload))
	}
	return fmt.Errorf("no ongoing incident for %s after %d attempts: %w", monitorID, m.findRetries, lastErr)
}
