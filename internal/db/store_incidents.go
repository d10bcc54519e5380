package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Incident is an automatically opened outage record. At most one
// incident per monitor has a nil EndedAt. Verification holds the JSON
// summary written by the verification orchestrator once remote
// confirmation arrives.
type Incident struct {
	ID           string     `json:"id"`
	MonitorID    string     `json:"monitorId"`
	Severity     string     `json:"severity"` // degraded | down
	Cause        string     `json:"cause"`
	ErrorKind    string     `json:"errorKind,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
	Verification string     `json:"verification,omitempty"`
}

// Duration returns the incident length, using now for ongoing ones.
func (i Incident) Duration(now time.Time) time.Duration {
	end := now
	if i.EndedAt != nil {
		end = *i.EndedAt
	}
	return end.Sub(i.StartedAt)
}

const incidentColumns = `id, monitor_id, severity, cause, error_kind, started_at, ended_at, verification`

func (s *Store) CreateIncident(i Incident) (Incident, error) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.StartedAt.IsZero() {
		i.StartedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(s.rebind(`INSERT INTO incidents (`+incidentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		i.ID, i.MonitorID, i.Severity, i.Cause, i.ErrorKind, i.StartedAt,
		nullTime(i.EndedAt), i.Verification)
	if err != nil {
		return Incident{}, fmt.Errorf("create incident: %w", err)
	}
	return i, nil
}

func scanIncident(row interface{ Scan(...any) error }) (Incident, error) {
	var (
		i       Incident
		endedAt sql.NullTime
	)
	err := row.Scan(&i.ID, &i.MonitorID, &i.Severity, &i.Cause, &i.ErrorKind,
		&i.StartedAt, &endedAt, &i.Verification)
	if err != nil {
		return Incident{}, err
	}
	i.EndedAt = timePtr(endedAt)
	return i, nil
}

// FindOngoingIncident returns the open incident for a monitor, or
// ErrNoOngoingIncident when the monitor is healthy.
func (s *Store) FindOngoingIncident(monitorID string) (Incident, error) {
	row := s.db.QueryRow(s.rebind(`SELECT `+incidentColumns+` FROM incidents
		WHERE monitor_id = ? AND ended_at IS NULL
		ORDER BY started_at DESC LIMIT 1`), monitorID)
	i, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Incident{}, ErrNoOngoingIncident
	}
	if err != nil {
		return Incident{}, fmt.Errorf("find ongoing incident: %w", err)
	}
	return i, nil
}

func (s *Store) GetIncident(id string) (Incident, error) {
	row := s.db.QueryRow(s.rebind(`SELECT `+incidentColumns+` FROM incidents WHERE id = ?`), id)
	i, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Incident{}, ErrIncidentNotFound
	}
	if err != nil {
		return Incident{}, fmt.Errorf("get incident: %w", err)
	}
	return i, nil
}

// GetIncidents returns incidents that are ongoing or started after the
// cutoff, newest first. monitorID narrows to one monitor when set.
func (s *Store) GetIncidents(since time.Time, monitorID string, limit int) ([]Incident, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + incidentColumns + ` FROM incidents
		WHERE (ended_at IS NULL OR started_at >= ?)`
	args := []any{since}
	if monitorID != "" {
		query += ` AND monitor_id = ?`
		args = append(args, monitorID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var incidents []Incident
	for rows.Next() {
		i, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, i)
	}
	return incidents, rows.Err()
}

// ResolveIncident closes an open incident. Resolving an already closed
// incident is a no-op so recovery ticks stay idempotent.
func (s *Store) ResolveIncident(id string, endedAt time.Time) error {
	res, err := s.db.Exec(s.rebind(`UPDATE incidents SET ended_at = ?
		WHERE id = ? AND ended_at IS NULL`), endedAt, id)
	if err != nil {
		return fmt.Errorf("resolve incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := s.db.QueryRow(s.rebind(`SELECT COUNT(*) FROM incidents WHERE id = ?`), id).Scan(&exists); err == nil && exists == 0 {
			return ErrIncidentNotFound
		}
	}
	return nil
}

// SetIncidentVerification attaches the orchestrator's JSON summary.
func (s *Store) SetIncidentVerification(id string, verification string) error {
	res, err := s.db.Exec(s.rebind(`UPDATE incidents SET verification = ? WHERE id = ?`),
		verification, id)
	if err != nil {
		return fmt.Errorf("set incident verification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrIncidentNotFound
	}
	return nil
}

func (s *Store) DeleteIncident(id string) error {
	_, err := s.db.Exec(s.rebind(`DELETE FROM incidents WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	return nil
}
