package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Monitor is a persisted check target. Interval and Timeout are in
// seconds; the pointer fields are per-monitor policy overrides and
// nil means "engine default".
type Monitor struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	URL                 string     `json:"url"`
	Protocol            string     `json:"protocol"`
	Active              bool       `json:"active"`
	Interval            int        `json:"interval"`
	Timeout             int        `json:"timeout"`
	AlertThreshold      int        `json:"alertThreshold"`
	DegradedThresholdMs *int64     `json:"degradedThresholdMs,omitempty"`
	ExpectedResponseMs  *int64     `json:"expectedResponseMs,omitempty"`
	ExpectedStatus      *int       `json:"expectedStatus,omitempty"`
	Keyword             string     `json:"keyword,omitempty"`
	SSLExpiryDays       *int       `json:"sslExpiryDays,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           *time.Time `json:"updatedAt,omitempty"`
}

// Check is one probe outcome. State holds the classified health state
// of this single sample, before hysteresis. Verification carries the
// JSON summary of the multi-location run this check triggered, if any.
type Check struct {
	ID           string    `json:"id"`
	MonitorID    string    `json:"monitorId"`
	State        string    `json:"state"`
	Success      bool      `json:"success"`
	LatencyMs    int64     `json:"latencyMs"`
	StatusCode   int       `json:"statusCode,omitempty"`
	ErrorKind    string    `json:"errorKind,omitempty"`
	ErrorMsg     string    `json:"errorMessage,omitempty"`
	Verification string    `json:"verification,omitempty"`
	CheckedAt    time.Time `json:"checkedAt"`
}

// Transition records one confirmed health-state change.
type Transition struct {
	ID         string    `json:"id"`
	MonitorID  string    `json:"monitorId"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

// UptimeStats is the success ratio over the trailing day, week and
// month, in percent.
type UptimeStats struct {
	Day         float64 `json:"day"`
	Week        float64 `json:"week"`
	Month       float64 `json:"month"`
	TotalChecks int64   `json:"totalChecks"`
}

const monitorColumns = `id, name, url, protocol, active, interval_seconds, timeout_seconds,
	alert_threshold, degraded_threshold_ms, expected_response_ms, expected_status, keyword,
	ssl_expiry_days, created_at, updated_at`

func (s *Store) CreateMonitor(m Monitor) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Interval < 1 {
		m.Interval = 60
	}
	if m.Timeout < 1 {
		m.Timeout = 30
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(s.rebind(`INSERT INTO monitors (`+monitorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.Name, m.URL, m.Protocol, m.Active, m.Interval, m.Timeout,
		m.AlertThreshold, nullInt64(m.DegradedThresholdMs), nullInt64(m.ExpectedResponseMs),
		nullInt(m.ExpectedStatus), m.Keyword, nullInt(m.SSLExpiryDays),
		m.CreatedAt, nullTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}
	return nil
}

func scanMonitor(row interface{ Scan(...any) error }) (Monitor, error) {
	var (
		m         Monitor
		degraded  sql.NullInt64
		expected  sql.NullInt64
		status    sql.NullInt64
		sslDays   sql.NullInt64
		updatedAt sql.NullTime
	)
	err := row.Scan(&m.ID, &m.Name, &m.URL, &m.Protocol, &m.Active, &m.Interval, &m.Timeout,
		&m.AlertThreshold, &degraded, &expected, &status, &m.Keyword, &sslDays,
		&m.CreatedAt, &updatedAt)
	if err != nil {
		return Monitor{}, err
	}
	m.DegradedThresholdMs = int64Ptr(degraded)
	m.ExpectedResponseMs = int64Ptr(expected)
	m.ExpectedStatus = intPtr(status)
	m.SSLExpiryDays = intPtr(sslDays)
	m.UpdatedAt = timePtr(updatedAt)
	return m, nil
}

func (s *Store) GetMonitor(id string) (Monitor, error) {
	row := s.db.QueryRow(s.rebind(`SELECT `+monitorColumns+` FROM monitors WHERE id = ?`), id)
	m, err := scanMonitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Monitor{}, ErrMonitorNotFound
	}
	if err != nil {
		return Monitor{}, fmt.Errorf("get monitor: %w", err)
	}
	return m, nil
}

func (s *Store) GetMonitors() ([]Monitor, error) {
	rows, err := s.db.Query(`SELECT ` + monitorColumns + ` FROM monitors ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var monitors []Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

func (s *Store) UpdateMonitor(m Monitor) error {
	if m.Interval < 1 {
		m.Interval = 60
	}
	if m.Timeout < 1 {
		m.Timeout = 30
	}
	// Active is managed separately via SetMonitorActive.
	res, err := s.db.Exec(s.rebind(`UPDATE monitors SET name = ?, url = ?, protocol = ?,
		interval_seconds = ?, timeout_seconds = ?, alert_threshold = ?,
		degraded_threshold_ms = ?, expected_response_ms = ?, expected_status = ?,
		keyword = ?, ssl_expiry_days = ?, updated_at = ? WHERE id = ?`),
		m.Name, m.URL, m.Protocol, m.Interval, m.Timeout, m.AlertThreshold,
		nullInt64(m.DegradedThresholdMs), nullInt64(m.ExpectedResponseMs),
		nullInt(m.ExpectedStatus), m.Keyword, nullInt(m.SSLExpiryDays),
		time.Now().UTC(), m.ID)
	if err != nil {
		return fmt.Errorf("update monitor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMonitorNotFound
	}
	return nil
}

func (s *Store) SetMonitorActive(id string, active bool) error {
	res, err := s.db.Exec(s.rebind(`UPDATE monitors SET active = ?, updated_at = ? WHERE id = ?`),
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set monitor active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMonitorNotFound
	}
	return nil
}

func (s *Store) DeleteMonitor(id string) error {
	res, err := s.db.Exec(s.rebind(`DELETE FROM monitors WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMonitorNotFound
	}
	return nil
}

// InsertChecks writes a batch of probe results in one transaction.
// The result writer flushes small batches, so a single prepared
// statement per batch is enough.
func (s *Store) InsertChecks(checks []Check) error {
	if len(checks) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin checks batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(s.rebind(`INSERT INTO monitor_checks
		(id, monitor_id, state, success, latency_ms, status_code, error_kind, error_message, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare checks batch: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range checks {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, err := stmt.Exec(c.ID, c.MonitorID, c.State, c.Success, c.LatencyMs,
			c.StatusCode, c.ErrorKind, c.ErrorMsg, c.CheckedAt); err != nil {
			return fmt.Errorf("insert check for %s: %w", c.MonitorID, err)
		}
	}
	return tx.Commit()
}

// GetMonitorChecks returns the most recent checks, newest first.
func (s *Store) GetMonitorChecks(monitorID string, limit int) ([]Check, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(s.rebind(`SELECT id, monitor_id, state, success, latency_ms,
		status_code, error_kind, error_message, verification, checked_at
		FROM monitor_checks WHERE monitor_id = ?
		ORDER BY checked_at DESC LIMIT ?`), monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChecks(rows)
}

// GetChecksSince returns checks at or after the cutoff, oldest first.
func (s *Store) GetChecksSince(monitorID string, since time.Time) ([]Check, error) {
	rows, err := s.db.Query(s.rebind(`SELECT id, monitor_id, state, success, latency_ms,
		status_code, error_kind, error_message, verification, checked_at
		FROM monitor_checks WHERE monitor_id = ? AND checked_at >= ?
		ORDER BY checked_at ASC`), monitorID, since)
	if err != nil {
		return nil, fmt.Errorf("list checks since: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChecks(rows)
}

func scanChecks(rows *sql.Rows) ([]Check, error) {
	var checks []Check
	for rows.Next() {
		var c Check
		if err := rows.Scan(&c.ID, &c.MonitorID, &c.State, &c.Success, &c.LatencyMs,
			&c.StatusCode, &c.ErrorKind, &c.ErrorMsg, &c.Verification, &c.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// SetCheckVerification attaches the orchestrator's JSON summary to the
// check that triggered it. Returns ErrCheckNotFound while the row is
// still waiting in the batch writer.
func (s *Store) SetCheckVerification(checkID string, verification string) error {
	res, err := s.db.Exec(s.rebind(`UPDATE monitor_checks SET verification = ? WHERE id = ?`),
		verification, checkID)
	if err != nil {
		return fmt.Errorf("set check verification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCheckNotFound
	}
	return nil
}

// PruneChecks deletes probe results older than the cutoff and returns
// the number of rows removed.
func (s *Store) PruneChecks(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(s.rebind(`DELETE FROM monitor_checks WHERE checked_at < ?`), olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune checks: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) GetUptimeStats(monitorID string) (UptimeStats, error) {
	var stats UptimeStats
	now := time.Now().UTC()
	windows := []struct {
		since time.Time
		dest  *float64
	}{
		{now.Add(-24 * time.Hour), &stats.Day},
		{now.Add(-7 * 24 * time.Hour), &stats.Week},
		{now.Add(-30 * 24 * time.Hour), &stats.Month},
	}

	query := s.rebind(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0)
		FROM monitor_checks WHERE monitor_id = ? AND checked_at >= ?`)
	for i, w := range windows {
		var total, up int64
		if err := s.db.QueryRow(query, monitorID, w.since).Scan(&total, &up); err != nil {
			return UptimeStats{}, fmt.Errorf("uptime stats: %w", err)
		}
		if total > 0 {
			*w.dest = float64(up) / float64(total) * 100
		}
		if i == len(windows)-1 {
			stats.TotalChecks = total
		}
	}
	return stats, nil
}

func (s *Store) InsertTransition(t Transition) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.Exec(s.rebind(`INSERT INTO health_transitions
		(id, monitor_id, from_state, to_state, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		t.ID, t.MonitorID, t.From, t.To, t.Reason, t.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

func (s *Store) GetTransitions(monitorID string, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(s.rebind(`SELECT id, monitor_id, from_state, to_state, reason, occurred_at
		FROM health_transitions WHERE monitor_id = ?
		ORDER BY occurred_at DESC LIMIT ?`), monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTransitions(rows)
}

func (s *Store) GetRecentTransitions(limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(s.rebind(`SELECT id, monitor_id, from_state, to_state, reason, occurred_at
		FROM health_transitions ORDER BY occurred_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTransitions(rows)
}

// LastTransition returns the newest transition for a monitor, or nil
// when the monitor has never changed state.
func (s *Store) LastTransition(monitorID string) (*Transition, error) {
	row := s.db.QueryRow(s.rebind(`SELECT id, monitor_id, from_state, to_state, reason, occurred_at
		FROM health_transitions WHERE monitor_id = ?
		ORDER BY occurred_at DESC LIMIT 1`), monitorID)
	var t Transition
	err := row.Scan(&t.ID, &t.MonitorID, &t.From, &t.To, &t.Reason, &t.OccurredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last transition: %w", err)
	}
	return &t, nil
}

func scanTransitions(rows *sql.Rows) ([]Transition, error) {
	var transitions []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.ID, &t.MonitorID, &t.From, &t.To, &t.Reason, &t.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
