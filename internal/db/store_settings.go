package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Settings

// GetSetting returns the stored value, or "" when the key is unset.
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(s.rebind(`SELECT value FROM settings WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	// ON CONFLICT upsert works on both SQLite and Postgres.
	_, err := s.db.Exec(s.rebind(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`), key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

func (s *Store) GetSettings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// Notification channels

type NotificationChannel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"` // webhook
	Target    string    `json:"target"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Store) CreateNotificationChannel(c NotificationChannel) (NotificationChannel, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Type == "" {
		c.Type = "webhook"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(s.rebind(`INSERT INTO notification_channels
		(id, name, type, target, enabled, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID, c.Name, c.Type, c.Target, c.Enabled, c.CreatedAt)
	if err != nil {
		return NotificationChannel{}, fmt.Errorf("create notification channel: %w", err)
	}
	return c, nil
}

func (s *Store) GetNotificationChannels(enabledOnly bool) ([]NotificationChannel, error) {
	query := `SELECT id, name, type, target, enabled, created_at FROM notification_channels`
	if enabledOnly {
		query += ` WHERE enabled = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list notification channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []NotificationChannel
	for rows.Next() {
		var c NotificationChannel
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Target, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification channel: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (s *Store) DeleteNotificationChannel(id string) error {
	_, err := s.db.Exec(s.rebind(`DELETE FROM notification_channels WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete notification channel: %w", err)
	}
	return nil
}

// Maintenance windows

// MaintenanceWindow suppresses notifications for the listed monitors
// between StartsAt and EndsAt. An empty MonitorIDs list covers every
// monitor.
type MaintenanceWindow struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	MonitorIDs []string  `json:"monitorIds"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Covers reports whether the window applies to the monitor at the
// given instant.
func (w MaintenanceWindow) Covers(monitorID string, at time.Time) bool {
	if at.Before(w.StartsAt) || at.After(w.EndsAt) {
		return false
	}
	if len(w.MonitorIDs) == 0 {
		return true
	}
	for _, id := range w.MonitorIDs {
		if id == monitorID {
			return true
		}
	}
	return false
}

func (s *Store) CreateMaintenanceWindow(w MaintenanceWindow) (MaintenanceWindow, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	ids, err := json.Marshal(w.MonitorIDs)
	if err != nil {
		return MaintenanceWindow{}, fmt.Errorf("encode monitor ids: %w", err)
	}
	_, err = s.db.Exec(s.rebind(`INSERT INTO maintenance_windows
		(id, title, monitor_ids, starts_at, ends_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		w.ID, w.Title, string(ids), w.StartsAt, w.EndsAt, w.CreatedAt)
	if err != nil {
		return MaintenanceWindow{}, fmt.Errorf("create maintenance window: %w", err)
	}
	return w, nil
}

func (s *Store) GetMaintenanceWindows() ([]MaintenanceWindow, error) {
	rows, err := s.db.Query(`SELECT id, title, monitor_ids, starts_at, ends_at, created_at
		FROM maintenance_windows ORDER BY starts_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list maintenance windows: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanMaintenanceWindows(rows)
}

// ActiveMaintenanceWindows returns windows overlapping the instant.
func (s *Store) ActiveMaintenanceWindows(at time.Time) ([]MaintenanceWindow, error) {
	rows, err := s.db.Query(s.rebind(`SELECT id, title, monitor_ids, starts_at, ends_at, created_at
		FROM maintenance_windows WHERE starts_at <= ? AND ends_at >= ?`), at, at)
	if err != nil {
		return nil, fmt.Errorf("list active maintenance windows: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanMaintenanceWindows(rows)
}

func (s *Store) DeleteMaintenanceWindow(id string) error {
	_, err := s.db.Exec(s.rebind(`DELETE FROM maintenance_windows WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete maintenance window: %w", err)
	}
	return nil
}

func scanMaintenanceWindows(rows *sql.Rows) ([]MaintenanceWindow, error) {
	var windows []MaintenanceWindow
	for rows.Next() {
		var (
			w   MaintenanceWindow
			ids string
		)
		if err := rows.Scan(&w.ID, &w.Title, &ids, &w.StartsAt, &w.EndsAt, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan maintenance window: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &w.MonitorIDs); err != nil {
			return nil, fmt.Errorf("decode monitor ids: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// System stats

type SystemStats struct {
	TotalMonitors    int   `json:"totalMonitors"`
	ActiveMonitors   int   `json:"activeMonitors"`
	OngoingIncidents int   `json:"ongoingIncidents"`
	DailyChecks      int   `json:"dailyChecksEstimate"`
	StoredChecks     int64 `json:"storedChecks"`
}

func (s *Store) GetSystemStats() (SystemStats, error) {
	var stats SystemStats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM monitors`).Scan(&stats.TotalMonitors); err != nil {
		return stats, fmt.Errorf("count monitors: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM monitors WHERE active = TRUE`).Scan(&stats.ActiveMonitors); err != nil {
		return stats, fmt.Errorf("count active monitors: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM incidents WHERE ended_at IS NULL`).Scan(&stats.OngoingIncidents); err != nil {
		return stats, fmt.Errorf("count ongoing incidents: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(86400 / interval_seconds), 0) FROM monitors WHERE active = TRUE`).Scan(&stats.DailyChecks); err != nil {
		return stats, fmt.Errorf("estimate daily checks: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM monitor_checks`).Scan(&stats.StoredChecks); err != nil {
		return stats, fmt.Errorf("count stored checks: %w", err)
	}
	return stats, nil
}
