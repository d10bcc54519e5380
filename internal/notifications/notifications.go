// Package notifications delivers confirmed state changes to the
// configured webhook channels. Delivery is queue-backed and
// best-effort: a slow or dead webhook never backs up the check
// pipeline.
package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/pulsewatch/vigil/internal/config"
	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/logging"
	"github.com/pulsewatch/vigil/internal/metrics"
	"github.com/pulsewatch/vigil/internal/verify"
)

// Alert is one user-facing notification about a monitor.
type Alert struct {
	MonitorID   string
	MonitorName string
	MonitorURL  string
	State       health.HealthState
	Reason      string
	Summary     *verify.Summary
	At          time.Time
}

// Text composes the alert line. Verified alerts lead with the
// verification conclusion and how many vantage points confirmed the
// failure; unverified ones fall back to a plain state headline.
func (a Alert) Text() string {
	if a.Summary != nil && a.Summary.TotalCount > 0 {
		confirming := a.Summary.TotalCount - a.Summary.UpCount
		return fmt.Sprintf("%s: %s confirmed by %d/%d locations.", a.Summary.Conclusion, a.Reason, confirming, a.Summary.TotalCount)
	}
	return fmt.Sprintf("%s: %s", stateTitle(a.State), a.Reason)
}

func stateTitle(s health.HealthState) string {
	switch s {
	case health.StateDown:
		return "Monitor down"
	case health.StateDegraded:
		return "Monitor degraded"
	case health.StateUp:
		return "Monitor recovered"
	default:
		return "Monitor " + string(s)
	}
}

// Notifier delivers one rendered alert to one destination.
type Notifier interface {
	Send(alert Alert) error
}

// Suppressor decides whether alerts for a monitor are muted, e.g.
// because a maintenance window covers it.
type Suppressor func(monitorID string, at time.Time) bool

// Service owns the delivery queue. One worker drains it so channel
// lookups and cooldown bookkeeping stay single-threaded.
type Service struct {
	store    *db.Store
	logger   *log.Logger
	metrics  *metrics.Metrics
	suppress Suppressor

	fallbackWebhook string
	cooldown        time.Duration

	queue  chan Alert
	stopCh chan struct{}
	wg     sync.WaitGroup

	// lastSent is touched only by the worker goroutine.
	lastSent map[string]time.Time
}

type Options struct {
	Metrics   *metrics.Metrics
	Suppress  Suppressor
	QueueSize int
}

func NewService(store *db.Store, cfg config.Notify, logger *log.Logger, opts Options) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	return &Service{
		store:           store,
		logger:          logger,
		metrics:         opts.Metrics,
		suppress:        opts.Suppress,
		fallbackWebhook: cfg.WebhookURL,
		cooldown:        time.Duration(cfg.CooldownMinutes) * time.Minute,
		queue:           make(chan Alert, opts.QueueSize),
		stopCh:          make(chan struct{}),
		lastSent:        make(map[string]time.Time),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.worker()
}

func (s *Service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Enqueue never blocks; when the queue is full the alert is dropped
// and logged.
func (s *Service) Enqueue(alert Alert) {
	select {
	case s.queue <- alert:
	default:
		s.logger.Printf("notification queue full, dropping alert for %s", alert.MonitorID)
		s.count("dropped")
	}
}

func (s *Service) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case alert := <-s.queue:
			s.dispatch(alert)
		}
	}
}

func (s *Service) dispatch(alert Alert) {
	at := alert.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if s.suppress != nil && s.suppress(alert.MonitorID, at) {
		s.logger.Printf("alert for %s suppressed by maintenance window", alert.MonitorID)
		s.count("suppressed")
		return
	}

	// Recovery always goes out and re-arms the cooldown; repeat
	// problem alerts within the cooldown stay quiet.
	if alert.State == health.StateUp {
		delete(s.lastSent, alert.MonitorID)
	} else if s.cooldown > 0 {
		if last, ok := s.lastSent[alert.MonitorID]; ok && at.Sub(last) < s.cooldown {
			s.count("suppressed")
			return
		}
		s.lastSent[alert.MonitorID] = at
	}

	sent := 0
	for _, n := range s.notifiers() {
		if err := n.Send(alert); err != nil {
			s.logger.Printf("notification for %s failed: %v", alert.MonitorID, err)
			s.count("failed")
			continue
		}
		sent++
		s.count("sent")
	}
	if sent == 0 && alert.State != health.StateUp {
		// Do not burn the cooldown on a delivery that never happened.
		delete(s.lastSent, alert.MonitorID)
	}
}

// notifiers resolves the current destinations: every enabled channel
// row, or the config fallback webhook when none are configured.
func (s *Service) notifiers() []Notifier {
	var out []Notifier
	if s.store != nil {
		channels, err := s.store.GetNotificationChannels(true)
		if err != nil {
			s.logger.Printf("load notification channels: %v", err)
		}
		for _, ch := range channels {
			switch ch.Type {
			case "webhook", "slack":
				if ch.Target != "" {
					out = append(out, &WebhookNotifier{URL: ch.Target})
				}
			default:
				s.logger.Printf("unknown channel type %q (%s)", ch.Type, ch.Name)
			}
		}
	}
	if len(out) == 0 && s.fallbackWebhook != "" {
		out = append(out, &WebhookNotifier{URL: s.fallbackWebhook})
	}
	return out
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.NotificationsTotal.WithLabelValues(result).Inc()
	}
}

// WebhookNotifier posts Slack-compatible JSON to a webhook URL.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func (n *WebhookNotifier) Send(alert Alert) error {
	color := "#36a64f"
	switch alert.State {
	case health.StateDown:
		color = "#dc3545"
	case health.StateDegraded:
		color = "#ffc107"
	}

	at := alert.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	fields := []map[string]any{
		{"title": "Monitor", "value": alert.MonitorName, "short": true},
		{"title": "URL", "value": alert.MonitorURL, "short": true},
		{"title": "Time", "value": at.Format(time.RFC1123), "short": true},
	}
	if alert.Summary != nil {
		fields = append(fields, map[string]any{
			"title": "Verification",
			"value": fmt.Sprintf("%d/%d locations reachable (%s)", alert.Summary.UpCount, alert.Summary.TotalCount, alert.Summary.Level),
			"short": true,
		})
	}

	payload := map[string]any{
		"text": alert.Text(),
		"attachments": []map[string]any{
			{"color": color, "fields": fields},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, n.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
