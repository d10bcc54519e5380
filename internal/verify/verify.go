// Package verify re-checks a failing target from multiple vantage
// points. A confirmed outage seen by one prober can be a local routing
// problem; verification distinguishes the two before anyone is paged.
package verify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/health"
)

const (
	DefaultCacheTTL    = 120 * time.Second
	DefaultConcurrency = 3
	DefaultInterSlot   = 2500 * time.Millisecond
	DefaultQueueSize   = 64

	// MaxCheckDeadline caps how long a single vantage-point check may
	// take, whatever the monitor's own timeout allows.
	MaxCheckDeadline = 15 * time.Second

	// LocalFallbackNode labels the single result produced by the local
	// prober when no remote vantage point answered.
	LocalFallbackNode = "Local (Fallback)"
)

// Conclusion levels, ordered by urgency.
const (
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelCritical = "CRITICAL"
)

const (
	ConclusionGlobalOutage  = "Global outage"
	ConclusionPartialOutage = "Partial outage"
	ConclusionRoutingIssue  = "Routing issue"
)

var (
	ErrQueueFull = errors.New("verification queue full")
	ErrCanceled  = errors.New("verification canceled")
	ErrStopped   = errors.New("verifier stopped")
)

// Target is the normalized thing a vantage point checks. Protocol is
// one of http, tcp, udp, dns, ping; Host carries host:port for the
// port-addressed protocols.
type Target struct {
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	Path     string `json:"path,omitempty"`
	URL      string `json:"url,omitempty"` // original URL, http only

	// Timeout bounds each vantage point's check. Derived from the
	// monitor's own timeout and capped at MaxCheckDeadline; not part
	// of the target's identity.
	Timeout time.Duration `json:"-"`
}

func (t Target) cacheKey() string {
	return t.Protocol + "|" + t.Host + "|" + t.Path
}

// NodeResult is one vantage point's view of the target.
type NodeResult struct {
	Node      string `json:"node"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Summary is the aggregated outcome of one verification run.
type Summary struct {
	MonitorID  string       `json:"monitorId"`
	UpCount    int          `json:"upCount"`
	TotalCount int          `json:"totalCount"`
	Conclusion string       `json:"conclusion"`
	Level      string       `json:"level"`
	Nodes      []NodeResult `json:"nodes"`
	Provider   string       `json:"provider"`
	Cached     bool         `json:"cached,omitempty"`
	VerifiedAt time.Time    `json:"verifiedAt"`
}

// Provider runs a target check from one or more vantage points.
type Provider interface {
	Name() string
	Verify(ctx context.Context, target Target) ([]NodeResult, error)
}

// MapTarget normalizes a monitor into what vantage points understand.
func MapTarget(m db.Monitor) (Target, error) {
	var t Target
	switch health.Protocol(m.Protocol) {
	case health.ProtoHTTP, health.ProtoHTTPS:
		raw := m.URL
		if !strings.Contains(raw, "://") {
			scheme := "http"
			if health.Protocol(m.Protocol) == health.ProtoHTTPS {
				scheme = "https"
			}
			raw = scheme + "://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return Target{}, fmt.Errorf("monitor %s: unparseable url %q", m.ID, m.URL)
		}
		path := u.Path
		if path == "" {
			path = "/"
		}
		t = Target{Protocol: "http", Host: u.Host, Path: path, URL: raw}
	case health.ProtoTCP:
		t = Target{Protocol: "tcp", Host: hostPort(m.URL, 80)}
	case health.ProtoUDP:
		t = Target{Protocol: "udp", Host: hostPort(m.URL, 53)}
	case health.ProtoDNS:
		t = Target{Protocol: "dns", Host: bareHost(m.URL)}
	case health.ProtoPing:
		t = Target{Protocol: "ping", Host: bareHost(m.URL)}
	case health.ProtoSSL:
		t = Target{Protocol: "tcp", Host: hostPort(m.URL, 443)}
	case health.ProtoSMTP:
		t = Target{Protocol: "tcp", Host: hostPort(m.URL, 25)}
	default:
		return Target{}, fmt.Errorf("monitor %s: protocol %q cannot be verified", m.ID, m.Protocol)
	}
	t.Timeout = checkDeadline(m)
	return t, nil
}

// checkDeadline is the per-check deadline: the monitor's own timeout,
// capped at MaxCheckDeadline.
func checkDeadline(m db.Monitor) time.Duration {
	t := time.Duration(m.Timeout) * time.Second
	if t <= 0 || t > MaxCheckDeadline {
		return MaxCheckDeadline
	}
	return t
}

// hostPort strips any scheme and applies the default port when the
// address carries none.
func hostPort(raw string, def int) string {
	host := bareHost(raw)
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(def))
}

func bareHost(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		raw = raw[i+3:]
	}
	if i := strings.IndexAny(raw, "/?#"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// aggregate folds node results into a conclusion. The engine state
// decides how alarming a globally-confirmed outage is.
func aggregate(state health.HealthState, nodes []NodeResult) (conclusion, level string) {
	up := 0
	for _, n := range nodes {
		if n.OK {
			up++
		}
	}
	switch {
	case up == 0:
		if state == health.StateDown {
			return ConclusionGlobalOutage, LevelCritical
		}
		return ConclusionGlobalOutage, LevelWarning
	case up*2 < len(nodes):
		return ConclusionPartialOutage, LevelWarning
	default:
		return ConclusionRoutingIssue, LevelInfo
	}
}

func countUp(nodes []NodeResult) int {
	up := 0
	for _, n := range nodes {
		if n.OK {
			up++
		}
	}
	return up
}
