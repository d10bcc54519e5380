package health

import (
	"time"
)

// HealthState is the published condition of a monitor.
type HealthState string

const (
	StateUnknown  HealthState = "unknown"
	StateUp       HealthState = "up"
	StateDegraded HealthState = "degraded"
	StateDown     HealthState = "down"
)

// rank orders states by badness so "at least degraded" comparisons work.
func (s HealthState) rank() int {
	switch s {
	case StateUp:
		return 0
	case StateDegraded:
		return 2
	case StateDown:
		return 3
	default:
		return 1
	}
}

// Protocol identifies the probe driver used for a monitor.
type Protocol string

const (
	ProtoHTTP  Protocol = "HTTP"
	ProtoHTTPS Protocol = "HTTPS"
	ProtoTCP   Protocol = "TCP"
	ProtoUDP   Protocol = "UDP"
	ProtoDNS   Protocol = "DNS"
	ProtoPing  Protocol = "PING"
	ProtoSMTP  Protocol = "SMTP"
	ProtoSSL   Protocol = "SSL"
)

// ErrorKind is an open taxonomy of probe failure causes. Kinds are stable
// wire strings; events and persisted checks carry them verbatim.
type ErrorKind string

const (
	// Network
	ErrTimeout            ErrorKind = "TIMEOUT"
	ErrDNS                ErrorKind = "DNS_ERROR"
	ErrConnectionRefused  ErrorKind = "CONNECTION_REFUSED"
	ErrConnectionReset    ErrorKind = "CONNECTION_RESET"
	ErrHostUnreachable    ErrorKind = "HOST_UNREACHABLE"
	ErrNetworkUnreachable ErrorKind = "NETWORK_UNREACHABLE"

	// TLS
	ErrCertExpired        ErrorKind = "CERT_EXPIRED"
	ErrCertExpiringSoon   ErrorKind = "CERT_EXPIRING_SOON"
	ErrCertHostMismatch   ErrorKind = "CERT_HOSTNAME_MISMATCH"
	ErrCertSelfSigned     ErrorKind = "SELF_SIGNED_CERT"
	ErrCertLeafUnverified ErrorKind = "UNABLE_TO_VERIFY_LEAF_SIGNATURE"
	ErrCertChain          ErrorKind = "CERT_CHAIN_ERROR"

	// HTTP
	ErrHTTPServer        ErrorKind = "HTTP_SERVER_ERROR"
	ErrHTTPClient        ErrorKind = "HTTP_CLIENT_ERROR"
	ErrHTTPRateLimit     ErrorKind = "HTTP_RATE_LIMIT"
	ErrHTTPInformational ErrorKind = "HTTP_INFORMATIONAL"
	ErrHTTPNotFound      ErrorKind = "HTTP_NOT_FOUND"

	// Performance
	ErrSlowResponse ErrorKind = "SLOW_RESPONSE"
	ErrHighLatency  ErrorKind = "HIGH_LATENCY"

	// Protocol specific
	ErrDNSNotFound     ErrorKind = "DNS_NOT_FOUND"
	ErrUDPNoResponse   ErrorKind = "UDP_NO_RESPONSE"
	ErrSMTPNoBanner    ErrorKind = "SMTP_NO_BANNER"
	ErrSMTPUnavailable ErrorKind = "SMTP_SERVICE_UNAVAILABLE"
	ErrPingTimeout     ErrorKind = "PING_TIMEOUT"

	// Content
	ErrKeywordMismatch ErrorKind = "KEYWORD_MISMATCH"
	ErrStatusMismatch  ErrorKind = "STATUS_MISMATCH"

	// Internal: classification panicked and the fallback verdict was used.
	ErrHealthEvaluation ErrorKind = "HEALTH_EVALUATION_ERROR"
)

// networkKinds are the transport failures that always classify as down.
var networkKinds = map[ErrorKind]bool{
	ErrTimeout:            true,
	ErrDNS:                true,
	ErrConnectionRefused:  true,
	ErrConnectionReset:    true,
	ErrHostUnreachable:    true,
	ErrNetworkUnreachable: true,
	ErrDNSNotFound:        true,
	ErrUDPNoResponse:      true,
	ErrSMTPNoBanner:       true,
	ErrSMTPUnavailable:    true,
	ErrPingTimeout:        true,
}

// tlsKinds are certificate problems reported by the prober when the
// handshake itself failed.
var tlsKinds = map[ErrorKind]bool{
	ErrCertExpired:        true,
	ErrCertHostMismatch:   true,
	ErrCertSelfSigned:     true,
	ErrCertLeafUnverified: true,
	ErrCertChain:          true,
}

// TLSInfo is what the prober observed about the peer certificate when a
// handshake completed (possibly with verification disabled).
type TLSInfo struct {
	NotAfter         time.Time `json:"notAfter"`
	DaysRemaining    int       `json:"daysRemaining"`
	Issuer           string    `json:"issuer,omitempty"`
	SelfSigned       bool      `json:"selfSigned,omitempty"`
	HostnameMismatch bool      `json:"hostnameMismatch,omitempty"`
	ChainOK          bool      `json:"chainOk"`
}

// Expired reports whether the certificate was past NotAfter at observation.
func (t *TLSInfo) Expired() bool {
	return t.DaysRemaining < 0
}

// CheckSample is a single probe observation. State is filled by the engine
// with the raw classified state so persisted history can feed the window
// analyzer without reclassification.
type CheckSample struct {
	ID             string      `json:"id"`
	MonitorID      string      `json:"monitorId"`
	Timestamp      time.Time   `json:"timestamp"`
	Protocol       Protocol    `json:"protocol"`
	Success        bool        `json:"success"`
	LatencyMs      int64       `json:"latencyMs"`
	StatusCode     int         `json:"statusCode,omitempty"`
	ErrorKind      ErrorKind   `json:"errorKind,omitempty"`
	ErrorMsg       string      `json:"errorMsg,omitempty"`
	KeywordMatched *bool       `json:"keywordMatched,omitempty"`
	TLS            *TLSInfo    `json:"tls,omitempty"`
	State          HealthState `json:"state,omitempty"`
}

// Verdict is the classifier's judgement of one sample, before hysteresis.
type Verdict struct {
	State          HealthState `json:"state"`
	Severity       float64     `json:"severity"`
	Reasons        []string    `json:"reasons,omitempty"`
	ErrorKind      ErrorKind   `json:"errorKind,omitempty"`
	IsSlowResponse bool        `json:"isSlowResponse,omitempty"`
}

// MonitorPolicy carries the per-monitor knobs the engine needs. It is a
// projection of the stored monitor row, not the row itself.
type MonitorPolicy struct {
	ID                     string
	Protocol               Protocol
	ExpectedStatus         *int
	Keyword                string
	DegradedThresholdMs    *int64
	ExpectedResponseTimeMs *int64
	AlertThreshold         int
	SSLExpiryDays          *int
}

// HealthDecision is what one engine evaluation publishes.
type HealthDecision struct {
	MonitorID         string      `json:"monitorId"`
	CheckID           string      `json:"checkId"`
	State             HealthState `json:"state"`
	Confirmed         bool        `json:"confirmed"`
	Changed           bool        `json:"changed"`
	ConsecutiveCount  int         `json:"consecutiveCount"`
	Reasons           []string    `json:"reasons,omitempty"`
	PreventedFlapping bool        `json:"preventedFlapping,omitempty"`
	Verdict           Verdict     `json:"verdict"`
	At                time.Time   `json:"at"`
}

// PrimaryReason returns the first reason, or a generic fallback.
func (d HealthDecision) PrimaryReason() string {
	if len(d.Reasons) > 0 {
		return d.Reasons[0]
	}
	return "state " + string(d.State)
}

// EngineConfig gathers every tunable the evaluation pipeline uses. Zero
// values are never meaningful; construct with DefaultEngineConfig and
// override fields in tests.
type EngineConfig struct {
	CheckWindowSize                 int
	DegradedThresholdRatio          float64
	BaselineWindowSize              int
	MinTimeInState                  time.Duration
	ConsecutiveChecksForRecovery    int
	ConsecutiveChecksForDegradation int
	MinChecksForKnownState          int
	MaxTimeForUnknown               time.Duration
	VerificationCacheTTL            time.Duration
	VerificationConcurrency         int
	VerificationInterSlot           time.Duration
	WeightSSLWarning                float64
	WeightSlowResponse              float64
	WeightContentMismatch           float64
	FlapWindow                      time.Duration
	FlapTransitionLimit             int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CheckWindowSize:                 5,
		DegradedThresholdRatio:          0.6,
		BaselineWindowSize:              24,
		MinTimeInState:                  30 * time.Second,
		ConsecutiveChecksForRecovery:    1,
		ConsecutiveChecksForDegradation: 2,
		MinChecksForKnownState:          3,
		MaxTimeForUnknown:               5 * time.Minute,
		VerificationCacheTTL:            120 * time.Second,
		VerificationConcurrency:         3,
		VerificationInterSlot:           2500 * time.Millisecond,
		WeightSSLWarning:                0.3,
		WeightSlowResponse:              0.4,
		WeightContentMismatch:           0.5,
		FlapWindow:                      10 * time.Minute,
		FlapTransitionLimit:             4,
	}
}

// defaultSlowThresholds is the per-protocol fallback when a monitor does
// not define its own degraded latency threshold.
var defaultSlowThresholds = map[Protocol]int64{
	ProtoHTTP:  5000,
	ProtoHTTPS: 5000,
	ProtoPing:  1500,
	ProtoTCP:   3000,
	ProtoUDP:   3000,
	ProtoDNS:   2000,
	ProtoSMTP:  3000,
	ProtoSSL:   3000,
}

const fallbackSlowThresholdMs = int64(2000)

// SlowThreshold resolves the latency above which a successful response is
// considered slow for this monitor.
func SlowThreshold(policy MonitorPolicy) int64 {
	if policy.DegradedThresholdMs != nil && *policy.DegradedThresholdMs > 0 {
		return *policy.DegradedThresholdMs
	}
	if ms, ok := defaultSlowThresholds[policy.Protocol]; ok {
		return ms
	}
	return fallbackSlowThresholdMs
}

// expectedResponseTime is the recovery fast-track reference.
func expectedResponseTime(policy MonitorPolicy) int64 {
	if policy.ExpectedResponseTimeMs != nil && *policy.ExpectedResponseTimeMs > 0 {
		return *policy.ExpectedResponseTimeMs
	}
	return 1000
}

// sslExpiryDays is how close to NotAfter a certificate starts warning
// for this monitor.
func sslExpiryDays(policy MonitorPolicy) int {
	if policy.SSLExpiryDays != nil && *policy.SSLExpiryDays > 0 {
		return *policy.SSLExpiryDays
	}
	return 30
}

// alertThreshold is how many consecutive non-up proposals confirm a
// transition for this monitor.
func alertThreshold(policy MonitorPolicy, cfg EngineConfig) int {
	if policy.AlertThreshold > 0 {
		return policy.AlertThreshold
	}
	return cfg.ConsecutiveChecksForDegradation
}
