package health

import (
	"fmt"
	"log"
)

// Severity levels used by the classifier. Rule order, not severity, decides
// which rule fires; severity drives the hysteresis fast path (>= 0.9).
const (
	sevCertExpired    = 0.95
	sevCertOther      = 0.9
	sevCertDegraded   = 0.6
	sevSlowResponse   = 0.4
	sevNetworkError   = 0.95
	sevServerError    = 0.95
	sevRateLimit      = 0.6
	sevClientError    = 0.9
	sevInformational  = 0.5
	sevStatusMismatch = 1.0
	sevUnknownFailure = 0.9
)

// classify turns one probe sample into a verdict. Pure, no clock, no state.
// Availability rules run in a fixed order and the first match wins; content
// rules (keyword, pinned status) then adjust or override the result.
func classify(cfg EngineConfig, sample CheckSample, policy MonitorPolicy) Verdict {
	v := classifyAvailability(cfg, sample, policy)
	v = applyKeywordRule(cfg, v, sample, policy)
	v = applyExpectedStatusRule(v, sample, policy)
	return v
}

func classifyAvailability(cfg EngineConfig, sample CheckSample, policy MonitorPolicy) Verdict {
	// 1. Certificate problems.
	if v, ok := classifyTLS(cfg, sample, policy); ok {
		return v
	}

	// 2. Successful but slow.
	threshold := SlowThreshold(policy)
	if sample.Success && sample.LatencyMs > threshold && statusAcceptable(sample.StatusCode) {
		return Verdict{
			State:          StateDegraded,
			Severity:       sevSlowResponse,
			Reasons:        []string{fmt.Sprintf("Response time %dms exceeds threshold %dms", sample.LatencyMs, threshold)},
			ErrorKind:      ErrSlowResponse,
			IsSlowResponse: true,
		}
	}

	// 3. Transport failures.
	if networkKinds[sample.ErrorKind] {
		return Verdict{
			State:     StateDown,
			Severity:  sevNetworkError,
			Reasons:   []string{networkReason(sample)},
			ErrorKind: sample.ErrorKind,
		}
	}

	// 4. HTTP status families.
	if sample.StatusCode > 0 {
		return classifyStatus(sample.StatusCode)
	}

	// 5. Plain success.
	if sample.Success {
		return Verdict{State: StateUp}
	}

	// 6. Failed sample that matched nothing above.
	reason := "Unknown service failure"
	if sample.ErrorMsg != "" {
		reason = sample.ErrorMsg
	}
	return Verdict{
		State:     StateDown,
		Severity:  sevUnknownFailure,
		Reasons:   []string{reason},
		ErrorKind: sample.ErrorKind,
	}
}

// classifyTLS handles both handshake-level certificate failures (reported
// as an ErrorKind) and post-handshake certificate observations. For HTTPS
// monitors HTTP availability dominates certificate quality: a served 2xx/3xx
// with a bad or expiring certificate degrades, it does not go down. Pure
// certificate monitors (SSL protocol) always treat these as down.
func classifyTLS(cfg EngineConfig, sample CheckSample, policy MonitorPolicy) (Verdict, bool) {
	if tlsKinds[sample.ErrorKind] && !sample.Success {
		sev := sevCertOther
		if sample.ErrorKind == ErrCertExpired {
			sev = sevCertExpired
		}
		return Verdict{
			State:     StateDown,
			Severity:  sev,
			Reasons:   []string{tlsReason(sample.ErrorKind, sample.TLS)},
			ErrorKind: sample.ErrorKind,
		}, true
	}

	if sample.TLS == nil {
		return Verdict{}, false
	}
	info := sample.TLS

	httpServed := sample.Success && statusAcceptable(sample.StatusCode) && policy.Protocol == ProtoHTTPS

	switch {
	case info.Expired():
		if httpServed {
			return Verdict{
				State:     StateDegraded,
				Severity:  sevCertDegraded,
				Reasons:   []string{tlsReason(ErrCertExpired, info)},
				ErrorKind: ErrCertExpired,
			}, true
		}
		return Verdict{
			State:     StateDown,
			Severity:  sevCertExpired,
			Reasons:   []string{tlsReason(ErrCertExpired, info)},
			ErrorKind: ErrCertExpired,
		}, true

	case info.HostnameMismatch:
		return tlsHardOrDegraded(ErrCertHostMismatch, info, httpServed), true

	case info.SelfSigned:
		return tlsHardOrDegraded(ErrCertSelfSigned, info, httpServed), true

	case !info.ChainOK:
		return tlsHardOrDegraded(ErrCertChain, info, httpServed), true

	case info.DaysRemaining >= 0 && info.DaysRemaining <= sslExpiryDays(policy):
		// Expiring soon never blocks availability on its own.
		if sample.Success {
			return Verdict{
				State:     StateDegraded,
				Severity:  cfg.WeightSSLWarning,
				Reasons:   []string{tlsReason(ErrCertExpiringSoon, info)},
				ErrorKind: ErrCertExpiringSoon,
			}, true
		}
	}

	return Verdict{}, false
}

func tlsHardOrDegraded(kind ErrorKind, info *TLSInfo, httpServed bool) Verdict {
	if httpServed {
		return Verdict{
			State:     StateDegraded,
			Severity:  sevCertDegraded,
			Reasons:   []string{tlsReason(kind, info)},
			ErrorKind: kind,
		}
	}
	return Verdict{
		State:     StateDown,
		Severity:  sevCertOther,
		Reasons:   []string{tlsReason(kind, info)},
		ErrorKind: kind,
	}
}

func tlsReason(kind ErrorKind, info *TLSInfo) string {
	switch kind {
	case ErrCertExpired:
		if info != nil && info.DaysRemaining < 0 {
			return fmt.Sprintf("TLS certificate expired %d days ago", -info.DaysRemaining)
		}
		return "TLS certificate has expired"
	case ErrCertExpiringSoon:
		days := 0
		if info != nil {
			days = info.DaysRemaining
		}
		return fmt.Sprintf("TLS certificate expires in %d days", days)
	case ErrCertHostMismatch:
		return "TLS certificate hostname mismatch"
	case ErrCertSelfSigned:
		return "Self-signed TLS certificate"
	case ErrCertLeafUnverified:
		return "Unable to verify TLS leaf signature"
	default:
		return "TLS certificate chain error"
	}
}

func classifyStatus(code int) Verdict {
	switch {
	case code >= 500:
		return Verdict{
			State:     StateDown,
			Severity:  sevServerError,
			Reasons:   []string{fmt.Sprintf("Server error (HTTP %d)", code)},
			ErrorKind: ErrHTTPServer,
		}
	case code == 429:
		// Rate limiting is back-pressure, not an outage. IsSlowResponse
		// keeps the hysteresis engine from escalating it to down.
		return Verdict{
			State:          StateDegraded,
			Severity:       sevRateLimit,
			Reasons:        []string{"Rate limited (HTTP 429)"},
			ErrorKind:      ErrHTTPRateLimit,
			IsSlowResponse: true,
		}
	case code >= 400:
		kind := ErrHTTPClient
		reason := fmt.Sprintf("Client error (HTTP %d)", code)
		if code == 404 {
			kind = ErrHTTPNotFound
			reason = "Endpoint not found (HTTP 404)"
		}
		return Verdict{
			State:     StateDown,
			Severity:  sevClientError,
			Reasons:   []string{reason},
			ErrorKind: kind,
		}
	case code >= 200 && code < 400:
		return Verdict{State: StateUp}
	default:
		// 1xx: the server answered but never produced a final response.
		return Verdict{
			State:     StateDegraded,
			Severity:  sevInformational,
			Reasons:   []string{fmt.Sprintf("Unexpected informational response (HTTP %d)", code)},
			ErrorKind: ErrHTTPInformational,
		}
	}
}

// applyKeywordRule folds a content mismatch into the verdict. Content
// problems are quality signals: they add severity and lift an up verdict to
// degraded, but never force down on their own.
func applyKeywordRule(cfg EngineConfig, v Verdict, sample CheckSample, policy MonitorPolicy) Verdict {
	if policy.Keyword == "" || sample.KeywordMatched == nil || *sample.KeywordMatched {
		return v
	}

	v.Reasons = append(v.Reasons, fmt.Sprintf("Keyword %q not found in response", policy.Keyword))
	v.Severity = clampSeverity(v.Severity + cfg.WeightContentMismatch)
	if v.State.rank() < StateDegraded.rank() {
		v.State = StateDegraded
	}
	if v.ErrorKind == "" {
		v.ErrorKind = ErrKeywordMismatch
	}
	return v
}

// applyExpectedStatusRule overrides everything when the monitor pinned an
// exact status code and the service answered with a different one.
func applyExpectedStatusRule(v Verdict, sample CheckSample, policy MonitorPolicy) Verdict {
	if policy.ExpectedStatus == nil || sample.StatusCode == 0 {
		return v
	}
	if sample.StatusCode == *policy.ExpectedStatus {
		return v
	}
	return Verdict{
		State:     StateDown,
		Severity:  sevStatusMismatch,
		Reasons:   []string{fmt.Sprintf("Expected HTTP %d, got %d", *policy.ExpectedStatus, sample.StatusCode)},
		ErrorKind: ErrStatusMismatch,
	}
}

func statusAcceptable(code int) bool {
	return code == 0 || (code >= 200 && code < 400)
}

func networkReason(sample CheckSample) string {
	switch sample.ErrorKind {
	case ErrTimeout:
		return "Connection timed out"
	case ErrDNS:
		return "DNS resolution failed"
	case ErrDNSNotFound:
		return "DNS record not found"
	case ErrConnectionRefused:
		return "Connection refused"
	case ErrConnectionReset:
		return "Connection reset by peer"
	case ErrHostUnreachable:
		return "Host unreachable"
	case ErrNetworkUnreachable:
		return "Network unreachable"
	case ErrUDPNoResponse:
		return "No UDP response received"
	case ErrSMTPNoBanner:
		return "SMTP server sent no banner"
	case ErrSMTPUnavailable:
		return "SMTP service unavailable"
	case ErrPingTimeout:
		return "Ping timed out"
	default:
		if sample.ErrorMsg != "" {
			return sample.ErrorMsg
		}
		return "Network error"
	}
}

func clampSeverity(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}

// classifyGuarded shields the evaluation pipeline from classifier panics.
// A panic falls back to the sample's raw outcome, annotated with
// HEALTH_EVALUATION_ERROR, so the monitor keeps moving.
func classifyGuarded(cfg EngineConfig, sample CheckSample, policy MonitorPolicy, logger *log.Logger) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Printf("classifier panic for monitor %s: %v", policy.ID, r)
			}
			v = Verdict{State: StateDown, Severity: sevUnknownFailure, Reasons: []string{"Unknown service failure"}}
			if sample.Success {
				v = Verdict{State: StateUp}
			}
			v.ErrorKind = ErrHealthEvaluation
			v.Reasons = append(v.Reasons, string(ErrHealthEvaluation))
		}
	}()
	return classify(cfg, sample, policy)
}
