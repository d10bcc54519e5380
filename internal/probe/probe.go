// Package probe executes single protocol checks against a target and
// reports what it saw. It never interprets results beyond mapping
// transport errors to error kinds; classification is the engine's job.
package probe

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/logging"
)

const (
	userAgent = "vigil/1.0 (+https://github.com/pulsewatch/vigil)"

	// maxKeywordBody bounds how much of a response body is read when a
	// keyword rule is configured.
	maxKeywordBody = 512 << 10

	// drainLimit is how much body is consumed on keywordless checks so
	// connections can be reused.
	drainLimit = 64 << 10
)

// Target is everything a single probe run needs. URL holds the raw
// monitor target; for non-HTTP protocols it may be "host", "host:port"
// or a full URL whose host is used.
type Target struct {
	MonitorID string
	URL       string
	Protocol  health.Protocol
	Timeout   time.Duration
	Keyword   string
}

// Prober runs protocol checks. One instance is shared by all workers;
// it keeps a verified and an insecure HTTP client so certificate
// failures can still be inspected.
type Prober struct {
	client   *http.Client
	insecure *http.Client
	logger   *log.Logger
}

func New(logger *log.Logger) *Prober {
	if logger == nil {
		logger = logging.Nop()
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	insecureTransport := transport.Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &Prober{
		client:   &http.Client{Transport: transport},
		insecure: &http.Client{Transport: insecureTransport},
		logger:   logger,
	}
}

// Probe runs one check. The returned sample has Protocol, Success,
// LatencyMs and the error fields filled; ID and State are left for the
// evaluation pipeline. The context bounds the whole run; Target.Timeout
// is applied on top when set.
func (p *Prober) Probe(ctx context.Context, t Target) health.CheckSample {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	sample := health.CheckSample{
		MonitorID: t.MonitorID,
		Protocol:  t.Protocol,
	}

	switch t.Protocol {
	case health.ProtoHTTP, health.ProtoHTTPS:
		p.probeHTTP(ctx, t, &sample)
	case health.ProtoTCP:
		p.probeTCP(ctx, t, &sample)
	case health.ProtoUDP:
		p.probeUDP(ctx, t, &sample)
	case health.ProtoDNS:
		p.probeDNS(ctx, t, &sample)
	case health.ProtoPing:
		p.probePing(ctx, t, &sample)
	case health.ProtoSMTP:
		p.probeSMTP(ctx, t, &sample)
	case health.ProtoSSL:
		p.probeSSL(ctx, t, &sample)
	default:
		sample.Success = false
		sample.ErrorMsg = fmt.Sprintf("unsupported protocol %q", t.Protocol)
	}

	sample.Timestamp = time.Now().UTC()
	return sample
}

func (p *Prober) probeHTTP(ctx context.Context, t Target, sample *health.CheckSample) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		sample.ErrorMsg = err.Error()
		return
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := p.client.Do(req)
	sample.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		kind, msg := classifyError(err)
		sample.ErrorKind = kind
		sample.ErrorMsg = msg

		// Certificate rejections still say something about the service:
		// retry without verification so status and the real certificate
		// reach the classifier.
		if tlsFailure(kind) {
			p.inspectPastBadCert(ctx, t, sample, kind)
		}
		return
	}
	defer func() { _ = resp.Body.Close() }()

	sample.Success = true
	sample.StatusCode = resp.StatusCode
	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		info := tlsInfoFromCert(resp.TLS.PeerCertificates[0], len(resp.TLS.PeerCertificates))
		info.ChainOK = true
		sample.TLS = &info
	}

	if t.Keyword != "" {
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, maxKeywordBody))
		if rerr != nil {
			p.logger.Printf("keyword read for %s: %v", t.MonitorID, rerr)
		}
		matched := strings.Contains(string(body), t.Keyword)
		sample.KeywordMatched = &matched
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
}

// inspectPastBadCert refetches with verification disabled after a
// certificate rejection. A served response flips the sample back to
// success so HTTP availability can dominate certificate quality.
func (p *Prober) inspectPastBadCert(ctx context.Context, t Target, sample *health.CheckSample, kind health.ErrorKind) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := p.insecure.Do(req)
	if err != nil {
		return
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	sample.Success = true
	sample.StatusCode = resp.StatusCode
	sample.LatencyMs = time.Since(start).Milliseconds()
	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		info := tlsInfoFromCert(resp.TLS.PeerCertificates[0], len(resp.TLS.PeerCertificates))
		info.HostnameMismatch = kind == health.ErrCertHostMismatch
		info.SelfSigned = info.SelfSigned || kind == health.ErrCertSelfSigned
		sample.TLS = &info
	}
}

func (p *Prober) probeTCP(ctx context.Context, t Target, sample *health.CheckSample) {
	_, hostport, err := splitTarget(t.URL, "80")
	if err != nil {
		sample.ErrorMsg = err.Error()
		return
	}

	var d net.Dialer
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", hostport)
	sample.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		sample.ErrorKind, sample.ErrorMsg = classifyError(err)
		return
	}
	_ = conn.Close()
	sample.Success = true
}

// probeUDP sends a small datagram and waits for any reply. Silence is a
// failure: an answering service, even with an error payload, proves the
// port is handled, while ICMP port-unreachable surfaces as a read error.
func (p *Prober) probeUDP(ctx context.Context, t Target, sample *health.CheckSample) {
	_, hostport, err := splitTarget(t.URL, "53")
	if err != nil {
		sample.ErrorMsg = err.Error()
		return
	}

	var d net.Dialer
	start := time.Now()
	conn, err := d.DialContext(ctx, "udp", hostport)
	if err != nil {
		sample.LatencyMs = time.Since(start).Milliseconds()
		sample.ErrorKind, sample.ErrorMsg = classifyError(err)
		return
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := conn.Write([]byte("vigil-probe")); err != nil {
		sample.LatencyMs = time.Since(start).Milliseconds()
		sample.ErrorKind, sample.ErrorMsg = classifyError(err)
		return
	}

	buf := make([]byte, 512)
	_, err = conn.Read(buf)
	sample.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		kind, msg := classifyError(err)
		if kind == health.ErrTimeout {
			kind = health.ErrUDPNoResponse
			msg = "no datagram received before deadline"
		}
		sample.ErrorKind = kind
		sample.ErrorMsg = msg
		return
	}
	sample.Success = true
}

func (p *Prober) probeDNS(ctx context.Context, t Target, sample *health.CheckSample) {
	host, _, err := splitTarget(t.URL, "0")
	if err != nil {
		sample.ErrorMsg = err.Error()
		return
	}

	var r net.Resolver
	start := time.Now()
	addrs, err := r.LookupHost(ctx, host)
	sample.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		sample.ErrorKind, sample.ErrorMsg = classifyError(err)
		return
	}
	if len(addrs) == 0 {
		sample.ErrorKind = health.ErrDNSNotFound
		sample.ErrorMsg = fmt.Sprintf("no records for %s", host)
		return
	}
	sample.Success = true
}

func (p *Prober) probePing(ctx context.Context, t Target, sample *health.CheckSample) {
	host, _, err := splitTarget(t.URL, "0")
	if err != nil {
		sample.ErrorMsg = err.Error()
		return
	}

	pinger, err := probing.NewPinger(host)
	if err != nil {
		sample.ErrorKind, sample.ErrorMsg = classifyError(err)
		return
	}
	pinger.Count = 3
	pinger.Interval = 200 * time.Millisecond
	if t.Timeout > 0 {
		pinger.Timeout = t.Timeout
	} else {
		pinger.Timeout = 10 * time.Second
	}
	// Unprivileged UDP ping; containers rarely grant raw sockets.
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		sample.ErrorKind, sample.ErrorMsg = classifyError(err)
		return
	}

	stats := pinger.Statistics()
	sample.LatencyMs = stats.AvgRtt.Milliseconds()
	if stats.PacketsRecv == 0 {
		sample.ErrorKind = health.ErrPingTimeout
		sample.ErrorMsg = fmt.Sprintf("no echo reply from %s (%d sent)", host, stats.PacketsSent)
		return
	}
	sample.Success = true
}

func (p *Prober) probeSMTP(ctx context.Context, t Target, sample *health.CheckSample) {
	_, hostport, err := splitTarget(t.URL, "25")
	if err != nil {
		sample.ErrorMsg = err.Error()
		return
	}

	var d net.Dialer
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		sample.LatencyMs = time.Since(start).Milliseconds()
		sample.ErrorKind, sample.ErrorMsg = classifyError(err)
		return
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	banner, err := bufio.NewReader(conn).ReadString('\n')
	sample.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		sample.ErrorKind = health.ErrSMTPNoBanner
		sample.ErrorMsg = "no SMTP banner before deadline"
		return
	}

	code := smtpCode(banner)
	switch {
	case code == 220:
		sample.Success = true
		_, _ = conn.Write([]byte("QUIT\r\n"))
	case code == 421 || code == 554:
		sample.ErrorKind = health.ErrSMTPUnavailable
		sample.ErrorMsg = fmt.Sprintf("SMTP service unavailable (%d)", code)
	default:
		sample.ErrorKind = health.ErrSMTPNoBanner
		sample.ErrorMsg = fmt.Sprintf("unexpected SMTP greeting %q", strings.TrimSpace(banner))
	}
}

// probeSSL checks only the certificate. The handshake is retried
// without verification when it fails, so expiry details still reach
// the classifier; reachability problems stay transport errors.
func (p *Prober) probeSSL(ctx context.Context, t Target, sample *health.CheckSample) {
	host, hostport, err := splitTarget(t.URL, "443")
	if err != nil {
		sample.ErrorMsg = err.Error()
		return
	}

	start := time.Now()
	info, verifyErr, dialErr := dialForCert(ctx, host, hostport, false)
	sample.LatencyMs = time.Since(start).Milliseconds()

	if dialErr != nil {
		sample.ErrorKind, sample.ErrorMsg = classifyError(dialErr)
		return
	}
	if verifyErr == nil {
		info.ChainOK = true
		sample.TLS = info
		sample.Success = true
		return
	}

	kind, msg := classifyError(verifyErr)
	insecureInfo, _, insecureErr := dialForCert(ctx, host, hostport, true)
	if insecureErr != nil || insecureInfo == nil {
		sample.ErrorKind = kind
		sample.ErrorMsg = msg
		return
	}
	insecureInfo.HostnameMismatch = kind == health.ErrCertHostMismatch
	insecureInfo.SelfSigned = insecureInfo.SelfSigned || kind == health.ErrCertSelfSigned
	sample.TLS = insecureInfo
	sample.ErrorKind = kind
	sample.ErrorMsg = msg
	// The endpoint answered TLS; the certificate verdict is the
	// classifier's call.
	sample.Success = true
}

// dialForCert performs a TLS handshake and extracts leaf certificate
// details. It separates dial failures (host down) from verification
// failures (bad certificate).
func dialForCert(ctx context.Context, host, hostport string, insecure bool) (*health.TLSInfo, error, error) {
	d := tls.Dialer{Config: &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: insecure,
	}}
	conn, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		if isVerificationError(err) {
			return nil, err, nil
		}
		return nil, nil, err
	}
	defer func() { _ = conn.Close() }()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, nil, errors.New("no peer certificates presented")
	}
	info := tlsInfoFromCert(state.PeerCertificates[0], len(state.PeerCertificates))
	return &info, nil, nil
}

func isVerificationError(err error) bool {
	var (
		certInvalid x509.CertificateInvalidError
		hostname    x509.HostnameError
		authority   x509.UnknownAuthorityError
	)
	return errors.As(err, &certInvalid) || errors.As(err, &hostname) || errors.As(err, &authority)
}

func tlsInfoFromCert(cert *x509.Certificate, chainLen int) health.TLSInfo {
	days := int(time.Until(cert.NotAfter).Hours() / 24)
	return health.TLSInfo{
		NotAfter:      cert.NotAfter,
		DaysRemaining: days,
		Issuer:        cert.Issuer.CommonName,
		SelfSigned:    chainLen == 1 && cert.Subject.String() == cert.Issuer.String(),
	}
}

func tlsFailure(kind health.ErrorKind) bool {
	switch kind {
	case health.ErrCertExpired, health.ErrCertHostMismatch, health.ErrCertSelfSigned,
		health.ErrCertLeafUnverified, health.ErrCertChain:
		return true
	}
	return false
}

// classifyError maps a transport error onto the error taxonomy.
// Unmatched failures keep an empty kind; the classifier treats those
// as generic service failures.
func classifyError(err error) (health.ErrorKind, string) {
	var (
		certInvalid x509.CertificateInvalidError
		hostname    x509.HostnameError
		authority   x509.UnknownAuthorityError
		dnsErr      *net.DNSError
	)
	switch {
	case errors.As(err, &certInvalid):
		if certInvalid.Reason == x509.Expired {
			return health.ErrCertExpired, err.Error()
		}
		return health.ErrCertChain, err.Error()
	case errors.As(err, &hostname):
		return health.ErrCertHostMismatch, err.Error()
	case errors.As(err, &authority):
		if c := authority.Cert; c != nil && c.Subject.String() == c.Issuer.String() {
			return health.ErrCertSelfSigned, err.Error()
		}
		return health.ErrCertLeafUnverified, err.Error()
	case errors.As(err, &dnsErr):
		if dnsErr.IsNotFound {
			return health.ErrDNSNotFound, err.Error()
		}
		return health.ErrDNS, err.Error()
	case errors.Is(err, syscall.ECONNREFUSED):
		return health.ErrConnectionRefused, err.Error()
	case errors.Is(err, syscall.ECONNRESET):
		return health.ErrConnectionReset, err.Error()
	case errors.Is(err, syscall.EHOSTUNREACH):
		return health.ErrHostUnreachable, err.Error()
	case errors.Is(err, syscall.ENETUNREACH):
		return health.ErrNetworkUnreachable, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return health.ErrTimeout, err.Error()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return health.ErrTimeout, err.Error()
	}
	return "", err.Error()
}

// splitTarget extracts the host and a dialable host:port from a raw
// monitor target, which may be a URL, host:port, or bare host.
func splitTarget(raw, defaultPort string) (host, hostport string, err error) {
	if strings.Contains(raw, "://") {
		u, uerr := url.Parse(raw)
		if uerr != nil {
			return "", "", fmt.Errorf("parse target: %w", uerr)
		}
		if u.Hostname() == "" {
			return "", "", fmt.Errorf("target %q has no host", raw)
		}
		port := u.Port()
		if port == "" {
			port = defaultPort
		}
		return u.Hostname(), net.JoinHostPort(u.Hostname(), port), nil
	}
	if h, p, serr := net.SplitHostPort(raw); serr == nil {
		return h, net.JoinHostPort(h, p), nil
	}
	if raw == "" {
		return "", "", errors.New("empty target")
	}
	return raw, net.JoinHostPort(raw, defaultPort), nil
}

func smtpCode(banner string) int {
	if len(banner) < 3 {
		return 0
	}
	code, err := strconv.Atoi(banner[:3])
	if err != nil {
		return 0
	}
	return code
}
