package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/probe"
)

// LocalProvider re-runs the check from this host. It is the vantage
// point of last resort: one node, same network position as the
// scheduler that already saw the failure.
type LocalProvider struct {
	prober  *probe.Prober
	timeout time.Duration
}

func NewLocalProvider(p *probe.Prober) *LocalProvider {
	return &LocalProvider{prober: p, timeout: 10 * time.Second}
}

func (l *LocalProvider) Name() string { return "local" }

func (l *LocalProvider) Verify(ctx context.Context, target Target) ([]NodeResult, error) {
	pt, err := probeTarget(target)
	if err != nil {
		return nil, err
	}
	pt.Timeout = l.timeout
	if target.Timeout > 0 {
		pt.Timeout = target.Timeout
	}

	sample := l.prober.Probe(ctx, pt)
	nr := NodeResult{
		Node:      LocalFallbackNode,
		OK:        sample.Success,
		LatencyMs: sample.LatencyMs,
	}
	if !sample.Success {
		nr.Error = sample.ErrorMsg
		if nr.Error == "" {
			nr.Error = string(sample.ErrorKind)
		}
	}
	return []NodeResult{nr}, nil
}

func probeTarget(t Target) (probe.Target, error) {
	switch t.Protocol {
	case "http":
		proto := health.ProtoHTTP
		if strings.HasPrefix(t.URL, "https://") {
			proto = health.ProtoHTTPS
		}
		return probe.Target{URL: t.URL, Protocol: proto}, nil
	case "tcp":
		return probe.Target{URL: t.Host, Protocol: health.ProtoTCP}, nil
	case "udp":
		return probe.Target{URL: t.Host, Protocol: health.ProtoUDP}, nil
	case "dns":
		return probe.Target{URL: t.Host, Protocol: health.ProtoDNS}, nil
	case "ping":
		return probe.Target{URL: t.Host, Protocol: health.ProtoPing}, nil
	default:
		return probe.Target{}, fmt.Errorf("unsupported verification protocol %q", t.Protocol)
	}
}
