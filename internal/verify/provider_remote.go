package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"

	"github.com/pulsewatch/vigil/internal/config"
	"github.com/pulsewatch/vigil/internal/logging"
)

var errLimitExceeded = errors.New("provider limit exceeded")

var defaultRegions = []string{"us-east", "eu-west", "ap-southeast"}

// RemoteProvider drives an external vantage-point API: a check is
// started per region, then polled until it reports a result. Requests
// authenticate with OAuth2 client credentials and flow through a
// circuit breaker so a dead provider degrades to the local fallback
// instead of stalling every verification.
type RemoteProvider struct {
	base    string
	regions []string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger

	pollInterval time.Duration
	limitDelays  []time.Duration
}

func NewRemoteProvider(cfg config.Verification, logger *log.Logger) *RemoteProvider {
	if logger == nil {
		logger = logging.Nop()
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	client := cc.Client(context.Background())
	client.Timeout = 30 * time.Second

	regions := cfg.Regions
	if len(regions) == 0 {
		regions = defaultRegions
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "verify-provider",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			// Being rate limited or hung up on by the caller says
			// nothing about the provider's health.
			return err == nil || errors.Is(err, errLimitExceeded) || errors.Is(err, context.Canceled)
		},
	})

	return &RemoteProvider{
		base:         strings.TrimRight(cfg.BaseURL, "/"),
		regions:      regions,
		client:       client,
		breaker:      breaker,
		logger:       logger,
		pollInterval: time.Second,
		limitDelays:  []time.Duration{3 * time.Second, 6 * time.Second},
	}
}

func (p *RemoteProvider) Name() string { return "multi-region" }

// Verify fans out across all configured regions. Regions whose API
// calls fail are dropped; an error is returned only when no region
// produced a usable result.
func (p *RemoteProvider) Verify(ctx context.Context, target Target) ([]NodeResult, error) {
	if len(p.regions) == 0 {
		return nil, errors.New("no regions configured")
	}

	results := make([]NodeResult, len(p.regions))
	errs := make([]error, len(p.regions))

	g, gctx := errgroup.WithContext(ctx)
	for i, region := range p.regions {
		i, region := i, region
		g.Go(func() error {
			nr, err := p.verifyRegion(gctx, region, target)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = nr
			return nil
		})
	}
	_ = g.Wait()

	usable := make([]NodeResult, 0, len(results))
	var firstErr error
	for i := range results {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			p.logger.Printf("region %s: %v", p.regions[i], errs[i])
			continue
		}
		usable = append(usable, results[i])
	}
	if len(usable) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, errors.New("no usable region results")
	}
	return usable, nil
}

func (p *RemoteProvider) verifyRegion(ctx context.Context, region string, target Target) (NodeResult, error) {
	if target.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, target.Timeout)
		defer cancel()
	}
	id, err := p.startCheck(ctx, region, target)
	if err != nil {
		return NodeResult{}, fmt.Errorf("start check: %w", err)
	}
	return p.awaitResult(ctx, region, id)
}

type startRequest struct {
	Region string `json:"region"`
	Type   string `json:"type"`
	Target string `json:"target"`
	Path   string `json:"path,omitempty"`
}

type startResponse struct {
	ID string `json:"id"`
}

type pollResponse struct {
	Status    string `json:"status"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error"`
}

func (p *RemoteProvider) startCheck(ctx context.Context, region string, target Target) (string, error) {
	addr := target.Host
	if target.Protocol == "http" {
		addr = target.URL
	}
	req := startRequest{Region: region, Type: target.Protocol, Target: addr, Path: target.Path}

	var resp startResponse
	err := p.withLimitRetry(ctx, func() error {
		return p.doJSON(ctx, http.MethodPost, p.base+"/v1/verifications", req, &resp)
	})
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("provider returned no check id")
	}
	return resp.ID, nil
}

func (p *RemoteProvider) awaitResult(ctx context.Context, region, id string) (NodeResult, error) {
	for {
		var resp pollResponse
		err := p.withLimitRetry(ctx, func() error {
			return p.doJSON(ctx, http.MethodGet, p.base+"/v1/verifications/"+id, nil, &resp)
		})
		if err != nil {
			return NodeResult{}, fmt.Errorf("poll check: %w", err)
		}
		if resp.Status != "pending" {
			return NodeResult{
				Node:      region,
				OK:        resp.OK,
				LatencyMs: resp.LatencyMs,
				Error:     resp.Error,
			}, nil
		}
		select {
		case <-ctx.Done():
			return NodeResult{}, ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

// withLimitRetry re-runs fn when the provider answers "limit
// exceeded", backing off 3 s then 6 s before giving up.
func (p *RemoteProvider) withLimitRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if !errors.Is(err, errLimitExceeded) || attempt >= len(p.limitDelays) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.limitDelays[attempt]):
		}
	}
}

func (p *RemoteProvider) doJSON(ctx context.Context, method, url string, in, out any) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		var body io.Reader
		if in != nil {
			buf, err := json.Marshal(in)
			if err != nil {
				return nil, err
			}
			body = bytes.NewReader(buf)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, errLimitExceeded
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if strings.Contains(strings.ToLower(string(b)), "limit exceeded") {
				return nil, errLimitExceeded
			}
			return nil, fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("provider unavailable: %w", err)
	}
	return err
}
