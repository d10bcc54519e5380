package verify

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/logging"
	"github.com/pulsewatch/vigil/internal/metrics"
)

// Options tunes the orchestrator. Zero values fall back to the
// defaults above; tests shrink the timings.
type Options struct {
	Provider    Provider // remote vantage points, nil when unconfigured
	CacheTTL    time.Duration
	Concurrency int
	InterSlot   time.Duration
	QueueSize   int
	RunTimeout  time.Duration
	Metrics     *metrics.Metrics
	// OnSummary receives every completed (or cache-served) summary so
	// incidents can be enriched without coupling callers to this package.
	OnSummary func(monitorID string, s Summary)
}

type task struct {
	monitor db.Monitor
	state   health.HealthState
	target  Target
	key     string
	reply   chan result
}

type result struct {
	summary Summary
	err     error
}

type cacheEntry struct {
	summary Summary
	expires time.Time
}

// Verifier owns the verification queue: a bounded FIFO drained by a
// fixed worker pool, with slot starts paced so the vantage-point
// provider is never hammered.
type Verifier struct {
	provider Provider
	local    Provider
	logger   *log.Logger
	metrics  *metrics.Metrics
	onSum    func(string, Summary)

	cacheTTL    time.Duration
	runTimeout  time.Duration
	concurrency int
	gate        *slotGate
	queue       chan task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	cache    map[string]cacheEntry
	pending  map[string]int
	canceled map[string]bool
}

// New builds a Verifier around a mandatory local provider. Call Start
// before triggering and Stop on shutdown.
func New(local Provider, logger *log.Logger, opts Options) *Verifier {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.InterSlot <= 0 {
		opts.InterSlot = DefaultInterSlot
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 90 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Verifier{
		provider:    opts.Provider,
		local:       local,
		logger:      logger,
		metrics:     opts.Metrics,
		onSum:       opts.OnSummary,
		cacheTTL:    opts.CacheTTL,
		runTimeout:  opts.RunTimeout,
		concurrency: opts.Concurrency,
		gate:        newSlotGate(opts.InterSlot),
		queue:       make(chan task, opts.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		cache:       make(map[string]cacheEntry),
		pending:     make(map[string]int),
		canceled:    make(map[string]bool),
	}
}

// Start launches the worker pool.
func (v *Verifier) Start() {
	for i := 0; i < v.concurrency; i++ {
		v.wg.Add(1)
		go v.worker()
	}
}

// Stop cancels in-flight work and waits for the workers to exit.
func (v *Verifier) Stop() {
	v.cancel()
	v.wg.Wait()
}

// TriggerVerification checks the monitor's target from every vantage
// point and blocks until the summary is ready. A fresh cached summary
// for the same target is served without queueing. Completed summaries
// are also delivered to the OnSummary callback.
func (v *Verifier) TriggerVerification(ctx context.Context, mon db.Monitor, state health.HealthState) (Summary, error) {
	target, err := MapTarget(mon)
	if err != nil {
		return Summary{}, err
	}
	key := target.cacheKey()

	if s, ok := v.cached(key); ok {
		s.MonitorID = mon.ID
		v.deliver(s)
		return s, nil
	}

	t := task{monitor: mon, state: state, target: target, key: key, reply: make(chan result, 1)}
	v.mu.Lock()
	v.pending[mon.ID]++
	v.mu.Unlock()

	select {
	case v.queue <- t:
		if v.metrics != nil {
			v.metrics.VerificationQueue.Inc()
		}
	default:
		v.mu.Lock()
		v.forgetPending(mon.ID)
		v.mu.Unlock()
		return Summary{}, ErrQueueFull
	}

	select {
	case <-v.ctx.Done():
		return Summary{}, ErrStopped
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case r := <-t.reply:
		return r.summary, r.err
	}
}

// Cancel discards any queued verifications for a monitor. Used when a
// monitor is deleted while a task is still waiting for a slot.
func (v *Verifier) Cancel(monitorID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending[monitorID] > 0 {
		v.canceled[monitorID] = true
	}
}

func (v *Verifier) worker() {
	defer v.wg.Done()
	for {
		select {
		case <-v.ctx.Done():
			return
		case t := <-v.queue:
			if v.dequeued(t.monitor.ID) {
				t.reply <- result{err: ErrCanceled}
				continue
			}
			// Another worker may have verified the same target while
			// this task sat in the queue.
			if s, ok := v.cached(t.key); ok {
				s.MonitorID = t.monitor.ID
				v.deliver(s)
				t.reply <- result{summary: s}
				continue
			}
			if err := v.gate.waitSlot(v.ctx); err != nil {
				t.reply <- result{err: ErrStopped}
				return
			}
			s, err := v.run(t)
			v.gate.done(time.Now())
			if err != nil {
				v.logger.Printf("verification of %s failed: %v", t.monitor.ID, err)
				t.reply <- result{err: err}
				continue
			}
			v.remember(t.key, s)
			if v.metrics != nil {
				v.metrics.VerificationsTotal.WithLabelValues(s.Conclusion).Inc()
			}
			v.deliver(s)
			t.reply <- result{summary: s}
		}
	}
}

// run fans out to the remote provider and falls back to the local
// prober when no vantage point produced a usable result. The run is
// bounded by the verifier's own context so a caller hanging up does
// not waste the already-started work.
func (v *Verifier) run(t task) (Summary, error) {
	ctx, cancel := context.WithTimeout(v.ctx, v.runTimeout)
	defer cancel()

	var nodes []NodeResult
	providerName := ""
	if v.provider != nil {
		res, err := v.provider.Verify(ctx, t.target)
		if err != nil {
			v.logger.Printf("provider %s: %v", v.provider.Name(), err)
		} else {
			nodes = res
		}
		providerName = v.provider.Name()
	}
	if len(nodes) == 0 {
		res, err := v.local.Verify(ctx, t.target)
		if err != nil {
			return Summary{}, err
		}
		nodes = res
		providerName = v.local.Name()
	}

	conclusion, level := aggregate(t.state, nodes)
	return Summary{
		MonitorID:  t.monitor.ID,
		UpCount:    countUp(nodes),
		TotalCount: len(nodes),
		Conclusion: conclusion,
		Level:      level,
		Nodes:      nodes,
		Provider:   providerName,
		VerifiedAt: time.Now().UTC(),
	}, nil
}

func (v *Verifier) deliver(s Summary) {
	if v.onSum != nil {
		v.onSum(s.MonitorID, s)
	}
}

func (v *Verifier) cached(key string) (Summary, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.cache[key]
	if !ok {
		return Summary{}, false
	}
	if time.Now().After(e.expires) {
		delete(v.cache, key)
		return Summary{}, false
	}
	s := e.summary
	s.Cached = true
	return s, true
}

func (v *Verifier) remember(key string, s Summary) {
	v.mu.Lock()
	v.cache[key] = cacheEntry{summary: s, expires: time.Now().Add(v.cacheTTL)}
	v.mu.Unlock()
}

// dequeued records a task leaving the queue and reports whether its
// monitor was canceled while waiting.
func (v *Verifier) dequeued(monitorID string) bool {
	if v.metrics != nil {
		v.metrics.VerificationQueue.Dec()
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	canceled := v.canceled[monitorID]
	v.forgetPending(monitorID)
	return canceled
}

// forgetPending must be called with mu held.
func (v *Verifier) forgetPending(monitorID string) {
	v.pending[monitorID]--
	if v.pending[monitorID] <= 0 {
		delete(v.pending, monitorID)
		delete(v.canceled, monitorID)
	}
}

// slotGate paces verification slot starts: a rate limiter spaces the
// starts themselves, and lastDone stretches the wait so the spacing is
// measured from the previous task's completion.
type slotGate struct {
	limiter  *rate.Limiter
	interval time.Duration

	mu       sync.Mutex
	lastDone time.Time
}

func newSlotGate(interval time.Duration) *slotGate {
	return &slotGate{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

func (g *slotGate) waitSlot(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	earliest := g.lastDone.Add(g.interval)
	g.mu.Unlock()
	if wait := time.Until(earliest); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (g *slotGate) done(at time.Time) {
	g.mu.Lock()
	if at.After(g.lastDone) {
		g.lastDone = at
	}
	g.mu.Unlock()
}
