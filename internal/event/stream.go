package event

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/pulsewatch/vigil/internal/logging"
)

// DefaultMaxLen caps the Redis stream; entries beyond it are trimmed
// approximately on insert.
const DefaultMaxLen = 10000

// StreamPublisher writes transitions to a Redis stream and mirrors
// every event to an in-process hub. Redis being down degrades to
// hub-only delivery; the pipeline is never blocked or failed.
type StreamPublisher struct {
	rdb     *redis.Client
	stream  string
	maxLen  int64
	hub     *Hub
	logger  *log.Logger
	onError func()
}

func NewStreamPublisher(rdb *redis.Client, stream string, logger *log.Logger) *StreamPublisher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &StreamPublisher{
		rdb:    rdb,
		stream: stream,
		maxLen: DefaultMaxLen,
		hub:    NewHub(),
		logger: logger,
	}
}

// OnPublishError installs a hook called once per failed stream append,
// used for the error counter.
func (p *StreamPublisher) OnPublishError(fn func()) {
	p.onError = fn
}

func (p *StreamPublisher) Publish(ctx context.Context, e Event) error {
	// Local consumers first; they must see events even without Redis.
	_ = p.hub.Publish(ctx, e)

	_, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: e.values(),
	}).Result()
	if err != nil {
		p.logger.Printf("stream append failed, event %s kept hub-only: %v", e.ID, err)
		if p.onError != nil {
			p.onError()
		}
	}
	return nil
}

func (p *StreamPublisher) Subscribe(buffer int) (<-chan Event, func()) {
	return p.hub.Subscribe(buffer)
}

// History returns up to count persisted events, newest first. It reads
// from Redis, so it survives process restarts.
func (p *StreamPublisher) History(ctx context.Context, count int64) ([]Event, error) {
	if count <= 0 {
		count = 100
	}
	msgs, err := p.rdb.XRevRangeN(ctx, p.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	events := make([]Event, 0, len(msgs))
	for _, m := range msgs {
		events = append(events, eventFromValues(m.Values))
	}
	return events, nil
}

func (p *StreamPublisher) Close() error {
	return p.hub.Close()
}
