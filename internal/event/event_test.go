package event

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pulsewatch/vigil/internal/health"
)

func testEvent(id string, to health.HealthState) Event {
	return Event{
		ID:        id,
		MonitorID: "m1",
		CheckID:   id,
		From:      health.StateUp,
		To:        to,
		Reason:    "Server error (HTTP 500)",
		ErrorKind: health.ErrHTTPServer,
		At:        time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestStreamPublisherAppendsAndReads(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	p := NewStreamPublisher(rdb, "vigil:transitions", nil)
	defer func() { _ = p.Close() }()

	ctx := context.Background()
	first := testEvent("e1", health.StateDown)
	second := testEvent("e2", health.StateUp)
	second.PreventedFlapping = true
	if err := p.Publish(ctx, first); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := p.Publish(ctx, second); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	events, err := p.History(ctx, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	// Newest first.
	if events[0].ID != "e2" || events[1].ID != "e1" {
		t.Errorf("Unexpected order: %s, %s", events[0].ID, events[1].ID)
	}
	got := events[1]
	if got.MonitorID != "m1" || got.From != health.StateUp || got.To != health.StateDown {
		t.Errorf("Event fields lost in round trip: %+v", got)
	}
	if got.ErrorKind != health.ErrHTTPServer {
		t.Errorf("ErrorKind lost: %q", got.ErrorKind)
	}
	if !got.At.Equal(first.At) {
		t.Errorf("Timestamp drifted: %v vs %v", got.At, first.At)
	}
	if !events[0].PreventedFlapping {
		t.Error("Flap flag lost in round trip")
	}
}

func TestStreamPublisherFallsBackToHub(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	p := NewStreamPublisher(rdb, "vigil:transitions", nil)
	defer func() { _ = p.Close() }()

	errors := 0
	p.OnPublishError(func() { errors++ })

	ch, cancel := p.Subscribe(4)
	defer cancel()

	// Kill Redis; publishing must still deliver locally and not error.
	mr.Close()

	if err := p.Publish(context.Background(), testEvent("e1", health.StateDown)); err != nil {
		t.Fatalf("Publish should not fail when Redis is down, got %v", err)
	}
	if errors != 1 {
		t.Errorf("Expected 1 publish error recorded, got %d", errors)
	}

	select {
	case e := <-ch:
		if e.ID != "e1" {
			t.Errorf("Unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("Hub subscriber did not receive the event")
	}
}

func TestHubFanOutAndDrop(t *testing.T) {
	h := NewHub()
	defer func() { _ = h.Close() }()

	a, cancelA := h.Subscribe(1)
	defer cancelA()
	b, cancelB := h.Subscribe(1)

	if err := h.Publish(context.Background(), testEvent("e1", health.StateDown)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	// Second publish overflows the 1-slot buffers and is dropped, not
	// blocked on.
	done := make(chan struct{})
	go func() {
		_ = h.Publish(context.Background(), testEvent("e2", health.StateUp))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if e := <-a; e.ID != "e1" {
		t.Errorf("Expected e1, got %s", e.ID)
	}
	if e := <-b; e.ID != "e1" {
		t.Errorf("Expected e1, got %s", e.ID)
	}

	// Cancelled subscribers are removed and their channel closed.
	cancelB()
	if _, ok := <-b; ok {
		t.Error("Expected closed channel after cancel")
	}
	if err := h.Publish(context.Background(), testEvent("e3", health.StateDown)); err != nil {
		t.Fatalf("Publish after cancel failed: %v", err)
	}
	if e := <-a; e.ID != "e3" {
		t.Errorf("Expected e3, got %s", e.ID)
	}
}

func TestHubCloseClosesSubscribers(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("Expected closed channel after hub close")
	}
	// Publishing after close is a silent no-op.
	if err := h.Publish(context.Background(), testEvent("e1", health.StateUp)); err != nil {
		t.Errorf("Publish after close should be nil, got %v", err)
	}
}

func TestFromDecision(t *testing.T) {
	d := health.HealthDecision{
		MonitorID:         "m1",
		CheckID:           "c1",
		State:             health.StateDown,
		Confirmed:         true,
		Changed:           true,
		Reasons:           []string{"Connection refused", "window pressure"},
		PreventedFlapping: false,
		Verdict:           health.Verdict{ErrorKind: health.ErrConnectionRefused},
		At:                time.Now(),
	}
	e := FromDecision(d, health.StateUp)
	if e.From != health.StateUp || e.To != health.StateDown {
		t.Errorf("Edge wrong: %s -> %s", e.From, e.To)
	}
	if e.Reason != "Connection refused" {
		t.Errorf("Expected primary reason, got %q", e.Reason)
	}
	if e.ErrorKind != health.ErrConnectionRefused {
		t.Errorf("ErrorKind wrong: %q", e.ErrorKind)
	}
}
