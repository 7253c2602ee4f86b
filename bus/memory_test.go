package bus

import (
	"context"
	"testing"
)

func TestMemoryBusQueuesWhilePaused(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()
	var got []OutboundMessage
	b.Consume(ctx, func(ctx context.Context, msg OutboundMessage) error {
		got = append(got, msg)
		return nil
	})
	b.Inject(ctx, OutboundMessage{MessageID: "1"})
	if len(got) != 0 {
		t.Fatalf("expected message to queue while paused, got %d delivered", len(got))
	}
	if err := b.Unpause(ctx); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].MessageID != "1" {
		t.Fatalf("expected queued message delivered on unpause, got %+v", got)
	}
}

func TestMemoryBusDeliversImmediatelyWhenUnpaused(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()
	var got []OutboundMessage
	b.Consume(ctx, func(ctx context.Context, msg OutboundMessage) error {
		got = append(got, msg)
		return nil
	})
	b.Unpause(ctx)
	b.Inject(ctx, OutboundMessage{MessageID: "2"})
	if len(got) != 1 || got[0].MessageID != "2" {
		t.Fatalf("expected immediate delivery, got %+v", got)
	}
}

func TestMemoryBusPublishAck(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()
	b.PublishAck(ctx, "u1", "s1")
	if len(b.Acks) != 1 || b.Acks[0].UserMessageID != "u1" || b.Acks[0].SentMessageID != "s1" {
		t.Errorf("unexpected acks: %+v", b.Acks)
	}
}

func TestMemoryBusPauseStopsDelivery(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()
	var count int
	b.Consume(ctx, func(ctx context.Context, msg OutboundMessage) error {
		count++
		return nil
	})
	b.Unpause(ctx)
	b.Pause(ctx)
	b.Inject(ctx, OutboundMessage{MessageID: "3"})
	if count != 0 {
		t.Errorf("expected no delivery while paused, got count=%d", count)
	}
}
