package bus

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus used in worker tests. Outbound messages
// queued with Inject are delivered to the registered handler only while
// the bus is unpaused, mirroring the real pause/unpause backpressure
// contract.
type MemoryBus struct {
	mu       sync.Mutex
	handler  OutboundHandler
	paused   bool
	pending  []OutboundMessage
	Acks     []struct{ UserMessageID, SentMessageID string }
	Nacks    []struct{ UserMessageID, Reason string }
	Reports  []DeliveryReport
	Messages []InboundMessage
}

// NewMemoryBus creates a MemoryBus that starts paused, matching a
// newly-constructed worker that hasn't yet seen esme_connected.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{paused: true}
}

// Inject queues an outbound message as if it had arrived from the broker.
// If the bus is unpaused and a handler is registered, it is delivered
// immediately; otherwise it queues until Unpause.
func (b *MemoryBus) Inject(ctx context.Context, msg OutboundMessage) error {
	b.mu.Lock()
	if b.paused || b.handler == nil {
		b.pending = append(b.pending, msg)
		b.mu.Unlock()
		return nil
	}
	handler := b.handler
	b.mu.Unlock()
	return handler(ctx, msg)
}

func (b *MemoryBus) Consume(ctx context.Context, handler OutboundHandler) error {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()
	return nil
}

func (b *MemoryBus) PublishMessage(ctx context.Context, msg InboundMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Messages = append(b.Messages, msg)
	return nil
}

func (b *MemoryBus) PublishAck(ctx context.Context, userMessageID, sentMessageID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Acks = append(b.Acks, struct{ UserMessageID, SentMessageID string }{userMessageID, sentMessageID})
	return nil
}

func (b *MemoryBus) PublishNack(ctx context.Context, userMessageID, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Nacks = append(b.Nacks, struct{ UserMessageID, Reason string }{userMessageID, reason})
	return nil
}

func (b *MemoryBus) PublishDeliveryReport(ctx context.Context, report DeliveryReport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Reports = append(b.Reports, report)
	return nil
}

func (b *MemoryBus) Pause(ctx context.Context) error {
	b.mu.Lock()
	b.paused = true
	b.mu.Unlock()
	return nil
}

func (b *MemoryBus) Unpause(ctx context.Context) error {
	b.mu.Lock()
	b.paused = false
	pending := b.pending
	b.pending = nil
	handler := b.handler
	b.mu.Unlock()
	for _, msg := range pending {
		if handler != nil {
			if err := handler(ctx, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *MemoryBus) Close() error {
	return nil
}
