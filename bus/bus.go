package bus

import "context"

// OutboundHandler is invoked once per OutboundMessage delivered by
// Bus.Consume.
type OutboundHandler func(ctx context.Context, msg OutboundMessage) error

// Bus is the message-bus contract the transport worker depends on. It
// never constructs a Bus itself beyond wiring one in at startup; the
// broker connection, retry policy, and topology are the concern of
// whichever Bus implementation a deployment chooses.
type Bus interface {
	// Consume registers handler to be called for every outbound message
	// arriving on the worker's queue. Consumption does not start until
	// Unpause is called, matching the "esme_connected gates consumption"
	// startup contract.
	Consume(ctx context.Context, handler OutboundHandler) error
	PublishMessage(ctx context.Context, msg InboundMessage) error
	PublishAck(ctx context.Context, userMessageID, sentMessageID string) error
	PublishNack(ctx context.Context, userMessageID, reason string) error
	PublishDeliveryReport(ctx context.Context, report DeliveryReport) error
	// Pause stops bus consumption without tearing down the connection,
	// used both for esme_disconnected and for throttling backpressure.
	Pause(ctx context.Context) error
	Unpause(ctx context.Context) error
	Close() error
}
