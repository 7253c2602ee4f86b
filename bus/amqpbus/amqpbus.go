// Package amqpbus adapts the bus.Bus contract onto a single AMQP 1.0
// connection using github.com/Azure/go-amqp as the client. It speaks only
// the client side of the protocol: connecting to an existing broker,
// sending to an outbound-notification address and receiving from an
// inbound-command address. Broker topology (exchanges, queues, bindings)
// is assumed to already exist, matching the transport's stance that the
// broker itself is someone else's concern.
package amqpbus

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/Azure/go-amqp"

	"github.com/Mbosco/vumi/bus"
)

// Config names the AMQP addresses the adapter sends to and receives from.
type Config struct {
	URL string
	// InboundCommands is the address outbound_message commands arrive
	// on from the wider system.
	InboundCommands string
	// OutboundEvents is the address publish_message/ack/nack/delivery
	// report events are sent to.
	OutboundEvents string
}

// Bus implements bus.Bus over a single AMQP connection/session pair.
type Bus struct {
	conf Config

	conn     *amqp.Conn
	session  *amqp.Session
	sender   *amqp.Sender
	receiver *amqp.Receiver

	mu      sync.Mutex
	paused  bool
	handler bus.OutboundHandler
	cancel  context.CancelFunc
}

// Dial connects to conf.URL and opens the sender/receiver links the bus
// needs. The connection is not consumed from until Unpause is called.
func Dial(ctx context.Context, conf Config) (*Bus, error) {
	conn, err := amqp.Dial(ctx, conf.URL, nil)
	if err != nil {
		return nil, err
	}
	session, err := conn.NewSession(ctx, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}
	sender, err := session.NewSender(ctx, conf.OutboundEvents, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}
	receiver, err := session.NewReceiver(ctx, conf.InboundCommands, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Bus{
		conf:     conf,
		conn:     conn,
		session:  session,
		sender:   sender,
		receiver: receiver,
		paused:   true,
	}, nil
}

// Consume registers handler and starts the receive loop in the
// background. Messages are not settled off the wire until Unpause.
func (b *Bus) Consume(ctx context.Context, handler bus.OutboundHandler) error {
	b.mu.Lock()
	b.handler = handler
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()
	go b.receiveLoop(runCtx)
	return nil
}

func (b *Bus) receiveLoop(ctx context.Context) {
	for {
		msg, err := b.receiver.Receive(ctx, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		paused := b.paused
		handler := b.handler
		b.mu.Unlock()
		if paused || handler == nil {
			b.receiver.ReleaseMessage(ctx, msg)
			continue
		}
		var out bus.OutboundMessage
		if err := json.Unmarshal(msg.GetData(), &out); err != nil {
			b.receiver.RejectMessage(ctx, msg, nil)
			continue
		}
		if err := handler(ctx, out); err != nil {
			b.receiver.ReleaseMessage(ctx, msg)
			continue
		}
		b.receiver.AcceptMessage(ctx, msg)
	}
}

func (b *Bus) send(ctx context.Context, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.sender.Send(ctx, amqp.NewMessage(payload), nil)
}

// PublishMessage implements bus.Bus.
func (b *Bus) PublishMessage(ctx context.Context, msg bus.InboundMessage) error {
	return b.send(ctx, struct {
		Kind string `json:"kind"`
		bus.InboundMessage
	}{"message", msg})
}

// PublishAck implements bus.Bus.
func (b *Bus) PublishAck(ctx context.Context, userMessageID, sentMessageID string) error {
	return b.send(ctx, struct {
		Kind          string `json:"kind"`
		UserMessageID string `json:"user_message_id"`
		SentMessageID string `json:"sent_message_id"`
	}{"ack", userMessageID, sentMessageID})
}

// PublishNack implements bus.Bus.
func (b *Bus) PublishNack(ctx context.Context, userMessageID, reason string) error {
	return b.send(ctx, struct {
		Kind          string `json:"kind"`
		UserMessageID string `json:"user_message_id"`
		Reason        string `json:"reason"`
	}{"nack", userMessageID, reason})
}

// PublishDeliveryReport implements bus.Bus.
func (b *Bus) PublishDeliveryReport(ctx context.Context, report bus.DeliveryReport) error {
	return b.send(ctx, struct {
		Kind string `json:"kind"`
		bus.DeliveryReport
	}{"delivery_report", report})
}

// Pause implements bus.Bus.
func (b *Bus) Pause(ctx context.Context) error {
	b.mu.Lock()
	b.paused = true
	b.mu.Unlock()
	return nil
}

// Unpause implements bus.Bus.
func (b *Bus) Unpause(ctx context.Context) error {
	b.mu.Lock()
	b.paused = false
	b.mu.Unlock()
	return nil
}

// Close implements bus.Bus.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()
	return b.conn.Close()
}
