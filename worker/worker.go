// Package worker implements the transport worker that binds an SMPP ESME
// session to a message bus: consuming outbound bus messages and turning
// them into submit_sm, and turning submit_sm_resp/delivery reports/
// deliver_sm back into bus publishes.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	smpp "github.com/Mbosco/vumi"
	"github.com/Mbosco/vumi/bus"
	"github.com/Mbosco/vumi/correlation"
	"github.com/Mbosco/vumi/failure"
	"github.com/Mbosco/vumi/operator"
	"github.com/Mbosco/vumi/pdu"
	"github.com/Mbosco/vumi/smppmetrics"
)

// ussdSessionEvent maps the ussd_service_op byte carried in an inbound
// deliver_sm back to the bus's normalized session event vocabulary.
func ussdSessionEvent(op int) bus.SessionEvent {
	switch op {
	case 0x01:
		return bus.SessionEventNew
	case 0x02:
		return bus.SessionEventClose
	default:
		return bus.SessionEventResume
	}
}

// BindMode selects which half-duplex role a worker plays, mirroring the
// three SMPP bind flavors. All three install the same deliver_sm
// handlers; they differ only in Connected, where a Receiver neither
// consumes outbound messages from the bus nor unpauses it.
type BindMode int

const (
	Transceiver BindMode = iota
	Transmitter
	Receiver
)

// Config holds the submit_sm defaults and routing configuration the
// worker needs beyond the bare bind credentials.
type Config struct {
	Mode BindMode

	ServiceType        string
	DestAddrTon        int
	DestAddrNpi        int
	SourceAddrTon      int
	SourceAddrNpi      int
	RegisteredDelivery bool
	SendLongMessages   bool
	ThrottleDelay      time.Duration
	DataCoding         int

	Operators operator.Table
}

func (c *Config) setDefaults() {
	if c.DestAddrNpi == 0 {
		c.DestAddrNpi = 1
	}
	if c.ThrottleDelay == 0 {
		c.ThrottleDelay = 100 * time.Millisecond
	}
}

// Worker ties together a bound ESME session, the correlation store, the
// bus, and the failure sink. Its callbacks assume a single logical owner:
// handleOutbound, handleSubmitResult, handleDeliveryReport and
// handleDeliverSm may run on different goroutines but never touch shared
// state without going through the correlation store or the throttle
// mutex below.
type Worker struct {
	Correlation *correlation.Store
	Bus         bus.Bus
	Failures    failure.Publisher
	DataCoding  *pdu.DataCodingTable
	Logger      smpp.Logger
	Conf        Config
	// Metrics is optional; when set the worker reports throttle state,
	// sequence allocation, and submit outcomes to it.
	Metrics *smppmetrics.Metrics

	mu         sync.Mutex
	esme       *smpp.Esme
	throttled  bool
	consumeSet bool
}

// New constructs a Worker. Call Connected once a bind succeeds before any
// outbound traffic can flow.
func New(corr *correlation.Store, b bus.Bus, failures failure.Publisher, dc *pdu.DataCodingTable, logger smpp.Logger, conf Config) *Worker {
	conf.setDefaults()
	if logger == nil {
		logger = smpp.DefaultLogger{}
	}
	return &Worker{Correlation: corr, Bus: b, Failures: failures, DataCoding: dc, Logger: logger, Conf: conf}
}

// Connected wires esme in as the active session, registers the bus
// consumer exactly once, and unpauses consumption — the esme_connected
// transition. Receiver-mode workers register no consumer and never
// unpause, so outbound consumption stays paused. Transmitter-mode workers
// consume and unpause like transceivers so submit_sm can flow; their
// deliver_sm handlers stay installed even though a transmitter bind
// receives no deliver_sm.
func (w *Worker) Connected(ctx context.Context, esme *smpp.Esme) error {
	w.mu.Lock()
	w.esme = esme
	first := !w.consumeSet
	w.consumeSet = true
	w.mu.Unlock()

	if first && w.Conf.Mode != Receiver {
		if err := w.Bus.Consume(ctx, w.handleOutbound); err != nil {
			return err
		}
	}
	if w.Conf.Mode == Receiver {
		return nil
	}
	return w.Bus.Unpause(ctx)
}

// Disconnected pauses bus consumption — the esme_disconnected transition.
func (w *Worker) Disconnected(ctx context.Context) error {
	return w.Bus.Pause(ctx)
}

func (w *Worker) currentEsme() *smpp.Esme {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.esme
}

// handleOutbound implements the outbound path described in the spec:
// persist body, submit, persist sequence mapping.
func (w *Worker) handleOutbound(ctx context.Context, msg bus.OutboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := w.Correlation.StoreOutboundJSON(ctx, msg.MessageID, string(body)); err != nil {
		return err
	}
	return w.submit(ctx, msg)
}

func (w *Worker) submit(ctx context.Context, msg bus.OutboundMessage) error {
	esme := w.currentEsme()
	if esme == nil {
		return fmt.Errorf("smpp/worker: submit attempted with no active session")
	}
	p, err := w.buildSubmitSm(msg)
	if err != nil {
		w.Logger.ErrorF("worker: building submit_sm for %s: %+v", msg.MessageID, err)
		return w.fail(ctx, msg.MessageID, err.Error())
	}
	seq, results, err := esme.SubmitSmAsync(ctx, p)
	if err != nil {
		w.Logger.ErrorF("worker: submit_sm for %s: %+v", msg.MessageID, err)
		return w.fail(ctx, msg.MessageID, err.Error())
	}
	if err := w.Correlation.BindSequence(ctx, seq, msg.MessageID); err != nil {
		return err
	}
	if w.Metrics != nil {
		w.Metrics.SetSequence(seq)
		w.Metrics.SetUnacked(esme.Unacked())
	}
	go w.awaitSubmitResult(context.Background(), msg.MessageID, seq, results)
	return nil
}

func (w *Worker) buildSubmitSm(msg bus.OutboundMessage) (*pdu.SubmitSm, error) {
	source := w.Conf.Operators.ResolveSource(msg.ToAddr, msg.FromAddr)
	encoded, err := w.DataCoding.Encode(w.Conf.DataCoding, msg.Content)
	if err != nil {
		w.Logger.ErrorF("worker: encoding outbound content for %s: %+v", msg.MessageID, err)
	}
	if len(encoded) > 254 && !w.Conf.SendLongMessages {
		return nil, fmt.Errorf("smpp/worker: message %s exceeds 254 octets and send_long_messages is disabled", msg.MessageID)
	}

	p := &pdu.SubmitSm{
		ServiceType:     w.Conf.ServiceType,
		SourceAddrTon:   w.Conf.SourceAddrTon,
		SourceAddrNpi:   w.Conf.SourceAddrNpi,
		SourceAddr:      source,
		DestAddrTon:     w.Conf.DestAddrTon,
		DestAddrNpi:     w.Conf.DestAddrNpi,
		DestinationAddr: msg.ToAddr,
		DataCoding:      w.Conf.DataCoding,
	}
	if w.Conf.RegisteredDelivery {
		p.RegisteredDelivery = pdu.RegisteredDelivery{Receipt: pdu.YesDeliveryReceipt}
	}
	if len(encoded) > 254 {
		p.Options = pdu.NewOptions().SetMessagePayload(string(encoded))
	} else {
		p.ShortMessage = string(encoded)
	}

	if msg.TransportType == bus.TransportUSSD {
		if p.Options == nil {
			p.Options = pdu.NewOptions()
		}
		p.Options.SetSingle(pdu.TagUssdServiceOp, ussdServiceOp(msg.SessionEvent))
		if msg.TransportMetadata.SessionInfo != "" {
			p.Options.SetCString(pdu.TagItsSessionInfo, msg.TransportMetadata.SessionInfo)
		}
	}
	return p, nil
}

// ussd_service_op values carried in the submit_sm TLV, distinguishing a
// session that is continuing (new or resumed) from one that is ending.
const (
	ussdServiceOpNew      = 0x01
	ussdServiceOpContinue = 0x02
	ussdServiceOpEnd      = 0x11
)

// ussdServiceOp maps a bus session event to the ussd_service_op value
// carried as a submit_sm TLV, preserving the vumi transport's
// continue_session distinction (continue_session = session_event != close):
// a session that is not closing must read differently on the wire than the
// event that ends it, or a downstream USSD aggregator can't tell a
// continuing prompt from a final one.
func ussdServiceOp(event bus.SessionEvent) int {
	continueSession := event != bus.SessionClose
	if !continueSession {
		return ussdServiceOpEnd
	}
	if event == bus.SessionNew {
		return ussdServiceOpNew
	}
	return ussdServiceOpContinue
}

func (w *Worker) awaitSubmitResult(ctx context.Context, messageID string, seq uint32, results <-chan smpp.SubmitResult) {
	result := <-results
	if _, err := w.Correlation.ResolveSequence(ctx, seq); err != nil {
		w.Logger.ErrorF("worker: resolving sequence %d for %s after response: %+v", seq, messageID, err)
	}
	w.handleSubmitResult(ctx, messageID, result)
}

func (w *Worker) handleSubmitResult(ctx context.Context, messageID string, result smpp.SubmitResult) {
	if se, ok := result.Err.(smpp.StatusError); ok && se.Status() == pdu.StatusThrottled {
		if w.Metrics != nil {
			w.Metrics.ObserveSubmit("throttled")
		}
		w.handleThrottled(ctx, messageID)
		return
	}

	w.clearThrottle(ctx)

	if result.Err != nil {
		if w.Metrics != nil {
			w.Metrics.ObserveSubmit("failed")
		}
		w.handleSubmitFailure(ctx, messageID, result.Err.Error())
		return
	}
	if w.Metrics != nil {
		w.Metrics.ObserveSubmit("ok")
	}

	smscID := ""
	if result.Resp != nil {
		smscID = result.Resp.MessageID
	}
	if err := w.Correlation.BindThirdPartyID(ctx, smscID, messageID); err != nil {
		w.Logger.ErrorF("worker: binding third_party_id for %s: %+v", messageID, err)
	}
	if err := w.Correlation.DeleteOutboundJSON(ctx, messageID); err != nil {
		w.Logger.ErrorF("worker: deleting stored body for %s: %+v", messageID, err)
	}
	if err := w.Bus.PublishAck(ctx, messageID, smscID); err != nil {
		w.Logger.ErrorF("worker: publishing ack for %s: %+v", messageID, err)
	}
}

func (w *Worker) handleSubmitFailure(ctx context.Context, messageID, reason string) {
	body, err := w.Correlation.TakeOutboundJSON(ctx, messageID)
	if err != nil {
		w.Logger.ErrorF("worker: stored body for failed submit %s missing: %+v", messageID, err)
		return
	}
	if err := w.Bus.PublishNack(ctx, messageID, reason); err != nil {
		w.Logger.ErrorF("worker: publishing nack for %s: %+v", messageID, err)
	}
	if w.Failures != nil {
		if err := w.Failures.Publish(ctx, failure.NewRecord(body, reason)); err != nil {
			w.Logger.ErrorF("worker: publishing failure record for %s: %+v", messageID, err)
		}
	}
}

func (w *Worker) fail(ctx context.Context, messageID, reason string) error {
	w.handleSubmitFailure(ctx, messageID, reason)
	return nil
}

// handleThrottled implements edge-triggered throttling: only the first
// ESME_RTHROTTLED response pauses the bus; subsequent ones while already
// throttled are silent. The message body is preserved and resubmitted
// after ThrottleDelay.
func (w *Worker) handleThrottled(ctx context.Context, messageID string) {
	w.mu.Lock()
	first := !w.throttled
	w.throttled = true
	w.mu.Unlock()

	if first {
		w.Logger.ErrorF("worker: throttled, pausing bus consumption")
		if w.Metrics != nil {
			w.Metrics.SetThrottled(true)
		}
		if err := w.Bus.Pause(ctx); err != nil {
			w.Logger.ErrorF("worker: pausing bus on throttle: %+v", err)
		}
	}

	time.AfterFunc(w.Conf.ThrottleDelay, func() {
		w.resubmit(context.Background(), messageID)
	})
}

func (w *Worker) resubmit(ctx context.Context, messageID string) {
	body, err := w.Correlation.GetOutboundJSON(ctx, messageID)
	if err != nil {
		w.Logger.ErrorF("worker: throttled body for %s expired before resubmit, dropping", messageID)
		return
	}
	var msg bus.OutboundMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		w.Logger.ErrorF("worker: decoding stored body for resubmit of %s: %+v", messageID, err)
		return
	}
	if err := w.submit(ctx, msg); err != nil {
		w.Logger.ErrorF("worker: resubmitting %s after throttle: %+v", messageID, err)
	}
}

// clearThrottle implements the other half of edge-triggering: only the
// first success or non-throttled failure after a throttled period resumes
// bus consumption.
func (w *Worker) clearThrottle(ctx context.Context) {
	w.mu.Lock()
	wasThrottled := w.throttled
	w.throttled = false
	w.mu.Unlock()

	if wasThrottled {
		if err := w.Bus.Unpause(ctx); err != nil {
			w.Logger.ErrorF("worker: unpausing bus after throttle clear: %+v", err)
		}
	}
}

// Handlers builds the smpp.DeliverHandlers a fresh Session should be
// constructed with on every (re)connect, routing unsolicited deliver_sm
// PDUs into the worker's delivery-report and inbound-message paths.
func (w *Worker) Handlers() smpp.DeliverHandlers {
	return smpp.DeliverHandlers{
		DeliveryReport: w.handleDeliveryReport,
		DeliverSm:      w.handleDeliverSm,
	}
}

// handleDeliveryReport resolves the delivery report's third_party_id back
// to the originating message id and republishes it on the bus with a
// normalized delivery status, matching the vumi transport's
// DELIVRD/REJECTD/else status mapping. It deliberately never deletes the
// third_party_id mapping itself: a single smsc_id is commonly referenced
// by more than one report over a message's life (an interim notification
// followed by a final one), so the mapping is left to expire on its own
// TTL rather than being invalidated by the first terminal-looking report.
func (w *Worker) handleDeliveryReport(ctx *smpp.Context, d *pdu.DeliverSm, report map[string]string) {
	gctx := context.Background()
	smscID := report["id"]
	messageID, err := w.Correlation.ResolveThirdPartyID(gctx, smscID)
	if err != nil {
		w.Logger.ErrorF("worker: delivery report for unknown third_party_id %q: %+v", smscID, err)
		return
	}
	status := deliveryStatus(report["stat"])
	err = w.Bus.PublishDeliveryReport(gctx, bus.DeliveryReport{
		UserMessageID:  messageID,
		SentMessageID:  smscID,
		DeliveryStatus: status,
		TransportMetadata: bus.TransportMetadata{
			Message: d.ShortMessage,
			Date:    report["done_date"],
		},
	})
	if err != nil {
		w.Logger.ErrorF("worker: publishing delivery report for %s: %+v", messageID, err)
	}
}

// deliveryStatus maps an SMPP delivery receipt's stat field to the bus's
// tri-state delivery status, matching the vumi transport's DELIVRD ->
// delivered, REJECTD -> failed, everything else -> pending mapping.
func deliveryStatus(stat string) bus.DeliveryStatus {
	switch stat {
	case "DELIVRD", "0":
		return bus.DeliveryDelivered
	case "REJECTD":
		return bus.DeliveryFailed
	default:
		return bus.DeliveryPending
	}
}

// handleDeliverSm publishes an unsolicited, non-delivery-report deliver_sm
// as an inbound message, decoding its content with the worker's data
// coding table and carrying USSD session semantics when present.
func (w *Worker) handleDeliverSm(ctx *smpp.Context, d *pdu.DeliverSm) {
	gctx := context.Background()
	content, err := w.DataCoding.Decode(d.DataCoding, []byte(d.ShortMessage))
	if err != nil {
		w.Logger.ErrorF("worker: decoding inbound short_message: %+v", err)
	}
	msg := bus.InboundMessage{
		MessageID:     uuid.NewString(),
		ToAddr:        d.DestinationAddr,
		FromAddr:      d.SourceAddr,
		Content:       content,
		TransportType: bus.TransportSMS,
	}
	if d.Options != nil {
		if op, ok := d.Options.GetSingle(pdu.TagUssdServiceOp); ok {
			msg.TransportType = bus.TransportUSSD
			msg.SessionEvent = ussdSessionEvent(op)
			if info, ok := d.Options.GetCString(pdu.TagItsSessionInfo); ok {
				msg.TransportMetadata.SessionInfo = info
			}
		}
	}
	if err := w.Bus.PublishMessage(gctx, msg); err != nil {
		w.Logger.ErrorF("worker: publishing inbound message: %+v", err)
	}
}
