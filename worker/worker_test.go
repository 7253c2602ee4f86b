package worker

import (
	"context"
	"testing"

	smpp "github.com/Mbosco/vumi"
	"github.com/Mbosco/vumi/bus"
	"github.com/Mbosco/vumi/correlation"
	"github.com/Mbosco/vumi/failure"
	"github.com/Mbosco/vumi/kvstore"
	"github.com/Mbosco/vumi/operator"
	"github.com/Mbosco/vumi/pdu"
)

func okResult(smscID string) smpp.SubmitResult {
	return smpp.SubmitResult{Resp: &pdu.SubmitSmResp{MessageID: smscID}}
}

func failResult(status pdu.Status, msg string) smpp.SubmitResult {
	return smpp.SubmitResult{Err: smpp.NewStatusError(msg, status)}
}

func throttleResult() smpp.SubmitResult {
	return smpp.SubmitResult{Err: smpp.NewStatusError("throttled", pdu.StatusThrottled)}
}

func newTestWorker() (*Worker, *bus.MemoryBus, *failure.MemoryPublisher) {
	corr := correlation.New(kvstore.NewMemoryStore(), 0)
	b := bus.NewMemoryBus()
	fail := failure.NewMemoryPublisher()
	w := New(corr, b, fail, pdu.NewDataCodingTable(), nil, Config{})
	return w, b, fail
}

func TestBuildSubmitSmBasic(t *testing.T) {
	w, _, _ := newTestWorker()
	msg := bus.OutboundMessage{MessageID: "m1", ToAddr: "2771234567", FromAddr: "2700000000", Content: "hello"}
	p, err := w.buildSubmitSm(msg)
	if err != nil {
		t.Fatal(err)
	}
	if p.DestinationAddr != "2771234567" {
		t.Errorf("unexpected destination addr: %s", p.DestinationAddr)
	}
	if p.ShortMessage != "hello" {
		t.Errorf("unexpected short_message: %q", p.ShortMessage)
	}
	if p.Options != nil {
		t.Errorf("expected no options for a short plain message")
	}
}

func TestBuildSubmitSmOperatorOverride(t *testing.T) {
	w, _, _ := newTestWorker()
	w.Conf.Operators = operator.Table{
		CountryCode: "27",
		Prefix:      map[string]map[string]string{"27": {"2771": "netone"}},
		Number:      map[string]string{"netone": "27199999999"},
	}
	msg := bus.OutboundMessage{MessageID: "m1", ToAddr: "0771234567", FromAddr: "2700000000", Content: "hi"}
	p, err := w.buildSubmitSm(msg)
	if err != nil {
		t.Fatal(err)
	}
	if p.SourceAddr != "27199999999" {
		t.Errorf("expected operator override source addr, got %s", p.SourceAddr)
	}
}

func TestBuildSubmitSmLongMessageRequiresFlag(t *testing.T) {
	w, _, _ := newTestWorker()
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	msg := bus.OutboundMessage{MessageID: "m1", ToAddr: "123", FromAddr: "456", Content: string(long)}
	if _, err := w.buildSubmitSm(msg); err == nil {
		t.Fatal("expected error for long message with send_long_messages disabled")
	}
	w.Conf.SendLongMessages = true
	p, err := w.buildSubmitSm(msg)
	if err != nil {
		t.Fatal(err)
	}
	if p.Options == nil || p.Options.MessagePayload() != string(long) {
		t.Errorf("expected message_payload TLV with full content")
	}
	if p.ShortMessage != "" {
		t.Errorf("expected short_message left empty when using message_payload")
	}
}

func TestBuildSubmitSmUssd(t *testing.T) {
	w, _, _ := newTestWorker()
	msg := bus.OutboundMessage{
		MessageID:     "m1",
		ToAddr:        "123",
		FromAddr:      "456",
		Content:       "menu",
		TransportType: bus.TransportUSSD,
		SessionEvent:  bus.SessionClose,
	}
	p, err := w.buildSubmitSm(msg)
	if err != nil {
		t.Fatal(err)
	}
	op, ok := p.Options.GetSingle(pdu.TagUssdServiceOp)
	if !ok || op != ussdServiceOpEnd {
		t.Errorf("expected ussd_service_op ussdServiceOpEnd for session close, got %v ok=%v", op, ok)
	}
}

func TestHandleSubmitResultSuccessPublishesAck(t *testing.T) {
	w, b, _ := newTestWorker()
	ctx := context.Background()
	w.Correlation.StoreOutboundJSON(ctx, "m1", `{"message_id":"m1"}`)
	w.handleSubmitResult(ctx, "m1", okResult("smsc-1"))
	if len(b.Acks) != 1 || b.Acks[0].SentMessageID != "smsc-1" {
		t.Fatalf("expected ack published, got %+v", b.Acks)
	}
	if _, err := w.Correlation.ResolveThirdPartyID(ctx, "smsc-1"); err != nil {
		t.Errorf("expected third_party_id bound: %+v", err)
	}
	if _, err := w.Correlation.GetOutboundJSON(ctx, "m1"); err == nil {
		t.Errorf("expected stored body to be deleted on success")
	}
}

func TestHandleSubmitResultFailurePublishesNackAndFailure(t *testing.T) {
	w, b, fail := newTestWorker()
	ctx := context.Background()
	w.Correlation.StoreOutboundJSON(ctx, "m2", `{"message_id":"m2"}`)
	w.handleSubmitResult(ctx, "m2", failResult(pdu.StatusInvDstAdr, "invalid dest"))
	if len(b.Nacks) != 1 || b.Nacks[0].UserMessageID != "m2" {
		t.Fatalf("expected nack published, got %+v", b.Nacks)
	}
	if len(fail.Records) != 1 {
		t.Fatalf("expected one failure record, got %d", len(fail.Records))
	}
	if fail.Records[0].FailureCode != nil {
		t.Errorf("expected nil failure code for ordinary submit failure")
	}
}

// pauseCountingBus counts Pause and Unpause calls on top of a MemoryBus.
type pauseCountingBus struct {
	*bus.MemoryBus
	pauses, unpauses int
}

func (c *pauseCountingBus) Pause(ctx context.Context) error {
	c.pauses++
	return c.MemoryBus.Pause(ctx)
}

func (c *pauseCountingBus) Unpause(ctx context.Context) error {
	c.unpauses++
	return c.MemoryBus.Unpause(ctx)
}

func TestHandleSubmitResultThrottlePausesOnce(t *testing.T) {
	w, b, _ := newTestWorker()
	ctx := context.Background()
	b.Unpause(ctx)
	counter := &pauseCountingBus{MemoryBus: b}
	w.Bus = counter
	w.Correlation.StoreOutboundJSON(ctx, "m3", `{"message_id":"m3"}`)
	w.handleSubmitResult(ctx, "m3", throttleResult())
	w.handleSubmitResult(ctx, "m3", throttleResult())
	if !w.throttled {
		t.Fatalf("expected throttled flag set")
	}
	if counter.pauses != 1 {
		t.Errorf("pauses = %d, want 1 after two consecutive throttled results", counter.pauses)
	}

	w.handleSubmitResult(ctx, "m3", okResult("smsc-3"))
	if w.throttled {
		t.Errorf("expected throttled flag cleared on subsequent success")
	}
}

func TestDeliveryStatusMapping(t *testing.T) {
	cases := map[string]bus.DeliveryStatus{
		"DELIVRD": bus.DeliveryDelivered,
		"0":       bus.DeliveryDelivered,
		"REJECTD": bus.DeliveryFailed,
		"ENROUTE": bus.DeliveryPending,
		"":        bus.DeliveryPending,
	}
	for stat, want := range cases {
		if got := deliveryStatus(stat); got != want {
			t.Errorf("deliveryStatus(%q) = %s, want %s", stat, got, want)
		}
	}
}

func TestHandleDeliveryReportResolvesAndPublishes(t *testing.T) {
	w, b, _ := newTestWorker()
	ctx := context.Background()
	w.Correlation.BindThirdPartyID(ctx, "smsc-9", "m9")

	report := map[string]string{"id": "smsc-9", "stat": "DELIVRD", "done_date": "2601011200"}
	w.handleDeliveryReport(nil, &pdu.DeliverSm{ShortMessage: "delivered"}, report)

	if len(b.Reports) != 1 {
		t.Fatalf("expected one delivery report published, got %d", len(b.Reports))
	}
	r := b.Reports[0]
	if r.UserMessageID != "m9" || r.DeliveryStatus != bus.DeliveryDelivered {
		t.Errorf("unexpected report: %+v", r)
	}
	if _, err := w.Correlation.ResolveThirdPartyID(ctx, "smsc-9"); err != nil {
		t.Errorf("expected third_party_id mapping to survive a terminal report, relying on TTL expiry instead: %+v", err)
	}

	report2 := map[string]string{"id": "smsc-9", "stat": "DELIVRD", "done_date": "2601011201"}
	w.handleDeliveryReport(nil, &pdu.DeliverSm{ShortMessage: "delivered again"}, report2)
	if len(b.Reports) != 2 {
		t.Fatalf("expected a second report against the same smsc_id to resolve before TTL expiry, got %d reports", len(b.Reports))
	}
}

func TestHandleDeliverSmPublishesInboundMessage(t *testing.T) {
	w, b, _ := newTestWorker()
	d := &pdu.DeliverSm{
		SourceAddr:      "2771234567",
		DestinationAddr: "2700000000",
		ShortMessage:    "hi there",
	}
	w.handleDeliverSm(nil, d)
	if len(b.Messages) != 1 {
		t.Fatalf("expected one inbound message published, got %d", len(b.Messages))
	}
	got := b.Messages[0]
	if got.FromAddr != "2771234567" || got.Content != "hi there" {
		t.Errorf("unexpected inbound message: %+v", got)
	}
}

func TestUssdServiceOpMapping(t *testing.T) {
	if ussdServiceOp(bus.SessionNew) != ussdServiceOpNew {
		t.Errorf("expected ussdServiceOpNew for new session")
	}
	if ussdServiceOp(bus.SessionResume) != ussdServiceOpContinue {
		t.Errorf("expected ussdServiceOpContinue for resume session")
	}
	if ussdServiceOp(bus.SessionClose) != ussdServiceOpEnd {
		t.Errorf("expected ussdServiceOpEnd for close session, distinct from a continuing session")
	}
	if ussdServiceOp(bus.SessionClose) == ussdServiceOp(bus.SessionResume) {
		t.Errorf("continue_session must produce a distinguishable wire value from ending a session")
	}
}

func TestUssdSessionEventMapping(t *testing.T) {
	if ussdSessionEvent(0x01) != bus.SessionEventNew {
		t.Errorf("expected NEW for 0x01")
	}
	if ussdSessionEvent(0x02) != bus.SessionEventClose {
		t.Errorf("expected CLOSE for 0x02")
	}
	if ussdSessionEvent(0x00) != bus.SessionEventResume {
		t.Errorf("expected RESUME for any other value")
	}
}
