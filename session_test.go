package smpp_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/Mbosco/vumi"
	"github.com/Mbosco/vumi/internal/mock"
	"github.com/Mbosco/vumi/pdu"
)

// stepSequencer hands out sequence numbers one at a time, with an
// optional skip so a test can encode an unsolicited PDU (a response
// that doesn't consume the next outbound sequence number) without
// disturbing the count.
type stepSequencer struct {
	seq  uint32
	skip bool
}

func (s *stepSequencer) Next() uint32 {
	if s.skip {
		s.skip = false
		return s.seq
	}
	s.seq++
	return s.seq
}

func (s *stepSequencer) skipNext() {
	s.skip = true
}

// wireEncoder builds the exact bytes a mock.Conn scenario expects,
// driven by a stepSequencer so a whole bind/submit/unbind exchange can
// be scripted up front.
type wireEncoder struct {
	buf *bytes.Buffer
	enc *pdu.Encoder
	seq *stepSequencer
}

func newWireEncoder(start int) *wireEncoder {
	buf := bytes.NewBuffer(nil)
	seq := &stepSequencer{seq: uint32(start)}
	return &wireEncoder{buf: buf, seq: seq, enc: pdu.NewEncoder(buf, seq)}
}

func statusOrDefault(status []pdu.Status) pdu.Status {
	if len(status) > 0 {
		return status[0]
	}
	return pdu.StatusOK
}

// next encodes p consuming the next sequence number, as a request would.
func (w *wireEncoder) next(p pdu.PDU, status ...pdu.Status) []byte {
	w.buf.Reset()
	if _, err := w.enc.Encode(p, pdu.EncodeStatus(statusOrDefault(status))); err != nil {
		panic(err.Error())
	}
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out
}

// response encodes p reusing the previous sequence number, as a reply
// to the last request would.
func (w *wireEncoder) response(p pdu.PDU, status ...pdu.Status) []byte {
	w.buf.Reset()
	w.seq.skipNext()
	if _, err := w.enc.Encode(p, pdu.EncodeStatus(statusOrDefault(status))); err != nil {
		panic(err.Error())
	}
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out
}

func assertSessionClean(t *testing.T, conn *mock.Conn) {
	t.Helper()
	for _, err := range conn.Validate() {
		t.Error(err)
	}
}

func TestSessionBindSubmitUnbindRoundTrip(t *testing.T) {
	bindTRx := &pdu.BindTRx{
		SystemID:         "ESME",
		Password:         "password",
		SystemType:       "type",
		InterfaceVersion: smpp.Version,
		AddressRange:     "111111",
	}
	bindTRxResp := bindTRx.Response("SMSC")
	bindTRxResp.Options = pdu.NewOptions().SetScInterfaceVersion(smpp.Version)
	submitSm := &pdu.SubmitSm{
		SourceAddr:      "source",
		DestinationAddr: "destination",
		ShortMessage:    "this is the message",
	}
	submitSmResp := submitSm.Response("id0")
	unbind := pdu.Unbind{}
	unbindResp := pdu.UnbindResp{}

	w := newWireEncoder(0)
	conn := mock.NewConn().
		ByteWrite(w.next(bindTRx)).ByteRead(w.response(bindTRxResp)).
		ByteWrite(w.next(submitSm)).ByteRead(w.response(submitSmResp)).
		Wait(1).
		ByteWrite(w.next(unbind)).ByteRead(w.response(unbindResp)).
		Wait(1).
		Closed()

	sess := smpp.NewSession(conn, smpp.SessionConf{SystemID: "TestingESME"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp, err := sess.Send(ctx, bindTRx)
	if err != nil {
		t.Fatal(err)
	}
	if resp.CommandID() != pdu.BindTransceiverRespID {
		t.Errorf("expected BindTransceiverRespID got %d", resp.CommandID())
	}

	resp, err = sess.Send(ctx, submitSm)
	if err != nil {
		t.Fatal(err)
	}
	if resp.CommandID() != pdu.SubmitSmRespID {
		t.Errorf("expected SubmitSmRespID got %d", resp.CommandID())
	}

	resp, err = sess.Send(ctx, unbind)
	if err != nil {
		t.Fatal(err)
	}
	if resp.CommandID() != pdu.UnbindRespID {
		t.Errorf("expected UnbindRespID got %d", resp.CommandID())
	}

	if err := sess.Close(); err != nil {
		t.Errorf("Got error during session close %+v", err)
	}
	assertSessionClean(t, conn)
}

func TestSessionSubmitRejectedByInvalidStatus(t *testing.T) {
	bindTRx := &pdu.BindTRx{SystemID: "ESME"}
	bindTRxResp := bindTRx.Response("SMSC")
	submitSm := &pdu.SubmitSm{
		SourceAddr:      "source",
		DestinationAddr: "destination",
		ShortMessage:    "this is the message",
	}
	submitSmResp := submitSm.Response("id0")

	w := newWireEncoder(0)
	conn := mock.NewConn().
		ByteWrite(w.next(bindTRx)).ByteRead(w.response(bindTRxResp)).
		ByteWrite(w.next(submitSm)).ByteRead(w.response(submitSmResp, pdu.StatusInvDstAdr)).
		Wait(1).
		Closed()

	sess := smpp.NewSession(conn, smpp.SessionConf{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp, err := sess.Send(ctx, bindTRx)
	if err != nil {
		t.Fatal(err)
	}
	if resp.CommandID() != pdu.BindTransceiverRespID {
		t.Errorf("expected BindTransceiverRespID got %d", resp.CommandID())
	}

	resp, err = sess.Send(ctx, submitSm)
	if err == nil {
		t.Errorf("Expected status error got nil")
	}
	if resp.CommandID() != pdu.SubmitSmRespID {
		t.Errorf("expected SubmitSmRespID got %d", resp.CommandID())
	}
	serr, ok := err.(smpp.StatusError)
	if !ok {
		t.Errorf("Expected StatusError type")
	} else if expected := "Invalid Destination Address '0xB'"; serr.Error() != expected {
		t.Errorf("Status error: %v, expected %s", err, expected)
	}

	if err := sess.Close(); err != nil {
		t.Errorf("Got error during session close %+v", err)
	}
	assertSessionClean(t, conn)
}

func TestSessionServerHandlesBindAndSubmit(t *testing.T) {
	bindTRx := &pdu.BindTRx{
		SystemID:         "ESME",
		Password:         "password",
		SystemType:       "type",
		InterfaceVersion: smpp.Version,
		AddressRange:     "111111",
	}
	bindTRxResp := bindTRx.Response("SMSC")
	bindTRxResp.Options = pdu.NewOptions().SetScInterfaceVersion(smpp.Version)

	submitSm := &pdu.SubmitSm{
		SourceAddr:      "source",
		DestinationAddr: "destination",
		ShortMessage:    "this is the message",
	}
	submitSmResp := submitSm.Response("id0")

	done := make(chan struct{})
	w := newWireEncoder(0)
	conn := mock.NewConn().
		ByteRead(w.next(bindTRx, pdu.StatusOK)).ByteWrite(w.response(bindTRxResp, pdu.StatusOK)).
		ByteRead(w.next(submitSm, pdu.StatusOK)).ByteWrite(w.response(submitSmResp, pdu.StatusOK)).Wait(1).
		Closed()

	conf := smpp.SessionConf{
		SystemID: "TestingSMSC",
		Type:     smpp.SMSC,
		Handler: smpp.HandlerFunc(func(ctx *smpp.Context) {
			switch ctx.CommandID() {
			case pdu.BindTransceiverID:
				btrx, err := ctx.BindTRx()
				if err != nil {
					t.Errorf("Handler can't get BindTRx request %v", err)
				}
				resp := btrx.Response("SMSC")
				resp.Options = pdu.NewOptions().SetScInterfaceVersion(smpp.Version)
				if err := ctx.Respond(resp, pdu.StatusOK); err != nil {
					t.Errorf("Handler can't respond to bind request %v", err)
				}
			case pdu.SubmitSmID:
				defer close(done)
				sm, err := ctx.SubmitSm()
				if err != nil {
					t.Errorf("Handler can't get SubmitSm request %v", err)
				}
				resp := sm.Response("id0")
				if err := ctx.Respond(resp, pdu.StatusOK); err != nil {
					t.Errorf("Handler can't respond to SubmitSm request %v", err)
				}
			}
		}),
	}
	sess := smpp.NewSession(conn, conf)
	select {
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timeout waiting for response")
	case <-done:
	}
	sess.Close()
	assertSessionClean(t, conn)
}
