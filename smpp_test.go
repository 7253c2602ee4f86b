package smpp_test

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/Mbosco/vumi"
	"github.com/Mbosco/vumi/pdu"
)

// fakeSmsc is a bare TCP listener that decodes each inbound PDU and
// hands it to Respond to build the reply bytes, standing in for a real
// SMSC in tests that exercise smpp.BindTRx/Unbind end to end.
type fakeSmsc struct {
	Addr    string
	Respond func(in pdu.PDU) []byte
}

func (f *fakeSmsc) run(n int) {
	l, err := net.Listen("tcp", f.Addr)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	conn, err := l.Accept()
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	for i := 0; i < n; i++ {
		f.serveOne(conn)
	}
}

func (f *fakeSmsc) serveOne(conn net.Conn) {
	dec := pdu.NewDecoder(conn)
	_, p, err := dec.Decode()
	if err != nil {
		if err != io.EOF {
			log.Fatalf("fakeSmsc decode: %v", err)
		}
		return
	}
	if p == nil {
		log.Fatal("fakeSmsc: decode returned nil pdu")
	}
	res := f.Respond(p)
	if res == nil {
		return
	}
	if _, err := conn.Write(res); err != nil {
		log.Fatalf("fakeSmsc write: %v", err)
	}
}

func newFakeSmsc(addr string) *fakeSmsc {
	buf := &bytes.Buffer{}
	enc := pdu.NewEncoder(buf, nil)
	return &fakeSmsc{
		Addr: addr,
		Respond: func(in pdu.PDU) []byte {
			var res pdu.PDU
			switch in.CommandID() {
			case pdu.BindTransceiverID:
				res = &pdu.BindTRxResp{
					SystemID: "testing",
					Options:  pdu.NewOptions().SetScInterfaceVersion(0x34),
				}
			case pdu.UnbindID:
				res = &pdu.UnbindResp{}
			}
			buf.Reset()
			if _, err := enc.Encode(res); err != nil {
				panic("fakeSmsc: can't encode pdu")
			}
			return buf.Bytes()
		},
	}
}

func TestBindTRxThenUnbind(t *testing.T) {
	done := make(chan struct{})
	server := newFakeSmsc("localhost:2222")
	go func() {
		server.run(2)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	sess, err := smpp.BindTRx(smpp.SessionConf{}, smpp.BindConf{Addr: "localhost:2222"})
	if err != nil {
		t.Errorf("bind error %s", err)
	}
	if sess.SystemID() != "testing" {
		t.Errorf("Invalid SystemID after bind %s", sess.SystemID())
	}

	if err := smpp.Unbind(context.Background(), sess); err != nil {
		t.Errorf("unbind error %s", err)
	}

	select {
	case <-sess.NotifyClosed():
	case <-time.After(100 * time.Millisecond):
		t.Error("session close timeout")
	}
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Errorf("fake smsc didn't close")
	}
}

func TestBindTRxToUnreachableHost(t *testing.T) {
	sess, err := smpp.BindTRx(smpp.SessionConf{}, smpp.BindConf{Addr: "localhost:8484"})
	if err == nil {
		t.Errorf("expected error but got nil")
	}
	if sess != nil {
		t.Errorf("expected session to be nil got %s", sess)
	}
}
