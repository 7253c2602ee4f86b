// Package smpp implements the wire protocol and session state machine for
// SMPP 3.4. It exists to give the transport worker (see package worker) a
// Session it can bind, submit through, and receive deliver_sm callbacks
// on; on its own it knows nothing about buses, correlation stores, or
// message routing.
//
// A bare Session can be built directly over an already-dialed connection:
//
//	sess := smpp.NewSession(conn, conf)
//
// but binding is the common path, since it also performs the handshake:
//
//	sess, err := smpp.BindTRx(sessConf, bindConf)
//
// Once bound, a session sends PDUs and waits for their response:
//
//	resp, err := sess.Send(ctx, &pdu.SubmitSm{
//		SourceAddr:      "11111111",
//		DestinationAddr: "22222222",
//		ShortMessage:    "Hello from SMPP!",
//	})
//
// and must eventually be closed:
//
//	sess.Close()
//
// Inbound requests (binds on the SMSC side, deliver_sm on the ESME side)
// are routed to a Handler set in SessionConf; NewDeliverSmRouter builds the
// one the worker actually installs.
package smpp

import (
	"context"
	"net"
	"time"

	"github.com/Mbosco/vumi/pdu"
)

const (
	// Version is the only interface_version this package speaks.
	Version = 0x34
	// SequenceStart is the first sequence number a new bind allocates.
	SequenceStart = 0x00000001
	// SequenceEnd is the sequence number ceiling; allocation wraps back
	// to SequenceStart past this point.
	SequenceEnd = 0x7FFFFFFF
)

// BindConf holds the mandatory parameters of a bind_transmitter,
// bind_receiver, or bind_transceiver request.
type BindConf struct {
	// Addr is dialed over TCP before the bind PDU is sent.
	Addr string

	SystemID   string
	Password   string
	SystemType string
	AddrTon    int
	AddrNpi    int
	AddrRange  string
}

func bind(req pdu.PDU, sc SessionConf, bc BindConf) (*Session, error) {
	conn, err := net.Dial("tcp", bc.Addr)
	if err != nil {
		return nil, err
	}
	sess := NewSession(conn, sc)
	timeout := sc.WindowTimeout
	if timeout == 0 {
		timeout = time.Second * 5
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := sess.Send(ctx, req); err != nil {
		return sess, err
	}
	return sess, nil
}

// BindTx dials bc.Addr and binds as a transmitter, returning a Session
// that may send submit_sm but will reject an inbound deliver_sm.
func BindTx(sc SessionConf, bc BindConf) (*Session, error) {
	return bind(&pdu.BindTx{
		SystemID:         bc.SystemID,
		Password:         bc.Password,
		SystemType:       bc.SystemType,
		InterfaceVersion: Version,
		AddrTon:          bc.AddrTon,
		AddrNpi:          bc.AddrNpi,
		AddressRange:     bc.AddrRange,
	}, sc, bc)
}

// BindRx dials bc.Addr and binds as a receiver, returning a Session that
// accepts deliver_sm but will reject an attempt to submit_sm.
func BindRx(sc SessionConf, bc BindConf) (*Session, error) {
	return bind(&pdu.BindRx{
		SystemID:         bc.SystemID,
		Password:         bc.Password,
		SystemType:       bc.SystemType,
		InterfaceVersion: Version,
		AddrTon:          bc.AddrTon,
		AddrNpi:          bc.AddrNpi,
		AddressRange:     bc.AddrRange,
	}, sc, bc)
}

// BindTRx dials bc.Addr and binds as a transceiver, opening both
// directions on one connection. This is the mode the transport worker
// defaults to.
func BindTRx(sc SessionConf, bc BindConf) (*Session, error) {
	return bind(&pdu.BindTRx{
		SystemID:         bc.SystemID,
		Password:         bc.Password,
		SystemType:       bc.SystemType,
		InterfaceVersion: Version,
		AddrTon:          bc.AddrTon,
		AddrNpi:          bc.AddrNpi,
		AddressRange:     bc.AddrRange,
	}, sc, bc)
}

// Unbind sends an unbind request and closes sess regardless of whether the
// peer answers in time.
func Unbind(ctx context.Context, sess *Session) error {
	defer sess.Close()
	_, err := sess.Send(ctx, pdu.Unbind{})
	return err
}

// sendFor sends req and type-asserts the response to R, the PDU type req's
// command_id implies as its reply. It folds every Send<X> helper below
// that expects a distinct response PDU into one generic implementation.
func sendFor[R pdu.PDU](ctx context.Context, sess *Session, req pdu.PDU) (R, error) {
	var typed R
	resp, err := sess.Send(ctx, req)
	if resp != nil {
		if r, ok := resp.(R); ok {
			typed = r
		}
	}
	return typed, err
}

// sendOnly sends req and discards the response, for PDUs whose reply
// carries nothing the caller needs (the *_resp PDUs themselves, and
// fire-and-forget notifications like outbind and alert_notification).
func sendOnly(ctx context.Context, sess *Session, req pdu.PDU) error {
	_, err := sess.Send(ctx, req)
	return err
}

// SendGenericNack sends a generic_nack.
func SendGenericNack(ctx context.Context, sess *Session, p *pdu.GenericNack) error {
	return sendOnly(ctx, sess, p)
}

// SendBindRx sends a bind_receiver and returns its response.
func SendBindRx(ctx context.Context, sess *Session, p *pdu.BindRx) (*pdu.BindRxResp, error) {
	return sendFor[*pdu.BindRxResp](ctx, sess, p)
}

// SendBindRxResp sends a bind_receiver_resp.
func SendBindRxResp(ctx context.Context, sess *Session, p *pdu.BindRxResp) error {
	return sendOnly(ctx, sess, p)
}

// SendBindTx sends a bind_transmitter and returns its response.
func SendBindTx(ctx context.Context, sess *Session, p *pdu.BindTx) (*pdu.BindTxResp, error) {
	return sendFor[*pdu.BindTxResp](ctx, sess, p)
}

// SendBindTxResp sends a bind_transmitter_resp.
func SendBindTxResp(ctx context.Context, sess *Session, p *pdu.BindTxResp) error {
	return sendOnly(ctx, sess, p)
}

// SendQuerySm sends a query_sm and returns its response.
func SendQuerySm(ctx context.Context, sess *Session, p *pdu.QuerySm) (*pdu.QuerySmResp, error) {
	return sendFor[*pdu.QuerySmResp](ctx, sess, p)
}

// SendQuerySmResp sends a query_sm_resp.
func SendQuerySmResp(ctx context.Context, sess *Session, p *pdu.QuerySmResp) error {
	return sendOnly(ctx, sess, p)
}

// SendSubmitSm sends a submit_sm and returns its response. The worker's
// outbound path uses Esme.SubmitSm / Esme.SubmitSmAsync instead, which
// additionally track the in-flight count; this is the primitive they're
// built on.
func SendSubmitSm(ctx context.Context, sess *Session, p *pdu.SubmitSm) (*pdu.SubmitSmResp, error) {
	return sendFor[*pdu.SubmitSmResp](ctx, sess, p)
}

// SendSubmitSmResp sends a submit_sm_resp.
func SendSubmitSmResp(ctx context.Context, sess *Session, p *pdu.SubmitSmResp) error {
	return sendOnly(ctx, sess, p)
}

// SendDeliverSm sends a deliver_sm and returns its response.
func SendDeliverSm(ctx context.Context, sess *Session, p *pdu.DeliverSm) (*pdu.DeliverSmResp, error) {
	return sendFor[*pdu.DeliverSmResp](ctx, sess, p)
}

// SendDeliverSmResp sends a deliver_sm_resp.
func SendDeliverSmResp(ctx context.Context, sess *Session, p *pdu.DeliverSmResp) error {
	return sendOnly(ctx, sess, p)
}

// SendUnbind sends an unbind request and returns its response, without
// closing the session; the package-level Unbind function does both.
func SendUnbind(ctx context.Context, sess *Session, p *pdu.Unbind) (*pdu.UnbindResp, error) {
	return sendFor[*pdu.UnbindResp](ctx, sess, p)
}

// SendUnbindResp sends an unbind_resp.
func SendUnbindResp(ctx context.Context, sess *Session, p *pdu.UnbindResp) error {
	return sendOnly(ctx, sess, p)
}

// SendReplaceSm sends a replace_sm and returns its response.
func SendReplaceSm(ctx context.Context, sess *Session, p *pdu.ReplaceSm) (*pdu.ReplaceSmResp, error) {
	return sendFor[*pdu.ReplaceSmResp](ctx, sess, p)
}

// SendReplaceSmResp sends a replace_sm_resp.
func SendReplaceSmResp(ctx context.Context, sess *Session, p *pdu.ReplaceSmResp) error {
	return sendOnly(ctx, sess, p)
}

// SendCancelSm sends a cancel_sm and returns its response.
func SendCancelSm(ctx context.Context, sess *Session, p *pdu.CancelSm) (*pdu.CancelSmResp, error) {
	return sendFor[*pdu.CancelSmResp](ctx, sess, p)
}

// SendCancelSmResp sends a cancel_sm_resp.
func SendCancelSmResp(ctx context.Context, sess *Session, p *pdu.CancelSmResp) error {
	return sendOnly(ctx, sess, p)
}

// SendBindTRx sends a bind_transceiver and returns its response.
func SendBindTRx(ctx context.Context, sess *Session, p *pdu.BindTRx) (*pdu.BindTRxResp, error) {
	return sendFor[*pdu.BindTRxResp](ctx, sess, p)
}

// SendBindTRxResp sends a bind_transceiver_resp.
func SendBindTRxResp(ctx context.Context, sess *Session, p *pdu.BindTRxResp) error {
	return sendOnly(ctx, sess, p)
}

// SendOutbind sends an outbind notification (SMSC-initiated bind request).
func SendOutbind(ctx context.Context, sess *Session, p *pdu.Outbind) error {
	return sendOnly(ctx, sess, p)
}

// SendEnquireLink sends an enquire_link and returns its response.
// Esme.StartEnquireLink calls this on a fixed interval to detect a dead
// connection.
func SendEnquireLink(ctx context.Context, sess *Session, p *pdu.EnquireLink) (*pdu.EnquireLinkResp, error) {
	return sendFor[*pdu.EnquireLinkResp](ctx, sess, p)
}

// SendEnquireLinkResp sends an enquire_link_resp.
func SendEnquireLinkResp(ctx context.Context, sess *Session, p *pdu.EnquireLinkResp) error {
	return sendOnly(ctx, sess, p)
}

// SendSubmitMulti sends a submit_multi and returns its response.
func SendSubmitMulti(ctx context.Context, sess *Session, p *pdu.SubmitMulti) (*pdu.SubmitMultiResp, error) {
	return sendFor[*pdu.SubmitMultiResp](ctx, sess, p)
}

// SendSubmitMultiResp sends a submit_multi_resp.
func SendSubmitMultiResp(ctx context.Context, sess *Session, p *pdu.SubmitMultiResp) error {
	return sendOnly(ctx, sess, p)
}

// SendAlertNotification sends an alert_notification, which has no response.
func SendAlertNotification(ctx context.Context, sess *Session, p *pdu.AlertNotification) error {
	return sendOnly(ctx, sess, p)
}

// SendDataSm sends a data_sm and returns its response.
func SendDataSm(ctx context.Context, sess *Session, p *pdu.DataSm) (*pdu.DataSmResp, error) {
	return sendFor[*pdu.DataSmResp](ctx, sess, p)
}

// SendDataSmResp sends a data_sm_resp.
func SendDataSmResp(ctx context.Context, sess *Session, p *pdu.DataSmResp) error {
	return sendOnly(ctx, sess, p)
}
