package smpp

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mbosco/vumi/pdu"
)

// Context carries everything a Handler needs to answer one inbound PDU:
// the session it arrived on, the decoded request, and the Go context
// bounding how long the handler has to respond.
type Context struct {
	sess   *Session
	status pdu.Status
	ctx    context.Context
	req    pdu.PDU
	resp   pdu.PDU
	close  bool
	seq    uint32
}

// SystemID returns the system_id of the peer bound on this context's session.
func (ctx *Context) SystemID() string {
	return ctx.sess.conf.SystemID
}

// SessionID returns the ID of the session handling this request.
func (ctx *Context) SessionID() string {
	return ctx.sess.ID()
}

// CommandID returns the command_id of the inbound PDU.
func (ctx *Context) CommandID() pdu.CommandID {
	return ctx.req.CommandID()
}

// RemoteAddr returns the network address of the bound peer.
func (ctx *Context) RemoteAddr() string {
	return ctx.sess.remoteAddr()
}

// Context returns the Go context bounding this request's handling window.
func (ctx *Context) Context() context.Context {
	return ctx.ctx
}

// Status returns the command_status this context will respond with, once set.
func (ctx *Context) Status() pdu.Status {
	return ctx.status
}

// Respond sends resp back to the bound peer with the given status, and
// transitions the session's bind state accordingly.
func (ctx *Context) Respond(resp pdu.PDU, status pdu.Status) error {
	ctx.status = status
	ctx.resp = resp
	if resp == nil {
		return errors.New("smpp: responding with nil PDU")
	}

	ctx.sess.mu.Lock()
	if err := ctx.sess.makeTransition(resp.CommandID(), false); err != nil {
		ctx.sess.conf.Logger.ErrorF("transitioning resp pdu: %s %+v", ctx.sess, err)
		ctx.sess.mu.Unlock()
		return err
	}
	if _, err := ctx.sess.enc.Encode(resp, pdu.EncodeSeq(ctx.seq), pdu.EncodeStatus(status)); err != nil {
		ctx.sess.conf.Logger.ErrorF("error encoding pdu: %s %+v", ctx.sess, err)
		ctx.sess.mu.Unlock()
		return err
	}
	ctx.sess.conf.Logger.InfoF("sent response: %s %s %+v", ctx.sess, resp.CommandID(), resp)
	ctx.sess.mu.Unlock()

	return nil
}

// CloseSession schedules the session to shut down once the handler returns.
func (ctx *Context) CloseSession() {
	ctx.close = true
}

// as type-asserts the context's request PDU to T, the shape every
// PDU-specific accessor below needs. Centralizing it here replaces what
// would otherwise be one hand-written type switch per PDU kind.
func as[T pdu.PDU](ctx *Context) (T, error) {
	if p, ok := ctx.req.(T); ok {
		return p, nil
	}
	var zero T
	return zero, fmt.Errorf("smpp: invalid cast PDU is of type %v", ctx.req.CommandID())
}

// GenericNack casts the request PDU to *pdu.GenericNack.
func (ctx *Context) GenericNack() (*pdu.GenericNack, error) { return as[*pdu.GenericNack](ctx) }

// BindRx casts the request PDU to *pdu.BindRx.
func (ctx *Context) BindRx() (*pdu.BindRx, error) { return as[*pdu.BindRx](ctx) }

// BindRxResp casts the request PDU to *pdu.BindRxResp.
func (ctx *Context) BindRxResp() (*pdu.BindRxResp, error) { return as[*pdu.BindRxResp](ctx) }

// BindTx casts the request PDU to *pdu.BindTx.
func (ctx *Context) BindTx() (*pdu.BindTx, error) { return as[*pdu.BindTx](ctx) }

// BindTxResp casts the request PDU to *pdu.BindTxResp.
func (ctx *Context) BindTxResp() (*pdu.BindTxResp, error) { return as[*pdu.BindTxResp](ctx) }

// QuerySm casts the request PDU to *pdu.QuerySm.
func (ctx *Context) QuerySm() (*pdu.QuerySm, error) { return as[*pdu.QuerySm](ctx) }

// QuerySmResp casts the request PDU to *pdu.QuerySmResp.
func (ctx *Context) QuerySmResp() (*pdu.QuerySmResp, error) { return as[*pdu.QuerySmResp](ctx) }

// SubmitSm casts the request PDU to *pdu.SubmitSm. The worker's outbound
// path never receives one (submit_sm only ever flows ESME->SMSC), but an
// SMSC-side handler needs this to read a submitted message.
func (ctx *Context) SubmitSm() (*pdu.SubmitSm, error) { return as[*pdu.SubmitSm](ctx) }

// SubmitSmResp casts the request PDU to *pdu.SubmitSmResp.
func (ctx *Context) SubmitSmResp() (*pdu.SubmitSmResp, error) { return as[*pdu.SubmitSmResp](ctx) }

// DeliverSm casts the request PDU to *pdu.DeliverSm. This is the accessor
// NewDeliverSmRouter uses to read an unsolicited deliver_sm before routing
// it to a delivery-report or inbound-message handler.
func (ctx *Context) DeliverSm() (*pdu.DeliverSm, error) { return as[*pdu.DeliverSm](ctx) }

// DeliverSmResp casts the request PDU to *pdu.DeliverSmResp.
func (ctx *Context) DeliverSmResp() (*pdu.DeliverSmResp, error) { return as[*pdu.DeliverSmResp](ctx) }

// Unbind casts the request PDU to *pdu.Unbind.
func (ctx *Context) Unbind() (*pdu.Unbind, error) { return as[*pdu.Unbind](ctx) }

// UnbindResp casts the request PDU to *pdu.UnbindResp.
func (ctx *Context) UnbindResp() (*pdu.UnbindResp, error) { return as[*pdu.UnbindResp](ctx) }

// ReplaceSm casts the request PDU to *pdu.ReplaceSm.
func (ctx *Context) ReplaceSm() (*pdu.ReplaceSm, error) { return as[*pdu.ReplaceSm](ctx) }

// ReplaceSmResp casts the request PDU to *pdu.ReplaceSmResp.
func (ctx *Context) ReplaceSmResp() (*pdu.ReplaceSmResp, error) { return as[*pdu.ReplaceSmResp](ctx) }

// CancelSm casts the request PDU to *pdu.CancelSm.
func (ctx *Context) CancelSm() (*pdu.CancelSm, error) { return as[*pdu.CancelSm](ctx) }

// CancelSmResp casts the request PDU to *pdu.CancelSmResp.
func (ctx *Context) CancelSmResp() (*pdu.CancelSmResp, error) { return as[*pdu.CancelSmResp](ctx) }

// BindTRx casts the request PDU to *pdu.BindTRx.
func (ctx *Context) BindTRx() (*pdu.BindTRx, error) { return as[*pdu.BindTRx](ctx) }

// BindTRxResp casts the request PDU to *pdu.BindTRxResp.
func (ctx *Context) BindTRxResp() (*pdu.BindTRxResp, error) { return as[*pdu.BindTRxResp](ctx) }

// Outbind casts the request PDU to *pdu.Outbind.
func (ctx *Context) Outbind() (*pdu.Outbind, error) { return as[*pdu.Outbind](ctx) }

// EnquireLink casts the request PDU to *pdu.EnquireLink.
func (ctx *Context) EnquireLink() (*pdu.EnquireLink, error) { return as[*pdu.EnquireLink](ctx) }

// EnquireLinkResp casts the request PDU to *pdu.EnquireLinkResp.
func (ctx *Context) EnquireLinkResp() (*pdu.EnquireLinkResp, error) {
	return as[*pdu.EnquireLinkResp](ctx)
}

// SubmitMulti casts the request PDU to *pdu.SubmitMulti.
func (ctx *Context) SubmitMulti() (*pdu.SubmitMulti, error) { return as[*pdu.SubmitMulti](ctx) }

// SubmitMultiResp casts the request PDU to *pdu.SubmitMultiResp.
func (ctx *Context) SubmitMultiResp() (*pdu.SubmitMultiResp, error) {
	return as[*pdu.SubmitMultiResp](ctx)
}

// AlertNotification casts the request PDU to *pdu.AlertNotification.
func (ctx *Context) AlertNotification() (*pdu.AlertNotification, error) {
	return as[*pdu.AlertNotification](ctx)
}

// DataSm casts the request PDU to *pdu.DataSm.
func (ctx *Context) DataSm() (*pdu.DataSm, error) { return as[*pdu.DataSm](ctx) }

// DataSmResp casts the request PDU to *pdu.DataSmResp.
func (ctx *Context) DataSmResp() (*pdu.DataSmResp, error) { return as[*pdu.DataSmResp](ctx) }
