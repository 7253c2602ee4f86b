package smpp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/Mbosco/vumi/pdu"
)

// EsmeConf configures the behaviors an ESME-side session needs on top of the
// bare protocol engine: a deadline for completing the bind handshake and a
// keepalive interval enforced once bound.
type EsmeConf struct {
	// BindTimeout bounds how long bind() may take to receive a
	// ESME_ROK bind response before the connection is abandoned.
	// Defaults to 30 seconds.
	BindTimeout time.Duration
	// EnquireLinkInterval is the period between enquire_link keepalives
	// sent while bound. A missed response within one interval closes
	// the session. Defaults to 55 seconds.
	EnquireLinkInterval time.Duration
}

func (c *EsmeConf) setDefaults() {
	if c.BindTimeout == 0 {
		c.BindTimeout = 30 * time.Second
	}
	if c.EnquireLinkInterval == 0 {
		c.EnquireLinkInterval = 55 * time.Second
	}
}

// Esme wraps a bound Session with the bookkeeping a transport worker needs:
// an enquire_link keepalive loop and a count of submit_sm requests sent but
// not yet acknowledged.
type Esme struct {
	Session *Session
	conf    EsmeConf
	unacked int64
	stop    chan struct{}
}

// BindEsme runs bindFn (the caller chooses which of BindTx, BindRx or
// BindTRx it wraps) within ec.BindTimeout. If the bind does not complete
// with ESME_ROK in time the underlying connection is closed, including a
// session that bindFn returns after the deadline, so the caller's reconnect
// supervisor can retry.
func BindEsme(ec EsmeConf, bindFn func(context.Context) (*Session, error)) (*Esme, error) {
	ec.setDefaults()
	ctx, cancel := context.WithTimeout(context.Background(), ec.BindTimeout)
	defer cancel()

	type result struct {
		sess *Session
		err  error
	}
	done := make(chan result, 1)
	go func() {
		sess, err := bindFn(ctx)
		done <- result{sess, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if r.sess != nil {
				r.sess.Close()
			}
			return nil, r.err
		}
		e := &Esme{Session: r.sess, conf: ec, stop: make(chan struct{})}
		return e, nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.sess != nil {
				r.sess.Close()
			}
		}()
		return nil, Error{Msg: fmt.Sprintf("smpp: bind did not complete within %s", ec.BindTimeout), Temp: true}
	}
}

// StartEnquireLink launches the keepalive loop. It must be called once,
// after a successful bind, and runs until the session closes or Stop is
// called. A failed or timed-out enquire_link closes the session so the
// reconnect supervisor observes the disconnect.
func (e *Esme) StartEnquireLink() {
	go func() {
		ticker := time.NewTicker(e.conf.EnquireLinkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stop:
				return
			case <-e.Session.NotifyClosed():
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), e.conf.EnquireLinkInterval)
				_, err := SendEnquireLink(ctx, e.Session, &pdu.EnquireLink{})
				cancel()
				if err != nil {
					e.Session.conf.Logger.ErrorF("esme: enquire_link keepalive failed: %+v", err)
					e.Session.Close()
					return
				}
			}
		}
	}()
}

// Stop ends the enquire_link loop without closing the session.
func (e *Esme) Stop() {
	close(e.stop)
}

// SubmitSm sends a submit_sm request, tracking it in the unacked count for
// the duration of the round trip.
func (e *Esme) SubmitSm(ctx context.Context, p *pdu.SubmitSm) (*pdu.SubmitSmResp, error) {
	atomic.AddInt64(&e.unacked, 1)
	defer atomic.AddInt64(&e.unacked, -1)
	return SendSubmitSm(ctx, e.Session, p)
}

// Unacked reports how many submit_sm requests are currently in flight,
// awaiting submit_sm_resp.
func (e *Esme) Unacked() int {
	return int(atomic.LoadInt64(&e.unacked))
}

// SubmitResult carries the outcome of an asynchronously-sent submit_sm.
type SubmitResult struct {
	Resp *pdu.SubmitSmResp
	Err  error
}

// NewStatusError builds a StatusError, letting callers outside this
// package (worker tests, mainly) construct the same error shape Session
// produces internally from a submit_sm_resp's command_status.
func NewStatusError(msg string, status pdu.Status) StatusError {
	return StatusError{msg: msg, status: status}
}

// SubmitSmAsync sends p and returns the allocated sequence number before
// the response arrives, so a caller can persist the sequence number to
// message-id correlation immediately after submission rather than after
// the round trip completes. The eventual response or error is delivered
// on the returned channel exactly once. It replicates Session.Send's
// encode-and-register sequence directly rather than calling Send, since
// Send only returns once the full round trip is done.
func (e *Esme) SubmitSmAsync(ctx context.Context, p *pdu.SubmitSm) (uint32, <-chan SubmitResult, error) {
	sess := e.Session
	sess.mu.Lock()
	if len(sess.sent) == sess.conf.SendWinSize {
		sess.mu.Unlock()
		return 0, nil, Error{Msg: "smpp: sending window closed", Temp: true}
	}
	if err := sess.makeTransition(p.CommandID(), false); err != nil {
		sess.conf.Logger.ErrorF("transitioning before send: %s %+v", sess, err)
		sess.mu.Unlock()
		return 0, nil, err
	}
	seq, err := sess.enc.Encode(p)
	if err != nil {
		sess.mu.Unlock()
		return 0, nil, err
	}
	l := make(chan response, 1)
	sess.sent[seq] = l
	sess.conf.Logger.InfoF("request sent: %s %s%+v", sess, p.CommandID(), p)
	sess.mu.Unlock()

	atomic.AddInt64(&e.unacked, 1)
	out := make(chan SubmitResult, 1)
	go func() {
		defer atomic.AddInt64(&e.unacked, -1)
		select {
		case resp, ok := <-l:
			if !ok {
				out <- SubmitResult{Err: errors.New("smpp: session closed before receiving response")}
				return
			}
			sm, _ := resp.resp.(*pdu.SubmitSmResp)
			out <- SubmitResult{Resp: sm, Err: resp.err}
		case <-ctx.Done():
			out <- SubmitResult{Err: ctx.Err()}
		}
	}()
	return seq, out, nil
}

// DeliverHandlers groups the two ways an unsolicited deliver_sm can be
// routed: as a delivery report correlated to a prior submit, or as a
// regular mobile-originated message.
type DeliverHandlers struct {
	// DeliveryReport is invoked when the PDU's esm_class indicates a
	// delivery receipt and the short_message parses successfully.
	DeliveryReport func(ctx *Context, d *pdu.DeliverSm, report map[string]string)
	// DeliverSm is invoked for every other unsolicited deliver_sm.
	DeliverSm func(ctx *Context, d *pdu.DeliverSm)
}

// NewDeliverSmRouter builds a Handler that dispatches unsolicited
// deliver_sm PDUs to either h.DeliveryReport or h.DeliverSm, following the
// same esm_class-based heuristic used across SMPP gateways: a PDU whose
// esm_class type marks it as a delivery receipt is parsed as one, and only
// routed to DeliverSm if parsing fails. Every deliver_sm is acknowledged
// with deliver_sm_resp regardless of which branch handled it.
func NewDeliverSmRouter(pattern *regexp.Regexp, h DeliverHandlers) Handler {
	return HandlerFunc(func(ctx *Context) {
		if ctx.CommandID() != pdu.DeliverSmID {
			ctx.Respond(&pdu.GenericNack{}, pdu.StatusInvCmdID)
			return
		}
		d, err := ctx.DeliverSm()
		if err != nil {
			ctx.sess.conf.Logger.ErrorF("esme: decoding deliver_sm: %+v", err)
			ctx.Respond(&pdu.DeliverSmResp{}, pdu.StatusSysErr)
			return
		}
		if pdu.LooksLikeDeliveryReport(d.EsmClass) {
			if report, ok := pdu.ParseDeliveryReport(pattern, d.ShortMessage); ok {
				if h.DeliveryReport != nil {
					h.DeliveryReport(ctx, d, report)
				}
				ctx.Respond(d.Response(""), pdu.StatusOK)
				return
			}
		}
		if h.DeliverSm != nil {
			h.DeliverSm(ctx, d)
		}
		ctx.Respond(d.Response(""), pdu.StatusOK)
	})
}
