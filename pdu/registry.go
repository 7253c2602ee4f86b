package pdu

import (
	"errors"
	"fmt"
)

// pduConstructors maps a command_id to a zero-value constructor for the
// PDU decoding should populate, replacing what would otherwise be one
// more hand-written switch alongside the ones in session.go and
// context.go.
var pduConstructors = map[CommandID]func() PDU{
	GenericNackID:         func() PDU { return &GenericNack{} },
	BindReceiverID:        func() PDU { return &BindRx{} },
	BindReceiverRespID:    func() PDU { return &BindRxResp{} },
	BindTransmitterID:     func() PDU { return &BindTx{} },
	BindTransmitterRespID: func() PDU { return &BindTxResp{} },
	BindTransceiverID:     func() PDU { return &BindTRx{} },
	BindTransceiverRespID: func() PDU { return &BindTRxResp{} },
	EnquireLinkID:         func() PDU { return &EnquireLink{} },
	EnquireLinkRespID:     func() PDU { return &EnquireLinkResp{} },
	QuerySmID:             func() PDU { return &QuerySm{} },
	QuerySmRespID:         func() PDU { return &QuerySmResp{} },
	SubmitSmID:            func() PDU { return &SubmitSm{} },
	SubmitSmRespID:        func() PDU { return &SubmitSmResp{} },
	DeliverSmID:           func() PDU { return &DeliverSm{} },
	DeliverSmRespID:       func() PDU { return &DeliverSmResp{} },
	UnbindID:              func() PDU { return &Unbind{} },
	UnbindRespID:          func() PDU { return &UnbindResp{} },
	ReplaceSmID:           func() PDU { return &ReplaceSm{} },
	ReplaceSmRespID:       func() PDU { return &ReplaceSmResp{} },
	CancelSmID:            func() PDU { return &CancelSm{} },
	CancelSmRespID:        func() PDU { return &CancelSmResp{} },
	OutbindID:             func() PDU { return &Outbind{} },
	SubmitMultiID:         func() PDU { return &SubmitMulti{} },
	SubmitMultiRespID:     func() PDU { return &SubmitMultiResp{} },
	AlertNotificationID:   func() PDU { return &AlertNotification{} },
	DataSmID:              func() PDU { return &DataSm{} },
	DataSmRespID:          func() PDU { return &DataSmResp{} },
}

// NewPDU returns a zero-value PDU for commandID, ready for
// UnmarshalBinary. It panics on an id this package doesn't know, which
// only happens for a wire bug upstream of the decoder: by the time a
// commandID reaches here it has already round-tripped through the same
// table an encoder built it from.
func NewPDU(commandID CommandID) PDU {
	ctor, ok := pduConstructors[commandID]
	if !ok {
		panic("pdu: unsupported PDU command")
	}
	return ctor()
}

// responseCommandIDs are the command_ids IsRequest reports false for.
var responseCommandIDs = map[CommandID]bool{
	GenericNackID:         true,
	BindReceiverRespID:    true,
	BindTransmitterRespID: true,
	QuerySmRespID:         true,
	SubmitSmRespID:        true,
	DeliverSmRespID:       true,
	UnbindRespID:          true,
	ReplaceSmRespID:       true,
	CancelSmRespID:        true,
	BindTransceiverRespID: true,
	EnquireLinkRespID:     true,
	SubmitMultiRespID:     true,
	DataSmRespID:          true,
}

// IsRequest reports whether id identifies a request PDU rather than a
// response or the generic_nack PDU.
func IsRequest(id CommandID) bool {
	return !responseCommandIDs[id]
}

// systemIDAccessors reads the system_id field off each bind-family PDU,
// the only PDUs that carry one.
var systemIDAccessors = map[CommandID]func(PDU) string{
	BindReceiverID:        func(p PDU) string { return p.(*BindRx).SystemID },
	BindTransmitterID:     func(p PDU) string { return p.(*BindTx).SystemID },
	BindTransceiverID:     func(p PDU) string { return p.(*BindTRx).SystemID },
	BindReceiverRespID:    func(p PDU) string { return p.(*BindRxResp).SystemID },
	BindTransmitterRespID: func(p PDU) string { return p.(*BindTxResp).SystemID },
	BindTransceiverRespID: func(p PDU) string { return p.(*BindTRxResp).SystemID },
}

// SystemID extracts the system_id carried by a bind or bind_resp PDU, or
// "" for any other PDU kind.
func SystemID(p PDU) string {
	if accessor, ok := systemIDAccessors[p.CommandID()]; ok {
		return accessor(p)
	}
	return ""
}

// SeparateUDH splits a short_message that begins with a User Data Header
// into the header bytes (including its own length prefix) and the
// remaining content.
func SeparateUDH(c []byte) ([]byte, []byte, error) {
	if len(c) == 0 {
		return nil, c, errors.New("smpp: invalid udh length")
	}
	l := int(c[0])
	if l >= len(c) {
		return nil, c, errors.New("smpp: invalid udh length value")
	}
	return c[:l+1], c[l+1:], nil
}

func errBodyLengthMismatch(declared uint32, got int) error {
	return fmt.Errorf("smpp: pdu length doesn't match read body length %d != %d", declared, got)
}
