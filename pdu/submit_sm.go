package pdu

import "time"

// SubmitSm carries one outbound short message from an ESME to an SMSC.
// SmLength is derived automatically from ShortMessage when encoding;
// content over 254 octets belongs in Options' message_payload TLV
// instead, with ShortMessage left empty.
type SubmitSm struct {
	ServiceType          string
	SourceAddrTon        int
	SourceAddrNpi        int
	SourceAddr           string
	DestAddrTon          int
	DestAddrNpi          int
	DestinationAddr      string
	EsmClass             EsmClass
	ProtocolID           int
	PriorityFlag         int
	ScheduleDeliveryTime time.Time
	ValidityPeriod       time.Time
	RegisteredDelivery   RegisteredDelivery
	ReplaceIfPresentFlag int
	DataCoding           int
	SmDefaultMsgID       int
	ShortMessage         string
	Options              *Options
}

// CommandID implements PDU.
func (p SubmitSm) CommandID() CommandID {
	return SubmitSmID
}

// Response builds the submit_sm_resp this request expects, carrying the
// SMSC-assigned message_id.
func (p SubmitSm) Response(msgID string) *SubmitSmResp {
	return &SubmitSmResp{MessageID: msgID}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p SubmitSm) MarshalBinary() ([]byte, error) {
	out, err := marshalShortMessageBody(shortMessageBody{
		ServiceType:          p.ServiceType,
		SourceAddrTon:        p.SourceAddrTon,
		SourceAddrNpi:        p.SourceAddrNpi,
		SourceAddr:           p.SourceAddr,
		DestAddrTon:          p.DestAddrTon,
		DestAddrNpi:          p.DestAddrNpi,
		DestinationAddr:      p.DestinationAddr,
		EsmClass:             p.EsmClass,
		ProtocolID:           p.ProtocolID,
		PriorityFlag:         p.PriorityFlag,
		ScheduleDeliveryTime: p.ScheduleDeliveryTime,
		ValidityPeriod:       p.ValidityPeriod,
		RegisteredDelivery:   p.RegisteredDelivery,
		ReplaceIfPresentFlag: p.ReplaceIfPresentFlag,
		DataCoding:           p.DataCoding,
		SmDefaultMsgID:       p.SmDefaultMsgID,
		ShortMessage:         p.ShortMessage,
	})
	if err != nil {
		return nil, err
	}
	if p.Options == nil {
		return out, nil
	}
	opts, err := p.Options.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(out, opts...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *SubmitSm) UnmarshalBinary(body []byte) error {
	f, rest, err := unmarshalShortMessageBody("submit_sm", body)
	if err != nil {
		return err
	}
	p.ServiceType = f.ServiceType
	p.SourceAddrTon = f.SourceAddrTon
	p.SourceAddrNpi = f.SourceAddrNpi
	p.SourceAddr = f.SourceAddr
	p.DestAddrTon = f.DestAddrTon
	p.DestAddrNpi = f.DestAddrNpi
	p.DestinationAddr = f.DestinationAddr
	p.EsmClass = f.EsmClass
	p.ProtocolID = f.ProtocolID
	p.PriorityFlag = f.PriorityFlag
	p.ScheduleDeliveryTime = f.ScheduleDeliveryTime
	p.ValidityPeriod = f.ValidityPeriod
	p.RegisteredDelivery = f.RegisteredDelivery
	p.ReplaceIfPresentFlag = f.ReplaceIfPresentFlag
	p.DataCoding = f.DataCoding
	p.SmDefaultMsgID = f.SmDefaultMsgID
	p.ShortMessage = f.ShortMessage
	if len(rest) == 0 {
		return nil
	}
	if p.Options == nil {
		p.Options = NewOptions()
	}
	return p.Options.UnmarshalBinary(rest)
}

// SubmitSmResp carries the SMSC's acceptance (or rejection, via the PDU
// header's command_status) of a submit_sm.
type SubmitSmResp struct {
	MessageID string
	Options   *Options
}

// CommandID implements PDU.
func (p SubmitSmResp) CommandID() CommandID {
	return SubmitSmRespID
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p SubmitSmResp) MarshalBinary() ([]byte, error) {
	return cStringOptsRespMarshal(p.MessageID, p.Options)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *SubmitSmResp) UnmarshalBinary(body []byte) error {
	var err error
	p.MessageID, p.Options, err = cStringOptsRespUnmarshal(body)
	return err
}
