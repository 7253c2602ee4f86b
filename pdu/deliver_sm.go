package pdu

import "time"

// DeliverSm carries a short message from an SMSC to an ESME — either a
// genuine MO message or, with esm_class's type field set accordingly, a
// delivery receipt for an earlier submit_sm.
type DeliverSm struct {
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
func (p DeliverSm) CommandID() CommandID {
	return DeliverSmID
}

// Response builds the deliver_sm_resp this request expects.
func (p DeliverSm) Response(msgID string) *DeliverSmResp {
	return &DeliverSmResp{MessageID: msgID}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p DeliverSm) MarshalBinary() ([]byte, error) {
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
func (p *DeliverSm) UnmarshalBinary(body []byte) error {
	f, rest, err := unmarshalShortMessageBody("deliver_sm", body)
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

// DeliverSmResp acknowledges a deliver_sm; it carries no mandatory
// fields of its own beyond the NUL message_id placeholder.
type DeliverSmResp struct {
	MessageID string
}

// CommandID implements PDU.
func (p DeliverSmResp) CommandID() CommandID {
	return DeliverSmRespID
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p DeliverSmResp) MarshalBinary() ([]byte, error) {
	return []byte{0}, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *DeliverSmResp) UnmarshalBinary(body []byte) error {
	return nil
}
