package pdu

import (
	"fmt"
	"time"

	"github.com/Mbosco/vumi/smpptime"
)

// shortMessageBody holds the mandatory parameters submit_sm and
// deliver_sm share byte-for-byte; only their command_id and what each
// does with a populated PDU differ. SubmitSm and DeliverSm keep their own
// flat struct definitions (callers construct and read them by field
// name), but both PDUs marshal and unmarshal through this shape so the
// wire-format logic lives in one place.
type shortMessageBody struct {
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
}

// marshalShortMessageBody encodes the mandatory fields; the caller
// appends its own Options afterward.
func marshalShortMessageBody(f shortMessageBody) ([]byte, error) {
	out := append([]byte(f.ServiceType), 0, byte(f.SourceAddrTon), byte(f.SourceAddrNpi))
	out = append(out, append([]byte(f.SourceAddr), 0)...)
	out = append(out, byte(f.DestAddrTon), byte(f.DestAddrNpi))
	out = append(out, append([]byte(f.DestinationAddr), 0)...)
	out = append(out, f.EsmClass.Byte(), byte(f.ProtocolID), byte(f.PriorityFlag))

	tm, err := writeTime(smpptime.Absolute, f.ScheduleDeliveryTime)
	if err != nil {
		return nil, err
	}
	out = append(out, tm...)

	tm, err = writeTime(smpptime.Absolute, f.ValidityPeriod)
	if err != nil {
		return nil, err
	}
	out = append(out, tm...)

	l := len(f.ShortMessage)
	out = append(out, f.RegisteredDelivery.Byte(), byte(f.ReplaceIfPresentFlag), byte(f.DataCoding), byte(f.SmDefaultMsgID), byte(l))
	if l > 0 {
		out = append(out, []byte(f.ShortMessage)...)
	}
	return out, nil
}

// unmarshalShortMessageBody decodes the mandatory fields and returns
// whatever bytes remain, which the caller treats as an optional TLV
// block. kind names the PDU in error messages ("submit_sm", "deliver_sm").
func unmarshalShortMessageBody(kind string, body []byte) (shortMessageBody, []byte, error) {
	var f shortMessageBody
	if len(body) < 25 {
		return f, nil, fmt.Errorf("smpp/pdu: %s body too short: %d", kind, len(body))
	}
	buf := newBuffer(body)

	res, err := buf.ReadCString(6)
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding service_type %s", err)
	}
	f.ServiceType = string(res)

	b, err := buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding source_addr_ton %s", err)
	}
	f.SourceAddrTon = int(b)

	b, err = buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding source_addr_npi %s", err)
	}
	f.SourceAddrNpi = int(b)

	res, err = buf.ReadCString(21)
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding source_addr %s", err)
	}
	f.SourceAddr = string(res)

	b, err = buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding dest_addr_ton %s", err)
	}
	f.DestAddrTon = int(b)

	b, err = buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding dest_addr_npi %s", err)
	}
	f.DestAddrNpi = int(b)

	res, err = buf.ReadCString(21)
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding dest_addr %s", err)
	}
	f.DestinationAddr = string(res)

	b, err = buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding esm_class %s", err)
	}
	f.EsmClass = ParseEsmClass(b)

	b, err = buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding protocol_id %s", err)
	}
	f.ProtocolID = int(b)

	b, err = buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding priority_flag %s", err)
	}
	f.PriorityFlag = int(b)

	res, err = buf.ReadCString(17)
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding schedule_delivery_time %s", err)
	}
	t, err := smpptime.Parse(res)
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding schedule_delivery_time %s", err)
	}
	f.ScheduleDeliveryTime = t

	res, err = buf.ReadCString(17)
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding validity_period %s", err)
	}
	t, err = smpptime.Parse(res)
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding validity_period %s", err)
	}
	f.ValidityPeriod = t

	b, err = buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding registered_delivery %s", err)
	}
	f.RegisteredDelivery = ParseRegisteredDelivery(b)

	b, err = buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding replace_if_present_flag %s", err)
	}
	f.ReplaceIfPresentFlag = int(b)

	b, err = buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding data_coding %s", err)
	}
	f.DataCoding = int(b)

	b, err = buf.ReadByte()
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding sm_default_msg_id %s", err)
	}
	f.SmDefaultMsgID = int(b)

	sm, err := buf.ReadString(254)
	if err != nil {
		return f, nil, fmt.Errorf("smpp/pdu: decoding short_message %s", err)
	}
	f.ShortMessage = string(sm)

	return f, buf.Bytes(), nil
}
