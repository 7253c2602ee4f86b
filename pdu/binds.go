package pdu

import "fmt"

// bindBody holds the seven mandatory parameters every bind_transmitter,
// bind_receiver, and bind_transceiver share; only the command_id differs
// between them, so BindTx/BindRx/BindTRx marshal and unmarshal through
// this shape rather than duplicating the field-by-field logic three
// times.
type bindBody struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion int
	AddrTon          int
	AddrNpi          int
	AddressRange     string
}

func (b bindBody) marshal() ([]byte, error) {
	out := append([]byte(b.SystemID), 0)
	out = append(out, append([]byte(b.Password), 0)...)
	out = append(out, append([]byte(b.SystemType), 0)...)
	out = append(out, byte(b.InterfaceVersion), byte(b.AddrTon), byte(b.AddrNpi))
	return append(out, append([]byte(b.AddressRange), 0)...), nil
}

func unmarshalBindBody(body []byte) (bindBody, error) {
	var b bindBody
	if len(body) < 7 {
		return b, fmt.Errorf("smpp/pdu: bind body too short: %d", len(body))
	}
	buf := newBuffer(body)

	res, err := buf.ReadCString(16)
	if err != nil {
		return b, fmt.Errorf("smpp/pdu: decoding system_id %s", err)
	}
	b.SystemID = string(res)

	res, err = buf.ReadCString(9)
	if err != nil {
		return b, fmt.Errorf("smpp/pdu: decoding password %s", err)
	}
	b.Password = string(res)

	res, err = buf.ReadCString(13)
	if err != nil {
		return b, fmt.Errorf("smpp/pdu: decoding system_type %s", err)
	}
	b.SystemType = string(res)

	v, err := buf.ReadByte()
	if err != nil {
		return b, fmt.Errorf("smpp/pdu: decoding interface_version %s", err)
	}
	b.InterfaceVersion = int(v)

	v, err = buf.ReadByte()
	if err != nil {
		return b, fmt.Errorf("smpp/pdu: decoding addr_ton %s", err)
	}
	b.AddrTon = int(v)

	v, err = buf.ReadByte()
	if err != nil {
		return b, fmt.Errorf("smpp/pdu: decoding addr_npi %s", err)
	}
	b.AddrNpi = int(v)

	res, err = buf.ReadCString(41)
	if err != nil {
		return b, fmt.Errorf("smpp/pdu: decoding addr_range %s", err)
	}
	b.AddressRange = string(res)

	return b, nil
}

// BindTx opens a session in transmitter mode: the ESME may only submit
// messages, not receive them.
type BindTx struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion int
	AddrTon          int
	AddrNpi          int
	AddressRange     string
}

// CommandID implements PDU.
func (p BindTx) CommandID() CommandID {
	return BindTransmitterID
}

// Response builds the bind_transmitter_resp this request expects.
func (p BindTx) Response(sysID string) *BindTxResp {
	return &BindTxResp{SystemID: sysID}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p BindTx) MarshalBinary() ([]byte, error) {
	return bindBody{p.SystemID, p.Password, p.SystemType, p.InterfaceVersion, p.AddrTon, p.AddrNpi, p.AddressRange}.marshal()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *BindTx) UnmarshalBinary(body []byte) error {
	b, err := unmarshalBindBody(body)
	if err != nil {
		return err
	}
	p.SystemID, p.Password, p.SystemType = b.SystemID, b.Password, b.SystemType
	p.InterfaceVersion, p.AddrTon, p.AddrNpi, p.AddressRange = b.InterfaceVersion, b.AddrTon, b.AddrNpi, b.AddressRange
	return nil
}

// BindTxResp acknowledges a bind_transmitter.
type BindTxResp struct {
	SystemID string
	Options  *Options
}

// CommandID implements PDU.
func (p BindTxResp) CommandID() CommandID {
	return BindTransmitterRespID
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p BindTxResp) MarshalBinary() ([]byte, error) {
	return cStringOptsRespMarshal(p.SystemID, p.Options)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *BindTxResp) UnmarshalBinary(body []byte) error {
	var err error
	p.SystemID, p.Options, err = cStringOptsRespUnmarshal(body)
	return err
}

// BindRx opens a session in receiver mode: the ESME may only receive
// deliver_sm traffic (including delivery reports), not submit.
type BindRx struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion int
	AddrTon          int
	AddrNpi          int
	AddressRange     string
}

// CommandID implements PDU.
func (p BindRx) CommandID() CommandID {
	return BindReceiverID
}

// Response builds the bind_receiver_resp this request expects.
func (p BindRx) Response(sysID string) *BindRxResp {
	return &BindRxResp{SystemID: sysID}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p BindRx) MarshalBinary() ([]byte, error) {
	return bindBody{p.SystemID, p.Password, p.SystemType, p.InterfaceVersion, p.AddrTon, p.AddrNpi, p.AddressRange}.marshal()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *BindRx) UnmarshalBinary(body []byte) error {
	b, err := unmarshalBindBody(body)
	if err != nil {
		return err
	}
	p.SystemID, p.Password, p.SystemType = b.SystemID, b.Password, b.SystemType
	p.InterfaceVersion, p.AddrTon, p.AddrNpi, p.AddressRange = b.InterfaceVersion, b.AddrTon, b.AddrNpi, b.AddressRange
	return nil
}

// BindRxResp acknowledges a bind_receiver.
type BindRxResp struct {
	SystemID string
	Options  *Options
}

// CommandID implements PDU.
func (p BindRxResp) CommandID() CommandID {
	return BindReceiverRespID
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p BindRxResp) MarshalBinary() ([]byte, error) {
	return cStringOptsRespMarshal(p.SystemID, p.Options)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *BindRxResp) UnmarshalBinary(body []byte) error {
	var err error
	p.SystemID, p.Options, err = cStringOptsRespUnmarshal(body)
	return err
}

// BindTRx opens a session in transceiver mode: both submit_sm and
// deliver_sm flow over the same connection. The transport worker binds
// this way by default so inbound delivery reports and MO traffic share the
// session it uses to submit outbound messages.
type BindTRx struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion int
	AddrTon          int
	AddrNpi          int
	AddressRange     string
}

// CommandID implements PDU.
func (p BindTRx) CommandID() CommandID {
	return BindTransceiverID
}

// Response builds the bind_transceiver_resp this request expects.
func (p BindTRx) Response(sysID string) *BindTRxResp {
	return &BindTRxResp{SystemID: sysID}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p BindTRx) MarshalBinary() ([]byte, error) {
	return bindBody{p.SystemID, p.Password, p.SystemType, p.InterfaceVersion, p.AddrTon, p.AddrNpi, p.AddressRange}.marshal()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *BindTRx) UnmarshalBinary(body []byte) error {
	b, err := unmarshalBindBody(body)
	if err != nil {
		return err
	}
	p.SystemID, p.Password, p.SystemType = b.SystemID, b.Password, b.SystemType
	p.InterfaceVersion, p.AddrTon, p.AddrNpi, p.AddressRange = b.InterfaceVersion, b.AddrTon, b.AddrNpi, b.AddressRange
	return nil
}

// BindTRxResp acknowledges a bind_transceiver.
type BindTRxResp struct {
	SystemID string
	Options  *Options
}

// CommandID implements PDU.
func (p BindTRxResp) CommandID() CommandID {
	return BindTransceiverRespID
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p BindTRxResp) MarshalBinary() ([]byte, error) {
	return cStringOptsRespMarshal(p.SystemID, p.Options)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *BindTRxResp) UnmarshalBinary(body []byte) error {
	var err error
	p.SystemID, p.Options, err = cStringOptsRespUnmarshal(body)
	return err
}
