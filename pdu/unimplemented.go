package pdu

import "fmt"

// unsupportedErr is returned by the PDU kinds the transport worker never
// constructs or expects to receive over the wire (submit_multi, data_sm,
// cancel_sm, replace_sm, outbind, alert_notification — bulk and session
// management features outside USSD/SMS submission and delivery). They
// still satisfy PDU so NewPDU can decode a header carrying their
// command_id without crashing the read loop, but any attempt to encode
// or decode a body fails loudly instead of silently dropping fields.
func unsupportedErr(id CommandID) error {
	return fmt.Errorf("smpp/pdu: %v is not implemented", id)
}

// ReplaceSm is not implemented.
type ReplaceSm struct{}

// CommandID implements PDU.
func (p ReplaceSm) CommandID() CommandID { return ReplaceSmID }

// MarshalBinary implements encoding.BinaryMarshaler.
func (p ReplaceSm) MarshalBinary() ([]byte, error) { return nil, unsupportedErr(p.CommandID()) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *ReplaceSm) UnmarshalBinary(body []byte) error { return unsupportedErr(p.CommandID()) }

// ReplaceSmResp is not implemented.
type ReplaceSmResp struct{}

// CommandID implements PDU.
func (p ReplaceSmResp) CommandID() CommandID { return ReplaceSmRespID }

// MarshalBinary implements encoding.BinaryMarshaler.
func (p ReplaceSmResp) MarshalBinary() ([]byte, error) { return nil, unsupportedErr(p.CommandID()) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *ReplaceSmResp) UnmarshalBinary(body []byte) error { return unsupportedErr(p.CommandID()) }

// CancelSm is not implemented.
type CancelSm struct{}

// CommandID implements PDU.
func (p CancelSm) CommandID() CommandID { return CancelSmID }

// MarshalBinary implements encoding.BinaryMarshaler.
func (p CancelSm) MarshalBinary() ([]byte, error) { return nil, unsupportedErr(p.CommandID()) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *CancelSm) UnmarshalBinary(body []byte) error { return unsupportedErr(p.CommandID()) }

// CancelSmResp is not implemented.
type CancelSmResp struct{}

// CommandID implements PDU.
func (p CancelSmResp) CommandID() CommandID { return CancelSmRespID }

// MarshalBinary implements encoding.BinaryMarshaler.
func (p CancelSmResp) MarshalBinary() ([]byte, error) { return nil, unsupportedErr(p.CommandID()) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *CancelSmResp) UnmarshalBinary(body []byte) error { return unsupportedErr(p.CommandID()) }

// Outbind is not implemented.
type Outbind struct{}

// CommandID implements PDU.
func (p Outbind) CommandID() CommandID { return OutbindID }

// MarshalBinary implements encoding.BinaryMarshaler.
func (p Outbind) MarshalBinary() ([]byte, error) { return nil, unsupportedErr(p.CommandID()) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Outbind) UnmarshalBinary(body []byte) error { return unsupportedErr(p.CommandID()) }

// SubmitMulti is not implemented.
type SubmitMulti struct{}

// CommandID implements PDU.
func (p SubmitMulti) CommandID() CommandID { return SubmitMultiID }

// MarshalBinary implements encoding.BinaryMarshaler.
func (p SubmitMulti) MarshalBinary() ([]byte, error) { return nil, unsupportedErr(p.CommandID()) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *SubmitMulti) UnmarshalBinary(body []byte) error { return unsupportedErr(p.CommandID()) }

// SubmitMultiResp is not implemented.
type SubmitMultiResp struct{}

// CommandID implements PDU.
func (p SubmitMultiResp) CommandID() CommandID { return SubmitMultiRespID }

// MarshalBinary implements encoding.BinaryMarshaler.
func (p SubmitMultiResp) MarshalBinary() ([]byte, error) { return nil, unsupportedErr(p.CommandID()) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *SubmitMultiResp) UnmarshalBinary(body []byte) error { return unsupportedErr(p.CommandID()) }

// AlertNotification is not implemented.
type AlertNotification struct{}

// CommandID implements PDU.
func (p AlertNotification) CommandID() CommandID { return AlertNotificationID }

// MarshalBinary implements encoding.BinaryMarshaler.
func (p AlertNotification) MarshalBinary() ([]byte, error) { return nil, unsupportedErr(p.CommandID()) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *AlertNotification) UnmarshalBinary(body []byte) error { return unsupportedErr(p.CommandID()) }

// DataSm is not implemented.
type DataSm struct{}

// CommandID implements PDU.
func (p DataSm) CommandID() CommandID { return DataSmID }

// MarshalBinary implements encoding.BinaryMarshaler.
func (p DataSm) MarshalBinary() ([]byte, error) { return nil, unsupportedErr(p.CommandID()) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *DataSm) UnmarshalBinary(body []byte) error { return unsupportedErr(p.CommandID()) }

// DataSmResp is not implemented.
type DataSmResp struct{}

// CommandID implements PDU.
func (p DataSmResp) CommandID() CommandID { return DataSmRespID }

// MarshalBinary implements encoding.BinaryMarshaler.
func (p DataSmResp) MarshalBinary() ([]byte, error) { return nil, unsupportedErr(p.CommandID()) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *DataSmResp) UnmarshalBinary(body []byte) error { return unsupportedErr(p.CommandID()) }
