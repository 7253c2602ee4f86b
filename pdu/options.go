package pdu

import (
	"encoding/binary"
	"fmt"
)

// Options holds the optional (TLV) parameters attached to a PDU body.
// Only the tags the transport worker actually reads or writes get a
// named accessor below; anything else goes through Get/Set and friends
// by TagID.
type Options struct {
	fields map[TagID][]byte
}

// NewOptions returns an empty Options ready for Set calls.
func NewOptions() *Options {
	return &Options{fields: make(map[TagID][]byte)}
}

// Set assigns a raw TLV value.
func (o *Options) Set(tag TagID, val []byte) *Options {
	o.fields[tag] = val
	return o
}

// SetSingle assigns a one-byte TLV value.
func (o *Options) SetSingle(tag TagID, val int) *Options {
	o.fields[tag] = []byte{byte(val)}
	return o
}

// SetDouble assigns a two-byte big-endian TLV value.
func (o *Options) SetDouble(tag TagID, val int) *Options {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(val))
	o.fields[tag] = b
	return o
}

// SetString assigns a TLV value with no terminator.
func (o *Options) SetString(tag TagID, val string) *Options {
	o.fields[tag] = []byte(val)
	return o
}

// SetCString assigns a NUL-terminated TLV value.
func (o *Options) SetCString(tag TagID, val string) *Options {
	o.fields[tag] = append([]byte(val), 0)
	return o
}

// Get returns the raw bytes for tag, if present.
func (o *Options) Get(tag TagID) ([]byte, bool) {
	val, ok := o.fields[tag]
	return val, ok
}

// GetSingle reads tag as a one-byte integer.
func (o *Options) GetSingle(tag TagID) (int, bool) {
	val, ok := o.fields[tag]
	if !ok {
		return 0, false
	}
	return int(val[0]), true
}

// GetDouble reads tag as a two-byte big-endian integer.
func (o *Options) GetDouble(tag TagID) (int, bool) {
	b, ok := o.fields[tag]
	if !ok {
		return 0, false
	}
	return int(binary.BigEndian.Uint16(b)), true
}

// GetString reads tag as a string with no terminator stripped.
func (o *Options) GetString(tag TagID) (string, bool) {
	b, ok := o.fields[tag]
	if !ok {
		return "", false
	}
	return string(b), true
}

// GetCString reads tag as a NUL-terminated string, stripping the
// terminator.
func (o *Options) GetCString(tag TagID) (string, bool) {
	b, ok := o.fields[tag]
	if !ok || len(b) == 0 {
		return "", false
	}
	return string(b[:len(b)-1]), true
}

// Concatenated-message segmentation (sar_*), used when a message longer
// than 254 octets is split into several submit_sm/deliver_sm PDUs that
// share a user_message_reference and sequence position.

// UserMessageReference returns the sar segmentation group's reference
// number, or 0 if the TLV is absent.
func (o *Options) UserMessageReference() int {
	val, _ := o.GetDouble(TagUserMessageReference)
	return val
}

// SetUserMessageReference sets the sar segmentation group's reference
// number.
func (o *Options) SetUserMessageReference(val int) *Options {
	return o.SetDouble(TagUserMessageReference, val)
}

// SarMsgRefNum returns the same reference number under its sar_msg_ref_num
// tag, used on the segments themselves rather than the parent reference.
func (o *Options) SarMsgRefNum() int {
	val, _ := o.GetDouble(TagSarMsgRefNum)
	return val
}

// SetSarMsgRefNum sets sar_msg_ref_num.
func (o *Options) SetSarMsgRefNum(val int) *Options {
	return o.SetDouble(TagSarMsgRefNum, val)
}

// SarTotalSegments returns how many segments the concatenated message
// was split into.
func (o *Options) SarTotalSegments() int {
	val, _ := o.GetSingle(TagSarTotalSegments)
	return val
}

// SetSarTotalSegments sets sar_total_segments.
func (o *Options) SetSarTotalSegments(val int) *Options {
	return o.SetSingle(TagSarTotalSegments, val)
}

// SarSegmentSeqnum returns this PDU's 1-based position within its
// concatenated message.
func (o *Options) SarSegmentSeqnum() int {
	val, _ := o.GetSingle(TagSarSegmentSeqnum)
	return val
}

// SetSarSegmentSeqnum sets sar_segment_seqnum.
func (o *Options) SetSarSegmentSeqnum(val int) *Options {
	return o.SetSingle(TagSarSegmentSeqnum, val)
}

// Bind negotiation and oversized content.

// ScInterfaceVersion returns the SMSC's negotiated SMPP interface
// version from a bind_resp.
func (o *Options) ScInterfaceVersion() int {
	val, _ := o.GetSingle(TagScInterfaceVersion)
	return val
}

// SetScInterfaceVersion sets sc_interface_version.
func (o *Options) SetScInterfaceVersion(val int) *Options {
	return o.SetSingle(TagScInterfaceVersion, val)
}

// MessagePayload returns the message_payload TLV, used to carry content
// over the 254-octet short_message limit instead of splitting it into
// sar segments.
func (o *Options) MessagePayload() string {
	val, _ := o.GetString(TagMessagePayload)
	return val
}

// SetMessagePayload sets message_payload.
func (o *Options) SetMessagePayload(val string) *Options {
	return o.SetString(TagMessagePayload, val)
}

// Delivery report correlation.

// MessageState returns a delivery receipt's message_state TLV (the
// DELIVRD/REJECTD/etc. outcome code), or 0 if absent.
func (o *Options) MessageState() int {
	val, _ := o.GetSingle(TagMessageState)
	return val
}

// SetMessageState sets message_state.
func (o *Options) SetMessageState(val int) *Options {
	return o.SetSingle(TagMessageState, val)
}

// ReceiptedMessageID returns the SMSC message_id a delivery receipt's
// receipted_message_id TLV correlates back to the original submit_sm.
func (o *Options) ReceiptedMessageID() string {
	val, _ := o.GetCString(TagReceiptedMessageID)
	return val
}

// SetReceiptedMessageID sets receipted_message_id.
func (o *Options) SetReceiptedMessageID(val string) *Options {
	return o.SetCString(TagReceiptedMessageID, val)
}

// MarshalBinary implements encoding.BinaryMarshaler, writing every field
// as a tag/length/value triplet. Field order is unspecified since Go map
// iteration is randomized; SMPP 3.4 does not require TLVs in any
// particular order.
func (o *Options) MarshalBinary() ([]byte, error) {
	var out []byte
	for tag, val := range o.fields {
		tlv := make([]byte, 4+len(val))
		binary.BigEndian.PutUint16(tlv[:2], uint16(tag))
		binary.BigEndian.PutUint16(tlv[2:4], uint16(len(val)))
		copy(tlv[4:], val)
		out = append(out, tlv...)
	}
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (o *Options) UnmarshalBinary(buf []byte) error {
	n := 0
	for n < len(buf) {
		if len(buf)-n <= 4 {
			return fmt.Errorf("smpp/pdu: invalid optional body length")
		}
		tag := TagID(binary.BigEndian.Uint16(buf[n : n+2]))
		l := int(binary.BigEndian.Uint16(buf[n+2 : n+4]))
		if n+4+l >= len(buf)+1 {
			return fmt.Errorf("smpp/pdu: invalid optional field length (%v %d)", tag, l)
		}
		o.fields[tag] = buf[n+4 : n+4+l]
		n += 4 + l
	}
	return nil
}
