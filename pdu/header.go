package pdu

import (
	"encoding"
	"encoding/binary"
	"errors"
)

// Header exposes the four fixed fields present at the front of every SMPP
// 3.4 PDU: command_length, command_id, command_status, sequence_number.
type Header interface {
	encoding.BinaryUnmarshaler
	Length() uint32
	CommandID() CommandID
	Status() Status
	Sequence() uint32
}

type header struct {
	length    uint32
	commandID CommandID
	status    Status
	sequence  uint32
}

func (h header) Length() uint32       { return h.length }
func (h header) CommandID() CommandID { return h.commandID }
func (h header) Status() Status       { return h.status }
func (h header) Sequence() uint32     { return h.sequence }

// UnmarshalBinary reads the 16-byte fixed header off the front of body.
// Callers are expected to have already read at least 16 bytes off the
// wire before delegating here.
func (h *header) UnmarshalBinary(body []byte) error {
	h.length = word(body, 0)
	if h.length < 16 {
		return errors.New("smpp: pdu length under lower limit")
	}
	if h.length > MaxPDUSize {
		return errors.New("smpp: pdu length over upper limit")
	}
	h.commandID = CommandID(word(body, 4))
	h.status = Status(word(body, 8))
	h.sequence = word(body, 12)
	return nil
}

// word reads a big-endian uint32 at the given byte offset.
func word(body []byte, offset int) uint32 {
	return binary.BigEndian.Uint32(body[offset : offset+4])
}
