// Package pdu implements encoding and decoding of SMPP 3.4 PDUs: the
// fixed header, the mandatory body fields of each command, and the TLV
// optional parameters any of them may carry.
package pdu

import (
	"encoding"
	"encoding/binary"
	"io"
)

// PDU is anything that can be identified by command_id and marshaled to
// and from its wire body.
type PDU interface {
	CommandID() CommandID
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Sequencer hands out sequence_number values for outbound PDUs. Swapping
// in a custom Sequencer lets a caller shard sequence ranges across
// multiple senders sharing one session.
type Sequencer interface {
	Next() uint32
}

// NewSequencer returns a Sequencer counting up from n, wrapping n to 1 if
// given 0 (sequence_number 0 is not a legal value).
func NewSequencer(n uint32) Sequencer {
	if n == 0 {
		n = 1
	}
	return &defaultSequencer{n}
}

type defaultSequencer struct {
	n uint32
}

func (seq *defaultSequencer) Next() uint32 {
	n := seq.n
	if seq.n >= 0x7FFFFFFF {
		seq.n = 1
	} else {
		seq.n++
	}
	return n
}

// Encoder writes PDUs to w, prefixing each with its 16-byte header.
type Encoder struct {
	w   io.Writer
	seq Sequencer
}

// NewEncoder wraps w with a fresh sequencer if seq is nil.
func NewEncoder(w io.Writer, seq Sequencer) *Encoder {
	if seq == nil {
		seq = NewSequencer(1)
	}
	return &Encoder{w: w, seq: seq}
}

type encoderOpts struct {
	seq    uint32
	status Status
}

// EncoderOption overrides a default encoding decision (sequence_number
// allocation, command_status) for a single Encode call.
type EncoderOption func(*encoderOpts)

// EncodeSeq pins the sequence_number instead of drawing the next one from
// the Encoder's Sequencer, for resending or replying with a matching seq.
func EncodeSeq(seq uint32) EncoderOption {
	return func(eOpts *encoderOpts) { eOpts.seq = seq }
}

// EncodeStatus sets command_status; omitted, it defaults to StatusOK.
func EncodeStatus(status Status) EncoderOption {
	return func(eOpts *encoderOpts) { eOpts.status = status }
}

// Encode marshals p's body, prepends the header, and writes the result.
// It returns the sequence_number actually used.
func (en *Encoder) Encode(p PDU, opts ...EncoderOption) (uint32, error) {
	body, err := p.MarshalBinary()
	if err != nil {
		return 0, err
	}

	eOpts := encoderOpts{}
	for _, o := range opts {
		o(&eOpts)
	}
	if eOpts.seq == 0 {
		eOpts.seq = en.seq.Next()
	}

	buf := make([]byte, len(body)+16)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(p.CommandID()))
	binary.BigEndian.PutUint32(buf[8:12], uint32(eOpts.status))
	binary.BigEndian.PutUint32(buf[12:16], eOpts.seq)
	copy(buf[16:], body)

	_, err = en.w.Write(buf)
	return eOpts.seq, err
}

// Decoder reads length-prefixed PDUs off r.
type Decoder struct {
	r io.Reader
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads one PDU's header and body off the wire and returns both
// the header and the concrete, populated PDU. The header is returned even
// on a body-decoding error, since callers need command_id and sequence to
// build an error response.
func (d *Decoder) Decode() (Header, PDU, error) {
	var headerBytes [16]byte
	if _, err := io.ReadFull(d.r, headerBytes[:]); err != nil {
		return nil, nil, err
	}

	hdr := &header{}
	if err := hdr.UnmarshalBinary(headerBytes[:]); err != nil {
		return hdr, nil, err
	}

	p := NewPDU(hdr.commandID)
	if hdr.length == 16 {
		return hdr, p, nil
	}

	body := make([]byte, hdr.length-16)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return hdr, p, errBodyLengthMismatch(hdr.length, len(body))
	}
	if err := p.UnmarshalBinary(body); err != nil {
		return hdr, p, err
	}
	return hdr, p, nil
}
