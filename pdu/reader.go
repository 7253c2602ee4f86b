package pdu

import (
	"bytes"
	"errors"
	"time"

	"github.com/Mbosco/vumi/smpptime"
)

// writeTime encodes t in the given SMPP layout, or an empty (just
// NUL-terminated) field for the zero time — schedule_delivery_time and
// validity_period are both optional this way.
func writeTime(layout smpptime.Layout, t time.Time) ([]byte, error) {
	if t.IsZero() {
		return []byte{0}, nil
	}
	out, err := smpptime.Format(layout, t)
	if err != nil {
		return nil, err
	}
	return append([]byte(out), 0), nil
}

// pduReader layers the fixed-length and NUL-terminated field readers
// every mandatory-parameter Unmarshal needs on top of bytes.Buffer.
type pduReader struct {
	*bytes.Buffer
}

func newBuffer(buf []byte) *pduReader {
	return &pduReader{Buffer: bytes.NewBuffer(buf)}
}

// ReadCString reads a NUL-terminated field, erroring if more than limit
// bytes (including the terminator) are consumed without finding one.
func (r *pduReader) ReadCString(limit int) ([]byte, error) {
	var out []byte
	for i := 1; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == 0x0 {
			return out, nil
		}
		if i == limit {
			return nil, errors.New("invalid c string length")
		}
		out = append(out, b)
	}
}

// ReadString reads a length-prefixed field: one byte giving the length,
// followed by that many bytes of content.
func (r *pduReader) ReadString(limit int) ([]byte, error) {
	l, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if int(l) > limit {
		return nil, errors.New("invalid string length")
	}
	out := make([]byte, l)
	n, err := r.Read(out)
	if err != nil {
		return nil, err
	}
	if n != int(l) {
		return nil, errors.New("read count missmatch")
	}
	return out, nil
}

// cStringOptsRespUnmarshal splits a *_resp body that is a single
// NUL-terminated string (message_id) optionally followed by TLVs, the
// shape query_sm_resp, submit_sm_resp, and friends share.
func cStringOptsRespUnmarshal(body []byte) (string, *Options, error) {
	n := bytes.IndexByte(body, 0)
	if n < 0 {
		return "", nil, errors.New("smpp/pdu: c string is not terminated")
	}
	var opts *Options
	if rest := body[n+1:]; len(rest) > 0 {
		opts = NewOptions()
		if err := opts.UnmarshalBinary(rest); err != nil {
			return "", nil, err
		}
	}
	return string(body[:n]), opts, nil
}

// cStringOptsRespMarshal is the inverse of cStringOptsRespUnmarshal.
func cStringOptsRespMarshal(str string, opts *Options) ([]byte, error) {
	out := append([]byte(str), 0)
	if opts == nil {
		return out, nil
	}
	o, err := opts.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(out, o...), nil
}
