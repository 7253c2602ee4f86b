package pdu

import (
	"fmt"
	"unicode/utf16"
)

// Character set names used as values in a DataCodingTable. These match the
// names an SMSC operator typically means by a given data_coding byte; they
// are labels for Decode/Encode below, not a claim of IANA registration.
const (
	CharsetGSM7    = "gsm7"
	CharsetASCII   = "ascii"
	CharsetLatin1  = "latin1"
	CharsetUCS2    = "ucs2"
	CharsetUnknown = "unknown"
)

// DataCodingTable maps the wire data_coding byte to a character set name.
// It is mutable so a deployment can override or extend the SMPP 3.4
// defaults for SMSCs that violate the spec (a very common occurrence).
type DataCodingTable struct {
	charsets map[int]string
}

// NewDataCodingTable builds a table seeded with the SMPP 3.4 defaults.
func NewDataCodingTable() *DataCodingTable {
	t := &DataCodingTable{charsets: map[int]string{
		0x00: CharsetGSM7,
		0x01: CharsetASCII,
		0x03: CharsetLatin1,
		0x08: CharsetUCS2,
	}}
	return t
}

// Override replaces or adds a data_coding -> charset mapping.
func (t *DataCodingTable) Override(dataCoding int, charset string) {
	t.charsets[dataCoding] = charset
}

// ApplyOverrides bulk-applies a set of overrides, e.g. parsed from
// configuration. Integer keys are the wire data_coding byte.
func (t *DataCodingTable) ApplyOverrides(overrides map[int]string) {
	for dc, charset := range overrides {
		t.Override(dc, charset)
	}
}

// Charset returns the configured charset name for a data_coding byte,
// falling back to CharsetUnknown when none is configured.
func (t *DataCodingTable) Charset(dataCoding int) string {
	if cs, ok := t.charsets[dataCoding]; ok {
		return cs
	}
	return CharsetUnknown
}

// Decode converts raw short_message bytes into a UTF-8 string using the
// charset configured for dataCoding. Decoding errors are returned to the
// caller rather than panicking; the worker logs them at the boundary and
// still attempts to forward the PDU rather than dropping the connection.
func (t *DataCodingTable) Decode(dataCoding int, raw []byte) (string, error) {
	switch t.Charset(dataCoding) {
	case CharsetGSM7, CharsetASCII, CharsetLatin1:
		return decodeLatin1(raw), nil
	case CharsetUCS2:
		return decodeUCS2(raw)
	default:
		return string(raw), fmt.Errorf("smpp/pdu: no charset configured for data_coding 0x%02X", dataCoding)
	}
}

// Encode converts a UTF-8 string into raw bytes suitable for short_message
// using the charset configured for dataCoding.
func (t *DataCodingTable) Encode(dataCoding int, text string) ([]byte, error) {
	switch t.Charset(dataCoding) {
	case CharsetGSM7, CharsetASCII, CharsetLatin1:
		return encodeLatin1(text), nil
	case CharsetUCS2:
		return encodeUCS2(text), nil
	default:
		return []byte(text), fmt.Errorf("smpp/pdu: no charset configured for data_coding 0x%02X", dataCoding)
	}
}

func decodeLatin1(raw []byte) string {
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

func encodeLatin1(text string) []byte {
	runes := []rune(text)
	out := make([]byte, 0, len(runes))
	for _, r := range runes {
		if r > 0xFF {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return out
}

func decodeUCS2(raw []byte) (string, error) {
	if len(raw)%2 != 0 {
		return "", fmt.Errorf("smpp/pdu: odd length UCS2 payload: %d bytes", len(raw))
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	return string(utf16.Decode(units)), nil
}

func encodeUCS2(text string) []byte {
	units := utf16.Encode([]rune(text))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[2*i] = byte(u >> 8)
		out[2*i+1] = byte(u)
	}
	return out
}
