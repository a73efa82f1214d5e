package structures

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// TextEncoding names a supported declared text encoding for
// String/PascalString/CString/Line (spec §3, §4.6). The distilled spec
// names "declared encoding" without enumerating a set; this is the
// resolution recorded in DESIGN.md.
type TextEncoding int

const (
	UTF8 TextEncoding = iota
	UTF16BE
	UTF16LE
	ISO8859_1
)

// codec returns nil for UTF8, since Go's native string type already is
// UTF-8 and needs no transform.
func (e TextEncoding) codec() encoding.Encoding {
	switch e {
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case ISO8859_1:
		return charmap.ISO8859_1
	default:
		return nil
	}
}

func decodeText(b []byte, enc TextEncoding) (string, error) {
	codec := enc.codec()
	if codec == nil {
		return string(b), nil
	}
	out, err := codec.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(err, "structures: text decode")
	}
	return string(out), nil
}

func encodeText(str string, enc TextEncoding) ([]byte, error) {
	codec := enc.codec()
	if codec == nil {
		return []byte(str), nil
	}
	out, err := codec.NewEncoder().Bytes([]byte(str))
	if err != nil {
		return nil, errors.Wrap(err, "structures: text encode")
	}
	return out, nil
}

// String is a fixed-length byte string decoded/encoded with Encoding
// (spec §4.6).
type String struct {
	N        int
	Encoding TextEncoding
}

func (st String) Parse(s Stream, ctx *Context) (Value, error) {
	raw, err := s.Read(st.N)
	if err != nil {
		return nil, err
	}
	return decodeText(raw, st.Encoding)
}

func (st String) Build(v Value, s Stream, ctx *Context) error {
	str, ok := v.(string)
	if !ok {
		return errors.WithStack(ErrLengthMismatch)
	}
	raw, err := encodeText(str, st.Encoding)
	if err != nil {
		return err
	}
	if len(raw) != st.N {
		return errors.WithStack(ErrLengthMismatch)
	}
	return s.Write(raw)
}

func (st String) Sizeof(ctx *Context) (int, error) { return st.N, nil }

// PascalString is a length-prefixed string, the length read via
// LengthConstruct (spec §4.6).
type PascalString struct {
	LengthConstruct Construct
	Encoding        TextEncoding
}

func (p PascalString) Parse(s Stream, ctx *Context) (Value, error) {
	lv, err := p.LengthConstruct.Parse(s, ctx)
	if err != nil {
		return nil, err
	}
	n, err := toInt(lv)
	if err != nil {
		return nil, errors.WithStack(ErrFramingError)
	}
	raw, err := s.Read(n)
	if err != nil {
		return nil, err
	}
	return decodeText(raw, p.Encoding)
}

func (p PascalString) Build(v Value, s Stream, ctx *Context) error {
	str, ok := v.(string)
	if !ok {
		return errors.WithStack(ErrLengthMismatch)
	}
	raw, err := encodeText(str, p.Encoding)
	if err != nil {
		return err
	}
	if err := p.LengthConstruct.Build(int64(len(raw)), s, ctx); err != nil {
		return err
	}
	return s.Write(raw)
}

func (p PascalString) Sizeof(ctx *Context) (int, error) {
	return 0, errors.WithStack(ErrSizeofUnknown)
}

// CString is null-terminated (spec §4.6).
type CString struct {
	Encoding TextEncoding
}

func (c CString) Parse(s Stream, ctx *Context) (Value, error) {
	var raw []byte
	for {
		b, err := s.Read(1)
		if err != nil {
			return nil, err
		}
		if b[0] == 0x00 {
			break
		}
		raw = append(raw, b[0])
	}
	return decodeText(raw, c.Encoding)
}

func (c CString) Build(v Value, s Stream, ctx *Context) error {
	str, ok := v.(string)
	if !ok {
		return errors.WithStack(ErrLengthMismatch)
	}
	raw, err := encodeText(str, c.Encoding)
	if err != nil {
		return err
	}
	if err := s.Write(raw); err != nil {
		return err
	}
	return s.Write([]byte{0x00})
}

func (c CString) Sizeof(ctx *Context) (int, error) {
	return 0, errors.WithStack(ErrSizeofUnknown)
}

var crlf = []byte{0x0D, 0x0A}

// Line is terminated by CR LF; the decoded value excludes the terminator
// (spec §4.6). Parse fails with ErrFramingError if the terminator is
// absent before the stream ends.
type Line struct {
	Encoding TextEncoding
}

func (l Line) Parse(s Stream, ctx *Context) (Value, error) {
	var raw []byte
	for {
		b, err := s.Read(1)
		if err != nil {
			return nil, errors.WithStack(ErrFramingError)
		}
		if b[0] != 0x0D {
			raw = append(raw, b[0])
			continue
		}
		nxt, err := s.Read(1)
		if err == nil && nxt[0] == 0x0A {
			return decodeText(raw, l.Encoding)
		}
		raw = append(raw, b[0])
		if err == nil {
			if nxt[0] == 0x0D {
				// this CR may open the terminator; read it again
				if err := s.Seek(s.Tell() - 1); err != nil {
					return nil, err
				}
			} else {
				raw = append(raw, nxt[0])
			}
		}
	}
}

func (l Line) Build(v Value, s Stream, ctx *Context) error {
	str, ok := v.(string)
	if !ok {
		return errors.WithStack(ErrLengthMismatch)
	}
	raw, err := encodeText(str, l.Encoding)
	if err != nil {
		return err
	}
	if err := s.Write(raw); err != nil {
		return err
	}
	return s.Write(crlf)
}

func (l Line) Sizeof(ctx *Context) (int, error) {
	return 0, errors.WithStack(ErrSizeofUnknown)
}
