package structures

import (
	"bytes"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Endian selects byte order for Integer and Float.
type Endian int

const (
	BigEndian Endian = iota
	LittleEndian
)

// Pass parses to nil, builds nothing, and has size 0 (spec §4.3).
type Pass struct{}

func (Pass) Parse(s Stream, ctx *Context) (Value, error) { return nil, nil }
func (Pass) Build(v Value, s Stream, ctx *Context) error { return nil }
func (Pass) Sizeof(ctx *Context) (int, error)            { return 0, nil }
func (Pass) optionalBuild(ctx *Context) bool             { return true }

// Flag is one byte: zero is false, nonzero parses as true; build always
// writes 0x01 for true (spec §4.3).
type Flag struct{}

func (Flag) Parse(s Stream, ctx *Context) (Value, error) {
	b, err := s.Read(1)
	if err != nil {
		return nil, err
	}
	return b[0] != 0, nil
}

func (Flag) Build(v Value, s Stream, ctx *Context) error {
	flag, ok := v.(bool)
	if !ok {
		return errors.WithStack(ErrOutOfRange)
	}
	if flag {
		return s.Write([]byte{0x01})
	}
	return s.Write([]byte{0x00})
}

func (Flag) Sizeof(ctx *Context) (int, error) { return 1, nil }

// Bytes is a fixed-length byte string (spec §4.3).
type Bytes struct {
	N int
}

func (b Bytes) Parse(s Stream, ctx *Context) (Value, error) { return s.Read(b.N) }

func (b Bytes) Build(v Value, s Stream, ctx *Context) error {
	data, ok := v.([]byte)
	if !ok || len(data) != b.N {
		return errors.WithStack(ErrLengthMismatch)
	}
	return s.Write(data)
}

func (b Bytes) Sizeof(ctx *Context) (int, error) { return b.N, nil }

// Padding parses and discards n bytes, and builds n zero bytes (spec §4.3).
type Padding struct {
	N int
}

func (p Padding) Parse(s Stream, ctx *Context) (Value, error) {
	if _, err := s.Read(p.N); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p Padding) Build(v Value, s Stream, ctx *Context) error {
	return s.Write(make([]byte, p.N))
}

func (p Padding) Sizeof(ctx *Context) (int, error) { return p.N, nil }
func (p Padding) optionalBuild(ctx *Context) bool  { return true }

// Const builds fixed literal bytes; parse verifies the stream holds the
// same bytes, failing with ErrConstMismatch otherwise (spec §4.3).
type Const struct {
	Literal []byte
}

func (c Const) Parse(s Stream, ctx *Context) (Value, error) {
	got, err := s.Read(len(c.Literal))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(got, c.Literal) {
		return nil, errors.WithStack(ErrConstMismatch)
	}
	return got, nil
}

func (c Const) Build(v Value, s Stream, ctx *Context) error {
	return s.Write(c.Literal)
}

func (c Const) Sizeof(ctx *Context) (int, error) { return len(c.Literal), nil }
func (c Const) optionalBuild(ctx *Context) bool  { return true }

// Integer is a fixed-width integer (spec §4.3). Parse always normalizes to
// int64 for signed widths or uint64 for unsigned widths, regardless of
// Width; Build accepts any Go integer type that fits.
type Integer struct {
	Width  int // 1, 2, 4, or 8 bytes
	Signed bool
	Endian Endian
}

func (i Integer) Parse(s Stream, ctx *Context) (Value, error) {
	b, err := s.Read(i.Width)
	if err != nil {
		return nil, err
	}
	return decodeInt(b, i.Width, i.Signed, i.Endian)
}

func (i Integer) Build(v Value, s Stream, ctx *Context) error {
	b, err := encodeInt(v, i.Width, i.Signed, i.Endian)
	if err != nil {
		return err
	}
	return s.Write(b)
}

func (i Integer) Sizeof(ctx *Context) (int, error) { return i.Width, nil }

// readUint reconstructs an unsigned integer of width len(b) from raw
// bytes under endian, generic over the unsigned type the caller wants it
// accumulated into.
func readUint[T constraints.Unsigned](b []byte, endian Endian) T {
	var v uint64
	if endian == BigEndian {
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
	} else {
		for idx := len(b) - 1; idx >= 0; idx-- {
			v = v<<8 | uint64(b[idx])
		}
	}
	return T(v)
}

func writeUint(b []byte, v uint64, endian Endian) {
	width := len(b)
	if endian == BigEndian {
		for i := width - 1; i >= 0; i-- {
			b[i] = byte(v)
			v >>= 8
		}
	} else {
		for i := 0; i < width; i++ {
			b[i] = byte(v)
			v >>= 8
		}
	}
}

func decodeInt(b []byte, width int, signed bool, endian Endian) (Value, error) {
	switch width {
	case 1:
		if signed {
			return int64(int8(readUint[uint8](b, endian))), nil
		}
		return uint64(readUint[uint8](b, endian)), nil
	case 2:
		if signed {
			return int64(int16(readUint[uint16](b, endian))), nil
		}
		return uint64(readUint[uint16](b, endian)), nil
	case 4:
		if signed {
			return int64(int32(readUint[uint32](b, endian))), nil
		}
		return uint64(readUint[uint32](b, endian)), nil
	case 8:
		if signed {
			return int64(readUint[uint64](b, endian)), nil
		}
		return readUint[uint64](b, endian), nil
	default:
		return nil, errors.Errorf("structures: unsupported integer width %d", width)
	}
}

func encodeInt(v Value, width int, signed bool, endian Endian) ([]byte, error) {
	if width != 1 && width != 2 && width != 4 && width != 8 {
		return nil, errors.Errorf("structures: unsupported integer width %d", width)
	}
	var uv uint64
	if !signed {
		u, ok := toUint64(v)
		if !ok || !fitsUnsigned(u, width) {
			return nil, errors.WithStack(ErrOutOfRange)
		}
		uv = u
	} else {
		sv, ok := toInt64(v)
		if !ok || !fitsSigned(sv, width) {
			return nil, errors.WithStack(ErrOutOfRange)
		}
		uv = uint64(sv)
	}
	b := make([]byte, width)
	writeUint(b, uv, endian)
	return b, nil
}

func fitsSigned(v int64, width int) bool {
	bits := uint(width) * 8
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return v >= lo && v <= hi
}

func fitsUnsigned(v uint64, width int) bool {
	if width == 8 {
		return true
	}
	hi := uint64(1) << (uint(width) * 8)
	return v < hi
}

func toInt64(v Value) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), true
		}
		return 0, false
	}
	return 0, false
}

func toUint64(v Value) (uint64, bool) {
	switch x := v.(type) {
	case int:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int8:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int16:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int32:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case uint:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	}
	return 0, false
}

func toInt(v Value) (int, error) {
	if i, ok := toInt64(v); ok {
		return int(i), nil
	}
	return 0, errors.Errorf("structures: expected an integer-like length value, got %T", v)
}

// Float is an IEEE-754 float, 4 or 8 bytes wide (spec §4.3). Parse always
// normalizes to float64.
type Float struct {
	Width  int // 4 or 8
	Endian Endian
}

func (f Float) Parse(s Stream, ctx *Context) (Value, error) {
	b, err := s.Read(f.Width)
	if err != nil {
		return nil, err
	}
	bits := readUint[uint64](b, f.Endian)
	switch f.Width {
	case 4:
		return float64(math.Float32frombits(uint32(bits))), nil
	case 8:
		return math.Float64frombits(bits), nil
	default:
		return nil, errors.Errorf("structures: unsupported float width %d", f.Width)
	}
}

func (f Float) Build(v Value, s Stream, ctx *Context) error {
	fv, ok := toFloat64(v)
	if !ok {
		return errors.WithStack(ErrOutOfRange)
	}
	var bits uint64
	switch f.Width {
	case 4:
		bits = uint64(math.Float32bits(float32(fv)))
	case 8:
		bits = math.Float64bits(fv)
	default:
		return errors.Errorf("structures: unsupported float width %d", f.Width)
	}
	b := make([]byte, f.Width)
	writeUint(b, bits, f.Endian)
	return s.Write(b)
}

func (f Float) Sizeof(ctx *Context) (int, error) { return f.Width, nil }

func toFloat64(v Value) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		if i, ok := toInt64(v); ok {
			return float64(i), true
		}
	}
	return 0, false
}
