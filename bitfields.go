package structures

import "github.com/pkg/errors"

// BitField declares one sub-byte field within a BitFields block.
type BitField struct {
	Name  string
	Width int // bits
}

// BitFields packs/unpacks a sequence of sub-byte fields MSB-first, total
// width a multiple of 8 (spec §4.8).
type BitFields struct {
	Fields []BitField
}

// NewBitFields validates that the declared widths sum to a multiple of 8.
func NewBitFields(fields ...BitField) (*BitFields, error) {
	b := &BitFields{Fields: fields}
	if b.totalBits()%8 != 0 {
		return nil, errors.Errorf("structures: bitfield total width %d is not a multiple of 8", b.totalBits())
	}
	return b, nil
}

func (b *BitFields) totalBits() int {
	t := 0
	for _, f := range b.Fields {
		t += f.Width
	}
	return t
}

func (b *BitFields) Parse(s Stream, ctx *Context) (Value, error) {
	total := b.totalBits()
	raw, err := s.Read(total / 8)
	if err != nil {
		return nil, err
	}
	var acc uint64
	for _, by := range raw {
		acc = acc<<8 | uint64(by)
	}
	rec := NewRecord()
	shift := total
	for _, f := range b.Fields {
		shift -= f.Width
		mask := uint64(1)<<uint(f.Width) - 1
		rec.Set(f.Name, (acc>>uint(shift))&mask)
	}
	return rec, nil
}

func (b *BitFields) Build(v Value, s Stream, ctx *Context) error {
	rec, ok := v.(*Record)
	if !ok {
		return errors.Errorf("structures: bitfields build expects a *Record, got %T", v)
	}
	total := b.totalBits()
	var acc uint64
	shift := total
	for _, f := range b.Fields {
		shift -= f.Width
		raw, ok := rec.Get(f.Name)
		if !ok {
			return withPath(errors.Errorf("structures: missing bitfield %q", f.Name), f.Name)
		}
		val, ok := toUint64(raw)
		if !ok {
			return withPath(errors.WithStack(ErrOutOfRange), f.Name)
		}
		maxVal := uint64(1)<<uint(f.Width) - 1
		if val > maxVal {
			return withPath(errors.WithStack(ErrOutOfRange), f.Name)
		}
		acc |= val << uint(shift)
	}
	out := make([]byte, total/8)
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = byte(acc)
		acc >>= 8
	}
	return s.Write(out)
}

func (b *BitFields) Sizeof(ctx *Context) (int, error) { return b.totalBits() / 8, nil }
