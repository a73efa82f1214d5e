package structures

import (
	"strconv"

	"github.com/pkg/errors"
)

// Adapted applies BeforeBuild to a value before delegating to Inner.Build,
// and AfterParse to the value Inner.Parse returns (spec §4.5). Either
// transform may be nil to skip that direction. Transform failures are
// reported as ErrAdapterFailure with the original error attached.
type Adapted struct {
	Inner       Construct
	BeforeBuild func(v Value) (Value, error)
	AfterParse  func(v Value) (Value, error)
}

func (a Adapted) Parse(s Stream, ctx *Context) (Value, error) {
	v, err := a.Inner.Parse(s, ctx)
	if err != nil {
		return nil, err
	}
	if a.AfterParse == nil {
		return v, nil
	}
	out, err := a.AfterParse(v)
	if err != nil {
		return nil, errors.WithStack(wrapSentinel(ErrAdapterFailure, err))
	}
	return out, nil
}

func (a Adapted) Build(v Value, s Stream, ctx *Context) error {
	in := v
	if a.BeforeBuild != nil {
		var err error
		in, err = a.BeforeBuild(v)
		if err != nil {
			return errors.WithStack(wrapSentinel(ErrAdapterFailure, err))
		}
	}
	return a.Inner.Build(in, s, ctx)
}

func (a Adapted) Sizeof(ctx *Context) (int, error) { return a.Inner.Sizeof(ctx) }
func (a Adapted) embedded() bool                   { return isEmbedded(a.Inner) }

// computedBuild delegates to Inner when it's itself a computedSource, so a
// Computed wrapped in an Adapted still overrides the caller's value (spec
// §4.4). The raw value Inner computes is reported as-is: BeforeBuild maps
// a caller-supplied value into what Inner expects, which doesn't apply to
// a value Inner derived on its own.
func (a Adapted) computedBuild(ctx *Context) (Value, bool, error) {
	if cs, ok := a.Inner.(computedSource); ok {
		return cs.computedBuild(ctx)
	}
	return nil, false, nil
}

// Repeat parses Inner greedily until the stream is exhausted or Inner
// fails without advancing the stream, returning the accumulated list
// (spec §4.5). A failure that did advance the stream propagates, per the
// transactional contract of §4.12.
type Repeat struct {
	Inner Construct
}

func (r Repeat) Parse(s Stream, ctx *Context) (Value, error) {
	var out []Value
	for {
		if s.Tell() >= s.Len() {
			break
		}
		mark := s.Tell()
		v, err := r.Inner.Parse(s, ctx)
		if err != nil {
			if s.Tell() != mark {
				return nil, err
			}
			break
		}
		if s.Tell() == mark {
			// Inner consumed no bytes; stop rather than loop forever.
			break
		}
		out = append(out, v)
	}
	return out, nil
}

func (r Repeat) Build(v Value, s Stream, ctx *Context) error {
	items, ok := v.([]Value)
	if !ok {
		return errors.WithStack(ErrLengthMismatch)
	}
	for i, item := range items {
		if err := r.Inner.Build(item, s, ctx); err != nil {
			return withPath(err, indexPath(i))
		}
	}
	return nil
}

func (r Repeat) Sizeof(ctx *Context) (int, error) {
	return 0, errors.WithStack(ErrSizeofUnknown)
}

// RepeatExactly parses and builds exactly N elements (spec §4.5).
type RepeatExactly struct {
	Inner Construct
	N     int
}

func (r RepeatExactly) Parse(s Stream, ctx *Context) (Value, error) {
	out := make([]Value, r.N)
	for i := 0; i < r.N; i++ {
		v, err := r.Inner.Parse(s, ctx)
		if err != nil {
			return nil, withPath(err, indexPath(i))
		}
		out[i] = v
	}
	return out, nil
}

func (r RepeatExactly) Build(v Value, s Stream, ctx *Context) error {
	items, ok := v.([]Value)
	if !ok || len(items) != r.N {
		return errors.WithStack(ErrLengthMismatch)
	}
	for i, item := range items {
		if err := r.Inner.Build(item, s, ctx); err != nil {
			return withPath(err, indexPath(i))
		}
	}
	return nil
}

func (r RepeatExactly) Sizeof(ctx *Context) (int, error) {
	n, err := r.Inner.Sizeof(ctx)
	if err != nil {
		return 0, err
	}
	return n * r.N, nil
}

func indexPath(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

// Prefixed reads a length via LengthConstruct, restricts parsing of Inner
// to that many bytes, and asserts the window is fully consumed (spec
// §4.5). Build encodes Inner into a scratch buffer first so the length is
// known before it's written.
type Prefixed struct {
	LengthConstruct Construct
	Inner           Construct
}

func (p Prefixed) Parse(s Stream, ctx *Context) (Value, error) {
	lv, err := p.LengthConstruct.Parse(s, ctx)
	if err != nil {
		return nil, err
	}
	n, err := toInt(lv)
	if err != nil {
		return nil, errors.WithStack(ErrFramingError)
	}
	win := newWindow(s, int64(n))
	v, err := p.Inner.Parse(win, ctx)
	if err != nil {
		return nil, err
	}
	if win.remaining() != 0 {
		return nil, errors.WithStack(ErrFramingError)
	}
	return v, nil
}

func (p Prefixed) Build(v Value, s Stream, ctx *Context) error {
	buf := NewWriteStream()
	if err := p.Inner.Build(v, buf, ctx); err != nil {
		return err
	}
	encoded := buf.(*memStream).bytes()
	if err := p.LengthConstruct.Build(int64(len(encoded)), s, ctx); err != nil {
		return err
	}
	return s.Write(encoded)
}

func (p Prefixed) Sizeof(ctx *Context) (int, error) {
	ln, err := p.LengthConstruct.Sizeof(ctx)
	if err != nil {
		return 0, err
	}
	in, err := p.Inner.Sizeof(ctx)
	if err != nil {
		return 0, err
	}
	return ln + in, nil
}

// Padded forces Inner's encoding into exactly N bytes: trailing bytes are
// discarded on parse, and the build is zero-padded (or rejected with
// ErrLengthMismatch if it overflows N) (spec §4.5).
type Padded struct {
	N     int
	Inner Construct
}

func (p Padded) Parse(s Stream, ctx *Context) (Value, error) {
	raw, err := s.Read(p.N)
	if err != nil {
		return nil, err
	}
	sub := NewReadStream(raw)
	return p.Inner.Parse(sub, ctx)
}

func (p Padded) Build(v Value, s Stream, ctx *Context) error {
	buf := NewWriteStream()
	if err := p.Inner.Build(v, buf, ctx); err != nil {
		return err
	}
	encoded := buf.(*memStream).bytes()
	if len(encoded) > p.N {
		return errors.WithStack(ErrLengthMismatch)
	}
	out := make([]byte, p.N)
	copy(out, encoded)
	return s.Write(out)
}

func (p Padded) Sizeof(ctx *Context) (int, error) { return p.N, nil }

// Aligned rounds the stream position up to a multiple of Modulus with
// zero-fill (build) or skip (parse) after delegating to Inner (spec
// §4.5). Sizeof is unknown because alignment depends on Inner's absolute
// position within the enclosing stream, which sizeof cannot observe.
type Aligned struct {
	Modulus int
	Inner   Construct
}

func (a Aligned) padLen(pos int64) int64 {
	m := int64(a.Modulus)
	if rem := pos % m; rem != 0 {
		return m - rem
	}
	return 0
}

func (a Aligned) Parse(s Stream, ctx *Context) (Value, error) {
	v, err := a.Inner.Parse(s, ctx)
	if err != nil {
		return nil, err
	}
	if pad := a.padLen(s.Tell()); pad > 0 {
		if _, err := s.Read(int(pad)); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (a Aligned) Build(v Value, s Stream, ctx *Context) error {
	if err := a.Inner.Build(v, s, ctx); err != nil {
		return err
	}
	if pad := a.padLen(s.Tell()); pad > 0 {
		return s.Write(make([]byte, pad))
	}
	return nil
}

func (a Aligned) Sizeof(ctx *Context) (int, error) {
	return 0, errors.WithStack(ErrSizeofUnknown)
}
