// Package structures is a declarative binary data processing engine: a
// small library of composable constructs, each a three-way codec, used to
// parse bytes into structured values, build bytes from structured values,
// and compute the size of the encoded form without touching a stream.
//
// A construct describes a binary layout once; that single description
// drives Parse, Build, and Sizeof. Constructs nest, are made conditional
// on previously parsed fields via Context, repeat, adapt user values
// through transforms, and reference themselves recursively.
package structures

import "github.com/pkg/errors"

// Value is the dynamic value domain exchanged with callers (spec §3):
// bool, int64/uint64, float64, []byte, string, *Record, []Value, or nil.
type Value = any

// Construct is the tri-operation contract every codec in this package
// implements (spec §4.1). Implementations are immutable after
// construction and safe to share across goroutines (spec §5).
type Construct interface {
	// Parse consumes bytes from s starting at its current position,
	// advancing it, and returns the decoded value.
	Parse(s Stream, ctx *Context) (Value, error)
	// Build appends the encoding of v at s's current position, advancing it.
	Build(v Value, s Stream, ctx *Context) error
	// Sizeof returns the exact encoded byte length under ctx, or an error
	// wrapping ErrSizeofUnknown when the length depends on data not yet
	// available.
	Sizeof(ctx *Context) (int, error)
}

// embeddable is implemented by constructs that may flatten their parsed
// record fields into an enclosing Struct's scope (spec §4.1).
type embeddable interface {
	embedded() bool
}

// optionalBuildSource is implemented by constructs that can be built
// without an explicit value when omitted from a Struct's input record
// (Const, Padding and Computed, spec §4.4; also Pass, Checksum and a
// false-predicate If).
type optionalBuildSource interface {
	optionalBuild(ctx *Context) bool
}

// computedSource is implemented by constructs whose build-time value must
// override whatever the caller supplied for the field, because the value
// is derived from Context rather than from the caller (spec §4.4,
// "computed value wins"). ok reports whether this particular call actually
// produced an override — a conditional or dispatching wrapper around a
// Computed may decline to (e.g. If with a false predicate), in which case
// Struct.buildInto falls back to its normal field-handling path.
type computedSource interface {
	computedBuild(ctx *Context) (v Value, ok bool, err error)
}

func isEmbedded(c Construct) bool {
	e, ok := c.(embeddable)
	return ok && e.embedded()
}

// Record is an insertion-ordered field-name → value mapping (spec §3).
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set assigns name, recording first-write order.
func (r *Record) Set(name string, v Value) {
	if _, exists := r.values[name]; !exists {
		r.keys = append(r.keys, name)
	}
	r.values[name] = v
}

// Get looks up name.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Keys returns the declared field names in declaration order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// embeddedConstruct marks inner as embeddable; see Embedded.
type embeddedConstruct struct {
	Construct
}

// Embedded marks a record-valued construct so that an enclosing Struct
// flattens its fields into its own scope instead of nesting them under a
// single field name (spec §4.1). Only constructs whose value is a
// *Record — in practice, *Struct — may be embedded.
func Embedded(c Construct) Construct {
	return &embeddedConstruct{Construct: c}
}

func (e *embeddedConstruct) embedded() bool { return true }

func (e *embeddedConstruct) Parse(s Stream, ctx *Context) (Value, error) {
	if st, ok := e.Construct.(*Struct); ok {
		return st.parseInto(s, ctx)
	}
	return e.Construct.Parse(s, ctx)
}

func (e *embeddedConstruct) Build(v Value, s Stream, ctx *Context) error {
	if st, ok := e.Construct.(*Struct); ok {
		rec, ok := v.(*Record)
		if !ok {
			return errors.Errorf("structures: embedded build expects a *Record, got %T", v)
		}
		return st.buildInto(rec, s, ctx)
	}
	return e.Construct.Build(v, s, ctx)
}

// Parse is the top-level convenience entry point (spec §6): it wraps data
// in a read stream, parses from a fresh root context, and — per the
// permissive-by-default resolution of the spec's Open Question (§9) —
// allows trailing bytes.
func Parse(c Construct, data []byte) (Value, error) {
	return parseTop(c, data, false)
}

// ParseStrict is Parse's opt-in strict-end-of-stream sibling: it fails
// with ErrUnexpectedEnd if any bytes remain after a successful parse
// (spec §6, §9).
func ParseStrict(c Construct, data []byte) (Value, error) {
	return parseTop(c, data, true)
}

func parseTop(c Construct, data []byte, strict bool) (Value, error) {
	s := NewReadStream(data)
	ctx := NewContext()
	v, err := c.Parse(s, ctx)
	if err != nil {
		return nil, err
	}
	if strict && s.Tell() != s.Len() {
		return nil, atOffset(ErrUnexpectedEnd, s.Tell())
	}
	return v, nil
}

// Build wraps an output stream, builds v against a fresh root context, and
// returns the accumulated bytes (spec §6). When v is a *Record, its
// fields seed the root context up front so that top-level constructs other
// than Struct (e.g. a bare Contextual) can still see them.
func Build(c Construct, v Value) ([]byte, error) {
	s := NewWriteStream()
	ctx := NewContext()
	if rec, ok := v.(*Record); ok {
		for _, k := range rec.Keys() {
			fv, _ := rec.Get(k)
			ctx.Set(k, fv)
		}
	}
	if err := c.Build(v, s, ctx); err != nil {
		return nil, err
	}
	return s.(*memStream).bytes(), nil
}

// Sizeof returns c's encoded length under the supplied context values, or
// an error wrapping ErrSizeofUnknown (spec §6). A nil/empty map computes
// size with no externally supplied context, matching
// "sizeof(context={})".
func Sizeof(c Construct, values map[string]Value) (int, error) {
	return c.Sizeof(NewContextFrom(values))
}
