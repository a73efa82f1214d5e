package structures

import "github.com/pkg/errors"

// If evaluates Predicate against ctx. When true it delegates to Inner;
// when false, parse yields nil and build consumes nothing (spec §4.7).
type If struct {
	Predicate func(ctx *Context) bool
	Inner     Construct
}

func (i If) Parse(s Stream, ctx *Context) (Value, error) {
	if !i.Predicate(ctx) {
		return nil, nil
	}
	return i.Inner.Parse(s, ctx)
}

func (i If) Build(v Value, s Stream, ctx *Context) error {
	if !i.Predicate(ctx) {
		return nil
	}
	return i.Inner.Build(v, s, ctx)
}

func (i If) Sizeof(ctx *Context) (int, error) {
	if !i.Predicate(ctx) {
		return 0, nil
	}
	return i.Inner.Sizeof(ctx)
}

func (i If) optionalBuild(ctx *Context) bool {
	if !i.Predicate(ctx) {
		return true
	}
	if opt, ok := i.Inner.(optionalBuildSource); ok {
		return opt.optionalBuild(ctx)
	}
	return false
}

func (i If) embedded() bool { return isEmbedded(i.Inner) }

// computedBuild delegates to Inner when Predicate holds and Inner is
// itself a computedSource, so a conditionally-present computed field still
// overrides the caller's value (spec §4.4). A false predicate reports no
// override, letting Struct.buildInto fall back to its normal handling,
// which optionalBuild already makes a no-op for this field.
func (i If) computedBuild(ctx *Context) (Value, bool, error) {
	if !i.Predicate(ctx) {
		return nil, false, nil
	}
	if cs, ok := i.Inner.(computedSource); ok {
		return cs.computedBuild(ctx)
	}
	return nil, false, nil
}

// Case is one arm of a Switch.
type Case struct {
	When      Value
	Construct Construct
}

// Switch evaluates Selector and dispatches to the matching Case. With no
// match and no Default, it fails with ErrSwitchNoMatch (spec §4.7).
type Switch struct {
	Selector func(ctx *Context) Value
	Cases    []Case
	Default  Construct
}

func (sw Switch) pick(ctx *Context) (Construct, error) {
	key := sw.Selector(ctx)
	for _, c := range sw.Cases {
		if c.When == key {
			return c.Construct, nil
		}
	}
	if sw.Default != nil {
		return sw.Default, nil
	}
	return nil, errors.WithStack(ErrSwitchNoMatch)
}

func (sw Switch) Parse(s Stream, ctx *Context) (Value, error) {
	c, err := sw.pick(ctx)
	if err != nil {
		return nil, err
	}
	return c.Parse(s, ctx)
}

func (sw Switch) Build(v Value, s Stream, ctx *Context) error {
	c, err := sw.pick(ctx)
	if err != nil {
		return err
	}
	return c.Build(v, s, ctx)
}

func (sw Switch) Sizeof(ctx *Context) (int, error) {
	c, err := sw.pick(ctx)
	if err != nil {
		return 0, err
	}
	return c.Sizeof(ctx)
}

func (sw Switch) embedded() (emb bool) {
	// The probe runs Selector against an empty context; a selector that
	// cannot cope with missing keys counts as not embedded.
	defer func() {
		if recover() != nil {
			emb = false
		}
	}()
	c, err := sw.pick(NewContext())
	return err == nil && isEmbedded(c)
}

// computedBuild delegates to whichever case pick selects, so a computed
// field reached only through one Switch arm still overrides the caller's
// value for that arm (spec §4.4).
func (sw Switch) computedBuild(ctx *Context) (Value, bool, error) {
	c, err := sw.pick(ctx)
	if err != nil {
		return nil, false, err
	}
	if cs, ok := c.(computedSource); ok {
		return cs.computedBuild(ctx)
	}
	return nil, false, nil
}

// Enum is a bijection between raw values and string labels (spec §4.7).
// Parse returns the label; build accepts a label.
type Enum struct {
	Inner   Construct
	mapping map[Value]string
	reverse map[string]Value
}

// NewEnum builds an Enum over inner, where mapping keys are raw values (as
// produced by inner.Parse, typically int64/uint64) and values are labels.
func NewEnum(inner Construct, mapping map[Value]string) *Enum {
	rev := make(map[string]Value, len(mapping))
	for raw, label := range mapping {
		rev[label] = raw
	}
	return &Enum{Inner: inner, mapping: mapping, reverse: rev}
}

func (e *Enum) Parse(s Stream, ctx *Context) (Value, error) {
	raw, err := e.Inner.Parse(s, ctx)
	if err != nil {
		return nil, err
	}
	label, ok := e.mapping[raw]
	if !ok {
		return nil, errors.WithStack(ErrUnknownEnumValue)
	}
	return label, nil
}

func (e *Enum) Build(v Value, s Stream, ctx *Context) error {
	label, ok := v.(string)
	if !ok {
		return errors.WithStack(ErrUnknownEnumLabel)
	}
	raw, ok := e.reverse[label]
	if !ok {
		return errors.WithStack(ErrUnknownEnumLabel)
	}
	return e.Inner.Build(raw, s, ctx)
}

func (e *Enum) Sizeof(ctx *Context) (int, error) { return e.Inner.Sizeof(ctx) }

// Raise always fails with Err (ErrSwitchNoMatch if nil), optionally
// annotated by Message — useful as a Switch default to forbid unknown
// variants (spec §4.7).
type Raise struct {
	Err     error
	Message func(ctx *Context) string
}

func (r Raise) Parse(s Stream, ctx *Context) (Value, error) { return nil, r.fail(ctx) }
func (r Raise) Build(v Value, s Stream, ctx *Context) error { return r.fail(ctx) }
func (r Raise) Sizeof(ctx *Context) (int, error)            { return 0, r.fail(ctx) }

func (r Raise) fail(ctx *Context) error {
	base := r.Err
	if base == nil {
		base = ErrSwitchNoMatch
	}
	if r.Message == nil {
		return errors.WithStack(base)
	}
	return errors.WithStack(wrapSentinel(base, errors.New(r.Message(ctx))))
}
