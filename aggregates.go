package structures

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Field declares one ordered (name, construct) pair of a Struct (spec
// §4.4, §6).
type Field struct {
	Name      string
	Construct Construct
}

// Struct is an ordered sequence of named fields (spec §4.4). Field names
// starting with "_" are internal framing: parse still writes them into
// the scope so later fields can reference them, but they're omitted from
// the returned Record and are optional on Build.
type Struct struct {
	Fields []Field
}

// NewStruct validates field names and returns a *Struct, rejecting
// duplicates (spec §6, "rejects duplicate names").
func NewStruct(fields ...Field) (*Struct, error) {
	var names []string
	for _, f := range fields {
		if isEmbedded(f.Construct) || f.Name == "" {
			continue
		}
		if slices.Contains(names, f.Name) {
			return nil, errors.Errorf("structures: duplicate field name %q", f.Name)
		}
		names = append(names, f.Name)
	}
	return &Struct{Fields: fields}, nil
}

func isInternal(name string) bool { return name != "" && name[0] == '_' }

func (st *Struct) Parse(s Stream, ctx *Context) (Value, error) {
	scope := ctx.Child()
	return st.parseInto(s, scope)
}

func (st *Struct) parseInto(s Stream, scope *Context) (*Record, error) {
	start := s.Tell()
	mark := scope.mark()
	rec := NewRecord()
	for _, f := range st.Fields {
		if isEmbedded(f.Construct) {
			v, err := f.Construct.Parse(s, scope)
			if err != nil {
				scope.restore(mark)
				_ = s.Seek(start)
				return nil, withPath(err, f.Name)
			}
			if v == nil {
				// a wrapper around the embedded construct — e.g. If with a
				// false predicate — contributed no fields this call.
				continue
			}
			sub, ok := v.(*Record)
			if !ok {
				return nil, errors.Errorf("structures: embedded field did not produce a record")
			}
			for _, k := range sub.Keys() {
				sv, _ := sub.Get(k)
				rec.Set(k, sv)
			}
			continue
		}
		v, err := f.Construct.Parse(s, scope)
		if err != nil {
			scope.restore(mark)
			_ = s.Seek(start)
			return nil, withPath(err, f.Name)
		}
		scope.Set(f.Name, v)
		if !isInternal(f.Name) {
			rec.Set(f.Name, v)
		}
	}
	return rec, nil
}

func (st *Struct) Build(v Value, s Stream, ctx *Context) error {
	rec, ok := v.(*Record)
	if !ok {
		return errors.Errorf("structures: struct build expects a *Record, got %T", v)
	}
	scope := ctx.Child()
	return st.buildInto(rec, s, scope)
}

func (st *Struct) buildInto(rec *Record, s Stream, scope *Context) error {
	for _, f := range st.Fields {
		if isEmbedded(f.Construct) {
			if err := f.Construct.Build(rec, s, scope); err != nil {
				return withPath(err, f.Name)
			}
			continue
		}
		if cs, ok := f.Construct.(computedSource); ok {
			cv, isComputed, err := cs.computedBuild(scope)
			if err != nil {
				return withPath(err, f.Name)
			}
			if isComputed {
				scope.Set(f.Name, cv)
				if err := f.Construct.Build(cv, s, scope); err != nil {
					return withPath(err, f.Name)
				}
				continue
			}
		}
		val, hasVal := rec.Get(f.Name)
		if !hasVal {
			if opt, ok := f.Construct.(optionalBuildSource); ok && opt.optionalBuild(scope) {
				hasVal = true
			} else if isInternal(f.Name) {
				hasVal = true
			}
		}
		if !hasVal {
			return withPath(errors.Errorf("structures: missing required field %q", f.Name), f.Name)
		}
		if err := f.Construct.Build(val, s, scope); err != nil {
			return withPath(err, f.Name)
		}
		scope.Set(f.Name, val)
	}
	return nil
}

func (st *Struct) Sizeof(ctx *Context) (int, error) {
	scope := ctx.Child()
	total := 0
	for _, f := range st.Fields {
		n, err := f.Construct.Sizeof(scope)
		if err != nil {
			return 0, withPath(err, f.Name)
		}
		total += n
	}
	return total, nil
}

func (st *Struct) embedded() bool { return false }

// Contextual late-binds its actual construct at each call by invoking Make
// with the current context (spec §4.4). The resolved construct is never
// cached across calls.
type Contextual struct {
	Make func(ctx *Context) (Construct, error)
}

func (c Contextual) resolve(ctx *Context) (Construct, error) {
	inner, err := c.Make(ctx)
	if err != nil {
		return nil, errors.WithStack(wrapSentinel(ErrAdapterFailure, err))
	}
	return inner, nil
}

func (c Contextual) Parse(s Stream, ctx *Context) (Value, error) {
	inner, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Parse(s, ctx)
}

func (c Contextual) Build(v Value, s Stream, ctx *Context) error {
	inner, err := c.resolve(ctx)
	if err != nil {
		return err
	}
	return inner.Build(v, s, ctx)
}

func (c Contextual) Sizeof(ctx *Context) (int, error) {
	inner, err := c.resolve(ctx)
	if err != nil {
		return 0, err
	}
	return inner.Sizeof(ctx)
}

func (c Contextual) embedded() (emb bool) {
	// The probe runs Make against an empty context; a Make that cannot
	// cope with missing keys counts as not embedded.
	defer func() {
		if recover() != nil {
			emb = false
		}
	}()
	inner, err := c.Make(NewContext())
	return err == nil && isEmbedded(inner)
}

// computedBuild resolves Make and, if the resolved construct is itself a
// computedSource (typically Computed), delegates to it so a self-
// referencing or conditionally-resolved computed field still overrides the
// caller's value (spec §4.4).
func (c Contextual) computedBuild(ctx *Context) (Value, bool, error) {
	inner, err := c.resolve(ctx)
	if err != nil {
		return nil, false, err
	}
	if cs, ok := inner.(computedSource); ok {
		return cs.computedBuild(ctx)
	}
	return nil, false, nil
}

// Computed is a virtual field: parse evaluates Fn against the current
// scope and writes the result into it, touching no stream bytes (spec
// §4.4). On build, the computed value always wins over any user-supplied
// value for the same field name — Computed reports its value through
// computedSource, which Struct.buildInto (and any conditional or
// dispatching construct wrapping a Computed) consults for exactly this
// reason, instead of Struct special-casing the concrete Computed type.
type Computed struct {
	Fn func(ctx *Context) (Value, error)
}

func (c Computed) Parse(s Stream, ctx *Context) (Value, error) {
	v, err := c.Fn(ctx)
	if err != nil {
		return nil, errors.WithStack(wrapSentinel(ErrAdapterFailure, err))
	}
	return v, nil
}

// Build exists to satisfy Construct; it re-evaluates Fn for consistency but
// writes no stream bytes, matching Computed's "virtual field" contract.
// Struct.buildInto reaches the computed value via computedBuild instead of
// relying on this method's v parameter, which is why it's ignored here.
func (c Computed) Build(v Value, s Stream, ctx *Context) error {
	_, err := c.Fn(ctx)
	if err != nil {
		return errors.WithStack(wrapSentinel(ErrAdapterFailure, err))
	}
	return nil
}

func (c Computed) computedBuild(ctx *Context) (Value, bool, error) {
	v, err := c.Fn(ctx)
	if err != nil {
		return nil, false, errors.WithStack(wrapSentinel(ErrAdapterFailure, err))
	}
	return v, true, nil
}

func (c Computed) Sizeof(ctx *Context) (int, error) { return 0, nil }
func (c Computed) optionalBuild(ctx *Context) bool  { return true }
