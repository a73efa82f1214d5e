package structures

// Offset saves the stream's current position, seeks to Absolute, delegates
// to Inner, then restores the saved position — it never advances the
// enclosing cursor, so Sizeof is 0 (spec §4.9).
type Offset struct {
	Absolute int64
	Inner    Construct
}

func (o Offset) Parse(s Stream, ctx *Context) (Value, error) {
	saved := s.Tell()
	if err := s.Seek(o.Absolute); err != nil {
		return nil, err
	}
	v, err := o.Inner.Parse(s, ctx)
	if serr := s.Seek(saved); err == nil && serr != nil {
		err = serr
	}
	return v, err
}

func (o Offset) Build(v Value, s Stream, ctx *Context) error {
	saved := s.Tell()
	if err := s.Seek(o.Absolute); err != nil {
		return err
	}
	err := o.Inner.Build(v, s, ctx)
	if serr := s.Seek(saved); err == nil && serr != nil {
		err = serr
	}
	return err
}

func (o Offset) Sizeof(ctx *Context) (int, error) { return 0, nil }

// Tell parses and builds to the stream's current position, consuming no
// bytes (spec §4.9).
type Tell struct{}

func (Tell) Parse(s Stream, ctx *Context) (Value, error) { return s.Tell(), nil }
func (Tell) Build(v Value, s Stream, ctx *Context) error { return nil }
func (Tell) Sizeof(ctx *Context) (int, error)            { return 0, nil }
