package structures

import (
	"time"

	"github.com/google/uuid"
)

// DebugEvent records one construct's entry/exit position and duration
// (spec §4.11).
type DebugEvent struct {
	Label    string
	EntryPos int64
	ExitPos  int64
	Duration time.Duration
	Err      error
}

// DebugTrace accumulates DebugEvents for the calls made with the context
// WithDebug attached it to, tagged with a UUID so events from concurrent
// calls —
// constructs are immutable and freely shareable across goroutines, spec
// §5 — can be told apart when their events are merged for inspection.
type DebugTrace struct {
	ID     uuid.UUID
	Events []DebugEvent
}

// NewDebugTrace returns an empty, freshly tagged trace.
func NewDebugTrace() *DebugTrace {
	return &DebugTrace{ID: uuid.New()}
}

func (t *DebugTrace) record(ev DebugEvent) {
	t.Events = append(t.Events, ev)
}

const debugTraceKey = "_debug_trace"

// WithDebug attaches a fresh DebugTrace to ctx's root scope so every Debug
// construct reachable from a call using ctx records into it.
func WithDebug(ctx *Context) *DebugTrace {
	trace := NewDebugTrace()
	ctx.root.Set(debugTraceKey, trace)
	return trace
}

func getTrace(ctx *Context) *DebugTrace {
	v, ok := ctx.Get(debugTraceKey)
	if !ok {
		return nil
	}
	t, _ := v.(*DebugTrace)
	return t
}

// Debug delegates to Inner unmodified; when the context carries a
// DebugTrace (via WithDebug) it records an entry/exit position and
// duration per call (spec §4.11). It never affects semantics.
type Debug struct {
	Label string
	Inner Construct
}

func (d Debug) Parse(s Stream, ctx *Context) (Value, error) {
	trace := getTrace(ctx)
	entry := s.Tell()
	start := time.Now()
	v, err := d.Inner.Parse(s, ctx)
	if trace != nil {
		trace.record(DebugEvent{Label: d.Label, EntryPos: entry, ExitPos: s.Tell(), Duration: time.Since(start), Err: err})
	}
	return v, err
}

func (d Debug) Build(v Value, s Stream, ctx *Context) error {
	trace := getTrace(ctx)
	entry := s.Tell()
	start := time.Now()
	err := d.Inner.Build(v, s, ctx)
	if trace != nil {
		trace.record(DebugEvent{Label: d.Label, EntryPos: entry, ExitPos: s.Tell(), Duration: time.Since(start), Err: err})
	}
	return err
}

func (d Debug) Sizeof(ctx *Context) (int, error) { return d.Inner.Sizeof(ctx) }
func (d Debug) embedded() bool                   { return isEmbedded(d.Inner) }

// computedBuild delegates to Inner when it's itself a computedSource, so a
// Computed traced by Debug still overrides the caller's value (spec §4.4).
func (d Debug) computedBuild(ctx *Context) (Value, bool, error) {
	if cs, ok := d.Inner.(computedSource); ok {
		return cs.computedBuild(ctx)
	}
	return nil, false, nil
}
