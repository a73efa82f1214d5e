package structures

import "github.com/pkg/errors"

// Stream is a seekable byte source/sink (spec §4.2). A single parse or
// build execution owns exactly one Stream; it is never shared across
// operations.
type Stream interface {
	Read(n int) ([]byte, error)
	Write(p []byte) error
	Tell() int64
	Seek(absolute int64) error
	Len() int64
}

// memStream is the engine's only Stream implementation. The spec's
// Non-goals exclude unbounded, non-seekable streaming input (§1), so every
// value the engine handles fits comfortably in memory.
type memStream struct {
	buf []byte
	pos int64
}

// NewReadStream wraps data for a parse call. The stream owns a private
// copy so the caller's slice can't be mutated out from under an in-flight
// parse.
func NewReadStream(data []byte) Stream {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &memStream{buf: cp}
}

// NewWriteStream returns an empty stream for a build call.
func NewWriteStream() Stream {
	return &memStream{}
}

func (s *memStream) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.WithStack(ErrUnexpectedEnd)
	}
	if s.pos+int64(n) > int64(len(s.buf)) {
		return nil, atOffset(ErrUnexpectedEnd, s.pos)
	}
	out := make([]byte, n)
	copy(out, s.buf[s.pos:s.pos+int64(n)])
	s.pos += int64(n)
	return out, nil
}

// Write fills any gap between the current end of the buffer and pos with
// zeros before appending p, matching the spec's "seeking past current end
// fills intervening bytes with zero when later written-over" rule (§4.2).
func (s *memStream) Write(p []byte) error {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:end], p)
	s.pos = end
	return nil
}

func (s *memStream) Tell() int64 { return s.pos }

func (s *memStream) Seek(offset int64) error {
	if offset < 0 {
		return errors.New("structures: negative seek offset")
	}
	s.pos = offset
	return nil
}

func (s *memStream) Len() int64 { return int64(len(s.buf)) }

func (s *memStream) bytes() []byte { return s.buf }

// windowStream restricts reads and writes to a fixed-size slice of a
// parent stream, implementing the "prefixed window" of §4.5: a child
// construct must fully consume it, and a write that would overflow it
// fails with LengthMismatch before it ever reaches the parent.
type windowStream struct {
	parent Stream
	base   int64
	size   int64
}

func newWindow(parent Stream, size int64) *windowStream {
	return &windowStream{parent: parent, base: parent.Tell(), size: size}
}

func (w *windowStream) remaining() int64 {
	return w.size - (w.parent.Tell() - w.base)
}

func (w *windowStream) Read(n int) ([]byte, error) {
	if int64(n) > w.remaining() {
		return nil, atOffset(ErrUnexpectedEnd, w.parent.Tell())
	}
	return w.parent.Read(n)
}

func (w *windowStream) Write(p []byte) error {
	if int64(len(p)) > w.remaining() {
		return errors.WithStack(ErrLengthMismatch)
	}
	return w.parent.Write(p)
}

func (w *windowStream) Tell() int64 { return w.parent.Tell() }

func (w *windowStream) Seek(offset int64) error { return w.parent.Seek(offset) }

func (w *windowStream) Len() int64 { return w.base + w.size }
