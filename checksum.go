package structures

import (
	"bytes"
	"encoding/binary"

	"github.com/dchest/siphash"
	"github.com/pkg/errors"
)

// Checksum declares a field whose bytes are computed from DataFn's
// output via HashFn (spec §4.10). Parse verifies the stored checksum
// against the recomputed one; build writes the recomputed checksum.
type Checksum struct {
	FieldConstruct Construct
	HashFn         func(data []byte) []byte
	DataFn         func(ctx *Context) ([]byte, error)
}

func (c Checksum) Parse(s Stream, ctx *Context) (Value, error) {
	got, err := c.FieldConstruct.Parse(s, ctx)
	if err != nil {
		return nil, err
	}
	gotBytes, ok := got.([]byte)
	if !ok {
		return nil, errors.WithStack(ErrChecksumMismatch)
	}
	data, err := c.DataFn(ctx)
	if err != nil {
		return nil, errors.WithStack(wrapSentinel(ErrChecksumMismatch, err))
	}
	if want := c.HashFn(data); !bytes.Equal(gotBytes, want) {
		return nil, errors.WithStack(ErrChecksumMismatch)
	}
	return got, nil
}

func (c Checksum) Build(v Value, s Stream, ctx *Context) error {
	data, err := c.DataFn(ctx)
	if err != nil {
		return errors.WithStack(wrapSentinel(ErrChecksumMismatch, err))
	}
	return c.FieldConstruct.Build(c.HashFn(data), s, ctx)
}

func (c Checksum) Sizeof(ctx *Context) (int, error) { return c.FieldConstruct.Sizeof(ctx) }
func (c Checksum) optionalBuild(ctx *Context) bool  { return true }

// SipHashChecksum returns a HashFn computing a keyed 64-bit SipHash over
// its input, big-endian encoded — one of the real hash functions
// available to Checksum callers alongside stdlib crc32/sha256 (see
// SPEC_FULL.md §D).
func SipHashChecksum(k0, k1 uint64) func([]byte) []byte {
	return func(data []byte) []byte {
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, siphash.Hash(k0, k1, data))
		return out
	}
}
