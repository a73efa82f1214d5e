package structures

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func checksummedStruct(t *testing.T) *Struct {
	t.Helper()
	st, err := NewStruct(
		Field{Name: "payload", Construct: Bytes{N: 5}},
		Field{Name: "checksum", Construct: Checksum{
			FieldConstruct: Bytes{N: 8},
			HashFn:         SipHashChecksum(1, 2),
			DataFn: func(ctx *Context) ([]byte, error) {
				p, _ := ctx.Get("payload")
				return p.([]byte), nil
			},
		}},
	)
	require.NoError(t, err)
	return st
}

func TestChecksumRoundTrip(t *testing.T) {
	st := checksummedStruct(t)
	rec := NewRecord()
	rec.Set("payload", []byte("hello"))
	out, err := Build(st, rec)
	require.NoError(t, err)
	require.Len(t, out, 13)

	v, err := Parse(st, out)
	require.NoError(t, err)
	parsed := v.(*Record)
	payload, _ := parsed.Get("payload")
	require.Equal(t, []byte("hello"), payload)
}

func TestChecksumDetectsCorruption(t *testing.T) {
	st := checksummedStruct(t)
	rec := NewRecord()
	rec.Set("payload", []byte("hello"))
	out, err := Build(st, rec)
	require.NoError(t, err)

	corrupted := append([]byte(nil), out...)
	corrupted[0] ^= 0xFF
	_, err = Parse(st, corrupted)
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestSipHashChecksumIsDeterministic(t *testing.T) {
	hash := SipHashChecksum(42, 99)
	a := hash([]byte("data"))
	b := hash([]byte("data"))
	require.Equal(t, a, b)
	require.Len(t, a, 8)
}
