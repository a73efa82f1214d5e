package structures

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressedRoundTrip(t *testing.T) {
	c := Compressed{Inner: Bytes{N: 5}}
	out, err := Build(c, []byte("hello"))
	require.NoError(t, err)
	require.Greater(t, len(out), 4)

	declared := binary.BigEndian.Uint32(out[:4])
	require.EqualValues(t, len(out)-4, declared, "length prefix must match the compressed payload size")

	v, err := Parse(c, out)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)
}

func TestCompressedSizeofIsUnknown(t *testing.T) {
	c := Compressed{Inner: Bytes{N: 5}}
	_, err := c.Sizeof(NewContext())
	require.ErrorIs(t, err, ErrSizeofUnknown)
}
