package structures

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOffsetReadsElsewhereAndRestoresPosition(t *testing.T) {
	c := Offset{Absolute: 2, Inner: Integer{Width: 2, Endian: BigEndian}}
	s := NewReadStream([]byte{0, 0, 0xAA, 0xBB})
	v, err := c.Parse(s, NewContext())
	require.NoError(t, err)
	require.Equal(t, uint64(0xAABB), v)
	require.EqualValues(t, 0, s.Tell(), "Offset must restore the saved position")
}

func TestOffsetBuildWritesElsewhereAndRestoresPosition(t *testing.T) {
	c := Offset{Absolute: 2, Inner: Integer{Width: 2, Endian: BigEndian}}
	s := NewWriteStream()
	err := c.Build(uint64(0xAABB), s, NewContext())
	require.NoError(t, err)
	require.EqualValues(t, 0, s.Tell())
	require.Equal(t, []byte{0, 0, 0xAA, 0xBB}, s.(*memStream).bytes())
}

func TestOffsetSizeofIsZero(t *testing.T) {
	c := Offset{Absolute: 10, Inner: Integer{Width: 4}}
	n, err := c.Sizeof(NewContext())
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestTellReportsCurrentPosition(t *testing.T) {
	s := NewReadStream([]byte{1, 2, 3})
	_, err := s.Read(2)
	require.NoError(t, err)
	v, err := Tell{}.Parse(s, NewContext())
	require.NoError(t, err)
	require.EqualValues(t, 2, v)
}

func TestTellConsumesNoBytesOnBuild(t *testing.T) {
	s := NewWriteStream()
	require.NoError(t, Tell{}.Build(nil, s, NewContext()))
	require.EqualValues(t, 0, s.Tell())
}
