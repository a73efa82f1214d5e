package structures

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitFieldsPackUnpackMSBFirst(t *testing.T) {
	// spec §8 scenario 6
	bf, err := NewBitFields(BitField{Name: "a", Width: 3}, BitField{Name: "b", Width: 5})
	require.NoError(t, err)

	v, err := Parse(bf, []byte{0xA5})
	require.NoError(t, err)
	rec := v.(*Record)
	a, _ := rec.Get("a")
	b, _ := rec.Get("b")
	require.Equal(t, uint64(5), a)
	require.Equal(t, uint64(5), b)

	rec2 := NewRecord()
	rec2.Set("a", uint64(5))
	rec2.Set("b", uint64(5))
	out, err := Build(bf, rec2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xA5}, out)
}

func TestBitFieldsRejectsNonByteAlignedWidth(t *testing.T) {
	_, err := NewBitFields(BitField{Name: "a", Width: 3})
	require.Error(t, err)
}

func TestBitFieldsBuildOutOfRange(t *testing.T) {
	bf, err := NewBitFields(BitField{Name: "a", Width: 3}, BitField{Name: "b", Width: 5})
	require.NoError(t, err)

	rec := NewRecord()
	rec.Set("a", uint64(8)) // only 3 bits available, max is 7
	rec.Set("b", uint64(0))
	_, err = Build(bf, rec)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestBitFieldsSizeofIsByteWidth(t *testing.T) {
	bf, err := NewBitFields(BitField{Name: "a", Width: 3}, BitField{Name: "b", Width: 13})
	require.NoError(t, err)
	n, err := bf.Sizeof(NewContext())
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
