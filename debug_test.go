package structures

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebugRecordsEventsWhenTraceAttached(t *testing.T) {
	c := Debug{Label: "width", Inner: Integer{Width: 1}}
	ctx := NewContext()
	trace := WithDebug(ctx)

	s := NewReadStream([]byte{0x05})
	v, err := c.Parse(s, ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(5), v)

	require.Len(t, trace.Events, 1)
	ev := trace.Events[0]
	require.Equal(t, "width", ev.Label)
	require.EqualValues(t, 0, ev.EntryPos)
	require.EqualValues(t, 1, ev.ExitPos)
	require.NoError(t, ev.Err)
}

func TestDebugIsNoOpWithoutTrace(t *testing.T) {
	c := Debug{Label: "width", Inner: Integer{Width: 1}}
	v, err := Parse(c, []byte{0x05})
	require.NoError(t, err)
	require.Equal(t, uint64(5), v)
}

func TestDebugRecordsFailuresToo(t *testing.T) {
	c := Debug{Label: "const", Inner: Const{Literal: []byte("AB")}}
	ctx := NewContext()
	trace := WithDebug(ctx)

	_, err := c.Parse(NewReadStream([]byte("XY")), ctx)
	require.Error(t, err)
	require.Len(t, trace.Events, 1)
	require.Error(t, trace.Events[0].Err)
}

func TestDebugTracesCarryDistinctIDs(t *testing.T) {
	a := WithDebug(NewContext())
	b := WithDebug(NewContext())
	require.NotEqual(t, a.ID, b.ID)
}
