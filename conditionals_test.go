package structures

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIfSkipsWhenPredicateFalse(t *testing.T) {
	c := If{Predicate: func(ctx *Context) bool { return false }, Inner: Integer{Width: 1}}
	v, err := Parse(c, []byte{0xFF})
	require.NoError(t, err)
	require.Nil(t, v)

	out, err := Build(c, nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestIfDelegatesWhenPredicateTrue(t *testing.T) {
	c := If{Predicate: func(ctx *Context) bool { return true }, Inner: Integer{Width: 1}}
	v, err := Parse(c, []byte{0x2A})
	require.NoError(t, err)
	require.Equal(t, uint64(0x2A), v)
}

func TestSwitchDispatchesOnSelector(t *testing.T) {
	c := Switch{
		Selector: func(ctx *Context) Value { v, _ := ctx.Get("tag"); return v },
		Cases: []Case{
			{When: "a", Construct: Integer{Width: 1}},
			{When: "b", Construct: Flag{}},
		},
	}
	ctx := NewContextFrom(map[string]Value{"tag": "b"})
	v, err := c.Parse(NewReadStream([]byte{0x01}), ctx)
	require.NoError(t, err)
	require.Equal(t, true, v)
}

func TestSwitchNoMatchWithoutDefault(t *testing.T) {
	c := Switch{
		Selector: func(ctx *Context) Value { return "unhandled" },
		Cases:    []Case{{When: "a", Construct: Pass{}}},
	}
	_, err := c.Parse(NewReadStream(nil), NewContext())
	require.ErrorIs(t, err, ErrSwitchNoMatch)
}

func TestEnumRoundTrip(t *testing.T) {
	e := NewEnum(Integer{Width: 1, Endian: BigEndian}, map[Value]string{
		uint64(0): "red",
		uint64(1): "green",
		uint64(2): "blue",
	})
	v, err := Parse(e, []byte{1})
	require.NoError(t, err)
	require.Equal(t, "green", v)

	out, err := Build(e, "blue")
	require.NoError(t, err)
	require.Equal(t, []byte{2}, out)

	_, err = Parse(e, []byte{9})
	require.ErrorIs(t, err, ErrUnknownEnumValue)

	_, err = Build(e, "purple")
	require.ErrorIs(t, err, ErrUnknownEnumLabel)
}

func TestRaiseAlwaysFails(t *testing.T) {
	c := Raise{Err: ErrSwitchNoMatch, Message: func(ctx *Context) string { return "unsupported variant" }}
	_, err := Parse(c, nil)
	require.ErrorIs(t, err, ErrSwitchNoMatch)
}

// The following builds a minimal RESP-like value grammar to exercise
// Struct, Switch, Adapted and self-reference together (spec §8 scenarios
// 2-4): a type byte selects among a simple string ('+'), a bulk string
// ('$', possibly null), and an array of further values ('*').

func atoiLine() Construct {
	return Adapted{
		Inner: Line{Encoding: UTF8},
		AfterParse: func(v Value) (Value, error) {
			return strconv.Atoi(v.(string))
		},
		BeforeBuild: func(v Value) (Value, error) {
			return strconv.Itoa(v.(int)), nil
		},
	}
}

func newBulkCase(t *testing.T) *Struct {
	t.Helper()
	st, err := NewStruct(
		Field{Name: "length", Construct: atoiLine()},
		Field{Name: "value", Construct: Switch{
			Selector: func(ctx *Context) Value {
				n, _ := ctx.Get("length")
				if n.(int) < 0 {
					return "null"
				}
				return "data"
			},
			Cases: []Case{
				{When: "null", Construct: Pass{}},
				{When: "data", Construct: Contextual{Make: func(ctx *Context) (Construct, error) {
					n, _ := ctx.Get("length")
					inner, err := NewStruct(
						Field{Name: "data", Construct: Bytes{N: n.(int)}},
						Field{Name: "_crlf", Construct: Const{Literal: crlf}},
					)
					if err != nil {
						return nil, err
					}
					return Adapted{
						Inner: inner,
						AfterParse: func(v Value) (Value, error) {
							rec := v.(*Record)
							d, _ := rec.Get("data")
							return d, nil
						},
						BeforeBuild: func(v Value) (Value, error) {
							rec := NewRecord()
							rec.Set("data", v)
							return rec, nil
						},
					}, nil
				}}},
			},
		}},
	)
	require.NoError(t, err)
	return st
}

func newRespValue(t *testing.T) *Struct {
	t.Helper()
	bulkCase := newBulkCase(t)

	var respValue *Struct
	arrayCase, err := NewStruct(
		Field{Name: "count", Construct: atoiLine()},
		Field{Name: "items", Construct: Contextual{Make: func(ctx *Context) (Construct, error) {
			n, _ := ctx.Get("count")
			return RepeatExactly{
				Inner: Contextual{Make: func(ctx *Context) (Construct, error) { return respValue, nil }},
				N:     n.(int),
			}, nil
		}}},
	)
	require.NoError(t, err)

	respValue, err = NewStruct(
		Field{Name: "type", Construct: Bytes{N: 1}},
		Field{Name: "value", Construct: Switch{
			Selector: func(ctx *Context) Value { tb, _ := ctx.Get("type"); return string(tb.([]byte)) },
			Cases: []Case{
				{When: "+", Construct: Line{Encoding: UTF8}},
				{When: "$", Construct: bulkCase},
				{When: "*", Construct: arrayCase},
			},
		}},
	)
	require.NoError(t, err)
	return respValue
}

func TestRespSimpleString(t *testing.T) {
	// spec §8 scenario 2
	respValue := newRespValue(t)
	wire := []byte("+OK\r\n")
	v, err := Parse(respValue, wire)
	require.NoError(t, err)
	rec := v.(*Record)
	val, _ := rec.Get("value")
	require.Equal(t, "OK", val)

	out, err := Build(respValue, rec)
	require.NoError(t, err)
	require.Equal(t, wire, out)
}

func TestRespBulkString(t *testing.T) {
	// spec §8 scenario 3
	respValue := newRespValue(t)
	wire := []byte("$3\r\nfoo\r\n")
	v, err := Parse(respValue, wire)
	require.NoError(t, err)
	rec := v.(*Record)
	bulk := rec.mustValue(t, "value")
	length, _ := bulk.Get("length")
	require.Equal(t, 3, length)
	data, _ := bulk.Get("value")
	require.Equal(t, []byte("foo"), data)

	out, err := Build(respValue, rec)
	require.NoError(t, err)
	require.Equal(t, wire, out)
}

func TestRespBulkStringNull(t *testing.T) {
	respValue := newRespValue(t)
	v, err := Parse(respValue, []byte("$-1\r\n"))
	require.NoError(t, err)
	rec := v.(*Record)
	bulk := rec.mustValue(t, "value")
	length, _ := bulk.Get("length")
	require.Equal(t, -1, length)
}

func TestRespRecursiveArray(t *testing.T) {
	// spec §8 scenario 4: a mixed-type array, parsed via a self-referencing
	// construct resolved late through Contextual.
	respValue := newRespValue(t)
	wire := []byte("*2\r\n+OK\r\n$3\r\nfoo\r\n")
	v, err := Parse(respValue, wire)
	require.NoError(t, err)
	rec := v.(*Record)
	arr := rec.mustValue(t, "value")
	count, _ := arr.Get("count")
	require.Equal(t, 2, count)
	items, _ := arr.Get("items")
	elems := items.([]Value)
	require.Len(t, elems, 2)

	first := elems[0].(*Record)
	fv, _ := first.Get("value")
	require.Equal(t, "OK", fv)

	second := elems[1].(*Record)
	bulk := second.mustValue(t, "value")
	data, _ := bulk.Get("value")
	require.Equal(t, []byte("foo"), data)

	out, err := Build(respValue, rec)
	require.NoError(t, err)
	require.Equal(t, wire, out)
}

// mustValue fetches a *Record-valued field, failing the test if it isn't one.
func (r *Record) mustValue(t *testing.T, name string) *Record {
	t.Helper()
	v, ok := r.Get(name)
	require.True(t, ok)
	rec, ok := v.(*Record)
	require.True(t, ok)
	return rec
}
