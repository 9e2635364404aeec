package datatype

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spanStrings(s Span) []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = r.String()
	}
	return out
}

func TestSpan(t *testing.T) {
	s := Integers().Intersect(*IntRange(i64(0), i64(10)))
	assert.Equal(t, []string{"xsd:integer[0,10]"}, spanStrings(s))

	s = s.Minus(*IntRange(i64(3), i64(5)))
	assert.Equal(t, []string{"xsd:integer[0,2]", "xsd:integer[6,10]"}, spanStrings(s))

	s = s.Without(big.NewInt(0)).Minus(*IntRange(nil, i64(1)))
	assert.Equal(t, []string{"xsd:integer[2,2]", "xsd:integer[6,10]"}, spanStrings(s))

	s = s.Minus(*IntRange(i64(6), nil)).Without(big.NewInt(2))
	assert.True(t, s.Empty())

	open := Integers().Minus(*IntRange(i64(0), nil))
	assert.Equal(t, []string{"xsd:integer[*,-1]"}, spanStrings(open))
	assert.False(t, open.Empty())

	// an empty range removes nothing
	assert.Equal(t, spanStrings(Integers()), spanStrings(Integers().Minus(*IntRange(i64(5), i64(1)))))
}

func TestIntegerIntervals(t *testing.T) {
	integer, _ := Known(Integer)
	str, _ := Known(String)

	ivs, ok := IntegerIntervals(integer)
	require.True(t, ok)
	assert.Len(t, ivs, 1)

	ivs, ok = IntegerIntervals(str)
	require.True(t, ok)
	assert.Empty(t, ivs)

	u := NewUnion(integer, IntRange(i64(0), i64(2)), IntRange(i64(8), i64(9)))
	ivs, ok = IntegerIntervals(u)
	require.True(t, ok)
	s := Integers().Intersect(*IntRange(i64(0), i64(9)))
	for _, iv := range ivs {
		s = s.Minus(iv)
	}
	assert.Equal(t, []string{"xsd:integer[3,7]"}, spanStrings(s))

	v, ok := IntegerValue(Literal{Decimal, "4.0"})
	require.True(t, ok)
	assert.Equal(t, int64(4), v.Int64())
	_, ok = IntegerValue(Literal{String, "4"})
	assert.False(t, ok)
}
