package core

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualScalars(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"both null", Null(), Null(), true},
		{"null vs empty string", Null(), String(""), false},
		{"null vs zero", Int(0), Null(), false},
		{"ints equal", Int(42), Int(42), true},
		{"ints differ", Int(42), Int(43), false},
		{"int vs float", Int(1), Float(1), false},
		{"floats equal", Float(1.25), Float(1.25), true},
		{"nan", Float(math.NaN()), Float(math.NaN()), true},
		{"decimal canonical", Decimal("1.50"), Decimal("+01.5"), true},
		{"decimal differs", Decimal("1.5"), Decimal("1.51"), false},
		{"strings case sensitive", String("abc"), String("ABC"), false},
		{"bools", Bool(true), Bool(true), true},
		{"times by instant", Time(now), Time(now.In(time.FixedZone("X", 3600))), true},
		{"times differ", Time(now), Time(now.Add(time.Second)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, Equal(tt.a, tt.b))
			assert.Equal(t, tt.equal, Equal(tt.b, tt.a))
		})
	}
}

func TestEqualBytesElementWise(t *testing.T) {
	a := Bytes([]byte{0x01, 0x02, 0x03})
	b := Bytes([]byte{0x01, 0x02, 0x03})
	assert.True(t, Equal(a, b))

	assert.False(t, Equal(a, Bytes([]byte{0x01, 0x02})))
	assert.False(t, Equal(a, Bytes([]byte{0x01, 0x02, 0x04})))
	assert.True(t, Equal(Bytes([]byte{}), Bytes([]byte{})))
	assert.True(t, Bytes(nil).IsNull())
}

func TestEqualLists(t *testing.T) {
	a, err := List(KindInt, Int(1), Int(2), Null())
	require.NoError(t, err)
	b, err := List(KindInt, Int(1), Int(2), Null())
	require.NoError(t, err)
	assert.True(t, Equal(a, b))

	short, err := List(KindInt, Int(1), Int(2))
	require.NoError(t, err)
	assert.False(t, Equal(a, short))

	floats, err := List(KindFloat, Float(1), Float(2), Null())
	require.NoError(t, err)
	assert.False(t, Equal(a, floats))

	_, err = List(KindInt, String("x"))
	assert.Error(t, err)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "NULL", Null().String())
	assert.Equal(t, "-7", Int(-7).String())
	assert.Equal(t, "0.5", Float(0.5).String())
	assert.Equal(t, "0x0AFF", Bytes([]byte{0x0a, 0xff}).String())
	assert.Equal(t, "-0.25", Decimal("-000.2500").String())
	assert.Equal(t, "0", Decimal("-0.000").String())

	l, err := List(KindInt, Int(1), Null())
	require.NoError(t, err)
	assert.Equal(t, "[1,NULL]", l.String())
}
