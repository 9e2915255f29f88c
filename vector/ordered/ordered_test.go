package ordered

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       float64
		mantissa uint64
		exponent int16
		sign     int8
	}{
		{"1.97", 1.97, 8872091265919877, -52, 1},
		{"one", 1, 1 << 52, -52, 1},
		{"two", 2, 1 << 52, -51, 1},
		{"minus one", -1, 1 << 52, -52, -1},
		{"zero", 0, 0, -1075, 1},
		{"negative zero", math.Copysign(0, -1), 0, -1075, -1},
		{"smallest subnormal", math.SmallestNonzeroFloat64, 2, -1075, 1},
		{"infinity", math.Inf(1), 1 << 52, 972, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, e, s := IntegerDecode(tt.in)
			assert.Equal(t, tt.mantissa, m)
			assert.Equal(t, tt.exponent, e)
			assert.Equal(t, tt.sign, s)
			assert.Equal(t, Key{Mantissa: tt.mantissa, Exponent: tt.exponent, Sign: tt.sign}, Encode(tt.in))
		})
	}
}

func TestKey_Float64(t *testing.T) {
	for _, v := range []float64{0, 1, 1.97, -3.25, 1e-310, math.SmallestNonzeroFloat64, math.MaxFloat64, math.Inf(1), math.Inf(-1)} {
		assert.Equal(t, math.Float64bits(v), math.Float64bits(Encode(v).Float64()), "value %v", v)
	}
}

func TestKey_CompareAscending(t *testing.T) {
	ascending := []float64{
		math.Inf(-1),
		-math.MaxFloat64,
		-1e10,
		-2,
		-1.97,
		-1,
		-2.2250738585072014e-308,
		-1e-310,
		-math.SmallestNonzeroFloat64,
		math.Copysign(0, -1),
		0,
		math.SmallestNonzeroFloat64,
		1e-310,
		2.2250738585072014e-308,
		1e-300,
		0.5,
		1,
		1.9,
		1.97,
		2,
		3,
		1e10,
		math.MaxFloat64,
		math.Inf(1),
	}
	for i := 1; i < len(ascending); i++ {
		a, b := Encode(ascending[i-1]), Encode(ascending[i])
		assert.True(t, a.Less(b), "%v should order before %v", ascending[i-1], ascending[i])
		assert.Equal(t, 1, b.Compare(a))
	}
}

// A larger mantissa with a smaller exponent must still order first.
func TestKey_ExponentDominatesMantissa(t *testing.T) {
	assert.Equal(t, -1, Encode(1.9).Compare(Encode(2.0)))
	assert.Equal(t, -1, Encode(0.99).Compare(Encode(1.0)))
	assert.Equal(t, 1, Encode(-1.9).Compare(Encode(-2.0)))
}

func TestKey_MatchesNumericOrder(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	finite := func(negative bool) float64 {
		for {
			bits := r.Uint64() &^ (1 << 63)
			if negative {
				bits |= 1 << 63
			}
			v := math.Float64frombits(bits)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return v
			}
		}
	}
	for i := 0; i < 20000; i++ {
		x, y := finite(false), finite(r.IntN(4) == 0)
		if r.IntN(2) == 0 {
			// distances of realistic magnitude
			x, y = r.Float64()*100, r.Float64()*100
		}
		want := 0
		switch {
		case x < y:
			want = -1
		case x > y:
			want = 1
		}
		require.Equal(t, want, Encode(x).Compare(Encode(y)), "compare(%v, %v)", x, y)
	}
}

func TestKey_SortMatchesFloatSort(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	values := make([]float64, 500)
	for i := range values {
		values[i] = r.NormFloat64() * math.Pow(10, float64(r.IntN(20)-10))
	}
	keys := make([]Key, len(values))
	for i, v := range values {
		keys[i] = Encode(v)
	}
	slices.SortFunc(keys, Key.Compare)
	slices.Sort(values)
	for i := range values {
		assert.Equal(t, values[i], keys[i].Float64())
	}
}

func TestKey_EqualityFollowsBits(t *testing.T) {
	negZero := math.Copysign(0, -1)
	assert.NotEqual(t, Encode(0), Encode(negZero))
	assert.Equal(t, -1, Encode(negZero).Compare(Encode(0)))
	x, y := 0.1, 0.2
	sum := x + y
	assert.Equal(t, Encode(sum), Encode(x+y))
	assert.NotEqual(t, Encode(sum), Encode(0.3))
	assert.Equal(t, 1, Encode(sum).Compare(Encode(0.3)))

	seen := map[Key]string{}
	seen[Encode(1.5)] = "a"
	seen[Encode(1.5)] = "b"
	seen[Encode(negZero)] = "c"
	seen[Encode(0)] = "d"
	assert.Len(t, seen, 3)
	assert.Equal(t, "b", seen[Encode(1.5)])
}
