// Package ordered turns float64 distances into totally ordered, comparable
// keys. A Key is derived from the IEEE-754 bit pattern, so two keys are equal
// exactly when their source floats share a bit pattern (+0 and -0 differ),
// and Compare orders keys the way the source values order numerically.
// Ordering of NaN keys is defined but meaningless.
package ordered

import (
	"cmp"
	"math"
)

const (
	mantissaBits = 52
	exponentBias = 1023
	mantissaMask = 1<<mantissaBits - 1
	implicitBit  = 1 << mantissaBits
)

// Key is the (mantissa, exponent, sign) decomposition of a float64 such that
// value = Sign * Mantissa * 2^Exponent. It is comparable and can be used as a
// map key.
type Key struct {
	Mantissa uint64
	Exponent int16
	Sign     int8
}

// Encode decomposes x into its Key.
func Encode(x float64) Key {
	m, e, s := IntegerDecode(x)
	return Key{Mantissa: m, Exponent: e, Sign: s}
}

// IntegerDecode splits x into an integer mantissa, an unbiased exponent and
// a sign of +1 or -1. Normal numbers get their implicit leading bit;
// subnormals are shifted left by one instead.
func IntegerDecode(x float64) (uint64, int16, int8) {
	bits := math.Float64bits(x)
	sign := int8(1)
	if bits>>63 != 0 {
		sign = -1
	}
	exponent := int16((bits >> mantissaBits) & 0x7ff)
	var mantissa uint64
	if exponent == 0 {
		mantissa = (bits & mantissaMask) << 1
	} else {
		mantissa = (bits & mantissaMask) | implicitBit
	}
	exponent -= exponentBias + mantissaBits
	return mantissa, exponent, sign
}

// Float64 reassembles the value the key was encoded from. NaN payloads do not
// survive the trip; they come back as infinities.
func (k Key) Float64() float64 {
	v := math.Ldexp(float64(k.Mantissa), int(k.Exponent))
	if k.Sign < 0 {
		return -v
	}
	return v
}

// Compare returns -1, 0 or +1 as k orders before, equal to or after o.
// Negative keys order before positive ones; among negatives the larger
// magnitude comes first.
func (k Key) Compare(o Key) int {
	if k.Sign != o.Sign {
		return cmp.Compare(k.Sign, o.Sign)
	}
	c := compareMagnitude(k, o)
	if k.Sign < 0 {
		return -c
	}
	return c
}

// Less reports whether k orders strictly before o.
func (k Key) Less(o Key) bool {
	return k.Compare(o) < 0
}

// compareMagnitude relies on normal mantissas lying in [2^52, 2^53) and all
// subnormals sharing the smallest exponent, so the exponent decides first.
func compareMagnitude(a, b Key) int {
	if c := cmp.Compare(a.Exponent, b.Exponent); c != 0 {
		return c
	}
	return cmp.Compare(a.Mantissa, b.Mantissa)
}
