package vm

import "math"

// ---------------------------------------------------------------------------
// Single-precision floats travel as raw IEEE-754 bit patterns in words.
// ---------------------------------------------------------------------------

func toF(v uint32) float32   { return math.Float32frombits(v) }
func fromF(f float32) uint32 { return math.Float32bits(f) }

// f64op applies a float64 function and rounds back to single precision.
func f64op(fn func(float64) float64, v uint32) uint32 {
	return fromF(float32(fn(float64(toF(v)))))
}

// ftonum converts to a signed integer, saturating NaN, infinities and out
// of range values by sign.
func ftonum(v uint32, round func(float64) float64) uint32 {
	f := float64(toF(v))
	neg := v&0x80000000 != 0
	if math.IsNaN(f) || math.IsInf(f, 0) {
		if neg {
			return 0x80000000
		}
		return 0x7FFFFFFF
	}
	r := round(f)
	switch {
	case r > 2147483647:
		return 0x7FFFFFFF
	case r < -2147483648:
		return 0x80000000
	}
	return uint32(int32(r))
}

func ftonumz(v uint32) uint32 { return ftonum(v, math.Trunc) }
func ftonumn(v uint32) uint32 { return ftonum(v, math.Round) }

// fmod returns the remainder and quotient of a/b. The remainder takes the
// sign of a; a zero quotient carries the sign of a XOR b.
func fmod(a, b uint32) (rem, quo uint32) {
	fa, fb := float64(toF(a)), float64(toF(b))
	r := float32(math.Mod(fa, fb))
	rem = fromF(r)
	if math.IsNaN(float64(r)) {
		return rem, rem
	}
	q := float32((fa - float64(r)) / fb)
	quo = fromF(q)
	if q == 0 {
		quo = (a ^ b) & 0x80000000
	}
	return rem, quo
}

func fpow(a, b uint32) uint32 {
	return fromF(float32(math.Pow(float64(toF(a)), float64(toF(b)))))
}

func fatan2(a, b uint32) uint32 {
	return fromF(float32(math.Atan2(float64(toF(a)), float64(toF(b)))))
}

// floatEqual reports |b - a| <= |tol|. NaN is never equal to anything and
// an infinite tolerance matches any two numbers.
func floatEqual(a, b, tol uint32) bool {
	fa, fb, ft := toF(a), toF(b), toF(tol)
	if isNaNBits(a) || isNaNBits(b) || isNaNBits(tol) {
		return false
	}
	if isInfBits(tol) || fa == fb {
		return true
	}
	d := fb - fa
	return math.Abs(float64(d)) <= math.Abs(float64(ft))
}

func isNaNBits(v uint32) bool { return math.IsNaN(float64(toF(v))) }
func isInfBits(v uint32) bool { return math.IsInf(float64(toF(v)), 0) }
