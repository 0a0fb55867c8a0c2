package value

import (
	"math"
	"math/big"
)

// Numeric ranks used to pick the result type of mixed arithmetic.
const (
	RankNone = iota
	RankInt
	RankFloat
	RankComplex
)

// Rank returns the numeric rank of v, or RankNone for non-numbers.
func Rank(v Value) int {
	switch v.(type) {
	case Int, Bool:
		return RankInt
	case Float:
		return RankFloat
	case Complex:
		return RankComplex
	default:
		return RankNone
	}
}

// AsBigInt returns the integer behind an Int or Bool.
func AsBigInt(v Value) (*big.Int, bool) {
	switch n := v.(type) {
	case Int:
		return n.V, true
	case Bool:
		if n {
			return big.NewInt(1), true
		}
		return big.NewInt(0), true
	default:
		return nil, false
	}
}

// ToFloat converts a real number to float64.
func ToFloat(v Value) (float64, error) {
	switch n := v.(type) {
	case Float:
		return float64(n), nil
	case Int, Bool:
		i, _ := AsBigInt(n)
		f, _ := new(big.Float).SetInt(i).Float64()
		if math.IsInf(f, 0) {
			return 0, Errorf("OverflowError", "int too large to convert to float")
		}
		return f, nil
	default:
		return 0, TypeErrorf("must be real number, not %s", v.Type())
	}
}

// ToComplex converts any number to complex128.
func ToComplex(v Value) (complex128, error) {
	if c, ok := v.(Complex); ok {
		return complex128(c), nil
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, TypeErrorf("must be a number, not %s", v.Type())
	}
	return complex(f, 0), nil
}

// FromFloat wraps a float result, rejecting overflow the way Python does.
func FromFloat(f float64) (Value, error) {
	if math.IsInf(f, 0) {
		return nil, Errorf("OverflowError", "math range error")
	}
	return Float(f), nil
}

// Truth reports Python truthiness.
func Truth(v Value) bool {
	switch n := v.(type) {
	case Bool:
		return bool(n)
	case Int:
		return n.V.Sign() != 0
	case Float:
		return n != 0
	case Complex:
		return n != 0
	case Str:
		return n != ""
	case None:
		return false
	case List:
		return len(n) > 0
	case *Dict:
		return len(n.Keys) > 0
	default:
		return true
	}
}
