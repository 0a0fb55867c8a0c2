package value

import (
	"math"
	"math/big"
)

// ToNative converts v into the plain Go form kept by the variable store:
// int64 (or *big.Int when it does not fit), float64, string, bool, nil,
// []any and map[string]any. Complex numbers become their repr string, and
// non-finite floats become "inf", "-inf" or "nan" so the result always
// survives a JSON round trip. The second result is v's type tag.
func ToNative(v Value) (any, string) {
	return toNative(v), v.Type()
}

func toNative(v Value) any {
	switch n := v.(type) {
	case Int:
		if n.V.IsInt64() {
			return n.V.Int64()
		}
		return new(big.Int).Set(n.V)
	case Float:
		f := float64(n)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return FormatFloat(f)
		}
		return f
	case Complex:
		return n.String()
	case Bool:
		return bool(n)
	case Str:
		return string(n)
	case None:
		return nil
	case List:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = toNative(e)
		}
		return out
	case *Dict:
		out := make(map[string]any, len(n.Keys))
		for _, k := range n.Keys {
			out[k] = toNative(n.Items[k])
		}
		return out
	default:
		return v.String()
	}
}
