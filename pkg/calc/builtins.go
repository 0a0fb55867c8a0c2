package calc

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/wildfunctions/calcblocks/pkg/expr"
	"github.com/wildfunctions/calcblocks/pkg/value"
)

type builtinFunc func(args []value.Value) (value.Value, error)

var builtins = map[string]builtinFunc{}

func register(name string, fn builtinFunc) {
	builtins[name] = fn
}

func init() {
	register("sqrt", real1("sqrt", func(x float64) (float64, bool) { return math.Sqrt(x), x >= 0 }))
	register("exp", real1("exp", func(x float64) (float64, bool) { return math.Exp(x), true }))
	register("sin", real1("sin", func(x float64) (float64, bool) { return math.Sin(x), !math.IsInf(x, 0) }))
	register("cos", real1("cos", func(x float64) (float64, bool) { return math.Cos(x), !math.IsInf(x, 0) }))
	register("tan", real1("tan", func(x float64) (float64, bool) { return math.Tan(x), !math.IsInf(x, 0) }))
	register("cot", real1("cot", func(x float64) (float64, bool) { t := math.Tan(x); return 1 / t, t != 0 && !math.IsInf(x, 0) }))
	register("sec", real1("sec", func(x float64) (float64, bool) { c := math.Cos(x); return 1 / c, c != 0 && !math.IsInf(x, 0) }))
	register("csc", real1("csc", func(x float64) (float64, bool) { s := math.Sin(x); return 1 / s, s != 0 && !math.IsInf(x, 0) }))
	register("asin", real1("asin", func(x float64) (float64, bool) { return math.Asin(x), x >= -1 && x <= 1 }))
	register("acos", real1("acos", func(x float64) (float64, bool) { return math.Acos(x), x >= -1 && x <= 1 }))
	register("atan", real1("atan", func(x float64) (float64, bool) { return math.Atan(x), true }))
	register("sinh", real1("sinh", func(x float64) (float64, bool) { return math.Sinh(x), true }))
	register("cosh", real1("cosh", func(x float64) (float64, bool) { return math.Cosh(x), true }))
	register("tanh", real1("tanh", func(x float64) (float64, bool) { return math.Tanh(x), true }))
	register("log10", real1("log10", func(x float64) (float64, bool) { return math.Log10(x), x > 0 }))
	register("log2", real1("log2", func(x float64) (float64, bool) { return math.Log2(x), x > 0 }))
	register("atan2", builtinAtan2)
	register("log", builtinLog)
	register("abs", builtinAbs)
	register("sum", builtinSum)
	register("max", extremum("max", expr.OpGt))
	register("min", extremum("min", expr.OpLt))
	register("round", builtinRound)
	register("pow", builtinPow)
	register("int", builtinInt)
	register("float", builtinFloat)
	register("complex", builtinComplex)
}

// NewNamespace returns a namespace holding the built-in functions and the
// constants pi, e and j.
func NewNamespace() value.Namespace {
	ns := value.Namespace{
		"pi": value.Float(math.Pi),
		"e":  value.Float(math.E),
		"j":  value.Complex(1i),
	}
	for name, fn := range builtins {
		ns[name] = &value.Builtin{Name: name, Fn: fn}
	}
	return ns
}

// IsBuiltin reports whether name is provided by NewNamespace.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok || name == "pi" || name == "e" || name == "j"
}

func arity(name string, args []value.Value, lo, hi int) error {
	n := len(args)
	if n >= lo && n <= hi {
		return nil
	}
	switch {
	case lo == hi && lo == 1:
		return value.TypeErrorf("%s() takes exactly one argument (%d given)", name, n)
	case lo == hi:
		return value.TypeErrorf("%s expected %d arguments, got %d", name, lo, n)
	case n < lo:
		return value.TypeErrorf("%s expected at least %d argument, got %d", name, lo, n)
	default:
		return value.TypeErrorf("%s expected at most %d arguments, got %d", name, hi, n)
	}
}

// real1 adapts a float64 function of one argument. ok false reports a
// domain error; an infinite result from finite input is an overflow.
func real1(name string, fn func(float64) (float64, bool)) builtinFunc {
	return func(args []value.Value) (value.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		x, err := value.ToFloat(args[0])
		if err != nil {
			return nil, err
		}
		r, ok := fn(x)
		if !ok && !math.IsNaN(x) {
			return nil, value.Errorf("ValueError", "math domain error")
		}
		if math.IsInf(r, 0) && !math.IsInf(x, 0) {
			return nil, value.Errorf("OverflowError", "math range error")
		}
		return value.Float(r), nil
	}
}

func builtinAtan2(args []value.Value) (value.Value, error) {
	if err := arity("atan2", args, 2, 2); err != nil {
		return nil, err
	}
	y, err := value.ToFloat(args[0])
	if err != nil {
		return nil, err
	}
	x, err := value.ToFloat(args[1])
	if err != nil {
		return nil, err
	}
	return value.Float(math.Atan2(y, x)), nil
}

// builtinSum adds up a list, starting from 0 or the optional start value.
func builtinSum(args []value.Value) (value.Value, error) {
	if err := arity("sum", args, 1, 2); err != nil {
		return nil, err
	}
	items, ok := args[0].(value.List)
	if !ok {
		return nil, value.TypeErrorf("'%s' object is not iterable", args[0].Type())
	}
	var total value.Value = value.NewInt(0)
	if len(args) == 2 {
		if _, ok := args[1].(value.Str); ok {
			return nil, value.TypeErrorf("sum() can't sum strings [use ''.join(seq) instead]")
		}
		total = args[1]
	}
	for _, v := range items {
		var err error
		if total, err = expr.Arith(expr.OpAdd, total, v); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func builtinLog(args []value.Value) (value.Value, error) {
	if err := arity("log", args, 1, 2); err != nil {
		return nil, err
	}
	x, err := logOf(args[0])
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return value.Float(x), nil
	}
	b, err := logOf(args[1])
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, value.Errorf("ZeroDivisionError", "float division by zero")
	}
	return value.Float(x / b), nil
}

// logOf is the natural log of a positive number. Ints too large for a
// float64 are handled through their bit length.
func logOf(v value.Value) (float64, error) {
	if i, ok := value.AsBigInt(v); ok {
		if i.Sign() <= 0 {
			return 0, value.Errorf("ValueError", "math domain error")
		}
		if n := i.BitLen(); n > 1000 {
			top := new(big.Int).Rsh(i, uint(n-64))
			f, _ := new(big.Float).SetInt(top).Float64()
			return math.Log(f) + float64(n-64)*math.Ln2, nil
		}
	}
	x, err := value.ToFloat(v)
	if err != nil {
		return 0, err
	}
	if x <= 0 {
		return 0, value.Errorf("ValueError", "math domain error")
	}
	return math.Log(x), nil
}

func builtinAbs(args []value.Value) (value.Value, error) {
	if err := arity("abs", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case value.Int, value.Bool:
		i, _ := value.AsBigInt(v)
		return value.Int{V: new(big.Int).Abs(i)}, nil
	case value.Float:
		return value.Float(math.Abs(float64(v))), nil
	case value.Complex:
		return value.Float(math.Hypot(real(v), imag(v))), nil
	default:
		return nil, value.TypeErrorf("bad operand type for abs(): '%s'", v.Type())
	}
}

// extremum builds max or min: over a single list argument, or over the
// arguments themselves. The first of equal candidates wins.
func extremum(name string, better expr.CompareOp) builtinFunc {
	return func(args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return nil, value.TypeErrorf("%s expected at least 1 argument, got 0", name)
		}
		items := args
		if len(args) == 1 {
			l, ok := args[0].(value.List)
			if !ok {
				return nil, value.TypeErrorf("'%s' object is not iterable", args[0].Type())
			}
			if len(l) == 0 {
				return nil, value.Errorf("ValueError", "%s() arg is an empty sequence", name)
			}
			items = l
		}
		best := items[0]
		for _, v := range items[1:] {
			ok, err := expr.Compare(better, v, best)
			if err != nil {
				return nil, err
			}
			if ok {
				best = v
			}
		}
		return best, nil
	}
}

func builtinRound(args []value.Value) (value.Value, error) {
	if err := arity("round", args, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 2 {
		if _, ok := args[1].(value.None); ok {
			args = args[:1]
		}
	}
	switch v := args[0].(type) {
	case value.Int, value.Bool:
		i, _ := value.AsBigInt(v)
		if len(args) == 1 {
			return value.Int{V: new(big.Int).Set(i)}, nil
		}
		n, err := ndigits(args[1])
		if err != nil {
			return nil, err
		}
		return value.Int{V: roundInt(i, n)}, nil
	case value.Float:
		f := float64(v)
		if len(args) == 1 {
			return floatToInt(math.RoundToEven(f))
		}
		n, err := ndigits(args[1])
		if err != nil {
			return nil, err
		}
		return value.Float(roundFloat(f, n)), nil
	default:
		return nil, value.TypeErrorf("type %s doesn't define __round__ method", v.Type())
	}
}

func ndigits(v value.Value) (int, error) {
	i, ok := v.(value.Int)
	if !ok {
		return 0, value.TypeErrorf("'%s' object cannot be interpreted as an integer", v.Type())
	}
	if !i.V.IsInt64() || i.V.Int64() > 400 || i.V.Int64() < -400 {
		if i.V.Sign() > 0 {
			return 400, nil
		}
		return -400, nil
	}
	return int(i.V.Int64()), nil
}

// roundInt rounds i to a multiple of 10**-n, half to even.
func roundInt(i *big.Int, n int) *big.Int {
	if n >= 0 {
		return new(big.Int).Set(i)
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n)), nil)
	q, r := new(big.Int).DivMod(i, unit, new(big.Int))
	twice := new(big.Int).Lsh(r, 1)
	if c := twice.Cmp(unit); c > 0 || (c == 0 && q.Bit(0) == 1) {
		q.Add(q, big.NewInt(1))
	}
	return q.Mul(q, unit)
}

// roundFloat rounds f to n decimal places using the exact binary value, so
// round(2.675, 2) is 2.67 as in Python.
func roundFloat(f float64, n int) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) || f == 0 {
		return f
	}
	if n >= 0 {
		r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', n, 64), 64)
		if err != nil {
			return f
		}
		return r
	}
	unit := math.Pow(10, float64(-n))
	return math.RoundToEven(f/unit) * unit
}

func floatToInt(f float64) (value.Value, error) {
	switch {
	case math.IsInf(f, 0):
		return nil, value.Errorf("OverflowError", "cannot convert float infinity to integer")
	case math.IsNaN(f):
		return nil, value.Errorf("ValueError", "cannot convert float NaN to integer")
	}
	i, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return value.Int{V: i}, nil
}

func builtinPow(args []value.Value) (value.Value, error) {
	if err := arity("pow", args, 2, 3); err != nil {
		return nil, err
	}
	if len(args) == 2 {
		return expr.Arith(expr.OpPow, args[0], args[1])
	}
	if _, ok := args[2].(value.None); ok {
		return expr.Arith(expr.OpPow, args[0], args[1])
	}
	x, okx := value.AsBigInt(args[0])
	y, oky := value.AsBigInt(args[1])
	m, okm := value.AsBigInt(args[2])
	if !okx || !oky || !okm {
		return nil, value.TypeErrorf("pow() 3rd argument not allowed unless all arguments are integers")
	}
	if m.Sign() == 0 {
		return nil, value.Errorf("ValueError", "pow() 3rd argument cannot be 0")
	}
	mod := new(big.Int).Abs(m)
	base := new(big.Int).Mod(x, mod)
	exp := new(big.Int).Set(y)
	if exp.Sign() < 0 {
		if base.ModInverse(base, mod) == nil {
			return nil, value.Errorf("ValueError", "base is not invertible for the given modulus")
		}
		exp.Neg(exp)
	}
	r := new(big.Int).Exp(base, exp, mod)
	if m.Sign() < 0 && r.Sign() != 0 {
		r.Add(r, m)
	}
	return value.Int{V: r}, nil
}

func builtinInt(args []value.Value) (value.Value, error) {
	if err := arity("int", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return value.NewInt(0), nil
	}
	switch v := args[0].(type) {
	case value.Int, value.Bool:
		i, _ := value.AsBigInt(v)
		return value.Int{V: new(big.Int).Set(i)}, nil
	case value.Float:
		return floatToInt(float64(v))
	case value.Str:
		s := strings.TrimSpace(string(v))
		i, ok := new(big.Int).SetString(strings.ReplaceAll(s, "_", ""), 10)
		if !ok || strings.HasPrefix(s, "_") || strings.HasSuffix(s, "_") || strings.Contains(s, "__") {
			return nil, value.Errorf("ValueError", "invalid literal for int() with base 10: %s", value.Repr(v))
		}
		return value.Int{V: i}, nil
	default:
		return nil, value.TypeErrorf("int() argument must be a string, a bytes-like object or a real number, not '%s'", v.Type())
	}
}

func builtinFloat(args []value.Value) (value.Value, error) {
	if err := arity("float", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return value.Float(0), nil
	}
	switch v := args[0].(type) {
	case value.Str:
		f, ok := parseFloat(string(v))
		if !ok {
			return nil, value.Errorf("ValueError", "could not convert string to float: %s", value.Repr(v))
		}
		return value.Float(f), nil
	case value.Int, value.Bool, value.Float:
		f, err := value.ToFloat(v)
		if err != nil {
			return nil, err
		}
		return value.Float(f), nil
	default:
		return nil, value.TypeErrorf("float() argument must be a string or a real number, not '%s'", v.Type())
	}
}

// parseFloat accepts Python float() spellings, including inf and nan.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func builtinComplex(args []value.Value) (value.Value, error) {
	if err := arity("complex", args, 0, 2); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return value.Complex(0), nil
	}
	if s, ok := args[0].(value.Str); ok {
		if len(args) == 2 {
			return nil, value.TypeErrorf("complex() can't take second arg if first is a string")
		}
		c, ok := parseComplex(string(s))
		if !ok {
			return nil, value.Errorf("ValueError", "complex() arg is a malformed string")
		}
		return value.Complex(c), nil
	}
	re, err := value.ToComplex(args[0])
	if err != nil {
		return nil, value.TypeErrorf("complex() first argument must be a string or a number, not '%s'", args[0].Type())
	}
	if len(args) == 1 {
		return value.Complex(re), nil
	}
	im, err := value.ToComplex(args[1])
	if err != nil {
		return nil, value.TypeErrorf("complex() second argument must be a number, not '%s'", args[1].Type())
	}
	return value.Complex(re + im*1i), nil
}

// parseComplex reads the repr form of a Python complex, e.g. "(3+4j)",
// "-2j" or "(nan+infj)".
func parseComplex(s string) (complex128, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" || strings.Contains(s, " ") || strings.HasSuffix(s, "i") || strings.HasSuffix(s, "I") {
		return 0, false
	}
	if strings.HasSuffix(s, "j") || strings.HasSuffix(s, "J") {
		s = s[:len(s)-1]
		if s == "" || s == "+" || s == "-" {
			s += "1"
		} else if last := s[len(s)-1]; last == '+' || last == '-' {
			s += "1"
		}
		s += "i"
	}
	c, err := strconv.ParseComplex(s, 128)
	if err != nil {
		return 0, false
	}
	return c, true
}
