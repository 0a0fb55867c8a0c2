package expr

import (
	"math"
	"math/big"
	"math/cmplx"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/wildfunctions/calcblocks/pkg/value"
)

// maxResultBits caps integer exponentiation so a stray 10**10**9 fails
// instead of eating the process.
const maxResultBits = 1 << 20

// maxSequenceLen caps string and list repetition, counted in bytes for
// strings and elements for lists.
const maxSequenceLen = 1 << 24

func (l *Literal) Eval(value.Namespace) (value.Value, error) {
	return l.Val, nil
}

func (i *Identifier) Eval(ns value.Namespace) (value.Value, error) {
	v, ok := ns[i.Name]
	if !ok {
		return nil, undefinedName(i.Name, ns)
	}
	return v, nil
}

func (b *BinaryNode) Eval(ns value.Namespace) (value.Value, error) {
	left, err := b.Left.Eval(ns)
	if err != nil {
		return nil, err
	}
	right, err := b.Right.Eval(ns)
	if err != nil {
		return nil, err
	}
	return Arith(b.Op, left, right)
}

func (u *UnaryNode) Eval(ns value.Namespace) (value.Value, error) {
	child, err := u.Child.Eval(ns)
	if err != nil {
		return nil, err
	}

	sym := "-"
	switch u.Op {
	case OpNot:
		return value.Bool(!value.Truth(child)), nil
	case OpPos:
		sym = "+"
	case OpNeg:
	default:
		return nil, value.Errorf("SyntaxError", "unsupported unary operator in %s", u.String())
	}

	switch v := child.(type) {
	case value.Int, value.Bool:
		i, _ := value.AsBigInt(v)
		if u.Op == OpNeg {
			return value.Int{V: new(big.Int).Neg(i)}, nil
		}
		return value.Int{V: new(big.Int).Set(i)}, nil
	case value.Float:
		if u.Op == OpNeg {
			return -v, nil
		}
		return v, nil
	case value.Complex:
		if u.Op == OpNeg {
			return -v, nil
		}
		return v, nil
	default:
		return nil, value.TypeErrorf("bad operand type for unary %s: '%s'", sym, child.Type())
	}
}

func (c *CallNode) Eval(ns value.Namespace) (value.Value, error) {
	fv, ok := ns[c.Func]
	if !ok {
		return nil, undefinedName(c.Func, ns)
	}
	fn, ok := fv.(*value.Builtin)
	if !ok {
		return nil, value.TypeErrorf("'%s' object is not callable", fv.Type())
	}
	args := make([]value.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := a.Eval(ns)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn.Fn(args)
}

func (s *SubscriptNode) Eval(ns value.Namespace) (value.Value, error) {
	container, err := s.Value.Eval(ns)
	if err != nil {
		return nil, err
	}
	key, err := s.Index.Eval(ns)
	if err != nil {
		return nil, err
	}
	return Index(container, key)
}

func (c *ConditionalNode) Eval(ns value.Namespace) (value.Value, error) {
	cond, err := c.Cond.Eval(ns)
	if err != nil {
		return nil, err
	}
	if value.Truth(cond) {
		return c.Body.Eval(ns)
	}
	return c.Else.Eval(ns)
}

func (c *CompareNode) Eval(ns value.Namespace) (value.Value, error) {
	left, err := c.Left.Eval(ns)
	if err != nil {
		return nil, err
	}
	for _, link := range c.Chain {
		right, err := link.Right.Eval(ns)
		if err != nil {
			return nil, err
		}
		ok, err := Compare(link.Op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return value.Bool(false), nil
		}
		left = right
	}
	return value.Bool(true), nil
}

func (l *ListNode) Eval(ns value.Namespace) (value.Value, error) {
	out := make(value.List, len(l.Elems))
	for i, e := range l.Elems {
		v, err := e.Eval(ns)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *DictNode) Eval(ns value.Namespace) (value.Value, error) {
	out := value.NewDict()
	for i, k := range d.Keys {
		v, err := d.Values[i].Eval(ns)
		if err != nil {
			return nil, err
		}
		out.Set(k, v)
	}
	return out, nil
}

// Index looks key up in a list, string or dict. Negative positions count
// from the end.
func Index(container, key value.Value) (value.Value, error) {
	switch c := container.(type) {
	case value.List:
		i, err := position(key, len(c), "list")
		if err != nil {
			return nil, err
		}
		return c[i], nil
	case value.Str:
		runes := []rune(string(c))
		i, err := position(key, len(runes), "string")
		if err != nil {
			return nil, err
		}
		return value.Str(runes[i]), nil
	case *value.Dict:
		k, ok := key.(value.Str)
		if !ok {
			return nil, value.Errorf("KeyError", "%s", value.Repr(key))
		}
		v, ok := c.Items[string(k)]
		if !ok {
			return nil, value.Errorf("KeyError", "%s", value.Repr(key))
		}
		return v, nil
	default:
		return nil, value.TypeErrorf("'%s' object is not subscriptable", container.Type())
	}
}

// position resolves an integer index against a sequence of length n.
func position(key value.Value, n int, kind string) (int, error) {
	i, ok := value.AsBigInt(key)
	if !ok {
		if kind == "list" {
			return 0, value.TypeErrorf("list indices must be integers or slices, not %s", key.Type())
		}
		return 0, value.TypeErrorf("string indices must be integers, not '%s'", key.Type())
	}
	if !i.IsInt64() {
		return 0, value.Errorf("IndexError", "cannot fit 'int' into an index-sized integer")
	}
	p := i.Int64()
	if p < 0 {
		p += int64(n)
	}
	if p < 0 || p >= int64(n) {
		return 0, value.Errorf("IndexError", "%s index out of range", kind)
	}
	return int(p), nil
}

// undefinedName builds a NameError, suggesting the closest bound name.
func undefinedName(name string, ns value.Namespace) error {
	names := ns.Names()
	sort.Strings(names)
	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) > 0 {
		sort.Stable(ranks)
		return value.Errorf("NameError", "name '%s' is not defined. Did you mean: '%s'?", name, ranks[0].Target)
	}
	return value.Errorf("NameError", "name '%s' is not defined", name)
}

// Arith applies a binary operation with Python semantics: ints stay exact,
// true division produces floats, and mixed operands widen to the larger of
// int, float and complex.
func Arith(op BinaryOp, left, right value.Value) (value.Value, error) {
	sym, ok := binaryOpSymbols[op]
	if !ok {
		return nil, value.Errorf("SyntaxError", "unsupported binary operator")
	}
	if v, ok, err := sequenceArith(op, left, right); ok {
		return v, err
	}

	rank := value.Rank(left)
	if rr := value.Rank(right); rank == value.RankNone || rr == value.RankNone {
		return nil, value.TypeErrorf("unsupported operand type(s) for %s: '%s' and '%s'", sym, left.Type(), right.Type())
	} else if rr > rank {
		rank = rr
	}

	switch rank {
	case value.RankInt:
		x, _ := value.AsBigInt(left)
		y, _ := value.AsBigInt(right)
		return intArith(op, x, y)
	case value.RankFloat:
		x, err := value.ToFloat(left)
		if err != nil {
			return nil, err
		}
		y, err := value.ToFloat(right)
		if err != nil {
			return nil, err
		}
		return floatArith(op, x, y)
	default:
		x, err := value.ToComplex(left)
		if err != nil {
			return nil, err
		}
		y, err := value.ToComplex(right)
		if err != nil {
			return nil, err
		}
		return complexArith(op, sym, x, y)
	}
}

// sequenceArith handles concatenation and repetition of strings and lists.
// ok is false when the operands are not a sequence pair.
func sequenceArith(op BinaryOp, left, right value.Value) (v value.Value, ok bool, err error) {
	switch op {
	case OpAdd:
		if a, ok := left.(value.Str); ok {
			if b, ok := right.(value.Str); ok {
				return a + b, true, nil
			}
		}
		if a, ok := left.(value.List); ok {
			if b, ok := right.(value.List); ok {
				out := make(value.List, 0, len(a)+len(b))
				return append(append(out, a...), b...), true, nil
			}
		}
	case OpMul:
		seq, count := left, right
		if _, ok := count.(value.Int); !ok {
			seq, count = right, left
		}
		n, ok := count.(value.Int)
		if !ok {
			return nil, false, nil
		}
		var size int
		switch s := seq.(type) {
		case value.Str:
			size = len(s)
		case value.List:
			size = len(s)
		default:
			return nil, false, nil
		}
		if n.V.Sign() <= 0 || size == 0 {
			return emptyLike(seq), true, nil
		}
		if !n.V.IsInt64() || n.V.Int64() > int64(maxSequenceLen/size) {
			return nil, true, value.Errorf("MemoryError", "repeated %s would exceed %d items", seq.Type(), maxSequenceLen)
		}
		times := int(n.V.Int64())
		if s, ok := seq.(value.Str); ok {
			return value.Str(strings.Repeat(string(s), times)), true, nil
		}
		s := seq.(value.List)
		out := make(value.List, 0, len(s)*times)
		for i := 0; i < times; i++ {
			out = append(out, s...)
		}
		return out, true, nil
	}
	return nil, false, nil
}

func emptyLike(seq value.Value) value.Value {
	if _, ok := seq.(value.Str); ok {
		return value.Str("")
	}
	return value.List{}
}

func intArith(op BinaryOp, x, y *big.Int) (value.Value, error) {
	switch op {
	case OpAdd:
		return value.Int{V: new(big.Int).Add(x, y)}, nil
	case OpSub:
		return value.Int{V: new(big.Int).Sub(x, y)}, nil
	case OpMul:
		return value.Int{V: new(big.Int).Mul(x, y)}, nil
	case OpDiv:
		if y.Sign() == 0 {
			return nil, value.Errorf("ZeroDivisionError", "division by zero")
		}
		f, _ := new(big.Rat).SetFrac(x, y).Float64()
		if math.IsInf(f, 0) {
			return nil, value.Errorf("OverflowError", "integer division result too large for a float")
		}
		return value.Float(f), nil
	case OpFloorDiv, OpMod:
		if y.Sign() == 0 {
			if op == OpMod {
				return nil, value.Errorf("ZeroDivisionError", "integer modulo by zero")
			}
			return nil, value.Errorf("ZeroDivisionError", "integer division or modulo by zero")
		}
		q, m := new(big.Int).QuoRem(x, y, new(big.Int))
		if m.Sign() != 0 && m.Sign() != y.Sign() {
			q.Sub(q, big.NewInt(1))
			m.Add(m, y)
		}
		if op == OpMod {
			return value.Int{V: m}, nil
		}
		return value.Int{V: q}, nil
	case OpPow:
		if y.Sign() < 0 {
			if x.Sign() == 0 {
				return nil, value.Errorf("ZeroDivisionError", "0.0 cannot be raised to a negative power")
			}
			fx, _ := new(big.Float).SetInt(x).Float64()
			fy, _ := new(big.Float).SetInt(y).Float64()
			return value.Float(math.Pow(fx, fy)), nil
		}
		if x.CmpAbs(big.NewInt(1)) > 0 {
			if !y.IsInt64() || int64(x.BitLen())*y.Int64() > maxResultBits {
				return nil, value.Errorf("OverflowError", "integer exponentiation result too large")
			}
		}
		return value.Int{V: new(big.Int).Exp(x, y, nil)}, nil
	default:
		return nil, value.Errorf("SyntaxError", "unsupported binary operator")
	}
}

func floatArith(op BinaryOp, x, y float64) (value.Value, error) {
	switch op {
	case OpAdd:
		return value.Float(x + y), nil
	case OpSub:
		return value.Float(x - y), nil
	case OpMul:
		return value.Float(x * y), nil
	case OpDiv:
		if y == 0 {
			return nil, value.Errorf("ZeroDivisionError", "float division by zero")
		}
		return value.Float(x / y), nil
	case OpFloorDiv:
		if y == 0 {
			return nil, value.Errorf("ZeroDivisionError", "float floor division by zero")
		}
		return value.Float(math.Floor(x / y)), nil
	case OpMod:
		if y == 0 {
			return nil, value.Errorf("ZeroDivisionError", "float modulo")
		}
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return value.Float(r), nil
	case OpPow:
		return floatPow(x, y)
	default:
		return nil, value.Errorf("SyntaxError", "unsupported binary operator")
	}
}

func floatPow(x, y float64) (value.Value, error) {
	if x == 0 && y < 0 {
		return nil, value.Errorf("ZeroDivisionError", "0.0 cannot be raised to a negative power")
	}
	if x < 0 && y != math.Trunc(y) && !math.IsInf(y, 0) {
		return value.Complex(cmplx.Pow(complex(x, 0), complex(y, 0))), nil
	}
	r := math.Pow(x, y)
	if math.IsInf(r, 0) && !math.IsInf(x, 0) && !math.IsInf(y, 0) {
		return nil, value.Errorf("OverflowError", "(34, 'Numerical result out of range')")
	}
	return value.Float(r), nil
}

func complexArith(op BinaryOp, sym string, x, y complex128) (value.Value, error) {
	switch op {
	case OpAdd:
		return value.Complex(x + y), nil
	case OpSub:
		return value.Complex(x - y), nil
	case OpMul:
		return value.Complex(x * y), nil
	case OpDiv:
		if y == 0 {
			return nil, value.Errorf("ZeroDivisionError", "complex division by zero")
		}
		return value.Complex(x / y), nil
	case OpPow:
		if x == 0 && (real(y) < 0 || imag(y) != 0) {
			return nil, value.Errorf("ZeroDivisionError", "0.0 to a negative or complex power")
		}
		if y == 0 {
			return value.Complex(1), nil
		}
		return value.Complex(cmplx.Pow(x, y)), nil
	default:
		return nil, value.TypeErrorf("unsupported operand type(s) for %s: 'complex' and 'complex'", sym)
	}
}

// Compare evaluates one link of a comparison chain.
func Compare(op CompareOp, left, right value.Value) (bool, error) {
	sym, ok := compareOpSymbols[op]
	if !ok {
		return false, value.Errorf("SyntaxError", "unsupported comparison operator")
	}
	if op == OpEq || op == OpNe {
		eq := equal(left, right)
		return eq == (op == OpEq), nil
	}

	c, ok, nan := order(left, right)
	if !ok {
		return false, value.TypeErrorf("'%s' not supported between instances of '%s' and '%s'", sym, left.Type(), right.Type())
	}
	if nan {
		return false, nil
	}
	switch op {
	case OpLt:
		return c < 0, nil
	case OpGt:
		return c > 0, nil
	case OpLe:
		return c <= 0, nil
	default:
		return c >= 0, nil
	}
}

// order compares two orderable values. ok is false when the pair has no
// ordering; nan is set when either side is NaN, which compares false
// against everything.
func order(left, right value.Value) (c int, ok, nan bool) {
	rl, rr := value.Rank(left), value.Rank(right)
	switch {
	case rl == value.RankInt && rr == value.RankInt:
		x, _ := value.AsBigInt(left)
		y, _ := value.AsBigInt(right)
		return x.Cmp(y), true, false
	case (rl == value.RankInt || rl == value.RankFloat) && (rr == value.RankInt || rr == value.RankFloat):
		x, y := realBig(left), realBig(right)
		if x == nil || y == nil {
			return 0, true, true
		}
		return x.Cmp(y), true, false
	}
	if a, ok := left.(value.Str); ok {
		if b, ok := right.(value.Str); ok {
			return strings.Compare(string(a), string(b)), true, false
		}
	}
	return 0, false, false
}

// realBig converts a real number to an exact big.Float, nil for NaN.
func realBig(v value.Value) *big.Float {
	if i, ok := value.AsBigInt(v); ok {
		return new(big.Float).SetInt(i)
	}
	f := float64(v.(value.Float))
	if math.IsNaN(f) {
		return nil
	}
	return new(big.Float).SetFloat64(f)
}

func equal(left, right value.Value) bool {
	rl, rr := value.Rank(left), value.Rank(right)
	if rl != value.RankNone && rr != value.RankNone {
		if rl == value.RankComplex || rr == value.RankComplex {
			x, _ := value.ToComplex(left)
			y, _ := value.ToComplex(right)
			return x == y
		}
		c, ok, nan := order(left, right)
		return ok && !nan && c == 0
	}
	switch a := left.(type) {
	case value.Str:
		b, ok := right.(value.Str)
		return ok && a == b
	case value.None:
		_, ok := right.(value.None)
		return ok
	case value.List:
		b, ok := right.(value.List)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case *value.Dict:
		b, ok := right.(*value.Dict)
		if !ok || len(a.Keys) != len(b.Keys) {
			return false
		}
		for _, k := range a.Keys {
			bv, ok := b.Items[k]
			if !ok || !equal(a.Items[k], bv) {
				return false
			}
		}
		return true
	default:
		return left == right
	}
}
