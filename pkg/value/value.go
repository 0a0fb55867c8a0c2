package value

import (
	"math/big"
	"strings"
)

// Value is the interface for everything an expression can evaluate to.
// Type returns the runtime type tag recorded alongside stored variables.
type Value interface {
	Type() string
	String() string
}

// Namespace maps names to bound values for the duration of one block.
type Namespace map[string]Value

// Names returns the bound names, unordered.
func (ns Namespace) Names() []string {
	names := make([]string, 0, len(ns))
	for k := range ns {
		names = append(names, k)
	}
	return names
}

// Int is an arbitrary-precision integer.
type Int struct {
	V *big.Int
}

// Float is a double-precision real.
type Float float64

// Complex is a double-precision complex number.
type Complex complex128

// Bool is a boolean; it behaves as 0/1 in arithmetic.
type Bool bool

// Str is a text value.
type Str string

// None is the null value.
type None struct{}

// List is an ordered sequence of values.
type List []Value

// Dict is a string-keyed map that remembers insertion order.
type Dict struct {
	Keys  []string
	Items map[string]Value
}

// Builtin is a function provided by the evaluation namespace.
type Builtin struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

// NewInt returns an Int holding v.
func NewInt(v int64) Int {
	return Int{V: big.NewInt(v)}
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{Items: map[string]Value{}}
}

// Set inserts or replaces a key, keeping first-insertion order.
func (d *Dict) Set(k string, v Value) {
	if _, ok := d.Items[k]; !ok {
		d.Keys = append(d.Keys, k)
	}
	d.Items[k] = v
}

func (Int) Type() string      { return "int" }
func (Float) Type() string    { return "float" }
func (Complex) Type() string  { return "complex" }
func (Bool) Type() string     { return "bool" }
func (Str) Type() string      { return "str" }
func (None) Type() string     { return "NoneType" }
func (List) Type() string     { return "list" }
func (*Dict) Type() string    { return "dict" }
func (*Builtin) Type() string { return "builtin_function_or_method" }

func (i Int) String() string     { return i.V.String() }
func (f Float) String() string   { return FormatFloat(float64(f)) }
func (c Complex) String() string { return FormatComplex(complex128(c)) }
func (s Str) String() string     { return string(s) }
func (None) String() string      { return "None" }

func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}

func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = Repr(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (d *Dict) String() string {
	parts := make([]string, len(d.Keys))
	for i, k := range d.Keys {
		parts[i] = Repr(Str(k)) + ": " + Repr(d.Items[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (b *Builtin) String() string {
	return "<built-in function " + b.Name + ">"
}

// Repr returns the source-like form of v: strings are quoted, everything
// else prints as String does.
func Repr(v Value) string {
	s, ok := v.(Str)
	if !ok {
		return v.String()
	}
	quote := "'"
	if strings.Contains(string(s), "'") && !strings.Contains(string(s), `"`) {
		quote = `"`
	}
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, quote, `\`+quote)
	return quote + r.Replace(string(s)) + quote
}
