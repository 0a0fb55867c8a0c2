package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/wildfunctions/calcblocks/pkg/value"
)

var binaryOpSymbols = map[BinaryOp]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpFloorDiv: "//",
	OpPow:      "**",
	OpMod:      "%",
}

var compareOpSymbols = map[CompareOp]string{
	OpEq: "==",
	OpNe: "!=",
	OpLt: "<",
	OpGt: ">",
	OpLe: "<=",
	OpGe: ">=",
}

var compareOpLaTeX = map[CompareOp]string{
	OpEq: " = ",
	OpNe: ` \neq `,
	OpLt: " < ",
	OpGt: " > ",
	OpLe: ` \leq `,
	OpGe: ` \geq `,
}

// Binding strength used to decide where parentheses are needed.
const (
	precConditional = iota
	precNot
	precCompare
	precSum
	precProduct
	precUnary
	precPow
	precAtom
)

// LaTeX renders node symbolically, using variable names.
func LaTeX(node ExprNode) string {
	return node.render(symbolic{})
}

// Substitute renders node with every bound identifier replaced by its value
// in ns. Unbound identifiers render as in LaTeX.
func Substitute(node ExprNode, ns value.Namespace) string {
	return node.render(substitution{ns: ns})
}

// renderer supplies the one thing that differs between the symbolic and the
// substituted forms: how an identifier leaf is printed. Subscripts also
// check for a substitution so a bound element prints as its value.
type renderer interface {
	identifier(name string) string
}

type symbolic struct{}

func (symbolic) identifier(name string) string {
	return NameLaTeX(name)
}

type substitution struct {
	ns value.Namespace
}

func (s substitution) identifier(name string) string {
	v, ok := s.ns[name]
	if !ok {
		return NameLaTeX(name)
	}
	return s.value(v)
}

// value prints a bound value: fractional floats to 4 significant digits,
// other numbers as they are, lists element by element and anything else as
// escaped text.
func (s substitution) value(v value.Value) string {
	switch n := v.(type) {
	case value.Float:
		x := float64(n)
		if !math.IsInf(x, 0) && !math.IsNaN(x) && x != math.Trunc(x) {
			return value.FormatG(x, 4)
		}
		return n.String()
	case value.Int, value.Complex:
		return n.String()
	case value.Str:
		return Text(string(n))
	case value.List:
		elems := make([]string, len(n))
		for i, e := range n {
			elems[i] = s.value(e)
		}
		return `\left[` + strings.Join(elems, ", ") + `\right]`
	default:
		return Text(v.String())
	}
}

func unrenderable(node ExprNode) string {
	return `\text{[unrenderable: ` + latexText(node.String()) + `]}`
}

// latexText escapes s for use inside \text{}.
func latexText(s string) string {
	r := strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"{", `\{`, "}", `\}`,
		"_", `\_`, "%", `\%`, "&", `\&`, "#", `\#`, "$", `\$`,
		"^", `\^{}`, "~", `\~{}`,
	)
	return r.Replace(s)
}

// Text wraps s in \text{} with LaTeX special characters escaped.
func Text(s string) string {
	return `\text{` + latexText(s) + "}"
}

func paren(s string) string {
	return `\left(` + s + `\right)`
}

// String methods

func (l *Literal) String() string {
	return l.Raw
}

func (i *Identifier) String() string {
	return i.Name
}

func (b *BinaryNode) String() string {
	sym, ok := binaryOpSymbols[b.Op]
	if !ok {
		sym = "?"
	}
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), sym, b.Right.String())
}

func (u *UnaryNode) String() string {
	switch u.Op {
	case OpNeg:
		return fmt.Sprintf("(-%s)", u.Child.String())
	case OpPos:
		return fmt.Sprintf("(+%s)", u.Child.String())
	case OpNot:
		return fmt.Sprintf("(not %s)", u.Child.String())
	default:
		return fmt.Sprintf("(?%s)", u.Child.String())
	}
}

func (c *CallNode) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Func + "(" + strings.Join(args, ", ") + ")"
}

func (c *CompareNode) String() string {
	var b strings.Builder
	b.WriteString(c.Left.String())
	for _, link := range c.Chain {
		sym, ok := compareOpSymbols[link.Op]
		if !ok {
			sym = "?"
		}
		b.WriteString(" " + sym + " " + link.Right.String())
	}
	return b.String()
}

func (s *SubscriptNode) String() string {
	return s.Value.String() + "[" + s.Index.String() + "]"
}

func (c *ConditionalNode) String() string {
	return fmt.Sprintf("(%s if %s else %s)", c.Body.String(), c.Cond.String(), c.Else.String())
}

func (l *ListNode) String() string {
	elems := make([]string, len(l.Elems))
	for i, e := range l.Elems {
		elems[i] = e.String()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

func (d *DictNode) String() string {
	items := make([]string, len(d.Keys))
	for i, k := range d.Keys {
		items[i] = value.Repr(value.Str(k)) + ": " + d.Values[i].String()
	}
	return "{" + strings.Join(items, ", ") + "}"
}

// Precedence

func (l *Literal) prec() int    { return precAtom }
func (i *Identifier) prec() int { return precAtom }
func (c *CallNode) prec() int   { return precAtom }

func (u *UnaryNode) prec() int {
	if u.Op == OpNot {
		return precNot
	}
	return precUnary
}

func (s *SubscriptNode) prec() int   { return precAtom }
func (c *ConditionalNode) prec() int { return precConditional }
func (c *CompareNode) prec() int {
	return precCompare
}
func (l *ListNode) prec() int { return precAtom }
func (d *DictNode) prec() int { return precAtom }

func (b *BinaryNode) prec() int {
	switch b.Op {
	case OpAdd, OpSub:
		return precSum
	case OpPow:
		return precPow
	default:
		return precProduct
	}
}

// LaTeX rendering

func (l *Literal) render(renderer) string {
	switch v := l.Val.(type) {
	case value.Str:
		return Text(string(v))
	case value.Bool, value.None:
		return Text(v.String())
	default:
		return l.Raw
	}
}

func (i *Identifier) render(r renderer) string {
	return r.identifier(i.Name)
}

func (b *BinaryNode) render(r renderer) string {
	left := b.operand(r, b.Left, false)
	right := b.operand(r, b.Right, true)
	switch b.Op {
	case OpAdd:
		return left + " + " + right
	case OpSub:
		return left + " - " + right
	case OpMul:
		return left + ` \cdot ` + right
	case OpDiv:
		return `\frac{` + left + "}{" + right + "}"
	case OpFloorDiv:
		return `\left\lfloor\frac{` + left + "}{" + right + `}\right\rfloor`
	case OpPow:
		return left + "^{" + right + "}"
	case OpMod:
		return left + ` \mod ` + right
	default:
		return unrenderable(b)
	}
}

// operand renders one side of b, adding parentheses where the child binds
// more loosely than b or where a substituted negative value would read as
// part of the operator.
func (b *BinaryNode) operand(r renderer, child ExprNode, right bool) string {
	s := child.render(r)
	if b.needsParens(child, right) {
		return paren(s)
	}
	if _, ok := child.(*Identifier); ok && strings.HasPrefix(s, "-") && b.wrapsNegative(right) {
		return paren(s)
	}
	return s
}

func (b *BinaryNode) needsParens(child ExprNode, right bool) bool {
	cp := child.prec()
	switch b.Op {
	case OpAdd:
		return cp < precSum
	case OpSub:
		if right {
			return cp <= precSum
		}
		return cp < precSum
	case OpMul, OpMod:
		if c, ok := child.(*BinaryNode); ok && c.Op == OpDiv {
			return false
		}
		if right {
			return cp <= precProduct
		}
		return cp < precProduct
	case OpPow:
		return !right && cp <= precPow
	default:
		// \frac and the exponent braces group on their own
		return false
	}
}

func (b *BinaryNode) wrapsNegative(right bool) bool {
	switch b.Op {
	case OpAdd, OpSub:
		return right
	case OpMul, OpMod:
		return true
	case OpPow:
		return !right
	default:
		return false
	}
}

func (u *UnaryNode) render(r renderer) string {
	s := u.Child.render(r)
	needs := u.Child.prec() < precUnary
	if c, ok := u.Child.(*BinaryNode); ok && c.Op == OpDiv {
		needs = false
	}
	if _, ok := u.Child.(*Identifier); ok && strings.HasPrefix(s, "-") {
		needs = true
	}
	if needs {
		s = paren(s)
	}
	switch u.Op {
	case OpNeg:
		return "-" + s
	case OpPos:
		return "+" + s
	case OpNot:
		return `\neg ` + s
	default:
		return unrenderable(u)
	}
}

func (c *CallNode) render(r renderer) string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.render(r)
	}
	return renderCall(c.Func, args)
}

// renderCall applies the named-function notation shared by both renderers.
func renderCall(name string, args []string) string {
	switch {
	case len(args) == 1:
		a := args[0]
		switch name {
		case "sqrt":
			return `\sqrt{` + a + "}"
		case "abs":
			return `\left|` + a + `\right|`
		case "sin", "cos", "tan", "cot", "sec", "csc", "log", "ln", "exp", "sinh", "cosh", "tanh":
			return `\` + name + paren(a)
		case "asin", "acos", "atan":
			return `\arc` + name[1:] + paren(a)
		case "log10":
			return `\log_{10}` + paren(a)
		case "log2":
			return `\log_{2}` + paren(a)
		case "sum":
			return `\sum ` + a
		}
	case len(args) == 2:
		switch name {
		case "pow":
			return args[0] + "^{" + args[1] + "}"
		case "log":
			return `\log_{` + args[1] + "}" + paren(args[0])
		case "atan2":
			return `\arctan` + paren(`\frac{`+args[0]+"}{"+args[1]+"}")
		}
	}
	if (name == "max" || name == "min") && len(args) > 0 {
		return `\` + name + paren(strings.Join(args, ", "))
	}
	return `\text{` + latexText(name) + "}(" + strings.Join(args, ", ") + ")"
}

func (s *SubscriptNode) render(r renderer) string {
	if sub, ok := r.(substitution); ok {
		if v, err := s.Eval(sub.ns); err == nil {
			return sub.value(v)
		}
	}
	base := s.Value.render(r)
	if s.Value.prec() < precAtom {
		base = paren(base)
	} else if strings.ContainsAny(base, "_^") {
		base = "{" + base + "}"
	}
	idx := s.Index.render(r)
	if lit, ok := s.Index.(*Literal); ok {
		if k, ok := lit.Val.(value.Str); ok {
			idx = latexText(string(k))
		}
	}
	return base + "_{" + idx + "}"
}

func (c *ConditionalNode) render(r renderer) string {
	return `\begin{cases} ` + c.Body.render(r) + ` & \text{if } ` + c.Cond.render(r) +
		` \\ ` + c.Else.render(r) + ` & \text{otherwise} \end{cases}`
}

func (c *CompareNode) render(r renderer) string {
	var b strings.Builder
	b.WriteString(compareOperand(r, c.Left))
	for _, link := range c.Chain {
		sym, ok := compareOpLaTeX[link.Op]
		if !ok {
			return unrenderable(c)
		}
		b.WriteString(sym + compareOperand(r, link.Right))
	}
	return b.String()
}

func compareOperand(r renderer, child ExprNode) string {
	s := child.render(r)
	if child.prec() <= precCompare {
		return paren(s)
	}
	return s
}

func (l *ListNode) render(r renderer) string {
	elems := make([]string, len(l.Elems))
	for i, e := range l.Elems {
		elems[i] = e.render(r)
	}
	return `\left[` + strings.Join(elems, ", ") + `\right]`
}

func (d *DictNode) render(r renderer) string {
	items := make([]string, len(d.Keys))
	for i, k := range d.Keys {
		items[i] = Text(k) + ": " + d.Values[i].render(r)
	}
	return `\left\{` + strings.Join(items, ", ") + `\right\}`
}
