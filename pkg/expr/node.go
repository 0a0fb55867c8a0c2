package expr

import "github.com/wildfunctions/calcblocks/pkg/value"

// ExprNode is the interface for all expression tree nodes. The unexported
// methods keep the set of node types closed: a new node type has to supply
// its rendering and evaluation before anything compiles against it.
type ExprNode interface {
	Eval(ns value.Namespace) (value.Value, error)
	String() string
	render(r renderer) string
	prec() int
}

// BinaryOp identifies a binary arithmetic operation.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpPow
	OpMod
)

// UnaryOp identifies a sign operation or logical negation.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpPos
	OpNot
)

// CompareOp identifies a comparison.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
)

// Literal is a constant as written in source. Raw keeps the source text so
// numbers render exactly as the author typed them.
type Literal struct {
	Raw string
	Val value.Value
}

// Identifier is a reference to a bound name.
type Identifier struct {
	Name string
}

// BinaryNode applies a binary operation to two child expressions.
type BinaryNode struct {
	Op          BinaryOp
	Left, Right ExprNode
}

// UnaryNode applies a sign or "not" to a child expression.
type UnaryNode struct {
	Op    UnaryOp
	Child ExprNode
}

// CallNode calls a named function from the namespace.
type CallNode struct {
	Func string
	Args []ExprNode
}

// SubscriptNode looks up one element: Value[Index].
type SubscriptNode struct {
	Value, Index ExprNode
}

// ConditionalNode is the ternary "Body if Cond else Else". Only the chosen
// branch is evaluated.
type ConditionalNode struct {
	Cond, Body, Else ExprNode
}

// Comparison is one "op right" link of a chained comparison.
type Comparison struct {
	Op    CompareOp
	Right ExprNode
}

// CompareNode is a chained comparison: Left op1 r1 op2 r2 ...
type CompareNode struct {
	Left  ExprNode
	Chain []Comparison
}

// ListNode is a list or tuple display.
type ListNode struct {
	Elems []ExprNode
}

// DictNode is a mapping display with string keys.
type DictNode struct {
	Keys   []string
	Values []ExprNode
}

// Statement is one top-level statement of a block.
type Statement interface {
	Pos() int
}

// Assign binds the value of Expr to Target.
type Assign struct {
	Target string
	Expr   ExprNode
	Line   int
}

// Other is any statement the compiler does not act on (imports, calls,
// control flow, tuple unpacking, ...). It is kept only for diagnostics.
type Other struct {
	Text string
	Line int
}

func (a *Assign) Pos() int { return a.Line }
func (o *Other) Pos() int  { return o.Line }
