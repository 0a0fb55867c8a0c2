package expr

import "github.com/wildfunctions/calcblocks/pkg/value"

// IsConstant reports whether node is a plain constant: a literal, or a sign
// applied to a numeric literal (-5 parses as neg(5)). Such right-hand sides
// have nothing to show beyond their value.
func IsConstant(node ExprNode) bool {
	switch n := node.(type) {
	case *Literal:
		return true
	case *UnaryNode:
		lit, ok := n.Child.(*Literal)
		return ok && n.Op != OpNot && value.Rank(lit.Val) != value.RankNone
	default:
		return false
	}
}
