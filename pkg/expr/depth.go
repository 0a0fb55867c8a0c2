package expr

// Depth returns the height of the tree rooted at node; a leaf has depth 1.
func Depth(node ExprNode) int {
	d := 0
	for _, c := range children(node) {
		if cd := Depth(c); cd > d {
			d = cd
		}
	}
	return 1 + d
}

func children(node ExprNode) []ExprNode {
	switch n := node.(type) {
	case *BinaryNode:
		return []ExprNode{n.Left, n.Right}
	case *UnaryNode:
		return []ExprNode{n.Child}
	case *CallNode:
		return n.Args
	case *SubscriptNode:
		return []ExprNode{n.Value, n.Index}
	case *ConditionalNode:
		return []ExprNode{n.Body, n.Cond, n.Else}
	case *CompareNode:
		out := []ExprNode{n.Left}
		for _, link := range n.Chain {
			out = append(out, link.Right)
		}
		return out
	case *ListNode:
		return n.Elems
	case *DictNode:
		return n.Values
	default:
		return nil
	}
}
