package parse

import (
	"github.com/walteh/gonunjucks/pkg/position"
)

// FindNodeInRange returns the most deeply nested node whose span contains r, or nil.
// Among candidates at the same depth the first one visited wins. Label fields, such as
// the name of a filter, are not descended into: a range on a filter name resolves to the
// filter itself.
func FindNodeInRange(root *Node, r position.Range) *Node {
	var best *Node
	bestDepth := -1

	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if n.Range().Contains(r) && depth > bestDepth {
			best, bestDepth = n, depth
		}
		n.IterFields(func(field string, child *Node) {
			if n.IsLabel(field) {
				return
			}
			visit(child, depth+1)
		})
	}

	if root != nil {
		visit(root, 0)
	}
	return best
}

// Walk visits n and its descendants in pre-order. Returning false from fn skips the
// children of that node.
func Walk(n *Node, fn func(n *Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	n.IterFields(func(_ string, child *Node) {
		Walk(child, fn)
	})
}

// FindAll returns every node under root (root included) that is a kind, in pre-order.
func FindAll(root *Node, kind Kind) []*Node {
	var out []*Node
	Walk(root, func(n *Node) bool {
		if n.IsA(kind) {
			out = append(out, n)
		}
		return true
	})
	return out
}
