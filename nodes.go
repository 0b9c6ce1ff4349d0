package safecalc

import (
	"strconv"
	"strings"
)

// node is a node in the abstract syntax tree of an expression.
type node struct {
	kind nodeKind

	// name is the literal text of a number or the identifier of a name or
	// call.
	name string
	// pos is the column of the token that produced the node.
	pos int

	left  *node
	right *node
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeNum  // name is the literal
	nodeName // lookup(name)

	nodeCall  // name is the function to call, right is link to nodeArg unless niladic
	nodeArg   // eval left, right is link to next arg
	nodeTuple // right is link to nodeArg unless empty

	nodeNeg // evaluate left, then negate
	nodePos // evaluate left
	nodeAdd // evaluate left, add right
	nodeSub // evaluate left, sub right
	nodeMul // evaluate left, mul right
	nodeDiv // evaluate left, div by right
	nodeMod // evaluate left, mod by right
	nodePow // evaluate left, exp by right
)

var nodeNames = [...]string{
	nodeNone:  "None",
	nodeNum:   "Num",
	nodeName:  "Name",
	nodeCall:  "Call",
	nodeArg:   "Arg",
	nodeTuple: "Tuple",
	nodeNeg:   "Neg",
	nodePos:   "Pos",
	nodeAdd:   "Add",
	nodeSub:   "Sub",
	nodeMul:   "Mul",
	nodeDiv:   "Div",
	nodeMod:   "Mod",
	nodePow:   "Pow",
}

func (k nodeKind) String() string {
	if k < 0 || int(k) >= len(nodeNames) {
		return "nodeKind(" + strconv.Itoa(int(k)) + ")"
	}
	return nodeNames[k]
}

// symbols holds the source spelling of each operator node kind.
var symbols = map[nodeKind]string{
	nodeNeg: "-",
	nodePos: "+",
	nodeAdd: "+",
	nodeSub: "-",
	nodeMul: "*",
	nodeDiv: "/",
	nodeMod: "%",
	nodePow: "**",
}

func (n *node) String() string {
	var b strings.Builder
	n.fmt(&b)
	return b.String()
}

// fmt writes the node fully parenthesized. The output parses back to the same
// tree.
func (n *node) fmt(b *strings.Builder) {
	b.WriteByte('(')
	defer b.WriteByte(')')
	switch n.kind {
	case nodeNone:
		// Invalid nodes use invalid characters.
		b.WriteByte('$')
		if n.left != nil {
			n.left.fmt(b)
		}
		b.WriteByte('#')
		if n.right != nil {
			n.right.fmt(b)
		}
		b.WriteByte('$')
	case nodeNum, nodeName:
		b.WriteString(n.name)
	case nodeCall:
		b.WriteString(n.name)
		b.WriteByte('(')
		n.fmtargs(b)
		b.WriteByte(')')
	case nodeTuple:
		n.fmtargs(b)
		if n.right != nil && n.right.right == nil {
			// One-element tuples need a trailing comma.
			b.WriteByte(',')
		}
	case nodeArg:
		// Args usually only appear inside calls, which are handled by fmtargs.
		b.WriteByte(':')
		n.left.fmt(b)
		if n.right != nil {
			n.right.fmt(b)
		}
	case nodeNeg, nodePos:
		b.WriteString(symbols[n.kind])
		n.left.fmt(b)
	case nodeAdd, nodeSub, nodeMul, nodeDiv, nodeMod, nodePow:
		n.left.fmt(b)
		b.WriteByte(' ')
		b.WriteString(symbols[n.kind])
		b.WriteByte(' ')
		n.right.fmt(b)
	default:
		panic("safecalc: invalid node kind " + n.kind.String() + " after writing " + b.String())
	}
}

// fmtargs writes the comma-separated argument chain of a call or tuple.
func (n *node) fmtargs(b *strings.Builder) {
	for l := n.right; l != nil; l = l.right {
		if l.kind != nodeArg {
			b.WriteString("***")
			l.fmt(b)
			return
		}
		if l != n.right {
			b.WriteString(", ")
		}
		l.left.fmt(b)
	}
}

// args counts the argument chain of a call or tuple.
func (n *node) args() int {
	k := 0
	for l := n.right; l != nil; l = l.right {
		k++
	}
	return k
}
