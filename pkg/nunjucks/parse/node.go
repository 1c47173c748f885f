package parse

import (
	"github.com/walteh/gonunjucks/pkg/position"
)

// Kind is the variant tag of a Node.
type Kind int

const noKind Kind = -1

const (
	KindNodeList Kind = iota
	KindRoot
	KindValue
	KindLiteral
	KindSymbol
	KindGroup
	KindArray
	KindPair
	KindDict
	KindOutput
	KindCapture
	KindTemplateData
	KindIf
	KindIfAsync
	KindInlineIf
	KindFor
	KindAsyncEach
	KindAsyncAll
	KindMacro
	KindCaller
	KindImport
	KindFromImport
	KindFunCall
	KindFilter
	KindKeywordArgs
	KindBlock
	KindTemplateRef
	KindExtends
	KindInclude
	KindSet
	KindSwitch
	KindCase
	KindLookupVal
	KindBinOp
	KindIn
	KindIs
	KindOr
	KindAnd
	KindUnaryOp
	KindNot
	KindAdd
	KindConcat
	KindSub
	KindMul
	KindDiv
	KindFloorDiv
	KindMod
	KindPow
	KindNeg
	KindPos
	KindCompare
	KindCompareOperand

	kindCount
)

type kindInfo struct {
	name   string
	parent Kind
	list   bool
	fields []string
	// label names the field that merely names the enclosing construct
	label string
}

var (
	condFields    = []string{"cond", "body", "else_"}
	forFields     = []string{"arr", "name", "body", "else_"}
	macroFields   = []string{"name", "args", "body"}
	funCallFields = []string{"name", "args"}
	binOpFields   = []string{"left", "right"}
	unaryFields   = []string{"target"}
)

var kinds = [kindCount]kindInfo{
	KindNodeList:       {name: "NodeList", parent: noKind, list: true},
	KindRoot:           {name: "Root", parent: KindNodeList, list: true},
	KindValue:          {name: "Value", parent: noKind},
	KindLiteral:        {name: "Literal", parent: KindValue},
	KindSymbol:         {name: "Symbol", parent: KindValue},
	KindGroup:          {name: "Group", parent: KindNodeList, list: true},
	KindArray:          {name: "Array", parent: KindNodeList, list: true},
	KindPair:           {name: "Pair", parent: noKind, fields: []string{"key", "value"}},
	KindDict:           {name: "Dict", parent: KindNodeList, list: true},
	KindOutput:         {name: "Output", parent: KindNodeList, list: true},
	KindCapture:        {name: "Capture", parent: noKind, fields: []string{"body"}},
	KindTemplateData:   {name: "TemplateData", parent: KindLiteral},
	KindIf:             {name: "If", parent: noKind, fields: condFields},
	KindIfAsync:        {name: "IfAsync", parent: KindIf, fields: condFields},
	KindInlineIf:       {name: "InlineIf", parent: noKind, fields: condFields},
	KindFor:            {name: "For", parent: noKind, fields: forFields},
	KindAsyncEach:      {name: "AsyncEach", parent: KindFor, fields: forFields},
	KindAsyncAll:       {name: "AsyncAll", parent: KindFor, fields: forFields},
	KindMacro:          {name: "Macro", parent: noKind, fields: macroFields, label: "name"},
	KindCaller:         {name: "Caller", parent: KindMacro, fields: macroFields, label: "name"},
	KindImport:         {name: "Import", parent: noKind, fields: []string{"template", "target"}},
	KindFromImport:     {name: "FromImport", parent: noKind, fields: []string{"template", "names"}},
	KindFunCall:        {name: "FunCall", parent: noKind, fields: funCallFields},
	KindFilter:         {name: "Filter", parent: KindFunCall, fields: funCallFields, label: "name"},
	KindKeywordArgs:    {name: "KeywordArgs", parent: KindDict, list: true},
	KindBlock:          {name: "Block", parent: noKind, fields: []string{"name", "body"}, label: "name"},
	KindTemplateRef:    {name: "TemplateRef", parent: noKind, fields: []string{"template"}},
	KindExtends:        {name: "Extends", parent: KindTemplateRef, fields: []string{"template"}},
	KindInclude:        {name: "Include", parent: noKind, fields: []string{"template"}},
	KindSet:            {name: "Set", parent: noKind, fields: []string{"targets", "value", "body"}},
	KindSwitch:         {name: "Switch", parent: noKind, fields: []string{"expr", "cases", "default"}},
	KindCase:           {name: "Case", parent: noKind, fields: []string{"cond", "body"}},
	KindLookupVal:      {name: "LookupVal", parent: noKind, fields: []string{"target", "val"}},
	KindBinOp:          {name: "BinOp", parent: noKind, fields: binOpFields},
	KindIn:             {name: "In", parent: KindBinOp, fields: binOpFields},
	KindIs:             {name: "Is", parent: KindBinOp, fields: binOpFields},
	KindOr:             {name: "Or", parent: KindBinOp, fields: binOpFields},
	KindAnd:            {name: "And", parent: KindBinOp, fields: binOpFields},
	KindUnaryOp:        {name: "UnaryOp", parent: noKind, fields: unaryFields},
	KindNot:            {name: "Not", parent: KindUnaryOp, fields: unaryFields},
	KindAdd:            {name: "Add", parent: KindBinOp, fields: binOpFields},
	KindConcat:         {name: "Concat", parent: KindBinOp, fields: binOpFields},
	KindSub:            {name: "Sub", parent: KindBinOp, fields: binOpFields},
	KindMul:            {name: "Mul", parent: KindBinOp, fields: binOpFields},
	KindDiv:            {name: "Div", parent: KindBinOp, fields: binOpFields},
	KindFloorDiv:       {name: "FloorDiv", parent: KindBinOp, fields: binOpFields},
	KindMod:            {name: "Mod", parent: KindBinOp, fields: binOpFields},
	KindPow:            {name: "Pow", parent: KindBinOp, fields: binOpFields},
	KindNeg:            {name: "Neg", parent: KindUnaryOp, fields: unaryFields},
	KindPos:            {name: "Pos", parent: KindUnaryOp, fields: unaryFields},
	KindCompare:        {name: "Compare", parent: noKind, fields: []string{"expr", "ops"}},
	KindCompareOperand: {name: "CompareOperand", parent: noKind, fields: []string{"expr"}},
}

// keyword of the tag that opens each statement kind
var statementTags = map[Kind]string{
	KindIf:         "if",
	KindIfAsync:    "ifAsync",
	KindFor:        "for",
	KindAsyncEach:  "asyncEach",
	KindAsyncAll:   "asyncAll",
	KindSet:        "set",
	KindExtends:    "extends",
	KindInclude:    "include",
	KindImport:     "import",
	KindFromImport: "from",
	KindSwitch:     "switch",
	KindCase:       "case",
}

// String is the typename of the kind, e.g. "Filter".
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "Unknown"
	}
	return kinds[k].name
}

// IsA reports whether k is other or one of its specializations.
func (k Kind) IsA(other Kind) bool {
	for ; k != noKind; k = kinds[k].parent {
		if k == other {
			return true
		}
	}
	return false
}

// IsList reports whether nodes of this kind keep their children in Children.
func (k Kind) IsList() bool {
	return kinds[k].list
}

// Fields lists the schema of the kind in declaration order.
func (k Kind) Fields() []string {
	return kinds[k].fields
}

// IsStatement reports whether the kind is produced by a block tag.
func (k Kind) IsStatement() bool {
	if _, ok := statementTags[k]; ok {
		return true
	}
	switch k {
	case KindMacro, KindCaller, KindBlock, KindCapture:
		return true
	}
	return false
}

// KindByName maps a typename back to its Kind.
func KindByName(name string) (Kind, bool) {
	for k := Kind(0); k < kindCount; k++ {
		if kinds[k].name == name {
			return k, true
		}
	}
	return noKind, false
}

// Regex is the value of a regex literal.
type Regex struct {
	Body  string
	Flags string
}

func (r *Regex) String() string {
	return "r/" + r.Body + "/" + r.Flags
}

// Node is one element of the syntax tree.
//
// Fields holds one slot per schema field of Kind, in schema order, nil when absent.
// Children is only used by list kinds. Value carries the scalar payload of leaves
// (and the operator of a CompareOperand, withContext of imports, ignoreMissing of includes).
// Pos and End span the node in editor coordinates, End exclusive.
type Node struct {
	Kind     Kind
	Pos      position.Place
	End      position.Place
	Value    any
	Fields   []*Node
	Children []*Node
}

func NewNode(kind Kind, pos position.Place) *Node {
	return &Node{
		Kind:   kind,
		Pos:    pos,
		End:    pos,
		Fields: make([]*Node, len(kinds[kind].fields)),
	}
}

func (n *Node) Typename() string {
	if n == nil {
		return ""
	}
	return n.Kind.String()
}

func (n *Node) IsA(kind Kind) bool {
	return n != nil && n.Kind.IsA(kind)
}

func (n *Node) Range() position.Range {
	return position.Range{Start: n.Pos, End: n.End}
}

func fieldIndex(kind Kind, name string) int {
	for i, f := range kinds[kind].fields {
		if f == name {
			return i
		}
	}
	return -1
}

// Field returns the child stored under name, or nil.
func (n *Node) Field(name string) *Node {
	if n == nil {
		return nil
	}
	if i := fieldIndex(n.Kind, name); i >= 0 {
		return n.Fields[i]
	}
	return nil
}

// SetField stores child under name. Unknown names are programming errors and panic.
func (n *Node) SetField(name string, child *Node) {
	i := fieldIndex(n.Kind, name)
	if i < 0 {
		panic("parse: " + n.Kind.String() + " has no field " + name)
	}
	n.Fields[i] = child
}

func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// IterFields calls fn for each non-nil child in schema order. List kinds report
// every element under the field name "children".
func (n *Node) IterFields(fn func(field string, child *Node)) {
	if n == nil {
		return
	}
	if n.Kind.IsList() {
		for _, c := range n.Children {
			if c != nil {
				fn("children", c)
			}
		}
		return
	}
	for i, f := range kinds[n.Kind].fields {
		if n.Fields[i] != nil {
			fn(f, n.Fields[i])
		}
	}
}

// IsLabel reports whether field only names the construct (a filter or macro name).
func (n *Node) IsLabel(field string) bool {
	return n != nil && kinds[n.Kind].label != "" && kinds[n.Kind].label == field
}

// Name is the identifier a reader would associate with the node: the value of a symbol or
// string literal, the name of a call, filter, macro or block, or the tag keyword of a statement.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindSymbol, KindLiteral:
		s, _ := n.Value.(string)
		return s
	case KindFunCall, KindFilter, KindMacro, KindCaller, KindBlock:
		return n.Field("name").Name()
	}
	return statementTags[n.Kind]
}

// cover widens the span of n so it contains every child.
func (n *Node) cover() {
	n.IterFields(func(_ string, c *Node) {
		if c.Pos.Before(n.Pos) {
			n.Pos = c.Pos
		}
		if n.End.Before(c.End) {
			n.End = c.End
		}
	})
	if n.End.Before(n.Pos) {
		n.End = n.Pos
	}
}

// NodeBuffer collects top-level nodes as they are built. The caller owns it, so the nodes
// appended before a failure stay reachable after the parser gives up.
type NodeBuffer struct {
	nodes []*Node
}

func (b *NodeBuffer) Append(n *Node) {
	b.nodes = append(b.nodes, n)
}

func (b *NodeBuffer) Len() int {
	return len(b.nodes)
}

// Nodes returns a copy of the buffered nodes.
func (b *NodeBuffer) Nodes() []*Node {
	out := make([]*Node, len(b.nodes))
	copy(out, b.nodes)
	return out
}

// NewRoot assembles a Root spanning from the document origin to end.
func NewRoot(buf *NodeBuffer, end position.Place) *Node {
	root := NewNode(KindRoot, position.Place{})
	root.Children = buf.Nodes()
	root.End = end
	root.cover()
	return root
}
