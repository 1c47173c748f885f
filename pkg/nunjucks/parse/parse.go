// Package parse builds syntax trees for Nunjucks templates.
//
// The parser is a recursive descent over a pull-based Lexer. Failures are raised by panicking
// with a *LexError or *ParseError and recovered at the API boundary, the same way text/template
// does it. Callers that need the partial tree hand ParseNodes their own NodeBuffer.
package parse

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	"github.com/walteh/gonunjucks/pkg/position"
)

const maxEndHistory = 16

// MaxNestingDepth bounds the recursion of expressions and tags.
const MaxNestingDepth = 1000

// Parser holds the state of one parse. It is not safe for concurrent use and is discarded
// after the parse.
type Parser struct {
	lx *Lexer

	// tokens pushed back, last in first out
	pending []Token

	breakOnBlocks         []string
	dropLeadingWhitespace bool

	// the block-start of the tag currently being parsed
	blockStart Token

	// end of the last consumed token, with the ends before it for pushToken
	lastEnd position.Place
	ends    []position.Place

	depth int
}

func NewParser(lx *Lexer) *Parser {
	return &Parser{lx: lx}
}

// Parse is shorthand for NewParser(Lex(text)).ParseRoot().
func Parse(text string) (*Node, error) {
	return NewParser(Lex(text)).ParseRoot()
}

// ParseRoot parses the whole input. The returned Root is nil when err is non-nil.
func (p *Parser) ParseRoot() (root *Node, err error) {
	defer p.recover(&err)

	buf := &NodeBuffer{}
	p.ParseNodes(buf)
	return NewRoot(buf, p.lx.Place()), nil
}

// ParseNodes runs the top-level loop, appending each finished top-level node to buf.
// It panics with a *LexError or *ParseError at the first failure.
func (p *Parser) ParseNodes(buf *NodeBuffer) {
	p.parseNodes(buf)
}

// recover is the handler that turns panics into returns from the top level of Parse.
func (p *Parser) recover(errp *error) {
	e := recover()
	if e == nil {
		return
	}
	if _, ok := e.(runtime.Error); ok {
		panic(e)
	}
	switch err := e.(type) {
	case *LexError:
		*errp = err
	case *ParseError:
		*errp = err
	default:
		panic(e)
	}
}

func (p *Parser) errorf(at position.Place, format string, args ...any) {
	panic(&ParseError{
		Msg:  fmt.Sprintf(format, args...),
		Line: at.Line,
		Col:  at.Character,
	})
}

func (p *Parser) failAt(tok Token, format string, args ...any) {
	p.errorf(tok.Pos, format, args...)
}

// nest enters one level of recursion; the returned func leaves it.
func (p *Parser) nest(tok Token, what string) func() {
	p.depth++
	if p.depth > MaxNestingDepth {
		p.failAt(tok, "%s nested too deeply", what)
	}
	return func() { p.depth-- }
}

// token primitives

func (p *Parser) fetch() Token {
	for {
		tok, err := p.lx.Next()
		if err != nil {
			panic(err)
		}
		if tok.Type != TokenWhitespace {
			return tok
		}
	}
}

func (p *Parser) nextToken() Token {
	var tok Token
	if n := len(p.pending); n > 0 {
		tok = p.pending[n-1]
		p.pending = p.pending[:n-1]
	} else {
		tok = p.fetch()
	}

	p.ends = append(p.ends, p.lastEnd)
	if len(p.ends) > maxEndHistory {
		p.ends = append(p.ends[:0], p.ends[len(p.ends)-maxEndHistory/2:]...)
	}
	p.lastEnd = tok.End
	return tok
}

func (p *Parser) peekToken() Token {
	if n := len(p.pending); n > 0 {
		return p.pending[n-1]
	}
	tok := p.fetch()
	p.pending = append(p.pending, tok)
	return tok
}

func (p *Parser) pushToken(tok Token) {
	p.pending = append(p.pending, tok)
	if n := len(p.ends); n > 0 {
		p.lastEnd = p.ends[n-1]
		p.ends = p.ends[:n-1]
	}
}

func (p *Parser) skip(typ TokenType) bool {
	tok := p.nextToken()
	if tok.Type != typ {
		p.pushToken(tok)
		return false
	}
	return true
}

func (p *Parser) expect(typ TokenType) Token {
	tok := p.nextToken()
	if tok.Type != typ {
		p.failAt(tok, "expected %s, got %s", typ, tok.Type)
	}
	return tok
}

func (p *Parser) skipValue(typ TokenType, val string) bool {
	tok := p.nextToken()
	if tok.Type != typ || tok.Value != val {
		p.pushToken(tok)
		return false
	}
	return true
}

func (p *Parser) skipSymbol(val string) bool {
	return p.skipValue(TokenSymbol, val)
}

// end closes the span of n at the last consumed token.
func (p *Parser) end(n *Node) *Node {
	if n.End.Before(p.lastEnd) {
		n.End = p.lastEnd
	}
	n.cover()
	return n
}

func (p *Parser) advanceAfterBlockEnd(name string) Token {
	if name == "" {
		tok := p.peekToken()
		if tok.Type == TokenEOF {
			p.failAt(tok, "unexpected end of file")
		}
		if tok.Type != TokenSymbol {
			p.failAt(tok, "advanceAfterBlockEnd: expected symbol token or explicit name to be passed")
		}
		name = p.nextToken().Value
	}

	tok := p.nextToken()
	if tok.Type != TokenBlockEnd {
		p.failAt(tok, "expected block end in %s statement", name)
	}
	if strings.HasPrefix(tok.Value, "-") {
		p.dropLeadingWhitespace = true
	}
	return tok
}

func (p *Parser) advanceAfterVariableEnd() {
	tok := p.nextToken()
	if tok.Type != TokenVariableEnd {
		p.pushToken(tok)
		p.failAt(tok, "expected variable end")
	}
	p.dropLeadingWhitespace = strings.HasPrefix(tok.Value, "-")
}

// statements

func (p *Parser) parseFor() *Node {
	start := p.blockStart
	forTok := p.peekToken()

	var node *Node
	var endBlock string
	switch {
	case p.skipSymbol("for"):
		node, endBlock = NewNode(KindFor, start.Pos), "endfor"
	case p.skipSymbol("asyncEach"):
		node, endBlock = NewNode(KindAsyncEach, start.Pos), "endeach"
	case p.skipSymbol("asyncAll"):
		node, endBlock = NewNode(KindAsyncAll, start.Pos), "endall"
	default:
		p.failAt(forTok, "parseFor: expected for{Async}")
	}

	name := p.parsePrimary(false)
	if name.Kind != KindSymbol {
		p.failAt(forTok, "parseFor: variable name expected for loop")
	}

	if p.peekToken().Type == TokenComma {
		elems := []*Node{name}
		for p.skip(TokenComma) {
			elems = append(elems, p.parsePrimary(false))
		}
		name = listOf(KindArray, name.Pos, elems)
	}
	node.SetField("name", name)

	if !p.skipSymbol("in") {
		p.failAt(forTok, "parseFor: expected \"in\" keyword for loop")
	}

	node.SetField("arr", p.parseExpression())
	p.advanceAfterBlockEnd(forTok.Value)

	node.SetField("body", p.parseUntilBlocks(endBlock, "else"))

	if p.skipSymbol("else") {
		p.advanceAfterBlockEnd("else")
		node.SetField("else_", p.parseUntilBlocks(endBlock))
	}

	p.advanceAfterBlockEnd("")
	return p.end(node)
}

func (p *Parser) parseMacro() *Node {
	start := p.blockStart
	macroTok := p.peekToken()
	if !p.skipSymbol("macro") {
		p.failAt(macroTok, "expected macro")
	}

	node := NewNode(KindMacro, start.Pos)
	node.SetField("name", p.parsePrimary(true))
	node.SetField("args", p.parseSignature(false))
	p.advanceAfterBlockEnd(macroTok.Value)

	node.SetField("body", p.parseUntilBlocks("endmacro"))
	p.advanceAfterBlockEnd("")
	return p.end(node)
}

func (p *Parser) parseCall() *Node {
	start := p.blockStart
	callTok := p.peekToken()
	if !p.skipSymbol("call") {
		p.failAt(callTok, "expected call")
	}

	callerArgs := p.parseSignature(true)
	if callerArgs == nil {
		callerArgs = NewNode(KindNodeList, p.lastEnd)
	}

	macroCall := p.parsePrimary(false)
	if !macroCall.IsA(KindFunCall) || macroCall.Field("args") == nil {
		p.errorf(macroCall.Pos, "parseCall: expected macro call")
	}
	p.advanceAfterBlockEnd(callTok.Value)

	body := p.parseUntilBlocks("endcall")
	p.advanceAfterBlockEnd("")

	callerName := NewNode(KindSymbol, callTok.Pos)
	callerName.End = callTok.End
	callerName.Value = "caller"

	caller := NewNode(KindCaller, callTok.Pos)
	caller.SetField("name", callerName)
	caller.SetField("args", callerArgs)
	caller.SetField("body", body)
	p.end(caller)

	args := macroCall.Field("args")
	var kwargs *Node
	if n := len(args.Children); n > 0 && args.Children[n-1].Kind == KindKeywordArgs {
		kwargs = args.Children[n-1]
	} else {
		kwargs = NewNode(KindKeywordArgs, caller.Pos)
		args.AddChild(kwargs)
	}

	pair := NewNode(KindPair, callTok.Pos)
	pair.SetField("key", callerName)
	pair.SetField("value", caller)
	pair.cover()
	kwargs.AddChild(pair)

	kwargs.cover()
	args.cover()
	macroCall.cover()

	out := NewNode(KindOutput, start.Pos)
	out.AddChild(macroCall)
	return p.end(out)
}

// parseWithContext returns nil, true or false.
func (p *Parser) parseWithContext() any {
	tok := p.peekToken()

	var withContext any
	if p.skipSymbol("with") {
		withContext = true
	} else if p.skipSymbol("without") {
		withContext = false
	}

	if withContext != nil && !p.skipSymbol("context") {
		p.failAt(tok, "parseFrom: expected context after with/without")
	}
	return withContext
}

func (p *Parser) parseImport() *Node {
	start := p.blockStart
	importTok := p.peekToken()
	if !p.skipSymbol("import") {
		p.failAt(importTok, "parseImport: expected import")
	}

	node := NewNode(KindImport, start.Pos)
	node.SetField("template", p.parseExpression())

	if !p.skipSymbol("as") {
		p.failAt(importTok, "parseImport: expected \"as\" keyword")
	}

	node.SetField("target", p.parseExpression())
	node.Value = p.parseWithContext()
	p.advanceAfterBlockEnd(importTok.Value)
	return p.end(node)
}

func (p *Parser) parseFrom() *Node {
	start := p.blockStart
	fromTok := p.peekToken()
	if !p.skipSymbol("from") {
		p.failAt(fromTok, "parseFrom: expected from")
	}

	node := NewNode(KindFromImport, start.Pos)
	node.SetField("template", p.parseExpression())

	if !p.skipSymbol("import") {
		p.failAt(fromTok, "parseFrom: expected import")
	}

	at := p.lastEnd
	var names []*Node
	for {
		next := p.peekToken()
		if next.Type == TokenBlockEnd {
			if len(names) == 0 {
				p.failAt(fromTok, "parseFrom: Expected at least one import name")
			}
			if strings.HasPrefix(next.Value, "-") {
				p.dropLeadingWhitespace = true
			}
			p.nextToken()
			break
		}

		if len(names) > 0 && !p.skip(TokenComma) {
			p.failAt(fromTok, "parseFrom: expected comma")
		}

		name := p.parsePrimary(false)
		if s, ok := name.Value.(string); ok && strings.HasPrefix(s, "_") {
			p.errorf(name.Pos, "parseFrom: names starting with an underscore cannot be imported")
		}

		if p.skipSymbol("as") {
			alias := p.parsePrimary(false)
			pair := NewNode(KindPair, name.Pos)
			pair.SetField("key", name)
			pair.SetField("value", alias)
			pair.cover()
			names = append(names, pair)
		} else {
			names = append(names, name)
		}

		node.Value = p.parseWithContext()
	}
	node.SetField("names", listOf(KindNodeList, at, names))
	return p.end(node)
}

func (p *Parser) parseBlock() *Node {
	start := p.blockStart
	tag := p.peekToken()
	if !p.skipSymbol("block") {
		p.failAt(tag, "parseBlock: expected block")
	}

	node := NewNode(KindBlock, start.Pos)
	name := p.parsePrimary(false)
	if name.Kind != KindSymbol {
		p.failAt(tag, "parseBlock: variable name expected")
	}
	node.SetField("name", name)
	p.advanceAfterBlockEnd(tag.Value)

	node.SetField("body", p.parseUntilBlocks("endblock"))
	p.skipSymbol("endblock")
	p.skipSymbol(name.Name())

	tok := p.peekToken()
	if tok.Type == TokenEOF {
		p.failAt(tok, "parseBlock: expected endblock, got end of file")
	}
	p.advanceAfterBlockEnd(tok.Value)
	return p.end(node)
}

func (p *Parser) parseExtends() *Node {
	start := p.blockStart
	tag := p.peekToken()
	if !p.skipSymbol("extends") {
		p.failAt(tag, "parseTemplateRef: expected extends")
	}

	node := NewNode(KindExtends, start.Pos)
	node.SetField("template", p.parseExpression())
	p.advanceAfterBlockEnd(tag.Value)
	return p.end(node)
}

func (p *Parser) parseInclude() *Node {
	start := p.blockStart
	tag := p.peekToken()
	if !p.skipSymbol("include") {
		p.failAt(tag, "parseInclude: expected include")
	}

	node := NewNode(KindInclude, start.Pos)
	node.SetField("template", p.parseExpression())
	node.Value = p.skipSymbol("ignore") && p.skipSymbol("missing")
	p.advanceAfterBlockEnd(tag.Value)
	return p.end(node)
}

func (p *Parser) parseIf() *Node {
	start := p.blockStart
	tag := p.peekToken()

	var node *Node
	switch {
	case p.skipSymbol("if"), p.skipSymbol("elif"), p.skipSymbol("elseif"):
		node = NewNode(KindIf, start.Pos)
	case p.skipSymbol("ifAsync"):
		node = NewNode(KindIfAsync, start.Pos)
	default:
		p.failAt(tag, "parseIf: expected if, elif, or elseif")
	}

	node.SetField("cond", p.parseExpression())
	p.advanceAfterBlockEnd(tag.Value)

	node.SetField("body", p.parseUntilBlocks("elif", "elseif", "else", "endif"))

	tok := p.peekToken()
	switch {
	case tok.Type == TokenSymbol && (tok.Value == "elif" || tok.Value == "elseif"):
		node.SetField("else_", p.parseIf())
	case tok.Type == TokenSymbol && tok.Value == "else":
		p.advanceAfterBlockEnd("")
		node.SetField("else_", p.parseUntilBlocks("endif"))
		p.advanceAfterBlockEnd("")
	case tok.Type == TokenSymbol && tok.Value == "endif":
		p.advanceAfterBlockEnd("")
	default:
		p.failAt(tok, "parseIf: expected elif, else, or endif, got end of file")
	}
	return p.end(node)
}

func (p *Parser) parseSet() *Node {
	start := p.blockStart
	tag := p.peekToken()
	if !p.skipSymbol("set") {
		p.failAt(tag, "parseSet: expected set")
	}

	node := NewNode(KindSet, start.Pos)
	var targets []*Node
	for {
		targets = append(targets, p.parsePrimary(false))
		if !p.skip(TokenComma) {
			break
		}
	}
	node.SetField("targets", listOf(KindNodeList, p.lastEnd, targets))

	if p.skipValue(TokenOperator, "=") {
		node.SetField("value", p.parseExpression())
		p.advanceAfterBlockEnd(tag.Value)
		return p.end(node)
	}

	blockEndTok := p.peekToken()
	if !p.skip(TokenBlockEnd) {
		p.failAt(tag, "parseSet: expected = or block end in set tag")
	}
	if strings.HasPrefix(blockEndTok.Value, "-") {
		p.dropLeadingWhitespace = true
	}

	capture := NewNode(KindCapture, blockEndTok.End)
	capture.SetField("body", p.parseUntilBlocks("endset"))
	p.end(capture)
	node.SetField("body", capture)
	p.advanceAfterBlockEnd("")
	return p.end(node)
}

func (p *Parser) parseSwitch() *Node {
	const (
		switchStart = "switch"
		switchEnd   = "endswitch"
		caseStart   = "case"
		caseDefault = "default"
	)

	start := p.blockStart
	tag := p.peekToken()
	if !p.skipSymbol(switchStart) && !p.skipSymbol(caseStart) && !p.skipSymbol(caseDefault) {
		p.failAt(tag, "parseSwitch: expected \"switch,\" \"case\" or \"default\"")
	}

	node := NewNode(KindSwitch, start.Pos)
	node.SetField("expr", p.parseExpression())
	p.advanceAfterBlockEnd(switchStart)

	// anything between the switch tag and the first case is dropped
	p.parseUntilBlocks(caseStart, caseDefault, switchEnd)

	at := p.lastEnd
	var cases []*Node
	tok := p.peekToken()
	for tok.Type == TokenSymbol && tok.Value == caseStart {
		c := NewNode(KindCase, p.blockStart.Pos)
		p.skipSymbol(caseStart)
		c.SetField("cond", p.parseExpression())
		p.advanceAfterBlockEnd(switchStart)
		c.SetField("body", p.parseUntilBlocks(caseStart, caseDefault, switchEnd))
		cases = append(cases, p.end(c))
		tok = p.peekToken()
	}
	node.SetField("cases", listOf(KindNodeList, at, cases))

	switch {
	case tok.Type == TokenSymbol && tok.Value == caseDefault:
		p.advanceAfterBlockEnd("")
		node.SetField("default", p.parseUntilBlocks(switchEnd))
		p.advanceAfterBlockEnd("")
	case tok.Type == TokenSymbol && tok.Value == switchEnd:
		p.advanceAfterBlockEnd("")
	default:
		p.failAt(tok, "parseSwitch: expected \"case,\" \"default\" or \"endswitch,\" got EOF.")
	}
	return p.end(node)
}

// parseStatement dispatches on the tag name. It returns nil when the tag closes an
// enclosing construct.
func (p *Parser) parseStatement() *Node {
	tok := p.peekToken()
	defer p.nest(tok, "tag")()
	if tok.Type != TokenSymbol {
		p.failAt(tok, "tag name expected")
	}

	for _, name := range p.breakOnBlocks {
		if name == tok.Value {
			return nil
		}
	}

	switch tok.Value {
	case "raw":
		return p.parseRaw("raw")
	case "verbatim":
		return p.parseRaw("verbatim")
	case "if", "ifAsync":
		return p.parseIf()
	case "for", "asyncEach", "asyncAll":
		return p.parseFor()
	case "block":
		return p.parseBlock()
	case "extends":
		return p.parseExtends()
	case "include":
		return p.parseInclude()
	case "set":
		return p.parseSet()
	case "macro":
		return p.parseMacro()
	case "call":
		return p.parseCall()
	case "import":
		return p.parseImport()
	case "from":
		return p.parseFrom()
	case "filter":
		return p.parseFilterStatement()
	case "switch":
		return p.parseSwitch()
	}

	p.failAt(tok, "unknown block tag: %s", tok.Value)
	return nil
}

func (p *Parser) parseRaw(tagName string) *Node {
	start := p.blockStart
	p.advanceAfterBlockEnd("")

	if len(p.pending) > 0 {
		p.failAt(p.pending[len(p.pending)-1], "parseRaw: unexpected token")
	}

	data, ok := p.lx.Raw(tagName)
	if !ok {
		p.failAt(start, "parseRaw: expected end%s, got end of file", tagName)
	}
	p.lastEnd = p.lx.Place()

	td := NewNode(KindTemplateData, data.Pos)
	td.End = data.End
	td.Value = data.Value

	out := NewNode(KindOutput, start.Pos)
	out.AddChild(td)
	return p.end(out)
}

func (p *Parser) parseFilterStatement() *Node {
	start := p.blockStart
	filterTok := p.peekToken()
	if !p.skipSymbol("filter") {
		p.failAt(filterTok, "parseFilterStatement: expected filter")
	}

	name := p.parseFilterName()
	args := p.parseFilterArgs()
	blockEndTok := p.advanceAfterBlockEnd(filterTok.Value)

	body := NewNode(KindCapture, blockEndTok.End)
	body.SetField("body", p.parseUntilBlocks("endfilter"))
	p.end(body)
	p.advanceAfterBlockEnd("")

	filter := NewNode(KindFilter, name.Pos)
	filter.SetField("name", name)
	filter.SetField("args", listOf(KindNodeList, name.Pos, append([]*Node{body}, args...)))
	filter.cover()

	out := NewNode(KindOutput, start.Pos)
	out.AddChild(filter)
	return p.end(out)
}

// expressions

func (p *Parser) parsePostfix(node *Node) *Node {
	for {
		tok := p.peekToken()
		switch {
		case tok.Type == TokenLeftParen:
			call := NewNode(KindFunCall, node.Pos)
			call.SetField("name", node)
			call.SetField("args", p.parseSignature(false))
			node = p.end(call)

		case tok.Type == TokenLeftBracket:
			lookup := p.parseAggregate()
			if len(lookup.Children) > 1 {
				p.failAt(tok, "invalid index")
			}
			lv := NewNode(KindLookupVal, tok.Pos)
			lv.SetField("target", node)
			if len(lookup.Children) == 1 {
				lv.SetField("val", lookup.Children[0])
			}
			node = p.end(lv)

		case tok.Type == TokenOperator && tok.Value == ".":
			p.nextToken()
			val := p.nextToken()
			if val.Type != TokenSymbol {
				p.failAt(val, "expected name as lookup value, got %s", val.Value)
			}
			lit := NewNode(KindLiteral, val.Pos)
			lit.End = val.End
			lit.Value = val.Value

			lv := NewNode(KindLookupVal, tok.Pos)
			lv.SetField("target", node)
			lv.SetField("val", lit)
			node = p.end(lv)

		default:
			return node
		}
	}
}

func (p *Parser) parseExpression() *Node {
	defer p.nest(p.peekToken(), "expression")()
	return p.parseInlineIf()
}

func (p *Parser) parseInlineIf() *Node {
	node := p.parseOr()
	if p.skipSymbol("if") {
		cond := p.parseOr()
		inline := NewNode(KindInlineIf, node.Pos)
		inline.SetField("body", node)
		inline.SetField("cond", cond)
		if p.skipSymbol("else") {
			inline.SetField("else_", p.parseOr())
		}
		node = p.end(inline)
	}
	return node
}

func (p *Parser) binOp(kind Kind, left, right *Node) *Node {
	n := NewNode(kind, left.Pos)
	n.SetField("left", left)
	n.SetField("right", right)
	return p.end(n)
}

func (p *Parser) unaryOp(kind Kind, at position.Place, target *Node) *Node {
	n := NewNode(kind, at)
	n.SetField("target", target)
	return p.end(n)
}

func (p *Parser) parseOr() *Node {
	node := p.parseAnd()
	for p.skipSymbol("or") {
		node = p.binOp(KindOr, node, p.parseAnd())
	}
	return node
}

func (p *Parser) parseAnd() *Node {
	node := p.parseNot()
	for p.skipSymbol("and") {
		node = p.binOp(KindAnd, node, p.parseNot())
	}
	return node
}

func (p *Parser) parseNot() *Node {
	tok := p.peekToken()
	if p.skipSymbol("not") {
		defer p.nest(tok, "expression")()
		return p.unaryOp(KindNot, tok.Pos, p.parseNot())
	}
	return p.parseIn()
}

func (p *Parser) parseIn() *Node {
	node := p.parseIs()
	for {
		tok := p.nextToken()
		if tok.Type == TokenEOF {
			p.pushToken(tok)
			return node
		}

		invert := tok.Type == TokenSymbol && tok.Value == "not"
		if !invert {
			p.pushToken(tok)
		}

		if !p.skipSymbol("in") {
			if invert {
				p.pushToken(tok)
			}
			return node
		}

		node = p.binOp(KindIn, node, p.parseIs())
		if invert {
			node = p.unaryOp(KindNot, node.Pos, node)
		}
	}
}

func (p *Parser) parseIs() *Node {
	node := p.parseCompare()
	if p.skipSymbol("is") {
		not := p.skipSymbol("not")
		node = p.binOp(KindIs, node, p.parseCompare())
		if not {
			node = p.unaryOp(KindNot, node.Pos, node)
		}
	}
	return node
}

var compareOps = map[string]bool{
	"==":  true,
	"===": true,
	"!=":  true,
	"!==": true,
	"<":   true,
	">":   true,
	"<=":  true,
	">=":  true,
}

func (p *Parser) parseCompare() *Node {
	expr := p.parseConcat()

	var ops []*Node
	for {
		tok := p.nextToken()
		if tok.Type != TokenOperator || !compareOps[tok.Value] {
			p.pushToken(tok)
			break
		}
		op := NewNode(KindCompareOperand, tok.Pos)
		op.Value = tok.Value
		op.SetField("expr", p.parseConcat())
		ops = append(ops, p.end(op))
	}

	if len(ops) == 0 {
		return expr
	}

	cmp := NewNode(KindCompare, expr.Pos)
	cmp.SetField("expr", expr)
	cmp.SetField("ops", listOf(KindNodeList, ops[0].Pos, ops))
	return p.end(cmp)
}

func (p *Parser) parseConcat() *Node {
	node := p.parseAdd()
	for p.skipValue(TokenTilde, "~") {
		node = p.binOp(KindConcat, node, p.parseAdd())
	}
	return node
}

func (p *Parser) parseAdd() *Node {
	node := p.parseSub()
	for p.skipValue(TokenOperator, "+") {
		node = p.binOp(KindAdd, node, p.parseSub())
	}
	return node
}

func (p *Parser) parseSub() *Node {
	node := p.parseMul()
	for p.skipValue(TokenOperator, "-") {
		node = p.binOp(KindSub, node, p.parseMul())
	}
	return node
}

func (p *Parser) parseMul() *Node {
	node := p.parseDiv()
	for p.skipValue(TokenOperator, "*") {
		node = p.binOp(KindMul, node, p.parseDiv())
	}
	return node
}

func (p *Parser) parseDiv() *Node {
	node := p.parseFloorDiv()
	for p.skipValue(TokenOperator, "/") {
		node = p.binOp(KindDiv, node, p.parseFloorDiv())
	}
	return node
}

func (p *Parser) parseFloorDiv() *Node {
	node := p.parseMod()
	for p.skipValue(TokenOperator, "//") {
		node = p.binOp(KindFloorDiv, node, p.parseMod())
	}
	return node
}

func (p *Parser) parseMod() *Node {
	node := p.parsePow()
	for p.skipValue(TokenOperator, "%") {
		node = p.binOp(KindMod, node, p.parsePow())
	}
	return node
}

func (p *Parser) parsePow() *Node {
	node := p.parseUnary(false)
	for p.skipValue(TokenOperator, "**") {
		node = p.binOp(KindPow, node, p.parseUnary(false))
	}
	return node
}

func (p *Parser) parseUnary(noFilters bool) *Node {
	tok := p.peekToken()

	var node *Node
	switch {
	case p.skipValue(TokenOperator, "-"):
		defer p.nest(tok, "expression")()
		node = p.unaryOp(KindNeg, tok.Pos, p.parseUnary(true))
	case p.skipValue(TokenOperator, "+"):
		defer p.nest(tok, "expression")()
		node = p.unaryOp(KindPos, tok.Pos, p.parseUnary(true))
	default:
		node = p.parsePrimary(false)
	}

	if !noFilters {
		node = p.parseFilter(node)
	}
	return node
}

func (p *Parser) parsePrimary(noPostfix bool) *Node {
	tok := p.nextToken()

	var node *Node
	literal := func(v any) {
		node = NewNode(KindLiteral, tok.Pos)
		node.End = tok.End
		node.Value = v
	}

	switch tok.Type {
	case TokenEOF:
		p.failAt(tok, "expected expression, got end of file")
	case TokenString:
		literal(tok.Value)
	case TokenInt:
		if v, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
			literal(v)
			break
		}
		// out of int64 range, still a number
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.failAt(tok, "invalid int: %s", tok.Value)
		}
		literal(v)
	case TokenFloat:
		v, err := strconv.ParseFloat(strings.TrimSuffix(tok.Value, "."), 64)
		if err != nil {
			p.failAt(tok, "invalid float: %s", tok.Value)
		}
		literal(v)
	case TokenBoolean:
		literal(tok.Value == "true")
	case TokenNone:
		literal(nil)
	case TokenRegex:
		literal(&Regex{Body: tok.Value, Flags: tok.Flags})
	case TokenSymbol:
		node = NewNode(KindSymbol, tok.Pos)
		node.End = tok.End
		node.Value = tok.Value
	default:
		p.pushToken(tok)
		node = p.parseAggregate()
	}

	if node == nil {
		p.failAt(tok, "unexpected token: %s", tok.Value)
	}

	if !noPostfix {
		node = p.parsePostfix(node)
	}
	return node
}

func (p *Parser) parseFilterName() *Node {
	tok := p.expect(TokenSymbol)
	name := tok.Value

	for p.skipValue(TokenOperator, ".") {
		name += "." + p.expect(TokenSymbol).Value
	}

	node := NewNode(KindSymbol, tok.Pos)
	node.Value = name
	return p.end(node)
}

func (p *Parser) parseFilterArgs() []*Node {
	if p.peekToken().Type == TokenLeftParen {
		return p.parseSignature(false).Children
	}
	return nil
}

func (p *Parser) parseFilter(node *Node) *Node {
	for p.skip(TokenPipe) {
		name := p.parseFilterName()

		filter := NewNode(KindFilter, name.Pos)
		filter.SetField("name", name)
		filter.SetField("args", listOf(KindNodeList, name.Pos, append([]*Node{node}, p.parseFilterArgs()...)))
		node = p.end(filter)
	}
	return node
}

// parseAggregate returns nil, with the token pushed back, when no group, array or dict starts here.
func (p *Parser) parseAggregate() *Node {
	tok := p.nextToken()

	var node *Node
	switch tok.Type {
	case TokenLeftParen:
		node = NewNode(KindGroup, tok.Pos)
	case TokenLeftBracket:
		node = NewNode(KindArray, tok.Pos)
	case TokenLeftCurly:
		node = NewNode(KindDict, tok.Pos)
	default:
		p.pushToken(tok)
		return nil
	}

	for {
		typ := p.peekToken().Type
		if typ == TokenRightParen || typ == TokenRightBracket || typ == TokenRightCurly {
			p.nextToken()
			break
		}

		if len(node.Children) > 0 && !p.skip(TokenComma) {
			p.failAt(tok, "parseAggregate: expected comma after expression")
		}

		if node.Kind == KindDict {
			// keys skip parseExpression but may nest dicts themselves
			leave := p.nest(tok, "expression")
			key := p.parsePrimary(false)
			leave()
			if !p.skip(TokenColon) {
				p.failAt(tok, "parseAggregate: expected colon after dict key")
			}
			pair := NewNode(KindPair, key.Pos)
			pair.SetField("key", key)
			pair.SetField("value", p.parseExpression())
			node.AddChild(p.end(pair))
		} else {
			node.AddChild(p.parseExpression())
		}
	}
	return p.end(node)
}

// parseSignature parses a parenthesized argument list. Keyword arguments are collected into a
// trailing KeywordArgs. When tolerant is set and no list starts here it returns nil.
func (p *Parser) parseSignature(tolerant bool) *Node {
	tok := p.peekToken()
	if tok.Type != TokenLeftParen {
		if tolerant {
			return nil
		}
		p.failAt(tok, "expected arguments")
	}
	p.nextToken()

	args := NewNode(KindNodeList, tok.Pos)
	kwargs := NewNode(KindKeywordArgs, tok.Pos)

	checkComma := false
	for {
		next := p.peekToken()
		if next.Type == TokenRightParen {
			p.nextToken()
			break
		}

		if checkComma && !p.skip(TokenComma) {
			p.failAt(next, "parseSignature: expected comma after expression")
		}

		arg := p.parseExpression()
		if p.skipValue(TokenOperator, "=") {
			pair := NewNode(KindPair, arg.Pos)
			pair.SetField("key", arg)
			pair.SetField("value", p.parseExpression())
			kwargs.AddChild(p.end(pair))
		} else {
			args.AddChild(arg)
		}
		checkComma = true
	}

	if len(kwargs.Children) > 0 {
		kwargs.cover()
		args.AddChild(kwargs)
	}
	return p.end(args)
}

// top level

func (p *Parser) parseUntilBlocks(names ...string) *Node {
	prev := p.breakOnBlocks
	p.breakOnBlocks = names
	defer func() { p.breakOnBlocks = prev }()

	return p.parse()
}

func (p *Parser) parse() *Node {
	buf := &NodeBuffer{}
	at := p.lastEnd
	p.parseNodes(buf)

	return listOf(KindNodeList, at, buf.Nodes())
}

// listOf builds a list node spanning exactly its children, or an empty span at at.
func listOf(kind Kind, at position.Place, children []*Node) *Node {
	n := NewNode(kind, at)
	if len(children) > 0 {
		n.Pos, n.End = children[0].Pos, children[0].End
	}
	n.Children = children
	n.cover()
	return n
}

func (p *Parser) parseNodes(buf *NodeBuffer) {
	for {
		tok := p.nextToken()

		switch tok.Type {
		case TokenEOF:
			p.pushToken(tok)
			return

		case TokenData:
			data := tok.Value
			if p.dropLeadingWhitespace {
				data = strings.TrimLeftFunc(data, unicode.IsSpace)
				p.dropLeadingWhitespace = false
			}

			td := NewNode(KindTemplateData, tok.Pos)
			td.End = tok.End
			td.Value = data

			out := NewNode(KindOutput, tok.Pos)
			out.AddChild(td)
			out.cover()
			// appended before peeking so a lex error in the next tag keeps the data
			buf.Append(out)

			if trimsPrecedingData(p.peekToken()) {
				td.Value = strings.TrimRightFunc(data, unicode.IsSpace)
			}

		case TokenBlockStart:
			p.dropLeadingWhitespace = false
			p.blockStart = tok
			n := p.parseStatement()
			if n == nil {
				return
			}
			buf.Append(n)

		case TokenVariableStart:
			e := p.parseExpression()
			p.dropLeadingWhitespace = false
			p.advanceAfterVariableEnd()

			out := NewNode(KindOutput, tok.Pos)
			out.AddChild(e)
			buf.Append(p.end(out))

		case TokenComment:
			v := tok.Value
			p.dropLeadingWhitespace = len(v) >= len(commentEnd)+1 && v[len(v)-len(commentEnd)-1] == '-'

		default:
			p.failAt(tok, "Unexpected token at top-level: %s", tok.Type)
		}
	}
}

// trimsPrecedingData reports whether tok opens a tag with a trim marker, as in "{%-".
func trimsPrecedingData(tok Token) bool {
	switch tok.Type {
	case TokenBlockStart:
		return strings.HasSuffix(tok.Value, "-")
	case TokenVariableStart:
		return len(tok.Value) > len(variableStart) && tok.Value[len(variableStart)] == '-'
	case TokenComment:
		return len(tok.Value) > len(commentStart) && tok.Value[len(commentStart)] == '-'
	}
	return false
}
