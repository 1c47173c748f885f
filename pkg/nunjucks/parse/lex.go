package parse

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/walteh/gonunjucks/pkg/position"
)

// TokenType identifies the type of lex items.
type TokenType string

const (
	TokenString        TokenType = "string"
	TokenWhitespace    TokenType = "whitespace"
	TokenData          TokenType = "data"
	TokenBlockStart    TokenType = "block-start"
	TokenBlockEnd      TokenType = "block-end"
	TokenVariableStart TokenType = "variable-start"
	TokenVariableEnd   TokenType = "variable-end"
	TokenComment       TokenType = "comment"
	TokenLeftParen     TokenType = "left-paren"
	TokenRightParen    TokenType = "right-paren"
	TokenLeftBracket   TokenType = "left-bracket"
	TokenRightBracket  TokenType = "right-bracket"
	TokenLeftCurly     TokenType = "left-curly"
	TokenRightCurly    TokenType = "right-curly"
	TokenOperator      TokenType = "operator"
	TokenComma         TokenType = "comma"
	TokenColon         TokenType = "colon"
	TokenTilde         TokenType = "tilde"
	TokenPipe          TokenType = "pipe"
	TokenInt           TokenType = "int"
	TokenFloat         TokenType = "float"
	TokenBoolean       TokenType = "boolean"
	TokenNone          TokenType = "none"
	TokenSymbol        TokenType = "symbol"
	TokenRegex         TokenType = "regex"
	TokenEOF           TokenType = "EOF"
)

const (
	blockStart    = "{%"
	blockEnd      = "%}"
	variableStart = "{{"
	variableEnd   = "}}"
	commentStart  = "{#"
	commentEnd    = "#}"

	whitespaceChars = " \n\t\r\u00a0"
	delimChars      = "()[]{}%*-+~/#,:|.<>=!"
	intChars        = "0123456789"
	regexFlags      = "gimy"

	// first characters of every tag that can interrupt a data run
	beginChars = "{#"
)

var complexOps = map[string]bool{
	"==":  true,
	"===": true,
	"!=":  true,
	"!==": true,
	"<=":  true,
	">=":  true,
	"//":  true,
	"**":  true,
}

// Token is a single lexeme. Pos and End are editor coordinates, Offset is the byte offset of Pos.
type Token struct {
	Type   TokenType
	Value  string
	Flags  string // regex only
	Pos    position.Place
	End    position.Place
	Offset int
}

func (t Token) String() string {
	switch {
	case t.Type == TokenEOF:
		return "EOF"
	case len(t.Value) > 20:
		return fmt.Sprintf("%s %.20q...", t.Type, t.Value)
	}
	return fmt.Sprintf("%s %q", t.Type, t.Value)
}

func (t Token) Range() position.Range {
	return position.Range{Start: t.Pos, End: t.End}
}

// Lexer produces tokens on demand. It holds no buffered token list.
type Lexer struct {
	input  string
	pos    int
	line   int
	col    int
	inCode bool
}

type mark struct {
	place  position.Place
	offset int
}

func Lex(input string) *Lexer {
	return &Lexer{input: input}
}

// Place is the editor coordinate of the next unread byte.
func (l *Lexer) Place() position.Place {
	return position.Place{Line: l.line, Character: l.col}
}

// Next returns the next token. After the input is exhausted it keeps returning a TokenEOF.
func (l *Lexer) Next() (Token, error) {
	start := l.mark()

	if l.finished() {
		return l.emit(TokenEOF, "", start), nil
	}

	if l.inCode {
		return l.lexCode(start)
	}
	return l.lexText(start)
}

func (l *Lexer) lexCode(start mark) (Token, error) {
	cur := l.current()

	if cur == '"' || cur == '\'' {
		str, ok := l.lexString(cur)
		if !ok {
			return Token{}, l.errorf(start, "expected end of string")
		}
		return l.emit(TokenString, str, start), nil
	}

	if ws := l.extract(whitespaceChars); ws != "" {
		return l.emit(TokenWhitespace, ws, start), nil
	}

	if tok := l.extractFirst(blockEnd, "-"+blockEnd); tok != "" {
		l.inCode = false
		return l.emit(TokenBlockEnd, tok, start), nil
	}

	if tok := l.extractFirst(variableEnd, "-"+variableEnd); tok != "" {
		l.inCode = false
		return l.emit(TokenVariableEnd, tok, start), nil
	}

	if cur == 'r' && l.peek(1) == '/' {
		return l.lexRegex(start)
	}

	if strings.IndexByte(delimChars, cur) >= 0 {
		op := string(cur)
		l.forward(1)
		if l.pos < len(l.input) && complexOps[op+string(l.current())] {
			op += string(l.current())
			l.forward(1)
			if l.pos < len(l.input) && complexOps[op+string(l.current())] {
				op += string(l.current())
				l.forward(1)
			}
		}

		typ := TokenOperator
		switch op {
		case "(":
			typ = TokenLeftParen
		case ")":
			typ = TokenRightParen
		case "[":
			typ = TokenLeftBracket
		case "]":
			typ = TokenRightBracket
		case "{":
			typ = TokenLeftCurly
		case "}":
			typ = TokenRightCurly
		case ",":
			typ = TokenComma
		case ":":
			typ = TokenColon
		case "~":
			typ = TokenTilde
		case "|":
			typ = TokenPipe
		}
		return l.emit(typ, op, start), nil
	}

	word := l.extractUntil(whitespaceChars + delimChars)
	switch {
	case word == "":
		return Token{}, l.errorf(start, "unexpected value while parsing: %q", l.input[l.pos:l.pos+1])
	case isInt(word):
		if l.pos < len(l.input) && l.current() == '.' {
			l.forward(1)
			dec := l.extract(intChars)
			return l.emit(TokenFloat, word+"."+dec, start), nil
		}
		return l.emit(TokenInt, word, start), nil
	case word == "true" || word == "false":
		return l.emit(TokenBoolean, word, start), nil
	case word == "none" || word == "null":
		return l.emit(TokenNone, word, start), nil
	}
	return l.emit(TokenSymbol, word, start), nil
}

func (l *Lexer) lexText(start mark) (Token, error) {
	if tok := l.extractFirst(blockStart+"-", blockStart); tok != "" {
		l.inCode = true
		return l.emit(TokenBlockStart, tok, start), nil
	}

	if tok := l.extractFirst(variableStart+"-", variableStart); tok != "" {
		l.inCode = true
		return l.emit(TokenVariableStart, tok, start), nil
	}

	var sb strings.Builder
	inComment := l.matches(commentStart)
	closed := false
	if inComment {
		sb.WriteString(l.extractFirst(commentStart+"-", commentStart))
	}

	for !l.finished() {
		sb.WriteString(l.extractUntil(beginChars))

		if l.finished() {
			break
		}

		if !inComment && (l.matches(blockStart) || l.matches(variableStart) || l.matches(commentStart)) {
			break
		}

		if l.matches(commentEnd) {
			if !inComment {
				return Token{}, l.errorf(l.mark(), "unexpected end of comment")
			}
			sb.WriteString(l.extractFirst(commentEnd))
			closed = true
			break
		}

		sb.WriteByte(l.current())
		l.forward(1)
	}

	if inComment {
		if !closed {
			return Token{}, l.errorf(start, "expected end of comment, got end of file")
		}
		return l.emit(TokenComment, sb.String(), start), nil
	}
	return l.emit(TokenData, sb.String(), start), nil
}

func (l *Lexer) lexString(delim byte) (string, bool) {
	l.forward(1)

	var sb strings.Builder
	for !l.finished() && l.current() != delim {
		cur := l.current()
		if cur != '\\' {
			r, size := utf8.DecodeRuneInString(l.input[l.pos:])
			sb.WriteRune(r)
			l.forward(size)
			continue
		}

		l.forward(1)
		if l.finished() {
			break
		}
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		switch r {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteRune(r)
		}
		l.forward(size)
	}

	if l.finished() {
		return sb.String(), false
	}
	l.forward(1)
	return sb.String(), true
}

func (l *Lexer) lexRegex(start mark) (Token, error) {
	l.forward(2)

	var body strings.Builder
	terminated := false
	for !l.finished() {
		if l.current() == '/' && l.previous() != '\\' {
			l.forward(1)
			terminated = true
			break
		}
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		body.WriteRune(r)
		l.forward(size)
	}
	if !terminated {
		return Token{}, l.errorf(start, "expected end of regex")
	}

	flags := l.extract(regexFlags)
	tok := l.emit(TokenRegex, body.String(), start)
	tok.Flags = flags
	return tok, nil
}

var rawTagPattern = regexp.MustCompile(`\{%-?\s*(\w+)\s*-?%\}`)

// Raw consumes everything up to the end tag matching an already opened raw-style tag,
// counting nested opens. The returned data token holds the body, the end tag itself is
// consumed and never emitted. ok is false when the end tag is missing; the lexer does not
// move in that case.
func (l *Lexer) Raw(tag string) (tok Token, ok bool) {
	endTag := "end" + tag
	level := 1

	for from := l.pos; from < len(l.input); {
		loc := rawTagPattern.FindStringSubmatchIndex(l.input[from:])
		if loc == nil {
			break
		}

		matchStart, matchEnd := from+loc[0], from+loc[1]
		switch l.input[from+loc[2] : from+loc[3]] {
		case tag:
			level++
		case endTag:
			level--
		}

		if level == 0 {
			start := l.mark()
			body := l.input[l.pos:matchStart]
			l.forward(len(body))
			tok = l.emit(TokenData, body, start)
			l.forward(matchEnd - matchStart)
			return tok, true
		}
		from = matchEnd
	}

	return Token{}, false
}

func (l *Lexer) mark() mark {
	return mark{place: l.Place(), offset: l.pos}
}

func (l *Lexer) emit(typ TokenType, value string, start mark) Token {
	return Token{
		Type:   typ,
		Value:  value,
		Pos:    start.place,
		End:    l.Place(),
		Offset: start.offset,
	}
}

func (l *Lexer) errorf(at mark, format string, args ...any) *LexError {
	return &LexError{
		Msg:  fmt.Sprintf(format, args...),
		Line: at.place.Line,
		Col:  at.place.Character,
	}
}

func (l *Lexer) finished() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) current() byte {
	return l.input[l.pos]
}

func (l *Lexer) peek(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) previous() byte {
	if l.pos == 0 {
		return 0
	}
	return l.input[l.pos-1]
}

// forward advances n bytes, keeping line and UTF-16 column in step.
func (l *Lexer) forward(n int) {
	end := min(l.pos+n, len(l.input))
	for l.pos < end {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if r == '\n' {
			l.line++
			l.col = 0
		} else {
			l.col += position.UTF16RuneLen(r)
		}
		l.pos += size
	}
}

func (l *Lexer) matches(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// extractFirst consumes the first of the candidates that matches.
func (l *Lexer) extractFirst(candidates ...string) string {
	for _, s := range candidates {
		if l.matches(s) {
			l.forward(len(s))
			return s
		}
	}
	return ""
}

// extract consumes a run of runes that are all in chars.
func (l *Lexer) extract(chars string) string {
	return l.extractMatching(chars, false)
}

// extractUntil consumes a run of runes up to the first rune in chars.
func (l *Lexer) extractUntil(chars string) string {
	return l.extractMatching(chars, true)
}

func (l *Lexer) extractMatching(chars string, breakOnMatch bool) string {
	i := l.pos
	for i < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[i:])
		if strings.ContainsRune(chars, r) == breakOnMatch {
			break
		}
		i += size
	}
	s := l.input[l.pos:i]
	l.forward(len(s))
	return s
}

func isInt(s string) bool {
	digits := strings.TrimLeft(s[:1], "+-") + s[1:]
	if digits == "" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}
