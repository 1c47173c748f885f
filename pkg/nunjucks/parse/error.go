package parse

import (
	"fmt"

	"github.com/walteh/gonunjucks/pkg/position"
)

// Error is implemented by every failure the lexer or parser can raise.
type Error interface {
	error
	Message() string
	Place() position.Place
}

var (
	_ Error = (*LexError)(nil)
	_ Error = (*ParseError)(nil)
)

// LexError is a malformed token: an unterminated string, regex or comment, or a stray delimiter.
type LexError struct {
	Msg  string
	Line int
	Col  int
}

func (me *LexError) Error() string {
	return fmt.Sprintf("%d:%d: %s", me.Line, me.Col, me.Msg)
}

func (me *LexError) Message() string { return me.Msg }

func (me *LexError) Place() position.Place {
	return position.Place{Line: me.Line, Character: me.Col}
}

// ParseError is an unexpected token or a missing closing construct, located at the offending token.
type ParseError struct {
	Msg  string
	Line int
	Col  int
}

func (me *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", me.Line, me.Col, me.Msg)
}

func (me *ParseError) Message() string { return me.Msg }

func (me *ParseError) Place() position.Place {
	return position.Place{Line: me.Line, Character: me.Col}
}
