package semtok

import (
	"github.com/walteh/gonunjucks/pkg/position"
)

// TokenType represents the semantic meaning of a token
type TokenType uint32

const (
	// TokenVariable represents a template variable (e.g., user)
	TokenVariable TokenType = iota + 1

	// TokenFunction represents a filter or a called function (e.g., upper, range)
	TokenFunction

	// TokenKeyword represents a tag name or keyword operator (e.g., for, in)
	TokenKeyword

	// TokenOperator represents an operator (e.g., |, ==, ~)
	TokenOperator

	// TokenString represents a string or regex literal
	TokenString

	// TokenComment represents a template comment
	TokenComment

	// TokenNumber represents a numeric literal (e.g., 0, 1.5)
	TokenNumber
)

// TokenModifier is a bit set of additional characteristics of a token
type TokenModifier uint32

const (
	// ModifierNone indicates no special characteristics
	ModifierNone TokenModifier = 0

	// ModifierDeclaration indicates a name being introduced (loop variables, set targets)
	ModifierDeclaration TokenModifier = 1 << (iota - 1)

	// ModifierReadonly indicates a constant
	ModifierReadonly

	// ModifierStatic indicates a global item
	ModifierStatic
)

// Token represents a semantic token with its type, modifiers, and position
type Token struct {
	Type     TokenType
	Modifier TokenModifier
	Range    position.Range
}

// TokenTypes is the legend of token types, indexed by TokenType-1.
func TokenTypes() []string {
	return []string{"variable", "function", "keyword", "operator", "string", "comment", "number"}
}

// TokenModifiers is the legend of modifiers, indexed by bit position.
func TokenModifiers() []string {
	return []string{"declaration", "readonly", "static"}
}

// String returns a human-readable representation of the token type
func (t TokenType) String() string {
	if t == 0 || int(t) > len(TokenTypes()) {
		return "unknown"
	}
	return TokenTypes()[t-1]
}

// String returns a human-readable representation of the token modifier
func (m TokenModifier) String() string {
	switch m {
	case ModifierNone:
		return "none"
	case ModifierDeclaration:
		return "declaration"
	case ModifierReadonly:
		return "readonly"
	case ModifierStatic:
		return "static"
	default:
		return "unknown"
	}
}
