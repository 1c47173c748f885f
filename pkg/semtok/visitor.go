package semtok

import (
	"github.com/walteh/gonunjucks/pkg/nunjucks/parse"
)

// symbols that read as keywords inside a tag or expression
var keywordSymbols = map[string]bool{
	"in":        true,
	"as":        true,
	"and":       true,
	"or":        true,
	"not":       true,
	"is":        true,
	"if":        true,
	"else":      true,
	"import":    true,
	"with":      true,
	"without":   true,
	"context":   true,
	"ignore":    true,
	"missing":   true,
	"recursive": true,
}

// tags whose first names are declarations
var declaringTags = map[string]bool{
	"for":       true,
	"asyncEach": true,
	"asyncAll":  true,
	"set":       true,
	"macro":     true,
	"block":     true,
}

// tokenVisitor classifies lexer tokens one at a time
type tokenVisitor struct {
	tokens []Token

	inTag        bool
	expectTag    bool
	afterPipe    bool
	declaring    bool
	lastSymbolAt int
}

func newTokenVisitor() *tokenVisitor {
	return &tokenVisitor{lastSymbolAt: -1}
}

func (v *tokenVisitor) emit(tok parse.Token, typ TokenType, mod TokenModifier) {
	v.tokens = append(v.tokens, Token{
		Type:     typ,
		Modifier: mod,
		Range:    tok.Range(),
	})
}

func (v *tokenVisitor) visit(tok parse.Token) {
	if tok.Type == parse.TokenWhitespace {
		return
	}

	lastSymbolAt := v.lastSymbolAt
	v.lastSymbolAt = -1
	afterPipe := v.afterPipe
	v.afterPipe = false

	switch tok.Type {
	case parse.TokenBlockStart:
		v.inTag, v.expectTag = true, true
	case parse.TokenBlockEnd:
		v.inTag, v.expectTag, v.declaring = false, false, false
	case parse.TokenVariableStart, parse.TokenVariableEnd, parse.TokenData:
		v.expectTag, v.declaring = false, false
	case parse.TokenComment:
		v.emit(tok, TokenComment, ModifierNone)
	case parse.TokenString, parse.TokenRegex:
		v.emit(tok, TokenString, ModifierNone)
	case parse.TokenInt, parse.TokenFloat:
		v.emit(tok, TokenNumber, ModifierNone)
	case parse.TokenBoolean, parse.TokenNone:
		v.emit(tok, TokenKeyword, ModifierReadonly)
	case parse.TokenPipe:
		v.afterPipe = true
		v.emit(tok, TokenOperator, ModifierNone)
	case parse.TokenOperator, parse.TokenTilde:
		if tok.Value == "=" {
			v.declaring = false
		}
		v.emit(tok, TokenOperator, ModifierNone)
	case parse.TokenLeftParen:
		v.declaring = false
		if lastSymbolAt >= 0 && v.tokens[lastSymbolAt].Type == TokenVariable {
			v.tokens[lastSymbolAt].Type = TokenFunction
			v.tokens[lastSymbolAt].Modifier &^= ModifierDeclaration
		}
	case parse.TokenSymbol:
		v.visitSymbol(tok, afterPipe)
	}
}

func (v *tokenVisitor) visitSymbol(tok parse.Token, afterPipe bool) {
	switch {
	case v.inTag && v.expectTag:
		v.expectTag = false
		v.declaring = declaringTags[tok.Value]
		v.emit(tok, TokenKeyword, ModifierNone)
	case afterPipe:
		v.emit(tok, TokenFunction, ModifierNone)
	case keywordSymbols[tok.Value]:
		if tok.Value == "in" {
			v.declaring = false
		}
		v.emit(tok, TokenKeyword, ModifierNone)
	case v.declaring:
		v.lastSymbolAt = len(v.tokens)
		v.emit(tok, TokenVariable, ModifierDeclaration)
	default:
		v.lastSymbolAt = len(v.tokens)
		v.emit(tok, TokenVariable, ModifierNone)
	}
}
