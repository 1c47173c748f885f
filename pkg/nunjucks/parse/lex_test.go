package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gonunjucks/pkg/nunjucks/parse"
	"github.com/walteh/gonunjucks/pkg/position"
)

type tv struct {
	typ parse.TokenType
	val string
}

func lexAll(t *testing.T, input string) []parse.Token {
	t.Helper()

	lx := parse.Lex(input)
	var toks []parse.Token
	for i := 0; i < 10000; i++ {
		tok, err := lx.Next()
		require.NoError(t, err)
		if tok.Type == parse.TokenEOF {
			return toks
		}
		if tok.Type != parse.TokenWhitespace {
			toks = append(toks, tok)
		}
	}
	t.Fatal("lexer did not reach EOF")
	return nil
}

func typesAndValues(toks []parse.Token) []tv {
	out := make([]tv, len(toks))
	for i, tok := range toks {
		out[i] = tv{tok.Type, tok.Value}
	}
	return out
}

func TestLexer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []tv
	}{
		{
			name:  "data and variable",
			input: "hello {{ name }}",
			want: []tv{
				{parse.TokenData, "hello "},
				{parse.TokenVariableStart, "{{"},
				{parse.TokenSymbol, "name"},
				{parse.TokenVariableEnd, "}}"},
			},
		},
		{
			name:  "trim markers stay in the delimiter",
			input: "{%- if x -%}",
			want: []tv{
				{parse.TokenBlockStart, "{%-"},
				{parse.TokenSymbol, "if"},
				{parse.TokenSymbol, "x"},
				{parse.TokenBlockEnd, "-%}"},
			},
		},
		{
			name:  "variable trim markers",
			input: "{{- a-}}",
			want: []tv{
				{parse.TokenVariableStart, "{{-"},
				{parse.TokenSymbol, "a"},
				{parse.TokenVariableEnd, "-}}"},
			},
		},
		{
			name:  "comment is a single token",
			input: "a{# c -#}b",
			want: []tv{
				{parse.TokenData, "a"},
				{parse.TokenComment, "{# c -#}"},
				{parse.TokenData, "b"},
			},
		},
		{
			name:  "lone braces and hashes are data",
			input: "a { b # c",
			want: []tv{
				{parse.TokenData, "a { b # c"},
			},
		},
		{
			name:  "compound operators",
			input: "{{ a == b != c // 2 ** 3 === d !== e <= f >= g }}",
			want: []tv{
				{parse.TokenVariableStart, "{{"},
				{parse.TokenSymbol, "a"},
				{parse.TokenOperator, "=="},
				{parse.TokenSymbol, "b"},
				{parse.TokenOperator, "!="},
				{parse.TokenSymbol, "c"},
				{parse.TokenOperator, "//"},
				{parse.TokenInt, "2"},
				{parse.TokenOperator, "**"},
				{parse.TokenInt, "3"},
				{parse.TokenOperator, "==="},
				{parse.TokenSymbol, "d"},
				{parse.TokenOperator, "!=="},
				{parse.TokenSymbol, "e"},
				{parse.TokenOperator, "<="},
				{parse.TokenSymbol, "f"},
				{parse.TokenOperator, ">="},
				{parse.TokenSymbol, "g"},
				{parse.TokenVariableEnd, "}}"},
			},
		},
		{
			name:  "scalars",
			input: "{{ 1 2.5 true false none null }}",
			want: []tv{
				{parse.TokenVariableStart, "{{"},
				{parse.TokenInt, "1"},
				{parse.TokenFloat, "2.5"},
				{parse.TokenBoolean, "true"},
				{parse.TokenBoolean, "false"},
				{parse.TokenNone, "none"},
				{parse.TokenNone, "null"},
				{parse.TokenVariableEnd, "}}"},
			},
		},
		{
			name:  "string escapes",
			input: "{{ \"a\\\"b\\n\" 'c' }}",
			want: []tv{
				{parse.TokenVariableStart, "{{"},
				{parse.TokenString, "a\"b\n"},
				{parse.TokenString, "c"},
				{parse.TokenVariableEnd, "}}"},
			},
		},
		{
			name:  "punctuation",
			input: "{{ f(a, [1], {k: v}) ~ x | y }}",
			want: []tv{
				{parse.TokenVariableStart, "{{"},
				{parse.TokenSymbol, "f"},
				{parse.TokenLeftParen, "("},
				{parse.TokenSymbol, "a"},
				{parse.TokenComma, ","},
				{parse.TokenLeftBracket, "["},
				{parse.TokenInt, "1"},
				{parse.TokenRightBracket, "]"},
				{parse.TokenComma, ","},
				{parse.TokenLeftCurly, "{"},
				{parse.TokenSymbol, "k"},
				{parse.TokenColon, ":"},
				{parse.TokenSymbol, "v"},
				{parse.TokenRightCurly, "}"},
				{parse.TokenRightParen, ")"},
				{parse.TokenTilde, "~"},
				{parse.TokenSymbol, "x"},
				{parse.TokenPipe, "|"},
				{parse.TokenSymbol, "y"},
				{parse.TokenVariableEnd, "}}"},
			},
		},
		{
			name:  "unclosed variable is a plain token stream",
			input: "{{ foo }",
			want: []tv{
				{parse.TokenVariableStart, "{{"},
				{parse.TokenSymbol, "foo"},
				{parse.TokenRightCurly, "}"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := typesAndValues(lexAll(t, tt.input))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLexerRegex(t *testing.T) {
	toks := lexAll(t, "{{ r/ab+c/gi }}")
	require.Len(t, toks, 3)
	assert.Equal(t, parse.TokenRegex, toks[1].Type)
	assert.Equal(t, "ab+c", toks[1].Value)
	assert.Equal(t, "gi", toks[1].Flags)
}

func TestLexerPositions(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		index   int
		wantPos position.Place
		wantEnd position.Place
	}{
		{
			name:    "symbol after data",
			input:   "hello {{ name }}",
			index:   2,
			wantPos: position.Place{Line: 0, Character: 9},
			wantEnd: position.Place{Line: 0, Character: 13},
		},
		{
			name:    "second line",
			input:   "<div>\n    {{ data | first }}",
			index:   4,
			wantPos: position.Place{Line: 1, Character: 14},
			wantEnd: position.Place{Line: 1, Character: 19},
		},
		{
			name:    "utf-16 columns",
			input:   "😀{{ x }}",
			index:   2,
			wantPos: position.Place{Line: 0, Character: 5},
			wantEnd: position.Place{Line: 0, Character: 6},
		},
		{
			name:    "data spanning lines",
			input:   "a\nbc{{ x }}",
			index:   0,
			wantPos: position.Place{Line: 0, Character: 0},
			wantEnd: position.Place{Line: 1, Character: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := lexAll(t, tt.input)
			require.Greater(t, len(toks), tt.index)
			assert.Equal(t, tt.wantPos, toks[tt.index].Pos)
			assert.Equal(t, tt.wantEnd, toks[tt.index].End)
		})
	}
}

func TestLexerEOFRepeats(t *testing.T) {
	lx := parse.Lex("x")
	_, err := lx.Next()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tok, err := lx.Next()
		require.NoError(t, err)
		assert.Equal(t, parse.TokenEOF, tok.Type)
		assert.Equal(t, position.Place{Line: 0, Character: 1}, tok.Pos)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
		wantPos position.Place
	}{
		{
			name:    "unterminated string",
			input:   `{{ "abc`,
			wantMsg: "expected end of string",
			wantPos: position.Place{Line: 0, Character: 3},
		},
		{
			name:    "stray comment end",
			input:   "a #} b",
			wantMsg: "unexpected end of comment",
			wantPos: position.Place{Line: 0, Character: 2},
		},
		{
			name:    "unterminated comment",
			input:   "x\n{# abc",
			wantMsg: "expected end of comment, got end of file",
			wantPos: position.Place{Line: 1, Character: 0},
		},
		{
			name:    "unterminated regex",
			input:   "{{ r/abc",
			wantMsg: "expected end of regex",
			wantPos: position.Place{Line: 0, Character: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lx := parse.Lex(tt.input)
			var err error
			for i := 0; i < 100 && err == nil; i++ {
				var tok parse.Token
				tok, err = lx.Next()
				if err == nil && tok.Type == parse.TokenEOF {
					break
				}
			}
			require.Error(t, err)

			var lexErr *parse.LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Equal(t, tt.wantMsg, lexErr.Message())
			assert.Equal(t, tt.wantPos, lexErr.Place())
		})
	}
}
