package semtok_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gonunjucks/pkg/position"
	"github.com/walteh/gonunjucks/pkg/semtok"
)

func tok(typ semtok.TokenType, mod semtok.TokenModifier, line, start, end int) semtok.Token {
	return semtok.Token{Type: typ, Modifier: mod, Range: position.NewRange(line, start, line, end)}
}

func TestGetTokensForText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []semtok.Token
	}{
		{
			name:  "filter pipeline",
			input: "{{ name | upper }}",
			expected: []semtok.Token{
				tok(semtok.TokenVariable, semtok.ModifierNone, 0, 3, 7),
				tok(semtok.TokenOperator, semtok.ModifierNone, 0, 8, 9),
				tok(semtok.TokenFunction, semtok.ModifierNone, 0, 10, 15),
			},
		},
		{
			name:  "for loop",
			input: "{% for x in items %}{{ x }}{% endfor %}",
			expected: []semtok.Token{
				tok(semtok.TokenKeyword, semtok.ModifierNone, 0, 3, 6),
				tok(semtok.TokenVariable, semtok.ModifierDeclaration, 0, 7, 8),
				tok(semtok.TokenKeyword, semtok.ModifierNone, 0, 9, 11),
				tok(semtok.TokenVariable, semtok.ModifierNone, 0, 12, 17),
				tok(semtok.TokenVariable, semtok.ModifierNone, 0, 23, 24),
				tok(semtok.TokenKeyword, semtok.ModifierNone, 0, 30, 36),
			},
		},
		{
			name:  "call and numbers",
			input: "{{ range(3) + 1.5 }}",
			expected: []semtok.Token{
				tok(semtok.TokenFunction, semtok.ModifierNone, 0, 3, 8),
				tok(semtok.TokenNumber, semtok.ModifierNone, 0, 9, 10),
				tok(semtok.TokenOperator, semtok.ModifierNone, 0, 12, 13),
				tok(semtok.TokenNumber, semtok.ModifierNone, 0, 14, 17),
			},
		},
		{
			name:  "comment string and constant",
			input: "{# note #}{{ 'a' ~ true }}",
			expected: []semtok.Token{
				tok(semtok.TokenComment, semtok.ModifierNone, 0, 0, 10),
				tok(semtok.TokenString, semtok.ModifierNone, 0, 13, 16),
				tok(semtok.TokenOperator, semtok.ModifierNone, 0, 17, 18),
				tok(semtok.TokenKeyword, semtok.ModifierReadonly, 0, 19, 23),
			},
		},
		{
			name:  "set declares its target",
			input: "{% set total = 1 %}",
			expected: []semtok.Token{
				tok(semtok.TokenKeyword, semtok.ModifierNone, 0, 3, 6),
				tok(semtok.TokenVariable, semtok.ModifierDeclaration, 0, 7, 12),
				tok(semtok.TokenOperator, semtok.ModifierNone, 0, 13, 14),
				tok(semtok.TokenNumber, semtok.ModifierNone, 0, 15, 16),
			},
		},
		{
			name:  "macro name is a function",
			input: "{% macro card(title) %}",
			expected: []semtok.Token{
				tok(semtok.TokenKeyword, semtok.ModifierNone, 0, 3, 8),
				tok(semtok.TokenFunction, semtok.ModifierNone, 0, 9, 13),
				tok(semtok.TokenVariable, semtok.ModifierNone, 0, 14, 19),
			},
		},
		{
			name:     "data only",
			input:    "<p>hello</p>",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := semtok.GetTokensForText(context.Background(), []byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestGetTokensForTextStopsAtLexError(t *testing.T) {
	got, err := semtok.GetTokensForText(context.Background(), []byte("{{ a }}{{ 'x"))
	require.Error(t, err)
	assert.Equal(t, []semtok.Token{tok(semtok.TokenVariable, semtok.ModifierNone, 0, 3, 4)}, got)
}

func TestGetTokensForRange(t *testing.T) {
	got, err := semtok.GetTokensForRange(context.Background(), []byte("{{ a }}\n{{ b }}"), position.NewRange(1, 0, 1, 7))
	require.NoError(t, err)
	assert.Equal(t, []semtok.Token{tok(semtok.TokenVariable, semtok.ModifierNone, 1, 3, 4)}, got)
}

func TestEncode(t *testing.T) {
	content := "{{ a }}\n{# x\ny #}"
	tokens, err := semtok.GetTokensForText(context.Background(), []byte(content))
	require.NoError(t, err)

	assert.Equal(t, []uint32{
		0, 3, 1, 0, 0,
		1, 0, 4, 5, 0,
		1, 0, 4, 5, 0,
	}, semtok.Encode(content, tokens))
}

func TestLegend(t *testing.T) {
	assert.Equal(t, "variable", semtok.TokenVariable.String())
	assert.Equal(t, "number", semtok.TokenNumber.String())
	assert.Equal(t, "unknown", semtok.TokenType(0).String())
	assert.Equal(t, "readonly", semtok.ModifierReadonly.String())
	assert.Len(t, semtok.TokenModifiers(), 3)
}
