package parser_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gonunjucks/pkg/nunjucks/parse"
	"github.com/walteh/gonunjucks/pkg/parser"
	"github.com/walteh/gonunjucks/pkg/position"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		wantErr   string
		wantRange position.Range
		wantNodes int
	}{
		{
			name:      "valid template",
			template:  "<p>{{ name | upper }}</p>",
			wantNodes: 3,
		},
		{
			name:      "empty template",
			template:  "",
			wantNodes: 0,
		},
		{
			name: "unclosed variable",
			template: `
    <div>
      {{ foo }
    </div>
  `,
			wantErr:   "expected variable end",
			wantRange: position.NewRange(2, 13, 2, 13),
			wantNodes: 1,
		},
		{
			name:      "unterminated string",
			template:  "ok {{ \"abc",
			wantErr:   "expected end of string",
			wantRange: position.NewRange(0, 6, 0, 6),
			wantNodes: 1,
		},
		{
			name:      "unterminated comment keeps earlier data",
			template:  "hello {# unterminated",
			wantErr:   "expected end of comment, got end of file",
			wantRange: position.NewRange(0, 6, 0, 6),
			wantNodes: 1,
		},
		{
			name:      "deeply nested groups",
			template:  "{{ " + strings.Repeat("(", 300_000),
			wantErr:   "expression nested too deeply",
			wantRange: position.NewRange(0, 3+parse.MaxNestingDepth, 0, 3+parse.MaxNestingDepth),
			wantNodes: 0,
		},
		{
			name:      "missing endif keeps earlier nodes",
			template:  "{{ a }}{% if b %}x",
			wantErr:   "parseIf: expected elif, else, or endif, got end of file",
			wantRange: position.NewRange(0, 18, 0, 18),
			wantNodes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := parser.Parse(context.Background(), []byte(tt.template), "test.njk")
			require.NotNil(t, res)
			require.NotNil(t, res.Root)

			assert.Equal(t, "test.njk", res.Filename)
			assert.Equal(t, parse.KindRoot, res.Root.Kind)
			assert.Equal(t, position.Place{}, res.Root.Pos)
			assert.Equal(t, position.EndOf(tt.template), res.Root.End)
			assert.Len(t, res.Root.Children, tt.wantNodes)

			if tt.wantErr == "" {
				assert.Nil(t, res.Error)
				return
			}
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.wantErr, res.Error.Message)
			assert.Equal(t, tt.wantRange, res.Error.Range())
		})
	}
}

func TestParseErrorString(t *testing.T) {
	err := &parser.ParseError{Message: "expected variable end", Line: 2, Col: 13}
	assert.Equal(t, "expected variable end (line 3, column 14)", err.Error())
	assert.Equal(t, position.Place{Line: 2, Character: 13}, err.Place())
}

func TestParsePartialTreeIsSearchable(t *testing.T) {
	res := parser.Parse(context.Background(), []byte("{{ data | first }}\n{{ broken }"), "partial.njk")
	require.NotNil(t, res.Error)
	assert.Equal(t, 1, res.Error.Line)

	n := parse.FindNodeInRange(res.Root, position.NewRange(0, 10, 0, 15))
	require.NotNil(t, n)
	assert.Equal(t, "Filter", n.Typename())
}

func TestParseMatchesStrictParser(t *testing.T) {
	text := "{% for x in items %}{{ x.name | upper }}{% else %}none{% endfor %}"

	strict, err := parse.Parse(text)
	require.NoError(t, err)

	res := parser.Parse(context.Background(), []byte(text), "loop.njk")
	require.Nil(t, res.Error)
	assert.Equal(t, parse.Sprint(strict), parse.Sprint(res.Root))
}
