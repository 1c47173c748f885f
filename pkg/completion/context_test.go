package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walteh/gonunjucks/pkg/position"
)

func TestNewCompletionContext(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		pos        position.Place
		wantKind   ContextKind
		wantPrefix string
	}{
		{
			name:     "empty content",
			content:  "",
			pos:      position.Place{},
			wantKind: ContextGeneral,
		},
		{
			name:     "plain data",
			content:  "<div>hello</div>",
			pos:      position.Place{Line: 0, Character: 7},
			wantKind: ContextGeneral,
		},
		{
			name:     "after a closed variable",
			content:  "{{ a }} b",
			pos:      position.Place{Line: 0, Character: 9},
			wantKind: ContextGeneral,
		},
		{
			name:     "right after block start",
			content:  "{% ",
			pos:      position.Place{Line: 0, Character: 3},
			wantKind: ContextTag,
		},
		{
			name:       "partial tag name with trim marker",
			content:    "<p>\n{%- inc",
			pos:        position.Place{Line: 1, Character: 7},
			wantKind:   ContextTag,
			wantPrefix: "inc",
		},
		{
			name:       "after pipe",
			content:    "{{ items | fi }}",
			pos:        position.Place{Line: 0, Character: 13},
			wantKind:   ContextFilter,
			wantPrefix: "fi",
		},
		{
			name:     "after pipe in a tag",
			content:  "{% for x in xs | ",
			pos:      position.Place{Line: 0, Character: 17},
			wantKind: ContextFilter,
		},
		{
			name:       "expression in a tag",
			content:    "{% if us",
			pos:        position.Place{Line: 0, Character: 8},
			wantKind:   ContextExpression,
			wantPrefix: "us",
		},
		{
			name:       "expression in a variable",
			content:    "{{ ran }}",
			pos:        position.Place{Line: 0, Character: 6},
			wantKind:   ContextExpression,
			wantPrefix: "ran",
		},
		{
			name:       "after dot",
			content:    "{{ user.na",
			pos:        position.Place{Line: 0, Character: 10},
			wantKind:   ContextMember,
			wantPrefix: "na",
		},
		{
			name:     "inside a comment",
			content:  "{# some ",
			pos:      position.Place{Line: 0, Character: 8},
			wantKind: ContextComment,
		},
		{
			name:       "utf-16 column after an emoji",
			content:    "😀{{ us",
			pos:        position.Place{Line: 0, Character: 7},
			wantKind:   ContextExpression,
			wantPrefix: "us",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewCompletionContext(tt.content, tt.pos)
			assert.Equal(t, tt.wantKind, ctx.Kind, "kind %s", ctx.Kind)
			assert.Equal(t, tt.wantPrefix, ctx.Prefix)
			assert.Equal(t, tt.wantKind == ContextMember, ctx.AfterDot)
		})
	}
}

func TestCompletionContext_IsInTemplateAction(t *testing.T) {
	assert.True(t, NewCompletionContext("{{ a", position.Place{Character: 4}).IsInTemplateAction())
	assert.True(t, NewCompletionContext("{% a", position.Place{Character: 4}).IsInTemplateAction())
	assert.False(t, NewCompletionContext("{# a", position.Place{Character: 4}).IsInTemplateAction())
	assert.False(t, NewCompletionContext("text", position.Place{Character: 2}).IsInTemplateAction())
}

func TestGetExpressionBeforeDot(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"simple field", "{{ user.", "user"},
		{"nested field", "{{ site.user.na", "site.user"},
		{"after an operator", "{{ a + b.c", "b"},
		{"no dot", "{{ user", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewCompletionContext(tt.content, position.EndOf(tt.content))
			assert.Equal(t, tt.want, ctx.GetExpressionBeforeDot())
		})
	}
}
