package completion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gonunjucks/pkg/completion"
	"github.com/walteh/gonunjucks/pkg/docs"
	"github.com/walteh/gonunjucks/pkg/position"
)

func testLookup() *docs.Lookup {
	return docs.New(docs.Tables{
		Tags: map[string]docs.Entry{
			"if":      {Syntax: "{% if $1 %}\n  $2\n{% endif %}", Summary: "if tag"},
			"include": {Syntax: "{% include $1 %}", Summary: "include tag"},
		},
		Filters: map[string]docs.Entry{
			"first": {Summary: "first filter"},
			"upper": {Summary: "upper filter"},
		},
		Globals: map[string]docs.Entry{
			"range": {Syntax: "range($1)", Summary: "range function"},
		},
	})
}

func labels(items []completion.Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func TestGetCompletions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		pos     position.Place
		want    []string
	}{
		{
			name:    "general",
			content: "<p></p>",
			pos:     position.Place{Character: 3},
			want:    []string{"{{ }}", "{% %}", "{# #}"},
		},
		{
			name:    "tags",
			content: "{% ",
			pos:     position.Place{Character: 3},
			want:    []string{"if", "include"},
		},
		{
			name:    "tags with prefix",
			content: "{% inc",
			pos:     position.Place{Character: 6},
			want:    []string{"include"},
		},
		{
			name:    "filters",
			content: "{{ x | ",
			pos:     position.Place{Character: 7},
			want:    []string{"first", "upper"},
		},
		{
			name:    "globals and template names",
			content: "{% set rows = 3 %}{% macro row() %}{% endmacro %}\n{{ r",
			pos:     position.Place{Line: 1, Character: 4},
			want:    []string{"range", "row", "rows"},
		},
		{
			name:    "member access has no suggestions",
			content: "{{ user.",
			pos:     position.Place{Character: 8},
			want:    nil,
		},
		{
			name:    "comment has no suggestions",
			content: "{# ",
			pos:     position.Place{Character: 3},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := completion.GetCompletions(context.Background(), tt.content, tt.pos, testLookup())
			assert.Equal(t, tt.want, labels(got))
		})
	}
}

func TestTagCompletionInsertsTheRestOfTheTag(t *testing.T) {
	got := completion.GetCompletions(context.Background(), "{% i", position.Place{Character: 4}, testLookup())
	require.Len(t, got, 2)
	assert.Equal(t, "if $1 %}\n  $2\n{% endif %}", got[0].InsertText)
	assert.True(t, got[0].Snippet)
}

func TestResolve(t *testing.T) {
	items := completion.GetCompletions(context.Background(), "{{ x | up", position.Place{Character: 9}, testLookup())
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Documentation)

	resolved := completion.Resolve(items[0], testLookup())
	assert.Equal(t, "upper filter", resolved.Documentation)
	assert.Equal(t, "upper", resolved.Label)
}
