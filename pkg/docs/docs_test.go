package docs_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gonunjucks/pkg/docs"
)

func testLookup() *docs.Lookup {
	return docs.New(docs.Tables{
		Tags: map[string]docs.Entry{
			"if":    {Syntax: "{% if $1 %}", Summary: "if tag"},
			"first": {Summary: "a tag named first"},
		},
		Filters: map[string]docs.Entry{
			"first": {Summary: "first filter"},
			"range": {Summary: "a filter named range"},
		},
		Globals: map[string]docs.Entry{
			"range": {Summary: "range function"},
		},
	})
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		typename string
		word     string
		want     string
		wantOK   bool
	}{
		{
			name:     "filter node prefers filters",
			typename: "Filter",
			word:     "first",
			want:     "Filter: first filter",
			wantOK:   true,
		},
		{
			name:     "funcall node prefers globals",
			typename: "FunCall",
			word:     "range",
			want:     "Global function: range function",
			wantOK:   true,
		},
		{
			name:     "statement node prefers tags",
			typename: "If",
			word:     "if",
			want:     "Tag: if tag",
			wantOK:   true,
		},
		{
			name:     "unscoped search starts with tags",
			typename: "Symbol",
			word:     "first",
			want:     "Tag: a tag named first",
			wantOK:   true,
		},
		{
			name:     "no typename falls back to filters then globals",
			typename: "",
			word:     "range",
			want:     "Filter: a filter named range",
			wantOK:   true,
		},
		{
			name:     "scoped miss falls back",
			typename: "Filter",
			word:     "if",
			want:     "Tag: if tag",
			wantOK:   true,
		},
		{
			name:     "unknown word",
			typename: "Filter",
			word:     "nope",
			wantOK:   false,
		},
	}

	l := testLookup()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.Lookup(tt.typename, tt.word)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupListings(t *testing.T) {
	l := testLookup()
	assert.Equal(t, []string{"first", "if"}, l.Tags())
	assert.Equal(t, []string{"first", "range"}, l.Filters())
	assert.Equal(t, []string{"range"}, l.Globals())

	e, ok := l.Entry(docs.CategoryTag, "if")
	require.True(t, ok)
	assert.Equal(t, "{% if $1 %}", e.Syntax)
}

func TestNewWithEmptyTables(t *testing.T) {
	l := docs.New(docs.Tables{})
	_, ok := l.Lookup("Filter", "first")
	assert.False(t, ok)
	assert.Empty(t, l.Tags())
}

func TestDefault(t *testing.T) {
	l, err := docs.Default()
	require.NoError(t, err)

	got, ok := l.Lookup("Filter", "first")
	require.True(t, ok)
	assert.Equal(t, "Filter: Get the first item in an array or the first letter if it's a string", got)

	got, ok = l.Lookup("", "range")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(got, "Global function: "))

	assert.Contains(t, l.Tags(), "include")
	assert.Contains(t, l.Filters(), "upper")
	assert.Len(t, l.Globals(), 3)

	e, ok := l.Entry(docs.CategoryTag, "for")
	require.True(t, ok)
	assert.Equal(t, "{% for $1 in $2 %}\n  $3\n{% endfor %}", e.Syntax)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := docs.Decode([]byte("tags: [unclosed"))
	require.Error(t, err)
}
