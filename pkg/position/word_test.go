package position_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gonunjucks/pkg/position"
)

func TestWordAt(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		offset int
		want   position.Word
		wantOk bool
	}{
		{
			name:   "quoted include target",
			line:   `{% include "foo" %}`,
			offset: strings.Index(`{% include "foo" %}`, "foo"),
			want:   position.Word{Text: `"foo"`, Start: 11, End: 16},
			wantOk: true,
		},
		{
			name:   "filter name",
			line:   "    {{ data | first }}",
			offset: 15,
			want:   position.Word{Text: "first", Start: 14, End: 19},
			wantOk: true,
		},
		{
			name:   "word at index zero",
			line:   "abc def",
			offset: 0,
			want:   position.Word{Text: "abc", Start: 0, End: 3},
			wantOk: true,
		},
		{
			name:   "cursor on first char after whitespace",
			line:   "abc def",
			offset: 4,
			want:   position.Word{Text: "def", Start: 4, End: 7},
			wantOk: true,
		},
		{
			name:   "last character of the line",
			line:   "abc def",
			offset: 6,
			want:   position.Word{Text: "def", Start: 4, End: 7},
			wantOk: true,
		},
		{
			name:   "delimiters are part of the word",
			line:   "{{foo}}",
			offset: 3,
			want:   position.Word{Text: "{{foo}}", Start: 0, End: 7},
			wantOk: true,
		},
		{
			name:   "columns are utf-16 units",
			line:   "😀 ok",
			offset: 3,
			want:   position.Word{Text: "ok", Start: 3, End: 5},
			wantOk: true,
		},
		{
			name:   "whitespace",
			line:   "abc def",
			offset: 3,
			wantOk: false,
		},
		{
			name:   "tab",
			line:   "a\tb",
			offset: 1,
			wantOk: false,
		},
		{
			name:   "past end",
			line:   "abc",
			offset: 3,
			wantOk: false,
		},
		{
			name:   "negative",
			line:   "abc",
			offset: -1,
			wantOk: false,
		},
		{
			name:   "empty line",
			line:   "",
			offset: 0,
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := position.WordAt(tt.line, tt.offset)
			require.Equal(t, tt.wantOk, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.TrimSpace(got.Text), got.Text)
		})
	}
}

func TestWordRange(t *testing.T) {
	w := position.Word{Text: "first", Start: 14, End: 19}
	assert.Equal(t, position.NewRange(1, 14, 1, 19), w.Range(1))
}
