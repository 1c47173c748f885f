// Package hover provides functionality for generating hover information.
package hover

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gonunjucks/pkg/docs"
	"github.com/walteh/gonunjucks/pkg/nunjucks/parse"
	"github.com/walteh/gonunjucks/pkg/parser"
	"github.com/walteh/gonunjucks/pkg/position"
)

// HoverInfo represents the information to be displayed in a hover tooltip
type HoverInfo struct {
	// Content is the markdown content to display
	Content string
	// Range is the word the hover applies to
	Range position.Range
	// Node is the typename of the node the word resolved to, empty when none did
	Node string
}

// BuildHover computes the hover for the word under pos. It returns nil when the cursor is on
// whitespace or outside the document. A nil parseFn means parser.Parse.
func BuildHover(ctx context.Context, content string, pos position.Place, lookup *docs.Lookup, parseFn parser.Func) (*HoverInfo, error) {
	if lookup == nil {
		return nil, errors.New("documentation lookup is required")
	}
	if parseFn == nil {
		parseFn = parser.Parse
	}

	line, ok := position.Line(content, pos.Line)
	if !ok {
		return nil, nil
	}

	word, ok := position.WordAt(line, pos.Character)
	if !ok {
		return nil, nil
	}
	wordRange := word.Range(pos.Line)

	res := parseFn(ctx, []byte(content), "")
	if res == nil {
		return nil, errors.Errorf("parse returned no result for hover at %s", pos)
	}

	node := parse.FindNodeInRange(res.Root, wordRange)

	key := word.Text
	if name := node.Name(); name != "" && strings.Contains(word.Text, name) {
		key = name
	}

	zerolog.Ctx(ctx).Debug().
		Str("word", word.Text).
		Str("key", key).
		Str("node", node.Typename()).
		Stringer("range", wordRange).
		Msg("resolved hover")

	text, ok := lookup.Lookup(node.Typename(), key)
	if !ok {
		text = word.Text
	}

	return &HoverInfo{
		Content: text,
		Range:   wordRange,
		Node:    node.Typename(),
	}, nil
}
