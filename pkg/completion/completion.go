// Package completion suggests tags, filters, globals and template names at a cursor position.
package completion

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/walteh/gonunjucks/pkg/completion/providers"
	"github.com/walteh/gonunjucks/pkg/docs"
	"github.com/walteh/gonunjucks/pkg/parser"
	"github.com/walteh/gonunjucks/pkg/position"
)

type Item = providers.CompletionItem

// GeneralCompletions are offered in template data: the three delimiter pairs.
func GeneralCompletions() []Item {
	return []Item{
		{
			Label:         "{{ }}",
			Kind:          providers.KindSnippet,
			Documentation: "Variable expression",
			InsertText:    "{{ $1 }}",
			Snippet:       true,
		},
		{
			Label:         "{% %}",
			Kind:          providers.KindSnippet,
			Documentation: "Template tag",
			InsertText:    "{% $1 %}",
			Snippet:       true,
		},
		{
			Label:         "{# #}",
			Kind:          providers.KindSnippet,
			Documentation: "Comment",
			InsertText:    "{# $1 #}",
			Snippet:       true,
		},
	}
}

// GetCompletions returns completion items for the given position
func GetCompletions(ctx context.Context, content string, pos position.Place, lookup *docs.Lookup) []Item {
	cc := NewCompletionContext(content, pos)

	zerolog.Ctx(ctx).Debug().
		Stringer("context", cc.Kind).
		Str("prefix", cc.Prefix).
		Stringer("position", pos).
		Msg("computing completions")

	builtins := providers.NewDocsProvider(lookup)

	switch cc.Kind {
	case ContextGeneral:
		return GeneralCompletions()
	case ContextTag:
		return builtins.Tags(cc.Prefix)
	case ContextFilter:
		return builtins.Filters(cc.Prefix)
	case ContextExpression:
		info := parser.Parse(ctx, []byte(content), "").Info()
		items := builtins.Globals(cc.Prefix)
		for _, it := range providers.NewVariableProvider().GetCompletions(info, cc.Prefix) {
			if !hasLabel(items, it.Label) {
				items = append(items, it)
			}
		}
		return items
	case ContextMember:
		// members depend on the render context, which is not known here
		zerolog.Ctx(ctx).Debug().Str("expression", cc.GetExpressionBeforeDot()).Msg("no member completions")
	}
	return nil
}

// Resolve fills the documentation of an item returned by GetCompletions.
func Resolve(item Item, lookup *docs.Lookup) Item {
	return providers.NewDocsProvider(lookup).Resolve(item)
}

func hasLabel(items []Item, label string) bool {
	for _, it := range items {
		if it.Label == label {
			return true
		}
	}
	return false
}
