package providers

import (
	"strings"

	"github.com/walteh/gonunjucks/pkg/docs"
)

// DocsProvider handles completions of builtin tags, filters and globals
type DocsProvider struct {
	lookup *docs.Lookup
}

func NewDocsProvider(lookup *docs.Lookup) *DocsProvider {
	return &DocsProvider{lookup: lookup}
}

// Tags returns the tags starting with prefix. The insert text is the tag syntax without the
// opening delimiter, which is already typed.
func (p *DocsProvider) Tags(prefix string) []CompletionItem {
	var items []CompletionItem
	for _, name := range p.lookup.Tags() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		e, _ := p.lookup.Entry(docs.CategoryTag, name)
		item := CompletionItem{
			Label:      name,
			Kind:       KindKeyword,
			Detail:     "Tag",
			InsertText: name,
			Data:       DataTag,
		}
		if rest, ok := strings.CutPrefix(e.Syntax, "{%"); ok {
			item.InsertText = strings.TrimLeft(rest, " ")
			item.Snippet = true
		}
		items = append(items, item)
	}
	return items
}

func (p *DocsProvider) Filters(prefix string) []CompletionItem {
	var items []CompletionItem
	for _, name := range p.lookup.Filters() {
		if strings.HasPrefix(name, prefix) {
			items = append(items, CompletionItem{
				Label:  name,
				Kind:   KindFunction,
				Detail: "Filter",
				Data:   DataFilter,
			})
		}
	}
	return items
}

func (p *DocsProvider) Globals(prefix string) []CompletionItem {
	var items []CompletionItem
	for _, name := range p.lookup.Globals() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		e, _ := p.lookup.Entry(docs.CategoryGlobal, name)
		item := CompletionItem{
			Label:  name,
			Kind:   KindFunction,
			Detail: "Global function",
			Data:   DataGlobal,
		}
		if e.Syntax != "" {
			item.InsertText = e.Syntax
			item.Snippet = true
		}
		items = append(items, item)
	}
	return items
}

// Resolve fills in the documentation of an item produced by this provider.
func (p *DocsProvider) Resolve(item CompletionItem) CompletionItem {
	var cat docs.Category
	switch item.Data {
	case DataTag:
		cat = docs.CategoryTag
	case DataFilter:
		cat = docs.CategoryFilter
	case DataGlobal:
		cat = docs.CategoryGlobal
	default:
		return item
	}

	if e, ok := p.lookup.Entry(cat, item.Label); ok {
		item.Documentation = e.Summary
	} else if item.Data == DataFilter {
		item.Documentation = "Nunjucks filter: " + item.Label
	}
	return item
}
