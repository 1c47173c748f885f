package parser

import (
	"github.com/walteh/gonunjucks/pkg/nunjucks/parse"
	"github.com/walteh/gonunjucks/pkg/position"
)

// TemplateInfo summarizes the names a template uses and declares.
type TemplateInfo struct {
	Filename     string
	Variables    []Reference
	Functions    []Reference
	Filters      []Reference
	Macros       []Reference
	Blocks       []Reference
	Dependencies []Reference
}

// Reference is one named occurrence in a template.
type Reference struct {
	Name  string
	Range position.Range
	// Scope is the name of the enclosing macro or block, empty at the top level
	Scope string
}

// Converter turns a parse tree into a TemplateInfo.
type Converter struct {
	filename string
}

func NewConverter(filename string) *Converter {
	return &Converter{filename: filename}
}

// Info summarizes the tree of a parse result. Partial trees are summarized as far as they go.
func (r *Result) Info() *TemplateInfo {
	return NewConverter(r.Filename).ConvertTree(r.Root)
}

// ConvertTree walks root and collects references. Variables and functions are recorded once per
// name and scope, at their first occurrence.
func (c *Converter) ConvertTree(root *parse.Node) *TemplateInfo {
	info := &TemplateInfo{
		Filename:     c.filename,
		Variables:    make([]Reference, 0),
		Functions:    make([]Reference, 0),
		Filters:      make([]Reference, 0),
		Macros:       make([]Reference, 0),
		Blocks:       make([]Reference, 0),
		Dependencies: make([]Reference, 0),
	}

	seenVars := make(map[[2]string]bool)
	seenFuncs := make(map[[2]string]bool)

	addOnce := func(seen map[[2]string]bool, list *[]Reference, n *parse.Node, scope string) {
		key := [2]string{scope, n.Name()}
		if n.Name() == "" || seen[key] {
			return
		}
		seen[key] = true
		*list = append(*list, Reference{Name: n.Name(), Range: n.Range(), Scope: scope})
	}

	var walk func(n *parse.Node, scope string)
	walk = func(n *parse.Node, scope string) {
		if n == nil {
			return
		}
		switch {
		case n.Kind == parse.KindSymbol:
			addOnce(seenVars, &info.Variables, n, scope)
			return
		case n.Kind == parse.KindFilter:
			name := n.Field("name")
			info.Filters = append(info.Filters, Reference{Name: name.Name(), Range: name.Range(), Scope: scope})
			walk(n.Field("args"), scope)
			return
		case n.Kind == parse.KindFunCall:
			if name := n.Field("name"); name.Kind == parse.KindSymbol {
				addOnce(seenFuncs, &info.Functions, name, scope)
			} else {
				walk(name, scope)
			}
			walk(n.Field("args"), scope)
			return
		case n.Kind == parse.KindLookupVal:
			// the key of a lookup is a member, not a variable
			walk(n.Field("target"), scope)
			if v := n.Field("val"); v.Kind != parse.KindLiteral {
				walk(v, scope)
			}
			return
		case n.IsA(parse.KindMacro):
			name := n.Field("name")
			if n.Kind == parse.KindMacro {
				info.Macros = append(info.Macros, Reference{Name: name.Name(), Range: name.Range(), Scope: scope})
			}
			walk(n.Field("args"), name.Name())
			walk(n.Field("body"), name.Name())
			return
		case n.Kind == parse.KindBlock:
			name := n.Field("name")
			info.Blocks = append(info.Blocks, Reference{Name: name.Name(), Range: name.Range(), Scope: scope})
			walk(n.Field("body"), name.Name())
			return
		case n.IsA(parse.KindTemplateRef), n.Kind == parse.KindInclude,
			n.Kind == parse.KindImport, n.Kind == parse.KindFromImport:
			if tmpl := n.Field("template"); tmpl != nil && tmpl.Kind == parse.KindLiteral {
				if s, ok := tmpl.Value.(string); ok {
					info.Dependencies = append(info.Dependencies, Reference{Name: s, Range: tmpl.Range(), Scope: scope})
				}
			}
		}

		n.IterFields(func(_ string, child *parse.Node) {
			walk(child, scope)
		})
	}

	walk(root, "")
	return info
}
