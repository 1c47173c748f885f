package providers

import (
	"strings"

	"github.com/walteh/gonunjucks/pkg/parser"
)

// VariableProvider handles completions of names the template itself uses or declares
type VariableProvider struct{}

// NewVariableProvider creates a new variable completion provider
func NewVariableProvider() *VariableProvider {
	return &VariableProvider{}
}

// GetCompletions returns the variables and macros of info starting with prefix, each name once.
func (p *VariableProvider) GetCompletions(info *parser.TemplateInfo, prefix string) []CompletionItem {
	if info == nil {
		return nil
	}

	var completions []CompletionItem
	seen := make(map[string]bool)

	for _, m := range info.Macros {
		if seen[m.Name] || !strings.HasPrefix(m.Name, prefix) {
			continue
		}
		seen[m.Name] = true
		completions = append(completions, CompletionItem{
			Label:      m.Name,
			Kind:       KindFunction,
			Detail:     "Macro",
			InsertText: m.Name + "($1)",
			Snippet:    true,
			Data:       DataMacro,
		})
	}

	for _, v := range info.Variables {
		if seen[v.Name] || !strings.HasPrefix(v.Name, prefix) {
			continue
		}
		seen[v.Name] = true

		scope := v.Scope
		if scope == "" {
			scope = "template"
		}
		completions = append(completions, CompletionItem{
			Label:         v.Name,
			Kind:          KindVariable,
			Detail:        "Template variable",
			Documentation: "Variable from template scope: " + scope,
			Data:          DataVariable,
		})
	}

	return completions
}
