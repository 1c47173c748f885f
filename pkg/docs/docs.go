// Package docs holds the documentation of Nunjucks builtins and answers lookups keyed by
// the typename of a resolved syntax node and the word under the cursor.
package docs

import (
	_ "embed"
	"sort"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

//go:embed definitions.yaml
var definitionsYAML []byte

// Entry documents one builtin. Syntax is a snippet in editor placeholder form ($1, $2 ...).
type Entry struct {
	Syntax  string `yaml:"syntax"`
	Summary string `yaml:"summary"`
}

// Tables is the raw documentation data. It is read-only once handed to New.
type Tables struct {
	Tags    map[string]Entry `yaml:"tags"`
	Filters map[string]Entry `yaml:"filters"`
	Globals map[string]Entry `yaml:"globals"`
}

// Category is one of the documented vocabularies.
type Category int

const (
	CategoryTag Category = iota
	CategoryFilter
	CategoryGlobal
)

func (c Category) prefix() string {
	switch c {
	case CategoryTag:
		return "Tag: "
	case CategoryFilter:
		return "Filter: "
	case CategoryGlobal:
		return "Global function: "
	}
	return ""
}

// typenames of nodes produced by block tags
var tagTypenames = map[string]bool{
	"If":         true,
	"IfAsync":    true,
	"For":        true,
	"AsyncEach":  true,
	"AsyncAll":   true,
	"Macro":      true,
	"Caller":     true,
	"Set":        true,
	"Extends":    true,
	"Block":      true,
	"Include":    true,
	"Import":     true,
	"FromImport": true,
	"Switch":     true,
	"Case":       true,
	"Capture":    true,
}

// Lookup answers documentation queries against a fixed set of tables.
type Lookup struct {
	tables Tables
}

func New(tables Tables) *Lookup {
	if tables.Tags == nil {
		tables.Tags = map[string]Entry{}
	}
	if tables.Filters == nil {
		tables.Filters = map[string]Entry{}
	}
	if tables.Globals == nil {
		tables.Globals = map[string]Entry{}
	}
	return &Lookup{tables: tables}
}

// Decode reads tables from YAML.
func Decode(data []byte) (Tables, error) {
	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return Tables{}, errors.Errorf("decoding documentation tables: %w", err)
	}
	return tables, nil
}

// Default returns a Lookup over the builtin Nunjucks tags, filters and globals.
func Default() (*Lookup, error) {
	tables, err := Decode(definitionsYAML)
	if err != nil {
		return nil, err
	}
	return New(tables), nil
}

// Lookup returns the markdown documentation of word. When typename names a documented
// category (Filter, FunCall or a statement) that category is searched first; otherwise, or when
// it has no entry, tags, filters and globals are searched in that order.
func (l *Lookup) Lookup(typename, word string) (string, bool) {
	if cat, ok := categoryOf(typename); ok {
		if e, ok := l.table(cat)[word]; ok {
			return cat.prefix() + e.Summary, true
		}
	}

	for _, cat := range []Category{CategoryTag, CategoryFilter, CategoryGlobal} {
		if e, ok := l.table(cat)[word]; ok {
			return cat.prefix() + e.Summary, true
		}
	}
	return "", false
}

// Entry returns the raw entry of name in cat.
func (l *Lookup) Entry(cat Category, name string) (Entry, bool) {
	e, ok := l.table(cat)[name]
	return e, ok
}

func (l *Lookup) Tags() []string    { return sortedKeys(l.tables.Tags) }
func (l *Lookup) Filters() []string { return sortedKeys(l.tables.Filters) }
func (l *Lookup) Globals() []string { return sortedKeys(l.tables.Globals) }

func (l *Lookup) table(cat Category) map[string]Entry {
	switch cat {
	case CategoryTag:
		return l.tables.Tags
	case CategoryFilter:
		return l.tables.Filters
	default:
		return l.tables.Globals
	}
}

func categoryOf(typename string) (Category, bool) {
	switch {
	case typename == "Filter":
		return CategoryFilter, true
	case typename == "FunCall":
		return CategoryGlobal, true
	case tagTypenames[typename]:
		return CategoryTag, true
	}
	return 0, false
}

func sortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
