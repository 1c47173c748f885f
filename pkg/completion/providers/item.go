package providers

// CompletionItem represents a single completion suggestion
type CompletionItem struct {
	Label         string `json:"label"`
	Kind          string `json:"kind"`
	Detail        string `json:"detail,omitempty"`
	Documentation string `json:"documentation,omitempty"`
	InsertText    string `json:"insertText,omitempty"`
	// Snippet marks InsertText as containing $1-style placeholders
	Snippet bool `json:"snippet,omitempty"`
	// Data names the vocabulary the item came from, used when resolving it
	Data string `json:"data,omitempty"`
}

const (
	KindSnippet  = "snippet"
	KindKeyword  = "keyword"
	KindFunction = "function"
	KindVariable = "variable"
)

const (
	DataTag      = "tag"
	DataFilter   = "filter"
	DataGlobal   = "global"
	DataVariable = "variable"
	DataMacro    = "macro"
)
