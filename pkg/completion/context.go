package completion

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/walteh/gonunjucks/pkg/position"
)

// ContextKind classifies where the cursor is
type ContextKind int

const (
	// ContextGeneral is template data, outside any delimiter
	ContextGeneral ContextKind = iota
	// ContextTag is right after {% with at most a partial tag name typed
	ContextTag
	// ContextFilter is right after a pipe
	ContextFilter
	// ContextMember is right after a dot
	ContextMember
	// ContextExpression is anywhere else inside {{ }} or {% %}
	ContextExpression
	// ContextComment is inside {# #}
	ContextComment
)

func (k ContextKind) String() string {
	switch k {
	case ContextGeneral:
		return "general"
	case ContextTag:
		return "tag"
	case ContextFilter:
		return "filter"
	case ContextMember:
		return "member"
	case ContextExpression:
		return "expression"
	case ContextComment:
		return "comment"
	}
	return "unknown"
}

// CompletionContext holds information about the completion request context
type CompletionContext struct {
	Content  string
	Position position.Place
	Kind     ContextKind
	// Prefix is the partial name typed right before the cursor
	Prefix   string
	AfterDot bool

	// text between the open delimiter and the prefix
	head string
}

var delimiters = []struct{ open, close string }{
	{"{{", "}}"},
	{"{%", "%}"},
	{"{#", "#}"},
}

// NewCompletionContext creates a new completion context. pos is 0-indexed with a UTF-16 column.
func NewCompletionContext(content string, pos position.Place) *CompletionContext {
	ctx := &CompletionContext{
		Content:  content,
		Position: pos,
		Kind:     ContextGeneral,
	}

	before := content[:position.OffsetOf(content, pos)]

	open, which := -1, -1
	for i, d := range delimiters {
		if at := strings.LastIndex(before, d.open); at > open {
			open, which = at, i
		}
	}
	if open < 0 || strings.Contains(before[open+2:], delimiters[which].close) {
		return ctx
	}

	inner := strings.TrimPrefix(before[open+2:], "-")
	ctx.Prefix = trailingName(inner)
	ctx.head = inner[:len(inner)-len(ctx.Prefix)]

	switch {
	case delimiters[which].open == "{#":
		ctx.Kind = ContextComment
	case delimiters[which].open == "{%" && strings.TrimSpace(ctx.head) == "":
		ctx.Kind = ContextTag
	case strings.HasSuffix(strings.TrimRight(ctx.head, " \t\r\n"), "|"):
		ctx.Kind = ContextFilter
	case strings.HasSuffix(ctx.head, "."):
		ctx.Kind = ContextMember
		ctx.AfterDot = true
	default:
		ctx.Kind = ContextExpression
	}

	return ctx
}

// IsInTemplateAction checks if the current position is within {{ }} or {% %}
func (c *CompletionContext) IsInTemplateAction() bool {
	return c.Kind != ContextGeneral && c.Kind != ContextComment
}

// GetExpressionBeforeDot returns the dotted expression the member being typed belongs to
func (c *CompletionContext) GetExpressionBeforeDot() string {
	if !c.AfterDot {
		return ""
	}
	head := strings.TrimSuffix(c.head, ".")
	i := len(head)
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(head[:i])
		if r != '.' && !isNameRune(r) {
			break
		}
		i -= size
	}
	return head[i:]
}

func trailingName(s string) string {
	i := len(s)
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		if !isNameRune(r) {
			break
		}
		i -= size
	}
	return s[i:]
}

func isNameRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
