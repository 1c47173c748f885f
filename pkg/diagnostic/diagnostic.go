package diagnostic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gonunjucks/pkg/parser"
	"github.com/walteh/gonunjucks/pkg/position"
)

// Source is reported on every diagnostic this package produces.
const Source = "nunjucks"

// Diagnostic represents a single diagnostic message
type Diagnostic struct {
	Message  string
	Range    position.Range
	Severity Severity
	Source   string
}

// Severity represents the severity level of a diagnostic
type Severity string

const (
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "info"
	SeverityHint        Severity = "hint"
)

// LSP is the numeric DiagnosticSeverity of the editor protocol.
func (s Severity) LSP() int {
	switch s {
	case SeverityError:
		return 1
	case SeverityWarning:
		return 2
	case SeverityInformation:
		return 3
	default:
		return 4
	}
}

// GetDiagnostics parses content and reports its first syntax error, if any. A nil parseFn
// means parser.Parse.
func GetDiagnostics(ctx context.Context, content string, parseFn parser.Func) []Diagnostic {
	if parseFn == nil {
		parseFn = parser.Parse
	}

	res := parseFn(ctx, []byte(content), "")
	if res == nil || res.Error == nil {
		return nil
	}

	zerolog.Ctx(ctx).Debug().Str("message", res.Error.Message).Stringer("at", res.Error.Place()).Msg("syntax error")

	return []Diagnostic{FromParseError(res.Error)}
}

// FromParseError turns a parse failure into an error diagnostic at the failure point.
func FromParseError(perr *parser.ParseError) Diagnostic {
	return Diagnostic{
		Message:  perr.Message,
		Range:    perr.Range(),
		Severity: SeverityError,
		Source:   Source,
	}
}

// Formatter formats diagnostics for output
type Formatter interface {
	Format(filename string, diagnostics []Diagnostic) ([]byte, error)
}

// VSCodeFormatter formats diagnostics the way the editor protocol publishes them.
type VSCodeFormatter struct{}

func NewVSCodeFormatter() *VSCodeFormatter {
	return &VSCodeFormatter{}
}

type vscodePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type vscodeRange struct {
	Start vscodePosition `json:"start"`
	End   vscodePosition `json:"end"`
}

type vscodeDiagnostic struct {
	Severity int         `json:"severity"`
	Message  string      `json:"message"`
	Source   string      `json:"source,omitempty"`
	Range    vscodeRange `json:"range"`
}

func (f *VSCodeFormatter) Format(filename string, diagnostics []Diagnostic) ([]byte, error) {
	out := struct {
		URI         string             `json:"uri"`
		Diagnostics []vscodeDiagnostic `json:"diagnostics"`
	}{
		URI:         filename,
		Diagnostics: make([]vscodeDiagnostic, 0, len(diagnostics)),
	}

	for _, d := range diagnostics {
		out.Diagnostics = append(out.Diagnostics, vscodeDiagnostic{
			Severity: d.Severity.LSP(),
			Message:  d.Message,
			Source:   d.Source,
			Range: vscodeRange{
				Start: vscodePosition{Line: d.Range.Start.Line, Character: d.Range.Start.Character},
				End:   vscodePosition{Line: d.Range.End.Line, Character: d.Range.End.Character},
			},
		})
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Errorf("marshalling diagnostics for %s: %w", filename, err)
	}
	return b, nil
}

// TextFormatter prints one line per diagnostic, 1-based like a compiler.
type TextFormatter struct{}

func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

func (f *TextFormatter) Format(filename string, diagnostics []Diagnostic) ([]byte, error) {
	var sb strings.Builder
	for _, d := range diagnostics {
		fmt.Fprintf(&sb, "%s:%d:%d: %s: %s\n", filename, d.Range.Start.Line+1, d.Range.Start.Character+1, d.Severity, d.Message)
	}
	return []byte(sb.String()), nil
}
