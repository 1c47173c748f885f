package parser

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gonunjucks/pkg/nunjucks/parse"
	"github.com/walteh/gonunjucks/pkg/position"
)

// Result is the outcome of parsing one template. Root is never nil: when parsing
// fails it holds the top-level nodes that were finished before the failure.
type Result struct {
	Filename string
	Root     *parse.Node
	Error    *ParseError
	Elapsed  time.Duration
}

// ParseError is the first failure of a parse. Line and Col are 0-indexed, Col in UTF-16 code units.
type ParseError struct {
	Message string
	Line    int
	Col     int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Line+1, e.Col+1)
}

func (e *ParseError) Place() position.Place {
	return position.Place{Line: e.Line, Character: e.Col}
}

// Range is the zero-width range at the failure point.
func (e *ParseError) Range() position.Range {
	return position.PointRange(e.Place())
}

// Func is the signature shared by Parse and its stand-ins in tests.
type Func func(ctx context.Context, content []byte, filename string) *Result

var _ Func = Parse

// Parse parses content as a Nunjucks template. It never panics and never returns nil.
func Parse(ctx context.Context, content []byte, filename string) *Result {
	start := time.Now()
	text := string(content)

	buf := &parse.NodeBuffer{}
	perr := parseInto(ctx, text, buf)

	res := &Result{
		Filename: filename,
		Root:     parse.NewRoot(buf, position.EndOf(text)),
		Error:    perr,
		Elapsed:  time.Since(start),
	}

	ev := zerolog.Ctx(ctx).Debug().
		Str("filename", filename).
		Int("bytes", len(content)).
		Int("nodes", buf.Len()).
		Dur("elapsed", res.Elapsed)
	if perr != nil {
		ev = ev.Str("error", perr.Error())
	}
	ev.Msg("parsed template")

	return res
}

func parseInto(ctx context.Context, text string, buf *parse.NodeBuffer) (perr *ParseError) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch e := r.(type) {
		case parse.Error:
			perr = &ParseError{Message: e.Message(), Line: e.Place().Line, Col: e.Place().Character}
		default:
			err := errors.Errorf("internal parser failure: %v", r)
			zerolog.Ctx(ctx).Error().Err(err).Msg("recovered from parser panic")
			perr = &ParseError{Message: err.Error()}
		}
	}()

	parse.NewParser(parse.Lex(text)).ParseNodes(buf)
	return nil
}
