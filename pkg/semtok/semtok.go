package semtok

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gonunjucks/pkg/nunjucks/parse"
	"github.com/walteh/gonunjucks/pkg/position"
)

// GetTokensForText returns semantic tokens for the given template text, in document order.
// On a lex error the tokens before it are returned together with the error.
//
//	tokens, err := GetTokensForText(ctx, []byte("{{ name | upper }}"))
func GetTokensForText(ctx context.Context, content []byte) ([]Token, error) {
	lx := parse.Lex(string(content))
	v := newTokenVisitor()

	for {
		tok, err := lx.Next()
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Int("tokens", len(v.tokens)).Msg("semantic tokens stopped at lex error")
			return v.tokens, errors.Errorf("lexing template: %w", err)
		}
		if tok.Type == parse.TokenEOF {
			return v.tokens, nil
		}
		v.visit(tok)
	}
}

// GetTokensForRange returns the semantic tokens overlapping r.
func GetTokensForRange(ctx context.Context, content []byte, r position.Range) ([]Token, error) {
	all, err := GetTokensForText(ctx, content)

	out := make([]Token, 0, len(all))
	for _, t := range all {
		if t.Range.Start.Before(r.End) && r.Start.Before(t.Range.End) {
			out = append(out, t)
		}
	}
	return out, err
}

// Encode packs tokens into the relative five-integer form of the editor protocol. Tokens that
// span lines are split into one entry per line.
func Encode(content string, tokens []Token) []uint32 {
	type entry struct {
		line, char, length int
		tok                Token
	}

	var entries []entry
	for _, t := range tokens {
		for line := t.Range.Start.Line; line <= t.Range.End.Line; line++ {
			text, ok := position.Line(content, line)
			if !ok {
				break
			}
			start, end := 0, position.UTF16Len(text)
			if line == t.Range.Start.Line {
				start = t.Range.Start.Character
			}
			if line == t.Range.End.Line {
				end = t.Range.End.Character
			}
			if end > start {
				entries = append(entries, entry{line, start, end - start, t})
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].line != entries[j].line {
			return entries[i].line < entries[j].line
		}
		return entries[i].char < entries[j].char
	})

	data := make([]uint32, 0, len(entries)*5)
	prevLine, prevChar := 0, 0
	for _, e := range entries {
		deltaChar := e.char
		if e.line == prevLine {
			deltaChar = e.char - prevChar
		}
		data = append(data,
			uint32(e.line-prevLine),
			uint32(deltaChar),
			uint32(e.length),
			uint32(e.tok.Type-1),
			uint32(e.tok.Modifier),
		)
		prevLine, prevChar = e.line, e.char
	}
	return data
}
