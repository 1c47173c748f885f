// Package position holds the coordinate types shared by the parser and the editor features.
//
// Every Place in this module uses the editor convention: a zero-based line and a zero-based
// column counted in UTF-16 code units. The lexer emits this convention directly, so nothing
// downstream ever converts between coordinate systems.
package position

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Place is a single point in a document.
type Place struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Compare returns -1, 0 or +1 depending on whether p sorts before, equal to or after o.
func (p Place) Compare(o Place) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Character < o.Character:
		return -1
	case p.Character > o.Character:
		return 1
	}
	return 0
}

func (p Place) Before(o Place) bool {
	return p.Compare(o) < 0
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range is a half-open span [Start, End).
type Range struct {
	Start Place `json:"start"`
	End   Place `json:"end"`
}

func NewRange(startLine, startChar, endLine, endChar int) Range {
	return Range{
		Start: Place{Line: startLine, Character: startChar},
		End:   Place{Line: endLine, Character: endChar},
	}
}

// PointRange is a zero width range at p.
func PointRange(p Place) Range {
	return Range{Start: p, End: p}
}

// Contains reports whether o lies entirely inside r.
func (r Range) Contains(o Range) bool {
	return r.Start.Compare(o.Start) <= 0 && o.End.Compare(r.End) <= 0
}

func (r Range) ContainsPlace(p Place) bool {
	return r.Start.Compare(p) <= 0 && p.Compare(r.End) <= 0
}

func (r Range) Empty() bool {
	return r.Start == r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// RawPosition represents a position in the source text
type RawPosition struct {
	// Offset is the byte offset in the source text
	Offset int
	// Text is the actual text at this position
	Text string
}

// ID returns a unique identifier for this position based on offset and text
func (p *RawPosition) ID() string {
	return fmt.Sprintf("%s@%d", p.Text, p.Offset)
}

// Length returns the length in bytes of the text at this position
func (p *RawPosition) Length() int {
	return len(p.Text)
}

func NewBasicPosition(text string, offset int) RawPosition {
	return RawPosition{Text: text, Offset: offset}
}

// NewRawPositionFromPlace resolves an editor place against fileText.
func NewRawPositionFromPlace(place Place, text, fileText string) RawPosition {
	return RawPosition{Text: text, Offset: OffsetOf(fileText, place)}
}

func (p RawPosition) HasRangeOverlapWith(start RawPosition) bool {
	startOffset := start.Offset
	endOffset := startOffset + start.Length()

	posOffset := p.Offset
	posEndOffset := posOffset + p.Length()

	// zero-length positions overlap when they fall inside the other range
	if p.Length() == 0 {
		return posOffset >= startOffset && posOffset <= endOffset
	}
	if start.Length() == 0 {
		return startOffset >= posOffset && startOffset <= posEndOffset
	}

	return startOffset < posEndOffset && endOffset > posOffset
}

func (p RawPosition) GetEndPosition() RawPosition {
	return RawPosition{
		Text:   "",
		Offset: p.Offset + p.Length(),
	}
}

// GetRange converts the byte span of p into an editor range over fileText.
func (p RawPosition) GetRange(fileText string) Range {
	return Range{
		Start: PlaceOf(fileText, p.Offset),
		End:   PlaceOf(fileText, p.GetEndPosition().Offset),
	}
}

func (p RawPosition) String() string {
	return fmt.Sprintf("%s@%d", p.Text, p.Offset)
}

// PlaceOf converts a byte offset in text into a Place. Offsets past the end clamp to the end.
func PlaceOf(text string, offset int) Place {
	if offset > len(text) {
		offset = len(text)
	}

	var place Place
	for i := 0; i < offset; {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '\n' {
			place.Line++
			place.Character = 0
		} else {
			place.Character += UTF16RuneLen(r)
		}
		i += size
	}
	return place
}

// OffsetOf converts a Place into a byte offset in text. A column past the end of its line
// clamps to the line end, a line past the end of the text clamps to len(text).
func OffsetOf(text string, place Place) int {
	offset := 0
	for line := 0; line < place.Line; line++ {
		idx := strings.IndexByte(text[offset:], '\n')
		if idx < 0 {
			return len(text)
		}
		offset += idx + 1
	}

	for units := 0; offset < len(text) && units < place.Character; {
		r, size := utf8.DecodeRuneInString(text[offset:])
		if r == '\n' {
			break
		}
		units += UTF16RuneLen(r)
		offset += size
	}
	return offset
}

// EndOf returns the Place just past the last character of text.
func EndOf(text string) Place {
	return PlaceOf(text, len(text))
}

// Line returns the content of the zero-based line n without its terminator.
func Line(text string, n int) (string, bool) {
	if n < 0 {
		return "", false
	}
	lines := strings.Split(text, "\n")
	if n >= len(lines) {
		return "", false
	}
	return strings.TrimSuffix(lines[n], "\r"), true
}

// UTF16Len is the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += UTF16RuneLen(r)
	}
	return n
}

func UTF16RuneLen(r rune) int {
	if n := len(utf16.Encode([]rune{r})); n > 0 {
		return n
	}
	// invalid runes are replaced by U+FFFD, which is one unit
	return 1
}
