package position

import (
	"unicode"
	"unicode/utf16"
)

// Word is a run of non-whitespace on a single line. Start and End are UTF-16 columns, End exclusive.
type Word struct {
	Text  string
	Start int
	End   int
}

// Range lifts the word onto the given zero-based line.
func (w Word) Range(line int) Range {
	return NewRange(line, w.Start, line, w.End)
}

// WordAt returns the contiguous non-whitespace text around offset in lineText.
// offset is a UTF-16 column. It reports false when offset is out of range or sits on whitespace.
func WordAt(lineText string, offset int) (Word, bool) {
	units := utf16.Encode([]rune(lineText))

	if offset < 0 || offset >= len(units) || isSpaceUnit(units[offset]) {
		return Word{}, false
	}

	start := offset
	for start > 0 && !isSpaceUnit(units[start-1]) {
		start--
	}

	end := offset + 1
	for end < len(units) && !isSpaceUnit(units[end]) {
		end++
	}

	return Word{
		Text:  string(utf16.Decode(units[start:end])),
		Start: start,
		End:   end,
	}, true
}

// surrogate halves are never whitespace
func isSpaceUnit(u uint16) bool {
	if utf16.IsSurrogate(rune(u)) {
		return false
	}
	return unicode.IsSpace(rune(u))
}
