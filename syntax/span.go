// Package syntax holds source-location types shared by the lexer, parser and
// error reporting.
package syntax

// Span represents a location range in source code.
//
// Lines are 1-based, columns are 0-based rune offsets within the line.
type Span struct {
	StartLine   uint16
	StartCol    uint16
	StartOffset uint32
	EndLine     uint16
	EndCol      uint16
	EndOffset   uint32
}

// ShiftLines moves the span down by n lines. Byte offsets are left alone
// since they are relative to the text the span was produced from.
func (s Span) ShiftLines(n int) Span {
	if n <= 0 {
		return s
	}
	s.StartLine += uint16(n)
	s.EndLine += uint16(n)
	return s
}
