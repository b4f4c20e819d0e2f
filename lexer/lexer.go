// Package lexer provides tokenization for Liquid templates.
package lexer

import (
	"fmt"
	"strings"

	lperrors "github.com/v3gtb/liquidpage/internal/errors"
)

const (
	blockStart = "{%"
	blockEnd   = "%}"
	varStart   = "{{"
	varEnd     = "}}"
)

// Lexer tokenizes Liquid template source code.
type Lexer struct {
	source    string
	pos       int    // current position in source
	start     int    // start position of current token
	line      uint16 // current line (1-indexed)
	col       uint16 // current column (0-indexed at line start)
	startLine uint16
	startCol  uint16

	stack                 []lexerState
	trimLeadingWhitespace bool
	pendingStartMarker    *pendingMarker
	prev                  TokenType
	expectPath            bool
}

type lexerState int

const (
	stateTemplate lexerState = iota
	stateVariable
	stateBlock
)

type startMarker int

const (
	markerVariable startMarker = iota
	markerBlock
)

type pendingMarker struct {
	marker startMarker
	length int
}

type whitespaceMode int

const (
	wsDefault whitespaceMode = iota
	wsRemove                 // -
)

// tags whose first argument is a file path rather than an expression
var pathTags = map[string]bool{
	"include":          true,
	"include_relative": true,
}

// New creates a new Lexer for the given input.
func New(input string) *Lexer {
	return &Lexer{
		source: input,
		line:   1,
		stack:  []lexerState{stateTemplate},
		prev:   -1,
	}
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) ([]Token, error) {
	return New(input).All()
}

// All collects all tokens into a slice.
func (l *Lexer) All() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			break
		}
		tokens = append(tokens, *tok)
	}
	return tokens, nil
}

// Next returns the next token, or nil at end of input.
func (l *Lexer) Next() (*Token, error) {
	for {
		if l.atEnd() {
			return nil, nil
		}

		var tok *Token
		var err error
		var cont bool

		switch l.currentState() {
		case stateTemplate:
			tok, cont, err = l.tokenizeRoot()
		case stateVariable:
			tok, cont, err = l.tokenizeBlockOrVar(stateVariable)
		case stateBlock:
			tok, cont, err = l.tokenizeBlockOrVar(stateBlock)
		}

		if err != nil {
			return nil, err
		}
		if cont {
			continue
		}
		if tok != nil {
			l.prev = tok.Type
			return tok, nil
		}
	}
}

func (l *Lexer) currentState() lexerState {
	if len(l.stack) == 0 {
		return stateTemplate
	}
	return l.stack[len(l.stack)-1]
}

func (l *Lexer) pushState(s lexerState) {
	l.stack = append(l.stack, s)
}

func (l *Lexer) popState() {
	if len(l.stack) > 1 {
		l.stack = l.stack[:len(l.stack)-1]
	}
}

// tokenizeRoot handles template data state.
func (l *Lexer) tokenizeRoot() (*Token, bool, error) {
	if l.pendingStartMarker != nil {
		pm := l.pendingStartMarker
		l.pendingStartMarker = nil
		return l.handleStartMarker(pm.marker, pm.length)
	}

	if l.trimLeadingWhitespace {
		l.trimLeadingWhitespace = false
		l.skipWhitespace()
		if l.atEnd() {
			return nil, false, nil
		}
	}

	l.markStart()

	match := l.findStartMarker()
	if match == nil {
		text := l.advance(len(l.source) - l.pos)
		tok := l.makeToken(TokenTemplateData, text)
		return &tok, false, nil
	}

	l.pendingStartMarker = &pendingMarker{marker: match.marker, length: match.length}

	var lead string
	var span Span
	switch match.ws {
	case wsDefault:
		lead = l.advance(match.offset)
		span = l.span()
	case wsRemove:
		peeked := l.rest()[:match.offset]
		trimmed := strings.TrimRight(peeked, " \t\n\r")
		lead = l.advance(len(trimmed))
		span = l.span()
		l.advance(len(peeked) - len(trimmed))
	}

	if lead == "" {
		return nil, true, nil
	}

	tok := Token{
		Type:  TokenTemplateData,
		Value: lead,
		Span:  span,
	}
	return &tok, false, nil
}

type markerMatch struct {
	offset int
	marker startMarker
	length int
	ws     whitespaceMode
}

func (l *Lexer) findStartMarker() *markerMatch {
	rest := l.rest()
	offset := 0

	for offset < len(rest) {
		idx := strings.IndexByte(rest[offset:], '{')
		if idx < 0 {
			return nil
		}
		idx += offset
		if idx+1 >= len(rest) {
			return nil
		}

		var marker startMarker
		switch rest[idx+1] {
		case '{':
			marker = markerVariable
		case '%':
			marker = markerBlock
		default:
			offset = idx + 1
			continue
		}

		m := &markerMatch{offset: idx, marker: marker, length: 2}
		if idx+2 < len(rest) && rest[idx+2] == '-' {
			m.ws = wsRemove
			m.length++
		}
		return m
	}

	return nil
}

func (l *Lexer) handleStartMarker(marker startMarker, skip int) (*Token, bool, error) {
	switch marker {
	case markerVariable:
		l.markStart()
		l.advance(skip)
		l.pushState(stateVariable)
		tok := l.makeToken(TokenVariableStart, varStart)
		return &tok, false, nil

	case markerBlock:
		blockContent := l.rest()[skip:]
		if rawLen, wsStart := skipBasicTag(blockContent, "raw"); rawLen > 0 {
			l.advance(skip + rawLen)
			return l.handleRawTag(wsStart)
		}
		if commentLen, wsStart := skipBasicTag(blockContent, "comment"); commentLen > 0 {
			l.markStart()
			l.advance(skip + commentLen)
			return l.handleCommentTag(wsStart)
		}
		if strings.HasPrefix(strings.TrimLeft(blockContent, " \t\n\r"), "#") {
			return l.handleInlineComment(skip)
		}

		l.markStart()
		l.advance(skip)
		l.pushState(stateBlock)
		tok := l.makeToken(TokenBlockStart, blockStart)
		return &tok, false, nil
	}

	return nil, false, nil
}

// handleRawTag emits everything up to the matching endraw tag as template
// data.
func (l *Lexer) handleRawTag(wsStart whitespaceMode) (*Token, bool, error) {
	l.markStart()

	rest := l.rest()
	ptr := 0
	for {
		blockIdx := strings.Index(rest[ptr:], blockStart)
		if blockIdx < 0 {
			l.advance(len(rest))
			return nil, false, l.syntaxError("unexpected end of raw block")
		}
		blockIdx += ptr
		afterBlockStart := blockIdx + len(blockStart)

		endrawLen, wsNext := skipBasicTag(rest[afterBlockStart:], "endraw")
		if endrawLen == 0 {
			ptr = afterBlockStart
			continue
		}

		result := rest[:blockIdx]
		if wsStart == wsRemove {
			result = strings.TrimLeft(result, " \t\n\r")
		}
		if afterBlockStart < len(rest) && rest[afterBlockStart] == '-' {
			result = strings.TrimRight(result, " \t\n\r")
		}

		l.advance(blockIdx)
		span := l.span()
		l.advance(len(blockStart) + endrawLen)
		l.handleTailWhitespace(wsNext)

		tok := Token{
			Type:  TokenTemplateData,
			Value: result,
			Span:  span,
		}
		return &tok, false, nil
	}
}

// handleCommentTag skips a comment block. Comment blocks nest.
func (l *Lexer) handleCommentTag(_ whitespaceMode) (*Token, bool, error) {
	depth := 1
	for {
		rest := l.rest()
		blockIdx := strings.Index(rest, blockStart)
		if blockIdx < 0 {
			l.advance(len(rest))
			return nil, false, l.syntaxError("unexpected end of comment block")
		}
		l.advance(blockIdx + len(blockStart))
		inner := l.rest()

		if n, _ := skipBasicTag(inner, "comment"); n > 0 {
			depth++
			l.advance(n)
			continue
		}
		if n, wsNext := skipBasicTag(inner, "endcomment"); n > 0 {
			l.advance(n)
			depth--
			if depth == 0 {
				l.handleTailWhitespace(wsNext)
				return nil, true, nil
			}
		}
	}
}

// handleInlineComment skips a `{% # ... %}` tag.
func (l *Lexer) handleInlineComment(skip int) (*Token, bool, error) {
	l.markStart()
	l.advance(skip)
	rest := l.rest()
	endIdx := strings.Index(rest, blockEnd)
	if endIdx < 0 {
		l.advance(len(rest))
		return nil, false, l.syntaxError("unexpected end of comment")
	}
	ws := wsDefault
	if endIdx > 0 && rest[endIdx-1] == '-' {
		ws = wsRemove
	}
	l.advance(endIdx + len(blockEnd))
	l.handleTailWhitespace(ws)
	return nil, true, nil
}

// skipBasicTag checks if the string starts with a simple tag like "raw" or
// "endraw" (the part after the opening delimiter). It returns the length to
// skip, including the closing delimiter, and the whitespace mode at the end.
func skipBasicTag(s string, name string) (int, whitespaceMode) {
	ptr := strings.TrimPrefix(s, "-")
	ptr = strings.TrimLeft(ptr, " \t\n\r")

	if !strings.HasPrefix(ptr, name) {
		return 0, wsDefault
	}
	ptr = ptr[len(name):]
	if len(ptr) > 0 && isIdentPart(ptr[0]) {
		return 0, wsDefault
	}

	ptr = strings.TrimLeft(ptr, " \t\n\r")

	ws := wsDefault
	if strings.HasPrefix(ptr, "-") {
		ws = wsRemove
		ptr = ptr[1:]
	}
	if !strings.HasPrefix(ptr, blockEnd) {
		return 0, wsDefault
	}
	ptr = ptr[len(blockEnd):]

	return len(s) - len(ptr), ws
}

func (l *Lexer) handleTailWhitespace(ws whitespaceMode) {
	if ws == wsRemove {
		l.trimLeadingWhitespace = true
	}
}

// tokenizeBlockOrVar handles tokens inside {% %} or {{ }}.
func (l *Lexer) tokenizeBlockOrVar(state lexerState) (*Token, bool, error) {
	l.skipWhitespace()
	if l.atEnd() {
		return nil, false, nil
	}

	l.markStart()
	rest := l.rest()

	end := varEnd
	endType := TokenVariableEnd
	if state == stateBlock {
		end = blockEnd
		endType = TokenBlockEnd
	}
	if rest[0] == '-' && strings.HasPrefix(rest[1:], end) {
		l.popState()
		l.advance(1 + len(end))
		l.trimLeadingWhitespace = true
		l.expectPath = false
		tok := l.makeToken(endType, "-"+end)
		return &tok, false, nil
	}
	if strings.HasPrefix(rest, end) {
		l.popState()
		l.advance(len(end))
		l.expectPath = false
		tok := l.makeToken(endType, end)
		return &tok, false, nil
	}

	if l.expectPath {
		l.expectPath = false
		if rest[0] != '"' && rest[0] != '\'' {
			return l.lexPath(end)
		}
	}

	if len(rest) >= 2 {
		var typ TokenType = -1
		switch rest[:2] {
		case "==":
			typ = TokenEq
		case "!=", "<>":
			typ = TokenNe
		case ">=":
			typ = TokenGe
		case "<=":
			typ = TokenLe
		case "..":
			typ = TokenDotDot
		}
		if typ >= 0 {
			op := l.advance(2)
			tok := l.makeToken(typ, op)
			return &tok, false, nil
		}
	}

	ch := rest[0]
	var typ TokenType = -1
	switch ch {
	case '<':
		typ = TokenLt
	case '>':
		typ = TokenGt
	case '=':
		typ = TokenAssign
	case '.':
		typ = TokenDot
	case ',':
		typ = TokenComma
	case ':':
		typ = TokenColon
	case '|':
		typ = TokenPipe
	case '(':
		typ = TokenParenOpen
	case ')':
		typ = TokenParenClose
	case '[':
		typ = TokenBracketOpen
	case ']':
		typ = TokenBracketClose
	case '"', '\'':
		return l.lexString(ch)
	}
	if typ >= 0 {
		l.advance(1)
		tok := l.makeToken(typ, string(ch))
		return &tok, false, nil
	}

	if isDigit(ch) || (ch == '-' && len(rest) > 1 && isDigit(rest[1])) {
		return l.lexNumber()
	}

	if isIdentStart(ch) {
		return l.lexIdent(state)
	}

	return nil, false, l.syntaxError(fmt.Sprintf("unexpected character %q", ch))
}

// lexString lexes a string literal. Liquid strings have no escape
// sequences.
func (l *Lexer) lexString(quote byte) (*Token, bool, error) {
	rest := l.rest()
	endIdx := strings.IndexByte(rest[1:], quote)
	if endIdx < 0 {
		l.advance(len(rest))
		return nil, false, l.syntaxError("unexpected end of string")
	}
	l.advance(endIdx + 2)
	tok := l.makeToken(TokenString, rest[1:endIdx+1])
	return &tok, false, nil
}

// lexNumber lexes an integer or float literal with an optional leading
// minus sign.
func (l *Lexer) lexNumber() (*Token, bool, error) {
	rest := l.rest()
	n := 0
	if rest[0] == '-' {
		n++
	}
	for n < len(rest) && isDigit(rest[n]) {
		n++
	}

	typ := TokenInteger
	// "1..5" is a range, not the float "1."
	if n+1 < len(rest) && rest[n] == '.' && isDigit(rest[n+1]) {
		typ = TokenFloat
		n++
		for n < len(rest) && isDigit(rest[n]) {
			n++
		}
	}

	num := l.advance(n)
	tok := l.makeToken(typ, num)
	return &tok, false, nil
}

// lexIdent lexes an identifier. Identifiers may contain dashes and end in a
// question mark.
func (l *Lexer) lexIdent(state lexerState) (*Token, bool, error) {
	rest := l.rest()
	n := 1
	for n < len(rest) {
		c := rest[n]
		if c == '-' {
			if n+1 < len(rest) && isIdentPart(rest[n+1]) {
				n++
				continue
			}
			break
		}
		if !isIdentPart(c) {
			break
		}
		n++
	}
	if n < len(rest) && rest[n] == '?' {
		n++
	}

	value := l.advance(n)
	if state == stateBlock && l.prev == TokenBlockStart && pathTags[value] {
		l.expectPath = true
	}
	tok := l.makeToken(TokenIdent, value)
	return &tok, false, nil
}

// lexPath lexes an unquoted include path up to the next whitespace or the
// end of the tag.
func (l *Lexer) lexPath(end string) (*Token, bool, error) {
	rest := l.rest()
	n := 0
	for n < len(rest) {
		// keep `{{ var }}` segments whole so the parser can reject them
		if strings.HasPrefix(rest[n:], varStart) {
			if idx := strings.Index(rest[n:], varEnd); idx >= 0 {
				n += idx + len(varEnd)
				continue
			}
		}
		c := rest[n]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		if strings.HasPrefix(rest[n:], end) || strings.HasPrefix(rest[n:], "-"+end) {
			break
		}
		n++
	}
	path := l.advance(n)
	tok := l.makeToken(TokenPath, path)
	return &tok, false, nil
}

// Helper methods

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) rest() string {
	if l.pos >= len(l.source) {
		return ""
	}
	return l.source[l.pos:]
}

func (l *Lexer) advance(n int) string {
	if n <= 0 {
		return ""
	}
	start := l.pos
	end := min(l.pos+n, len(l.source))

	skipped := l.source[start:end]
	for _, c := range skipped {
		if c == '\n' {
			l.line++
			l.col = 0
		} else if l.col < 65535 {
			l.col++
		}
	}
	l.pos = end
	return skipped
}

func (l *Lexer) markStart() {
	l.start = l.pos
	l.startLine = l.line
	l.startCol = l.col
}

func (l *Lexer) span() Span {
	return Span{
		StartLine:   l.startLine,
		StartCol:    l.startCol,
		StartOffset: uint32(l.start),
		EndLine:     l.line,
		EndCol:      l.col,
		EndOffset:   uint32(l.pos),
	}
}

func (l *Lexer) makeToken(typ TokenType, value string) Token {
	return Token{
		Type:  typ,
		Value: value,
		Span:  l.span(),
	}
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		c := l.source[l.pos]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			break
		}
		l.advance(1)
	}
}

func (l *Lexer) syntaxError(msg string) error {
	return lperrors.NewError(lperrors.ErrSyntax, msg).WithSpan(Span{
		StartLine:   l.line,
		StartCol:    l.col,
		StartOffset: uint32(l.pos),
		EndLine:     l.line,
		EndCol:      l.col,
		EndOffset:   uint32(l.pos),
	})
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
