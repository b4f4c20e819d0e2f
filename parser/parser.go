package parser

import (
	"fmt"
	"strconv"
	"strings"

	lperrors "github.com/v3gtb/liquidpage/internal/errors"
	"github.com/v3gtb/liquidpage/lexer"
)

const maxRecursion = 150

// Parser parses Liquid templates.
type Parser struct {
	tokens    []lexer.Token
	pos       int
	filename  string
	loopDepth int
	depth     int
	lastSpan  Span
}

// Parse parses a template string and returns the AST or an error.
//
// Errors are *errors.Error values of kind SyntaxError carrying the template
// name and the location of the offending token.
func Parse(source, filename string) (*Template, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		if e, ok := err.(*lperrors.Error); ok {
			e.WithName(filename)
		}
		return nil, err
	}

	p := &Parser{
		tokens:   tokens,
		filename: filename,
	}

	tmpl, parseErr := p.parse()
	if parseErr != nil {
		return nil, parseErr
	}
	return tmpl, nil
}

func (p *Parser) parse() (*Template, *lperrors.Error) {
	span := Span{StartLine: 1}
	children, err := p.subparse(func(lexer.Token) bool { return false })
	if err != nil {
		return nil, err
	}
	return &Template{
		Children: children,
		span:     p.expandSpan(span),
	}, nil
}

func (p *Parser) current() *lexer.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) peek(n int) *lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+n]
}

func (p *Parser) advance() *lexer.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	tok := &p.tokens[p.pos]
	p.lastSpan = tok.Span
	p.pos++
	return tok
}

func (p *Parser) currentSpan() Span {
	if tok := p.current(); tok != nil {
		return tok.Span
	}
	return p.lastSpan
}

func (p *Parser) expandSpan(start Span) Span {
	return Span{
		StartLine:   start.StartLine,
		StartCol:    start.StartCol,
		StartOffset: start.StartOffset,
		EndLine:     p.lastSpan.EndLine,
		EndCol:      p.lastSpan.EndCol,
		EndOffset:   p.lastSpan.EndOffset,
	}
}

func (p *Parser) syntaxError(msg string) *lperrors.Error {
	return lperrors.NewError(lperrors.ErrSyntax, msg).
		WithSpan(p.currentSpan()).
		WithName(p.filename)
}

func (p *Parser) unexpected(got string, expected string) *lperrors.Error {
	return p.syntaxError(fmt.Sprintf("unexpected %s, expected %s", got, expected))
}

func (p *Parser) unexpectedEOF(expected string) *lperrors.Error {
	return p.syntaxError(fmt.Sprintf("unexpected end of input, expected %s", expected))
}

func (p *Parser) expect(typ lexer.TokenType, expected string) (*lexer.Token, *lperrors.Error) {
	tok := p.current()
	if tok == nil {
		return nil, p.unexpectedEOF(expected)
	}
	if tok.Type != typ {
		return nil, p.unexpected(tokenDescription(tok), expected)
	}
	return p.advance(), nil
}

func (p *Parser) expectBlockEnd() *lperrors.Error {
	_, err := p.expect(lexer.TokenBlockEnd, "end of block")
	return err
}

func (p *Parser) expectIdent(expected string) (string, Span, *lperrors.Error) {
	tok, err := p.expect(lexer.TokenIdent, expected)
	if err != nil {
		return "", Span{}, err
	}
	return tok.Value, tok.Span, nil
}

func (p *Parser) expectKeyword(kw string) *lperrors.Error {
	tok := p.current()
	if tok == nil {
		return p.unexpectedEOF(fmt.Sprintf("'%s'", kw))
	}
	if tok.Type != lexer.TokenIdent || tok.Value != kw {
		return p.unexpected(tokenDescription(tok), fmt.Sprintf("'%s'", kw))
	}
	p.advance()
	return nil
}

// expectEndTag consumes `{% name` where name is one of names and returns
// the name and the span of the opening delimiter.
func (p *Parser) expectEndTag(names ...string) (string, Span, *lperrors.Error) {
	expected := "'" + strings.Join(names, "' or '") + "'"
	start, err := p.expect(lexer.TokenBlockStart, expected)
	if err != nil {
		return "", Span{}, err
	}
	span := start.Span
	tok := p.current()
	if tok == nil {
		return "", Span{}, p.unexpectedEOF(expected)
	}
	for _, name := range names {
		if tok.Type == lexer.TokenIdent && tok.Value == name {
			p.advance()
			return name, span, nil
		}
	}
	return "", Span{}, p.unexpected(tokenDescription(tok), expected)
}

func (p *Parser) skip(typ lexer.TokenType) bool {
	if tok := p.current(); tok != nil && tok.Type == typ {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) skipKeyword(kw string) bool {
	if tok := p.current(); tok != nil && tok.Type == lexer.TokenIdent && tok.Value == kw {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) matches(typ lexer.TokenType) bool {
	tok := p.current()
	return tok != nil && tok.Type == typ
}

func tokenDescription(tok *lexer.Token) string {
	switch tok.Type {
	case lexer.TokenIdent:
		return fmt.Sprintf("'%s'", tok.Value)
	case lexer.TokenString:
		return "string"
	case lexer.TokenInteger:
		return "integer"
	case lexer.TokenFloat:
		return "float"
	case lexer.TokenTemplateData:
		return "template data"
	case lexer.TokenBlockEnd:
		return "end of block"
	case lexer.TokenVariableEnd:
		return "end of variable block"
	default:
		return fmt.Sprintf("`%s`", tok.Value)
	}
}

func endTags(names ...string) func(lexer.Token) bool {
	return func(tok lexer.Token) bool {
		if tok.Type != lexer.TokenIdent {
			return false
		}
		for _, name := range names {
			if tok.Value == name {
				return true
			}
		}
		return false
	}
}

// --- Statement Parsing ---

// subparse parses statements until end of input or until a block tag whose
// name satisfies endCheck. The end tag is left unconsumed.
func (p *Parser) subparse(endCheck func(lexer.Token) bool) ([]Stmt, *lperrors.Error) {
	var stmts []Stmt
	for {
		tok := p.current()
		if tok == nil {
			return stmts, nil
		}

		switch tok.Type {
		case lexer.TokenTemplateData:
			p.advance()
			stmts = append(stmts, &EmitRaw{Raw: tok.Value, span: tok.Span})

		case lexer.TokenVariableStart:
			span := tok.Span
			p.advance()
			expr, err := p.parseOutputExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokenVariableEnd, "end of variable block"); err != nil {
				return nil, err
			}
			stmts = append(stmts, &EmitExpr{Expr: expr, span: p.expandSpan(span)})

		case lexer.TokenBlockStart:
			if next := p.peek(1); next != nil && endCheck(*next) {
				return stmts, nil
			}
			span := tok.Span
			p.advance()
			stmt, err := p.parseStmt(span)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)

		default:
			return nil, p.unexpected(tokenDescription(tok), "template data or tag")
		}
	}
}

func (p *Parser) parseStmt(span Span) (Stmt, *lperrors.Error) {
	name, _, err := p.expectIdent("tag name")
	if err != nil {
		return nil, err
	}

	switch name {
	case "if":
		return p.parseIfCond(span, "endif", false)
	case "unless":
		return p.parseIfCond(span, "endunless", true)
	case "case":
		return p.parseCase(span)
	case "for":
		return p.parseForStmt(span)
	case "assign":
		return p.parseAssign(span)
	case "capture":
		return p.parseCapture(span)
	case "increment", "decrement":
		return p.parseIncrement(span, name == "decrement")
	case "include", "include_relative":
		return p.parseInclude(span, name == "include_relative")
	case "echo":
		expr, err := p.parseOutputExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectBlockEnd(); err != nil {
			return nil, err
		}
		return &EmitExpr{Expr: expr, span: p.expandSpan(span)}, nil
	case "break", "continue":
		if p.loopDepth == 0 {
			return nil, p.syntaxError(fmt.Sprintf("'%s' must be placed inside a loop", name))
		}
		if err := p.expectBlockEnd(); err != nil {
			return nil, err
		}
		if name == "break" {
			return &Break{span: p.expandSpan(span)}, nil
		}
		return &Continue{span: p.expandSpan(span)}, nil
	case "else", "elsif", "when", "endif", "endunless", "endcase", "endfor", "endcapture", "endraw", "endcomment":
		return nil, p.syntaxError(fmt.Sprintf("unexpected tag '%s'", name))
	default:
		return nil, p.syntaxError(fmt.Sprintf("unknown tag '%s'", name))
	}
}

func (p *Parser) parseIfCond(span Span, endTag string, negate bool) (*IfCond, *lperrors.Error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if negate {
		expr = &Not{Expr: expr, span: expr.Span()}
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}

	trueBody, err := p.subparse(endTags("elsif", "else", endTag))
	if err != nil {
		return nil, err
	}

	tag, tagSpan, err := p.expectEndTag("elsif", "else", endTag)
	if err != nil {
		return nil, err
	}

	var falseBody []Stmt
	switch tag {
	case "elsif":
		nested, err := p.parseIfCond(tagSpan, endTag, false)
		if err != nil {
			return nil, err
		}
		falseBody = []Stmt{nested}
	case "else":
		if err := p.expectBlockEnd(); err != nil {
			return nil, err
		}
		falseBody, err = p.subparse(endTags(endTag))
		if err != nil {
			return nil, err
		}
		if _, _, err := p.expectEndTag(endTag); err != nil {
			return nil, err
		}
		if err := p.expectBlockEnd(); err != nil {
			return nil, err
		}
	default:
		if err := p.expectBlockEnd(); err != nil {
			return nil, err
		}
	}

	return &IfCond{
		Expr:      expr,
		TrueBody:  trueBody,
		FalseBody: falseBody,
		span:      p.expandSpan(span),
	}, nil
}

func (p *Parser) parseCase(span Span) (*Case, *lperrors.Error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}

	// text between `case` and the first `when` is ignored
	if _, err := p.subparse(endTags("when", "else", "endcase")); err != nil {
		return nil, err
	}

	c := &Case{Expr: expr}
	for {
		tag, _, err := p.expectEndTag("when", "else", "endcase")
		if err != nil {
			return nil, err
		}
		switch tag {
		case "when":
			var values []Expr
			for {
				val, err := p.parsePostfix()
				if err != nil {
					return nil, err
				}
				values = append(values, val)
				if !p.skip(lexer.TokenComma) && !p.skipKeyword("or") {
					break
				}
			}
			if err := p.expectBlockEnd(); err != nil {
				return nil, err
			}
			body, err := p.subparse(endTags("when", "else", "endcase"))
			if err != nil {
				return nil, err
			}
			c.Whens = append(c.Whens, When{Values: values, Body: body})
		case "else":
			if err := p.expectBlockEnd(); err != nil {
				return nil, err
			}
			c.ElseBody, err = p.subparse(endTags("endcase"))
			if err != nil {
				return nil, err
			}
		case "endcase":
			if err := p.expectBlockEnd(); err != nil {
				return nil, err
			}
			c.span = p.expandSpan(span)
			return c, nil
		}
	}
}

func (p *Parser) parseForStmt(span Span) (*ForLoop, *lperrors.Error) {
	name, _, err := p.expectIdent("loop variable")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iter, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}

	loop := &ForLoop{Var: name, Iter: iter}
	for p.matches(lexer.TokenIdent) {
		attr, _, _ := p.expectIdent("loop attribute")
		switch attr {
		case "reversed":
			loop.Reversed = true
		case "limit", "offset":
			if _, err := p.expect(lexer.TokenColon, "':'"); err != nil {
				return nil, err
			}
			val, err := p.parsePostfix()
			if err != nil {
				return nil, err
			}
			if attr == "limit" {
				loop.Limit = val
			} else {
				loop.Offset = val
			}
		default:
			return nil, p.syntaxError(fmt.Sprintf("invalid for loop attribute '%s'", attr))
		}
		p.skip(lexer.TokenComma)
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}

	p.loopDepth++
	loop.Body, err = p.subparse(endTags("else", "endfor"))
	p.loopDepth--
	if err != nil {
		return nil, err
	}

	tag, _, err := p.expectEndTag("else", "endfor")
	if err != nil {
		return nil, err
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	if tag == "else" {
		loop.ElseBody, err = p.subparse(endTags("endfor"))
		if err != nil {
			return nil, err
		}
		if _, _, err := p.expectEndTag("endfor"); err != nil {
			return nil, err
		}
		if err := p.expectBlockEnd(); err != nil {
			return nil, err
		}
		if loop.ElseBody == nil {
			loop.ElseBody = []Stmt{}
		}
	}

	loop.span = p.expandSpan(span)
	return loop, nil
}

func (p *Parser) parseAssign(span Span) (*Assign, *lperrors.Error) {
	name, _, err := p.expectIdent("variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenAssign, "'='"); err != nil {
		return nil, err
	}
	expr, err := p.parseOutputExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	return &Assign{Name: name, Expr: expr, span: p.expandSpan(span)}, nil
}

func (p *Parser) parseCapture(span Span) (*Capture, *lperrors.Error) {
	name, _, err := p.expectIdent("variable name")
	if err != nil {
		return nil, err
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	body, err := p.subparse(endTags("endcapture"))
	if err != nil {
		return nil, err
	}
	if _, _, err := p.expectEndTag("endcapture"); err != nil {
		return nil, err
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	return &Capture{Name: name, Body: body, span: p.expandSpan(span)}, nil
}

func (p *Parser) parseIncrement(span Span, decrement bool) (*Increment, *lperrors.Error) {
	name, _, err := p.expectIdent("variable name")
	if err != nil {
		return nil, err
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	return &Increment{Name: name, Decrement: decrement, span: p.expandSpan(span)}, nil
}

func (p *Parser) parseInclude(span Span, relative bool) (*Include, *lperrors.Error) {
	tok := p.current()
	if tok == nil {
		return nil, p.unexpectedEOF("include path")
	}
	if tok.Type != lexer.TokenString && tok.Type != lexer.TokenPath {
		return nil, p.unexpected(tokenDescription(tok), "include path")
	}
	p.advance()
	if strings.Contains(tok.Value, "{{") {
		return nil, p.syntaxError("dynamic include paths are not supported")
	}

	inc := &Include{Name: tok.Value, Relative: relative}
	for p.matches(lexer.TokenIdent) {
		name, _, _ := p.expectIdent("parameter name")
		if !p.skip(lexer.TokenAssign) && !p.skip(lexer.TokenColon) {
			return nil, p.unexpected(tokenDescription(p.currentOrLast()), "'='")
		}
		val, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		inc.Params = append(inc.Params, Kwarg{Name: name, Value: val})
		p.skip(lexer.TokenComma)
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	inc.span = p.expandSpan(span)
	return inc, nil
}

func (p *Parser) currentOrLast() *lexer.Token {
	if tok := p.current(); tok != nil {
		return tok
	}
	return &lexer.Token{Type: lexer.TokenBlockEnd, Span: p.lastSpan}
}

// --- Expression Parsing ---

func (p *Parser) parseExpr() (Expr, *lperrors.Error) {
	p.depth++
	if p.depth > maxRecursion {
		return nil, p.syntaxError("template exceeds maximum recursion limits")
	}
	defer func() { p.depth-- }()
	return p.parseLogic()
}

// parseLogic parses and/or chains. Liquid gives both operators the same
// precedence and groups them from the right.
func (p *Parser) parseLogic() (Expr, *lperrors.Error) {
	span := p.currentSpan()
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	var op BinOpKind
	switch {
	case p.skipKeyword("and"):
		op = BinOpAnd
	case p.skipKeyword("or"):
		op = BinOpOr
	default:
		return left, nil
	}
	right, err := p.parseLogic()
	if err != nil {
		return nil, err
	}
	return &BinOp{Op: op, Left: left, Right: right, span: p.expandSpan(span)}, nil
}

func (p *Parser) parseComparison() (Expr, *lperrors.Error) {
	span := p.currentSpan()
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	if tok == nil {
		return left, nil
	}
	var op BinOpKind
	switch {
	case tok.Type == lexer.TokenEq:
		op = BinOpEq
	case tok.Type == lexer.TokenNe:
		op = BinOpNe
	case tok.Type == lexer.TokenLt:
		op = BinOpLt
	case tok.Type == lexer.TokenLe:
		op = BinOpLe
	case tok.Type == lexer.TokenGt:
		op = BinOpGt
	case tok.Type == lexer.TokenGe:
		op = BinOpGe
	case tok.Type == lexer.TokenIdent && tok.Value == "contains":
		op = BinOpContains
	default:
		return left, nil
	}
	p.advance()

	right, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	return &BinOp{Op: op, Left: left, Right: right, span: p.expandSpan(span)}, nil
}

// parseOutputExpr parses `value | filter: args | filter`.
func (p *Parser) parseOutputExpr() (Expr, *lperrors.Error) {
	expr, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	return p.parseFilters(expr)
}

func (p *Parser) parseFilters(expr Expr) (Expr, *lperrors.Error) {
	for p.skip(lexer.TokenPipe) {
		start := p.currentSpan()
		name, _, err := p.expectIdent("filter name")
		if err != nil {
			return nil, err
		}
		filter := &Filter{Expr: expr, Name: name}
		if p.skip(lexer.TokenColon) {
			for {
				if tok, next := p.current(), p.peek(1); tok != nil && next != nil &&
					tok.Type == lexer.TokenIdent && next.Type == lexer.TokenColon {
					p.advance()
					p.advance()
					val, err := p.parsePostfix()
					if err != nil {
						return nil, err
					}
					filter.Kwargs = append(filter.Kwargs, Kwarg{Name: tok.Value, Value: val})
				} else {
					arg, err := p.parsePostfix()
					if err != nil {
						return nil, err
					}
					filter.Args = append(filter.Args, arg)
				}
				if !p.skip(lexer.TokenComma) {
					break
				}
			}
		}
		filter.span = p.expandSpan(start)
		expr = filter
	}
	return expr, nil
}

func (p *Parser) parsePostfix() (Expr, *lperrors.Error) {
	span := p.currentSpan()
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.skip(lexer.TokenDot):
			name, _, err := p.expectIdent("attribute name")
			if err != nil {
				return nil, err
			}
			expr = &GetAttr{Expr: expr, Name: name, span: p.expandSpan(span)}
		case p.skip(lexer.TokenBracketOpen):
			sub, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokenBracketClose, "']'"); err != nil {
				return nil, err
			}
			expr = &GetItem{Expr: expr, SubscriptExpr: sub, span: p.expandSpan(span)}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, *lperrors.Error) {
	tok := p.current()
	if tok == nil {
		return nil, p.unexpectedEOF("expression")
	}
	span := tok.Span

	switch tok.Type {
	case lexer.TokenString:
		p.advance()
		return &Const{Value: tok.Value, span: span}, nil

	case lexer.TokenInteger:
		p.advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.syntaxError(fmt.Sprintf("invalid integer %s", tok.Value))
		}
		return &Const{Value: n, span: span}, nil

	case lexer.TokenFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.syntaxError(fmt.Sprintf("invalid float %s", tok.Value))
		}
		return &Const{Value: f, span: span}, nil

	case lexer.TokenIdent:
		p.advance()
		switch tok.Value {
		case "true":
			return &Const{Value: true, span: span}, nil
		case "false":
			return &Const{Value: false, span: span}, nil
		case "nil", "null":
			return &Const{Value: nil, span: span}, nil
		case "empty":
			return &EmptyLit{span: span}, nil
		case "blank":
			return &EmptyLit{Blank: true, span: span}, nil
		}
		return &Var{ID: tok.Value, span: span}, nil

	case lexer.TokenParenOpen:
		p.advance()
		start, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenDotDot, "'..'"); err != nil {
			return nil, err
		}
		end, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenParenClose, "')'"); err != nil {
			return nil, err
		}
		return &Range{Start: start, End: end, span: p.expandSpan(span)}, nil

	default:
		return nil, p.unexpected(tokenDescription(tok), "expression")
	}
}
