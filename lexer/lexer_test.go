package lexer

import (
	"errors"
	"strings"
	"testing"

	lperrors "github.com/v3gtb/liquidpage/internal/errors"
)

func stringifyTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.String()
	}
	return strings.Join(parts, " ")
}

func TestLexerBasic(t *testing.T) {
	tokens, err := Tokenize("Hello {{ name }}!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []struct {
		typ   TokenType
		value string
	}{
		{TokenTemplateData, "Hello "},
		{TokenVariableStart, "{{"},
		{TokenIdent, "name"},
		{TokenVariableEnd, "}}"},
		{TokenTemplateData, "!"},
	}

	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}

	for i, exp := range expected {
		if tokens[i].Type != exp.typ || tokens[i].Value != exp.value {
			t.Errorf("token %d: expected %s(%q), got %s(%q)",
				i, exp.typ, exp.value, tokens[i].Type, tokens[i].Value)
		}
	}
}

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"whitespace control",
			"a  {{- x -}}  b",
			`TemplateData("a") VariableStart("{{") Ident("x") VariableEnd("-}}") TemplateData("b")`,
		},
		{
			"raw",
			"{% raw %}{{ x }}{% endraw %}",
			`TemplateData("{{ x }}")`,
		},
		{
			"nested comment",
			"a{% comment %}x{% comment %}y{% endcomment %}z{% endcomment %}b",
			`TemplateData("a") TemplateData("b")`,
		},
		{
			"inline comment",
			"a{% # note %}b",
			`TemplateData("a") TemplateData("b")`,
		},
		{
			"include path",
			"{% include nav/footer.html title=page.title %}",
			`BlockStart("{%") Ident("include") Path("nav/footer.html") Ident("title") Assign("=") Ident("page") Dot(".") Ident("title") BlockEnd("%}")`,
		},
		{
			"quoted include",
			`{% include_relative "a b.md" %}`,
			`BlockStart("{%") Ident("include_relative") String("a b.md") BlockEnd("%}")`,
		},
		{
			"operators",
			"{{ a == 1 and b != 2.5 or c <> d }}",
			`VariableStart("{{") Ident("a") Eq("==") Int("1") Ident("and") Ident("b") Ne("!=") Float("2.5") Ident("or") Ident("c") Ne("<>") Ident("d") VariableEnd("}}")`,
		},
		{
			"range",
			"{{ (1..3) }}",
			`VariableStart("{{") ParenOpen("(") Int("1") DotDot("..") Int("3") ParenClose(")") VariableEnd("}}")`,
		},
		{
			"filter arguments",
			`{{ x | minus: -1, by: 'y' }}`,
			`VariableStart("{{") Ident("x") Pipe("|") Ident("minus") Colon(":") Int("-1") Comma(",") Ident("by") Colon(":") String("y") VariableEnd("}}")`,
		},
		{
			"dashed identifiers",
			"{{ my-var[0] empty? }}",
			`VariableStart("{{") Ident("my-var") BracketOpen("[") Int("0") BracketClose("]") Ident("empty?") VariableEnd("}}")`,
		},
		{
			"lone brace",
			"a { b } c",
			`TemplateData("a { b } c")`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Tokenize(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if actual := stringifyTokens(tokens); actual != tc.expected {
				t.Errorf("token mismatch\n  expected: %s\n  actual:   %s", tc.expected, actual)
			}
		})
	}
}

func TestLexerSpans(t *testing.T) {
	tokens, err := Tokenize("a\n  {{ x }}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ident *Token
	for i := range tokens {
		if tokens[i].Type == TokenIdent {
			ident = &tokens[i]
		}
	}
	if ident == nil {
		t.Fatal("no identifier token")
	}
	if ident.Span.StartLine != 2 || ident.Span.StartCol != 5 || ident.Span.EndCol != 6 {
		t.Errorf("unexpected span %+v", ident.Span)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input string
		line  uint16
	}{
		{"{{ 'open }}", 1},
		{"x\n{% raw %}never closed", 2},
		{"{% comment %}\n\nnever closed", 3},
		{"{% # no end", 1},
		{"{{ a @ b }}", 1},
	}
	for _, tc := range tests {
		_, err := Tokenize(tc.input)
		var lerr *lperrors.Error
		if !errors.As(err, &lerr) || lerr.Kind != lperrors.ErrSyntax {
			t.Errorf("%q: expected syntax error, got %v", tc.input, err)
			continue
		}
		if lerr.Span == nil || lerr.Span.StartLine != tc.line {
			t.Errorf("%q: expected error on line %d, got %+v", tc.input, tc.line, lerr.Span)
		}
	}
}
