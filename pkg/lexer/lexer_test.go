package lexer_test

import (
	"testing"

	"github.com/thomasrohde/hotloop/pkg/lexer"
)

// helper: tokenize and assert success
func mustTokenize(t *testing.T, source string) []lexer.Token {
	t.Helper()
	tokens, err := lexer.Tokenize(source, "test.hl")
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	return tokens
}

// helper: assert token types (ignoring the trailing EOF)
func assertTypes(t *testing.T, tokens []lexer.Token, want ...lexer.TokenType) {
	t.Helper()
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		t.Fatal("expected trailing EOF token")
	}
	body := tokens[:len(tokens)-1]
	if len(body) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(body), body)
	}
	for i, w := range want {
		if body[i].Type != w {
			t.Errorf("token %d: expected type %d, got %d (%q)", i, w, body[i].Type, body[i].Value)
		}
	}
}

func TestKeywords(t *testing.T) {
	tokens := mustTokenize(t, "let return fn class for in if else true false null")
	assertTypes(t, tokens,
		lexer.TokLet, lexer.TokReturn, lexer.TokFn, lexer.TokClass,
		lexer.TokFor, lexer.TokIn, lexer.TokIf, lexer.TokElse,
		lexer.TokTrue, lexer.TokFalse, lexer.TokNull)
}

func TestIdentifiers(t *testing.T) {
	tokens := mustTokenize(t, "foo _bar baz42 reloading")
	assertTypes(t, tokens, lexer.TokIdent, lexer.TokIdent, lexer.TokIdent, lexer.TokIdent)
	if tokens[3].Value != "reloading" {
		t.Errorf("expected 'reloading', got %q", tokens[3].Value)
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		source string
		typ    lexer.TokenType
		value  string
	}{
		{"0", lexer.TokIntLit, "0"},
		{"42", lexer.TokIntLit, "42"},
		{"3.14", lexer.TokFloatLit, "3.14"},
		{"1e6", lexer.TokFloatLit, "1e6"},
		{"2.5e-3", lexer.TokFloatLit, "2.5e-3"},
	}
	for _, tt := range tests {
		tokens := mustTokenize(t, tt.source)
		assertTypes(t, tokens, tt.typ)
		if tokens[0].Value != tt.value {
			t.Errorf("%s: expected value %q, got %q", tt.source, tt.value, tokens[0].Value)
		}
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`"hello"`, "hello"},
		{`""`, ""},
		{`"a\nb"`, "a\nb"},
		{`"quote: \""`, `quote: "`},
		{`"é"`, "é"},
	}
	for _, tt := range tests {
		tokens := mustTokenize(t, tt.source)
		assertTypes(t, tokens, lexer.TokStringLit)
		if tokens[0].Value != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.source, tt.want, tokens[0].Value)
		}
	}
}

func TestOperators(t *testing.T) {
	tokens := mustTokenize(t, "= == != > < >= <= + - * / % @ . ,")
	assertTypes(t, tokens,
		lexer.TokEquals, lexer.TokEqEq, lexer.TokBangEq,
		lexer.TokGt, lexer.TokLt, lexer.TokGtEq, lexer.TokLtEq,
		lexer.TokPlus, lexer.TokMinus, lexer.TokStar, lexer.TokSlash, lexer.TokPercent,
		lexer.TokAt, lexer.TokDot, lexer.TokComma)
}

func TestComments(t *testing.T) {
	tokens := mustTokenize(t, "let x = 1 # trailing comment\n# full line\nx")
	assertTypes(t, tokens, lexer.TokLet, lexer.TokIdent, lexer.TokEquals, lexer.TokIntLit, lexer.TokIdent)
}

func TestSpans(t *testing.T) {
	tokens := mustTokenize(t, "let\n  foo")
	if tokens[0].Span.StartLine != 1 || tokens[0].Span.StartCol != 1 {
		t.Errorf("let span: got %+v", tokens[0].Span)
	}
	if tokens[1].Span.StartLine != 2 || tokens[1].Span.StartCol != 3 {
		t.Errorf("foo span: got %+v", tokens[1].Span)
	}
	if tokens[1].Span.File != "test.hl" {
		t.Errorf("expected file test.hl, got %q", tokens[1].Span.File)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []string{
		`"unterminated`,
		`"bad escape \q"`,
		"!",
		"$",
	}
	for _, source := range tests {
		if _, err := lexer.Tokenize(source, "test.hl"); err == nil {
			t.Errorf("%q: expected lex error", source)
		}
	}
}
