package scanner

import (
	"testing"

	"crowbc/token"
)

func scanAll(source string) []token.Token {
	s := New(source)
	var toks []token.Token
	for {
		tok := s.ScanToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks
}

func assertTypes(t *testing.T, toks []token.Token, want []token.Type) {
	t.Helper()
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d (%v)", len(toks), len(want), toks)
	}
	for i, tok := range toks {
		if tok.Type != want[i] {
			t.Errorf("token %d: got %s, want %s", i, tok.Type, want[i])
		}
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []token.Type
	}{
		{"single char", "(){};,.-+/*^~|&", []token.Type{
			token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.SEMICOLON,
			token.COMMA, token.DOT, token.MINUS, token.PLUS, token.SLASH, token.STAR,
			token.CARET, token.TILDE, token.PIPE, token.AMP, token.EOF,
		}},
		{"comparisons", "! != = == > >= < <= << >>", []token.Type{
			token.BANG, token.BANG_EQUAL, token.EQUAL, token.EQUAL_EQUAL,
			token.GREATER, token.GREATER_EQUAL, token.LESS, token.LESS_EQUAL,
			token.LESS_LESS, token.GREATER_GREATER, token.EOF,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTypes(t, scanAll(tt.source), tt.want)
		})
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll("var x = foo and bar")
	want := []token.Type{
		token.VAR, token.IDENTIFIER, token.EQUAL, token.IDENTIFIER,
		token.AND, token.IDENTIFIER, token.EOF,
	}
	assertTypes(t, toks, want)
}

func TestNumbers(t *testing.T) {
	toks := scanAll("1 2.5 10")
	assertTypes(t, toks, []token.Type{token.NUMBER, token.NUMBER, token.NUMBER, token.EOF})
	if toks[0].Lexeme != "1" || toks[1].Lexeme != "2.5" || toks[2].Lexeme != "10" {
		t.Errorf("unexpected lexemes: %v", toks)
	}
}

func TestString(t *testing.T) {
	toks := scanAll(`"hi there"`)
	assertTypes(t, toks, []token.Type{token.STRING, token.EOF})
	if toks[0].Lexeme != `"hi there"` {
		t.Errorf("got lexeme %q", toks[0].Lexeme)
	}
}

func TestUnterminatedString(t *testing.T) {
	toks := scanAll(`"hi`)
	if toks[0].Type != token.ERROR {
		t.Fatalf("want ERROR token, got %s", toks[0].Type)
	}
}

func TestCharLiteral(t *testing.T) {
	toks := scanAll(`'c'`)
	assertTypes(t, toks, []token.Type{token.CHAR, token.EOF})
}

func TestCharLiteralMustBeOneByte(t *testing.T) {
	toks := scanAll(`'ab'`)
	if toks[0].Type != token.ERROR {
		t.Fatalf("want ERROR token for multi-byte char literal, got %s", toks[0].Type)
	}
}

func TestLineTracking(t *testing.T) {
	toks := scanAll("var a\n= 1\n;")
	// var a = 1 ;
	if toks[0].Line != 1 {
		t.Errorf("'var' should be on line 1, got %d", toks[0].Line)
	}
	if toks[2].Line != 2 {
		t.Errorf("'=' should be on line 2, got %d", toks[2].Line)
	}
	if toks[4].Line != 3 {
		t.Errorf("';' should be on line 3, got %d", toks[4].Line)
	}
}

func TestComments(t *testing.T) {
	toks := scanAll("1 // a comment\n2")
	assertTypes(t, toks, []token.Type{token.NUMBER, token.NUMBER, token.EOF})
}
