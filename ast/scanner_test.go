package ast

import (
	"strings"
	"testing"

	"github.com/mhcho1994/rumoca/logging"
)

func scanAll(t *testing.T, src string) []*Token {
	t.Helper()
	s := NewScanner(strings.NewReader(src), "test.mo", logging.NewLogger(logging.LogLevelSilent))
	var toks []*Token
	for {
		tok, _ := s.ReadToken()
		if tok.Kind == EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestScanKeywordsAndIdents(t *testing.T) {
	toks := scanAll(t, "model Motor der omega_ref")
	want := []struct {
		kind  int
		value string
	}{
		{KW_MODEL, "model"},
		{IDENT, "Motor"},
		{IDENT, "der"}, // der is an operator function name, not a keyword
		{IDENT, "omega_ref"},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens", len(toks))
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Value != w.value {
			t.Errorf("token %d: got (%d, %q)", i, toks[i].Kind, toks[i].Value)
		}
	}
}

func TestScanNumbers(t *testing.T) {
	tests := []struct {
		src  string
		kind int
	}{
		{"42", INT},
		{"3.14", FLOAT},
		{"1e5", FLOAT},
		{"2.5e-3", FLOAT},
		{"1E+2", FLOAT},
	}
	for _, tt := range tests {
		toks := scanAll(t, tt.src)
		if len(toks) != 1 || toks[0].Kind != tt.kind || toks[0].Value != tt.src {
			t.Errorf("%q: got %+v", tt.src, toks)
		}
	}
}

func TestScanComments(t *testing.T) {
	toks := scanAll(t, "a // line comment\nb /* block\ncomment */ c")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens", len(toks))
	}
	for i, want := range []string{"a", "b", "c"} {
		if toks[i].Value != want {
			t.Errorf("token %d: got %q", i, toks[i].Value)
		}
	}
}

func TestScanStringEscapes(t *testing.T) {
	toks := scanAll(t, `"line\nbreak \"quoted\""`)
	if len(toks) != 1 || toks[0].Kind != STRING {
		t.Fatalf("got %+v", toks)
	}
	if toks[0].Value != "line\nbreak \"quoted\"" {
		t.Errorf("got %q", toks[0].Value)
	}
}

func TestScanQuotedIdentifier(t *testing.T) {
	toks := scanAll(t, "'my weird name'")
	if len(toks) != 1 || toks[0].Kind != IDENT || toks[0].Value != "my weird name" {
		t.Errorf("got %+v", toks)
	}
}

func TestScanOperators(t *testing.T) {
	toks := scanAll(t, ":= <= >= == <> .* ^ :")
	want := []int{BIND, LE, GE, EQ, NE, DOTSTAR, CARET, COLON}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens", len(toks))
	}
	for i, w := range want {
		if toks[i].Kind != w {
			t.Errorf("token %d: got kind %d, want %d", i, toks[i].Kind, w)
		}
	}
}

func TestScanUnterminatedString(t *testing.T) {
	logger := logging.NewLogger(logging.LogLevelSilent)
	s := NewScanner(strings.NewReader(`"never closed`), "test.mo", logger)
	s.ReadToken()
	if logger.ErrorCount() == 0 {
		t.Error("unterminated string not diagnosed")
	}
}

func TestScanLineTracking(t *testing.T) {
	toks := scanAll(t, "a\nb\n  c")
	if toks[0].Line != 1 || toks[1].Line != 2 || toks[2].Line != 3 {
		t.Errorf("lines: %d %d %d", toks[0].Line, toks[1].Line, toks[2].Line)
	}
}
