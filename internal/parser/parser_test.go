package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/orizon-lang/kaleido/internal/ast"
	"github.com/orizon-lang/kaleido/internal/lexer"
)

func parse(t *testing.T, input string) *ast.Sequence {
	t.Helper()

	p := NewParser(lexer.New(input), "test.kal")
	seq, errs := p.Parse()
	if len(errs) > 0 {
		t.Fatalf("parse %q: unexpected errors: %v", input, errs)
	}
	return seq
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"arithmetic", "1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"left associative sum", "a - b - c", "(- (- a b) c)"},
		{"comparison below sum", "1 + 2 < 3 * 4", "(< (+ 1 2) (* 3 4))"},
		{"assignment right associative", "a = b = 3", "(= a (= b 3))"},
		{"sequence lowest", "x = 2 : x", "(: (= x 2) x)"},
		{"sequence right associative", "a : b : c", "(: a (: b c))"},
		{"unary binds tightest", "-x * 2", "(* (- x) 2)"},
		{"unary plus", "+x", "(+ x)"},
		{"grouping", "(1 + 2) * 3", "(* (+ 1 2) 3)"},
		{"all comparisons", "a == b != c", "(!= (== a b) c)"},
		{"le ge", "a <= b >= c", "(>= (<= a b) c)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := parse(t, tt.input)
			if got := ast.Sprint(seq); got != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, got)
			}
		})
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"if", "if x < 3 then 1 else 2", "(if (< x 3) then 1 else 2)"},
		{"nested if", "if a then if b then 1 else 2 else 3", "(if a then (if b then 1 else 2) else 3)"},
		{"for default step", "for i = 0, i < 3 in i", "(for i = 0, (< i 3), 1 in i)"},
		{"for with step and end", "for i = 0, i < 10, 2 in f(i) end", "(for i = 0, (< i 10), 2 in f(i))"},
		{"while", "while x < 10 in x = x + 1 end", "(while (< x 10) in (= x (+ x 1)))"},
		{"var", "var a = 1, b in a + b", "(var a = 1, b in (+ a b))"},
		{"var with sequence body", "var x = 1 in (x = 2 : x)", "(var x = 1 in (: (= x 2) x))"},
		{"call", "f(1, g(2), x)", "f(1 g(2) x)"},
		{"empty call", "f()", "f()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ast.Sprint(parse(t, tt.input)); got != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, got)
			}
		})
	}
}

func TestDefinitionsAndExterns(t *testing.T) {
	seq := parse(t, `
# library
extern sin(x);
def add(a, b) a + b;
def avg(a b) (a + b) / 2;
add(1, 2)
`)

	want := "extern sin(x);\ndef add(a b) (+ a b);\ndef avg(a b) (/ (+ a b) 2);\nadd(1 2)"
	if diff := cmp.Diff(want, ast.Sprint(seq)); diff != "" {
		t.Errorf("program mismatch (-want +got):\n%s", diff)
	}

	forms := seq.Forms()
	if len(forms) != 4 {
		t.Fatalf("form count: want 4, got %d", len(forms))
	}
	if _, ok := forms[0].(*ast.Prototype); !ok {
		t.Errorf("extern: want *ast.Prototype, got %T", forms[0])
	}
	if fn, ok := forms[1].(*ast.Function); !ok || fn.IsExternal() {
		t.Errorf("def: want a defined *ast.Function, got %T", forms[1])
	}
}

func TestOnlyBareExpressionsAreMarkedTopLevel(t *testing.T) {
	seq := parse(t, "def f(x) x + 1; f(2); 3 + 4")

	forms := seq.Forms()
	if len(forms) != 3 {
		t.Fatalf("form count: want 3, got %d", len(forms))
	}

	fn := forms[0].(*ast.Function)
	if fn.Body.IsPendingTopLevel() {
		t.Error("function body must not be marked top level")
	}
	for _, f := range forms[1:] {
		if e, ok := f.(ast.Expr); !ok || !e.IsPendingTopLevel() {
			t.Errorf("bare expression %s: want pending top level", f)
		}
	}

	// Exactly one node per statement carries the mark.
	if got := ast.CountPendingTopLevel(seq); got != 2 {
		t.Errorf("pending nodes: want 2, got %d", got)
	}
}

func TestParseErrorsRecoverAtSemicolon(t *testing.T) {
	p := NewParser(lexer.New("def (x) 1; 1 + ; @; 5"), "test.kal")
	seq, errs := p.Parse()

	if len(errs) != 3 {
		t.Fatalf("error count: want 3, got %d: %v", len(errs), errs)
	}
	for _, err := range errs {
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("want *ParseError, got %T", err)
		}
		if !pe.Span.Start.IsValid() {
			t.Errorf("error without position: %v", pe)
		}
	}

	if got := ast.Sprint(seq); got != "5" {
		t.Errorf("surviving forms: want %q, got %q", "5", got)
	}
}

func TestPrototypeErrors(t *testing.T) {
	inputs := []string{
		"extern f(a,)",
		"extern f(,a)",
		"extern (a)",
		"def f(a",
		"if x then 1",
		"for i = 0 in i",
		"var in 1",
	}

	for _, input := range inputs {
		_, err := ParseString(input, "test.kal")
		if err == nil {
			t.Errorf("%q: expected a parse error", input)
		}
	}
}
