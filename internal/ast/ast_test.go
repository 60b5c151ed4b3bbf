package ast

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/orizon-lang/kaleido/internal/position"
)

// createTestSpan creates a basic position span for testing
func createTestSpan(line, col int) position.Span {
	return position.Span{
		Start: position.Position{Filename: "test.kal", Line: line, Column: col, Offset: line*80 + col},
		End:   position.Position{Filename: "test.kal", Line: line, Column: col + 1, Offset: line*80 + col + 1},
	}
}

func num(v float64) *Number     { return NewNumber(position.Span{}, v) }
func ref(name string) *Variable { return NewVariable(position.Span{}, name) }

func bin(op Operator, l, r Expr) *Binary { return NewBinary(position.Span{}, op, l, r) }

func TestPlacement(t *testing.T) {
	n := NewNumber(createTestSpan(1, 1), 3)
	if n.Placement() != Nested {
		t.Fatalf("new node placement: want %v, got %v", Nested, n.Placement())
	}

	n.MarkTopLevel()
	if !n.IsPendingTopLevel() {
		t.Fatal("MarkTopLevel did not set the pending flag")
	}
	if !n.ClaimTopLevel() {
		t.Fatal("first ClaimTopLevel: want true")
	}
	if n.ClaimTopLevel() {
		t.Fatal("second ClaimTopLevel: want false")
	}

	n.Toggle()
	if n.Placement() != PendingTopLevel {
		t.Fatalf("Toggle from nested: want %v, got %v", PendingTopLevel, n.Placement())
	}
	n.Toggle()
	if n.Placement() != Nested {
		t.Fatalf("Toggle from pending: want %v, got %v", Nested, n.Placement())
	}
}

func TestPrinter(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"number", num(1.5), "1.5"},
		{"integral number", num(42), "42"},
		{"variable", ref("x"), "x"},
		{"unary", NewUnary(position.Span{}, OpSub, ref("x")), "(- x)"},
		{"binary", bin(OpAdd, num(1), bin(OpMul, ref("a"), ref("b"))), "(+ 1 (* a b))"},
		{"call", NewCall(position.Span{}, "f", []Expr{num(1), ref("y")}), "f(1 y)"},
		{"call without args", NewCall(position.Span{}, "g", nil), "g()"},
		{"if", NewIf(position.Span{}, ref("c"), num(2), num(3)), "(if c then 2 else 3)"},
		{
			"for with step",
			NewFor(position.Span{}, "i", num(0), bin(OpLt, ref("i"), num(3)), num(2), ref("i")),
			"(for i = 0, (< i 3), 2 in i)",
		},
		{
			"for default step",
			NewFor(position.Span{}, "i", num(0), bin(OpLt, ref("i"), num(3)), nil, ref("i")),
			"(for i = 0, (< i 3), 1 in i)",
		},
		{"while", NewWhile(position.Span{}, ref("c"), ref("x")), "(while c in x)"},
		{
			"var",
			NewVarBinding(position.Span{}, []Binding{{Name: "a", Init: num(1)}, {Name: "b"}}, bin(OpAdd, ref("a"), ref("b"))),
			"(var a = 1, b in (+ a b))",
		},
		{"prototype", NewPrototype(position.Span{}, "sin", []string{"x"}), "extern sin(x)"},
		{
			"function",
			NewFunction(position.Span{}, NewPrototype(position.Span{}, "add", []string{"a", "b"}), bin(OpAdd, ref("a"), ref("b"))),
			"def add(a b) (+ a b)",
		},
		{
			"forward declaration",
			NewFunction(position.Span{}, NewPrototype(position.Span{}, "f", nil), nil),
			"extern f()",
		},
		{"empty sequence", SequenceOf(), ""},
		{
			"sequence",
			SequenceOf(NewPrototype(position.Span{}, "f", []string{"x"}), bin(OpSeq, num(1), num(2))),
			"extern f(x);\n(: 1 2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sprint(tt.node)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Sprint mismatch (-want +got):\n%s", diff)
			}
			if tt.node.String() != got {
				t.Errorf("String and Sprint disagree: %q vs %q", tt.node.String(), got)
			}
		})
	}
}

func TestPrintWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, bin(OpAssign, ref("x"), num(2))); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if buf.String() != "(= x 2)" {
		t.Fatalf("Print: want %q, got %q", "(= x 2)", buf.String())
	}
}

func TestSequenceForms(t *testing.T) {
	a, b, c := num(1), num(2), num(3)
	seq := SequenceOf(a, b, c)

	forms := seq.Forms()
	if len(forms) != 3 {
		t.Fatalf("Forms: want 3 forms, got %d", len(forms))
	}
	for i, want := range []Node{a, b, c} {
		if forms[i] != want {
			t.Errorf("form %d: want %v, got %v", i, want, forms[i])
		}
	}
	if !SequenceOf().IsEmpty() {
		t.Error("SequenceOf() should be empty")
	}
}

func TestSequenceSpanCoversForms(t *testing.T) {
	a := NewNumber(createTestSpan(1, 1), 1)
	b := NewNumber(createTestSpan(3, 5), 2)
	seq := SequenceOf(a, b)

	if seq.GetSpan().Start != a.Span.Start || seq.GetSpan().End != b.Span.End {
		t.Fatalf("sequence span: got %v", seq.GetSpan())
	}
}

func TestInspectOrderAndPendingCount(t *testing.T) {
	inner := bin(OpAdd, ref("a"), num(1))
	top := NewIf(position.Span{}, ref("c"), inner, num(0))
	top.MarkTopLevel()
	seq := SequenceOf(top)

	var seen []string
	Inspect(seq, func(n Node) bool {
		if _, ok := n.(*Sequence); ok {
			return true
		}
		seen = append(seen, Sprint(n))
		return true
	})

	want := []string{"(if c then (+ a 1) else 0)", "c", "(+ a 1)", "a", "1", "0"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("Inspect order (-want +got):\n%s", diff)
	}
	if got := CountPendingTopLevel(seq); got != 1 {
		t.Errorf("CountPendingTopLevel: want 1, got %d", got)
	}
}

type countingVisitor struct {
	BaseVisitor
	binaries int
}

func (v *countingVisitor) VisitBinary(node *Binary) interface{} {
	v.binaries++
	return nil
}

func TestBaseVisitorDefaults(t *testing.T) {
	v := &countingVisitor{}
	if got := num(1).Accept(v); got != nil {
		t.Errorf("BaseVisitor result: want nil, got %v", got)
	}
	bin(OpAdd, num(1), num(2)).Accept(v)
	if v.binaries != 1 {
		t.Errorf("VisitBinary calls: want 1, got %d", v.binaries)
	}
}

// genExpr builds a random arithmetic tree from a depth-first opcode stream.
func genExpr(codes []int) Expr {
	pos := 0
	var build func(depth int) Expr
	build = func(depth int) Expr {
		if pos >= len(codes) || depth > 6 {
			return num(float64(depth))
		}
		c := codes[pos]
		pos++
		switch c {
		case 0:
			return num(float64(pos))
		case 1:
			return ref("x")
		case 2:
			return NewUnary(position.Span{}, OpSub, build(depth+1))
		case 3:
			return bin(OpMul, build(depth+1), build(depth+1))
		default:
			return bin(OpAdd, build(depth+1), build(depth+1))
		}
	}
	return build(0)
}

func TestPrinterDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("printing the same tree twice yields identical output", prop.ForAll(
		func(codes []int) bool {
			e := genExpr(codes)
			return Sprint(e) == Sprint(e) && e.String() == Sprint(e)
		},
		gen.SliceOf(gen.IntRange(0, 4)),
	))

	properties.Property("parentheses balance", prop.ForAll(
		func(codes []int) bool {
			depth := 0
			for _, r := range Sprint(genExpr(codes)) {
				switch r {
				case '(':
					depth++
				case ')':
					depth--
					if depth < 0 {
						return false
					}
				}
			}
			return depth == 0
		},
		gen.SliceOf(gen.IntRange(0, 4)),
	))

	properties.TestingRun(t)
}
