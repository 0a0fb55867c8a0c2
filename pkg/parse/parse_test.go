package parse

import (
	"testing"

	"github.com/wildfunctions/calcblocks/pkg/expr"
	"github.com/wildfunctions/calcblocks/pkg/value"
)

func parseOne(t *testing.T, src string) expr.Statement {
	t.Helper()
	stmts, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", src, err)
	}
	if len(stmts) != 1 {
		t.Fatalf("Parse(%q) gave %d statements, want 1", src, len(stmts))
	}
	return stmts[0]
}

func TestParse_Assignments(t *testing.T) {
	tests := []struct {
		src    string
		target string
		tree   string
	}{
		{"x = 5", "x", "5"},
		{"x = 1 + 2 * 3", "x", "(1 + (2 * 3))"},
		{"x = (1 + 2) * 3", "x", "((1 + 2) * 3)"},
		{"x = 2 ** 3 ** 2", "x", "(2 ** (3 ** 2))"},
		{"x = -2 ** 2", "x", "(-(2 ** 2))"},
		{"x = a // b % c", "x", "((a // b) % c)"},
		{"x = a - b - c", "x", "((a - b) - c)"},
		{"y = math.sqrt(a**2 + b**2)", "y", "sqrt(((a ** 2) + (b ** 2)))"},
		{"ok = 1 < x <= 3", "ok", "1 < x <= 3"},
		{"v = [1, 2.5, 'a']", "v", "[1, 2.5, 'a']"},
		{"t = (1, 2)", "t", "[1, 2]"},
		{"d = {'k': 1, \"m\": x}", "d", "{'k': 1, 'm': x}"},
		{"z = 3 + 4j", "z", "(3 + 4j)"},
		{"h = 0xff", "h", "0xff"},
		{"n = 1_000", "n", "1_000"},
		{"s = 'a' 'b'", "s", "'a' 'b'"},
		{"x += 1", "x", "(x + 1)"},
		{"x **= 2", "x", "(x ** 2)"},
		{"x //= 2", "x", "(x // 2)"},
		{"lambda_ = 3", "lambda_", "3"},
		{"x = 2 if True else 3", "x", "(2 if True else 3)"},
		{"x = a if b else c if d else e", "x", "(a if b else (c if d else e))"},
		{"x = not True", "x", "(not True)"},
		{"x = not a == b", "x", "(not a == b)"},
		{"x = (not a) + 1", "x", "((not a) + 1)"},
		{"x = xs[0]", "x", "xs[0]"},
		{"x = m[i][j] ** 2", "x", "(m[i][j] ** 2)"},
		{"x = -xs[-1]", "x", "(-xs[(-1)])"},
		{"x = d['k']", "x", "d['k']"},
		{"x = [1, 2][0]", "x", "[1, 2][0]"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			a, ok := parseOne(t, tt.src).(*expr.Assign)
			if !ok {
				t.Fatalf("not an assignment")
			}
			if a.Target != tt.target {
				t.Errorf("target = %q, want %q", a.Target, tt.target)
			}
			if got := a.Expr.String(); got != tt.tree {
				t.Errorf("tree = %q, want %q", got, tt.tree)
			}
		})
	}
}

func TestParse_LiteralValues(t *testing.T) {
	tests := []struct {
		src string
		val string
		typ string
	}{
		{"x = 0xff", "255", "int"},
		{"x = 0b101", "5", "int"},
		{"x = 1_000", "1000", "int"},
		{"x = 2.50", "2.5", "float"},
		{"x = 1e3", "1000.0", "float"},
		{"x = .5", "0.5", "float"},
		{"x = 2j", "2j", "complex"},
		{"x = 'it''s'", "its", "str"},
		{`x = "tab\there"`, "tab\there", "str"},
		{`x = r"\n"`, `\n`, "str"},
		{"x = True", "True", "bool"},
		{"x = None", "None", "NoneType"},
		{"x = 123456789012345678901234567890", "123456789012345678901234567890", "int"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			a := parseOne(t, tt.src).(*expr.Assign)
			lit, ok := a.Expr.(*expr.Literal)
			if !ok {
				t.Fatalf("expr is %T, want *expr.Literal", a.Expr)
			}
			if lit.Val.String() != tt.val || lit.Val.Type() != tt.typ {
				t.Errorf("value = %q (%s), want %q (%s)", lit.Val.String(), lit.Val.Type(), tt.val, tt.typ)
			}
		})
	}
}

func TestParse_OtherStatements(t *testing.T) {
	srcs := []string{
		"import math",
		"from math import sqrt",
		"print(x)",
		"x",
		"a, b = 1, 2",
		"a = b = 1",
		"x: int = 3",
		"x == 3",
		"obj.attr = 3",
		"items[0] = 3",
		"def f(x): return x",
		"pass",
		"x if y else z",
		"not x",
		"type Alias = int",
		"-x",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			st := parseOne(t, src)
			o, ok := st.(*expr.Other)
			if !ok {
				t.Fatalf("got %T, want *expr.Other", st)
			}
			if o.Text != src {
				t.Errorf("Text = %q, want %q", o.Text, src)
			}
		})
	}
}

func TestParse_Blocks(t *testing.T) {
	src := `# resistor divider
R1 = 1000   # ohms
R2 = 2200
if R1 > R2:
    ratio = 0
V = (5 *
     R2 / (R1 + R2))
a = 1; b = 2
`
	stmts, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	var targets []string
	var lines []int
	for _, st := range stmts {
		if a, ok := st.(*expr.Assign); ok {
			targets = append(targets, a.Target)
			lines = append(lines, a.Line)
		}
	}
	wantTargets := []string{"R1", "R2", "V", "a", "b"}
	wantLines := []int{2, 3, 6, 8, 8}
	if len(targets) != len(wantTargets) {
		t.Fatalf("targets = %v, want %v", targets, wantTargets)
	}
	for i := range targets {
		if targets[i] != wantTargets[i] || lines[i] != wantLines[i] {
			t.Errorf("statement %d = %s@%d, want %s@%d", i, targets[i], lines[i], wantTargets[i], wantLines[i])
		}
	}
	if len(stmts) != 7 {
		t.Errorf("got %d statements, want 7", len(stmts))
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		incomplete bool
	}{
		{"unclosed paren", "x = (1 + 2", true},
		{"unterminated triple quote", "x = '''abc", true},
		{"unterminated string", "x = 'abc", false},
		{"unmatched closer", "x = 1)", false},
		{"dangling operator", "x = 1 +", false},
		{"bad literal", "x = 12abc", false},
		{"boolean operator", "x = a and b", false},
		{"keyword argument", "x = round(2.5, ndigits=1)", false},
		{"non-string dict key", "x = {1: 2}", false},
		{"invalid character", "x = 1 $ 2", false},
		{"missing else", "x = 1 if y", false},
		{"slice", "x = a[1:2]", false},
		{"not as an operand", "x = 1 + not y", false},
		{"stray operator", "= 5", false},
		{"juxtaposed names", "x y = 2", false},
		{"assign to a constant", "True = 1", false},
		{"unexpected indent", "x = 1\n  y = 2", false},
		{"dedent to no level", "if x:\n    y = 1\n  z = 2", false},
		{"header without body", "if x:\ny = 1", false},
		{"header at end", "if x:", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if IsIncomplete(err) != tt.incomplete {
				t.Errorf("IsIncomplete = %v, want %v (%v)", !tt.incomplete, tt.incomplete, err)
			}
		})
	}
}

func TestParse_ErrorKinds(t *testing.T) {
	tests := []struct {
		src  string
		kind string
	}{
		{"= 5", "SyntaxError"},
		{"x = 1\n  y = 2", "IndentationError"},
		{"if x:\ny = 1", "IndentationError"},
		{"x = 2 if c", "SyntaxError"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse(tt.src)
			verr, ok := err.(*value.Error)
			if !ok || verr.Kind != tt.kind {
				t.Errorf("Parse(%q) error = %v, want %s", tt.src, err, tt.kind)
			}
		})
	}
}

func TestParse_NestedBlocks(t *testing.T) {
	src := "if a:\n    if b:\n        x = 1\n    y = 2\nelse:\n    y = 3\nz = 4"
	stmts, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 7 {
		t.Fatalf("got %d statements, want 7", len(stmts))
	}
	for _, st := range stmts[:6] {
		if _, ok := st.(*expr.Other); !ok {
			t.Errorf("line %d = %T, want *expr.Other", st.Pos(), st)
		}
	}
	if a, ok := stmts[6].(*expr.Assign); !ok || a.Target != "z" {
		t.Errorf("last statement = %+v", stmts[6])
	}
}

func TestParse_DepthLimit(t *testing.T) {
	src := "x = 1"
	for i := 0; i < maxExprDepth+5; i++ {
		src += " + 1"
	}
	if _, err := Parse(src); err == nil {
		t.Error("expected depth error")
	}
}

func TestParseExpr(t *testing.T) {
	node, err := ParseExpr("sqrt(a**2 + b**2)")
	if err != nil {
		t.Fatal(err)
	}
	if got := expr.LaTeX(node); got != `\sqrt{a^{2} + b^{2}}` {
		t.Errorf("LaTeX = %q", got)
	}
	if _, err := ParseExpr("a = 1"); err == nil {
		t.Error("expected error for assignment")
	}
}
