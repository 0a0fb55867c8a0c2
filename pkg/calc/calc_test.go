package calc

import (
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/value"
)

func compile(t *testing.T, src string, display DisplayOptions) *Output {
	t.Helper()
	out, err := Compile(src, NewNamespace(), display)
	if err != nil {
		t.Fatalf("Compile(%q) error: %v", src, err)
	}
	return out
}

func aligned(lines ...string) string {
	return "\\begin{aligned}\n" + strings.Join(lines, "\n") + "\n\\end{aligned}"
}

func TestCompile_LiteralAssignment(t *testing.T) {
	out := compile(t, "x = 5", DefaultDisplay())
	if want := aligned(`x &= 5`); out.LaTeX != want {
		t.Errorf("LaTeX = %q, want %q", out.LaTeX, want)
	}
	if len(out.Assigned) != 1 || out.Assigned[0].Name != "x" || out.Assigned[0].Value.Type() != "int" {
		t.Fatalf("Assigned = %+v", out.Assigned)
	}
}

func TestCompile_Examples(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"sum after literals",
			"x = 5\ny = 10\nz = x + y",
			aligned(`x &= 5 \\`, `y &= 10 \\[8pt]`, `z &= x + y = 5 + 10 = 15`),
		},
		{
			"hypotenuse",
			"a = 3\nb = 4\nc = sqrt(a**2 + b**2)",
			aligned(`a &= 3 \\`, `b &= 4 \\[8pt]`, `c &= \sqrt{a^{2} + b^{2}} = \sqrt{3^{2} + 4^{2}} = 5`),
		},
		{
			"division renders as a fraction",
			"a = 1\nb = 4\ny = a / b",
			aligned(`a &= 1 \\`, `b &= 4 \\[8pt]`, `y &= \frac{a}{b} = \frac{1}{4} = 0.25`),
		},
		{
			"substitution identical to symbolic is dropped",
			"q = 7 // 2",
			aligned(`q &= \left\lfloor\frac{7}{2}\right\rfloor = 3`),
		},
		{
			"negative literal is a constant",
			"x = -5",
			aligned(`x &= -5`),
		},
		{
			"greek and subscripts",
			"alpha_1 = 2\nV_in = alpha_1 * 3",
			aligned(`\alpha_{1} &= 2 \\[8pt]`, `V_{in} &= \alpha_{1} \cdot 3 = 2 \cdot 3 = 6`),
		},
		{
			"fractional values substitute with four digits",
			"x = 1.23456\ny = x * 2",
			aligned(`x &= 1.23456 \\[8pt]`, `y &= x \cdot 2 = 1.235 \cdot 2 = 2.46912`),
		},
		{
			"complex result",
			"z = 3 + 4*j",
			aligned(`z &= 3 + 4 \cdot j = 3 + 4 \cdot 1j = 3 + 4j`),
		},
		{
			"multi-stage lines are spaced from each other",
			"x = 2\ny = x + 1\nz = y * 2",
			aligned(`x &= 2 \\[8pt]`, `y &= x + 1 = 2 + 1 = 3 \\[8pt]`, `z &= y \cdot 2 = 3 \cdot 2 = 6`),
		},
		{
			"statements other than assignments are skipped",
			"import math\nx = 1\nprint(x)\nfor i in range(3):\n    x = i\ny = 2",
			aligned(`x &= 1 \\`, `y &= 2`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := compile(t, tt.src, DefaultDisplay())
			if out.LaTeX != tt.want {
				t.Errorf("LaTeX =\n%s\nwant\n%s", out.LaTeX, tt.want)
			}
		})
	}
}

func TestCompile_DisplayOptions(t *testing.T) {
	src := "x = 5\ny = 10\nz = x + y"
	tests := []struct {
		name    string
		display DisplayOptions
		want    string
	}{
		{"symbolic only", DisplayOptions{ShowSymbolic: true}, `z &= x + y`},
		{"substitution only", DisplayOptions{ShowSubstitution: true}, `z &= 5 + 10`},
		{"result only", DisplayOptions{ShowResult: true}, `z &= 15`},
		{"symbolic and result", DisplayOptions{ShowSymbolic: true, ShowResult: true}, `z &= x + y = 15`},
		{"nothing falls back to result", DisplayOptions{}, `z &= 15`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := compile(t, src, tt.display)
			last := out.Lines[len(out.Lines)-1]
			if last.LaTeX != tt.want {
				t.Errorf("line = %q, want %q", last.LaTeX, tt.want)
			}
		})
	}
}

func TestCompile_LiteralOnlyBlocksUsePlainBreaks(t *testing.T) {
	out := compile(t, "a = 1\nb = 2.5\nc = 'volts'\nd = True", DefaultDisplay())
	want := aligned(`a &= 1 \\`, `b &= 2.5 \\`, `c &= \text{volts} \\`, `d &= \text{True}`)
	if out.LaTeX != want {
		t.Errorf("LaTeX =\n%s\nwant\n%s", out.LaTeX, want)
	}
	if strings.Contains(out.LaTeX, "[8pt]") {
		t.Error("literal-only block should not use spaced breaks")
	}
}

func TestCompile_NoAssignments(t *testing.T) {
	out := compile(t, "import math\nprint('hi')", DefaultDisplay())
	if out.LaTeX != "" {
		t.Errorf("LaTeX = %q, want empty", out.LaTeX)
	}
	if out.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", out.Skipped)
	}
}

func TestCompile_ReassignmentReportsFinalValue(t *testing.T) {
	out := compile(t, "x = 1\nx = x + 1", DefaultDisplay())
	if len(out.Assigned) != 1 {
		t.Fatalf("Assigned = %+v, want one entry", out.Assigned)
	}
	if got := out.Assigned[0].Value.String(); got != "2" {
		t.Errorf("x = %s, want 2", got)
	}
	if got := out.Lines[1].LaTeX; got != `x &= x + 1 = 1 + 1 = 2` {
		t.Errorf("second line = %q", got)
	}
}

func TestCompile_AugmentedAssignment(t *testing.T) {
	out := compile(t, "n = 4\nn *= 3", DefaultDisplay())
	if got := out.Assigned[0].Value.String(); got != "12" {
		t.Errorf("n = %s, want 12", got)
	}
	if got := out.Lines[1].LaTeX; got != `n &= n \cdot 3 = 4 \cdot 3 = 12` {
		t.Errorf("line = %q", got)
	}
}

func TestCompile_UsesPreboundNamespace(t *testing.T) {
	ns := NewNamespace()
	ns["x"] = value.NewInt(5)
	ns["y"] = value.NewInt(10)
	out, err := Compile("z = x + y", ns, DefaultDisplay())
	if err != nil {
		t.Fatal(err)
	}
	if want := aligned(`z &= x + y = 5 + 10 = 15`); out.LaTeX != want {
		t.Errorf("LaTeX = %q, want %q", out.LaTeX, want)
	}
	if _, ok := ns["z"]; !ok {
		t.Error("z not bound in namespace")
	}
}

func TestCompile_ErrorsAbortBlock(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind string
	}{
		{"undefined name", "x = 1\ny = undefined + 1", "NameError"},
		{"division by zero", "x = 1 / 0", "ZeroDivisionError"},
		{"type mismatch", "x = 'a' + 1", "TypeError"},
		{"domain", "x = sqrt(-1)", "ValueError"},
		{"syntax", "x = (1 +", "SyntaxError"},
		{"unsupported syntax", "x = 1 and 2", "SyntaxError"},
		{"repetition too large", "s = 'ab' * 10**12", "MemoryError"},
		{"int quotient too large", "x = 10**400 / 1", "OverflowError"},
		{"stray operator", "x = 1\n= 5", "SyntaxError"},
		{"unexpected indent", "x = 1\n  y = 2", "IndentationError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compile(tt.src, NewNamespace(), DefaultDisplay())
			if err == nil {
				t.Fatalf("expected error, got %+v", out)
			}
			if out != nil {
				t.Errorf("expected no output on error, got %+v", out)
			}
			var ve *value.Error
			if !errors.As(err, &ve) || ve.Kind != tt.kind {
				t.Errorf("error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestCompile_ConditionalsAndSubscripts(t *testing.T) {
	out := compile(t, "xs = [3, 4]\nk = 1\ny = xs[k] * 2\nz = 2 if k > 0 else 3\nb = not k", DefaultDisplay())
	want := []string{
		`y &= xs_{k} \cdot 2 = 4 \cdot 2 = 8`,
		`z &= \begin{cases} 2 & \text{if } k > 0 \\ 3 & \text{otherwise} \end{cases} = \begin{cases} 2 & \text{if } 1 > 0 \\ 3 & \text{otherwise} \end{cases} = 2`,
		`b &= \neg k = \neg 1 = \text{False}`,
	}
	for i, w := range want {
		if got := out.Lines[i+2].LaTeX; got != w {
			t.Errorf("line %d = %q, want %q", i+3, got, w)
		}
	}
}

func TestCompile_TextValuesEscaped(t *testing.T) {
	out := compile(t, "s = 'a_b%c'\nu = s", DefaultDisplay())
	if got, want := out.Lines[1].LaTeX, `u &= s = \text{a\_b\%c} = \text{a\_b\%c}`; got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}

func TestCompile_NameErrorSuggestion(t *testing.T) {
	_, err := Compile("radius = 2\narea = pi * radiu**2", NewNamespace(), DefaultDisplay())
	if err == nil {
		t.Fatal("expected NameError")
	}
	if !strings.Contains(err.Error(), "Did you mean: 'radius'?") {
		t.Errorf("error = %v, want a suggestion for radius", err)
	}
	if !strings.Contains(err.Error(), "(line 2)") {
		t.Errorf("error = %v, want line number", err)
	}
}

func TestExec(t *testing.T) {
	ns := NewNamespace()
	if err := Exec("a = 2\nb = a ** 10\nprint(b)", ns); err != nil {
		t.Fatal(err)
	}
	if got := ns["b"].String(); got != "1024" {
		t.Errorf("b = %s, want 1024", got)
	}
	if err := Exec("c = nope", ns); err == nil {
		t.Error("expected NameError")
	}
}

func eval(t *testing.T, src string) value.Value {
	t.Helper()
	ns := NewNamespace()
	if err := Exec("result = "+src, ns); err != nil {
		t.Fatalf("%s: %v", src, err)
	}
	return ns["result"]
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		src  string
		want string
		typ  string
	}{
		{"sqrt(16)", "4.0", "float"},
		{"abs(-3)", "3", "int"},
		{"abs(3 + 4*j)", "5.0", "float"},
		{"round(2.5)", "2", "int"},
		{"round(3.5)", "4", "int"},
		{"round(2.675, 2)", "2.67", "float"},
		{"round(1250, -2)", "1200", "int"},
		{"pow(2, 10)", "1024", "int"},
		{"pow(3, 4, 5)", "1", "int"},
		{"pow(3, -1, 7)", "5", "int"},
		{"max(1, 5, 3)", "5", "int"},
		{"min([4, 2.5, 9])", "2.5", "float"},
		{"int('42')", "42", "int"},
		{"int(-3.9)", "-3", "int"},
		{"float('inf')", "inf", "float"},
		{"float(3)", "3.0", "float"},
		{"complex('(3+4j)')", "(3+4j)", "complex"},
		{"complex('-2j')", "-2j", "complex"},
		{"complex(1, 2)", "(1+2j)", "complex"},
		{"log2(8)", "3.0", "float"},
		{"exp(0)", "1.0", "float"},
		{"atan(0)", "0.0", "float"},
		{"atan2(0, 1)", "0.0", "float"},
		{"sec(0)", "1.0", "float"},
		{"sum([1, 2, 3])", "6", "int"},
		{"sum([0.5, 1], 1)", "2.5", "float"},
		{"sum([])", "0", "int"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v := eval(t, tt.src)
			if v.String() != tt.want || v.Type() != tt.typ {
				t.Errorf("%s = %s (%s), want %s (%s)", tt.src, v, v.Type(), tt.want, tt.typ)
			}
		})
	}
}

func TestBuiltins_Log(t *testing.T) {
	v := eval(t, "log(8, 2)")
	f, ok := v.(value.Float)
	if !ok || math.Abs(float64(f)-3) > 1e-12 {
		t.Errorf("log(8, 2) = %v", v)
	}
	v = eval(t, "log(10**400)")
	f, ok = v.(value.Float)
	if !ok || math.Abs(float64(f)-400*math.Ln10) > 1e-9 {
		t.Errorf("log(10**400) = %v", v)
	}
}

func TestBuiltins_Errors(t *testing.T) {
	tests := []struct {
		src  string
		kind string
	}{
		{"sqrt(1, 2)", "TypeError"},
		{"asin(2)", "ValueError"},
		{"log(0)", "ValueError"},
		{"exp(1000)", "OverflowError"},
		{"max([])", "ValueError"},
		{"int('x')", "ValueError"},
		{"pow(2, 3, 0)", "ValueError"},
		{"complex('abc')", "ValueError"},
		{"sqrt('4')", "TypeError"},
		{"cot(0)", "ValueError"},
		{"csc(0)", "ValueError"},
		{"atan2(1)", "TypeError"},
		{"sum(5)", "TypeError"},
		{"sum(['a'], 'b')", "TypeError"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			err := Exec("r = "+tt.src, NewNamespace())
			var ve *value.Error
			if !errors.As(err, &ve) || ve.Kind != tt.kind {
				t.Errorf("%s: error = %v, want %s", tt.src, err, tt.kind)
			}
		})
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name string
		v    value.Value
		want string
	}{
		{"int", value.NewInt(42), "42"},
		{"integral float", value.Float(2.0), "2"},
		{"near integral float", value.Float(0.1 + 0.2 - 0.3 + 1), "1"},
		{"fraction", value.Float(1.0 / 3), "0.333333"},
		{"large", value.Float(1.5e20), "150000000000000000000"},
		{"small", value.Float(1.5e-7), "1.5e-07"},
		{"infinity", value.Float(math.Inf(1)), `\infty`},
		{"complex", value.Complex(3 + 4i), "3 + 4j"},
		{"complex negative imaginary", value.Complex(3 - 4i), "3 - 4j"},
		{"imaginary unit", value.Complex(1i), "j"},
		{"negative imaginary unit", value.Complex(-1i), "-j"},
		{"pure imaginary", value.Complex(2.5i), "2.5j"},
		{"bool", value.Bool(false), `\text{False}`},
		{"string", value.Str("a_b"), `\text{a\_b}`},
		{"none", value.None{}, `\text{None}`},
		{"list", value.List{value.NewInt(1), value.Float(0.5)}, `\left[1, 0.5\right]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatResult(tt.v); got != tt.want {
				t.Errorf("FormatResult(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}
}

func TestIsBuiltin(t *testing.T) {
	for _, name := range []string{"sqrt", "pi", "j", "complex"} {
		if !IsBuiltin(name) {
			t.Errorf("IsBuiltin(%q) = false", name)
		}
	}
	if IsBuiltin("x") {
		t.Error("IsBuiltin(x) = true")
	}
}
