package calc

import (
	"strings"

	"github.com/wildfunctions/calcblocks/pkg/expr"
	"github.com/wildfunctions/calcblocks/pkg/value"
)

const (
	lineBreak       = `\\`
	spacedLineBreak = `\\[8pt]`
)

// Line is one row of the aligned environment. Simple marks a row with a
// single term after the alignment marker.
type Line struct {
	Target string
	LaTeX  string
	Simple bool
}

// buildLine renders "target &= stage = stage ...". A constant right-hand
// side shows only its value; otherwise the symbolic, substituted and result
// stages are picked by display, the substituted one only when it differs
// from the symbolic one. At least the result is always shown.
func buildLine(a *expr.Assign, v value.Value, ns value.Namespace, display DisplayOptions) Line {
	result := FormatResult(v)
	var parts []string
	if expr.IsConstant(a.Expr) {
		parts = []string{result}
	} else {
		symbolic := expr.LaTeX(a.Expr)
		if display.ShowSymbolic {
			parts = append(parts, symbolic)
		}
		if display.ShowSubstitution {
			if sub := expr.Substitute(a.Expr, ns); !display.ShowSymbolic || sub != symbolic {
				parts = append(parts, sub)
			}
		}
		if display.ShowResult || len(parts) == 0 {
			parts = append(parts, result)
		}
	}
	return Line{
		Target: a.Target,
		LaTeX:  expr.NameLaTeX(a.Target) + " &= " + strings.Join(parts, " = "),
		Simple: len(parts) == 1,
	}
}

// Assemble joins lines into an aligned environment. Runs of simple lines
// are separated by a plain line break and anything next to a multi-stage
// line by a spaced one. No lines gives the empty string.
func Assemble(lines []Line) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\\begin{aligned}\n")
	for i, l := range lines {
		b.WriteString(l.LaTeX)
		if i < len(lines)-1 {
			if l.Simple && lines[i+1].Simple {
				b.WriteString(" " + lineBreak)
			} else {
				b.WriteString(" " + spacedLineBreak)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("\\end{aligned}")
	return b.String()
}
